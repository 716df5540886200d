package tui

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/triad/internal/errors"
	"github.com/Iron-Ham/triad/internal/project"
	"github.com/Iron-Ham/triad/internal/tui/styles"
)

// contextChangedMsg signals that the context file was written.
type contextChangedMsg struct{}

// watcherClosedMsg signals that the underlying watcher is gone and no
// further events will arrive.
type watcherClosedMsg struct{}

// WatchModel is the live status view: it re-renders the context document
// whenever the file changes on disk.
type WatchModel struct {
	store    *project.Store
	watcher  *fsnotify.Watcher
	doc      *project.ProjectContext
	err      error
	width    int
	quitting bool
}

// NewWatchModel creates a watch view over the store's document. It watches
// the containing directory because editors and atomic writers replace the
// file, which would orphan a watch on the path itself.
func NewWatchModel(store *project.Store) (*WatchModel, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}
	if err := watcher.Add(filepath.Dir(store.Path())); err != nil {
		_ = watcher.Close()
		return nil, errors.Wrap(err, "failed to watch context directory")
	}

	m := &WatchModel{store: store, watcher: watcher}
	m.reload()
	return m, nil
}

// Close releases the file watcher.
func (m *WatchModel) Close() error {
	if m.watcher == nil {
		return nil
	}
	return m.watcher.Close()
}

func (m *WatchModel) Init() tea.Cmd {
	return m.waitForChange()
}

// waitForChange blocks until the context file itself is written or
// created. Sibling files in docs/ churn too, so events are filtered by
// base name.
func (m *WatchModel) waitForChange() tea.Cmd {
	return func() tea.Msg {
		target := filepath.Base(m.store.Path())
		for {
			select {
			case event, ok := <-m.watcher.Events:
				if !ok {
					return watcherClosedMsg{}
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if filepath.Base(event.Name) != target {
					continue
				}
				return contextChangedMsg{}
			case _, ok := <-m.watcher.Errors:
				if !ok {
					return watcherClosedMsg{}
				}
			}
		}
	}
}

func (m *WatchModel) reload() {
	m.doc, m.err = m.store.Load()
}

func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			_ = m.Close()
			return m, tea.Quit
		case "r":
			m.reload()
		}
		return m, nil

	case contextChangedMsg:
		m.reload()
		return m, m.waitForChange()

	case watcherClosedMsg:
		return m, nil
	}

	return m, nil
}

func (m *WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch {
	case m.err != nil:
		body = styles.ErrorMsg.Render("Failed to load context: ") + m.err.Error() + "\n"
	case m.doc != nil:
		body = RenderStatus(m.doc, m.width)
	default:
		body = styles.Muted.Render("Loading...") + "\n"
	}

	help := styles.HelpBar.Render(
		styles.HelpKey.Render("r") + " refresh  " +
			styles.HelpKey.Render("q") + " quit")
	return body + help + "\n"
}
