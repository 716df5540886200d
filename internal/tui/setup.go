package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/triad/internal/config"
	"github.com/Iron-Ham/triad/internal/tui/styles"
	"github.com/Iron-Ham/triad/internal/workflow"
)

// presetItem wraps a config preset for list display.
type presetItem struct {
	preset config.Preset
}

func (i presetItem) Title() string { return i.preset.Label }

func (i presetItem) Description() string {
	parts := append([]string{i.preset.Agent.Command}, i.preset.Agent.DefaultArgs...)
	return strings.Join(parts, " ")
}

func (i presetItem) FilterValue() string { return i.preset.Label }

// setupSteps is the assignment order: the roles are configured in
// pipeline order.
var setupSteps = []workflow.AgentRole{
	workflow.RoleArchitect,
	workflow.RoleImplementer,
	workflow.RoleAuditor,
}

// SetupModel walks through one preset selection per role and collects the
// chosen agent configurations.
type SetupModel struct {
	list     list.Model
	step     int
	choices  map[workflow.AgentRole]config.Preset
	done     bool
	canceled bool
	width    int
	height   int
}

// NewSetupModel creates the setup wizard positioned at the first role.
func NewSetupModel() *SetupModel {
	m := &SetupModel{
		choices: map[workflow.AgentRole]config.Preset{},
	}

	delegate := list.NewDefaultDelegate()
	delegate.SetHeight(2)
	delegate.SetSpacing(0)
	m.list = list.New(nil, delegate, 0, 0)
	m.list.SetShowStatusBar(false)
	m.list.SetFilteringEnabled(false)
	m.loadStep()
	return m
}

// loadStep points the list at the presets for the current role.
func (m *SetupModel) loadStep() {
	role := setupSteps[m.step]
	presets := config.PresetsFor(role)
	items := make([]list.Item, len(presets))
	for i, p := range presets {
		items[i] = presetItem{preset: p}
	}
	m.list.Title = fmt.Sprintf("Select the %s agent", role)
	m.list.SetItems(items)
	m.list.ResetSelected()
}

// Result returns the chosen preset per role. ok is false until the wizard
// completes, and stays false when the user cancels.
func (m *SetupModel) Result() (map[workflow.AgentRole]config.Preset, bool) {
	if !m.done || m.canceled {
		return nil, false
	}
	return m.choices, true
}

func (m *SetupModel) Init() tea.Cmd {
	return nil
}

func (m *SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.canceled = true
			return m, tea.Quit

		case "enter":
			item, ok := m.list.SelectedItem().(presetItem)
			if !ok {
				return m, nil
			}
			m.choose(item.preset)
			if m.done {
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// choose records the preset for the current role and advances. GLM-backed
// presets capture the endpoint variables from the current environment so
// the stored config works outside this shell.
func (m *SetupModel) choose(preset config.Preset) {
	if preset.Agent.Name == "glm" {
		preset.Agent.Env = config.DetectGLMEnv()
	}
	m.choices[setupSteps[m.step]] = preset

	m.step++
	if m.step >= len(setupSteps) {
		m.done = true
		return
	}
	m.loadStep()
}

func (m *SetupModel) View() string {
	if m.done || m.canceled {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.WizardTitle.Render("Triad Setup"))
	b.WriteString("\n")
	b.WriteString(m.renderProgress())
	b.WriteString("\n\n")
	b.WriteString(m.list.View())
	b.WriteString("\n")
	b.WriteString(styles.HelpBar.Render(
		styles.HelpKey.Render("enter") + " select  " +
			styles.HelpKey.Render("esc") + " cancel"))
	return b.String()
}

func (m *SetupModel) renderProgress() string {
	parts := make([]string, 0, len(setupSteps))
	for i, role := range setupSteps {
		switch {
		case i < m.step:
			parts = append(parts, styles.WizardStepDone.Render(
				fmt.Sprintf("✓ %s: %s", role, m.choices[role].Label)))
		case i == m.step:
			parts = append(parts, styles.Primary.Render(fmt.Sprintf("▸ %s", role)))
		default:
			parts = append(parts, styles.WizardStepPending.Render(string(role)))
		}
	}
	return strings.Join(parts, "   ")
}
