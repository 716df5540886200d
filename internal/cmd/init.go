package cmd

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/triad/internal/config"
)

//go:embed templates/AGENTS.md templates/CLAUDE.md
var seedFS embed.FS

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a triad project in the current directory",
	Long: `Scaffold a triad project in the current directory.

This creates the shared context document, the docs/ skeleton the agents
maintain, and the AGENTS.md and CLAUDE.md protocol files the prompt
builder reads. Existing files are never overwritten.`,
	RunE: runInit,
}

var initName string

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVarP(&initName, "name", "n", "", "project name (default: directory name)")
}

// docTemplates are the living documents the architect maintains. Order is
// the order they are reported in.
var docTemplates = []struct {
	name    string
	content string
}{
	{"PRD.md", "# Product Requirements Document — %s\n\n> TODO: Define requirements.\n"},
	{"ARCHITECTURE.md", "# Architecture — %s\n\n> TODO: Define system architecture.\n"},
	{"DECISIONS.md", "# Architecture Decision Records — %s\n\n> TODO: Record decisions.\n"},
	{"CHANGELOG.md", "# Changelog — %s\n\nAll notable changes to this project.\n"},
}

// seedFiles are copied verbatim from the embedded templates when missing.
var seedFiles = []string{"AGENTS.md", "CLAUDE.md"}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := workDir()
	if err != nil {
		return err
	}

	name := initName
	if name == "" {
		name = filepath.Base(cwd)
	}

	for _, dir := range []string{"docs", filepath.Join("docs", "logs"), "src", "tests"} {
		if err := os.MkdirAll(filepath.Join(cwd, dir), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	cfg := config.Get()
	store := openStore(cfg, cwd, nil)
	created, err := store.Init(name)
	if err != nil {
		return fmt.Errorf("failed to create context document: %w", err)
	}
	if created {
		fmt.Printf("Created %s\n", relPath(cwd, store.Path()))
	} else {
		fmt.Printf("%s already exists, skipping.\n", relPath(cwd, store.Path()))
	}

	for _, tmpl := range docTemplates {
		path := filepath.Join(cwd, "docs", tmpl.name)
		rel := relPath(cwd, path)
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("%s already exists, skipping.\n", rel)
			continue
		}
		if err := os.WriteFile(path, []byte(fmt.Sprintf(tmpl.content, name)), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", rel, err)
		}
		fmt.Printf("Created %s\n", rel)
	}

	for _, seed := range seedFiles {
		dst := filepath.Join(cwd, seed)
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		data, err := seedFS.ReadFile("templates/" + seed)
		if err != nil {
			return fmt.Errorf("failed to read embedded %s: %w", seed, err)
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", seed, err)
		}
		fmt.Printf("Copied %s\n", seed)
	}

	fmt.Printf("\nProject '%s' initialized!\n", name)
	return nil
}

// relPath renders target relative to base for display, falling back to the
// absolute path when they share no prefix.
func relPath(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return rel
}
