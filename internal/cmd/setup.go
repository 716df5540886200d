package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/triad/internal/config"
	"github.com/Iron-Ham/triad/internal/tui"
	"github.com/Iron-Ham/triad/internal/workflow"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively choose the agent behind each role",
	Long: `Interactively choose the agent behind each role.

Walks through architect, implementer, and auditor, offering the
built-in presets for each, and saves the result to the user config
file. Selecting GLM captures the ANTHROPIC_* variables from the
current environment as agent env overrides.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	final, err := tea.NewProgram(tui.NewSetupModel(), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("setup UI error: %w", err)
	}

	model, ok := final.(*tui.SetupModel)
	if !ok {
		return fmt.Errorf("unexpected setup model type %T", final)
	}
	choices, ok := model.Result()
	if !ok {
		fmt.Println("Setup canceled.")
		return nil
	}

	for _, role := range workflow.Roles() {
		preset, ok := choices[role]
		if !ok {
			continue
		}
		key := "agents." + string(role)
		viper.Set(key+".name", preset.Agent.Name)
		viper.Set(key+".command", preset.Agent.Command)
		viper.Set(key+".default_args", preset.Agent.DefaultArgs)
		if len(preset.Agent.Env) > 0 {
			viper.Set(key+".env", preset.Agent.Env)
		}
		fmt.Printf("%s: %s\n", role, preset.Label)
	}

	if err := os.MkdirAll(config.ConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Config saved to %s\n", configFile)
	return nil
}
