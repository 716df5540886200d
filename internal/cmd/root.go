// Package cmd wires the triad CLI. Each command file owns one verb; shared
// plumbing for config, context store, and orchestrator construction lives
// here.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/triad/internal/config"
	"github.com/Iron-Ham/triad/internal/errors"
	"github.com/Iron-Ham/triad/internal/logging"
	"github.com/Iron-Ham/triad/internal/orchestrator"
	"github.com/Iron-Ham/triad/internal/project"
	"github.com/Iron-Ham/triad/internal/workflow"
)

// Version is stamped at build time via -ldflags.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "triad",
	Short: "Three-agent plan, implement, review orchestrator",
	Long: `Triad coordinates three AI agents over one shared context document:
an architect that plans, an implementer that writes code, and an
auditor that reviews the diff. Project state lives in docs/CONTEXT.json
and every phase change is validated against the workflow state machine.`,
	Version: Version,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.SetVersionTemplate("triad v{{.Version}}\n")

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/triad/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/triad")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TRIAD")
	// Replace dots with underscores for nested keys in env vars
	// e.g., TRIAD_GIT_AUTO_COMMIT for git.auto_commit
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// workDir returns the directory triad operates on.
func workDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return cwd, nil
}

// openStore builds the context store for dir from the effective config.
func openStore(cfg *config.Config, dir string, logger *logging.Logger) *project.Store {
	return project.NewStore(cfg.Paths.ResolveContextFile(dir), logger)
}

// requireContext loads the context document, turning a missing file into
// the hint a fresh checkout needs.
func requireContext(store *project.Store) (*project.ProjectContext, error) {
	doc, err := store.Load()
	if errors.Is(err, errors.ErrContextNotFound) {
		return nil, fmt.Errorf("%s not found. Run 'triad init' first", store.Path())
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// buildLogger returns the debug logger for dir, or the no-op logger when
// logging is disabled or the log file cannot be opened.
func buildLogger(cfg *config.Config, dir string) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}
	logger, err := logging.NewLogger(cfg.Paths.ResolveStateDir(dir), cfg.Logging.Level)
	if err != nil {
		return logging.NopLogger()
	}
	return logger
}

// ensureAgentsConfigured rejects an agent-invoking command up front when a
// role has no CLI command to run.
func ensureAgentsConfigured(cfg *config.Config) error {
	for _, role := range workflow.Roles() {
		ac, ok := cfg.Agents.ForRole(role)
		if !ok || ac.Command == "" {
			return fmt.Errorf("no command configured for the %s agent. Run 'triad setup' to choose agent commands", role)
		}
	}
	return nil
}

// newOrchestrator assembles the pipeline driver with logging wired in.
func newOrchestrator(cfg *config.Config, store *project.Store, dir string, logger *logging.Logger, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	all := append([]orchestrator.Option{orchestrator.WithLogger(logger)}, opts...)
	return orchestrator.New(cfg, store, dir, all...)
}
