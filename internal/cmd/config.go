package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/triad/internal/config"
	"github.com/Iron-Ham/triad/internal/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify triad configuration",
	Long: `View or modify triad configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  triad config set agents.implementer.command claude
  triad config set git.auto_push false
  triad config set logging.level debug

Valid keys:
  agents.<role>.name     - Agent id for architect/implementer/auditor
  agents.<role>.command  - Executable the role invokes
  git.auto_commit        - Commit after an approved review (true/false)
  git.auto_push          - Push after the auto-commit (true/false)
  logging.enabled        - Write a debug log under the state dir (true/false)
  logging.level          - Log level: debug, info, warn, error
  logging.max_size_mb    - Log size before rotation
  logging.max_backups    - Rotated log files to keep
  paths.context_file     - Context document location
  paths.state_dir        - Run artifact and log directory
  paths.hooks_dir        - Hook scripts directory (empty disables)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/triad/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("# Config file: (none - using defaults)\n")
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	fmt.Print(string(out))

	return nil
}

// validConfigKeys maps settable keys to their value type.
var validConfigKeys = map[string]string{
	"agents.architect.name":      "string",
	"agents.architect.command":   "string",
	"agents.implementer.name":    "string",
	"agents.implementer.command": "string",
	"agents.auditor.name":        "string",
	"agents.auditor.command":     "string",
	"git.auto_commit":            "bool",
	"git.auto_push":              "bool",
	"logging.enabled":            "bool",
	"logging.level":              "level",
	"logging.max_size_mb":        "int",
	"logging.max_backups":        "int",
	"paths.context_file":         "string",
	"paths.state_dir":            "string",
	"paths.hooks_dir":            "string",
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	keyType, ok := validConfigKeys[key]
	if !ok {
		keys := make([]string, 0, len(validConfigKeys))
		for k := range validConfigKeys {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown configuration key: %s\nValid keys:\n  %s", key, strings.Join(keys, "\n  "))
	}

	// Validate the value based on type
	var typedValue interface{}
	switch keyType {
	case "string":
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	case "level":
		valid := false
		for _, level := range logging.ValidLevels() {
			if strings.EqualFold(value, level) {
				valid = true
			}
		}
		if !valid {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.ToLower(strings.Join(logging.ValidLevels(), ", ")))
		}
		typedValue = strings.ToLower(value)
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set(key, typedValue)

	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Set %s = %v\n", key, typedValue)
	fmt.Printf("Config saved to %s\n", configFile)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'triad config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Generate a commented config file
	configContent := `# Triad Configuration

# The CLI each pipeline role invokes. 'triad setup' edits this section
# interactively.
agents:
  architect:
    name: claude
    command: claude
    default_args: ["-p"]
  implementer:
    name: glm
    command: claude
    default_args: ["-p"]
    # env:
    #   ANTHROPIC_BASE_URL: https://...
    #   ANTHROPIC_AUTH_TOKEN: ...
  auditor:
    name: gemini
    command: gemini
    default_args: ["-p", "-y"]

# What happens after an approved review
git:
  auto_commit: true
  auto_push: true

# Debug log written under the state dir
logging:
  enabled: true
  level: info
  max_size_mb: 10
  max_backups: 3

# Where triad keeps its state, relative paths resolve against the
# working directory
paths:
  context_file: docs/CONTEXT.json
  state_dir: .triad
  # hooks_dir: hooks
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	fmt.Println("Edit this file to customize triad's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Println("\nSearch paths:")
	fmt.Printf("  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Printf("  2. $HOME/.config/triad/config.yaml\n")
	fmt.Printf("  3. ./config.yaml (current directory)\n")
	fmt.Println("\nEnvironment variables: TRIAD_* (e.g., TRIAD_GIT_AUTO_COMMIT)")

	return nil
}
