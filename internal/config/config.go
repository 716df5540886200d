package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/triad/internal/workflow"
)

// Config represents the complete Triad configuration
type Config struct {
	Agents  AgentsConfig  `mapstructure:"agents" yaml:"agents"`
	Git     GitConfig     `mapstructure:"git" yaml:"git"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Paths   PathsConfig   `mapstructure:"paths" yaml:"paths"`
}

// AgentsConfig assigns an external CLI agent to each pipeline role
type AgentsConfig struct {
	Architect   AgentConfig `mapstructure:"architect" yaml:"architect"`
	Implementer AgentConfig `mapstructure:"implementer" yaml:"implementer"`
	Auditor     AgentConfig `mapstructure:"auditor" yaml:"auditor"`
}

// AgentConfig describes how to invoke one external agent CLI
type AgentConfig struct {
	// Name is the short agent id: "claude", "glm", or "gemini".
	// Preset display labels ("Claude (Opus 4.6)", ...) live in presets.go.
	Name string `mapstructure:"name" yaml:"name"`
	// Command is the executable to run. Must be on PATH or absolute.
	Command string `mapstructure:"command" yaml:"command"`
	// DefaultArgs are passed before the prompt on every invocation
	// (e.g. ["-p"] for non-interactive print mode).
	DefaultArgs []string `mapstructure:"default_args" yaml:"default_args"`
	// Env contains environment overrides applied on top of the parent
	// environment, e.g. ANTHROPIC_BASE_URL for a GLM-backed claude CLI.
	Env map[string]string `mapstructure:"env" yaml:"env,omitempty"`
}

// GitConfig controls what happens after an approved review
type GitConfig struct {
	// AutoCommit stages and commits the working tree on approval (default: true)
	AutoCommit bool `mapstructure:"auto_commit" yaml:"auto_commit"`
	// AutoPush pushes after a successful auto-commit (default: true)
	AutoPush bool `mapstructure:"auto_push" yaml:"auto_push"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// PathsConfig controls where Triad stores data
type PathsConfig struct {
	// ContextFile is the location of the shared context document.
	// Relative paths are resolved against the working directory.
	ContextFile string `mapstructure:"context_file" yaml:"context_file"`

	// StateDir holds run artifacts (plan.md, implementation.txt,
	// review.txt) and the debug log. Defaults to ".triad".
	// Supports ~ for home directory expansion.
	StateDir string `mapstructure:"state_dir" yaml:"state_dir"`

	// HooksDir is an optional directory of *.sh hook scripts installed
	// into .claude/hooks before implementation. Empty disables hook
	// installation.
	HooksDir string `mapstructure:"hooks_dir" yaml:"hooks_dir"`
}

// ForRole returns the agent configuration for a pipeline role.
func (a *AgentsConfig) ForRole(role workflow.AgentRole) (AgentConfig, bool) {
	switch role {
	case workflow.RoleArchitect:
		return a.Architect, true
	case workflow.RoleImplementer:
		return a.Implementer, true
	case workflow.RoleAuditor:
		return a.Auditor, true
	}
	return AgentConfig{}, false
}

// ResolveContextFile returns the context document path resolved against
// baseDir. An empty value falls back to the default location.
func (p *PathsConfig) ResolveContextFile(baseDir string) string {
	path := p.ContextFile
	if path == "" {
		path = "docs/CONTEXT.json"
	}
	return resolvePath(path, baseDir)
}

// ResolveStateDir returns the state directory resolved against baseDir.
func (p *PathsConfig) ResolveStateDir(baseDir string) string {
	path := p.StateDir
	if path == "" {
		path = ".triad"
	}
	return resolvePath(path, baseDir)
}

// ResolveHooksDir returns the hooks directory resolved against baseDir,
// or "" when hook installation is disabled.
func (p *PathsConfig) ResolveHooksDir(baseDir string) string {
	if p.HooksDir == "" {
		return ""
	}
	return resolvePath(p.HooksDir, baseDir)
}

// resolvePath expands a leading ~ and resolves relative paths against
// baseDir.
func resolvePath(path, baseDir string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Agents: AgentsConfig{
			Architect:   DefaultPresetFor(workflow.RoleArchitect).Agent,
			Implementer: DefaultPresetFor(workflow.RoleImplementer).Agent,
			Auditor:     DefaultPresetFor(workflow.RoleAuditor).Agent,
		},
		Git: GitConfig{
			AutoCommit: true,
			AutoPush:   true,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Paths: PathsConfig{
			ContextFile: "docs/CONTEXT.json",
			StateDir:    ".triad",
			HooksDir:    "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Agent defaults
	viper.SetDefault("agents.architect.name", defaults.Agents.Architect.Name)
	viper.SetDefault("agents.architect.command", defaults.Agents.Architect.Command)
	viper.SetDefault("agents.architect.default_args", defaults.Agents.Architect.DefaultArgs)
	viper.SetDefault("agents.architect.env", defaults.Agents.Architect.Env)
	viper.SetDefault("agents.implementer.name", defaults.Agents.Implementer.Name)
	viper.SetDefault("agents.implementer.command", defaults.Agents.Implementer.Command)
	viper.SetDefault("agents.implementer.default_args", defaults.Agents.Implementer.DefaultArgs)
	viper.SetDefault("agents.implementer.env", defaults.Agents.Implementer.Env)
	viper.SetDefault("agents.auditor.name", defaults.Agents.Auditor.Name)
	viper.SetDefault("agents.auditor.command", defaults.Agents.Auditor.Command)
	viper.SetDefault("agents.auditor.default_args", defaults.Agents.Auditor.DefaultArgs)
	viper.SetDefault("agents.auditor.env", defaults.Agents.Auditor.Env)

	// Git defaults
	viper.SetDefault("git.auto_commit", defaults.Git.AutoCommit)
	viper.SetDefault("git.auto_push", defaults.Git.AutoPush)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Paths defaults
	viper.SetDefault("paths.context_file", defaults.Paths.ContextFile)
	viper.SetDefault("paths.state_dir", defaults.Paths.StateDir)
	viper.SetDefault("paths.hooks_dir", defaults.Paths.HooksDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "triad")
	}
	// Fall back to ~/.config/triad
	home, err := os.UserHomeDir()
	if err != nil {
		return ".triad"
	}
	return filepath.Join(home, ".config", "triad")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
