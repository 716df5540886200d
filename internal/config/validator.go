package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "agents.architect.command")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// agentNameRegex validates agent identifier characters
// Names should start with a letter and can contain alphanumeric, hyphen, underscore
var agentNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Agents config
	errors = append(errors, c.validateAgents()...)

	// Validate Git config
	errors = append(errors, c.validateGit()...)

	// Validate Logging config
	errors = append(errors, c.validateLogging()...)

	// Validate Paths config
	errors = append(errors, c.validatePaths()...)

	return errors
}

// validateAgents validates the AgentsConfig
func (c *Config) validateAgents() []ValidationError {
	var errors []ValidationError

	roles := []struct {
		field string
		agent AgentConfig
	}{
		{"agents.architect", c.Agents.Architect},
		{"agents.implementer", c.Agents.Implementer},
		{"agents.auditor", c.Agents.Auditor},
	}

	for _, r := range roles {
		errors = append(errors, validateAgent(r.field, r.agent)...)
	}

	return errors
}

// validateAgent validates a single AgentConfig
func validateAgent(fieldPrefix string, agent AgentConfig) []ValidationError {
	var errors []ValidationError

	if agent.Name == "" {
		errors = append(errors, ValidationError{
			Field:   fieldPrefix + ".name",
			Value:   agent.Name,
			Message: "cannot be empty",
		})
	} else if !agentNameRegex.MatchString(agent.Name) {
		errors = append(errors, ValidationError{
			Field:   fieldPrefix + ".name",
			Value:   agent.Name,
			Message: "must start with a letter and contain only alphanumeric characters, hyphens, or underscores",
		})
	}

	const maxAgentNameLength = 50
	if len(agent.Name) > maxAgentNameLength {
		errors = append(errors, ValidationError{
			Field:   fieldPrefix + ".name",
			Value:   agent.Name,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", maxAgentNameLength),
		})
	}

	if agent.Command == "" {
		errors = append(errors, ValidationError{
			Field:   fieldPrefix + ".command",
			Value:   agent.Command,
			Message: "cannot be empty",
		})
	} else if strings.ContainsRune(agent.Command, '\x00') {
		errors = append(errors, ValidationError{
			Field:   fieldPrefix + ".command",
			Value:   agent.Command,
			Message: "contains invalid null character",
		})
	}

	return errors
}

// validateGit validates the GitConfig
func (c *Config) validateGit() []ValidationError {
	var errors []ValidationError

	// Pushing requires a commit to push
	if c.Git.AutoPush && !c.Git.AutoCommit {
		errors = append(errors, ValidationError{
			Field:   "git.auto_push",
			Value:   c.Git.AutoPush,
			Message: "requires git.auto_commit to be enabled",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validatePaths validates the PathsConfig
func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	errors = append(errors, validatePathField("paths.context_file", c.Paths.ContextFile, true)...)
	errors = append(errors, validatePathField("paths.state_dir", c.Paths.StateDir, true)...)
	errors = append(errors, validatePathField("paths.hooks_dir", c.Paths.HooksDir, false)...)

	return errors
}

// validatePathField validates a single path value. Required fields cannot
// be empty; optional fields treat "" as disabled.
func validatePathField(field, path string, required bool) []ValidationError {
	var errors []ValidationError

	if path == "" {
		if required {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   path,
				Message: "cannot be empty",
			})
		}
		return errors
	}

	// Check for null bytes which are invalid in paths
	if strings.ContainsRune(path, '\x00') {
		errors = append(errors, ValidationError{
			Field:   field,
			Value:   path,
			Message: "path contains invalid null character",
		})
	}

	// Reasonable path length limit (most filesystems have limits around 4096)
	const maxPathLength = 4096
	if len(path) > maxPathLength {
		errors = append(errors, ValidationError{
			Field:   field,
			Value:   path,
			Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
		})
	}

	return errors
}
