package config

import (
	"os"

	"github.com/Iron-Ham/triad/internal/workflow"
)

// Preset is a selectable agent configuration shown in the setup wizard.
type Preset struct {
	// Label is the display name, e.g. "Claude (Opus 4.6)".
	Label string
	// Agent is the invocation config the preset resolves to.
	Agent AgentConfig
}

// basePresets returns the built-in agent candidates. Each call returns
// fresh values so callers can mutate their copy.
func basePresets() []Preset {
	return []Preset{
		{
			Label: "Claude (Opus 4.6)",
			Agent: AgentConfig{
				Name:        "claude",
				Command:     "claude",
				DefaultArgs: []string{"-p"},
				Env:         map[string]string{},
			},
		},
		{
			Label: "GLM-4.7",
			Agent: AgentConfig{
				Name:        "glm",
				Command:     "claude",
				DefaultArgs: []string{"-p"},
				Env:         map[string]string{},
			},
		},
		{
			Label: "Gemini",
			Agent: AgentConfig{
				Name:        "gemini",
				Command:     "gemini",
				DefaultArgs: []string{"-p"},
				Env:         map[string]string{},
			},
		},
	}
}

// PresetsFor returns the selectable presets for a role. The auditor's
// Gemini preset adds -y (auto-approve) so unattended reviews do not stall
// on permission prompts.
func PresetsFor(role workflow.AgentRole) []Preset {
	presets := basePresets()
	if role == workflow.RoleAuditor {
		for i := range presets {
			if presets[i].Agent.Name == "gemini" {
				presets[i].Agent.DefaultArgs = []string{"-p", "-y"}
			}
		}
	}
	return presets
}

// defaultLabels is the out-of-the-box assignment: Claude plans, GLM
// implements, Gemini reviews.
var defaultLabels = map[workflow.AgentRole]string{
	workflow.RoleArchitect:   "Claude (Opus 4.6)",
	workflow.RoleImplementer: "GLM-4.7",
	workflow.RoleAuditor:     "Gemini",
}

// DefaultPresetFor returns the preset a role gets when the user never ran
// setup.
func DefaultPresetFor(role workflow.AgentRole) Preset {
	label := defaultLabels[role]
	for _, p := range PresetsFor(role) {
		if p.Label == label {
			return p
		}
	}
	return PresetsFor(role)[0]
}

// glmEnvKeys are the variables a GLM-backed claude CLI needs to reach the
// alternate endpoint.
var glmEnvKeys = []string{
	"ANTHROPIC_BASE_URL",
	"ANTHROPIC_AUTH_TOKEN",
	"ANTHROPIC_API_KEY",
}

// DetectGLMEnv captures GLM-related variables present in the current
// environment, for storing as agent env overrides. Variables that are
// unset or empty are omitted.
func DetectGLMEnv() map[string]string {
	env := map[string]string{}
	for _, key := range glmEnvKeys {
		if val := os.Getenv(key); val != "" {
			env[key] = val
		}
	}
	return env
}
