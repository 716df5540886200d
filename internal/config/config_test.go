package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Iron-Ham/triad/internal/workflow"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default agent assignment: Claude plans, GLM implements,
	// Gemini reviews
	if cfg.Agents.Architect.Name != "claude" {
		t.Errorf("Agents.Architect.Name = %q, want %q", cfg.Agents.Architect.Name, "claude")
	}
	if cfg.Agents.Architect.Command != "claude" {
		t.Errorf("Agents.Architect.Command = %q, want %q", cfg.Agents.Architect.Command, "claude")
	}
	if cfg.Agents.Implementer.Name != "glm" {
		t.Errorf("Agents.Implementer.Name = %q, want %q", cfg.Agents.Implementer.Name, "glm")
	}
	if cfg.Agents.Implementer.Command != "claude" {
		t.Errorf("Agents.Implementer.Command = %q, want %q", cfg.Agents.Implementer.Command, "claude")
	}
	if cfg.Agents.Auditor.Name != "gemini" {
		t.Errorf("Agents.Auditor.Name = %q, want %q", cfg.Agents.Auditor.Name, "gemini")
	}
	if cfg.Agents.Auditor.Command != "gemini" {
		t.Errorf("Agents.Auditor.Command = %q, want %q", cfg.Agents.Auditor.Command, "gemini")
	}

	// The auditor runs unattended, so its Gemini preset auto-approves
	wantArgs := []string{"-p", "-y"}
	if len(cfg.Agents.Auditor.DefaultArgs) != len(wantArgs) {
		t.Fatalf("Agents.Auditor.DefaultArgs = %v, want %v", cfg.Agents.Auditor.DefaultArgs, wantArgs)
	}
	for i, arg := range wantArgs {
		if cfg.Agents.Auditor.DefaultArgs[i] != arg {
			t.Errorf("Agents.Auditor.DefaultArgs[%d] = %q, want %q", i, cfg.Agents.Auditor.DefaultArgs[i], arg)
		}
	}

	// Verify default git config
	if !cfg.Git.AutoCommit {
		t.Error("Git.AutoCommit should be true by default")
	}
	if !cfg.Git.AutoPush {
		t.Error("Git.AutoPush should be true by default")
	}

	// Verify default logging config
	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.MaxSizeMB != 10 {
		t.Errorf("Logging.MaxSizeMB = %d, want 10", cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != 3 {
		t.Errorf("Logging.MaxBackups = %d, want 3", cfg.Logging.MaxBackups)
	}

	// Verify default paths config
	if cfg.Paths.ContextFile != "docs/CONTEXT.json" {
		t.Errorf("Paths.ContextFile = %q, want %q", cfg.Paths.ContextFile, "docs/CONTEXT.json")
	}
	if cfg.Paths.StateDir != ".triad" {
		t.Errorf("Paths.StateDir = %q, want %q", cfg.Paths.StateDir, ".triad")
	}
	if cfg.Paths.HooksDir != "" {
		t.Errorf("Paths.HooksDir = %q, want empty", cfg.Paths.HooksDir)
	}
}

func TestAgentsConfig_ForRole(t *testing.T) {
	cfg := Default()

	tests := []struct {
		role     workflow.AgentRole
		wantName string
		wantOK   bool
	}{
		{workflow.RoleArchitect, "claude", true},
		{workflow.RoleImplementer, "glm", true},
		{workflow.RoleAuditor, "gemini", true},
		{workflow.AgentRole("deployer"), "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			agent, ok := cfg.Agents.ForRole(tt.role)
			if ok != tt.wantOK {
				t.Fatalf("ForRole(%q) ok = %v, want %v", tt.role, ok, tt.wantOK)
			}
			if agent.Name != tt.wantName {
				t.Errorf("ForRole(%q).Name = %q, want %q", tt.role, agent.Name, tt.wantName)
			}
		})
	}
}

func TestPathsConfig_ResolveContextFile(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		baseDir  string
		expected string
	}{
		{"empty uses default", "", "/repo", "/repo/docs/CONTEXT.json"},
		{"relative resolved against base", "state/ctx.json", "/repo", "/repo/state/ctx.json"},
		{"absolute passes through", "/var/lib/triad/ctx.json", "/repo", "/var/lib/triad/ctx.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PathsConfig{ContextFile: tt.value}
			result := p.ResolveContextFile(tt.baseDir)
			if result != tt.expected {
				t.Errorf("ResolveContextFile(%q) = %q, want %q", tt.baseDir, result, tt.expected)
			}
		})
	}
}

func TestPathsConfig_ResolveStateDir(t *testing.T) {
	t.Run("empty uses default", func(t *testing.T) {
		p := PathsConfig{}
		result := p.ResolveStateDir("/repo")
		if result != "/repo/.triad" {
			t.Errorf("ResolveStateDir() = %q, want %q", result, "/repo/.triad")
		}
	})

	t.Run("tilde expands to home", func(t *testing.T) {
		p := PathsConfig{StateDir: "~/triad-state"}
		result := p.ResolveStateDir("/repo")

		home, err := os.UserHomeDir()
		if err != nil {
			t.Skipf("no home directory: %v", err)
		}
		expected := filepath.Join(home, "triad-state")
		if result != expected {
			t.Errorf("ResolveStateDir() = %q, want %q", result, expected)
		}
	})
}

func TestPathsConfig_ResolveHooksDir(t *testing.T) {
	t.Run("empty disables", func(t *testing.T) {
		p := PathsConfig{}
		if result := p.ResolveHooksDir("/repo"); result != "" {
			t.Errorf("ResolveHooksDir() = %q, want empty", result)
		}
	})

	t.Run("relative resolved against base", func(t *testing.T) {
		p := PathsConfig{HooksDir: "hooks"}
		if result := p.ResolveHooksDir("/repo"); result != "/repo/hooks" {
			t.Errorf("ResolveHooksDir() = %q, want %q", result, "/repo/hooks")
		}
	})
}

func TestPresetsFor(t *testing.T) {
	t.Run("auditor gemini auto-approves", func(t *testing.T) {
		presets := PresetsFor(workflow.RoleAuditor)

		var gemini *Preset
		for i := range presets {
			if presets[i].Agent.Name == "gemini" {
				gemini = &presets[i]
				break
			}
		}
		if gemini == nil {
			t.Fatal("auditor presets missing gemini")
		}

		wantArgs := []string{"-p", "-y"}
		if len(gemini.Agent.DefaultArgs) != len(wantArgs) {
			t.Fatalf("gemini DefaultArgs = %v, want %v", gemini.Agent.DefaultArgs, wantArgs)
		}
		for i, arg := range wantArgs {
			if gemini.Agent.DefaultArgs[i] != arg {
				t.Errorf("gemini DefaultArgs[%d] = %q, want %q", i, gemini.Agent.DefaultArgs[i], arg)
			}
		}
	})

	t.Run("other roles keep print mode only", func(t *testing.T) {
		for _, role := range []workflow.AgentRole{workflow.RoleArchitect, workflow.RoleImplementer} {
			for _, p := range PresetsFor(role) {
				if p.Agent.Name != "gemini" {
					continue
				}
				if len(p.Agent.DefaultArgs) != 1 || p.Agent.DefaultArgs[0] != "-p" {
					t.Errorf("%s gemini DefaultArgs = %v, want [-p]", role, p.Agent.DefaultArgs)
				}
			}
		}
	})

	t.Run("returns fresh copies", func(t *testing.T) {
		first := PresetsFor(workflow.RoleArchitect)
		first[0].Agent.Command = "mutated"

		second := PresetsFor(workflow.RoleArchitect)
		if second[0].Agent.Command == "mutated" {
			t.Error("PresetsFor() should return fresh values on each call")
		}
	})
}

func TestDefaultPresetFor(t *testing.T) {
	tests := []struct {
		role      workflow.AgentRole
		wantLabel string
		wantName  string
	}{
		{workflow.RoleArchitect, "Claude (Opus 4.6)", "claude"},
		{workflow.RoleImplementer, "GLM-4.7", "glm"},
		{workflow.RoleAuditor, "Gemini", "gemini"},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			preset := DefaultPresetFor(tt.role)
			if preset.Label != tt.wantLabel {
				t.Errorf("DefaultPresetFor(%q).Label = %q, want %q", tt.role, preset.Label, tt.wantLabel)
			}
			if preset.Agent.Name != tt.wantName {
				t.Errorf("DefaultPresetFor(%q).Agent.Name = %q, want %q", tt.role, preset.Agent.Name, tt.wantName)
			}
		})
	}
}

func TestDetectGLMEnv(t *testing.T) {
	t.Run("captures set variables", func(t *testing.T) {
		t.Setenv("ANTHROPIC_BASE_URL", "https://glm.example.com/api")
		t.Setenv("ANTHROPIC_AUTH_TOKEN", "token-123")
		t.Setenv("ANTHROPIC_API_KEY", "")

		env := DetectGLMEnv()
		if env["ANTHROPIC_BASE_URL"] != "https://glm.example.com/api" {
			t.Errorf("ANTHROPIC_BASE_URL = %q, want %q", env["ANTHROPIC_BASE_URL"], "https://glm.example.com/api")
		}
		if env["ANTHROPIC_AUTH_TOKEN"] != "token-123" {
			t.Errorf("ANTHROPIC_AUTH_TOKEN = %q, want %q", env["ANTHROPIC_AUTH_TOKEN"], "token-123")
		}
		if _, ok := env["ANTHROPIC_API_KEY"]; ok {
			t.Error("empty ANTHROPIC_API_KEY should not be captured")
		}
	})

	t.Run("empty environment", func(t *testing.T) {
		t.Setenv("ANTHROPIC_BASE_URL", "")
		t.Setenv("ANTHROPIC_AUTH_TOKEN", "")
		t.Setenv("ANTHROPIC_API_KEY", "")

		env := DetectGLMEnv()
		if len(env) != 0 {
			t.Errorf("DetectGLMEnv() = %v, want empty map", env)
		}
	})
}

func TestConfigDir(t *testing.T) {
	// Test with XDG_CONFIG_HOME set
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		original := os.Getenv("XDG_CONFIG_HOME")
		defer func() { _ = os.Setenv("XDG_CONFIG_HOME", original) }()

		_ = os.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := ConfigDir()
		expected := "/custom/config/triad"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	// Test without XDG_CONFIG_HOME
	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		original := os.Getenv("XDG_CONFIG_HOME")
		defer func() { _ = os.Setenv("XDG_CONFIG_HOME", original) }()

		_ = os.Setenv("XDG_CONFIG_HOME", "")
		result := ConfigDir()

		// Should be based on home directory
		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "triad")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	original := os.Getenv("XDG_CONFIG_HOME")
	defer func() { _ = os.Setenv("XDG_CONFIG_HOME", original) }()

	_ = os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	result := ConfigFile()
	expected := "/custom/config/triad/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestGet(t *testing.T) {
	// Set defaults in viper first (normally done by cmd init)
	SetDefaults()

	// Get() should return defaults when no config file exists
	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}

	// Should have default values
	if cfg.Agents.Architect.Name != "claude" {
		t.Errorf("Get().Agents.Architect.Name = %q, want %q", cfg.Agents.Architect.Name, "claude")
	}
	if cfg.Paths.ContextFile != "docs/CONTEXT.json" {
		t.Errorf("Get().Paths.ContextFile = %q, want %q", cfg.Paths.ContextFile, "docs/CONTEXT.json")
	}
}
