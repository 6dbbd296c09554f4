package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
lm:
  api_key: test-key
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LM.Provider != "gemini" {
		t.Errorf("provider default: got %q", cfg.LM.Provider)
	}
	if cfg.Agent.MaxToolIterations != 5 {
		t.Errorf("max_tool_iterations default: got %d", cfg.Agent.MaxToolIterations)
	}
	if cfg.Agent.TurnTimeout != 180*time.Second {
		t.Errorf("turn_timeout default: got %v", cfg.Agent.TurnTimeout)
	}
	if cfg.Agent.HistoryLimit != 12 {
		t.Errorf("history_limit default: got %d", cfg.Agent.HistoryLimit)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("AETHERIA_TEST_KEY", "from-env")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
lm:
  api_key: ${AETHERIA_TEST_KEY}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LM.APIKey != "from-env" {
		t.Errorf("api_key: got %q", cfg.LM.APIKey)
	}
}

func TestLoadResolvesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
lm:
  api_key: base-key
  model_fast: gemini-2.0-flash-lite
`)
	path := writeFile(t, dir, "config.yaml", `
$include: base.yaml
agent:
  max_tool_iterations: 3
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LM.APIKey != "base-key" {
		t.Errorf("included api_key: got %q", cfg.LM.APIKey)
	}
	if cfg.Agent.MaxToolIterations != 3 {
		t.Errorf("override: got %d", cfg.Agent.MaxToolIterations)
	}
}

func TestLoadRejectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "$include: b.yaml\n")
	path := writeFile(t, dir, "b.yaml", "$include: a.yaml\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected cycle error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.LM.APIKey = "" }},
		{"bad provider", func(c *Config) { c.LM.Provider = "llama" }},
		{"bad driver", func(c *Config) { c.Storage.Driver = "redis" }},
		{"window keep above threshold", func(c *Config) { c.Agent.WindowKeep = 40 }},
		{"unsupported language", func(c *Config) { c.Agent.TargetLanguage = "en" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.LM.APIKey = "key"
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
lm:
  api_key: key
  temperature_schedule: nope
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected unknown field error")
	}
}
