package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okdesk/deskagent/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deskagent.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, "provider:\n  api_key: test-key\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Provider.Model != "qwen-turbo" {
		t.Errorf("Model = %q", cfg.Provider.Model)
	}
	if cfg.Provider.TimeoutDuration() != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Provider.TimeoutDuration())
	}
	if cfg.Gateway.Listen != ":8000" {
		t.Errorf("Listen = %q", cfg.Gateway.Listen)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
	if err := config.Validate(cfg); err != nil {
		t.Errorf("defaulted config should validate: %v", err)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("DESKAGENT_TEST_KEY", "sk-from-env")

	path := writeConfig(t, `
provider:
  api_key: ${DESKAGENT_TEST_KEY}
  model: ${DESKAGENT_TEST_MODEL:-qwen-plus}
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q", cfg.Provider.APIKey)
	}
	if cfg.Provider.Model != "qwen-plus" {
		t.Errorf("Model = %q, want env default", cfg.Provider.Model)
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "provider:\n  api_keey: oops\n")

	if _, err := config.Load(path); err == nil {
		t.Fatal("misspelled key should fail strict decoding")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.Listen != ":8000" {
		t.Errorf("Listen = %q, want default", cfg.Gateway.Listen)
	}
}

func TestLoad_DurationStrings(t *testing.T) {
	path := writeConfig(t, `
provider:
  timeout: 45s
sessions:
  max_idle: 90m
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.TimeoutDuration() != 45*time.Second {
		t.Errorf("provider timeout = %v", cfg.Provider.TimeoutDuration())
	}
	if cfg.Sessions.MaxIdleDuration() != 90*time.Minute {
		t.Errorf("session max idle = %v", cfg.Sessions.MaxIdleDuration())
	}
}

func TestValidate_BadDuration(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Defaults()
	cfg.Gateway.ReadTimeout = "soon"

	err := config.Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "read_timeout") {
		t.Fatalf("err = %v, want read_timeout duration error", err)
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	path := writeConfig(t, "provider:\n  api_key: ${DESKAGENT_MISSING_VAR}\n")

	if _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "DESKAGENT_MISSING_VAR") {
		t.Fatalf("err = %v, want unresolved variable error", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Defaults()
	cfg.Logging.Level = "loud"
	cfg.Sessions.Max = -1
	cfg.Jobs.SessionPrune = "not a cron expr"

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"logging.level", "sessions.max", "session_prune"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestValidate_TracingEndpointRequired(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Defaults()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Endpoint = ""

	if err := config.Validate(cfg); err == nil {
		t.Fatal("enabled tracing without endpoint should fail validation")
	}
}
