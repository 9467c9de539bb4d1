package config

import (
	"strings"
	"testing"
)

func lookupFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func validEnv() map[string]string {
	return map[string]string{
		"ADJUTANT_TELEGRAM_BOT_TOKEN": "123:abc",
		"ADJUTANT_TELEGRAM_USER_ID":   "42",
		"ADJUTANT_GROQ_API_KEY":       "gsk-test",
	}
}

// TestDefaults verifies all default values survive loading with only the
// required keys set.
func TestDefaults(t *testing.T) {
	cfg, err := loadWith(lookupFrom(validEnv()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Server.MCPPort != 4001 {
		t.Errorf("Server.MCPPort = %d, want 4001", cfg.Server.MCPPort)
	}
	if cfg.LLM.GroqBaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("LLM.GroqBaseURL = %q", cfg.LLM.GroqBaseURL)
	}
	if cfg.LLM.PrimaryModel != "moonshotai/kimi-k2-instruct-0905" {
		t.Errorf("LLM.PrimaryModel = %q", cfg.LLM.PrimaryModel)
	}
	if cfg.Storage.Timezone != "Asia/Jerusalem" {
		t.Errorf("Storage.Timezone = %q", cfg.Storage.Timezone)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

// TestEnvOverride verifies that environment variables override defaults.
func TestEnvOverride(t *testing.T) {
	env := validEnv()
	env["ADJUTANT_SERVER_PORT"] = "9000"
	env["ADJUTANT_PRIMARY_MODEL"] = "llama-3.1-8b-instant"
	env["ADJUTANT_TIMEZONE"] = "UTC"

	cfg, err := loadWith(lookupFrom(env))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.LLM.PrimaryModel != "llama-3.1-8b-instant" {
		t.Errorf("LLM.PrimaryModel = %q", cfg.LLM.PrimaryModel)
	}
	if cfg.Storage.Timezone != "UTC" {
		t.Errorf("Storage.Timezone = %q, want UTC", cfg.Storage.Timezone)
	}
}

// TestUnparsableIntFallsBack verifies a malformed integer env var keeps the default.
func TestUnparsableIntFallsBack(t *testing.T) {
	env := validEnv()
	env["ADJUTANT_SERVER_PORT"] = "not-a-port"

	cfg, err := loadWith(lookupFrom(env))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want default 4000", cfg.Server.Port)
	}
}

func TestMissingRequiredField(t *testing.T) {
	cases := []struct {
		name string
		drop string
		want string
	}{
		{"bot token", "ADJUTANT_TELEGRAM_BOT_TOKEN", "bot token"},
		{"user id", "ADJUTANT_TELEGRAM_USER_ID", "user ID"},
		{"groq key", "ADJUTANT_GROQ_API_KEY", "Groq API key"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := validEnv()
			delete(env, tc.drop)
			_, err := loadWith(lookupFrom(env))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), "missing required config") {
				t.Errorf("error = %q, want it to mention missing required config", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %q, want it to mention %q", err, tc.want)
			}
		})
	}
}
