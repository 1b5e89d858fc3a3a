package config

import (
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.envValue)

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.envValue)

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsBoolOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		envValue   string
		defaultVal bool
		expected   bool
	}{
		{"parses false", "false", true, false},
		{"parses 1", "1", false, true},
		{"uses default for empty", "", true, true},
		{"uses default for garbage", "maybe", false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tc.envValue)

			if got := getEnvAsBoolOrDefault("TEST_BOOL", tc.defaultVal); got != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for missing required env var")
		}
	}()

	t.Setenv("NONEXISTENT_REQUIRED_VAR", "")
	mustGetEnv("NONEXISTENT_REQUIRED_VAR")
}

func TestMustGetEnv_ReturnsValue(t *testing.T) {
	t.Setenv("TEST_REQUIRED", "value123")

	result := mustGetEnv("TEST_REQUIRED")
	if result != "value123" {
		t.Errorf("Expected 'value123', got %q", result)
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/ofuq")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GEMINI_API_KEY", "key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	for _, k := range []string{"AUTH_PROVIDER", "LOCK_BACKEND", "TIMER_TICK_MS", "DAILY_GOAL_MINUTES", "QUIZ_RUN_TTL_MINUTES"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	if cfg.AuthProvider != AuthProviderJWT {
		t.Errorf("Expected jwt auth provider, got %q", cfg.AuthProvider)
	}
	if cfg.LockBackend != LockBackendPostgres {
		t.Errorf("Expected postgres lock backend, got %q", cfg.LockBackend)
	}
	if cfg.TimerTick != 500*time.Millisecond {
		t.Errorf("Expected 500ms tick, got %v", cfg.TimerTick)
	}
	if cfg.DailyGoalMinutes != 120 {
		t.Errorf("Expected 120 minute goal, got %d", cfg.DailyGoalMinutes)
	}
	if cfg.QuizRunTTL != 4*time.Hour {
		t.Errorf("Expected 4h quiz TTL, got %v", cfg.QuizRunTTL)
	}
	if cfg.NeedsFirebase() {
		t.Error("Expected defaults not to need firebase")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		AuthProvider:     AuthProviderJWT,
		LockBackend:      LockBackendPostgres,
		TimerTick:        500 * time.Millisecond,
		DailyGoalMinutes: 120,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"unknown auth provider", func(c *Config) { c.AuthProvider = "saml" }, true},
		{"firebase auth without project", func(c *Config) { c.AuthProvider = AuthProviderFirebase }, true},
		{"firestore lock with project", func(c *Config) {
			c.LockBackend = LockBackendFirestore
			c.FirebaseProject = "ofuq"
		}, false},
		{"unknown lock backend", func(c *Config) { c.LockBackend = "etcd" }, true},
		{"zero tick", func(c *Config) { c.TimerTick = 0 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mutate(&c)
			err := c.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRequire(t *testing.T) {
	t.Setenv("OFUQ_TEST_REQUIRED", "value")
	got, err := Require("OFUQ_TEST_REQUIRED")
	if err != nil || got != "value" {
		t.Errorf("Expected value, got %q (err %v)", got, err)
	}

	t.Setenv("OFUQ_TEST_REQUIRED", "")
	if _, err := Require("OFUQ_TEST_REQUIRED"); err == nil {
		t.Error("Expected error for empty variable")
	}
}
