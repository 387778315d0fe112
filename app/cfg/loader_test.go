package cfg

import (
	"strings"
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	original := Version
	defer func() { Version = original }()

	Version = ""
	if GetVersion() != "unknown" {
		t.Errorf("Expected 'unknown' for empty version, got '%s'", GetVersion())
	}
}

func TestLoadArgsDefaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := LoadArgs(nil)
	if err != nil {
		t.Fatalf("LoadArgs returned error: %v", err)
	}

	if cfg.DBDriver != "postgres" {
		t.Errorf("Expected driver 'postgres', got '%s'", cfg.DBDriver)
	}
	if cfg.DBPassword != "secret" {
		t.Errorf("Expected DB password from env, got '%s'", cfg.DBPassword)
	}
	if cfg.UserAgent != "SocialMediaAnalytics/1.0" {
		t.Errorf("Expected default user agent, got '%s'", cfg.UserAgent)
	}
	if cfg.RequestTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected 30s request timeout, got %s", cfg.RequestTimeoutDuration())
	}
	if cfg.RunIntervalDuration() != 15*time.Minute {
		t.Errorf("Expected 15m run interval, got %s", cfg.RunIntervalDuration())
	}
	if cfg.RunRetries != 2 {
		t.Errorf("Expected 2 run retries, got %d", cfg.RunRetries)
	}
	if cfg.RetryDelayDuration() != 5*time.Minute {
		t.Errorf("Expected 5m retry delay, got %s", cfg.RetryDelayDuration())
	}
	if cfg.RunTimeoutDuration() != 10*time.Minute {
		t.Errorf("Expected 10m run timeout, got %s", cfg.RunTimeoutDuration())
	}
	if cfg.NatsSubject != "social.posts.stored" {
		t.Errorf("Expected default NATS subject, got '%s'", cfg.NatsSubject)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.RunOnce || cfg.Debug {
		t.Error("Expected run-once and debug to be off by default")
	}
	if cfg.Version == "" {
		t.Error("Expected version to be set")
	}
}

func TestLoadArgsEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/posts.db")
	t.Setenv("X_BEARER_TOKEN", "x-token")
	t.Setenv("YOUTUBE_API_KEY", "yt-key")
	t.Setenv("RUN_INTERVAL", "60")
	t.Setenv("RUN_ONCE", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := LoadArgs(nil)
	if err != nil {
		t.Fatalf("LoadArgs returned error: %v", err)
	}

	if cfg.DBDriver != "sqlite" || cfg.DBPath != "/tmp/posts.db" {
		t.Errorf("Expected sqlite at /tmp/posts.db, got %s at %s", cfg.DBDriver, cfg.DBPath)
	}
	if cfg.XBearerToken != "x-token" || cfg.YouTubeAPIKey != "yt-key" {
		t.Error("Expected credentials from environment")
	}
	if cfg.RunInterval != 60 {
		t.Errorf("Expected run interval 60, got %d", cfg.RunInterval)
	}
	if !cfg.RunOnce {
		t.Error("Expected run-once from environment")
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("Expected Redis address, got '%s'", cfg.RedisAddr)
	}
}

func TestLoadArgsFlagsOverride(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("PORT", "9000")

	cfg, err := LoadArgs([]string{"--port", "9100", "--run-retries", "0", "--debug"})
	if err != nil {
		t.Fatalf("LoadArgs returned error: %v", err)
	}

	if cfg.Port != "9100" {
		t.Errorf("Expected flag to override env port, got '%s'", cfg.Port)
	}
	if cfg.RunRetries != 0 {
		t.Errorf("Expected 0 retries, got %d", cfg.RunRetries)
	}
	if !cfg.Debug {
		t.Error("Expected debug flag")
	}
}

func TestLoadArgsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		args    []string
		wantErr string
	}{
		{
			name:    "postgres without password",
			env:     map[string]string{"DB_PASSWORD": ""},
			wantErr: "DB_PASSWORD is required",
		},
		{
			name:    "unknown driver",
			env:     map[string]string{"DB_DRIVER": "mysql"},
			wantErr: "mysql",
		},
		{
			name:    "zero interval",
			env:     map[string]string{"DB_PASSWORD": "secret"},
			args:    []string{"--run-interval", "0"},
			wantErr: "RUN_INTERVAL must be positive",
		},
		{
			name:    "negative retries",
			env:     map[string]string{"DB_PASSWORD": "secret", "RUN_RETRIES": "-1"},
			wantErr: "RUN_RETRIES must not be negative",
		},
		{
			name:    "zero request timeout",
			env:     map[string]string{"DB_PASSWORD": "secret", "REQUEST_TIMEOUT": "0"},
			wantErr: "REQUEST_TIMEOUT must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadArgs(tt.args)
			if err == nil {
				t.Fatalf("Expected error, got config %+v", cfg)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadArgsHelp(t *testing.T) {
	cfg, err := LoadArgs([]string{"--help"})
	if err != nil || cfg != nil {
		t.Errorf("Expected nil config and nil error for help, got %v, %v", cfg, err)
	}
}

func TestGetPanicsWhenUnloaded(t *testing.T) {
	original := globalCfg
	globalCfg = nil
	defer func() { globalCfg = original }()

	defer func() {
		if recover() == nil {
			t.Error("Expected Get to panic before Load")
		}
	}()
	Get()
}
