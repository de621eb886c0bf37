package session

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.DurationSeconds != 600 {
		t.Errorf("DurationSeconds = %d, want 600", cfg.DurationSeconds)
	}
	if cfg.Voice != "aria" {
		t.Errorf("Voice = %q, want aria", cfg.Voice)
	}
	if !cfg.PreloadEnabled {
		t.Error("preload should default on")
	}
	if cfg.RetryOnFailure {
		t.Error("retry should default off")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("STILLNESS_DURATION", "1200")
	t.Setenv("STILLNESS_VOICE", "sage")
	t.Setenv("STILLNESS_PRELOAD", "false")
	t.Setenv("STILLNESS_RETRY", "true")
	t.Setenv("STILLNESS_RETRY_DELAY", "250ms")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.DurationSeconds != 1200 {
		t.Errorf("DurationSeconds = %d, want 1200", cfg.DurationSeconds)
	}
	if cfg.Voice != "sage" {
		t.Errorf("Voice = %q, want sage", cfg.Voice)
	}
	if cfg.PreloadEnabled {
		t.Error("PreloadEnabled should be false")
	}
	if !cfg.RetryOnFailure {
		t.Error("RetryOnFailure should be true")
	}
	if cfg.RetryDelay != 250*time.Millisecond {
		t.Errorf("RetryDelay = %v, want 250ms", cfg.RetryDelay)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero duration", func(c *Config) { c.DurationSeconds = 0 }, false},
		{"negative duration", func(c *Config) { c.DurationSeconds = -10 }, false},
		{"zero tick interval", func(c *Config) { c.TickInterval = 0 }, false},
		{"negative retry delay with retry on", func(c *Config) {
			c.RetryOnFailure = true
			c.RetryDelay = -time.Second
		}, false},
		{"negative retry delay with retry off", func(c *Config) {
			c.RetryDelay = -time.Second
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
