package session

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains the session settings consumed by the core. Presentation
// options belong to the CLI layer.
type Config struct {
	// DurationSeconds bounds the session clock.
	DurationSeconds int `env:"STILLNESS_DURATION" envDefault:"600"`

	// Voice is the synthesis voice identifier, passed through to the
	// gateway opaquely.
	Voice string `env:"STILLNESS_VOICE" envDefault:"aria"`

	// PreloadEnabled fetches all cue audio in one batch call up front.
	PreloadEnabled bool `env:"STILLNESS_PRELOAD" envDefault:"true"`

	// RetryOnFailure re-resolves a failed cue once after RetryDelay
	// before marking it failed. Off by default: a failed cue is logged
	// and the queue moves on.
	RetryOnFailure bool          `env:"STILLNESS_RETRY" envDefault:"false"`
	RetryDelay     time.Duration `env:"STILLNESS_RETRY_DELAY" envDefault:"1s"`

	// TickInterval is the real-time length of one clock second. Tests
	// shrink it; sessions leave it at one second.
	TickInterval time.Duration `env:"STILLNESS_TICK_INTERVAL" envDefault:"1s"`

	// EventLogSize caps the rolling diagnostic log.
	EventLogSize int `env:"STILLNESS_EVENT_LOG_SIZE" envDefault:"64"`
}

// DefaultConfig returns the session defaults.
func DefaultConfig() Config {
	return Config{
		DurationSeconds: 600,
		Voice:           "aria",
		PreloadEnabled:  true,
		RetryOnFailure:  false,
		RetryDelay:      time.Second,
		TickInterval:    time.Second,
		EventLogSize:    DefaultEventLogSize,
	}
}

// ConfigFromEnv builds a config from defaults overridden by STILLNESS_*
// environment variables.
func ConfigFromEnv() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("session: parsing environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the config for values the core cannot run with.
func (c Config) Validate() error {
	if c.DurationSeconds <= 0 {
		return ErrInvalidDuration
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("session: tick interval must be positive, got %v", c.TickInterval)
	}
	if c.RetryOnFailure && c.RetryDelay < 0 {
		return fmt.Errorf("session: retry delay must not be negative, got %v", c.RetryDelay)
	}
	return nil
}
