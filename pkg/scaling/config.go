package scaling

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config holds the scaling tunables. It is built once at startup and never
// mutated afterwards; pass it by value.
type Config struct {
	MinReplicas int32
	MaxReplicas int32

	// MessagesPerPod is the backlog one replica is expected to absorb.
	MessagesPerPod int64

	// MessageThreshold only triggers a warning log, it does not alter decisions.
	MessageThreshold int64

	// MinTTL is the cool-down that must pass since the last below-floor scale
	// before the pool may drop below MinReplicas again.
	MinTTL time.Duration

	ScaleInterval time.Duration
}

// DefaultConfig returns the defaults used when no environment overrides are set.
func DefaultConfig() Config {
	return Config{
		MinReplicas:      1,
		MaxReplicas:      10,
		MessagesPerPod:   10,
		MessageThreshold: 1000,
		MinTTL:           300 * time.Second,
		ScaleInterval:    60 * time.Second,
	}
}

// NewConfig validates cfg and returns it, so callers cannot hold an unchecked Config.
func NewConfig(cfg Config) (Config, error) {
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every violated invariant at once.
func (c Config) Validate() error {
	var errs error
	if c.MessagesPerPod <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("messagesPerPod must be > 0, got %d", c.MessagesPerPod))
	}
	if c.MinReplicas < 0 {
		errs = multierr.Append(errs, fmt.Errorf("minReplicas must be >= 0, got %d", c.MinReplicas))
	}
	if c.MaxReplicas < 0 {
		errs = multierr.Append(errs, fmt.Errorf("maxReplicas must be >= 0, got %d", c.MaxReplicas))
	}
	if c.MinReplicas > c.MaxReplicas {
		errs = multierr.Append(errs, fmt.Errorf("minReplicas (%d) must be <= maxReplicas (%d)", c.MinReplicas, c.MaxReplicas))
	}
	if c.MessageThreshold < 0 {
		errs = multierr.Append(errs, fmt.Errorf("messageThreshold must be >= 0, got %d", c.MessageThreshold))
	}
	if c.MinTTL < 0 {
		errs = multierr.Append(errs, fmt.Errorf("minTTL must be >= 0, got %s", c.MinTTL))
	}
	if c.ScaleInterval <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("scaleInterval must be > 0, got %s", c.ScaleInterval))
	}
	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, errs)
	}
	return nil
}
