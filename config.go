package followgraph

import (
	"context"
	"errors"
	"log/slog"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMaxDepth expands followers of followers of the root's followers.
	DefaultMaxDepth = 2

	// DefaultPacingDelay is the wait after every profile lookup and between siblings.
	DefaultPacingDelay = 1 * time.Second

	// DefaultRateLimitCooldown is the wait after an expansion hit a rate limit.
	DefaultRateLimitCooldown = 5 * time.Second
)

// Configuration errors returned by Config.Validate.
var (
	ErrInvalidPacingDelay  = errors.New("invalid pacing delay: must be positive")
	ErrInvalidCooldown     = errors.New("invalid rate limit cooldown: must be positive")
	ErrInvalidRetryAttempt = errors.New("invalid retry attempts: must be at least 1")
)

// SleepFunc waits for d or until ctx is done, returning ctx.Err() in the latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy bounds how often a transient follower-fetch failure is retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first. 1 disables retries.
	MaxAttempts int

	// Backoff computes the wait before attempt n (n >= 1).
	Backoff stealth.BackoffConfig
}

// Config holds traversal settings. Build it with DefaultConfig and override fields.
type Config struct {
	// MaxDepth is the deepest level whose nodes are profiled; nodes at MaxDepth are not
	// expanded. Engine.Run uses it; Traverse takes its own.
	MaxDepth int

	// PacingDelay is waited after each profile resolution and between sibling expansions.
	PacingDelay time.Duration

	// RateLimitCooldown is waited when an expansion fails with a rate limit.
	RateLimitCooldown time.Duration

	// Retry applies to transient follower-fetch failures only.
	Retry RetryPolicy

	// Sleep implements pacing and cooldown waits. Default: timer honoring ctx.
	Sleep SleepFunc

	// Logger receives traversal logs. Default: slog.Default().
	Logger *slog.Logger

	// EventHook is called synchronously for every traversal event.
	EventHook EventHook

	// Tracer wraps traversal steps in spans. Default: global otel tracer.
	Tracer trace.Tracer
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		MaxDepth:          DefaultMaxDepth,
		PacingDelay:       DefaultPacingDelay,
		RateLimitCooldown: DefaultRateLimitCooldown,
		Retry: RetryPolicy{
			MaxAttempts: 1,
			Backoff: stealth.BackoffConfig{
				InitialWait: 2 * time.Second,
				MaxWait:     30 * time.Second,
				Multiplier:  2.0,
				JitterPct:   0.3,
			},
		},
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.PacingDelay <= 0 {
		return ErrInvalidPacingDelay
	}
	if c.RateLimitCooldown <= 0 {
		return ErrInvalidCooldown
	}
	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidRetryAttempt
	}
	return nil
}

// defaults fills in hooks left nil.
func (c *Config) defaults() {
	if c.Sleep == nil {
		c.Sleep = sleepContext
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Retry.MaxAttempts < 1 {
		c.Retry.MaxAttempts = 1
	}
	if c.Tracer == nil {
		c.Tracer = defaultTracer()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
