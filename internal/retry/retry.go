// Package retry retries operations with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// Config defines retry behavior.
type Config struct {
	// MaxAttempts caps the number of calls (0 = until the context ends).
	MaxAttempts int
	// InitialDelay is the wait after the first failure.
	InitialDelay time.Duration
	// MaxDelay caps the wait between attempts.
	MaxDelay time.Duration
	// Multiplier grows the delay after each failure.
	Multiplier float64
	// Jitter spreads delays by up to this fraction either way (0-1).
	Jitter float64
}

// DefaultConfig retries until the context ends.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  0,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// FileWriteConfig suits output writes: a few quick attempts to ride out a
// busy or briefly unavailable destination.
func FileWriteConfig(attempts int) Config {
	if attempts <= 0 {
		attempts = 3
	}
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Run returns the wrapped error
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Manager runs functions with retry logic.
type Manager struct {
	config  Config
	onRetry func(attempt int, err error, delay time.Duration)
}

// NewManager creates a new retry manager.
func NewManager(config Config) *Manager {
	return &Manager{config: config}
}

// OnRetry registers a callback invoked before each wait.
func (m *Manager) OnRetry(fn func(attempt int, err error, delay time.Duration)) {
	m.onRetry = fn
}

// Run calls fn until it succeeds, returns a Permanent error, the attempts
// are used up or ctx ends. It returns the last error from fn, or the
// context error.
func (m *Manager) Run(ctx context.Context, fn func(context.Context) error) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		attempt++
		if m.config.MaxAttempts > 0 && attempt >= m.config.MaxAttempts {
			return err
		}

		delay := m.calculateDelay(attempt)
		if m.onRetry != nil {
			m.onRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (m *Manager) calculateDelay(attempt int) time.Duration {
	delay := float64(m.config.InitialDelay) * math.Pow(m.config.Multiplier, float64(attempt-1))
	if m.config.MaxDelay > 0 && delay > float64(m.config.MaxDelay) {
		delay = float64(m.config.MaxDelay)
	}

	if m.config.Jitter > 0 {
		spread := delay * m.config.Jitter
		delay += (rand.Float64()*2 - 1) * spread
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// NextDelay returns the wait that follows the given failed attempt.
func (m *Manager) NextDelay(attempt int) time.Duration {
	return m.calculateDelay(attempt)
}
