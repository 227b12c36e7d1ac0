package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRun(t *testing.T) {
	t.Run("first attempt succeeds", func(t *testing.T) {
		var attempts atomic.Int32
		err := NewManager(fastConfig(3)).Run(context.Background(), func(ctx context.Context) error {
			attempts.Add(1)
			return nil
		})
		if err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
		if attempts.Load() != 1 {
			t.Errorf("Expected 1 attempt, got %d", attempts.Load())
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		want := errors.New("disk busy")
		var attempts atomic.Int32

		start := time.Now()
		err := NewManager(fastConfig(3)).Run(context.Background(), func(ctx context.Context) error {
			attempts.Add(1)
			return want
		})

		if !errors.Is(err, want) {
			t.Errorf("Expected %v, got %v", want, err)
		}
		if attempts.Load() != 3 {
			t.Errorf("Expected 3 attempts, got %d", attempts.Load())
		}
		// 5ms + 10ms of backoff
		if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
			t.Errorf("Expected at least 15ms elapsed, got %v", elapsed)
		}
	})

	t.Run("succeeds after retries", func(t *testing.T) {
		var attempts atomic.Int32
		var retried []int
		m := NewManager(fastConfig(5))
		m.OnRetry(func(attempt int, err error, delay time.Duration) {
			retried = append(retried, attempt)
		})

		err := m.Run(context.Background(), func(ctx context.Context) error {
			if attempts.Add(1) < 3 {
				return errors.New("temporary")
			}
			return nil
		})

		if err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
		if attempts.Load() != 3 {
			t.Errorf("Expected 3 attempts, got %d", attempts.Load())
		}
		if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
			t.Errorf("OnRetry saw %v, want [1 2]", retried)
		}
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		want := errors.New("read-only file system")
		var attempts atomic.Int32
		err := NewManager(fastConfig(5)).Run(context.Background(), func(ctx context.Context) error {
			attempts.Add(1)
			return Permanent(want)
		})
		if err != want {
			t.Errorf("Expected unwrapped %v, got %v", want, err)
		}
		if attempts.Load() != 1 {
			t.Errorf("Expected 1 attempt, got %d", attempts.Load())
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		cfg := fastConfig(0)
		cfg.InitialDelay = 100 * time.Millisecond
		cfg.MaxDelay = time.Second

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		var attempts atomic.Int32
		err := NewManager(cfg).Run(ctx, func(ctx context.Context) error {
			attempts.Add(1)
			return errors.New("always fails")
		})

		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected deadline exceeded, got %v", err)
		}
		if attempts.Load() != 1 {
			t.Errorf("Expected 1 attempt, got %d", attempts.Load())
		}
	})

	t.Run("cancelled before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		called := false
		err := NewManager(fastConfig(3)).Run(ctx, func(ctx context.Context) error {
			called = true
			return nil
		})
		if !errors.Is(err, context.Canceled) || called {
			t.Errorf("Expected canceled without calling fn, got %v (called=%v)", err, called)
		}
	})
}

func TestNextDelay(t *testing.T) {
	m := NewManager(Config{
		MaxAttempts:  4,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
	})

	expected := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
		80 * time.Millisecond,
		100 * time.Millisecond,
	}
	for i, want := range expected {
		if got := m.NextDelay(i + 1); got != want {
			t.Errorf("Attempt %d: expected delay %v, got %v", i+1, want, got)
		}
	}
}

func TestNextDelayJitter(t *testing.T) {
	m := NewManager(Config{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Jitter:       0.5,
	})

	seen := map[time.Duration]bool{}
	for i := 0; i < 20; i++ {
		d := m.NextDelay(1)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Errorf("Delay out of range: %v", d)
		}
		seen[d] = true
	}
	if len(seen) < 2 {
		t.Error("Expected delays to vary with jitter")
	}
}

func TestFileWriteConfig(t *testing.T) {
	if got := FileWriteConfig(0).MaxAttempts; got != 3 {
		t.Errorf("default attempts = %d, want 3", got)
	}
	if got := FileWriteConfig(7).MaxAttempts; got != 7 {
		t.Errorf("attempts = %d, want 7", got)
	}
}
