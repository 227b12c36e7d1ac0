// Package shutdown stops long-running components in reverse start order.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmmcquay/sgf-renderer/internal/logging"
)

// DefaultTimeout bounds a signal-triggered shutdown.
const DefaultTimeout = 30 * time.Second

type component struct {
	name string
	fn   func(context.Context) error
}

// Manager coordinates graceful shutdown of multiple components.
type Manager struct {
	logger     logging.ContextLogger
	components []component
	mu         sync.Mutex
	done       chan struct{}
	once       sync.Once
	err        error
}

// NewManager creates a new shutdown manager.
func NewManager(logger logging.ContextLogger) *Manager {
	return &Manager{
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Register adds a component. Components stop one at a time, last registered
// first, so a log file opened before the HTTP server outlives it.
func (m *Manager) Register(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, fn: fn})
}

// HandleSignals shuts down on the first of sigs, or SIGINT and SIGTERM when
// none are given.
func (m *Manager) HandleSignals(timeout time.Duration, sigs ...os.Signal) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sigs...)

	go func() {
		select {
		case sig := <-sigCh:
			m.logger.Info("Received shutdown signal", "signal", sig.String())
			_ = m.Shutdown(timeout)
		case <-m.done:
		}
		signal.Stop(sigCh)
	}()
}

// Shutdown stops every component within timeout. Only the first call does
// any work; later calls wait for it and return the same error.
func (m *Manager) Shutdown(timeout time.Duration) error {
	m.once.Do(func() {
		defer close(m.done)
		m.err = m.run(timeout)
	})
	<-m.done
	return m.err
}

func (m *Manager) run(timeout time.Duration) error {
	m.logger.Info("Starting graceful shutdown", "timeout", timeout)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	m.mu.Lock()
	components := make([]component, len(m.components))
	copy(components, m.components)
	m.mu.Unlock()

	var errs []error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if ctx.Err() != nil {
			errs = append(errs, fmt.Errorf("%s: skipped: %w", c.name, ctx.Err()))
			continue
		}

		start := time.Now()
		if err := c.fn(ctx); err != nil {
			m.logger.Error("Failed to shutdown component",
				"component", c.name,
				"error", err,
				"elapsed", time.Since(start))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		m.logger.Debug("Component shutdown complete",
			"component", c.name,
			"elapsed", time.Since(start))
	}

	if err := errors.Join(errs...); err != nil {
		m.logger.Error("Graceful shutdown completed with errors", "errors", len(errs))
		return err
	}
	m.logger.Info("Graceful shutdown completed successfully")
	return nil
}

// Done returns a channel that's closed when shutdown is complete.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// WaitForShutdown blocks until shutdown is complete.
func (m *Manager) WaitForShutdown() {
	<-m.done
}
