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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	shutdownDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clientledger_shutdown_duration_seconds",
		Help:    "Total time taken to shut down gracefully",
		Buckets: []float64{1, 5, 10, 15, 20, 25, 30},
	})

	componentShutdownDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clientledger_component_shutdown_duration_seconds",
		Help:    "Time taken to shut down individual components",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15, 20, 25, 30},
	}, []string{"component"})

	shutdownErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clientledger_shutdown_errors_total",
		Help: "Components that failed to shut down cleanly",
	}, []string{"component"})
)

// ShutdownFunc releases one component
type ShutdownFunc func(ctx context.Context) error

// Component is a named shutdown step
type Component struct {
	Name         string
	ShutdownFunc ShutdownFunc
}

// Manager runs registered components in reverse registration order, one at a
// time, under a shared deadline. Register the HTTP servers after the stores
// they depend on so that they stop first.
type Manager struct {
	logger     *zap.Logger
	components []Component
	mu         sync.Mutex
	timeout    time.Duration
	once       sync.Once
	err        error
}

// NewManager creates a new shutdown manager
func NewManager(logger *zap.Logger, timeout time.Duration) *Manager {
	return &Manager{
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a shutdown step
func (sm *Manager) Register(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.components = append(sm.components, Component{Name: name, ShutdownFunc: fn})
	sm.logger.Debug("Registered shutdown component",
		zap.String("component", name),
		zap.Int("registration_order", len(sm.components)),
	)
}

// RegisterCloser registers anything with a Close() error method
func (sm *Manager) RegisterCloser(name string, closer interface{ Close() error }) {
	sm.Register(name, func(context.Context) error {
		return closer.Close()
	})
}

// RegisterNoErr registers a step that cannot fail
func (sm *Manager) RegisterNoErr(name string, fn func()) {
	sm.Register(name, func(context.Context) error {
		fn()
		return nil
	})
}

// WaitForShutdown blocks until SIGINT/SIGTERM or ctx is done, then shuts down
func (sm *Manager) WaitForShutdown(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	sm.logger.Info("Shutdown requested", zap.Duration("timeout", sm.timeout))
	return sm.Shutdown()
}

// Shutdown runs every component once. Later calls return the first result.
func (sm *Manager) Shutdown() error {
	sm.once.Do(func() {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
		defer cancel()

		sm.err = sm.shutdownComponents(ctx)
		shutdownDuration.Observe(time.Since(start).Seconds())

		if sm.err != nil {
			sm.logger.Error("Graceful shutdown completed with errors",
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(sm.err),
			)
			return
		}
		sm.logger.Info("Graceful shutdown completed", zap.Duration("elapsed", time.Since(start)))
	})
	return sm.err
}

func (sm *Manager) shutdownComponents(ctx context.Context) error {
	sm.mu.Lock()
	components := make([]Component, len(sm.components))
	copy(components, sm.components)
	sm.mu.Unlock()

	var errs []error
	for i := len(components) - 1; i >= 0; i-- {
		comp := components[i]
		start := time.Now()

		err := comp.ShutdownFunc(ctx)
		componentShutdownDuration.WithLabelValues(comp.Name).Observe(time.Since(start).Seconds())
		if err != nil {
			shutdownErrors.WithLabelValues(comp.Name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", comp.Name, err))
			sm.logger.Error("Component shutdown failed",
				zap.String("component", comp.Name),
				zap.Error(err),
			)
			continue
		}
		sm.logger.Info("Component shut down",
			zap.String("component", comp.Name),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return errors.Join(errs...)
}
