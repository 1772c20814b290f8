// Package registry owns the live connection handles, one per database
// target, and reports their health.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dualbase/internal/config"
	"dualbase/internal/dbtarget"
)

// ErrConnectionUnavailable is returned when a target has no live handle,
// either because Initialize was never called or Shutdown tore it down.
var ErrConnectionUnavailable = errors.New("connection unavailable")

// InitializationError reports a failed startup; the registry treats both
// connections as one unit, so any failure aborts the whole initialization.
type InitializationError struct {
	Target dbtarget.Target
	Err    error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialize %s connection: %v", e.Target, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// Handle is a live session to one database target.
type Handle interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type opener func(ctx context.Context) (Handle, error)

const probeTimeout = 2 * time.Second

// Registry holds at most one handle per target.
type Registry struct {
	logger  *slog.Logger
	openers map[dbtarget.Target]opener

	mu      sync.RWMutex
	handles map[dbtarget.Target]Handle
}

// New builds a registry for the configured postgres and mongo endpoints.
// No connections are opened until Initialize.
func New(cfg config.Config, logger *slog.Logger) *Registry {
	return newWithOpeners(logger, map[dbtarget.Target]opener{
		dbtarget.PostgreSQL: func(ctx context.Context) (Handle, error) {
			return openPostgres(ctx, cfg.Postgres)
		},
		dbtarget.MongoDB: func(ctx context.Context) (Handle, error) {
			return openMongo(ctx, cfg.Mongo)
		},
	})
}

func newWithOpeners(logger *slog.Logger, openers map[dbtarget.Target]opener) *Registry {
	return &Registry{
		logger:  logger,
		openers: openers,
		handles: make(map[dbtarget.Target]Handle),
	}
}

// Initialize establishes every handle, failing fast: if any target cannot
// be opened and pinged, handles opened so far are closed and an
// InitializationError is returned.
func (r *Registry) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.handles) > 0 {
		return errors.New("registry already initialized")
	}

	opened := make(map[dbtarget.Target]Handle)
	for _, target := range dbtarget.All() {
		open, ok := r.openers[target]
		if !ok {
			continue
		}
		handle, err := open(ctx)
		if err == nil {
			err = handle.Ping(ctx)
			if err != nil {
				_ = handle.Close(ctx)
			}
		}
		if err != nil {
			for t, h := range opened {
				if closeErr := h.Close(ctx); closeErr != nil {
					r.logger.Error("close after failed init", "target", t, "error", closeErr)
				}
			}
			return &InitializationError{Target: target, Err: err}
		}
		opened[target] = handle
		r.logger.Info("database connection established", "target", target)
	}

	r.handles = opened
	return nil
}

// Shutdown closes every handle best-effort. Close failures are logged and
// never returned so shutdown always completes.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for target, handle := range r.handles {
		if err := handle.Close(ctx); err != nil {
			r.logger.Error("close connection failed", "target", target, "error", err)
			continue
		}
		r.logger.Info("database connection closed", "target", target)
	}
	r.handles = make(map[dbtarget.Target]Handle)
}

// Handle returns the live handle for target.
func (r *Registry) Handle(target dbtarget.Target) (Handle, error) {
	if !target.Valid() {
		return nil, &dbtarget.UnsupportedTargetError{Value: string(target)}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	handle, ok := r.handles[target]
	if !ok {
		return nil, fmt.Errorf("%s: %w", target, ErrConnectionUnavailable)
	}
	return handle, nil
}

// Postgres returns the relational handle.
func (r *Registry) Postgres() (*PostgresHandle, error) {
	handle, err := r.Handle(dbtarget.PostgreSQL)
	if err != nil {
		return nil, err
	}
	pg, ok := handle.(*PostgresHandle)
	if !ok {
		return nil, fmt.Errorf("postgresql: %w", ErrConnectionUnavailable)
	}
	return pg, nil
}

// Mongo returns the document-store handle.
func (r *Registry) Mongo() (*MongoHandle, error) {
	handle, err := r.Handle(dbtarget.MongoDB)
	if err != nil {
		return nil, err
	}
	mg, ok := handle.(*MongoHandle)
	if !ok {
		return nil, fmt.Errorf("mongodb: %w", ErrConnectionUnavailable)
	}
	return mg, nil
}

// Healthy probes a single target with a short round trip. It never returns
// an error: probe failures are logged and reported as false.
func (r *Registry) Healthy(ctx context.Context, target dbtarget.Target) bool {
	handle, err := r.Handle(target)
	if err != nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := handle.Ping(probeCtx); err != nil {
		r.logger.Warn("health probe failed", "target", target, "error", err)
		return false
	}
	return true
}

// AllHealth probes every target concurrently.
func (r *Registry) AllHealth(ctx context.Context) map[dbtarget.Target]bool {
	targets := dbtarget.All()
	result := make(map[dbtarget.Target]bool, len(targets))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func(target dbtarget.Target) {
			defer wg.Done()
			healthy := r.Healthy(ctx, target)
			mu.Lock()
			result[target] = healthy
			mu.Unlock()
		}(target)
	}
	wg.Wait()
	return result
}
