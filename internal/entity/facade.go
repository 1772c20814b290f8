// Package entity exposes uniform CRUD and transaction operations over both
// database targets. Callers pick the record shape at the call site; the
// façade resolves the target to a backend and owns id and timestamp
// assignment.
package entity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dualbase/internal/dbtarget"
	"dualbase/internal/model"
	"dualbase/internal/registry"
)

// Record is the minimal surface the façade needs from an entity pointer.
type Record interface {
	RecordID() string
	SetRecordID(id string)
	StampCreated(t time.Time)
	StampUpdated(t time.Time)
}

// backend is one store's implementation of the CRUD operations.
type backend interface {
	create(ctx context.Context, kind model.Kind, rec any) error
	findOne(ctx context.Context, kind model.Kind, filter Filter, dest any) (bool, error)
	find(ctx context.Context, kind model.Kind, filter Filter, opts Options, dest any) error
	update(ctx context.Context, kind model.Kind, id string, rec any) (int64, error)
	remove(ctx context.Context, kind model.Kind, id string) (int64, error)
	count(ctx context.Context, kind model.Kind, filter Filter) (int64, error)
	inTransaction(ctx context.Context, work func(ctx context.Context) error) error
}

type Facade struct {
	logger   *slog.Logger
	backends map[dbtarget.Target]backend
	now      func() time.Time
}

// New builds the façade over the registry's handles. Connections are
// resolved per call, so a façade built before Initialize starts returning
// errors instead of panicking.
func New(reg *registry.Registry, logger *slog.Logger) *Facade {
	return &Facade{
		logger: logger,
		backends: map[dbtarget.Target]backend{
			dbtarget.PostgreSQL: &postgresBackend{reg: reg},
			dbtarget.MongoDB:    &mongoBackend{reg: reg},
		},
		now: time.Now,
	}
}

func (f *Facade) backend(target dbtarget.Target) (backend, error) {
	b, ok := f.backends[target]
	if !ok {
		return nil, &dbtarget.UnsupportedTargetError{Value: string(target)}
	}
	return b, nil
}

// Create persists a new record, assigning an id when empty and stamping
// both timestamps. The persisted record is returned.
func Create[T Record](ctx context.Context, f *Facade, target dbtarget.Target, kind model.Kind, rec T) (T, error) {
	var zero T
	b, err := f.backend(target)
	if err != nil {
		return zero, err
	}

	now := f.now().UTC()
	if rec.RecordID() == "" {
		rec.SetRecordID(uuid.NewString())
	}
	rec.StampCreated(now)
	rec.StampUpdated(now)

	if err := b.create(ctx, kind, rec); err != nil {
		f.logger.Error("entity create failed", "target", target, "kind", kind.Name, "error", err)
		return zero, &PersistenceError{Target: target, Op: "create", Kind: kind.Name, Err: err}
	}
	return rec, nil
}

// FindOne returns the first matching record. Zero matches are reported via
// the boolean, never as an error.
func FindOne[T any](ctx context.Context, f *Facade, target dbtarget.Target, kind model.Kind, filter Filter) (*T, bool, error) {
	b, err := f.backend(target)
	if err != nil {
		return nil, false, err
	}
	if err := validateFilter(kind, filter); err != nil {
		return nil, false, err
	}

	dest := new(T)
	ok, err := b.findOne(ctx, kind, filter, dest)
	if err != nil {
		f.logger.Error("entity find-one failed", "target", target, "kind", kind.Name, "error", err)
		return nil, false, fmt.Errorf("find-one %s on %s: %w", kind.Name, target, err)
	}
	if !ok {
		return nil, false, nil
	}
	return dest, true, nil
}

// Find returns every matching record; an empty result set is valid.
func Find[T any](ctx context.Context, f *Facade, target dbtarget.Target, kind model.Kind, filter Filter, opts Options) ([]T, error) {
	b, err := f.backend(target)
	if err != nil {
		return nil, err
	}
	if err := validateFilter(kind, filter); err != nil {
		return nil, err
	}
	if err := validateOptions(kind, opts); err != nil {
		return nil, err
	}

	var dest []T
	if err := b.find(ctx, kind, filter, opts, &dest); err != nil {
		f.logger.Error("entity find failed", "target", target, "kind", kind.Name, "error", err)
		return nil, fmt.Errorf("find %s on %s: %w", kind.Name, target, err)
	}
	return dest, nil
}

// Update replaces an already-loaded record by id, refreshing its updated
// timestamp. A record that no longer exists is a stale reference.
func Update[T Record](ctx context.Context, f *Facade, target dbtarget.Target, kind model.Kind, rec T) (T, error) {
	var zero T
	b, err := f.backend(target)
	if err != nil {
		return zero, err
	}
	if rec.RecordID() == "" {
		return zero, &PersistenceError{Target: target, Op: "update", Kind: kind.Name, Err: ErrStaleRecord}
	}

	rec.StampUpdated(f.now().UTC())

	matched, err := b.update(ctx, kind, rec.RecordID(), rec)
	if err != nil {
		f.logger.Error("entity update failed", "target", target, "kind", kind.Name, "id", rec.RecordID(), "error", err)
		return zero, &PersistenceError{Target: target, Op: "update", Kind: kind.Name, Err: err}
	}
	if matched == 0 {
		f.logger.Error("entity update hit stale record", "target", target, "kind", kind.Name, "id", rec.RecordID())
		return zero, &PersistenceError{Target: target, Op: "update", Kind: kind.Name, Err: ErrStaleRecord}
	}
	return rec, nil
}

// Remove deletes the record. Deleting an already-deleted record fails with
// ErrNotFound; the operation is deliberately not idempotent.
func Remove[T Record](ctx context.Context, f *Facade, target dbtarget.Target, kind model.Kind, rec T) error {
	b, err := f.backend(target)
	if err != nil {
		return err
	}

	deleted, err := b.remove(ctx, kind, rec.RecordID())
	if err != nil {
		f.logger.Error("entity remove failed", "target", target, "kind", kind.Name, "id", rec.RecordID(), "error", err)
		return &PersistenceError{Target: target, Op: "remove", Kind: kind.Name, Err: err}
	}
	if deleted == 0 {
		return fmt.Errorf("remove %s %s on %s: %w", kind.Name, rec.RecordID(), target, ErrNotFound)
	}
	return nil
}

// Count returns the number of matching records.
func Count(ctx context.Context, f *Facade, target dbtarget.Target, kind model.Kind, filter Filter) (int64, error) {
	b, err := f.backend(target)
	if err != nil {
		return 0, err
	}
	if err := validateFilter(kind, filter); err != nil {
		return 0, err
	}

	n, err := b.count(ctx, kind, filter)
	if err != nil {
		f.logger.Error("entity count failed", "target", target, "kind", kind.Name, "error", err)
		return 0, fmt.Errorf("count %s on %s: %w", kind.Name, target, err)
	}
	return n, nil
}

// Transaction runs work inside a scoped unit of work. Every façade
// operation made through the context passed to work commits or rolls back
// as one; rollback is guaranteed to have happened before the error is
// returned.
func (f *Facade) Transaction(ctx context.Context, target dbtarget.Target, work func(ctx context.Context) error) error {
	b, err := f.backend(target)
	if err != nil {
		return err
	}
	if err := b.inTransaction(ctx, work); err != nil {
		f.logger.Error("transaction rolled back", "target", target, "error", err)
		return err
	}
	return nil
}
