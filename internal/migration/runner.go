// Package migration drives the versioned schema-change lifecycle for both
// database targets: apply, revert, generate, status and history, plus the
// on-disk unit file utilities.
package migration

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"dualbase/internal/config"
	"dualbase/internal/dbtarget"
	"dualbase/internal/registry"
)

type Status string

const (
	StatusExecuted Status = "executed"
	StatusFailed   Status = "failed"
)

const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

const (
	OutcomeExecuted = "executed"
	OutcomeReverted = "reverted"
	OutcomeFailed   = "failed"
)

// StatusRecord is one row/document in a target's status store.
type StatusRecord struct {
	Name       string    `db:"name" bson:"_id"`
	Timestamp  int64     `db:"ts" bson:"ts"`
	Status     Status    `db:"status" bson:"status"`
	Error      string    `db:"error" bson:"error"`
	ExecutedAt time.Time `db:"executed_at" bson:"executed_at"`
}

// HistoryRecord is one append-only log entry, written once per apply or
// revert attempt and never mutated.
type HistoryRecord struct {
	Name       string    `db:"name" bson:"name"`
	Direction  string    `db:"direction" bson:"direction"`
	Outcome    string    `db:"outcome" bson:"outcome"`
	Error      string    `db:"error" bson:"error"`
	StartedAt  time.Time `db:"started_at" bson:"started_at"`
	DurationMS int64     `db:"duration_ms" bson:"duration_ms"`
}

// GenerateResult reports what a generate call did.
type GenerateResult struct {
	Created  bool
	FileName string
}

// driver is one target's migration I/O: bookkeeping stores, unit
// execution, locking, and schema diffing.
type driver interface {
	EnsureReady(ctx context.Context) error
	Lock(ctx context.Context) (unlock func(context.Context), err error)
	Executed(ctx context.Context) ([]StatusRecord, error)
	ApplyUnit(ctx context.Context, u Unit) error
	RevertUnit(ctx context.Context, u Unit) error
	MarkFailed(ctx context.Context, u Unit, direction, errText string) error
	AppendHistory(ctx context.Context, rec HistoryRecord) error
	History(ctx context.Context) ([]HistoryRecord, error)
	GeneratePlan(ctx context.Context, name string, timestamp int64) (content string, hasChanges bool, err error)
}

// Runner coordinates the migration lifecycle across both targets.
type Runner struct {
	dir     string
	logger  *slog.Logger
	files   *Files
	drivers map[dbtarget.Target]driver
	now     func() time.Time
}

func NewRunner(reg *registry.Registry, cfg config.Config, logger *slog.Logger) *Runner {
	return &Runner{
		dir:    cfg.Migrations.Dir,
		logger: logger,
		files:  NewFiles(logger),
		drivers: map[dbtarget.Target]driver{
			dbtarget.PostgreSQL: newPostgresDriver(reg, cfg.Migrations),
			dbtarget.MongoDB:    newMongoDriver(reg, cfg.Migrations),
		},
		now: time.Now,
	}
}

func (r *Runner) driver(target dbtarget.Target) (driver, error) {
	d, ok := r.drivers[target]
	if !ok {
		return nil, &dbtarget.UnsupportedTargetError{Value: string(target)}
	}
	return d, nil
}

func (r *Runner) targetDir(target dbtarget.Target) string {
	return filepath.Join(r.dir, string(target))
}

// Run applies every pending unit for target in strict timestamp order,
// stopping at the first failure. The count of units applied is returned
// either way.
func (r *Runner) Run(ctx context.Context, target dbtarget.Target) (int, error) {
	d, err := r.driver(target)
	if err != nil {
		return 0, err
	}
	if err := d.EnsureReady(ctx); err != nil {
		return 0, r.fail(target, "apply", "", err)
	}

	unlock, err := d.Lock(ctx)
	if err != nil {
		return 0, r.fail(target, "apply", "", err)
	}
	defer unlock(ctx)

	units, err := LoadUnits(r.targetDir(target), target)
	if err != nil {
		return 0, r.fail(target, "apply", "", err)
	}
	executedSet, err := r.executedSet(ctx, d)
	if err != nil {
		return 0, r.fail(target, "apply", "", err)
	}

	applied := 0
	for _, u := range units {
		if executedSet[u.Key()] {
			continue
		}

		start := r.now().UTC()
		applyErr := d.ApplyUnit(ctx, u)
		duration := r.now().UTC().Sub(start)

		if applyErr != nil {
			if markErr := d.MarkFailed(ctx, u, DirectionUp, applyErr.Error()); markErr != nil {
				r.logger.Error("record migration failure", "target", target, "migration", u.Key(), "error", markErr)
			}
			r.appendHistory(ctx, d, target, HistoryRecord{
				Name: u.Key(), Direction: DirectionUp, Outcome: OutcomeFailed,
				Error: applyErr.Error(), StartedAt: start, DurationMS: duration.Milliseconds(),
			})
			return applied, r.fail(target, "apply", u.Key(), applyErr)
		}

		r.appendHistory(ctx, d, target, HistoryRecord{
			Name: u.Key(), Direction: DirectionUp, Outcome: OutcomeExecuted,
			StartedAt: start, DurationMS: duration.Milliseconds(),
		})
		r.logger.Info("migration applied", "target", target, "migration", u.Key())
		applied++
	}
	return applied, nil
}

// RevertLast reverts exactly the most recently executed unit for target.
func (r *Runner) RevertLast(ctx context.Context, target dbtarget.Target) (string, error) {
	d, err := r.driver(target)
	if err != nil {
		return "", err
	}
	if err := d.EnsureReady(ctx); err != nil {
		return "", r.fail(target, "revert", "", err)
	}

	unlock, err := d.Lock(ctx)
	if err != nil {
		return "", r.fail(target, "revert", "", err)
	}
	defer unlock(ctx)

	records, err := d.Executed(ctx)
	if err != nil {
		return "", r.fail(target, "revert", "", err)
	}
	var last *StatusRecord
	for i := range records {
		if records[i].Status == StatusExecuted {
			last = &records[i]
		}
	}
	if last == nil {
		return "", r.fail(target, "revert", "", ErrNothingToRevert)
	}

	units, err := LoadUnits(r.targetDir(target), target)
	if err != nil {
		return "", r.fail(target, "revert", last.Name, err)
	}
	var unit *Unit
	for i := range units {
		if units[i].Key() == last.Name {
			unit = &units[i]
			break
		}
	}
	if unit == nil {
		return "", r.fail(target, "revert", last.Name, fmt.Errorf("unit file for %s not found", last.Name))
	}

	start := r.now().UTC()
	revertErr := d.RevertUnit(ctx, *unit)
	duration := r.now().UTC().Sub(start)

	if revertErr != nil {
		if markErr := d.MarkFailed(ctx, *unit, DirectionDown, revertErr.Error()); markErr != nil {
			r.logger.Error("record migration failure", "target", target, "migration", unit.Key(), "error", markErr)
		}
		r.appendHistory(ctx, d, target, HistoryRecord{
			Name: unit.Key(), Direction: DirectionDown, Outcome: OutcomeFailed,
			Error: revertErr.Error(), StartedAt: start, DurationMS: duration.Milliseconds(),
		})
		return "", r.fail(target, "revert", unit.Key(), revertErr)
	}

	r.appendHistory(ctx, d, target, HistoryRecord{
		Name: unit.Key(), Direction: DirectionDown, Outcome: OutcomeReverted,
		StartedAt: start, DurationMS: duration.Milliseconds(),
	})
	r.logger.Info("migration reverted", "target", target, "migration", unit.Key())
	return unit.Key(), nil
}

// Status returns the pending and executed unit keys for target, both in
// timestamp order. Units whose last apply failed stay pending, with the
// error kept in the status store.
func (r *Runner) Status(ctx context.Context, target dbtarget.Target) (pending, executed []string, err error) {
	d, err := r.driver(target)
	if err != nil {
		return nil, nil, err
	}
	if err := d.EnsureReady(ctx); err != nil {
		return nil, nil, r.fail(target, "status", "", err)
	}

	units, err := LoadUnits(r.targetDir(target), target)
	if err != nil {
		return nil, nil, r.fail(target, "status", "", err)
	}
	records, err := d.Executed(ctx)
	if err != nil {
		return nil, nil, r.fail(target, "status", "", err)
	}

	executedSet := make(map[string]bool)
	for _, rec := range records {
		if rec.Status == StatusExecuted {
			executedSet[rec.Name] = true
			executed = append(executed, rec.Name)
		}
	}
	for _, u := range units {
		if !executedSet[u.Key()] {
			pending = append(pending, u.Key())
		}
	}
	return pending, executed, nil
}

// History returns the append-only record sequence for target, ordered by
// execution time ascending.
func (r *Runner) History(ctx context.Context, target dbtarget.Target) ([]HistoryRecord, error) {
	d, err := r.driver(target)
	if err != nil {
		return nil, err
	}
	if err := d.EnsureReady(ctx); err != nil {
		return nil, r.fail(target, "history", "", err)
	}
	records, err := d.History(ctx)
	if err != nil {
		return nil, r.fail(target, "history", "", err)
	}
	return records, nil
}

// Generate diffs the desired schema against the live one and writes a new
// unit only when differences exist; a clean diff is a no-op, not an error.
func (r *Runner) Generate(ctx context.Context, target dbtarget.Target, name string) (GenerateResult, error) {
	d, err := r.driver(target)
	if err != nil {
		return GenerateResult{}, err
	}
	canonical := PascalCase(name)
	if !ValidateName(canonical) {
		return GenerateResult{}, r.fail(target, "generate", name, fmt.Errorf("invalid migration name %q", name))
	}
	if err := d.EnsureReady(ctx); err != nil {
		return GenerateResult{}, r.fail(target, "generate", canonical, err)
	}

	timestamp := r.now().UTC().UnixMilli()
	content, hasChanges, err := d.GeneratePlan(ctx, canonical, timestamp)
	if err != nil {
		return GenerateResult{}, r.fail(target, "generate", canonical, err)
	}
	if !hasChanges {
		r.logger.Info("no schema differences, nothing generated", "target", target)
		return GenerateResult{}, nil
	}

	fileName, err := r.writeUnit(target, canonical, timestamp, content)
	if err != nil {
		return GenerateResult{}, r.fail(target, "generate", canonical, err)
	}
	r.logger.Info("migration generated", "target", target, "file", fileName)
	return GenerateResult{Created: true, FileName: fileName}, nil
}

// Create unconditionally writes a blank unit file for manual authoring.
func (r *Runner) Create(target dbtarget.Target, name string) (string, error) {
	if _, err := r.driver(target); err != nil {
		return "", err
	}
	canonical := PascalCase(name)
	if !ValidateName(canonical) {
		return "", r.fail(target, "create", name, fmt.Errorf("invalid migration name %q", name))
	}

	timestamp := r.now().UTC().UnixMilli()
	fileName, err := r.writeUnit(target, canonical, timestamp, Template(canonical, timestamp, target))
	if err != nil {
		return "", r.fail(target, "create", canonical, err)
	}
	r.logger.Info("migration created", "target", target, "file", fileName)
	return fileName, nil
}

func (r *Runner) writeUnit(target dbtarget.Target, name string, timestamp int64, content string) (string, error) {
	dir := r.targetDir(target)
	if err := r.files.CreateDirectories(dir); err != nil {
		return "", err
	}
	fileName := FormatFilename(name, timestamp, target)
	if err := r.files.CreateFile(filepath.Join(dir, fileName), content, false); err != nil {
		return "", err
	}
	return fileName, nil
}

func (r *Runner) executedSet(ctx context.Context, d driver) (map[string]bool, error) {
	records, err := d.Executed(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec.Status == StatusExecuted {
			set[rec.Name] = true
		}
	}
	return set, nil
}

func (r *Runner) appendHistory(ctx context.Context, d driver, target dbtarget.Target, rec HistoryRecord) {
	if err := d.AppendHistory(ctx, rec); err != nil {
		r.logger.Error("append migration history", "target", target, "migration", rec.Name, "error", err)
	}
}

func (r *Runner) fail(target dbtarget.Target, op, name string, err error) error {
	r.logger.Error("migration operation failed", "target", target, "op", op, "migration", name, "error", err)
	return &MigrationError{Target: target, Op: op, Name: name, Err: err}
}
