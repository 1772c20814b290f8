package migration

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"dualbase/internal/config"
	"dualbase/internal/registry"
	"dualbase/internal/schema"
)

// advisoryLockKey is the constant pg_advisory_lock key guarding migration
// runs against this database.
const advisoryLockKey int64 = 7253362906064432196

// postgresDriver keeps status and history in two bookkeeping tables and
// applies each unit inside a transaction, so the statements and the status
// row commit together.
type postgresDriver struct {
	reg *registry.Registry
	cfg config.MigrationConfig
}

func newPostgresDriver(reg *registry.Registry, cfg config.MigrationConfig) *postgresDriver {
	return &postgresDriver{reg: reg, cfg: cfg}
}

func (d *postgresDriver) db() (*sqlx.DB, error) {
	handle, err := d.reg.Postgres()
	if err != nil {
		return nil, err
	}
	return handle.DB(), nil
}

func (d *postgresDriver) EnsureReady(ctx context.Context) error {
	db, err := d.db()
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  name        text PRIMARY KEY,
  ts          bigint NOT NULL,
  status      text NOT NULL,
  error       text NOT NULL DEFAULT '',
  executed_at timestamptz NOT NULL
)`, d.cfg.StatusTable)); err != nil {
		return fmt.Errorf("ensure status table: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id          bigserial PRIMARY KEY,
  name        text NOT NULL,
  direction   text NOT NULL,
  outcome     text NOT NULL,
  error       text NOT NULL DEFAULT '',
  started_at  timestamptz NOT NULL,
  duration_ms bigint NOT NULL
)`, d.cfg.HistoryTable)); err != nil {
		return fmt.Errorf("ensure history table: %w", err)
	}
	return nil
}

// Lock takes a session-scoped advisory lock on a dedicated connection; the
// connection is held until unlock so the lock cannot leak to the pool.
func (d *postgresDriver) Lock(ctx context.Context) (func(context.Context), error) {
	db, err := d.db()
	if err != nil {
		return nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", advisoryLockKey); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	return func(unlockCtx context.Context) {
		_, _ = conn.ExecContext(unlockCtx, "SELECT pg_advisory_unlock($1)", advisoryLockKey)
		_ = conn.Close()
	}, nil
}

func (d *postgresDriver) Executed(ctx context.Context) ([]StatusRecord, error) {
	db, err := d.db()
	if err != nil {
		return nil, err
	}
	var records []StatusRecord
	query := fmt.Sprintf("SELECT name, ts, status, error, executed_at FROM %s ORDER BY ts", d.cfg.StatusTable)
	if err := db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("load migration status: %w", err)
	}
	return records, nil
}

func (d *postgresDriver) ApplyUnit(ctx context.Context, u Unit) error {
	db, err := d.db()
	if err != nil {
		return err
	}
	unit, err := d.readUnit(u)
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if unit.Up != "" {
		if _, err := tx.ExecContext(ctx, unit.Up); err != nil {
			return fmt.Errorf("execute up: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (name, ts, status, error, executed_at) VALUES ($1, $2, $3, '', now())
ON CONFLICT (name) DO UPDATE SET status = $3, error = '', executed_at = now()
`, d.cfg.StatusTable), u.Key(), u.Timestamp, StatusExecuted); err != nil {
		return fmt.Errorf("record status: %w", err)
	}
	return tx.Commit()
}

func (d *postgresDriver) RevertUnit(ctx context.Context, u Unit) error {
	db, err := d.db()
	if err != nil {
		return err
	}
	unit, err := d.readUnit(u)
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if unit.Down != "" {
		if _, err := tx.ExecContext(ctx, unit.Down); err != nil {
			return fmt.Errorf("execute down: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE name = $1", d.cfg.StatusTable), u.Key()); err != nil {
		return fmt.Errorf("clear status: %w", err)
	}
	return tx.Commit()
}

func (d *postgresDriver) MarkFailed(ctx context.Context, u Unit, direction, errText string) error {
	db, err := d.db()
	if err != nil {
		return err
	}

	if direction == DirectionDown {
		// The unit stays executed; only the error text is attached.
		_, err := db.ExecContext(ctx,
			fmt.Sprintf("UPDATE %s SET error = $2 WHERE name = $1", d.cfg.StatusTable),
			u.Key(), errText)
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (name, ts, status, error, executed_at) VALUES ($1, $2, $3, $4, now())
ON CONFLICT (name) DO UPDATE SET status = $3, error = $4, executed_at = now()
`, d.cfg.StatusTable), u.Key(), u.Timestamp, StatusFailed, errText)
	return err
}

func (d *postgresDriver) AppendHistory(ctx context.Context, rec HistoryRecord) error {
	db, err := d.db()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (name, direction, outcome, error, started_at, duration_ms)
VALUES (:name, :direction, :outcome, :error, :started_at, :duration_ms)
`, d.cfg.HistoryTable), rec)
	return err
}

func (d *postgresDriver) History(ctx context.Context) ([]HistoryRecord, error) {
	db, err := d.db()
	if err != nil {
		return nil, err
	}
	var records []HistoryRecord
	query := fmt.Sprintf(
		"SELECT name, direction, outcome, error, started_at, duration_ms FROM %s ORDER BY started_at, id",
		d.cfg.HistoryTable)
	if err := db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("load migration history: %w", err)
	}
	return records, nil
}

func (d *postgresDriver) GeneratePlan(ctx context.Context, name string, timestamp int64) (string, bool, error) {
	db, err := d.db()
	if err != nil {
		return "", false, err
	}

	live, err := schema.Introspect(ctx, db, d.cfg.StatusTable, d.cfg.HistoryTable)
	if err != nil {
		return "", false, err
	}
	desired := schema.Desired()
	diff := schema.Compare(desired, live)
	if !diff.HasChanges() {
		return "", false, nil
	}

	up := schema.UpStatements(desired, diff)
	down := schema.DownStatements(diff)
	return renderSQLUnit(name, timestamp, up, down), true, nil
}

func (d *postgresDriver) readUnit(u Unit) (SQLUnit, error) {
	content, err := os.ReadFile(u.Path)
	if err != nil {
		return SQLUnit{}, fmt.Errorf("read unit %s: %w", u.FileName, err)
	}
	unit, err := ParseSQLUnit(string(content))
	if err != nil {
		return SQLUnit{}, fmt.Errorf("parse unit %s: %w", u.FileName, err)
	}
	return unit, nil
}
