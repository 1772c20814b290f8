package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"dualbase/internal/model"
	"dualbase/internal/registry"
)

// postgresBackend implements the façade operations with sqlx over the pgx
// stdlib driver. Statements are built from the kind's column descriptor,
// never from caller input.
type postgresBackend struct {
	reg *registry.Registry
}

type pgTxKey struct{}

func pgTxFrom(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(pgTxKey{}).(*sqlx.Tx)
	return tx, ok
}

// querier returns the ambient transaction when work runs inside
// Transaction, the shared pool otherwise.
func (p *postgresBackend) querier(ctx context.Context) (sqlx.ExtContext, error) {
	if tx, ok := pgTxFrom(ctx); ok {
		return tx, nil
	}
	handle, err := p.reg.Postgres()
	if err != nil {
		return nil, err
	}
	return handle.DB(), nil
}

func (p *postgresBackend) create(ctx context.Context, kind model.Kind, rec any) error {
	q, err := p.querier(ctx)
	if err != nil {
		return err
	}

	placeholders := make([]string, len(kind.Columns))
	for i, col := range kind.Columns {
		placeholders[i] = ":" + col
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		kind.Table,
		strings.Join(kind.Columns, ", "),
		strings.Join(placeholders, ", "),
	)

	_, err = sqlx.NamedExecContext(ctx, q, query, rec)
	return err
}

func (p *postgresBackend) findOne(ctx context.Context, kind model.Kind, filter Filter, dest any) (bool, error) {
	q, err := p.querier(ctx)
	if err != nil {
		return false, err
	}

	where, args := whereClause(filter)
	query := fmt.Sprintf("SELECT %s FROM %s%s LIMIT 1", strings.Join(kind.Columns, ", "), kind.Table, where)

	if err := sqlx.GetContext(ctx, q, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *postgresBackend) find(ctx context.Context, kind model.Kind, filter Filter, opts Options, dest any) error {
	q, err := p.querier(ctx)
	if err != nil {
		return err
	}

	where, args := whereClause(filter)
	query := fmt.Sprintf(
		"SELECT %s FROM %s%s%s",
		strings.Join(kind.Columns, ", "),
		kind.Table,
		where,
		orderLimitClause(opts),
	)
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}

func (p *postgresBackend) update(ctx context.Context, kind model.Kind, id string, rec any) (int64, error) {
	q, err := p.querier(ctx)
	if err != nil {
		return 0, err
	}

	sets := make([]string, 0, len(kind.Columns)-1)
	for _, col := range kind.Columns {
		if col == "id" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = :%s", col, col))
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = :id", kind.Table, strings.Join(sets, ", "))

	res, err := sqlx.NamedExecContext(ctx, q, query, rec)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *postgresBackend) remove(ctx context.Context, kind model.Kind, id string) (int64, error) {
	q, err := p.querier(ctx)
	if err != nil {
		return 0, err
	}

	res, err := q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", kind.Table), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *postgresBackend) count(ctx context.Context, kind model.Kind, filter Filter) (int64, error) {
	q, err := p.querier(ctx)
	if err != nil {
		return 0, err
	}

	where, args := whereClause(filter)
	var n int64
	if err := sqlx.GetContext(ctx, q, &n, fmt.Sprintf("SELECT COUNT(*) FROM %s%s", kind.Table, where), args...); err != nil {
		return 0, err
	}
	return n, nil
}

func (p *postgresBackend) inTransaction(ctx context.Context, work func(ctx context.Context) error) error {
	// Nested transactions join the ambient one.
	if _, ok := pgTxFrom(ctx); ok {
		return work(ctx)
	}

	handle, err := p.reg.Postgres()
	if err != nil {
		return err
	}
	tx, err := handle.DB().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := work(context.WithValue(ctx, pgTxKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	return tx.Commit()
}
