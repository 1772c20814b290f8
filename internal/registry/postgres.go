package registry

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"dualbase/internal/config"
)

// PostgresHandle wraps the relational connection pool.
type PostgresHandle struct {
	db *sqlx.DB
}

func openPostgres(ctx context.Context, cfg config.PostgresConfig) (Handle, error) {
	db, err := sqlx.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)
	return &PostgresHandle{db: db}, nil
}

// DB exposes the pool for query building layers.
func (h *PostgresHandle) DB() *sqlx.DB { return h.db }

func (h *PostgresHandle) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

func (h *PostgresHandle) Close(_ context.Context) error {
	return h.db.Close()
}
