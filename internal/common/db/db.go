package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-pos/internal/common/config"
	"restaurant-pos/internal/common/logger"
)

type Conn struct{ *pgxpool.Pool }

const connectAttempts = 10

// Connect opens a pool and keeps pinging until the database answers or the
// attempts run out. Terminals usually boot before the database container.
func Connect(ctx context.Context, cfg config.Database, lg *logger.Logger) (*Conn, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err := pgxpool.NewWithConfig(ctx, pcfg)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err = pool.Ping(pingCtx)
			cancel()
			if err == nil {
				lg.Info("db_connected", map[string]any{"host": cfg.Host, "database": cfg.Name, "attempt": attempt})
				return &Conn{Pool: pool}, nil
			}
			pool.Close()
		}
		lastErr = err
		lg.Error("db_connect_retry", err, map[string]any{"attempt": attempt})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("connect postgres after %d attempts: %w", connectAttempts, lastErr)
}

// Migrate applies idempotent DDL statements in order.
func (c *Conn) Migrate(ctx context.Context, statements ...string) error {
	for i, stmt := range statements {
		if _, err := c.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

func (c *Conn) Close() {
	if c != nil && c.Pool != nil {
		c.Pool.Close()
	}
}
