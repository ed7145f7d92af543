package folio

import (
	"context"
	"fmt"

	"restaurant-pos/internal/common/db"
)

// Postgres keeps the counter in a single row updated in place, so concurrent
// terminals serialize on the row lock.
type Postgres struct {
	db   *db.Conn
	base int64
}

func NewPostgres(conn *db.Conn, base int64) *Postgres {
	return &Postgres{db: conn, base: base}
}

func (p *Postgres) Next(ctx context.Context) (int64, error) {
	var n int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO counters (name, value) VALUES ($1, $2::bigint + 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value`, counterName, p.base).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next folio: %w", err)
	}
	return n, nil
}
