package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"restaurant-pos/internal/common/db"
)

type PrinterRepository struct {
	db *db.Conn
}

func NewPrinterRepository(conn *db.Conn) *PrinterRepository {
	return &PrinterRepository{db: conn}
}

// RegisterOrFail reports existedOnline=true together with an error when the
// name is already held by a live worker.
func (r *PrinterRepository) RegisterOrFail(ctx context.Context, name, sink string) (bool, error) {
	var status string
	err := r.db.QueryRow(ctx, `SELECT status FROM printer_workers WHERE name = $1`, name).Scan(&status)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = r.db.Exec(ctx, `
			INSERT INTO printer_workers (name, sink, status, last_seen) VALUES ($1, $2, 'online', NOW())`,
			name, sink)
		return false, err
	case err != nil:
		return false, err
	case status == "online":
		return true, fmt.Errorf("printer worker %s already online", name)
	default:
		_, err = r.db.Exec(ctx, `
			UPDATE printer_workers SET sink = $2, status = 'online', last_seen = NOW() WHERE name = $1`,
			name, sink)
		return false, err
	}
}

func (r *PrinterRepository) Heartbeat(ctx context.Context, name string) error {
	_, err := r.db.Exec(ctx, `UPDATE printer_workers SET last_seen = NOW() WHERE name = $1`, name)
	return err
}

func (r *PrinterRepository) SetOffline(ctx context.Context, name string) error {
	_, err := r.db.Exec(ctx, `UPDATE printer_workers SET status = 'offline', last_seen = NOW() WHERE name = $1`, name)
	return err
}

func (r *PrinterRepository) MarkPrinted(ctx context.Context, name string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE printer_workers SET tickets_printed = tickets_printed + 1, last_seen = NOW() WHERE name = $1`, name)
	return err
}

func (r *PrinterRepository) List(ctx context.Context) ([]WorkerStatus, error) {
	rows, err := r.db.Query(ctx, `
		SELECT name, sink, status, tickets_printed, last_seen FROM printer_workers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list printer workers: %w", err)
	}
	defer rows.Close()

	var out []WorkerStatus
	for rows.Next() {
		var w WorkerStatus
		if err := rows.Scan(&w.Name, &w.Sink, &w.Status, &w.TicketsPrinted, &w.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
