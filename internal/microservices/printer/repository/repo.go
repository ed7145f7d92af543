package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"restaurant-pos/internal/common/db"
)

type WorkerStatus struct {
	Name           string    `json:"name"`
	Sink           string    `json:"sink"`
	Status         string    `json:"status"` // online | offline
	TicketsPrinted int64     `json:"tickets_printed"`
	LastSeen       time.Time `json:"last_seen"`
}

// PrinterRepositoryInterface tracks the printer workers attached to the
// ticket queue. Only one worker may be online under a given name.
type PrinterRepositoryInterface interface {
	RegisterOrFail(ctx context.Context, name, sink string) (bool, error)
	Heartbeat(ctx context.Context, name string) error
	SetOffline(ctx context.Context, name string) error
	MarkPrinted(ctx context.Context, name string) error
	List(ctx context.Context) ([]WorkerStatus, error)
}

// DedupeInterface remembers printed ticket ids so a redelivered message is
// not printed twice.
type DedupeInterface interface {
	Claim(ctx context.Context, ticketID string) (bool, error)
	Release(ctx context.Context, ticketID string) error
}

type Repository struct {
	PrinterRepo PrinterRepositoryInterface
	Dedupe      DedupeInterface
}

func New(conn *db.Conn, rdb redis.Cmdable) *Repository {
	r := &Repository{PrinterRepo: NewPrinterRepository(conn), Dedupe: NewMemoryDedupe()}
	if rdb != nil {
		r.Dedupe = NewRedisDedupe(rdb, 24*time.Hour)
	}
	return r
}

func NewMemory() *Repository {
	return &Repository{PrinterRepo: NewMemoryPrinters(), Dedupe: NewMemoryDedupe()}
}

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS printer_workers (
		name            TEXT PRIMARY KEY,
		sink            TEXT NOT NULL,
		status          TEXT NOT NULL DEFAULT 'online',
		tickets_printed BIGINT NOT NULL DEFAULT 0,
		last_seen       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
