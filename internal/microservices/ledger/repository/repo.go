package repository

import (
	"context"
	"time"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/domain"
)

// SalesRepositoryInterface is the shared sales ledger. Upsert is keyed by
// sale id so replays from the outbox are harmless.
type SalesRepositoryInterface interface {
	Upsert(ctx context.Context, sale domain.SaleRecord) error
	Get(ctx context.Context, id string) (domain.SaleRecord, error)
	Range(ctx context.Context, from, to time.Time) ([]domain.SaleRecord, error)
	Cancel(ctx context.Context, id string, at time.Time) error
}

type ExpenseRepositoryInterface interface {
	Add(ctx context.Context, e domain.Expense) error
	Range(ctx context.Context, from, to time.Time) ([]domain.Expense, error)
	Delete(ctx context.Context, id string) error
}

type CashCutRepositoryInterface interface {
	Add(ctx context.Context, c domain.CashCut) error
	List(ctx context.Context, limit, offset int) ([]domain.CashCut, error)
	Last(ctx context.Context) (*domain.CashCut, error)
}

// OutboxKind names the ledger write an outbox entry replays.
type OutboxKind string

const (
	OutboxSale   OutboxKind = "sale"
	OutboxCancel OutboxKind = "cancel"
)

type OutboxEntry struct {
	ID        int64
	Kind      OutboxKind
	Key       string
	Payload   []byte
	Attempts  int
	LastError string
	CreatedAt time.Time
}

// OutboxInterface is the terminal-local queue of ledger writes that could
// not reach the shared store. Pending returns entries in insertion order.
type OutboxInterface interface {
	Enqueue(ctx context.Context, kind OutboxKind, key string, payload []byte) error
	Pending(ctx context.Context, limit int) ([]OutboxEntry, error)
	Done(ctx context.Context, id int64) error
	Failed(ctx context.Context, id int64, cause error) error
}

type Repository struct {
	SalesRepo   SalesRepositoryInterface
	ExpenseRepo ExpenseRepositoryInterface
	CashCutRepo CashCutRepositoryInterface
	Outbox      OutboxInterface
}

func New(conn *db.Conn, outbox OutboxInterface) *Repository {
	return &Repository{
		SalesRepo:   NewSalesRepository(conn),
		ExpenseRepo: NewExpenseRepository(conn),
		CashCutRepo: NewCashCutRepository(conn),
		Outbox:      outbox,
	}
}

func NewMemory(outbox OutboxInterface) *Repository {
	if outbox == nil {
		outbox = NewMemoryOutbox()
	}
	return &Repository{
		SalesRepo:   NewMemorySales(),
		ExpenseRepo: NewMemoryExpenses(),
		CashCutRepo: NewMemoryCashCuts(),
		Outbox:      outbox,
	}
}

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS sales (
		id             TEXT PRIMARY KEY,
		order_id       TEXT NOT NULL,
		order_number   BIGINT NOT NULL DEFAULT 0,
		origin_name    TEXT NOT NULL,
		items          JSONB NOT NULL DEFAULT '[]',
		subtotal       NUMERIC(12,2) NOT NULL,
		discount       NUMERIC(12,2) NOT NULL DEFAULT 0,
		tip            NUMERIC(12,2) NOT NULL DEFAULT 0,
		total          NUMERIC(12,2) NOT NULL,
		payment_method TEXT NOT NULL,
		operator       TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL DEFAULT 'completed',
		created_at     TIMESTAMPTZ NOT NULL,
		cancelled_at   TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS sales_created_at_idx ON sales(created_at)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id          TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		category    TEXT NOT NULL DEFAULT '',
		amount      NUMERIC(12,2) NOT NULL,
		date        TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS expenses_date_idx ON expenses(date)`,
	`CREATE TABLE IF NOT EXISTS cash_cuts (
		id              TEXT PRIMARY KEY,
		operator        TEXT NOT NULL,
		period_start    TIMESTAMPTZ NOT NULL,
		period_end      TIMESTAMPTZ NOT NULL,
		cash_sales      NUMERIC(12,2) NOT NULL,
		digital_sales   NUMERIC(12,2) NOT NULL,
		total_sales     NUMERIC(12,2) NOT NULL,
		tips            NUMERIC(12,2) NOT NULL,
		expenses        NUMERIC(12,2) NOT NULL,
		expected_cash   NUMERIC(12,2) NOT NULL,
		counted_cash    NUMERIC(12,2) NOT NULL,
		difference      NUMERIC(12,2) NOT NULL,
		left_in_drawer  NUMERIC(12,2) NOT NULL,
		to_withdraw     NUMERIC(12,2) NOT NULL,
		cancelled_count INT NOT NULL DEFAULT 0,
		cancelled_total NUMERIC(12,2) NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL
	)`,
}
