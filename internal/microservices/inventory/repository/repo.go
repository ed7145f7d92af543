package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/domain"
)

type StockRepositoryInterface interface {
	List(ctx context.Context) ([]domain.Ingredient, error)
	Get(ctx context.Context, id string) (domain.Ingredient, error)
	Upsert(ctx context.Context, ing domain.Ingredient) error
	Delete(ctx context.Context, id string) error
	// ApplyDeduction decrements stock for one sale. applied is false when the
	// sale was already deducted; missing lists unknown ingredient ids.
	ApplyDeduction(ctx context.Context, saleID string, amounts map[string]decimal.Decimal) (applied bool, missing []string, err error)
	// Receive stores the purchase and adds its quantities to the ingredients
	// matched by name, creating the ones that do not exist.
	Receive(ctx context.Context, p domain.Purchase, newID func() string) error
}

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS ingredients (
		id        TEXT PRIMARY KEY,
		name      TEXT NOT NULL,
		unit      TEXT NOT NULL DEFAULT 'Pieza',
		stock     NUMERIC(14,3) NOT NULL DEFAULT 0,
		min_stock NUMERIC(14,3) NOT NULL DEFAULT 0,
		last_cost NUMERIC(12,2) NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ingredients_name_uq ON ingredients (lower(name))`,
	`CREATE TABLE IF NOT EXISTS inventory_deductions (
		sale_id    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS purchases (
		id           TEXT PRIMARY KEY,
		merchant     TEXT NOT NULL,
		total_amount NUMERIC(12,2) NOT NULL,
		items        JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
}
