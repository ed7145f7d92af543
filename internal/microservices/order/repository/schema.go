package repository

// Schema creates the order tables. Money columns are NUMERIC and are read
// back as text to keep decimal precision.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id               TEXT PRIMARY KEY,
		kind             TEXT NOT NULL,
		table_number     INT  NOT NULL DEFAULT 0,
		name             TEXT NOT NULL,
		status           TEXT NOT NULL,
		pending_lines    JSONB NOT NULL DEFAULT '[]',
		committed_lines  JSONB NOT NULL DEFAULT '[]',
		merged_into      TEXT,
		started_at       TIMESTAMPTZ,
		order_number     BIGINT,
		discount         NUMERIC(12,2) NOT NULL DEFAULT 0,
		customer         JSONB,
		delivery_address TEXT NOT NULL DEFAULT '',
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		version          BIGINT NOT NULL DEFAULT 1
	)`,
	`ALTER TABLE orders ADD COLUMN IF NOT EXISTS version BIGINT NOT NULL DEFAULT 1`,
	`CREATE UNIQUE INDEX IF NOT EXISTS orders_order_number_uq ON orders(order_number) WHERE order_number IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS order_drafts (
		order_id   TEXT PRIMARY KEY,
		lines      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
