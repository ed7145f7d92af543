package service

import (
	"context"
	"time"

	"restaurant-pos/internal/domain"
)

// Catalog resolves menu items for snapshotting into order lines.
type Catalog interface {
	Item(ctx context.Context, id string) (domain.MenuItem, error)
}

// FolioAllocator hands out the next global order number.
type FolioAllocator interface {
	Next(ctx context.Context) (int64, error)
}

// TicketDispatcher delivers a ticket payload to the renderer.
type TicketDispatcher interface {
	Dispatch(ctx context.Context, t domain.Ticket) error
}

// SalesLedger stores a sale. queued reports that the sale was kept locally
// for a later retry instead of reaching the ledger.
type SalesLedger interface {
	Record(ctx context.Context, sale domain.SaleRecord) (queued bool, err error)
}

// InventoryDeductor applies recipe consumption for a sale.
type InventoryDeductor interface {
	Deduct(ctx context.Context, saleID string, lines []domain.OrderLine) error
}

// Journal receives order lifecycle events.
type Journal interface {
	Append(ctx context.Context, ev domain.LifecycleEvent) error
}

// CustomerDirectory keeps takeout and delivery customers.
type CustomerDirectory interface {
	Get(ctx context.Context, id string) (domain.CustomerRecord, error)
	Remember(ctx context.Context, c domain.Customer, address string) (domain.CustomerRecord, error)
}

type Clock func() time.Time
