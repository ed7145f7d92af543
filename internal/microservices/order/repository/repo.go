package repository

import (
	"context"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/domain"
)

// OrderRepositoryInterface persists the active order collection shared by
// every terminal. Save applies all given orders atomically and only when
// each stored row is still at the order's Version (0 for a new order);
// otherwise nothing is written and the error wraps domain.ErrStaleOrder.
// A successful Save leaves each row at Version+1.
type OrderRepositoryInterface interface {
	List(ctx context.Context) ([]domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	Save(ctx context.Context, orders ...domain.Order) error
	Delete(ctx context.Context, id string, version int64) error
}

// DraftRepositoryInterface keeps parked pending lines keyed by order id.
type DraftRepositoryInterface interface {
	SaveDraft(ctx context.Context, orderID string, lines []domain.OrderLine) error
	DeleteDraft(ctx context.Context, orderID string) error
	Drafts(ctx context.Context) (map[string][]domain.OrderLine, error)
}

type Repository struct {
	OrderRepo OrderRepositoryInterface
	DraftRepo DraftRepositoryInterface
}

func New(conn *db.Conn) *Repository {
	return &Repository{
		OrderRepo: NewOrderRepository(conn),
		DraftRepo: NewDraftRepository(conn),
	}
}

func NewMemory() *Repository {
	return &Repository{
		OrderRepo: NewMemoryOrders(),
		DraftRepo: NewMemoryDrafts(),
	}
}
