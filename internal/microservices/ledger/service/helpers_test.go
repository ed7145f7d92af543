package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/ledger/repository"
)

var errDown = errors.New("connection refused")

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal { v := d(s); return &v }

// downSales fails every call while down is set.
type downSales struct {
	*repository.MemorySales
	mu   sync.Mutex
	down bool
}

func newDownSales() *downSales { return &downSales{MemorySales: repository.NewMemorySales()} }

func (s *downSales) set(down bool) { s.mu.Lock(); s.down = down; s.mu.Unlock() }

func (s *downSales) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return errDown
	}
	return nil
}

func (s *downSales) Upsert(ctx context.Context, sale domain.SaleRecord) error {
	if err := s.err(); err != nil {
		return err
	}
	return s.MemorySales.Upsert(ctx, sale)
}

func (s *downSales) Cancel(ctx context.Context, id string, at time.Time) error {
	if err := s.err(); err != nil {
		return err
	}
	return s.MemorySales.Cancel(ctx, id, at)
}

func (s *downSales) Range(ctx context.Context, from, to time.Time) ([]domain.SaleRecord, error) {
	if err := s.err(); err != nil {
		return nil, err
	}
	return s.MemorySales.Range(ctx, from, to)
}

type brokenOutbox struct{ *repository.MemoryOutbox }

func (brokenOutbox) Enqueue(context.Context, repository.OutboxKind, string, []byte) error {
	return errors.New("disk full")
}

type recordingTickets struct {
	err  error
	sent []domain.Ticket
}

func (r *recordingTickets) Dispatch(_ context.Context, t domain.Ticket) error {
	r.sent = append(r.sent, t)
	return r.err
}

func sale(id string, method domain.PaymentMethod, total, tip string, at time.Time) domain.SaleRecord {
	return domain.SaleRecord{
		ID: id, OrderID: "order-" + id, OriginName: "Mesa 1",
		Items:    []domain.OrderLine{{MenuItemID: "taco", Name: "Taco", UnitPrice: d(total), Quantity: 1}},
		Subtotal: d(total), Total: d(total), Tip: d(tip),
		PaymentMethod: method, Status: domain.SaleCompleted, CreatedAt: at,
	}
}
