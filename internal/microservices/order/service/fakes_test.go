package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/repository"
)

type fakeCatalog struct {
	items map[string]domain.MenuItem
}

func (c *fakeCatalog) Item(_ context.Context, id string) (domain.MenuItem, error) {
	it, ok := c.items[id]
	if !ok {
		return domain.MenuItem{}, fmt.Errorf("%w: %s", domain.ErrMenuItemNotFound, id)
	}
	return it, nil
}

type fakeFolio struct {
	mu   sync.Mutex
	next int64
	err  error
}

func (f *fakeFolio) Next(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.next++
	return f.next, nil
}

type fakeTickets struct {
	mu   sync.Mutex
	sent []domain.Ticket
	err  error
}

func (f *fakeTickets) Dispatch(_ context.Context, t domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, t)
	return nil
}

func (f *fakeTickets) ofKind(kind domain.TicketKind) []domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, t := range f.sent {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

type fakeLedger struct {
	sales  []domain.SaleRecord
	err    error
	queued bool
}

func (f *fakeLedger) Record(_ context.Context, sale domain.SaleRecord) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.sales = append(f.sales, sale)
	return f.queued, nil
}

type fakeInventory struct {
	calls [][]domain.OrderLine
	err   error
}

func (f *fakeInventory) Deduct(_ context.Context, _ string, lines []domain.OrderLine) error {
	f.calls = append(f.calls, lines)
	return f.err
}

type fakeJournal struct {
	events []domain.LifecycleEvent
}

func (f *fakeJournal) Append(_ context.Context, ev domain.LifecycleEvent) error {
	f.events = append(f.events, ev)
	return nil
}

// flakyOrders fails Save while fail is set.
type flakyOrders struct {
	*repository.MemoryOrders
	fail bool
}

func (f *flakyOrders) Save(ctx context.Context, orders ...domain.Order) error {
	if f.fail {
		return errors.New("connection reset")
	}
	return f.MemoryOrders.Save(ctx, orders...)
}

type harness struct {
	svc       *OrderService
	orders    *flakyOrders
	drafts    *repository.MemoryDrafts
	catalog   *fakeCatalog
	folio     *fakeFolio
	tickets   *fakeTickets
	ledger    *fakeLedger
	inventory *fakeInventory
	journal   *fakeJournal
}

var fixedNow = time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)

func menu() map[string]domain.MenuItem {
	return map[string]domain.MenuItem{
		"taco":  {ID: "taco", Name: "Taco de Arrachera", Price: decimal.NewFromInt(50), Category: "Asada y Arrachera"},
		"agua":  {ID: "agua", Name: "Agua de Horchata", Price: decimal.NewFromInt(30), Category: "Bebidas"},
		"cafe":  {ID: "cafe", Name: "Café de Olla", Price: decimal.NewFromInt(20), Category: "Bebidas"},
		"combo": {ID: "combo", Name: "Combo Familiar", Price: decimal.NewFromInt(200), Category: "Otros"},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		orders:    &flakyOrders{MemoryOrders: repository.NewMemoryOrders()},
		drafts:    repository.NewMemoryDrafts(),
		catalog:   &fakeCatalog{items: menu()},
		folio:     &fakeFolio{next: 1000},
		tickets:   &fakeTickets{},
		ledger:    &fakeLedger{},
		inventory: &fakeInventory{},
		journal:   &fakeJournal{},
	}
	h.svc = h.build(4)
	require.NoError(t, h.svc.Load(context.Background()))
	return h
}

func (h *harness) build(tables int) *OrderService {
	ids := 0
	return NewOrderService(Config{TableCount: tables, Terminal: "caja-test"}, Deps{
		Orders:    h.orders,
		Drafts:    h.drafts,
		Catalog:   h.catalog,
		Folio:     h.folio,
		Tickets:   h.tickets,
		Ledger:    h.ledger,
		Inventory: h.inventory,
		Journal:   h.journal,
		Clock:     func() time.Time { return fixedNow },
		NewID: func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		},
	})
}

func (h *harness) add(t *testing.T, orderID, item string, qty int) domain.Order {
	t.Helper()
	o, err := h.svc.AddItem(context.Background(), orderID, AddItemRequest{MenuItemID: item, Quantity: qty})
	require.NoError(t, err)
	return o
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
