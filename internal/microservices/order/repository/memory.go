package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"restaurant-pos/internal/domain"
)

type MemoryOrders struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

func NewMemoryOrders() *MemoryOrders {
	return &MemoryOrders{orders: make(map[string]domain.Order)}
}

func (m *MemoryOrders) List(_ context.Context) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryOrders) Get(_ context.Context, id string) (domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return o.Clone(), nil
}

func (m *MemoryOrders) Save(_ context.Context, orders ...domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		if err := m.check(o.ID, o.Version); err != nil {
			return err
		}
	}
	for _, o := range orders {
		c := o.Clone()
		c.Version++
		m.orders[o.ID] = c
	}
	return nil
}

func (m *MemoryOrders) Delete(_ context.Context, id string, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return fmt.Errorf("%w: %s at version %d", domain.ErrStaleOrder, id, version)
	}
	if err := m.check(id, version); err != nil {
		return err
	}
	delete(m.orders, id)
	return nil
}

func (m *MemoryOrders) check(id string, version int64) error {
	var stored int64
	if o, ok := m.orders[id]; ok {
		stored = o.Version
	}
	if stored != version {
		return fmt.Errorf("%w: %s at version %d", domain.ErrStaleOrder, id, version)
	}
	return nil
}

type MemoryDrafts struct {
	mu     sync.RWMutex
	drafts map[string][]domain.OrderLine
}

func NewMemoryDrafts() *MemoryDrafts {
	return &MemoryDrafts{drafts: make(map[string][]domain.OrderLine)}
}

func (m *MemoryDrafts) SaveDraft(_ context.Context, orderID string, lines []domain.OrderLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[orderID] = append([]domain.OrderLine{}, lines...)
	return nil
}

func (m *MemoryDrafts) DeleteDraft(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, orderID)
	return nil
}

func (m *MemoryDrafts) Drafts(_ context.Context) (map[string][]domain.OrderLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]domain.OrderLine, len(m.drafts))
	for k, v := range m.drafts {
		out[k] = append([]domain.OrderLine{}, v...)
	}
	return out, nil
}
