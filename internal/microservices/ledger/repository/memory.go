package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"restaurant-pos/internal/domain"
)

type MemorySales struct {
	mu    sync.Mutex
	sales map[string]domain.SaleRecord
}

func NewMemorySales() *MemorySales {
	return &MemorySales{sales: make(map[string]domain.SaleRecord)}
}

func (m *MemorySales) Upsert(_ context.Context, s domain.SaleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Status == "" {
		s.Status = domain.SaleCompleted
	}
	if prev, ok := m.sales[s.ID]; ok {
		prev.Status = s.Status
		prev.CancelledAt = s.CancelledAt
		m.sales[s.ID] = prev
		return nil
	}
	s.Items = append([]domain.OrderLine(nil), s.Items...)
	m.sales[s.ID] = s
	return nil
}

func (m *MemorySales) Get(_ context.Context, id string) (domain.SaleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[id]
	if !ok {
		return domain.SaleRecord{}, fmt.Errorf("%w: %s", domain.ErrSaleNotFound, id)
	}
	return s, nil
}

func (m *MemorySales) Range(_ context.Context, from, to time.Time) ([]domain.SaleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SaleRecord
	for _, s := range m.sales {
		if !s.CreatedAt.Before(from) && s.CreatedAt.Before(to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemorySales) Cancel(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSaleNotFound, id)
	}
	if s.IsCancelled() {
		return nil
	}
	s.Status = domain.SaleCancelled
	s.CancelledAt = &at
	m.sales[id] = s
	return nil
}

type MemoryExpenses struct {
	mu    sync.Mutex
	items []domain.Expense
}

func NewMemoryExpenses() *MemoryExpenses { return &MemoryExpenses{} }

func (m *MemoryExpenses) Add(_ context.Context, e domain.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, e)
	return nil
}

func (m *MemoryExpenses) Range(_ context.Context, from, to time.Time) ([]domain.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Expense
	for _, e := range m.items {
		if !e.Date.Before(from) && e.Date.Before(to) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *MemoryExpenses) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.items {
		if e.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrExpenseNotFound, id)
}

type MemoryCashCuts struct {
	mu   sync.Mutex
	cuts []domain.CashCut
}

func NewMemoryCashCuts() *MemoryCashCuts { return &MemoryCashCuts{} }

func (m *MemoryCashCuts) Add(_ context.Context, c domain.CashCut) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cuts = append(m.cuts, c)
	return nil
}

func (m *MemoryCashCuts) List(_ context.Context, limit, offset int) ([]domain.CashCut, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CashCut
	for i := len(m.cuts) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.cuts[i])
	}
	return out, nil
}

func (m *MemoryCashCuts) Last(_ context.Context) (*domain.CashCut, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.cuts) == 0 {
		return nil, nil
	}
	c := m.cuts[len(m.cuts)-1]
	return &c, nil
}

type MemoryOutbox struct {
	mu      sync.Mutex
	next    int64
	entries []OutboxEntry
}

func NewMemoryOutbox() *MemoryOutbox { return &MemoryOutbox{} }

func (m *MemoryOutbox) Enqueue(_ context.Context, kind OutboxKind, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.entries = append(m.entries, OutboxEntry{
		ID: m.next, Kind: kind, Key: key,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (m *MemoryOutbox) Pending(_ context.Context, limit int) ([]OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]OutboxEntry(nil), m.entries[:n]...), nil
}

func (m *MemoryOutbox) Done(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryOutbox) Failed(_ context.Context, id int64, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID == id {
			m.entries[i].Attempts++
			if cause != nil {
				m.entries[i].LastError = cause.Error()
			}
		}
	}
	return nil
}
