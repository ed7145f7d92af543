package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/domain"
)

type MemoryStock struct {
	mu        sync.Mutex
	items     map[string]domain.Ingredient
	deducted  map[string]bool
	Purchases []domain.Purchase
}

func NewMemoryStock(items ...domain.Ingredient) *MemoryStock {
	m := &MemoryStock{items: make(map[string]domain.Ingredient), deducted: make(map[string]bool)}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *MemoryStock) List(_ context.Context) ([]domain.Ingredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Ingredient, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStock) Get(_ context.Context, id string) (domain.Ingredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return domain.Ingredient{}, fmt.Errorf("%w: %s", domain.ErrIngredientNotFound, id)
	}
	return it, nil
}

func (m *MemoryStock) Upsert(_ context.Context, ing domain.Ingredient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[ing.ID] = ing
	return nil
}

func (m *MemoryStock) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrIngredientNotFound, id)
	}
	delete(m.items, id)
	return nil
}

func (m *MemoryStock) ApplyDeduction(_ context.Context, saleID string, amounts map[string]decimal.Decimal) (bool, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deducted[saleID] {
		return false, nil, nil
	}
	m.deducted[saleID] = true

	var missing []string
	for id, qty := range amounts {
		it, ok := m.items[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		it.Stock = it.Stock.Sub(qty)
		m.items[id] = it
	}
	sort.Strings(missing)
	return true, missing, nil
}

func (m *MemoryStock) Receive(_ context.Context, p domain.Purchase, newID func() string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Purchases = append(m.Purchases, p)
	for _, pi := range p.Items {
		found := false
		for id, it := range m.items {
			if strings.EqualFold(it.Name, pi.Name) {
				it.Stock = it.Stock.Add(pi.Quantity)
				it.LastCost = pi.UnitPrice
				m.items[id] = it
				found = true
				break
			}
		}
		if !found {
			id := newID()
			m.items[id] = domain.Ingredient{ID: id, Name: pi.Name, Unit: "Pieza", Stock: pi.Quantity, LastCost: pi.UnitPrice}
		}
	}
	return nil
}
