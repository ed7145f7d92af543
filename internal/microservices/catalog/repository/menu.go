package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/domain"
)

type MenuRepositoryInterface interface {
	List(ctx context.Context) ([]domain.MenuItem, error)
	Get(ctx context.Context, id string) (domain.MenuItem, error)
	Upsert(ctx context.Context, item domain.MenuItem) error
	Delete(ctx context.Context, id string) error
}

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS menu_items (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		price      NUMERIC(12,2) NOT NULL,
		category   TEXT NOT NULL DEFAULT 'Otros',
		recipe     JSONB NOT NULL DEFAULT '[]',
		position   BIGSERIAL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

type MenuRepository struct {
	db *db.Conn
}

func NewMenuRepository(conn *db.Conn) *MenuRepository {
	return &MenuRepository{db: conn}
}

// List returns items in insertion order; category order is decided above.
func (r *MenuRepository) List(ctx context.Context) ([]domain.MenuItem, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, price::text, category, recipe FROM menu_items ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu: %w", err)
	}
	defer rows.Close()

	var out []domain.MenuItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *MenuRepository) Get(ctx context.Context, id string) (domain.MenuItem, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, price::text, category, recipe FROM menu_items WHERE id = $1`, id)
	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MenuItem{}, fmt.Errorf("%w: %s", domain.ErrMenuItemNotFound, id)
	}
	return it, err
}

func (r *MenuRepository) Upsert(ctx context.Context, item domain.MenuItem) error {
	recipe := item.Recipe
	if recipe == nil {
		recipe = []domain.RecipeComponent{}
	}
	b, err := json.Marshal(recipe)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO menu_items (id, name, price, category, recipe, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
		    name = EXCLUDED.name, price = EXCLUDED.price, category = EXCLUDED.category,
		    recipe = EXCLUDED.recipe, updated_at = NOW()`,
		item.ID, item.Name, item.Price.String(), item.Category, b)
	if err != nil {
		return fmt.Errorf("failed to upsert menu item %s: %w", item.ID, err)
	}
	return nil
}

func (r *MenuRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete menu item %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrMenuItemNotFound, id)
	}
	return nil
}

func scanItem(row pgx.Row) (domain.MenuItem, error) {
	var (
		it     domain.MenuItem
		price  string
		recipe []byte
	)
	if err := row.Scan(&it.ID, &it.Name, &price, &it.Category, &recipe); err != nil {
		return domain.MenuItem{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("menu item %s price: %w", it.ID, err)
	}
	it.Price = p
	if len(recipe) > 0 {
		if err := json.Unmarshal(recipe, &it.Recipe); err != nil {
			return domain.MenuItem{}, fmt.Errorf("menu item %s recipe: %w", it.ID, err)
		}
	}
	return it, nil
}

type MemoryMenu struct {
	mu    sync.RWMutex
	order []string
	items map[string]domain.MenuItem
}

func NewMemoryMenu(items ...domain.MenuItem) *MemoryMenu {
	m := &MemoryMenu{items: make(map[string]domain.MenuItem)}
	for _, it := range items {
		_ = m.Upsert(context.Background(), it)
	}
	return m
}

func (m *MemoryMenu) List(_ context.Context) ([]domain.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.MenuItem, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.items[id])
	}
	return out, nil
}

func (m *MemoryMenu) Get(_ context.Context, id string) (domain.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return domain.MenuItem{}, fmt.Errorf("%w: %s", domain.ErrMenuItemNotFound, id)
	}
	return it, nil
}

func (m *MemoryMenu) Upsert(_ context.Context, item domain.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		m.order = append(m.order, item.ID)
	}
	m.items[item.ID] = item
	return nil
}

func (m *MemoryMenu) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrMenuItemNotFound, id)
	}
	delete(m.items, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
