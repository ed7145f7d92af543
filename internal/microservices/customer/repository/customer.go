package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/domain"
)

type CustomerRepositoryInterface interface {
	Search(ctx context.Context, query string, limit int) ([]domain.CustomerRecord, error)
	Get(ctx context.Context, id string) (domain.CustomerRecord, error)
	ByPhone(ctx context.Context, phone string) (domain.CustomerRecord, error)
	Upsert(ctx context.Context, c domain.CustomerRecord) error
}

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		phone      TEXT NOT NULL DEFAULT '',
		addresses  JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS customers_phone_uq ON customers(phone) WHERE phone <> ''`,
}

const customerColumns = `id, name, phone, addresses, created_at, updated_at`

type CustomerRepository struct {
	db *db.Conn
}

func NewCustomerRepository(conn *db.Conn) *CustomerRepository {
	return &CustomerRepository{db: conn}
}

// Search matches the name case-insensitively or the phone as typed. An
// empty query lists the directory by name.
func (r *CustomerRepository) Search(ctx context.Context, query string, limit int) ([]domain.CustomerRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+customerColumns+` FROM customers
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR phone LIKE '%' || $1 || '%'
		ORDER BY name, id
		LIMIT $2`, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search customers: %w", err)
	}
	defer rows.Close()

	var out []domain.CustomerRecord
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CustomerRepository) Get(ctx context.Context, id string) (domain.CustomerRecord, error) {
	return r.one(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
}

func (r *CustomerRepository) ByPhone(ctx context.Context, phone string) (domain.CustomerRecord, error) {
	return r.one(ctx, `SELECT `+customerColumns+` FROM customers WHERE phone = $1 AND phone <> ''`, phone)
}

func (r *CustomerRepository) one(ctx context.Context, query, arg string) (domain.CustomerRecord, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CustomerRecord{}, fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, arg)
	}
	return c, err
}

func (r *CustomerRepository) Upsert(ctx context.Context, c domain.CustomerRecord) error {
	addrs := c.Addresses
	if addrs == nil {
		addrs = []string{}
	}
	b, err := json.Marshal(addrs)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO customers (id, name, phone, addresses, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
		    name = EXCLUDED.name, phone = EXCLUDED.phone,
		    addresses = EXCLUDED.addresses, updated_at = EXCLUDED.updated_at`,
		c.ID, c.Name, c.Phone, b, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert customer %s: %w", c.ID, err)
	}
	return nil
}

func scanCustomer(row pgx.Row) (domain.CustomerRecord, error) {
	var (
		c     domain.CustomerRecord
		addrs []byte
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &addrs, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.CustomerRecord{}, err
	}
	if err := json.Unmarshal(addrs, &c.Addresses); err != nil {
		return domain.CustomerRecord{}, fmt.Errorf("customer %s addresses: %w", c.ID, err)
	}
	return c, nil
}

type MemoryCustomers struct {
	mu        sync.RWMutex
	customers map[string]domain.CustomerRecord
}

func NewMemoryCustomers(cs ...domain.CustomerRecord) *MemoryCustomers {
	m := &MemoryCustomers{customers: make(map[string]domain.CustomerRecord)}
	for _, c := range cs {
		_ = m.Upsert(context.Background(), c)
	}
	return m
}

func (m *MemoryCustomers) Search(_ context.Context, query string, limit int) ([]domain.CustomerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	query = strings.TrimSpace(query)
	lower := strings.ToLower(query)
	var out []domain.CustomerRecord
	for _, c := range m.customers {
		if query == "" || strings.Contains(strings.ToLower(c.Name), lower) || strings.Contains(c.Phone, query) {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryCustomers) Get(_ context.Context, id string) (domain.CustomerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[id]
	if !ok {
		return domain.CustomerRecord{}, fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, id)
	}
	return clone(c), nil
}

func (m *MemoryCustomers) ByPhone(_ context.Context, phone string) (domain.CustomerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.customers {
		if phone != "" && c.Phone == phone {
			return clone(c), nil
		}
	}
	return domain.CustomerRecord{}, fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, phone)
}

func (m *MemoryCustomers) Upsert(_ context.Context, c domain.CustomerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m.customers[c.ID] = clone(c)
	return nil
}

func clone(c domain.CustomerRecord) domain.CustomerRecord {
	c.Addresses = append([]string{}, c.Addresses...)
	return c
}
