package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/domain"
)

type OrderRepository struct {
	db *db.Conn
}

func NewOrderRepository(conn *db.Conn) *OrderRepository {
	return &OrderRepository{db: conn}
}

const orderColumns = `
	id, kind, table_number, name, status, pending_lines, committed_lines,
	COALESCE(merged_into, ''), started_at, order_number, discount::text,
	customer, delivery_address, updated_at, version`

func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY kind DESC, table_number, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OrderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return o, err
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o                  domain.Order
		kind, status, disc string
		pending, committed []byte
		customer           []byte
		startedAt          *time.Time
		orderNumber        *int64
	)
	if err := row.Scan(&o.ID, &kind, &o.TableNumber, &o.Name, &status, &pending, &committed,
		&o.MergedInto, &startedAt, &orderNumber, &disc, &customer, &o.DeliveryAddress, &o.UpdatedAt, &o.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("failed to scan order: %w", err)
	}
	o.Kind = domain.OrderKind(kind)
	o.Status = domain.OrderStatus(status)
	o.StartedAt = startedAt
	o.OrderNumber = orderNumber
	var err error
	if o.Discount, err = decimal.NewFromString(disc); err != nil {
		return domain.Order{}, fmt.Errorf("order %s discount: %w", o.ID, err)
	}
	if err := json.Unmarshal(pending, &o.PendingLines); err != nil {
		return domain.Order{}, fmt.Errorf("order %s pending lines: %w", o.ID, err)
	}
	if err := json.Unmarshal(committed, &o.CommittedLines); err != nil {
		return domain.Order{}, fmt.Errorf("order %s committed lines: %w", o.ID, err)
	}
	if len(customer) > 0 && string(customer) != "null" {
		o.Customer = &domain.Customer{}
		if err := json.Unmarshal(customer, o.Customer); err != nil {
			return domain.Order{}, fmt.Errorf("order %s customer: %w", o.ID, err)
		}
	}
	return o, nil
}

func (r *OrderRepository) Save(ctx context.Context, orders ...domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, o := range orders {
		if err := writeOrder(ctx, tx, o); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// writeOrder inserts a new order (Version 0) or updates the row still at
// o.Version. Anything else means another terminal wrote first.
func writeOrder(ctx context.Context, tx pgx.Tx, o domain.Order) error {
	pending, err := json.Marshal(nonNil(o.PendingLines))
	if err != nil {
		return err
	}
	committed, err := json.Marshal(nonNil(o.CommittedLines))
	if err != nil {
		return err
	}
	var customer []byte
	if o.Customer != nil {
		if customer, err = json.Marshal(o.Customer); err != nil {
			return err
		}
	}

	var tag pgconn.CommandTag
	if o.Version == 0 {
		tag, err = tx.Exec(ctx, `
			INSERT INTO orders
			    (id, kind, table_number, name, status, pending_lines, committed_lines, merged_into,
			     started_at, order_number, discount, customer, delivery_address, updated_at, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11::numeric, $12, $13, NOW(), 1)
			ON CONFLICT (id) DO NOTHING`,
			o.ID, string(o.Kind), o.TableNumber, o.Name, string(o.Status), pending, committed, o.MergedInto,
			o.StartedAt, o.OrderNumber, o.Discount.String(), customer, o.DeliveryAddress,
		)
	} else {
		tag, err = tx.Exec(ctx, `
			UPDATE orders SET
			    name = $2,
			    status = $3,
			    pending_lines = $4,
			    committed_lines = $5,
			    merged_into = NULLIF($6, ''),
			    started_at = $7,
			    order_number = $8,
			    discount = $9::numeric,
			    customer = $10,
			    delivery_address = $11,
			    updated_at = NOW(),
			    version = orders.version + 1
			WHERE orders.id = $1 AND orders.version = $12`,
			o.ID, o.Name, string(o.Status), pending, committed, o.MergedInto,
			o.StartedAt, o.OrderNumber, o.Discount.String(), customer, o.DeliveryAddress, o.Version,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to save order %s: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s at version %d", domain.ErrStaleOrder, o.ID, o.Version)
	}
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string, version int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("failed to delete order %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s at version %d", domain.ErrStaleOrder, id, version)
	}
	return nil
}

type DraftRepository struct {
	db *db.Conn
}

func NewDraftRepository(conn *db.Conn) *DraftRepository {
	return &DraftRepository{db: conn}
}

func (r *DraftRepository) SaveDraft(ctx context.Context, orderID string, lines []domain.OrderLine) error {
	b, err := json.Marshal(nonNil(lines))
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO order_drafts (order_id, lines, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (order_id) DO UPDATE SET lines = EXCLUDED.lines, updated_at = NOW()`,
		orderID, b)
	if err != nil {
		return fmt.Errorf("failed to save draft %s: %w", orderID, err)
	}
	return nil
}

func (r *DraftRepository) DeleteDraft(ctx context.Context, orderID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM order_drafts WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("failed to delete draft %s: %w", orderID, err)
	}
	return nil
}

func (r *DraftRepository) Drafts(ctx context.Context) (map[string][]domain.OrderLine, error) {
	rows, err := r.db.Query(ctx, `SELECT order_id, lines FROM order_drafts`)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderLine)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var lines []domain.OrderLine
		if err := json.Unmarshal(raw, &lines); err != nil {
			return nil, fmt.Errorf("draft %s: %w", id, err)
		}
		out[id] = lines
	}
	return out, rows.Err()
}

func nonNil(lines []domain.OrderLine) []domain.OrderLine {
	if lines == nil {
		return []domain.OrderLine{}
	}
	return lines
}
