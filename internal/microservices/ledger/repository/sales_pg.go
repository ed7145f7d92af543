package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/domain"
)

type SalesRepository struct {
	db *db.Conn
}

func NewSalesRepository(conn *db.Conn) *SalesRepository {
	return &SalesRepository{db: conn}
}

const saleColumns = `id, order_id, order_number, origin_name, items, subtotal::text, discount::text,
	tip::text, total::text, payment_method, operator, status, created_at, cancelled_at`

func (r *SalesRepository) Upsert(ctx context.Context, s domain.SaleRecord) error {
	items, err := json.Marshal(s.Items)
	if err != nil {
		return err
	}
	if s.Status == "" {
		s.Status = domain.SaleCompleted
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO sales
		    (id, order_id, order_number, origin_name, items, subtotal, discount, tip, total,
		     payment_method, operator, status, created_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
		    status = EXCLUDED.status,
		    cancelled_at = EXCLUDED.cancelled_at`,
		s.ID, s.OrderID, s.OrderNumber, s.OriginName, items,
		s.Subtotal.String(), s.Discount.String(), s.Tip.String(), s.Total.String(),
		string(s.PaymentMethod), s.Operator, string(s.Status), s.CreatedAt, s.CancelledAt)
	if err != nil {
		return fmt.Errorf("failed to upsert sale %s: %w", s.ID, err)
	}
	return nil
}

func (r *SalesRepository) Get(ctx context.Context, id string) (domain.SaleRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	s, err := scanSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SaleRecord{}, fmt.Errorf("%w: %s", domain.ErrSaleNotFound, id)
	}
	return s, err
}

func (r *SalesRepository) Range(ctx context.Context, from, to time.Time) ([]domain.SaleRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	var out []domain.SaleRecord
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SalesRepository) Cancel(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sales SET status = 'cancelled', cancelled_at = $2
		WHERE id = $1 AND status <> 'cancelled'`, id, at)
	if err != nil {
		return fmt.Errorf("failed to cancel sale %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sales WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", domain.ErrSaleNotFound, id)
		}
	}
	return nil
}

func scanSale(row pgx.Row) (domain.SaleRecord, error) {
	var (
		s                     domain.SaleRecord
		items                 []byte
		sub, disc, tip, total string
		method, status        string
	)
	if err := row.Scan(&s.ID, &s.OrderID, &s.OrderNumber, &s.OriginName, &items, &sub, &disc,
		&tip, &total, &method, &s.Operator, &status, &s.CreatedAt, &s.CancelledAt); err != nil {
		return domain.SaleRecord{}, err
	}
	if err := json.Unmarshal(items, &s.Items); err != nil {
		return domain.SaleRecord{}, fmt.Errorf("sale %s items: %w", s.ID, err)
	}
	var err error
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{{&s.Subtotal, sub}, {&s.Discount, disc}, {&s.Tip, tip}, {&s.Total, total}} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return domain.SaleRecord{}, fmt.Errorf("sale %s amount: %w", s.ID, err)
		}
	}
	s.PaymentMethod = domain.PaymentMethod(method)
	s.Status = domain.SaleStatus(status)
	return s, nil
}
