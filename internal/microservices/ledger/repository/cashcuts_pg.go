package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/domain"
)

type CashCutRepository struct {
	db *db.Conn
}

func NewCashCutRepository(conn *db.Conn) *CashCutRepository {
	return &CashCutRepository{db: conn}
}

const cashCutColumns = `id, operator, period_start, period_end, cash_sales::text, digital_sales::text,
	total_sales::text, tips::text, expenses::text, expected_cash::text, counted_cash::text,
	difference::text, left_in_drawer::text, to_withdraw::text, cancelled_count,
	cancelled_total::text, created_at`

func (r *CashCutRepository) Add(ctx context.Context, c domain.CashCut) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO cash_cuts
		    (id, operator, period_start, period_end, cash_sales, digital_sales, total_sales, tips,
		     expenses, expected_cash, counted_cash, difference, left_in_drawer, to_withdraw,
		     cancelled_count, cancelled_total, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric,
		        $10::numeric, $11::numeric, $12::numeric, $13::numeric, $14::numeric, $15, $16::numeric, $17)`,
		c.ID, c.Operator, c.PeriodStart, c.PeriodEnd, c.CashSales.String(), c.DigitalSales.String(),
		c.TotalSales.String(), c.Tips.String(), c.Expenses.String(), c.ExpectedCash.String(),
		c.CountedCash.String(), c.Difference.String(), c.LeftInDrawer.String(), c.ToWithdraw.String(),
		c.CancelledCount, c.CancelledTotal.String(), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert cash cut: %w", err)
	}
	return nil
}

func (r *CashCutRepository) List(ctx context.Context, limit, offset int) ([]domain.CashCut, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+cashCutColumns+`
		FROM cash_cuts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list cash cuts: %w", err)
	}
	defer rows.Close()

	var out []domain.CashCut
	for rows.Next() {
		c, err := scanCashCut(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CashCutRepository) Last(ctx context.Context) (*domain.CashCut, error) {
	row := r.db.QueryRow(ctx, `SELECT `+cashCutColumns+` FROM cash_cuts ORDER BY created_at DESC LIMIT 1`)
	c, err := scanCashCut(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCashCut(row pgx.Row) (domain.CashCut, error) {
	var (
		c       domain.CashCut
		amounts [11]string
	)
	if err := row.Scan(&c.ID, &c.Operator, &c.PeriodStart, &c.PeriodEnd,
		&amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4], &amounts[5],
		&amounts[6], &amounts[7], &amounts[8], &amounts[9], &c.CancelledCount, &amounts[10],
		&c.CreatedAt); err != nil {
		return domain.CashCut{}, err
	}
	dst := []*decimal.Decimal{
		&c.CashSales, &c.DigitalSales, &c.TotalSales, &c.Tips, &c.Expenses, &c.ExpectedCash,
		&c.CountedCash, &c.Difference, &c.LeftInDrawer, &c.ToWithdraw, &c.CancelledTotal,
	}
	for i, s := range amounts {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return domain.CashCut{}, fmt.Errorf("cash cut %s amount: %w", c.ID, err)
		}
		*dst[i] = d
	}
	return c, nil
}
