package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/domain"
)

type ExpenseRepository struct {
	db *db.Conn
}

func NewExpenseRepository(conn *db.Conn) *ExpenseRepository {
	return &ExpenseRepository{db: conn}
}

func (r *ExpenseRepository) Add(ctx context.Context, e domain.Expense) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO expenses (id, description, category, amount, date, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)`,
		e.ID, e.Description, e.Category, e.Amount.String(), e.Date, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

func (r *ExpenseRepository) Range(ctx context.Context, from, to time.Time) ([]domain.Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, description, category, amount::text, date, created_at
		FROM expenses
		WHERE date >= $1 AND date < $2
		ORDER BY date DESC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var out []domain.Expense
	for rows.Next() {
		var (
			e      domain.Expense
			amount string
		)
		if err := rows.Scan(&e.ID, &e.Description, &e.Category, &amount, &e.Date, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("expense %s amount: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrExpenseNotFound, id)
	}
	return nil
}
