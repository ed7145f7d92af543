package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/domain"
)

type StockRepository struct {
	db *db.Conn
}

func NewStockRepository(conn *db.Conn) *StockRepository {
	return &StockRepository{db: conn}
}

const selectIngredient = `SELECT id, name, unit, stock::text, min_stock::text, last_cost::text FROM ingredients`

func (r *StockRepository) List(ctx context.Context) ([]domain.Ingredient, error) {
	rows, err := r.db.Query(ctx, selectIngredient+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer rows.Close()

	var out []domain.Ingredient
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ing)
	}
	return out, rows.Err()
}

func (r *StockRepository) Get(ctx context.Context, id string) (domain.Ingredient, error) {
	ing, err := scanIngredient(r.db.QueryRow(ctx, selectIngredient+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Ingredient{}, fmt.Errorf("%w: %s", domain.ErrIngredientNotFound, id)
	}
	return ing, err
}

func (r *StockRepository) Upsert(ctx context.Context, ing domain.Ingredient) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ingredients (id, name, unit, stock, min_stock, last_cost)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric)
		ON CONFLICT (id) DO UPDATE SET
		    name = EXCLUDED.name, unit = EXCLUDED.unit, stock = EXCLUDED.stock,
		    min_stock = EXCLUDED.min_stock, last_cost = EXCLUDED.last_cost`,
		ing.ID, ing.Name, ing.Unit, ing.Stock.String(), ing.MinStock.String(), ing.LastCost.String())
	if err != nil {
		return fmt.Errorf("failed to upsert ingredient %s: %w", ing.ID, err)
	}
	return nil
}

func (r *StockRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM ingredients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ingredient %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrIngredientNotFound, id)
	}
	return nil
}

func (r *StockRepository) ApplyDeduction(ctx context.Context, saleID string, amounts map[string]decimal.Decimal) (bool, []string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `INSERT INTO inventory_deductions (sale_id) VALUES ($1) ON CONFLICT DO NOTHING`, saleID)
	if err != nil {
		return false, nil, fmt.Errorf("failed to mark deduction %s: %w", saleID, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil, nil
	}

	ids := make([]string, 0, len(amounts))
	for id := range amounts {
		ids = append(ids, id)
	}
	sort.Strings(ids) // fixed lock order across terminals

	var missing []string
	for _, id := range ids {
		tag, err := tx.Exec(ctx, `UPDATE ingredients SET stock = stock - $1::numeric WHERE id = $2`, amounts[id].String(), id)
		if err != nil {
			return false, nil, fmt.Errorf("failed to deduct %s: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			missing = append(missing, id)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, missing, nil
}

func (r *StockRepository) Receive(ctx context.Context, p domain.Purchase, newID func() string) error {
	items, err := json.Marshal(p.Items)
	if err != nil {
		return err
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO purchases (id, merchant, total_amount, items, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5)`,
		p.ID, p.Merchant, p.TotalAmount.String(), items, p.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}
	for _, it := range p.Items {
		tag, err := tx.Exec(ctx, `
			UPDATE ingredients SET stock = stock + $1::numeric, last_cost = $2::numeric
			WHERE lower(name) = lower($3)`,
			it.Quantity.String(), it.UnitPrice.String(), it.Name)
		if err != nil {
			return fmt.Errorf("failed to receive %s: %w", it.Name, err)
		}
		if tag.RowsAffected() > 0 {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO ingredients (id, name, unit, stock, last_cost)
			VALUES ($1, $2, 'Pieza', $3::numeric, $4::numeric)`,
			newID(), it.Name, it.Quantity.String(), it.UnitPrice.String()); err != nil {
			return fmt.Errorf("failed to create ingredient %s: %w", it.Name, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanIngredient(row pgx.Row) (domain.Ingredient, error) {
	var (
		ing                   domain.Ingredient
		stock, minStock, cost string
	)
	if err := row.Scan(&ing.ID, &ing.Name, &ing.Unit, &stock, &minStock, &cost); err != nil {
		return domain.Ingredient{}, err
	}
	var err error
	if ing.Stock, err = decimal.NewFromString(stock); err != nil {
		return domain.Ingredient{}, err
	}
	if ing.MinStock, err = decimal.NewFromString(minStock); err != nil {
		return domain.Ingredient{}, err
	}
	if ing.LastCost, err = decimal.NewFromString(cost); err != nil {
		return domain.Ingredient{}, err
	}
	return ing, nil
}
