package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/inventory/repository"
)

// MenuLookup resolves sold lines to their recipes.
type MenuLookup interface {
	Item(ctx context.Context, id string) (domain.MenuItem, error)
	ItemByName(ctx context.Context, name string) (domain.MenuItem, error)
}

// ExpenseRecorder books purchases as expenses.
type ExpenseRecorder interface {
	AddExpense(ctx context.Context, e domain.Expense) (domain.Expense, error)
}

type InventoryServiceInterface interface {
	Deduct(ctx context.Context, saleID string, lines []domain.OrderLine) error
	List(ctx context.Context) ([]domain.Ingredient, error)
	LowStock(ctx context.Context) ([]domain.Ingredient, error)
	Save(ctx context.Context, ing domain.Ingredient) (domain.Ingredient, error)
	Delete(ctx context.Context, id string) error
	RecordPurchase(ctx context.Context, p domain.Purchase) (domain.Purchase, error)
}

type InventoryService struct {
	repo     repository.StockRepositoryInterface
	menu     MenuLookup
	expenses ExpenseRecorder
	lg       *logger.Logger
	now      func() time.Time
}

func NewInventoryService(repo repository.StockRepositoryInterface, menu MenuLookup, expenses ExpenseRecorder, lg *logger.Logger) *InventoryService {
	if lg == nil {
		lg = logger.Nop()
	}
	return &InventoryService{
		repo:     repo,
		menu:     menu,
		expenses: expenses,
		lg:       lg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Deduct subtracts recipe quantity times sold quantity for every ingredient
// of every sold line, once per sale. Lines whose menu item cannot be read,
// for any reason, and ingredients that are not stocked are logged and
// skipped; the rest of the sale is still deducted.
func (s *InventoryService) Deduct(ctx context.Context, saleID string, lines []domain.OrderLine) error {
	amounts := make(map[string]decimal.Decimal)
	for _, l := range lines {
		item, err := s.lookup(ctx, l)
		if err != nil {
			metrics.InventorySkips.Inc()
			fields := map[string]any{"sale_id": saleID, "menu_item_id": l.MenuItemID, "name": l.Name}
			if errors.Is(err, domain.ErrMenuItemNotFound) {
				s.lg.Warn("inventory_item_skipped", fields)
			} else {
				s.lg.Error("inventory_item_lookup_failed", err, fields)
			}
			continue
		}
		sold := decimal.NewFromInt(int64(l.Quantity))
		for _, c := range item.Recipe {
			amounts[c.IngredientID] = amounts[c.IngredientID].Add(c.QuantityPerUnit.Mul(sold))
		}
	}
	if len(amounts) == 0 {
		return nil
	}

	applied, missing, err := s.repo.ApplyDeduction(ctx, saleID, amounts)
	if err != nil {
		return fmt.Errorf("deduct stock for sale %s: %w", saleID, err)
	}
	if !applied {
		s.lg.Info("inventory_already_deducted", map[string]any{"sale_id": saleID})
		return nil
	}
	for _, id := range missing {
		metrics.InventorySkips.Inc()
		s.lg.Warn("ingredient_not_found", map[string]any{"sale_id": saleID, "ingredient_id": id})
	}
	s.lg.Debug("inventory_deducted", map[string]any{"sale_id": saleID, "ingredients": len(amounts) - len(missing)})
	return nil
}

func (s *InventoryService) lookup(ctx context.Context, l domain.OrderLine) (domain.MenuItem, error) {
	if l.MenuItemID != "" {
		item, err := s.menu.Item(ctx, l.MenuItemID)
		if err == nil || !errors.Is(err, domain.ErrMenuItemNotFound) {
			return item, err
		}
	}
	return s.menu.ItemByName(ctx, l.Name)
}

func (s *InventoryService) List(ctx context.Context) ([]domain.Ingredient, error) {
	return s.repo.List(ctx)
}

func (s *InventoryService) LowStock(ctx context.Context) ([]domain.Ingredient, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Ingredient
	for _, ing := range all {
		if ing.IsLow() {
			out = append(out, ing)
		}
	}
	return out, nil
}

func (s *InventoryService) Save(ctx context.Context, ing domain.Ingredient) (domain.Ingredient, error) {
	if strings.TrimSpace(ing.Name) == "" {
		return domain.Ingredient{}, errors.New("ingredient name is required")
	}
	if ing.ID == "" {
		ing.ID = uuid.NewString()
	}
	if ing.Unit == "" {
		ing.Unit = "Pieza"
	}
	if err := s.repo.Upsert(ctx, ing); err != nil {
		return domain.Ingredient{}, err
	}
	return ing, nil
}

func (s *InventoryService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// RecordPurchase adds the purchased quantities to stock and books the
// invoice total as an "Insumos" expense.
func (s *InventoryService) RecordPurchase(ctx context.Context, p domain.Purchase) (domain.Purchase, error) {
	if len(p.Items) == 0 {
		return domain.Purchase{}, errors.New("purchase has no items")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if p.Merchant == "" {
		p.Merchant = "Proveedor Desconocido"
	}
	if p.TotalAmount.IsZero() {
		for _, it := range p.Items {
			p.TotalAmount = p.TotalAmount.Add(it.Quantity.Mul(it.UnitPrice))
		}
	}
	if err := s.repo.Receive(ctx, p, uuid.NewString); err != nil {
		return domain.Purchase{}, err
	}
	if s.expenses != nil {
		if _, err := s.expenses.AddExpense(ctx, domain.Expense{
			Description: "Compra: " + p.Merchant,
			Category:    "Insumos",
			Amount:      p.TotalAmount,
			Date:        p.CreatedAt,
		}); err != nil {
			s.lg.Error("purchase_expense_failed", err, map[string]any{"purchase_id": p.ID})
			return p, fmt.Errorf("stock received but expense not recorded: %w", err)
		}
	}
	s.lg.Info("purchase_recorded", map[string]any{"purchase_id": p.ID, "merchant": p.Merchant, "items": len(p.Items)})
	return p, nil
}
