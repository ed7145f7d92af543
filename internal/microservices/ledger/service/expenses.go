package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/ledger/repository"
)

type ExpenseServiceInterface interface {
	AddExpense(ctx context.Context, e domain.Expense) (domain.Expense, error)
	Expenses(ctx context.Context, from, to time.Time) ([]domain.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
}

type ExpenseService struct {
	repo repository.ExpenseRepositoryInterface
	now  func() time.Time
}

func NewExpenseService(repo repository.ExpenseRepositoryInterface) *ExpenseService {
	return &ExpenseService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *ExpenseService) AddExpense(ctx context.Context, e domain.Expense) (domain.Expense, error) {
	if strings.TrimSpace(e.Description) == "" {
		return domain.Expense{}, errors.New("expense description is required")
	}
	if !e.Amount.IsPositive() {
		return domain.Expense{}, errors.New("expense amount must be positive")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = s.now()
	if e.Date.IsZero() {
		e.Date = e.CreatedAt
	}
	if err := s.repo.Add(ctx, e); err != nil {
		return domain.Expense{}, err
	}
	return e, nil
}

func (s *ExpenseService) Expenses(ctx context.Context, from, to time.Time) ([]domain.Expense, error) {
	return s.repo.Range(ctx, from, to)
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
