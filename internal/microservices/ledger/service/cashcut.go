package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/ledger/repository"
)

// TicketDispatcher prints the cash-cut slip.
type TicketDispatcher interface {
	Dispatch(ctx context.Context, t domain.Ticket) error
}

type CashCutRequest struct {
	Operator string
	Counted  *decimal.Decimal
	Left     *decimal.Decimal
}

type CashCutResult struct {
	Cut      domain.CashCut `json:"cash_cut"`
	Warnings []string       `json:"warnings,omitempty"`
}

type CashCutServiceInterface interface {
	Preview(ctx context.Context, counted, left decimal.Decimal) (domain.CashCut, error)
	Perform(ctx context.Context, req CashCutRequest) (CashCutResult, error)
	List(ctx context.Context, limit, offset int) ([]domain.CashCut, error)
}

type CashCutService struct {
	ledger   *Ledger
	expenses repository.ExpenseRepositoryInterface
	cuts     repository.CashCutRepositoryInterface
	tickets  TicketDispatcher
	loc      *time.Location
	lg       *logger.Logger
	now      func() time.Time
}

func NewCashCutService(ledger *Ledger, expenses repository.ExpenseRepositoryInterface, cuts repository.CashCutRepositoryInterface,
	tickets TicketDispatcher, loc *time.Location, lg *logger.Logger) *CashCutService {
	if loc == nil {
		loc = time.Local
	}
	if lg == nil {
		lg = logger.Nop()
	}
	return &CashCutService{
		ledger: ledger, expenses: expenses, cuts: cuts, tickets: tickets,
		loc: loc, lg: lg, now: time.Now,
	}
}

// period covers the current business day, starting after the last cut if
// one was already taken today.
func (s *CashCutService) period(ctx context.Context) (time.Time, time.Time, error) {
	now := s.now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	last, err := s.cuts.Last(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if last != nil && last.PeriodEnd.After(start) && !last.PeriodEnd.After(now) {
		start = last.PeriodEnd.Add(time.Nanosecond).In(s.loc)
	}
	return start.UTC(), now.UTC(), nil
}

func (s *CashCutService) reconcile(ctx context.Context, counted, left decimal.Decimal) (domain.CashCut, error) {
	from, to, err := s.period(ctx)
	if err != nil {
		return domain.CashCut{}, err
	}
	// periods are closed on both ends
	sales, err := s.ledger.Sales(ctx, from, to.Add(time.Nanosecond))
	if err != nil {
		return domain.CashCut{}, fmt.Errorf("load sales: %w", err)
	}
	exps, err := s.expenses.Range(ctx, from, to.Add(time.Nanosecond))
	if err != nil {
		return domain.CashCut{}, fmt.Errorf("load expenses: %w", err)
	}
	c := Reconcile(sales, exps, counted, left)
	c.PeriodStart, c.PeriodEnd = from, to
	return c, nil
}

func (s *CashCutService) Preview(ctx context.Context, counted, left decimal.Decimal) (domain.CashCut, error) {
	return s.reconcile(ctx, counted, left)
}

// Perform stores the cut and prints its slip. A print failure is returned
// as a warning; the cut stays recorded.
func (s *CashCutService) Perform(ctx context.Context, req CashCutRequest) (CashCutResult, error) {
	if req.Counted == nil {
		return CashCutResult{}, fmt.Errorf("%w: counted cash is required", domain.ErrInvalidCashCut)
	}
	if req.Left == nil {
		return CashCutResult{}, fmt.Errorf("%w: amount left in drawer is required", domain.ErrInvalidCashCut)
	}
	if req.Counted.IsNegative() || req.Left.IsNegative() {
		return CashCutResult{}, fmt.Errorf("%w: amounts must not be negative", domain.ErrInvalidCashCut)
	}

	c, err := s.reconcile(ctx, *req.Counted, *req.Left)
	if err != nil {
		return CashCutResult{}, err
	}
	c.ID = uuid.NewString()
	c.Operator = req.Operator
	c.CreatedAt = c.PeriodEnd
	if err := s.cuts.Add(ctx, c); err != nil {
		return CashCutResult{}, err
	}
	s.lg.Info("cash_cut_performed", map[string]any{
		"cash_cut_id": c.ID, "operator": c.Operator,
		"expected": c.ExpectedCash.String(), "counted": c.CountedCash.String(), "difference": c.Difference.String(),
	})

	res := CashCutResult{Cut: c}
	if s.tickets != nil {
		cut := c
		t := domain.Ticket{
			ID: uuid.NewString(), Kind: domain.TicketCashCut, Operator: c.Operator,
			Total: c.TotalSales, Tip: c.Tips, CashCut: &cut, IssuedAt: c.CreatedAt,
		}
		if err := s.tickets.Dispatch(ctx, t); err != nil {
			s.lg.Error("cash_cut_ticket_failed", err, map[string]any{"cash_cut_id": c.ID})
			res.Warnings = append(res.Warnings, "cash cut saved but the ticket could not be printed")
		}
	}
	return res, nil
}

func (s *CashCutService) List(ctx context.Context, limit, offset int) ([]domain.CashCut, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.cuts.List(ctx, limit, offset)
}
