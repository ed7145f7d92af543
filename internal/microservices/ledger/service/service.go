package service

import (
	"time"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/microservices/ledger/repository"
)

type Service struct {
	Ledger         *Ledger
	CashCutService *CashCutService
	ExpenseService *ExpenseService
	ReportService  *ReportService
}

// New wires the ledger services. menu may be nil; reports then put every
// product under the default category.
func New(repo *repository.Repository, tickets TicketDispatcher, menu MenuLookup, loc *time.Location, lg *logger.Logger) *Service {
	ledger := NewLedger(repo.SalesRepo, repo.Outbox, lg)
	return &Service{
		Ledger:         ledger,
		CashCutService: NewCashCutService(ledger, repo.ExpenseRepo, repo.CashCutRepo, tickets, loc, lg),
		ExpenseService: NewExpenseService(repo.ExpenseRepo),
		ReportService:  NewReportService(ledger, repo.ExpenseRepo, menu, loc),
	}
}
