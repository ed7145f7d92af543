package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/ledger/service"
)

type Handler struct {
	LedgerHandler *LedgerHandler
}

func New(s *service.Service, loc *time.Location) *Handler {
	return &Handler{LedgerHandler: NewLedgerHandler(s.Ledger, s.CashCutService, s.ExpenseService, s.ReportService, loc)}
}

type LedgerHandler struct {
	ledger   service.LedgerServiceInterface
	cuts     service.CashCutServiceInterface
	expenses service.ExpenseServiceInterface
	reports  service.ReportServiceInterface
	loc      *time.Location
	now      func() time.Time
}

func NewLedgerHandler(l service.LedgerServiceInterface, c service.CashCutServiceInterface, e service.ExpenseServiceInterface,
	rep service.ReportServiceInterface, loc *time.Location) *LedgerHandler {
	if loc == nil {
		loc = time.Local
	}
	return &LedgerHandler{ledger: l, cuts: c, expenses: e, reports: rep, loc: loc, now: time.Now}
}

func (h *LedgerHandler) Routes(r chi.Router) {
	r.Get("/sales", h.Sales)
	r.Post("/sales/{sale_id}/cancel", h.CancelSale)
	r.Get("/expenses", h.Expenses)
	r.Post("/expenses", h.AddExpense)
	r.Delete("/expenses/{expense_id}", h.DeleteExpense)
	r.Get("/cash-cuts", h.CashCuts)
	r.Get("/cash-cuts/preview", h.Preview)
	r.Post("/cash-cuts", h.PerformCut)
	r.Get("/reports/daily", h.DailyReport)
	r.Get("/ledger/outbox", h.Outbox)
	r.Post("/ledger/sync", h.Sync)
}

type expenseRequest struct {
	Description string          `json:"description" validate:"required"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Date        *time.Time      `json:"date"`
}

type cashCutRequest struct {
	Operator string           `json:"operator" validate:"required"`
	Counted  *decimal.Decimal `json:"counted_cash"`
	Left     *decimal.Decimal `json:"left_in_drawer"`
}

// dayRange reads from/to as YYYY-MM-DD in the terminal's location. Both
// default to today; to is inclusive.
func (h *LedgerHandler) dayRange(r *http.Request) (time.Time, time.Time, error) {
	today := h.now().In(h.loc)
	parse := func(key string) (time.Time, error) {
		v := r.URL.Query().Get(key)
		if v == "" {
			return time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, h.loc), nil
		}
		return time.ParseInLocation(time.DateOnly, v, h.loc)
	}
	from, err := parse("from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parse("to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from.UTC(), to.AddDate(0, 0, 1).UTC(), nil
}

func (h *LedgerHandler) Sales(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.dayRange(r)
	if err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", "dates must be YYYY-MM-DD")
		return
	}
	sales, err := h.ledger.Sales(r.Context(), from, to)
	if err != nil {
		httpx.WriteProblem(w, http.StatusServiceUnavailable, "ledger_unavailable", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"sales": sales})
}

// DailyReport serves the dashboard for ?date=YYYY-MM-DD, today by default.
func (h *LedgerHandler) DailyReport(w http.ResponseWriter, r *http.Request) {
	day := h.now().In(h.loc)
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, v, h.loc)
		if err != nil {
			httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}
	rep, err := h.reports.Daily(r.Context(), day)
	if err != nil {
		httpx.WriteProblem(w, http.StatusServiceUnavailable, "ledger_unavailable", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rep)
}

func (h *LedgerHandler) CancelSale(w http.ResponseWriter, r *http.Request) {
	err := h.ledger.Cancel(r.Context(), chi.URLParam(r, "sale_id"))
	switch {
	case errors.Is(err, domain.ErrSaleNotFound):
		httpx.WriteProblem(w, http.StatusNotFound, "not_found", err.Error())
	case err != nil:
		httpx.WriteProblem(w, http.StatusServiceUnavailable, "ledger_unavailable", err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *LedgerHandler) Expenses(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.dayRange(r)
	if err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", "dates must be YYYY-MM-DD")
		return
	}
	items, err := h.expenses.Expenses(r.Context(), from, to)
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"expenses": items})
}

func (h *LedgerHandler) AddExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if !req.Amount.IsPositive() {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", "amount must be positive")
		return
	}
	e := domain.Expense{Description: req.Description, Category: req.Category, Amount: req.Amount}
	if req.Date != nil {
		e.Date = req.Date.UTC()
	}
	saved, err := h.expenses.AddExpense(r.Context(), e)
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, saved)
}

func (h *LedgerHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	err := h.expenses.DeleteExpense(r.Context(), chi.URLParam(r, "expense_id"))
	switch {
	case errors.Is(err, domain.ErrExpenseNotFound):
		httpx.WriteProblem(w, http.StatusNotFound, "not_found", err.Error())
	case err != nil:
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *LedgerHandler) CashCuts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cuts, err := h.cuts.List(r.Context(), httpx.AtoiDefault(q.Get("limit"), 20), httpx.AtoiDefault(q.Get("offset"), 0))
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"cash_cuts": cuts})
}

func (h *LedgerHandler) Preview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := h.cuts.Preview(r.Context(), domain.ParseAmount(q.Get("counted")), domain.ParseAmount(q.Get("left")))
	if err != nil {
		httpx.WriteProblem(w, http.StatusServiceUnavailable, "ledger_unavailable", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *LedgerHandler) PerformCut(w http.ResponseWriter, r *http.Request) {
	var req cashCutRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	res, err := h.cuts.Perform(r.Context(), service.CashCutRequest{Operator: req.Operator, Counted: req.Counted, Left: req.Left})
	switch {
	case errors.Is(err, domain.ErrInvalidCashCut):
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
	case err != nil:
		httpx.WriteProblem(w, http.StatusServiceUnavailable, "ledger_unavailable", err.Error())
	default:
		httpx.WriteJSON(w, http.StatusCreated, res)
	}
}

func (h *LedgerHandler) Outbox(w http.ResponseWriter, r *http.Request) {
	n, err := h.ledger.Pending(r.Context())
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "outbox_error", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"pending": n})
}

func (h *LedgerHandler) Sync(w http.ResponseWriter, r *http.Request) {
	n, err := h.ledger.Sync(r.Context())
	if err != nil {
		httpx.WriteProblem(w, http.StatusServiceUnavailable, "ledger_unavailable", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"synced": n})
}
