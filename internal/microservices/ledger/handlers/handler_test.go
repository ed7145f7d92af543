package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/ledger/repository"
	"restaurant-pos/internal/microservices/ledger/service"
)

func newRouter(t *testing.T) (http.Handler, *service.Service) {
	t.Helper()
	svc := service.New(repository.NewMemory(nil), nil, nil, time.UTC, nil)
	h := New(svc, time.UTC)
	r := chi.NewRouter()
	h.LedgerHandler.Routes(r)
	return r, svc
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSalesAndCancel(t *testing.T) {
	r, svc := newRouter(t)
	now := time.Now().UTC()
	_, err := svc.Ledger.Record(context.Background(), domain.SaleRecord{
		ID: "s1", OrderID: "1", OriginName: "Mesa 1", Total: decimal.NewFromInt(120),
		PaymentMethod: domain.PaymentCash, CreatedAt: now,
	})
	require.NoError(t, err)

	today := now.Format(time.DateOnly)
	rec := do(t, r, http.MethodGet, "/sales?from="+today+"&to="+today, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Sales []domain.SaleRecord `json:"sales"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sales, 1)

	rec = do(t, r, http.MethodPost, "/sales/s1/cancel", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, r, http.MethodPost, "/sales/nope/cancel", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodGet, "/sales?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExpensesAndCashCut(t *testing.T) {
	r, _ := newRouter(t)

	rec := do(t, r, http.MethodPost, "/expenses", `{"description":"Hielo","amount":"45.50"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, r, http.MethodPost, "/expenses", `{"description":"Hielo","amount":"0"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, r, http.MethodPost, "/expenses", `{"amount":"10"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/cash-cuts", `{"operator":"Ana","counted_cash":"100"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/cash-cuts", `{"operator":"Ana","counted_cash":"100","left_in_drawer":"50"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var res service.CashCutResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Cut.ExpectedCash.Equal(decimal.RequireFromString("-45.5")))
	assert.True(t, res.Cut.ToWithdraw.Equal(decimal.NewFromInt(50)))

	rec = do(t, r, http.MethodGet, "/cash-cuts", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), res.Cut.ID)
}

func TestDailyReport(t *testing.T) {
	r, svc := newRouter(t)
	now := time.Now().UTC()
	sale := domain.SaleRecord{
		ID: "s1", OrderID: "1", OriginName: "Mesa 1", Total: decimal.NewFromInt(120),
		PaymentMethod: domain.PaymentCash, CreatedAt: now,
	}
	sale.Items = []domain.OrderLine{{Name: "Taco", UnitPrice: decimal.NewFromInt(40), Quantity: 3}}
	_, err := svc.Ledger.Record(context.Background(), sale)
	require.NoError(t, err)

	rec := do(t, r, http.MethodGet, "/reports/daily?date="+now.Format(time.DateOnly), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rep service.DailyReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, 1, rep.Tickets)
	assert.Equal(t, "Taco", rep.BestSeller)
	assert.True(t, rep.TotalSales.Equal(decimal.NewFromInt(120)))

	rec = do(t, r, http.MethodGet, "/reports/daily?date=10/03/2026", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
