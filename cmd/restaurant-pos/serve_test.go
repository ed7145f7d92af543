package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/common/config"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/folio"
	"restaurant-pos/internal/tickets"
)

func memoryRouter(t *testing.T) (http.Handler, *bytes.Buffer) {
	t.Helper()
	hash, err := auth.HashPIN("2468")
	require.NoError(t, err)
	c := &config.App{
		Terminal: config.Terminal{Name: "caja-test", TableCount: 2, Storage: "memory"},
		Users:    []config.User{{Name: "Gerente", Role: "admin", PINHash: hash}},
	}
	paper := &bytes.Buffer{}
	dispatcher := tickets.NewLocalDispatcher(tickets.NewRenderer(42, []string{"TAQUERIA"}, time.UTC), tickets.NewWriterSink(paper), logger.Nop())
	r, books, err := newRouter(context.Background(), c, &infra{}, folio.NewMemory(1000), dispatcher, time.UTC, logger.Nop())
	require.NoError(t, err)
	require.NotNil(t, books)
	return r, paper
}

func call(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := memoryRouter(t)
	rec := call(t, r, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "caja-test")

	rec = call(t, r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTableServiceEndToEnd(t *testing.T) {
	r, paper := memoryRouter(t)

	rec := call(t, r, http.MethodPost, "/api/v1/menu", `{"id":"taco","name":"Taco de Arrachera","price":"50","category":"Asada y Arrachera"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/v1/orders/1/items", `{"menu_item_id":"taco","quantity":2}`).Code)
	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/v1/orders/1/kitchen", `{"operator":"Luis"}`).Code)
	assert.Contains(t, paper.String(), "TICKET DE COCINA")

	rec = call(t, r, http.MethodPost, "/api/v1/orders/1/pay", `{"payment_method":"cash","tip":"10","operator":"Luis"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, paper.String(), "TICKET DE VENTA")

	today := time.Now().UTC().Format(time.DateOnly)
	rec = call(t, r, http.MethodGet, "/api/v1/sales?from="+today+"&to="+today, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sales struct {
		Sales []domain.SaleRecord `json:"sales"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sales))
	require.Len(t, sales.Sales, 1)
	assert.EqualValues(t, 1001, sales.Sales[0].OrderNumber)

	rec = call(t, r, http.MethodGet, "/api/v1/orders/1/timeline", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var timeline struct {
		Events []domain.LifecycleEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &timeline))
	assert.NotEmpty(t, timeline.Events)

	rec = call(t, r, http.MethodGet, "/api/v1/tracking/orders/1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PAID")

	rec = call(t, r, http.MethodGet, "/api/v1/cash-cuts/preview?counted=100&left=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cut domain.CashCut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cut))
	assert.True(t, cut.CashSales.Equal(decimal.NewFromInt(100)), cut.CashSales.String())
	assert.True(t, cut.Tips.Equal(decimal.NewFromInt(10)), cut.Tips.String())
}

func TestVoidThroughRouter(t *testing.T) {
	r, paper := memoryRouter(t)
	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/v1/menu", `{"id":"agua","name":"Agua de Jamaica","price":"30"}`).Code)
	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/v1/orders/2/items", `{"menu_item_id":"agua"}`).Code)
	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/v1/orders/2/kitchen", "").Code)

	assert.Equal(t, http.StatusForbidden, call(t, r, http.MethodPost, "/api/v1/orders/2/void", `{"pin":"1111"}`).Code)
	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/v1/orders/2/void", `{"pin":"2468"}`).Code)
	assert.Contains(t, paper.String(), "CANCELACIÓN")
}

func TestPurchaseRestocksAndBooksExpense(t *testing.T) {
	r, _ := memoryRouter(t)

	rec := call(t, r, http.MethodPost, "/api/v1/inventory", `{"name":"Tortilla","unit":"Kg","stock":"1","min_stock":"3"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = call(t, r, http.MethodGet, "/api/v1/inventory/low", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tortilla")

	rec = call(t, r, http.MethodPost, "/api/v1/purchases", `{"merchant":"Tortilleria La Luz","items":[{"name":"Tortilla","quantity":"2","unit_price":"20"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = call(t, r, http.MethodPost, "/api/v1/purchases", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, r, http.MethodGet, "/api/v1/inventory", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stock struct {
		Ingredients []domain.Ingredient `json:"ingredients"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stock))
	require.Len(t, stock.Ingredients, 1)
	assert.True(t, stock.Ingredients[0].Stock.Equal(decimal.NewFromInt(3)), stock.Ingredients[0].Stock.String())

	rec = call(t, r, http.MethodGet, "/api/v1/cash-cuts/preview?counted=0&left=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cut domain.CashCut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cut))
	assert.True(t, cut.Expenses.Equal(decimal.NewFromInt(40)), cut.Expenses.String())
}

func TestCustomerDirectoryAndDailyReport(t *testing.T) {
	r, _ := memoryRouter(t)

	rec := call(t, r, http.MethodPost, "/api/v1/customers", `{"name":"Marta Ruiz","phone":"5512345678","addresses":["Av. Juarez 10"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var marta domain.CustomerRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &marta))
	require.NotEmpty(t, marta.ID)

	rec = call(t, r, http.MethodGet, "/api/v1/customers?q=5512", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), marta.ID)

	rec = call(t, r, http.MethodPost, "/api/v1/orders", `{"customer_id":"`+marta.ID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "Av. Juarez 10")
	assert.Equal(t, http.StatusNotFound, call(t, r, http.MethodPost, "/api/v1/orders", `{"customer_id":"nope"}`).Code)

	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/v1/menu", `{"id":"taco","name":"Taco","price":"25","category":"Tacos"}`).Code)
	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/v1/orders/1/items", `{"menu_item_id":"taco","quantity":4}`).Code)
	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/v1/orders/1/pay", `{"payment_method":"card","operator":"Luis"}`).Code)

	rec = call(t, r, http.MethodGet, "/api/v1/reports/daily", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report struct {
		Tickets    int    `json:"tickets"`
		BestSeller string `json:"best_seller"`
		ByCategory []struct {
			Name string `json:"name"`
		} `json:"by_category"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Tickets)
	assert.Equal(t, "Taco", report.BestSeller)
	require.Len(t, report.ByCategory, 1)
	assert.Equal(t, "Tacos", report.ByCategory[0].Name)
}
