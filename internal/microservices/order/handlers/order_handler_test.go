package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/common/config"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/folio"
	catalogrepo "restaurant-pos/internal/microservices/catalog/repository"
	catalog "restaurant-pos/internal/microservices/catalog/service"
	"restaurant-pos/internal/microservices/order/repository"
	"restaurant-pos/internal/microservices/order/service"
)

type recordingLedger struct {
	sales []domain.SaleRecord
}

func (l *recordingLedger) Record(_ context.Context, sale domain.SaleRecord) (bool, error) {
	l.sales = append(l.sales, sale)
	return false, nil
}

func newRouter(t *testing.T) (http.Handler, *recordingLedger) {
	t.Helper()
	menu := catalogrepo.NewMemoryMenu(
		domain.MenuItem{ID: "taco", Name: "Taco de Arrachera", Price: decimal.NewFromInt(50), Category: "Asada y Arrachera"},
		domain.MenuItem{ID: "agua", Name: "Agua de Horchata", Price: decimal.NewFromInt(30), Category: "Bebidas"},
	)
	hash, err := auth.HashPIN("4321")
	require.NoError(t, err)
	authz := auth.NewPINAuthorizer([]config.User{
		{Name: "Gerente", Role: "admin", PINHash: hash},
	})

	ledger := &recordingLedger{}
	svc := service.New(service.Config{TableCount: 3, Terminal: "caja-1"}, repository.NewMemory(), service.Deps{
		Catalog: catalog.NewCatalogService(menu, nil),
		Folio:   folio.NewMemory(1000),
		Ledger:  ledger,
	})
	require.NoError(t, svc.OrderService.Load(context.Background()))

	r := chi.NewRouter()
	New(svc, authz).OrderHandler.Routes(r)
	return r, ledger
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
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

type orderBody struct {
	ID             string             `json:"id"`
	Status         string             `json:"status"`
	OrderNumber    *int64             `json:"order_number"`
	PendingLines   []domain.OrderLine `json:"pending_lines"`
	CommittedLines []domain.OrderLine `json:"committed_lines"`
	MergedInto     string             `json:"merged_into"`
	Totals         domain.Totals      `json:"totals"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestListTables(t *testing.T) {
	r, _ := newRouter(t)
	rec := do(t, r, http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Orders []orderBody `json:"orders"`
	}](t, rec)
	require.Len(t, body.Orders, 3)
	assert.Equal(t, "1", body.Orders[0].ID)
	assert.Equal(t, "free", body.Orders[0].Status)
}

func TestAddSendAndPay(t *testing.T) {
	r, ledger := newRouter(t)

	rec := do(t, r, http.MethodPost, "/orders/1/items", `{"menu_item_id":"taco","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	o := decode[orderBody](t, rec)
	require.Len(t, o.PendingLines, 1)
	assert.True(t, o.Totals.Pending.Equal(decimal.NewFromInt(100)))

	rec = do(t, r, http.MethodPost, "/orders/1/items", `{"menu_item_id":"agua"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodPost, "/orders/1/kitchen", `{"operator":"Luis"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[struct {
		Order orderBody `json:"order"`
	}](t, rec)
	assert.Empty(t, res.Order.PendingLines)
	assert.Len(t, res.Order.CommittedLines, 2)
	assert.Equal(t, "occupied", res.Order.Status)
	require.NotNil(t, res.Order.OrderNumber)
	assert.EqualValues(t, 1001, *res.Order.OrderNumber)

	rec = do(t, r, http.MethodPost, "/orders/1/discount", `{"discount":"30"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	o = decode[orderBody](t, rec)
	assert.True(t, o.Totals.GrandTotal.Equal(decimal.NewFromInt(100)))

	rec = do(t, r, http.MethodPost, "/orders/1/pay", `{"payment_method":"bitcoin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/orders/1/pay", `{"payment_method":"cash","tip":"15"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	pay := decode[service.PaymentResult](t, rec)
	assert.False(t, pay.Queued)
	assert.True(t, pay.Sale.Total.Equal(decimal.NewFromInt(100)))
	assert.True(t, pay.Sale.Tip.Equal(decimal.NewFromInt(15)))
	require.Len(t, ledger.sales, 1)

	rec = do(t, r, http.MethodGet, "/orders/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	o = decode[orderBody](t, rec)
	assert.Equal(t, "free", o.Status)
	assert.Nil(t, o.OrderNumber)
}

func TestAddItemErrors(t *testing.T) {
	r, _ := newRouter(t)

	rec := do(t, r, http.MethodPost, "/orders/1/items", `{"menu_item_id":"pozole","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodPost, "/orders/1/items", `{"menu_item_id":"taco","quantity":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/orders/99/items", `{"menu_item_id":"taco","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodPatch, "/orders/1/items/x", `{"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPatch, "/orders/1/items/4", `{"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditLineWithoutMenuItem(t *testing.T) {
	r, _ := newRouter(t)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/orders/1/items", `{"menu_item_id":"taco"}`).Code)

	rec := do(t, r, http.MethodPost, "/orders/1/items", `{"line_index":0,"quantity":3,"notes":"sin cebolla"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	o := decode[orderBody](t, rec)
	require.Len(t, o.PendingLines, 1)
	assert.Equal(t, 3, o.PendingLines[0].Quantity)
	assert.Equal(t, "sin cebolla", o.PendingLines[0].Notes)
	assert.Equal(t, "taco", o.PendingLines[0].MenuItemID)

	rec = do(t, r, http.MethodPost, "/orders/1/items", `{"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "a new line needs a menu item")
}

func TestStaleOrderIsConflict(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, fmt.Errorf("%w: 1 at version 3", domain.ErrStaleOrder))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "stale_order")
}

func TestPayEmptyOrder(t *testing.T) {
	r, ledger := newRouter(t)
	rec := do(t, r, http.MethodPost, "/orders/2/pay", `{"payment_method":"card"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, ledger.sales)
}

func TestVoidRequiresAdminPIN(t *testing.T) {
	r, _ := newRouter(t)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/orders/1/items", `{"menu_item_id":"taco"}`).Code)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/orders/1/kitchen", "").Code)

	rec := do(t, r, http.MethodPost, "/orders/1/void", `{"pin":"0000"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, r, http.MethodPost, "/orders/1/void", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/orders/1/void", `{"pin":"4321"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[struct {
		Order orderBody `json:"order"`
	}](t, rec)
	assert.Equal(t, "free", res.Order.Status)
	assert.Empty(t, res.Order.CommittedLines)
}

func TestMergeAndUnmerge(t *testing.T) {
	r, _ := newRouter(t)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/orders/1/items", `{"menu_item_id":"taco"}`).Code)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/orders/1/kitchen", "").Code)

	rec := do(t, r, http.MethodGet, "/orders/1/merge-candidates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cands := decode[struct {
		Candidates []orderBody `json:"candidates"`
	}](t, rec)
	require.Len(t, cands.Candidates, 2)

	rec = do(t, r, http.MethodPost, "/orders/1/merge", `{"table_id":"2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodGet, "/orders/2", "")
	o := decode[orderBody](t, rec)
	assert.Equal(t, "1", o.MergedInto)

	rec = do(t, r, http.MethodPost, "/orders/3/merge", `{"table_id":"1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodPost, "/orders/2/unmerge", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", decode[orderBody](t, rec).ID)

	o = decode[orderBody](t, do(t, r, http.MethodGet, "/orders/2", ""))
	assert.Empty(t, o.MergedInto)
	assert.Equal(t, "free", o.Status)
}

func TestCreateAdhoc(t *testing.T) {
	r, _ := newRouter(t)
	rec := do(t, r, http.MethodPost, "/orders", `{"phone":"555"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/orders", `{"customer_name":"Marta","phone":"5512345678","delivery_address":"Calle 5"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	o := decode[orderBody](t, rec)
	require.NotEmpty(t, o.ID)

	rec = do(t, r, http.MethodPost, "/orders/"+o.ID+"/precheck", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/orders/"+o.ID+"/items", `{"menu_item_id":"agua"}`).Code)
	rec = do(t, r, http.MethodPost, "/orders/"+o.ID+"/precheck", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[struct {
		Order orderBody `json:"order"`
	}](t, rec)
	assert.Nil(t, res.Order.OrderNumber)
}
