package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/service"
)

// Authorizer turns a PIN into a void authorization.
type Authorizer interface {
	Verify(ctx context.Context, pin string) (bool, auth.Operator)
}

type OrderHandler struct {
	service service.OrderServiceInterface
	auth    Authorizer
}

func NewOrderHandler(s service.OrderServiceInterface, a Authorizer) *OrderHandler {
	return &OrderHandler{service: s, auth: a}
}

func (h *OrderHandler) Routes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Post("/orders", h.CreateAdhoc)
	r.Get("/orders/{order_id}", h.Get)
	r.Post("/orders/{order_id}/open", h.Open)
	r.Post("/orders/{order_id}/items", h.AddItem)
	r.Patch("/orders/{order_id}/items/{index}", h.UpdateQuantity)
	r.Post("/orders/{order_id}/kitchen", h.SendToKitchen)
	r.Post("/orders/{order_id}/discount", h.ApplyDiscount)
	r.Post("/orders/{order_id}/merge", h.Merge)
	r.Get("/orders/{order_id}/merge-candidates", h.MergeCandidates)
	r.Post("/orders/{order_id}/unmerge", h.Unmerge)
	r.Post("/orders/{order_id}/void", h.Void)
	r.Post("/orders/{order_id}/pay", h.Pay)
	r.Post("/orders/{order_id}/park", h.Park)
	r.Post("/orders/{order_id}/precheck", h.PreCheck)
}

type orderView struct {
	domain.Order
	Totals domain.Totals `json:"totals"`
}

func view(o domain.Order) orderView { return orderView{Order: o, Totals: o.Totals()} }

type resultView struct {
	Order    *orderView `json:"order,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
}

func result(r service.Result) resultView {
	out := resultView{Warnings: r.Warnings}
	if r.Order.ID != "" {
		v := view(r.Order)
		out.Order = &v
	}
	return out
}

type createAdhocRequest struct {
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name" validate:"required_without=CustomerID"`
	Phone        string `json:"phone"`
	Address      string `json:"delivery_address"`
}

type addItemRequest struct {
	MenuItemID string `json:"menu_item_id" validate:"required_without=LineIndex"`
	Quantity   int    `json:"quantity" validate:"gte=0"`
	Notes      string `json:"notes" validate:"max=200"`
	LineIndex  *int   `json:"line_index" validate:"omitempty,gte=0"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type operatorRequest struct {
	Operator string `json:"operator"`
}

type discountRequest struct {
	Discount string `json:"discount"`
}

type mergeRequest struct {
	TableID string `json:"table_id" validate:"required"`
}

type voidRequest struct {
	PIN string `json:"pin" validate:"required"`
}

type payRequest struct {
	PaymentMethod string `json:"payment_method"`
	Tip           string `json:"tip"`
	Operator      string `json:"operator"`
}

// bindOptional accepts an empty body for endpoints whose fields all have
// defaults.
func bindOptional(r *http.Request, dst any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return httpx.Bind(r, dst)
}

// List serves the shared collection. When the store cannot be read the
// terminal's last known copy is served and marked stale.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	stale := h.service.Refresh(r.Context()) != nil
	orders := h.service.Orders()
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, view(o))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"orders": out, "stale": stale})
}

func (h *OrderHandler) CreateAdhoc(w http.ResponseWriter, r *http.Request) {
	var req createAdhocRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	o, err := h.service.CreateAdhoc(r.Context(), domain.Customer{ID: req.CustomerID, Name: req.CustomerName, Phone: req.Phone}, req.Address)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, view(o))
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(chi.URLParam(r, "order_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(o))
}

func (h *OrderHandler) Open(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Open(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(o))
}

func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	o, err := h.service.AddItem(r.Context(), chi.URLParam(r, "order_id"), service.AddItemRequest{
		MenuItemID: req.MenuItemID,
		Quantity:   req.Quantity,
		Notes:      req.Notes,
		LineIndex:  req.LineIndex,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(o))
}

func (h *OrderHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", "line index must be a number")
		return
	}
	var req quantityRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	o, err := h.service.UpdateQuantity(r.Context(), chi.URLParam(r, "order_id"), index, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(o))
}

func (h *OrderHandler) SendToKitchen(w http.ResponseWriter, r *http.Request) {
	var req operatorRequest
	if err := bindOptional(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	res, err := h.service.SendToKitchen(r.Context(), chi.URLParam(r, "order_id"), req.Operator)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result(res))
}

// ApplyDiscount never rejects the amount: unparseable input stores zero.
func (h *OrderHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if err := bindOptional(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	o, err := h.service.ApplyDiscount(r.Context(), chi.URLParam(r, "order_id"), req.Discount)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(o))
}

func (h *OrderHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	o, err := h.service.Merge(r.Context(), chi.URLParam(r, "order_id"), req.TableID)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(o))
}

func (h *OrderHandler) MergeCandidates(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.MergeCandidates(chi.URLParam(r, "order_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, view(o))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"candidates": out})
}

func (h *OrderHandler) Unmerge(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Unmerge(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(o))
}

func (h *OrderHandler) Void(w http.ResponseWriter, r *http.Request) {
	var req voidRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	ok, op := false, auth.Operator{}
	if h.auth != nil {
		ok, op = h.auth.Verify(r.Context(), req.PIN)
	}
	res, err := h.service.Void(r.Context(), chi.URLParam(r, "order_id"), service.VoidRequest{Authorized: ok, Operator: op.Name})
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result(res))
}

func (h *OrderHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := bindOptional(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	res, err := h.service.FinalizePayment(r.Context(), chi.URLParam(r, "order_id"), service.PaymentRequest{
		Method:   req.PaymentMethod,
		Tip:      req.Tip,
		Operator: req.Operator,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *OrderHandler) Park(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Park(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(o))
}

func (h *OrderHandler) PreCheck(w http.ResponseWriter, r *http.Request) {
	var req operatorRequest
	if err := bindOptional(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	res, err := h.service.PreCheck(r.Context(), chi.URLParam(r, "order_id"), req.Operator)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result(res))
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrMenuItemNotFound),
		errors.Is(err, domain.ErrCustomerNotFound):
		httpx.WriteProblem(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidLine), errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPaymentMethod):
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrEmptyOrder):
		httpx.WriteProblem(w, http.StatusUnprocessableEntity, "empty_order", err.Error())
	case errors.Is(err, domain.ErrStaleOrder):
		httpx.WriteProblem(w, http.StatusConflict, "stale_order", err.Error())
	case errors.Is(err, domain.ErrMergeNotAllowed):
		httpx.WriteProblem(w, http.StatusConflict, "merge_not_allowed", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httpx.WriteProblem(w, http.StatusForbidden, "unauthorized", "PIN incorrecto o sin permisos")
	case errors.Is(err, domain.ErrSaleNotSaved):
		httpx.WriteProblem(w, http.StatusServiceUnavailable, "sale_not_saved", "la venta no se pudo guardar; la orden sigue abierta")
	case errors.Is(err, domain.ErrFolioUnavailable), errors.Is(err, domain.ErrStore):
		httpx.WriteProblem(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
	default:
		httpx.WriteProblem(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
