package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/inventory/service"
)

type InventoryHandler struct {
	service service.InventoryServiceInterface
}

func NewInventoryHandler(s service.InventoryServiceInterface) *InventoryHandler {
	return &InventoryHandler{service: s}
}

func (h *InventoryHandler) Routes(r chi.Router) {
	r.Get("/inventory", h.List)
	r.Get("/inventory/low", h.Low)
	r.Post("/inventory", h.Save)
	r.Delete("/inventory/{ingredient_id}", h.Delete)
	r.Post("/purchases", h.Purchase)
}

type saveIngredientRequest struct {
	ID       string          `json:"id"`
	Name     string          `json:"name" validate:"required"`
	Unit     string          `json:"unit"`
	Stock    decimal.Decimal `json:"stock"`
	MinStock decimal.Decimal `json:"min_stock"`
	LastCost decimal.Decimal `json:"last_cost"`
}

type purchaseItem struct {
	Name      string          `json:"name" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type purchaseRequest struct {
	Merchant    string          `json:"merchant"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []purchaseItem  `json:"items" validate:"required,min=1,dive"`
}

func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"ingredients": items})
}

func (h *InventoryHandler) Low(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.LowStock(r.Context())
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"ingredients": items})
}

func (h *InventoryHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveIngredientRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	saved, err := h.service.Save(r.Context(), domain.Ingredient{
		ID: req.ID, Name: req.Name, Unit: req.Unit,
		Stock: req.Stock, MinStock: req.MinStock, LastCost: req.LastCost,
	})
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, saved)
}

func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), chi.URLParam(r, "ingredient_id"))
	switch {
	case errors.Is(err, domain.ErrIngredientNotFound):
		httpx.WriteProblem(w, http.StatusNotFound, "not_found", err.Error())
	case err != nil:
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *InventoryHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	p := domain.Purchase{Merchant: req.Merchant, TotalAmount: req.TotalAmount}
	for _, it := range req.Items {
		if !it.Quantity.IsPositive() {
			httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", "quantity must be positive")
			return
		}
		p.Items = append(p.Items, domain.PurchaseItem{Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	saved, err := h.service.RecordPurchase(r.Context(), p)
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "purchase_failed", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, saved)
}
