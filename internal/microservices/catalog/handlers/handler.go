package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/catalog/service"
)

type CatalogHandler struct {
	service service.CatalogServiceInterface
}

func NewCatalogHandler(s service.CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: s}
}

func (h *CatalogHandler) Routes(r chi.Router) {
	r.Get("/menu", h.Search)
	r.Get("/menu/categories", h.Categories)
	r.Post("/menu", h.Save)
	r.Delete("/menu/{item_id}", h.Delete)
}

type recipeComponent struct {
	IngredientID    string          `json:"ingredient_id" validate:"required"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit"`
}

type saveItemRequest struct {
	ID       string            `json:"id"`
	Name     string            `json:"name" validate:"required"`
	Price    decimal.Decimal   `json:"price"`
	Category string            `json:"category"`
	Recipe   []recipeComponent `json:"recipe" validate:"dive"`
}

func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.service.Search(r.Context(), q.Get("category"), q.Get("q"))
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.Categories(r.Context())
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (h *CatalogHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveItemRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if req.Price.IsNegative() {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", "price must not be negative")
		return
	}
	item := domain.MenuItem{ID: req.ID, Name: req.Name, Price: req.Price, Category: req.Category}
	for _, c := range req.Recipe {
		item.Recipe = append(item.Recipe, domain.RecipeComponent{IngredientID: c.IngredientID, QuantityPerUnit: c.QuantityPerUnit})
	}
	saved, err := h.service.Save(r.Context(), item)
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, saved)
}

func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), chi.URLParam(r, "item_id"))
	switch {
	case errors.Is(err, domain.ErrMenuItemNotFound):
		httpx.WriteProblem(w, http.StatusNotFound, "not_found", err.Error())
	case err != nil:
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
