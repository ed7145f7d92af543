package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/microservices/tracker/service"
)

type Handler struct {
	TrackerHandler *TrackerHandler
}

func New(svc service.TrackerServiceInterface) *Handler {
	return &Handler{TrackerHandler: NewTrackerHandler(svc)}
}

type TrackerHandler struct {
	service service.TrackerServiceInterface
}

func NewTrackerHandler(svc service.TrackerServiceInterface) *TrackerHandler {
	return &TrackerHandler{service: svc}
}

func (h *TrackerHandler) Routes(r chi.Router) {
	r.Get("/orders/{order_id}/timeline", h.GetTimeline)
	r.Get("/tracking/orders/{order_id}/status", h.GetStatus)
}

func (h *TrackerHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "order_id")
	v, ok, err := h.service.GetOrderView(r.Context(), id)
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if !ok {
		httpx.WriteProblem(w, http.StatusNotFound, "not_found", "order not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, v)
}

func (h *TrackerHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "order_id")
	limit := httpx.AtoiDefault(r.URL.Query().Get("limit"), 50)
	offset := httpx.AtoiDefault(r.URL.Query().Get("offset"), 0)
	events, err := h.service.GetOrderTimeline(r.Context(), id, limit, offset)
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"order_id": id, "events": events})
}
