package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/microservices/printer/repository"
)

type PrinterHandler struct {
	repo repository.PrinterRepositoryInterface
}

func NewPrinterHandler(repo repository.PrinterRepositoryInterface) *PrinterHandler {
	return &PrinterHandler{repo: repo}
}

func (h *PrinterHandler) Routes(r chi.Router) {
	r.Get("/printers", h.Status)
}

func (h *PrinterHandler) Status(w http.ResponseWriter, r *http.Request) {
	workers, err := h.repo.List(r.Context())
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"workers": workers})
}
