package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/customer/service"
)

type CustomerHandler struct {
	service service.CustomerServiceInterface
}

func NewCustomerHandler(s service.CustomerServiceInterface) *CustomerHandler {
	return &CustomerHandler{service: s}
}

func (h *CustomerHandler) Routes(r chi.Router) {
	r.Get("/customers", h.Search)
	r.Post("/customers", h.Create)
	r.Get("/customers/{customer_id}", h.Get)
	r.Put("/customers/{customer_id}", h.Update)
}

type saveCustomerRequest struct {
	Name      string   `json:"name" validate:"required,max=120"`
	Phone     string   `json:"phone" validate:"max=30"`
	Addresses []string `json:"addresses" validate:"dive,max=300"`
}

func (req saveCustomerRequest) record(id string) domain.CustomerRecord {
	return domain.CustomerRecord{ID: id, Name: req.Name, Phone: req.Phone, Addresses: req.Addresses}
}

func (h *CustomerHandler) Search(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		out = []domain.CustomerRecord{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"customers": out})
}

func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "customer_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "", http.StatusCreated)
}

func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "customer_id"), http.StatusOK)
}

func (h *CustomerHandler) save(w http.ResponseWriter, r *http.Request, id string, code int) {
	var req saveCustomerRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	c, err := h.service.Save(r.Context(), req.record(id))
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, code, c)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound):
		httpx.WriteProblem(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrNameRequired):
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", err.Error())
	}
}
