package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mplattner/supportline/internal/directory"
	"github.com/mplattner/supportline/internal/store"
	"github.com/mplattner/supportline/internal/types"
	"github.com/rs/zerolog"
)

// CustomersHandler provides REST endpoints for customer CRUD
type CustomersHandler struct {
	customers *directory.Service
	logger    zerolog.Logger
}

// NewCustomersHandler creates a new CustomersHandler
func NewCustomersHandler(customers *directory.Service, logger zerolog.Logger) *CustomersHandler {
	return &CustomersHandler{
		customers: customers,
		logger:    logger.With().Str("component", "customers_api").Logger(),
	}
}

// Routes mounts the customer routes on r
func (h *CustomersHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/phone/{phone}", h.GetByPhone)
}

// List handles GET /api/customers
func (h *CustomersHandler) List(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customers.List()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list customers")
		writeError(w, http.StatusInternalServerError, "failed to list customers")
		return
	}
	if customers == nil {
		customers = []types.Customer{}
	}
	writeJSON(w, http.StatusOK, customers)
}

// Get handles GET /api/customers/{id}
func (h *CustomersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	customer, err := h.customers.ByID(id)
	if err != nil {
		h.logger.Error().Err(err).Int64("customer_id", id).Msg("failed to get customer")
		writeError(w, http.StatusInternalServerError, "failed to get customer")
		return
	}
	if customer == nil {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// GetByPhone handles GET /api/customers/phone/{phone}
func (h *CustomersHandler) GetByPhone(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	customer, err := h.customers.ByPhone(phone)
	if err != nil {
		h.logger.Error().Err(err).Str("phone", phone).Msg("failed to get customer by phone")
		writeError(w, http.StatusInternalServerError, "failed to get customer")
		return
	}
	if customer == nil {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// Create handles POST /api/customers
func (h *CustomersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CreateCustomer
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customer, err := h.customers.Create(req)
	if err != nil {
		if isConflict(err) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

// Update handles PUT /api/customers/{id}
func (h *CustomersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req types.UpdateCustomer
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customer, err := h.customers.Update(id, req)
	if err != nil {
		if isConflict(err) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if customer == nil {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// Delete handles DELETE /api/customers/{id}
func (h *CustomersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.customers.Delete(id)
	if err != nil {
		h.logger.Error().Err(err).Int64("customer_id", id).Msg("failed to delete customer")
		writeError(w, http.StatusInternalServerError, "failed to delete customer")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func isConflict(err error) bool {
	return errors.Is(err, store.ErrPhoneConflict)
}
