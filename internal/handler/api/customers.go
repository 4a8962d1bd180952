// Package api holds the JSON handlers mounted under /api.
package api

import (
	"net/http"
	"strings"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/handler"
)

// CustomerHandler handles /api/customers.
type CustomerHandler struct {
	service domain.CustomerService
}

func NewCustomerHandler(service domain.CustomerService) *CustomerHandler {
	return &CustomerHandler{service: service}
}

type customerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"max=50"`
	Address string `json:"address" validate:"max=500"`
	TaxID   string `json:"tax_id" validate:"max=50"`
}

func (req customerRequest) params() domain.CustomerParams {
	return domain.CustomerParams{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
		TaxID:   strings.TrimSpace(req.TaxID),
	}
}

// List handles GET /api/customers
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	customers := h.service.ListCustomers(r.Context(), handler.Tenant(r), handler.ListParams(r))
	handler.Respond(w, r, customers, nil)
}

// Create handles POST /api/customers
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	customer, err := h.service.CreateCustomer(r.Context(), handler.Tenant(r), req.params())
	handler.RespondStatus(w, r, http.StatusCreated, customer, err)
}

// Get handles GET /api/customers/{id}
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	customer, err := h.service.GetCustomer(r.Context(), handler.Tenant(r), id)
	handler.Respond(w, r, customer, err)
}

// Update handles PUT /api/customers/{id}
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req customerRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	customer, err := h.service.UpdateCustomer(r.Context(), handler.Tenant(r), id, req.params())
	handler.Respond(w, r, customer, err)
}

// Delete handles DELETE /api/customers/{id}
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	err = h.service.DeleteCustomer(r.Context(), handler.Tenant(r), id)
	handler.RespondStatus(w, r, http.StatusNoContent, nil, err)
}
