package api

import (
	"net/http"
	"strings"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/handler"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecurringHandler handles /api/recurring-invoices.
type RecurringHandler struct {
	service domain.RecurringInvoiceService
}

func NewRecurringHandler(service domain.RecurringInvoiceService) *RecurringHandler {
	return &RecurringHandler{service: service}
}

type recurringRequest struct {
	CustomerID    uuid.UUID         `json:"customer_id" validate:"required"`
	Frequency     domain.Frequency  `json:"frequency" validate:"required,oneof=monthly yearly"`
	StartDate     handler.Date      `json:"start_date" validate:"required"`
	EndDate       *handler.Date     `json:"end_date"`
	TaxPercentage decimal.Decimal   `json:"tax_percentage"`
	Notes         string            `json:"notes" validate:"max=2000"`
	Items         []lineItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (req recurringRequest) params() domain.RecurringInvoiceParams {
	return domain.RecurringInvoiceParams{
		CustomerID:    req.CustomerID,
		Frequency:     req.Frequency,
		StartDate:     req.StartDate.Time,
		EndDate:       req.EndDate.Ptr(),
		TaxPercentage: req.TaxPercentage,
		Notes:         strings.TrimSpace(req.Notes),
		Items:         lineItems(req.Items),
	}
}

type recurringStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// List handles GET /api/recurring-invoices
func (h *RecurringHandler) List(w http.ResponseWriter, r *http.Request) {
	handler.Respond(w, r, h.service.ListRecurringInvoices(r.Context(), handler.Tenant(r), handler.ListParams(r)), nil)
}

// Create handles POST /api/recurring-invoices
func (h *RecurringHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	recurring, err := h.service.CreateRecurringInvoice(r.Context(), handler.Tenant(r), req.params())
	handler.RespondStatus(w, r, http.StatusCreated, recurring, err)
}

// Get handles GET /api/recurring-invoices/{id}
func (h *RecurringHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	recurring, err := h.service.GetRecurringInvoice(r.Context(), handler.Tenant(r), id)
	handler.Respond(w, r, recurring, err)
}

// Update handles PUT /api/recurring-invoices/{id}
func (h *RecurringHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req recurringRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	recurring, err := h.service.UpdateRecurringInvoice(r.Context(), handler.Tenant(r), id, req.params())
	handler.Respond(w, r, recurring, err)
}

// UpdateStatus handles PATCH /api/recurring-invoices/{id}/status
func (h *RecurringHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req recurringStatusRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	recurring, err := h.service.UpdateRecurringStatus(r.Context(), handler.Tenant(r), id, *req.IsActive)
	handler.Respond(w, r, recurring, err)
}

// Delete handles DELETE /api/recurring-invoices/{id}
func (h *RecurringHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	err = h.service.DeleteRecurringInvoice(r.Context(), handler.Tenant(r), id)
	handler.RespondStatus(w, r, http.StatusNoContent, nil, err)
}

// Generate handles POST /api/recurring-invoices/{id}/generate
func (h *RecurringHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	invoice, err := h.service.GenerateInvoiceFromRecurring(r.Context(), handler.Tenant(r), id)
	handler.RespondStatus(w, r, http.StatusCreated, invoice, err)
}
