package api

import (
	"net/http"
	"strings"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/handler"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceHandler handles /api/invoices.
type InvoiceHandler struct {
	service domain.InvoiceService
}

func NewInvoiceHandler(service domain.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

type lineItemRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func lineItems(reqs []lineItemRequest) []domain.LineItem {
	items := make([]domain.LineItem, len(reqs))
	for i, req := range reqs {
		items[i] = domain.LineItem{
			Description: strings.TrimSpace(req.Description),
			Quantity:    req.Quantity,
			UnitPrice:   req.UnitPrice,
		}
	}
	return items
}

type invoiceRequest struct {
	CustomerID    uuid.UUID         `json:"customer_id" validate:"required"`
	InvoiceDate   handler.Date      `json:"invoice_date"`
	DueDate       *handler.Date     `json:"due_date"`
	TaxPercentage decimal.Decimal   `json:"tax_percentage"`
	Notes         string            `json:"notes" validate:"max=2000"`
	Items         []lineItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (req invoiceRequest) params() domain.InvoiceParams {
	return domain.InvoiceParams{
		CustomerID:    req.CustomerID,
		InvoiceDate:   req.InvoiceDate.Time,
		DueDate:       req.DueDate.Ptr(),
		TaxPercentage: req.TaxPercentage,
		Notes:         strings.TrimSpace(req.Notes),
		Items:         lineItems(req.Items),
	}
}

type invoiceStatusRequest struct {
	Status domain.InvoiceStatus `json:"status" validate:"required,oneof=draft sent paid cancelled"`
}

// List handles GET /api/invoices?status=&customer_id=&limit=&offset=
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	customerID, err := handler.QueryUUID(r, "customer_id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	status := domain.InvoiceStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		handler.ErrorResponse(w, r, domain.Invalid("invoice.list", "invalid status filter"))
		return
	}

	invoices := h.service.ListInvoices(r.Context(), handler.Tenant(r), domain.ListInvoicesParams{
		ListParams: handler.ListParams(r),
		Status:     status,
		CustomerID: customerID,
	})
	handler.Respond(w, r, invoices, nil)
}

// Create handles POST /api/invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	invoice, err := h.service.CreateInvoice(r.Context(), handler.Tenant(r), req.params())
	handler.RespondStatus(w, r, http.StatusCreated, invoice, err)
}

// Get handles GET /api/invoices/{id}
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	invoice, err := h.service.GetInvoice(r.Context(), handler.Tenant(r), id)
	handler.Respond(w, r, invoice, err)
}

// Update handles PUT /api/invoices/{id}. The item list replaces the stored one.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req invoiceRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	invoice, err := h.service.UpdateInvoice(r.Context(), handler.Tenant(r), id, req.params())
	handler.Respond(w, r, invoice, err)
}

// UpdateStatus handles PATCH /api/invoices/{id}/status
func (h *InvoiceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req invoiceStatusRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	invoice, err := h.service.UpdateInvoiceStatus(r.Context(), handler.Tenant(r), id, req.Status)
	handler.Respond(w, r, invoice, err)
}

// Delete handles DELETE /api/invoices/{id}
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	err = h.service.DeleteInvoice(r.Context(), handler.Tenant(r), id)
	handler.RespondStatus(w, r, http.StatusNoContent, nil, err)
}

// Send handles POST /api/invoices/{id}/send
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	invoice, err := h.service.SendInvoice(r.Context(), handler.Tenant(r), id)
	handler.Respond(w, r, invoice, err)
}

// GenerateNumber handles POST /api/invoices/number
func (h *InvoiceHandler) GenerateNumber(w http.ResponseWriter, r *http.Request) {
	tc := handler.Tenant(r)
	if err := tc.Validate(); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	number := h.service.GenerateInvoiceNumber(r.Context(), tc)
	handler.Respond(w, r, map[string]string{"invoice_number": number}, nil)
}

// PDF handles GET /api/invoices/{id}/pdf. Rendering is not offered yet.
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	handler.ErrorResponse(w, r, domain.Errorf(domain.ENOTIMPL, "invoice.pdf", "PDF export is not available"))
}
