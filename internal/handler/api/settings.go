package api

import (
	"net/http"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/handler"
	"github.com/shopspring/decimal"
)

// SettingsHandler handles /api/settings/invoice.
type SettingsHandler struct {
	service domain.InvoiceSettingsService
}

func NewSettingsHandler(service domain.InvoiceSettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

type settingsRequest struct {
	BusinessName         string          `json:"business_name" validate:"max=200"`
	BusinessEmail        string          `json:"business_email" validate:"omitempty,email"`
	BusinessPhone        string          `json:"business_phone" validate:"max=50"`
	BusinessAddress      string          `json:"business_address" validate:"max=500"`
	TaxID                string          `json:"tax_id" validate:"max=50"`
	InvoicePrefix        string          `json:"invoice_prefix"`
	DefaultTaxPercentage decimal.Decimal `json:"default_tax_percentage"`
	DefaultDueDays       int32           `json:"default_due_days"`
	Currency             string          `json:"currency"`
	PaymentTerms         string          `json:"payment_terms" validate:"max=1000"`
	FooterNotes          string          `json:"footer_notes" validate:"max=1000"`
}

// Get handles GET /api/settings/invoice
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.GetSettings(r.Context(), handler.Tenant(r))
	handler.Respond(w, r, settings, err)
}

// Update handles PUT /api/settings/invoice. Prefix, percentage and due days
// are checked by the service.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	settings, err := h.service.UpdateSettings(r.Context(), handler.Tenant(r), domain.InvoiceSettings{
		BusinessName:         req.BusinessName,
		BusinessEmail:        req.BusinessEmail,
		BusinessPhone:        req.BusinessPhone,
		BusinessAddress:      req.BusinessAddress,
		TaxID:                req.TaxID,
		InvoicePrefix:        req.InvoicePrefix,
		DefaultTaxPercentage: req.DefaultTaxPercentage,
		DefaultDueDays:       req.DefaultDueDays,
		Currency:             req.Currency,
		PaymentTerms:         req.PaymentTerms,
		FooterNotes:          req.FooterNotes,
	})
	handler.Respond(w, r, settings, err)
}
