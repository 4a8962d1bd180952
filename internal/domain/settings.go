package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceSettings are a tenant's invoicing defaults and letterhead.
type InvoiceSettings struct {
	TenantID             uuid.UUID       `json:"tenant_id"`
	BusinessName         string          `json:"business_name"`
	BusinessEmail        string          `json:"business_email,omitempty"`
	BusinessPhone        string          `json:"business_phone,omitempty"`
	BusinessAddress      string          `json:"business_address,omitempty"`
	TaxID                string          `json:"tax_id,omitempty"`
	InvoicePrefix        string          `json:"invoice_prefix"`
	DefaultTaxPercentage decimal.Decimal `json:"default_tax_percentage"`
	DefaultDueDays       int32           `json:"default_due_days"`
	Currency             string          `json:"currency"`
	PaymentTerms         string          `json:"payment_terms,omitempty"`
	FooterNotes          string          `json:"footer_notes,omitempty"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// DefaultInvoiceSettings are used until a tenant saves their own.
func DefaultInvoiceSettings(tenantID uuid.UUID) InvoiceSettings {
	return InvoiceSettings{
		TenantID:             tenantID,
		InvoicePrefix:        "INV",
		DefaultTaxPercentage: decimal.NewFromInt(18),
		DefaultDueDays:       15,
		Currency:             DefaultCurrency,
	}
}

type InvoiceSettingsService interface {
	GetSettings(ctx context.Context, tc TenantContext) (*InvoiceSettings, error)
	UpdateSettings(ctx context.Context, tc TenantContext, settings InvoiceSettings) (*InvoiceSettings, error)
}
