package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrRecurringInactive = &Error{Code: ESTATE, Message: "Recurring invoice is not active"}

type RecurringInvoice struct {
	ID              uuid.UUID       `json:"id"`
	TenantID        uuid.UUID       `json:"tenant_id"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	Frequency       Frequency       `json:"frequency"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         *time.Time      `json:"end_date,omitempty"`
	NextInvoiceDate time.Time       `json:"next_invoice_date"`
	CyclesGenerated int32           `json:"cycles_generated"`
	TaxPercentage   decimal.Decimal `json:"tax_percentage"`
	Notes           string          `json:"notes,omitempty"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// WithinRun reports whether an occurrence falls on or before the optional
// end date. A template whose next occurrence is outside its run is inactive.
func WithinRun(next time.Time, end *time.Time) bool {
	return end == nil || !next.After(*end)
}

// RecurringInvoiceItem is a line template. Its amount is computed when an
// invoice is materialized from it.
type RecurringInvoiceItem struct {
	ID                 uuid.UUID       `json:"id"`
	RecurringInvoiceID uuid.UUID       `json:"recurring_invoice_id"`
	Description        string          `json:"description"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	Position           int32           `json:"position"`
}

type RecurringInvoiceDetail struct {
	RecurringInvoice
	Items []RecurringInvoiceItem `json:"items"`
}

type RecurringInvoiceParams struct {
	CustomerID    uuid.UUID
	Frequency     Frequency
	StartDate     time.Time
	EndDate       *time.Time
	TaxPercentage decimal.Decimal
	Notes         string
	Items         []LineItem
}

// MaterializeResult summarizes one sweep over due recurring invoices.
type MaterializeResult struct {
	Generated int
	Failed    int
}

type RecurringInvoiceService interface {
	CreateRecurringInvoice(ctx context.Context, tc TenantContext, params RecurringInvoiceParams) (*RecurringInvoiceDetail, error)
	UpdateRecurringInvoice(ctx context.Context, tc TenantContext, id uuid.UUID, params RecurringInvoiceParams) (*RecurringInvoiceDetail, error)

	// UpdateRecurringStatus toggles scheduling. next_invoice_date is untouched.
	// A template whose next occurrence is past its end date cannot be
	// reactivated.
	UpdateRecurringStatus(ctx context.Context, tc TenantContext, id uuid.UUID, isActive bool) (*RecurringInvoice, error)

	DeleteRecurringInvoice(ctx context.Context, tc TenantContext, id uuid.UUID) error
	GetRecurringInvoice(ctx context.Context, tc TenantContext, id uuid.UUID) (*RecurringInvoiceDetail, error)
	ListRecurringInvoices(ctx context.Context, tc TenantContext, params ListParams) []RecurringInvoice

	// GenerateInvoiceFromRecurring materializes the next cycle as an invoice
	// and advances the schedule.
	GenerateInvoiceFromRecurring(ctx context.Context, tc TenantContext, id uuid.UUID) (*InvoiceDetail, error)

	// MaterializeDue generates every active template due on or before asOf,
	// across tenants.
	MaterializeDue(ctx context.Context, asOf time.Time, limit int32) (MaterializeResult, error)
}
