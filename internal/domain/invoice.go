package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice-related domain errors.
var (
	ErrInvoiceAlreadyPaid   = &Error{Code: ESTATE, Message: "Invoice is already paid"}
	ErrInvoiceCancelled     = &Error{Code: ESTATE, Message: "Invoice is cancelled"}
	ErrInvoiceLocked        = &Error{Code: ESTATE, Message: "Paid or cancelled invoices cannot be edited"}
	ErrInvalidTransition    = &Error{Code: ESTATE, Message: "Invoice status change is not allowed"}
	ErrInvoiceNumberInUse   = &Error{Code: ESTATE, Message: "Invoice number already exists"}
	ErrCustomerEmailMissing = &Error{Code: EINVALID, Message: "Customer has no email address"}
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Valid reports whether s is one of the four invoice statuses.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// Editable reports whether line items and amounts may still change. Paid and
// cancelled invoices are settled records.
func (s InvoiceStatus) Editable() bool {
	return s == InvoiceStatusDraft || s == InvoiceStatusSent
}

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:     {InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusCancelled},
	InvoiceStatusSent:      {InvoiceStatusDraft, InvoiceStatusPaid, InvoiceStatusCancelled},
	InvoiceStatusPaid:      {InvoiceStatusCancelled},
	InvoiceStatusCancelled: {InvoiceStatusDraft},
}

// CanTransitionTo reports whether an invoice in status s may move to next.
// Staying in the same status is always allowed. A paid invoice can only be
// cancelled, which is what an approved refund does.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Invoice struct {
	ID                 uuid.UUID       `json:"id"`
	TenantID           uuid.UUID       `json:"tenant_id"`
	CustomerID         uuid.UUID       `json:"customer_id"`
	RecurringInvoiceID *uuid.UUID      `json:"recurring_invoice_id,omitempty"`
	InvoiceNumber      string          `json:"invoice_number"`
	InvoiceDate        time.Time       `json:"invoice_date"`
	DueDate            *time.Time      `json:"due_date,omitempty"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	TaxPercentage      decimal.Decimal `json:"tax_percentage"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	Total              decimal.Decimal `json:"total"`
	Currency           string          `json:"currency"`
	Notes              string          `json:"notes,omitempty"`
	Status             InvoiceStatus   `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type InvoiceItem struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	Position    int32           `json:"position"`
}

// InvoiceDetail is an invoice with its items and customer.
type InvoiceDetail struct {
	Invoice
	Items    []InvoiceItem `json:"items"`
	Customer *Customer     `json:"customer,omitempty"`
}

// InvoiceParams carries the tenant-supplied fields of an invoice. Totals are
// always derived from Items.
type InvoiceParams struct {
	CustomerID    uuid.UUID
	InvoiceDate   time.Time
	DueDate       *time.Time
	TaxPercentage decimal.Decimal
	Notes         string
	Items         []LineItem
}

type ListInvoicesParams struct {
	ListParams
	Status     InvoiceStatus
	CustomerID *uuid.UUID
}

type InvoiceService interface {
	CreateInvoice(ctx context.Context, tc TenantContext, params InvoiceParams) (*InvoiceDetail, error)

	// UpdateInvoice recomputes totals and replaces the full item set.
	UpdateInvoice(ctx context.Context, tc TenantContext, id uuid.UUID, params InvoiceParams) (*InvoiceDetail, error)

	UpdateInvoiceStatus(ctx context.Context, tc TenantContext, id uuid.UUID, status InvoiceStatus) (*Invoice, error)
	DeleteInvoice(ctx context.Context, tc TenantContext, id uuid.UUID) error
	GetInvoice(ctx context.Context, tc TenantContext, id uuid.UUID) (*InvoiceDetail, error)
	ListInvoices(ctx context.Context, tc TenantContext, params ListInvoicesParams) []Invoice

	// GenerateInvoiceNumber allocates the next number for the tenant. It
	// falls back to a timestamp-derived number when allocation fails.
	GenerateInvoiceNumber(ctx context.Context, tc TenantContext) string

	// SendInvoice marks the invoice sent and emails it to the customer.
	SendInvoice(ctx context.Context, tc TenantContext, id uuid.UUID) (*Invoice, error)
}
