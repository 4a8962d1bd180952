package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment and refund errors.
var (
	ErrPaymentVerificationFailed = &Error{Code: EPAYMENT, Message: "Payment verification failed"}
	ErrPaymentNotPending         = &Error{Code: ESTATE, Message: "Payment is no longer pending"}
	ErrPaymentNotRefundable      = &Error{Code: ESTATE, Message: "Only completed payments can be refunded"}
	ErrPaymentNotCaptured        = &Error{Code: ESTATE, Message: "Payment has no captured gateway payment"}
	ErrRefundInProgress          = &Error{Code: ESTATE, Message: "A refund is already in progress for this payment"}
	ErrRefundNotPending          = &Error{Code: ESTATE, Message: "Refund has already been processed"}
	ErrRefundNotPermitted        = &Error{Code: EFORBIDDEN, Message: "Only owners and admins can process refunds"}
)

type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusCompleted     PaymentStatus = "completed"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusRefunded      PaymentStatus = "refunded"
	PaymentStatusPartialRefund PaymentStatus = "partial_refund"
)

type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "pending"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusCompleted  RefundStatus = "completed"
	RefundStatusFailed     RefundStatus = "failed"
)

type Payment struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	InvoiceID        *uuid.UUID      `json:"invoice_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	GatewayOrderID   string          `json:"gateway_order_id"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	GatewaySignature string          `json:"-"`
	Method           string          `json:"method,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	Status           PaymentStatus   `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type Refund struct {
	ID              uuid.UUID       `json:"id"`
	TenantID        uuid.UUID       `json:"tenant_id"`
	PaymentID       uuid.UUID       `json:"payment_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Reason          string          `json:"reason"`
	Status          RefundStatus    `json:"status"`
	GatewayRefundID string          `json:"gateway_refund_id,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	ProcessedBy     *uuid.UUID      `json:"processed_by,omitempty"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// PaymentOrder is what a client needs to start gateway checkout.
type PaymentOrder struct {
	PaymentID    uuid.UUID       `json:"payment_id"`
	OrderID      string          `json:"order_id"`
	Amount       decimal.Decimal `json:"amount"`
	AmountMinor  int64           `json:"amount_minor"`
	Currency     string          `json:"currency"`
	ClientSecret string          `json:"client_secret,omitempty"`
}

// VerifyPaymentParams is the triple a client returns after checkout.
type VerifyPaymentParams struct {
	OrderID   string
	PaymentID string
	Signature string
}

type ProcessRefundParams struct {
	RefundID uuid.UUID
	Approve  bool
	Notes    string
}

type PaymentService interface {
	// CreatePaymentOrder opens a gateway order for an unpaid invoice and
	// records a pending payment.
	CreatePaymentOrder(ctx context.Context, tc TenantContext, invoiceID uuid.UUID) (*PaymentOrder, error)

	// VerifyAndCompletePayment completes a pending payment once the gateway
	// has verified the checkout triple, and marks its invoice paid.
	VerifyAndCompletePayment(ctx context.Context, tc TenantContext, params VerifyPaymentParams) (*Payment, error)

	// FailPayment moves a pending payment to failed. Driven by gateway webhooks.
	FailPayment(ctx context.Context, gatewayOrderID, reason string) error

	RequestRefund(ctx context.Context, tc TenantContext, paymentID uuid.UUID, reason string) (*Refund, error)
	ProcessRefund(ctx context.Context, tc TenantContext, params ProcessRefundParams) (*Refund, error)

	ListPayments(ctx context.Context, tc TenantContext, params ListParams) []Payment
	ListRefunds(ctx context.Context, tc TenantContext, params ListParams) []Refund
}
