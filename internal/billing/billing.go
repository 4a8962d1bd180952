package billing

//go:generate mockgen -source=billing.go -destination=billingmock/gateway.go -package=billingmock

import (
	"context"
	"encoding/json"
	"time"

	"github.com/DodailSolutions/billbook/internal/domain"
)

// Gateway defines the payment operations the invoicing services rely on.
// Implementations can use Stripe or any provider with an order/charge model.
type Gateway interface {
	// CreateOrder registers a payment for an invoice with the provider.
	// Returns the provider's order id and the client secret the payer's
	// browser needs to confirm it.
	CreateOrder(ctx context.Context, params OrderParams) (*Order, error)

	// VerifyPayment checks that the payer-supplied (order, payment, signature)
	// triple is authentic and that the payment succeeded.
	// Returns ErrSignatureMismatch or ErrPaymentNotSucceeded otherwise.
	VerifyPayment(ctx context.Context, orderID, paymentID, signature string) error

	// FetchPaymentDetails retrieves method and receipt details for a settled payment.
	FetchPaymentDetails(ctx context.Context, paymentID string) (*PaymentDetails, error)

	// CreateRefund refunds a settled payment in full or in part.
	CreateRefund(ctx context.Context, params RefundParams) (*Refund, error)

	// CreatePlanCheckout starts a hosted checkout for a SaaS plan subscription.
	CreatePlanCheckout(ctx context.Context, params PlanCheckoutParams) (*domain.CheckoutSession, error)

	// ParseWebhook verifies a webhook signature and decodes the event.
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// OrderParams contains parameters for creating a payment order.
type OrderParams struct {
	// Amount is in the smallest currency unit (paise for INR)
	Amount int64

	// Currency code (ISO 4217), e.g. "INR"
	Currency string

	// Receipt appears on the payer's statement; the invoice number
	Receipt string

	// Notes are attached as provider metadata (tenant_id, invoice_id, invoice_number)
	Notes map[string]string

	// IdempotencyKey prevents duplicate orders on client retries
	IdempotencyKey string
}

// Order is a payment order awaiting confirmation by the payer.
type Order struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       string
	CreatedAt    time.Time
}

// PaymentDetails describes a settled payment.
type PaymentDetails struct {
	ID         string
	Method     string
	CardBrand  string
	CardLast4  string
	ReceiptURL string
	Amount     int64
	Currency   string
}

// Metadata renders the details as JSON for the payment's metadata column.
func (d *PaymentDetails) Metadata() json.RawMessage {
	if d == nil {
		return nil
	}
	m := map[string]string{}
	if d.CardBrand != "" {
		m["card_brand"] = d.CardBrand
	}
	if d.CardLast4 != "" {
		m["card_last4"] = d.CardLast4
	}
	if d.ReceiptURL != "" {
		m["receipt_url"] = d.ReceiptURL
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}

// RefundParams contains parameters for refunding a payment.
type RefundParams struct {
	// PaymentID is the provider's payment (charge) id
	PaymentID string

	// Amount in the smallest currency unit; zero refunds the full charge
	Amount int64

	Notes          map[string]string
	IdempotencyKey string
}

// Refund is a refund created at the provider.
type Refund struct {
	ID        string
	PaymentID string
	Amount    int64
	Currency  string
	Status    string
}

// PlanCheckoutParams contains parameters for a plan purchase checkout.
type PlanCheckoutParams struct {
	TenantID      string
	PlanID        string
	PriceID       string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// Webhook event types handled by the application.
const (
	EventPaymentFailed     = "payment_intent.payment_failed"
	EventPaymentCanceled   = "payment_intent.canceled"
	EventCheckoutCompleted = "checkout.session.completed"
)

// WebhookEvent is a verified provider event reduced to the fields we act on.
type WebhookEvent struct {
	ID   string
	Type string

	// OrderID is set for payment events.
	OrderID       string
	FailureReason string

	// Checkout is set for completed plan checkouts.
	Checkout *domain.CompletedCheckout
}
