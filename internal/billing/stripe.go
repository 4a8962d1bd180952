package billing

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/charge"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
	"github.com/stripe/stripe-go/v82/webhook"
)

// minimumOrderAmount is Stripe's smallest chargeable INR amount in paise.
const minimumOrderAmount = 50

// StripeGateway implements Gateway using Stripe PaymentIntents.
//
// An order is a PaymentIntent, the payment id is its latest Charge and the
// signature is the PaymentIntent client secret the browser confirmed with.
type StripeGateway struct {
	webhookSecret string
}

// NewStripeGateway configures the Stripe SDK backend and returns a gateway.
func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	if cfg.APIKey == "" {
		return nil, ErrInvalidAPIKey
	}
	cfg = cfg.withDefaults()

	stripe.Key = cfg.APIKey
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		MaxNetworkRetries: stripe.Int64(int64(cfg.MaxRetries)),
	})
	stripe.SetBackend(stripe.APIBackend, backend)

	return &StripeGateway{webhookSecret: cfg.WebhookSecret}, nil
}

func (g *StripeGateway) CreateOrder(ctx context.Context, params OrderParams) (*Order, error) {
	if params.Amount < minimumOrderAmount {
		return nil, ErrAmountTooSmall
	}

	p := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(params.Amount),
		Currency:    stripe.String(strings.ToLower(params.Currency)),
		Description: stripe.String(params.Receipt),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	p.Context = ctx
	for k, v := range params.Notes {
		p.AddMetadata(k, v)
	}
	if params.IdempotencyKey != "" {
		p.SetIdempotencyKey(params.IdempotencyKey)
	}

	pi, err := paymentintent.New(p)
	if err != nil {
		return nil, wrapStripeError(err, nil)
	}

	return &Order{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     strings.ToUpper(string(pi.Currency)),
		Status:       string(pi.Status),
		CreatedAt:    time.Unix(pi.Created, 0),
	}, nil
}

func (g *StripeGateway) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) error {
	p := &stripe.PaymentIntentParams{}
	p.Context = ctx

	pi, err := paymentintent.Get(orderID, p)
	if err != nil {
		return wrapStripeError(err, ErrOrderNotFound)
	}
	return verifyIntent(pi, paymentID, signature)
}

// verifyIntent checks a retrieved PaymentIntent against the payer's claim.
func verifyIntent(pi *stripe.PaymentIntent, paymentID, signature string) error {
	if pi == nil || signature == "" {
		return ErrSignatureMismatch
	}
	if subtle.ConstantTimeCompare([]byte(pi.ClientSecret), []byte(signature)) != 1 {
		return ErrSignatureMismatch
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return ErrPaymentNotSucceeded
	}
	if pi.LatestCharge == nil || pi.LatestCharge.ID != paymentID {
		return ErrSignatureMismatch
	}
	return nil
}

func (g *StripeGateway) FetchPaymentDetails(ctx context.Context, paymentID string) (*PaymentDetails, error) {
	p := &stripe.ChargeParams{}
	p.Context = ctx

	ch, err := charge.Get(paymentID, p)
	if err != nil {
		return nil, wrapStripeError(err, nil)
	}
	return chargeDetails(ch), nil
}

func chargeDetails(ch *stripe.Charge) *PaymentDetails {
	d := &PaymentDetails{
		ID:         ch.ID,
		ReceiptURL: ch.ReceiptURL,
		Amount:     ch.Amount,
		Currency:   strings.ToUpper(string(ch.Currency)),
	}
	if pm := ch.PaymentMethodDetails; pm != nil {
		d.Method = string(pm.Type)
		if pm.Card != nil {
			d.CardBrand = string(pm.Card.Brand)
			d.CardLast4 = pm.Card.Last4
		}
	}
	return d
}

func (g *StripeGateway) CreateRefund(ctx context.Context, params RefundParams) (*Refund, error) {
	p := &stripe.RefundParams{
		Charge: stripe.String(params.PaymentID),
		Reason: stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	if params.Amount > 0 {
		p.Amount = stripe.Int64(params.Amount)
	}
	p.Context = ctx
	for k, v := range params.Notes {
		p.AddMetadata(k, v)
	}
	if params.IdempotencyKey != "" {
		p.SetIdempotencyKey(params.IdempotencyKey)
	}

	r, err := refund.New(p)
	if err != nil {
		return nil, wrapStripeError(err, nil)
	}

	return &Refund{
		ID:        r.ID,
		PaymentID: params.PaymentID,
		Amount:    r.Amount,
		Currency:  strings.ToUpper(string(r.Currency)),
		Status:    string(r.Status),
	}, nil
}

func (g *StripeGateway) CreatePlanCheckout(ctx context.Context, params PlanCheckoutParams) (*domain.CheckoutSession, error) {
	if params.PriceID == "" {
		return nil, ErrMissingPrice
	}

	p := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(params.TenantID),
		SuccessURL:        stripe.String(params.SuccessURL),
		CancelURL:         stripe.String(params.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"tenant_id": params.TenantID,
				"plan":      params.PlanID,
			},
		},
	}
	if params.CustomerEmail != "" {
		p.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	p.Context = ctx
	p.AddMetadata("tenant_id", params.TenantID)
	p.AddMetadata("plan", params.PlanID)

	s, err := session.New(p)
	if err != nil {
		return nil, wrapStripeError(err, nil)
	}
	return &domain.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookSignature, err)
	}
	return decodeEvent(event)
}

// decodeEvent extracts the fields of interest from a verified event.
// Unhandled event types come back with only ID and Type set.
func decodeEvent(event stripe.Event) (*WebhookEvent, error) {
	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventPaymentFailed, EventPaymentCanceled:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		out.OrderID = pi.ID
		switch {
		case pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "":
			out.FailureReason = pi.LastPaymentError.Msg
		case pi.CancellationReason != "":
			out.FailureReason = "canceled: " + string(pi.CancellationReason)
		default:
			out.FailureReason = out.Type
		}

	case EventCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		tenantID, err := uuid.Parse(s.ClientReferenceID)
		if err != nil {
			return nil, fmt.Errorf("checkout session %s: invalid client reference: %w", s.ID, err)
		}
		c := &domain.CompletedCheckout{
			SessionID:   s.ID,
			TenantID:    tenantID,
			Plan:        s.Metadata["plan"],
			AmountTotal: s.AmountTotal,
			Currency:    strings.ToUpper(string(s.Currency)),
		}
		if s.CustomerDetails != nil {
			c.CustomerEmail = s.CustomerDetails.Email
		}
		if s.Customer != nil {
			c.StripeCustomerID = s.Customer.ID
		}
		if s.Subscription != nil {
			c.StripeSubscriptionID = s.Subscription.ID
		}
		out.Checkout = c
	}

	return out, nil
}
