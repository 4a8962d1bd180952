package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/DodailSolutions/billbook/internal/billing"
	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/handler"
	"github.com/DodailSolutions/billbook/internal/telemetry"
)

// SignatureHeader carries the Stripe webhook signature.
const SignatureHeader = "Stripe-Signature"

// PaymentFailer is the part of the payment service driven by gateway events.
type PaymentFailer interface {
	FailPayment(ctx context.Context, gatewayOrderID, reason string) error
}

// CheckoutCompleter is the part of the plan service driven by gateway events.
type CheckoutCompleter interface {
	CompleteCheckout(ctx context.Context, checkout domain.CompletedCheckout) error
}

// StripeHandler handles Stripe webhook events
type StripeHandler struct {
	gateway  billing.Gateway
	payments PaymentFailer
	plans    CheckoutCompleter
	logger   *slog.Logger
}

// NewStripeHandler creates a new Stripe webhook handler
func NewStripeHandler(gateway billing.Gateway, payments PaymentFailer, plans CheckoutCompleter, logger *slog.Logger) *StripeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeHandler{
		gateway:  gateway,
		payments: payments,
		plans:    plans,
		logger:   logger.With("handler", "stripe_webhook"),
	}
}

// HandleWebhook handles POST /webhooks/stripe.
//
// Once the signature checks out the handler always answers 200, even when
// processing fails, so Stripe does not redeliver events we already logged
// and reported. Local testing:
//
//	stripe listen --forward-to localhost:8080/webhooks/stripe
//	stripe trigger payment_intent.payment_failed
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handler.ErrorResponse(w, r, domain.Errorf(domain.ETOOLARGE, "webhook.stripe", "Request body too large"))
			return
		}
		handler.ErrorResponse(w, r, domain.Invalid("webhook.stripe", "Error reading request body"))
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		handler.ErrorResponse(w, r, domain.Invalid("webhook.stripe", "Missing signature"))
		return
	}

	event, err := h.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidWebhookSignature) {
			h.logger.Warn("webhook signature verification failed", "error", err)
			handler.ErrorResponse(w, r, domain.Unauthorized("webhook.stripe", "Invalid signature"))
			return
		}
		h.logger.Error("webhook payload could not be decoded", "error", err)
		handler.ErrorResponse(w, r, domain.Invalid("webhook.stripe", "Invalid event payload"))
		return
	}

	if telemetry.Business != nil {
		telemetry.Business.WebhookReceived.WithLabelValues(event.Type).Inc()
		defer func() {
			telemetry.Business.WebhookLatency.WithLabelValues(event.Type).Observe(time.Since(start).Seconds())
		}()
	}

	logger := h.logger.With("event_id", event.ID, "event_type", event.Type)
	logger.Info("webhook received")

	switch event.Type {
	case billing.EventPaymentFailed, billing.EventPaymentCanceled:
		h.handlePaymentFailed(r.Context(), logger, event)
	case billing.EventCheckoutCompleted:
		h.handleCheckoutCompleted(r.Context(), logger, event)
	default:
		logger.Debug("ignoring unhandled event type")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"received": true}`))
}

func (h *StripeHandler) handlePaymentFailed(ctx context.Context, logger *slog.Logger, event *billing.WebhookEvent) {
	if event.OrderID == "" {
		logger.Warn("payment event without payment intent id")
		return
	}
	if err := h.payments.FailPayment(ctx, event.OrderID, event.FailureReason); err != nil {
		h.recordFailure(logger, event, "fail_payment", err, map[string]interface{}{"order_id": event.OrderID})
		return
	}
	h.recordProcessed(event)
}

func (h *StripeHandler) handleCheckoutCompleted(ctx context.Context, logger *slog.Logger, event *billing.WebhookEvent) {
	if event.Checkout == nil {
		logger.Warn("checkout event without session details")
		return
	}
	if err := h.plans.CompleteCheckout(ctx, *event.Checkout); err != nil {
		h.recordFailure(logger, event, "complete_checkout", err, map[string]interface{}{
			"session_id": event.Checkout.SessionID,
			"tenant_id":  event.Checkout.TenantID.String(),
			"plan":       event.Checkout.Plan,
		})
		return
	}
	h.recordProcessed(event)
}

func (h *StripeHandler) recordProcessed(event *billing.WebhookEvent) {
	if telemetry.Business != nil {
		telemetry.Business.WebhookProcessed.WithLabelValues(event.Type).Inc()
	}
}

func (h *StripeHandler) recordFailure(logger *slog.Logger, event *billing.WebhookEvent, stage string, err error, extras map[string]interface{}) {
	logger.Error("webhook processing failed", "stage", stage, "error", err)
	if telemetry.Business != nil {
		telemetry.Business.WebhookFailed.WithLabelValues(event.Type, stage).Inc()
	}
	extras["event_id"] = event.ID
	extras["event_type"] = event.Type
	telemetry.CaptureError(err, extras)
}
