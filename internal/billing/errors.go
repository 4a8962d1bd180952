package billing

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
)

var (
	// ErrInvalidAPIKey is returned when Stripe API key is invalid or missing.
	ErrInvalidAPIKey = errors.New("billing: invalid or missing API key")

	// ErrOrderNotFound is returned when the payment order does not exist.
	ErrOrderNotFound = errors.New("billing: order not found")

	// ErrSignatureMismatch is returned when the payer-supplied signature or
	// payment id does not match the order.
	ErrSignatureMismatch = errors.New("billing: payment signature mismatch")

	// ErrPaymentNotSucceeded is returned when the order has not been paid.
	ErrPaymentNotSucceeded = errors.New("billing: payment has not succeeded")

	// ErrInvalidWebhookSignature is returned when webhook signature verification fails.
	ErrInvalidWebhookSignature = errors.New("billing: invalid webhook signature")

	// ErrAmountTooSmall is returned for orders below the provider minimum.
	ErrAmountTooSmall = errors.New("billing: amount too small")

	// ErrMissingPrice is returned when a plan has no provider price configured.
	ErrMissingPrice = errors.New("billing: plan has no price id")
)

// StripeError wraps a Stripe API error with additional context.
type StripeError struct {
	Message       string // Human-readable error message
	Code          string // Stripe error code (e.g., "card_declined")
	DeclineCode   string // Card decline reason (if applicable)
	StatusCode    int    // HTTP status code from Stripe
	RequestID     string // Stripe request ID for debugging
	OriginalError error  // Original error from Stripe SDK
}

func (e *StripeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe: %s (code: %s)", e.Message, e.Code)
	}
	return fmt.Sprintf("stripe: %s", e.Message)
}

func (e *StripeError) Unwrap() error {
	return e.OriginalError
}

// IsDeclined returns true if error is due to card decline.
func (e *StripeError) IsDeclined() bool {
	return e.Code == "card_declined" || e.DeclineCode != ""
}

// IsTemporary returns true if error is likely transient and retryable.
func (e *StripeError) IsTemporary() bool {
	return e.Code == "rate_limit" || e.StatusCode == 429 || e.StatusCode >= 500
}

// wrapStripeError converts SDK errors into StripeError, mapping the
// resource_missing code onto notFound when given.
func wrapStripeError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	var se *stripe.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("stripe: %w", err)
	}
	if notFound != nil && se.Code == stripe.ErrorCodeResourceMissing {
		return notFound
	}
	return &StripeError{
		Message:       se.Msg,
		Code:          string(se.Code),
		DeclineCode:   string(se.DeclineCode),
		StatusCode:    se.HTTPStatusCode,
		RequestID:     se.RequestID,
		OriginalError: err,
	}
}
