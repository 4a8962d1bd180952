package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownPlan        = &Error{Code: EINVALID, Message: "Unknown plan"}
	ErrPlanNotPurchasable = &Error{Code: EINVALID, Message: "This plan cannot be purchased"}
)

// PlanFree is the plan every tenant starts on.
const PlanFree = "free"

// Plan is a SaaS subscription tier.
type Plan struct {
	ID             string          `json:"id" yaml:"id"`
	Name           string          `json:"name" yaml:"name"`
	Price          decimal.Decimal `json:"price" yaml:"-"`
	PriceLabel     string          `json:"price_label" yaml:"price"`
	Interval       string          `json:"interval" yaml:"interval"`
	MaxTeamMembers int             `json:"max_team_members" yaml:"max_team_members"`
	StripePriceID  string          `json:"-" yaml:"stripe_price_id"`
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

type Subscription struct {
	TenantID             uuid.UUID          `json:"tenant_id"`
	Plan                 string             `json:"plan"`
	Status               SubscriptionStatus `json:"status"`
	StripeCustomerID     string             `json:"-"`
	StripeSubscriptionID string             `json:"-"`
	CurrentPeriodEnd     *time.Time         `json:"current_period_end,omitempty"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// CheckoutSession is a hosted checkout the caller should be redirected to.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CompletedCheckout is what the gateway reports once a plan purchase settles.
type CompletedCheckout struct {
	SessionID            string
	TenantID             uuid.UUID
	Plan                 string
	CustomerEmail        string
	StripeCustomerID     string
	StripeSubscriptionID string
	AmountTotal          int64
	Currency             string
}

type PlanService interface {
	ListPlans() []Plan
	CurrentPlan(ctx context.Context, tc TenantContext) (*Plan, error)
	StartCheckout(ctx context.Context, tc TenantContext, planID string) (*CheckoutSession, error)
	CompleteCheckout(ctx context.Context, checkout CompletedCheckout) error
}
