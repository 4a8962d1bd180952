package repository

import (
	"context"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/google/uuid"
)

const subscriptionColumns = `tenant_id, plan, status, stripe_customer_id, stripe_subscription_id, current_period_end, updated_at`

func scanSubscription(row scanner) (domain.Subscription, error) {
	var s domain.Subscription
	err := row.Scan(
		&s.TenantID,
		&s.Plan,
		&s.Status,
		&s.StripeCustomerID,
		&s.StripeSubscriptionID,
		&s.CurrentPeriodEnd,
		&s.UpdatedAt,
	)
	return s, err
}

const getSubscription = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE tenant_id = $1`

func (q *Queries) GetSubscription(ctx context.Context, tenantID uuid.UUID) (domain.Subscription, error) {
	return scanSubscription(q.db.QueryRow(ctx, getSubscription, tenantID))
}

const upsertSubscription = `
INSERT INTO subscriptions (tenant_id, plan, status, stripe_customer_id, stripe_subscription_id, current_period_end)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (tenant_id) DO UPDATE
SET plan = EXCLUDED.plan,
    status = EXCLUDED.status,
    stripe_customer_id = COALESCE(NULLIF(EXCLUDED.stripe_customer_id, ''), subscriptions.stripe_customer_id),
    stripe_subscription_id = COALESCE(NULLIF(EXCLUDED.stripe_subscription_id, ''), subscriptions.stripe_subscription_id),
    current_period_end = COALESCE(EXCLUDED.current_period_end, subscriptions.current_period_end),
    updated_at = now()
RETURNING ` + subscriptionColumns

func (q *Queries) UpsertSubscription(ctx context.Context, arg domain.Subscription) (domain.Subscription, error) {
	row := q.db.QueryRow(ctx, upsertSubscription,
		arg.TenantID,
		arg.Plan,
		arg.Status,
		arg.StripeCustomerID,
		arg.StripeSubscriptionID,
		arg.CurrentPeriodEnd,
	)
	return scanSubscription(row)
}
