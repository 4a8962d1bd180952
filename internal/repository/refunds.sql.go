package repository

import (
	"context"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/google/uuid"
)

const refundColumns = `id, tenant_id, payment_id, amount, currency, reason, status, gateway_refund_id, notes,
processed_by, processed_at, created_at, updated_at`

func scanRefund(row scanner) (domain.Refund, error) {
	var r domain.Refund
	err := row.Scan(
		&r.ID,
		&r.TenantID,
		&r.PaymentID,
		&r.Amount,
		&r.Currency,
		&r.Reason,
		&r.Status,
		&r.GatewayRefundID,
		&r.Notes,
		&r.ProcessedBy,
		&r.ProcessedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

const createRefund = `
INSERT INTO refunds (tenant_id, payment_id, amount, currency, reason, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + refundColumns

func (q *Queries) CreateRefund(ctx context.Context, arg domain.Refund) (domain.Refund, error) {
	row := q.db.QueryRow(ctx, createRefund,
		arg.TenantID,
		arg.PaymentID,
		arg.Amount,
		arg.Currency,
		arg.Reason,
		arg.Status,
	)
	return scanRefund(row)
}

const getRefund = `SELECT ` + refundColumns + ` FROM refunds WHERE tenant_id = $1 AND id = $2`

func (q *Queries) GetRefund(ctx context.Context, tenantID, id uuid.UUID) (domain.Refund, error) {
	return scanRefund(q.db.QueryRow(ctx, getRefund, tenantID, id))
}

const getRefundAnyTenant = `SELECT ` + refundColumns + ` FROM refunds WHERE id = $1`

// GetRefundAnyTenant is unscoped and reserved for the super-admin console.
func (q *Queries) GetRefundAnyTenant(ctx context.Context, id uuid.UUID) (domain.Refund, error) {
	return scanRefund(q.db.QueryRow(ctx, getRefundAnyTenant, id))
}

const hasActiveRefund = `
SELECT EXISTS (
    SELECT 1 FROM refunds WHERE payment_id = $1 AND status IN ('pending', 'processing')
)`

func (q *Queries) HasActiveRefund(ctx context.Context, paymentID uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, hasActiveRefund, paymentID).Scan(&exists)
	return exists, err
}

const transitionRefund = `
UPDATE refunds
SET status = $3,
    gateway_refund_id = COALESCE(NULLIF($4, ''), gateway_refund_id),
    notes = COALESCE(NULLIF($5, ''), notes),
    processed_by = COALESCE($6, processed_by),
    processed_at = COALESCE($7, processed_at),
    updated_at = now()
WHERE id = $1 AND status = ANY($2::text[])
RETURNING ` + refundColumns

func (q *Queries) TransitionRefund(ctx context.Context, arg TransitionRefundParams) (domain.Refund, error) {
	from := make([]string, len(arg.From))
	for i, s := range arg.From {
		from[i] = string(s)
	}
	row := q.db.QueryRow(ctx, transitionRefund,
		arg.ID,
		from,
		arg.To,
		arg.GatewayRefundID,
		arg.Notes,
		arg.ProcessedBy,
		arg.ProcessedAt,
	)
	return scanRefund(row)
}

const listRefunds = `
SELECT ` + refundColumns + `
FROM refunds
WHERE tenant_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListRefunds(ctx context.Context, tenantID uuid.UUID, limit, offset int32) ([]domain.Refund, error) {
	rows, err := q.db.Query(ctx, listRefunds, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanRefund)
}

const listRefundsByStatus = `
SELECT ` + refundColumns + `
FROM refunds
WHERE status = $1
ORDER BY created_at
LIMIT $2 OFFSET $3`

func (q *Queries) ListRefundsByStatus(ctx context.Context, status domain.RefundStatus, limit, offset int32) ([]domain.Refund, error) {
	rows, err := q.db.Query(ctx, listRefundsByStatus, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanRefund)
}
