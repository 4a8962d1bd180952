package repository

import (
	"context"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/google/uuid"
)

const paymentColumns = `id, tenant_id, invoice_id, amount, currency, gateway_order_id, gateway_payment_id,
gateway_signature, method, metadata, status, created_at, updated_at`

func scanPayment(row scanner) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID,
		&p.TenantID,
		&p.InvoiceID,
		&p.Amount,
		&p.Currency,
		&p.GatewayOrderID,
		&p.GatewayPaymentID,
		&p.GatewaySignature,
		&p.Method,
		&p.Metadata,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const createPayment = `
INSERT INTO payments (tenant_id, invoice_id, amount, currency, gateway_order_id, metadata, status)
VALUES ($1, $2, $3, $4, $5, COALESCE($6::jsonb, '{}'::jsonb), $7)
RETURNING ` + paymentColumns

func (q *Queries) CreatePayment(ctx context.Context, arg domain.Payment) (domain.Payment, error) {
	row := q.db.QueryRow(ctx, createPayment,
		arg.TenantID,
		arg.InvoiceID,
		arg.Amount,
		arg.Currency,
		arg.GatewayOrderID,
		nullableJSON(arg.Metadata),
		arg.Status,
	)
	return scanPayment(row)
}

const getPayment = `SELECT ` + paymentColumns + ` FROM payments WHERE tenant_id = $1 AND id = $2`

func (q *Queries) GetPayment(ctx context.Context, tenantID, id uuid.UUID) (domain.Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPayment, tenantID, id))
}

const getPaymentByOrderID = `SELECT ` + paymentColumns + ` FROM payments WHERE tenant_id = $1 AND gateway_order_id = $2`

func (q *Queries) GetPaymentByOrderID(ctx context.Context, tenantID uuid.UUID, gatewayOrderID string) (domain.Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPaymentByOrderID, tenantID, gatewayOrderID))
}

const getPaymentByGatewayOrder = `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_order_id = $1`

// GetPaymentByGatewayOrder is unscoped. Only gateway webhooks, which carry no
// tenant, may use it.
func (q *Queries) GetPaymentByGatewayOrder(ctx context.Context, gatewayOrderID string) (domain.Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPaymentByGatewayOrder, gatewayOrderID))
}

// completePayment only matches pending rows, so two racing verifications
// cannot both complete the same payment.
const completePayment = `
UPDATE payments
SET status = 'completed',
    gateway_payment_id = $2,
    gateway_signature = $3,
    method = $4,
    metadata = metadata || COALESCE($5::jsonb, '{}'::jsonb),
    updated_at = now()
WHERE id = $1 AND status = 'pending'
RETURNING ` + paymentColumns

func (q *Queries) CompletePayment(ctx context.Context, arg CompletePaymentParams) (domain.Payment, error) {
	row := q.db.QueryRow(ctx, completePayment,
		arg.ID,
		arg.GatewayPaymentID,
		arg.GatewaySignature,
		arg.Method,
		nullableJSON(arg.Metadata),
	)
	return scanPayment(row)
}

const transitionPayment = `
UPDATE payments
SET status = $3, updated_at = now()
WHERE id = $1 AND status = $2
RETURNING ` + paymentColumns

func (q *Queries) TransitionPayment(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus) (domain.Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, transitionPayment, id, from, to))
}

const listPayments = `
SELECT ` + paymentColumns + `
FROM payments
WHERE tenant_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListPayments(ctx context.Context, tenantID uuid.UUID, limit, offset int32) ([]domain.Payment, error) {
	rows, err := q.db.Query(ctx, listPayments, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPayment)
}

// nullableJSON maps an empty document to NULL so the column default applies.
func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
