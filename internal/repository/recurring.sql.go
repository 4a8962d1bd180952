package repository

import (
	"context"
	"time"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/google/uuid"
)

const recurringColumns = `id, tenant_id, customer_id, frequency, start_date, end_date, next_invoice_date,
cycles_generated, tax_percentage, notes, is_active, created_at, updated_at`

func scanRecurringInvoice(row scanner) (domain.RecurringInvoice, error) {
	var r domain.RecurringInvoice
	err := row.Scan(
		&r.ID,
		&r.TenantID,
		&r.CustomerID,
		&r.Frequency,
		&r.StartDate,
		&r.EndDate,
		&r.NextInvoiceDate,
		&r.CyclesGenerated,
		&r.TaxPercentage,
		&r.Notes,
		&r.IsActive,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

const recurringItemColumns = `id, recurring_invoice_id, description, quantity, unit_price, position`

func scanRecurringInvoiceItem(row scanner) (domain.RecurringInvoiceItem, error) {
	var i domain.RecurringInvoiceItem
	err := row.Scan(
		&i.ID,
		&i.RecurringInvoiceID,
		&i.Description,
		&i.Quantity,
		&i.UnitPrice,
		&i.Position,
	)
	return i, err
}

const createRecurringInvoice = `
INSERT INTO recurring_invoices (
    tenant_id, customer_id, frequency, start_date, end_date, next_invoice_date,
    tax_percentage, notes, is_active
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + recurringColumns

func (q *Queries) CreateRecurringInvoice(ctx context.Context, arg domain.RecurringInvoice) (domain.RecurringInvoice, error) {
	row := q.db.QueryRow(ctx, createRecurringInvoice,
		arg.TenantID,
		arg.CustomerID,
		arg.Frequency,
		arg.StartDate,
		arg.EndDate,
		arg.NextInvoiceDate,
		arg.TaxPercentage,
		arg.Notes,
		arg.IsActive,
	)
	return scanRecurringInvoice(row)
}

const createRecurringInvoiceItem = `
INSERT INTO recurring_invoice_items (recurring_invoice_id, description, quantity, unit_price, position)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + recurringItemColumns

func (q *Queries) CreateRecurringInvoiceItem(ctx context.Context, arg domain.RecurringInvoiceItem) (domain.RecurringInvoiceItem, error) {
	row := q.db.QueryRow(ctx, createRecurringInvoiceItem,
		arg.RecurringInvoiceID,
		arg.Description,
		arg.Quantity,
		arg.UnitPrice,
		arg.Position,
	)
	return scanRecurringInvoiceItem(row)
}

const updateRecurringInvoice = `
UPDATE recurring_invoices
SET customer_id = $3,
    frequency = $4,
    start_date = $5,
    end_date = $6,
    next_invoice_date = $7,
    tax_percentage = $8,
    notes = $9,
    is_active = $10,
    updated_at = now()
WHERE tenant_id = $1 AND id = $2
RETURNING ` + recurringColumns

func (q *Queries) UpdateRecurringInvoice(ctx context.Context, arg domain.RecurringInvoice) (domain.RecurringInvoice, error) {
	row := q.db.QueryRow(ctx, updateRecurringInvoice,
		arg.TenantID,
		arg.ID,
		arg.CustomerID,
		arg.Frequency,
		arg.StartDate,
		arg.EndDate,
		arg.NextInvoiceDate,
		arg.TaxPercentage,
		arg.Notes,
		arg.IsActive,
	)
	return scanRecurringInvoice(row)
}

const updateRecurringInvoiceActive = `
UPDATE recurring_invoices
SET is_active = $3, updated_at = now()
WHERE tenant_id = $1 AND id = $2
RETURNING ` + recurringColumns

func (q *Queries) UpdateRecurringInvoiceActive(ctx context.Context, tenantID, id uuid.UUID, isActive bool) (domain.RecurringInvoice, error) {
	return scanRecurringInvoice(q.db.QueryRow(ctx, updateRecurringInvoiceActive, tenantID, id, isActive))
}

const deleteRecurringInvoiceItems = `DELETE FROM recurring_invoice_items WHERE recurring_invoice_id = $1`

func (q *Queries) DeleteRecurringInvoiceItems(ctx context.Context, recurringInvoiceID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteRecurringInvoiceItems, recurringInvoiceID)
	return err
}

const deleteRecurringInvoice = `DELETE FROM recurring_invoices WHERE tenant_id = $1 AND id = $2`

func (q *Queries) DeleteRecurringInvoice(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteRecurringInvoice, tenantID, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const getRecurringInvoice = `SELECT ` + recurringColumns + ` FROM recurring_invoices WHERE tenant_id = $1 AND id = $2`

func (q *Queries) GetRecurringInvoice(ctx context.Context, tenantID, id uuid.UUID) (domain.RecurringInvoice, error) {
	return scanRecurringInvoice(q.db.QueryRow(ctx, getRecurringInvoice, tenantID, id))
}

const listRecurringInvoiceItems = `
SELECT ` + recurringItemColumns + `
FROM recurring_invoice_items
WHERE recurring_invoice_id = $1
ORDER BY position, id`

func (q *Queries) ListRecurringInvoiceItems(ctx context.Context, recurringInvoiceID uuid.UUID) ([]domain.RecurringInvoiceItem, error) {
	rows, err := q.db.Query(ctx, listRecurringInvoiceItems, recurringInvoiceID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanRecurringInvoiceItem)
}

const listRecurringInvoices = `
SELECT ` + recurringColumns + `
FROM recurring_invoices
WHERE tenant_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListRecurringInvoices(ctx context.Context, tenantID uuid.UUID, limit, offset int32) ([]domain.RecurringInvoice, error) {
	rows, err := q.db.Query(ctx, listRecurringInvoices, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanRecurringInvoice)
}

const listDueRecurringInvoices = `
SELECT ` + recurringColumns + `
FROM recurring_invoices
WHERE is_active AND next_invoice_date <= $1
ORDER BY next_invoice_date, id
LIMIT $2`

func (q *Queries) ListDueRecurringInvoices(ctx context.Context, asOf time.Time, limit int32) ([]domain.RecurringInvoice, error) {
	rows, err := q.db.Query(ctx, listDueRecurringInvoices, asOf, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanRecurringInvoice)
}

const materializeRecurringInvoice = `SELECT materialize_recurring_invoice($1, $2)`

func (q *Queries) MaterializeRecurringInvoice(ctx context.Context, tenantID, id uuid.UUID) (uuid.UUID, error) {
	var invoiceID uuid.UUID
	err := q.db.QueryRow(ctx, materializeRecurringInvoice, id, tenantID).Scan(&invoiceID)
	return invoiceID, err
}
