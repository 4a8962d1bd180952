package repository

import (
	"context"
	"time"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/google/uuid"
)

const invoiceColumns = `id, tenant_id, customer_id, recurring_invoice_id, invoice_number, invoice_date, due_date,
subtotal, tax_percentage, tax_amount, total, currency, notes, status, created_at, updated_at`

func scanInvoice(row scanner) (domain.Invoice, error) {
	var i domain.Invoice
	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.CustomerID,
		&i.RecurringInvoiceID,
		&i.InvoiceNumber,
		&i.InvoiceDate,
		&i.DueDate,
		&i.Subtotal,
		&i.TaxPercentage,
		&i.TaxAmount,
		&i.Total,
		&i.Currency,
		&i.Notes,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const invoiceItemColumns = `id, invoice_id, description, quantity, unit_price, amount, position`

func scanInvoiceItem(row scanner) (domain.InvoiceItem, error) {
	var i domain.InvoiceItem
	err := row.Scan(
		&i.ID,
		&i.InvoiceID,
		&i.Description,
		&i.Quantity,
		&i.UnitPrice,
		&i.Amount,
		&i.Position,
	)
	return i, err
}

const allocateInvoiceNumber = `SELECT allocate_next_invoice_number($1)`

func (q *Queries) AllocateInvoiceNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	var number string
	err := q.db.QueryRow(ctx, allocateInvoiceNumber, tenantID).Scan(&number)
	return number, err
}

const createInvoice = `
INSERT INTO invoices (
    tenant_id, customer_id, recurring_invoice_id, invoice_number, invoice_date, due_date,
    subtotal, tax_percentage, tax_amount, total, currency, notes, status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING ` + invoiceColumns

func (q *Queries) CreateInvoice(ctx context.Context, arg domain.Invoice) (domain.Invoice, error) {
	row := q.db.QueryRow(ctx, createInvoice,
		arg.TenantID,
		arg.CustomerID,
		arg.RecurringInvoiceID,
		arg.InvoiceNumber,
		arg.InvoiceDate,
		arg.DueDate,
		arg.Subtotal,
		arg.TaxPercentage,
		arg.TaxAmount,
		arg.Total,
		arg.Currency,
		arg.Notes,
		arg.Status,
	)
	return scanInvoice(row)
}

const createInvoiceItem = `
INSERT INTO invoice_items (invoice_id, description, quantity, unit_price, amount, position)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + invoiceItemColumns

func (q *Queries) CreateInvoiceItem(ctx context.Context, arg domain.InvoiceItem) (domain.InvoiceItem, error) {
	row := q.db.QueryRow(ctx, createInvoiceItem,
		arg.InvoiceID,
		arg.Description,
		arg.Quantity,
		arg.UnitPrice,
		arg.Amount,
		arg.Position,
	)
	return scanInvoiceItem(row)
}

const updateInvoice = `
UPDATE invoices
SET customer_id = $3,
    invoice_date = $4,
    due_date = $5,
    subtotal = $6,
    tax_percentage = $7,
    tax_amount = $8,
    total = $9,
    notes = $10,
    updated_at = now()
WHERE tenant_id = $1 AND id = $2
RETURNING ` + invoiceColumns

func (q *Queries) UpdateInvoice(ctx context.Context, arg domain.Invoice) (domain.Invoice, error) {
	row := q.db.QueryRow(ctx, updateInvoice,
		arg.TenantID,
		arg.ID,
		arg.CustomerID,
		arg.InvoiceDate,
		arg.DueDate,
		arg.Subtotal,
		arg.TaxPercentage,
		arg.TaxAmount,
		arg.Total,
		arg.Notes,
	)
	return scanInvoice(row)
}

const updateInvoiceStatus = `
UPDATE invoices
SET status = $3, updated_at = now()
WHERE tenant_id = $1 AND id = $2
RETURNING ` + invoiceColumns

func (q *Queries) UpdateInvoiceStatus(ctx context.Context, tenantID, id uuid.UUID, status domain.InvoiceStatus) (domain.Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, updateInvoiceStatus, tenantID, id, status))
}

const deleteInvoiceItems = `DELETE FROM invoice_items WHERE invoice_id = $1`

func (q *Queries) DeleteInvoiceItems(ctx context.Context, invoiceID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteInvoiceItems, invoiceID)
	return err
}

const deleteInvoice = `DELETE FROM invoices WHERE tenant_id = $1 AND id = $2`

func (q *Queries) DeleteInvoice(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteInvoice, tenantID, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const getInvoice = `SELECT ` + invoiceColumns + ` FROM invoices WHERE tenant_id = $1 AND id = $2`

func (q *Queries) GetInvoice(ctx context.Context, tenantID, id uuid.UUID) (domain.Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoice, tenantID, id))
}

const listInvoiceItems = `
SELECT ` + invoiceItemColumns + `
FROM invoice_items
WHERE invoice_id = $1
ORDER BY position, id`

func (q *Queries) ListInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]domain.InvoiceItem, error) {
	rows, err := q.db.Query(ctx, listInvoiceItems, invoiceID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanInvoiceItem)
}

const listInvoices = `
SELECT ` + invoiceColumns + `
FROM invoices
WHERE tenant_id = $1
  AND ($2 = '' OR status = $2)
  AND ($3::uuid IS NULL OR customer_id = $3)
ORDER BY created_at DESC
LIMIT $4 OFFSET $5`

func (q *Queries) ListInvoices(ctx context.Context, arg ListInvoicesParams) ([]domain.Invoice, error) {
	rows, err := q.db.Query(ctx, listInvoices,
		arg.TenantID,
		string(arg.Status),
		arg.CustomerID,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanInvoice)
}

const listSentInvoicesDueOn = `
SELECT ` + invoiceColumns + `
FROM invoices
WHERE status = 'sent' AND due_date = $1
ORDER BY tenant_id, id
LIMIT $2`

func (q *Queries) ListSentInvoicesDueOn(ctx context.Context, dueDate time.Time, limit int32) ([]domain.Invoice, error) {
	rows, err := q.db.Query(ctx, listSentInvoicesDueOn, dueDate, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanInvoice)
}
