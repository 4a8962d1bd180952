package repository

import (
	"context"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/google/uuid"
)

const settingsColumns = `tenant_id, business_name, business_email, business_phone, business_address, tax_id,
invoice_prefix, default_tax_percentage, default_due_days, currency, payment_terms, footer_notes, updated_at`

func scanInvoiceSettings(row scanner) (domain.InvoiceSettings, error) {
	var s domain.InvoiceSettings
	err := row.Scan(
		&s.TenantID,
		&s.BusinessName,
		&s.BusinessEmail,
		&s.BusinessPhone,
		&s.BusinessAddress,
		&s.TaxID,
		&s.InvoicePrefix,
		&s.DefaultTaxPercentage,
		&s.DefaultDueDays,
		&s.Currency,
		&s.PaymentTerms,
		&s.FooterNotes,
		&s.UpdatedAt,
	)
	return s, err
}

const getInvoiceSettings = `SELECT ` + settingsColumns + ` FROM invoice_settings WHERE tenant_id = $1`

func (q *Queries) GetInvoiceSettings(ctx context.Context, tenantID uuid.UUID) (domain.InvoiceSettings, error) {
	return scanInvoiceSettings(q.db.QueryRow(ctx, getInvoiceSettings, tenantID))
}

const upsertInvoiceSettings = `
INSERT INTO invoice_settings (
    tenant_id, business_name, business_email, business_phone, business_address, tax_id,
    invoice_prefix, default_tax_percentage, default_due_days, currency, payment_terms, footer_notes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (tenant_id) DO UPDATE
SET business_name = EXCLUDED.business_name,
    business_email = EXCLUDED.business_email,
    business_phone = EXCLUDED.business_phone,
    business_address = EXCLUDED.business_address,
    tax_id = EXCLUDED.tax_id,
    invoice_prefix = EXCLUDED.invoice_prefix,
    default_tax_percentage = EXCLUDED.default_tax_percentage,
    default_due_days = EXCLUDED.default_due_days,
    currency = EXCLUDED.currency,
    payment_terms = EXCLUDED.payment_terms,
    footer_notes = EXCLUDED.footer_notes,
    updated_at = now()
RETURNING ` + settingsColumns

func (q *Queries) UpsertInvoiceSettings(ctx context.Context, arg domain.InvoiceSettings) (domain.InvoiceSettings, error) {
	row := q.db.QueryRow(ctx, upsertInvoiceSettings, settingsArgs(arg)...)
	return scanInvoiceSettings(row)
}

const createInvoiceSettingsIfAbsent = `
INSERT INTO invoice_settings (
    tenant_id, business_name, business_email, business_phone, business_address, tax_id,
    invoice_prefix, default_tax_percentage, default_due_days, currency, payment_terms, footer_notes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (tenant_id) DO NOTHING`

// CreateInvoiceSettingsIfAbsent reports whether a row was inserted.
func (q *Queries) CreateInvoiceSettingsIfAbsent(ctx context.Context, arg domain.InvoiceSettings) (bool, error) {
	tag, err := q.db.Exec(ctx, createInvoiceSettingsIfAbsent, settingsArgs(arg)...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func settingsArgs(s domain.InvoiceSettings) []interface{} {
	return []interface{}{
		s.TenantID,
		s.BusinessName,
		s.BusinessEmail,
		s.BusinessPhone,
		s.BusinessAddress,
		s.TaxID,
		s.InvoicePrefix,
		s.DefaultTaxPercentage,
		s.DefaultDueDays,
		s.Currency,
		s.PaymentTerms,
		s.FooterNotes,
	}
}
