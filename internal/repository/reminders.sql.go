package repository

import (
	"context"
	"time"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/google/uuid"
)

const reminderColumns = `id, tenant_id, invoice_id, recurring_invoice_id, reminder_type, reminder_date, days_before,
is_sent, sent_at, created_at`

func scanReminder(row scanner) (domain.Reminder, error) {
	var r domain.Reminder
	err := row.Scan(
		&r.ID,
		&r.TenantID,
		&r.InvoiceID,
		&r.RecurringInvoiceID,
		&r.ReminderType,
		&r.ReminderDate,
		&r.DaysBefore,
		&r.IsSent,
		&r.SentAt,
		&r.CreatedAt,
	)
	return r, err
}

const createReminder = `
INSERT INTO reminders (tenant_id, invoice_id, recurring_invoice_id, reminder_type, reminder_date, days_before)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + reminderColumns

func (q *Queries) CreateReminder(ctx context.Context, arg domain.Reminder) (domain.Reminder, error) {
	row := q.db.QueryRow(ctx, createReminder,
		arg.TenantID,
		arg.InvoiceID,
		arg.RecurringInvoiceID,
		arg.ReminderType,
		arg.ReminderDate,
		arg.DaysBefore,
	)
	return scanReminder(row)
}

const createInvoiceReminderIfAbsent = `
INSERT INTO reminders (tenant_id, invoice_id, reminder_type, reminder_date, days_before)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (invoice_id, reminder_type, reminder_date) WHERE invoice_id IS NOT NULL DO NOTHING`

// CreateInvoiceReminderIfAbsent reports whether a new reminder was inserted.
func (q *Queries) CreateInvoiceReminderIfAbsent(ctx context.Context, arg domain.Reminder) (bool, error) {
	tag, err := q.db.Exec(ctx, createInvoiceReminderIfAbsent,
		arg.TenantID,
		arg.InvoiceID,
		arg.ReminderType,
		arg.ReminderDate,
		arg.DaysBefore,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const getReminder = `SELECT ` + reminderColumns + ` FROM reminders WHERE tenant_id = $1 AND id = $2`

func (q *Queries) GetReminder(ctx context.Context, tenantID, id uuid.UUID) (domain.Reminder, error) {
	return scanReminder(q.db.QueryRow(ctx, getReminder, tenantID, id))
}

const markReminderSent = `
UPDATE reminders
SET is_sent = true, sent_at = $3
WHERE tenant_id = $1 AND id = $2 AND NOT is_sent
RETURNING ` + reminderColumns

func (q *Queries) MarkReminderSent(ctx context.Context, tenantID, id uuid.UUID, sentAt time.Time) (domain.Reminder, error) {
	return scanReminder(q.db.QueryRow(ctx, markReminderSent, tenantID, id, sentAt))
}

const deleteReminder = `DELETE FROM reminders WHERE tenant_id = $1 AND id = $2`

func (q *Queries) DeleteReminder(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteReminder, tenantID, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listReminders = `
SELECT ` + reminderColumns + `
FROM reminders
WHERE tenant_id = $1 AND (NOT $2 OR NOT is_sent)
ORDER BY reminder_date, created_at
LIMIT $3 OFFSET $4`

func (q *Queries) ListReminders(ctx context.Context, tenantID uuid.UUID, pendingOnly bool, limit, offset int32) ([]domain.Reminder, error) {
	rows, err := q.db.Query(ctx, listReminders, tenantID, pendingOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanReminder)
}

const listDueReminders = `
SELECT ` + reminderColumns + `
FROM reminders
WHERE NOT is_sent AND reminder_date <= $1
ORDER BY reminder_date, id
LIMIT $2`

func (q *Queries) ListDueReminders(ctx context.Context, asOf time.Time, limit int32) ([]domain.Reminder, error) {
	rows, err := q.db.Query(ctx, listDueReminders, asOf, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanReminder)
}
