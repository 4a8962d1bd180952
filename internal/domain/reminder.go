package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var ErrReminderAlreadySent = &Error{Code: ESTATE, Message: "Reminder has already been sent"}

type ReminderType string

const (
	ReminderTypeDueDate           ReminderType = "due_date"
	ReminderTypeOverdue           ReminderType = "overdue"
	ReminderTypeUpcomingRecurring ReminderType = "upcoming_recurring"
)

func (t ReminderType) Valid() bool {
	switch t {
	case ReminderTypeDueDate, ReminderTypeOverdue, ReminderTypeUpcomingRecurring:
		return true
	}
	return false
}

// Reminder points at exactly one of an invoice or a recurring invoice.
type Reminder struct {
	ID                 uuid.UUID    `json:"id"`
	TenantID           uuid.UUID    `json:"tenant_id"`
	InvoiceID          *uuid.UUID   `json:"invoice_id,omitempty"`
	RecurringInvoiceID *uuid.UUID   `json:"recurring_invoice_id,omitempty"`
	ReminderType       ReminderType `json:"reminder_type"`
	ReminderDate       time.Time    `json:"reminder_date"`
	DaysBefore         int32        `json:"days_before"`
	IsSent             bool         `json:"is_sent"`
	SentAt             *time.Time   `json:"sent_at,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
}

type ReminderParams struct {
	InvoiceID          *uuid.UUID
	RecurringInvoiceID *uuid.UUID
	ReminderType       ReminderType
	ReminderDate       time.Time
	DaysBefore         int32
}

type ListRemindersParams struct {
	ListParams
	PendingOnly bool
}

// DispatchResult summarizes one reminder sweep.
type DispatchResult struct {
	Created int
	Sent    int
	Failed  int
}

type ReminderService interface {
	CreateReminder(ctx context.Context, tc TenantContext, params ReminderParams) (*Reminder, error)
	ListReminders(ctx context.Context, tc TenantContext, params ListRemindersParams) []Reminder

	// MarkReminderSent flips is_sent exactly once.
	MarkReminderSent(ctx context.Context, tc TenantContext, id uuid.UUID) (*Reminder, error)

	// DismissReminder deletes the reminder.
	DismissReminder(ctx context.Context, tc TenantContext, id uuid.UUID) error

	// DispatchDue schedules due-date reminders and emails every unsent
	// reminder due on or before asOf, across tenants.
	DispatchDue(ctx context.Context, asOf time.Time, limit int32) (DispatchResult, error)
}
