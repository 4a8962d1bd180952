package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/email"
	"github.com/DodailSolutions/billbook/internal/repository"
	"github.com/DodailSolutions/billbook/internal/telemetry"
	"github.com/google/uuid"
)

// DueReminderLeadDays is how far ahead of an invoice's due date the
// automatic due_date reminder fires.
const DueReminderLeadDays = 3

type ReminderService struct {
	store    repository.Store
	notifier Notifier
	baseURL  string
	logger   *slog.Logger
	now      func() time.Time
}

var _ domain.ReminderService = (*ReminderService)(nil)

func NewReminderService(store repository.Store, notifier Notifier, baseURL string, logger *slog.Logger) *ReminderService {
	return &ReminderService{
		store:    store,
		notifier: notifier,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger.With("service", "reminder"),
		now:      time.Now,
	}
}

// CreateReminder schedules a reminder for exactly one of the tenant's
// invoices or recurring invoices.
func (s *ReminderService) CreateReminder(ctx context.Context, tc domain.TenantContext, params domain.ReminderParams) (*domain.Reminder, error) {
	const op = "reminder.create"
	if err := requireWriter(tc, op); err != nil {
		return nil, err
	}
	if err := validateReminderParams(op, params); err != nil {
		return nil, err
	}

	if params.InvoiceID != nil {
		if _, err := s.store.GetInvoice(ctx, tc.TenantID, *params.InvoiceID); err != nil {
			return nil, storeError(err, op, "Invoice", params.InvoiceID.String())
		}
	} else {
		if _, err := s.store.GetRecurringInvoice(ctx, tc.TenantID, *params.RecurringInvoiceID); err != nil {
			return nil, storeError(err, op, "Recurring invoice", params.RecurringInvoiceID.String())
		}
	}

	reminder, err := s.store.CreateReminder(ctx, domain.Reminder{
		TenantID:           tc.TenantID,
		InvoiceID:          params.InvoiceID,
		RecurringInvoiceID: params.RecurringInvoiceID,
		ReminderType:       params.ReminderType,
		ReminderDate:       domain.DateOnly(params.ReminderDate),
		DaysBefore:         params.DaysBefore,
	})
	if err != nil {
		return nil, storeError(err, op, "Reminder", "")
	}

	s.logger.Info("reminder created",
		"tenant_id", tc.TenantID,
		"reminder_id", reminder.ID,
		"reminder_type", reminder.ReminderType,
	)
	return &reminder, nil
}

func validateReminderParams(op string, p domain.ReminderParams) error {
	var err error
	if (p.InvoiceID == nil) == (p.RecurringInvoiceID == nil) {
		err = domain.AddFieldError(err, "invoice_id", "exactly one of invoice_id or recurring_invoice_id is required")
	}
	if !p.ReminderType.Valid() {
		err = domain.AddFieldError(err, "reminder_type", "reminder type must be due_date, overdue or upcoming_recurring")
	}
	if p.ReminderDate.IsZero() {
		err = domain.AddFieldError(err, "reminder_date", "reminder date is required")
	}
	if p.DaysBefore < 0 {
		err = domain.AddFieldError(err, "days_before", "days before cannot be negative")
	}
	if ve, ok := err.(*domain.ValidationError); ok {
		ve.Op = op
	}
	return err
}

func (s *ReminderService) ListReminders(ctx context.Context, tc domain.TenantContext, params domain.ListRemindersParams) []domain.Reminder {
	if tc.Validate() != nil {
		return []domain.Reminder{}
	}

	page := params.ListParams.Normalize()
	reminders, err := s.store.ListReminders(ctx, tc.TenantID, params.PendingOnly, page.Limit, page.Offset)
	if err != nil {
		s.logger.Warn("failed to list reminders", "tenant_id", tc.TenantID, "error", err)
		return []domain.Reminder{}
	}
	return emptyIfNil(reminders)
}

// MarkReminderSent flips is_sent once. A second call is InvalidState.
func (s *ReminderService) MarkReminderSent(ctx context.Context, tc domain.TenantContext, id uuid.UUID) (*domain.Reminder, error) {
	const op = "reminder.mark_sent"
	if err := requireWriter(tc, op); err != nil {
		return nil, err
	}

	reminder, err := s.store.MarkReminderSent(ctx, tc.TenantID, id, s.now())
	if err == nil {
		return &reminder, nil
	}
	if !repository.IsNotFound(err) {
		return nil, storeError(err, op, "Reminder", id.String())
	}

	// No row was updated: either it is missing or it was already sent.
	if _, getErr := s.store.GetReminder(ctx, tc.TenantID, id); getErr == nil {
		return nil, withOp(domain.ErrReminderAlreadySent, op)
	}
	return nil, domain.NotFound(op, "Reminder", id.String())
}

func (s *ReminderService) DismissReminder(ctx context.Context, tc domain.TenantContext, id uuid.UUID) error {
	const op = "reminder.dismiss"
	if err := requireWriter(tc, op); err != nil {
		return err
	}

	n, err := s.store.DeleteReminder(ctx, tc.TenantID, id)
	if err != nil {
		return storeError(err, op, "Reminder", id.String())
	}
	if n == 0 {
		return domain.NotFound(op, "Reminder", id.String())
	}
	return nil
}

// DispatchDue first schedules due_date reminders for sent invoices due
// DueReminderLeadDays after asOf, then emails every unsent reminder dated on
// or before asOf. A reminder whose email fails stays unsent and is retried
// on the next sweep.
func (s *ReminderService) DispatchDue(ctx context.Context, asOf time.Time, limit int32) (domain.DispatchResult, error) {
	const op = "reminder.dispatch_due"
	var result domain.DispatchResult
	today := domain.DateOnly(asOf)

	created, err := s.scheduleDueDateReminders(ctx, today, limit)
	result.Created = created
	if err != nil {
		s.logger.Warn("failed to schedule due date reminders", "error", err)
	}

	due, err := s.store.ListDueReminders(ctx, today, limit)
	if err != nil {
		return result, fmt.Errorf("%s: failed to list due reminders: %w", op, err)
	}

	for _, reminder := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		itemCtx, cancel := context.WithTimeout(ctx, sweepItemTimeout)
		err := s.deliver(itemCtx, reminder, today)
		cancel()

		if err != nil {
			result.Failed++
			s.logger.Error("failed to deliver reminder",
				"tenant_id", reminder.TenantID,
				"reminder_id", reminder.ID,
				"error", err,
			)
			continue
		}
		result.Sent++
	}

	return result, nil
}

func (s *ReminderService) scheduleDueDateReminders(ctx context.Context, today time.Time, limit int32) (int, error) {
	dueOn := today.AddDate(0, 0, DueReminderLeadDays)
	invoices, err := s.store.ListSentInvoicesDueOn(ctx, dueOn, limit)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, invoice := range invoices {
		invoiceID := invoice.ID
		ok, err := s.store.CreateInvoiceReminderIfAbsent(ctx, domain.Reminder{
			TenantID:     invoice.TenantID,
			InvoiceID:    &invoiceID,
			ReminderType: domain.ReminderTypeDueDate,
			ReminderDate: today,
			DaysBefore:   DueReminderLeadDays,
		})
		if err != nil {
			s.logger.Warn("failed to schedule reminder",
				"tenant_id", invoice.TenantID,
				"invoice_id", invoice.ID,
				"error", err,
			)
			continue
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// deliver emails one reminder and marks it sent. Reminders for invoices
// that no longer need chasing are marked sent without an email.
func (s *ReminderService) deliver(ctx context.Context, reminder domain.Reminder, today time.Time) error {
	message, skip, err := s.buildReminderEmail(ctx, reminder, today)
	if err != nil {
		return err
	}

	if !skip {
		if s.notifier == nil {
			return fmt.Errorf("no notifier configured")
		}
		if err := s.notifier.SendReminder(ctx, *message); err != nil {
			return fmt.Errorf("failed to send reminder email: %w", err)
		}
		if telemetry.Business != nil {
			telemetry.Business.RemindersSent.WithLabelValues(reminder.TenantID.String(), string(reminder.ReminderType)).Inc()
		}
	}

	if _, err := s.store.MarkReminderSent(ctx, reminder.TenantID, reminder.ID, s.now()); err != nil && !repository.IsNotFound(err) {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}

func (s *ReminderService) buildReminderEmail(ctx context.Context, reminder domain.Reminder, today time.Time) (*email.ReminderEmail, bool, error) {
	settings := loadSettings(ctx, s.store, s.logger, reminder.TenantID)

	var customerID uuid.UUID
	message := &email.ReminderEmail{
		BusinessName: settings.BusinessName,
		Overdue:      reminder.ReminderType == domain.ReminderTypeOverdue,
	}

	switch {
	case reminder.InvoiceID != nil:
		invoice, err := s.store.GetInvoice(ctx, reminder.TenantID, *reminder.InvoiceID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, true, nil
			}
			return nil, false, fmt.Errorf("failed to load invoice: %w", err)
		}
		if invoice.Status == domain.InvoiceStatusPaid || invoice.Status == domain.InvoiceStatusCancelled {
			return nil, true, nil
		}
		customerID = invoice.CustomerID
		message.InvoiceNumber = invoice.InvoiceNumber
		message.DueDate = invoice.DueDate
		message.Total = invoice.Total
		message.Currency = invoice.Currency
		message.PayURL = payURL(s.baseURL, invoice.ID)
		if invoice.DueDate != nil && invoice.DueDate.Before(today) {
			message.Overdue = true
		}

	case reminder.RecurringInvoiceID != nil:
		rec, err := s.store.GetRecurringInvoice(ctx, reminder.TenantID, *reminder.RecurringInvoiceID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, true, nil
			}
			return nil, false, fmt.Errorf("failed to load recurring invoice: %w", err)
		}
		if !rec.IsActive {
			return nil, true, nil
		}
		items, err := s.store.ListRecurringInvoiceItems(ctx, rec.ID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load recurring items: %w", err)
		}
		lines := make([]domain.LineItem, len(items))
		for i, item := range items {
			lines[i] = domain.LineItem{Description: item.Description, Quantity: item.Quantity, UnitPrice: item.UnitPrice}
		}
		next := rec.NextInvoiceDate
		customerID = rec.CustomerID
		message.DueDate = &next
		message.Total = domain.CalculateTotals(lines, rec.TaxPercentage).Total
		message.Currency = settings.Currency

	default:
		return nil, true, nil
	}

	customer, err := s.store.GetCustomer(ctx, reminder.TenantID, customerID)
	if err != nil || customer.Email == "" {
		s.logger.Info("skipping reminder without customer email",
			"tenant_id", reminder.TenantID,
			"reminder_id", reminder.ID,
		)
		return nil, true, nil
	}
	message.To = customer.Email
	message.CustomerName = customer.Name
	return message, false, nil
}
