package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/google/uuid"
)

type Querier interface {
	// Customers
	CreateCustomer(ctx context.Context, arg domain.Customer) (domain.Customer, error)
	UpdateCustomer(ctx context.Context, arg domain.Customer) (domain.Customer, error)
	DeleteCustomer(ctx context.Context, tenantID, id uuid.UUID) (int64, error)
	GetCustomer(ctx context.Context, tenantID, id uuid.UUID) (domain.Customer, error)
	ListCustomers(ctx context.Context, tenantID uuid.UUID, limit, offset int32) ([]domain.Customer, error)

	// Invoices
	AllocateInvoiceNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
	CreateInvoice(ctx context.Context, arg domain.Invoice) (domain.Invoice, error)
	CreateInvoiceItem(ctx context.Context, arg domain.InvoiceItem) (domain.InvoiceItem, error)
	UpdateInvoice(ctx context.Context, arg domain.Invoice) (domain.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, tenantID, id uuid.UUID, status domain.InvoiceStatus) (domain.Invoice, error)
	DeleteInvoiceItems(ctx context.Context, invoiceID uuid.UUID) error
	DeleteInvoice(ctx context.Context, tenantID, id uuid.UUID) (int64, error)
	GetInvoice(ctx context.Context, tenantID, id uuid.UUID) (domain.Invoice, error)
	ListInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]domain.InvoiceItem, error)
	ListInvoices(ctx context.Context, arg ListInvoicesParams) ([]domain.Invoice, error)
	ListSentInvoicesDueOn(ctx context.Context, dueDate time.Time, limit int32) ([]domain.Invoice, error)

	// Recurring invoices
	CreateRecurringInvoice(ctx context.Context, arg domain.RecurringInvoice) (domain.RecurringInvoice, error)
	CreateRecurringInvoiceItem(ctx context.Context, arg domain.RecurringInvoiceItem) (domain.RecurringInvoiceItem, error)
	UpdateRecurringInvoice(ctx context.Context, arg domain.RecurringInvoice) (domain.RecurringInvoice, error)
	UpdateRecurringInvoiceActive(ctx context.Context, tenantID, id uuid.UUID, isActive bool) (domain.RecurringInvoice, error)
	DeleteRecurringInvoiceItems(ctx context.Context, recurringInvoiceID uuid.UUID) error
	DeleteRecurringInvoice(ctx context.Context, tenantID, id uuid.UUID) (int64, error)
	GetRecurringInvoice(ctx context.Context, tenantID, id uuid.UUID) (domain.RecurringInvoice, error)
	ListRecurringInvoiceItems(ctx context.Context, recurringInvoiceID uuid.UUID) ([]domain.RecurringInvoiceItem, error)
	ListRecurringInvoices(ctx context.Context, tenantID uuid.UUID, limit, offset int32) ([]domain.RecurringInvoice, error)
	ListDueRecurringInvoices(ctx context.Context, asOf time.Time, limit int32) ([]domain.RecurringInvoice, error)
	MaterializeRecurringInvoice(ctx context.Context, tenantID, id uuid.UUID) (uuid.UUID, error)

	// Payments
	CreatePayment(ctx context.Context, arg domain.Payment) (domain.Payment, error)
	GetPayment(ctx context.Context, tenantID, id uuid.UUID) (domain.Payment, error)
	GetPaymentByOrderID(ctx context.Context, tenantID uuid.UUID, gatewayOrderID string) (domain.Payment, error)
	GetPaymentByGatewayOrder(ctx context.Context, gatewayOrderID string) (domain.Payment, error)
	CompletePayment(ctx context.Context, arg CompletePaymentParams) (domain.Payment, error)
	TransitionPayment(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus) (domain.Payment, error)
	ListPayments(ctx context.Context, tenantID uuid.UUID, limit, offset int32) ([]domain.Payment, error)

	// Refunds
	CreateRefund(ctx context.Context, arg domain.Refund) (domain.Refund, error)
	GetRefund(ctx context.Context, tenantID, id uuid.UUID) (domain.Refund, error)
	GetRefundAnyTenant(ctx context.Context, id uuid.UUID) (domain.Refund, error)
	HasActiveRefund(ctx context.Context, paymentID uuid.UUID) (bool, error)
	TransitionRefund(ctx context.Context, arg TransitionRefundParams) (domain.Refund, error)
	ListRefunds(ctx context.Context, tenantID uuid.UUID, limit, offset int32) ([]domain.Refund, error)
	ListRefundsByStatus(ctx context.Context, status domain.RefundStatus, limit, offset int32) ([]domain.Refund, error)

	// Reminders
	CreateReminder(ctx context.Context, arg domain.Reminder) (domain.Reminder, error)
	CreateInvoiceReminderIfAbsent(ctx context.Context, arg domain.Reminder) (bool, error)
	GetReminder(ctx context.Context, tenantID, id uuid.UUID) (domain.Reminder, error)
	MarkReminderSent(ctx context.Context, tenantID, id uuid.UUID, sentAt time.Time) (domain.Reminder, error)
	DeleteReminder(ctx context.Context, tenantID, id uuid.UUID) (int64, error)
	ListReminders(ctx context.Context, tenantID uuid.UUID, pendingOnly bool, limit, offset int32) ([]domain.Reminder, error)
	ListDueReminders(ctx context.Context, asOf time.Time, limit int32) ([]domain.Reminder, error)

	// Team
	CreateTeamMember(ctx context.Context, arg domain.TeamMember) (domain.TeamMember, error)
	GetTeamMember(ctx context.Context, tenantID, id uuid.UUID) (domain.TeamMember, error)
	GetTeamMemberByEmail(ctx context.Context, tenantID uuid.UUID, email string) (domain.TeamMember, error)
	CountTeamSeats(ctx context.Context, tenantID uuid.UUID) (int64, error)
	UpdateTeamMemberRole(ctx context.Context, tenantID, id uuid.UUID, role domain.Role) (domain.TeamMember, error)
	UpdateTeamMemberStatus(ctx context.Context, tenantID, id uuid.UUID, status domain.TeamMemberStatus) (domain.TeamMember, error)
	ReinviteTeamMember(ctx context.Context, tenantID, id uuid.UUID, role domain.Role) (domain.TeamMember, error)
	AcceptTeamInvitation(ctx context.Context, arg AcceptInvitationParams) (domain.TeamMember, error)
	ListTeamMembers(ctx context.Context, tenantID uuid.UUID) ([]domain.TeamMember, error)
	GetActiveMembershipByUser(ctx context.Context, userID uuid.UUID) (domain.TeamMember, error)

	// Invoice settings
	GetInvoiceSettings(ctx context.Context, tenantID uuid.UUID) (domain.InvoiceSettings, error)
	UpsertInvoiceSettings(ctx context.Context, arg domain.InvoiceSettings) (domain.InvoiceSettings, error)
	CreateInvoiceSettingsIfAbsent(ctx context.Context, arg domain.InvoiceSettings) (bool, error)

	// Subscriptions
	GetSubscription(ctx context.Context, tenantID uuid.UUID) (domain.Subscription, error)
	UpsertSubscription(ctx context.Context, arg domain.Subscription) (domain.Subscription, error)

	// Admin
	ListTenantOverviews(ctx context.Context, limit, offset int32) ([]domain.TenantOverview, error)
}

type ListInvoicesParams struct {
	TenantID   uuid.UUID
	Status     domain.InvoiceStatus
	CustomerID *uuid.UUID
	Limit      int32
	Offset     int32
}

type CompletePaymentParams struct {
	ID               uuid.UUID
	GatewayPaymentID string
	GatewaySignature string
	Method           string
	Metadata         json.RawMessage
}

// TransitionRefundParams moves a refund whose status is one of From to To.
// Empty optional fields leave the stored value unchanged.
type TransitionRefundParams struct {
	ID              uuid.UUID
	From            []domain.RefundStatus
	To              domain.RefundStatus
	GatewayRefundID string
	Notes           string
	ProcessedBy     *uuid.UUID
	ProcessedAt     *time.Time
}

type AcceptInvitationParams struct {
	TenantID uuid.UUID
	Email    string
	UserID   uuid.UUID
	JoinedAt time.Time
}

var _ Querier = (*Queries)(nil)
