// Package service holds BillBook's business logic. Every tenant-facing
// operation takes the caller's domain.TenantContext explicitly and scopes
// all reads and writes to that tenant.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/email"
	"github.com/DodailSolutions/billbook/internal/events"
	"github.com/DodailSolutions/billbook/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// sweepItemTimeout bounds the work done for a single item of a background sweep.
const sweepItemTimeout = 30 * time.Second

// Notifier sends transactional email. *email.Service implements it.
// Services treat every call as best-effort: failures are logged, never
// returned to the caller.
type Notifier interface {
	SendWelcome(ctx context.Context, data email.WelcomeEmail) error
	SendPurchaseConfirmation(ctx context.Context, data email.PurchaseConfirmationEmail) error
	SendInvoice(ctx context.Context, data email.InvoiceEmail) error
	SendContact(ctx context.Context, data email.ContactEmail) error
	SendReminder(ctx context.Context, data email.ReminderEmail) error
}

var _ Notifier = (*email.Service)(nil)

var validate = validator.New()

func validEmail(addr string) bool {
	return validate.Var(addr, "required,email") == nil
}

// publish emits a domain event. Delivery is best-effort.
func publish(ctx context.Context, p events.Publisher, logger *slog.Logger, eventType string, tenantID uuid.UUID, data interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, eventType, tenantID, data); err != nil {
		logger.Warn("failed to publish event",
			"event_type", eventType,
			"tenant_id", tenantID,
			"error", err,
		)
	}
}

// loadSettings returns the tenant's invoice settings, or the defaults when
// none are saved or the read fails.
func loadSettings(ctx context.Context, q repository.Querier, logger *slog.Logger, tenantID uuid.UUID) domain.InvoiceSettings {
	settings, err := q.GetInvoiceSettings(ctx, tenantID)
	if err != nil {
		if !repository.IsNotFound(err) {
			logger.Warn("failed to load invoice settings, using defaults",
				"tenant_id", tenantID,
				"error", err,
			)
		}
		return domain.DefaultInvoiceSettings(tenantID)
	}
	return settings
}

// normalizeLineItems trims descriptions and rounds quantities to three
// decimals and unit prices to currency precision, matching the columns
// they are stored in.
func normalizeLineItems(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, len(items))
	for i, item := range items {
		out[i] = domain.LineItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity.Round(3),
			UnitPrice:   domain.RoundMoney(item.UnitPrice),
		}
	}
	return out
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
