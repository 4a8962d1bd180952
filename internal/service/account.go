package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/email"
	"github.com/DodailSolutions/billbook/internal/repository"
)

const maxContactMessageLen = 5000

type AccountService struct {
	store     repository.Store
	notifier  Notifier
	contactTo string
	baseURL   string
	logger    *slog.Logger
}

var _ domain.AccountService = (*AccountService)(nil)

// NewAccountService creates the account service. Contact-form messages are
// delivered to contactTo.
func NewAccountService(store repository.Store, notifier Notifier, contactTo, baseURL string, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:     store,
		notifier:  notifier,
		contactTo: contactTo,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger.With("service", "account"),
	}
}

// Onboard seeds default invoice settings for a new tenant. Only the call that
// creates them sends the welcome email, so repeating it is harmless.
func (s *AccountService) Onboard(ctx context.Context, tc domain.TenantContext, params domain.OnboardParams) (*domain.InvoiceSettings, error) {
	const op = "account.onboard"
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if !tc.IsOwner() {
		return nil, domain.Forbidden(op, "Only the account owner can complete onboarding")
	}

	businessName := strings.TrimSpace(params.BusinessName)
	if businessName == "" {
		return nil, domain.NewValidationError(op, "business_name", "business name is required")
	}

	settings := domain.DefaultInvoiceSettings(tc.TenantID)
	settings.BusinessName = businessName
	settings.BusinessEmail = strings.ToLower(tc.Email)

	created, err := s.store.CreateInvoiceSettingsIfAbsent(ctx, settings)
	if err != nil {
		return nil, storeError(err, op, "Invoice settings", tc.TenantID.String())
	}

	saved, err := s.store.GetInvoiceSettings(ctx, tc.TenantID)
	if err != nil {
		return nil, storeError(err, op, "Invoice settings", tc.TenantID.String())
	}

	if created {
		s.logger.Info("tenant onboarded", "tenant_id", tc.TenantID)
		s.sendWelcome(ctx, tc, strings.TrimSpace(params.Name), businessName)
	}
	return &saved, nil
}

func (s *AccountService) sendWelcome(ctx context.Context, tc domain.TenantContext, name, businessName string) {
	if s.notifier == nil || tc.Email == "" {
		return
	}
	err := s.notifier.SendWelcome(ctx, email.WelcomeEmail{
		To:           tc.Email,
		Name:         name,
		BusinessName: businessName,
		DashboardURL: s.baseURL + "/dashboard",
	})
	if err != nil {
		s.logger.Error("failed to send welcome email", "tenant_id", tc.TenantID, "error", err)
	}
}

// Contact forwards a public contact-form message. Delivery is best-effort:
// once the input is valid the caller always sees success.
func (s *AccountService) Contact(ctx context.Context, params domain.ContactParams) error {
	const op = "account.contact"

	params.Name = strings.TrimSpace(params.Name)
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Subject = strings.TrimSpace(params.Subject)
	params.Message = strings.TrimSpace(params.Message)
	if params.Subject == "" {
		params.Subject = "General"
	}

	var err error
	if params.Name == "" {
		err = domain.AddFieldError(err, "name", "name is required")
	}
	if !validEmail(params.Email) {
		err = domain.AddFieldError(err, "email", "email is not a valid address")
	}
	if params.Message == "" {
		err = domain.AddFieldError(err, "message", "message is required")
	} else if len(params.Message) > maxContactMessageLen {
		err = domain.AddFieldError(err, "message", "message is too long")
	}
	if err != nil {
		err.(*domain.ValidationError).Op = op
		return err
	}

	if s.notifier == nil || s.contactTo == "" {
		s.logger.Warn("contact form received but no recipient configured", "from", params.Email)
		return nil
	}

	sendErr := s.notifier.SendContact(ctx, email.ContactEmail{
		To:      s.contactTo,
		Name:    params.Name,
		Email:   params.Email,
		Topic:   params.Subject,
		Message: params.Message,
	})
	if sendErr != nil {
		s.logger.Error("failed to forward contact message", "from", params.Email, "error", sendErr)
	}
	return nil
}
