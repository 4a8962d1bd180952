package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/repository"
)

const (
	maxInvoicePrefixLen = 10
	maxDefaultDueDays   = 365
)

type SettingsService struct {
	store  repository.Store
	logger *slog.Logger
}

var _ domain.InvoiceSettingsService = (*SettingsService)(nil)

func NewSettingsService(store repository.Store, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		store:  store,
		logger: logger.With("service", "settings"),
	}
}

// GetSettings returns the saved settings, or the defaults when the tenant
// has not saved any.
func (s *SettingsService) GetSettings(ctx context.Context, tc domain.TenantContext) (*domain.InvoiceSettings, error) {
	const op = "settings.get"
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	settings, err := s.store.GetInvoiceSettings(ctx, tc.TenantID)
	if err != nil {
		if repository.IsNotFound(err) {
			defaults := domain.DefaultInvoiceSettings(tc.TenantID)
			return &defaults, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &settings, nil
}

func (s *SettingsService) UpdateSettings(ctx context.Context, tc domain.TenantContext, settings domain.InvoiceSettings) (*domain.InvoiceSettings, error) {
	const op = "settings.update"
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if !tc.CanManage() {
		return nil, domain.Forbidden(op, "Only owners and admins can change invoice settings")
	}

	settings = normalizeSettings(settings)
	settings.TenantID = tc.TenantID
	if err := validateSettings(op, settings); err != nil {
		return nil, err
	}

	saved, err := s.store.UpsertInvoiceSettings(ctx, settings)
	if err != nil {
		return nil, storeError(err, op, "Invoice settings", tc.TenantID.String())
	}

	s.logger.Info("invoice settings updated", "tenant_id", tc.TenantID)
	return &saved, nil
}

func normalizeSettings(s domain.InvoiceSettings) domain.InvoiceSettings {
	s.BusinessName = strings.TrimSpace(s.BusinessName)
	s.BusinessEmail = strings.ToLower(strings.TrimSpace(s.BusinessEmail))
	s.BusinessPhone = strings.TrimSpace(s.BusinessPhone)
	s.BusinessAddress = strings.TrimSpace(s.BusinessAddress)
	s.TaxID = strings.TrimSpace(s.TaxID)
	s.InvoicePrefix = strings.ToUpper(strings.TrimSpace(s.InvoicePrefix))
	s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))
	if s.Currency == "" {
		s.Currency = domain.DefaultCurrency
	}
	s.PaymentTerms = strings.TrimSpace(s.PaymentTerms)
	s.FooterNotes = strings.TrimSpace(s.FooterNotes)
	return s
}

func validateSettings(op string, s domain.InvoiceSettings) error {
	var err error
	if n := len(s.InvoicePrefix); n == 0 || n > maxInvoicePrefixLen {
		err = domain.AddFieldError(err, "invoice_prefix", fmt.Sprintf("prefix must be 1 to %d characters", maxInvoicePrefixLen))
	}
	if !domain.ValidTaxPercentage(s.DefaultTaxPercentage) {
		err = domain.AddFieldError(err, "default_tax_percentage", "tax percentage must be between 0 and 100")
	}
	if s.DefaultDueDays < 0 || s.DefaultDueDays > maxDefaultDueDays {
		err = domain.AddFieldError(err, "default_due_days", fmt.Sprintf("due days must be between 0 and %d", maxDefaultDueDays))
	}
	if s.BusinessEmail != "" && !validEmail(s.BusinessEmail) {
		err = domain.AddFieldError(err, "business_email", "email is not a valid address")
	}
	if s.Currency != domain.DefaultCurrency {
		err = domain.AddFieldError(err, "currency", "only "+domain.DefaultCurrency+" is supported")
	}
	if ve, ok := err.(*domain.ValidationError); ok {
		ve.Op = op
	}
	return err
}
