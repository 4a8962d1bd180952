package service

import (
	"context"
	"errors"
	"testing"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsService_GetSettings_Defaults(t *testing.T) {
	store := newMemStore()
	svc := NewSettingsService(store, testLogger())
	tc := ownerContext()

	settings, err := svc.GetSettings(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, tc.TenantID, settings.TenantID)
	assert.Equal(t, "INV", settings.InvoicePrefix)
	assert.True(t, dec("18").Equal(settings.DefaultTaxPercentage))
	assert.Equal(t, domain.DefaultCurrency, settings.Currency)

	store.failOn("GetInvoiceSettings", errBoom)
	_, err = svc.GetSettings(context.Background(), tc)
	assert.True(t, errors.Is(err, errBoom))
}

func TestSettingsService_UpdateSettings(t *testing.T) {
	svc := NewSettingsService(newMemStore(), testLogger())
	tc := ownerContext()

	saved, err := svc.UpdateSettings(context.Background(), asRole(tc, domain.RoleAdmin), domain.InvoiceSettings{
		BusinessName:         " Acme Traders ",
		BusinessEmail:        "Accounts@Acme.test",
		InvoicePrefix:        " acme ",
		DefaultTaxPercentage: dec("12.5"),
		DefaultDueDays:       30,
	})
	require.NoError(t, err)
	assert.Equal(t, tc.TenantID, saved.TenantID)
	assert.Equal(t, "ACME", saved.InvoicePrefix)
	assert.Equal(t, "accounts@acme.test", saved.BusinessEmail)
	assert.Equal(t, domain.DefaultCurrency, saved.Currency)

	got, err := svc.GetSettings(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, "Acme Traders", got.BusinessName)
	assert.Equal(t, int32(30), got.DefaultDueDays)
}

func TestSettingsService_UpdateSettings_Validation(t *testing.T) {
	svc := NewSettingsService(newMemStore(), testLogger())

	_, err := svc.UpdateSettings(context.Background(), ownerContext(), domain.InvoiceSettings{
		InvoicePrefix:        "WAYTOOLONGPREFIX",
		DefaultTaxPercentage: dec("120"),
		DefaultDueDays:       400,
		BusinessEmail:        "not-an-email",
		Currency:             "usd",
	})
	require.True(t, domain.IsValidationError(err))
	fields := domain.GetValidationFields(err)
	for _, f := range []string{"invoice_prefix", "default_tax_percentage", "default_due_days", "business_email", "currency"} {
		assert.Contains(t, fields, f)
	}
}

func TestSettingsService_UpdateSettings_Forbidden(t *testing.T) {
	store := newMemStore()
	svc := NewSettingsService(store, testLogger())

	_, err := svc.UpdateSettings(context.Background(), asRole(ownerContext(), domain.RoleMember), domain.DefaultInvoiceSettings(ownerContext().TenantID))
	assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
	assert.Zero(t, store.callCount("UpsertInvoiceSettings"))
}
