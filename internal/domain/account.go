package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrSuperAdminOnly = &Error{Code: EFORBIDDEN, Message: "Super admin access required"}

type OnboardParams struct {
	Name         string
	BusinessName string
}

type ContactParams struct {
	Name    string
	Email   string
	Subject string
	Message string
}

type AccountService interface {
	// Onboard seeds a new tenant and sends the welcome email. Safe to repeat.
	Onboard(ctx context.Context, tc TenantContext, params OnboardParams) (*InvoiceSettings, error)

	// Contact forwards a public contact-form message.
	Contact(ctx context.Context, params ContactParams) error
}

// TenantOverview is one row of the super-admin console.
type TenantOverview struct {
	TenantID      uuid.UUID       `json:"tenant_id"`
	BusinessName  string          `json:"business_name"`
	Plan          string          `json:"plan"`
	InvoiceCount  int64           `json:"invoice_count"`
	PaidRevenue   decimal.Decimal `json:"paid_revenue"`
	CustomerCount int64           `json:"customer_count"`
	TeamSize      int64           `json:"team_size"`
}

type AdminService interface {
	ListTenants(ctx context.Context, tc TenantContext, params ListParams) ([]TenantOverview, error)
	ListPendingRefunds(ctx context.Context, tc TenantContext, params ListParams) ([]Refund, error)
	ProcessRefund(ctx context.Context, tc TenantContext, params ProcessRefundParams) (*Refund, error)
	SetTenantPlan(ctx context.Context, tc TenantContext, tenantID uuid.UUID, planID string) (*Subscription, error)
}
