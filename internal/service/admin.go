package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/repository"
	"github.com/google/uuid"
)

// AdminService backs the super-admin console. Every operation crosses
// tenant boundaries and requires TenantContext.SuperAdmin.
type AdminService struct {
	store    repository.Store
	payments domain.PaymentService
	catalog  *PlanCatalog
	logger   *slog.Logger
}

var _ domain.AdminService = (*AdminService)(nil)

func NewAdminService(store repository.Store, payments domain.PaymentService, catalog *PlanCatalog, logger *slog.Logger) *AdminService {
	return &AdminService{
		store:    store,
		payments: payments,
		catalog:  catalog,
		logger:   logger.With("service", "admin"),
	}
}

func (s *AdminService) ListTenants(ctx context.Context, tc domain.TenantContext, params domain.ListParams) ([]domain.TenantOverview, error) {
	const op = "admin.list_tenants"
	if !tc.SuperAdmin {
		return nil, withOp(domain.ErrSuperAdminOnly, op)
	}

	params = params.Normalize()
	tenants, err := s.store.ListTenantOverviews(ctx, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return emptyIfNil(tenants), nil
}

func (s *AdminService) ListPendingRefunds(ctx context.Context, tc domain.TenantContext, params domain.ListParams) ([]domain.Refund, error) {
	const op = "admin.list_refunds"
	if !tc.SuperAdmin {
		return nil, withOp(domain.ErrSuperAdminOnly, op)
	}

	params = params.Normalize()
	refunds, err := s.store.ListRefundsByStatus(ctx, domain.RefundStatusPending, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return emptyIfNil(refunds), nil
}

func (s *AdminService) ProcessRefund(ctx context.Context, tc domain.TenantContext, params domain.ProcessRefundParams) (*domain.Refund, error) {
	if !tc.SuperAdmin {
		return nil, withOp(domain.ErrSuperAdminOnly, "admin.process_refund")
	}
	return s.payments.ProcessRefund(ctx, tc, params)
}

// SetTenantPlan overrides a tenant's plan without a gateway checkout.
func (s *AdminService) SetTenantPlan(ctx context.Context, tc domain.TenantContext, tenantID uuid.UUID, planID string) (*domain.Subscription, error) {
	const op = "admin.set_plan"
	if !tc.SuperAdmin {
		return nil, withOp(domain.ErrSuperAdminOnly, op)
	}

	plan, ok := s.catalog.Lookup(planID)
	if !ok {
		return nil, withOp(domain.ErrUnknownPlan, op)
	}

	sub, err := s.store.UpsertSubscription(ctx, domain.Subscription{
		TenantID: tenantID,
		Plan:     plan.ID,
		Status:   domain.SubscriptionActive,
	})
	if err != nil {
		return nil, storeError(err, op, "Subscription", tenantID.String())
	}

	s.logger.Info("tenant plan overridden",
		"tenant_id", tenantID,
		"plan", plan.ID,
		"by", tc.UserID,
	)
	return &sub, nil
}
