package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/repository"
	"github.com/google/uuid"
)

type CustomerService struct {
	store  repository.Store
	logger *slog.Logger
}

var _ domain.CustomerService = (*CustomerService)(nil)

func NewCustomerService(store repository.Store, logger *slog.Logger) *CustomerService {
	return &CustomerService{
		store:  store,
		logger: logger.With("service", "customer"),
	}
}

func (s *CustomerService) CreateCustomer(ctx context.Context, tc domain.TenantContext, params domain.CustomerParams) (*domain.Customer, error) {
	const op = "customer.create"
	if err := requireWriter(tc, op); err != nil {
		return nil, err
	}

	params = normalizeCustomer(params)
	if err := validateCustomer(op, params); err != nil {
		return nil, err
	}

	customer, err := s.store.CreateCustomer(ctx, domain.Customer{
		TenantID: tc.TenantID,
		Name:     params.Name,
		Email:    params.Email,
		Phone:    params.Phone,
		Address:  params.Address,
		TaxID:    params.TaxID,
	})
	if err != nil {
		return nil, storeError(err, op, "Customer", "")
	}

	s.logger.Info("customer created", "tenant_id", tc.TenantID, "customer_id", customer.ID)
	return &customer, nil
}

func (s *CustomerService) UpdateCustomer(ctx context.Context, tc domain.TenantContext, id uuid.UUID, params domain.CustomerParams) (*domain.Customer, error) {
	const op = "customer.update"
	if err := requireWriter(tc, op); err != nil {
		return nil, err
	}

	params = normalizeCustomer(params)
	if err := validateCustomer(op, params); err != nil {
		return nil, err
	}

	customer, err := s.store.UpdateCustomer(ctx, domain.Customer{
		ID:       id,
		TenantID: tc.TenantID,
		Name:     params.Name,
		Email:    params.Email,
		Phone:    params.Phone,
		Address:  params.Address,
		TaxID:    params.TaxID,
	})
	if err != nil {
		return nil, storeError(err, op, "Customer", id.String())
	}
	return &customer, nil
}

// DeleteCustomer hard-deletes a customer. Customers that still have
// invoices are refused.
func (s *CustomerService) DeleteCustomer(ctx context.Context, tc domain.TenantContext, id uuid.UUID) error {
	const op = "customer.delete"
	if err := requireWriter(tc, op); err != nil {
		return err
	}

	n, err := s.store.DeleteCustomer(ctx, tc.TenantID, id)
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return wrapOp(domain.ErrCustomerInUse, op, err)
		}
		return storeError(err, op, "Customer", id.String())
	}
	if n == 0 {
		return domain.NotFound(op, "Customer", id.String())
	}

	s.logger.Info("customer deleted", "tenant_id", tc.TenantID, "customer_id", id)
	return nil
}

func (s *CustomerService) GetCustomer(ctx context.Context, tc domain.TenantContext, id uuid.UUID) (*domain.Customer, error) {
	const op = "customer.get"
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	customer, err := s.store.GetCustomer(ctx, tc.TenantID, id)
	if err != nil {
		return nil, storeError(err, op, "Customer", id.String())
	}
	return &customer, nil
}

func (s *CustomerService) ListCustomers(ctx context.Context, tc domain.TenantContext, params domain.ListParams) []domain.Customer {
	if tc.Validate() != nil {
		return []domain.Customer{}
	}

	params = params.Normalize()
	customers, err := s.store.ListCustomers(ctx, tc.TenantID, params.Limit, params.Offset)
	if err != nil {
		s.logger.Warn("failed to list customers", "tenant_id", tc.TenantID, "error", err)
		return []domain.Customer{}
	}
	return emptyIfNil(customers)
}

func normalizeCustomer(p domain.CustomerParams) domain.CustomerParams {
	return domain.CustomerParams{
		Name:    strings.TrimSpace(p.Name),
		Email:   strings.ToLower(strings.TrimSpace(p.Email)),
		Phone:   strings.TrimSpace(p.Phone),
		Address: strings.TrimSpace(p.Address),
		TaxID:   strings.TrimSpace(p.TaxID),
	}
}

func validateCustomer(op string, p domain.CustomerParams) error {
	var err error
	if p.Name == "" {
		err = domain.AddFieldError(err, "name", "name is required")
	}
	if p.Email != "" && !validEmail(p.Email) {
		err = domain.AddFieldError(err, "email", "email is not a valid address")
	}
	if ve, ok := err.(*domain.ValidationError); ok {
		ve.Op = op
	}
	return err
}
