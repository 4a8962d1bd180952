package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var ErrCustomerInUse = &Error{Code: ESTATE, Message: "Customer has invoices and cannot be deleted"}

// Customer is a party invoices are billed to. Optional text fields are
// empty when unset.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	TaxID     string    `json:"tax_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CustomerParams struct {
	Name    string
	Email   string
	Phone   string
	Address string
	TaxID   string
}

// ListParams pages a tenant-scoped list.
type ListParams struct {
	Limit  int32
	Offset int32
}

// Normalize applies the default page size and caps it.
func (p ListParams) Normalize() ListParams {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type CustomerService interface {
	CreateCustomer(ctx context.Context, tc TenantContext, params CustomerParams) (*Customer, error)
	UpdateCustomer(ctx context.Context, tc TenantContext, id uuid.UUID, params CustomerParams) (*Customer, error)
	DeleteCustomer(ctx context.Context, tc TenantContext, id uuid.UUID) error
	GetCustomer(ctx context.Context, tc TenantContext, id uuid.UUID) (*Customer, error)

	// ListCustomers never fails; read errors degrade to an empty list.
	ListCustomers(ctx context.Context, tc TenantContext, params ListParams) []Customer
}
