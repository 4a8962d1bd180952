package repository

import (
	"context"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/google/uuid"
)

const customerColumns = `id, tenant_id, name, email, phone, address, tax_id, created_at, updated_at`

func scanCustomer(row scanner) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.Address,
		&c.TaxID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

const createCustomer = `
INSERT INTO customers (tenant_id, name, email, phone, address, tax_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + customerColumns

func (q *Queries) CreateCustomer(ctx context.Context, arg domain.Customer) (domain.Customer, error) {
	row := q.db.QueryRow(ctx, createCustomer,
		arg.TenantID,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.Address,
		arg.TaxID,
	)
	return scanCustomer(row)
}

const updateCustomer = `
UPDATE customers
SET name = $3, email = $4, phone = $5, address = $6, tax_id = $7, updated_at = now()
WHERE tenant_id = $1 AND id = $2
RETURNING ` + customerColumns

func (q *Queries) UpdateCustomer(ctx context.Context, arg domain.Customer) (domain.Customer, error) {
	row := q.db.QueryRow(ctx, updateCustomer,
		arg.TenantID,
		arg.ID,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.Address,
		arg.TaxID,
	)
	return scanCustomer(row)
}

const deleteCustomer = `DELETE FROM customers WHERE tenant_id = $1 AND id = $2`

func (q *Queries) DeleteCustomer(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCustomer, tenantID, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const getCustomer = `SELECT ` + customerColumns + ` FROM customers WHERE tenant_id = $1 AND id = $2`

func (q *Queries) GetCustomer(ctx context.Context, tenantID, id uuid.UUID) (domain.Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomer, tenantID, id))
}

const listCustomers = `
SELECT ` + customerColumns + `
FROM customers
WHERE tenant_id = $1
ORDER BY name, created_at
LIMIT $2 OFFSET $3`

func (q *Queries) ListCustomers(ctx context.Context, tenantID uuid.UUID, limit, offset int32) ([]domain.Customer, error) {
	rows, err := q.db.Query(ctx, listCustomers, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCustomer)
}
