package repository

import (
	"context"

	"github.com/DodailSolutions/billbook/internal/domain"
)

// Tenants are the union of every tenant id that has settings or customers;
// there is no tenants table because identities live in the auth provider.
const listTenantOverviews = `
WITH tenants AS (
    SELECT tenant_id FROM invoice_settings
    UNION
    SELECT tenant_id FROM customers
)
SELECT
    t.tenant_id,
    COALESCE(s.business_name, ''),
    COALESCE(sub.plan, 'free'),
    (SELECT count(*) FROM invoices i WHERE i.tenant_id = t.tenant_id),
    (SELECT COALESCE(sum(i.total), 0) FROM invoices i WHERE i.tenant_id = t.tenant_id AND i.status = 'paid'),
    (SELECT count(*) FROM customers c WHERE c.tenant_id = t.tenant_id),
    (SELECT count(*) FROM team_members m WHERE m.tenant_id = t.tenant_id AND m.status <> 'removed')
FROM tenants t
LEFT JOIN invoice_settings s ON s.tenant_id = t.tenant_id
LEFT JOIN subscriptions sub ON sub.tenant_id = t.tenant_id
ORDER BY t.tenant_id
LIMIT $1 OFFSET $2`

func (q *Queries) ListTenantOverviews(ctx context.Context, limit, offset int32) ([]domain.TenantOverview, error) {
	rows, err := q.db.Query(ctx, listTenantOverviews, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row scanner) (domain.TenantOverview, error) {
		var o domain.TenantOverview
		err := row.Scan(
			&o.TenantID,
			&o.BusinessName,
			&o.Plan,
			&o.InvoiceCount,
			&o.PaidRevenue,
			&o.CustomerCount,
			&o.TeamSize,
		)
		return o, err
	})
}
