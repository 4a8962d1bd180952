package service

import (
	"errors"
	"fmt"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/repository"
)

// Errors raised by the services themselves. Entity-specific sentinels live
// in domain.
var (
	ErrViewerReadOnly      = domain.Errorf(domain.EFORBIDDEN, "", "Viewers cannot make changes")
	ErrAlreadyGenerated    = domain.Errorf(domain.ESTATE, "", "An invoice for this cycle has already been generated")
	ErrPaymentGateway      = domain.Errorf(domain.EEXTERNAL, "", "Payment gateway request failed")
	ErrAmountBelowMinimum  = domain.Errorf(domain.EINVALID, "", "Invoice total is below the minimum chargeable amount")
	ErrMemberNotReactivate = domain.Errorf(domain.ESTATE, "", "Only suspended members can be reactivated")
)

// uniqueConstraints names the unique constraints whose violation has a more
// specific meaning than "already exists".
var uniqueConstraints = map[string]error{
	"invoices_tenant_number_key":     domain.ErrInvoiceNumberInUse,
	"invoices_recurring_cycle_key":   ErrAlreadyGenerated,
	"team_members_tenant_email_key":  domain.ErrTeamMemberExists,
	"refunds_one_active_per_payment": domain.ErrRefundInProgress,
}

// storeError maps a persistence error to the domain taxonomy. A missing row,
// including one owned by another tenant, is NotFound. Constraint violations
// mean the entity's state does not allow the write. Errors that already
// carry a domain code pass through unchanged.
func storeError(err error, op, resource, identifier string) error {
	var de *domain.Error
	var ve *domain.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &de), errors.As(err, &ve):
		return err
	case repository.IsNotFound(err):
		return domain.NotFound(op, resource, identifier)
	case repository.IsUniqueViolation(err):
		if sentinel, ok := uniqueConstraints[repository.ConstraintName(err)]; ok {
			return wrapOp(sentinel, op, err)
		}
		return &domain.Error{Code: domain.ESTATE, Op: op, Message: resource + " already exists", Err: err}
	case repository.IsForeignKeyViolation(err):
		return &domain.Error{Code: domain.ESTATE, Op: op, Message: resource + " is referenced by other records", Err: err}
	case repository.IsCheckViolation(err):
		return &domain.Error{Code: domain.EINVALID, Op: op, Message: resource + " has invalid values", Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// withOp copies a sentinel and stamps the failing operation on it. The copy
// still matches the sentinel under errors.Is.
func withOp(sentinel error, op string) error {
	e, ok := sentinel.(*domain.Error)
	if !ok {
		return sentinel
	}
	c := *e
	c.Op = op
	return &c
}

// wrapOp is withOp that also records the underlying cause.
func wrapOp(sentinel error, op string, cause error) error {
	e, ok := sentinel.(*domain.Error)
	if !ok {
		return sentinel
	}
	c := *e
	c.Op = op
	c.Err = cause
	return &c
}

func requireWriter(tc domain.TenantContext, op string) error {
	if err := tc.Validate(); err != nil {
		return err
	}
	if !tc.CanWrite() {
		return withOp(ErrViewerReadOnly, op)
	}
	return nil
}
