// Package domain holds BillBook's business types, money and scheduling
// arithmetic, and the error taxonomy shared by every layer.
package domain

import (
	"context"

	"github.com/google/uuid"
)

// Role is a caller's role within a tenant.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// TenantContext identifies who is calling and on behalf of which tenant.
// Every service operation takes it as an explicit argument.
//
// A tenant is the account owner. Team members act inside the owner's
// tenant with the role they were invited with.
type TenantContext struct {
	TenantID   uuid.UUID
	UserID     uuid.UUID
	Email      string
	Role       Role
	SuperAdmin bool
}

// Validate returns ErrTenantRequired when tc carries no tenant.
func (tc TenantContext) Validate() error {
	if tc.TenantID == uuid.Nil {
		return ErrTenantRequired
	}
	return nil
}

// IsOwner reports whether the caller owns the tenant.
func (tc TenantContext) IsOwner() bool {
	return tc.Role == RoleOwner
}

// CanManage reports whether the caller may perform owner/admin actions
// such as approving refunds and inviting team members.
func (tc TenantContext) CanManage() bool {
	return tc.SuperAdmin || tc.Role == RoleOwner || tc.Role == RoleAdmin
}

// CanWrite reports whether the caller may create or change records.
func (tc TenantContext) CanWrite() bool {
	return tc.SuperAdmin || tc.Role != RoleViewer
}

type contextKey int

const (
	tenantContextKey contextKey = iota
	requestIDContextKey
)

// NewContextWithTenant attaches tc to ctx. Only the HTTP layer uses this, to
// hand the authenticated caller from middleware to handlers.
func NewContextWithTenant(ctx context.Context, tc TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey, tc)
}

// TenantFromContext returns the TenantContext stored in ctx.
func TenantFromContext(ctx context.Context) (TenantContext, bool) {
	tc, ok := ctx.Value(tenantContextKey).(TenantContext)
	return tc, ok
}

// NewContextWithRequestID returns a new context with the request ID attached.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}
