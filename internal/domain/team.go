package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Team errors.
var (
	ErrTeamLimitReached   = &Error{Code: ESTATE, Message: "Team member limit reached for your plan"}
	ErrTeamMemberExists   = &Error{Code: ESTATE, Message: "This email has already been invited"}
	ErrTeamOwnerOnly      = &Error{Code: EFORBIDDEN, Message: "Only the account owner can change team members"}
	ErrTeamManagerOnly    = &Error{Code: EFORBIDDEN, Message: "Only owners and admins can invite team members"}
	ErrTeamMemberRemoved  = &Error{Code: ESTATE, Message: "Team member has been removed"}
	ErrInvitationNotFound = &Error{Code: ENOTFOUND, Message: "No pending invitation for this account"}
)

type TeamMemberStatus string

const (
	TeamMemberPending   TeamMemberStatus = "pending"
	TeamMemberActive    TeamMemberStatus = "active"
	TeamMemberSuspended TeamMemberStatus = "suspended"
	TeamMemberRemoved   TeamMemberStatus = "removed"
)

type TeamMember struct {
	ID        uuid.UUID        `json:"id"`
	TenantID  uuid.UUID        `json:"tenant_id"`
	UserID    *uuid.UUID       `json:"user_id,omitempty"`
	Email     string           `json:"email"`
	Role      Role             `json:"role"`
	Status    TeamMemberStatus `json:"status"`
	InvitedAt time.Time        `json:"invited_at"`
	JoinedAt  *time.Time       `json:"joined_at,omitempty"`
}

type TeamService interface {
	InviteMember(ctx context.Context, tc TenantContext, email string, role Role) (*TeamMember, error)
	UpdateMemberRole(ctx context.Context, tc TenantContext, id uuid.UUID, role Role) (*TeamMember, error)

	// UpdateMemberStatus suspends or reactivates a member.
	UpdateMemberStatus(ctx context.Context, tc TenantContext, id uuid.UUID, status TeamMemberStatus) (*TeamMember, error)

	RemoveMember(ctx context.Context, tc TenantContext, id uuid.UUID) error

	// AcceptInvitation activates the caller's pending invitation to tenantID.
	AcceptInvitation(ctx context.Context, tc TenantContext, tenantID uuid.UUID) (*TeamMember, error)

	ListMembers(ctx context.Context, tc TenantContext) []TeamMember

	// ResolveMembership finds the active membership for a user, used to
	// build a TenantContext for team members.
	ResolveMembership(ctx context.Context, userID uuid.UUID) (*TeamMember, error)
}
