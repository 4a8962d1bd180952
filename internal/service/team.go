package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/repository"
	"github.com/google/uuid"
)

type TeamService struct {
	store   repository.Store
	catalog *PlanCatalog
	logger  *slog.Logger
	now     func() time.Time
}

var _ domain.TeamService = (*TeamService)(nil)

func NewTeamService(store repository.Store, catalog *PlanCatalog, logger *slog.Logger) *TeamService {
	return &TeamService{
		store:   store,
		catalog: catalog,
		logger:  logger.With("service", "team"),
		now:     time.Now,
	}
}

// InviteMember adds a pending member. Pending and active members count
// against the plan's seat limit. A previously removed email is re-invited.
func (s *TeamService) InviteMember(ctx context.Context, tc domain.TenantContext, emailAddr string, role domain.Role) (*domain.TeamMember, error) {
	const op = "team.invite"
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if !tc.CanManage() {
		return nil, withOp(domain.ErrTeamManagerOnly, op)
	}

	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	var verr error
	if !validEmail(emailAddr) {
		verr = domain.AddFieldError(verr, "email", "email is not a valid address")
	}
	if !assignableRole(role) {
		verr = domain.AddFieldError(verr, "role", "role must be admin, member or viewer")
	}
	if verr != nil {
		verr.(*domain.ValidationError).Op = op
		return nil, verr
	}

	existing, err := s.store.GetTeamMemberByEmail(ctx, tc.TenantID, emailAddr)
	switch {
	case err == nil && existing.Status != domain.TeamMemberRemoved:
		return nil, withOp(domain.ErrTeamMemberExists, op)
	case err != nil && !repository.IsNotFound(err):
		return nil, storeError(err, op, "Team member", emailAddr)
	}

	if err := s.checkSeat(ctx, op, tc.TenantID); err != nil {
		return nil, err
	}

	var member domain.TeamMember
	if err == nil {
		member, err = s.store.ReinviteTeamMember(ctx, tc.TenantID, existing.ID, role)
	} else {
		member, err = s.store.CreateTeamMember(ctx, domain.TeamMember{
			TenantID: tc.TenantID,
			Email:    emailAddr,
			Role:     role,
			Status:   domain.TeamMemberPending,
		})
	}
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, wrapOp(domain.ErrTeamMemberExists, op, err)
		}
		return nil, storeError(err, op, "Team member", emailAddr)
	}

	s.logger.Info("team member invited",
		"tenant_id", tc.TenantID,
		"member_id", member.ID,
		"role", member.Role,
	)
	return &member, nil
}

func (s *TeamService) checkSeat(ctx context.Context, op string, tenantID uuid.UUID) error {
	plan, err := s.catalog.planFor(ctx, s.store, tenantID)
	if err != nil {
		return storeError(err, op, "Subscription", tenantID.String())
	}
	seats, err := s.store.CountTeamSeats(ctx, tenantID)
	if err != nil {
		return storeError(err, op, "Team member", "")
	}
	if seats >= int64(plan.MaxTeamMembers) {
		return withOp(domain.ErrTeamLimitReached, op)
	}
	return nil
}

func (s *TeamService) UpdateMemberRole(ctx context.Context, tc domain.TenantContext, id uuid.UUID, role domain.Role) (*domain.TeamMember, error) {
	const op = "team.update_role"
	if err := s.requireOwner(tc, op); err != nil {
		return nil, err
	}
	if !assignableRole(role) {
		return nil, domain.NewValidationError(op, "role", "role must be admin, member or viewer")
	}

	current, err := s.store.GetTeamMember(ctx, tc.TenantID, id)
	if err != nil {
		return nil, storeError(err, op, "Team member", id.String())
	}
	if current.Status == domain.TeamMemberRemoved {
		return nil, withOp(domain.ErrTeamMemberRemoved, op)
	}

	member, err := s.store.UpdateTeamMemberRole(ctx, tc.TenantID, id, role)
	if err != nil {
		return nil, storeError(err, op, "Team member", id.String())
	}

	s.logger.Info("team member role changed", "tenant_id", tc.TenantID, "member_id", id, "role", role)
	return &member, nil
}

// UpdateMemberStatus suspends a member or reactivates a suspended one.
// Reactivation needs a free seat.
func (s *TeamService) UpdateMemberStatus(ctx context.Context, tc domain.TenantContext, id uuid.UUID, status domain.TeamMemberStatus) (*domain.TeamMember, error) {
	const op = "team.update_status"
	if err := s.requireOwner(tc, op); err != nil {
		return nil, err
	}
	if status != domain.TeamMemberActive && status != domain.TeamMemberSuspended {
		return nil, domain.NewValidationError(op, "status", "status must be active or suspended")
	}

	current, err := s.store.GetTeamMember(ctx, tc.TenantID, id)
	if err != nil {
		return nil, storeError(err, op, "Team member", id.String())
	}
	if current.Status == domain.TeamMemberRemoved {
		return nil, withOp(domain.ErrTeamMemberRemoved, op)
	}
	if current.Status == status {
		return &current, nil
	}
	if status == domain.TeamMemberActive {
		if current.Status != domain.TeamMemberSuspended {
			return nil, withOp(ErrMemberNotReactivate, op)
		}
		if err := s.checkSeat(ctx, op, tc.TenantID); err != nil {
			return nil, err
		}
	}

	member, err := s.store.UpdateTeamMemberStatus(ctx, tc.TenantID, id, status)
	if err != nil {
		return nil, storeError(err, op, "Team member", id.String())
	}

	s.logger.Info("team member status changed", "tenant_id", tc.TenantID, "member_id", id, "status", status)
	return &member, nil
}

func (s *TeamService) RemoveMember(ctx context.Context, tc domain.TenantContext, id uuid.UUID) error {
	const op = "team.remove"
	if err := s.requireOwner(tc, op); err != nil {
		return err
	}

	if _, err := s.store.UpdateTeamMemberStatus(ctx, tc.TenantID, id, domain.TeamMemberRemoved); err != nil {
		return storeError(err, op, "Team member", id.String())
	}

	s.logger.Info("team member removed", "tenant_id", tc.TenantID, "member_id", id)
	return nil
}

// AcceptInvitation activates the pending invitation addressed to the
// caller's email in tenantID.
func (s *TeamService) AcceptInvitation(ctx context.Context, tc domain.TenantContext, tenantID uuid.UUID) (*domain.TeamMember, error) {
	const op = "team.accept"
	if tc.UserID == uuid.Nil || tc.Email == "" {
		return nil, domain.Unauthorized(op, "Authentication required")
	}

	member, err := s.store.AcceptTeamInvitation(ctx, repository.AcceptInvitationParams{
		TenantID: tenantID,
		Email:    strings.ToLower(tc.Email),
		UserID:   tc.UserID,
		JoinedAt: s.now(),
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, withOp(domain.ErrInvitationNotFound, op)
		}
		return nil, storeError(err, op, "Team member", tc.Email)
	}

	s.logger.Info("team invitation accepted", "tenant_id", tenantID, "member_id", member.ID)
	return &member, nil
}

func (s *TeamService) ListMembers(ctx context.Context, tc domain.TenantContext) []domain.TeamMember {
	if tc.Validate() != nil {
		return []domain.TeamMember{}
	}

	members, err := s.store.ListTeamMembers(ctx, tc.TenantID)
	if err != nil {
		s.logger.Warn("failed to list team members", "tenant_id", tc.TenantID, "error", err)
		return []domain.TeamMember{}
	}
	return emptyIfNil(members)
}

func (s *TeamService) ResolveMembership(ctx context.Context, userID uuid.UUID) (*domain.TeamMember, error) {
	const op = "team.resolve"

	member, err := s.store.GetActiveMembershipByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, op, "Membership", userID.String())
	}
	return &member, nil
}

func (s *TeamService) requireOwner(tc domain.TenantContext, op string) error {
	if err := tc.Validate(); err != nil {
		return err
	}
	if !tc.IsOwner() && !tc.SuperAdmin {
		return withOp(domain.ErrTeamOwnerOnly, op)
	}
	return nil
}

// assignableRole reports whether role may be given to an invited member.
// Ownership is never assigned.
func assignableRole(role domain.Role) bool {
	return role.Valid() && role != domain.RoleOwner
}
