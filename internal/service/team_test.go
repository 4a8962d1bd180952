package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTeamFixture(t *testing.T) (*memStore, *TeamService, domain.TenantContext) {
	t.Helper()
	catalog, err := LoadPlanCatalog("")
	require.NoError(t, err)
	store := newMemStore()
	return store, NewTeamService(store, catalog, testLogger()), ownerContext()
}

func subscribe(t *testing.T, store *memStore, tenantID uuid.UUID, plan string) {
	t.Helper()
	_, err := store.UpsertSubscription(context.Background(), domain.Subscription{
		TenantID: tenantID,
		Plan:     plan,
		Status:   domain.SubscriptionActive,
	})
	require.NoError(t, err)
}

func TestTeamService_InviteMember_FreePlanLimit(t *testing.T) {
	_, svc, tc := newTeamFixture(t)

	member, err := svc.InviteMember(context.Background(), tc, " Priya@Example.com ", domain.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, "priya@example.com", member.Email)
	assert.Equal(t, domain.TeamMemberPending, member.Status)

	_, err = svc.InviteMember(context.Background(), tc, "rahul@example.com", domain.RoleMember)
	assert.True(t, errors.Is(err, domain.ErrTeamLimitReached))
}

func TestTeamService_InviteMember_PaidPlanLimit(t *testing.T) {
	store, svc, tc := newTeamFixture(t)
	subscribe(t, store, tc.TenantID, "pro")

	for i := 0; i < 5; i++ {
		_, err := svc.InviteMember(context.Background(), tc, fmt.Sprintf("user%d@example.com", i), domain.RoleMember)
		require.NoError(t, err)
	}
	_, err := svc.InviteMember(context.Background(), tc, "user5@example.com", domain.RoleMember)
	assert.True(t, errors.Is(err, domain.ErrTeamLimitReached))
}

func TestTeamService_InviteMember_CanceledSubscriptionFallsBackToFree(t *testing.T) {
	store, svc, tc := newTeamFixture(t)
	_, err := store.UpsertSubscription(context.Background(), domain.Subscription{
		TenantID: tc.TenantID,
		Plan:     "business",
		Status:   domain.SubscriptionCanceled,
	})
	require.NoError(t, err)

	_, err = svc.InviteMember(context.Background(), tc, "a@example.com", domain.RoleMember)
	require.NoError(t, err)
	_, err = svc.InviteMember(context.Background(), tc, "b@example.com", domain.RoleMember)
	assert.True(t, errors.Is(err, domain.ErrTeamLimitReached))
}

func TestTeamService_InviteMember_Permissions(t *testing.T) {
	store, svc, tc := newTeamFixture(t)
	subscribe(t, store, tc.TenantID, "pro")

	_, err := svc.InviteMember(context.Background(), asRole(tc, domain.RoleMember), "x@example.com", domain.RoleViewer)
	assert.True(t, errors.Is(err, domain.ErrTeamManagerOnly))

	_, err = svc.InviteMember(context.Background(), asRole(tc, domain.RoleAdmin), "x@example.com", domain.RoleViewer)
	assert.NoError(t, err)
}

func TestTeamService_InviteMember_Validation(t *testing.T) {
	_, svc, tc := newTeamFixture(t)

	_, err := svc.InviteMember(context.Background(), tc, "not-an-email", domain.RoleOwner)
	require.True(t, domain.IsValidationError(err))
	fields := domain.GetValidationFields(err)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "role")
}

func TestTeamService_InviteMember_ExistingAndRemoved(t *testing.T) {
	store, svc, tc := newTeamFixture(t)
	subscribe(t, store, tc.TenantID, "pro")

	member, err := svc.InviteMember(context.Background(), tc, "priya@example.com", domain.RoleMember)
	require.NoError(t, err)

	_, err = svc.InviteMember(context.Background(), tc, "PRIYA@example.com", domain.RoleAdmin)
	assert.True(t, errors.Is(err, domain.ErrTeamMemberExists))

	require.NoError(t, svc.RemoveMember(context.Background(), tc, member.ID))

	again, err := svc.InviteMember(context.Background(), tc, "priya@example.com", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, member.ID, again.ID)
	assert.Equal(t, domain.TeamMemberPending, again.Status)
	assert.Equal(t, domain.RoleAdmin, again.Role)
}

func TestTeamService_OwnerOnlyChanges(t *testing.T) {
	store, svc, tc := newTeamFixture(t)
	subscribe(t, store, tc.TenantID, "pro")
	member, err := svc.InviteMember(context.Background(), tc, "priya@example.com", domain.RoleMember)
	require.NoError(t, err)

	admin := asRole(tc, domain.RoleAdmin)
	_, err = svc.UpdateMemberRole(context.Background(), admin, member.ID, domain.RoleViewer)
	assert.True(t, errors.Is(err, domain.ErrTeamOwnerOnly))
	_, err = svc.UpdateMemberStatus(context.Background(), admin, member.ID, domain.TeamMemberSuspended)
	assert.True(t, errors.Is(err, domain.ErrTeamOwnerOnly))
	err = svc.RemoveMember(context.Background(), admin, member.ID)
	assert.True(t, errors.Is(err, domain.ErrTeamOwnerOnly))

	updated, err := svc.UpdateMemberRole(context.Background(), tc, member.ID, domain.RoleViewer)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleViewer, updated.Role)

	_, err = svc.UpdateMemberRole(context.Background(), tc, member.ID, domain.RoleOwner)
	assert.True(t, domain.IsValidationError(err))
}

func TestTeamService_UpdateMemberStatus(t *testing.T) {
	store, svc, tc := newTeamFixture(t)
	member, err := svc.InviteMember(context.Background(), tc, "priya@example.com", domain.RoleMember)
	require.NoError(t, err)

	_, err = svc.UpdateMemberStatus(context.Background(), tc, member.ID, domain.TeamMemberActive)
	assert.True(t, errors.Is(err, ErrMemberNotReactivate))

	suspended, err := svc.UpdateMemberStatus(context.Background(), tc, member.ID, domain.TeamMemberSuspended)
	require.NoError(t, err)
	assert.Equal(t, domain.TeamMemberSuspended, suspended.Status)

	// The freed seat goes to someone else, so reactivation must wait.
	_, err = svc.InviteMember(context.Background(), tc, "rahul@example.com", domain.RoleMember)
	require.NoError(t, err)
	_, err = svc.UpdateMemberStatus(context.Background(), tc, member.ID, domain.TeamMemberActive)
	assert.True(t, errors.Is(err, domain.ErrTeamLimitReached))

	subscribe(t, store, tc.TenantID, "pro")
	active, err := svc.UpdateMemberStatus(context.Background(), tc, member.ID, domain.TeamMemberActive)
	require.NoError(t, err)
	assert.Equal(t, domain.TeamMemberActive, active.Status)

	_, err = svc.UpdateMemberStatus(context.Background(), tc, member.ID, domain.TeamMemberRemoved)
	assert.True(t, domain.IsValidationError(err))
}

func TestTeamService_RemovedMemberIsFrozen(t *testing.T) {
	_, svc, tc := newTeamFixture(t)
	member, err := svc.InviteMember(context.Background(), tc, "priya@example.com", domain.RoleMember)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveMember(context.Background(), tc, member.ID))

	_, err = svc.UpdateMemberRole(context.Background(), tc, member.ID, domain.RoleAdmin)
	assert.True(t, errors.Is(err, domain.ErrTeamMemberRemoved))
	_, err = svc.UpdateMemberStatus(context.Background(), tc, member.ID, domain.TeamMemberSuspended)
	assert.True(t, errors.Is(err, domain.ErrTeamMemberRemoved))

	assert.Empty(t, svc.ListMembers(context.Background(), tc))
}

func TestTeamService_AcceptInvitation(t *testing.T) {
	_, svc, tc := newTeamFixture(t)
	invited, err := svc.InviteMember(context.Background(), tc, "priya@example.com", domain.RoleAdmin)
	require.NoError(t, err)

	caller := domain.TenantContext{UserID: uuid.New(), Email: "Priya@example.com"}
	member, err := svc.AcceptInvitation(context.Background(), caller, tc.TenantID)
	require.NoError(t, err)
	assert.Equal(t, invited.ID, member.ID)
	assert.Equal(t, domain.TeamMemberActive, member.Status)
	require.NotNil(t, member.UserID)
	assert.Equal(t, caller.UserID, *member.UserID)
	assert.NotNil(t, member.JoinedAt)

	_, err = svc.AcceptInvitation(context.Background(), caller, tc.TenantID)
	assert.True(t, errors.Is(err, domain.ErrInvitationNotFound))

	resolved, err := svc.ResolveMembership(context.Background(), caller.UserID)
	require.NoError(t, err)
	assert.Equal(t, tc.TenantID, resolved.TenantID)
	assert.Equal(t, domain.RoleAdmin, resolved.Role)

	_, err = svc.ResolveMembership(context.Background(), uuid.New())
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestTeamService_AcceptInvitation_WrongEmail(t *testing.T) {
	_, svc, tc := newTeamFixture(t)
	_, err := svc.InviteMember(context.Background(), tc, "priya@example.com", domain.RoleMember)
	require.NoError(t, err)

	_, err = svc.AcceptInvitation(context.Background(), domain.TenantContext{UserID: uuid.New(), Email: "mallory@example.com"}, tc.TenantID)
	assert.True(t, errors.Is(err, domain.ErrInvitationNotFound))

	_, err = svc.AcceptInvitation(context.Background(), domain.TenantContext{}, tc.TenantID)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}
