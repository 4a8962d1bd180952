package repository

import (
	"context"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/google/uuid"
)

const teamMemberColumns = `id, tenant_id, user_id, email, role, status, invited_at, joined_at`

func scanTeamMember(row scanner) (domain.TeamMember, error) {
	var m domain.TeamMember
	err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.UserID,
		&m.Email,
		&m.Role,
		&m.Status,
		&m.InvitedAt,
		&m.JoinedAt,
	)
	return m, err
}

const createTeamMember = `
INSERT INTO team_members (tenant_id, email, role, status)
VALUES ($1, lower($2), $3, $4)
RETURNING ` + teamMemberColumns

func (q *Queries) CreateTeamMember(ctx context.Context, arg domain.TeamMember) (domain.TeamMember, error) {
	row := q.db.QueryRow(ctx, createTeamMember, arg.TenantID, arg.Email, arg.Role, arg.Status)
	return scanTeamMember(row)
}

const getTeamMember = `SELECT ` + teamMemberColumns + ` FROM team_members WHERE tenant_id = $1 AND id = $2`

func (q *Queries) GetTeamMember(ctx context.Context, tenantID, id uuid.UUID) (domain.TeamMember, error) {
	return scanTeamMember(q.db.QueryRow(ctx, getTeamMember, tenantID, id))
}

const getTeamMemberByEmail = `SELECT ` + teamMemberColumns + ` FROM team_members WHERE tenant_id = $1 AND email = lower($2)`

func (q *Queries) GetTeamMemberByEmail(ctx context.Context, tenantID uuid.UUID, email string) (domain.TeamMember, error) {
	return scanTeamMember(q.db.QueryRow(ctx, getTeamMemberByEmail, tenantID, email))
}

const countTeamSeats = `SELECT count(*) FROM team_members WHERE tenant_id = $1 AND status IN ('pending', 'active')`

// CountTeamSeats counts members occupying a plan seat: pending and active.
func (q *Queries) CountTeamSeats(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countTeamSeats, tenantID).Scan(&n)
	return n, err
}

const updateTeamMemberRole = `
UPDATE team_members SET role = $3
WHERE tenant_id = $1 AND id = $2
RETURNING ` + teamMemberColumns

func (q *Queries) UpdateTeamMemberRole(ctx context.Context, tenantID, id uuid.UUID, role domain.Role) (domain.TeamMember, error) {
	return scanTeamMember(q.db.QueryRow(ctx, updateTeamMemberRole, tenantID, id, role))
}

const updateTeamMemberStatus = `
UPDATE team_members SET status = $3
WHERE tenant_id = $1 AND id = $2
RETURNING ` + teamMemberColumns

func (q *Queries) UpdateTeamMemberStatus(ctx context.Context, tenantID, id uuid.UUID, status domain.TeamMemberStatus) (domain.TeamMember, error) {
	return scanTeamMember(q.db.QueryRow(ctx, updateTeamMemberStatus, tenantID, id, status))
}

const reinviteTeamMember = `
UPDATE team_members
SET role = $3, status = 'pending', user_id = NULL, joined_at = NULL, invited_at = now()
WHERE tenant_id = $1 AND id = $2 AND status = 'removed'
RETURNING ` + teamMemberColumns

func (q *Queries) ReinviteTeamMember(ctx context.Context, tenantID, id uuid.UUID, role domain.Role) (domain.TeamMember, error) {
	return scanTeamMember(q.db.QueryRow(ctx, reinviteTeamMember, tenantID, id, role))
}

const acceptTeamInvitation = `
UPDATE team_members
SET status = 'active', user_id = $3, joined_at = $4
WHERE tenant_id = $1 AND email = lower($2) AND status = 'pending'
RETURNING ` + teamMemberColumns

func (q *Queries) AcceptTeamInvitation(ctx context.Context, arg AcceptInvitationParams) (domain.TeamMember, error) {
	row := q.db.QueryRow(ctx, acceptTeamInvitation, arg.TenantID, arg.Email, arg.UserID, arg.JoinedAt)
	return scanTeamMember(row)
}

const listTeamMembers = `
SELECT ` + teamMemberColumns + `
FROM team_members
WHERE tenant_id = $1 AND status <> 'removed'
ORDER BY invited_at`

func (q *Queries) ListTeamMembers(ctx context.Context, tenantID uuid.UUID) ([]domain.TeamMember, error) {
	rows, err := q.db.Query(ctx, listTeamMembers, tenantID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTeamMember)
}

const getActiveMembershipByUser = `
SELECT ` + teamMemberColumns + `
FROM team_members
WHERE user_id = $1 AND status = 'active'
ORDER BY joined_at DESC
LIMIT 1`

func (q *Queries) GetActiveMembershipByUser(ctx context.Context, userID uuid.UUID) (domain.TeamMember, error) {
	return scanTeamMember(q.db.QueryRow(ctx, getActiveMembershipByUser, userID))
}
