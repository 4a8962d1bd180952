package api

import (
	"net/http"
	"strings"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/handler"
	"github.com/google/uuid"
)

// TeamHandler handles /api/team.
type TeamHandler struct {
	service domain.TeamService
}

func NewTeamHandler(service domain.TeamService) *TeamHandler {
	return &TeamHandler{service: service}
}

type inviteRequest struct {
	Email string      `json:"email" validate:"required,email"`
	Role  domain.Role `json:"role" validate:"required,oneof=admin member viewer"`
}

type roleRequest struct {
	Role domain.Role `json:"role" validate:"required,oneof=admin member viewer"`
}

type memberStatusRequest struct {
	Status domain.TeamMemberStatus `json:"status" validate:"required,oneof=active suspended"`
}

type acceptRequest struct {
	TenantID uuid.UUID `json:"tenant_id" validate:"required"`
}

// List handles GET /api/team
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	handler.Respond(w, r, h.service.ListMembers(r.Context(), handler.Tenant(r)), nil)
}

// Invite handles POST /api/team
func (h *TeamHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	member, err := h.service.InviteMember(r.Context(), handler.Tenant(r), strings.TrimSpace(req.Email), req.Role)
	handler.RespondStatus(w, r, http.StatusCreated, member, err)
}

// UpdateRole handles PATCH /api/team/{id}/role
func (h *TeamHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req roleRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	member, err := h.service.UpdateMemberRole(r.Context(), handler.Tenant(r), id, req.Role)
	handler.Respond(w, r, member, err)
}

// UpdateStatus handles PATCH /api/team/{id}/status
func (h *TeamHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req memberStatusRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	member, err := h.service.UpdateMemberStatus(r.Context(), handler.Tenant(r), id, req.Status)
	handler.Respond(w, r, member, err)
}

// Remove handles DELETE /api/team/{id}
func (h *TeamHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	err = h.service.RemoveMember(r.Context(), handler.Tenant(r), id)
	handler.RespondStatus(w, r, http.StatusNoContent, nil, err)
}

// Accept handles POST /api/team/accept
func (h *TeamHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	member, err := h.service.AcceptInvitation(r.Context(), handler.Tenant(r), req.TenantID)
	handler.Respond(w, r, member, err)
}
