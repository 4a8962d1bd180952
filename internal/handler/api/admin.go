package api

import (
	"net/http"
	"strings"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/handler"
)

// AdminHandler handles the super-admin console under /api/admin. Routes are
// mounted behind middleware.RequireSuperAdmin and the service checks again.
type AdminHandler struct {
	service domain.AdminService
}

func NewAdminHandler(service domain.AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

type setPlanRequest struct {
	Plan string `json:"plan" validate:"required,max=50"`
}

// ListTenants handles GET /api/admin/tenants
func (h *AdminHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.service.ListTenants(r.Context(), handler.Tenant(r), handler.ListParams(r))
	handler.Respond(w, r, tenants, err)
}

// ListRefunds handles GET /api/admin/refunds
func (h *AdminHandler) ListRefunds(w http.ResponseWriter, r *http.Request) {
	refunds, err := h.service.ListPendingRefunds(r.Context(), handler.Tenant(r), handler.ListParams(r))
	handler.Respond(w, r, refunds, err)
}

// ProcessRefund handles POST /api/admin/refunds/{id}/process
func (h *AdminHandler) ProcessRefund(w http.ResponseWriter, r *http.Request) {
	params, err := decodeProcessRefund(r)
	if err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	refund, err := h.service.ProcessRefund(r.Context(), handler.Tenant(r), params)
	handler.Respond(w, r, refund, err)
}

// SetPlan handles PUT /api/admin/tenants/{id}/plan
func (h *AdminHandler) SetPlan(w http.ResponseWriter, r *http.Request) {
	tenantID, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req setPlanRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	sub, err := h.service.SetTenantPlan(r.Context(), handler.Tenant(r), tenantID, strings.TrimSpace(req.Plan))
	handler.Respond(w, r, sub, err)
}
