package api

import (
	"net/http"
	"strings"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/handler"
)

// PlanHandler handles the plan catalog and plan checkout.
type PlanHandler struct {
	service domain.PlanService
}

func NewPlanHandler(service domain.PlanService) *PlanHandler {
	return &PlanHandler{service: service}
}

// List handles GET /api/plans
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	handler.Respond(w, r, h.service.ListPlans(), nil)
}

// Current handles GET /api/plans/current
func (h *PlanHandler) Current(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.CurrentPlan(r.Context(), handler.Tenant(r))
	handler.Respond(w, r, plan, err)
}

// Checkout handles GET /checkout?checkout=<plan>. Browsers are sent to the
// hosted checkout page; JSON clients get the session back.
func (h *PlanHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	planID := strings.TrimSpace(r.URL.Query().Get("checkout"))
	if planID == "" {
		handler.ValidationErrorResponse(w, r, domain.NewValidationError("plan.checkout", "checkout", "is required"))
		return
	}

	session, err := h.service.StartCheckout(r.Context(), handler.Tenant(r), planID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if handler.AcceptsJSON(r) {
		handler.WriteJSON(w, r, http.StatusOK, session)
		return
	}
	http.Redirect(w, r, session.URL, http.StatusSeeOther)
}
