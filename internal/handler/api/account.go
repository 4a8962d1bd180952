package api

import (
	"net/http"
	"strings"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/handler"
)

// AccountHandler handles onboarding and the public contact form.
type AccountHandler struct {
	service domain.AccountService
}

func NewAccountHandler(service domain.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

type onboardRequest struct {
	Name         string `json:"name" validate:"max=200"`
	BusinessName string `json:"business_name" validate:"required,max=200"`
}

type contactRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Onboard handles POST /api/account/onboard
func (h *AccountHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	var req onboardRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	settings, err := h.service.Onboard(r.Context(), handler.Tenant(r), domain.OnboardParams{
		Name:         strings.TrimSpace(req.Name),
		BusinessName: strings.TrimSpace(req.BusinessName),
	})
	handler.Respond(w, r, settings, err)
}

// Contact handles POST /api/contact. No authentication.
func (h *AccountHandler) Contact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	err := h.service.Contact(r.Context(), domain.ContactParams{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	})
	handler.RespondStatus(w, r, http.StatusAccepted, map[string]string{"status": "received"}, err)
}
