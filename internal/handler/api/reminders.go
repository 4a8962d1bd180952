package api

import (
	"net/http"
	"strconv"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/handler"
	"github.com/google/uuid"
)

// ReminderHandler handles /api/reminders.
type ReminderHandler struct {
	service domain.ReminderService
}

func NewReminderHandler(service domain.ReminderService) *ReminderHandler {
	return &ReminderHandler{service: service}
}

type reminderRequest struct {
	InvoiceID          *uuid.UUID          `json:"invoice_id" validate:"required_without=RecurringInvoiceID,excluded_with=RecurringInvoiceID"`
	RecurringInvoiceID *uuid.UUID          `json:"recurring_invoice_id"`
	ReminderType       domain.ReminderType `json:"reminder_type" validate:"required,oneof=due_date overdue upcoming_recurring"`
	ReminderDate       handler.Date        `json:"reminder_date" validate:"required"`
	DaysBefore         int32               `json:"days_before" validate:"min=0,max=365"`
}

// List handles GET /api/reminders?pending=true
func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	pending, _ := strconv.ParseBool(r.URL.Query().Get("pending"))
	reminders := h.service.ListReminders(r.Context(), handler.Tenant(r), domain.ListRemindersParams{
		ListParams:  handler.ListParams(r),
		PendingOnly: pending,
	})
	handler.Respond(w, r, reminders, nil)
}

// Create handles POST /api/reminders
func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	reminder, err := h.service.CreateReminder(r.Context(), handler.Tenant(r), domain.ReminderParams{
		InvoiceID:          req.InvoiceID,
		RecurringInvoiceID: req.RecurringInvoiceID,
		ReminderType:       req.ReminderType,
		ReminderDate:       req.ReminderDate.Time,
		DaysBefore:         req.DaysBefore,
	})
	handler.RespondStatus(w, r, http.StatusCreated, reminder, err)
}

// MarkSent handles POST /api/reminders/{id}/sent
func (h *ReminderHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	reminder, err := h.service.MarkReminderSent(r.Context(), handler.Tenant(r), id)
	handler.Respond(w, r, reminder, err)
}

// Dismiss handles DELETE /api/reminders/{id}
func (h *ReminderHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	err = h.service.DismissReminder(r.Context(), handler.Tenant(r), id)
	handler.RespondStatus(w, r, http.StatusNoContent, nil, err)
}
