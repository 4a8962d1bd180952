package api

import (
	"net/http"
	"strings"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/handler"
)

// PaymentHandler handles payment orders, verification and refunds.
type PaymentHandler struct {
	service domain.PaymentService
}

func NewPaymentHandler(service domain.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

type verifyPaymentRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

type refundRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type processRefundRequest struct {
	Approve *bool  `json:"approve" validate:"required"`
	Notes   string `json:"notes" validate:"max=1000"`
}

// CreateOrder handles POST /api/invoices/{id}/payment-order
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	order, err := h.service.CreatePaymentOrder(r.Context(), handler.Tenant(r), invoiceID)
	handler.RespondStatus(w, r, http.StatusCreated, order, err)
}

// Verify handles POST /api/payments/verify with the checkout triple the
// client received from the gateway.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	payment, err := h.service.VerifyAndCompletePayment(r.Context(), handler.Tenant(r), domain.VerifyPaymentParams{
		OrderID:   strings.TrimSpace(req.OrderID),
		PaymentID: strings.TrimSpace(req.PaymentID),
		Signature: req.Signature,
	})
	handler.Respond(w, r, payment, err)
}

// List handles GET /api/payments
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	handler.Respond(w, r, h.service.ListPayments(r.Context(), handler.Tenant(r), handler.ListParams(r)), nil)
}

// RequestRefund handles POST /api/payments/{id}/refunds
func (h *PaymentHandler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	paymentID, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req refundRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	refund, err := h.service.RequestRefund(r.Context(), handler.Tenant(r), paymentID, strings.TrimSpace(req.Reason))
	handler.RespondStatus(w, r, http.StatusCreated, refund, err)
}

// ListRefunds handles GET /api/refunds
func (h *PaymentHandler) ListRefunds(w http.ResponseWriter, r *http.Request) {
	handler.Respond(w, r, h.service.ListRefunds(r.Context(), handler.Tenant(r), handler.ListParams(r)), nil)
}

// ProcessRefund handles POST /api/refunds/{id}/process
func (h *PaymentHandler) ProcessRefund(w http.ResponseWriter, r *http.Request) {
	params, err := decodeProcessRefund(r)
	if err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	refund, err := h.service.ProcessRefund(r.Context(), handler.Tenant(r), params)
	handler.Respond(w, r, refund, err)
}

func decodeProcessRefund(r *http.Request) (domain.ProcessRefundParams, error) {
	refundID, err := handler.PathUUID(r, "id")
	if err != nil {
		return domain.ProcessRefundParams{}, err
	}
	var req processRefundRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		return domain.ProcessRefundParams{}, err
	}
	return domain.ProcessRefundParams{
		RefundID: refundID,
		Approve:  *req.Approve,
		Notes:    strings.TrimSpace(req.Notes),
	}, nil
}
