package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DodailSolutions/billbook/internal/billing"
	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/events"
	"github.com/DodailSolutions/billbook/internal/repository"
	"github.com/DodailSolutions/billbook/internal/telemetry"
	"github.com/google/uuid"
)

type PaymentService struct {
	store     repository.Store
	gateway   billing.Gateway
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

var _ domain.PaymentService = (*PaymentService)(nil)

func NewPaymentService(store repository.Store, gateway billing.Gateway, publisher events.Publisher, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		store:     store,
		gateway:   gateway,
		publisher: publisher,
		logger:    logger.With("service", "payment"),
		now:       time.Now,
	}
}

// CreatePaymentOrder opens a gateway order for the invoice total and records
// a pending payment. Repeated calls open repeated orders; only the one the
// customer completes is ever verified.
func (s *PaymentService) CreatePaymentOrder(ctx context.Context, tc domain.TenantContext, invoiceID uuid.UUID) (*domain.PaymentOrder, error) {
	const op = "payment.create_order"
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	invoice, err := s.store.GetInvoice(ctx, tc.TenantID, invoiceID)
	if err != nil {
		return nil, storeError(err, op, "Invoice", invoiceID.String())
	}

	switch invoice.Status {
	case domain.InvoiceStatusPaid:
		return nil, withOp(domain.ErrInvoiceAlreadyPaid, op)
	case domain.InvoiceStatusCancelled:
		return nil, withOp(domain.ErrInvoiceCancelled, op)
	}

	amountMinor := domain.ToMinorUnits(invoice.Total)
	order, err := s.gateway.CreateOrder(ctx, billing.OrderParams{
		Amount:   amountMinor,
		Currency: invoice.Currency,
		Receipt:  invoice.InvoiceNumber,
		Notes: map[string]string{
			"tenant_id":      tc.TenantID.String(),
			"invoice_id":     invoice.ID.String(),
			"invoice_number": invoice.InvoiceNumber,
		},
	})
	if err != nil {
		if errors.Is(err, billing.ErrAmountTooSmall) {
			return nil, wrapOp(ErrAmountBelowMinimum, op, err)
		}
		s.logger.Error("failed to create gateway order",
			"tenant_id", tc.TenantID,
			"invoice_id", invoice.ID,
			"error", err,
		)
		return nil, wrapOp(ErrPaymentGateway, op, err)
	}

	metadata, _ := json.Marshal(map[string]string{"receipt": invoice.InvoiceNumber})
	payment, err := s.store.CreatePayment(ctx, domain.Payment{
		TenantID:       tc.TenantID,
		InvoiceID:      &invoice.ID,
		Amount:         invoice.Total,
		Currency:       invoice.Currency,
		GatewayOrderID: order.ID,
		Metadata:       metadata,
		Status:         domain.PaymentStatusPending,
	})
	if err != nil {
		return nil, storeError(err, op, "Payment", order.ID)
	}

	if telemetry.Business != nil {
		telemetry.Business.PaymentOrdersCreated.WithLabelValues(tc.TenantID.String()).Inc()
	}

	s.logger.Info("payment order created",
		"tenant_id", tc.TenantID,
		"invoice_id", invoice.ID,
		"payment_id", payment.ID,
		"order_id", order.ID,
		"amount", amountMinor,
	)

	return &domain.PaymentOrder{
		PaymentID:    payment.ID,
		OrderID:      order.ID,
		Amount:       invoice.Total,
		AmountMinor:  amountMinor,
		Currency:     invoice.Currency,
		ClientSecret: order.ClientSecret,
	}, nil
}

// VerifyAndCompletePayment trusts only the gateway's verification of the
// checkout triple. A completed payment replays as success; the payment and
// invoice are updated together or not at all.
func (s *PaymentService) VerifyAndCompletePayment(ctx context.Context, tc domain.TenantContext, params domain.VerifyPaymentParams) (*domain.Payment, error) {
	const op = "payment.verify"
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if err := validateVerifyParams(op, params); err != nil {
		return nil, err
	}

	payment, err := s.store.GetPaymentByOrderID(ctx, tc.TenantID, params.OrderID)
	if err != nil {
		return nil, storeError(err, op, "Payment", params.OrderID)
	}

	if err := s.gateway.VerifyPayment(ctx, params.OrderID, params.PaymentID, params.Signature); err != nil {
		s.logger.Warn("payment verification failed",
			"tenant_id", tc.TenantID,
			"payment_id", payment.ID,
			"order_id", params.OrderID,
			"error", err,
		)
		if telemetry.Business != nil {
			telemetry.Business.PaymentsFailed.WithLabelValues(tc.TenantID.String(), "verification").Inc()
		}
		return nil, wrapOp(domain.ErrPaymentVerificationFailed, op, err)
	}

	switch payment.Status {
	case domain.PaymentStatusCompleted:
		return &payment, nil
	case domain.PaymentStatusPending:
	default:
		return nil, withOp(domain.ErrPaymentNotPending, op)
	}

	method := "unknown"
	var metadata json.RawMessage
	details, err := s.gateway.FetchPaymentDetails(ctx, params.PaymentID)
	if err != nil {
		s.logger.Warn("failed to fetch payment details",
			"payment_id", payment.ID,
			"gateway_payment_id", params.PaymentID,
			"error", err,
		)
	} else if details != nil {
		if details.Method != "" {
			method = details.Method
		}
		metadata = details.Metadata()
	}

	var completed domain.Payment
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		completed, err = q.CompletePayment(ctx, repository.CompletePaymentParams{
			ID:               payment.ID,
			GatewayPaymentID: params.PaymentID,
			GatewaySignature: params.Signature,
			Method:           method,
			Metadata:         metadata,
		})
		if err != nil {
			if repository.IsNotFound(err) {
				return withOp(domain.ErrPaymentNotPending, op)
			}
			return fmt.Errorf("failed to complete payment: %w", err)
		}

		if payment.InvoiceID != nil {
			if _, err := q.UpdateInvoiceStatus(ctx, tc.TenantID, *payment.InvoiceID, domain.InvoiceStatusPaid); err != nil {
				return fmt.Errorf("failed to mark invoice paid: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, op, "Payment", payment.ID.String())
	}

	if telemetry.Business != nil {
		tenant := tc.TenantID.String()
		telemetry.Business.PaymentsCompleted.WithLabelValues(tenant, method).Inc()
		telemetry.Business.RevenueCollected.WithLabelValues(tenant, completed.Currency).Add(float64(domain.ToMinorUnits(completed.Amount)))
		if payment.InvoiceID != nil {
			telemetry.Business.InvoiceStatusChanged.WithLabelValues(tenant, string(domain.InvoiceStatusPaid)).Inc()
		}
	}
	publish(ctx, s.publisher, s.logger, events.PaymentCompleted, tc.TenantID, map[string]interface{}{
		"payment_id": completed.ID,
		"invoice_id": completed.InvoiceID,
		"amount":     completed.Amount,
		"currency":   completed.Currency,
		"method":     completed.Method,
	})

	s.logger.Info("payment completed",
		"tenant_id", tc.TenantID,
		"payment_id", completed.ID,
		"invoice_id", completed.InvoiceID,
		"method", method,
	)
	return &completed, nil
}

func validateVerifyParams(op string, p domain.VerifyPaymentParams) error {
	var err error
	if strings.TrimSpace(p.OrderID) == "" {
		err = domain.AddFieldError(err, "order_id", "order id is required")
	}
	if strings.TrimSpace(p.PaymentID) == "" {
		err = domain.AddFieldError(err, "payment_id", "payment id is required")
	}
	if strings.TrimSpace(p.Signature) == "" {
		err = domain.AddFieldError(err, "signature", "signature is required")
	}
	if ve, ok := err.(*domain.ValidationError); ok {
		ve.Op = op
	}
	return err
}

// FailPayment marks a pending payment failed. Orders that are unknown or no
// longer pending are ignored so webhook redeliveries stay harmless.
func (s *PaymentService) FailPayment(ctx context.Context, gatewayOrderID, reason string) error {
	const op = "payment.fail"

	payment, err := s.store.GetPaymentByGatewayOrder(ctx, gatewayOrderID)
	if err != nil {
		if repository.IsNotFound(err) {
			s.logger.Debug("ignoring failure for unknown order", "order_id", gatewayOrderID)
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if payment.Status != domain.PaymentStatusPending {
		return nil
	}

	if _, err := s.store.TransitionPayment(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusFailed); err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if telemetry.Business != nil {
		telemetry.Business.PaymentsFailed.WithLabelValues(payment.TenantID.String(), "gateway").Inc()
	}
	publish(ctx, s.publisher, s.logger, events.PaymentFailed, payment.TenantID, map[string]interface{}{
		"payment_id": payment.ID,
		"invoice_id": payment.InvoiceID,
		"order_id":   gatewayOrderID,
		"reason":     reason,
	})

	s.logger.Info("payment failed",
		"tenant_id", payment.TenantID,
		"payment_id", payment.ID,
		"order_id", gatewayOrderID,
		"reason", reason,
	)
	return nil
}

// RequestRefund files a pending refund for the full amount of a completed
// payment. At most one refund per payment may be pending or processing.
func (s *PaymentService) RequestRefund(ctx context.Context, tc domain.TenantContext, paymentID uuid.UUID, reason string) (*domain.Refund, error) {
	const op = "refund.request"
	if err := requireWriter(tc, op); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidationError(op, "reason", "reason is required")
	}

	payment, err := s.store.GetPayment(ctx, tc.TenantID, paymentID)
	if err != nil {
		return nil, storeError(err, op, "Payment", paymentID.String())
	}
	if payment.Status != domain.PaymentStatusCompleted {
		return nil, withOp(domain.ErrPaymentNotRefundable, op)
	}

	active, err := s.store.HasActiveRefund(ctx, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to check refunds: %w", op, err)
	}
	if active {
		return nil, withOp(domain.ErrRefundInProgress, op)
	}

	refund, err := s.store.CreateRefund(ctx, domain.Refund{
		TenantID:  tc.TenantID,
		PaymentID: payment.ID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		Reason:    reason,
		Status:    domain.RefundStatusPending,
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, wrapOp(domain.ErrRefundInProgress, op, err)
		}
		return nil, storeError(err, op, "Refund", "")
	}

	if telemetry.Business != nil {
		telemetry.Business.RefundsRequested.WithLabelValues(tc.TenantID.String()).Inc()
	}

	s.logger.Info("refund requested",
		"tenant_id", tc.TenantID,
		"refund_id", refund.ID,
		"payment_id", payment.ID,
	)
	return &refund, nil
}

// ProcessRefund approves or rejects a pending refund.
//
// Approval is a saga: the refund is moved to processing and committed, the
// gateway refund is issued, then refund, payment and invoice are settled in
// one transaction. A failure after the first step moves the refund to failed.
func (s *PaymentService) ProcessRefund(ctx context.Context, tc domain.TenantContext, params domain.ProcessRefundParams) (*domain.Refund, error) {
	const op = "refund.process"
	if !tc.SuperAdmin {
		if err := tc.Validate(); err != nil {
			return nil, err
		}
	}
	if !tc.CanManage() {
		return nil, withOp(domain.ErrRefundNotPermitted, op)
	}

	var refund domain.Refund
	var err error
	if tc.SuperAdmin {
		refund, err = s.store.GetRefundAnyTenant(ctx, params.RefundID)
	} else {
		refund, err = s.store.GetRefund(ctx, tc.TenantID, params.RefundID)
	}
	if err != nil {
		return nil, storeError(err, op, "Refund", params.RefundID.String())
	}
	if refund.Status != domain.RefundStatusPending {
		return nil, withOp(domain.ErrRefundNotPending, op)
	}

	now := s.now()
	notes := strings.TrimSpace(params.Notes)

	if !params.Approve {
		rejected, err := s.store.TransitionRefund(ctx, repository.TransitionRefundParams{
			ID:          refund.ID,
			From:        []domain.RefundStatus{domain.RefundStatusPending},
			To:          domain.RefundStatusFailed,
			Notes:       notes,
			ProcessedBy: &tc.UserID,
			ProcessedAt: &now,
		})
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, withOp(domain.ErrRefundNotPending, op)
			}
			return nil, fmt.Errorf("%s: failed to reject refund: %w", op, err)
		}
		s.refundSettled(ctx, rejected, "rejected")
		return &rejected, nil
	}

	payment, err := s.store.GetPayment(ctx, refund.TenantID, refund.PaymentID)
	if err != nil {
		return nil, storeError(err, op, "Payment", refund.PaymentID.String())
	}
	if payment.GatewayPaymentID == "" {
		return nil, withOp(domain.ErrPaymentNotCaptured, op)
	}

	if _, err := s.store.TransitionRefund(ctx, repository.TransitionRefundParams{
		ID:   refund.ID,
		From: []domain.RefundStatus{domain.RefundStatusPending},
		To:   domain.RefundStatusProcessing,
	}); err != nil {
		if repository.IsNotFound(err) {
			return nil, withOp(domain.ErrRefundNotPending, op)
		}
		return nil, fmt.Errorf("%s: failed to start refund: %w", op, err)
	}

	gatewayRefund, err := s.gateway.CreateRefund(ctx, billing.RefundParams{
		PaymentID: payment.GatewayPaymentID,
		Amount:    domain.ToMinorUnits(refund.Amount),
		Notes: map[string]string{
			"tenant_id":  refund.TenantID.String(),
			"refund_id":  refund.ID.String(),
			"payment_id": payment.ID.String(),
			"notes":      notes,
		},
		IdempotencyKey: "refund_" + refund.ID.String(),
	})
	if err != nil {
		s.compensateRefund(ctx, refund, tc.UserID, "", err)
		return nil, wrapOp(ErrPaymentGateway, op, err)
	}

	var completed domain.Refund
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		completed, err = q.TransitionRefund(ctx, repository.TransitionRefundParams{
			ID:              refund.ID,
			From:            []domain.RefundStatus{domain.RefundStatusProcessing},
			To:              domain.RefundStatusCompleted,
			GatewayRefundID: gatewayRefund.ID,
			Notes:           notes,
			ProcessedBy:     &tc.UserID,
			ProcessedAt:     &now,
		})
		if err != nil {
			return fmt.Errorf("failed to complete refund: %w", err)
		}

		if _, err := q.TransitionPayment(ctx, payment.ID, domain.PaymentStatusCompleted, domain.PaymentStatusRefunded); err != nil {
			return fmt.Errorf("failed to mark payment refunded: %w", err)
		}

		if payment.InvoiceID != nil {
			if _, err := q.UpdateInvoiceStatus(ctx, payment.TenantID, *payment.InvoiceID, domain.InvoiceStatusCancelled); err != nil {
				return fmt.Errorf("failed to cancel invoice: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.compensateRefund(ctx, refund, tc.UserID, gatewayRefund.ID, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.refundSettled(ctx, completed, "completed")
	return &completed, nil
}

// compensateRefund moves a refund that could not be settled to failed. Its
// own failure is reported but never replaces the original error. When the
// gateway already issued the refund, its id is kept on the failed row so the
// money movement can be reconciled.
func (s *PaymentService) compensateRefund(ctx context.Context, refund domain.Refund, processedBy uuid.UUID, gatewayRefundID string, cause error) {
	ctx = context.WithoutCancel(ctx)
	now := s.now()

	notes := "refund failed: " + cause.Error()
	if gatewayRefundID != "" {
		notes = fmt.Sprintf("refund failed after gateway refund %s: %v", gatewayRefundID, cause)
	}

	_, err := s.store.TransitionRefund(ctx, repository.TransitionRefundParams{
		ID:              refund.ID,
		From:            []domain.RefundStatus{domain.RefundStatusPending, domain.RefundStatusProcessing},
		To:              domain.RefundStatusFailed,
		GatewayRefundID: gatewayRefundID,
		Notes:           notes,
		ProcessedBy:     &processedBy,
		ProcessedAt:     &now,
	})
	if err != nil {
		s.logger.Error("failed to mark refund failed",
			"tenant_id", refund.TenantID,
			"refund_id", refund.ID,
			"gateway_refund_id", gatewayRefundID,
			"cause", cause,
			"error", err,
		)
		telemetry.CaptureErrorWithTenant(err, refund.TenantID.String(), map[string]interface{}{
			"refund_id":         refund.ID.String(),
			"gateway_refund_id": gatewayRefundID,
			"cause":             cause.Error(),
		})
	}

	if telemetry.Business != nil {
		telemetry.Business.RefundsProcessed.WithLabelValues(refund.TenantID.String(), "failed").Inc()
	}
	if gatewayRefundID != "" {
		s.logger.Error("refund issued by gateway but not settled",
			"tenant_id", refund.TenantID,
			"refund_id", refund.ID,
			"gateway_refund_id", gatewayRefundID,
			"error", cause,
		)
		return
	}
	s.logger.Warn("refund failed", "tenant_id", refund.TenantID, "refund_id", refund.ID, "error", cause)
}

func (s *PaymentService) refundSettled(ctx context.Context, refund domain.Refund, outcome string) {
	if telemetry.Business != nil {
		telemetry.Business.RefundsProcessed.WithLabelValues(refund.TenantID.String(), outcome).Inc()
	}
	publish(ctx, s.publisher, s.logger, events.RefundProcessed, refund.TenantID, map[string]interface{}{
		"refund_id":  refund.ID,
		"payment_id": refund.PaymentID,
		"status":     refund.Status,
		"amount":     refund.Amount,
	})
	s.logger.Info("refund processed",
		"tenant_id", refund.TenantID,
		"refund_id", refund.ID,
		"outcome", outcome,
	)
}

func (s *PaymentService) ListPayments(ctx context.Context, tc domain.TenantContext, params domain.ListParams) []domain.Payment {
	if tc.Validate() != nil {
		return []domain.Payment{}
	}

	params = params.Normalize()
	payments, err := s.store.ListPayments(ctx, tc.TenantID, params.Limit, params.Offset)
	if err != nil {
		s.logger.Warn("failed to list payments", "tenant_id", tc.TenantID, "error", err)
		return []domain.Payment{}
	}
	return emptyIfNil(payments)
}

func (s *PaymentService) ListRefunds(ctx context.Context, tc domain.TenantContext, params domain.ListParams) []domain.Refund {
	if tc.Validate() != nil {
		return []domain.Refund{}
	}

	params = params.Normalize()
	refunds, err := s.store.ListRefunds(ctx, tc.TenantID, params.Limit, params.Offset)
	if err != nil {
		s.logger.Warn("failed to list refunds", "tenant_id", tc.TenantID, "error", err)
		return []domain.Refund{}
	}
	return emptyIfNil(refunds)
}
