package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/email"
	"github.com/DodailSolutions/billbook/internal/events"
	"github.com/DodailSolutions/billbook/internal/repository"
	"github.com/DodailSolutions/billbook/internal/telemetry"
	"github.com/google/uuid"
)

type InvoiceService struct {
	store     repository.Store
	notifier  Notifier
	publisher events.Publisher
	baseURL   string
	logger    *slog.Logger
	now       func() time.Time
}

var _ domain.InvoiceService = (*InvoiceService)(nil)

func NewInvoiceService(
	store repository.Store,
	notifier Notifier,
	publisher events.Publisher,
	baseURL string,
	logger *slog.Logger,
) *InvoiceService {
	return &InvoiceService{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger.With("service", "invoice"),
		now:       time.Now,
	}
}

// CreateInvoice validates the input, derives all totals from the line items
// and writes the invoice with its items in one transaction. The number is
// allocated before the transaction so a failed insert only burns a number.
func (s *InvoiceService) CreateInvoice(ctx context.Context, tc domain.TenantContext, params domain.InvoiceParams) (*domain.InvoiceDetail, error) {
	const op = "invoice.create"
	if err := requireWriter(tc, op); err != nil {
		return nil, err
	}

	params = s.normalizeParams(params)
	if err := validateInvoiceParams(op, params); err != nil {
		return nil, err
	}

	customer, err := s.store.GetCustomer(ctx, tc.TenantID, params.CustomerID)
	if err != nil {
		return nil, storeError(err, op, "Customer", params.CustomerID.String())
	}

	settings := loadSettings(ctx, s.store, s.logger, tc.TenantID)
	if params.DueDate == nil && settings.DefaultDueDays > 0 {
		due := params.InvoiceDate.AddDate(0, 0, int(settings.DefaultDueDays))
		params.DueDate = &due
	}

	totals := domain.CalculateTotals(params.Items, params.TaxPercentage)
	number := s.allocateNumber(ctx, tc.TenantID, settings.InvoicePrefix)

	var detail domain.InvoiceDetail
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		invoice, err := q.CreateInvoice(ctx, domain.Invoice{
			TenantID:      tc.TenantID,
			CustomerID:    params.CustomerID,
			InvoiceNumber: number,
			InvoiceDate:   params.InvoiceDate,
			DueDate:       params.DueDate,
			Subtotal:      totals.Subtotal,
			TaxPercentage: params.TaxPercentage,
			TaxAmount:     totals.TaxAmount,
			Total:         totals.Total,
			Currency:      settings.Currency,
			Notes:         params.Notes,
			Status:        domain.InvoiceStatusDraft,
		})
		if err != nil {
			if repository.IsUniqueViolation(err) {
				return wrapOp(domain.ErrInvoiceNumberInUse, op, err)
			}
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		items, err := insertInvoiceItems(ctx, q, invoice.ID, params.Items, totals)
		if err != nil {
			return err
		}

		detail = domain.InvoiceDetail{Invoice: invoice, Items: items, Customer: &customer}
		return nil
	})
	if err != nil {
		return nil, storeError(err, op, "Invoice", number)
	}

	if telemetry.Business != nil {
		tenant := tc.TenantID.String()
		telemetry.Business.InvoicesCreated.WithLabelValues(tenant, "manual").Inc()
		telemetry.Business.InvoiceValue.WithLabelValues(tenant).Observe(float64(domain.ToMinorUnits(detail.Total)))
	}
	publish(ctx, s.publisher, s.logger, events.InvoiceCreated, tc.TenantID, map[string]interface{}{
		"invoice_id":     detail.ID,
		"invoice_number": detail.InvoiceNumber,
		"customer_id":    detail.CustomerID,
		"total":          detail.Total,
		"currency":       detail.Currency,
	})

	s.logger.Info("invoice created",
		"tenant_id", tc.TenantID,
		"invoice_id", detail.ID,
		"invoice_number", detail.InvoiceNumber,
		"total", detail.Total.StringFixed(2),
	)
	return &detail, nil
}

// UpdateInvoice recomputes totals and replaces the full item set in one
// transaction. The invoice number and status are kept. Only draft and sent
// invoices can be edited.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, tc domain.TenantContext, id uuid.UUID, params domain.InvoiceParams) (*domain.InvoiceDetail, error) {
	const op = "invoice.update"
	if err := requireWriter(tc, op); err != nil {
		return nil, err
	}

	params = s.normalizeParams(params)
	if err := validateInvoiceParams(op, params); err != nil {
		return nil, err
	}

	customer, err := s.store.GetCustomer(ctx, tc.TenantID, params.CustomerID)
	if err != nil {
		return nil, storeError(err, op, "Customer", params.CustomerID.String())
	}

	totals := domain.CalculateTotals(params.Items, params.TaxPercentage)

	var detail domain.InvoiceDetail
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		current, err := q.GetInvoice(ctx, tc.TenantID, id)
		if err != nil {
			return err
		}
		if !current.Status.Editable() {
			return withOp(domain.ErrInvoiceLocked, op)
		}

		invoice, err := q.UpdateInvoice(ctx, domain.Invoice{
			ID:            id,
			TenantID:      tc.TenantID,
			CustomerID:    params.CustomerID,
			InvoiceDate:   params.InvoiceDate,
			DueDate:       params.DueDate,
			Subtotal:      totals.Subtotal,
			TaxPercentage: params.TaxPercentage,
			TaxAmount:     totals.TaxAmount,
			Total:         totals.Total,
			Notes:         params.Notes,
		})
		if err != nil {
			return err
		}

		if err := q.DeleteInvoiceItems(ctx, invoice.ID); err != nil {
			return fmt.Errorf("failed to delete invoice items: %w", err)
		}

		items, err := insertInvoiceItems(ctx, q, invoice.ID, params.Items, totals)
		if err != nil {
			return err
		}

		detail = domain.InvoiceDetail{Invoice: invoice, Items: items, Customer: &customer}
		return nil
	})
	if err != nil {
		return nil, storeError(err, op, "Invoice", id.String())
	}

	s.logger.Info("invoice updated", "tenant_id", tc.TenantID, "invoice_id", id)
	return &detail, nil
}

func insertInvoiceItems(ctx context.Context, q repository.Querier, invoiceID uuid.UUID, items []domain.LineItem, totals domain.Totals) ([]domain.InvoiceItem, error) {
	created := make([]domain.InvoiceItem, 0, len(items))
	for i, item := range items {
		row, err := q.CreateInvoiceItem(ctx, domain.InvoiceItem{
			InvoiceID:   invoiceID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      totals.Amounts[i],
			Position:    int32(i + 1),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create invoice item %d: %w", i+1, err)
		}
		created = append(created, row)
	}
	return created, nil
}

// UpdateInvoiceStatus moves an invoice along the lifecycle. Moving to the
// current status is a no-op.
func (s *InvoiceService) UpdateInvoiceStatus(ctx context.Context, tc domain.TenantContext, id uuid.UUID, status domain.InvoiceStatus) (*domain.Invoice, error) {
	const op = "invoice.update_status"
	if err := requireWriter(tc, op); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, domain.NewValidationError(op, "status", "status must be one of draft, sent, paid, cancelled")
	}

	invoice, err := s.store.GetInvoice(ctx, tc.TenantID, id)
	if err != nil {
		return nil, storeError(err, op, "Invoice", id.String())
	}
	return s.transition(ctx, op, invoice, status)
}

func (s *InvoiceService) transition(ctx context.Context, op string, invoice domain.Invoice, status domain.InvoiceStatus) (*domain.Invoice, error) {
	if invoice.Status == status {
		return &invoice, nil
	}
	if !invoice.Status.CanTransitionTo(status) {
		return nil, &domain.Error{
			Code:    domain.ESTATE,
			Op:      op,
			Message: domain.ErrInvalidTransition.Message,
			Err:     fmt.Errorf("%s -> %s", invoice.Status, status),
		}
	}

	updated, err := s.store.UpdateInvoiceStatus(ctx, invoice.TenantID, invoice.ID, status)
	if err != nil {
		return nil, storeError(err, op, "Invoice", invoice.ID.String())
	}

	if telemetry.Business != nil {
		telemetry.Business.InvoiceStatusChanged.WithLabelValues(invoice.TenantID.String(), string(status)).Inc()
	}
	publish(ctx, s.publisher, s.logger, events.InvoiceStatusChanged, invoice.TenantID, map[string]interface{}{
		"invoice_id": invoice.ID,
		"from":       invoice.Status,
		"to":         status,
	})

	s.logger.Info("invoice status changed",
		"tenant_id", invoice.TenantID,
		"invoice_id", invoice.ID,
		"from", invoice.Status,
		"to", status,
	)
	return &updated, nil
}

// DeleteInvoice hard-deletes an invoice. Its items cascade.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, tc domain.TenantContext, id uuid.UUID) error {
	const op = "invoice.delete"
	if err := requireWriter(tc, op); err != nil {
		return err
	}

	n, err := s.store.DeleteInvoice(ctx, tc.TenantID, id)
	if err != nil {
		return storeError(err, op, "Invoice", id.String())
	}
	if n == 0 {
		return domain.NotFound(op, "Invoice", id.String())
	}

	s.logger.Info("invoice deleted", "tenant_id", tc.TenantID, "invoice_id", id)
	return nil
}

func (s *InvoiceService) GetInvoice(ctx context.Context, tc domain.TenantContext, id uuid.UUID) (*domain.InvoiceDetail, error) {
	const op = "invoice.get"
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	return s.loadDetail(ctx, op, tc.TenantID, id)
}

func (s *InvoiceService) loadDetail(ctx context.Context, op string, tenantID, id uuid.UUID) (*domain.InvoiceDetail, error) {
	invoice, err := s.store.GetInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, storeError(err, op, "Invoice", id.String())
	}

	items, err := s.store.ListInvoiceItems(ctx, invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list invoice items: %w", op, err)
	}

	detail := &domain.InvoiceDetail{Invoice: invoice, Items: emptyIfNil(items)}
	if customer, err := s.store.GetCustomer(ctx, tenantID, invoice.CustomerID); err == nil {
		detail.Customer = &customer
	}
	return detail, nil
}

func (s *InvoiceService) ListInvoices(ctx context.Context, tc domain.TenantContext, params domain.ListInvoicesParams) []domain.Invoice {
	if tc.Validate() != nil {
		return []domain.Invoice{}
	}
	if params.Status != "" && !params.Status.Valid() {
		s.logger.Warn("ignoring unknown invoice status filter", "status", params.Status)
		params.Status = ""
	}

	page := params.ListParams.Normalize()
	invoices, err := s.store.ListInvoices(ctx, repository.ListInvoicesParams{
		TenantID:   tc.TenantID,
		Status:     params.Status,
		CustomerID: params.CustomerID,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		s.logger.Warn("failed to list invoices", "tenant_id", tc.TenantID, "error", err)
		return []domain.Invoice{}
	}
	return emptyIfNil(invoices)
}

func (s *InvoiceService) GenerateInvoiceNumber(ctx context.Context, tc domain.TenantContext) string {
	settings := loadSettings(ctx, s.store, s.logger, tc.TenantID)
	return s.allocateNumber(ctx, tc.TenantID, settings.InvoicePrefix)
}

// allocateNumber asks the database for the tenant's next number. If that
// fails it falls back to <prefix>-<unix millis>, which the unique constraint
// still guards.
func (s *InvoiceService) allocateNumber(ctx context.Context, tenantID uuid.UUID, prefix string) string {
	number, err := s.store.AllocateInvoiceNumber(ctx, tenantID)
	if err == nil && number != "" {
		return number
	}

	if prefix == "" {
		prefix = domain.DefaultInvoiceSettings(tenantID).InvoicePrefix
	}
	fallback := fmt.Sprintf("%s-%d", prefix, s.now().UnixMilli())
	s.logger.Warn("invoice number allocation failed, using fallback",
		"tenant_id", tenantID,
		"fallback", fallback,
		"error", err,
	)
	return fallback
}

// SendInvoice marks the invoice sent and emails it to the customer. The email
// is best-effort; the status change stands even if delivery fails.
func (s *InvoiceService) SendInvoice(ctx context.Context, tc domain.TenantContext, id uuid.UUID) (*domain.Invoice, error) {
	const op = "invoice.send"
	if err := requireWriter(tc, op); err != nil {
		return nil, err
	}

	detail, err := s.loadDetail(ctx, op, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	if detail.Customer == nil || detail.Customer.Email == "" {
		return nil, withOp(domain.ErrCustomerEmailMissing, op)
	}

	invoice, err := s.transition(ctx, op, detail.Invoice, domain.InvoiceStatusSent)
	if err != nil {
		return nil, err
	}

	s.sendInvoiceEmail(ctx, detail)
	return invoice, nil
}

func (s *InvoiceService) sendInvoiceEmail(ctx context.Context, detail *domain.InvoiceDetail) {
	if s.notifier == nil {
		return
	}

	settings := loadSettings(ctx, s.store, s.logger, detail.TenantID)
	lines := make([]email.InvoiceLine, len(detail.Items))
	for i, item := range detail.Items {
		lines[i] = email.InvoiceLine{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		}
	}

	err := s.notifier.SendInvoice(ctx, email.InvoiceEmail{
		To:            detail.Customer.Email,
		CustomerName:  detail.Customer.Name,
		BusinessName:  settings.BusinessName,
		BusinessEmail: settings.BusinessEmail,
		InvoiceNumber: detail.InvoiceNumber,
		InvoiceDate:   detail.InvoiceDate,
		DueDate:       detail.DueDate,
		Currency:      detail.Currency,
		Items:         lines,
		Subtotal:      detail.Subtotal,
		TaxPercentage: detail.TaxPercentage,
		TaxAmount:     detail.TaxAmount,
		Total:         detail.Total,
		Notes:         detail.Notes,
		PaymentTerms:  settings.PaymentTerms,
		FooterNotes:   settings.FooterNotes,
		PayURL:        payURL(s.baseURL, detail.ID),
	})
	if err != nil {
		s.logger.Error("failed to send invoice email",
			"tenant_id", detail.TenantID,
			"invoice_id", detail.ID,
			"error", err,
		)
	}
}

func payURL(baseURL string, invoiceID uuid.UUID) string {
	if baseURL == "" {
		return ""
	}
	return baseURL + "/invoices/" + invoiceID.String() + "/pay"
}

func (s *InvoiceService) normalizeParams(p domain.InvoiceParams) domain.InvoiceParams {
	if p.InvoiceDate.IsZero() {
		p.InvoiceDate = s.now()
	}
	p.InvoiceDate = domain.DateOnly(p.InvoiceDate)
	if p.DueDate != nil {
		due := domain.DateOnly(*p.DueDate)
		p.DueDate = &due
	}
	p.Notes = strings.TrimSpace(p.Notes)
	p.Items = normalizeLineItems(p.Items)
	return p
}

func validateInvoiceParams(op string, p domain.InvoiceParams) error {
	err := domain.ValidateLineItems(op, p.Items)
	if p.CustomerID == uuid.Nil {
		err = domain.AddFieldError(err, "customer_id", "customer is required")
	}
	if !domain.ValidTaxPercentage(p.TaxPercentage) {
		err = domain.AddFieldError(err, "tax_percentage", "tax percentage must be between 0 and 100")
	}
	if p.DueDate != nil && p.DueDate.Before(p.InvoiceDate) {
		err = domain.AddFieldError(err, "due_date", "due date cannot be before the invoice date")
	}
	if ve, ok := err.(*domain.ValidationError); ok {
		ve.Op = op
	}
	return err
}
