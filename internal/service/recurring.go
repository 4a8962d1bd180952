package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/events"
	"github.com/DodailSolutions/billbook/internal/repository"
	"github.com/DodailSolutions/billbook/internal/telemetry"
	"github.com/google/uuid"
)

type RecurringInvoiceService struct {
	store     repository.Store
	invoices  *InvoiceService
	publisher events.Publisher
	logger    *slog.Logger
}

var _ domain.RecurringInvoiceService = (*RecurringInvoiceService)(nil)

func NewRecurringInvoiceService(store repository.Store, invoices *InvoiceService, publisher events.Publisher, logger *slog.Logger) *RecurringInvoiceService {
	return &RecurringInvoiceService{
		store:     store,
		invoices:  invoices,
		publisher: publisher,
		logger:    logger.With("service", "recurring_invoice"),
	}
}

// CreateRecurringInvoice stores a template and its items. The first invoice
// is due one cadence unit after the start date. A template whose first
// occurrence already falls after its end date is stored inactive.
func (s *RecurringInvoiceService) CreateRecurringInvoice(ctx context.Context, tc domain.TenantContext, params domain.RecurringInvoiceParams) (*domain.RecurringInvoiceDetail, error) {
	const op = "recurring.create"
	if err := requireWriter(tc, op); err != nil {
		return nil, err
	}

	params = normalizeRecurringParams(params)
	if err := validateRecurringParams(op, params); err != nil {
		return nil, err
	}

	if _, err := s.store.GetCustomer(ctx, tc.TenantID, params.CustomerID); err != nil {
		return nil, storeError(err, op, "Customer", params.CustomerID.String())
	}

	next := domain.NextOccurrence(params.StartDate, params.Frequency, 1)

	var detail domain.RecurringInvoiceDetail
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		rec, err := q.CreateRecurringInvoice(ctx, domain.RecurringInvoice{
			TenantID:        tc.TenantID,
			CustomerID:      params.CustomerID,
			Frequency:       params.Frequency,
			StartDate:       params.StartDate,
			EndDate:         params.EndDate,
			NextInvoiceDate: next,
			TaxPercentage:   params.TaxPercentage,
			Notes:           params.Notes,
			IsActive:        domain.WithinRun(next, params.EndDate),
		})
		if err != nil {
			return fmt.Errorf("failed to create recurring invoice: %w", err)
		}

		items, err := insertRecurringItems(ctx, q, rec.ID, params.Items)
		if err != nil {
			return err
		}

		detail = domain.RecurringInvoiceDetail{RecurringInvoice: rec, Items: items}
		return nil
	})
	if err != nil {
		return nil, storeError(err, op, "Recurring invoice", "")
	}

	s.logger.Info("recurring invoice created",
		"tenant_id", tc.TenantID,
		"recurring_invoice_id", detail.ID,
		"frequency", detail.Frequency,
		"next_invoice_date", detail.NextInvoiceDate.Format(time.DateOnly),
	)
	return &detail, nil
}

// UpdateRecurringInvoice replaces the template's fields and items. The
// number of cycles already generated is kept and the next date recomputed
// from it. A paused template stays paused; one that had run past its end
// date resumes when the new end date covers the next occurrence.
func (s *RecurringInvoiceService) UpdateRecurringInvoice(ctx context.Context, tc domain.TenantContext, id uuid.UUID, params domain.RecurringInvoiceParams) (*domain.RecurringInvoiceDetail, error) {
	const op = "recurring.update"
	if err := requireWriter(tc, op); err != nil {
		return nil, err
	}

	params = normalizeRecurringParams(params)
	if err := validateRecurringParams(op, params); err != nil {
		return nil, err
	}

	existing, err := s.store.GetRecurringInvoice(ctx, tc.TenantID, id)
	if err != nil {
		return nil, storeError(err, op, "Recurring invoice", id.String())
	}
	if _, err := s.store.GetCustomer(ctx, tc.TenantID, params.CustomerID); err != nil {
		return nil, storeError(err, op, "Customer", params.CustomerID.String())
	}

	next := domain.NextOccurrence(params.StartDate, params.Frequency, int(existing.CyclesGenerated)+1)
	expired := !domain.WithinRun(existing.NextInvoiceDate, existing.EndDate)
	active := domain.WithinRun(next, params.EndDate) && (existing.IsActive || expired)

	var detail domain.RecurringInvoiceDetail
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		rec, err := q.UpdateRecurringInvoice(ctx, domain.RecurringInvoice{
			ID:              id,
			TenantID:        tc.TenantID,
			CustomerID:      params.CustomerID,
			Frequency:       params.Frequency,
			StartDate:       params.StartDate,
			EndDate:         params.EndDate,
			NextInvoiceDate: next,
			TaxPercentage:   params.TaxPercentage,
			Notes:           params.Notes,
			IsActive:        active,
		})
		if err != nil {
			return err
		}

		if err := q.DeleteRecurringInvoiceItems(ctx, rec.ID); err != nil {
			return fmt.Errorf("failed to delete recurring items: %w", err)
		}

		items, err := insertRecurringItems(ctx, q, rec.ID, params.Items)
		if err != nil {
			return err
		}

		detail = domain.RecurringInvoiceDetail{RecurringInvoice: rec, Items: items}
		return nil
	})
	if err != nil {
		return nil, storeError(err, op, "Recurring invoice", id.String())
	}

	s.logger.Info("recurring invoice updated", "tenant_id", tc.TenantID, "recurring_invoice_id", id)
	return &detail, nil
}

func insertRecurringItems(ctx context.Context, q repository.Querier, recurringID uuid.UUID, items []domain.LineItem) ([]domain.RecurringInvoiceItem, error) {
	created := make([]domain.RecurringInvoiceItem, 0, len(items))
	for i, item := range items {
		row, err := q.CreateRecurringInvoiceItem(ctx, domain.RecurringInvoiceItem{
			RecurringInvoiceID: recurringID,
			Description:        item.Description,
			Quantity:           item.Quantity,
			UnitPrice:          item.UnitPrice,
			Position:           int32(i + 1),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create recurring item %d: %w", i+1, err)
		}
		created = append(created, row)
	}
	return created, nil
}

func (s *RecurringInvoiceService) UpdateRecurringStatus(ctx context.Context, tc domain.TenantContext, id uuid.UUID, isActive bool) (*domain.RecurringInvoice, error) {
	const op = "recurring.update_status"
	if err := requireWriter(tc, op); err != nil {
		return nil, err
	}

	if isActive {
		existing, err := s.store.GetRecurringInvoice(ctx, tc.TenantID, id)
		if err != nil {
			return nil, storeError(err, op, "Recurring invoice", id.String())
		}
		if !domain.WithinRun(existing.NextInvoiceDate, existing.EndDate) {
			return nil, domain.InvalidState(op, "Recurring invoice has passed its end date")
		}
	}

	rec, err := s.store.UpdateRecurringInvoiceActive(ctx, tc.TenantID, id, isActive)
	if err != nil {
		return nil, storeError(err, op, "Recurring invoice", id.String())
	}

	s.logger.Info("recurring invoice status changed",
		"tenant_id", tc.TenantID,
		"recurring_invoice_id", id,
		"is_active", isActive,
	)
	return &rec, nil
}

// DeleteRecurringInvoice removes the template. Invoices already generated
// from it are kept and lose the link.
func (s *RecurringInvoiceService) DeleteRecurringInvoice(ctx context.Context, tc domain.TenantContext, id uuid.UUID) error {
	const op = "recurring.delete"
	if err := requireWriter(tc, op); err != nil {
		return err
	}

	n, err := s.store.DeleteRecurringInvoice(ctx, tc.TenantID, id)
	if err != nil {
		return storeError(err, op, "Recurring invoice", id.String())
	}
	if n == 0 {
		return domain.NotFound(op, "Recurring invoice", id.String())
	}

	s.logger.Info("recurring invoice deleted", "tenant_id", tc.TenantID, "recurring_invoice_id", id)
	return nil
}

func (s *RecurringInvoiceService) GetRecurringInvoice(ctx context.Context, tc domain.TenantContext, id uuid.UUID) (*domain.RecurringInvoiceDetail, error) {
	const op = "recurring.get"
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	rec, err := s.store.GetRecurringInvoice(ctx, tc.TenantID, id)
	if err != nil {
		return nil, storeError(err, op, "Recurring invoice", id.String())
	}

	items, err := s.store.ListRecurringInvoiceItems(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list recurring items: %w", op, err)
	}
	return &domain.RecurringInvoiceDetail{RecurringInvoice: rec, Items: emptyIfNil(items)}, nil
}

func (s *RecurringInvoiceService) ListRecurringInvoices(ctx context.Context, tc domain.TenantContext, params domain.ListParams) []domain.RecurringInvoice {
	if tc.Validate() != nil {
		return []domain.RecurringInvoice{}
	}

	params = params.Normalize()
	recs, err := s.store.ListRecurringInvoices(ctx, tc.TenantID, params.Limit, params.Offset)
	if err != nil {
		s.logger.Warn("failed to list recurring invoices", "tenant_id", tc.TenantID, "error", err)
		return []domain.RecurringInvoice{}
	}
	return emptyIfNil(recs)
}

// GenerateInvoiceFromRecurring materializes the template's next cycle. The
// database procedure locks the template, so concurrent calls each produce
// a distinct cycle.
func (s *RecurringInvoiceService) GenerateInvoiceFromRecurring(ctx context.Context, tc domain.TenantContext, id uuid.UUID) (*domain.InvoiceDetail, error) {
	const op = "recurring.generate"
	if err := requireWriter(tc, op); err != nil {
		return nil, err
	}

	rec, err := s.store.GetRecurringInvoice(ctx, tc.TenantID, id)
	if err != nil {
		return nil, storeError(err, op, "Recurring invoice", id.String())
	}
	if !rec.IsActive {
		return nil, withOp(domain.ErrRecurringInactive, op)
	}

	invoiceID, err := s.materialize(ctx, op, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	return s.invoices.loadDetail(ctx, op, tc.TenantID, invoiceID)
}

func (s *RecurringInvoiceService) materialize(ctx context.Context, op string, tenantID, id uuid.UUID) (uuid.UUID, error) {
	invoiceID, err := s.store.MaterializeRecurringInvoice(ctx, tenantID, id)
	if err != nil {
		if telemetry.Business != nil {
			telemetry.Business.RecurringMaterialized.WithLabelValues(tenantID.String(), "failed").Inc()
		}
		switch {
		case repository.IsRecurringNotFound(err):
			return uuid.Nil, domain.NotFound(op, "Recurring invoice", id.String())
		case repository.IsRecurringInactive(err):
			return uuid.Nil, wrapOp(domain.ErrRecurringInactive, op, err)
		case repository.IsUniqueViolation(err):
			return uuid.Nil, wrapOp(ErrAlreadyGenerated, op, err)
		}
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if telemetry.Business != nil {
		tenant := tenantID.String()
		telemetry.Business.RecurringMaterialized.WithLabelValues(tenant, "generated").Inc()
		telemetry.Business.InvoicesCreated.WithLabelValues(tenant, "recurring").Inc()
	}
	publish(ctx, s.publisher, s.logger, events.RecurringMaterialized, tenantID, map[string]interface{}{
		"recurring_invoice_id": id,
		"invoice_id":           invoiceID,
	})

	s.logger.Info("invoice generated from recurring template",
		"tenant_id", tenantID,
		"recurring_invoice_id", id,
		"invoice_id", invoiceID,
	)
	return invoiceID, nil
}

// MaterializeDue generates every active template due on or before asOf.
// A failing template is counted and logged; the rest of the batch continues.
func (s *RecurringInvoiceService) MaterializeDue(ctx context.Context, asOf time.Time, limit int32) (domain.MaterializeResult, error) {
	const op = "recurring.materialize_due"
	var result domain.MaterializeResult

	due, err := s.store.ListDueRecurringInvoices(ctx, domain.DateOnly(asOf), limit)
	if err != nil {
		return result, fmt.Errorf("%s: failed to list due templates: %w", op, err)
	}

	for _, rec := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		itemCtx, cancel := context.WithTimeout(ctx, sweepItemTimeout)
		_, err := s.materialize(itemCtx, op, rec.TenantID, rec.ID)
		cancel()

		if err != nil {
			result.Failed++
			s.logger.Error("failed to materialize recurring invoice",
				"tenant_id", rec.TenantID,
				"recurring_invoice_id", rec.ID,
				"error", err,
			)
			telemetry.CaptureErrorWithTenant(err, rec.TenantID.String(), map[string]interface{}{
				"recurring_invoice_id": rec.ID.String(),
			})
			continue
		}
		result.Generated++
	}

	return result, nil
}

func normalizeRecurringParams(p domain.RecurringInvoiceParams) domain.RecurringInvoiceParams {
	p.Frequency = domain.Frequency(strings.ToLower(strings.TrimSpace(string(p.Frequency))))
	if !p.StartDate.IsZero() {
		p.StartDate = domain.DateOnly(p.StartDate)
	}
	if p.EndDate != nil {
		end := domain.DateOnly(*p.EndDate)
		p.EndDate = &end
	}
	p.Notes = strings.TrimSpace(p.Notes)
	p.Items = normalizeLineItems(p.Items)
	return p
}

func validateRecurringParams(op string, p domain.RecurringInvoiceParams) error {
	err := domain.ValidateLineItems(op, p.Items)
	if p.CustomerID == uuid.Nil {
		err = domain.AddFieldError(err, "customer_id", "customer is required")
	}
	if !p.Frequency.Valid() {
		err = domain.AddFieldError(err, "frequency", "frequency must be monthly or yearly")
	}
	if p.StartDate.IsZero() {
		err = domain.AddFieldError(err, "start_date", "start date is required")
	} else if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		err = domain.AddFieldError(err, "end_date", "end date cannot be before the start date")
	}
	if !domain.ValidTaxPercentage(p.TaxPercentage) {
		err = domain.AddFieldError(err, "tax_percentage", "tax percentage must be between 0 and 100")
	}
	if ve, ok := err.(*domain.ValidationError); ok {
		ve.Op = op
	}
	return err
}
