package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory repository.Store. ExecTx snapshots the data and
// restores it when the transaction function fails, so tests can observe
// rollback the way Postgres would behave.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	d    *memData

	calls    map[string]int
	failures map[string]failure
	allocErr error
}

type failure struct {
	after int
	err   error
}

type memData struct {
	customers      map[uuid.UUID]domain.Customer
	invoices       map[uuid.UUID]domain.Invoice
	items          map[uuid.UUID][]domain.InvoiceItem
	cycles         map[string]bool
	recurring      map[uuid.UUID]domain.RecurringInvoice
	recurringItems map[uuid.UUID][]domain.RecurringInvoiceItem
	payments       map[uuid.UUID]domain.Payment
	refunds        map[uuid.UUID]domain.Refund
	reminders      map[uuid.UUID]domain.Reminder
	team           map[uuid.UUID]domain.TeamMember
	settings       map[uuid.UUID]domain.InvoiceSettings
	subs           map[uuid.UUID]domain.Subscription
	sequences      map[uuid.UUID]int
}

func newMemStore() *memStore {
	return &memStore{
		d: &memData{
			customers:      map[uuid.UUID]domain.Customer{},
			invoices:       map[uuid.UUID]domain.Invoice{},
			items:          map[uuid.UUID][]domain.InvoiceItem{},
			cycles:         map[string]bool{},
			recurring:      map[uuid.UUID]domain.RecurringInvoice{},
			recurringItems: map[uuid.UUID][]domain.RecurringInvoiceItem{},
			payments:       map[uuid.UUID]domain.Payment{},
			refunds:        map[uuid.UUID]domain.Refund{},
			reminders:      map[uuid.UUID]domain.Reminder{},
			team:           map[uuid.UUID]domain.TeamMember{},
			settings:       map[uuid.UUID]domain.InvoiceSettings{},
			subs:           map[uuid.UUID]domain.Subscription{},
			sequences:      map[uuid.UUID]int{},
		},
		calls:    map[string]int{},
		failures: map[string]failure{},
	}
}

var _ repository.Store = (*memStore)(nil)

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copySliceMap[K comparable, V any](m map[K][]V) map[K][]V {
	out := make(map[K][]V, len(m))
	for k, v := range m {
		out[k] = append([]V(nil), v...)
	}
	return out
}

func (d *memData) clone() *memData {
	return &memData{
		customers:      copyMap(d.customers),
		invoices:       copyMap(d.invoices),
		items:          copySliceMap(d.items),
		cycles:         copyMap(d.cycles),
		recurring:      copyMap(d.recurring),
		recurringItems: copySliceMap(d.recurringItems),
		payments:       copyMap(d.payments),
		refunds:        copyMap(d.refunds),
		reminders:      copyMap(d.reminders),
		team:           copyMap(d.team),
		settings:       copyMap(d.settings),
		subs:           copyMap(d.subs),
		sequences:      copyMap(d.sequences),
	}
}

// failOn makes every call to method fail with err.
func (s *memStore) failOn(method string, err error) {
	s.failAfter(method, 0, err)
}

// failAfter lets n calls to method succeed, then fails the rest with err.
func (s *memStore) failAfter(method string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = failure{after: n, err: err}
}

func (s *memStore) clearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]failure{}
}

func (s *memStore) callCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// enter records a call and returns the injected failure, if any. The caller
// must hold s.mu.
func (s *memStore) enter(method string) error {
	s.calls[method]++
	f, ok := s.failures[method]
	if ok && s.calls[method] > f.after {
		return f.err
	}
	return nil
}

func (s *memStore) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.d.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.d = snapshot
		s.mu.Unlock()
		return fmt.Errorf("transaction: %w", err)
	}
	return nil
}

func pgError(code string) error {
	return &pgconn.PgError{Code: code, Message: "simulated " + code}
}

func paged[T any](items []T, limit, offset int32) []T {
	if int(offset) >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items
}

// Customers

func (s *memStore) CreateCustomer(ctx context.Context, arg domain.Customer) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateCustomer"); err != nil {
		return domain.Customer{}, err
	}
	arg.ID = uuid.New()
	arg.CreatedAt = time.Now()
	arg.UpdatedAt = arg.CreatedAt
	s.d.customers[arg.ID] = arg
	return arg, nil
}

func (s *memStore) UpdateCustomer(ctx context.Context, arg domain.Customer) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateCustomer"); err != nil {
		return domain.Customer{}, err
	}
	c, ok := s.d.customers[arg.ID]
	if !ok || c.TenantID != arg.TenantID {
		return domain.Customer{}, pgx.ErrNoRows
	}
	arg.CreatedAt = c.CreatedAt
	arg.UpdatedAt = time.Now()
	s.d.customers[arg.ID] = arg
	return arg, nil
}

func (s *memStore) DeleteCustomer(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteCustomer"); err != nil {
		return 0, err
	}
	c, ok := s.d.customers[id]
	if !ok || c.TenantID != tenantID {
		return 0, nil
	}
	for _, inv := range s.d.invoices {
		if inv.CustomerID == id {
			return 0, pgError("23503")
		}
	}
	for _, rec := range s.d.recurring {
		if rec.CustomerID == id {
			return 0, pgError("23503")
		}
	}
	delete(s.d.customers, id)
	return 1, nil
}

func (s *memStore) GetCustomer(ctx context.Context, tenantID, id uuid.UUID) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetCustomer"); err != nil {
		return domain.Customer{}, err
	}
	c, ok := s.d.customers[id]
	if !ok || c.TenantID != tenantID {
		return domain.Customer{}, pgx.ErrNoRows
	}
	return c, nil
}

func (s *memStore) ListCustomers(ctx context.Context, tenantID uuid.UUID, limit, offset int32) ([]domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListCustomers"); err != nil {
		return nil, err
	}
	var out []domain.Customer
	for _, c := range s.d.customers {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paged(out, limit, offset), nil
}

// Invoices

func (s *memStore) AllocateInvoiceNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("AllocateInvoiceNumber"); err != nil {
		return "", err
	}
	prefix := domain.DefaultInvoiceSettings(tenantID).InvoicePrefix
	if st, ok := s.d.settings[tenantID]; ok {
		prefix = st.InvoicePrefix
	}
	s.d.sequences[tenantID]++
	return fmt.Sprintf("%s-%05d", prefix, s.d.sequences[tenantID]), nil
}

func (s *memStore) createInvoiceLocked(arg domain.Invoice) (domain.Invoice, error) {
	for _, inv := range s.d.invoices {
		if inv.TenantID == arg.TenantID && inv.InvoiceNumber == arg.InvoiceNumber {
			return domain.Invoice{}, pgError("23505")
		}
	}
	arg.ID = uuid.New()
	arg.CreatedAt = time.Now()
	arg.UpdatedAt = arg.CreatedAt
	s.d.invoices[arg.ID] = arg
	return arg, nil
}

func (s *memStore) CreateInvoice(ctx context.Context, arg domain.Invoice) (domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateInvoice"); err != nil {
		return domain.Invoice{}, err
	}
	return s.createInvoiceLocked(arg)
}

func (s *memStore) CreateInvoiceItem(ctx context.Context, arg domain.InvoiceItem) (domain.InvoiceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateInvoiceItem"); err != nil {
		return domain.InvoiceItem{}, err
	}
	if _, ok := s.d.invoices[arg.InvoiceID]; !ok {
		return domain.InvoiceItem{}, pgError("23503")
	}
	arg.ID = uuid.New()
	s.d.items[arg.InvoiceID] = append(s.d.items[arg.InvoiceID], arg)
	return arg, nil
}

func (s *memStore) UpdateInvoice(ctx context.Context, arg domain.Invoice) (domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateInvoice"); err != nil {
		return domain.Invoice{}, err
	}
	inv, ok := s.d.invoices[arg.ID]
	if !ok || inv.TenantID != arg.TenantID {
		return domain.Invoice{}, pgx.ErrNoRows
	}
	inv.CustomerID = arg.CustomerID
	inv.InvoiceDate = arg.InvoiceDate
	inv.DueDate = arg.DueDate
	inv.Subtotal = arg.Subtotal
	inv.TaxPercentage = arg.TaxPercentage
	inv.TaxAmount = arg.TaxAmount
	inv.Total = arg.Total
	inv.Notes = arg.Notes
	inv.UpdatedAt = time.Now()
	s.d.invoices[arg.ID] = inv
	return inv, nil
}

func (s *memStore) UpdateInvoiceStatus(ctx context.Context, tenantID, id uuid.UUID, status domain.InvoiceStatus) (domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateInvoiceStatus"); err != nil {
		return domain.Invoice{}, err
	}
	inv, ok := s.d.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return domain.Invoice{}, pgx.ErrNoRows
	}
	inv.Status = status
	inv.UpdatedAt = time.Now()
	s.d.invoices[id] = inv
	return inv, nil
}

func (s *memStore) DeleteInvoiceItems(ctx context.Context, invoiceID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteInvoiceItems"); err != nil {
		return err
	}
	delete(s.d.items, invoiceID)
	return nil
}

func (s *memStore) DeleteInvoice(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteInvoice"); err != nil {
		return 0, err
	}
	inv, ok := s.d.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return 0, nil
	}
	delete(s.d.invoices, id)
	delete(s.d.items, id)
	return 1, nil
}

func (s *memStore) GetInvoice(ctx context.Context, tenantID, id uuid.UUID) (domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetInvoice"); err != nil {
		return domain.Invoice{}, err
	}
	inv, ok := s.d.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return domain.Invoice{}, pgx.ErrNoRows
	}
	return inv, nil
}

func (s *memStore) ListInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]domain.InvoiceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListInvoiceItems"); err != nil {
		return nil, err
	}
	return append([]domain.InvoiceItem(nil), s.d.items[invoiceID]...), nil
}

func (s *memStore) ListInvoices(ctx context.Context, arg repository.ListInvoicesParams) ([]domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListInvoices"); err != nil {
		return nil, err
	}
	var out []domain.Invoice
	for _, inv := range s.d.invoices {
		if inv.TenantID != arg.TenantID {
			continue
		}
		if arg.Status != "" && inv.Status != arg.Status {
			continue
		}
		if arg.CustomerID != nil && inv.CustomerID != *arg.CustomerID {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceNumber > out[j].InvoiceNumber })
	return paged(out, arg.Limit, arg.Offset), nil
}

func (s *memStore) ListSentInvoicesDueOn(ctx context.Context, dueDate time.Time, limit int32) ([]domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListSentInvoicesDueOn"); err != nil {
		return nil, err
	}
	var out []domain.Invoice
	for _, inv := range s.d.invoices {
		if inv.Status == domain.InvoiceStatusSent && inv.DueDate != nil && inv.DueDate.Equal(dueDate) {
			out = append(out, inv)
		}
	}
	return paged(out, limit, 0), nil
}

// Recurring invoices

func (s *memStore) CreateRecurringInvoice(ctx context.Context, arg domain.RecurringInvoice) (domain.RecurringInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateRecurringInvoice"); err != nil {
		return domain.RecurringInvoice{}, err
	}
	arg.ID = uuid.New()
	arg.CreatedAt = time.Now()
	arg.UpdatedAt = arg.CreatedAt
	s.d.recurring[arg.ID] = arg
	return arg, nil
}

func (s *memStore) CreateRecurringInvoiceItem(ctx context.Context, arg domain.RecurringInvoiceItem) (domain.RecurringInvoiceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateRecurringInvoiceItem"); err != nil {
		return domain.RecurringInvoiceItem{}, err
	}
	arg.ID = uuid.New()
	s.d.recurringItems[arg.RecurringInvoiceID] = append(s.d.recurringItems[arg.RecurringInvoiceID], arg)
	return arg, nil
}

func (s *memStore) UpdateRecurringInvoice(ctx context.Context, arg domain.RecurringInvoice) (domain.RecurringInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateRecurringInvoice"); err != nil {
		return domain.RecurringInvoice{}, err
	}
	rec, ok := s.d.recurring[arg.ID]
	if !ok || rec.TenantID != arg.TenantID {
		return domain.RecurringInvoice{}, pgx.ErrNoRows
	}
	rec.CustomerID = arg.CustomerID
	rec.Frequency = arg.Frequency
	rec.StartDate = arg.StartDate
	rec.EndDate = arg.EndDate
	rec.NextInvoiceDate = arg.NextInvoiceDate
	rec.TaxPercentage = arg.TaxPercentage
	rec.Notes = arg.Notes
	rec.IsActive = arg.IsActive
	rec.UpdatedAt = time.Now()
	s.d.recurring[arg.ID] = rec
	return rec, nil
}

func (s *memStore) UpdateRecurringInvoiceActive(ctx context.Context, tenantID, id uuid.UUID, isActive bool) (domain.RecurringInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateRecurringInvoiceActive"); err != nil {
		return domain.RecurringInvoice{}, err
	}
	rec, ok := s.d.recurring[id]
	if !ok || rec.TenantID != tenantID {
		return domain.RecurringInvoice{}, pgx.ErrNoRows
	}
	rec.IsActive = isActive
	s.d.recurring[id] = rec
	return rec, nil
}

func (s *memStore) DeleteRecurringInvoiceItems(ctx context.Context, recurringInvoiceID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteRecurringInvoiceItems"); err != nil {
		return err
	}
	delete(s.d.recurringItems, recurringInvoiceID)
	return nil
}

func (s *memStore) DeleteRecurringInvoice(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteRecurringInvoice"); err != nil {
		return 0, err
	}
	rec, ok := s.d.recurring[id]
	if !ok || rec.TenantID != tenantID {
		return 0, nil
	}
	delete(s.d.recurring, id)
	delete(s.d.recurringItems, id)
	for invID, inv := range s.d.invoices {
		if inv.RecurringInvoiceID != nil && *inv.RecurringInvoiceID == id {
			inv.RecurringInvoiceID = nil
			s.d.invoices[invID] = inv
		}
	}
	return 1, nil
}

func (s *memStore) GetRecurringInvoice(ctx context.Context, tenantID, id uuid.UUID) (domain.RecurringInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetRecurringInvoice"); err != nil {
		return domain.RecurringInvoice{}, err
	}
	rec, ok := s.d.recurring[id]
	if !ok || rec.TenantID != tenantID {
		return domain.RecurringInvoice{}, pgx.ErrNoRows
	}
	return rec, nil
}

func (s *memStore) ListRecurringInvoiceItems(ctx context.Context, recurringInvoiceID uuid.UUID) ([]domain.RecurringInvoiceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListRecurringInvoiceItems"); err != nil {
		return nil, err
	}
	return append([]domain.RecurringInvoiceItem(nil), s.d.recurringItems[recurringInvoiceID]...), nil
}

func (s *memStore) ListRecurringInvoices(ctx context.Context, tenantID uuid.UUID, limit, offset int32) ([]domain.RecurringInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListRecurringInvoices"); err != nil {
		return nil, err
	}
	var out []domain.RecurringInvoice
	for _, rec := range s.d.recurring {
		if rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	return paged(out, limit, offset), nil
}

func (s *memStore) ListDueRecurringInvoices(ctx context.Context, asOf time.Time, limit int32) ([]domain.RecurringInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListDueRecurringInvoices"); err != nil {
		return nil, err
	}
	var out []domain.RecurringInvoice
	for _, rec := range s.d.recurring {
		if rec.IsActive && !rec.NextInvoiceDate.After(asOf) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextInvoiceDate.Before(out[j].NextInvoiceDate) })
	return paged(out, limit, 0), nil
}

// MaterializeRecurringInvoice mirrors materialize_recurring_invoice: it
// snapshots the template into a draft invoice dated at the cycle and
// advances the schedule.
func (s *memStore) MaterializeRecurringInvoice(ctx context.Context, tenantID, id uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("MaterializeRecurringInvoice"); err != nil {
		return uuid.Nil, err
	}

	rec, ok := s.d.recurring[id]
	if !ok || rec.TenantID != tenantID {
		return uuid.Nil, pgError("BB404")
	}
	if !rec.IsActive || !domain.WithinRun(rec.NextInvoiceDate, rec.EndDate) {
		return uuid.Nil, pgError("BB409")
	}

	cycleKey := id.String() + "/" + rec.NextInvoiceDate.Format(time.DateOnly)
	if s.d.cycles[cycleKey] {
		return uuid.Nil, pgError("23505")
	}

	templateItems := s.d.recurringItems[id]
	lines := make([]domain.LineItem, len(templateItems))
	for i, item := range templateItems {
		lines[i] = domain.LineItem{Description: item.Description, Quantity: item.Quantity, UnitPrice: item.UnitPrice}
	}
	totals := domain.CalculateTotals(lines, rec.TaxPercentage)

	settings := domain.DefaultInvoiceSettings(tenantID)
	if st, ok := s.d.settings[tenantID]; ok {
		settings = st
	}
	s.d.sequences[tenantID]++
	due := rec.NextInvoiceDate.AddDate(0, 0, int(settings.DefaultDueDays))

	recID := rec.ID
	inv, err := s.createInvoiceLocked(domain.Invoice{
		TenantID:           tenantID,
		CustomerID:         rec.CustomerID,
		RecurringInvoiceID: &recID,
		InvoiceNumber:      fmt.Sprintf("%s-%05d", settings.InvoicePrefix, s.d.sequences[tenantID]),
		InvoiceDate:        rec.NextInvoiceDate,
		DueDate:            &due,
		Subtotal:           totals.Subtotal,
		TaxPercentage:      rec.TaxPercentage,
		TaxAmount:          totals.TaxAmount,
		Total:              totals.Total,
		Currency:           domain.DefaultCurrency,
		Notes:              rec.Notes,
		Status:             domain.InvoiceStatusDraft,
	})
	if err != nil {
		return uuid.Nil, err
	}
	for i, item := range templateItems {
		s.d.items[inv.ID] = append(s.d.items[inv.ID], domain.InvoiceItem{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      totals.Amounts[i],
			Position:    item.Position,
		})
	}
	s.d.cycles[cycleKey] = true

	rec.CyclesGenerated++
	rec.NextInvoiceDate = domain.NextOccurrence(rec.StartDate, rec.Frequency, int(rec.CyclesGenerated)+1)
	rec.IsActive = domain.WithinRun(rec.NextInvoiceDate, rec.EndDate)
	s.d.recurring[id] = rec
	return inv.ID, nil
}

// Payments

func (s *memStore) CreatePayment(ctx context.Context, arg domain.Payment) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreatePayment"); err != nil {
		return domain.Payment{}, err
	}
	for _, p := range s.d.payments {
		if p.GatewayOrderID == arg.GatewayOrderID {
			return domain.Payment{}, pgError("23505")
		}
	}
	arg.ID = uuid.New()
	arg.CreatedAt = time.Now()
	arg.UpdatedAt = arg.CreatedAt
	s.d.payments[arg.ID] = arg
	return arg, nil
}

func (s *memStore) GetPayment(ctx context.Context, tenantID, id uuid.UUID) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetPayment"); err != nil {
		return domain.Payment{}, err
	}
	p, ok := s.d.payments[id]
	if !ok || p.TenantID != tenantID {
		return domain.Payment{}, pgx.ErrNoRows
	}
	return p, nil
}

func (s *memStore) GetPaymentByOrderID(ctx context.Context, tenantID uuid.UUID, gatewayOrderID string) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetPaymentByOrderID"); err != nil {
		return domain.Payment{}, err
	}
	for _, p := range s.d.payments {
		if p.TenantID == tenantID && p.GatewayOrderID == gatewayOrderID {
			return p, nil
		}
	}
	return domain.Payment{}, pgx.ErrNoRows
}

func (s *memStore) GetPaymentByGatewayOrder(ctx context.Context, gatewayOrderID string) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetPaymentByGatewayOrder"); err != nil {
		return domain.Payment{}, err
	}
	for _, p := range s.d.payments {
		if p.GatewayOrderID == gatewayOrderID {
			return p, nil
		}
	}
	return domain.Payment{}, pgx.ErrNoRows
}

func (s *memStore) CompletePayment(ctx context.Context, arg repository.CompletePaymentParams) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CompletePayment"); err != nil {
		return domain.Payment{}, err
	}
	p, ok := s.d.payments[arg.ID]
	if !ok || p.Status != domain.PaymentStatusPending {
		return domain.Payment{}, pgx.ErrNoRows
	}
	p.Status = domain.PaymentStatusCompleted
	p.GatewayPaymentID = arg.GatewayPaymentID
	p.GatewaySignature = arg.GatewaySignature
	p.Method = arg.Method
	if len(arg.Metadata) > 0 {
		p.Metadata = arg.Metadata
	}
	p.UpdatedAt = time.Now()
	s.d.payments[arg.ID] = p
	return p, nil
}

func (s *memStore) TransitionPayment(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("TransitionPayment"); err != nil {
		return domain.Payment{}, err
	}
	p, ok := s.d.payments[id]
	if !ok || p.Status != from {
		return domain.Payment{}, pgx.ErrNoRows
	}
	p.Status = to
	p.UpdatedAt = time.Now()
	s.d.payments[id] = p
	return p, nil
}

func (s *memStore) ListPayments(ctx context.Context, tenantID uuid.UUID, limit, offset int32) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListPayments"); err != nil {
		return nil, err
	}
	var out []domain.Payment
	for _, p := range s.d.payments {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return paged(out, limit, offset), nil
}

// Refunds

func (s *memStore) CreateRefund(ctx context.Context, arg domain.Refund) (domain.Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateRefund"); err != nil {
		return domain.Refund{}, err
	}
	for _, r := range s.d.refunds {
		if r.PaymentID == arg.PaymentID && (r.Status == domain.RefundStatusPending || r.Status == domain.RefundStatusProcessing) {
			return domain.Refund{}, pgError("23505")
		}
	}
	arg.ID = uuid.New()
	arg.CreatedAt = time.Now()
	arg.UpdatedAt = arg.CreatedAt
	s.d.refunds[arg.ID] = arg
	return arg, nil
}

func (s *memStore) GetRefund(ctx context.Context, tenantID, id uuid.UUID) (domain.Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetRefund"); err != nil {
		return domain.Refund{}, err
	}
	r, ok := s.d.refunds[id]
	if !ok || r.TenantID != tenantID {
		return domain.Refund{}, pgx.ErrNoRows
	}
	return r, nil
}

func (s *memStore) GetRefundAnyTenant(ctx context.Context, id uuid.UUID) (domain.Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetRefundAnyTenant"); err != nil {
		return domain.Refund{}, err
	}
	r, ok := s.d.refunds[id]
	if !ok {
		return domain.Refund{}, pgx.ErrNoRows
	}
	return r, nil
}

func (s *memStore) HasActiveRefund(ctx context.Context, paymentID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("HasActiveRefund"); err != nil {
		return false, err
	}
	for _, r := range s.d.refunds {
		if r.PaymentID == paymentID && (r.Status == domain.RefundStatusPending || r.Status == domain.RefundStatusProcessing) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) TransitionRefund(ctx context.Context, arg repository.TransitionRefundParams) (domain.Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("TransitionRefund"); err != nil {
		return domain.Refund{}, err
	}
	r, ok := s.d.refunds[arg.ID]
	if !ok {
		return domain.Refund{}, pgx.ErrNoRows
	}
	allowed := false
	for _, from := range arg.From {
		if r.Status == from {
			allowed = true
		}
	}
	if !allowed {
		return domain.Refund{}, pgx.ErrNoRows
	}
	r.Status = arg.To
	if arg.GatewayRefundID != "" {
		r.GatewayRefundID = arg.GatewayRefundID
	}
	if arg.Notes != "" {
		r.Notes = arg.Notes
	}
	if arg.ProcessedBy != nil {
		r.ProcessedBy = arg.ProcessedBy
	}
	if arg.ProcessedAt != nil {
		r.ProcessedAt = arg.ProcessedAt
	}
	r.UpdatedAt = time.Now()
	s.d.refunds[arg.ID] = r
	return r, nil
}

func (s *memStore) ListRefunds(ctx context.Context, tenantID uuid.UUID, limit, offset int32) ([]domain.Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListRefunds"); err != nil {
		return nil, err
	}
	var out []domain.Refund
	for _, r := range s.d.refunds {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return paged(out, limit, offset), nil
}

func (s *memStore) ListRefundsByStatus(ctx context.Context, status domain.RefundStatus, limit, offset int32) ([]domain.Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListRefundsByStatus"); err != nil {
		return nil, err
	}
	var out []domain.Refund
	for _, r := range s.d.refunds {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return paged(out, limit, offset), nil
}

// Reminders

func (s *memStore) CreateReminder(ctx context.Context, arg domain.Reminder) (domain.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateReminder"); err != nil {
		return domain.Reminder{}, err
	}
	arg.ID = uuid.New()
	arg.CreatedAt = time.Now()
	s.d.reminders[arg.ID] = arg
	return arg, nil
}

func (s *memStore) CreateInvoiceReminderIfAbsent(ctx context.Context, arg domain.Reminder) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateInvoiceReminderIfAbsent"); err != nil {
		return false, err
	}
	for _, r := range s.d.reminders {
		if r.InvoiceID != nil && arg.InvoiceID != nil && *r.InvoiceID == *arg.InvoiceID &&
			r.ReminderType == arg.ReminderType && r.ReminderDate.Equal(arg.ReminderDate) {
			return false, nil
		}
	}
	arg.ID = uuid.New()
	arg.CreatedAt = time.Now()
	s.d.reminders[arg.ID] = arg
	return true, nil
}

func (s *memStore) GetReminder(ctx context.Context, tenantID, id uuid.UUID) (domain.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetReminder"); err != nil {
		return domain.Reminder{}, err
	}
	r, ok := s.d.reminders[id]
	if !ok || r.TenantID != tenantID {
		return domain.Reminder{}, pgx.ErrNoRows
	}
	return r, nil
}

func (s *memStore) MarkReminderSent(ctx context.Context, tenantID, id uuid.UUID, sentAt time.Time) (domain.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("MarkReminderSent"); err != nil {
		return domain.Reminder{}, err
	}
	r, ok := s.d.reminders[id]
	if !ok || r.TenantID != tenantID || r.IsSent {
		return domain.Reminder{}, pgx.ErrNoRows
	}
	r.IsSent = true
	r.SentAt = &sentAt
	s.d.reminders[id] = r
	return r, nil
}

func (s *memStore) DeleteReminder(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteReminder"); err != nil {
		return 0, err
	}
	r, ok := s.d.reminders[id]
	if !ok || r.TenantID != tenantID {
		return 0, nil
	}
	delete(s.d.reminders, id)
	return 1, nil
}

func (s *memStore) ListReminders(ctx context.Context, tenantID uuid.UUID, pendingOnly bool, limit, offset int32) ([]domain.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListReminders"); err != nil {
		return nil, err
	}
	var out []domain.Reminder
	for _, r := range s.d.reminders {
		if r.TenantID == tenantID && (!pendingOnly || !r.IsSent) {
			out = append(out, r)
		}
	}
	return paged(out, limit, offset), nil
}

func (s *memStore) ListDueReminders(ctx context.Context, asOf time.Time, limit int32) ([]domain.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListDueReminders"); err != nil {
		return nil, err
	}
	var out []domain.Reminder
	for _, r := range s.d.reminders {
		if !r.IsSent && !r.ReminderDate.After(asOf) {
			out = append(out, r)
		}
	}
	return paged(out, limit, 0), nil
}

// Team

func (s *memStore) CreateTeamMember(ctx context.Context, arg domain.TeamMember) (domain.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateTeamMember"); err != nil {
		return domain.TeamMember{}, err
	}
	arg.Email = strings.ToLower(arg.Email)
	for _, m := range s.d.team {
		if m.TenantID == arg.TenantID && m.Email == arg.Email {
			return domain.TeamMember{}, pgError("23505")
		}
	}
	arg.ID = uuid.New()
	arg.InvitedAt = time.Now()
	s.d.team[arg.ID] = arg
	return arg, nil
}

func (s *memStore) GetTeamMember(ctx context.Context, tenantID, id uuid.UUID) (domain.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetTeamMember"); err != nil {
		return domain.TeamMember{}, err
	}
	m, ok := s.d.team[id]
	if !ok || m.TenantID != tenantID {
		return domain.TeamMember{}, pgx.ErrNoRows
	}
	return m, nil
}

func (s *memStore) GetTeamMemberByEmail(ctx context.Context, tenantID uuid.UUID, email string) (domain.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetTeamMemberByEmail"); err != nil {
		return domain.TeamMember{}, err
	}
	for _, m := range s.d.team {
		if m.TenantID == tenantID && m.Email == strings.ToLower(email) {
			return m, nil
		}
	}
	return domain.TeamMember{}, pgx.ErrNoRows
}

func (s *memStore) CountTeamSeats(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CountTeamSeats"); err != nil {
		return 0, err
	}
	var n int64
	for _, m := range s.d.team {
		if m.TenantID == tenantID && (m.Status == domain.TeamMemberPending || m.Status == domain.TeamMemberActive) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) updateMember(method string, tenantID, id uuid.UUID, fn func(*domain.TeamMember) bool) (domain.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(method); err != nil {
		return domain.TeamMember{}, err
	}
	m, ok := s.d.team[id]
	if !ok || m.TenantID != tenantID || !fn(&m) {
		return domain.TeamMember{}, pgx.ErrNoRows
	}
	s.d.team[id] = m
	return m, nil
}

func (s *memStore) UpdateTeamMemberRole(ctx context.Context, tenantID, id uuid.UUID, role domain.Role) (domain.TeamMember, error) {
	return s.updateMember("UpdateTeamMemberRole", tenantID, id, func(m *domain.TeamMember) bool {
		m.Role = role
		return true
	})
}

func (s *memStore) UpdateTeamMemberStatus(ctx context.Context, tenantID, id uuid.UUID, status domain.TeamMemberStatus) (domain.TeamMember, error) {
	return s.updateMember("UpdateTeamMemberStatus", tenantID, id, func(m *domain.TeamMember) bool {
		m.Status = status
		return true
	})
}

func (s *memStore) ReinviteTeamMember(ctx context.Context, tenantID, id uuid.UUID, role domain.Role) (domain.TeamMember, error) {
	return s.updateMember("ReinviteTeamMember", tenantID, id, func(m *domain.TeamMember) bool {
		if m.Status != domain.TeamMemberRemoved {
			return false
		}
		m.Role = role
		m.Status = domain.TeamMemberPending
		m.UserID = nil
		m.JoinedAt = nil
		m.InvitedAt = time.Now()
		return true
	})
}

func (s *memStore) AcceptTeamInvitation(ctx context.Context, arg repository.AcceptInvitationParams) (domain.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("AcceptTeamInvitation"); err != nil {
		return domain.TeamMember{}, err
	}
	for id, m := range s.d.team {
		if m.TenantID == arg.TenantID && m.Email == arg.Email && m.Status == domain.TeamMemberPending {
			userID := arg.UserID
			joined := arg.JoinedAt
			m.UserID = &userID
			m.JoinedAt = &joined
			m.Status = domain.TeamMemberActive
			s.d.team[id] = m
			return m, nil
		}
	}
	return domain.TeamMember{}, pgx.ErrNoRows
}

func (s *memStore) ListTeamMembers(ctx context.Context, tenantID uuid.UUID) ([]domain.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListTeamMembers"); err != nil {
		return nil, err
	}
	var out []domain.TeamMember
	for _, m := range s.d.team {
		if m.TenantID == tenantID && m.Status != domain.TeamMemberRemoved {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) GetActiveMembershipByUser(ctx context.Context, userID uuid.UUID) (domain.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetActiveMembershipByUser"); err != nil {
		return domain.TeamMember{}, err
	}
	for _, m := range s.d.team {
		if m.UserID != nil && *m.UserID == userID && m.Status == domain.TeamMemberActive {
			return m, nil
		}
	}
	return domain.TeamMember{}, pgx.ErrNoRows
}

// Invoice settings

func (s *memStore) GetInvoiceSettings(ctx context.Context, tenantID uuid.UUID) (domain.InvoiceSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetInvoiceSettings"); err != nil {
		return domain.InvoiceSettings{}, err
	}
	st, ok := s.d.settings[tenantID]
	if !ok {
		return domain.InvoiceSettings{}, pgx.ErrNoRows
	}
	return st, nil
}

func (s *memStore) UpsertInvoiceSettings(ctx context.Context, arg domain.InvoiceSettings) (domain.InvoiceSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpsertInvoiceSettings"); err != nil {
		return domain.InvoiceSettings{}, err
	}
	arg.UpdatedAt = time.Now()
	s.d.settings[arg.TenantID] = arg
	return arg, nil
}

func (s *memStore) CreateInvoiceSettingsIfAbsent(ctx context.Context, arg domain.InvoiceSettings) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateInvoiceSettingsIfAbsent"); err != nil {
		return false, err
	}
	if _, ok := s.d.settings[arg.TenantID]; ok {
		return false, nil
	}
	arg.UpdatedAt = time.Now()
	s.d.settings[arg.TenantID] = arg
	return true, nil
}

// Subscriptions

func (s *memStore) GetSubscription(ctx context.Context, tenantID uuid.UUID) (domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetSubscription"); err != nil {
		return domain.Subscription{}, err
	}
	sub, ok := s.d.subs[tenantID]
	if !ok {
		return domain.Subscription{}, pgx.ErrNoRows
	}
	return sub, nil
}

func (s *memStore) UpsertSubscription(ctx context.Context, arg domain.Subscription) (domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpsertSubscription"); err != nil {
		return domain.Subscription{}, err
	}
	if existing, ok := s.d.subs[arg.TenantID]; ok {
		if arg.StripeCustomerID == "" {
			arg.StripeCustomerID = existing.StripeCustomerID
		}
		if arg.StripeSubscriptionID == "" {
			arg.StripeSubscriptionID = existing.StripeSubscriptionID
		}
	}
	arg.UpdatedAt = time.Now()
	s.d.subs[arg.TenantID] = arg
	return arg, nil
}

// Admin

func (s *memStore) ListTenantOverviews(ctx context.Context, limit, offset int32) ([]domain.TenantOverview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListTenantOverviews"); err != nil {
		return nil, err
	}

	byTenant := map[uuid.UUID]*domain.TenantOverview{}
	get := func(id uuid.UUID) *domain.TenantOverview {
		o, ok := byTenant[id]
		if !ok {
			o = &domain.TenantOverview{TenantID: id, Plan: domain.PlanFree, PaidRevenue: decimal.Zero}
			byTenant[id] = o
		}
		return o
	}
	for id, st := range s.d.settings {
		get(id).BusinessName = st.BusinessName
	}
	for _, c := range s.d.customers {
		get(c.TenantID).CustomerCount++
	}
	for _, inv := range s.d.invoices {
		o := get(inv.TenantID)
		o.InvoiceCount++
		if inv.Status == domain.InvoiceStatusPaid {
			o.PaidRevenue = o.PaidRevenue.Add(inv.Total)
		}
	}
	for id, sub := range s.d.subs {
		if o, ok := byTenant[id]; ok {
			o.Plan = sub.Plan
		}
	}

	out := make([]domain.TenantOverview, 0, len(byTenant))
	for _, o := range byTenant {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID.String() < out[j].TenantID.String() })
	return paged(out, limit, offset), nil
}
