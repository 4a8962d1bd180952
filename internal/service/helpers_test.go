package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/email"
	"github.com/DodailSolutions/billbook/internal/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Fakes
// ============================================================================

// fakeNotifier records every email it is asked to send. Setting err makes
// every send fail.
type fakeNotifier struct {
	mu        sync.Mutex
	err       error
	welcome   []email.WelcomeEmail
	purchase  []email.PurchaseConfirmationEmail
	invoices  []email.InvoiceEmail
	contacts  []email.ContactEmail
	reminders []email.ReminderEmail
}

func (n *fakeNotifier) SendWelcome(ctx context.Context, data email.WelcomeEmail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcome = append(n.welcome, data)
	return n.err
}

func (n *fakeNotifier) SendPurchaseConfirmation(ctx context.Context, data email.PurchaseConfirmationEmail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.purchase = append(n.purchase, data)
	return n.err
}

func (n *fakeNotifier) SendInvoice(ctx context.Context, data email.InvoiceEmail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invoices = append(n.invoices, data)
	return n.err
}

func (n *fakeNotifier) SendContact(ctx context.Context, data email.ContactEmail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.contacts = append(n.contacts, data)
	return n.err
}

func (n *fakeNotifier) SendReminder(ctx context.Context, data email.ReminderEmail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, data)
	return n.err
}

type publishedEvent struct {
	eventType string
	tenantID  uuid.UUID
	data      interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []publishedEvent
}

func (p *fakePublisher) Publish(ctx context.Context, eventType string, tenantID uuid.UUID, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{eventType: eventType, tenantID: tenantID, data: data})
	return p.err
}

func (p *fakePublisher) Close() {}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.eventType
	}
	return out
}

var errBoom = errors.New("boom")

// ============================================================================
// Fixtures
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ownerContext() domain.TenantContext {
	id := uuid.New()
	return domain.TenantContext{
		TenantID: id,
		UserID:   id,
		Email:    "owner@example.com",
		Role:     domain.RoleOwner,
	}
}

// asRole returns tc acting as another user of the same tenant.
func asRole(tc domain.TenantContext, role domain.Role) domain.TenantContext {
	tc.UserID = uuid.New()
	tc.Email = string(role) + "@example.com"
	tc.Role = role
	return tc
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedCustomer(t *testing.T, store *memStore, tc domain.TenantContext, emailAddr string) domain.Customer {
	t.Helper()
	c, err := store.CreateCustomer(context.Background(), domain.Customer{
		TenantID: tc.TenantID,
		Name:     "Acme Traders",
		Email:    emailAddr,
	})
	require.NoError(t, err)
	return c
}

func twoItems() []domain.LineItem {
	return []domain.LineItem{
		{Description: "Design work", Quantity: dec("2"), UnitPrice: dec("1500")},
		{Description: "Hosting", Quantity: dec("1"), UnitPrice: dec("499.50")},
	}
}

func newInvoiceFixture(store *memStore, notifier *fakeNotifier, publisher *fakePublisher) *InvoiceService {
	return NewInvoiceService(store, asNotifier(notifier), asPublisher(publisher), "https://app.billbook.test/", testLogger())
}

// asNotifier and asPublisher keep a nil fake from becoming a non-nil
// interface holding a nil pointer.
func asNotifier(n *fakeNotifier) Notifier {
	if n == nil {
		return nil
	}
	return n
}

func asPublisher(p *fakePublisher) events.Publisher {
	if p == nil {
		return events.NopPublisher{}
	}
	return p
}
