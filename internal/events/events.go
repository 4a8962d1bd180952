// Package events publishes domain events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Event types. The subject is "<prefix>.<type>".
const (
	InvoiceCreated        = "invoice.created"
	InvoiceStatusChanged  = "invoice.status_changed"
	PaymentCompleted      = "payment.completed"
	PaymentFailed         = "payment.failed"
	RefundProcessed       = "refund.processed"
	RecurringMaterialized = "recurring.materialized"
)

// Event is the envelope every message is wrapped in.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	TenantID   uuid.UUID       `json:"tenant_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Publisher emits domain events. Publishing is fire-and-forget from the
// caller's point of view; errors are returned for logging only.
type Publisher interface {
	Publish(ctx context.Context, eventType string, tenantID uuid.UUID, data interface{}) error
	Close()
}

// conn is the slice of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes events on core NATS subjects.
type NATSPublisher struct {
	conn   conn
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// NewNATSPublisher connects to url and returns a publisher that prefixes
// subjects with prefix.
func NewNATSPublisher(url, prefix string, logger *slog.Logger) (*NATSPublisher, error) {
	logger = logger.With("component", "events")

	nc, err := nats.Connect(url,
		nats.Name("billbook"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return newPublisher(nc, prefix, logger), nil
}

func newPublisher(c conn, prefix string, logger *slog.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = "billbook"
	}
	return &NATSPublisher{conn: c, prefix: prefix, logger: logger, now: time.Now}
}

// Subject returns the full subject for an event type.
func (p *NATSPublisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

func (p *NATSPublisher) Publish(ctx context.Context, eventType string, tenantID uuid.UUID, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}

	body, err := json.Marshal(Event{
		ID:         uuid.New(),
		Type:       eventType,
		TenantID:   tenantID,
		OccurredAt: p.now().UTC(),
		Data:       payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}

	if err := p.conn.Publish(p.Subject(eventType), body); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("nats drain failed", "error", err)
	}
}

// NopPublisher discards events. Used when NATS_URL is empty.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, uuid.UUID, interface{}) error { return nil }
func (NopPublisher) Close() {}
