package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	subjects []string
	bodies   [][]byte
	err      error
	drained  bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, data)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNATSPublisher_Publish(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc, "acme", testLogger())
	fixed := time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	tenantID := uuid.New()
	err := p.Publish(context.Background(), InvoiceCreated, tenantID, map[string]string{"invoice_number": "INV-00001"})
	require.NoError(t, err)

	require.Len(t, fc.subjects, 1)
	assert.Equal(t, "acme.invoice.created", fc.subjects[0])

	var ev Event
	require.NoError(t, json.Unmarshal(fc.bodies[0], &ev))
	assert.Equal(t, InvoiceCreated, ev.Type)
	assert.Equal(t, tenantID, ev.TenantID)
	assert.True(t, fixed.Equal(ev.OccurredAt))
	assert.NotEqual(t, uuid.Nil, ev.ID)
	assert.JSONEq(t, `{"invoice_number":"INV-00001"}`, string(ev.Data))
}

func TestNATSPublisher_DefaultPrefix(t *testing.T) {
	p := newPublisher(&fakeConn{}, "", testLogger())
	assert.Equal(t, "billbook.payment.completed", p.Subject(PaymentCompleted))
}

func TestNATSPublisher_Errors(t *testing.T) {
	t.Run("connection error", func(t *testing.T) {
		p := newPublisher(&fakeConn{err: errors.New("nats: connection closed")}, "", testLogger())
		err := p.Publish(context.Background(), PaymentFailed, uuid.New(), nil)
		assert.ErrorContains(t, err, "payment.failed")
	})

	t.Run("cancelled context", func(t *testing.T) {
		fc := &fakeConn{}
		p := newPublisher(fc, "", testLogger())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := p.Publish(ctx, RefundProcessed, uuid.New(), nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, fc.subjects)
	})

	t.Run("unencodable payload", func(t *testing.T) {
		p := newPublisher(&fakeConn{}, "", testLogger())
		err := p.Publish(context.Background(), InvoiceCreated, uuid.New(), make(chan int))
		assert.Error(t, err)
	})
}

func TestNATSPublisher_CloseDrains(t *testing.T) {
	fc := &fakeConn{}
	newPublisher(fc, "", testLogger()).Close()
	assert.True(t, fc.drained)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), InvoiceCreated, uuid.New(), "anything"))
	p.Close()
}
