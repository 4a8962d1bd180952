package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvoiceStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from InvoiceStatus
		to   InvoiceStatus
		want bool
	}{
		{InvoiceStatusDraft, InvoiceStatusSent, true},
		{InvoiceStatusDraft, InvoiceStatusPaid, true},
		{InvoiceStatusDraft, InvoiceStatusCancelled, true},
		{InvoiceStatusSent, InvoiceStatusDraft, true},
		{InvoiceStatusSent, InvoiceStatusPaid, true},
		{InvoiceStatusSent, InvoiceStatusCancelled, true},
		{InvoiceStatusPaid, InvoiceStatusCancelled, true},
		{InvoiceStatusPaid, InvoiceStatusDraft, false},
		{InvoiceStatusPaid, InvoiceStatusSent, false},
		{InvoiceStatusCancelled, InvoiceStatusDraft, true},
		{InvoiceStatusCancelled, InvoiceStatusPaid, false},
		{InvoiceStatusCancelled, InvoiceStatusSent, false},
		{InvoiceStatusPaid, InvoiceStatusPaid, true},
		{InvoiceStatusDraft, InvoiceStatus("void"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestInvoiceStatus_Valid(t *testing.T) {
	for _, s := range []InvoiceStatus{InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusCancelled} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, InvoiceStatus("overdue").Valid())
}

func TestListParams_Normalize(t *testing.T) {
	assert.Equal(t, ListParams{Limit: 50}, ListParams{}.Normalize())
	assert.Equal(t, ListParams{Limit: 50, Offset: 0}, ListParams{Limit: 500, Offset: -1}.Normalize())
	assert.Equal(t, ListParams{Limit: 10, Offset: 20}, ListParams{Limit: 10, Offset: 20}.Normalize())
}
