package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level observability.
// Tenant-scoped metrics carry a tenant_id label for per-tenant dashboards.
type BusinessMetrics struct {
	// Invoices
	InvoicesCreated      *prometheus.CounterVec
	InvoiceStatusChanged *prometheus.CounterVec
	InvoiceValue         *prometheus.HistogramVec

	// Payments
	PaymentOrdersCreated *prometheus.CounterVec
	PaymentsCompleted    *prometheus.CounterVec
	PaymentsFailed       *prometheus.CounterVec
	RevenueCollected     *prometheus.CounterVec

	// Refunds
	RefundsRequested *prometheus.CounterVec
	RefundsProcessed *prometheus.CounterVec

	// Recurring billing and reminders
	RecurringMaterialized *prometheus.CounterVec
	RemindersSent         *prometheus.CounterVec

	// Plans
	PlanCheckouts *prometheus.CounterVec

	// Webhooks
	WebhookReceived  *prometheus.CounterVec
	WebhookProcessed *prometheus.CounterVec
	WebhookFailed    *prometheus.CounterVec
	WebhookLatency   *prometheus.HistogramVec

	// Background jobs
	JobsProcessed *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec

	// Email delivery
	EmailSent   *prometheus.CounterVec
	EmailFailed *prometheus.CounterVec
}

// NewBusinessMetrics creates and registers all business metrics on the
// default registry.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	return NewBusinessMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewBusinessMetricsWith registers the metrics on reg.
func NewBusinessMetricsWith(reg prometheus.Registerer, namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "billbook"
	}
	subsystem := "business"
	f := promauto.With(reg)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		}, labels)
	}

	return &BusinessMetrics{
		InvoicesCreated: counter("invoices_created_total",
			"Total invoices created", "tenant_id", "source"), // source: manual, recurring
		InvoiceStatusChanged: counter("invoice_status_changed_total",
			"Total invoice status transitions", "tenant_id", "status"),
		InvoiceValue: histogram("invoice_value_minor",
			"Invoice total distribution in minor currency units",
			[]float64{10000, 50000, 100000, 500000, 1000000, 5000000, 10000000},
			"tenant_id"),

		PaymentOrdersCreated: counter("payment_orders_created_total",
			"Total gateway payment orders created", "tenant_id"),
		PaymentsCompleted: counter("payments_completed_total",
			"Total verified payments", "tenant_id", "method"),
		PaymentsFailed: counter("payments_failed_total",
			"Total failed payments and verification failures", "tenant_id", "reason"),
		RevenueCollected: counter("revenue_collected_minor",
			"Total revenue collected in minor currency units (excludes refunds)", "tenant_id", "currency"),

		RefundsRequested: counter("refunds_requested_total",
			"Total refund requests", "tenant_id"),
		RefundsProcessed: counter("refunds_processed_total",
			"Total refund decisions", "tenant_id", "outcome"), // outcome: completed, rejected, failed

		RecurringMaterialized: counter("recurring_materialized_total",
			"Total invoices generated from recurring templates", "tenant_id", "outcome"),
		RemindersSent: counter("reminders_sent_total",
			"Total reminder emails sent", "tenant_id", "reminder_type"),

		PlanCheckouts: counter("plan_checkouts_total",
			"Total plan checkout sessions by stage", "plan", "stage"), // stage: started, completed

		WebhookReceived: counter("webhook_received_total",
			"Total webhooks received", "event_type"),
		WebhookProcessed: counter("webhook_processed_total",
			"Total webhooks successfully processed", "event_type"),
		WebhookFailed: counter("webhook_failed_total",
			"Total webhook processing failures", "event_type", "error_type"),
		WebhookLatency: histogram("webhook_processing_seconds",
			"Webhook processing duration",
			[]float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			"event_type"),

		JobsProcessed: counter("jobs_processed_total",
			"Total background sweep items successfully processed", "job_type"),
		JobsFailed: counter("jobs_failed_total",
			"Total background sweep item failures", "job_type"),
		JobDuration: histogram("job_duration_seconds",
			"Background sweep duration",
			[]float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			"job_type"),

		EmailSent: counter("emails_sent_total",
			"Total emails sent by type", "email_type"),
		EmailFailed: counter("emails_failed_total",
			"Total email delivery failures", "email_type"),
	}
}

// Business is the global instance used by services and handlers.
// Nil until InitBusinessMetrics runs; callers check before use.
var Business *BusinessMetrics

// InitBusinessMetrics initializes the global business metrics instance
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace)
	return Business
}
