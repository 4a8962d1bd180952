package routes

import (
	"net/http"

	"github.com/DodailSolutions/billbook/internal/handler/api"
	"github.com/DodailSolutions/billbook/internal/middleware"
)

// APIDeps contains dependencies for the JSON API under /api and /checkout.
type APIDeps struct {
	Auth *middleware.Authenticator

	// APILimiter meters authenticated traffic per tenant; ContactLimiter
	// meters the public contact form per client IP.
	APILimiter     *middleware.RateLimiter
	ContactLimiter *middleware.RateLimiter

	Account   *api.AccountHandler
	Customers *api.CustomerHandler
	Invoices  *api.InvoiceHandler
	Payments  *api.PaymentHandler
	Recurring *api.RecurringHandler
	Reminders *api.ReminderHandler
	Team      *api.TeamHandler
	Settings  *api.SettingsHandler
	Plans     *api.PlanHandler
	Admin     *api.AdminHandler
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	StripeHandler http.HandlerFunc
}

// OpsDeps contains the health and metrics endpoints.
type OpsDeps struct {
	Health  http.HandlerFunc
	Metrics http.Handler
}
