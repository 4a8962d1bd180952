package routes

import (
	"github.com/DodailSolutions/billbook/internal/middleware"
	"github.com/DodailSolutions/billbook/internal/router"
	"github.com/DodailSolutions/billbook/internal/telemetry"
)

// RegisterAPIRoutes registers the JSON API. Everything under /api except the
// contact form requires a bearer token; /api/admin additionally requires a
// super admin.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	body := middleware.MaxBodySize(middleware.DefaultMaxBodySize)

	// Public contact form
	r.Post("/api/contact", deps.Account.Contact, deps.ContactLimiter.Middleware, body)

	// Plan checkout entry point (?checkout=<plan>)
	r.Get("/checkout", deps.Plans.Checkout, deps.Auth.RequireAuth, deps.APILimiter.Middleware)

	a := r.Route("/api",
		deps.Auth.RequireAuth,
		telemetry.SentryContextMiddleware(),
		deps.APILimiter.Middleware,
		body,
	)

	// Account
	a.Post("/account/onboard", deps.Account.Onboard)

	// Customers
	a.Get("/customers", deps.Customers.List)
	a.Post("/customers", deps.Customers.Create)
	a.Get("/customers/{id}", deps.Customers.Get)
	a.Put("/customers/{id}", deps.Customers.Update)
	a.Delete("/customers/{id}", deps.Customers.Delete)

	// Invoices
	a.Get("/invoices", deps.Invoices.List)
	a.Post("/invoices", deps.Invoices.Create)
	a.Post("/invoices/number", deps.Invoices.GenerateNumber)
	a.Get("/invoices/{id}", deps.Invoices.Get)
	a.Put("/invoices/{id}", deps.Invoices.Update)
	a.Delete("/invoices/{id}", deps.Invoices.Delete)
	a.Patch("/invoices/{id}/status", deps.Invoices.UpdateStatus)
	a.Post("/invoices/{id}/send", deps.Invoices.Send)
	a.Get("/invoices/{id}/pdf", deps.Invoices.PDF)

	// Payments and refunds
	a.Post("/invoices/{id}/payment-order", deps.Payments.CreateOrder)
	a.Post("/payments/verify", deps.Payments.Verify)
	a.Get("/payments", deps.Payments.List)
	a.Post("/payments/{id}/refunds", deps.Payments.RequestRefund)
	a.Get("/refunds", deps.Payments.ListRefunds)
	a.Post("/refunds/{id}/process", deps.Payments.ProcessRefund)

	// Recurring invoices
	a.Get("/recurring-invoices", deps.Recurring.List)
	a.Post("/recurring-invoices", deps.Recurring.Create)
	a.Get("/recurring-invoices/{id}", deps.Recurring.Get)
	a.Put("/recurring-invoices/{id}", deps.Recurring.Update)
	a.Delete("/recurring-invoices/{id}", deps.Recurring.Delete)
	a.Patch("/recurring-invoices/{id}/status", deps.Recurring.UpdateStatus)
	a.Post("/recurring-invoices/{id}/generate", deps.Recurring.Generate)

	// Reminders
	a.Get("/reminders", deps.Reminders.List)
	a.Post("/reminders", deps.Reminders.Create)
	a.Post("/reminders/{id}/sent", deps.Reminders.MarkSent)
	a.Delete("/reminders/{id}", deps.Reminders.Dismiss)

	// Team
	a.Get("/team", deps.Team.List)
	a.Post("/team", deps.Team.Invite)
	a.Post("/team/accept", deps.Team.Accept)
	a.Patch("/team/{id}/role", deps.Team.UpdateRole)
	a.Patch("/team/{id}/status", deps.Team.UpdateStatus)
	a.Delete("/team/{id}", deps.Team.Remove)

	// Settings
	a.Get("/settings/invoice", deps.Settings.Get)
	a.Put("/settings/invoice", deps.Settings.Update)

	// Plans
	a.Get("/plans", deps.Plans.List)
	a.Get("/plans/current", deps.Plans.Current)

	// Super-admin console
	admin := a.Route("/admin", middleware.RequireSuperAdmin)
	admin.Get("/tenants", deps.Admin.ListTenants)
	admin.Put("/tenants/{id}/plan", deps.Admin.SetPlan)
	admin.Get("/refunds", deps.Admin.ListRefunds)
	admin.Post("/refunds/{id}/process", deps.Admin.ProcessRefund)
}
