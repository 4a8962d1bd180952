package routes

import (
	"github.com/DodailSolutions/billbook/internal/middleware"
	"github.com/DodailSolutions/billbook/internal/router"
)

// RegisterWebhookRoutes registers all webhook routes.
//
// Webhook routes do NOT have authentication middleware. Each webhook handler
// verifies the request signature itself.
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	r.Post("/webhooks/stripe", deps.StripeHandler, middleware.MaxBodySize(middleware.WebhookMaxBodySize))
}

// RegisterOpsRoutes registers health and metrics endpoints.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Get("/health", deps.Health)
	if deps.Metrics != nil {
		r.Handle("GET", "/metrics", deps.Metrics)
	}
}
