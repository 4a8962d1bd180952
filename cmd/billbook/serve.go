package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DodailSolutions/billbook/internal"
	"github.com/DodailSolutions/billbook/internal/handler"
	"github.com/DodailSolutions/billbook/internal/handler/api"
	"github.com/DodailSolutions/billbook/internal/handler/webhook"
	"github.com/DodailSolutions/billbook/internal/middleware"
	"github.com/DodailSolutions/billbook/internal/router"
	"github.com/DodailSolutions/billbook/internal/routes"
	"github.com/DodailSolutions/billbook/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap("api")
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if migrate {
				if err := migrateUp(cfg, logger); err != nil {
					return err
				}
			}
			return serve(ctx, cfg, logger)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg *internal.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// ==========================================================================
	// Initialize middleware
	// ==========================================================================

	metrics := middleware.NewMetrics("billbook")

	securityConfig := middleware.DefaultSecurityHeadersConfig()
	if cfg.Env == "dev" {
		securityConfig.HSTSMaxAge = 0
	}

	apiLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	contactLimiter := middleware.NewRateLimiter(middleware.StrictRateLimiterConfig())

	auth := middleware.NewAuthenticator(cfg.JWT.Secret, cfg.JWT.Issuer, a.team)

	// ==========================================================================
	// Build route dependencies
	// ==========================================================================

	apiDeps := routes.APIDeps{
		Auth:           auth,
		APILimiter:     apiLimiter,
		ContactLimiter: contactLimiter,
		Account:        api.NewAccountHandler(a.account),
		Customers:      api.NewCustomerHandler(a.customers),
		Invoices:       api.NewInvoiceHandler(a.invoices),
		Payments:       api.NewPaymentHandler(a.payments),
		Recurring:      api.NewRecurringHandler(a.recurring),
		Reminders:      api.NewReminderHandler(a.reminders),
		Team:           api.NewTeamHandler(a.team),
		Settings:       api.NewSettingsHandler(a.settings),
		Plans:          api.NewPlanHandler(a.plans),
		Admin:          api.NewAdminHandler(a.admin),
	}

	stripeHandler := webhook.NewStripeHandler(a.gateway, a.payments, a.plans, logger)
	webhookDeps := routes.WebhookDeps{
		StripeHandler: stripeHandler.HandleWebhook,
	}

	opsDeps := routes.OpsDeps{
		Health:  handler.Health(a.pool),
		Metrics: metrics.Handler(),
	}

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	r := router.New(
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		telemetry.SentryMiddleware(),
		router.Recovery(logger),
		router.Logger(logger),
		metrics.Middleware,
		middleware.SecurityHeaders(securityConfig),
		router.CORS(cfg.CORSOrigins),
	)

	routes.RegisterOpsRoutes(r, opsDeps)
	routes.RegisterWebhookRoutes(r, webhookDeps)
	routes.RegisterAPIRoutes(r, apiDeps)

	// ==========================================================================
	// Start server
	// ==========================================================================

	go sweepLimiters(ctx, time.Minute, apiLimiter, contactLimiter)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// sweepLimiters drops idle rate-limit buckets until ctx is cancelled.
func sweepLimiters(ctx context.Context, every time.Duration, limiters ...*middleware.RateLimiter) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, l := range limiters {
				l.Sweep()
			}
		}
	}
}
