package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DodailSolutions/billbook/internal"
	"github.com/DodailSolutions/billbook/internal/billing"
	"github.com/DodailSolutions/billbook/internal/email"
	"github.com/DodailSolutions/billbook/internal/events"
	"github.com/DodailSolutions/billbook/internal/repository"
	"github.com/DodailSolutions/billbook/internal/service"
	"github.com/DodailSolutions/billbook/internal/telemetry"
)

// app holds the infrastructure and services shared by serve and worker.
type app struct {
	pool      *pgxpool.Pool
	gateway   *billing.StripeGateway
	publisher events.Publisher
	flush     func()

	customers *service.CustomerService
	invoices  *service.InvoiceService
	payments  *service.PaymentService
	recurring *service.RecurringInvoiceService
	reminders *service.ReminderService
	team      *service.TeamService
	settings  *service.SettingsService
	account   *service.AccountService
	admin     *service.AdminService
	plans     *service.PlanService
}

func newApp(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (*app, error) {
	a := &app{flush: func() {}}

	// Sentry
	flush, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	a.flush = flush

	telemetry.InitBusinessMetrics("billbook")

	// Database
	logger.Info("Connecting to database...")
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	a.pool = pool

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		a.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	store := repository.NewStore(pool)

	// Payment gateway
	gateway, err := billing.NewStripeGateway(billing.StripeConfig{
		APIKey:         cfg.Stripe.SecretKey,
		WebhookSecret:  cfg.Stripe.WebhookSecret,
		MaxRetries:     cfg.Stripe.MaxRetries,
		TimeoutSeconds: cfg.Stripe.TimeoutSeconds,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize Stripe gateway: %w", err)
	}
	a.gateway = gateway

	// Email
	notifier, err := newEmailService(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Events
	a.publisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		publisher, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		a.publisher = publisher
	} else {
		logger.Info("NATS_URL not set, domain events disabled")
	}

	catalog, err := service.LoadPlanCatalog(cfg.PlansFile)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load plan catalog: %w", err)
	}

	a.customers = service.NewCustomerService(store, logger)
	a.invoices = service.NewInvoiceService(store, notifier, a.publisher, cfg.BaseURL, logger)
	a.payments = service.NewPaymentService(store, gateway, a.publisher, logger)
	a.recurring = service.NewRecurringInvoiceService(store, a.invoices, a.publisher, logger)
	a.reminders = service.NewReminderService(store, notifier, cfg.BaseURL, logger)
	a.team = service.NewTeamService(store, catalog, logger)
	a.settings = service.NewSettingsService(store, logger)
	a.account = service.NewAccountService(store, notifier, cfg.Email.ContactTo, cfg.BaseURL, logger)
	a.admin = service.NewAdminService(store, a.payments, catalog, logger)
	a.plans = service.NewPlanService(store, gateway, notifier, catalog, cfg.BaseURL, logger)

	return a, nil
}

func newEmailService(cfg *internal.Config, logger *slog.Logger) (*email.Service, error) {
	var sender email.Sender
	switch cfg.Email.Provider {
	case "postmark":
		sender = email.NewPostmarkSender(cfg.Email.PostmarkToken,
			email.WithPostmarkTransport(&telemetry.HTTPTransport{}))
	default:
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			Timeout:  30 * time.Second,
		}, logger)
	}

	svc, err := email.NewService(sender, cfg.Email.From, cfg.Email.FromName, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email service: %w", err)
	}
	logger.Info("Email service initialized", "provider", cfg.Email.Provider)
	return svc, nil
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	a.flush()
}
