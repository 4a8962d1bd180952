package service

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/DodailSolutions/billbook/internal/billing"
	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/email"
	"github.com/DodailSolutions/billbook/internal/repository"
	"github.com/DodailSolutions/billbook/internal/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var defaultPlans []byte

// PlanCatalog is the fixed set of subscription tiers.
type PlanCatalog struct {
	plans []domain.Plan
	byID  map[string]domain.Plan
}

type planFile struct {
	Plans []domain.Plan `yaml:"plans"`
}

// LoadPlanCatalog reads the catalog from path, or the built-in catalog when
// path is empty.
func LoadPlanCatalog(path string) (*PlanCatalog, error) {
	if path == "" {
		return ParsePlanCatalog(defaultPlans)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan catalog: %w", err)
	}
	return ParsePlanCatalog(data)
}

// ParsePlanCatalog decodes a YAML catalog. It must define the free plan and
// every id must be unique.
func ParsePlanCatalog(data []byte) (*PlanCatalog, error) {
	var file planFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse plan catalog: %w", err)
	}

	c := &PlanCatalog{byID: make(map[string]domain.Plan, len(file.Plans))}
	for _, p := range file.Plans {
		p.ID = strings.ToLower(strings.TrimSpace(p.ID))
		if p.ID == "" {
			return nil, fmt.Errorf("plan catalog: plan without id")
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("plan catalog: duplicate plan %q", p.ID)
		}

		price := p.PriceLabel
		if price == "" {
			price = "0"
		}
		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("plan catalog: plan %q: invalid price %q", p.ID, p.PriceLabel)
		}
		p.Price = domain.RoundMoney(d)
		p.PriceLabel = p.Price.StringFixed(2)

		c.plans = append(c.plans, p)
		c.byID[p.ID] = p
	}

	if _, ok := c.byID[domain.PlanFree]; !ok {
		return nil, fmt.Errorf("plan catalog: %q plan is required", domain.PlanFree)
	}
	return c, nil
}

func (c *PlanCatalog) Plans() []domain.Plan {
	out := make([]domain.Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

func (c *PlanCatalog) Lookup(id string) (domain.Plan, bool) {
	p, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]
	return p, ok
}

func (c *PlanCatalog) Free() domain.Plan {
	return c.byID[domain.PlanFree]
}

// planFor resolves the tenant's effective plan. Tenants without an active
// subscription are on the free plan.
func (c *PlanCatalog) planFor(ctx context.Context, q repository.Querier, tenantID uuid.UUID) (domain.Plan, error) {
	sub, err := q.GetSubscription(ctx, tenantID)
	if err != nil {
		if repository.IsNotFound(err) {
			return c.Free(), nil
		}
		return domain.Plan{}, err
	}
	if sub.Status == domain.SubscriptionCanceled {
		return c.Free(), nil
	}
	if p, ok := c.Lookup(sub.Plan); ok {
		return p, nil
	}
	return c.Free(), nil
}

type PlanService struct {
	store    repository.Store
	gateway  billing.Gateway
	notifier Notifier
	catalog  *PlanCatalog
	baseURL  string
	logger   *slog.Logger
}

var _ domain.PlanService = (*PlanService)(nil)

func NewPlanService(
	store repository.Store,
	gateway billing.Gateway,
	notifier Notifier,
	catalog *PlanCatalog,
	baseURL string,
	logger *slog.Logger,
) *PlanService {
	return &PlanService{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		catalog:  catalog,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger.With("service", "plan"),
	}
}

func (s *PlanService) ListPlans() []domain.Plan {
	return s.catalog.Plans()
}

func (s *PlanService) CurrentPlan(ctx context.Context, tc domain.TenantContext) (*domain.Plan, error) {
	const op = "plan.current"
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	plan, err := s.catalog.planFor(ctx, s.store, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &plan, nil
}

// StartCheckout opens a hosted checkout session for a paid plan.
func (s *PlanService) StartCheckout(ctx context.Context, tc domain.TenantContext, planID string) (*domain.CheckoutSession, error) {
	const op = "plan.start_checkout"
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if !tc.CanManage() {
		return nil, domain.Forbidden(op, "Only owners and admins can change the plan")
	}

	plan, ok := s.catalog.Lookup(planID)
	if !ok {
		return nil, withOp(domain.ErrUnknownPlan, op)
	}
	if plan.ID == domain.PlanFree || plan.StripePriceID == "" {
		return nil, withOp(domain.ErrPlanNotPurchasable, op)
	}

	session, err := s.gateway.CreatePlanCheckout(ctx, billing.PlanCheckoutParams{
		TenantID:      tc.TenantID.String(),
		PlanID:        plan.ID,
		PriceID:       plan.StripePriceID,
		CustomerEmail: tc.Email,
		SuccessURL:    s.baseURL + "/billing?checkout=success",
		CancelURL:     s.baseURL + "/billing?checkout=cancelled",
	})
	if err != nil {
		s.logger.Error("failed to create plan checkout",
			"tenant_id", tc.TenantID,
			"plan", plan.ID,
			"error", err,
		)
		return nil, wrapOp(ErrPaymentGateway, op, err)
	}

	if telemetry.Business != nil {
		telemetry.Business.PlanCheckouts.WithLabelValues(plan.ID, "started").Inc()
	}
	s.logger.Info("plan checkout started", "tenant_id", tc.TenantID, "plan", plan.ID, "session_id", session.ID)
	return session, nil
}

// CompleteCheckout records the purchased plan once the gateway reports the
// checkout settled, then confirms by email. Redelivery is harmless.
func (s *PlanService) CompleteCheckout(ctx context.Context, checkout domain.CompletedCheckout) error {
	const op = "plan.complete_checkout"
	if checkout.TenantID == uuid.Nil {
		return domain.Invalid(op, "Checkout has no tenant reference")
	}

	plan, ok := s.catalog.Lookup(checkout.Plan)
	if !ok {
		return withOp(domain.ErrUnknownPlan, op)
	}

	sub, err := s.store.UpsertSubscription(ctx, domain.Subscription{
		TenantID:             checkout.TenantID,
		Plan:                 plan.ID,
		Status:               domain.SubscriptionActive,
		StripeCustomerID:     checkout.StripeCustomerID,
		StripeSubscriptionID: checkout.StripeSubscriptionID,
	})
	if err != nil {
		return storeError(err, op, "Subscription", checkout.TenantID.String())
	}

	if telemetry.Business != nil {
		telemetry.Business.PlanCheckouts.WithLabelValues(plan.ID, "completed").Inc()
	}
	s.logger.Info("plan purchased",
		"tenant_id", sub.TenantID,
		"plan", sub.Plan,
		"session_id", checkout.SessionID,
	)

	if checkout.CustomerEmail != "" && s.notifier != nil {
		currency := strings.ToUpper(checkout.Currency)
		if currency == "" {
			currency = domain.DefaultCurrency
		}
		err := s.notifier.SendPurchaseConfirmation(ctx, email.PurchaseConfirmationEmail{
			To:         checkout.CustomerEmail,
			PlanName:   plan.Name,
			Amount:     domain.FromMinorUnits(checkout.AmountTotal),
			Currency:   currency,
			BillingURL: s.baseURL + "/billing",
		})
		if err != nil {
			s.logger.Error("failed to send purchase confirmation",
				"tenant_id", sub.TenantID,
				"error", err,
			)
		}
	}
	return nil
}
