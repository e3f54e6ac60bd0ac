package quota

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/leadboost/leadpipe/internal/model"
	"github.com/leadboost/leadpipe/internal/store"
)

// Gate enforces per-plan daily lead creation caps and AI/export feature
// flags. It is consulted both at lead-creation time (reject over-quota
// requests) and by the orchestrator's AI gates.
type Gate struct {
	store   store.Store
	catalog *PlanCatalog
}

// NewGate creates a Gate backed by st and catalog.
func NewGate(st store.Store, catalog *PlanCatalog) *Gate {
	return &Gate{store: st, catalog: catalog}
}

// DefaultPlanName returns the name of the plan assigned to organizations
// with no explicit subscription, e.g. at registration time.
func (g *Gate) DefaultPlanName() string {
	return g.catalog.DefaultPlan()
}

func startOfUTCDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func (g *Gate) planNameForOrg(ctx context.Context, orgID int64) (string, error) {
	sub, err := g.store.GetSubscriptionByOrg(ctx, orgID)
	if err != nil && err != store.ErrNotFound {
		return "", eris.Wrap(err, "quota: load subscription")
	}
	if err == store.ErrNotFound || sub == nil {
		return g.catalog.DefaultPlan(), nil
	}
	return sub.PlanName, nil
}

// Usage returns the organization's current daily usage against its plan.
func (g *Gate) Usage(ctx context.Context, orgID int64) (model.PlanUsage, error) {
	planName, err := g.planNameForOrg(ctx, orgID)
	if err != nil {
		return model.PlanUsage{}, err
	}
	plan := g.catalog.Plan(planName)

	current, err := g.store.CountLeadsCreatedSince(ctx, orgID, startOfUTCDay(time.Now()))
	if err != nil {
		return model.PlanUsage{}, eris.Wrap(err, "quota: count today's leads")
	}

	remaining := plan.MaxLeadsPerDay - current
	if remaining < 0 {
		remaining = 0
	}

	return model.PlanUsage{
		PlanName:            planName,
		MaxLeadsPerDay:      plan.MaxLeadsPerDay,
		CanExport:           plan.CanExport,
		CanUseAI:            plan.CanUseAI,
		CurrentUsage:        current,
		RemainingDailyLeads: remaining,
		CanProcessMoreToday: remaining > 0,
	}, nil
}

// CanCreateLead reports whether the organization has remaining daily quota
// for at least one more lead.
func (g *Gate) CanCreateLead(ctx context.Context, orgID int64) (bool, error) {
	usage, err := g.Usage(ctx, orgID)
	if err != nil {
		return false, err
	}
	return usage.CanProcessMoreToday, nil
}

// CanCreateLeads reports whether the organization has enough remaining
// daily quota to create count more leads in one batch, along with the
// remaining count for error messaging, per spec.md §6.1: a batch is
// rejected solely when it would exceed the plan's remaining daily
// allowance, regardless of how large the plan's cap otherwise is.
func (g *Gate) CanCreateLeads(ctx context.Context, orgID int64, count int) (ok bool, remaining int, err error) {
	usage, err := g.Usage(ctx, orgID)
	if err != nil {
		return false, 0, err
	}
	if count > usage.RemainingDailyLeads {
		return false, usage.RemainingDailyLeads, nil
	}
	return true, usage.RemainingDailyLeads, nil
}

// CanUseAI reports whether the organization's plan permits AI features.
func (g *Gate) CanUseAI(ctx context.Context, orgID int64) (bool, error) {
	planName, err := g.planNameForOrg(ctx, orgID)
	if err != nil {
		return false, err
	}
	return g.catalog.Plan(planName).CanUseAI, nil
}

// CanExport reports whether the organization's plan permits data export.
func (g *Gate) CanExport(ctx context.Context, orgID int64) (bool, error) {
	planName, err := g.planNameForOrg(ctx, orgID)
	if err != nil {
		return false, err
	}
	return g.catalog.Plan(planName).CanExport, nil
}

// AssignPlan upserts the organization's subscription to planName. Returns
// false if planName isn't a recognized plan.
func (g *Gate) AssignPlan(ctx context.Context, orgID int64, planName string) (bool, error) {
	if !g.catalog.Valid(planName) {
		return false, nil
	}

	existing, err := g.store.GetSubscriptionByOrg(ctx, orgID)
	if err != nil && err != store.ErrNotFound {
		return false, eris.Wrap(err, "quota: load subscription for assign")
	}

	sub := &model.Subscription{
		OrganizationID:     orgID,
		PlanName:           planName,
		Status:             model.SubscriptionActive,
		CurrentPeriodStart: time.Now().UTC(),
	}
	if err == nil && existing != nil {
		sub.ID = existing.ID
		sub.StripeSubscriptionID = existing.StripeSubscriptionID
		sub.CurrentPeriodStart = existing.CurrentPeriodStart
	}

	if err := g.store.UpsertSubscription(ctx, sub); err != nil {
		return false, eris.Wrap(err, "quota: upsert subscription")
	}
	return true, nil
}

// CancelSubscription cancels the organization's subscription. immediate=true
// sets status=canceled now; otherwise the subscription stays active until
// the current period ends.
func (g *Gate) CancelSubscription(ctx context.Context, orgID int64, immediate bool) (bool, error) {
	sub, err := g.store.GetSubscriptionByOrg(ctx, orgID)
	if err == store.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "quota: load subscription for cancel")
	}

	if immediate {
		sub.Status = model.SubscriptionCanceled
		sub.CancelAtPeriodEnd = false
	} else {
		sub.CancelAtPeriodEnd = true
		sub.Status = model.SubscriptionActive
	}

	if err := g.store.UpsertSubscription(ctx, sub); err != nil {
		return false, eris.Wrap(err, "quota: cancel subscription")
	}
	return true, nil
}

// Seed writes the catalog's plans into the store, idempotently (a no-op if
// rows already exist), mirroring the original's initialize_plans().
func (g *Gate) Seed(ctx context.Context) error {
	existing, err := g.store.ListPlans(ctx)
	if err != nil {
		return eris.Wrap(err, "quota: list existing plans")
	}
	if len(existing) > 0 {
		return nil
	}
	return eris.Wrap(g.store.SeedPlans(ctx, g.catalog.All()), "quota: seed plans")
}
