package quota

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leadboost/leadpipe/internal/config"
	"github.com/leadboost/leadpipe/internal/model"
	"github.com/leadboost/leadpipe/internal/store"
)

func testCatalog() *PlanCatalog {
	return NewPlanCatalog(config.PlansConfig{
		Free:       config.PlanLimits{MaxLeadsPerDay: 2, CanExport: false, CanUseAI: false},
		Pro:        config.PlanLimits{MaxLeadsPerDay: 100, CanExport: true, CanUseAI: true},
		Enterprise: config.PlanLimits{MaxLeadsPerDay: 10000, CanExport: true, CanUseAI: true},
		Default:    "free",
	})
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(t.Context()))
	return st
}

func TestGateDefaultPlanName(t *testing.T) {
	g := NewGate(newTestStore(t), testCatalog())
	require.Equal(t, "free", g.DefaultPlanName())
}

func TestCanCreateLeadsRespectsDailyCap(t *testing.T) {
	st := newTestStore(t)
	g := NewGate(st, testCatalog())

	org, err := st.CreateOrganization(t.Context(), &model.Organization{Name: "acme"})
	require.NoError(t, err)

	ok, remaining, err := g.CanCreateLeads(t.Context(), org.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, remaining)

	ok, remaining, err = g.CanCreateLeads(t.Context(), org.ID, 3)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 2, remaining)
}

func TestCanCreateLeadsAllowsLargeBatchWellUnderDailyCap(t *testing.T) {
	st := newTestStore(t)
	g := NewGate(st, testCatalog())

	org, err := st.CreateOrganization(t.Context(), &model.Organization{Name: "acme"})
	require.NoError(t, err)

	ok, err := g.AssignPlan(t.Context(), org.ID, "enterprise")
	require.NoError(t, err)
	require.True(t, ok)

	// enterprise's daily cap (10000) comfortably covers a 100-lead batch;
	// nothing beneath the daily-cap comparison itself may reject it.
	ok, remaining, err := g.CanCreateLeads(t.Context(), org.ID, 100)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 10000, remaining)
}

func TestAssignPlanRejectsUnknownName(t *testing.T) {
	st := newTestStore(t)
	g := NewGate(st, testCatalog())

	org, err := st.CreateOrganization(t.Context(), &model.Organization{Name: "acme"})
	require.NoError(t, err)

	ok, err := g.AssignPlan(t.Context(), org.ID, "not-a-plan")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAssignPlanUpgradesEntitlements(t *testing.T) {
	st := newTestStore(t)
	g := NewGate(st, testCatalog())

	org, err := st.CreateOrganization(t.Context(), &model.Organization{Name: "acme"})
	require.NoError(t, err)

	ok, err := g.AssignPlan(t.Context(), org.ID, "pro")
	require.NoError(t, err)
	require.True(t, ok)

	canExport, err := g.CanExport(t.Context(), org.ID)
	require.NoError(t, err)
	require.True(t, canExport)

	canAI, err := g.CanUseAI(t.Context(), org.ID)
	require.NoError(t, err)
	require.True(t, canAI)
}

func TestCancelSubscriptionWithoutOneIsNoop(t *testing.T) {
	st := newTestStore(t)
	g := NewGate(st, testCatalog())

	org, err := st.CreateOrganization(t.Context(), &model.Organization{Name: "acme"})
	require.NoError(t, err)

	ok, err := g.CancelSubscription(t.Context(), org.ID, true)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSeedIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	g := NewGate(st, testCatalog())

	require.NoError(t, g.Seed(t.Context()))
	plans, err := st.ListPlans(t.Context())
	require.NoError(t, err)
	require.Len(t, plans, 3)

	require.NoError(t, g.Seed(t.Context()))
	plans, err = st.ListPlans(t.Context())
	require.NoError(t, err)
	require.Len(t, plans, 3)
}
