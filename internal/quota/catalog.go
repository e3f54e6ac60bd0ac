// Package quota implements the Quota Gate: per-plan daily lead caps and
// AI/export feature gating. The PlanCatalog is built once at startup from
// config and held in memory — plan limits are never re-read from the
// environment on a per-request basis, unlike the Python original.
package quota

import (
	"github.com/leadboost/leadpipe/internal/config"
	"github.com/leadboost/leadpipe/internal/model"
)

// PlanCatalog holds the full set of plans, loaded once at startup.
type PlanCatalog struct {
	plans       map[string]model.Plan
	defaultPlan string
}

// NewPlanCatalog builds a PlanCatalog from the static plans configuration.
func NewPlanCatalog(cfg config.PlansConfig) *PlanCatalog {
	def := cfg.Default
	if def == "" {
		def = "free"
	}
	return &PlanCatalog{
		plans: map[string]model.Plan{
			"free":       {Name: "free", MaxLeadsPerDay: cfg.Free.MaxLeadsPerDay, CanExport: cfg.Free.CanExport, CanUseAI: cfg.Free.CanUseAI},
			"pro":        {Name: "pro", MaxLeadsPerDay: cfg.Pro.MaxLeadsPerDay, CanExport: cfg.Pro.CanExport, CanUseAI: cfg.Pro.CanUseAI},
			"enterprise": {Name: "enterprise", MaxLeadsPerDay: cfg.Enterprise.MaxLeadsPerDay, CanExport: cfg.Enterprise.CanExport, CanUseAI: cfg.Enterprise.CanUseAI},
		},
		defaultPlan: def,
	}
}

// DefaultPlan returns the name of the plan assigned to organizations with no
// explicit subscription.
func (c *PlanCatalog) DefaultPlan() string {
	return c.defaultPlan
}

// Plan looks up a plan by name. Falls back to the default plan for an
// unrecognized or empty name.
func (c *PlanCatalog) Plan(name string) model.Plan {
	if p, ok := c.plans[name]; ok {
		return p
	}
	return c.plans[c.defaultPlan]
}

// Valid reports whether name is a recognized plan.
func (c *PlanCatalog) Valid(name string) bool {
	_, ok := c.plans[name]
	return ok
}

// All returns every plan in the catalog, ordered free/pro/enterprise.
func (c *PlanCatalog) All() []model.Plan {
	names := []string{"free", "pro", "enterprise"}
	out := make([]model.Plan, 0, len(names))
	for _, n := range names {
		if p, ok := c.plans[n]; ok {
			out = append(out, p)
		}
	}
	return out
}
