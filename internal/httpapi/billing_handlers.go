package httpapi

import (
	"net/http"

	"github.com/leadboost/leadpipe/internal/apperr"
	"github.com/leadboost/leadpipe/internal/model"
)

type planUsageResponse struct {
	PlanName            string `json:"plan_name"`
	MaxLeadsPerDay      int    `json:"max_leads_per_day"`
	CanExport           bool   `json:"can_export"`
	CanUseAI            bool   `json:"can_use_ai"`
	CurrentUsage        int    `json:"current_usage"`
	RemainingDailyLeads int    `json:"remaining_daily_leads"`
	CanProcessMoreToday bool   `json:"can_process_more_today"`
}

func toPlanUsageResponse(u model.PlanUsage) planUsageResponse {
	return planUsageResponse{
		PlanName:            u.PlanName,
		MaxLeadsPerDay:      u.MaxLeadsPerDay,
		CanExport:           u.CanExport,
		CanUseAI:            u.CanUseAI,
		CurrentUsage:        u.CurrentUsage,
		RemainingDailyLeads: u.RemainingDailyLeads,
		CanProcessMoreToday: u.CanProcessMoreToday,
	}
}

// handleBillingUsage implements GET /billing/usage.
func (s *Server) handleBillingUsage(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	usage, err := s.quota.Usage(r.Context(), p.OrganizationID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "get usage"))
		return
	}
	writeJSON(w, http.StatusOK, toPlanUsageResponse(usage))
}

// handleBillingUpgrade implements POST /billing/upgrade?plan_name=….
func (s *Server) handleBillingUpgrade(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	planName := r.URL.Query().Get("plan_name")
	if planName == "" {
		badRequest(w, "plan_name is required")
		return
	}

	ok, err := s.quota.AssignPlan(r.Context(), p.OrganizationID, planName)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "assign plan"))
		return
	}
	if !ok {
		badRequest(w, "unrecognized plan_name")
		return
	}

	usage, err := s.quota.Usage(r.Context(), p.OrganizationID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "get usage"))
		return
	}
	writeJSON(w, http.StatusOK, toPlanUsageResponse(usage))
}

type planResponse struct {
	Name           string `json:"name"`
	MaxLeadsPerDay int    `json:"max_leads_per_day"`
	CanExport      bool   `json:"can_export"`
	CanUseAI       bool   `json:"can_use_ai"`
}

// handleBillingPlans implements GET /billing/plans: the full catalog, as
// seeded into the store by the migrate subcommand (SPEC_FULL.md §12).
func (s *Server) handleBillingPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.store.ListPlans(r.Context())
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "list plans"))
		return
	}
	out := make([]planResponse, len(plans))
	for i, p := range plans {
		out[i] = planResponse{Name: p.Name, MaxLeadsPerDay: p.MaxLeadsPerDay, CanExport: p.CanExport, CanUseAI: p.CanUseAI}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleBillingCancel implements POST /billing/cancel?immediate=false.
func (s *Server) handleBillingCancel(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	immediate := r.URL.Query().Get("immediate") == "true"

	ok, err := s.quota.CancelSubscription(r.Context(), p.OrganizationID, immediate)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "cancel subscription"))
		return
	}
	if !ok {
		writeError(w, apperr.New(apperr.KindNotFound, "no active subscription"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"canceled": true})
}
