package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leadboost/leadpipe/internal/apperr"
	"github.com/leadboost/leadpipe/internal/model"
	"github.com/leadboost/leadpipe/internal/store"
)

type organizationResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	PlanTier string `json:"plan_tier"`
	MaxLeads int    `json:"max_leads"`
}

func toOrganizationResponse(o *model.Organization) organizationResponse {
	return organizationResponse{ID: o.ID, Name: o.Name, PlanTier: o.PlanTier, MaxLeads: o.MaxLeads}
}

type createOrganizationRequest struct {
	Name string `json:"name"`
}

// handleCreateOrganization implements POST /organizations/. Registration
// already creates each user's home organization; this endpoint exists for
// a caller that manages multiple organizations under one account and wants
// an additional one, scoped to no user until assigned.
func (s *Server) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req createOrganizationRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		badRequest(w, "name is required")
		return
	}

	org, err := s.store.CreateOrganization(r.Context(), &model.Organization{Name: req.Name})
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "create organization"))
		return
	}
	writeJSON(w, http.StatusOK, toOrganizationResponse(org))
}

// handleListOrganizations implements GET /organizations/, tenant-scoped:
// a caller only ever sees their own organization.
func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	org, err := s.store.GetOrganization(r.Context(), p.OrganizationID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "get organization"))
		return
	}
	writeJSON(w, http.StatusOK, []organizationResponse{toOrganizationResponse(org)})
}

func (s *Server) loadOwnedOrganization(r *http.Request) (*model.Organization, error) {
	p, _ := principalFrom(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "invalid organization id")
	}
	if err := requireOrgMatch(p, id); err != nil {
		return nil, err
	}
	org, err := s.store.GetOrganization(r.Context(), id)
	if err == store.ErrNotFound {
		return nil, apperr.New(apperr.KindNotFound, "organization not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPermanent, err, "get organization")
	}
	return org, nil
}

// handleGetOrganization implements GET /organizations/{id}.
func (s *Server) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := s.loadOwnedOrganization(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrganizationResponse(org))
}

type updateOrganizationRequest struct {
	Name *string `json:"name"`
}

// handleUpdateOrganization implements PUT /organizations/{id}.
func (s *Server) handleUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := s.loadOwnedOrganization(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateOrganizationRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if req.Name != nil {
		org.Name = *req.Name
	}

	if err := s.store.UpdateOrganization(r.Context(), org); err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "update organization"))
		return
	}
	writeJSON(w, http.StatusOK, toOrganizationResponse(org))
}
