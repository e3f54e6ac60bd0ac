package httpapi

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leadboost/leadpipe/internal/apperr"
	"github.com/leadboost/leadpipe/internal/model"
	"github.com/leadboost/leadpipe/internal/store"
)

type createLeadsRequest struct {
	URLs         []string `json:"urls"`
	MessageStyle string   `json:"message_style"`
}

type leadResponse struct {
	ID                   int64   `json:"id"`
	Website              string  `json:"website"`
	OrganizationID       int64   `json:"organization_id"`
	OwnerID              int64   `json:"owner_id"`
	CompanyName          string  `json:"company_name"`
	Industry             string  `json:"industry"`
	Employees            string  `json:"employees"`
	RevenueBand          string  `json:"revenue_band"`
	ContactName          string  `json:"contact_name"`
	ContactTitle         string  `json:"contact_title"`
	Email                string  `json:"email"`
	Phone                string  `json:"phone"`
	LinkedInURL          string  `json:"linkedin_url"`
	ScrapeSource         string  `json:"scrape_source"`
	EmailSource          string  `json:"email_source"`
	EnrichmentSource     string  `json:"enrichment_source"`
	Score                float64 `json:"score"`
	QualificationLabel   string  `json:"qualification_label"`
	OutreachMessage      string  `json:"outreach_message"`
	OutreachSent         bool    `json:"outreach_sent"`
	IsActive             bool    `json:"is_active"`
}

func toLeadResponse(l *model.Lead) leadResponse {
	return leadResponse{
		ID:                 l.ID,
		Website:            l.Website,
		OrganizationID:     l.OrganizationID,
		OwnerID:            l.OwnerID,
		CompanyName:        l.CompanyName,
		Industry:           l.Industry,
		Employees:          string(l.Employees),
		RevenueBand:        string(l.RevenueBand),
		ContactName:        l.ContactName,
		ContactTitle:       l.ContactTitle,
		Email:              l.Email,
		Phone:              l.Phone,
		LinkedInURL:        l.LinkedInURL,
		ScrapeSource:       string(l.ScrapeSource),
		EmailSource:        string(l.EmailSource),
		EnrichmentSource:   string(l.EnrichmentSource),
		Score:              l.Score,
		QualificationLabel: string(l.QualificationLabel),
		OutreachMessage:    l.OutreachMessage,
		OutreachSent:       l.OutreachSent,
		IsActive:           l.IsActive,
	}
}

// handleCreateLeads implements POST /leads/: creates one Lead per URL and
// enqueues one pipeline job per Lead, per spec.md §6.1 and the testable
// properties in §8 (quota gate checked before any row is written).
func (s *Server) handleCreateLeads(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req createLeadsRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if len(req.URLs) == 0 {
		badRequest(w, "urls must not be empty")
		return
	}

	ok, remaining, err := s.quota.CanCreateLeads(r.Context(), p.OrganizationID, len(req.URLs))
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "check quota"))
		return
	}
	if !ok {
		writeError(w, apperr.Newf(apperr.KindQuotaExceeded,
			"Cannot create %d leads. Only %d leads remaining for today.", len(req.URLs), remaining))
		return
	}

	leads := make([]*model.Lead, len(req.URLs))
	for i, u := range req.URLs {
		leads[i] = &model.Lead{
			Website:        u,
			OrganizationID: p.OrganizationID,
			OwnerID:        p.UserID,
			ScrapeSource:   model.SourceNone,
			EmailSource:    model.SourceNone,
		}
	}

	created, err := s.store.CreateLeadsBulk(r.Context(), leads)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "create leads"))
		return
	}

	style := req.MessageStyle
	if style == "" {
		style = "professional"
	}
	for _, l := range created {
		if err := s.enqueuer.Enqueue(r.Context(), l.ID, style); err != nil {
			writeError(w, apperr.Wrap(apperr.KindPermanent, err, "enqueue lead processing"))
			return
		}
	}

	out := make([]leadResponse, len(created))
	for i, l := range created {
		out[i] = toLeadResponse(l)
	}
	writeJSON(w, http.StatusOK, out)
}

type createSingleLeadRequest struct {
	URL          string `json:"url"`
	MessageStyle string `json:"message_style"`
	OwnerID      int64  `json:"owner_id"`
}

// handleCreateSingleLead implements POST /leads/single. Per the
// owner-assignment resolution in SPEC_FULL.md §11.2, the caller's own id is
// always used as owner; a client-supplied owner_id for another user in the
// same organization is rejected as a mismatch rather than silently ignored.
func (s *Server) handleCreateSingleLead(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req createSingleLeadRequest
	if err := decodeJSON(r, &req); err != nil || req.URL == "" {
		badRequest(w, "url is required")
		return
	}
	if req.OwnerID != 0 && req.OwnerID != p.UserID {
		writeError(w, apperr.New(apperr.KindAuthorization, "owner mismatch"))
		return
	}

	ok, remaining, err := s.quota.CanCreateLeads(r.Context(), p.OrganizationID, 1)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "check quota"))
		return
	}
	if !ok {
		writeError(w, apperr.Newf(apperr.KindQuotaExceeded,
			"Cannot create 1 lead. Only %d leads remaining for today.", remaining))
		return
	}

	lead, err := s.store.CreateLead(r.Context(), &model.Lead{
		Website:        req.URL,
		OrganizationID: p.OrganizationID,
		OwnerID:        p.UserID,
		ScrapeSource:   model.SourceNone,
		EmailSource:    model.SourceNone,
	})
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "create lead"))
		return
	}

	style := req.MessageStyle
	if style == "" {
		style = "professional"
	}
	if err := s.enqueuer.Enqueue(r.Context(), lead.ID, style); err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "enqueue lead processing"))
		return
	}

	writeJSON(w, http.StatusOK, toLeadResponse(lead))
}

// handleListLeads implements GET /leads/, tenant-scoped to the caller's
// organization.
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	limit, offset := parseLimitOffset(r)
	leads, err := s.store.ListLeads(r.Context(), store.LeadFilter{
		OrganizationID: p.OrganizationID,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "list leads"))
		return
	}

	out := make([]leadResponse, len(leads))
	for i := range leads {
		out[i] = toLeadResponse(&leads[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func parseLimitOffset(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// handleExportLeads implements GET /leads/export, the CSV export supplement
// from SPEC_FULL.md §12, gated on the organization's CanExport plan flag.
func (s *Server) handleExportLeads(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	canExport, err := s.quota.CanExport(r.Context(), p.OrganizationID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "check export entitlement"))
		return
	}
	if !canExport {
		writeError(w, apperr.New(apperr.KindAuthorization, "plan does not permit export"))
		return
	}

	leads, err := s.store.ListLeads(r.Context(), store.LeadFilter{
		OrganizationID:  p.OrganizationID,
		IncludeInactive: true,
		Limit:           100000,
	})
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "list leads for export"))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=\"leads.csv\"")
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "website", "company_name", "industry", "employees", "score", "qualification_label", "email", "linkedin_url"})
	for _, l := range leads {
		_ = cw.Write([]string{
			strconv.FormatInt(l.ID, 10), l.Website, l.CompanyName, l.Industry,
			string(l.Employees), strconv.FormatFloat(l.Score, 'f', 2, 64),
			string(l.QualificationLabel), l.Email, l.LinkedInURL,
		})
	}
	cw.Flush()
}

func (s *Server) loadOwnedLead(r *http.Request) (*model.Lead, principal, error) {
	p, _ := principalFrom(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return nil, p, apperr.New(apperr.KindValidation, "invalid lead id")
	}
	lead, err := s.store.GetLead(r.Context(), id)
	if err == store.ErrNotFound {
		return nil, p, apperr.New(apperr.KindNotFound, "lead not found")
	}
	if err != nil {
		return nil, p, apperr.Wrap(apperr.KindPermanent, err, "get lead")
	}
	if err := requireOrgMatch(p, lead.OrganizationID); err != nil {
		return nil, p, err
	}
	return lead, p, nil
}

// handleGetLead implements GET /leads/{id}.
func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	lead, _, err := s.loadOwnedLead(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeadResponse(lead))
}

type updateLeadRequest struct {
	CompanyName  *string `json:"company_name"`
	ContactName  *string `json:"contact_name"`
	ContactTitle *string `json:"contact_title"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
}

// handleUpdateLead implements PUT /leads/{id}: manual corrections to a
// handful of user-editable fields. Derived fields (score, sources,
// confidences) are pipeline-owned and not accepted here.
func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	lead, _, err := s.loadOwnedLead(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateLeadRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if req.CompanyName != nil {
		lead.CompanyName = *req.CompanyName
	}
	if req.ContactName != nil {
		lead.ContactName = *req.ContactName
	}
	if req.ContactTitle != nil {
		lead.ContactTitle = *req.ContactTitle
	}
	if req.Email != nil {
		lead.Email = *req.Email
	}
	if req.Phone != nil {
		lead.Phone = *req.Phone
	}

	if err := s.store.UpdateLead(r.Context(), lead); err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "update lead"))
		return
	}
	writeJSON(w, http.StatusOK, toLeadResponse(lead))
}

// handleDeleteLead implements DELETE /leads/{id}, a soft delete per
// spec.md §6.1.
func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	lead, _, err := s.loadOwnedLead(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.SoftDeleteLead(r.Context(), lead.ID); err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "delete lead"))
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type processLeadRequest struct {
	MessageStyle string `json:"message_style"`
}

// handleProcessLead implements POST /leads/{id}/process: re-enqueues the
// pipeline for an existing lead. 403 if the organization's plan disables
// AI, since the messenger stage depends on it.
func (s *Server) handleProcessLead(w http.ResponseWriter, r *http.Request) {
	lead, p, err := s.loadOwnedLead(r)
	if err != nil {
		writeError(w, err)
		return
	}

	canAI, err := s.quota.CanUseAI(r.Context(), p.OrganizationID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "check AI entitlement"))
		return
	}
	if !canAI {
		writeError(w, apperr.New(apperr.KindAuthorization, "plan does not permit AI-backed processing"))
		return
	}

	var req processLeadRequest
	_ = decodeJSON(r, &req)
	style := req.MessageStyle
	if style == "" {
		style = "professional"
	}

	if err := s.enqueuer.Enqueue(r.Context(), lead.ID, style); err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "enqueue lead processing"))
		return
	}
	writeJSON(w, http.StatusAccepted, toLeadResponse(lead))
}
