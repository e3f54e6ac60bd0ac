// Package httpapi implements the v2 JSON REST surface from spec.md §6.1
// with chi, mirroring the teacher codebase's router-per-domain layout.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/leadboost/leadpipe/internal/auth"
	"github.com/leadboost/leadpipe/internal/config"
	"github.com/leadboost/leadpipe/internal/orchestrator"
	"github.com/leadboost/leadpipe/internal/quota"
	"github.com/leadboost/leadpipe/internal/store"
)

// version is reported by GET /health.
const version = "0.1.0"

// Server bundles every dependency the route handlers need. Outreach
// message generation itself happens inside the orchestrator's pipeline,
// never synchronously in a handler, so Server holds no messenger.
type Server struct {
	cfg      *config.Config
	store    store.Store
	tokens   *auth.TokenIssuer
	quota    *quota.Gate
	enqueuer *orchestrator.Enqueuer
}

// New creates a Server from its dependencies.
func New(cfg *config.Config, st store.Store, tokens *auth.TokenIssuer, gate *quota.Gate, enqueuer *orchestrator.Enqueuer) *Server {
	return &Server{cfg: cfg, store: st, tokens: tokens, quota: gate, enqueuer: enqueuer}
}

// handleHealth implements GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Service: "leadpipe", Version: version})
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// Router builds the full chi.Mux for the API, per spec.md §6.1.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
	}))

	r.Get("/health", s.handleHealth)

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Post("/refresh", s.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/me", s.handleGetMe)
		r.Put("/me", s.handleUpdateMe)

		r.Route("/leads", func(r chi.Router) {
			r.Post("/", s.handleCreateLeads)
			r.Get("/", s.handleListLeads)
			r.Get("/export", s.handleExportLeads)
			r.Post("/single", s.handleCreateSingleLead)
			r.Get("/{id}", s.handleGetLead)
			r.Put("/{id}", s.handleUpdateLead)
			r.Delete("/{id}", s.handleDeleteLead)
			r.Post("/{id}/process", s.handleProcessLead)
		})

		r.Route("/organizations", func(r chi.Router) {
			r.Post("/", s.handleCreateOrganization)
			r.Get("/", s.handleListOrganizations)
			r.Get("/{id}", s.handleGetOrganization)
			r.Put("/{id}", s.handleUpdateOrganization)
		})

		r.Route("/billing", func(r chi.Router) {
			r.Get("/usage", s.handleBillingUsage)
			r.Post("/upgrade", s.handleBillingUpgrade)
			r.Get("/plans", s.handleBillingPlans)
			r.Post("/cancel", s.handleBillingCancel)
		})
	})

	return r
}
