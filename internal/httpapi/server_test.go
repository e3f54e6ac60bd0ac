package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leadboost/leadpipe/internal/auth"
	"github.com/leadboost/leadpipe/internal/config"
	"github.com/leadboost/leadpipe/internal/quota"
	"github.com/leadboost/leadpipe/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(t.Context()))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			SecretKey:          "test-secret",
			AccessTokenExpire:  30 * time.Minute,
			RefreshTokenExpire: 7 * 24 * time.Hour,
		},
		Plans: config.PlansConfig{
			Free:    config.PlanLimits{MaxLeadsPerDay: 10, CanExport: false, CanUseAI: false},
			Pro:     config.PlanLimits{MaxLeadsPerDay: 500, CanExport: true, CanUseAI: true},
			Default: "free",
		},
		Server: config.ServerConfig{AllowedOrigins: []string{"*"}},
	}
	tokens := auth.NewTokenIssuer(cfg.Auth)
	catalog := quota.NewPlanCatalog(cfg.Plans)
	gate := quota.NewGate(st, catalog)

	return New(cfg, st, tokens, gate, nil), st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "healthy", body.Status)
}

func TestRegisterLoginMe(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	rec := doJSON(t, router, http.MethodPost, "/register", registerRequest{
		Email: "a@b.co", Password: "hunter22",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var reg registerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	require.Equal(t, "free", reg.Plan)
	require.NotZero(t, reg.UserID)

	form := "username=a@b.co&password=hunter22"
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)

	var login loginResponse
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &login))
	require.NotEmpty(t, login.AccessToken)

	rec3 := doJSON(t, router, http.MethodGet, "/me", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, rec3.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	req := registerRequest{Email: "dup@b.co", Password: "hunter22"}
	rec := doJSON(t, router, http.MethodPost, "/register", req, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec2 := doJSON(t, router, http.MethodPost, "/register", req, "")
	require.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestLoginBadCredentials(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	form := "username=nobody@b.co&password=wrong"
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodGet, "/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

// registerAndLogin creates a fresh account and returns its access token and
// organization id, for tests that need an authenticated principal.
func registerAndLogin(t *testing.T, router http.Handler, email string) (token string, orgID int64) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/register", registerRequest{Email: email, Password: "hunter22"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var reg registerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))

	form := "username=" + email + "&password=hunter22"
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)
	var login loginResponse
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &login))

	return login.AccessToken, reg.OrganizationID
}

func TestListLeadsEmpty(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()
	token, _ := registerAndLogin(t, router, "leads@b.co")

	rec := doJSON(t, router, http.MethodGet, "/leads/", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var leads []leadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leads))
	require.Empty(t, leads)
}

func TestGetLeadNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()
	token, _ := registerAndLogin(t, router, "notfound@b.co")

	rec := doJSON(t, router, http.MethodGet, "/leads/999", nil, token)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportLeadsForbiddenOnFreePlan(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()
	token, _ := registerAndLogin(t, router, "export@b.co")

	rec := doJSON(t, router, http.MethodGet, "/leads/export", nil, token)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrganizationsGetOwn(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()
	token, orgID := registerAndLogin(t, router, "org@b.co")

	rec := doJSON(t, router, http.MethodGet, "/organizations/", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var orgs []organizationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orgs))
	require.Len(t, orgs, 1)
	require.Equal(t, orgID, orgs[0].ID)
}

func TestOrganizationsCrossTenantForbidden(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()
	tokenA, _ := registerAndLogin(t, router, "tenant-a@b.co")
	_, orgB := registerAndLogin(t, router, "tenant-b@b.co")

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/organizations/%d", orgB), nil, tokenA)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBillingUsageAndPlans(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()
	token, _ := registerAndLogin(t, router, "billing@b.co")

	rec := doJSON(t, router, http.MethodGet, "/billing/usage", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var usage planUsageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usage))
	require.Equal(t, "free", usage.PlanName)
	require.Equal(t, 10, usage.MaxLeadsPerDay)

	rec2 := doJSON(t, router, http.MethodGet, "/billing/plans", nil, token)
	require.Equal(t, http.StatusOK, rec2.Code)
}

func TestBillingUpgradeUnknownPlan(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()
	token, _ := registerAndLogin(t, router, "upgrade@b.co")

	rec := doJSON(t, router, http.MethodPost, "/billing/upgrade?plan_name=nonexistent", nil, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
