package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadboost/leadpipe/internal/apperr"
	"github.com/leadboost/leadpipe/internal/auth"
	"github.com/leadboost/leadpipe/internal/store"
)

// principal is the authenticated caller attached to the request context by
// requireAuth, carrying the tenant-scoping fields every handler checks.
type principal struct {
	UserID         int64
	OrganizationID int64
}

type principalCtxKey struct{}

func principalFrom(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(principal)
	return p, ok
}

// requireAuth accepts either a bearer access token or an X-API-Key header,
// per spec.md §6.2 and the API-key scoped access supplement in
// SPEC_FULL.md §12.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("X-API-Key"); key != "" {
			p, err := s.authenticateAPIKey(r.Context(), key)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalCtxKey{}, p)))
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, apperr.New(apperr.KindAuth, "missing bearer token"))
			return
		}

		claims, err := s.tokens.VerifyAccessToken(token)
		if err != nil {
			writeError(w, err)
			return
		}

		user, err := s.store.GetUser(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, apperr.New(apperr.KindAuth, "user not found"))
			return
		}
		if !user.IsActive {
			writeError(w, apperr.New(apperr.KindAuth, "user is inactive"))
			return
		}

		p := principal{UserID: user.ID, OrganizationID: user.OrganizationID}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalCtxKey{}, p)))
	})
}

func (s *Server) authenticateAPIKey(ctx context.Context, presented string) (principal, error) {
	prefix := auth.LookupPrefix(s.cfg.Auth.APIKeyPrefix, presented)
	key, err := s.store.GetAPIKeyByPrefix(ctx, prefix)
	if err == store.ErrNotFound {
		return principal{}, apperr.New(apperr.KindAuth, "invalid api key")
	}
	if err != nil {
		return principal{}, apperr.Wrap(apperr.KindAuth, err, "api key lookup")
	}
	if key.IsRevoked || !key.IsActive {
		return principal{}, apperr.New(apperr.KindAuth, "api key revoked")
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
		return principal{}, apperr.New(apperr.KindAuth, "api key expired")
	}
	if auth.HashAPIKey(presented) != key.KeyHash {
		return principal{}, apperr.New(apperr.KindAuth, "invalid api key")
	}
	return principal{UserID: key.UserID, OrganizationID: key.OrganizationID}, nil
}

// requestLogger logs each request's outcome, matching the api_call log
// event shape from spec.md §6.5. Each request is tagged with a generated
// request id, echoed on the response and carried through the log line, so
// a single call can be traced across the handler and any stage logs it
// triggers indirectly (e.g. an enqueue that shows up in a workflow log).
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		var userID, orgID int64
		if p, ok := principalFrom(r.Context()); ok {
			userID, orgID = p.UserID, p.OrganizationID
		}

		zap.L().Info("api_call",
			zap.String("request_id", requestID),
			zap.String("endpoint", r.URL.Path),
			zap.String("method", r.Method),
			zap.Int64("user_id", userID),
			zap.Int64("organization_id", orgID),
			zap.Int64("response_time_ms", time.Since(start).Milliseconds()),
			zap.Int("status_code", rec.status),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requireOrgMatch returns an AuthorizationError unless orgID matches the
// caller's own organization, per the tenant-scoping rule in spec.md §5.
func requireOrgMatch(p principal, orgID int64) error {
	if p.OrganizationID != orgID {
		return apperr.New(apperr.KindAuthorization, "organization mismatch")
	}
	return nil
}
