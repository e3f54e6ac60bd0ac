package httpapi

import (
	"net/http"

	"github.com/leadboost/leadpipe/internal/apperr"
	"github.com/leadboost/leadpipe/internal/auth"
	"github.com/leadboost/leadpipe/internal/model"
	"github.com/leadboost/leadpipe/internal/store"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type registerResponse struct {
	UserID         int64  `json:"user_id"`
	OrganizationID int64  `json:"organization_id"`
	Email          string `json:"email"`
	Plan           string `json:"plan"`
}

// handleRegister implements POST /register: creates a User and a per-user
// Organization, assigns the default plan, per spec.md §6.1.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil || req.Email == "" || req.Password == "" {
		badRequest(w, "email and password are required")
		return
	}

	if _, err := s.store.GetUserByEmail(r.Context(), req.Email); err != store.ErrNotFound {
		if err == nil {
			badRequest(w, "email already registered")
			return
		}
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "register: check existing email"))
		return
	}

	org, err := s.store.CreateOrganization(r.Context(), &model.Organization{
		Name: req.Email + "'s organization",
	})
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "register: create organization"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "register: hash password"))
		return
	}

	user, err := s.store.CreateUser(r.Context(), &model.User{
		OrganizationID: org.ID,
		Email:          req.Email,
		PasswordHash:   hash,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		IsActive:       true,
	})
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "register: create user"))
		return
	}

	planName := s.quota.DefaultPlanName()
	if _, err := s.quota.AssignPlan(r.Context(), org.ID, planName); err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "register: assign default plan"))
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{
		UserID:         user.ID,
		OrganizationID: org.ID,
		Email:          user.Email,
		Plan:           planName,
	})
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	UserID       int64  `json:"user_id"`
	Email        string `json:"email"`
}

// handleLogin implements POST /login: form-encoded username/password per
// spec.md §6.1.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, "malformed form body")
		return
	}
	username := r.FormValue("username")
	password := r.FormValue("password")

	user, err := s.store.GetUserByEmail(r.Context(), username)
	if err == store.ErrNotFound {
		writeError(w, apperr.New(apperr.KindAuth, "invalid credentials"))
		return
	}
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "login: load user"))
		return
	}
	if !user.IsActive || !auth.VerifyPassword(password, user.PasswordHash) {
		writeError(w, apperr.New(apperr.KindAuth, "invalid credentials"))
		return
	}

	access, refresh, err := s.issueTokenPair(user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		UserID:       user.ID,
		Email:        user.Email,
	})
}

func (s *Server) issueTokenPair(userID int64) (access, refresh string, err error) {
	access, err = s.tokens.IssueAccessToken(userID)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindPermanent, err, "issue access token")
	}
	refresh, err = s.tokens.IssueRefreshToken(userID)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindPermanent, err, "issue refresh token")
	}
	return access, refresh, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// handleRefresh implements POST /refresh per spec.md §6.1 and the
// symmetric-verification resolution in SPEC_FULL.md §11.1.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		badRequest(w, "refresh_token is required")
		return
	}

	claims, err := s.tokens.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	access, refresh, err := s.issueTokenPair(claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"})
}

type userResponse struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:             u.ID,
		OrganizationID: u.OrganizationID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
	}
}

// handleGetMe implements GET /me.
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	user, err := s.store.GetUser(r.Context(), p.UserID)
	if err != nil {
		writeError(w, apperr.New(apperr.KindNotFound, "user not found"))
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

type updateMeRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// handleUpdateMe implements PUT /me.
func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	user, err := s.store.GetUser(r.Context(), p.UserID)
	if err != nil {
		writeError(w, apperr.New(apperr.KindNotFound, "user not found"))
		return
	}

	var req updateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}

	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		writeError(w, apperr.Wrap(apperr.KindPermanent, err, "update user"))
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}
