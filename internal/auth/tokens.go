// Package auth implements token issuance/verification, password hashing,
// and API-key generation for the HTTP API, per spec.md §6.2.
package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"

	"github.com/leadboost/leadpipe/internal/apperr"
	"github.com/leadboost/leadpipe/internal/config"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims is the JWT payload shape for both access and refresh tokens.
type Claims struct {
	UserID int64  `json:"sub_id"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens per spec.md §6.2.
type TokenIssuer struct {
	secret        []byte
	accessExpire  time.Duration
	refreshExpire time.Duration
}

// NewTokenIssuer builds a TokenIssuer from auth configuration.
func NewTokenIssuer(cfg config.AuthConfig) *TokenIssuer {
	return &TokenIssuer{
		secret:        []byte(cfg.SecretKey),
		accessExpire:  cfg.AccessTokenExpire,
		refreshExpire: cfg.RefreshTokenExpire,
	}
}

// IssueAccessToken creates a short-lived access token for userID.
func (t *TokenIssuer) IssueAccessToken(userID int64) (string, error) {
	return t.issue(userID, tokenTypeAccess, t.accessExpire)
}

// IssueRefreshToken creates a long-lived refresh token for userID.
func (t *TokenIssuer) IssueRefreshToken(userID int64) (string, error) {
	return t.issue(userID, tokenTypeRefresh, t.refreshExpire)
}

func (t *TokenIssuer) issue(userID int64, typ string, expire time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expire)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", eris.Wrap(err, "auth: sign token")
	}
	return signed, nil
}

// VerifyAccessToken parses token and requires claims.type == "access".
func (t *TokenIssuer) VerifyAccessToken(tokenString string) (*Claims, error) {
	return t.verify(tokenString, tokenTypeAccess)
}

// VerifyRefreshToken parses token and requires claims.type == "refresh".
//
// Both verifiers share the same type check with a different expected
// value, so an access token is rejected here and a refresh token is
// rejected by VerifyAccessToken on access-protected routes.
func (t *TokenIssuer) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return t.verify(tokenString, tokenTypeRefresh)
}

func (t *TokenIssuer) verify(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, eris.Newf("auth: unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAuth, err, "auth: invalid token")
	}
	if !token.Valid {
		return nil, apperr.New(apperr.KindAuth, "auth: token not valid")
	}
	if claims.Type != wantType || claims.UserID == 0 {
		return nil, apperr.Newf(apperr.KindAuth, "auth: expected %s token", wantType)
	}
	return claims, nil
}
