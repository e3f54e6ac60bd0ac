package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadboost/leadpipe/internal/apperr"
	"github.com/leadboost/leadpipe/internal/config"
)

func testIssuer() *TokenIssuer {
	return NewTokenIssuer(config.AuthConfig{
		SecretKey:          "test-secret",
		AccessTokenExpire:  30 * time.Minute,
		RefreshTokenExpire: 7 * 24 * time.Hour,
	})
}

func TestTokenIssuer_AccessTokenRoundTrip(t *testing.T) {
	iss := testIssuer()
	token, err := iss.IssueAccessToken(42)
	require.NoError(t, err)

	claims, err := iss.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, tokenTypeAccess, claims.Type)
}

func TestTokenIssuer_RefreshTokenRejectedOnAccessVerify(t *testing.T) {
	iss := testIssuer()
	refresh, err := iss.IssueRefreshToken(42)
	require.NoError(t, err)

	_, err = iss.VerifyAccessToken(refresh)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindAuth))
}

func TestTokenIssuer_AccessTokenRejectedOnRefreshVerify(t *testing.T) {
	iss := testIssuer()
	access, err := iss.IssueAccessToken(42)
	require.NoError(t, err)

	_, err = iss.VerifyRefreshToken(access)
	require.Error(t, err)
}

func TestTokenIssuer_RejectsBadSignature(t *testing.T) {
	iss := testIssuer()
	other := NewTokenIssuer(config.AuthConfig{SecretKey: "different-secret", AccessTokenExpire: time.Minute})
	token, err := iss.IssueAccessToken(1)
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestTokenIssuer_RejectsExpiredToken(t *testing.T) {
	iss := NewTokenIssuer(config.AuthConfig{SecretKey: "test-secret", AccessTokenExpire: -time.Minute})
	token, err := iss.IssueAccessToken(1)
	require.NoError(t, err)

	_, err = iss.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestHashPassword_VerifiesCorrectly(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, VerifyPassword("correct horse battery staple", hash))
	assert.False(t, VerifyPassword("wrong password", hash))
}

func TestHashPassword_TruncatesAt72Bytes(t *testing.T) {
	long := strings.Repeat("a", 100)
	hash, err := HashPassword(long)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(long, hash))
	assert.True(t, VerifyPassword(strings.Repeat("a", 72), hash))
}

func TestHashPasswordPBKDF2_VerifiesCorrectly(t *testing.T) {
	hash, err := HashPasswordPBKDF2("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, pbkdf2Prefix))
	assert.True(t, VerifyPassword("correct horse battery staple", hash))
	assert.False(t, VerifyPassword("wrong password", hash))
}

func TestGenerateAPIKey_FormatAndHash(t *testing.T) {
	key, err := GenerateAPIKey("lb_")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key.Plaintext, "lb_"))
	assert.Len(t, key.LookupPrefix, apiKeyLookupChars)
	assert.Equal(t, key.LookupPrefix, LookupPrefix("lb_", key.Plaintext))
	assert.Equal(t, HashAPIKey(key.Plaintext), key.SecretHash)
}

func TestGenerateAPIKey_UniquePerCall(t *testing.T) {
	a, err := GenerateAPIKey("lb_")
	require.NoError(t, err)
	b, err := GenerateAPIKey("lb_")
	require.NoError(t, err)
	assert.NotEqual(t, a.Plaintext, b.Plaintext)
}
