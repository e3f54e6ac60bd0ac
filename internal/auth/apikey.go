package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/rotisserie/eris"
)

const (
	apiKeyRandomBytes = 32
	apiKeyLookupChars = 8
)

// GeneratedAPIKey holds the raw secret (shown to the caller exactly once)
// alongside the pieces persisted to the store.
type GeneratedAPIKey struct {
	Plaintext    string // lb_<random>, returned to the caller only on creation
	LookupPrefix string // first apiKeyLookupChars chars after "lb_"
	SecretHash   string // sha256 hex of Plaintext, stored for verification
}

// GenerateAPIKey creates a new key formatted `lb_` + 32 bytes of
// URL-safe random token, per spec.md §6.3.
func GenerateAPIKey(prefix string) (*GeneratedAPIKey, error) {
	buf := make([]byte, apiKeyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, eris.Wrap(err, "auth: generate api key")
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	plaintext := prefix + token

	lookup := token
	if len(lookup) > apiKeyLookupChars {
		lookup = lookup[:apiKeyLookupChars]
	}

	return &GeneratedAPIKey{
		Plaintext:    plaintext,
		LookupPrefix: lookup,
		SecretHash:   HashAPIKey(plaintext),
	}, nil
}

// HashAPIKey hashes a presented plaintext key for comparison against the
// stored SecretHash.
func HashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// LookupPrefix extracts the lookup prefix from a presented key, matching
// the prefix stored alongside the hashed secret at creation time.
func LookupPrefix(prefix, plaintext string) string {
	rest := plaintext
	if len(plaintext) >= len(prefix) && plaintext[:len(prefix)] == prefix {
		rest = plaintext[len(prefix):]
	}
	if len(rest) > apiKeyLookupChars {
		rest = rest[:apiKeyLookupChars]
	}
	return rest
}
