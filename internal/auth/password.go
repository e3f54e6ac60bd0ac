package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/rotisserie/eris"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	bcryptMaxBytes   = 72
	pbkdf2Prefix     = "pbkdf2_"
	pbkdf2Iterations = 100_000
	pbkdf2SaltBytes  = 16
	pbkdf2KeyBytes   = 32
)

// HashPassword hashes password with bcrypt, truncating the input to
// bcryptMaxBytes per spec.md §6.2 (bcrypt's own hard limit).
func HashPassword(password string) (string, error) {
	pw := []byte(password)
	if len(pw) > bcryptMaxBytes {
		pw = pw[:bcryptMaxBytes]
	}
	hash, err := bcrypt.GenerateFromPassword(pw, bcrypt.DefaultCost)
	if err != nil {
		return "", eris.Wrap(err, "auth: hash password")
	}
	return string(hash), nil
}

// HashPasswordPBKDF2 is the fallback scheme used when bcrypt is
// unavailable, storing `pbkdf2_${salt_hex}${digest_hex}`.
func HashPasswordPBKDF2(password string) (string, error) {
	salt := make([]byte, pbkdf2SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", eris.Wrap(err, "auth: generate salt")
	}
	digest := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyBytes, sha256.New)
	return pbkdf2Prefix + hex.EncodeToString(salt) + hex.EncodeToString(digest), nil
}

// VerifyPassword checks password against hash, detecting the storage
// format by the pbkdf2_ prefix.
func VerifyPassword(password, hash string) bool {
	if len(hash) > len(pbkdf2Prefix) && hash[:len(pbkdf2Prefix)] == pbkdf2Prefix {
		return verifyPBKDF2(password, hash)
	}
	pw := []byte(password)
	if len(pw) > bcryptMaxBytes {
		pw = pw[:bcryptMaxBytes]
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), pw) == nil
}

func verifyPBKDF2(password, hash string) bool {
	rest := hash[len(pbkdf2Prefix):]
	saltHexLen := pbkdf2SaltBytes * 2
	if len(rest) <= saltHexLen {
		return false
	}
	saltHex, digestHex := rest[:saltHexLen], rest[saltHexLen:]

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	wantDigest, err := hex.DecodeString(digestHex)
	if err != nil {
		return false
	}
	gotDigest := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyBytes, sha256.New)
	return subtle.ConstantTimeCompare(gotDigest, wantDigest) == 1
}
