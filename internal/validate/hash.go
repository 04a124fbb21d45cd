package validate

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const saltBytes = 16

// GenerateSalt returns 16 cryptographically random bytes, hex encoded.
// It fails loudly when no secure random source is available; there is no
// fallback to a weak generator.
func GenerateSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("secure random source unavailable: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashPassword computes the hex SHA-256 digest of password+salt. The salt is
// a plain suffix, not a KDF input; this digest is a client-side integrity
// helper and must not be used as stored credential material. The provider
// side hashes credentials with argon2id.
func HashPassword(password, salt string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	if salt == "" {
		return "", fmt.Errorf("salt cannot be empty")
	}
	sum := sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(sum[:]), nil
}
