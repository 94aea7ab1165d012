// Package auth implements the credential primitives of the service:
// password hashing, recovery secret generation, and JWT session tokens.
package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost follows the library default. Raising it is a config change in
// the hosting environment, not a code change.
const bcryptCost = bcrypt.DefaultCost

// HashPassword hashes a plaintext password with bcrypt. The salt is random
// and embedded in the output, so hashing the same password twice yields
// different strings.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
// A malformed hash yields false, never a panic.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NormalizeAnswer canonicalizes a security-question answer so that case and
// surrounding whitespace do not matter.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// HashSecurityAnswer hashes a security-question answer after normalization.
func HashSecurityAnswer(answer string) (string, error) {
	return HashPassword(NormalizeAnswer(answer))
}

// CheckSecurityAnswer verifies a security-question answer against its stored
// hash, ignoring case and surrounding whitespace.
func CheckSecurityAnswer(answer, hash string) bool {
	return CheckPassword(NormalizeAnswer(answer), hash)
}
