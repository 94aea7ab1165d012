package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"
)

// resetTokenBytes is the entropy of a long reset token. 32 bytes encode to
// 43 URL-safe characters.
const resetTokenBytes = 32

var codeRange = big.NewInt(1000000)

// GenerateResetToken returns a URL-safe random token for the long recovery
// path.
func GenerateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateResetCode returns a zero-padded 6-digit code drawn uniformly from
// [000000, 999999] using the CSPRNG. rand.Int rejects values past the last
// full range, so there is no modulo bias.
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeRange)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ExpiryAt computes an expiry timestamp d from now, in UTC. Using a fixed
// reference zone keeps comparisons stable regardless of the server timezone.
func ExpiryAt(d time.Duration) time.Time {
	return time.Now().UTC().Add(d)
}

// SecretValid reports whether a stored expiry is present and in the future.
// Timestamps loaded without zone information are normalized to UTC before
// comparison.
func SecretValid(expiry *time.Time) bool {
	if expiry == nil {
		return false
	}
	return expiry.UTC().After(time.Now().UTC())
}
