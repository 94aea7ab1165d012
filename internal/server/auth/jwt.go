package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dgtwins/ms-auth/internal/common"
)

// Claims carries the session assertion: the subject email in the registered
// claims plus the role.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// GenerateToken issues an HS256-signed session token for the given subject.
// The expiry is always now + ttl; tokens are never extended or revoked.
func GenerateToken(email, role string, secretKey []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates a session token and returns its subject email and
// role. Signature mismatch, expiry, malformed structure, and a missing
// subject all collapse into common.ErrInvalidCredentials so the caller
// cannot tell them apart.
func ParseToken(tokenString string, secretKey []byte) (email, role string, err error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", "", common.ErrInvalidCredentials
	}

	if claims.Subject == "" {
		return "", "", common.ErrInvalidCredentials
	}

	return claims.Subject, claims.Role, nil
}
