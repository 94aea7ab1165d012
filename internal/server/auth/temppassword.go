package auth

import (
	"crypto/rand"
	"math/big"
)

const (
	tempPasswordLength = 12

	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*"
)

// GenerateTemporaryPassword produces a 12-character password with at least
// one uppercase letter, one lowercase letter, one digit, and one special
// character. The remaining characters are drawn uniformly from all pools and
// the result is shuffled so the guaranteed characters are not positional.
func GenerateTemporaryPassword() (string, error) {
	pools := []string{upperChars, lowerChars, digitChars, specialChars}

	password := make([]byte, 0, tempPasswordLength)
	for _, pool := range pools {
		c, err := randomChar(pool)
		if err != nil {
			return "", err
		}
		password = append(password, c)
	}

	all := upperChars + lowerChars + digitChars + specialChars
	for len(password) < tempPasswordLength {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		password = append(password, c)
	}

	// Fisher–Yates with CSPRNG indexes.
	for i := len(password) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		password[i], password[j] = password[j], password[i]
	}

	return string(password), nil
}

func randomChar(pool string) (byte, error) {
	i, err := randomInt(len(pool))
	if err != nil {
		return 0, err
	}
	return pool[i], nil
}

func randomInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
