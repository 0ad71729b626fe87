package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateNumericCode returns a uniformly random decimal code with exactly
// digits digits and no leading zero, e.g. 10000-99999 for digits=5.
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", fmt.Errorf("code length must be 1-18 digits, got %d", digits)
	}

	lo := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
	hi := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	span := new(big.Int).Sub(hi, lo)

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return n.Add(n, lo).String(), nil
}

// DigestHex returns the lowercase hex SHA-256 of value. Used for values that
// are looked up by equality (verification codes), where a slow hash would
// make the lookup impossible.
func DigestHex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
