package cryptox

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Supported password hashing algorithms.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"

	DefaultBcryptCost = 10
)

var (
	ErrPasswordMismatch  = errors.New("password does not match")
	ErrUnsupportedHash   = errors.New("invalid hash format: unsupported algorithm")
	ErrUnknownAlgorithm  = errors.New("cryptox: unknown password algorithm")
	ErrBcryptCostInvalid = errors.New("cryptox: bcrypt cost out of range")
)

// PasswordHasher produces new password hashes. Verification does not need a
// hasher because the algorithm is encoded in the stored hash, so accounts
// hashed under an older setting keep working after the setting changes.
type PasswordHasher struct {
	Algorithm  string // bcrypt (default) or argon2id
	BcryptCost int    // 4-31, defaults to DefaultBcryptCost
}

// Validate checks the hasher settings.
func (h PasswordHasher) Validate() error {
	switch h.algorithm() {
	case AlgorithmBcrypt:
		cost := h.cost()
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return fmt.Errorf("%w: %d", ErrBcryptCostInvalid, cost)
		}
		return nil
	case AlgorithmArgon2id:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, h.Algorithm)
	}
}

// Hash hashes password with the configured algorithm.
func (h PasswordHasher) Hash(password string) (string, error) {
	switch h.algorithm() {
	case AlgorithmBcrypt:
		b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost())
		if err != nil {
			return "", err
		}
		return string(b), nil
	case AlgorithmArgon2id:
		return HashPassword(password)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, h.Algorithm)
	}
}

// NeedsRehash reports whether encodedHash was produced with different
// settings than h and should be replaced after a successful login.
func (h PasswordHasher) NeedsRehash(encodedHash string) bool {
	switch {
	case isBcrypt(encodedHash):
		if h.algorithm() != AlgorithmBcrypt {
			return true
		}
		cost, err := bcrypt.Cost([]byte(encodedHash))
		return err != nil || cost != h.cost()
	case strings.HasPrefix(encodedHash, "$argon2id$"):
		if h.algorithm() != AlgorithmArgon2id {
			return true
		}
		p, _, _, err := decodeArgon2id(encodedHash)
		return err != nil || p != defaultArgon2

	default:
		return true
	}
}

func (h PasswordHasher) algorithm() string {
	if h.Algorithm == "" {
		return AlgorithmBcrypt
	}
	return strings.ToLower(h.Algorithm)
}

func (h PasswordHasher) cost() int {
	if h.BcryptCost == 0 {
		return DefaultBcryptCost
	}
	return h.BcryptCost
}

func isBcrypt(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$2a$") ||
		strings.HasPrefix(encodedHash, "$2b$") ||
		strings.HasPrefix(encodedHash, "$2y$")
}

// VerifyPassword compares a plaintext password against a stored bcrypt or
// PHC-style Argon2id hash.
func VerifyPassword(password, encodedHash string) error {
	if isBcrypt(encodedHash) {
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	}
	return verifyArgon2id(password, encodedHash)
}

// GeneratePassword returns a random password that satisfies the account
// password policy (upper, lower and digit). Used for accounts that sign in
// through Google and never type a password.
func GeneratePassword() (string, error) {
	const (
		lower   = "abcdefghijklmnopqrstuvwxyz"
		upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
		digits  = "0123456789"
		charset = lower + upper + digits
		length  = 16
	)

	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, fmt.Errorf("generate password: %w", err)
		}
		return set[n.Int64()], nil
	}

	// One of each required class, the rest from the full set, then shuffled
	// so the required characters are not always in front.
	sets := []string{upper, lower, digits}
	for len(sets) < length {
		sets = append(sets, charset)
	}
	out := make([]byte, length)
	for i, set := range sets {
		c, err := pick(set)
		if err != nil {
			return "", err
		}
		out[i] = c
	}
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}
	return string(out), nil
}
