package service

import (
	"strings"
	"time"

	"github.com/eduflowhub/eduflow/pkg/cryptox"
)

const (
	VerificationCodeDigits = 5
	DefaultVerificationTTL = 5 * time.Minute
)

// VerificationCode is a freshly generated code. Only Digest and ExpiresAt
// are persisted; Code goes into the email and nowhere else.
type VerificationCode struct {
	Code      string
	Digest    string
	ExpiresAt time.Time
}

// VerificationCodes generates and hashes email verification codes.
type VerificationCodes struct {
	TTL time.Duration
	Now func() time.Time
}

func (v VerificationCodes) Generate() (VerificationCode, error) {
	code, err := cryptox.GenerateNumericCode(VerificationCodeDigits)
	if err != nil {
		return VerificationCode{}, err
	}
	return VerificationCode{
		Code:      code,
		Digest:    v.Hash(code),
		ExpiresAt: v.now().Add(v.ttl()),
	}, nil
}

// Hash is the one-way digest a presented code is compared by.
func (v VerificationCodes) Hash(raw string) string {
	return cryptox.DigestHex(strings.TrimSpace(raw))
}

func (v VerificationCodes) now() time.Time {
	if v.Now == nil {
		return time.Now().UTC()
	}
	return v.Now().UTC()
}

func (v VerificationCodes) ttl() time.Duration {
	if v.TTL <= 0 {
		return DefaultVerificationTTL
	}
	return v.TTL
}
