package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argonParams are the cost settings encoded in a PHC string.
type argonParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// defaultArgon2 is the OWASP minimum profile.
var defaultArgon2 = argonParams{Memory: 19 * 1024, Iterations: 2, Parallelism: 1}

const (
	argonKeyLength  = 32
	argonSaltLength = 16
)

var errMalformedHash = errors.New("invalid hash format")

// HashPassword returns a PHC-format argon2id hash of password plus the
// process pepper.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key, err := argon2Key(password, salt, defaultArgon2, argonKeyLength)
	if err != nil {
		return "", err
	}
	return encodeArgon2id(defaultArgon2, salt, key), nil
}

func verifyArgon2id(password, encodedHash string) error {
	p, salt, want, err := decodeArgon2id(encodedHash)
	if err != nil {
		return err
	}
	got, err := argon2Key(password, salt, p, uint32(len(want))) // #nosec G115
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

func argon2Key(password string, salt []byte, p argonParams, keyLen uint32) ([]byte, error) {
	pepper, err := currentPepper()
	if err != nil {
		return nil, err
	}
	return argon2.IDKey([]byte(password+pepper), salt, p.Iterations, p.Memory, p.Parallelism, keyLen), nil
}

func encodeArgon2id(p argonParams, salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

// decodeArgon2id splits "$argon2id$v=19$m=..,t=..,p=..$salt$key".
func decodeArgon2id(encoded string) (argonParams, []byte, []byte, error) {
	var p argonParams
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return p, nil, nil, fmt.Errorf("%w: expected 6 fields", errMalformedHash)
	}
	if parts[1] != AlgorithmArgon2id {
		return p, nil, nil, ErrUnsupportedHash
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return p, nil, nil, fmt.Errorf("%w: version %q", errMalformedHash, parts[2])
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, fmt.Errorf("%w: params: %w", errMalformedHash, err)
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return p, nil, nil, fmt.Errorf("%w: zero cost parameter", errMalformedHash)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt: %w", errMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: key", errMalformedHash)
	}
	return p, salt, key, nil
}
