package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "eduflow-test-pepper")
	SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	code := m.Run()
	os.Remove(pepperPath)

	os.Exit(code)
}

func TestPasswordHasher_Bcrypt(t *testing.T) {
	t.Parallel()

	h := PasswordHasher{Algorithm: AlgorithmBcrypt, BcryptCost: bcrypt.MinCost}
	require.NoError(t, h.Validate())

	hash, err := h.Hash("Student@123")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$2a$"))

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	require.Equal(t, bcrypt.MinCost, cost)

	require.NoError(t, VerifyPassword("Student@123", hash))
	require.ErrorIs(t, VerifyPassword("student@123", hash), ErrPasswordMismatch)
}

func TestPasswordHasher_DefaultsToBcrypt(t *testing.T) {
	t.Parallel()

	var h PasswordHasher
	require.NoError(t, h.Validate())

	hash, err := h.Hash("Teacher@123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	require.Equal(t, DefaultBcryptCost, cost)
}

func TestPasswordHasher_Argon2id(t *testing.T) {
	t.Parallel()

	h := PasswordHasher{Algorithm: "ARGON2ID"}
	require.NoError(t, h.Validate())

	hash, err := h.Hash("Admin@123456")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, VerifyPassword("Admin@123456", hash))
	require.ErrorIs(t, VerifyPassword("Admin@12345", hash), ErrPasswordMismatch)
}

func TestPasswordHasher_Validate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, PasswordHasher{Algorithm: "md5"}.Validate(), ErrUnknownAlgorithm)
	require.ErrorIs(t, PasswordHasher{BcryptCost: 2}.Validate(), ErrBcryptCostInvalid)
	require.ErrorIs(t, PasswordHasher{BcryptCost: 40}.Validate(), ErrBcryptCostInvalid)

	_, err := PasswordHasher{Algorithm: "scrypt"}.Hash("x")
	require.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestPasswordHasher_NeedsRehash(t *testing.T) {
	t.Parallel()

	low := PasswordHasher{BcryptCost: bcrypt.MinCost}
	high := PasswordHasher{BcryptCost: bcrypt.MinCost + 1}
	argon := PasswordHasher{Algorithm: AlgorithmArgon2id}

	lowHash, err := low.Hash("Password1")
	require.NoError(t, err)
	argonHash, err := argon.Hash("Password1")
	require.NoError(t, err)

	require.False(t, low.NeedsRehash(lowHash))
	require.True(t, high.NeedsRehash(lowHash), "cost changed")
	require.True(t, argon.NeedsRehash(lowHash), "algorithm changed")
	require.False(t, argon.NeedsRehash(argonHash))
	require.True(t, low.NeedsRehash(argonHash))
	require.True(t, low.NeedsRehash("garbage"))
}

func TestVerifyPassword_UnrecognizedHash(t *testing.T) {
	for _, hash := range []string{"", "plaintext", "$2a$10$short", "$scrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA"} {
		require.Error(t, VerifyPassword("Password1", hash), hash)
	}
}

func TestGeneratePassword_MeetsPolicy(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		pw, err := GeneratePassword()
		require.NoError(t, err)
		require.Len(t, pw, 16)
		require.True(t, strings.ContainsAny(pw, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
		require.True(t, strings.ContainsAny(pw, "abcdefghijklmnopqrstuvwxyz"))
		require.True(t, strings.ContainsAny(pw, "0123456789"))
		require.False(t, seen[pw], "duplicate password generated")
		seen[pw] = true
	}
}

func TestGenerateNumericCode(t *testing.T) {
	for range 200 {
		code, err := GenerateNumericCode(5)
		require.NoError(t, err)
		require.Len(t, code, 5)
		require.NotEqual(t, byte('0'), code[0])
		for _, c := range code {
			require.True(t, c >= '0' && c <= '9')
		}
	}

	_, err := GenerateNumericCode(0)
	require.Error(t, err)
	_, err = GenerateNumericCode(19)
	require.Error(t, err)
}

func TestDigestHex(t *testing.T) {
	// echo -n 12345 | sha256sum
	require.Equal(t, "5994471abb01112afcc18159f6cc74b4f511b99806da59b3caf5a9c173cacfc5", DigestHex("12345"))
	require.Len(t, DigestHex(""), 64)
	require.NotEqual(t, DigestHex("12345"), DigestHex("12346"))
}
