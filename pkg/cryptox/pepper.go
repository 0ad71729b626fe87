package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// The pepper is a server-side secret appended to passwords before argon2id
// hashing. bcrypt hashes do not use it. It lives in a file next to the
// database so a leaked database alone is not enough to brute force hashes.
var (
	pepperMu   sync.Mutex
	pepper     string
	pepperFile = "pepper"
)

const pepperSize = 32

// SetPepperPath points the pepper at file and drops any cached value.
func SetPepperPath(file string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()
	pepperFile = file
	pepper = ""
}

// LoadPepper reads the pepper file, creating it with a fresh random value
// when missing. Call it at startup so a bad path fails fast.
func LoadPepper() error {
	_, err := currentPepper()
	return err
}

func currentPepper() (string, error) {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	if pepper != "" {
		return pepper, nil
	}
	p, err := loadOrCreatePepper(filepath.Clean(pepperFile))
	if err != nil {
		return "", fmt.Errorf("cryptox: pepper %s: %w", pepperFile, err)
	}
	pepper = p
	return pepper, nil
}

func loadOrCreatePepper(file string) (string, error) {
	b, err := os.ReadFile(file)
	if err == nil {
		p := strings.TrimSpace(string(b))
		if p == "" {
			return "", errors.New("file is empty")
		}
		return p, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
		return "", err
	}
	raw := make([]byte, pepperSize)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	p := base64.RawURLEncoding.EncodeToString(raw)
	if err := os.WriteFile(file, []byte(p), 0o600); err != nil {
		return "", err
	}
	return p, nil
}
