package app

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
)

const secretLength = 48

// loadOrGenerateSecret reads the token signing secret from file, creating
// one on first start.
func loadOrGenerateSecret(file string) ([]byte, error) {
	file = filepath.Clean(file)
	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return nil, err
	}

	if _, err := os.Stat(file); os.IsNotExist(err) {
		secret := make([]byte, secretLength)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		if err := os.WriteFile(file, secret, 0600); err != nil {
			return nil, err
		}
		return secret, nil
	}

	secret, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return bytes.TrimSpace(secret), nil
}
