// file: internal/database/secrets.go
// version: 1.0.0
// guid: 3c5e7a9b-1d3f-4b5d-8e7a-9c1e3f5b7d9a

package database

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// sealedPrefix marks values sealed with the AES-256-GCM key.
const sealedPrefix = "v1:"

// encryptionKeyFile is created next to the database.
const encryptionKeyFile = ".encryption_key"

// ErrNoEncryptionKey is returned when secrets are used before a key is set.
var ErrNoEncryptionKey = errors.New("encryption key not initialized")

var (
	aeadMu sync.RWMutex
	aead   cipher.AEAD
)

// InitEncryption loads the key stored in dataDir, creating it on first use.
func InitEncryption(dataDir string) error {
	keyPath := filepath.Join(dataDir, encryptionKeyFile)
	key, err := os.ReadFile(keyPath)
	if errors.Is(err, os.ErrNotExist) {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return fmt.Errorf("failed to generate encryption key: %w", err)
		}
		if err := os.WriteFile(keyPath, key, 0o600); err != nil {
			return fmt.Errorf("failed to save encryption key: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to read encryption key: %w", err)
	}
	return SetEncryptionKey(key)
}

// SetEncryptionKey installs a 32 byte AES-256 key.
func SetEncryptionKey(key []byte) error {
	if len(key) != 32 {
		return fmt.Errorf("invalid encryption key length: %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}

	aeadMu.Lock()
	aead = gcm
	aeadMu.Unlock()
	return nil
}

func currentAEAD() (cipher.AEAD, error) {
	aeadMu.RLock()
	defer aeadMu.RUnlock()
	if aead == nil {
		return nil, ErrNoEncryptionKey
	}
	return aead, nil
}

// EncryptValue seals plaintext with a random nonce.
func EncryptValue(plaintext string) (string, error) {
	gcm, err := currentAEAD()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// DecryptValue opens a value produced by EncryptValue.
func DecryptValue(value string) (string, error) {
	gcm, err := currentAEAD()
	if err != nil {
		return "", err
	}
	encoded, ok := strings.CutPrefix(value, sealedPrefix)
	if !ok {
		return "", errors.New("value is not sealed")
	}
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("malformed sealed value: %w", err)
	}
	if len(sealed) < gcm.NonceSize() {
		return "", errors.New("sealed value too short")
	}
	plain, err := gcm.Open(nil, sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// MaskSecret keeps the first three and last four characters of secrets
// long enough to stay unguessable.
func MaskSecret(secret string) string {
	if len(secret) < 8 {
		return "****"
	}
	return secret[:3] + "****" + secret[len(secret)-4:]
}
