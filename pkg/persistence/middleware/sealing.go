package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/ports"
)

// SealedPrefix marks a script stored encrypted.
const SealedPrefix = "sealed:v1:"

// ErrNotSealed is returned by Load when a stored script is in plain text.
var ErrNotSealed = errors.New("script is not sealed")

// SealingConfig holds the keys for encryption and decryption.
type SealingConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot open a
	// script, which allows rotating keys without rewriting the store.
	FallbackKeys [][]byte
}

type sealingMiddleware struct {
	next   ports.SnapshotStore
	config SealingConfig
}

// NewSealingMiddleware encrypts node scripts with AES-GCM before they reach
// the wrapped store. Graph structure, parameters and the version stay in
// the clear.
func NewSealingMiddleware(config SealingConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, fmt.Errorf("active key must be 32 bytes (AES-256), got %d", len(config.ActiveKey))
	}
	for i, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d must be 32 bytes (AES-256), got %d", i, len(k))
		}
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &sealingMiddleware{next: next, config: config}
	}, nil
}

func (m *sealingMiddleware) Save(ctx context.Context, snap *domain.Snapshot) error {
	sealed := snap.Clone()
	for i, n := range sealed.Nodes {
		ciphertext, err := encrypt([]byte(n.Script), m.config.ActiveKey)
		if err != nil {
			return fmt.Errorf("failed to seal script of %s: %w", n.ID, err)
		}
		sealed.Nodes[i].Script = SealedPrefix + base64.StdEncoding.EncodeToString(ciphertext)
	}
	return m.next.Save(ctx, sealed)
}

func (m *sealingMiddleware) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap, err := m.next.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := snap.Clone()
	for i, n := range out.Nodes {
		encoded, ok := strings.CutPrefix(n.Script, SealedPrefix)
		if !ok {
			return nil, fmt.Errorf("node %s: %w", n.ID, ErrNotSealed)
		}
		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("node %s: failed to decode ciphertext base64: %w", n.ID, err)
		}
		plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
		if err != nil {
			return nil, fmt.Errorf("node %s: failed to open script: %w", n.ID, err)
		}
		out.Nodes[i].Script = string(plain)
	}
	return out, nil
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// ParseKey decodes a base64 AES-256 key as found in configuration.
func ParseKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid key encoding: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes (AES-256), got %d", len(key))
	}
	return key, nil
}
