package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrDecryptionFailed covers malformed blobs and authentication failures
// alike; callers get no detail about which.
var ErrDecryptionFailed = errors.New("security: decryption failed")

const gcmNonceSize = 12

// deriveKey pads the key string with '0' and truncates to the 32 bytes
// AES-256 needs, mirroring the legacy key handling byte for byte.
func deriveKey(key string) []byte {
	derived := make([]byte, 32)
	copy(derived, key)
	for i := len(key); i < 32; i++ {
		derived[i] = '0'
	}
	return derived
}

// Encrypt seals data with AES-256-GCM under a key derived from the key
// string. The random nonce is prepended and the whole blob base64-encoded.
func Encrypt(data, key string) (string, error) {
	block, err := aes.NewCipher(deriveKey(key))
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return "", fmt.Errorf("new gcm: %w", err)
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(data), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any malformed or tampered input yields
// ErrDecryptionFailed.
func Decrypt(blob, key string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	if len(raw) < gcmNonceSize {
		return "", ErrDecryptionFailed
	}

	block, err := aes.NewCipher(deriveKey(key))
	if err != nil {
		return "", ErrDecryptionFailed
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	nonce, ciphertext := raw[:gcmNonceSize], raw[gcmNonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}
