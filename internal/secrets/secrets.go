// Package secrets encrypts per-business gateway credentials at rest using
// AES-GCM keyed from a server-side secret.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrEncryptionKeyMissing = errors.New("encryption_key_missing")
	ErrInvalidCiphertext    = errors.New("invalid_ciphertext")
)

type envelope struct {
	Version    int    `json:"version"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Box seals and opens small secrets with a key derived from the
// configured passphrase.
type Box struct {
	key []byte
}

func NewBox(passphrase string) *Box {
	passphrase = strings.TrimSpace(passphrase)
	if passphrase == "" {
		return &Box{}
	}
	sum := sha256.Sum256([]byte(passphrase))
	return &Box{key: sum[:]}
}

func (b *Box) Configured() bool {
	return b != nil && len(b.key) > 0
}

func (b *Box) Seal(plaintext string) (string, error) {
	if !b.Configured() {
		return "", ErrEncryptionKeyMissing
	}

	block, err := aes.NewCipher(b.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	encoded, err := json.Marshal(envelope{
		Version:    1,
		Nonce:      base64.RawStdEncoding.EncodeToString(nonce),
		Ciphertext: base64.RawStdEncoding.EncodeToString(ciphertext),
	})
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func (b *Box) Open(sealed string) (string, error) {
	if !b.Configured() {
		return "", ErrEncryptionKeyMissing
	}
	if strings.TrimSpace(sealed) == "" {
		return "", ErrInvalidCiphertext
	}

	var payload envelope
	if err := json.Unmarshal([]byte(sealed), &payload); err != nil {
		return "", ErrInvalidCiphertext
	}
	if payload.Version != 1 {
		return "", ErrInvalidCiphertext
	}

	nonce, err := base64.RawStdEncoding.DecodeString(payload.Nonce)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	block, err := aes.NewCipher(b.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plain), nil
}
