package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ciphertextPrefix versions the stored format so the key or scheme can be
// rotated later without guessing how a row was written.
const ciphertextPrefix = "v1:"

var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// Encryptor seals document bodies with AES-256-GCM. Output is
// "v1:" + base64url(nonce || ciphertext || tag).
type Encryptor struct {
	gcm cipher.AEAD
}

func NewEncryptor(hexKey string) (*Encryptor, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes (64 hex chars), got %d bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	return &Encryptor{gcm: gcm}, nil
}

func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := e.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return ciphertextPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (e *Encryptor) Decrypt(stored string) (string, error) {
	encoded, ok := strings.CutPrefix(stored, ciphertextPrefix)
	if !ok {
		return "", fmt.Errorf("%w: unknown format", ErrMalformedCiphertext)
	}
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}

	nonceSize := e.gcm.NonceSize()
	if len(sealed) < nonceSize+e.gcm.Overhead() {
		return "", fmt.Errorf("%w: too short", ErrMalformedCiphertext)
	}

	nonce, body := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}

	return string(plaintext), nil
}
