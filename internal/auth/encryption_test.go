package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestEncryptor(t *testing.T) {
	enc, err := NewEncryptor(testKey)
	require.NoError(t, err)

	t.Run("encrypt and decrypt", func(t *testing.T) {
		plaintext := "Senior Go engineer, ten years of backend work"
		ciphertext, err := enc.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotContains(t, ciphertext, "Senior")
		assert.True(t, strings.HasPrefix(ciphertext, "v1:"))

		decrypted, err := enc.Decrypt(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	})

	t.Run("empty plaintext round-trips", func(t *testing.T) {
		ct, err := enc.Encrypt("")
		require.NoError(t, err)
		got, err := enc.Decrypt(ct)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("different encryptions produce different ciphertexts", func(t *testing.T) {
		plaintext := "Same text encrypted twice"
		ct1, _ := enc.Encrypt(plaintext)
		ct2, _ := enc.Encrypt(plaintext)
		assert.NotEqual(t, ct1, ct2, "random nonce should produce different ciphertexts")
	})

	t.Run("invalid key length", func(t *testing.T) {
		_, err := NewEncryptor("abcd")
		assert.Error(t, err)
	})

	t.Run("unversioned ciphertext", func(t *testing.T) {
		_, err := enc.Decrypt("plain text that was never encrypted")
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
	})

	t.Run("truncated ciphertext", func(t *testing.T) {
		_, err := enc.Decrypt("v1:AAAA")
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		ct, _ := enc.Encrypt("test")
		last := ct[len(ct)-1]
		swap := byte('A')
		if last == 'A' {
			swap = 'B'
		}
		_, err := enc.Decrypt(ct[:len(ct)-1] + string(swap))
		assert.Error(t, err)
	})

	t.Run("other key cannot decrypt", func(t *testing.T) {
		other, err := NewEncryptor(strings.Repeat("f", 64))
		require.NoError(t, err)
		ct, _ := enc.Encrypt("secret")
		_, err = other.Decrypt(ct)
		assert.Error(t, err)
	})
}
