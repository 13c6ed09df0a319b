package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const ivSize = 16

// ErrMalformedCiphertext is returned when stored ciphertext does not parse
// into exactly three colon-separated hex segments.
var ErrMalformedCiphertext = errors.New("security: malformed ciphertext")

// Encryptor encrypts and decrypts short secrets (TOTP secrets, recovery
// codes) with AES-256-GCM. The wire format is "iv:cipher:tag", each segment
// hex-encoded, with a random 16-byte IV per value.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor derives a 256-bit key from the configured key string via
// SHA-256 and returns an Encryptor. The key string's minimum length is
// enforced by config at boot.
func NewEncryptor(key string) (*Encryptor, error) {
	sum := sha256.Sum256([]byte(key))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, fmt.Errorf("security: new cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("security: new gcm: %w", err)
	}
	return &Encryptor{aead: aead}, nil
}

// Encrypt seals plaintext and returns "iv:cipher:tag" in hex.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	sealed := e.aead.Seal(nil, iv, []byte(plaintext), nil)
	tagAt := len(sealed) - e.aead.Overhead()
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(sealed[:tagAt]) + ":" + hex.EncodeToString(sealed[tagAt:]), nil
}

// Decrypt reverses Encrypt. Any input that is not exactly three
// colon-separated hex segments is rejected with ErrMalformedCiphertext
// before touching the cipher.
func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	parts := strings.Split(ciphertext, ":")
	if len(parts) != 3 {
		return "", ErrMalformedCiphertext
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return "", ErrMalformedCiphertext
	}
	body, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	tag, err := hex.DecodeString(parts[2])
	if err != nil || len(tag) != e.aead.Overhead() {
		return "", ErrMalformedCiphertext
	}
	plaintext, err := e.aead.Open(nil, iv, append(body, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("security: decrypt: %w", err)
	}
	return string(plaintext), nil
}
