// Package crypto provides symmetric encryption for individual record
// fields. Ciphertext is self-describing: a random IV in hex, a colon, then
// the AES-256-CBC ciphertext in hex, so the same plaintext encrypts to a
// different string on every call.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyLen     = 32
	kdfRounds  = 4096
	fieldDelim = ":"
)

// kdfSalt is fixed so every process derives the same field key from the
// shared passphrase.
var kdfSalt = []byte("hrms-field-encryption")

var ErrMalformedCiphertext = errors.New("crypto: malformed ciphertext")

type Service struct {
	key []byte
}

// New derives the AES-256 field key from the shared passphrase.
func New(secret string) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("crypto: AES_SECRET_KEY is required")
	}
	key := pbkdf2.Key([]byte(secret), kdfSalt, kdfRounds, keyLen, sha256.New)
	return &Service{key: key}, nil
}

// EncryptField encrypts one plaintext field value.
func (s *Service) EncryptField(plain string) (string, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}
	padded := pad([]byte(plain))
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return hex.EncodeToString(iv) + fieldDelim + hex.EncodeToString(out), nil
}

// DecryptField reverses EncryptField. It never panics: malformed input,
// plaintext passed in by mistake, and wrong-key ciphertext all come back as
// an error for the caller to contain.
func (s *Service) DecryptField(value string) (string, error) {
	parts := strings.SplitN(value, fieldDelim, 2)
	if len(parts) != 2 {
		return "", ErrMalformedCiphertext
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrMalformedCiphertext
	}
	data, err := hex.DecodeString(parts[1])
	if err != nil || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", ErrMalformedCiphertext
	}
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)
	unpadded, err := unpad(plain)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// PKCS#7 padding.
func pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrMalformedCiphertext
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, ErrMalformedCiphertext
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrMalformedCiphertext
		}
	}
	return data[:len(data)-n], nil
}
