// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package audit

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Stored format is hex(salt):hex(iv):hex(tag):hex(ciphertext).
const (
	saltLength       = 64
	ivLength         = 16
	tagLength        = 16
	keyLength        = 32
	pbkdf2Iterations = 10000
)

var (
	// ErrEmptySecret is returned by [NewIPCipher] for an empty secret.
	ErrEmptySecret = errors.New("audit: ip cipher secret is empty")

	// ErrCiphertextFormat is returned by [IPCipher.Decrypt] for malformed input.
	ErrCiphertextFormat = errors.New("audit: invalid encrypted ip format")
)

// IPCipher encrypts IP addresses with AES-256-GCM under a key derived per
// value with PBKDF2-SHA512 from a shared secret and a random salt.
type IPCipher struct {
	secret []byte
}

// NewIPCipher creates an IPCipher.
func NewIPCipher(secret string) (*IPCipher, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &IPCipher{secret: []byte(secret)}, nil
}

// Transform implements [IPTransform].
func (ipCipher *IPCipher) Transform(ip string) (string, error) {
	return ipCipher.Encrypt(ip)
}

// Encrypt returns the stored form of plaintext. Equal inputs encrypt to
// different outputs.
func (ipCipher *IPCipher) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltLength)
	iv := make([]byte, ivLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("audit: read salt: %w", err)
	}
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("audit: read iv: %w", err)
	}

	aead, err := ipCipher.aead(salt)
	if err != nil {
		return "", err
	}

	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-tagLength], sealed[len(sealed)-tagLength:]

	return strings.Join([]string{
		hex.EncodeToString(salt),
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	}, ":"), nil
}

// Decrypt reverses [IPCipher.Encrypt]. An empty input decrypts to "".
func (ipCipher *IPCipher) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	parts := strings.Split(encoded, ":")
	if len(parts) != 4 {
		return "", ErrCiphertextFormat
	}

	decoded := make([][]byte, len(parts))
	for index, part := range parts {
		value, err := hex.DecodeString(part)
		if err != nil {
			return "", ErrCiphertextFormat
		}
		decoded[index] = value
	}

	salt, iv, tag, ciphertext := decoded[0], decoded[1], decoded[2], decoded[3]
	if len(salt) != saltLength || len(iv) != ivLength || len(tag) != tagLength {
		return "", ErrCiphertextFormat
	}

	aead, err := ipCipher.aead(salt)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("audit: decrypt ip: %w", err)
	}
	return string(plaintext), nil
}

func (ipCipher *IPCipher) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(ipCipher.secret, salt, pbkdf2Iterations, keyLength, sha512.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("audit: aes: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return nil, fmt.Errorf("audit: gcm: %w", err)
	}
	return aead, nil
}
