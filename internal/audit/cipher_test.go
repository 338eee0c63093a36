// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package audit_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/authcore/internal/audit"
)

func TestIPCipher_RoundTrip(t *testing.T) {
	ipCipher, err := audit.NewIPCipher("audit-secret")
	require.NoError(t, err)

	for _, ip := range []string{"203.0.113.9", "2001:db8::1", "x"} {
		t.Run(ip, func(t *testing.T) {
			encrypted, err := ipCipher.Encrypt(ip)
			require.NoError(t, err)
			assert.NotContains(t, encrypted, ip)

			decrypted, err := ipCipher.Decrypt(encrypted)
			require.NoError(t, err)
			assert.Equal(t, ip, decrypted)
		})
	}
}

func TestIPCipher_Format(t *testing.T) {
	ipCipher, err := audit.NewIPCipher("audit-secret")
	require.NoError(t, err)

	encrypted, err := ipCipher.Encrypt("198.51.100.7")
	require.NoError(t, err)

	parts := strings.Split(encrypted, ":")
	require.Len(t, parts, 4)
	assert.Len(t, parts[0], 128, "64-byte salt")
	assert.Len(t, parts[1], 32, "16-byte iv")
	assert.Len(t, parts[2], 32, "16-byte tag")
	assert.Len(t, parts[3], 2*len("198.51.100.7"))

	again, err := ipCipher.Encrypt("198.51.100.7")
	require.NoError(t, err)
	assert.NotEqual(t, encrypted, again, "salt and iv are random per value")
}

func TestIPCipher_Rejects(t *testing.T) {
	ipCipher, err := audit.NewIPCipher("audit-secret")
	require.NoError(t, err)
	other, err := audit.NewIPCipher("another-secret")
	require.NoError(t, err)

	encrypted, err := ipCipher.Encrypt("192.0.2.1")
	require.NoError(t, err)

	_, err = other.Decrypt(encrypted)
	assert.Error(t, err, "wrong secret")

	parts := strings.Split(encrypted, ":")
	parts[3] = strings.Repeat("0", len(parts[3]))
	_, err = ipCipher.Decrypt(strings.Join(parts, ":"))
	assert.Error(t, err, "tampered ciphertext")

	for _, malformed := range []string{"a:b", "zz:zz:zz:zz", "00:00:00:00"} {
		_, err := ipCipher.Decrypt(malformed)
		assert.ErrorIs(t, err, audit.ErrCiphertextFormat, malformed)
	}

	empty, err := ipCipher.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = audit.NewIPCipher("")
	assert.ErrorIs(t, err, audit.ErrEmptySecret)
}
