package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, time.Minute)

	token, err := m.GenerateToken("a@x.io", "BUYER")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", claims.Subject)
	assert.Equal(t, "BUYER", claims.Role)
}

func TestJWTManager_RejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Hour, 0)

	token, err := m.GenerateToken("a@x.io", "BUYER")
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTManager_LeewayToleratesSkew(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute, 5*time.Minute)

	token, err := m.GenerateToken("a@x.io", "SELLER")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", claims.Subject)
}

func TestJWTManager_RejectsWrongSecret(t *testing.T) {
	m := NewJWTManager("secret-one", time.Hour, 0)
	other := NewJWTManager("secret-two", time.Hour, 0)

	token, err := m.GenerateToken("a@x.io", "ADMIN")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(4) // min cost for fast tests

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	assert.NoError(t, h.Compare(hash, "secret1"))
	assert.Error(t, h.Compare(hash, "wrong"))
}

func TestNewHasher_ClampsInvalidCost(t *testing.T) {
	h := NewHasher(99)
	hash, err := h.Hash("pw")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hash, "pw"))
}
