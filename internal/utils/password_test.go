package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret123", 4)
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotContains(t, hash, "secret123")

	assert.True(t, VerifyPassword(hash, "secret123"))
	assert.False(t, VerifyPassword(hash, "secret124"))
	assert.False(t, VerifyPassword(hash, ""))
}

func TestHashPasswordDistinctSalts(t *testing.T) {
	h1, err := HashPassword("secret123", 4)
	require.NoError(t, err)
	h2, err := HashPassword("secret123", 4)
	require.NoError(t, err)
	// bcrypt salts every hash, so two hashes of the same input differ.
	assert.NotEqual(t, h1, h2)
}

func TestHashPasswordCostFallback(t *testing.T) {
	// An out-of-range cost must not fail; it falls back to the default.
	hash, err := HashPassword("secret123", -1)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "secret123"))
}

func TestVerifyPasswordGarbageHash(t *testing.T) {
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "secret123"))
}
