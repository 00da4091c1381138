package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("rahasia123")
	require.NoError(t, err)

	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "rahasia123", hash)
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("rahasia123")
	require.NoError(t, err)

	assert.True(t, VerifyPassword(hash, "rahasia123"))
	assert.False(t, VerifyPassword(hash, "salah"))
	assert.False(t, VerifyPassword("not-a-hash", "rahasia123"))
}
