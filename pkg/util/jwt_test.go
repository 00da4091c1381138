package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func TestGenerateTokenPair(t *testing.T) {
	pair, err := GenerateTokenPair(42, "baker@milkbites.id", "user", testSecret, 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	require.NotNil(t, pair)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
}

func TestValidateToken(t *testing.T) {
	pair, err := GenerateTokenPair(7, "admin@milkbites.id", "admin", testSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(pair.AccessToken, testSecret)
	require.NoError(t, err)

	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "admin@milkbites.id", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt, 5*time.Second)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	pair, err := GenerateTokenPair(1, "user@milkbites.id", "user", testSecret, time.Minute, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(pair.AccessToken, "another-secret")
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	pair, err := GenerateTokenPair(1, "user@milkbites.id", "user", testSecret, -time.Minute, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(pair.AccessToken, testSecret)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	claims, err := ValidateToken("not.a.token", testSecret)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
