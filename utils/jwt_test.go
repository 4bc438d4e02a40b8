package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	tok, err := GenerateToken(42, "waiter")
	require.NoError(t, err)

	claims, err := ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "waiter", claims.Role)
	assert.NotEmpty(t, claims.ID)

	again, err := GenerateToken(42, "waiter")
	require.NoError(t, err)
	assert.NotEqual(t, tok, again, "tokens issued in the same second differ")
}

func TestParseTokenRejects(t *testing.T) {
	_, err := ParseToken("not-a-token")
	assert.Error(t, err)

	// user id 0
	zero, err := GenerateToken(0, "waiter")
	require.NoError(t, err)
	_, err = ParseToken(zero)
	assert.Error(t, err)

	// signed with another secret
	other := jwt.NewWithClaims(jwt.SigningMethodHS256, &CustomClaims{UserID: 1, Role: "admin"})
	signed, err := other.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = ParseToken(signed)
	assert.Error(t, err)

	// expired
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &CustomClaims{
		UserID: 1,
		Role:   "waiter",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err = expired.SignedString(JWTSecret)
	require.NoError(t, err)
	_, err = ParseToken(signed)
	assert.Error(t, err)
}

func TestBlacklist(t *testing.T) {
	tok, err := GenerateToken(7, "waiter")
	require.NoError(t, err)

	_, err = ValidateToken(tok)
	require.NoError(t, err)

	BlacklistToken(tok, time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted(tok))
	_, err = ValidateToken(tok)
	assert.Error(t, err)

	BlacklistToken("stale", time.Now().Add(-time.Second))
	assert.False(t, IsTokenBlacklisted("stale"))
}
