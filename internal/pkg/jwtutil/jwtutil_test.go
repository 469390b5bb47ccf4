package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	signed, err := GenerateToken("test-secret", time.Hour, 7, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := ParseToken("test-secret", signed)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestParseTokenWrongSecret(t *testing.T) {
	signed, err := GenerateToken("test-secret", time.Hour, 7, "alice")
	require.NoError(t, err)

	_, err = ParseToken("other-secret", signed)
	assert.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	signed, err := GenerateToken("test-secret", -time.Minute, 7, "alice")
	require.NoError(t, err)

	_, err = ParseToken("test-secret", signed)
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("test-secret", "not.a.token")
	assert.Error(t, err)
}
