package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRefreshToken_IsUniqueHex(t *testing.T) {
	a, err := NewRefreshToken()
	require.NoError(t, err)
	b, err := NewRefreshToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestSecretEqual(t *testing.T) {
	assert.True(t, SecretEqual("s3cret", "s3cret"))
	assert.False(t, SecretEqual("s3cret", "other"))
	assert.False(t, SecretEqual("", ""))
}
