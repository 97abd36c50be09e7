package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomHex(t *testing.T) {
	assert := assert.New(t)

	a, err := RandomHex(32)
	require.NoError(t, err)
	b, err := RandomHex(32)
	require.NoError(t, err)

	assert.Len(a, 64)
	assert.NotEqual(a, b)
}

func TestEnv(t *testing.T) {
	t.Setenv("SPTF_TEST_VALUE", "  padded ")

	assert.Equal(t, "padded", Env("SPTF_TEST_VALUE", "fallback"))
	assert.Equal(t, "fallback", Env("SPTF_TEST_UNSET", "fallback"))
}

func TestIsDevMode(t *testing.T) {
	t.Setenv("SPTF_ENV", "dev")
	assert.True(t, IsDevMode())

	t.Setenv("SPTF_ENV", "prod")
	assert.False(t, IsDevMode())
}
