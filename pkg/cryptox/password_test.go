package cryptox

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, VerifyPassword("correct horse battery staple", hash))
	})

	t.Run("wrong password", func(t *testing.T) {
		require.ErrorIs(t, VerifyPassword("wrong", hash), ErrPasswordMismatch)
	})

	t.Run("unique salts", func(t *testing.T) {
		other, err := HashPassword("correct horse battery staple")
		require.NoError(t, err)
		require.NotEqual(t, hash, other)
	})

	t.Run("malformed hash", func(t *testing.T) {
		require.Error(t, VerifyPassword("x", "not-a-hash"))
	})
}
