package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestGetSetDelete(t *testing.T) {
	t.Setenv(EnvToken, "")
	dir := filepath.Join(t.TempDir(), ".tada")

	t.Run("not logged in", func(t *testing.T) {
		ti, err := Get(dir)
		require.NoError(t, err)
		assert.Nil(t, ti)
	})

	t.Run("set strips bearer and stores with 0600", func(t *testing.T) {
		require.NoError(t, Set(dir, "Bearer abc123"))

		ti, err := Get(dir)
		require.NoError(t, err)
		require.NotNil(t, ti)
		assert.Equal(t, "abc123", ti.Token)
		assert.Equal(t, "file", ti.Source)
		assert.Nil(t, ti.ExpiresAt)

		info, err := os.Stat(filepath.Join(dir, credFileName))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, Delete(dir))
		require.NoError(t, Delete(dir))

		ti, err := Get(dir)
		require.NoError(t, err)
		assert.Nil(t, ti)
	})

	t.Run("empty token is rejected", func(t *testing.T) {
		assert.Error(t, Set(dir, "  "))
	})
}

func TestEnvOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Set(dir, "from-file"))
	t.Setenv(EnvToken, "bearer from-env")

	ti, err := Get(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", ti.Token)
	assert.Equal(t, "env", ti.Source)
}

func TestJWTExpiry(t *testing.T) {
	t.Setenv(EnvToken, "")
	dir := t.TempDir()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	require.NoError(t, Set(dir, signed(t, jwt.MapClaims{"sub": "7", "exp": exp.Unix()})))

	ti, err := Get(dir)
	require.NoError(t, err)
	require.NotNil(t, ti.ExpiresAt)
	assert.True(t, exp.Equal(*ti.ExpiresAt))
	assert.False(t, ti.Expired(time.Now()))
	assert.True(t, ti.Expired(exp.Add(time.Minute)))
}

func TestClaims(t *testing.T) {
	t.Run("decodes without verifying", func(t *testing.T) {
		claims, err := Claims(signed(t, jwt.MapClaims{"sub": "user-7", "name": "Ada"}))
		require.NoError(t, err)

		sub, err := claims.GetSubject()
		require.NoError(t, err)
		assert.Equal(t, "user-7", sub)
		assert.Equal(t, "Ada", claims["name"])
	})

	t.Run("opaque token", func(t *testing.T) {
		_, err := Claims("plain-opaque-token")
		assert.ErrorIs(t, err, ErrNotJWT)
	})

	t.Run("garbage with dots", func(t *testing.T) {
		_, err := Claims("a.b.c")
		assert.ErrorIs(t, err, ErrNotJWT)
	})
}
