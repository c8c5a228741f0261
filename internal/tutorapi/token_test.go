package tutorapi

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/rbright/lingua/internal/config"
)

func TestTokenStorePrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(file, []byte("from-file\n"), 0o600))
	t.Setenv("LINGUA_TEST_TOKEN", "from-env")

	store := TokenStore{Value: "inline", Env: "LINGUA_TEST_TOKEN", File: file}
	tok, err := store.Token()
	require.NoError(t, err)
	require.Equal(t, "inline", tok)
	require.Equal(t, "api.token", store.Source())

	store.Value = ""
	tok, err = store.Token()
	require.NoError(t, err)
	require.Equal(t, "from-env", tok)
	require.Equal(t, "$LINGUA_TEST_TOKEN", store.Source())

	t.Setenv("LINGUA_TEST_TOKEN", "")
	tok, err = store.Token()
	require.NoError(t, err)
	require.Equal(t, "from-file", tok)
	require.Equal(t, file, store.Source())
}

func TestTokenStoreMissingFileIsUnauthenticated(t *testing.T) {
	store := TokenStore{File: filepath.Join(t.TempDir(), "missing")}
	tok, err := store.Token()
	require.NoError(t, err)
	require.Empty(t, tok)

	require.Equal(t, "none", TokenStore{}.Source())
}

func TestTokenStoreFromConfig(t *testing.T) {
	cfg := config.Default().API
	store := TokenStoreFromConfig(cfg)
	require.Equal(t, "LINGUA_TOKEN", store.Env)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "learner-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	got, ok := TokenExpiry(signed)
	require.True(t, ok)
	require.True(t, got.Equal(exp))

	_, ok = TokenExpiry("opaque-session-token")
	require.False(t, ok)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, ok = TokenExpiry(noExp)
	require.False(t, ok)
}
