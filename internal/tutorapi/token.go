package tutorapi

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rbright/lingua/internal/config"
)

// TokenSource yields the bearer token for the next request; "" means send
// the request unauthenticated.
type TokenSource interface {
	Token() (string, error)
}

// TokenStore resolves the token from, in order, an inline value, an
// environment variable, and a token file.
type TokenStore struct {
	Value string
	Env   string
	File  string
}

// TokenStoreFromConfig maps api.token, api.token_env, and api.token_file.
func TokenStoreFromConfig(cfg config.APIConfig) TokenStore {
	return TokenStore{Value: cfg.Token, Env: cfg.TokenEnv, File: cfg.TokenFile}
}

// Token returns the first configured token.
func (s TokenStore) Token() (string, error) {
	if v := strings.TrimSpace(s.Value); v != "" {
		return v, nil
	}
	if name := strings.TrimSpace(s.Env); name != "" {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, nil
		}
	}
	if path := strings.TrimSpace(s.File); path != "" {
		path = expandHome(path)
		content, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", nil
			}
			return "", fmt.Errorf("read token file %q: %w", path, err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return "", nil
}

// Source describes where the token came from, for diagnostics.
func (s TokenStore) Source() string {
	switch {
	case strings.TrimSpace(s.Value) != "":
		return "api.token"
	case strings.TrimSpace(s.Env) != "" && strings.TrimSpace(os.Getenv(s.Env)) != "":
		return "$" + s.Env
	case strings.TrimSpace(s.File) != "":
		return expandHome(s.File)
	default:
		return "none"
	}
}

// TokenExpiry reads the exp claim from a JWT without verifying its
// signature; the backend remains the authority. ok is false for opaque
// tokens and JWTs without exp.
func TokenExpiry(token string) (expiresAt time.Time, ok bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
