package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	credFileName = "credentials.json"

	// EnvToken overrides the stored token.
	EnvToken = "TADA_TOKEN"
)

// ErrNotJWT is returned by Claims for opaque tokens.
var ErrNotJWT = errors.New("token is not a JWT")

type TokenInfo struct {
	Token     string     `json:"token"`
	Source    string     `json:"source"`     // "env" | "file"
	CreatedAt time.Time  `json:"created_at"` // when we saved to file
	ExpiresAt *time.Time `json:"expires_at"` // optional (JWT exp claim)
}

// Expired reports whether a known expiry is in the past.
func (ti *TokenInfo) Expired(now time.Time) bool {
	return ti.ExpiresAt != nil && now.After(*ti.ExpiresAt)
}

func credFilePath(dir string) string {
	return filepath.Join(dir, credFileName)
}

// Get returns the token from TADA_TOKEN or dir/credentials.json.
// A nil TokenInfo with nil error means not logged in.
func Get(dir string) (*TokenInfo, error) {
	// 1) env override
	env := strings.TrimSpace(os.Getenv(EnvToken))
	if env != "" {
		return &TokenInfo{Token: stripBearer(env), Source: "env"}, nil
	}

	// 2) file
	b, err := os.ReadFile(credFilePath(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil // not logged in
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var ti TokenInfo
	if err := json.Unmarshal(b, &ti); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	ti.Token = stripBearer(ti.Token)
	return &ti, nil
}

// Set stores token under dir with owner-only permissions. When the token
// is a JWT carrying exp, the expiry is recorded too.
func Set(dir, token string) error {
	token = stripBearer(strings.TrimSpace(token))
	if token == "" {
		return fmt.Errorf("empty token")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	ti := TokenInfo{
		Token:     token,
		Source:    "file",
		CreatedAt: time.Now(),
		ExpiresAt: expiry(token),
	}
	b, err := json.MarshalIndent(ti, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(credFilePath(dir), b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Delete removes the stored token. Missing file is not an error.
func Delete(dir string) error {
	if err := os.Remove(credFilePath(dir)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// Claims decodes a JWT payload without verifying the signature; the server
// is the one that verifies it.
func Claims(token string) (jwt.MapClaims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrNotJWT
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotJWT, err)
	}
	return claims, nil
}

func expiry(token string) *time.Time {
	claims, err := Claims(token)
	if err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
