// Package auth stores the hub credential on disk and knows when it has
// expired.
package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"
)

// Token is the stored hub credential. The hub issues either JWTs or opaque
// API keys; both are carried as a bearer token.
type Token struct {
	Value   string `yaml:"token"`
	Hub     string `yaml:"hub,omitempty"`
	SavedAt int64  `yaml:"saved_at"`
}

type TokenStore struct {
	Dir string
}

func NewTokenStore(dir string) *TokenStore {
	return &TokenStore{Dir: dir}
}

func (s *TokenStore) tokenPath() string {
	return filepath.Join(s.Dir, "token.yaml")
}

func (s *TokenStore) Save(token *Token) error {
	if token.SavedAt == 0 {
		token.SavedAt = time.Now().Unix()
	}
	data, err := yaml.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(s.tokenPath(), data, 0600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (s *TokenStore) Load() (*Token, error) {
	data, err := os.ReadFile(s.tokenPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read token: %w", err)
	}

	var token Token
	if err := yaml.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return &token, nil
}

func (s *TokenStore) Delete() error {
	err := os.Remove(s.tokenPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// IsValid reports whether the token can still be presented to the hub. A
// JWT is checked against its exp claim without verifying the signature (the
// hub does that); anything that does not parse as a JWT is an opaque key
// and assumed valid.
func (s *TokenStore) IsValid(token *Token) bool {
	if token == nil || token.Value == "" {
		return false
	}
	exp, ok := jwtExpiry(token.Value)
	if !ok {
		return true
	}
	return time.Now().Before(exp)
}

func jwtExpiry(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
