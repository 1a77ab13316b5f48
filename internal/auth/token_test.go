package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := tok.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := NewTokenStore(t.TempDir())

	if err := s.Save(&Token{Value: "abc123", Hub: "https://hub.example.com"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Value != "abc123" || got.Hub != "https://hub.example.com" {
		t.Errorf("got %+v", got)
	}
	if got.SavedAt == 0 {
		t.Errorf("saved_at not stamped")
	}
}

func TestLoadMissingIsNil(t *testing.T) {
	s := NewTokenStore(t.TempDir())
	got, err := s.Load()
	if err != nil || got != nil {
		t.Fatalf("got %+v, %v; want nil, nil", got, err)
	}
}

func TestIsValid(t *testing.T) {
	s := NewTokenStore(t.TempDir())

	tests := []struct {
		name  string
		token *Token
		want  bool
	}{
		{"nil", nil, false},
		{"empty", &Token{}, false},
		{"opaque key", &Token{Value: "mk-0123456789"}, true},
		{"live jwt", &Token{Value: signedJWT(t, time.Now().Add(time.Hour))}, true},
		{"expired jwt", &Token{Value: signedJWT(t, time.Now().Add(-time.Hour))}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.IsValid(tt.token); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := NewTokenStore(t.TempDir())
	if err := s.Save(&Token{Value: "abc"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Delete(); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}
