package backend_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskroom/internal/adapters/backend"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-key-will-do"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	got, err := backend.TokenExpiry(signed(t, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()}))
	if err != nil {
		t.Fatalf("TokenExpiry: %v", err)
	}
	if !got.Equal(exp) {
		t.Errorf("expiry = %v, want %v", got, exp)
	}

	if _, err := backend.TokenExpiry(signed(t, jwt.MapClaims{"sub": "u1"})); err == nil {
		t.Error("expected error for token without exp")
	}
	if _, err := backend.TokenExpiry("garbage"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestNeedsRefresh(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"fresh", signed(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), false},
		{"inside leeway", signed(t, jwt.MapClaims{"exp": now.Add(30 * time.Second).Unix()}), true},
		{"expired", signed(t, jwt.MapClaims{"exp": now.Add(-time.Hour).Unix()}), true},
		{"unreadable", "nope", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := backend.NeedsRefresh(tt.token, now, time.Minute); got != tt.want {
				t.Errorf("NeedsRefresh = %v, want %v", got, tt.want)
			}
		})
	}
}
