package auth

import (
	"errors"
	"testing"
	"time"
)

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash should not equal the plain password")
	}
	if !CheckPasswordHash("correct horse", hash) {
		t.Error("expected password to match its hash")
	}
	if CheckPasswordHash("wrong horse", hash) {
		t.Error("expected wrong password to be rejected")
	}
}

func TestTokenManager(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		m := NewTokenManager("secret", time.Hour)
		token, err := m.Sign("user-1")
		if err != nil {
			t.Fatalf("Sign failed: %v", err)
		}
		userID, err := m.Verify(token)
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if userID != "user-1" {
			t.Errorf("expected user-1, got %q", userID)
		}
	})

	t.Run("sign without user id", func(t *testing.T) {
		m := NewTokenManager("secret", time.Hour)
		if _, err := m.Sign(""); !errors.Is(err, ErrMissingUserID) {
			t.Errorf("expected ErrMissingUserID, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewTokenManager("secret", time.Hour).Sign("user-1")
		if err != nil {
			t.Fatalf("Sign failed: %v", err)
		}
		if _, err := NewTokenManager("other", time.Hour).Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		m := NewTokenManager("secret", time.Minute)
		m.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, err := m.Sign("user-1")
		if err != nil {
			t.Fatalf("Sign failed: %v", err)
		}
		m.now = time.Now
		if _, err := m.Verify(token); !errors.Is(err, ErrExpiredToken) {
			t.Errorf("expected ErrExpiredToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		m := NewTokenManager("secret", time.Hour)
		for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
			if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify(%q): expected ErrInvalidToken, got %v", token, err)
			}
		}
	})
}
