package models

import (
	"encoding/base64"
	"testing"
)

func TestSessionServiceGenerateToken(t *testing.T) {
	ss := &SessionService{}

	t.Run("tokens carry the requested entropy", func(t *testing.T) {
		token, err := ss.generateToken(32)
		if err != nil {
			t.Fatalf("generateToken() error = %v", err)
		}
		raw, err := base64.URLEncoding.DecodeString(token)
		if err != nil {
			t.Fatalf("token is not URL-safe base64: %v", err)
		}
		if len(raw) != 32 {
			t.Errorf("decoded token length = %d, want 32", len(raw))
		}
	})

	t.Run("consecutive tokens differ", func(t *testing.T) {
		a, err := ss.generateToken(32)
		if err != nil {
			t.Fatalf("generateToken() error = %v", err)
		}
		b, err := ss.generateToken(32)
		if err != nil {
			t.Fatalf("generateToken() error = %v", err)
		}
		if a == b {
			t.Errorf("two generated tokens are identical")
		}
	})
}

func TestSessionServiceHash(t *testing.T) {
	ss := &SessionService{}

	t.Run("hash is deterministic", func(t *testing.T) {
		if ss.hash("token-a") != ss.hash("token-a") {
			t.Errorf("same token hashed to different values")
		}
	})

	t.Run("different tokens hash differently", func(t *testing.T) {
		if ss.hash("token-a") == ss.hash("token-b") {
			t.Errorf("distinct tokens hashed to the same value")
		}
	})

	t.Run("hash never echoes the token", func(t *testing.T) {
		token := "super-secret-session-token"
		if ss.hash(token) == token {
			t.Errorf("hash returned the raw token")
		}
	})

	t.Run("hash is URL-safe base64 of sha256", func(t *testing.T) {
		raw, err := base64.URLEncoding.DecodeString(ss.hash("token-a"))
		if err != nil {
			t.Fatalf("hash is not URL-safe base64: %v", err)
		}
		if len(raw) != 32 {
			t.Errorf("decoded hash length = %d, want 32", len(raw))
		}
	})
}

func TestNewSessionService(t *testing.T) {
	ss := NewSessionService(nil)
	if ss.BytesPerToken != DefaultTokenLength {
		t.Errorf("BytesPerToken = %d, want %d", ss.BytesPerToken, DefaultTokenLength)
	}
	if ss.SessionDuration != SessionDuration {
		t.Errorf("SessionDuration = %v, want %v", ss.SessionDuration, SessionDuration)
	}
}
