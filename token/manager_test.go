package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testSecret() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
		Secret:     testSecret(),
		Issuer:     "tokenkeep-test",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	_, err := NewManager(Config{
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Secret:     []byte("too-short"),
	})
	if err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestNewManagerRejectsBadTTL(t *testing.T) {
	_, err := NewManager(Config{
		AccessTTL:  0,
		RefreshTTL: time.Hour,
		Secret:     testSecret(),
	})
	if err == nil {
		t.Fatal("expected error for zero access TTL")
	}
}

func TestNewManagerRejectsKeyIDMissingFromVerifyKeys(t *testing.T) {
	_, err := NewManager(Config{
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Secret:     testSecret(),
		KeyID:      "k2",
		VerifyKeys: map[string][]byte{
			"k1": testSecret(),
		},
	})
	if err == nil {
		t.Fatal("expected error when KeyID is not in VerifyKeys")
	}
}

func TestSignParseAccessRoundTrip(t *testing.T) {
	m := newTestManager(t)

	signed, err := m.SignAccess("user-1", "acme", "admin", "tok-1")
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}

	claims, err := m.ParseAccess(signed)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected subject user-1, got %q", claims.Subject)
	}
	if claims.TenantID != "acme" {
		t.Fatalf("expected tenant acme, got %q", claims.TenantID)
	}
	if claims.Role != "admin" {
		t.Fatalf("expected role admin, got %q", claims.Role)
	}
	if claims.ID != "tok-1" {
		t.Fatalf("expected token id tok-1, got %q", claims.ID)
	}
	if claims.TokenType != TypeAccess {
		t.Fatalf("expected access token type, got %q", claims.TokenType)
	}
}

func TestSignParseRefreshRoundTrip(t *testing.T) {
	m := newTestManager(t)

	signed, err := m.SignRefresh("user-1", "acme", "sess-1", "tok-1", 0)
	if err != nil {
		t.Fatalf("SignRefresh failed: %v", err)
	}

	claims, err := m.ParseRefresh(signed)
	if err != nil {
		t.Fatalf("ParseRefresh failed: %v", err)
	}
	if claims.SessionID != "sess-1" {
		t.Fatalf("expected session sess-1, got %q", claims.SessionID)
	}
	if claims.TokenID() != "tok-1" {
		t.Fatalf("expected token id tok-1, got %q", claims.TokenID())
	}
	if claims.SubjectID() != "user-1" {
		t.Fatalf("expected subject user-1, got %q", claims.SubjectID())
	}
}

func TestParseRejectsWrongTokenType(t *testing.T) {
	m := newTestManager(t)

	access, err := m.SignAccess("user-1", "acme", "admin", "tok-1")
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}
	refresh, err := m.SignRefresh("user-1", "acme", "sess-1", "tok-2", 0)
	if err != nil {
		t.Fatalf("SignRefresh failed: %v", err)
	}

	if _, err := m.ParseRefresh(access); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType for access token, got %v", err)
	}
	if _, err := m.ParseAccess(refresh); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType for refresh token, got %v", err)
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	m := newTestManager(t)

	signed, err := m.SignAccess("user-1", "acme", "admin", "tok-1")
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}

	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 JWT segments, got %d", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := m.ParseAccess(tampered); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m, err := NewManager(Config{
		AccessTTL:  time.Millisecond,
		RefreshTTL: time.Hour,
		Secret:     testSecret(),
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	signed, err := m.SignAccess("user-1", "acme", "admin", "tok-1")
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, err := m.ParseAccess(signed); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.ParseAccess("not-a-jwt"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	signer, err := NewManager(Config{
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Secret:     testSecret(),
		Issuer:     "someone-else",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	signed, err := signer.SignAccess("user-1", "acme", "admin", "tok-1")
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}

	m := newTestManager(t)
	if _, err := m.ParseAccess(signed); err == nil {
		t.Fatal("expected issuer mismatch to fail verification")
	}
}

func TestVerifyKeysAllowsPreviousKeyID(t *testing.T) {
	oldSecret := []byte("old-secret-old-secret-old-secret")
	oldManager, err := NewManager(Config{
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Secret:     oldSecret,
		KeyID:      "k1",
	})
	if err != nil {
		t.Fatalf("NewManager (old) failed: %v", err)
	}

	signed, err := oldManager.SignAccess("user-1", "acme", "admin", "tok-1")
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}

	current, err := NewManager(Config{
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Secret:     testSecret(),
		KeyID:      "k2",
		VerifyKeys: map[string][]byte{
			"k1": oldSecret,
			"k2": testSecret(),
		},
	})
	if err != nil {
		t.Fatalf("NewManager (current) failed: %v", err)
	}

	if _, err := current.ParseAccess(signed); err != nil {
		t.Fatalf("expected token under previous kid to verify, got %v", err)
	}
}

func TestVerifyKeysRejectsUnknownKeyID(t *testing.T) {
	foreign, err := NewManager(Config{
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Secret:     testSecret(),
		KeyID:      "k9",
	})
	if err != nil {
		t.Fatalf("NewManager (foreign) failed: %v", err)
	}

	signed, err := foreign.SignAccess("user-1", "acme", "admin", "tok-1")
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}

	current, err := NewManager(Config{
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Secret:     testSecret(),
		KeyID:      "k2",
		VerifyKeys: map[string][]byte{
			"k2": testSecret(),
		},
	})
	if err != nil {
		t.Fatalf("NewManager (current) failed: %v", err)
	}

	if _, err := current.ParseAccess(signed); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for unknown kid, got %v", err)
	}
}
