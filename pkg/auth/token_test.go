package auth

import (
	"testing"
	"time"
)

func TestTokenIssueAndVerify(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", TokenOptions{})
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}
	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	sub, err := issuer.VerifySubject(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if sub != "user-1" {
		t.Fatalf("expected subject user-1, got %q", sub)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	a, _ := NewTokenIssuer("secret-a", TokenOptions{})
	b, _ := NewTokenIssuer("secret-b", TokenOptions{})
	token, err := a.Issue("user-1")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := b.VerifySubject(token); err == nil {
		t.Fatalf("expected verification to fail with a different secret")
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	issuer, _ := NewTokenIssuer("test-secret", TokenOptions{
		TTL:    time.Millisecond,
		Leeway: time.Millisecond,
	})
	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := issuer.VerifySubject(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestTokenRejectsGarbage(t *testing.T) {
	issuer, _ := NewTokenIssuer("test-secret", TokenOptions{})
	if _, err := issuer.VerifySubject("not.a.token"); err == nil {
		t.Fatalf("expected malformed token to be rejected")
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("   ", TokenOptions{}); err == nil {
		t.Fatalf("expected empty secret to be rejected")
	}
}
