package access

import (
	"testing"
	"time"

	"github.com/kirubae/filegate/internal/app/system/apperr"
)

func strptr(s string) *string { return &s }

func TestEvaluate_NoRestrictions(t *testing.T) {
	if err := Evaluate(Policy{}, "", "", time.Now()); err != nil {
		t.Errorf("Evaluate() = %v, want nil", err)
	}
}

func TestEvaluate_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	err := Evaluate(Policy{ExpiresAt: &past}, "a@x.com", "", now)
	if err == nil || err.Message != ReasonExpired {
		t.Errorf("expired policy: got %v, want %q", err, ReasonExpired)
	}
	if apperr.KindOf(err) != apperr.KindExpired {
		t.Errorf("kind = %v, want KindExpired", apperr.KindOf(err))
	}

	if err := Evaluate(Policy{ExpiresAt: &future}, "a@x.com", "", now); err != nil {
		t.Errorf("future expiry: got %v, want nil", err)
	}
}

func TestEvaluate_AllowList(t *testing.T) {
	p := Policy{AllowedEmails: []string{"A@X.COM", "b@y.com"}}
	now := time.Now()

	// Matching is case-insensitive in both directions.
	if err := Evaluate(p, "a@x.com", "", now); err != nil {
		t.Errorf("lowercase vs uppercase list: got %v, want nil", err)
	}
	if err := Evaluate(p, "B@Y.COM", "", now); err != nil {
		t.Errorf("uppercase vs lowercase list: got %v, want nil", err)
	}

	err := Evaluate(p, "c@z.com", "", now)
	if err == nil || err.Message != ReasonEmailUnauthorized {
		t.Errorf("unlisted email: got %v, want %q", err, ReasonEmailUnauthorized)
	}
}

func TestEvaluate_Password(t *testing.T) {
	hash := HashPassword("secret")
	p := Policy{PasswordHash: &hash}
	now := time.Now()

	err := Evaluate(p, "a@x.com", "", now)
	if err == nil || err.Message != ReasonPasswordRequired {
		t.Errorf("missing password: got %v, want %q", err, ReasonPasswordRequired)
	}

	// Passwords are case-sensitive.
	err = Evaluate(p, "a@x.com", "Secret", now)
	if err == nil || err.Message != ReasonWrongPassword {
		t.Errorf("wrong case: got %v, want %q", err, ReasonWrongPassword)
	}

	if err := Evaluate(p, "a@x.com", "secret", now); err != nil {
		t.Errorf("correct password: got %v, want nil", err)
	}
}

func TestEvaluate_Order(t *testing.T) {
	// Expiry outranks the allow-list, the allow-list outranks the password.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	hash := HashPassword("secret")

	p := Policy{ExpiresAt: &past, PasswordHash: &hash, AllowedEmails: []string{"a@x.com"}}
	err := Evaluate(p, "c@z.com", "", now)
	if err == nil || err.Message != ReasonExpired {
		t.Errorf("expired+unlisted: got %v, want %q", err, ReasonExpired)
	}

	p.ExpiresAt = nil
	err = Evaluate(p, "c@z.com", "", now)
	if err == nil || err.Message != ReasonEmailUnauthorized {
		t.Errorf("unlisted+no password: got %v, want %q", err, ReasonEmailUnauthorized)
	}
}

func TestEvaluate_EmptyHashIgnored(t *testing.T) {
	p := Policy{PasswordHash: strptr("")}
	if err := Evaluate(p, "a@x.com", "", time.Now()); err != nil {
		t.Errorf("empty hash should not require a password: got %v", err)
	}
}
