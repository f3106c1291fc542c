package access

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := Issue("abc123DEF456", "user@example.com", now)

	if err := Validate("abc123DEF456", tok.Email, tok.IssuedAt, tok.Value, FileTokenWindow, now); err != nil {
		t.Errorf("fresh token rejected: %v", err)
	}

	// The same tuple verifies repeatedly within the window.
	later := now.Add(2 * time.Minute)
	if err := Validate("abc123DEF456", tok.Email, tok.IssuedAt, tok.Value, FileTokenWindow, later); err != nil {
		t.Errorf("token rejected within window: %v", err)
	}
}

func TestTokenWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := Issue("abc123DEF456", "user@example.com", now)

	at := func(age time.Duration) *string {
		err := Validate("abc123DEF456", tok.Email, tok.IssuedAt, tok.Value, FileTokenWindow, now.Add(age))
		if err == nil {
			return nil
		}
		msg := err.Message
		return &msg
	}

	if msg := at(299 * time.Second); msg != nil {
		t.Errorf("299s: got %q, want valid", *msg)
	}
	if msg := at(301 * time.Second); msg == nil || *msg != ReasonTokenExpired {
		t.Errorf("301s: got %v, want %q", msg, ReasonTokenExpired)
	}
	// A timestamp from the future is rejected too.
	if msg := at(-time.Second); msg == nil || *msg != ReasonTokenExpired {
		t.Errorf("future ts: got %v, want %q", msg, ReasonTokenExpired)
	}
}

func TestTokenTamperedValue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := Issue("abc123DEF456", "user@example.com", now)

	flipped := []byte(tok.Value)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}

	err := Validate("abc123DEF456", tok.Email, tok.IssuedAt, string(flipped), FileTokenWindow, now)
	if err == nil || err.Message != ReasonInvalidLink {
		t.Errorf("mutated token: got %v, want %q", err, ReasonInvalidLink)
	}
}

func TestTokenWrongBinding(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := Issue("abc123DEF456", "user@example.com", now)

	cases := []struct {
		name     string
		resource string
		email    string
	}{
		{"different resource", "zzz999AAA000", "user@example.com"},
		{"different email", "abc123DEF456", "other@example.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.resource, tc.email, tok.IssuedAt, tok.Value, FileTokenWindow, now)
			if err == nil || err.Message != ReasonInvalidLink {
				t.Errorf("got %v, want %q", err, ReasonInvalidLink)
			}
		})
	}
}

func TestTokenMissingParams(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := Issue("abc123DEF456", "user@example.com", now)

	cases := []struct {
		name            string
		resource, email string
		ts              int64
		value           string
	}{
		{"no email", "abc123DEF456", "", tok.IssuedAt, tok.Value},
		{"no ts", "abc123DEF456", tok.Email, 0, tok.Value},
		{"no token", "abc123DEF456", tok.Email, tok.IssuedAt, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.resource, tc.email, tc.ts, tc.value, FileTokenWindow, now)
			if err == nil || err.Message != ReasonInvalidLink {
				t.Errorf("got %v, want %q", err, ReasonInvalidLink)
			}
		})
	}
}
