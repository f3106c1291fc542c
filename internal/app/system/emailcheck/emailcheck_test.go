package emailcheck

import (
	"testing"
)

func TestValidFormat(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"a@x.com", true},
		{"first.last@sub.example.co", true},
		{"  a@x.com  ", true}, // surrounding whitespace is trimmed
		{"a@x", false},        // no dot in domain
		{"@x.com", false},
		{"a@", false},
		{"a b@x.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidFormat(tt.email); got != tt.want {
			t.Errorf("ValidFormat(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}

func TestChecker_Check_FormatShortCircuit(t *testing.T) {
	// A format failure must be reported without touching DNS, so this
	// test runs offline.
	c := New(testLogger())

	res := c.Check(testContext(), "not-an-email")
	if res.Valid {
		t.Fatal("malformed address reported valid")
	}
	if res.Reason != ReasonInvalidFormat {
		t.Errorf("Reason = %q, want %q", res.Reason, ReasonInvalidFormat)
	}
}

func TestChecker_CheckDomain_Cache(t *testing.T) {
	c := New(testLogger())

	// Seed the cache directly: a cached negative must be served without a
	// lookup, and a cached positive likewise.
	c.cache.Add("dead.example", false)
	c.cache.Add("live.example", true)

	if c.CheckDomain(testContext(), "dead.example") {
		t.Error("cached negative ignored")
	}
	if !c.CheckDomain(testContext(), "LIVE.example") {
		t.Error("cached positive ignored (domain should be folded)")
	}
}

func TestChecker_CheckDomains_Dedup(t *testing.T) {
	c := New(testLogger())
	c.cache.Add("x.example", true)

	got := c.CheckDomains(testContext(), []string{"x.example", "X.EXAMPLE", " x.example ", ""})
	if len(got) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(got))
	}
	if !got["x.example"] {
		t.Error("x.example should be valid")
	}
}
