package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func runRequest(t *testing.T, validKey string, header func(*http.Request)) (*httptest.ResponseRecorder, string) {
	t.Helper()

	var gotOwner string
	handler := APIKeyAuth(validKey, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOwner = OwnerID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/resources", nil)
	if header != nil {
		header(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, gotOwner
}

func TestAPIKeyAuth_Valid(t *testing.T) {
	rec, owner := runRequest(t, "k3y", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer k3y")
		r.Header.Set("X-Owner-ID", "owner1")
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if owner != "owner1" {
		t.Errorf("owner = %q, want owner1", owner)
	}
}

func TestAPIKeyAuth_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		key    string
		header func(*http.Request)
	}{
		{"no header", "k3y", nil},
		{"wrong scheme", "k3y", func(r *http.Request) { r.Header.Set("Authorization", "Basic k3y") }},
		{"wrong key", "k3y", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer nope")
			r.Header.Set("X-Owner-ID", "owner1")
		}},
		{"missing owner", "k3y", func(r *http.Request) { r.Header.Set("Authorization", "Bearer k3y") }},
		{"unconfigured key", "", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer anything")
			r.Header.Set("X-Owner-ID", "owner1")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := runRequest(t, tc.key, tc.header)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}
