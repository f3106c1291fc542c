package access

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kirubae/filegate/internal/app/system/apperr"
)

// Token validity windows.
const (
	FileTokenWindow       = 5 * time.Minute
	CollectionTokenWindow = 30 * time.Minute
)

// Token messages surfaced to clients and recorded as failure reasons.
const (
	ReasonTokenExpired = "expired, request access again"
	ReasonInvalidLink  = "invalid link"
	ReasonAccessDenied = "access denied"
)

// Token is a short-lived proof that an email passed policy validation for
// a resource (file) or resource root (collection) at a given time. The
// client presents all three parts back on download.
//
// The digest is an unkeyed SHA-256 over public values (resource id,
// email, issue timestamp), so anyone holding that tuple can recompute a
// valid token. This mirrors the behavior of the system this service
// replaces; introducing a server-held secret is a pending product call.
type Token struct {
	Value    string `json:"token"`
	Email    string `json:"email"`
	IssuedAt int64  `json:"ts"` // unix seconds
}

// Compute returns the hex SHA-256 digest over the token tuple.
func Compute(resourceID, email string, issuedAt int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", resourceID, email, issuedAt)))
	return hex.EncodeToString(sum[:])
}

// Issue creates a token for the given resource and email at now.
func Issue(resourceID, email string, now time.Time) Token {
	ts := now.Unix()
	return Token{
		Value:    Compute(resourceID, email, ts),
		Email:    email,
		IssuedAt: ts,
	}
}

// Validate recomputes the digest from the presented tuple and checks the
// validity window. Validation is idempotent: the same tuple verifies
// repeatedly until now-issuedAt exceeds the window, then always fails.
func Validate(resourceID, email string, issuedAt int64, token string, window time.Duration, now time.Time) *apperr.Error {
	if resourceID == "" || email == "" || issuedAt == 0 || token == "" {
		return apperr.Unauthorized(ReasonInvalidLink)
	}

	age := now.Unix() - issuedAt
	if age < 0 || age > int64(window.Seconds()) {
		return apperr.Unauthorized(ReasonTokenExpired)
	}

	if Compute(resourceID, email, issuedAt) != token {
		return apperr.Unauthorized(ReasonInvalidLink)
	}

	return nil
}
