// Package access implements policy resolution and access-token issuance
// for shared files and collections.
package access

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/kirubae/filegate/internal/app/store/collection"
	"github.com/kirubae/filegate/internal/app/store/file"
	"github.com/kirubae/filegate/internal/app/system/apperr"
	"github.com/kirubae/filegate/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// Failure reasons recorded in the audit trail. These are also the
// user-facing messages for their errors.
const (
	ReasonExpired           = "expired"
	ReasonEmailUnauthorized = "email not authorized"
	ReasonPasswordRequired  = "password required"
	ReasonWrongPassword     = "incorrect password"
)

// Policy is the effective password/email/expiry rule set governing a
// resource, resolved at the root of its hierarchy.
type Policy struct {
	ExpiresAt     *time.Time
	PasswordHash  *string
	AllowedEmails []string // empty = unrestricted
}

// HashPassword returns the hex SHA-256 digest used for stored passwords.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Evaluate runs the policy checks in order (expiry, then allow-list, then
// password), short-circuiting on the first failure. It is a pure function; existence
// and deletion checks happen during resolution, and auditing is the
// caller's job. A nil return means access is granted.
func Evaluate(p Policy, email, password string, now time.Time) *apperr.Error {
	if p.ExpiresAt != nil && p.ExpiresAt.Before(now) {
		return apperr.Expired(ReasonExpired)
	}

	if len(p.AllowedEmails) > 0 {
		email = strings.ToLower(strings.TrimSpace(email))
		allowed := false
		for _, a := range p.AllowedEmails {
			if strings.ToLower(strings.TrimSpace(a)) == email {
				allowed = true
				break
			}
		}
		if !allowed {
			return apperr.Unauthorized(ReasonEmailUnauthorized)
		}
	}

	if p.PasswordHash != nil && *p.PasswordHash != "" {
		if password == "" {
			return apperr.Unauthorized(ReasonPasswordRequired)
		}
		if HashPassword(password) != *p.PasswordHash {
			return apperr.Unauthorized(ReasonWrongPassword)
		}
	}

	return nil
}

// Resolver resolves the effective policy for a resource by walking parent
// links to the root of its hierarchy.
type Resolver struct {
	files       *file.Store
	collections *collection.Store
}

// NewResolver creates a Resolver over the two resource stores.
func NewResolver(files *file.Store, collections *collection.Store) *Resolver {
	return &Resolver{files: files, collections: collections}
}

func policyOfFile(f *models.File) Policy {
	return Policy{ExpiresAt: f.ExpiresAt, PasswordHash: f.PasswordHash, AllowedEmails: f.AllowedEmails}
}

func policyOfCollection(c *models.Collection) Policy {
	return Policy{ExpiresAt: c.ExpiresAt, PasswordHash: c.PasswordHash, AllowedEmails: c.AllowedEmails}
}

// FileResolution is the outcome of resolving a file's effective policy.
type FileResolution struct {
	File   *models.File
	Root   *models.Collection // nil for standalone files
	Policy Policy
}

// ResolveFile loads a file and resolves its effective policy: the file's
// own fields when standalone, otherwise the root collection's fields.
func (r *Resolver) ResolveFile(ctx context.Context, fileID string) (*FileResolution, error) {
	f, err := r.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("file not found")
		}
		return nil, apperr.Internal(err)
	}

	if f.IsStandalone() {
		return &FileResolution{File: f, Policy: policyOfFile(f)}, nil
	}

	chain, err := r.collections.ResolveChain(ctx, *f.CollectionID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// An absent or deleted ancestor hides the file too.
			return nil, apperr.NotFound("file not found")
		}
		return nil, apperr.Internal(err)
	}

	root := chain[0]
	return &FileResolution{File: f, Root: &root, Policy: policyOfCollection(&root)}, nil
}

// CollectionResolution is the outcome of resolving a collection's
// effective policy.
type CollectionResolution struct {
	Collection *models.Collection
	Chain      []models.Collection // root first, target last
	Root       *models.Collection
	Policy     Policy
}

// ResolveCollection loads a collection and resolves the root policy that
// governs it. A sub-collection's own policy fields are never consulted.
func (r *Resolver) ResolveCollection(ctx context.Context, collectionID string) (*CollectionResolution, error) {
	chain, err := r.collections.ResolveChain(ctx, collectionID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("collection not found")
		}
		return nil, apperr.Internal(err)
	}

	root := chain[0]
	target := chain[len(chain)-1]
	return &CollectionResolution{
		Collection: &target,
		Chain:      chain,
		Root:       &root,
		Policy:     policyOfCollection(&root),
	}, nil
}
