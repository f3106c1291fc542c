package models

import (
	"time"
)

// MaxDepth is the deepest level a collection may occupy. Roots are depth 1;
// creating a child below MaxDepth is rejected.
const MaxDepth = 3

// Collection is an internal or root node of the sharing hierarchy.
//
// Policy fields (ExpiresAt, PasswordHash, AllowedEmails) are authoritative
// only on root collections. A sub-collection may carry values in these
// fields, but access checks always resolve policy at the root of the tree.
type Collection struct {
	ID            string     `bson:"_id"`
	ParentID      *string    `bson:"parent_id,omitempty"` // nil = root
	Title         string     `bson:"title"`
	Subtitle      string     `bson:"subtitle,omitempty"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
	ExpiresAt     *time.Time `bson:"expires_at,omitempty"`
	PasswordHash  *string    `bson:"password_hash,omitempty"`
	AllowedEmails []string   `bson:"allowed_emails,omitempty"`
	IsDeleted     bool       `bson:"is_deleted"`
	Depth         int        `bson:"depth"`      // root = 1
	ItemCount     int64      `bson:"item_count"` // non-deleted direct children
	OwnerID       string     `bson:"owner_id,omitempty"`
}

// IsRoot reports whether the collection is the root of its tree.
func (c *Collection) IsRoot() bool {
	return c.ParentID == nil
}
