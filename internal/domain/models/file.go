package models

import (
	"time"
)

// File is a leaf resource: one uploaded object in the blob store plus the
// metadata and sharing policy that governs it. The ID is the short
// URL-facing identifier, not a database-generated one.
type File struct {
	ID            string     `bson:"_id"`
	CollectionID  *string    `bson:"collection_id,omitempty"` // nil = standalone file
	FileName      string     `bson:"file_name"`               // display name
	OriginalName  string     `bson:"original_name"`           // name as uploaded
	BlobKey       string     `bson:"blob_key"`                // key in the blob store
	Size          int64      `bson:"size"`
	ContentType   string     `bson:"content_type"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
	ExpiresAt     *time.Time `bson:"expires_at,omitempty"`
	PasswordHash  *string    `bson:"password_hash,omitempty"`
	AllowedEmails []string   `bson:"allowed_emails,omitempty"` // empty = unrestricted
	DownloadCount int64      `bson:"download_count"`
	IsDeleted     bool       `bson:"is_deleted"`
	OwnerID       string     `bson:"owner_id,omitempty"`
}

// IsStandalone reports whether the file carries its own policy rather than
// inheriting from an owning collection.
func (f *File) IsStandalone() bool {
	return f.CollectionID == nil
}
