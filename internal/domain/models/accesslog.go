package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Access actions recorded in the audit trail.
const (
	ActionView         = "view"
	ActionDownload     = "download"
	ActionDownloadFile = "download_file"
)

// AccessLogEntry is an append-only record of one access attempt against a
// file. Entries are never mutated or deleted.
type AccessLogEntry struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	FileID        string             `bson:"file_id"`
	Email         string             `bson:"email"` // "unknown" when absent
	AccessedAt    time.Time          `bson:"accessed_at"`
	IP            string             `bson:"ip"`
	UserAgent     string             `bson:"user_agent,omitempty"`
	Geolocation   string             `bson:"geolocation,omitempty"`
	Action        string             `bson:"action"`
	Success       bool               `bson:"success"`
	FailureReason string             `bson:"failure_reason,omitempty"`
}

// CollectionAccessLogEntry is the collection-scoped twin of AccessLogEntry.
type CollectionAccessLogEntry struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	CollectionID  string             `bson:"collection_id"`
	Email         string             `bson:"email"`
	AccessedAt    time.Time          `bson:"accessed_at"`
	IP            string             `bson:"ip"`
	UserAgent     string             `bson:"user_agent,omitempty"`
	Geolocation   string             `bson:"geolocation,omitempty"`
	Action        string             `bson:"action"`
	Success       bool               `bson:"success"`
	FailureReason string             `bson:"failure_reason,omitempty"`
}
