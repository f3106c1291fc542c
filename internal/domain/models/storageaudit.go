package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Blob operations recorded in the storage audit stream.
const (
	StorageOpUpload   = "upload"
	StorageOpDownload = "download"
	StorageOpDelete   = "delete"
)

// Storage operation outcomes.
const (
	StorageStatusSuccess = "success"
	StorageStatusFailed  = "failed"
	StorageStatusMissing = "missing"
)

// StorageAuditEntry records the outcome of one blob-store operation,
// independently of the access-control trail. It is the record used to
// detect storage-layer corruption or loss after the fact.
type StorageAuditEntry struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	ResourceID string             `bson:"resource_id"`
	BlobKey    string             `bson:"blob_key"`
	Operation  string             `bson:"operation"`
	Size       int64              `bson:"size"`
	Status     string             `bson:"status"`
	Error      string             `bson:"error,omitempty"`
	IP         string             `bson:"ip,omitempty"`
	UserAgent  string             `bson:"user_agent,omitempty"`
	CreatedAt  time.Time          `bson:"created_at"`
}
