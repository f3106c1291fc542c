// Package storageaudit stores the append-only blob-operation audit trail.
package storageaudit

import (
	"context"
	"time"

	"github.com/kirubae/filegate/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages the storage_audit collection. Insert-only; this stream is
// independent of the access-control trail so storage corruption remains
// visible even if access logging is reconfigured.
type Store struct {
	c *mongo.Collection
}

// New creates a new storage audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("storage_audit")}
}

// Log appends one blob-operation record.
func (s *Store) Log(ctx context.Context, entry models.StorageAuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, entry)
	return err
}

// RecentForResource returns the newest entries for one resource, newest
// first.
func (s *Store) RecentForResource(ctx context.Context, resourceID string, limit int64) ([]models.StorageAuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.c.Find(ctx, bson.M{"resource_id": resourceID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.StorageAuditEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Failures returns recent non-success entries across all resources,
// newest first. Useful when reconstructing a storage incident.
func (s *Store) Failures(ctx context.Context, since time.Time, limit int64) ([]models.StorageAuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.c.Find(ctx, bson.M{
		"status":     bson.M{"$ne": models.StorageStatusSuccess},
		"created_at": bson.M{"$gte": since},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.StorageAuditEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
