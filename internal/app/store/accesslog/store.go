// Package accesslog stores the append-only access-attempt audit trail.
package accesslog

import (
	"context"
	"time"

	"github.com/kirubae/filegate/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages the two access-log collections. Writes are insert-only;
// nothing here mutates or deletes an existing entry.
type Store struct {
	files       *mongo.Collection
	collections *mongo.Collection
}

// New creates a new access log Store.
func New(db *mongo.Database) *Store {
	return &Store{
		files:       db.Collection("file_access_logs"),
		collections: db.Collection("collection_access_logs"),
	}
}

// LogFile appends one file access attempt.
func (s *Store) LogFile(ctx context.Context, entry models.AccessLogEntry) error {
	if entry.AccessedAt.IsZero() {
		entry.AccessedAt = time.Now().UTC()
	}
	if entry.Email == "" {
		entry.Email = "unknown"
	}
	_, err := s.files.InsertOne(ctx, entry)
	return err
}

// LogCollection appends one collection access attempt.
func (s *Store) LogCollection(ctx context.Context, entry models.CollectionAccessLogEntry) error {
	if entry.AccessedAt.IsZero() {
		entry.AccessedAt = time.Now().UTC()
	}
	if entry.Email == "" {
		entry.Email = "unknown"
	}
	_, err := s.collections.InsertOne(ctx, entry)
	return err
}

// RecentForFile returns the newest entries for one file, newest first.
func (s *Store) RecentForFile(ctx context.Context, fileID string, limit int64) ([]models.AccessLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "accessed_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.files.Find(ctx, bson.M{"file_id": fileID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.AccessLogEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// RecentForCollection returns the newest entries for one collection,
// newest first.
func (s *Store) RecentForCollection(ctx context.Context, collectionID string, limit int64) ([]models.CollectionAccessLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "accessed_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.collections.Find(ctx, bson.M{"collection_id": collectionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.CollectionAccessLogEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
