// Package indexes creates the MongoDB indexes the stores depend on.
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureAll is called at startup. Each ensure* function is idempotent.
// Errors are aggregated so every problem is visible and startup can fail
// fast.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureFiles(ctx, db); err != nil {
		problems = append(problems, "files: "+err.Error())
	}
	if err := ensureCollections(ctx, db); err != nil {
		problems = append(problems, "collections: "+err.Error())
	}
	if err := ensureFileAccessLogs(ctx, db); err != nil {
		problems = append(problems, "file_access_logs: "+err.Error())
	}
	if err := ensureCollectionAccessLogs(ctx, db); err != nil {
		problems = append(problems, "collection_access_logs: "+err.Error())
	}
	if err := ensureStorageAudit(ctx, db); err != nil {
		problems = append(problems, "storage_audit: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// ensureIndexSet creates each index, tolerating re-creation of an index
// that already exists with the same keys and options.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string
	for _, m := range models {
		name := ""
		if m.Options != nil && m.Options.Name != nil {
			name = *m.Options.Name
		}
		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			// DocDB reports IndexOptionsConflict when the same keys exist
			// under a different name; the index is still usable.
			if strings.Contains(err.Error(), "IndexOptionsConflict") {
				continue
			}
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func ensureFiles(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("files")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// List files inside a collection
		{
			Keys: bson.D{
				{Key: "collection_id", Value: 1},
				{Key: "is_deleted", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_file_collection"),
		},
		// Owner listing of standalone files
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "is_deleted", Value: 1},
			},
			Options: options.Index().SetName("idx_file_owner"),
		},
	})
}

func ensureCollections(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("collections")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Child listing and descendant walks
		{
			Keys: bson.D{
				{Key: "parent_id", Value: 1},
				{Key: "is_deleted", Value: 1},
			},
			Options: options.Index().SetName("idx_coll_parent"),
		},
		// Owner listing of roots
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "is_deleted", Value: 1},
			},
			Options: options.Index().SetName("idx_coll_owner"),
		},
	})
}

func ensureFileAccessLogs(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("file_access_logs")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Recent history per file
		{
			Keys: bson.D{
				{Key: "file_id", Value: 1},
				{Key: "accessed_at", Value: -1},
			},
			Options: options.Index().SetName("idx_falog_file_time"),
		},
	})
}

func ensureCollectionAccessLogs(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("collection_access_logs")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "collection_id", Value: 1},
				{Key: "accessed_at", Value: -1},
			},
			Options: options.Index().SetName("idx_calog_coll_time"),
		},
	})
}

func ensureStorageAudit(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("storage_audit")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Per-resource history
		{
			Keys: bson.D{
				{Key: "resource_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_saudit_resource_time"),
		},
		// Failure scans
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_saudit_status_time"),
		},
	})
}
