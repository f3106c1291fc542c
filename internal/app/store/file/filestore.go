// Package file provides storage for shared files.
package file

import (
	"context"
	"time"

	"github.com/kirubae/filegate/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the files collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new file store.
func New(db *mongo.Database) *Store {
	return &Store{
		c: db.Collection("files"),
	}
}

// CreateInput contains the input for creating a file record.
type CreateInput struct {
	ID            string
	CollectionID  *string
	FileName      string
	OriginalName  string
	BlobKey       string
	Size          int64
	ContentType   string
	ExpiresAt     *time.Time
	PasswordHash  *string
	AllowedEmails []string
	OwnerID       string
}

// Create inserts a new file record. The blob must already be written and
// verified; the caller adjusts the owning collection's item_count.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.File, error) {
	now := time.Now().UTC()
	f := models.File{
		ID:            input.ID,
		CollectionID:  input.CollectionID,
		FileName:      input.FileName,
		OriginalName:  input.OriginalName,
		BlobKey:       input.BlobKey,
		Size:          input.Size,
		ContentType:   input.ContentType,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     input.ExpiresAt,
		PasswordHash:  input.PasswordHash,
		AllowedEmails: input.AllowedEmails,
		OwnerID:       input.OwnerID,
	}

	if _, err := s.c.InsertOne(ctx, f); err != nil {
		return nil, err
	}

	return &f, nil
}

// GetByID retrieves a non-deleted file by ID.
// Returns mongo.ErrNoDocuments for absent or soft-deleted files.
func (s *Store) GetByID(ctx context.Context, id string) (*models.File, error) {
	var f models.File
	err := s.c.FindOne(ctx, bson.M{"_id": id, "is_deleted": false}).Decode(&f)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Patch lists the fields of a partial update. Nil pointers leave the field
// untouched; the Clear flags unset optional policy fields explicitly.
type Patch struct {
	FileName      *string
	ExpiresAt     *time.Time
	ClearExpiry   bool
	PasswordHash  *string
	ClearPassword bool
	AllowedEmails *[]string
}

// Update applies a patch to a file record.
func (s *Store) Update(ctx context.Context, id string, patch Patch) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if patch.FileName != nil {
		set["file_name"] = *patch.FileName
	}
	if patch.ExpiresAt != nil {
		set["expires_at"] = *patch.ExpiresAt
	}
	if patch.ClearExpiry {
		unset["expires_at"] = ""
	}
	if patch.PasswordHash != nil {
		set["password_hash"] = *patch.PasswordHash
	}
	if patch.ClearPassword {
		unset["password_hash"] = ""
	}
	if patch.AllowedEmails != nil {
		set["allowed_emails"] = *patch.AllowedEmails
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "is_deleted": false}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListByCollection returns the non-deleted files directly inside a collection.
func (s *Store) ListByCollection(ctx context.Context, collectionID string) ([]models.File, error) {
	return s.list(ctx, bson.M{"collection_id": collectionID, "is_deleted": false})
}

// ListStandaloneByOwner returns the owner's non-deleted standalone files.
func (s *Store) ListStandaloneByOwner(ctx context.Context, ownerID string) ([]models.File, error) {
	return s.list(ctx, bson.M{
		"owner_id":      ownerID,
		"collection_id": bson.M{"$exists": false},
		"is_deleted":    false,
	})
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.File, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var files []models.File
	if err := cursor.All(ctx, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// CountByCollection returns the number of non-deleted files directly
// inside a collection.
func (s *Store) CountByCollection(ctx context.Context, collectionID string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"collection_id": collectionID, "is_deleted": false})
}

// IncDownloadCount bumps a file's download counter.
func (s *Store) IncDownloadCount(ctx context.Context, id string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"download_count": 1},
	})
	return err
}

// SoftDelete marks one file deleted.
func (s *Store) SoftDelete(ctx context.Context, id string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "is_deleted": false}, bson.M{
		"$set": bson.M{"is_deleted": true, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SoftDeleteByCollections marks every non-deleted file inside any of the
// given collections as deleted. Used by the cascading collection delete;
// blobs are left in place there since the rows remain for audit history.
func (s *Store) SoftDeleteByCollections(ctx context.Context, collectionIDs []string) (int64, error) {
	if len(collectionIDs) == 0 {
		return 0, nil
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"collection_id": bson.M{"$in": collectionIDs}, "is_deleted": false},
		bson.M{"$set": bson.M{"is_deleted": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
