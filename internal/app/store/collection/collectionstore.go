// Package collection provides storage for share collections.
package collection

import (
	"context"
	"fmt"
	"time"

	"github.com/kirubae/filegate/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the collections collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new collection store.
func New(db *mongo.Database) *Store {
	return &Store{
		c: db.Collection("collections"),
	}
}

// CreateInput contains the input for creating a collection.
type CreateInput struct {
	ID            string
	ParentID      *string
	Title         string
	Subtitle      string
	Depth         int
	ExpiresAt     *time.Time
	PasswordHash  *string
	AllowedEmails []string
	OwnerID       string
}

// Create inserts a new collection. The caller is responsible for depth
// validation and for adjusting the parent's item_count.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.Collection, error) {
	now := time.Now().UTC()
	coll := models.Collection{
		ID:            input.ID,
		ParentID:      input.ParentID,
		Title:         input.Title,
		Subtitle:      input.Subtitle,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     input.ExpiresAt,
		PasswordHash:  input.PasswordHash,
		AllowedEmails: input.AllowedEmails,
		Depth:         input.Depth,
		ItemCount:     0,
		OwnerID:       input.OwnerID,
	}

	if _, err := s.c.InsertOne(ctx, coll); err != nil {
		return nil, err
	}

	return &coll, nil
}

// GetByID retrieves a non-deleted collection by ID.
// Returns mongo.ErrNoDocuments for absent or soft-deleted collections.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Collection, error) {
	var coll models.Collection
	err := s.c.FindOne(ctx, bson.M{"_id": id, "is_deleted": false}).Decode(&coll)
	if err != nil {
		return nil, err
	}
	return &coll, nil
}

// Patch lists the fields of a partial update. Nil pointers leave the field
// untouched; the Clear flags unset optional policy fields explicitly.
type Patch struct {
	Title         *string
	Subtitle      *string
	ExpiresAt     *time.Time
	ClearExpiry   bool
	PasswordHash  *string
	ClearPassword bool
	AllowedEmails *[]string
}

// Update applies a patch to a collection.
func (s *Store) Update(ctx context.Context, id string, patch Patch) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Subtitle != nil {
		set["subtitle"] = *patch.Subtitle
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

// ListByParent returns the non-deleted direct sub-collections of a parent.
func (s *Store) ListByParent(ctx context.Context, parentID string) ([]models.Collection, error) {
	return s.list(ctx, bson.M{"parent_id": parentID, "is_deleted": false})
}

// ListRootsByOwner returns the owner's non-deleted root collections.
func (s *Store) ListRootsByOwner(ctx context.Context, ownerID string) ([]models.Collection, error) {
	return s.list(ctx, bson.M{
		"owner_id":   ownerID,
		"parent_id":  bson.M{"$exists": false},
		"is_deleted": false,
	})
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.Collection, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var colls []models.Collection
	if err := cursor.All(ctx, &colls); err != nil {
		return nil, err
	}
	return colls, nil
}

// CountByParent returns the number of non-deleted direct sub-collections.
func (s *Store) CountByParent(ctx context.Context, parentID string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"parent_id": parentID, "is_deleted": false})
}

// IncItemCount atomically adjusts a collection's item_count by delta.
func (s *Store) IncItemCount(ctx context.Context, id string, delta int64) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"item_count": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// ResolveChain returns the chain of collections from the root of the tree
// down to and including id, walking parent links. The first element is the
// root whose policy governs the whole subtree.
//
// Absent or soft-deleted links anywhere in the chain surface as
// mongo.ErrNoDocuments, so a deleted ancestor hides its whole subtree.
func (s *Store) ResolveChain(ctx context.Context, id string) ([]models.Collection, error) {
	var chain []models.Collection

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	chain = append(chain, *current)

	for current.ParentID != nil {
		parent, err := s.GetByID(ctx, *current.ParentID)
		if err != nil {
			return nil, fmt.Errorf("resolve parent %s: %w", *current.ParentID, err)
		}
		chain = append([]models.Collection{*parent}, chain...)
		current = parent
	}

	return chain, nil
}

// DescendantIDs returns the ids of every non-deleted collection below id
// (transitive closure over parent links), excluding id itself.
func (s *Store) DescendantIDs(ctx context.Context, id string) ([]string, error) {
	var descendants []string
	frontier := []string{id}

	for len(frontier) > 0 {
		cursor, err := s.c.Find(ctx, bson.M{
			"parent_id":  bson.M{"$in": frontier},
			"is_deleted": false,
		})
		if err != nil {
			return nil, err
		}

		var children []models.Collection
		if err := cursor.All(ctx, &children); err != nil {
			return nil, err
		}

		frontier = frontier[:0]
		for _, child := range children {
			descendants = append(descendants, child.ID)
			frontier = append(frontier, child.ID)
		}
	}

	return descendants, nil
}

// SoftDeleteMany marks the given collections deleted. Rows are retained
// for audit history and disappear from every listing and access path.
func (s *Store) SoftDeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.c.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{
		"$set": bson.M{"is_deleted": true, "updated_at": time.Now().UTC()},
	})
	return err
}
