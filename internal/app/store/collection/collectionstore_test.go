package collection

import (
	"errors"
	"testing"
	"time"

	"github.com/kirubae/filegate/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
)

func strptr(s string) *string { return &s }

func mustCreate(t *testing.T, s *Store, input CreateInput) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := s.Create(ctx, input); err != nil {
		t.Fatalf("Create(%s) error = %v", input.ID, err)
	}
}

// seedTree builds root -> mid -> leaf for chain and cascade tests.
func seedTree(t *testing.T, s *Store) {
	t.Helper()
	mustCreate(t, s, CreateInput{ID: "root00000001", Title: "Root", Depth: 1, OwnerID: "owner1"})
	mustCreate(t, s, CreateInput{ID: "mid000000001", ParentID: strptr("root00000001"), Title: "Mid", Depth: 2, OwnerID: "owner1"})
	mustCreate(t, s, CreateInput{ID: "leaf00000001", ParentID: strptr("mid000000001"), Title: "Leaf", Depth: 3, OwnerID: "owner1"})
}

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	mustCreate(t, s, CreateInput{ID: "abc123def456", Title: "Photos", Subtitle: "2026", Depth: 1, OwnerID: "owner1"})

	got, err := s.GetByID(ctx, "abc123def456")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "Photos" || got.Subtitle != "2026" || got.Depth != 1 {
		t.Errorf("GetByID() = %+v", got)
	}
	if got.ItemCount != 0 {
		t.Errorf("new collection item_count = %d, want 0", got.ItemCount)
	}

	if _, err := s.GetByID(ctx, "missing00000"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("GetByID(missing) error = %v, want ErrNoDocuments", err)
	}
}

func TestStore_GetByID_ExcludesDeleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	mustCreate(t, s, CreateInput{ID: "abc123def456", Title: "Gone", Depth: 1})
	if err := s.SoftDeleteMany(ctx, []string{"abc123def456"}); err != nil {
		t.Fatalf("SoftDeleteMany() error = %v", err)
	}

	if _, err := s.GetByID(ctx, "abc123def456"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("GetByID(deleted) error = %v, want ErrNoDocuments", err)
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
	mustCreate(t, s, CreateInput{ID: "abc123def456", Title: "Before", Depth: 1, ExpiresAt: &exp})

	if err := s.Update(ctx, "abc123def456", Patch{
		Title:         strptr("After"),
		ClearExpiry:   true,
		AllowedEmails: &[]string{"a@x.com"},
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := s.GetByID(ctx, "abc123def456")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "After" {
		t.Errorf("title = %q, want After", got.Title)
	}
	if got.ExpiresAt != nil {
		t.Errorf("expires_at = %v, want cleared", got.ExpiresAt)
	}
	if len(got.AllowedEmails) != 1 || got.AllowedEmails[0] != "a@x.com" {
		t.Errorf("allowed_emails = %v", got.AllowedEmails)
	}

	if err := s.Update(ctx, "missing00000", Patch{Title: strptr("x")}); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("Update(missing) error = %v, want ErrNoDocuments", err)
	}
}

func TestStore_ResolveChain(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	seedTree(t, s)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	chain, err := s.ResolveChain(ctx, "leaf00000001")
	if err != nil {
		t.Fatalf("ResolveChain() error = %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("chain length = %d, want 3", len(chain))
	}
	// Root first, target last.
	if chain[0].ID != "root00000001" || chain[2].ID != "leaf00000001" {
		t.Errorf("chain order = [%s %s %s]", chain[0].ID, chain[1].ID, chain[2].ID)
	}

	// The root resolves to a single-element chain.
	chain, err = s.ResolveChain(ctx, "root00000001")
	if err != nil {
		t.Fatalf("ResolveChain(root) error = %v", err)
	}
	if len(chain) != 1 {
		t.Errorf("root chain length = %d, want 1", len(chain))
	}
}

func TestStore_ResolveChain_DeletedAncestorHidesSubtree(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	seedTree(t, s)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := s.SoftDeleteMany(ctx, []string{"mid000000001"}); err != nil {
		t.Fatalf("SoftDeleteMany() error = %v", err)
	}

	_, err := s.ResolveChain(ctx, "leaf00000001")
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("ResolveChain(below deleted) error = %v, want ErrNoDocuments", err)
	}
}

func TestStore_DescendantIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	seedTree(t, s)
	mustCreate(t, s, CreateInput{ID: "mid000000002", ParentID: strptr("root00000001"), Title: "Mid 2", Depth: 2})

	ctx, cancel := testutil.TestContext()
	defer cancel()

	ids, err := s.DescendantIDs(ctx, "root00000001")
	if err != nil {
		t.Fatalf("DescendantIDs() error = %v", err)
	}
	want := map[string]bool{"mid000000001": true, "mid000000002": true, "leaf00000001": true}
	if len(ids) != len(want) {
		t.Fatalf("DescendantIDs() = %v, want %d ids", ids, len(want))
	}
	for _, id := range ids {
		if !want[id] {
			t.Errorf("unexpected descendant %q", id)
		}
	}

	// A leaf has no descendants.
	ids, err = s.DescendantIDs(ctx, "leaf00000001")
	if err != nil {
		t.Fatalf("DescendantIDs(leaf) error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("leaf descendants = %v, want none", ids)
	}
}

func TestStore_IncItemCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	mustCreate(t, s, CreateInput{ID: "abc123def456", Title: "Counted", Depth: 1})

	if err := s.IncItemCount(ctx, "abc123def456", 1); err != nil {
		t.Fatalf("IncItemCount(+1) error = %v", err)
	}
	if err := s.IncItemCount(ctx, "abc123def456", 1); err != nil {
		t.Fatalf("IncItemCount(+1) error = %v", err)
	}
	if err := s.IncItemCount(ctx, "abc123def456", -1); err != nil {
		t.Fatalf("IncItemCount(-1) error = %v", err)
	}

	got, err := s.GetByID(ctx, "abc123def456")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ItemCount != 1 {
		t.Errorf("item_count = %d, want 1", got.ItemCount)
	}
}

func TestStore_ListRootsByOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	seedTree(t, s)
	mustCreate(t, s, CreateInput{ID: "other0000001", Title: "Other owner", Depth: 1, OwnerID: "owner2"})

	ctx, cancel := testutil.TestContext()
	defer cancel()

	roots, err := s.ListRootsByOwner(ctx, "owner1")
	if err != nil {
		t.Fatalf("ListRootsByOwner() error = %v", err)
	}
	if len(roots) != 1 || roots[0].ID != "root00000001" {
		t.Errorf("ListRootsByOwner() = %v, want [root00000001]", roots)
	}
}
