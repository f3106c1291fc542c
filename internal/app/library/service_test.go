package library

import (
	"errors"
	"strings"
	"testing"

	"github.com/kirubae/filegate/internal/app/blob"
	"github.com/kirubae/filegate/internal/app/store/accesslog"
	"github.com/kirubae/filegate/internal/app/store/collection"
	"github.com/kirubae/filegate/internal/app/store/file"
	"github.com/kirubae/filegate/internal/app/store/storageaudit"
	"github.com/kirubae/filegate/internal/app/system/apperr"
	"github.com/kirubae/filegate/internal/app/system/auditlog"
	"github.com/kirubae/filegate/internal/app/uploads"
	"github.com/kirubae/filegate/internal/domain/models"
	"github.com/kirubae/filegate/internal/testutil"
	"go.uber.org/zap"
)

type env struct {
	svc         *Service
	files       *file.Store
	collections *collection.Store
	blobs       blob.Store
	audit       *storageaudit.Store
}

func newEnv(t *testing.T, cfg Config) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	local, err := blob.NewLocal(blob.LocalConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	files := file.New(db)
	collections := collection.New(db)
	logs := accesslog.New(db)
	saudit := storageaudit.New(db)
	audit := auditlog.New(logs, saudit, logger, auditlog.Config{Access: "db", Storage: "db"})
	verifier := uploads.NewVerifier(local, audit, logger)

	return &env{
		svc:         NewService(cfg, files, collections, logs, verifier, local, audit, logger),
		files:       files,
		collections: collections,
		blobs:       local,
		audit:       saudit,
	}
}

func strptr(s string) *string { return &s }

func (e *env) createCollection(t *testing.T, parentID *string, title, owner string) *models.Collection {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	coll, err := e.svc.CreateCollection(ctx, CreateCollectionInput{
		ParentID: parentID,
		Title:    title,
		OwnerID:  owner,
	})
	if err != nil {
		t.Fatalf("CreateCollection(%s) error = %v", title, err)
	}
	return coll
}

func (e *env) uploadFile(t *testing.T, collectionID *string, name, content, owner string) *models.File {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	f, err := e.svc.UploadFile(ctx, UploadFileInput{
		CollectionID: collectionID,
		OriginalName: name,
		Content:      strings.NewReader(content),
		Size:         int64(len(content)),
		ContentType:  "text/plain",
		OwnerID:      owner,
	})
	if err != nil {
		t.Fatalf("UploadFile(%s) error = %v", name, err)
	}
	return f
}

func TestCreateCollection_DepthLimit(t *testing.T) {
	e := newEnv(t, Config{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := e.createCollection(t, nil, "Root", "owner1")
	mid := e.createCollection(t, &root.ID, "Mid", "owner1")
	leaf := e.createCollection(t, &mid.ID, "Leaf", "owner1")
	if leaf.Depth != models.MaxDepth {
		t.Fatalf("leaf depth = %d, want %d", leaf.Depth, models.MaxDepth)
	}

	_, err := e.svc.CreateCollection(ctx, CreateCollectionInput{
		ParentID: &leaf.ID,
		Title:    "Too deep",
		OwnerID:  "owner1",
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("depth overflow error = %v, want validation", err)
	}
	if apperr.MessageOf(err) != "maximum nesting depth reached" {
		t.Errorf("message = %q", apperr.MessageOf(err))
	}
}

func TestCreateCollection_BumpsParentCount(t *testing.T) {
	e := newEnv(t, Config{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := e.createCollection(t, nil, "Root", "owner1")
	e.createCollection(t, &root.ID, "Child A", "owner1")
	e.createCollection(t, &root.ID, "Child B", "owner1")

	got, err := e.collections.GetByID(ctx, root.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ItemCount != 2 {
		t.Errorf("root item_count = %d, want 2", got.ItemCount)
	}
}

func TestCreateCollection_ParentOwnership(t *testing.T) {
	e := newEnv(t, Config{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := e.createCollection(t, nil, "Root", "owner1")
	_, err := e.svc.CreateCollection(ctx, CreateCollectionInput{
		ParentID: &root.ID,
		Title:    "Sneaky",
		OwnerID:  "owner2",
	})
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("cross-owner nest error = %v, want forbidden", err)
	}
}

func TestUploadFile_HappyPath(t *testing.T) {
	e := newEnv(t, Config{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := e.createCollection(t, nil, "Root", "owner1")
	f := e.uploadFile(t, &root.ID, "notes.txt", "hello world", "owner1")

	// The blob is stored under a generated key carrying the extension.
	if !strings.HasSuffix(f.BlobKey, ".txt") {
		t.Errorf("blob key = %q, want .txt suffix", f.BlobKey)
	}
	size, err := e.blobs.Head(ctx, f.BlobKey)
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	if size != int64(len("hello world")) {
		t.Errorf("stored size = %d", size)
	}

	got, err := e.collections.GetByID(ctx, root.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ItemCount != 1 {
		t.Errorf("item_count = %d, want 1", got.ItemCount)
	}

	// A success entry lands in the storage audit trail.
	entries, err := e.audit.RecentForResource(ctx, f.ID, 0)
	if err != nil {
		t.Fatalf("RecentForResource() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Status != models.StorageStatusSuccess {
		t.Errorf("audit entries = %+v", entries)
	}
}

func TestUploadFile_Constraints(t *testing.T) {
	e := newEnv(t, Config{MaxUploadSize: 4, AllowedExts: []string{"txt"}})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cases := []struct {
		name     string
		fileName string
		content  string
	}{
		{"disallowed extension", "evil.exe", "xx"},
		{"over size limit", "big.txt", "xxxxxxxx"},
		{"empty name", "", "xx"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.svc.UploadFile(ctx, UploadFileInput{
				OriginalName: tc.fileName,
				Content:      strings.NewReader(tc.content),
				Size:         int64(len(tc.content)),
				OwnerID:      "owner1",
			})
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("error = %v, want validation", err)
			}
		})
	}
}

func TestUploadFile_SizeMismatchCreatesNoRecord(t *testing.T) {
	e := newEnv(t, Config{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := e.svc.UploadFile(ctx, UploadFileInput{
		OriginalName: "short.txt",
		Content:      strings.NewReader("abc"),
		Size:         10, // declared size disagrees with the content
		OwnerID:      "owner1",
	})
	if apperr.KindOf(err) != apperr.KindStorageIntegrity {
		t.Fatalf("error = %v, want storage integrity", err)
	}

	files, err := e.files.ListStandaloneByOwner(ctx, "owner1")
	if err != nil {
		t.Fatalf("ListStandaloneByOwner() error = %v", err)
	}
	if len(files) != 0 {
		t.Errorf("file records = %d, want 0", len(files))
	}
}

func TestDeleteResource_CascadeKeepsBlobs(t *testing.T) {
	e := newEnv(t, Config{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := e.createCollection(t, nil, "Root", "owner1")
	mid := e.createCollection(t, &root.ID, "Mid", "owner1")
	inMid := e.uploadFile(t, &mid.ID, "deep.txt", "deep", "owner1")
	inRoot := e.uploadFile(t, &root.ID, "top.txt", "top", "owner1")

	if err := e.svc.DeleteResource(ctx, "owner1", root.ID, uploads.Meta{}); err != nil {
		t.Fatalf("DeleteResource() error = %v", err)
	}

	// Everything under the root disappears from access paths.
	for _, id := range []string{root.ID, mid.ID} {
		if _, err := e.collections.GetByID(ctx, id); err == nil {
			t.Errorf("collection %s still visible", id)
		}
	}
	for _, id := range []string{inMid.ID, inRoot.ID} {
		if _, err := e.files.GetByID(ctx, id); err == nil {
			t.Errorf("file %s still visible", id)
		}
	}

	// Cascaded deletes leave blobs in place.
	for _, f := range []*models.File{inMid, inRoot} {
		if _, err := e.blobs.Head(ctx, f.BlobKey); err != nil {
			t.Errorf("blob %s gone after cascade: %v", f.BlobKey, err)
		}
	}
}

func TestDeleteResource_FileRemovesBlob(t *testing.T) {
	e := newEnv(t, Config{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := e.createCollection(t, nil, "Root", "owner1")
	f := e.uploadFile(t, &root.ID, "gone.txt", "bye", "owner1")

	if err := e.svc.DeleteResource(ctx, "owner1", f.ID, uploads.Meta{}); err != nil {
		t.Fatalf("DeleteResource() error = %v", err)
	}

	if _, err := e.blobs.Head(ctx, f.BlobKey); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("blob after explicit delete: %v, want ErrNotFound", err)
	}

	got, err := e.collections.GetByID(ctx, root.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ItemCount != 0 {
		t.Errorf("item_count = %d, want 0", got.ItemCount)
	}

	// The delete outcome is in the storage audit trail after the upload entry.
	entries, err := e.audit.RecentForResource(ctx, f.ID, 0)
	if err != nil {
		t.Fatalf("RecentForResource() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}
	var sawDelete bool
	for _, e := range entries {
		if e.Operation == models.StorageOpDelete && e.Status == models.StorageStatusSuccess {
			sawDelete = true
		}
	}
	if !sawDelete {
		t.Errorf("no successful delete entry in %+v", entries)
	}
}

func TestDeleteResource_Ownership(t *testing.T) {
	e := newEnv(t, Config{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := e.createCollection(t, nil, "Root", "owner1")
	err := e.svc.DeleteResource(ctx, "owner2", root.ID, uploads.Meta{})
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("cross-owner delete error = %v, want forbidden", err)
	}
}

func TestGetResource_CollectionWithChildren(t *testing.T) {
	e := newEnv(t, Config{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := e.createCollection(t, nil, "Root", "owner1")
	e.createCollection(t, &root.ID, "Child", "owner1")
	e.uploadFile(t, &root.ID, "a.txt", "aaa", "owner1")

	res, err := e.svc.GetResource(ctx, "owner1", root.ID, false)
	if err != nil {
		t.Fatalf("GetResource() error = %v", err)
	}
	if res.Collection == nil || res.File != nil {
		t.Fatalf("resource shape = %+v", res)
	}
	if len(res.SubCollections) != 1 || len(res.Files) != 1 {
		t.Errorf("children = %d collections, %d files", len(res.SubCollections), len(res.Files))
	}

	if _, err := e.svc.GetResource(ctx, "owner2", root.ID, false); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("cross-owner get error = %v, want forbidden", err)
	}
	if _, err := e.svc.GetResource(ctx, "owner1", "missing00000", false); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("missing get error = %v, want not found", err)
	}
}

func TestUpdateResource_PasswordAndClear(t *testing.T) {
	e := newEnv(t, Config{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := e.createCollection(t, nil, "Root", "owner1")

	if err := e.svc.UpdateResource(ctx, "owner1", root.ID, UpdateInput{
		Password: strptr("secret"),
	}); err != nil {
		t.Fatalf("UpdateResource(set) error = %v", err)
	}
	got, err := e.collections.GetByID(ctx, root.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.PasswordHash == nil || *got.PasswordHash == "" {
		t.Fatal("password hash not set")
	}
	if *got.PasswordHash == "secret" {
		t.Error("password stored in the clear")
	}

	if err := e.svc.UpdateResource(ctx, "owner1", root.ID, UpdateInput{
		ClearPassword: true,
	}); err != nil {
		t.Fatalf("UpdateResource(clear) error = %v", err)
	}
	got, err = e.collections.GetByID(ctx, root.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.PasswordHash != nil {
		t.Error("password hash not cleared")
	}
}

func TestListRootsForOwner(t *testing.T) {
	e := newEnv(t, Config{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := e.createCollection(t, nil, "Root", "owner1")
	e.createCollection(t, &root.ID, "Nested", "owner1")
	e.uploadFile(t, nil, "loose.txt", "x", "owner1")
	e.uploadFile(t, &root.ID, "inside.txt", "y", "owner1")

	listing, err := e.svc.ListRootsForOwner(ctx, "owner1")
	if err != nil {
		t.Fatalf("ListRootsForOwner() error = %v", err)
	}
	if len(listing.Collections) != 1 || listing.Collections[0].ID != root.ID {
		t.Errorf("collections = %+v", listing.Collections)
	}
	if len(listing.Files) != 1 || listing.Files[0].FileName != "loose.txt" {
		t.Errorf("files = %+v", listing.Files)
	}
}
