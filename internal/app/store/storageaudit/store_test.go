package storageaudit

import (
	"testing"
	"time"

	"github.com/kirubae/filegate/internal/domain/models"
	"github.com/kirubae/filegate/internal/testutil"
)

func TestStore_LogDefaultsTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := s.Log(ctx, models.StorageAuditEntry{
		ResourceID: "file00000001",
		BlobKey:    "k1.pdf",
		Operation:  models.StorageOpUpload,
		Size:       10,
		Status:     models.StorageStatusSuccess,
	})
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	entries, err := s.RecentForResource(ctx, "file00000001", 0)
	if err != nil {
		t.Fatalf("RecentForResource() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}
}

func TestStore_FailuresExcludeSuccess(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := []models.StorageAuditEntry{
		{ResourceID: "f1", BlobKey: "k1", Operation: models.StorageOpUpload, Status: models.StorageStatusSuccess, CreatedAt: base},
		{ResourceID: "f2", BlobKey: "k2", Operation: models.StorageOpUpload, Status: models.StorageStatusMissing, Error: "blob missing after upload", CreatedAt: base.Add(time.Minute)},
		{ResourceID: "f3", BlobKey: "k3", Operation: models.StorageOpDelete, Status: models.StorageStatusFailed, Error: "timeout", CreatedAt: base.Add(2 * time.Minute)},
		{ResourceID: "f4", BlobKey: "k4", Operation: models.StorageOpUpload, Status: models.StorageStatusFailed, CreatedAt: base.Add(-time.Hour)},
	}
	for _, e := range seed {
		if err := s.Log(ctx, e); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}

	// Only failures inside the window, newest first.
	entries, err := s.Failures(ctx, base, 0)
	if err != nil {
		t.Fatalf("Failures() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].ResourceID != "f3" || entries[1].ResourceID != "f2" {
		t.Errorf("got %s, %s; want f3, f2", entries[0].ResourceID, entries[1].ResourceID)
	}
}

func TestStore_RecentForResourceScoped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, id := range []string{"f1", "f1", "f2"} {
		err := s.Log(ctx, models.StorageAuditEntry{
			ResourceID: id,
			BlobKey:    "k",
			Operation:  models.StorageOpDownload,
			Status:     models.StorageStatusSuccess,
		})
		if err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}

	entries, err := s.RecentForResource(ctx, "f1", 0)
	if err != nil {
		t.Fatalf("RecentForResource() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("entries = %d, want 2", len(entries))
	}
}
