// Package uploads writes file content to the blob store and verifies the
// write before any database row may reference it.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kirubae/filegate/internal/app/blob"
	"github.com/kirubae/filegate/internal/app/system/apperr"
	"github.com/kirubae/filegate/internal/app/system/auditlog"
	"github.com/kirubae/filegate/internal/domain/models"
	"go.uber.org/zap"
)

// Meta carries client context into the storage audit trail.
type Meta struct {
	IP        string
	UserAgent string
}

// Verifier performs the write-verify ordering for uploads: put the bytes,
// then head the same key and compare sizes. A missing or size-mismatched
// object is audited and reported as a storage-integrity failure, and the
// caller must not create a file row. Mismatched objects are deleted so a
// truncated blob can never be referenced later.
type Verifier struct {
	blobs  blob.Store
	audit  *auditlog.Logger
	logger *zap.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(blobs blob.Store, audit *auditlog.Logger, logger *zap.Logger) *Verifier {
	return &Verifier{blobs: blobs, audit: audit, logger: logger}
}

// Upload writes r to key and verifies the stored object matches
// expectedSize. On success the caller creates the file row and then
// records the storage-audit success entry via RecordSuccess.
func (v *Verifier) Upload(ctx context.Context, resourceID, key string, r io.Reader, expectedSize int64, opts *blob.PutOptions, meta Meta) error {
	if err := v.blobs.Put(ctx, key, r, opts); err != nil {
		v.audit.StorageOp(ctx, models.StorageAuditEntry{
			ResourceID: resourceID,
			BlobKey:    key,
			Operation:  models.StorageOpUpload,
			Size:       expectedSize,
			Status:     models.StorageStatusFailed,
			Error:      err.Error(),
			IP:         meta.IP,
			UserAgent:  meta.UserAgent,
		})
		return apperr.Wrap(apperr.KindInternal, "upload failed", err)
	}

	storedSize, err := v.blobs.Head(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		v.audit.StorageOp(ctx, models.StorageAuditEntry{
			ResourceID: resourceID,
			BlobKey:    key,
			Operation:  models.StorageOpUpload,
			Size:       expectedSize,
			Status:     models.StorageStatusMissing,
			Error:      "missing after upload",
			IP:         meta.IP,
			UserAgent:  meta.UserAgent,
		})
		return apperr.StorageIntegrity("upload verification failed")
	}
	if err != nil {
		v.audit.StorageOp(ctx, models.StorageAuditEntry{
			ResourceID: resourceID,
			BlobKey:    key,
			Operation:  models.StorageOpUpload,
			Size:       expectedSize,
			Status:     models.StorageStatusFailed,
			Error:      err.Error(),
			IP:         meta.IP,
			UserAgent:  meta.UserAgent,
		})
		return apperr.Wrap(apperr.KindInternal, "upload verification failed", err)
	}

	if storedSize != expectedSize {
		detail := fmt.Sprintf("size mismatch: expected %d bytes, stored %d bytes", expectedSize, storedSize)
		v.audit.StorageOp(ctx, models.StorageAuditEntry{
			ResourceID: resourceID,
			BlobKey:    key,
			Operation:  models.StorageOpUpload,
			Size:       storedSize,
			Status:     models.StorageStatusFailed,
			Error:      detail,
			IP:         meta.IP,
			UserAgent:  meta.UserAgent,
		})

		// Remove the corrupted object so nothing can reference it.
		if delErr := v.blobs.Delete(ctx, key); delErr != nil {
			v.logger.Error("failed to delete corrupted blob",
				zap.String("blob_key", key),
				zap.Error(delErr),
			)
		}

		return apperr.StorageIntegrity("upload verification failed")
	}

	return nil
}

// RecordSuccess appends the storage-audit success entry for a verified
// upload, after the file row exists.
func (v *Verifier) RecordSuccess(ctx context.Context, resourceID, key string, size int64, meta Meta) {
	v.audit.StorageOp(ctx, models.StorageAuditEntry{
		ResourceID: resourceID,
		BlobKey:    key,
		Operation:  models.StorageOpUpload,
		Size:       size,
		Status:     models.StorageStatusSuccess,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
	})
}
