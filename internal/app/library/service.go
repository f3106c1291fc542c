// Package library implements the owner-facing resource operations:
// creating, uploading, listing, updating, and deleting collections and
// files, including the cascading soft delete and item counters.
package library

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirubae/filegate/internal/app/access"
	"github.com/kirubae/filegate/internal/app/blob"
	"github.com/kirubae/filegate/internal/app/store/accesslog"
	"github.com/kirubae/filegate/internal/app/store/collection"
	"github.com/kirubae/filegate/internal/app/store/file"
	"github.com/kirubae/filegate/internal/app/system/apperr"
	"github.com/kirubae/filegate/internal/app/system/auditlog"
	"github.com/kirubae/filegate/internal/app/system/shortid"
	"github.com/kirubae/filegate/internal/app/uploads"
	"github.com/kirubae/filegate/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// createRetries bounds the shortid regeneration loop on duplicate keys.
const createRetries = 3

// Config holds the upload constraints enforced before any blob write.
type Config struct {
	MaxUploadSize int64    // bytes, 0 = unlimited
	AllowedExts   []string // lowercase, no dot; empty = any
}

// Service wires the stores, the blob verifier, and the audit trail into
// the owner-facing operations.
type Service struct {
	cfg         Config
	files       *file.Store
	collections *collection.Store
	logs        *accesslog.Store
	verifier    *uploads.Verifier
	blobs       blob.Store
	audit       *auditlog.Logger
	logger      *zap.Logger
}

// NewService creates a Service.
func NewService(cfg Config, files *file.Store, collections *collection.Store, logs *accesslog.Store, verifier *uploads.Verifier, blobs blob.Store, audit *auditlog.Logger, logger *zap.Logger) *Service {
	return &Service{
		cfg:         cfg,
		files:       files,
		collections: collections,
		logs:        logs,
		verifier:    verifier,
		blobs:       blobs,
		audit:       audit,
		logger:      logger,
	}
}

// PolicyInput carries the optional access controls set at creation or
// update time. Passwords arrive in the clear and are hashed here.
type PolicyInput struct {
	ExpiresAt     *time.Time
	Password      *string
	AllowedEmails []string
}

func (p PolicyInput) passwordHash() *string {
	if p.Password == nil || *p.Password == "" {
		return nil
	}
	h := access.HashPassword(*p.Password)
	return &h
}

// CreateCollectionInput is the input for CreateCollection.
type CreateCollectionInput struct {
	ParentID *string
	Title    string
	Subtitle string
	Policy   PolicyInput
	OwnerID  string
}

// CreateCollection creates a root or nested collection. Nesting beyond
// MaxDepth levels is rejected, and the parent's item_count is bumped.
func (s *Service) CreateCollection(ctx context.Context, in CreateCollectionInput) (*models.Collection, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.Validation("title is required")
	}

	depth := 1
	if in.ParentID != nil {
		parent, err := s.collections.GetByID(ctx, *in.ParentID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, apperr.NotFound("parent collection not found")
			}
			return nil, apperr.Internal(err)
		}
		if parent.OwnerID != in.OwnerID {
			return nil, apperr.Forbidden("not the resource owner")
		}
		depth = parent.Depth + 1
		if depth > models.MaxDepth {
			return nil, apperr.Validation("maximum nesting depth reached")
		}
	}

	var coll *models.Collection
	for attempt := 0; ; attempt++ {
		created, err := s.collections.Create(ctx, collection.CreateInput{
			ID:            shortid.MustNew(),
			ParentID:      in.ParentID,
			Title:         in.Title,
			Subtitle:      in.Subtitle,
			Depth:         depth,
			ExpiresAt:     in.Policy.ExpiresAt,
			PasswordHash:  in.Policy.passwordHash(),
			AllowedEmails: normalizeEmails(in.Policy.AllowedEmails),
			OwnerID:       in.OwnerID,
		})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) && attempt < createRetries {
				continue
			}
			return nil, apperr.Internal(err)
		}
		coll = created
		break
	}

	if in.ParentID != nil {
		if err := s.collections.IncItemCount(ctx, *in.ParentID, 1); err != nil {
			s.logger.Error("failed to bump parent item_count",
				zap.String("collection_id", *in.ParentID),
				zap.Error(err),
			)
		}
	}

	return coll, nil
}

// UploadFileInput is the input for UploadFile. Content is streamed to the
// blob store; Size must be the exact byte length of Content.
type UploadFileInput struct {
	CollectionID *string
	OriginalName string
	Content      io.Reader
	Size         int64
	ContentType  string
	Policy       PolicyInput
	OwnerID      string
	Meta         uploads.Meta
}

// UploadFile validates the upload, writes and verifies the blob, and only
// then creates the file record. No record is created for a failed or
// unverified write.
func (s *Service) UploadFile(ctx context.Context, in UploadFileInput) (*models.File, error) {
	name := strings.TrimSpace(in.OriginalName)
	if name == "" {
		return nil, apperr.Validation("file name is required")
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if !s.extAllowed(ext) {
		return nil, apperr.Validation("file type not allowed")
	}
	if s.cfg.MaxUploadSize > 0 && in.Size > s.cfg.MaxUploadSize {
		return nil, apperr.Validation("file exceeds the maximum upload size")
	}

	if in.CollectionID != nil {
		parent, err := s.collections.GetByID(ctx, *in.CollectionID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, apperr.NotFound("collection not found")
			}
			return nil, apperr.Internal(err)
		}
		if parent.OwnerID != in.OwnerID {
			return nil, apperr.Forbidden("not the resource owner")
		}
	}

	key := uuid.New().String()
	if ext != "" {
		key += "." + ext
	}

	opts := &blob.PutOptions{ContentType: in.ContentType}
	id := shortid.MustNew()
	if err := s.verifier.Upload(ctx, id, key, in.Content, in.Size, opts, in.Meta); err != nil {
		return nil, err
	}

	var f *models.File
	for attempt := 0; ; attempt++ {
		created, err := s.files.Create(ctx, file.CreateInput{
			ID:            id,
			CollectionID:  in.CollectionID,
			FileName:      name,
			OriginalName:  name,
			BlobKey:       key,
			Size:          in.Size,
			ContentType:   in.ContentType,
			ExpiresAt:     in.Policy.ExpiresAt,
			PasswordHash:  in.Policy.passwordHash(),
			AllowedEmails: normalizeEmails(in.Policy.AllowedEmails),
			OwnerID:       in.OwnerID,
		})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) && attempt < createRetries {
				id = shortid.MustNew()
				continue
			}
			return nil, apperr.Internal(err)
		}
		f = created
		break
	}

	s.verifier.RecordSuccess(ctx, f.ID, key, in.Size, in.Meta)

	if in.CollectionID != nil {
		if err := s.collections.IncItemCount(ctx, *in.CollectionID, 1); err != nil {
			s.logger.Error("failed to bump parent item_count",
				zap.String("collection_id", *in.CollectionID),
				zap.Error(err),
			)
		}
	}

	return f, nil
}

func (s *Service) extAllowed(ext string) bool {
	if len(s.cfg.AllowedExts) == 0 {
		return true
	}
	for _, a := range s.cfg.AllowedExts {
		if ext == a {
			return true
		}
	}
	return false
}

func normalizeEmails(emails []string) []string {
	if len(emails) == 0 {
		return nil
	}
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Resource is a polymorphic view of a file or a collection, as returned
// by the owner API. Exactly one of File and Collection is set.
type Resource struct {
	File           *models.File
	Collection     *models.Collection
	SubCollections []models.Collection // direct children, collections only
	Files          []models.File       // direct children, collections only
	FileLogs       []models.AccessLogEntry
	CollectionLogs []models.CollectionAccessLogEntry
}

// GetResource loads one owned resource by id, collection first. With
// withLogs the recent access history is embedded.
func (s *Service) GetResource(ctx context.Context, ownerID, id string, withLogs bool) (*Resource, error) {
	coll, err := s.collections.GetByID(ctx, id)
	if err == nil {
		if coll.OwnerID != ownerID {
			return nil, apperr.Forbidden("not the resource owner")
		}
		res := &Resource{Collection: coll}
		if res.SubCollections, err = s.collections.ListByParent(ctx, id); err != nil {
			return nil, apperr.Internal(err)
		}
		if res.Files, err = s.files.ListByCollection(ctx, id); err != nil {
			return nil, apperr.Internal(err)
		}
		if withLogs {
			if res.CollectionLogs, err = s.logs.RecentForCollection(ctx, id, 0); err != nil {
				return nil, apperr.Internal(err)
			}
		}
		return res, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.Internal(err)
	}

	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("resource not found")
		}
		return nil, apperr.Internal(err)
	}
	if f.OwnerID != ownerID {
		return nil, apperr.Forbidden("not the resource owner")
	}
	res := &Resource{File: f}
	if withLogs {
		if res.FileLogs, err = s.logs.RecentForFile(ctx, id, 0); err != nil {
			return nil, apperr.Internal(err)
		}
	}
	return res, nil
}

// Listing is the owner's top-level view: root collections plus
// standalone files.
type Listing struct {
	Collections []models.Collection
	Files       []models.File
}

// ListRootsForOwner returns the owner's root collections and standalone
// files.
func (s *Service) ListRootsForOwner(ctx context.Context, ownerID string) (*Listing, error) {
	colls, err := s.collections.ListRootsByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	files, err := s.files.ListStandaloneByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Listing{Collections: colls, Files: files}, nil
}

// UpdateInput is the partial update applied by UpdateResource. Nil fields
// are untouched; the Clear flags remove optional policy fields.
type UpdateInput struct {
	Title         *string // collection title or file display name
	Subtitle      *string // collections only
	ExpiresAt     *time.Time
	ClearExpiry   bool
	Password      *string
	ClearPassword bool
	AllowedEmails *[]string
}

// UpdateResource applies a partial update to an owned file or collection.
// Policy fields written on a nested collection are stored but have no
// effect until the collection becomes a root.
func (s *Service) UpdateResource(ctx context.Context, ownerID, id string, in UpdateInput) error {
	var emails *[]string
	if in.AllowedEmails != nil {
		norm := normalizeEmails(*in.AllowedEmails)
		emails = &norm
	}

	coll, err := s.collections.GetByID(ctx, id)
	if err == nil {
		if coll.OwnerID != ownerID {
			return apperr.Forbidden("not the resource owner")
		}
		patch := collection.Patch{
			Title:         in.Title,
			Subtitle:      in.Subtitle,
			ExpiresAt:     in.ExpiresAt,
			ClearExpiry:   in.ClearExpiry,
			ClearPassword: in.ClearPassword,
			AllowedEmails: emails,
		}
		if h := (PolicyInput{Password: in.Password}).passwordHash(); h != nil {
			patch.PasswordHash = h
		}
		if err := s.collections.Update(ctx, id, patch); err != nil {
			return apperr.Internal(err)
		}
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.Internal(err)
	}

	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("resource not found")
		}
		return apperr.Internal(err)
	}
	if f.OwnerID != ownerID {
		return apperr.Forbidden("not the resource owner")
	}
	patch := file.Patch{
		FileName:      in.Title,
		ExpiresAt:     in.ExpiresAt,
		ClearExpiry:   in.ClearExpiry,
		ClearPassword: in.ClearPassword,
		AllowedEmails: emails,
	}
	if h := (PolicyInput{Password: in.Password}).passwordHash(); h != nil {
		patch.PasswordHash = h
	}
	if err := s.files.Update(ctx, id, patch); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// DeleteResource soft-deletes an owned file or collection. Collection
// deletes cascade to every descendant collection and file; cascaded file
// blobs stay in storage since their rows remain for audit history.
func (s *Service) DeleteResource(ctx context.Context, ownerID, id string, meta uploads.Meta) error {
	coll, err := s.collections.GetByID(ctx, id)
	if err == nil {
		if coll.OwnerID != ownerID {
			return apperr.Forbidden("not the resource owner")
		}
		return s.deleteCollection(ctx, coll)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.Internal(err)
	}

	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("resource not found")
		}
		return apperr.Internal(err)
	}
	if f.OwnerID != ownerID {
		return apperr.Forbidden("not the resource owner")
	}
	return s.deleteFile(ctx, f, meta)
}

func (s *Service) deleteCollection(ctx context.Context, coll *models.Collection) error {
	descendants, err := s.collections.DescendantIDs(ctx, coll.ID)
	if err != nil {
		return apperr.Internal(err)
	}

	all := append([]string{coll.ID}, descendants...)
	if err := s.collections.SoftDeleteMany(ctx, all); err != nil {
		return apperr.Internal(err)
	}

	marked, err := s.files.SoftDeleteByCollections(ctx, all)
	if err != nil {
		return apperr.Internal(err)
	}
	s.logger.Info("collection deleted",
		zap.String("collection_id", coll.ID),
		zap.Int("descendant_collections", len(descendants)),
		zap.Int64("files_marked", marked),
	)

	if coll.ParentID != nil {
		if err := s.collections.IncItemCount(ctx, *coll.ParentID, -1); err != nil {
			s.logger.Error("failed to decrement parent item_count",
				zap.String("collection_id", *coll.ParentID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Service) deleteFile(ctx context.Context, f *models.File, meta uploads.Meta) error {
	if err := s.files.SoftDelete(ctx, f.ID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("resource not found")
		}
		return apperr.Internal(err)
	}

	if f.CollectionID != nil {
		if err := s.collections.IncItemCount(ctx, *f.CollectionID, -1); err != nil {
			s.logger.Error("failed to decrement parent item_count",
				zap.String("collection_id", *f.CollectionID),
				zap.Error(err),
			)
		}
	}

	// An explicit file delete removes the blob too. The outcome is audited
	// but never fails the request; the row is already marked deleted.
	entry := models.StorageAuditEntry{
		ResourceID: f.ID,
		BlobKey:    f.BlobKey,
		Operation:  models.StorageOpDelete,
		Size:       f.Size,
		Status:     models.StorageStatusSuccess,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if err := s.blobs.Delete(ctx, f.BlobKey); err != nil {
		entry.Status = models.StorageStatusFailed
		entry.Error = err.Error()
		s.logger.Error("failed to delete blob",
			zap.String("file_id", f.ID),
			zap.String("blob_key", f.BlobKey),
			zap.Error(err),
		)
	}
	s.audit.StorageOp(ctx, entry)
	return nil
}
