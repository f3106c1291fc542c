// Package shareapi provides the public share endpoints: requesting access
// to a shared file or collection, browsing a granted collection, and
// downloading or viewing files.
//
// Endpoints:
//   - POST /share/{id}/access - validate email/password, issue a token
//   - GET  /share/{id}        - browse a collection with a valid token
//   - GET  /share/files/{id}/download - stream a file as an attachment
//   - GET  /share/files/{id}/view     - stream a file inline
//
// Download and view requests authenticate with either a file token or a
// collection token (the root query parameter selects the latter).
package shareapi

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kirubae/filegate/internal/app/access"
	"github.com/kirubae/filegate/internal/app/blob"
	"github.com/kirubae/filegate/internal/app/store/collection"
	"github.com/kirubae/filegate/internal/app/store/file"
	"github.com/kirubae/filegate/internal/app/system/auditlog"
	"github.com/kirubae/filegate/internal/app/system/jsonutil"
	"github.com/kirubae/filegate/internal/app/system/network"
	"github.com/kirubae/filegate/internal/domain/models"
	"go.uber.org/zap"
)

// Handler handles public share requests.
type Handler struct {
	gate        *access.Service
	files       *file.Store
	collections *collection.Store
	blobs       blob.Store
	audit       *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a new shareapi Handler.
func NewHandler(gate *access.Service, files *file.Store, collections *collection.Store, blobs blob.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		gate:        gate,
		files:       files,
		collections: collections,
		blobs:       blobs,
		audit:       audit,
		logger:      logger,
	}
}

// Routes returns a chi.Router with the share routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/{id}/access", h.RequestAccess)
	r.Get("/{id}", h.Browse)
	r.Get("/files/{id}/download", h.Download)
	r.Get("/files/{id}/view", h.View)
	return r
}

func requestMeta(r *http.Request) access.RequestMeta {
	return access.RequestMeta{
		IP:          network.GetClientIP(r),
		UserAgent:   r.UserAgent(),
		Geolocation: network.GetGeolocation(r),
	}
}

type fileView struct {
	ID            string     `json:"id"`
	FileName      string     `json:"file_name"`
	Size          int64      `json:"size"`
	ContentType   string     `json:"content_type"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	DownloadCount int64      `json:"download_count"`
}

type collectionView struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Subtitle  string     `json:"subtitle,omitempty"`
	ItemCount int64      `json:"item_count"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func toFileView(f *models.File) fileView {
	return fileView{
		ID:            f.ID,
		FileName:      f.FileName,
		Size:          f.Size,
		ContentType:   f.ContentType,
		CreatedAt:     f.CreatedAt,
		ExpiresAt:     f.ExpiresAt,
		DownloadCount: f.DownloadCount,
	}
}

func toCollectionView(c *models.Collection) collectionView {
	return collectionView{
		ID:        c.ID,
		Title:     c.Title,
		Subtitle:  c.Subtitle,
		ItemCount: c.ItemCount,
		CreatedAt: c.CreatedAt,
		ExpiresAt: c.ExpiresAt,
	}
}

type accessRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accessResponse struct {
	Kind       string          `json:"kind"` // "file" or "collection"
	Token      string          `json:"token"`
	Email      string          `json:"email"`
	IssuedAt   int64           `json:"ts"`
	Root       string          `json:"root,omitempty"` // collection grants only
	File       *fileView       `json:"file,omitempty"`
	Collection *collectionView `json:"collection,omitempty"`
}

// RequestAccess handles POST /share/{id}/access. A granted request
// returns the token tuple the client presents on subsequent requests.
func (h *Handler) RequestAccess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req accessRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	grant, err := h.gate.RequestAccess(r.Context(), id, req.Email, req.Password, requestMeta(r))
	if err != nil {
		jsonutil.AppError(w, err)
		return
	}

	resp := accessResponse{
		Token:    grant.Token.Value,
		Email:    grant.Token.Email,
		IssuedAt: grant.Token.IssuedAt,
	}
	if grant.File != nil {
		resp.Kind = "file"
		fv := toFileView(grant.File.File)
		resp.File = &fv
	} else {
		resp.Kind = "collection"
		resp.Root = grant.Collection.Root.ID
		cv := toCollectionView(grant.Collection.Collection)
		resp.Collection = &cv
	}
	jsonutil.OK(w, resp)
}

// tokenParams pulls the token tuple out of the query string. A malformed
// ts comes through as zero and fails validation downstream.
func tokenParams(r *http.Request) (email string, issuedAt int64, token, root string) {
	q := r.URL.Query()
	email = strings.ToLower(strings.TrimSpace(q.Get("email")))
	issuedAt, _ = strconv.ParseInt(q.Get("ts"), 10, 64)
	return email, issuedAt, q.Get("token"), q.Get("root")
}

type browseResponse struct {
	Collection  collectionView   `json:"collection"`
	Breadcrumbs []collectionView `json:"breadcrumbs"`
	Collections []collectionView `json:"collections"`
	Files       []fileView       `json:"files"`
}

// Browse handles GET /share/{id}: the contents of one collection in a
// granted subtree.
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	email, issuedAt, token, root := tokenParams(r)
	if root == "" {
		root = id
	}

	res, err := h.gate.AuthorizeCollectionBrowse(r.Context(), id, root, email, issuedAt, token, requestMeta(r))
	if err != nil {
		jsonutil.AppError(w, err)
		return
	}

	children, err := h.collections.ListByParent(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list sub-collections", zap.String("collection_id", id), zap.Error(err))
		jsonutil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	files, err := h.files.ListByCollection(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list files", zap.String("collection_id", id), zap.Error(err))
		jsonutil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := browseResponse{
		Collection:  toCollectionView(res.Collection),
		Breadcrumbs: make([]collectionView, 0, len(res.Chain)),
		Collections: make([]collectionView, 0, len(children)),
		Files:       make([]fileView, 0, len(files)),
	}
	for i := range res.Chain {
		resp.Breadcrumbs = append(resp.Breadcrumbs, toCollectionView(&res.Chain[i]))
	}
	for i := range children {
		resp.Collections = append(resp.Collections, toCollectionView(&children[i]))
	}
	for i := range files {
		resp.Files = append(resp.Files, toFileView(&files[i]))
	}
	jsonutil.OK(w, resp)
}

// Download handles GET /share/files/{id}/download: stream the blob as an
// attachment and count the download.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, true)
}

// View handles GET /share/files/{id}/view: stream the blob inline for
// in-browser display. Views do not count as downloads.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, false)
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, asAttachment bool) {
	id := chi.URLParam(r, "id")
	email, issuedAt, token, root := tokenParams(r)
	meta := requestMeta(r)

	var f *models.File
	if root != "" {
		res, err := h.gate.AuthorizeFileViaCollection(r.Context(), id, root, email, issuedAt, token, meta)
		if err != nil {
			jsonutil.AppError(w, err)
			return
		}
		f = res.File
	} else {
		res, err := h.gate.AuthorizeFileDownload(r.Context(), id, email, issuedAt, token, meta)
		if err != nil {
			jsonutil.AppError(w, err)
			return
		}
		f = res.File
	}

	body, err := h.blobs.Get(r.Context(), f.BlobKey)
	if err != nil {
		h.audit.StorageOp(r.Context(), models.StorageAuditEntry{
			ResourceID: f.ID,
			BlobKey:    f.BlobKey,
			Operation:  models.StorageOpDownload,
			Size:       f.Size,
			Status:     models.StorageStatusMissing,
			Error:      err.Error(),
			IP:         meta.IP,
			UserAgent:  meta.UserAgent,
		})
		h.logger.Error("blob missing for granted download",
			zap.String("file_id", f.ID),
			zap.String("blob_key", f.BlobKey),
			zap.Error(err),
		)
		jsonutil.Error(w, http.StatusNotFound, "file content unavailable")
		return
	}
	defer body.Close()

	disposition := "inline"
	if asAttachment {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	w.Header().Set("Content-Disposition", disposition+`; filename="`+sanitizeFilename(f.FileName)+`"`)

	if _, err := io.Copy(w, body); err != nil {
		// Headers are gone; just record the interrupted transfer.
		h.logger.Warn("download interrupted",
			zap.String("file_id", f.ID),
			zap.Error(err),
		)
		return
	}

	if asAttachment {
		if err := h.files.IncDownloadCount(r.Context(), f.ID); err != nil {
			h.logger.Error("failed to bump download_count", zap.String("file_id", f.ID), zap.Error(err))
		}
	}
	h.audit.StorageOp(r.Context(), models.StorageAuditEntry{
		ResourceID: f.ID,
		BlobKey:    f.BlobKey,
		Operation:  models.StorageOpDownload,
		Size:       f.Size,
		Status:     models.StorageStatusSuccess,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
	})
}

// sanitizeFilename keeps header injection out of Content-Disposition.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `"`, "")
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, "\n", "")
	return name
}
