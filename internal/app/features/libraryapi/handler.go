// Package libraryapi provides the owner-facing management API: creating
// collections, uploading files, listing, updating, and deleting
// resources, and validating recipient emails.
//
// Endpoints (mounted under /api, API-key protected):
//   - POST   /collections            - create a collection
//   - POST   /collections/{id}/files - upload a file into a collection
//   - POST   /files                  - upload a standalone file
//   - GET    /resources              - list root collections and standalone files
//   - GET    /resources/{id}         - one resource, ?logs=1 embeds access history
//   - PATCH  /resources/{id}         - partial update
//   - DELETE /resources/{id}         - soft delete (cascading for collections)
//   - POST   /email/validate         - format and MX validation for emails
package libraryapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/kirubae/filegate/internal/app/library"
	"github.com/kirubae/filegate/internal/app/system/auth"
	"github.com/kirubae/filegate/internal/app/system/emailcheck"
	"github.com/kirubae/filegate/internal/app/system/jsonutil"
	"github.com/kirubae/filegate/internal/app/system/network"
	"github.com/kirubae/filegate/internal/app/uploads"
	"go.uber.org/zap"
)

// validate is the singleton validator instance for request DTOs.
var validate = validator.New()

// maxMultipartMemory bounds the in-memory part of multipart parsing;
// larger uploads spill to temp files.
const maxMultipartMemory = 32 << 20

// Handler handles owner API requests.
type Handler struct {
	svc    *library.Service
	emails *emailcheck.Checker
	logger *zap.Logger
}

// NewHandler creates a new libraryapi Handler.
func NewHandler(svc *library.Service, emails *emailcheck.Checker, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, emails: emails, logger: logger}
}

// Routes returns a chi.Router with the owner API routes mounted. The
// caller wraps it with API-key authentication.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/collections", h.CreateCollection)
	r.Post("/collections/{id}/files", h.UploadToCollection)
	r.Post("/files", h.UploadStandalone)
	r.Get("/resources", h.ListResources)
	r.Get("/resources/{id}", h.GetResource)
	r.Patch("/resources/{id}", h.UpdateResource)
	r.Delete("/resources/{id}", h.DeleteResource)
	r.Post("/email/validate", h.ValidateEmails)
	return r
}

func uploadMeta(r *http.Request) uploads.Meta {
	return uploads.Meta{IP: network.GetClientIP(r), UserAgent: r.UserAgent()}
}

// validationMessage converts validator errors into a single user-facing
// message naming the first failed field.
func validationMessage(err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		e := errs[0]
		return strings.ToLower(e.Field()) + ": failed " + e.Tag() + " validation"
	}
	return "invalid request"
}

type createCollectionRequest struct {
	ParentID      *string    `json:"parent_id"`
	Title         string     `json:"title" validate:"required,max=200"`
	Subtitle      string     `json:"subtitle" validate:"max=500"`
	ExpiresAt     *time.Time `json:"expires_at"`
	Password      *string    `json:"password" validate:"omitempty,min=4"`
	AllowedEmails []string   `json:"allowed_emails" validate:"omitempty,dive,email"`
}

// CreateCollection handles POST /collections.
func (h *Handler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	coll, err := h.svc.CreateCollection(r.Context(), library.CreateCollectionInput{
		ParentID: req.ParentID,
		Title:    req.Title,
		Subtitle: req.Subtitle,
		Policy: library.PolicyInput{
			ExpiresAt:     req.ExpiresAt,
			Password:      req.Password,
			AllowedEmails: req.AllowedEmails,
		},
		OwnerID: auth.OwnerID(r.Context()),
	})
	if err != nil {
		jsonutil.AppError(w, err)
		return
	}
	jsonutil.Created(w, toOwnerCollectionView(coll))
}

// UploadToCollection handles POST /collections/{id}/files.
func (h *Handler) UploadToCollection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.upload(w, r, &id)
}

// UploadStandalone handles POST /files.
func (h *Handler) UploadStandalone(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, nil)
}

// upload reads a multipart request: the content in the "file" part, the
// optional policy in expires_at (RFC 3339), password, and allowed_emails
// (comma-separated) form fields.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request, collectionID *string) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer part.Close()

	policy, perr := policyFromForm(r)
	if perr != "" {
		jsonutil.Error(w, http.StatusBadRequest, perr)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	f, err := h.svc.UploadFile(r.Context(), library.UploadFileInput{
		CollectionID: collectionID,
		OriginalName: header.Filename,
		Content:      part,
		Size:         header.Size,
		ContentType:  contentType,
		Policy:       policy,
		OwnerID:      auth.OwnerID(r.Context()),
		Meta:         uploadMeta(r),
	})
	if err != nil {
		jsonutil.AppError(w, err)
		return
	}
	jsonutil.Created(w, toOwnerFileView(f))
}

func policyFromForm(r *http.Request) (library.PolicyInput, string) {
	var policy library.PolicyInput

	if v := r.FormValue("expires_at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return policy, "expires_at: expected RFC 3339 timestamp"
		}
		policy.ExpiresAt = &t
	}
	if v := r.FormValue("password"); v != "" {
		policy.Password = &v
	}
	if v := r.FormValue("allowed_emails"); v != "" {
		for _, e := range strings.Split(v, ",") {
			e = strings.TrimSpace(e)
			if e == "" {
				continue
			}
			if !emailcheck.ValidFormat(e) {
				return policy, "allowed_emails: invalid address " + e
			}
			policy.AllowedEmails = append(policy.AllowedEmails, e)
		}
	}
	return policy, ""
}

// ListResources handles GET /resources.
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	listing, err := h.svc.ListRootsForOwner(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		jsonutil.AppError(w, err)
		return
	}
	jsonutil.OK(w, toListingView(listing))
}

// GetResource handles GET /resources/{id}. The logs=1 query parameter
// embeds the recent access history.
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	withLogs := r.URL.Query().Get("logs") == "1"

	res, err := h.svc.GetResource(r.Context(), auth.OwnerID(r.Context()), id, withLogs)
	if err != nil {
		jsonutil.AppError(w, err)
		return
	}
	jsonutil.OK(w, toResourceView(res))
}

type updateResourceRequest struct {
	Title         *string    `json:"title" validate:"omitempty,max=200"`
	Subtitle      *string    `json:"subtitle" validate:"omitempty,max=500"`
	ExpiresAt     *time.Time `json:"expires_at"`
	ClearExpiry   bool       `json:"clear_expiry"`
	Password      *string    `json:"password" validate:"omitempty,min=4"`
	ClearPassword bool       `json:"clear_password"`
	AllowedEmails *[]string  `json:"allowed_emails" validate:"omitempty,dive,email"`
}

// UpdateResource handles PATCH /resources/{id}.
func (h *Handler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateResourceRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	err := h.svc.UpdateResource(r.Context(), auth.OwnerID(r.Context()), id, library.UpdateInput{
		Title:         req.Title,
		Subtitle:      req.Subtitle,
		ExpiresAt:     req.ExpiresAt,
		ClearExpiry:   req.ClearExpiry,
		Password:      req.Password,
		ClearPassword: req.ClearPassword,
		AllowedEmails: req.AllowedEmails,
	})
	if err != nil {
		jsonutil.AppError(w, err)
		return
	}
	jsonutil.OK(w, map[string]string{"status": "updated"})
}

// DeleteResource handles DELETE /resources/{id}.
func (h *Handler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.svc.DeleteResource(r.Context(), auth.OwnerID(r.Context()), id, uploadMeta(r))
	if err != nil {
		jsonutil.AppError(w, err)
		return
	}
	jsonutil.OK(w, map[string]string{"status": "deleted"})
}

type validateEmailsRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,max=100"`
}

type emailResult struct {
	Email  string `json:"email"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ValidateEmails handles POST /email/validate: format and MX-record
// checks for a batch of addresses.
func (h *Handler) ValidateEmails(w http.ResponseWriter, r *http.Request) {
	var req validateEmailsRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	results := make([]emailResult, 0, len(req.Emails))
	for _, e := range req.Emails {
		res := h.emails.Check(r.Context(), e)
		results = append(results, emailResult{Email: e, Valid: res.Valid, Reason: res.Reason})
	}
	jsonutil.OK(w, map[string][]emailResult{"results": results})
}
