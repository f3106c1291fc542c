package libraryapi

import (
	"time"

	"github.com/kirubae/filegate/internal/app/library"
	"github.com/kirubae/filegate/internal/domain/models"
)

// Owner views expose the management-side fields, including policy
// presence, that the public share views deliberately omit.

type ownerFileView struct {
	ID            string     `json:"id"`
	CollectionID  *string    `json:"collection_id,omitempty"`
	FileName      string     `json:"file_name"`
	OriginalName  string     `json:"original_name"`
	Size          int64      `json:"size"`
	ContentType   string     `json:"content_type"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	HasPassword   bool       `json:"has_password"`
	AllowedEmails []string   `json:"allowed_emails,omitempty"`
	DownloadCount int64      `json:"download_count"`
}

type ownerCollectionView struct {
	ID            string     `json:"id"`
	ParentID      *string    `json:"parent_id,omitempty"`
	Title         string     `json:"title"`
	Subtitle      string     `json:"subtitle,omitempty"`
	Depth         int        `json:"depth"`
	ItemCount     int64      `json:"item_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	HasPassword   bool       `json:"has_password"`
	AllowedEmails []string   `json:"allowed_emails,omitempty"`
}

func toOwnerFileView(f *models.File) ownerFileView {
	return ownerFileView{
		ID:            f.ID,
		CollectionID:  f.CollectionID,
		FileName:      f.FileName,
		OriginalName:  f.OriginalName,
		Size:          f.Size,
		ContentType:   f.ContentType,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
		ExpiresAt:     f.ExpiresAt,
		HasPassword:   f.PasswordHash != nil && *f.PasswordHash != "",
		AllowedEmails: f.AllowedEmails,
		DownloadCount: f.DownloadCount,
	}
}

func toOwnerCollectionView(c *models.Collection) ownerCollectionView {
	return ownerCollectionView{
		ID:            c.ID,
		ParentID:      c.ParentID,
		Title:         c.Title,
		Subtitle:      c.Subtitle,
		Depth:         c.Depth,
		ItemCount:     c.ItemCount,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		ExpiresAt:     c.ExpiresAt,
		HasPassword:   c.PasswordHash != nil && *c.PasswordHash != "",
		AllowedEmails: c.AllowedEmails,
	}
}

type listingView struct {
	Collections []ownerCollectionView `json:"collections"`
	Files       []ownerFileView       `json:"files"`
}

func toListingView(l *library.Listing) listingView {
	view := listingView{
		Collections: make([]ownerCollectionView, 0, len(l.Collections)),
		Files:       make([]ownerFileView, 0, len(l.Files)),
	}
	for i := range l.Collections {
		view.Collections = append(view.Collections, toOwnerCollectionView(&l.Collections[i]))
	}
	for i := range l.Files {
		view.Files = append(view.Files, toOwnerFileView(&l.Files[i]))
	}
	return view
}

type accessLogView struct {
	Email         string    `json:"email"`
	AccessedAt    time.Time `json:"accessed_at"`
	IP            string    `json:"ip"`
	UserAgent     string    `json:"user_agent,omitempty"`
	Geolocation   string    `json:"geolocation,omitempty"`
	Action        string    `json:"action"`
	Success       bool      `json:"success"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

type resourceView struct {
	Kind           string                `json:"kind"` // "file" or "collection"
	File           *ownerFileView        `json:"file,omitempty"`
	Collection     *ownerCollectionView  `json:"collection,omitempty"`
	SubCollections []ownerCollectionView `json:"sub_collections,omitempty"`
	Files          []ownerFileView       `json:"files,omitempty"`
	AccessLogs     []accessLogView       `json:"access_logs,omitempty"`
}

func toResourceView(res *library.Resource) resourceView {
	var view resourceView

	if res.File != nil {
		view.Kind = "file"
		fv := toOwnerFileView(res.File)
		view.File = &fv
		for _, e := range res.FileLogs {
			view.AccessLogs = append(view.AccessLogs, accessLogView{
				Email:         e.Email,
				AccessedAt:    e.AccessedAt,
				IP:            e.IP,
				UserAgent:     e.UserAgent,
				Geolocation:   e.Geolocation,
				Action:        e.Action,
				Success:       e.Success,
				FailureReason: e.FailureReason,
			})
		}
		return view
	}

	view.Kind = "collection"
	cv := toOwnerCollectionView(res.Collection)
	view.Collection = &cv
	for i := range res.SubCollections {
		view.SubCollections = append(view.SubCollections, toOwnerCollectionView(&res.SubCollections[i]))
	}
	for i := range res.Files {
		view.Files = append(view.Files, toOwnerFileView(&res.Files[i]))
	}
	for _, e := range res.CollectionLogs {
		view.AccessLogs = append(view.AccessLogs, accessLogView{
			Email:         e.Email,
			AccessedAt:    e.AccessedAt,
			IP:            e.IP,
			UserAgent:     e.UserAgent,
			Geolocation:   e.Geolocation,
			Action:        e.Action,
			Success:       e.Success,
			FailureReason: e.FailureReason,
		})
	}
	return view
}
