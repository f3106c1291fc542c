package access

import (
	"context"
	"strings"
	"time"

	"github.com/kirubae/filegate/internal/app/system/apperr"
	"github.com/kirubae/filegate/internal/app/system/auditlog"
	"github.com/kirubae/filegate/internal/domain/models"
)

// RequestMeta carries the client context recorded with every audit entry.
type RequestMeta struct {
	IP          string
	UserAgent   string
	Geolocation string
}

// Service is the access gatekeeper: it resolves effective policy, runs the
// checks, issues tokens, and writes an audit entry for every outcome,
// success and failure alike, before returning to the caller.
type Service struct {
	resolver *Resolver
	audit    *auditlog.Logger
	now      func() time.Time
}

// NewService creates the gatekeeper.
func NewService(resolver *Resolver, audit *auditlog.Logger) *Service {
	return &Service{resolver: resolver, audit: audit, now: time.Now}
}

func (s *Service) logFile(ctx context.Context, fileID, email, action string, meta RequestMeta, err error) {
	entry := models.AccessLogEntry{
		FileID:      fileID,
		Email:       email,
		IP:          meta.IP,
		UserAgent:   meta.UserAgent,
		Geolocation: meta.Geolocation,
		Action:      action,
		Success:     err == nil,
	}
	if err != nil {
		entry.FailureReason = apperr.MessageOf(err)
	}
	s.audit.FileAccess(ctx, entry)
}

func (s *Service) logCollection(ctx context.Context, collectionID, email, action string, meta RequestMeta, err error) {
	entry := models.CollectionAccessLogEntry{
		CollectionID: collectionID,
		Email:        email,
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		Geolocation:  meta.Geolocation,
		Action:       action,
		Success:      err == nil,
	}
	if err != nil {
		entry.FailureReason = apperr.MessageOf(err)
	}
	s.audit.CollectionAccess(ctx, entry)
}

// Grant is the outcome of a successful access request: the issued token
// plus the resolved resource, exactly one of File and Collection set.
type Grant struct {
	Token      Token
	File       *FileResolution
	Collection *CollectionResolution
}

// RequestAccess determines whether id names a file or a collection and
// runs the matching access request. Ids that match neither come back as
// not found without an audit entry, since there is no resource to
// attribute the attempt to.
func (s *Service) RequestAccess(ctx context.Context, id, email, password string, meta RequestMeta) (*Grant, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	res, err := s.resolver.ResolveFile(ctx, id)
	if err == nil {
		if evalErr := Evaluate(res.Policy, email, password, s.now()); evalErr != nil {
			s.logFile(ctx, id, email, models.ActionView, meta, evalErr)
			return nil, evalErr
		}
		s.logFile(ctx, id, email, models.ActionView, meta, nil)
		return &Grant{Token: Issue(id, email, s.now()), File: res}, nil
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}

	cres, err := s.resolver.ResolveCollection(ctx, id)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.NotFound("resource not found")
		}
		return nil, err
	}
	if evalErr := Evaluate(cres.Policy, email, password, s.now()); evalErr != nil {
		s.logCollection(ctx, id, email, models.ActionView, meta, evalErr)
		return nil, evalErr
	}
	s.logCollection(ctx, id, email, models.ActionView, meta, nil)
	return &Grant{Token: Issue(cres.Root.ID, email, s.now()), Collection: cres}, nil
}

// RequestFileAccess runs the effective policy for a file and, on success,
// issues a file-scoped token valid for FileTokenWindow.
func (s *Service) RequestFileAccess(ctx context.Context, fileID, email, password string, meta RequestMeta) (*Token, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	res, err := s.resolver.ResolveFile(ctx, fileID)
	if err != nil {
		s.logFile(ctx, fileID, email, models.ActionView, meta, err)
		return nil, err
	}

	if evalErr := Evaluate(res.Policy, email, password, s.now()); evalErr != nil {
		s.logFile(ctx, fileID, email, models.ActionView, meta, evalErr)
		return nil, evalErr
	}

	s.logFile(ctx, fileID, email, models.ActionView, meta, nil)
	token := Issue(fileID, email, s.now())
	return &token, nil
}

// RequestCollectionAccess runs the effective policy for a collection and,
// on success, issues a token bound to the collection's ROOT, valid for
// CollectionTokenWindow across the whole subtree.
func (s *Service) RequestCollectionAccess(ctx context.Context, collectionID, email, password string, meta RequestMeta) (*Token, *CollectionResolution, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	res, err := s.resolver.ResolveCollection(ctx, collectionID)
	if err != nil {
		s.logCollection(ctx, collectionID, email, models.ActionView, meta, err)
		return nil, nil, err
	}

	if evalErr := Evaluate(res.Policy, email, password, s.now()); evalErr != nil {
		s.logCollection(ctx, collectionID, email, models.ActionView, meta, evalErr)
		return nil, nil, evalErr
	}

	s.logCollection(ctx, collectionID, email, models.ActionView, meta, nil)
	token := Issue(res.Root.ID, email, s.now())
	return &token, res, nil
}

// AuthorizeFileDownload revalidates a file-scoped token and returns the
// resolved file on success.
func (s *Service) AuthorizeFileDownload(ctx context.Context, fileID, email string, issuedAt int64, token string, meta RequestMeta) (*FileResolution, error) {
	res, err := s.resolver.ResolveFile(ctx, fileID)
	if err != nil {
		s.logFile(ctx, fileID, email, models.ActionDownload, meta, err)
		return nil, err
	}

	if vErr := Validate(fileID, email, issuedAt, token, FileTokenWindow, s.now()); vErr != nil {
		s.logFile(ctx, fileID, email, models.ActionDownload, meta, vErr)
		return nil, vErr
	}

	s.logFile(ctx, fileID, email, models.ActionDownload, meta, nil)
	return res, nil
}

// AuthorizeCollectionBrowse revalidates a collection token for a browse of
// target, which must live under the root the token was issued for. A
// time-valid token presented against an unrelated subtree is rejected.
func (s *Service) AuthorizeCollectionBrowse(ctx context.Context, targetID, claimedRootID, email string, issuedAt int64, token string, meta RequestMeta) (*CollectionResolution, error) {
	if vErr := Validate(claimedRootID, email, issuedAt, token, CollectionTokenWindow, s.now()); vErr != nil {
		s.logCollection(ctx, targetID, email, models.ActionView, meta, vErr)
		return nil, vErr
	}

	res, err := s.resolver.ResolveCollection(ctx, targetID)
	if err != nil {
		s.logCollection(ctx, targetID, email, models.ActionView, meta, err)
		return nil, err
	}

	if res.Root.ID != claimedRootID {
		fErr := apperr.Forbidden(ReasonAccessDenied)
		s.logCollection(ctx, targetID, email, models.ActionView, meta, fErr)
		return nil, fErr
	}

	s.logCollection(ctx, targetID, email, models.ActionView, meta, nil)
	return res, nil
}

// AuthorizeFileViaCollection revalidates a collection token for a download
// of one file inside the token's subtree.
func (s *Service) AuthorizeFileViaCollection(ctx context.Context, fileID, claimedRootID, email string, issuedAt int64, token string, meta RequestMeta) (*FileResolution, error) {
	if vErr := Validate(claimedRootID, email, issuedAt, token, CollectionTokenWindow, s.now()); vErr != nil {
		s.logFile(ctx, fileID, email, models.ActionDownloadFile, meta, vErr)
		return nil, vErr
	}

	res, err := s.resolver.ResolveFile(ctx, fileID)
	if err != nil {
		s.logFile(ctx, fileID, email, models.ActionDownloadFile, meta, err)
		return nil, err
	}

	if res.Root == nil || res.Root.ID != claimedRootID {
		fErr := apperr.Forbidden(ReasonAccessDenied)
		s.logFile(ctx, fileID, email, models.ActionDownloadFile, meta, fErr)
		return nil, fErr
	}

	s.logFile(ctx, fileID, email, models.ActionDownloadFile, meta, nil)
	return res, nil
}
