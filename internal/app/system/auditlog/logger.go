// Package auditlog is the audit sink for the two event streams: access
// attempts and storage operations.
package auditlog

import (
	"context"

	"github.com/kirubae/filegate/internal/app/store/accesslog"
	"github.com/kirubae/filegate/internal/app/store/storageaudit"
	"github.com/kirubae/filegate/internal/domain/models"
	"go.uber.org/zap"
)

// Config controls where each stream is written.
// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only),
// "off" (disabled).
type Config struct {
	Access  string
	Storage string
}

// Logger writes audit events to MongoDB and mirrors them to zap. It is a
// pure sink: append-only inserts, callable from any component, and
// best-effort: a failed audit write is logged but never surfaced to the
// caller, so it cannot mask the error that triggered it.
type Logger struct {
	access  *accesslog.Store
	storage *storageaudit.Store
	zapLog  *zap.Logger
	config  Config
}

// New creates a new audit Logger.
func New(access *accesslog.Store, storage *storageaudit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		access:  access,
		storage: storage,
		zapLog:  zapLog,
		config:  config,
	}
}

// FileAccess records one access attempt against a file.
// Nil loggers are no-ops so tests can skip auditing entirely.
func (l *Logger) FileAccess(ctx context.Context, entry models.AccessLogEntry) {
	if l == nil || l.config.Access == "off" {
		return
	}

	if l.config.Access != "db" {
		l.logAccess("file access", entry.FileID, entry.Email, entry.IP, entry.Action, entry.Success, entry.FailureReason)
	}
	if l.config.Access != "log" {
		if err := l.access.LogFile(ctx, entry); err != nil {
			l.zapLog.Error("failed to store file access log",
				zap.Error(err),
				zap.String("file_id", entry.FileID),
			)
		}
	}
}

// CollectionAccess records one access attempt against a collection.
func (l *Logger) CollectionAccess(ctx context.Context, entry models.CollectionAccessLogEntry) {
	if l == nil || l.config.Access == "off" {
		return
	}

	if l.config.Access != "db" {
		l.logAccess("collection access", entry.CollectionID, entry.Email, entry.IP, entry.Action, entry.Success, entry.FailureReason)
	}
	if l.config.Access != "log" {
		if err := l.access.LogCollection(ctx, entry); err != nil {
			l.zapLog.Error("failed to store collection access log",
				zap.Error(err),
				zap.String("collection_id", entry.CollectionID),
			)
		}
	}
}

// StorageOp records one blob-store operation outcome.
func (l *Logger) StorageOp(ctx context.Context, entry models.StorageAuditEntry) {
	if l == nil || l.config.Storage == "off" {
		return
	}

	if l.config.Storage != "db" {
		fields := []zap.Field{
			zap.Bool("audit", true),
			zap.String("stream", "storage"),
			zap.String("resource_id", entry.ResourceID),
			zap.String("blob_key", entry.BlobKey),
			zap.String("operation", entry.Operation),
			zap.Int64("size", entry.Size),
			zap.String("status", entry.Status),
		}
		if entry.Error != "" {
			fields = append(fields, zap.String("error", entry.Error))
		}
		if entry.Status == models.StorageStatusSuccess {
			l.zapLog.Info("storage operation", fields...)
		} else {
			l.zapLog.Warn("storage operation", fields...)
		}
	}
	if l.config.Storage != "log" {
		if err := l.storage.Log(ctx, entry); err != nil {
			l.zapLog.Error("failed to store storage audit entry",
				zap.Error(err),
				zap.String("blob_key", entry.BlobKey),
			)
		}
	}
}

func (l *Logger) logAccess(msg, resourceID, email, ip, action string, success bool, reason string) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("stream", "access"),
		zap.String("resource_id", resourceID),
		zap.String("email", email),
		zap.String("ip", ip),
		zap.String("action", action),
		zap.Bool("success", success),
	}
	if reason != "" {
		fields = append(fields, zap.String("failure_reason", reason))
	}

	if success {
		l.zapLog.Info(msg, fields...)
	} else {
		l.zapLog.Warn(msg, fields...)
	}
}
