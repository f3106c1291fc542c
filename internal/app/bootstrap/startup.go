package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"github.com/kirubae/filegate/internal/app/blob"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema setup are complete,
// but before the HTTP handler is built and requests are served.
//
// The only one-time work this service needs is a probe of the blob
// backend, so a misconfigured bucket or storage path fails startup
// instead of the first upload.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if _, err := deps.BlobStore.Head(ctx, ".startup-probe"); err != nil && !errors.Is(err, blob.ErrNotFound) {
		logger.Error("blob storage probe failed", zap.Error(err))
		return err
	}
	logger.Info("blob storage reachable", zap.String("type", appCfg.StorageType))
	return nil
}
