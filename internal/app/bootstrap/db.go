package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/kirubae/filegate/internal/app/blob"
	"github.com/kirubae/filegate/internal/app/system/indexes"
	"go.uber.org/zap"
)

// ConnectDB connects to MongoDB and initializes the blob storage backend.
//
// WAFFLE calls this after configuration is loaded but before EnsureSchema
// and Startup. Clients land in the DBDeps struct for use in handlers.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	poolCfg := wafflemongo.DefaultPoolConfig()
	if appCfg.MongoMaxPoolSize > 0 {
		poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
	}
	if appCfg.MongoMinPoolSize > 0 {
		poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
	}

	client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
	if err != nil {
		return DBDeps{}, err
	}

	db := client.Database(appCfg.MongoDatabase)

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", poolCfg.MaxPoolSize),
		zap.Uint64("min_pool_size", poolCfg.MinPoolSize),
	)

	var blobs blob.Store
	switch appCfg.StorageType {
	case "s3":
		blobs, err = blob.NewS3(ctx, blob.S3Config{
			Region:          appCfg.StorageS3Region,
			Bucket:          appCfg.StorageS3Bucket,
			Prefix:          appCfg.StorageS3Prefix,
			Endpoint:        appCfg.StorageS3Endpoint,
			AccessKeyID:     appCfg.StorageS3AccessKeyID,
			SecretAccessKey: appCfg.StorageS3SecretAccessKey,
		})
		if err != nil {
			return DBDeps{}, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		logger.Info("initialized s3 blob storage",
			zap.String("bucket", appCfg.StorageS3Bucket),
			zap.String("prefix", appCfg.StorageS3Prefix),
			zap.String("endpoint", appCfg.StorageS3Endpoint),
		)
	case "local", "":
		blobs, err = blob.NewLocal(blob.LocalConfig{BasePath: appCfg.StorageLocalPath})
		if err != nil {
			return DBDeps{}, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		logger.Info("initialized local blob storage",
			zap.String("path", appCfg.StorageLocalPath),
		)
	default:
		return DBDeps{}, fmt.Errorf("unknown storage type: %s", appCfg.StorageType)
	}

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		BlobStore:     blobs,
	}, nil
}

// EnsureSchema creates the MongoDB indexes the stores depend on.
//
// This runs after ConnectDB succeeds but before Startup and before the
// HTTP handler is built. The context has a timeout based on
// coreCfg.IndexBootTimeout.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	logger.Info("ensuring database indexes")
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("failed to ensure indexes", zap.Error(err))
		return err
	}
	logger.Info("database schema ensured successfully")
	return nil
}
