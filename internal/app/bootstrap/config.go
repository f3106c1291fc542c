package bootstrap

import (
	"fmt"
	"strings"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "FILEGATE"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, storage_type, etc.
//   - Environment variables: FILEGATE_MONGO_URI, FILEGATE_STORAGE_TYPE, etc.
//   - Command-line flags: --mongo_uri, --storage_type, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "filegate", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// API key for the owner API (Bearer token auth)
	{Name: "api_key", Default: "", Desc: "API key for the owner API (leave empty to reject all owner requests)"},

	// Blob storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./blobs", Desc: "Local storage path for uploaded blobs"},

	// S3-compatible configuration (AWS S3, Cloudflare R2, MinIO)
	{Name: "storage_s3_region", Default: "auto", Desc: "S3 region ('auto' for R2)"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "", Desc: "S3 key prefix"},
	{Name: "storage_s3_endpoint", Default: "", Desc: "Custom S3 endpoint URL (for R2/MinIO, empty for AWS)"},
	{Name: "storage_s3_access_key_id", Default: "", Desc: "S3 access key id (empty to use ambient AWS credentials)"},
	{Name: "storage_s3_secret_access_key", Default: "", Desc: "S3 secret access key"},

	// Upload constraints
	{Name: "max_upload_mb", Default: 100, Desc: "Maximum upload size in MiB (0 = unlimited)"},
	{Name: "allowed_extensions", Default: "", Desc: "Comma-separated allowed file extensions (empty = any)"},

	// Audit logging settings
	{Name: "audit_log_access", Default: "all", Desc: "Access event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_storage", Default: "all", Desc: "Storage event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, FILEGATE_* for app), and
// command-line flags, merged with precedence: flags > env > files >
// defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		APIKey: appValues.String("api_key"),

		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),

		StorageS3Region:          appValues.String("storage_s3_region"),
		StorageS3Bucket:          appValues.String("storage_s3_bucket"),
		StorageS3Prefix:          appValues.String("storage_s3_prefix"),
		StorageS3Endpoint:        appValues.String("storage_s3_endpoint"),
		StorageS3AccessKeyID:     appValues.String("storage_s3_access_key_id"),
		StorageS3SecretAccessKey: appValues.String("storage_s3_secret_access_key"),

		MaxUploadSize: int64(appValues.Int("max_upload_mb")) << 20,
		AllowedExts:   parseExtensions(appValues.String("allowed_extensions")),

		AuditLogAccess:  appValues.String("audit_log_access"),
		AuditLogStorage: appValues.String("audit_log_storage"),
	}

	return coreCfg, appCfg, nil
}

// parseExtensions splits a comma-separated extension list, lower-casing
// and stripping any leading dot.
func parseExtensions(raw string) []string {
	if raw == "" {
		return nil
	}
	var exts []string
	for _, e := range strings.Split(raw, ",") {
		e = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(e), ".")))
		if e != "" {
			exts = append(exts, e)
		}
	}
	return exts
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	switch appCfg.StorageType {
	case "local", "":
		if appCfg.StorageLocalPath == "" {
			return fmt.Errorf("storage_local_path is required for local storage")
		}
	case "s3":
		if appCfg.StorageS3Bucket == "" {
			return fmt.Errorf("storage_s3_bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", appCfg.StorageType)
	}

	if appCfg.APIKey == "" {
		logger.Warn("api_key is empty; owner API requests will be rejected")
	}

	return nil
}
