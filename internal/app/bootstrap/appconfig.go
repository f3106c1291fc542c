package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (HTTP ports, TLS,
// logging, shutdown timeouts). AppConfig is everything specific to this
// service: database connection, blob storage backend, upload limits, the
// API key guarding the owner API, and audit stream routing.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// API key authentication for the owner API (/api/*).
	// Leave empty to reject all owner API requests.
	APIKey string

	// Blob storage configuration
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage path (e.g., "./blobs")

	// S3-compatible configuration (only used if StorageType is "s3").
	// Endpoint and static credentials support S3-compatible providers
	// such as Cloudflare R2 and MinIO.
	StorageS3Region          string
	StorageS3Bucket          string
	StorageS3Prefix          string
	StorageS3Endpoint        string // custom endpoint URL, empty for AWS
	StorageS3AccessKeyID     string
	StorageS3SecretAccessKey string

	// Upload constraints, enforced before any blob write
	MaxUploadSize int64    // bytes, 0 = unlimited
	AllowedExts   []string // lowercase extensions without dot; empty = any

	// Audit logging configuration
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	AuditLogAccess  string // access attempts (policy checks, downloads)
	AuditLogStorage string // blob operations (uploads, downloads, deletes)
}
