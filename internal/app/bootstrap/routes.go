package bootstrap

import (
	"net/http"
	"time"

	healthfeature "github.com/kirubae/filegate/internal/app/features/health"
	libraryapifeature "github.com/kirubae/filegate/internal/app/features/libraryapi"
	shareapifeature "github.com/kirubae/filegate/internal/app/features/shareapi"

	"github.com/kirubae/filegate/internal/app/access"
	"github.com/kirubae/filegate/internal/app/library"
	accesslogstore "github.com/kirubae/filegate/internal/app/store/accesslog"
	collectionstore "github.com/kirubae/filegate/internal/app/store/collection"
	filestore "github.com/kirubae/filegate/internal/app/store/file"
	storageauditstore "github.com/kirubae/filegate/internal/app/store/storageaudit"
	"github.com/kirubae/filegate/internal/app/system/apicors"
	"github.com/kirubae/filegate/internal/app/system/auditlog"
	"github.com/kirubae/filegate/internal/app/system/auth"
	"github.com/kirubae/filegate/internal/app/system/emailcheck"
	"github.com/kirubae/filegate/internal/app/uploads"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE
// app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and Startup have completed. The router splits into three groups:
//   - /share  - public recipient endpoints, no authentication beyond
//     the policy checks and tokens the access service enforces
//   - /api    - owner management endpoints, API key + X-Owner-ID
//   - /health - probes
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Stores
	files := filestore.New(deps.MongoDatabase)
	collections := collectionstore.New(deps.MongoDatabase)
	accessLogs := accesslogstore.New(deps.MongoDatabase)
	storageAudit := storageauditstore.New(deps.MongoDatabase)

	// Audit sink for the two event streams
	audit := auditlog.New(accessLogs, storageAudit, logger, auditlog.Config{
		Access:  appCfg.AuditLogAccess,
		Storage: appCfg.AuditLogStorage,
	})

	// Access gatekeeper: policy resolution, evaluation, tokens
	resolver := access.NewResolver(files, collections)
	gate := access.NewService(resolver, audit)

	// Upload write-verify pipeline and the owner-facing service
	verifier := uploads.NewVerifier(deps.BlobStore, audit, logger)
	librarySvc := library.NewService(library.Config{
		MaxUploadSize: appCfg.MaxUploadSize,
		AllowedExts:   appCfg.AllowedExts,
	}, files, collections, accessLogs, verifier, deps.BlobStore, audit, logger)

	emails := emailcheck.New(logger)

	shareHandler := shareapifeature.NewHandler(gate, files, collections, deps.BlobStore, audit, logger)
	libraryHandler := libraryapifeature.NewHandler(librarySvc, emails, logger)
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.BlobStore, logger)

	r := chi.NewRouter()

	// Global middleware. The timeout bounds every request; downloads of
	// large files stream within it.
	r.Use(chimw.Timeout(5 * time.Minute))
	r.Use(middleware.CORSFromConfig(coreCfg))
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Public share endpoints
	r.Mount("/share", shareapifeature.Routes(shareHandler))

	// Owner API: API key auth, permissive CORS, no cookies
	r.Group(func(r chi.Router) {
		r.Use(apicors.Middleware())
		r.Use(auth.APIKeyAuth(appCfg.APIKey, logger))
		r.Mount("/api", libraryapifeature.Routes(libraryHandler))
	})

	// Health checks
	r.Mount("/health", healthfeature.Routes(healthHandler))

	return r, nil
}
