package router

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"vidiooh/internal/api/v1/handler"
	"vidiooh/internal/artifact"
	"vidiooh/internal/config"
	"vidiooh/internal/middleware"
	"vidiooh/internal/pubsub"
	"vidiooh/internal/repository"
	"vidiooh/internal/service"
	"vidiooh/internal/storage"
	"vidiooh/internal/watch"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Deps are the long-lived resources the router owns; the caller closes
// them on shutdown and runs the background loops.
type Deps struct {
	DB        *sql.DB
	Pool      *pgxpool.Pool
	Watcher   *watch.Watcher
	Artifacts *artifact.Store
	Cleanup   service.CleanupService
	Transcode service.TranscodeService
}

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *Deps, error) {
	logger.Info().Msg("Router initialized")
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// 1. Open DB connections: database/sql for the account directory,
	// pgxpool for the high-churn conversion tables and LISTEN/NOTIFY.
	dsn := normalizeDSN(cfg)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		logger.Fatal().Msgf("Failed to create pgx pool: %v", err)
		return nil, nil, err
	}

	// 2. Snapshot cache
	cache := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := cache.Ping(context.Background()).Err(); err != nil {
		// The entitlement service degrades to direct directory reads
		// without a cache; do not block startup on Redis.
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, entitlement snapshots disabled")
		cache = nil
	}

	// 3. Object storage
	store, err := storage.NewS3Store(context.Background(), cfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to initialize object storage: %v", err)
		return nil, nil, err
	}

	// 4. Artifact store
	artifacts, err := artifact.NewStore(cfg.ArtifactDir, time.Duration(cfg.ArtifactTTLMinutes)*time.Minute)
	if err != nil {
		logger.Fatal().Msgf("Failed to initialize artifact store: %v", err)
		return nil, nil, err
	}

	// 5. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 6. Initialize Pub/Sub publisher
	pubSubPublisher, err := pubsub.NewPublisher(context.Background(), cfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
		return nil, nil, err
	}

	// 7. Initialize repositories & services & handlers
	accountRepo := repository.NewAccountRepo(db)
	conversionRepo := repository.NewConversionRepo(pool)
	formatRepo := repository.NewFormatRepo(pool)

	entitlementSvc := service.NewEntitlementService(accountRepo, cache, logger)
	quotaSvc := service.NewQuotaService(conversionRepo, logger)
	formatSvc := service.NewFormatService(formatRepo, logger)
	transcodeSvc := service.NewTranscodeService(cfg.FFmpegPath, cfg.FFprobePath, cfg.TranscodeSlots, logger)
	dispatchSvc := service.NewDispatchService(conversionRepo, store, artifacts, pubSubPublisher, cfg.ConversionEventTopic, logger)
	conversionSvc := service.NewConversionService(quotaSvc, formatSvc, transcodeSvc, dispatchSvc, artifacts, logger)
	historySvc := service.NewHistoryService(conversionRepo, store, logger)
	cleanupSvc := service.NewCleanupService(conversionRepo, store, time.Duration(cfg.RetentionHours)*time.Hour, logger)

	watcher := watch.New(pool, accountRepo, entitlementSvc, logger)

	conversionHandler := handler.NewConversionHandler(conversionSvc, historySvc, quotaSvc, watcher, artifacts, validate, logger)
	artifactHandler := handler.NewArtifactHandler(artifacts, logger)
	entitlementHandler := handler.NewEntitlementHandler(watcher, logger)
	formatHandler := handler.NewFormatHandler(formatSvc, watcher, validate, logger)
	capabilityHandler := handler.NewCapabilityHandler(transcodeSvc, logger)
	cleanupHandler := handler.NewCleanupHandler(cleanupSvc, logger)

	// 8. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)
	isLocalDev := cfg.PubSubEmulatorHost != "" || cfg.Environment == "development"
	pubsubAuthMiddleware := middleware.PubSubAuthMiddleware(isLocalDev, cfg.CleanupEndpointURL, cfg.PubSubPushServiceAccountEmail, logger)

	// 9. Create ServeMux router
	mux := http.NewServeMux()

	// Create a subrouter for API v1 with the /v1 prefix
	apiV1Mux := http.NewServeMux()
	conversionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	artifactHandler.RegisterRoutes(apiV1Mux)
	entitlementHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	formatHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	capabilityHandler.RegisterRoutes(apiV1Mux)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	// Internal push-triggered routes stay outside the /v1 surface
	cleanupHandler.RegisterRoutes(mux, pubsubAuthMiddleware)

	// Operational endpoints
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "db unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Add Swagger documentation
	mux.HandleFunc("/swagger/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger/swagger.json")
	})

	// 10. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Allow all origins for development
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	deps := &Deps{
		DB:        db,
		Pool:      pool,
		Watcher:   watcher,
		Artifacts: artifacts,
		Cleanup:   cleanupSvc,
		Transcode: transcodeSvc,
	}
	return middleware.LoggerMiddleware(c.Handler(mux)), deps, nil
}

// normalizeDSN applies the environment-specific connection string tweaks:
// SSL off for local development, simple query protocol behind transaction
// poolers like pgbouncer.
func normalizeDSN(cfg *config.Config) string {
	dsn := cfg.DBConnectionString
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := " "
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			if strings.Contains(dsn, "?") {
				separator = "&"
			} else {
				separator = "?"
			}
		}
		dsn += separator + "sslmode=disable"
	}
	if cfg.Environment != "development" && !strings.Contains(dsn, "prefer_simple_protocol") {
		separator := "&"
		if !strings.Contains(dsn, "?") {
			separator = "?"
		}
		dsn += separator + "prefer_simple_protocol=true"
	}
	return dsn
}
