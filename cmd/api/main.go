package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hairstudio/internal/adapter/repo"
	"hairstudio/internal/diagnosis"
	"hairstudio/internal/gallery"
	"hairstudio/internal/http/handlers"
	httpapi "hairstudio/internal/http/httpapi"
	"hairstudio/internal/imagegen"
	"hairstudio/internal/infra"
	"hairstudio/internal/infra/credentials"
	"hairstudio/internal/infra/geoip"
	"hairstudio/internal/infra/line"
	"hairstudio/internal/middleware"
	"hairstudio/internal/providers/genai"
	"hairstudio/internal/session"
	"hairstudio/internal/storage"
	"hairstudio/internal/upload"
	"hairstudio/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	sqlRunner := infra.NewSQLRunner(dbpool, logger)
	if err := repo.EnsureSchema(ctx, sqlRunner); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

	creds := credentials.NewStore(sqlRunner)
	diagnosisKey, err := creds.Resolve(ctx, credentials.ProviderDiagnosis, cfg.DiagnosisAPIKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve diagnosis api key")
	}
	imageKey, err := creds.Resolve(ctx, credentials.ProviderImageGen, cfg.ImageGenAPIKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve imagegen api key")
	}
	if diagnosisKey == "" || imageKey == "" {
		logger.Warn().Bool("diagnosis", diagnosisKey != "").Bool("imagegen", imageKey != "").Msg("model api keys missing; calls will be rejected upstream")
	}

	diagnosisClient, err := newGenAIClient(cfg, diagnosisKey, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build diagnosis client")
	}
	imageClient, err := newGenAIClient(cfg, imageKey, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build imagegen client")
	}

	var (
		store  storage.ObjectStore
		static http.Handler
	)
	switch cfg.StorageBackend {
	case infra.StorageBackendMinio:
		store, err = storage.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, cfg.StoragePresignTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init minio storage")
		}
	default:
		fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init filesystem storage")
		}
		store, static = fileStore, fileStore.Handler()
	}

	fetcher := storage.NewFetcher(&http.Client{Timeout: 2 * time.Minute}, cfg.ImageSourceAllowlist, cfg.UploadMaxBytes)
	diagnoser := diagnosis.NewService(diagnosis.Options{
		Generator: diagnosisClient,
		Fetcher:   fetcher,
		Model:     cfg.DiagnosisModel,
		Logger:    &logger,
	})
	imager := imagegen.NewService(imagegen.Options{
		Generator: imageClient,
		Fetcher:   fetcher,
		Model:     cfg.ImageModel,
		Logger:    &logger,
	})
	galleryService := gallery.NewService(gallery.Options{
		Store:  store,
		Repo:   repo.NewGalleryRepository(sqlRunner),
		Logger: &logger,
	})
	uploader := upload.NewObjectUploader(upload.ObjectUploaderOptions{
		Store:             store,
		MaxImageDimension: cfg.UploadImageMaxDimension,
		Logger:            &logger,
	})

	var snapshots session.Store
	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
		snapshots = session.NewRedisStore(redisClient, cfg.SessionTTL)
	} else {
		logger.Warn().Msg("REDIS_URL not set; sessions are kept in memory only")
	}
	sessions := session.NewManager(session.ManagerOptions{
		NewOptions: func() workflow.Options {
			return workflow.Options{
				Uploads:   upload.NewCoordinator(uploader, &logger),
				Diagnoser: diagnoser,
				Imager:    imager,
				Gallery:   galleryService,
				Logger:    &logger,
			}
		},
		Store:   snapshots,
		IdleTTL: cfg.SessionTTL,
		Logger:  &logger,
	})
	go sessions.Run(ctx, time.Minute)

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	var countryLookup middleware.CountryLookup
	if resolver != nil {
		defer resolver.Close()
		countryLookup = resolver.CountryCode
	}

	app := &handlers.App{
		Logger:         logger,
		JWTSecret:      cfg.JWTSecret,
		TokenTTL:       cfg.TokenTTL,
		UploadMaxBytes: cfg.UploadMaxBytes,
		Diagnosis:      diagnoser,
		Images:         imager,
		LINE:           line.NewVerifier(cfg.LINEProfileURL, &http.Client{Timeout: 10 * time.Second}),
		Gallery:        galleryService,
		Sessions:       sessions,
		CheckOrigin:    originChecker(cfg.CORSOrigins),
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		JWTSecret:       cfg.JWTSecret,
		CORSOrigins:     cfg.CORSOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   countryLookup,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Static:          static,
	})

	server := infra.NewHTTPServer(cfg, router)
	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	sessions.Close(shutdownCtx)
	logger.Info().Msg("server stopped")
}

func newGenAIClient(cfg *infra.Config, apiKey string, logger *infra.Logger) (*genai.Client, error) {
	return genai.NewClient(genai.Options{
		APIKey:       apiKey,
		BaseURL:      cfg.GeminiBaseURL,
		Logger:       logger,
		MaxAttempts:  cfg.GenAIMaxAttempts,
		InitialDelay: cfg.GenAIInitialDelay,
		MaxDelay:     cfg.GenAIMaxDelay,
	})
}

// originChecker allows websocket upgrades from the CORS origins, or any
// origin when "*" is configured.
func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
