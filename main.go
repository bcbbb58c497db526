package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yorukot/videolink/internal/config"
	"github.com/yorukot/videolink/internal/credential"
	"github.com/yorukot/videolink/internal/database"
	"github.com/yorukot/videolink/internal/handlers"
	mw "github.com/yorukot/videolink/internal/middleware"
	"github.com/yorukot/videolink/internal/repository"
	"github.com/yorukot/videolink/internal/services"
	"github.com/yorukot/videolink/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Warn(".env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	videos, closeVideos, err := newVideoRepository(cfg)
	if err != nil {
		return err
	}
	defer closeVideos()

	store, media, err := newStorage(cfg, logger)
	if err != nil {
		return err
	}

	hasher, err := credential.NewHasher(cfg.PasswordScheme)
	if err != nil {
		return err
	}

	uploads := services.NewUploadService(videos, store, hasher, logger, services.UploadOptions{
		PublicOrigin:     cfg.PublicOrigin,
		AllowedMIME:      cfg.AllowedMIME,
		MaxUploadBytes:   cfg.MaxUploadBytes,
		BlobTimeout:      cfg.BlobTimeout,
		MetadataTimeout:  cfg.MetadataTimeout,
		ProgressInterval: cfg.ProgressInterval,
	})
	access := services.NewAccessService(videos, store, hasher, cfg.MetadataTimeout)

	// Initialize handlers
	apiHandler := handlers.NewAPIHandler(uploads, access, cfg.MaxUploadBytes, logger)
	publicHandler := handlers.NewPublicHandler(access, logger)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.Metrics())
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.With(mw.APIKeyAuth(cfg.APIKey)).Post("/upload", apiHandler.UploadFile)
		r.Get("/videos/{slug}", apiHandler.GetVideo)
	})

	// Share page
	r.Get("/v/{slug}", publicHandler.SharePage)
	r.Post("/v/{slug}", publicHandler.SharePage)

	if media != nil {
		r.Get("/media/*", media.Serve)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"port", cfg.Port,
			"public_origin", cfg.PublicOrigin,
			"storage", cfg.StorageBackend,
			"metadata", cfg.MetadataBackend,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newVideoRepository(cfg config.Config) (repository.VideoRepository, func(), error) {
	var (
		videos  repository.VideoRepository
		closeFn = func() {}
	)

	switch cfg.MetadataBackend {
	case "dynamodb":
		awsCfg := aws.Config{Region: cfg.S3Region}
		if cfg.S3AccessKeyID != "" {
			awsCfg.Credentials = credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, "")
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
			}
		})
		videos = repository.NewDynamoVideoRepository(client, cfg.DynamoTable)
	default:
		db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		videos = repository.NewGormVideoRepository(db)
		closeFn = func() {
			if err := database.Close(db); err != nil {
				slog.Warn("failed to close database", "error", err)
			}
		}
	}

	if cfg.CacheSize > 0 {
		videos = repository.NewCachedVideoRepository(videos, cfg.CacheSize, cfg.CacheTTL)
	}
	return videos, closeFn, nil
}

// newStorage builds the blob store. The local backend also needs the media
// handler that serves its signed URLs.
func newStorage(cfg config.Config, logger *slog.Logger) (storage.Storage, *handlers.MediaHandler, error) {
	if cfg.StorageBackend == "s3" {
		store, err := storage.NewS3Storage(storage.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
			UsePathStyle:    cfg.S3UsePathStyle,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			PresignTTL:      cfg.S3PresignTTL,
		})
		return store, nil, err
	}

	key := []byte(cfg.MediaSigningKey)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, nil, fmt.Errorf("failed to generate media signing key: %w", err)
		}
		logger.Warn("MEDIA_SIGNING_KEY not set, media links will stop working after a restart")
	}

	local, err := storage.NewLocalStorage(cfg.DataDir, cfg.PublicOrigin+"/media", key, cfg.MediaURLTTL)
	if err != nil {
		return nil, nil, err
	}
	return local, handlers.NewMediaHandler(local, services.UploadPrefix, logger), nil
}
