package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/yorukot/videolink/internal/credential"
	"github.com/yorukot/videolink/internal/models"
	"github.com/yorukot/videolink/internal/repository"
	"github.com/yorukot/videolink/internal/storage"
)

// UploadPrefix is the storage directory every video blob is written under
const UploadPrefix = "uploads"

const (
	sharePathPrefix = "/v/"
	maxSlugAttempts = 5

	// DefaultMaxUploadBytes is the 500 MiB upload ceiling
	DefaultMaxUploadBytes int64 = 500 << 20
)

// DefaultAllowedMIME lists the video types accepted for upload
var DefaultAllowedMIME = []string{
	"video/mp4",
	"video/webm",
	"video/ogg",
	"video/quicktime",
	"video/x-msvideo",
	"video/x-matroska",
}

var uploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "videolink_uploads_total",
		Help: "Finished upload attempts by result.",
	},
	[]string{"result"},
)

// UploadFile is the video payload handed to BeginUpload
type UploadFile struct {
	OriginalName string
	MimeType     string
	SizeBytes    int64
	// Content is rewound before every write attempt
	Content io.ReadSeeker
}

// UploadConfig holds the uploader's access settings. It is not persisted.
type UploadConfig struct {
	ExpiresIn models.ExpirationPolicy
	Password  string
}

// ShareResult is returned by a successful upload
type ShareResult struct {
	Slug      string        `json:"slug"`
	ShareURL  string        `json:"share_url"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
	Video     *models.Video `json:"-"`
}

// UploadOptions configures UploadService
type UploadOptions struct {
	// PublicOrigin prefixes share links, e.g. "https://videos.example.com"
	PublicOrigin     string
	AllowedMIME      []string
	MaxUploadBytes   int64
	BlobTimeout      time.Duration
	MetadataTimeout  time.Duration
	ProgressInterval time.Duration
}

// UploadService stores uploaded videos and issues share links for them
type UploadService struct {
	videos  repository.VideoRepository
	storage storage.Storage
	hasher  credential.Hasher
	logger  *slog.Logger
	opts    UploadOptions
	allowed map[string]struct{}
	settings
}

// NewUploadService creates a new upload service
func NewUploadService(videos repository.VideoRepository, store storage.Storage, hasher credential.Hasher, logger *slog.Logger, opts UploadOptions, options ...Option) *UploadService {
	if len(opts.AllowedMIME) == 0 {
		opts.AllowedMIME = DefaultAllowedMIME
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.BlobTimeout <= 0 {
		opts.BlobTimeout = 10 * time.Minute
	}
	if opts.MetadataTimeout <= 0 {
		opts.MetadataTimeout = 10 * time.Second
	}
	opts.PublicOrigin = strings.TrimRight(opts.PublicOrigin, "/")

	allowed := make(map[string]struct{}, len(opts.AllowedMIME))
	for _, m := range opts.AllowedMIME {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}

	return &UploadService{
		videos:   videos,
		storage:  store,
		hasher:   hasher,
		logger:   logger,
		opts:     opts,
		allowed:  allowed,
		settings: applyOptions(options),
	}
}

// BeginUpload stores the file, persists its metadata and returns the share link.
// The blob write always completes before the metadata write starts. A metadata
// failure after a successful blob write leaves the blob in place.
func (s *UploadService) BeginUpload(ctx context.Context, file UploadFile, cfg UploadConfig, progress ProgressFunc) (*ShareResult, error) {
	result, err := s.upload(ctx, file, cfg, progress)
	switch {
	case err == nil:
		uploadsTotal.WithLabelValues("success").Inc()
	case errors.Is(err, ErrValidation):
		uploadsTotal.WithLabelValues("validation_error").Inc()
	case errors.Is(err, ErrStorage):
		uploadsTotal.WithLabelValues("storage_error").Inc()
	default:
		uploadsTotal.WithLabelValues("persistence_error").Inc()
	}
	return result, err
}

func (s *UploadService) upload(ctx context.Context, file UploadFile, cfg UploadConfig, progress ProgressFunc) (*ShareResult, error) {
	mimeType, err := s.validate(file, &cfg)
	if err != nil {
		return nil, err
	}

	var passwordHash *string
	if cfg.Password != "" {
		hash, err := s.hasher.Hash(cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		passwordHash = &hash
	}

	s.logger.Debug("upload started", "name", file.OriginalName, "mime_type", mimeType, "size_bytes", file.SizeBytes)

	reporter := newProgressReporter(ctx, progress)
	defer reporter.close()
	reporter.set(0)

	ext := strings.ToLower(filepath.Ext(file.OriginalName))

	var lastErr error
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		slug, err := s.newSlug()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to generate slug: %w", ErrStorage, err)
		}

		filename := slug + ext
		storagePath := path.Join(UploadPrefix, filename)

		if _, err := file.Content.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w: failed to rewind upload: %w", ErrStorage, err)
		}

		err = s.putBlob(ctx, reporter, storagePath, file, mimeType)
		if errors.Is(err, storage.ErrObjectExists) {
			s.logger.Warn("storage path already taken, regenerating slug",
				"slug", slug, "path", storagePath, "attempt", attempt)
			lastErr = fmt.Errorf("%w: %w", ErrStorage, err)
			continue
		}
		if err != nil {
			s.logger.Error("blob write failed", "slug", slug, "path", storagePath, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		reporter.set(blobStoredProgress)

		video := &models.Video{
			Slug:         slug,
			Filename:     filename,
			OriginalName: file.OriginalName,
			MimeType:     mimeType,
			SizeBytes:    file.SizeBytes,
			StoragePath:  storagePath,
			ExpiresAt:    cfg.ExpiresIn.ExpiresAt(s.now()),
			PasswordHash: passwordHash,
		}

		err = s.insert(ctx, video)
		if errors.Is(err, repository.ErrDuplicateSlug) {
			s.logger.Warn("slug already taken, regenerating; blob left orphaned",
				"slug", slug, "orphaned_path", storagePath, "attempt", attempt)
			lastErr = fmt.Errorf("%w: %w", ErrPersistence, err)
			continue
		}
		if err != nil {
			s.logger.Error("metadata write failed; blob left orphaned",
				"slug", slug, "orphaned_path", storagePath, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}

		reporter.complete()
		s.logger.Info("video uploaded",
			"slug", slug,
			"path", storagePath,
			"size_bytes", file.SizeBytes,
			"expires_in", string(cfg.ExpiresIn),
			"password_protected", passwordHash != nil,
		)

		return &ShareResult{
			Slug:      slug,
			ShareURL:  s.opts.PublicOrigin + sharePathPrefix + slug,
			ExpiresAt: video.ExpiresAt,
			Video:     video,
		}, nil
	}

	return nil, fmt.Errorf("no free slug after %d attempts: %w", maxSlugAttempts, lastErr)
}

func (s *UploadService) putBlob(ctx context.Context, reporter *progressReporter, storagePath string, file UploadFile, mimeType string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.BlobTimeout)
	defer cancel()

	stop := reporter.simulate(ctx, s.opts.ProgressInterval, blobProgressCeiling, s.progressStep)
	defer stop()

	return s.storage.Put(ctx, storagePath, file.Content, file.SizeBytes, storage.PutOptions{
		Overwrite:   false,
		ContentType: mimeType,
	})
}

func (s *UploadService) insert(ctx context.Context, video *models.Video) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.MetadataTimeout)
	defer cancel()
	return s.videos.Insert(ctx, video)
}

// validate checks the upload and returns the normalised MIME type. An empty
// expiration policy is treated as unlimited.
func (s *UploadService) validate(file UploadFile, cfg *UploadConfig) (string, error) {
	if file.Content == nil {
		return "", fmt.Errorf("%w: file content is required", ErrValidation)
	}
	if strings.TrimSpace(file.OriginalName) == "" {
		return "", fmt.Errorf("%w: file name is required", ErrValidation)
	}
	if file.SizeBytes <= 0 {
		return "", fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if file.SizeBytes > s.opts.MaxUploadBytes {
		return "", fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, s.opts.MaxUploadBytes)
	}

	mimeType, _, err := mime.ParseMediaType(file.MimeType)
	if err != nil {
		return "", fmt.Errorf("%w: invalid content type %q", ErrValidation, file.MimeType)
	}
	if _, ok := s.allowed[mimeType]; !ok {
		return "", fmt.Errorf("%w: unsupported content type %q", ErrValidation, mimeType)
	}

	if cfg.ExpiresIn == "" {
		cfg.ExpiresIn = models.ExpiresUnlimited
	}
	if !cfg.ExpiresIn.Valid() {
		return "", fmt.Errorf("%w: unknown expiration %q", ErrValidation, cfg.ExpiresIn)
	}

	return mimeType, nil
}
