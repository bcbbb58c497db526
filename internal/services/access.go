package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yorukot/videolink/internal/credential"
	"github.com/yorukot/videolink/internal/models"
	"github.com/yorukot/videolink/internal/repository"
	"github.com/yorukot/videolink/internal/storage"
)

// AccessState is the outcome of evaluating a video's access gate
type AccessState int

const (
	AccessGranted AccessState = iota
	AccessNotFound
	AccessExpired
	AccessPasswordRequired
)

func (s AccessState) String() string {
	switch s {
	case AccessGranted:
		return "granted"
	case AccessNotFound:
		return "not_found"
	case AccessExpired:
		return "expired"
	case AccessPasswordRequired:
		return "password_required"
	default:
		return fmt.Sprintf("AccessState(%d)", int(s))
	}
}

// AccessDecision is the result of Resolve. Locator and Video are only set when
// access is granted.
type AccessDecision struct {
	State   AccessState
	Locator string
	Video   *models.Video
}

// Granted reports whether playback may proceed
func (d *AccessDecision) Granted() bool {
	return d.State == AccessGranted
}

// Err returns the sentinel error for a denied decision, or nil
func (d *AccessDecision) Err() error {
	switch d.State {
	case AccessNotFound:
		return ErrNotFound
	case AccessExpired:
		return ErrExpired
	case AccessPasswordRequired:
		return ErrPasswordRequired
	default:
		return nil
	}
}

// AccessService decides whether a requester may play a video
type AccessService struct {
	videos  repository.VideoRepository
	storage storage.Storage
	hasher  credential.Hasher
	timeout time.Duration
	settings
}

// NewAccessService creates a new access service. timeout bounds each store call.
func NewAccessService(videos repository.VideoRepository, store storage.Storage, hasher credential.Hasher, timeout time.Duration, options ...Option) *AccessService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AccessService{
		videos:   videos,
		storage:  store,
		hasher:   hasher,
		timeout:  timeout,
		settings: applyOptions(options),
	}
}

// Resolve evaluates the access gate of slug. Checks run in order: existence,
// expiration, then password. Nothing is cached between calls, so a password has
// to be supplied every time. The error is non-nil only when a store fails.
func (s *AccessService) Resolve(ctx context.Context, slug string, password *string) (*AccessDecision, error) {
	if slug == "" {
		return &AccessDecision{State: AccessNotFound}, nil
	}

	video, err := s.findBySlug(ctx, slug)
	if errors.Is(err, repository.ErrNotFound) {
		return &AccessDecision{State: AccessNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if video.IsExpired(s.now()) {
		return &AccessDecision{State: AccessExpired}, nil
	}

	if video.HasPassword() {
		if password == nil || *password == "" || !s.hasher.Verify(*password, *video.PasswordHash) {
			return &AccessDecision{State: AccessPasswordRequired}, nil
		}
	}

	locator, err := s.locator(ctx, video.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return &AccessDecision{
		State:   AccessGranted,
		Locator: locator,
		Video:   video,
	}, nil
}

func (s *AccessService) findBySlug(ctx context.Context, slug string) (*models.Video, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.videos.FindBySlug(ctx, slug)
}

func (s *AccessService) locator(ctx context.Context, storagePath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.storage.Locator(ctx, storagePath)
}
