package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yorukot/videolink/internal/models"
	"gorm.io/gorm"
)

// GormVideoRepository stores videos in a SQL database through gorm.
// The gorm.DB must be opened with TranslateError enabled.
type GormVideoRepository struct {
	db *gorm.DB
}

// NewGormVideoRepository creates a gorm backed repository
func NewGormVideoRepository(db *gorm.DB) *GormVideoRepository {
	return &GormVideoRepository{db: db}
}

// Insert implements VideoRepository.
func (r *GormVideoRepository) Insert(ctx context.Context, video *models.Video) error {
	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	if video.CreatedAt.IsZero() {
		video.CreatedAt = time.Now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(video).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", ErrDuplicateSlug, video.Slug)
		}
		return fmt.Errorf("failed to create database record: %w", err)
	}
	return nil
}

// FindBySlug implements VideoRepository.
func (r *GormVideoRepository) FindBySlug(ctx context.Context, slug string) (*models.Video, error) {
	var video models.Video
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&video).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load video: %w", err)
	}
	return &video, nil
}
