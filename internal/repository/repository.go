// Package repository persists video metadata records keyed by slug.
package repository

import (
	"context"
	"errors"

	"github.com/yorukot/videolink/internal/models"
)

var (
	ErrNotFound      = errors.New("video not found")
	ErrDuplicateSlug = errors.New("slug already taken")
)

// VideoRepository is the metadata store. Records are inserted once and only read afterwards.
type VideoRepository interface {
	// Insert stores a new record, failing with ErrDuplicateSlug if the slug is taken
	Insert(ctx context.Context, video *models.Video) error

	// FindBySlug returns the record for slug or ErrNotFound
	FindBySlug(ctx context.Context, slug string) (*models.Video, error)
}
