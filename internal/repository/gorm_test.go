package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorukot/videolink/internal/database"
	"github.com/yorukot/videolink/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func sampleVideo(slug string) *models.Video {
	return &models.Video{
		Slug:         slug,
		Filename:     slug + ".mp4",
		OriginalName: "holiday.mp4",
		MimeType:     "video/mp4",
		SizeBytes:    1024,
		StoragePath:  "uploads/" + slug + ".mp4",
	}
}

func TestGormVideoRepository_InsertAndFind(t *testing.T) {
	repo := NewGormVideoRepository(openTestDB(t))
	ctx := context.Background()

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	hash := "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b"
	v := sampleVideo("jtcabc123")
	v.ExpiresAt = &expires
	v.PasswordHash = &hash

	require.NoError(t, repo.Insert(ctx, v))
	assert.NotEmpty(t, v.ID)

	got, err := repo.FindBySlug(ctx, "jtcabc123")
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
	assert.Equal(t, "holiday.mp4", got.OriginalName)
	assert.Equal(t, "uploads/jtcabc123.mp4", got.StoragePath)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expires.Equal(*got.ExpiresAt))
	require.NotNil(t, got.PasswordHash)
	assert.Equal(t, hash, *got.PasswordHash)
}

func TestGormVideoRepository_DuplicateSlug(t *testing.T) {
	repo := NewGormVideoRepository(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, sampleVideo("jtcabc123")))
	err := repo.Insert(ctx, sampleVideo("jtcabc123"))
	assert.ErrorIs(t, err, ErrDuplicateSlug)
}

func TestGormVideoRepository_NotFound(t *testing.T) {
	repo := NewGormVideoRepository(openTestDB(t))

	_, err := repo.FindBySlug(context.Background(), "jtcmissing")
	assert.ErrorIs(t, err, ErrNotFound)
}
