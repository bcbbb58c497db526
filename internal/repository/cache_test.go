package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yorukot/videolink/internal/models"
)

type mockVideoRepo struct {
	mock.Mock
}

func (m *mockVideoRepo) Insert(ctx context.Context, v *models.Video) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *mockVideoRepo) FindBySlug(ctx context.Context, slug string) (*models.Video, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Video), args.Error(1)
}

func TestCachedVideoRepository_HitsAfterFirstLookup(t *testing.T) {
	next := new(mockVideoRepo)
	ctx := context.Background()
	next.On("FindBySlug", ctx, "jtcabc123").Return(sampleVideo("jtcabc123"), nil).Once()

	repo := NewCachedVideoRepository(next, 16, time.Minute)

	for i := 0; i < 3; i++ {
		v, err := repo.FindBySlug(ctx, "jtcabc123")
		require.NoError(t, err)
		assert.Equal(t, "jtcabc123", v.Slug)
	}
	next.AssertExpectations(t)
}

func TestCachedVideoRepository_MissesAreNotCached(t *testing.T) {
	next := new(mockVideoRepo)
	ctx := context.Background()
	next.On("FindBySlug", ctx, "jtcabc123").Return(nil, ErrNotFound).Once()
	next.On("FindBySlug", ctx, "jtcabc123").Return(sampleVideo("jtcabc123"), nil).Once()

	repo := NewCachedVideoRepository(next, 16, time.Minute)

	_, err := repo.FindBySlug(ctx, "jtcabc123")
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := repo.FindBySlug(ctx, "jtcabc123")
	require.NoError(t, err)
	assert.Equal(t, "jtcabc123", v.Slug)
	next.AssertExpectations(t)
}

func TestCachedVideoRepository_InsertPassesThrough(t *testing.T) {
	next := new(mockVideoRepo)
	ctx := context.Background()
	v := sampleVideo("jtcabc123")
	next.On("Insert", ctx, v).Return(ErrDuplicateSlug)

	repo := NewCachedVideoRepository(next, 16, time.Minute)
	assert.ErrorIs(t, repo.Insert(ctx, v), ErrDuplicateSlug)
	next.AssertExpectations(t)
}
