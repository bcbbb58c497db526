package repository

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/yorukot/videolink/internal/models"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videolink_metadata_cache_hits_total",
		Help: "Slug lookups served from the metadata cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videolink_metadata_cache_misses_total",
		Help: "Slug lookups that went to the metadata store.",
	})
)

// CachedVideoRepository keeps recently found records in an expirable LRU.
// Records never change after insert, so a hit is always current. Misses are not cached.
type CachedVideoRepository struct {
	next  VideoRepository
	cache *expirable.LRU[string, models.Video]
}

// NewCachedVideoRepository wraps next with an LRU of maxSize entries living for ttl
func NewCachedVideoRepository(next VideoRepository, maxSize int, ttl time.Duration) *CachedVideoRepository {
	return &CachedVideoRepository{
		next:  next,
		cache: expirable.NewLRU[string, models.Video](maxSize, nil, ttl),
	}
}

// Insert implements VideoRepository.
func (c *CachedVideoRepository) Insert(ctx context.Context, video *models.Video) error {
	return c.next.Insert(ctx, video)
}

// FindBySlug implements VideoRepository.
func (c *CachedVideoRepository) FindBySlug(ctx context.Context, slug string) (*models.Video, error) {
	if v, ok := c.cache.Get(slug); ok {
		cacheHitsTotal.Inc()
		return &v, nil
	}
	cacheMissesTotal.Inc()

	video, err := c.next.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	c.cache.Add(slug, *video)
	return video, nil
}
