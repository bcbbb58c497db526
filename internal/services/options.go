package services

import (
	"math/rand/v2"
	"time"

	"github.com/yorukot/videolink/internal/slug"
)

type settings struct {
	now          func() time.Time
	newSlug      func() (string, error)
	progressStep func() int
}

func defaultSettings() settings {
	return settings{
		now:          time.Now,
		newSlug:      slug.New,
		progressStep: func() int { return 1 + rand.IntN(15) },
	}
}

// Option customises UploadService and AccessService
type Option func(*settings)

// WithClock replaces the wall clock used for expiration
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithSlugGenerator replaces the slug generator
func WithSlugGenerator(fn func() (string, error)) Option {
	return func(s *settings) { s.newSlug = fn }
}

// WithProgressStep replaces the random increment of simulated upload progress
func WithProgressStep(fn func() int) Option {
	return func(s *settings) { s.progressStep = fn }
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
