package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/yorukot/videolink/internal/models"
	"github.com/yorukot/videolink/internal/repository"
	"github.com/yorukot/videolink/internal/storage"
)

// memStorage is an in-memory storage.Storage.
type memStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	putCalls int
	putErr   error
	locErr   error
	// onPut runs inside Put before the content is read
	onPut func(ctx context.Context) error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Put(ctx context.Context, path string, r io.Reader, size int64, opts storage.PutOptions) error {
	m.mu.Lock()
	m.putCalls++
	putErr, onPut := m.putErr, m.onPut
	_, exists := m.objects[path]
	m.mu.Unlock()

	if putErr != nil {
		return putErr
	}
	if exists && !opts.Overwrite {
		return fmt.Errorf("%w: %s", storage.ErrObjectExists, path)
	}
	if onPut != nil {
		if err := onPut(ctx); err != nil {
			return err
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = data
	return nil
}

func (m *memStorage) Locator(_ context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locErr != nil {
		return "", m.locErr
	}
	return "https://cdn.test/" + path, nil
}

func (m *memStorage) object(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[path]
	return data, ok
}

// memVideoRepo is an in-memory repository.VideoRepository.
type memVideoRepo struct {
	mu          sync.Mutex
	videos      map[string]models.Video
	insertCalls int
	insertErr   error
	findErr     error
}

func newMemVideoRepo() *memVideoRepo {
	return &memVideoRepo{videos: make(map[string]models.Video)}
}

func (r *memVideoRepo) Insert(_ context.Context, v *models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertCalls++
	if r.insertErr != nil {
		return r.insertErr
	}
	if _, ok := r.videos[v.Slug]; ok {
		return fmt.Errorf("%w: %s", repository.ErrDuplicateSlug, v.Slug)
	}
	r.videos[v.Slug] = *v
	return nil
}

func (r *memVideoRepo) FindBySlug(_ context.Context, slug string) (*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	v, ok := r.videos[slug]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

// fakeClock is a settable clock shared by both services in a test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// slugSequence returns the given slugs in order, repeating the last one.
func slugSequence(slugs ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		s := slugs[min(i, len(slugs)-1)]
		i++
		return s, nil
	}
}

// progressRecorder collects emitted progress values.
type progressRecorder struct {
	mu     sync.Mutex
	values []int
	seen   map[int]chan struct{}
}

func newProgressRecorder() *progressRecorder {
	return &progressRecorder{seen: make(map[int]chan struct{})}
}

func (p *progressRecorder) record(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, percent)
	for threshold, ch := range p.seen {
		if percent >= threshold {
			close(ch)
			delete(p.seen, threshold)
		}
	}
}

// reached returns a channel closed once a value >= threshold is recorded.
func (p *progressRecorder) reached(threshold int) <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan struct{})
	for _, v := range p.values {
		if v >= threshold {
			close(ch)
			return ch
		}
	}
	p.seen[threshold] = ch
	return ch
}

func (p *progressRecorder) snapshot() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.values...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
