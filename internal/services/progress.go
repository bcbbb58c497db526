package services

import (
	"context"
	"sync"
	"time"
)

// ProgressFunc receives upload progress as a percentage in [0, 100].
type ProgressFunc func(percent int)

const (
	// simulated progress never passes this while the blob write is outstanding
	blobProgressCeiling = 90
	// reported once the blob write is confirmed
	blobStoredProgress = 95
	progressComplete   = 100
)

// progressReporter forwards progress to the caller. Values only go up, and
// nothing is emitted after close or once the caller's context is done.
type progressReporter struct {
	ctx context.Context
	fn  ProgressFunc

	mu      sync.Mutex
	current int
	started bool
	closed  bool
}

func newProgressReporter(ctx context.Context, fn ProgressFunc) *progressReporter {
	return &progressReporter{ctx: ctx, fn: fn}
}

func (p *progressReporter) set(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emitLocked(percent)
}

// complete emits 100 and closes the reporter
func (p *progressReporter) complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emitLocked(progressComplete)
	p.closed = true
}

func (p *progressReporter) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *progressReporter) emitLocked(percent int) {
	if p.fn == nil || p.closed || p.ctx.Err() != nil {
		return
	}
	percent = max(0, min(percent, progressComplete))
	if p.started && percent <= p.current {
		return
	}
	p.started = true
	p.current = percent
	p.fn(percent)
}

func (p *progressReporter) advance(step, ceiling int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current >= ceiling {
		return
	}
	p.emitLocked(min(p.current+step, ceiling))
}

// simulate raises progress by step() every interval, up to ceiling, until the
// returned stop func is called or ctx is done. stop blocks until the ticker
// goroutine has exited.
func (p *progressReporter) simulate(ctx context.Context, interval time.Duration, ceiling int, step func() int) (stop func()) {
	if p.fn == nil || interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.advance(step(), ceiling)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-exited
		})
	}
}
