package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressReporter_MonotonicAndBounded(t *testing.T) {
	rec := newProgressRecorder()
	p := newProgressReporter(context.Background(), rec.record)

	p.set(-5)
	p.set(30)
	p.set(20)
	p.set(30)
	p.advance(50, blobProgressCeiling)
	p.advance(50, blobProgressCeiling)
	p.set(150)

	assert.Equal(t, []int{0, 30, 80, 90, 100}, rec.snapshot())
}

func TestProgressReporter_NothingAfterClose(t *testing.T) {
	rec := newProgressRecorder()
	p := newProgressReporter(context.Background(), rec.record)

	p.set(10)
	p.complete()
	p.set(50)
	p.close()
	p.complete()

	assert.Equal(t, []int{10, 100}, rec.snapshot())
}

func TestProgressReporter_NilCallback(t *testing.T) {
	p := newProgressReporter(context.Background(), nil)
	stop := p.simulate(context.Background(), 1, blobProgressCeiling, func() int { return 1 })
	p.set(50)
	stop()
	stop()
	p.complete()
}
