package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		s, err := New()
		require.NoError(t, err)
		assert.Regexp(t, `^jtc[a-z0-9]{6}$`, s)
		assert.True(t, Valid(s))
	}
}

func TestNew_NoCollisionsInLargeSample(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		s, err := New()
		require.NoError(t, err)
		_, dup := seen[s]
		require.False(t, dup, "duplicate slug %s after %d draws", s, i)
		seen[s] = struct{}{}
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("jtcabc123"))
	assert.False(t, Valid("jtcABC123"))
	assert.False(t, Valid("jtcabc12"))
	assert.False(t, Valid("jtcabc1234"))
	assert.False(t, Valid("xyzabc123"))
	assert.False(t, Valid("jtc../etc"))
	assert.False(t, Valid(""))
}
