package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_DealsAllNinetyOnce(t *testing.T) {
	p := NewPool()

	seen := map[int]bool{}
	for i := 0; i < MaxNumber; i++ {
		n, err := p.Next()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, MaxNumber)
		assert.False(t, seen[n], "number %d dealt twice", n)
		seen[n] = true
	}
	assert.Len(t, seen, MaxNumber)
	assert.Equal(t, 0, p.Remaining())

	_, err := p.Next()
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestPool_RemainingShrinks(t *testing.T) {
	p := NewPool()
	require.Equal(t, MaxNumber, p.Remaining())

	_, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, MaxNumber-1, p.Remaining())
}
