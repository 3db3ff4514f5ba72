package rand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSameSeedSameSequence(t *testing.T) {
	a := New(42)
	b := New(42)

	for i := 0; i < 100; i++ {
		require.Equal(t, a.Uint32(), b.Uint32(), "draw %d", i)
	}
}

func TestReseedRestartsSequence(t *testing.T) {
	r := New(7)
	first := []int{r.Intn(100), r.Intn(100), r.Intn(100)}

	r.Seed(7)
	second := []int{r.Intn(100), r.Intn(100), r.Intn(100)}

	assert.Equal(t, first, second)
	assert.Equal(t, int64(7), r.SeedValue())
}

func TestRanges(t *testing.T) {
	r := New(1)
	for i := 0; i < 1000; i++ {
		f := r.Float64()
		require.GreaterOrEqual(t, f, 0.0)
		require.Less(t, f, 1.0)

		n := r.Intn(3)
		require.GreaterOrEqual(t, n, 0)
		require.Less(t, n, 3)
	}
}

func TestChanceBounds(t *testing.T) {
	r := New(3)
	for i := 0; i < 100; i++ {
		assert.False(t, r.Chance(0))
		assert.True(t, r.Chance(1))
	}
}

func TestIntnPanicsOnZero(t *testing.T) {
	r := New(3)
	assert.Panics(t, func() { r.Intn(0) })
}
