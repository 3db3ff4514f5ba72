package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldingQueueReleasesInTimeOrder(t *testing.T) {
	q, err := NewHoldingQueue(4)
	require.NoError(t, err)

	require.NoError(t, q.Push(1, 3))
	require.NoError(t, q.Push(2, 1))
	require.NoError(t, q.Push(3, 3))
	require.NoError(t, q.Push(4, 0))

	assert.Equal(t, []ID{4}, q.Due(0))
	assert.Nil(t, q.Due(0.5))
	assert.Equal(t, []ID{2}, q.Due(2))
	assert.Equal(t, []ID{1, 3}, q.Due(3))
	assert.Equal(t, 0, q.Len())
}

func TestHoldingQueueFull(t *testing.T) {
	q, _ := NewHoldingQueue(1)
	require.NoError(t, q.Push(1, 5))
	assert.True(t, q.Full())

	err := q.Push(2, 1)
	assert.ErrorIs(t, err, ErrQueueFull)

	assert.True(t, q.Remove(1))
	assert.False(t, q.Remove(1))
	assert.False(t, q.Full())
	require.NoError(t, q.Push(2, 1))
}

func TestNewHoldingQueueInvalid(t *testing.T) {
	_, err := NewHoldingQueue(0)
	assert.ErrorIs(t, err, ErrResourceExhausted)
}
