package wal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBufferPushAndPopInOrder(t *testing.T) {
	b := newRingBuffer()
	ctx := context.Background()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		first, err := b.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, "begin:1", first)
		second, err := b.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, "commit:1", second)
	}()

	b.Push("begin:1")
	b.Push("commit:1")
	wg.Wait()
}

func TestRingBufferPopCanBeCanceled(t *testing.T) {
	b := newRingBuffer()
	timeout, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := b.Pop(timeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRingBufferDrainUpToRespectsAvailableEntries(t *testing.T) {
	b := newRingBuffer()
	b.Push("a")
	b.Push("b")

	got := b.DrainUpTo(5)
	assert.Equal(t, []interface{}{"a", "b"}, got)
	assert.Equal(t, 0, b.Len())
}

func TestRingBufferDrainUpToCapsAtN(t *testing.T) {
	b := newRingBuffer()
	b.Push("a")
	b.Push("b")
	b.Push("c")

	got := b.DrainUpTo(2)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, b.Len())
}

func TestRingBufferLenTracksPendingEntries(t *testing.T) {
	b := newRingBuffer()
	assert.Equal(t, 0, b.Len())
	b.Push("a")
	assert.Equal(t, 1, b.Len())
	_, err := b.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, b.Len())
}
