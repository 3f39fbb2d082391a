package wal

import (
	"context"

	"github.com/edwingeng/deque"
)

// record pairs a decoded Positioned change with whatever the buffer
// needs to order it - push/pop order already preserves transaction
// order, so record is just a type alias at the storage layer.
type record struct {
	payload interface{}
}

// ringBuffer is a blocking, context-cancelable FIFO adapting
// cdc/puller/buffer_test.go's AddEntry/Get contract (there re-targeted
// at model.RegionFeedEvent) to this package's wal2json change records,
// backed by github.com/edwingeng/deque instead of the teacher's
// missing cdc/puller/buffer.go.
type ringBuffer struct {
	dq     deque.Deque
	notify chan struct{}
}

func newRingBuffer() *ringBuffer {
	return &ringBuffer{
		dq:     deque.NewDeque(),
		notify: make(chan struct{}, 1),
	}
}

// Push appends v, waking one blocked Pop if present.
func (b *ringBuffer) Push(v interface{}) {
	b.dq.PushBack(record{payload: v})
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Pop blocks until an entry is available or ctx is done.
func (b *ringBuffer) Pop(ctx context.Context) (interface{}, error) {
	for {
		if v, ok := b.dq.PopFront().(record); ok {
			return v.payload, nil
		}
		select {
		case <-b.notify:
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// DrainUpTo pops up to n already-buffered entries without blocking.
func (b *ringBuffer) DrainUpTo(n int) []interface{} {
	out := make([]interface{}, 0, n)
	for len(out) < n {
		v := b.dq.PopFront()
		if v == nil {
			break
		}
		r, ok := v.(record)
		if !ok {
			break
		}
		out = append(out, r.payload)
	}
	return out
}

// Len reports the number of buffered, not-yet-popped entries.
func (b *ringBuffer) Len() int {
	return b.dq.Len()
}
