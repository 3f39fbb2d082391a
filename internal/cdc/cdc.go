// Package cdc defines the common CDC adapter interface of spec.md
// §4.5: Init configures the source for replication, Changes streams
// decoded Change events paired with the cursor after each, GetCursor
// reads the adapter's current resume position, and Cleanup releases
// any replication-side resources (slots, triggers, change streams).
package cdc

import (
	"context"
	"sync"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// Positioned pairs a decoded Change with the cursor that would resume
// immediately after it.
type Positioned struct {
	Change types.Change
	Cursor types.Cursor
}

// Adapter is the common CDC source interface (spec.md §4.5 intro).
type Adapter interface {
	Init(ctx context.Context) error
	Changes(ctx context.Context) (<-chan Positioned, <-chan error)
	GetCursor() types.Cursor
	Cleanup(ctx context.Context) error
}

// CursorBox protects a Cursor behind a mutex, exactly as
// cdc/owner_operator.go's ddlHandler guards resolvedTS/ddlJobs: the
// getter takes the lock, the streaming goroutine takes it to update
// after every event.
type CursorBox struct {
	mu     sync.Mutex
	cursor types.Cursor
}

// NewCursorBox constructs a CursorBox seeded with the adapter's
// starting cursor.
func NewCursorBox(initial types.Cursor) *CursorBox {
	return &CursorBox{cursor: initial}
}

// Get returns the current cursor.
func (b *CursorBox) Get() types.Cursor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

// Set replaces the current cursor.
func (b *CursorBox) Set(c types.Cursor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursor = c
}
