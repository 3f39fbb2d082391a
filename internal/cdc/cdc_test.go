package cdc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

func TestCursorBoxConcurrentAccess(t *testing.T) {
	box := NewCursorBox(types.NewAuditCursor(0, "db"))

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			box.Set(types.NewAuditCursor(uint64(n), "db"))
		}(i)
	}
	wg.Wait()

	got := box.Get()
	assert.Equal(t, types.CursorAudit, got.Kind)
	assert.GreaterOrEqual(t, got.SequenceID, uint64(1))
}
