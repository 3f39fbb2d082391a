// Package replay wires a CDC adapter's incremental run into the
// full-sync engine's bracketing checkpoints (SPEC_FULL.md §11,
// testable scenario 6): replay picks up from the t1 cursor RunFullSync
// recorded before the bulk copy began (or t2, recorded right after)
// and runs until the caller's deadline or the t2 target cursor,
// whichever comes first.
package replay

import (
	"context"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/surrealdb/surreal-sync-go/internal/cdc"
	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// Sink applies one decoded change to the destination. Unlike
// fullsync.Sink's batched WriteBatch, incremental replay writes one
// row at a time as events arrive off the change feed (spec.md §4.5
// intro: CDC adapters stream "one committed transaction/event at a
// time").
type Sink interface {
	ApplyChange(ctx context.Context, change types.Change) error
}

// CheckpointEmitter persists a cursor snapshot tagged with a sync
// phase (C6).
type CheckpointEmitter interface {
	Emit(cursor types.Cursor, phase types.Phase) error
}

// Options configures replay's checkpoint cadence.
type Options struct {
	// CheckpointEvery emits an incremental-progress checkpoint after
	// this many applied row changes. 0 disables periodic checkpoints -
	// only the final cursor is emitted, on normal return.
	CheckpointEvery int
}

// Result reports how many row changes were applied and why replay
// stopped.
type Result struct {
	Applied    uint64
	FinalCursor types.Cursor
	// Reason is "target_reached", "deadline", or "context_canceled".
	Reason string
}

// RunReplay drains adapter.Changes until whichever of these comes
// first: the emitted cursor reaches or passes to (spec.md §4.5.1
// "nextlsn >= target_lsn", generalized here via Cursor.Compare to
// every cursor kind, since only the WAL adapter enforces its own
// target internally), deadline is reached, or ctx is canceled. A zero
// Cursor (Kind == "") for to means "no target, run until deadline".
func RunReplay(ctx context.Context, adapter cdc.Adapter, sink Sink, checkpoints CheckpointEmitter, to types.Cursor, deadline time.Time, opts Options) (Result, error) {
	if err := adapter.Init(ctx); err != nil {
		return Result{}, types.NewError(types.KindConnect, errors.Annotate(err, "replay: init adapter"))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !deadline.IsZero() {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}

	out, errc := adapter.Changes(runCtx)

	result := Result{}
	reason := "context_canceled"

	for positioned := range out {
		change := positioned.Change
		if change.IsRowChange() {
			if err := sink.ApplyChange(ctx, change); err != nil {
				return result, errors.Annotatef(err, "replay: apply change to %q", change.Table)
			}
			result.Applied++
			result.FinalCursor = positioned.Cursor

			if checkpoints != nil && opts.CheckpointEvery > 0 && result.Applied%uint64(opts.CheckpointEvery) == 0 {
				if err := checkpoints.Emit(positioned.Cursor, types.PhaseIncrementalProgress); err != nil {
					return result, errors.Annotate(err, "replay: emit progress checkpoint")
				}
			}
		}

		if to.Kind != "" && positioned.Cursor.Kind == to.Kind && positioned.Cursor.Compare(to) >= 0 {
			reason = "target_reached"
			cancel()
			break
		}
	}

	if err := <-errc; err != nil && reason != "target_reached" {
		if types.IsTargetReached(err) {
			reason = "target_reached"
		} else if runCtx.Err() != nil && errors.Cause(err) == runCtx.Err() {
			reason = deadlineOrCancel(ctx, deadline)
		} else {
			return result, errors.Annotate(err, "replay: adapter")
		}
	}

	if result.FinalCursor.Kind == "" {
		result.FinalCursor = adapter.GetCursor()
	}
	result.Reason = reason

	if checkpoints != nil {
		if err := checkpoints.Emit(result.FinalCursor, types.PhaseIncrementalProgress); err != nil {
			return result, errors.Annotate(err, "replay: emit final checkpoint")
		}
	}

	log.Info("replay stopped",
		zap.Uint64("applied", result.Applied),
		zap.String("reason", result.Reason))

	return result, nil
}

func deadlineOrCancel(ctx context.Context, deadline time.Time) string {
	if !deadline.IsZero() && !time.Now().Before(deadline) {
		return "deadline"
	}
	if ctx.Err() != nil {
		return "context_canceled"
	}
	return "deadline"
}
