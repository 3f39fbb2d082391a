// Package fullsync implements the full sync engine of spec.md §4.4:
// a one-shot bulk copy from a source's streaming table cursors to a
// sink's batched multi-upsert, optionally bracketed by a pair of
// checkpoints (t1/t2) so a CDC adapter can later replay from where the
// full sync left off.
package fullsync

import (
	"context"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// RowCursor streams already-decoded rows for one table. Next returns
// ok=false once the table is exhausted.
type RowCursor interface {
	Next(ctx context.Context) (row types.UniversalRow, ok bool, err error)
	Close() error
}

// Source lists tables in source-defined order and opens a streaming
// cursor per table (spec.md §4.4 step 3).
type Source interface {
	Tables(ctx context.Context) ([]string, error)
	OpenCursor(ctx context.Context, table string) (RowCursor, error)
}

// Sink performs an atomic multi-upsert of a full batch (spec.md §4.4
// step 3, "flush each full batch ... as an atomic multi-upsert").
type Sink interface {
	WriteBatch(ctx context.Context, table string, rows []types.UniversalRow) error
}

// Bootstrapper performs the CDC bootstrap of spec.md §4.4 step 2 (slot
// creation, trigger/audit-table setup, or a probe change stream) and
// reports the source's current cursor immediately afterward.
type Bootstrapper interface {
	Bootstrap(ctx context.Context) error
	CurrentCursor(ctx context.Context) (types.Cursor, error)
}

// CheckpointEmitter emits a cursor snapshot tagged with a sync phase
// (C6, spec.md §4.6).
type CheckpointEmitter interface {
	Emit(cursor types.Cursor, phase types.Phase) error
}

// Options configures batch size and dry-run accounting (spec.md §4.4
// step 1, "prepare sink connection using opts").
type Options struct {
	BatchSize int
	DryRun    bool
}

// SyncConfig bundles the optional CDC-bootstrap/checkpoint machinery.
// A nil SyncConfig skips step 2 and step 4 entirely (spec.md §4.4:
// "If sync_config is present...").
type SyncConfig struct {
	Bootstrap   Bootstrapper
	Checkpoints CheckpointEmitter
}

// Result reports per-table and total row counts, including rows that
// would have been written under dry-run accounting.
type Result struct {
	PerTable map[string]uint64
	Total    uint64
}

// RunFullSync implements spec.md §4.4 steps 1-5. Any error aborts the
// run immediately: a batch write failure is fatal with no
// partial-commit recovery within the batch, and a bootstrap that
// created slots/triggers is not rolled back - operators clean up stale
// replication state manually.
func RunFullSync(ctx context.Context, source Source, sink Sink, opts Options, syncConfig *SyncConfig) (Result, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}

	if syncConfig != nil {
		if err := syncConfig.Bootstrap.Bootstrap(ctx); err != nil {
			return Result{}, types.NewError(types.KindConnect, errors.Annotate(err, "fullsync: CDC bootstrap"))
		}
		t1, err := syncConfig.Bootstrap.CurrentCursor(ctx)
		if err != nil {
			return Result{}, errors.Annotate(err, "fullsync: snapshot t1 cursor")
		}
		if err := syncConfig.Checkpoints.Emit(t1, types.PhaseFullSyncStart); err != nil {
			return Result{}, errors.Annotate(err, "fullsync: emit t1 checkpoint")
		}
		log.Info("emitted full sync start checkpoint")
	}

	tables, err := source.Tables(ctx)
	if err != nil {
		return Result{}, types.NewError(types.KindConnect, errors.Annotate(err, "fullsync: list tables"))
	}

	result := Result{PerTable: make(map[string]uint64, len(tables))}
	for _, table := range tables {
		n, err := syncTable(ctx, source, sink, table, opts)
		if err != nil {
			return Result{}, errors.Annotatef(err, "fullsync: table %q", table)
		}
		result.PerTable[table] = n
		result.Total += n
		log.Info("migrated table", zap.String("table", table), zap.Uint64("rows", n))
	}

	if syncConfig != nil {
		t2, err := syncConfig.Bootstrap.CurrentCursor(ctx)
		if err != nil {
			return Result{}, errors.Annotate(err, "fullsync: snapshot t2 cursor")
		}
		if err := syncConfig.Checkpoints.Emit(t2, types.PhaseFullSyncEnd); err != nil {
			return Result{}, errors.Annotate(err, "fullsync: emit t2 checkpoint")
		}
		log.Info("emitted full sync end checkpoint")
	}

	return result, nil
}

// syncTable runs one table's cursor-to-sink pipeline as a pair of
// goroutines - a producer filling batches off the cursor and a
// consumer draining them into the sink - handed off through a
// depth-1 channel, the same single-slot backpressure shape as
// cdc/processor.go's txnChannel. errgroup propagates whichever side
// fails first and cancels the other.
func syncTable(ctx context.Context, source Source, sink Sink, table string, opts Options) (uint64, error) {
	cursor, err := source.OpenCursor(ctx, table)
	if err != nil {
		return 0, types.NewError(types.KindConnect, errors.Annotatef(err, "open cursor for %q", table))
	}
	defer cursor.Close()

	batches := make(chan []types.UniversalRow, 1)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		batch := make([]types.UniversalRow, 0, opts.BatchSize)
		for {
			row, ok, err := cursor.Next(gctx)
			if err != nil {
				return types.NewError(types.KindDecode, errors.Annotatef(err, "read row from %q", table))
			}
			if !ok {
				if len(batch) > 0 {
					select {
					case batches <- batch:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
				return nil
			}
			batch = append(batch, row)
			if len(batch) >= opts.BatchSize {
				select {
				case batches <- batch:
				case <-gctx.Done():
					return gctx.Err()
				}
				batch = make([]types.UniversalRow, 0, opts.BatchSize)
			}
		}
	})

	var total uint64
	g.Go(func() error {
		for batch := range batches {
			if opts.DryRun {
				log.Debug("dry-run: would write batch",
					zap.String("table", table), zap.Int("rows", len(batch)))
			} else if err := sink.WriteBatch(gctx, table, batch); err != nil {
				return errors.Annotatef(err, "write batch to %q", table)
			}
			total += uint64(len(batch))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return total, nil
}
