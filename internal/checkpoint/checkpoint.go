// Package checkpoint implements the checkpoint store of spec.md §4.6:
// emit(cursor, phase) persists a structured record; load(phase?) reads
// the most recent one back.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/biogo/store/llrb"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// Record is one emitted checkpoint (spec.md §4.6: "{cursor, phase,
// ts}").
type Record struct {
	Cursor types.Cursor
	Phase  types.Phase
	Ts     time.Time
}

// entry is the llrb.Comparable wrapper ordering Records by emission
// time, so Load's "most recent for phase" lookup doesn't need a
// directory re-scan on every call.
type entry struct {
	ts     int64
	record Record
}

func (e *entry) Compare(c llrb.Comparable) int {
	o := c.(*entry)
	switch {
	case e.ts < o.ts:
		return -1
	case e.ts > o.ts:
		return 1
	default:
		return 0
	}
}

type fileRecord struct {
	Phase  types.Phase     `json:"phase"`
	Ts     string          `json:"ts"`
	Cursor json.RawMessage `json:"cursor"`
}

// Store is a directory of JSON checkpoint documents named
// `<unix-nano>-<phase>.json` (spec.md §4.6 "monotonic filename"),
// mirrored by an in-memory llrb.Tree for fast most-recent-per-phase
// lookups.
type Store struct {
	dir string

	mu   sync.Mutex
	tree llrb.Tree
}

// NewStore opens (creating if absent) a checkpoint directory and
// loads any existing records into the in-memory index.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Annotate(err, "checkpoint: create directory")
	}
	s := &Store{dir: dir}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) reload() error {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return errors.Annotate(err, "checkpoint: read directory")
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		ts, ok := parseTimestamp(f.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, f.Name()))
		if err != nil {
			return errors.Annotatef(err, "checkpoint: read %q", f.Name())
		}
		rec, err := decodeFile(data)
		if err != nil {
			log.Warn("checkpoint: skipping unreadable file", zap.String("file", f.Name()), zap.Error(err))
			continue
		}
		s.tree.Insert(&entry{ts: ts, record: rec})
	}
	return nil
}

func parseTimestamp(name string) (int64, bool) {
	base := strings.TrimSuffix(name, ".json")
	idx := strings.Index(base, "-")
	if idx < 0 {
		return 0, false
	}
	ts, err := strconv.ParseInt(base[:idx], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

func decodeFile(data []byte) (Record, error) {
	var fr fileRecord
	if err := json.Unmarshal(data, &fr); err != nil {
		return Record{}, errors.Annotate(err, "checkpoint: unmarshal record")
	}
	cursor, err := types.UnmarshalCursor(fr.Cursor)
	if err != nil {
		return Record{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, fr.Ts)
	if err != nil {
		return Record{}, errors.Annotate(err, "checkpoint: parse ts")
	}
	return Record{Cursor: cursor, Phase: fr.Phase, Ts: ts}, nil
}

// Emit writes a new checkpoint file and indexes it in memory. Ordering
// of concurrent emits is not guaranteed (spec.md §4.6) - only Emit's
// own monotonic filename, not any cross-process lock, orders records
// on disk.
func (s *Store) Emit(cursor types.Cursor, phase types.Phase) error {
	now := time.Now().UTC()
	ts := now.UnixNano()

	cursorBytes, err := types.MarshalCursor(cursor)
	if err != nil {
		return errors.Annotate(err, "checkpoint: marshal cursor")
	}
	data, err := json.Marshal(fileRecord{
		Phase:  phase,
		Ts:     now.Format(time.RFC3339Nano),
		Cursor: cursorBytes,
	})
	if err != nil {
		return errors.Annotate(err, "checkpoint: marshal record")
	}

	name := fmt.Sprintf("%d-%s.json", ts, phase)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return errors.Annotatef(err, "checkpoint: write %q", name)
	}

	s.mu.Lock()
	s.tree.Insert(&entry{ts: ts, record: Record{Cursor: cursor, Phase: phase, Ts: now}})
	s.mu.Unlock()
	return nil
}

// Load returns the most recently emitted cursor for phase, or false
// if none has been emitted yet.
func (s *Store) Load(phase types.Phase) (types.Cursor, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *entry
	s.tree.Do(func(c llrb.Comparable) (done bool) {
		e := c.(*entry)
		if e.record.Phase == phase && (best == nil || e.ts > best.ts) {
			best = e
		}
		return false
	})
	if best == nil {
		return types.Cursor{}, false, nil
	}
	return best.record.Cursor, true, nil
}
