package types

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pingcap/errors"
)

// CursorKind identifies which source-kind variant a Cursor holds
// (spec.md §3.5).
type CursorKind string

const (
	CursorWAL          CursorKind = "wal"
	CursorAudit        CursorKind = "audit"
	CursorChangeStream CursorKind = "change_stream"
)

// Cursor is the tagged sum over source-kind resume positions (spec.md
// §3.5). Cursors are created by CDC adapters, serialized by the
// checkpoint store, and never mutated in place (spec.md §3.6) - a
// newer cursor always replaces an older one, it is never edited.
type Cursor struct {
	Kind CursorKind

	// CursorWAL
	LSN      string
	SlotName string

	// CursorAudit
	SequenceID uint64
	Database   string

	// CursorChangeStream
	ResumeToken []byte
	Timestamp   time.Time
}

// NewWALCursor constructs a relational-WAL cursor (spec.md §3.5a, §6).
func NewWALCursor(lsn, slotName string) Cursor {
	return Cursor{Kind: CursorWAL, LSN: lsn, SlotName: slotName}
}

// NewAuditCursor constructs a relational-audit cursor (spec.md §3.5b, §6).
func NewAuditCursor(sequenceID uint64, database string) Cursor {
	return Cursor{Kind: CursorAudit, SequenceID: sequenceID, Database: database}
}

// NewChangeStreamCursor constructs a document-store cursor (spec.md §3.5c, §6).
func NewChangeStreamCursor(resumeToken []byte, ts time.Time) Cursor {
	return Cursor{Kind: CursorChangeStream, ResumeToken: resumeToken, Timestamp: ts}
}

// Compare orders two cursors of the same Kind. Cross-variant ordering
// is undefined (spec.md §3.5) - Compare panics if called across kinds,
// since that indicates a programming error (comparing cursors from two
// different CDC adapters), not a runtime condition callers should
// handle.
func (c Cursor) Compare(o Cursor) int {
	if c.Kind != o.Kind {
		panic("types: cannot compare cursors of different kinds")
	}
	switch c.Kind {
	case CursorWAL:
		return CompareLSN(c.LSN, o.LSN)
	case CursorAudit:
		switch {
		case c.SequenceID < o.SequenceID:
			return -1
		case c.SequenceID > o.SequenceID:
			return 1
		default:
			return 0
		}
	case CursorChangeStream:
		return c.Timestamp.Compare(o.Timestamp)
	default:
		panic("types: unknown cursor kind")
	}
}

// CompareLSN orders two PostgreSQL LSN strings by splitting on '/' and
// comparing the segment and offset as hex numbers (spec.md §4.5.1).
// It falls back to a plain string compare if either side fails to
// parse - this is permissive by design, since a malformed LSN should
// surface as a downstream decode error, not a panic here.
func CompareLSN(a, b string) int {
	as, ao, aok := splitLSN(a)
	bs, bo, bok := splitLSN(b)
	if !aok || !bok {
		return strings.Compare(a, b)
	}
	if as != bs {
		if as < bs {
			return -1
		}
		return 1
	}
	switch {
	case ao < bo:
		return -1
	case ao > bo:
		return 1
	default:
		return 0
	}
}

func splitLSN(s string) (segment, offset uint64, ok bool) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	seg, err := strconv.ParseUint(parts[0], 16, 64)
	if err != nil {
		return 0, 0, false
	}
	off, err := strconv.ParseUint(parts[1], 16, 64)
	if err != nil {
		return 0, 0, false
	}
	return seg, off, true
}

// Phase tags a checkpoint emission (spec.md §4.6, §6).
type Phase string

const (
	PhaseFullSyncStart       Phase = "full_sync_start"
	PhaseFullSyncEnd         Phase = "full_sync_end"
	PhaseIncrementalProgress Phase = "incremental_progress"
)

// cursorWire is the exact on-the-wire cursor shape of spec.md §6.
type cursorWire struct {
	LSN         string `json:"lsn,omitempty"`
	SlotName    string `json:"slot_name,omitempty"`
	SequenceID  uint64 `json:"sequence_id,omitempty"`
	Database    string `json:"database,omitempty"`
	ResumeToken string `json:"resume_token,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	Kind        string `json:"kind"`
}

// MarshalCursor renders c in the exact wire shapes specified by
// spec.md §6.
func MarshalCursor(c Cursor) ([]byte, error) {
	w := cursorWire{Kind: string(c.Kind)}
	switch c.Kind {
	case CursorWAL:
		w.LSN = c.LSN
		w.SlotName = c.SlotName
	case CursorAudit:
		w.SequenceID = c.SequenceID
		w.Database = c.Database
	case CursorChangeStream:
		w.ResumeToken = base64.StdEncoding.EncodeToString(c.ResumeToken)
		w.Timestamp = c.Timestamp.UTC().Format(time.RFC3339Nano)
	default:
		return nil, errors.Errorf("marshal cursor: unknown kind %q", c.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalCursor parses a cursor previously produced by MarshalCursor.
// CursorCorrupt is returned (never silently treated as "start from
// current position") if the payload cannot be deserialized or declares
// an unrecognized kind.
func UnmarshalCursor(data []byte) (Cursor, error) {
	var w cursorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Cursor{}, NewError(KindCursorCorrupt, errors.Annotate(err, "unmarshal cursor"))
	}
	switch CursorKind(w.Kind) {
	case CursorWAL:
		return NewWALCursor(w.LSN, w.SlotName), nil
	case CursorAudit:
		return NewAuditCursor(w.SequenceID, w.Database), nil
	case CursorChangeStream:
		token, err := base64.StdEncoding.DecodeString(w.ResumeToken)
		if err != nil {
			return Cursor{}, NewError(KindCursorCorrupt, errors.Annotate(err, "decode resume token"))
		}
		ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
		if err != nil {
			return Cursor{}, NewError(KindCursorCorrupt, errors.Annotate(err, "parse cursor timestamp"))
		}
		return NewChangeStreamCursor(token, ts), nil
	default:
		return Cursor{}, NewError(KindCursorCorrupt, errors.Errorf("unrecognized cursor kind %q", w.Kind))
	}
}
