package types

import "time"

// ChangeOp identifies which arm of a Change is populated.
type ChangeOp string

const (
	OpCreate ChangeOp = "create"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
	OpBegin  ChangeOp = "begin"
	OpCommit ChangeOp = "commit"
)

// Change is one CDC event: Create/Update/Delete carry row data, Begin/
// Commit carry transaction framing where the source exposes it
// (spec.md §3.3).
type Change struct {
	Op    ChangeOp
	Table string

	// Create/Update/Delete
	ID     UniversalValue
	Fields map[string]UniversalValue // Create/Update only

	// Begin/Commit
	Xid     string
	NextLSN string // Commit only, WAL sources
	Ts      *time.Time
}

// NewCreate constructs a Create change.
func NewCreate(table string, id UniversalValue, fields map[string]UniversalValue) Change {
	return Change{Op: OpCreate, Table: table, ID: id, Fields: fields}
}

// NewUpdate constructs an Update change.
func NewUpdate(table string, id UniversalValue, fields map[string]UniversalValue) Change {
	return Change{Op: OpUpdate, Table: table, ID: id, Fields: fields}
}

// NewDelete constructs a Delete change.
func NewDelete(table string, id UniversalValue) Change {
	return Change{Op: OpDelete, Table: table, ID: id}
}

// NewBegin constructs a Begin transaction marker.
func NewBegin(xid string, ts *time.Time) Change {
	return Change{Op: OpBegin, Xid: xid, Ts: ts}
}

// NewCommit constructs a Commit transaction marker.
func NewCommit(xid, nextLSN string, ts *time.Time) Change {
	return Change{Op: OpCommit, Xid: xid, NextLSN: nextLSN, Ts: ts}
}

// IsRowChange reports whether c carries row data (Create/Update/Delete)
// as opposed to transaction framing (Begin/Commit).
func (c Change) IsRowChange() bool {
	switch c.Op {
	case OpCreate, OpUpdate, OpDelete:
		return true
	default:
		return false
	}
}
