package wire

import (
	"hash/crc32"

	"github.com/pingcap/errors"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// MagicIndex heads every framed message (cdc/sink/message.go).
const MagicIndex uint32 = 0xBAAAD700

// Version is the only wire version this package produces or accepts.
const Version byte = 1

// MsgType identifies which arm of Message is populated.
type MsgType byte

const (
	_ MsgType = iota
	// ResolvedMsg carries a source-wide resolved timestamp, with no row
	// payload - the message-queue analogue of a WAL commit LSN.
	ResolvedMsg
	// RowChangeMsg carries one decoded row change.
	RowChangeMsg
)

// RowOp mirrors types.ChangeOp for the subset representable on the
// wire (message-queue sources emit row events, not WAL begin/commit
// framing).
type RowOp byte

const (
	_ RowOp = iota
	RowCreate
	RowUpdate
	RowDelete
)

func rowOpFromChangeOp(op types.ChangeOp) (RowOp, error) {
	switch op {
	case types.OpCreate:
		return RowCreate, nil
	case types.OpUpdate:
		return RowUpdate, nil
	case types.OpDelete:
		return RowDelete, nil
	default:
		return 0, errors.Errorf("wire: change op %q has no row-change wire encoding", op)
	}
}

// ChangeOp maps a wire RowOp back to its types.ChangeOp.
func (op RowOp) ChangeOp() (types.ChangeOp, error) {
	switch op {
	case RowCreate:
		return types.OpCreate, nil
	case RowUpdate:
		return types.OpUpdate, nil
	case RowDelete:
		return types.OpDelete, nil
	default:
		return "", errors.Errorf("wire: unknown row op %d", op)
	}
}

// Message is one decoded frame: either a resolved-timestamp marker or
// a row change whose field values are still protobuf-encoded (the
// caller decodes Payload with the schema for Table).
type Message struct {
	SourceID string
	MsgType  MsgType

	// ResolvedMsg
	ResolvedTs int64

	// RowChangeMsg
	Op      RowOp
	Table   string
	ID      string
	Payload []byte
}

var crc32Table = crc32.MakeTable(crc32.Castagnoli)

// EncodeResolved frames a resolved-timestamp message.
func EncodeResolved(sourceID string, ts int64) []byte {
	var head Encbuf
	head.PutBE32(MagicIndex)
	head.PutByte(Version)
	head.PutByte(byte(ResolvedMsg))
	head.PutUvarintStr(sourceID)
	head.PutBE64int64(ts)
	return head.Get()
}

// EncodeRowChange frames a row change: table, row ID, and opaque
// protobuf payload, trailed by a CRC32 checksum of the payload section
// (message.go's writeDML/PutHash idiom).
func EncodeRowChange(sourceID string, op RowOp, table, id string, payload []byte) ([]byte, error) {
	if op == 0 {
		return nil, errors.New("wire: row op must be set")
	}
	var head Encbuf
	head.PutBE32(MagicIndex)
	head.PutByte(Version)
	head.PutByte(byte(RowChangeMsg))
	head.PutUvarintStr(sourceID)
	head.PutByte(byte(op))
	head.PutUvarintStr(table)
	head.PutUvarintStr(id)

	var body Encbuf
	body.PutBE32int(len(payload))
	body.B = append(body.B, payload...)
	body.PutHash(crc32.New(crc32Table))

	return append(head.Get(), body.Get()...), nil
}

// Decode parses one framed message.
func Decode(data []byte) (*Message, error) {
	d := &Decbuf{B: data}
	if d.Be32() != MagicIndex {
		return nil, errors.New("wire: invalid message: bad magic")
	}
	version := d.Byte()
	if version != Version {
		return nil, errors.Errorf("wire: unsupported message version %d", version)
	}
	msgType := MsgType(d.Byte())
	sourceID := d.UvarintStr()
	if d.Err != nil {
		return nil, errors.Annotate(d.Err, "wire: decode header")
	}

	switch msgType {
	case ResolvedMsg:
		ts := d.Be64int64()
		if d.Err != nil {
			return nil, errors.Annotate(d.Err, "wire: decode resolved message")
		}
		return &Message{SourceID: sourceID, MsgType: ResolvedMsg, ResolvedTs: ts}, nil
	case RowChangeMsg:
		return decodeRowChange(d, sourceID)
	default:
		return nil, errors.Errorf("wire: unsupported message type %d", msgType)
	}
}

func decodeRowChange(d *Decbuf, sourceID string) (*Message, error) {
	op := RowOp(d.Byte())
	table := d.UvarintStr()
	id := d.UvarintStr()
	payloadLen := d.Be32int()
	if d.Err != nil {
		return nil, errors.Annotate(d.Err, "wire: decode row-change header")
	}

	payload := d.Bytes(payloadLen)
	gotHash := d.Bytes(crc32.Size)
	if d.Err != nil {
		return nil, errors.Annotate(d.Err, "wire: decode row-change body")
	}

	h := crc32.New(crc32Table)
	_, _ = h.Write(payload32Prefix(payloadLen, payload))
	wantHash := h.Sum(nil)
	if string(gotHash) != string(wantHash) {
		return nil, types.NewError(types.KindDecode, errors.New("wire: row-change payload checksum mismatch"))
	}

	return &Message{
		SourceID: sourceID,
		MsgType:  RowChangeMsg,
		Op:       op,
		Table:    table,
		ID:       id,
		Payload:  append([]byte(nil), payload...),
	}, nil
}

// payload32Prefix reconstructs the exact bytes PutHash was run over:
// the BE32 length prefix followed by the payload itself.
func payload32Prefix(n int, payload []byte) []byte {
	var e Encbuf
	e.PutBE32int(n)
	e.B = append(e.B, payload...)
	return e.Get()
}
