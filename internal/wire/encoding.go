// Package wire implements the binary message envelope queued change
// records travel in (cdc/sink/message.go's framing: magic/version/type
// header, length-prefixed sections, CRC32 trailer). The encoding
// primitives below reconstruct cdc/sink/encoding's Encbuf/Decbuf from
// their call sites in message.go, since that package was never
// retrieved into this repo's reference pack.
package wire

import (
	"encoding/binary"
	"hash"

	"github.com/pingcap/errors"
)

// Encbuf accumulates bytes for one section of a framed message. B is
// exported so callers can pre-size it (message.go's writers allocate
// 1<<22 up front to avoid reallocating per transaction).
type Encbuf struct {
	B []byte
}

// Reset empties the buffer without releasing its backing array.
func (e *Encbuf) Reset() { e.B = e.B[:0] }

// Len returns the number of bytes currently buffered.
func (e *Encbuf) Len() int { return len(e.B) }

// Get returns the buffered bytes.
func (e *Encbuf) Get() []byte { return e.B }

// PutByte appends a single byte.
func (e *Encbuf) PutByte(b byte) { e.B = append(e.B, b) }

// PutBE32 appends x as 4 big-endian bytes.
func (e *Encbuf) PutBE32(x uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], x)
	e.B = append(e.B, buf[:]...)
}

// PutBE32int appends x as 4 big-endian bytes.
func (e *Encbuf) PutBE32int(x int) { e.PutBE32(uint32(x)) }

// PutBE64 appends x as 8 big-endian bytes.
func (e *Encbuf) PutBE64(x uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], x)
	e.B = append(e.B, buf[:]...)
}

// PutBE64int64 appends x as 8 big-endian bytes.
func (e *Encbuf) PutBE64int64(x int64) { e.PutBE64(uint64(x)) }

// PutUvarintStr appends s prefixed with its length as a uvarint, so
// Decbuf.UvarintStr can read it back without a fixed-width length.
func (e *Encbuf) PutUvarintStr(s string) {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(s)))
	e.B = append(e.B, lenBuf[:n]...)
	e.B = append(e.B, s...)
}

// PutHash resets h, hashes the buffer's current contents with it, and
// appends the resulting checksum to the buffer.
func (e *Encbuf) PutHash(h hash.Hash) {
	h.Reset()
	_, _ = h.Write(e.B)
	e.B = h.Sum(e.B)
}

// Decbuf reads sections out of a framed message in the order Encbuf
// wrote them. It is not safe for concurrent use.
type Decbuf struct {
	B   []byte
	Err error
}

func (d *Decbuf) fail(err error) {
	if d.Err == nil {
		d.Err = err
	}
}

// Byte consumes and returns one byte, or 0 once the buffer underflows
// (the underflow itself is recorded in Err).
func (d *Decbuf) Byte() byte {
	if len(d.B) < 1 {
		d.fail(errors.New("wire: decbuf underflow reading byte"))
		return 0
	}
	b := d.B[0]
	d.B = d.B[1:]
	return b
}

// Be32 consumes and returns 4 big-endian bytes as a uint32.
func (d *Decbuf) Be32() uint32 {
	if len(d.B) < 4 {
		d.fail(errors.New("wire: decbuf underflow reading be32"))
		return 0
	}
	v := binary.BigEndian.Uint32(d.B[:4])
	d.B = d.B[4:]
	return v
}

// Be32int consumes and returns 4 big-endian bytes as an int.
func (d *Decbuf) Be32int() int { return int(d.Be32()) }

// Be64 consumes and returns 8 big-endian bytes as a uint64.
func (d *Decbuf) Be64() uint64 {
	if len(d.B) < 8 {
		d.fail(errors.New("wire: decbuf underflow reading be64"))
		return 0
	}
	v := binary.BigEndian.Uint64(d.B[:8])
	d.B = d.B[8:]
	return v
}

// Be64int64 consumes and returns 8 big-endian bytes as an int64.
func (d *Decbuf) Be64int64() int64 { return int64(d.Be64()) }

// UvarintStr consumes a uvarint length prefix followed by that many
// bytes, returned as a string.
func (d *Decbuf) UvarintStr() string {
	n, read := binary.Uvarint(d.B)
	if read <= 0 {
		d.fail(errors.New("wire: decbuf invalid uvarint length prefix"))
		return ""
	}
	d.B = d.B[read:]
	if uint64(len(d.B)) < n {
		d.fail(errors.New("wire: decbuf underflow reading uvarint string"))
		return ""
	}
	s := string(d.B[:n])
	d.B = d.B[n:]
	return s
}

// Bytes consumes and returns the next n raw bytes.
func (d *Decbuf) Bytes(n int) []byte {
	if len(d.B) < n {
		d.fail(errors.New("wire: decbuf underflow reading raw bytes"))
		return nil
	}
	b := d.B[:n]
	d.B = d.B[n:]
	return b
}

// Remaining returns whatever bytes are left unconsumed.
func (d *Decbuf) Remaining() []byte { return d.B }
