// Package wire provides the little-endian byte buffer reader/writer used by
// the session manager's wire-exact packet headers (spec §6.4). It is the
// narrow serialization collaborator spec.md places out of scope for the
// session manager proper; this package supplies a concrete implementation so
// the rest of the module has something to call.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Writer accumulates bytes for an outbound datagram. The zero value is
// ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with capacity hinted by size.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

func (w *Writer) PutByte(b byte) { w.buf = append(w.buf, b) }

func (w *Writer) PutInt32LE(v int32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) PutInt64LE(v int64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) PutBytes(b []byte) { w.buf = append(w.buf, b...) }

// Bytes returns the accumulated buffer. The returned slice aliases the
// writer's internal storage; callers that need to retain it beyond the next
// Put* call must copy it.
func (w *Writer) Bytes() []byte { return w.buf }

// Len reports the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Reset clears the writer for reuse, retaining its backing array.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

// Reader is a cursor over an inbound datagram's byte slice. It is bound to a
// shared receive buffer (spec §4.4, §9 "duck-typed reader sharing"): it is
// only valid for the duration of the synchronous event dispatch that
// produced it.
type Reader struct {
	data []byte
	pos  int
}

// ErrShortBuffer is returned by any Get* call that would read past the end
// of the bound slice.
var ErrShortBuffer = fmt.Errorf("wire: short buffer")

// Bind attaches the reader to data starting at offset pos. Rebinding (rather
// than allocating a new Reader) is what lets the Event Pool (§4.1) recycle
// readers without allocation.
func (r *Reader) Bind(data []byte, pos int) {
	r.data = data
	r.pos = pos
}

// Clear detaches the reader from its buffer so a pooled Event cannot leak a
// reference to socket memory after recycling (spec invariant: "reader
// cleared" on recycle).
func (r *Reader) Clear() {
	r.data = nil
	r.pos = 0
}

func (r *Reader) Remaining() int {
	if r.data == nil {
		return 0
	}
	n := len(r.data) - r.pos
	if n < 0 {
		return 0
	}
	return n
}

func (r *Reader) GetByte() (byte, error) {
	if r.Remaining() < 1 {
		return 0, ErrShortBuffer
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *Reader) GetInt32LE() (int32, error) {
	if r.Remaining() < 4 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return int32(v), nil
}

func (r *Reader) GetInt64LE() (int64, error) {
	if r.Remaining() < 8 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return int64(v), nil
}

// RemainingBytes returns the unread tail of the bound slice. The slice
// aliases shared storage; see the Reader doc comment on lifetime.
func (r *Reader) RemainingBytes() []byte {
	if r.data == nil || r.pos >= len(r.data) {
		return nil
	}
	return r.data[r.pos:]
}
