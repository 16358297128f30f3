package binary

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/gemforce-team/abcedit/errors"
)

// Limits of the constrained encodings.
const (
	MaxU30 = 1<<30 - 1
	MinS24 = -(1 << 23)
	MaxS24 = 1<<23 - 1
)

// Writer provides buffered writing utilities for ABC binary encoding.
// The first constraint violation is kept and reported by Err; later writes
// still append bytes so positions stay consistent.
type Writer struct {
	buf *bytes.Buffer
	err error
}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{buf: &bytes.Buffer{}}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Err returns the first constraint violation, if any.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// WriteU8 writes a single byte.
func (w *Writer) WriteU8(b byte) {
	w.buf.WriteByte(b)
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(data []byte) {
	w.buf.Write(data)
}

// WriteU16 writes a little-endian uint16.
func (w *Writer) WriteU16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	w.buf.Write(buf[:])
}

// WriteU32 writes a variable-length unsigned value.
func (w *Writer) WriteU32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

// WriteU30 writes a variable-length unsigned value that must be below 2^30.
func (w *Writer) WriteU30(v uint32) {
	if v > MaxU30 {
		w.fail(constraint("u30", int64(v)))
	}
	w.WriteU32(v)
}

// WriteS32 writes a signed value through the unsigned encoding.
func (w *Writer) WriteS32(v int32) {
	w.WriteU32(uint32(v))
}

// WriteS24 writes a little-endian signed 24-bit value.
func (w *Writer) WriteS24(v int32) {
	if v < MinS24 || v > MaxS24 {
		w.fail(constraint("s24", int64(v)))
	}
	w.buf.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16)})
}

// PatchS24 overwrites three bytes at pos with a signed 24-bit value.
func (w *Writer) PatchS24(pos int, v int) {
	if v < MinS24 || v > MaxS24 {
		w.fail(constraint("s24", int64(v)))
	}
	b := w.buf.Bytes()
	b[pos] = byte(v)
	b[pos+1] = byte(v >> 8)
	b[pos+2] = byte(v >> 16)
}

// WriteD64 writes a little-endian IEEE-754 double.
func (w *Writer) WriteD64(v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	w.buf.Write(buf[:])
}

// WriteString writes a u30 length-prefixed string.
func (w *Writer) WriteString(s string) {
	w.WriteU30(uint32(len(s)))
	w.buf.WriteString(s)
}

// WriteBlob writes a u30 length-prefixed byte blob.
func (w *Writer) WriteBlob(data []byte) {
	w.WriteU30(uint32(len(data)))
	w.buf.Write(data)
}

func constraint(what string, v int64) error {
	return errors.New(errors.PhaseEncode, errors.KindEncodeConstraint).
		Value(v).
		Detail("value %d does not fit %s", v, what).
		Build()
}
