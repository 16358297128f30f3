package binary

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gemforce-team/abcedit/errors"
)

// Reader reads ABC primitives from a fixed buffer. Reads never go past the end
// of the buffer; they fail with an out_of_data error instead.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a new Reader over data, positioned at the start.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the current byte position.
func (r *Reader) Position() int {
	return r.pos
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.data) - r.pos
}

// Seek moves the cursor to pos.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return errors.OutOfData(errors.PhaseDecode, pos, 0, len(r.data)-pos)
	}
	r.pos = pos
	return nil
}

func (r *Reader) need(n int) error {
	if n < 0 || r.Len() < n {
		return errors.OutOfData(errors.PhaseDecode, r.pos, n, r.Len())
	}
	return nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadU16 reads a little-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadS24 reads a little-endian signed 24-bit value (branch offsets).
func (r *Reader) ReadS24() (int32, error) {
	if err := r.need(3); err != nil {
		return 0, err
	}
	b := r.data[r.pos:]
	v := int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
	r.pos += 3
	return v, nil
}

// ReadU32 reads a variable-length unsigned value of at most 5 bytes.
// Bits above 32 in the fifth byte are discarded.
func (r *Reader) ReadU32() (uint32, error) {
	var result uint32
	for i := 0; i < 5; i++ {
		b, err := r.ReadU8()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			break
		}
	}
	return result, nil
}

// ReadU30 reads a variable-length unsigned value whose top two bits must be zero.
func (r *Reader) ReadU30() (uint32, error) {
	start := r.pos
	v, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	if v&0xC0000000 != 0 {
		return 0, errors.New(errors.PhaseDecode, errors.KindOverflow).
			At(start).
			Value(v).
			Detail("u30 value 0x%08x out of range", v).
			Build()
	}
	return v, nil
}

// ReadS32 reads a variable-length value and sign-extends bit 31.
func (r *Reader) ReadS32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadD64 reads a little-endian IEEE-754 double.
func (r *Reader) ReadD64() (float64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	bits := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return math.Float64frombits(bits), nil
}

// ReadBytes reads exactly n bytes. The returned slice is a copy.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	copy(buf, r.data[r.pos:r.pos+n])
	r.pos += n
	return buf, nil
}

// ReadString reads a u30 length-prefixed byte string.
// Content is not validated as UTF-8; adversarial input must round-trip.
func (r *Reader) ReadString() (string, error) {
	length, err := r.ReadU30()
	if err != nil {
		return "", err
	}
	data, err := r.ReadBytes(int(length))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadBlob reads a u30 length-prefixed opaque byte blob.
func (r *Reader) ReadBlob() ([]byte, error) {
	length, err := r.ReadU30()
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(int(length))
}

// ParseError represents an error during table decoding with position information.
type ParseError struct {
	Err      error
	Table    string
	Position int
}

func (e *ParseError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("abc: %s at position %d: %v", e.Table, e.Position, e.Err)
	}
	return fmt.Sprintf("abc: at position %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// WrapError creates a ParseError at the given start position of the failing record.
func (r *Reader) WrapError(table string, start int, err error) error {
	return &ParseError{
		Position: start,
		Table:    table,
		Err:      err,
	}
}
