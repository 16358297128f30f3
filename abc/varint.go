package abc

import (
	"github.com/gemforce-team/abcedit/abc/internal/binary"
)

// Variable-length integer utilities for the ABC binary format. Each Read
// function returns the value and the number of bytes consumed.

// MaxU30 is the largest value representable as a u30.
const MaxU30 = binary.MaxU30

// ReadU32 decodes a variable-length unsigned value of at most 5 bytes.
func ReadU32(data []byte) (uint32, int, error) {
	r := binary.NewReader(data)
	v, err := r.ReadU32()
	return v, r.Position(), err
}

// ReadU30 decodes a variable-length value whose top two bits must be zero.
func ReadU30(data []byte) (uint32, int, error) {
	r := binary.NewReader(data)
	v, err := r.ReadU30()
	return v, r.Position(), err
}

// ReadS32 decodes a variable-length value and sign-extends bit 31.
func ReadS32(data []byte) (int32, int, error) {
	r := binary.NewReader(data)
	v, err := r.ReadS32()
	return v, r.Position(), err
}

// ReadS24 decodes a 3-byte little-endian signed branch offset.
func ReadS24(data []byte) (int32, int, error) {
	r := binary.NewReader(data)
	v, err := r.ReadS24()
	return v, r.Position(), err
}

// AppendU32 appends the variable-length encoding of v.
func AppendU32(dst []byte, v uint32) []byte {
	w := binary.NewWriter()
	w.WriteU32(v)
	return append(dst, w.Bytes()...)
}

// AppendU30 appends the variable-length encoding of v, failing for v >= 2^30.
func AppendU30(dst []byte, v uint32) ([]byte, error) {
	w := binary.NewWriter()
	w.WriteU30(v)
	if err := w.Err(); err != nil {
		return dst, err
	}
	return append(dst, w.Bytes()...), nil
}

// AppendS32 appends the variable-length encoding of v.
func AppendS32(dst []byte, v int32) []byte {
	return AppendU32(dst, uint32(v))
}

// AppendS24 appends v as a 3-byte little-endian value, failing when v does
// not fit 24 bits.
func AppendS24(dst []byte, v int32) ([]byte, error) {
	w := binary.NewWriter()
	w.WriteS24(v)
	if err := w.Err(); err != nil {
		return dst, err
	}
	return append(dst, w.Bytes()...), nil
}
