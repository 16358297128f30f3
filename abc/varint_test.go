package abc_test

import (
	"bytes"
	"testing"

	"github.com/gemforce-team/abcedit/abc"
	"github.com/gemforce-team/abcedit/errors"
)

func TestU30(t *testing.T) {
	tests := []struct {
		encoded []byte
		value   uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xff, 0x7f}, 16383},
		{[]byte{0x80, 0x80, 0x01}, 16384},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x03}, abc.MaxU30},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			got, err := abc.AppendU30(nil, tt.value)
			if err != nil {
				t.Fatalf("AppendU30(%d): %v", tt.value, err)
			}
			if !bytes.Equal(got, tt.encoded) {
				t.Errorf("encode %d: got %x, want %x", tt.value, got, tt.encoded)
			}

			v, n, err := abc.ReadU30(tt.encoded)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if v != tt.value || n != len(tt.encoded) {
				t.Errorf("decode: got %d (%d bytes), want %d", v, n, tt.value)
			}
		})
	}
}

func TestU30Rejects(t *testing.T) {
	if _, err := abc.AppendU30(nil, abc.MaxU30+1); !errors.IsKind(err, errors.KindEncodeConstraint) {
		t.Errorf("AppendU30(2^30): expected encode_constraint, got %v", err)
	}
	if _, _, err := abc.ReadU30([]byte{0xff, 0xff, 0xff, 0xff, 0x0f}); err == nil {
		t.Error("ReadU30 accepted a 32-bit value")
	}
	if _, _, err := abc.ReadU30([]byte{0x80}); !errors.IsKind(err, errors.KindOutOfData) {
		t.Errorf("expected out_of_data, got %v", err)
	}
}

func TestS32(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 63, -64, 1 << 30, -(1 << 31)} {
		enc := abc.AppendS32(nil, v)
		got, n, err := abc.ReadS32(enc)
		if err != nil {
			t.Fatalf("ReadS32: %v", err)
		}
		if got != v || n != len(enc) {
			t.Errorf("round trip %d -> %d", v, got)
		}
	}

	v, _, _ := abc.ReadU32(abc.AppendU32(nil, 0xFFFFFFFF))
	if v != 0xFFFFFFFF {
		t.Errorf("ReadU32 = 0x%x", v)
	}
}

func TestS24(t *testing.T) {
	enc, err := abc.AppendS24([]byte{0xaa}, -2)
	if err != nil {
		t.Fatalf("AppendS24: %v", err)
	}
	if !bytes.Equal(enc, []byte{0xaa, 0xfe, 0xff, 0xff}) {
		t.Errorf("AppendS24 = %x", enc)
	}
	v, n, err := abc.ReadS24(enc[1:])
	if err != nil || v != -2 || n != 3 {
		t.Errorf("ReadS24 = %d, %d, %v", v, n, err)
	}

	if _, err := abc.AppendS24(nil, 1<<23); !errors.IsKind(err, errors.KindEncodeConstraint) {
		t.Errorf("expected encode_constraint, got %v", err)
	}
}
