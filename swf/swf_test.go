package swf_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/gemforce-team/abcedit/errors"
	"github.com/gemforce-team/abcedit/swf"
)

// rect encodes {0, 100, 0, 50} with 8-bit fields.
var rect = []byte{0x40, 0x03, 0x20, 0x01, 0x90}

func shortTag(code uint16, data ...byte) []byte {
	b := binary.LittleEndian.AppendUint16(nil, code<<6|uint16(len(data)))
	return append(b, data...)
}

func longTag(code uint16, data ...byte) []byte {
	b := binary.LittleEndian.AppendUint16(nil, code<<6|0x3f)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(data)))
	return append(b, data...)
}

func doABC(flags uint32, name string, abc ...byte) []byte {
	b := binary.LittleEndian.AppendUint32(nil, flags)
	b = append(b, name...)
	b = append(b, 0)
	return append(b, abc...)
}

func movie(t *testing.T, sig byte, tags ...[]byte) []byte {
	t.Helper()
	body := append([]byte(nil), rect...)
	body = append(body, 0x00, 0x18, 0x01, 0x00)
	for _, tag := range tags {
		body = append(body, tag...)
	}
	out := []byte{sig, 'W', 'S', 10}
	out = binary.LittleEndian.AppendUint32(out, uint32(8+len(body)))
	if sig != 'C' {
		return append(out, body...)
	}
	buf := bytes.NewBuffer(out)
	zw := zlib.NewWriter(buf)
	if _, err := zw.Write(body); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func sampleTags() [][]byte {
	return [][]byte{
		shortTag(9, 0xff, 0xff, 0xff),
		longTag(swf.TagDoABC, doABC(1, "frame1", 0x10, 0x00, 0x2e, 0x00)...),
		shortTag(swf.TagDoABC1, 0x10, 0x00, 0x2e, 0x00, 0x00),
		shortTag(1),
		shortTag(swf.TagEnd),
	}
}

func TestParse(t *testing.T) {
	data := movie(t, 'F', sampleTags()...)
	m, err := swf.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Compression != swf.Uncompressed || m.Version != 10 {
		t.Errorf("header = %s v%d", m.Compression, m.Version)
	}
	if want := (swf.Rect{XMin: 0, XMax: 100, YMin: 0, YMax: 50}); m.FrameSize != want {
		t.Errorf("FrameSize = %+v, want %+v", m.FrameSize, want)
	}
	if m.FrameRate != 0x1800 || m.FrameCount != 1 {
		t.Errorf("rate %#x count %d", m.FrameRate, m.FrameCount)
	}
	if len(m.Tags) != 5 || !m.Tags[1].Long || m.Tags[2].Long {
		t.Fatalf("tags = %+v", m.Tags)
	}

	abcs, err := m.ABCs()
	if err != nil {
		t.Fatalf("ABCs: %v", err)
	}
	if len(abcs) != 2 {
		t.Fatalf("%d blobs", len(abcs))
	}
	if a := abcs[0]; a.Tag != 1 || a.Flags != 1 || a.Name != "frame1" || !bytes.Equal(a.Data, []byte{0x10, 0x00, 0x2e, 0x00}) {
		t.Errorf("DoABC = %+v", a)
	}
	if a := abcs[1]; a.Tag != 2 || a.Name != "" || len(a.Data) != 5 {
		t.Errorf("DoABC1 = %+v", a)
	}

	out, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("re-encode changed the movie:\n%x\n%x", data, out)
	}
}

func TestTrailingBytes(t *testing.T) {
	for _, sig := range []byte{'F', 'C'} {
		t.Run(string(sig)+"WS", func(t *testing.T) {
			tags := append(sampleTags(), []byte{0xde, 0xad, 0xbe})
			data := movie(t, sig, tags...)
			m, err := swf.Parse(data)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(m.Tags) != 5 || !bytes.Equal(m.Tail, []byte{0xde, 0xad, 0xbe}) {
				t.Fatalf("tags = %d, tail = %x", len(m.Tags), m.Tail)
			}
			out, err := m.Encode()
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if !bytes.Equal(out, data) {
				t.Errorf("re-encode dropped the tail:\n%x\n%x", data, out)
			}
		})
	}
}

func TestReplaceABC(t *testing.T) {
	for _, sig := range []byte{'F', 'C'} {
		t.Run(string(sig)+"WS", func(t *testing.T) {
			m, err := swf.Parse(movie(t, sig, sampleTags()...))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			long := bytes.Repeat([]byte{0xaa}, 100)
			if err := m.ReplaceABC(1, long); err != nil {
				t.Fatalf("ReplaceABC(1): %v", err)
			}
			if err := m.ReplaceABC(2, []byte{1}); err != nil {
				t.Fatalf("ReplaceABC(2): %v", err)
			}
			out, err := m.Encode()
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}

			again, err := swf.Parse(out)
			if err != nil {
				t.Fatalf("reparse: %v", err)
			}
			if again.Compression != swf.Compression(sig) {
				t.Errorf("compression %s", again.Compression)
			}
			abcs, err := again.ABCs()
			if err != nil {
				t.Fatal(err)
			}
			if abcs[0].Name != "frame1" || abcs[0].Flags != 1 || !bytes.Equal(abcs[0].Data, long) {
				t.Errorf("DoABC = %+v", abcs[0])
			}
			if !bytes.Equal(abcs[1].Data, []byte{1}) {
				t.Errorf("DoABC1 = %x", abcs[1].Data)
			}
		})
	}
}

func TestErrors(t *testing.T) {
	good := movie(t, 'F', sampleTags()...)
	badLength := append([]byte(nil), good...)
	badLength[4]++
	truncated := movie(t, 'F', shortTag(9, 1, 2, 3))
	truncated = truncated[:len(truncated)-1]
	binary.LittleEndian.PutUint32(truncated[4:], uint32(len(truncated)))
	oversized := movie(t, 'C', sampleTags()...)
	binary.LittleEndian.PutUint32(oversized[4:], 20)
	undersized := movie(t, 'C', sampleTags()...)
	binary.LittleEndian.PutUint32(undersized[4:], 4)

	tests := []struct {
		name string
		data []byte
		kind errors.Kind
	}{
		{"short header", []byte("FWS"), errors.KindOutOfData},
		{"bad signature", []byte("FOO\x0a\x08\x00\x00\x00"), errors.KindInvalidData},
		{"lzma", movie(t, 'Z'), errors.KindUnsupported},
		{"unknown compression", movie(t, 'X'), errors.KindInvalidData},
		{"length mismatch", badLength, errors.KindInvalidData},
		{"truncated tag", truncated, errors.KindOutOfData},
		{"bad zlib", []byte("CWS\x0a\x10\x00\x00\x00garbage!"), errors.KindInvalidData},
		{"zlib stream longer than declared", oversized, errors.KindInvalidData},
		{"declared length below header", undersized, errors.KindInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := swf.Parse(tt.data)
			if !errors.IsKind(err, tt.kind) {
				t.Errorf("Parse() error = %v, want kind %s", err, tt.kind)
			}
		})
	}

	m, err := swf.Parse(good)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ReplaceABC(0, nil); !errors.IsKind(err, errors.KindInvalidData) {
		t.Errorf("ReplaceABC on a non-bytecode tag: %v", err)
	}
	if err := m.ReplaceABC(9, nil); !errors.IsKind(err, errors.KindOutOfBounds) {
		t.Errorf("ReplaceABC out of range: %v", err)
	}
}
