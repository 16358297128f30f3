package swf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/compress/zlib"

	"github.com/gemforce-team/abcedit/errors"
)

// Compression is the first signature byte of a movie.
type Compression byte

const (
	Uncompressed Compression = 'F'
	Zlib         Compression = 'C'
	LZMA         Compression = 'Z'
)

func (c Compression) String() string {
	switch c {
	case Uncompressed:
		return "FWS"
	case Zlib:
		return "CWS"
	case LZMA:
		return "ZWS"
	}
	return fmt.Sprintf("Compression(0x%02x)", byte(c))
}

// Tag codes carrying ABC bytecode.
const (
	TagEnd    uint16 = 0
	TagDoABC1 uint16 = 72
	TagDoABC  uint16 = 82
)

const (
	headerSize     = 8
	shortLengthMax = 0x3f
)

// Rect is the movie frame size in twips.
type Rect struct {
	XMin, XMax, YMin, YMax int32
}

// Tag is one record of the movie body.
type Tag struct {
	Code uint16
	Data []byte
	// Long is set when the tag used the long header form, kept on write.
	Long bool
}

// Movie is a parsed SWF container. Tag payloads other than DoABC are kept
// as opaque bytes.
type Movie struct {
	Compression Compression
	Version     uint8
	FrameSize   Rect
	FrameRate   uint16 // 8.8 fixed point
	FrameCount  uint16
	Tags        []Tag
	// Tail holds any bytes following the End tag, written back verbatim.
	Tail []byte

	rect []byte
}

// ABC is a bytecode blob found in a DoABC or DoABC1 tag.
type ABC struct {
	Tag   int    // index into Movie.Tags
	Flags uint32 // DoABC only
	Name  string // DoABC only
	Data  []byte
}

// Parse decodes an FWS or CWS movie. ZWS movies are reported as unsupported.
func Parse(data []byte) (*Movie, error) {
	if len(data) < headerSize {
		return nil, errors.OutOfData(errors.PhaseContainer, 0, headerSize, len(data))
	}
	if data[1] != 'W' || data[2] != 'S' {
		return nil, errors.InvalidData(errors.PhaseContainer, []string{"header"},
			fmt.Sprintf("bad signature %q", data[:3]))
	}
	m := &Movie{Compression: Compression(data[0]), Version: data[3]}
	length := binary.LittleEndian.Uint32(data[4:8])

	var body []byte
	switch m.Compression {
	case Uncompressed:
		body = data[headerSize:]
	case Zlib:
		if length < headerSize {
			return nil, errors.InvalidData(errors.PhaseContainer, []string{"header"},
				fmt.Sprintf("file length %d is shorter than the header", length))
		}
		zr, err := zlib.NewReader(bytes.NewReader(data[headerSize:]))
		if err != nil {
			return nil, errors.Wrap(errors.PhaseContainer, errors.KindInvalidData, err, "zlib header")
		}
		// One byte past the declared size is enough to detect an oversized stream.
		body, err = io.ReadAll(io.LimitReader(zr, int64(length)-headerSize+1))
		zr.Close()
		if err != nil {
			return nil, errors.Wrap(errors.PhaseContainer, errors.KindInvalidData, err, "zlib stream")
		}
		if len(body) > int(length)-headerSize {
			return nil, errors.InvalidData(errors.PhaseContainer, []string{"header"},
				fmt.Sprintf("zlib stream exceeds file length %d", length))
		}
	case LZMA:
		return nil, errors.Unsupported(errors.PhaseContainer, "LZMA-compressed movie (ZWS)")
	default:
		return nil, errors.InvalidData(errors.PhaseContainer, []string{"header"},
			fmt.Sprintf("unknown compression %q", data[0]))
	}
	if int(length) != headerSize+len(body) {
		return nil, errors.InvalidData(errors.PhaseContainer, []string{"header"},
			fmt.Sprintf("file length %d, got %d bytes", length, headerSize+len(body)))
	}

	r := &reader{data: body, base: headerSize}
	if err := m.readHeader(r); err != nil {
		return nil, err
	}
	for r.pos < len(r.data) {
		tag, err := r.tag()
		if err != nil {
			return nil, errors.WithOffset(err, errors.NoOffset, "tags", strconv.Itoa(len(m.Tags)))
		}
		m.Tags = append(m.Tags, tag)
		if tag.Code == TagEnd {
			if r.pos < len(r.data) {
				m.Tail = r.data[r.pos:]
			}
			break
		}
	}
	return m, nil
}

func (m *Movie) readHeader(r *reader) error {
	if r.pos >= len(r.data) {
		return errors.OutOfData(errors.PhaseContainer, r.offset(), 1, 0)
	}
	nbits := int(r.data[r.pos] >> 3)
	size := (5 + 4*nbits + 7) / 8
	rect, err := r.bytes(size)
	if err != nil {
		return err
	}
	m.rect = rect
	m.FrameSize = decodeRect(rect, nbits)
	rate, err := r.u16()
	if err != nil {
		return err
	}
	count, err := r.u16()
	if err != nil {
		return err
	}
	m.FrameRate, m.FrameCount = rate, count
	return nil
}

func decodeRect(b []byte, nbits int) Rect {
	bit := 5
	field := func() int32 {
		var v uint32
		for i := 0; i < nbits; i++ {
			v = v<<1 | uint32(b[bit/8]>>(7-bit%8))&1
			bit++
		}
		if nbits > 0 && v&(1<<(nbits-1)) != 0 {
			v |= ^uint32(0) << nbits
		}
		return int32(v)
	}
	var r Rect
	r.XMin = field()
	r.XMax = field()
	r.YMin = field()
	r.YMax = field()
	return r
}

// ABCs returns the bytecode blobs in tag order.
func (m *Movie) ABCs() ([]ABC, error) {
	var out []ABC
	for i, t := range m.Tags {
		switch t.Code {
		case TagDoABC1:
			out = append(out, ABC{Tag: i, Data: t.Data})
		case TagDoABC:
			a, err := splitDoABC(t.Data)
			if err != nil {
				return nil, errors.WithOffset(err, errors.NoOffset, "tags", strconv.Itoa(i))
			}
			a.Tag = i
			out = append(out, a)
		}
	}
	return out, nil
}

func splitDoABC(data []byte) (ABC, error) {
	if len(data) < 4 {
		return ABC{}, errors.OutOfData(errors.PhaseContainer, errors.NoOffset, 4, len(data))
	}
	flags := binary.LittleEndian.Uint32(data)
	end := bytes.IndexByte(data[4:], 0)
	if end < 0 {
		return ABC{}, errors.InvalidData(errors.PhaseContainer, nil, "unterminated DoABC name")
	}
	return ABC{
		Flags: flags,
		Name:  string(data[4 : 4+end]),
		Data:  data[4+end+1:],
	}, nil
}

// ReplaceABC replaces the bytecode of the DoABC or DoABC1 tag at index tag,
// keeping its flags and name.
func (m *Movie) ReplaceABC(tag int, data []byte) error {
	if tag < 0 || tag >= len(m.Tags) {
		return errors.OutOfBounds(errors.PhaseContainer, []string{"tags"}, tag, len(m.Tags))
	}
	t := &m.Tags[tag]
	switch t.Code {
	case TagDoABC1:
		t.Data = data
	case TagDoABC:
		a, err := splitDoABC(t.Data)
		if err != nil {
			return errors.WithOffset(err, errors.NoOffset, "tags", strconv.Itoa(tag))
		}
		buf := make([]byte, 4, 4+len(a.Name)+1+len(data))
		binary.LittleEndian.PutUint32(buf, a.Flags)
		buf = append(buf, a.Name...)
		buf = append(buf, 0)
		t.Data = append(buf, data...)
	default:
		return errors.InvalidData(errors.PhaseContainer, []string{"tags", strconv.Itoa(tag)},
			fmt.Sprintf("tag type %d carries no bytecode", t.Code))
	}
	return nil
}

// Encode serializes the movie, recompressing CWS bodies.
func (m *Movie) Encode() ([]byte, error) {
	var body bytes.Buffer
	if m.rect == nil {
		return nil, errors.InvalidData(errors.PhaseContainer, []string{"header"}, "movie has no frame rectangle")
	}
	body.Write(m.rect)
	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], m.FrameRate)
	body.Write(u16[:])
	binary.LittleEndian.PutUint16(u16[:], m.FrameCount)
	body.Write(u16[:])
	for i, t := range m.Tags {
		if t.Code >= 1<<10 {
			return nil, errors.Overflow(errors.PhaseContainer, []string{"tags", strconv.Itoa(i)}, t.Code, "10-bit tag code")
		}
		if uint64(len(t.Data)) > 0xffffffff {
			return nil, errors.Overflow(errors.PhaseContainer, []string{"tags", strconv.Itoa(i)}, len(t.Data), "u32 tag length")
		}
		if t.Long || len(t.Data) >= shortLengthMax {
			binary.LittleEndian.PutUint16(u16[:], t.Code<<6|shortLengthMax)
			body.Write(u16[:])
			var u32 [4]byte
			binary.LittleEndian.PutUint32(u32[:], uint32(len(t.Data)))
			body.Write(u32[:])
		} else {
			binary.LittleEndian.PutUint16(u16[:], t.Code<<6|uint16(len(t.Data)))
			body.Write(u16[:])
		}
		body.Write(t.Data)
	}
	body.Write(m.Tail)

	header := make([]byte, headerSize)
	header[0] = byte(m.Compression)
	header[1], header[2] = 'W', 'S'
	header[3] = m.Version
	binary.LittleEndian.PutUint32(header[4:], uint32(headerSize+body.Len()))

	switch m.Compression {
	case Uncompressed:
		return append(header, body.Bytes()...), nil
	case Zlib:
		out := bytes.NewBuffer(header)
		zw := zlib.NewWriter(out)
		if _, err := zw.Write(body.Bytes()); err != nil {
			return nil, errors.Wrap(errors.PhaseContainer, errors.KindInvalidData, err, "zlib stream")
		}
		if err := zw.Close(); err != nil {
			return nil, errors.Wrap(errors.PhaseContainer, errors.KindInvalidData, err, "zlib stream")
		}
		return out.Bytes(), nil
	}
	return nil, errors.Unsupported(errors.PhaseContainer, "writing "+m.Compression.String()+" movies")
}

type reader struct {
	data []byte
	pos  int
	base int // file offset of data[0]
}

func (r *reader) offset() int { return r.base + r.pos }

func (r *reader) bytes(n int) ([]byte, error) {
	if n > len(r.data)-r.pos {
		return nil, errors.OutOfData(errors.PhaseContainer, r.offset(), n, len(r.data)-r.pos)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) tag() (Tag, error) {
	h, err := r.u16()
	if err != nil {
		return Tag{}, err
	}
	t := Tag{Code: h >> 6}
	n := int(h & shortLengthMax)
	if n == shortLengthMax {
		l, err := r.u32()
		if err != nil {
			return Tag{}, err
		}
		t.Long = true
		if uint64(l) > uint64(len(r.data)-r.pos) {
			return Tag{}, errors.OutOfData(errors.PhaseContainer, r.offset(), int(l), len(r.data)-r.pos)
		}
		n = int(l)
	}
	t.Data, err = r.bytes(n)
	return t, err
}
