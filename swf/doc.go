// Package swf reads and rewrites the SWF containers that carry ABC bytecode.
//
// Only the parts of the format needed to reach the bytecode are decoded: the
// header, the frame rectangle, and the tag list. DoABC (82) and DoABC1 (72)
// tags expose their blobs through Movie.ABCs; every other tag is kept as
// opaque bytes and written back unchanged.
//
//	m, err := swf.Parse(data)
//	if err != nil {
//		return err
//	}
//	abcs, err := m.ABCs()
//	...
//	if err := m.ReplaceABC(abcs[0].Tag, edited); err != nil {
//		return err
//	}
//	out, err := m.Encode()
//
// Zlib-compressed (CWS) movies are recompressed on write. LZMA (ZWS) movies
// are rejected with an errors.KindUnsupported error.
package swf
