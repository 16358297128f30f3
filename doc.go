// Package abcedit reads, edits and writes ActionScript Byte Code (ABC)
// documents without losing information.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	abcedit/          Root package with one-call Decode, Encode and RoundTrip
//	├── abc/          Flat table model: pools, tables, raw instruction streams
//	├── program/      Object graph: resolved values, classes and methods by ID
//	├── listing/      Text rendering of programs and file naming
//	├── editor/       Documents with background decode/encode jobs
//	├── swf/          SWF containers carrying DoABC tags
//	└── errors/       Structured error types for debugging
//
// # Quick Start
//
// Decode a document, change it, write it back:
//
//	p, err := abcedit.Decode(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	p.Method(p.Scripts[0].SInit).Body.MaxStack++
//
//	out, err := abcedit.Encode(p, abc.EncodeOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Fidelity
//
// Decoding then encoding an unmodified document produces a document that
// decodes to an Equal program. Malformed instructions are kept as raw bytes
// with their error recorded on the method body, so they survive the trip.
// Pool order is rebuilt from use counts, so the bytes themselves may differ
// from a document written by another tool; a second round trip is stable.
//
// # Error Handling
//
// All errors are *errors.Error values carrying a phase, a kind, a table path
// and, for decode failures, a byte offset:
//
//	if errors.IsKind(err, errors.KindOutOfData) {
//	    // truncated input
//	}
package abcedit
