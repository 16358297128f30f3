// Package abc provides ABC (ActionScript Byte Code) binary format parsing and
// encoding.
//
// The package mirrors the binary format as flat, index-addressed tables. Pools
// keep their null entry at index 0; positional tables (methods, metadata,
// instances, classes, scripts, method bodies) refer to each other by index.
// For an editable form without indices see package program.
//
// # Parsing
//
//	data, _ := os.ReadFile("main.abc")
//	file, err := abc.Parse(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Table-level problems (truncated input, unknown record kinds) abort the parse.
// Problems inside method code never do: each body records them in Errors and
// keeps the undecodable bytes as raw instructions.
//
// # Code
//
// Method bodies are decoded by tracing control flow from offset 0 and from
// every exception handler target. Branch operands and exception ranges are
// stored as labels, pairs of (instruction index, byte offset), so instruction
// lists can be edited without recomputing byte positions:
//
//	dc := abc.DecodeCode(code, nil, file)
//	for i, instr := range dc.Instructions {
//	    fmt.Println(i, instr.Opcode)
//	}
//
// EncodeCode lays instructions out again and patches every branch once all
// instruction offsets are known.
//
// # Encoding
//
//	out, err := file.Encode()
//
// or, with getlocal/setlocal rewritten to their short forms:
//
//	out, err := file.EncodeWith(abc.EncodeOptions{SugarLocals: true})
package abc
