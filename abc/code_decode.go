package abc

import (
	"fmt"
	"sort"

	"github.com/gemforce-team/abcedit/abc/internal/binary"
)

// trace states of a code byte
const (
	byteUnexplored byte = iota
	byteQueued
	byteDecoded
	byteContinuation
	byteErrored
)

// DecodedCode is the result of decoding a method body's byte stream.
type DecodedCode struct {
	Instructions []Instruction
	// Offsets holds the original start offset of each instruction, followed
	// by the code length.
	Offsets []int
	Errors  []DecodeError
}

// Label resolves a byte offset of the original code to an instruction label.
// Offsets past the end resolve to the end-of-body index with the residue as
// bias; negative offsets resolve to instruction 0 with the offset as bias.
func (d *DecodedCode) Label(offset int) Label {
	// largest i with Offsets[i] <= offset
	i := sort.Search(len(d.Offsets), func(i int) bool { return d.Offsets[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return Label{Index: i, Offset: offset - d.Offsets[i]}
}

type codeDecoder struct {
	code   []byte
	bounds PoolBounds
	state  []byte
	queue  []int
	instrs map[int]*Instruction
	errs   []DecodeError
}

// DecodeCode decodes code into instructions. Decoding starts at offset 0 and at
// every entry of targets (exception handler entry points) and follows every
// branch. Malformed instructions never fail the decode: their first byte
// becomes a raw instruction, an error is recorded, and tracing resumes at the
// next byte. Bytes never reached are kept as raw instructions too.
//
// bounds may be nil, in which case index operands are not checked.
func DecodeCode(code []byte, targets []int, bounds PoolBounds) *DecodedCode {
	d := &codeDecoder{
		code:   code,
		bounds: bounds,
		state:  make([]byte, len(code)),
		instrs: make(map[int]*Instruction),
	}

	d.enqueue(0)
	for _, t := range targets {
		d.enqueue(t)
	}
	for len(d.queue) > 0 {
		start := d.queue[0]
		d.queue = d.queue[1:]
		if d.state[start] == byteQueued {
			d.trace(start)
		}
	}

	return d.finish()
}

func (d *codeDecoder) enqueue(offset int) {
	if offset < 0 || offset >= len(d.code) {
		return
	}
	if d.state[offset] == byteUnexplored {
		d.state[offset] = byteQueued
		d.queue = append(d.queue, offset)
	}
}

func (d *codeDecoder) fail(offset int, format string, args ...any) {
	d.errs = append(d.errs, DecodeError{Offset: offset, Message: fmt.Sprintf(format, args...)})
}

// trace decodes a straight-line run starting at pos.
func (d *codeDecoder) trace(pos int) {
	for pos < len(d.code) {
		switch d.state[pos] {
		case byteDecoded, byteErrored:
			return
		case byteContinuation:
			d.fail(pos, "flow reaches the middle of an instruction")
			return
		}

		instr, end, err := d.decodeAt(pos)
		if err == nil {
			for i := pos + 1; i < end; i++ {
				if s := d.state[i]; s != byteUnexplored && s != byteQueued {
					err = fmt.Errorf("instruction overlaps code at offset %d", i)
					break
				}
			}
		}
		if err != nil {
			d.state[pos] = byteErrored
			d.fail(pos, "%v", err)
			d.enqueue(pos + 1)
			return
		}

		d.state[pos] = byteDecoded
		for i := pos + 1; i < end; i++ {
			d.state[i] = byteContinuation
		}
		d.instrs[pos] = instr

		for _, arg := range instr.Args {
			switch a := arg.(type) {
			case Label:
				d.enqueue(a.Offset)
			case Labels:
				for _, l := range a {
					d.enqueue(l.Offset)
				}
			}
		}

		if Info(instr.Opcode).Terminal {
			return
		}
		pos = end
	}
}

// decodeAt decodes one instruction at pos. Branch operands are returned as
// Label{0, absolute offset}.
func (d *codeDecoder) decodeAt(pos int) (*Instruction, int, error) {
	r := binary.NewReader(d.code)
	if err := r.Seek(pos); err != nil {
		return nil, 0, err
	}
	b, err := r.ReadU8()
	if err != nil {
		return nil, 0, err
	}
	op := Opcode(b)
	info := Info(op)
	if !info.Valid {
		return nil, 0, fmt.Errorf("unknown opcode 0x%02x", b)
	}

	instr := &Instruction{Opcode: op, Args: make([]Arg, len(info.Operands))}
	for i, t := range info.Operands {
		arg, err := d.readOperand(r, t, pos)
		if err != nil {
			return nil, 0, fmt.Errorf("%s operand %d: %w", info.Name, i, err)
		}
		instr.Args[i] = arg
	}

	// jump offsets are relative to the end of the instruction
	if len(info.Operands) > 0 && info.Operands[0] == OperandJumpTarget {
		l := instr.Args[0].(Label)
		instr.Args[0] = Label{Offset: r.Position() + l.Offset}
	}
	return instr, r.Position(), nil
}

func (d *codeDecoder) readOperand(r *binary.Reader, t OperandType, start int) (Arg, error) {
	switch t {
	case OperandByteLiteral:
		b, err := r.ReadU8()
		return ByteArg(int8(b)), err
	case OperandUByteLiteral:
		b, err := r.ReadU8()
		return UByteArg(b), err
	case OperandIntLiteral:
		v, err := r.ReadS32()
		return IntArg(v), err
	case OperandUIntLiteral:
		v, err := r.ReadU32()
		return UIntArg(v), err
	case OperandInt, OperandUInt, OperandDouble, OperandString,
		OperandNamespace, OperandMultiname, OperandClass, OperandMethod:
		v, err := r.ReadU30()
		if err != nil {
			return nil, err
		}
		if d.bounds != nil {
			if n := d.bounds.PoolLen(t); int(v) >= n {
				return nil, fmt.Errorf("%s index %d out of bounds (length %d)", t, v, n)
			}
		}
		return IndexArg(v), nil
	case OperandJumpTarget:
		v, err := r.ReadS24()
		return Label{Offset: int(v)}, err
	case OperandSwitchDefaultTarget:
		v, err := r.ReadS24()
		return Label{Offset: start + int(v)}, err
	case OperandSwitchTargets:
		n, err := r.ReadU30()
		if err != nil {
			return nil, err
		}
		if int(n) >= r.Len()/3 {
			return nil, fmt.Errorf("switch target count %d exceeds code length", uint64(n)+1)
		}
		targets := make(Labels, n+1)
		for i := range targets {
			v, err := r.ReadS24()
			if err != nil {
				return nil, err
			}
			targets[i] = Label{Offset: start + int(v)}
		}
		return targets, nil
	}
	return nil, fmt.Errorf("unknown operand type %d", t)
}

func (d *codeDecoder) finish() *DecodedCode {
	out := &DecodedCode{}
	for pos := 0; pos < len(d.code); pos++ {
		switch d.state[pos] {
		case byteContinuation:
			continue
		case byteDecoded:
			out.Instructions = append(out.Instructions, *d.instrs[pos])
		default:
			out.Instructions = append(out.Instructions, Instruction{
				Opcode: OpRaw,
				Args:   []Arg{UByteArg(d.code[pos])},
			})
		}
		out.Offsets = append(out.Offsets, pos)
	}
	out.Offsets = append(out.Offsets, len(d.code))

	for i := range out.Instructions {
		for j, arg := range out.Instructions[i].Args {
			switch a := arg.(type) {
			case Label:
				out.Instructions[i].Args[j] = out.Label(a.Offset)
			case Labels:
				for k := range a {
					a[k] = out.Label(a[k].Offset)
				}
			}
		}
	}

	sort.SliceStable(d.errs, func(i, j int) bool { return d.errs[i].Offset < d.errs[j].Offset })
	for i := range d.errs {
		d.errs[i].Label = out.Label(d.errs[i].Offset)
	}
	out.Errors = d.errs
	return out
}
