package abc

import (
	"fmt"
	"strconv"

	"github.com/gemforce-team/abcedit/abc/internal/binary"
	"github.com/gemforce-team/abcedit/errors"
)

// EncodedCode is the result of laying out an instruction list.
type EncodedCode struct {
	Bytes []byte
	// Offsets holds the start offset of each instruction, followed by the
	// code length.
	Offsets []int
}

// Offset resolves a label to an absolute byte offset in Bytes.
func (e *EncodedCode) Offset(l Label) (int, error) {
	if l.Index < 0 || l.Index >= len(e.Offsets) {
		return 0, errors.New(errors.PhaseEncode, errors.KindEncodeConstraint).
			Value(l.Index).
			Detail("label target instruction %d out of range (%d instructions)", l.Index, len(e.Offsets)-1).
			Build()
	}
	return e.Offsets[l.Index] + l.Offset, nil
}

type fixup struct {
	pos   int // position of the s24 placeholder
	base  int // offset the stored value is relative to
	label Label
	instr int
}

// EncodeCode lays out instrs and resolves every branch label. Index operands
// are written as given; the caller is responsible for them referring to the
// target document's tables.
func EncodeCode(instrs []Instruction) (*EncodedCode, error) {
	w := binary.NewWriter()
	out := &EncodedCode{Offsets: make([]int, 0, len(instrs)+1)}
	var fixups []fixup

	for i, instr := range instrs {
		start := w.Len()
		out.Offsets = append(out.Offsets, start)

		info := Info(instr.Opcode)
		if !info.Valid {
			return nil, instrError(i, "unknown opcode 0x%02x", uint16(instr.Opcode))
		}
		if len(instr.Args) != len(info.Operands) {
			return nil, instrError(i, "%s takes %d operands, got %d", info.Name, len(info.Operands), len(instr.Args))
		}

		if instr.Opcode != OpRaw {
			w.WriteU8(byte(instr.Opcode))
		}
		jump := -1
		for j, t := range info.Operands {
			arg := instr.Args[j]
			switch t {
			case OperandByteLiteral:
				v, ok := arg.(ByteArg)
				if !ok {
					return nil, operandError(i, j, t, arg)
				}
				w.WriteU8(byte(v))
			case OperandUByteLiteral:
				v, ok := arg.(UByteArg)
				if !ok {
					return nil, operandError(i, j, t, arg)
				}
				w.WriteU8(byte(v))
			case OperandIntLiteral:
				v, ok := arg.(IntArg)
				if !ok {
					return nil, operandError(i, j, t, arg)
				}
				w.WriteS32(int32(v))
			case OperandUIntLiteral:
				v, ok := arg.(UIntArg)
				if !ok {
					return nil, operandError(i, j, t, arg)
				}
				w.WriteU32(uint32(v))
			case OperandInt, OperandUInt, OperandDouble, OperandString,
				OperandNamespace, OperandMultiname, OperandClass, OperandMethod:
				v, ok := arg.(IndexArg)
				if !ok {
					return nil, operandError(i, j, t, arg)
				}
				w.WriteU30(uint32(v))
			case OperandJumpTarget:
				l, ok := arg.(Label)
				if !ok {
					return nil, operandError(i, j, t, arg)
				}
				fixups = append(fixups, fixup{pos: w.Len(), label: l, instr: i})
				jump = len(fixups) - 1
				w.WriteS24(0)
			case OperandSwitchDefaultTarget:
				l, ok := arg.(Label)
				if !ok {
					return nil, operandError(i, j, t, arg)
				}
				fixups = append(fixups, fixup{pos: w.Len(), base: start, label: l, instr: i})
				w.WriteS24(0)
			case OperandSwitchTargets:
				ls, ok := arg.(Labels)
				if !ok || len(ls) == 0 {
					return nil, operandError(i, j, t, arg)
				}
				w.WriteU30(uint32(len(ls) - 1))
				for _, l := range ls {
					fixups = append(fixups, fixup{pos: w.Len(), base: start, label: l, instr: i})
					w.WriteS24(0)
				}
			}
		}
		// jump base is known once the whole instruction is written
		if jump >= 0 {
			fixups[jump].base = w.Len()
		}
		if err := w.Err(); err != nil {
			return nil, errors.WithOffset(err, start, "instructions", strconv.Itoa(i))
		}
	}
	out.Offsets = append(out.Offsets, w.Len())

	for _, f := range fixups {
		target, err := out.Offset(f.label)
		if err != nil {
			return nil, errors.WithOffset(err, f.pos, "instructions", strconv.Itoa(f.instr))
		}
		w.PatchS24(f.pos, target-f.base)
		if err := w.Err(); err != nil {
			return nil, errors.WithOffset(err, f.pos, "instructions", strconv.Itoa(f.instr))
		}
	}

	out.Bytes = w.Bytes()
	return out, nil
}

func instrError(i int, format string, args ...any) error {
	return errors.New(errors.PhaseEncode, errors.KindEncodeConstraint).
		Path("instructions", strconv.Itoa(i)).
		Detail(format, args...).
		Build()
}

func operandError(i, j int, t OperandType, arg Arg) error {
	return instrError(i, "operand %d: expected %s, got %s", j, t, argTypeName(arg))
}

func argTypeName(arg Arg) string {
	if arg == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", arg)
}
