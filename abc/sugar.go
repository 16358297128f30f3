package abc

// SugarLocals rewrites getlocal/setlocal with a register below 4 to the
// dedicated zero-operand forms. The rewrite is one instruction for one
// instruction, so labels stay valid. instrs is modified in place.
func SugarLocals(instrs []Instruction) {
	for i := range instrs {
		in := &instrs[i]
		if in.Opcode != OpGetLocal && in.Opcode != OpSetLocal || len(in.Args) != 1 {
			continue
		}
		reg, ok := in.Args[0].(UIntArg)
		if !ok || reg > 3 {
			continue
		}
		if in.Opcode == OpGetLocal {
			in.Opcode = OpGetLocal0 + Opcode(reg)
		} else {
			in.Opcode = OpSetLocal0 + Opcode(reg)
		}
		in.Args = nil
	}
}

// DesugarLocals is the inverse of SugarLocals.
func DesugarLocals(instrs []Instruction) {
	for i := range instrs {
		in := &instrs[i]
		switch {
		case in.Opcode >= OpGetLocal0 && in.Opcode <= OpGetLocal3:
			in.Args = []Arg{UIntArg(in.Opcode - OpGetLocal0)}
			in.Opcode = OpGetLocal
		case in.Opcode >= OpSetLocal0 && in.Opcode <= OpSetLocal3:
			in.Args = []Arg{UIntArg(in.Opcode - OpSetLocal0)}
			in.Opcode = OpSetLocal
		}
	}
}
