package program

import (
	"slices"

	"github.com/gemforce-team/abcedit/abc"
	"github.com/gemforce-team/abcedit/errors"
)

// InsertInstructions inserts instrs before instruction k, 0 <= k <= len.
// Labels in the body that address instruction k or later are shifted so
// they keep addressing the same instruction; labels before k do not change.
// Labels inside instrs are taken as already relative to the new list.
func (b *MethodBody) InsertInstructions(k int, instrs ...Instruction) error {
	if k < 0 || k > len(b.Instructions) {
		return errors.OutOfBounds(errors.PhaseBuild, []string{"instructions"}, k, len(b.Instructions)+1)
	}
	n := len(instrs)
	if n == 0 {
		return nil
	}
	b.relabel(func(l abc.Label) abc.Label {
		if l.Index >= k {
			l.Index += n
		}
		return l
	})
	b.Instructions = slices.Insert(b.Instructions, k, instrs...)
	return nil
}

// RemoveInstructions removes n instructions starting at k. Labels after the
// removed range are shifted back; labels into the removed range are moved
// to the start of the instruction that now sits at k.
func (b *MethodBody) RemoveInstructions(k, n int) error {
	if k < 0 || n < 0 || k+n > len(b.Instructions) {
		return errors.OutOfBounds(errors.PhaseBuild, []string{"instructions"}, k+n, len(b.Instructions))
	}
	if n == 0 {
		return nil
	}
	b.Instructions = slices.Delete(b.Instructions, k, k+n)
	b.relabel(func(l abc.Label) abc.Label {
		switch {
		case l.Index >= k+n:
			l.Index -= n
		case l.Index >= k:
			l = abc.Label{Index: k}
		}
		return l
	})
	return nil
}

// relabel applies fn to every label in the body.
func (b *MethodBody) relabel(fn func(abc.Label) abc.Label) {
	for i := range b.Instructions {
		args := b.Instructions[i].Args
		for j, a := range args {
			switch a := a.(type) {
			case Target:
				args[j] = Target(fn(abc.Label(a)))
			case Targets:
				out := make(Targets, len(a))
				for t, l := range a {
					out[t] = fn(l)
				}
				args[j] = out
			}
		}
	}
	for i := range b.Exceptions {
		e := &b.Exceptions[i]
		e.From, e.To, e.Target = fn(e.From), fn(e.To), fn(e.Target)
	}
	for i := range b.Errors {
		b.Errors[i].Label = fn(b.Errors[i].Label)
	}
}

// DesugarLocals rewrites getlocal0-3 and setlocal0-3 to getlocal and
// setlocal with an explicit register. Labels are unaffected.
func (b *MethodBody) DesugarLocals() {
	for i := range b.Instructions {
		in := &b.Instructions[i]
		switch {
		case in.Opcode >= abc.OpGetLocal0 && in.Opcode <= abc.OpGetLocal3:
			in.Args = []Arg{UIntLit(in.Opcode - abc.OpGetLocal0)}
			in.Opcode = abc.OpGetLocal
		case in.Opcode >= abc.OpSetLocal0 && in.Opcode <= abc.OpSetLocal3:
			in.Args = []Arg{UIntLit(in.Opcode - abc.OpSetLocal0)}
			in.Opcode = abc.OpSetLocal
		}
	}
}

// DesugarLocals applies MethodBody.DesugarLocals to every body in p.
func (p *Program) DesugarLocals() {
	p.Walk(nil, func(_ MethodID, m *Method) {
		if m.Body != nil {
			m.Body.DesugarLocals()
		}
	})
}
