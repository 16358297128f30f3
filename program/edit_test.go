package program_test

import (
	"slices"
	"testing"

	"github.com/gemforce-team/abcedit/abc"
	"github.com/gemforce-team/abcedit/errors"
	"github.com/gemforce-team/abcedit/program"
)

func branchyBody() *program.MethodBody {
	return &program.MethodBody{
		Instructions: []program.Instruction{
			{Opcode: abc.OpPushTrue},
			{Opcode: abc.OpIfTrue, Args: []program.Arg{program.Target{Index: 4}}},
			{Opcode: abc.OpJump, Args: []program.Arg{program.Target{Index: 0}}},
			{Opcode: abc.OpLookupSwitch, Args: []program.Arg{
				program.Target{Index: 1},
				program.Targets{{Index: 2}, {Index: 5, Offset: 1}},
			}},
			{Opcode: abc.OpNop},
			{Opcode: abc.OpReturnVoid},
		},
		Exceptions: []program.Exception{{
			From:   abc.Label{Index: 1},
			To:     abc.Label{Index: 4},
			Target: abc.Label{Index: 5},
		}},
		Errors: []abc.DecodeError{{Offset: 9, Label: abc.Label{Index: 4, Offset: 1}, Message: "overlap"}},
	}
}

func TestInsertInstructions(t *testing.T) {
	b := branchyBody()
	const k = 3
	before := b.Instructions[k].Opcode

	err := b.InsertInstructions(k,
		program.Instruction{Opcode: abc.OpNop},
		program.Instruction{Opcode: abc.OpJump, Args: []program.Arg{program.Target{Index: 0}}},
	)
	if err != nil {
		t.Fatalf("InsertInstructions: %v", err)
	}

	if len(b.Instructions) != 8 {
		t.Fatalf("%d instructions", len(b.Instructions))
	}
	if b.Instructions[k+2].Opcode != before {
		t.Errorf("instruction %d moved to %s", k, b.Instructions[k+2].Opcode)
	}

	tests := []struct {
		name string
		got  abc.Label
		want abc.Label
	}{
		{"iftrue after k", abc.Label(b.Instructions[1].Args[0].(program.Target)), abc.Label{Index: 6}},
		{"jump before k", abc.Label(b.Instructions[2].Args[0].(program.Target)), abc.Label{Index: 0}},
		{"inserted jump untouched", abc.Label(b.Instructions[4].Args[0].(program.Target)), abc.Label{Index: 0}},
		{"switch default", abc.Label(b.Instructions[5].Args[0].(program.Target)), abc.Label{Index: 1}},
		{"switch case before k", b.Instructions[5].Args[1].(program.Targets)[0], abc.Label{Index: 2}},
		{"switch case with bias", b.Instructions[5].Args[1].(program.Targets)[1], abc.Label{Index: 7, Offset: 1}},
		{"exception from", b.Exceptions[0].From, abc.Label{Index: 1}},
		{"exception to", b.Exceptions[0].To, abc.Label{Index: 6}},
		{"exception target", b.Exceptions[0].Target, abc.Label{Index: 7}},
		{"decode error", b.Errors[0].Label, abc.Label{Index: 6, Offset: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %+v, want %+v", tt.got, tt.want)
			}
		})
	}
}

func TestInsertKeepsTargets(t *testing.T) {
	// every label keeps addressing the same instruction for any insertion point
	for k := 0; k <= 6; k++ {
		b := branchyBody()
		targets := make([]abc.Opcode, 0, len(b.Instructions))
		resolve := func(b *program.MethodBody) []abc.Opcode {
			var out []abc.Opcode
			for _, in := range b.Instructions {
				for _, a := range in.Args {
					if tg, ok := a.(program.Target); ok && tg.Index < len(b.Instructions) {
						out = append(out, b.Instructions[tg.Index].Opcode)
					}
				}
			}
			return out
		}
		targets = append(targets, resolve(b)...)

		if err := b.InsertInstructions(k, program.Instruction{Opcode: abc.OpLabel}); err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		got := resolve(b)
		if len(got) != len(targets) {
			t.Fatalf("k=%d: %d targets, want %d", k, len(got), len(targets))
		}
		for i := range got {
			if got[i] != targets[i] {
				t.Errorf("k=%d: target %d now addresses %s, want %s", k, i, got[i], targets[i])
			}
		}
	}
}

func TestRemoveInstructions(t *testing.T) {
	b := branchyBody()
	if err := b.RemoveInstructions(2, 2); err != nil {
		t.Fatalf("RemoveInstructions: %v", err)
	}
	if len(b.Instructions) != 4 {
		t.Fatalf("%d instructions", len(b.Instructions))
	}
	if got := abc.Label(b.Instructions[1].Args[0].(program.Target)); got != (abc.Label{Index: 2}) {
		t.Errorf("iftrue target = %+v", got)
	}
	if b.Exceptions[0].To != (abc.Label{Index: 2}) || b.Exceptions[0].Target != (abc.Label{Index: 3}) {
		t.Errorf("exception = %+v", b.Exceptions[0])
	}
	if b.Errors[0].Label != (abc.Label{Index: 2, Offset: 1}) {
		t.Errorf("error label = %+v", b.Errors[0].Label)
	}

	// labels into the removed range collapse onto the next instruction
	b = branchyBody()
	if err := b.RemoveInstructions(1, 3); err != nil {
		t.Fatal(err)
	}
	if b.Exceptions[0].From != (abc.Label{Index: 1}) {
		t.Errorf("exception from = %+v", b.Exceptions[0].From)
	}
}

func TestEditBounds(t *testing.T) {
	b := branchyBody()
	if err := b.InsertInstructions(7); !errors.IsKind(err, errors.KindOutOfBounds) {
		t.Errorf("Insert past end: %v", err)
	}
	if err := b.RemoveInstructions(5, 2); !errors.IsKind(err, errors.KindOutOfBounds) {
		t.Errorf("Remove past end: %v", err)
	}
	if err := b.InsertInstructions(6); err != nil {
		t.Errorf("Insert at end: %v", err)
	}
}

func TestDesugarLocals(t *testing.T) {
	b := &program.MethodBody{Instructions: []program.Instruction{
		{Opcode: abc.OpGetLocal0},
		{Opcode: abc.OpSetLocal3},
		{Opcode: abc.OpGetLocal, Args: []program.Arg{program.UIntLit(7)}},
		{Opcode: abc.OpReturnVoid},
	}}
	b.DesugarLocals()

	want := []program.Instruction{
		{Opcode: abc.OpGetLocal, Args: []program.Arg{program.UIntLit(0)}},
		{Opcode: abc.OpSetLocal, Args: []program.Arg{program.UIntLit(3)}},
		{Opcode: abc.OpGetLocal, Args: []program.Arg{program.UIntLit(7)}},
		{Opcode: abc.OpReturnVoid},
	}
	for i, in := range b.Instructions {
		if in.Opcode != want[i].Opcode || !slices.Equal(in.Args, want[i].Args) {
			t.Errorf("instruction %d = %v %v, want %v %v", i, in.Opcode, in.Args, want[i].Opcode, want[i].Args)
		}
	}
}
