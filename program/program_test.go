package program_test

import (
	"bytes"
	"testing"

	"github.com/gemforce-team/abcedit/abc"
	"github.com/gemforce-team/abcedit/errors"
	"github.com/gemforce-team/abcedit/program"
)

var (
	nsPublic = program.Namespace{Kind: abc.NamespaceKindPackage, Name: program.Str("")}
	nsVec    = program.Namespace{Kind: abc.NamespaceKindPackage, Name: program.Str("__AS3__.vec")}
)

func qname(name string) *program.QName {
	return &program.QName{NS: nsPublic, Name: program.Str(name)}
}

func vectorOf(param program.Multiname) *program.TypeName {
	return &program.TypeName{
		Base:   &program.QName{NS: nsVec, Name: program.Str("Vector")},
		Params: []program.Multiname{param},
	}
}

// sampleProgram builds a script that declares two classes, Derived extending
// Base, and exercises every operand kind in its initializer.
func sampleProgram() *program.Program {
	p := program.New()

	baseIInit := p.AddMethod(&program.Method{})
	baseCInit := p.AddMethod(&program.Method{})
	base := p.AddClass(&program.Class{
		CInit: baseCInit,
		Instance: program.Instance{
			Name:      qname("Base"),
			SuperName: qname("Object"),
			Flags:     abc.InstanceSealed,
			IInit:     baseIInit,
		},
	})

	getter := p.AddMethod(&program.Method{ReturnType: qname("int")})
	fn := p.AddMethod(&program.Method{
		ParamTypes: []program.Multiname{qname("int")},
		Name:       program.Str("fn"),
		Flags:      abc.MethodNeedRest,
		Options:    []program.Value{program.IntValue(3)},
		ParamNames: []program.NullString{program.Str("x")},
	})
	derivedIInit := p.AddMethod(&program.Method{})
	derivedCInit := p.AddMethod(&program.Method{})
	derived := p.AddClass(&program.Class{
		CInit: derivedCInit,
		Traits: []program.Trait{{
			Name:    qname("LIMIT"),
			Payload: &program.SlotTrait{Const: true, SlotID: 1, Type: qname("String"), Value: program.StringValue(program.Str("max"))},
		}},
		Instance: program.Instance{
			Name:        qname("Derived"),
			SuperName:   qname("Base"),
			Flags:       abc.InstanceProtectedNS,
			ProtectedNS: program.Namespace{Kind: abc.NamespaceKindProtected, Name: program.Str("Derived")},
			Interfaces:  []program.Multiname{qname("IThing")},
			IInit:       derivedIInit,
			Traits: []program.Trait{{
				Name:       qname("size"),
				Attributes: abc.TraitAttrFinal,
				Metadata: []*program.Metadata{{
					Name:  program.Str("Inspectable"),
					Items: []program.MetadataItem{{Key: program.Str("type"), Value: program.Str("int")}},
				}},
				Payload: &program.MethodTrait{Kind: abc.TraitGetter, DispID: 2, Method: getter},
			}},
		},
	})

	sinit := p.AddMethod(&program.Method{Body: &program.MethodBody{
		MaxStack:      3,
		LocalCount:    1,
		MaxScopeDepth: 1,
		Instructions: []program.Instruction{
			{Opcode: abc.OpGetLocal0},
			{Opcode: abc.OpPushScope},
			{Opcode: abc.OpPushByte, Args: []program.Arg{program.ByteLit(1)}},
			{Opcode: abc.OpLookupSwitch, Args: []program.Arg{
				program.Target{Index: 5},
				program.Targets{{Index: 4}, {Index: 6}},
			}},
			{Opcode: abc.OpPushString, Args: []program.Arg{program.StringRef(program.Str("case"))}},
			{Opcode: abc.OpPushDouble, Args: []program.Arg{program.DoubleRef(2.5)}},
			{Opcode: abc.OpPushInt, Args: []program.Arg{program.IntRef(-7)}},
			{Opcode: abc.OpPushUInt, Args: []program.Arg{program.UIntRef(9)}},
			{Opcode: abc.OpGetLex, Args: []program.Arg{program.MultinameRef{Multiname: vectorOf(qname("int"))}}},
			{Opcode: abc.OpNewClass, Args: []program.Arg{program.ClassRef(derived)}},
			{Opcode: abc.OpJump, Args: []program.Arg{program.Target{Index: 12}}},
			{Opcode: abc.OpPop},
			{Opcode: abc.OpReturnVoid},
		},
		Exceptions: []program.Exception{{
			From:    abc.Label{Index: 0},
			To:      abc.Label{Index: 10},
			Target:  abc.Label{Index: 11},
			VarName: qname("e"),
		}},
	}})

	orphan := p.AddMethod(&program.Method{Body: &program.MethodBody{
		MaxStack: 1,
		Instructions: []program.Instruction{
			{Opcode: abc.OpNewFunction, Args: []program.Arg{program.MethodRef(fn)}},
			{Opcode: abc.OpReturnValue},
		},
	}})

	p.Scripts = []*program.Script{{
		SInit: sinit,
		Traits: []program.Trait{
			{Name: qname("Derived"), Payload: &program.ClassTrait{SlotID: 1, Class: derived}},
			{Name: qname("Base"), Payload: &program.ClassTrait{SlotID: 2, Class: base}},
			{Name: qname("ratio"), Payload: &program.SlotTrait{SlotID: 3, Type: qname("Number"), Value: program.DoubleValue(1.25)}},
			{Name: qname("flag"), Payload: &program.SlotTrait{SlotID: 4, Value: program.True}},
			{Name: qname("ns"), Payload: &program.SlotTrait{Const: true, SlotID: 5, Value: program.NamespaceValue(nsVec)}},
			{Name: qname("items"), Payload: &program.SlotTrait{SlotID: 6, Type: vectorOf(qname("int"))}},
			{Name: qname("fn"), Payload: &program.FunctionTrait{SlotID: 7, Method: fn}},
		},
	}}
	p.OrphanMethods = []program.MethodID{orphan}
	return p
}

func encode(t *testing.T, p *program.Program) []byte {
	t.Helper()
	f, err := program.ToABC(p)
	if err != nil {
		t.Fatalf("ToABC: %v", err)
	}
	data, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

func decode(t *testing.T, data []byte) *program.Program {
	t.Helper()
	f, err := abc.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p, err := program.FromABC(f)
	if err != nil {
		t.Fatalf("FromABC: %v", err)
	}
	return p
}

func TestRoundTrip(t *testing.T) {
	p := sampleProgram()
	first := encode(t, p)
	reloaded := decode(t, first)

	if !program.Equal(p, reloaded) {
		t.Fatal("reloaded program differs from the original")
	}
	if n := len(reloaded.OrphanMethods); n != 1 {
		t.Fatalf("OrphanMethods = %v, want one", reloaded.OrphanMethods)
	}
	if n := len(reloaded.OrphanClasses); n != 0 {
		t.Errorf("OrphanClasses = %v, want none", reloaded.OrphanClasses)
	}

	second := encode(t, reloaded)
	if !bytes.Equal(first, second) {
		t.Errorf("re-encoding a reloaded program changed the bytes:\n%x\n%x", first, second)
	}

	sinit := reloaded.Method(reloaded.Scripts[0].SInit)
	if sinit.Body == nil {
		t.Fatal("script initializer lost its body")
	}
	if len(sinit.Body.Errors) != 0 {
		t.Errorf("unexpected decode errors: %v", sinit.Body.Errors)
	}
	sw := sinit.Body.Instructions[3].Args
	if sw[0] != program.Target(abc.Label{Index: 5}) {
		t.Errorf("switch default = %v", sw[0])
	}
	if got := sw[1].(program.Targets); len(got) != 2 || got[0] != (abc.Label{Index: 4}) || got[1] != (abc.Label{Index: 6}) {
		t.Errorf("switch targets = %v", got)
	}
}

func TestToABCOrdering(t *testing.T) {
	f, err := program.ToABC(sampleProgram())
	if err != nil {
		t.Fatalf("ToABC: %v", err)
	}

	t.Run("classes follow their superclass", func(t *testing.T) {
		if len(f.Instances) != 2 {
			t.Fatalf("%d instances", len(f.Instances))
		}
		name := func(i int) string {
			mn := f.Multinames[f.Instances[i].Name]
			return f.Strings[mn.Name]
		}
		if name(0) != "Base" || name(1) != "Derived" {
			t.Errorf("instance order = %s, %s", name(0), name(1))
		}
	})

	t.Run("type names follow their components", func(t *testing.T) {
		found := false
		for i, mn := range f.Multinames {
			if mn.Kind != abc.MultinameKindTypeName {
				continue
			}
			found = true
			if int(mn.Base) >= i {
				t.Errorf("type name %d precedes its base %d", i, mn.Base)
			}
			for _, p := range mn.Params {
				if int(p) >= i {
					t.Errorf("type name %d precedes its parameter %d", i, p)
				}
			}
		}
		if !found {
			t.Error("no type name in the multiname pool")
		}
	})

	t.Run("null entries", func(t *testing.T) {
		if f.Ints[0] != abc.NullInt || f.UInts[0] != abc.NullUInt || !abc.IsNullDouble(f.Doubles[0]) {
			t.Error("scalar pools must start with their null sentinel")
		}
		if f.Strings[0] != "" || f.Namespaces[0] != (abc.Namespace{}) || f.Multinames[0].Kind != 0 {
			t.Error("compound pools must start with their null entry")
		}
	})

	t.Run("frequent strings first", func(t *testing.T) {
		// "" names the public namespace and is used once per namespace
		// occurrence, more than any other string
		if f.Strings[1] != "" {
			t.Errorf("Strings[1] = %q", f.Strings[1])
		}
	})

	t.Run("derived method flags", func(t *testing.T) {
		var withOptions int
		for _, m := range f.Methods {
			if m.Flags&abc.MethodHasOptional != 0 {
				withOptions++
				if m.Flags&abc.MethodHasParamNames == 0 || m.Flags&abc.MethodNeedRest == 0 {
					t.Errorf("flags = %#x", m.Flags)
				}
			}
		}
		if withOptions != 1 {
			t.Errorf("%d methods with optional parameters", withOptions)
		}
	})
}

func TestOrphanPreservation(t *testing.T) {
	f := abc.NewFile(abc.DefaultMinorVersion, abc.DefaultMajorVersion)
	f.Strings = append(f.Strings, "A", "B")
	f.Namespaces = append(f.Namespaces, abc.Namespace{Kind: abc.NamespaceKindPackage})
	f.Multinames = append(f.Multinames,
		abc.Multiname{Kind: abc.MultinameKindQName, NS: 1, Name: 1},
		abc.Multiname{Kind: abc.MultinameKindQName, NS: 1, Name: 2},
	)
	// 0: script init, 1-2: class A, 3-4: class B, 5: unreferenced
	f.Methods = make([]abc.MethodInfo, 6)
	f.Instances = []abc.Instance{{Name: 1, IInit: 1}, {Name: 2, IInit: 3}}
	f.Classes = []abc.Class{{CInit: 2}, {CInit: 4}}
	f.Scripts = []abc.Script{{
		SInit:  0,
		Traits: []abc.Trait{{Name: 1, Kind: abc.TraitClass, SlotID: 1, Index: 0}},
	}}

	p, err := program.FromABC(f)
	if err != nil {
		t.Fatalf("FromABC: %v", err)
	}

	if len(p.OrphanClasses) != 1 || p.OrphanClasses[0] != 2 {
		t.Fatalf("OrphanClasses = %v, want [2]", p.OrphanClasses)
	}
	if name := p.Class(p.OrphanClasses[0]).Instance.Name.(*program.QName).Name; name != program.Str("B") {
		t.Errorf("orphan class name = %v", name)
	}
	if len(p.OrphanMethods) != 1 || p.OrphanMethods[0] != 6 {
		t.Errorf("OrphanMethods = %v, want [6]", p.OrphanMethods)
	}
	for _, tr := range p.Scripts[0].Traits {
		if ct, ok := tr.Payload.(*program.ClassTrait); ok && ct.Class == 2 {
			t.Error("script references the orphan class")
		}
	}

	out, err := program.ToABC(p)
	if err != nil {
		t.Fatalf("ToABC: %v", err)
	}
	if len(out.Instances) != 2 || len(out.Methods) != 6 {
		t.Errorf("ToABC kept %d classes and %d methods", len(out.Instances), len(out.Methods))
	}
}

func TestNamespaceIdentity(t *testing.T) {
	f := abc.NewFile(abc.DefaultMinorVersion, abc.DefaultMajorVersion)
	f.Strings = append(f.Strings, "x")
	f.Namespaces = append(f.Namespaces,
		abc.Namespace{Kind: abc.NamespaceKindPrivate, Name: 1},
		abc.Namespace{Kind: abc.NamespaceKindPrivate, Name: 1},
	)
	f.Multinames = append(f.Multinames,
		abc.Multiname{Kind: abc.MultinameKindQName, NS: 1, Name: 1},
		abc.Multiname{Kind: abc.MultinameKindQName, NS: 2, Name: 1},
	)
	f.Methods = make([]abc.MethodInfo, 1)
	f.Scripts = []abc.Script{{Traits: []abc.Trait{
		{Name: 1, Kind: abc.TraitSlot, SlotID: 1},
		{Name: 2, Kind: abc.TraitSlot, SlotID: 2},
	}}}

	p, err := program.FromABC(f)
	if err != nil {
		t.Fatalf("FromABC: %v", err)
	}
	a := p.Scripts[0].Traits[0].Name.(*program.QName).NS
	b := p.Scripts[0].Traits[1].Name.(*program.QName).NS
	if a.ID != 0 || b.ID != 2 {
		t.Errorf("IDs = %d, %d, want 0, 2", a.ID, b.ID)
	}

	out, err := program.ToABC(p)
	if err != nil {
		t.Fatalf("ToABC: %v", err)
	}
	if len(out.Namespaces) != 3 || len(out.Multinames) != 3 {
		t.Errorf("distinct namespaces merged: %d namespaces, %d multinames", len(out.Namespaces), len(out.Multinames))
	}
}

func TestFromABCErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(f *abc.File)
		kind  errors.Kind
	}{
		{
			name: "string out of bounds",
			build: func(f *abc.File) {
				f.Namespaces = append(f.Namespaces, abc.Namespace{Kind: abc.NamespaceKindPackage, Name: 9})
			},
			kind: errors.KindOutOfBounds,
		},
		{
			name: "recursive type name",
			build: func(f *abc.File) {
				f.Multinames = append(f.Multinames, abc.Multiname{Kind: abc.MultinameKindTypeName, Base: 1, Params: []uint32{}})
			},
			kind: errors.KindMalformedConstant,
		},
		{
			name: "method out of bounds",
			build: func(f *abc.File) {
				f.Scripts[0].SInit = 4
			},
			kind: errors.KindOutOfBounds,
		},
		{
			name: "duplicate body",
			build: func(f *abc.File) {
				f.Bodies = []abc.MethodBody{{Method: 0}, {Method: 0}}
			},
			kind: errors.KindInvalidData,
		},
		{
			name: "class table mismatch",
			build: func(f *abc.File) {
				f.Instances = []abc.Instance{{}}
			},
			kind: errors.KindInvalidData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := abc.NewFile(abc.DefaultMinorVersion, abc.DefaultMajorVersion)
			f.Methods = make([]abc.MethodInfo, 1)
			f.Scripts = []abc.Script{{}}
			tt.build(f)
			_, err := program.FromABC(f)
			if !errors.IsKind(err, tt.kind) {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestNullTypeNameBase(t *testing.T) {
	f := abc.NewFile(abc.DefaultMinorVersion, abc.DefaultMajorVersion)
	f.Strings = append(f.Strings, "", "x", "int")
	f.Namespaces = append(f.Namespaces, abc.Namespace{Kind: abc.NamespaceKindPackage, Name: 1})
	f.Multinames = append(f.Multinames,
		abc.Multiname{Kind: abc.MultinameKindQName, NS: 1, Name: 3},
		abc.Multiname{Kind: abc.MultinameKindTypeName, Base: 0, Params: []uint32{1}},
		abc.Multiname{Kind: abc.MultinameKindQName, NS: 1, Name: 2},
	)
	f.Methods = make([]abc.MethodInfo, 1)
	f.Scripts = []abc.Script{{Traits: []abc.Trait{{Name: 3, Kind: abc.TraitSlot, SlotID: 1, TypeName: 2}}}}
	data, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	p := decode(t, data)
	slot := p.Scripts[0].Traits[0].Payload.(*program.SlotTrait)
	tn, ok := slot.Type.(*program.TypeName)
	if !ok || tn.Base != nil || len(tn.Params) != 1 {
		t.Fatalf("slot type = %#v", slot.Type)
	}

	first := encode(t, p)
	reloaded := decode(t, first)
	if !program.Equal(p, reloaded) {
		t.Error("reloaded program differs from the original")
	}
	if second := encode(t, reloaded); !bytes.Equal(first, second) {
		t.Errorf("re-encoding changed the bytes:\n%x\n%x", first, second)
	}
}

func TestGlobalLookupOperands(t *testing.T) {
	f := abc.NewFile(abc.DefaultMinorVersion, abc.DefaultMajorVersion)
	f.Strings = append(f.Strings, "", "rare", "hot")
	f.Namespaces = append(f.Namespaces, abc.Namespace{Kind: abc.NamespaceKindPackage, Name: 1})
	f.Multinames = append(f.Multinames,
		abc.Multiname{Kind: abc.MultinameKindQName, NS: 1, Name: 2},
		abc.Multiname{Kind: abc.MultinameKindQName, NS: 1, Name: 3},
	)
	f.Methods = make([]abc.MethodInfo, 1)
	var code []abc.Instruction
	// findpropglobal rare, pop, findpropglobalstrict hot, pop, returnvoid
	for _, b := range []byte{0x5C, 0x01, 0x29, 0x5B, 0x02, 0x29, 0x47} {
		code = append(code, abc.Instruction{Opcode: abc.OpRaw, Args: []abc.Arg{abc.UByteArg(b)}})
	}
	f.Bodies = []abc.MethodBody{{Method: 0, MaxStack: 1, Instructions: code}}
	f.Scripts = []abc.Script{{Traits: []abc.Trait{{Name: 2, Kind: abc.TraitSlot, SlotID: 1, TypeName: 2}}}}
	data, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	p := decode(t, data)
	body := p.Method(p.Scripts[0].SInit).Body
	want := []struct {
		op   abc.Opcode
		name string
	}{{abc.OpFindPropGlobal, "rare"}, {abc.OpFindPropGlobalStrict, "hot"}}
	if len(body.Instructions) != 5 {
		t.Fatalf("instructions = %v", body.Instructions)
	}
	for i, w := range want {
		in := body.Instructions[2*i]
		if in.Opcode != w.op {
			t.Fatalf("instruction %d = %v, want %v", 2*i, in.Opcode, w.op)
		}
		ref := in.Args[0].(program.MultinameRef)
		if qn, ok := ref.Multiname.(*program.QName); !ok || qn.Name != program.Str(w.name) {
			t.Errorf("instruction %d operand = %#v, want %s", 2*i, ref.Multiname, w.name)
		}
	}

	out, err := abc.Parse(encode(t, p))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	code = out.Bodies[0].Instructions
	for i, w := range want {
		idx := code[2*i].Args[0].(abc.IndexArg)
		if got := out.Strings[out.Multinames[idx].Name]; got != w.name {
			t.Errorf("re-encoded %v refers to %q, want %q", w.op, got, w.name)
		}
	}
}

func TestSuperclassCycle(t *testing.T) {
	p := program.New()
	sinit := p.AddMethod(&program.Method{})
	class := func(name, super string) program.ClassID {
		return p.AddClass(&program.Class{
			CInit:    p.AddMethod(&program.Method{}),
			Instance: program.Instance{Name: qname(name), SuperName: qname(super), IInit: p.AddMethod(&program.Method{})},
		})
	}
	a := class("A", "B")
	b := class("B", "A")
	p.Scripts = []*program.Script{{SInit: sinit, Traits: []program.Trait{
		{Name: qname("A"), Payload: &program.ClassTrait{Class: a}},
		{Name: qname("B"), Payload: &program.ClassTrait{Class: b}},
	}}}

	f, err := program.ToABC(p)
	if err != nil {
		t.Fatalf("ToABC: %v", err)
	}
	if len(f.Instances) != 2 {
		t.Fatalf("Instances = %d, want 2", len(f.Instances))
	}
	first := encode(t, p)
	reloaded := decode(t, first)
	if !program.Equal(p, reloaded) {
		t.Error("reloaded program differs from the original")
	}
	if second := encode(t, reloaded); !bytes.Equal(first, second) {
		t.Errorf("re-encoding changed the bytes:\n%x\n%x", first, second)
	}
}

func TestToABCErrors(t *testing.T) {
	t.Run("missing method", func(t *testing.T) {
		p := program.New()
		p.Scripts = []*program.Script{{SInit: 7}}
		if _, err := program.ToABC(p); !errors.IsKind(err, errors.KindNotFound) {
			t.Errorf("expected not_found, got %v", err)
		}
	})

	t.Run("parameter name count", func(t *testing.T) {
		p := program.New()
		m := p.AddMethod(&program.Method{ParamNames: []program.NullString{program.Str("a")}})
		p.Scripts = []*program.Script{{SInit: m}}
		if _, err := program.ToABC(p); !errors.IsKind(err, errors.KindEncodeConstraint) {
			t.Errorf("expected encode_constraint, got %v", err)
		}
	})

	t.Run("int out of range", func(t *testing.T) {
		p := program.New()
		m := p.AddMethod(&program.Method{Options: []program.Value{program.IntValue(1 << 40)}})
		p.Scripts = []*program.Script{{SInit: m}}
		if _, err := program.ToABC(p); !errors.IsKind(err, errors.KindOverflow) {
			t.Errorf("expected overflow, got %v", err)
		}
	})
}
