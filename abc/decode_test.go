package abc_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/gemforce-team/abcedit/abc"
	"github.com/gemforce-team/abcedit/errors"
)

var header = []byte{0x10, 0x00, 0x2e, 0x00}

func emptyDocument() []byte {
	data := append([]byte(nil), header...)
	// seven pools, methods, metadata, instances, scripts, bodies
	return append(data, make([]byte, 12)...)
}

func sampleFile() *abc.File {
	f := abc.NewFile(abc.DefaultMinorVersion, abc.DefaultMajorVersion)
	f.Ints = append(f.Ints, -5, 100000)
	f.UInts = append(f.UInts, 7)
	f.Doubles = append(f.Doubles, 1.5)
	f.Strings = append(f.Strings, "", "Object", "foo")
	f.Namespaces = append(f.Namespaces,
		abc.Namespace{Kind: abc.NamespaceKindPackage, Name: 1},
		abc.Namespace{Kind: abc.NamespaceKindPrivate, Name: 3},
	)
	f.NamespaceSets = append(f.NamespaceSets, []uint32{1, 2})
	f.Multinames = append(f.Multinames,
		abc.Multiname{Kind: abc.MultinameKindQName, NS: 1, Name: 2},
		abc.Multiname{Kind: abc.MultinameKindMultiname, Name: 3, NSSet: 1},
		abc.Multiname{Kind: abc.MultinameKindRTQNameL},
		abc.Multiname{Kind: abc.MultinameKindTypeName, Base: 1, Params: []uint32{2}},
		abc.Multiname{Kind: abc.MultinameKindMultinameLA, NSSet: 1},
		abc.Multiname{Kind: abc.MultinameKindRTQName, Name: 3},
	)
	f.Methods = []abc.MethodInfo{
		{
			ParamTypes: []uint32{1, 2},
			ReturnType: 1,
			Name:       3,
			Flags:      abc.MethodHasOptional | abc.MethodHasParamNames,
			Options:    []abc.OptionDetail{{Value: 1, Kind: abc.ConstantInt}},
			ParamNames: []uint32{2, 3},
		},
		{},
		{Flags: abc.MethodNeedRest},
	}
	f.Metadata = []abc.Metadata{{Name: 3, Items: []abc.MetadataItem{{Key: 2, Value: 3}}}}
	f.Instances = []abc.Instance{{
		Name:        1,
		Flags:       abc.InstanceSealed | abc.InstanceProtectedNS,
		ProtectedNS: 2,
		Interfaces:  []uint32{2},
		IInit:       1,
		Traits: []abc.Trait{
			{Name: 1, Kind: abc.TraitSlot, SlotID: 1, TypeName: 1, Value: abc.OptionDetail{Value: 1, Kind: abc.ConstantInt}},
			{Name: 2, Kind: abc.TraitMethod, Attributes: abc.TraitAttrFinal | abc.TraitAttrMetadata, Index: 0, Metadata: []uint32{0}},
		},
	}}
	f.Classes = []abc.Class{{
		CInit:  2,
		Traits: []abc.Trait{{Name: 6, Kind: abc.TraitConst}},
	}}
	f.Scripts = []abc.Script{{
		SInit:  0,
		Traits: []abc.Trait{{Name: 1, Kind: abc.TraitClass, SlotID: 1, Index: 0}},
	}}
	f.Bodies = []abc.MethodBody{{
		Method:        0,
		MaxStack:      2,
		LocalCount:    3,
		MaxScopeDepth: 1,
		Instructions: []abc.Instruction{
			{Opcode: abc.OpGetLocal0},
			{Opcode: abc.OpPushScope},
			{Opcode: abc.OpPushString, Args: []abc.Arg{abc.IndexArg(3)}},
			{Opcode: abc.OpPop},
			{Opcode: abc.OpReturnVoid},
		},
		Exceptions: []abc.Exception{{
			From:    abc.Label{Index: 0},
			To:      abc.Label{Index: 3},
			Target:  abc.Label{Index: 4},
			ExcType: 1,
			VarName: 2,
		}},
	}}
	return f
}

func TestParseEmptyDocument(t *testing.T) {
	data := emptyDocument()
	f, err := abc.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if f.MinorVersion != 16 || f.MajorVersion != 46 {
		t.Errorf("version = %d.%d", f.MajorVersion, f.MinorVersion)
	}
	if len(f.Ints) != 1 || f.Ints[0] != abc.NullInt {
		t.Errorf("Ints = %v", f.Ints)
	}
	if len(f.UInts) != 1 || f.UInts[0] != abc.NullUInt {
		t.Errorf("UInts = %v", f.UInts)
	}
	if len(f.Doubles) != 1 || !abc.IsNullDouble(f.Doubles[0]) {
		t.Errorf("Doubles = %v", f.Doubles)
	}
	if len(f.Strings) != 1 || len(f.Namespaces) != 1 || len(f.NamespaceSets) != 1 || len(f.Multinames) != 1 {
		t.Error("compound pools must hold exactly the null entry")
	}

	out, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("Encode = %x, want %x", out, data)
	}
}

func TestParsePoolCountOne(t *testing.T) {
	data := emptyDocument()
	data[4] = 0x01
	f, err := abc.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.Ints) != 1 {
		t.Errorf("Ints = %v, want null entry only", f.Ints)
	}
}

func TestFileRoundTrip(t *testing.T) {
	first, err := sampleFile().Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	f, err := abc.Parse(first)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	second, err := f.Encode()
	if err != nil {
		t.Fatalf("re-Encode: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("round trip differs:\n%x\n%x", first, second)
	}

	t.Run("pools", func(t *testing.T) {
		if f.Ints[1] != -5 || f.Ints[2] != 100000 || f.UInts[1] != 7 {
			t.Errorf("ints = %v, uints = %v", f.Ints, f.UInts)
		}
		if math.Float64bits(f.Doubles[1]) != math.Float64bits(1.5) {
			t.Errorf("doubles = %v", f.Doubles)
		}
		if f.Strings[1] != "" || f.Strings[2] != "Object" {
			t.Errorf("strings = %q", f.Strings)
		}
		if f.Namespaces[2].Kind != abc.NamespaceKindPrivate {
			t.Errorf("namespaces = %+v", f.Namespaces)
		}
		tn := f.Multinames[4]
		if tn.Kind != abc.MultinameKindTypeName || tn.Base != 1 || len(tn.Params) != 1 || tn.Params[0] != 2 {
			t.Errorf("typename = %+v", tn)
		}
	})

	t.Run("methods", func(t *testing.T) {
		m := f.Methods[0]
		if len(m.Options) != 1 || m.Options[0].Kind != abc.ConstantInt {
			t.Errorf("options = %+v", m.Options)
		}
		if len(m.ParamNames) != 2 || m.ParamNames[1] != 3 {
			t.Errorf("param names = %v", m.ParamNames)
		}
		if f.Methods[2].Flags != abc.MethodNeedRest {
			t.Errorf("flags = %v", f.Methods[2].Flags)
		}
	})

	t.Run("traits", func(t *testing.T) {
		inst := f.Instances[0]
		if inst.ProtectedNS != 2 || len(inst.Interfaces) != 1 {
			t.Errorf("instance = %+v", inst)
		}
		mt := inst.Traits[1]
		if mt.Kind != abc.TraitMethod || mt.Attributes != abc.TraitAttrFinal|abc.TraitAttrMetadata || len(mt.Metadata) != 1 {
			t.Errorf("method trait = %+v", mt)
		}
		if c := f.Classes[0].Traits[0]; c.Kind != abc.TraitConst || c.Value.Value != 0 {
			t.Errorf("class trait = %+v", c)
		}
	})

	t.Run("bodies", func(t *testing.T) {
		b := f.Bodies[0]
		if len(b.Instructions) != 5 || b.Instructions[2].Args[0] != abc.IndexArg(3) {
			t.Errorf("instructions = %+v", b.Instructions)
		}
		e := b.Exceptions[0]
		if e.From != (abc.Label{Index: 0}) || e.To != (abc.Label{Index: 3}) || e.Target != (abc.Label{Index: 4}) {
			t.Errorf("exception = %+v", e)
		}
		if len(b.Errors) != 0 {
			t.Errorf("errors = %+v", b.Errors)
		}
	})
}

func TestEncodeSugarLocals(t *testing.T) {
	f := abc.NewFile(abc.DefaultMinorVersion, abc.DefaultMajorVersion)
	f.Methods = []abc.MethodInfo{{}}
	f.Bodies = []abc.MethodBody{{
		Instructions: []abc.Instruction{
			{Opcode: abc.OpGetLocal, Args: []abc.Arg{abc.UIntArg(1)}},
			{Opcode: abc.OpReturnValue},
		},
	}}

	plain, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	sugared, err := f.EncodeWith(abc.EncodeOptions{SugarLocals: true})
	if err != nil {
		t.Fatalf("EncodeWith: %v", err)
	}
	if len(sugared) != len(plain)-1 {
		t.Errorf("sugared length %d, plain %d", len(sugared), len(plain))
	}
	if !bytes.Contains(sugared, []byte{0x02, 0xd1, 0x48}) {
		t.Errorf("sugared code missing getlocal1: %x", sugared)
	}
	if f.Bodies[0].Instructions[0].Opcode != abc.OpGetLocal {
		t.Error("EncodeWith modified the document")
	}
}

func TestEncodeConstraints(t *testing.T) {
	t.Run("param names", func(t *testing.T) {
		f := abc.NewFile(16, 46)
		f.Methods = []abc.MethodInfo{{
			ParamTypes: []uint32{0, 0},
			Flags:      abc.MethodHasParamNames,
			ParamNames: []uint32{0},
		}}
		if _, err := f.Encode(); !errors.IsKind(err, errors.KindEncodeConstraint) {
			t.Errorf("expected encode_constraint, got %v", err)
		}
	})

	t.Run("class count", func(t *testing.T) {
		f := abc.NewFile(16, 46)
		f.Instances = []abc.Instance{{}}
		if _, err := f.Encode(); !errors.IsKind(err, errors.KindEncodeConstraint) {
			t.Errorf("expected encode_constraint, got %v", err)
		}
	})

	t.Run("negative exception offset", func(t *testing.T) {
		f := abc.NewFile(16, 46)
		f.Methods = []abc.MethodInfo{{}}
		f.Bodies = []abc.MethodBody{{
			Instructions: []abc.Instruction{{Opcode: abc.OpReturnVoid}},
			Exceptions:   []abc.Exception{{From: abc.Label{Offset: -1}}},
		}}
		if _, err := f.Encode(); !errors.IsKind(err, errors.KindEncodeConstraint) {
			t.Errorf("expected encode_constraint, got %v", err)
		}
	})
}

func TestParseErrors(t *testing.T) {
	valid, err := sampleFile().Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tests := []struct {
		name string
		data []byte
		kind errors.Kind
	}{
		{"empty", nil, errors.KindOutOfData},
		{"truncated", valid[:len(valid)-1], errors.KindOutOfData},
		{"trailing", append(emptyDocument(), 0xff), errors.KindInvalidData},
		{"unknown multiname kind", append(append([]byte(nil), header...), 0, 0, 0, 0, 0, 0, 0x02, 0x42), errors.KindMalformedConstant},
		{"unknown namespace kind", append(append([]byte(nil), header...), 0, 0, 0, 0, 0x02, 0x01, 0x00), errors.KindMalformedConstant},
		{"huge count", append(append([]byte(nil), header...), 0xff, 0xff, 0x0f), errors.KindOutOfData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := abc.Parse(tt.data)
			if !errors.IsKind(err, tt.kind) {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}
