package program

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/gemforce-team/abcedit/abc"
	"github.com/gemforce-team/abcedit/errors"
)

// FromABC builds the object graph of f. Classes and methods keep their table
// order in the arena: the class at index i gets ClassID(i+1), the method at
// index i gets MethodID(i+1). Classes and methods not reachable from any
// script are recorded as orphans.
func FromABC(f *abc.File) (*Program, error) {
	if len(f.Classes) != len(f.Instances) {
		return nil, errors.InvalidData(errors.PhaseLoad, []string{"classes"},
			fmt.Sprintf("%d classes for %d instances", len(f.Classes), len(f.Instances)))
	}

	l := &loader{f: f}
	if err := l.loadPools(); err != nil {
		return nil, err
	}

	p := &Program{MinorVersion: f.MinorVersion, MajorVersion: f.MajorVersion}
	for i := range f.Methods {
		m, err := l.method(i)
		if err != nil {
			return nil, err
		}
		p.methods = append(p.methods, m)
	}
	for i := range f.Bodies {
		if err := l.body(p, i); err != nil {
			return nil, err
		}
	}
	for i := range f.Instances {
		c, err := l.class(i)
		if err != nil {
			return nil, err
		}
		p.classes = append(p.classes, c)
	}
	for i, s := range f.Scripts {
		path := []string{"scripts", strconv.Itoa(i)}
		sinit, err := l.methodID(s.SInit, path...)
		if err != nil {
			return nil, err
		}
		traits, err := l.traits(s.Traits, path)
		if err != nil {
			return nil, err
		}
		p.Scripts = append(p.Scripts, &Script{SInit: sinit, Traits: traits})
	}

	collectOrphans(p)
	Logger().Debug("loaded program",
		zap.Int("scripts", len(p.Scripts)),
		zap.Int("classes", len(p.classes)),
		zap.Int("methods", len(p.methods)),
		zap.Int("orphan_classes", len(p.OrphanClasses)),
		zap.Int("orphan_methods", len(p.OrphanMethods)))
	return p, nil
}

// collectOrphans fills the orphan lists with the arena entries that the
// scripts do not reach. Orphan classes are collected first so that methods
// owned by an orphan class are not listed again.
func collectOrphans(p *Program) {
	reachedClass := make(map[ClassID]bool)
	reachedMethod := make(map[MethodID]bool)
	markClass := func(id ClassID, _ *Class) { reachedClass[id] = true }
	markMethod := func(id MethodID, _ *Method) { reachedMethod[id] = true }

	p.Walk(markClass, markMethod)
	for i := range p.classes {
		if id := ClassID(i + 1); !reachedClass[id] {
			p.OrphanClasses = append(p.OrphanClasses, id)
		}
	}
	p.Walk(markClass, markMethod)
	for i := range p.methods {
		if id := MethodID(i + 1); !reachedMethod[id] {
			p.OrphanMethods = append(p.OrphanMethods, id)
		}
	}
}

type loader struct {
	f *abc.File

	namespaces []Namespace
	nssets     []NamespaceSet
	multinames []Multiname
	metadata   []*Metadata
}

func (l *loader) loadPools() error {
	l.namespaces = make([]Namespace, len(l.f.Namespaces))
	type nsKey struct {
		kind abc.NamespaceKind
		name uint32
	}
	seen := make(map[nsKey]bool)
	for i := 1; i < len(l.f.Namespaces); i++ {
		ns := l.f.Namespaces[i]
		name, err := l.str(ns.Name, "namespaces", strconv.Itoa(i))
		if err != nil {
			return err
		}
		if !ns.Kind.Valid() {
			return errors.InvalidKind(errors.PhaseLoad, []string{"namespaces", strconv.Itoa(i)}, "namespace", byte(ns.Kind))
		}
		g := Namespace{Kind: ns.Kind, Name: name}
		k := nsKey{ns.Kind, ns.Name}
		if seen[k] {
			g.ID = uint32(i)
		}
		seen[k] = true
		l.namespaces[i] = g
	}

	l.nssets = make([]NamespaceSet, len(l.f.NamespaceSets))
	for i := 1; i < len(l.f.NamespaceSets); i++ {
		set := make(NamespaceSet, len(l.f.NamespaceSets[i]))
		for j, idx := range l.f.NamespaceSets[i] {
			ns, err := l.namespace(idx, "namespace_sets", strconv.Itoa(i), strconv.Itoa(j))
			if err != nil {
				return err
			}
			set[j] = ns
		}
		l.nssets[i] = set
	}

	l.multinames = make([]Multiname, len(l.f.Multinames))
	state := make([]byte, len(l.f.Multinames))
	for i := 1; i < len(l.f.Multinames); i++ {
		if _, err := l.resolveMultiname(uint32(i), state); err != nil {
			return err
		}
	}

	l.metadata = make([]*Metadata, len(l.f.Metadata))
	for i, md := range l.f.Metadata {
		path := []string{"metadata", strconv.Itoa(i)}
		name, err := l.str(md.Name, path...)
		if err != nil {
			return err
		}
		g := &Metadata{Name: name, Items: make([]MetadataItem, len(md.Items))}
		for j, it := range md.Items {
			if g.Items[j].Key, err = l.str(it.Key, path...); err != nil {
				return err
			}
			if g.Items[j].Value, err = l.str(it.Value, path...); err != nil {
				return err
			}
		}
		l.metadata[i] = g
	}
	return nil
}

// resolveMultiname converts multiname i, resolving TypeName components first.
// state tracks in-progress entries: 1 while resolving, 2 when done.
func (l *loader) resolveMultiname(i uint32, state []byte) (Multiname, error) {
	if i == 0 {
		return nil, nil
	}
	path := []string{"multinames", strconv.Itoa(int(i))}
	if int(i) >= len(l.f.Multinames) {
		return nil, errors.OutOfBounds(errors.PhaseLoad, path, int(i), len(l.f.Multinames))
	}
	switch state[i] {
	case 1:
		return nil, errors.MalformedConstant(errors.PhaseLoad, path, "recursive type name")
	case 2:
		return l.multinames[i], nil
	}
	state[i] = 1

	mn := l.f.Multinames[i]
	attr := mn.Kind.IsAttribute()
	var (
		g   Multiname
		err error
	)
	switch mn.Kind {
	case abc.MultinameKindQName, abc.MultinameKindQNameA:
		n := &QName{Attribute: attr}
		if n.NS, err = l.namespace(mn.NS, path...); err == nil {
			n.Name, err = l.str(mn.Name, path...)
		}
		g = n
	case abc.MultinameKindRTQName, abc.MultinameKindRTQNameA:
		n := &RTQName{Attribute: attr}
		n.Name, err = l.str(mn.Name, path...)
		g = n
	case abc.MultinameKindRTQNameL, abc.MultinameKindRTQNameLA:
		g = &RTQNameL{Attribute: attr}
	case abc.MultinameKindMultiname, abc.MultinameKindMultinameA:
		n := &NSSetName{Attribute: attr}
		if n.Name, err = l.str(mn.Name, path...); err == nil {
			n.NSSet, err = l.nsset(mn.NSSet, path...)
		}
		g = n
	case abc.MultinameKindMultinameL, abc.MultinameKindMultinameLA:
		n := &NSSetNameL{Attribute: attr}
		n.NSSet, err = l.nsset(mn.NSSet, path...)
		g = n
	case abc.MultinameKindTypeName:
		n := &TypeName{Params: make([]Multiname, len(mn.Params))}
		if n.Base, err = l.resolveMultiname(mn.Base, state); err == nil {
			for j, p := range mn.Params {
				if n.Params[j], err = l.resolveMultiname(p, state); err != nil {
					break
				}
			}
		}
		g = n
	default:
		return nil, errors.InvalidKind(errors.PhaseLoad, path, "multiname", byte(mn.Kind))
	}
	if err != nil {
		return nil, err
	}
	l.multinames[i] = g
	state[i] = 2
	return g, nil
}

func (l *loader) str(i uint32, path ...string) (NullString, error) {
	if i == 0 {
		return NullString{}, nil
	}
	if int(i) >= len(l.f.Strings) {
		return NullString{}, errors.OutOfBounds(errors.PhaseLoad, append(path, "string"), int(i), len(l.f.Strings))
	}
	return Str(l.f.Strings[i]), nil
}

func (l *loader) namespace(i uint32, path ...string) (Namespace, error) {
	if int(i) >= len(l.f.Namespaces) {
		return Namespace{}, errors.OutOfBounds(errors.PhaseLoad, append(path, "namespace"), int(i), len(l.f.Namespaces))
	}
	return l.namespaces[i], nil
}

func (l *loader) nsset(i uint32, path ...string) (NamespaceSet, error) {
	if int(i) >= len(l.f.NamespaceSets) {
		return nil, errors.OutOfBounds(errors.PhaseLoad, append(path, "namespace_set"), int(i), len(l.f.NamespaceSets))
	}
	return l.nssets[i], nil
}

func (l *loader) multiname(i uint32, path ...string) (Multiname, error) {
	if int(i) >= len(l.f.Multinames) {
		return nil, errors.OutOfBounds(errors.PhaseLoad, append(path, "multiname"), int(i), len(l.f.Multinames))
	}
	return l.multinames[i], nil
}

func (l *loader) multinameList(idx []uint32, path ...string) ([]Multiname, error) {
	if idx == nil {
		return nil, nil
	}
	out := make([]Multiname, len(idx))
	for i, v := range idx {
		m, err := l.multiname(v, path...)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

func (l *loader) classID(i uint32, path ...string) (ClassID, error) {
	if int(i) >= len(l.f.Instances) {
		return 0, errors.OutOfBounds(errors.PhaseLoad, append(path, "class"), int(i), len(l.f.Instances))
	}
	return ClassID(i + 1), nil
}

func (l *loader) methodID(i uint32, path ...string) (MethodID, error) {
	if int(i) >= len(l.f.Methods) {
		return 0, errors.OutOfBounds(errors.PhaseLoad, append(path, "method"), int(i), len(l.f.Methods))
	}
	return MethodID(i + 1), nil
}

func (l *loader) value(v abc.OptionDetail, path ...string) (Value, error) {
	switch v.Kind {
	case abc.ConstantInt:
		if int(v.Value) >= len(l.f.Ints) {
			return nil, errors.OutOfBounds(errors.PhaseLoad, append(path, "int"), int(v.Value), len(l.f.Ints))
		}
		return IntValue(l.f.Ints[v.Value]), nil
	case abc.ConstantUInt:
		if int(v.Value) >= len(l.f.UInts) {
			return nil, errors.OutOfBounds(errors.PhaseLoad, append(path, "uint"), int(v.Value), len(l.f.UInts))
		}
		return UIntValue(l.f.UInts[v.Value]), nil
	case abc.ConstantDouble:
		if int(v.Value) >= len(l.f.Doubles) {
			return nil, errors.OutOfBounds(errors.PhaseLoad, append(path, "double"), int(v.Value), len(l.f.Doubles))
		}
		return DoubleValue(l.f.Doubles[v.Value]), nil
	case abc.ConstantUtf8:
		s, err := l.str(v.Value, path...)
		return StringValue(s), err
	case abc.ConstantUndefined, abc.ConstantTrue, abc.ConstantFalse, abc.ConstantNull:
		return SpecialValue(v.Kind), nil
	}
	if abc.NamespaceKind(v.Kind).Valid() {
		ns, err := l.namespace(v.Value, path...)
		return NamespaceValue(ns), err
	}
	return nil, errors.InvalidKind(errors.PhaseLoad, path, "constant", byte(v.Kind))
}

func (l *loader) method(i int) (*Method, error) {
	mi := l.f.Methods[i]
	path := []string{"methods", strconv.Itoa(i)}
	m := &Method{Flags: mi.Flags}
	var err error
	if m.ParamTypes, err = l.multinameList(mi.ParamTypes, path...); err != nil {
		return nil, err
	}
	if m.ReturnType, err = l.multiname(mi.ReturnType, path...); err != nil {
		return nil, err
	}
	if m.Name, err = l.str(mi.Name, path...); err != nil {
		return nil, err
	}
	if mi.Flags&abc.MethodHasOptional != 0 {
		m.Options = make([]Value, len(mi.Options))
		for j, o := range mi.Options {
			if m.Options[j], err = l.value(o, append(path, "options", strconv.Itoa(j))...); err != nil {
				return nil, err
			}
		}
	}
	if mi.Flags&abc.MethodHasParamNames != 0 {
		m.ParamNames = make([]NullString, len(mi.ParamNames))
		for j, n := range mi.ParamNames {
			if m.ParamNames[j], err = l.str(n, path...); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (l *loader) class(i int) (*Class, error) {
	inst := l.f.Instances[i]
	cls := l.f.Classes[i]
	path := []string{"instances", strconv.Itoa(i)}
	c := &Class{}
	var err error
	in := &c.Instance
	in.Flags = inst.Flags
	if in.Name, err = l.multiname(inst.Name, path...); err != nil {
		return nil, err
	}
	if in.SuperName, err = l.multiname(inst.SuperName, path...); err != nil {
		return nil, err
	}
	if inst.Flags&abc.InstanceProtectedNS != 0 {
		if in.ProtectedNS, err = l.namespace(inst.ProtectedNS, path...); err != nil {
			return nil, err
		}
	}
	if in.Interfaces, err = l.multinameList(inst.Interfaces, path...); err != nil {
		return nil, err
	}
	if in.IInit, err = l.methodID(inst.IInit, path...); err != nil {
		return nil, err
	}
	if in.Traits, err = l.traits(inst.Traits, path); err != nil {
		return nil, err
	}

	path = []string{"classes", strconv.Itoa(i)}
	if c.CInit, err = l.methodID(cls.CInit, path...); err != nil {
		return nil, err
	}
	if c.Traits, err = l.traits(cls.Traits, path); err != nil {
		return nil, err
	}
	return c, nil
}

func (l *loader) traits(ts []abc.Trait, owner []string) ([]Trait, error) {
	if len(ts) == 0 {
		return nil, nil
	}
	out := make([]Trait, len(ts))
	for i, t := range ts {
		path := append(append([]string(nil), owner...), "traits", strconv.Itoa(i))
		g, err := l.trait(t, path)
		if err != nil {
			return nil, err
		}
		out[i] = g
	}
	return out, nil
}

func (l *loader) trait(t abc.Trait, path []string) (Trait, error) {
	g := Trait{Attributes: t.Attributes}
	var err error
	if g.Name, err = l.multiname(t.Name, path...); err != nil {
		return g, err
	}
	for _, md := range t.Metadata {
		if int(md) >= len(l.metadata) {
			return g, errors.OutOfBounds(errors.PhaseLoad, append(path, "metadata"), int(md), len(l.metadata))
		}
		g.Metadata = append(g.Metadata, l.metadata[md])
	}

	switch t.Kind {
	case abc.TraitSlot, abc.TraitConst:
		s := &SlotTrait{Const: t.Kind == abc.TraitConst, SlotID: t.SlotID}
		if s.Type, err = l.multiname(t.TypeName, path...); err != nil {
			return g, err
		}
		if t.Value.Value != 0 {
			if s.Value, err = l.value(t.Value, path...); err != nil {
				return g, err
			}
		}
		g.Payload = s
	case abc.TraitClass:
		c := &ClassTrait{SlotID: t.SlotID}
		c.Class, err = l.classID(t.Index, path...)
		g.Payload = c
	case abc.TraitFunction:
		fn := &FunctionTrait{SlotID: t.SlotID}
		fn.Method, err = l.methodID(t.Index, path...)
		g.Payload = fn
	case abc.TraitMethod, abc.TraitGetter, abc.TraitSetter:
		m := &MethodTrait{Kind: t.Kind, DispID: t.SlotID}
		m.Method, err = l.methodID(t.Index, path...)
		g.Payload = m
	default:
		return g, errors.InvalidKind(errors.PhaseLoad, path, "trait", byte(t.Kind))
	}
	return g, err
}

func (l *loader) body(p *Program, i int) error {
	b := l.f.Bodies[i]
	path := []string{"bodies", strconv.Itoa(i)}
	id, err := l.methodID(b.Method, path...)
	if err != nil {
		return err
	}
	m := p.methods[id-1]
	if m.Body != nil {
		return errors.InvalidData(errors.PhaseLoad, path,
			fmt.Sprintf("method %d already has a body", b.Method))
	}

	g := &MethodBody{
		Method:         id,
		MaxStack:       b.MaxStack,
		LocalCount:     b.LocalCount,
		InitScopeDepth: b.InitScopeDepth,
		MaxScopeDepth:  b.MaxScopeDepth,
		Errors:         b.Errors,
	}
	g.Instructions = make([]Instruction, len(b.Instructions))
	for j, in := range b.Instructions {
		if g.Instructions[j], err = l.instruction(in, append(path, "instructions", strconv.Itoa(j))); err != nil {
			return err
		}
	}
	for j, e := range b.Exceptions {
		x := Exception{From: e.From, To: e.To, Target: e.Target}
		epath := append(path, "exceptions", strconv.Itoa(j))
		if x.ExcType, err = l.multiname(e.ExcType, epath...); err != nil {
			return err
		}
		if x.VarName, err = l.multiname(e.VarName, epath...); err != nil {
			return err
		}
		g.Exceptions = append(g.Exceptions, x)
	}
	if g.Traits, err = l.traits(b.Traits, path); err != nil {
		return err
	}
	m.Body = g
	return nil
}

func (l *loader) instruction(in abc.Instruction, path []string) (Instruction, error) {
	operands := abc.Info(in.Opcode).Operands
	if len(operands) != len(in.Args) {
		return Instruction{}, errors.New(errors.PhaseLoad, errors.KindMalformedInstruction).
			Path(path...).
			Detail("%s: %d operands, want %d", in.Opcode, len(in.Args), len(operands)).
			Build()
	}
	g := Instruction{Opcode: in.Opcode}
	if len(in.Args) == 0 {
		return g, nil
	}
	g.Args = make([]Arg, len(in.Args))
	for i, a := range in.Args {
		arg, err := l.arg(operands[i], a, path)
		if err != nil {
			return g, err
		}
		g.Args[i] = arg
	}
	return g, nil
}

func (l *loader) arg(t abc.OperandType, a abc.Arg, path []string) (Arg, error) {
	mismatch := func() error {
		return errors.New(errors.PhaseLoad, errors.KindMalformedInstruction).
			Path(path...).
			Detail("operand %s holds %T", t, a).
			Build()
	}
	switch a := a.(type) {
	case abc.ByteArg:
		return ByteLit(a), nil
	case abc.UByteArg:
		return UByteLit(a), nil
	case abc.IntArg:
		return IntLit(a), nil
	case abc.UIntArg:
		return UIntLit(a), nil
	case abc.Label:
		return Target(a), nil
	case abc.Labels:
		return Targets(a), nil
	case abc.IndexArg:
		i := uint32(a)
		if n := l.f.PoolLen(t); n >= 0 && int(i) >= n {
			return nil, errors.OutOfBounds(errors.PhaseLoad, append(path, t.String()), int(i), n)
		}
		switch t {
		case abc.OperandInt:
			return IntRef(l.f.Ints[i]), nil
		case abc.OperandUInt:
			return UIntRef(l.f.UInts[i]), nil
		case abc.OperandDouble:
			return DoubleRef(l.f.Doubles[i]), nil
		case abc.OperandString:
			s, err := l.str(i, path...)
			return StringRef(s), err
		case abc.OperandNamespace:
			return NamespaceRef(l.namespaces[i]), nil
		case abc.OperandMultiname:
			return MultinameRef{l.multinames[i]}, nil
		case abc.OperandClass:
			return ClassRef(i + 1), nil
		case abc.OperandMethod:
			return MethodRef(i + 1), nil
		}
	}
	return nil, mismatch()
}
