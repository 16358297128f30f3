package program

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/gemforce-team/abcedit/abc"
	"github.com/gemforce-team/abcedit/errors"
	"github.com/gemforce-team/abcedit/program/internal/pool"
)

// ToABC flattens p into ABC tables. Every value reachable from the scripts
// and orphan lists is pooled; pools are ordered by use count, with
// parameterized names after their components and classes after their
// superclass and interfaces.
func ToABC(p *Program) (*abc.File, error) {
	b := newBuilder(p)
	b.visitProgram()
	if b.err != nil {
		return nil, b.err
	}
	b.registerClassDependencies()
	b.finalize()
	f, err := b.render()
	if err != nil {
		return nil, err
	}
	Logger().Debug("flattened program",
		zap.Int("ints", len(f.Ints)),
		zap.Int("uints", len(f.UInts)),
		zap.Int("doubles", len(f.Doubles)),
		zap.Int("strings", len(f.Strings)),
		zap.Int("namespaces", len(f.Namespaces)),
		zap.Int("namespace_sets", len(f.NamespaceSets)),
		zap.Int("multinames", len(f.Multinames)),
		zap.Int("metadata", len(f.Metadata)),
		zap.Int("classes", len(f.Instances)),
		zap.Int("methods", len(f.Methods)),
		zap.Int("bodies", len(f.Bodies)))
	return f, nil
}

type builder struct {
	p   *Program
	err error

	ints       *pool.Pool[int64, int64]
	uints      *pool.Pool[uint64, uint64]
	doubles    *pool.Pool[uint64, float64]
	strings    *pool.Pool[NullString, string]
	namespaces *pool.Pool[Namespace, Namespace]
	nssets     *pool.Pool[string, NamespaceSet]
	multinames *pool.Pool[string, Multiname]
	metadata   *pool.Pool[string, *Metadata]
	classes    *pool.Pool[ClassID, ClassID]
	methods    *pool.Pool[MethodID, MethodID]
}

func newBuilder(p *Program) *builder {
	return &builder{
		p: p,
		ints: pool.New[int64, int64]("ints",
			func(v int64) bool { return v == abc.NullInt },
			func(a, b int64) bool { return a < b }),
		uints: pool.New[uint64, uint64]("uints",
			func(v uint64) bool { return v == abc.NullUInt },
			func(a, b uint64) bool { return a < b }),
		doubles: pool.New[uint64, float64]("doubles",
			func(bits uint64) bool { return abc.IsNullDouble(math.Float64frombits(bits)) },
			doubleLess),
		strings: pool.New[NullString, string]("strings",
			func(s NullString) bool { return !s.Valid },
			func(a, b string) bool { return a < b }),
		namespaces: pool.New[Namespace, Namespace]("namespaces",
			Namespace.IsNull,
			namespaceLess),
		nssets: pool.New[string, NamespaceSet]("namespace_sets",
			func(k string) bool { return k == "" },
			func(a, b NamespaceSet) bool { return a.key() < b.key() }),
		multinames: pool.New[string, Multiname]("multinames",
			func(k string) bool { return k == "" },
			func(a, b Multiname) bool { return multinameKey(a) < multinameKey(b) }),
		metadata: pool.New[string, *Metadata]("metadata", nil,
			func(a, b *Metadata) bool { return a.key() < b.key() }),
		classes: pool.New[ClassID, ClassID]("classes", nil, nil),
		methods: pool.New[MethodID, MethodID]("methods", nil, nil),
	}
}

func doubleLess(a, b float64) bool {
	if a < b {
		return true
	}
	if a > b || a == b {
		return false
	}
	return math.Float64bits(a) < math.Float64bits(b)
}

func namespaceLess(a, b Namespace) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Name != b.Name {
		if a.Name.Valid != b.Name.Valid {
			return !a.Name.Valid
		}
		return a.Name.Value < b.Name.Value
	}
	return a.ID < b.ID
}

func (b *builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Visiting

func (b *builder) visitProgram() {
	for i, s := range b.p.Scripts {
		b.visitMethod(s.SInit, "scripts", strconv.Itoa(i))
		b.visitTraits(s.Traits)
	}
	for _, id := range b.p.OrphanClasses {
		b.visitClass(id, "orphan_classes")
	}
	for _, id := range b.p.OrphanMethods {
		b.visitMethod(id, "orphan_methods")
	}
}

func (b *builder) visitClass(id ClassID, path ...string) {
	c := b.p.Class(id)
	if c == nil {
		b.fail(errors.NotFound(errors.PhaseBuild, "class", strconv.Itoa(int(id))+" at "+strings.Join(path, ".")))
		return
	}
	if !b.classes.Add(id, id) {
		return
	}
	in := &c.Instance
	b.visitMultiname(in.Name)
	b.visitMultiname(in.SuperName)
	if in.Flags&abc.InstanceProtectedNS != 0 {
		b.visitNamespace(in.ProtectedNS)
	}
	for _, i := range in.Interfaces {
		b.visitMultiname(i)
	}
	b.visitMethod(in.IInit, "class", strconv.Itoa(int(id)), "iinit")
	b.visitTraits(in.Traits)
	b.visitMethod(c.CInit, "class", strconv.Itoa(int(id)), "cinit")
	b.visitTraits(c.Traits)
}

func (b *builder) visitMethod(id MethodID, path ...string) {
	m := b.p.Method(id)
	if m == nil {
		b.fail(errors.NotFound(errors.PhaseBuild, "method", strconv.Itoa(int(id))+" at "+strings.Join(path, ".")))
		return
	}
	if !b.methods.Add(id, id) {
		return
	}
	for _, t := range m.ParamTypes {
		b.visitMultiname(t)
	}
	b.visitMultiname(m.ReturnType)
	b.visitString(m.Name)
	for _, v := range m.Options {
		b.visitValue(v)
	}
	for _, n := range m.ParamNames {
		b.visitString(n)
	}
	if m.Body != nil {
		b.visitBody(id, m.Body)
	}
}

func (b *builder) visitBody(id MethodID, body *MethodBody) {
	for _, in := range body.Instructions {
		for _, a := range in.Args {
			switch a := a.(type) {
			case IntRef:
				b.ints.Add(int64(a), int64(a))
			case UIntRef:
				b.uints.Add(uint64(a), uint64(a))
			case DoubleRef:
				b.doubles.Add(math.Float64bits(float64(a)), float64(a))
			case StringRef:
				b.visitString(NullString(a))
			case NamespaceRef:
				b.visitNamespace(Namespace(a))
			case MultinameRef:
				b.visitMultiname(a.Multiname)
			case ClassRef:
				b.visitClass(ClassID(a), "method", strconv.Itoa(int(id)), "code")
			case MethodRef:
				b.visitMethod(MethodID(a), "method", strconv.Itoa(int(id)), "code")
			}
		}
	}
	for _, e := range body.Exceptions {
		b.visitMultiname(e.ExcType)
		b.visitMultiname(e.VarName)
	}
	b.visitTraits(body.Traits)
}

func (b *builder) visitTraits(traits []Trait) {
	for i, t := range traits {
		b.visitMultiname(t.Name)
		for _, md := range t.Metadata {
			b.visitMetadata(md)
		}
		switch pl := t.Payload.(type) {
		case *SlotTrait:
			b.visitMultiname(pl.Type)
			if pl.Value != nil {
				b.visitValue(pl.Value)
			}
		case *ClassTrait:
			b.visitClass(pl.Class, "trait", strconv.Itoa(i))
		case *FunctionTrait:
			b.visitMethod(pl.Method, "trait", strconv.Itoa(i))
		case *MethodTrait:
			b.visitMethod(pl.Method, "trait", strconv.Itoa(i))
		default:
			b.fail(errors.InvalidData(errors.PhaseBuild, []string{"trait", strconv.Itoa(i)},
				fmt.Sprintf("unknown trait payload %T", t.Payload)))
		}
	}
}

func (b *builder) visitMetadata(md *Metadata) {
	if md == nil {
		b.fail(errors.InvalidData(errors.PhaseBuild, []string{"metadata"}, "nil metadata"))
		return
	}
	b.metadata.Add(md.key(), md)
	b.visitString(md.Name)
	for _, it := range md.Items {
		b.visitString(it.Key)
		b.visitString(it.Value)
	}
}

func (b *builder) visitValue(v Value) {
	switch v := v.(type) {
	case IntValue:
		b.ints.Add(int64(v), int64(v))
	case UIntValue:
		b.uints.Add(uint64(v), uint64(v))
	case DoubleValue:
		b.doubles.Add(math.Float64bits(float64(v)), float64(v))
	case StringValue:
		b.visitString(NullString(v))
	case NamespaceValue:
		b.visitNamespace(Namespace(v))
	case SpecialValue:
	default:
		b.fail(errors.InvalidData(errors.PhaseBuild, nil, fmt.Sprintf("unknown constant %T", v)))
	}
}

func (b *builder) visitString(s NullString) {
	b.strings.Add(s, s.Value)
}

func (b *builder) visitNamespace(ns Namespace) {
	if ns.IsNull() {
		return
	}
	b.namespaces.Add(ns, ns)
	b.visitString(ns.Name)
}

func (b *builder) visitNSSet(set NamespaceSet) {
	if set == nil {
		return
	}
	b.nssets.Add(set.key(), set)
	for _, ns := range set {
		b.visitNamespace(ns)
	}
}

func (b *builder) visitMultiname(m Multiname) {
	if m == nil {
		return
	}
	key := m.key()
	b.multinames.Add(key, m)
	switch m := m.(type) {
	case *QName:
		b.visitNamespace(m.NS)
		b.visitString(m.Name)
	case *RTQName:
		b.visitString(m.Name)
	case *RTQNameL:
	case *NSSetName:
		b.visitString(m.Name)
		b.visitNSSet(m.NSSet)
	case *NSSetNameL:
		b.visitNSSet(m.NSSet)
	case *TypeName:
		// A nil base is the null name and renders as index 0.
		if m.Base != nil {
			b.visitMultiname(m.Base)
			b.multinames.RegisterDependency(key, multinameKey(m.Base))
		}
		for _, p := range m.Params {
			b.visitMultiname(p)
			b.multinames.RegisterDependency(key, multinameKey(p))
		}
	}
}

// registerClassDependencies orders every class after the classes named as
// its superclass and interfaces. Names are matched against the classes
// being written; a name shared by several classes binds to the first.
func (b *builder) registerClassDependencies() {
	byName := make(map[string]ClassID)
	var ids []ClassID
	b.p.Walk(func(id ClassID, c *Class) {
		ids = append(ids, id)
		if c.Instance.Name == nil {
			return
		}
		if _, ok := byName[c.Instance.Name.key()]; !ok {
			byName[c.Instance.Name.key()] = id
		}
	}, nil)

	for _, id := range ids {
		in := &b.p.Class(id).Instance
		if super, ok := byName[multinameKey(in.SuperName)]; ok {
			b.classes.RegisterDependency(id, super)
		}
		for _, i := range in.Interfaces {
			if dep, ok := byName[multinameKey(i)]; ok {
				b.classes.RegisterDependency(id, dep)
			}
		}
	}
}

func (b *builder) finalize() {
	for _, f := range []func(){
		b.ints.Finalize,
		b.uints.Finalize,
		b.doubles.Finalize,
		b.strings.Finalize,
		b.namespaces.Finalize,
		b.nssets.Finalize,
		b.multinames.Finalize,
		b.metadata.Finalize,
		b.classes.Finalize,
		b.methods.Finalize,
	} {
		f()
	}
}

// Rendering

func (b *builder) render() (*abc.File, error) {
	f := &abc.File{MinorVersion: b.p.MinorVersion, MajorVersion: b.p.MajorVersion}

	f.Ints = b.ints.Values()
	f.Ints[0] = abc.NullInt
	for i, v := range f.Ints[1:] {
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, errors.Overflow(errors.PhaseBuild, []string{"ints", strconv.Itoa(i + 1)}, v, "s32")
		}
	}
	f.UInts = b.uints.Values()
	f.UInts[0] = abc.NullUInt
	for i, v := range f.UInts[1:] {
		if v > math.MaxUint32 {
			return nil, errors.Overflow(errors.PhaseBuild, []string{"uints", strconv.Itoa(i + 1)}, v, "u32")
		}
	}
	f.Doubles = b.doubles.Values()
	f.Doubles[0] = abc.NullDouble
	f.Strings = b.strings.Values()

	nss := b.namespaces.Values()
	f.Namespaces = make([]abc.Namespace, len(nss))
	for i, ns := range nss[1:] {
		f.Namespaces[i+1] = abc.Namespace{Kind: ns.Kind, Name: b.strings.Index(ns.Name)}
	}

	sets := b.nssets.Values()
	f.NamespaceSets = make([][]uint32, len(sets))
	for i, set := range sets[1:] {
		idx := make([]uint32, len(set))
		for j, ns := range set {
			idx[j] = b.namespaces.Index(ns)
		}
		f.NamespaceSets[i+1] = idx
	}

	mns := b.multinames.Values()
	f.Multinames = make([]abc.Multiname, len(mns))
	for i, m := range mns[1:] {
		f.Multinames[i+1] = b.renderMultiname(m)
	}

	for _, id := range b.methods.Values() {
		m := b.p.Method(id)
		mi, err := b.renderMethod(m)
		if err != nil {
			return nil, errors.WithOffset(err, errors.NoOffset, "methods", strconv.Itoa(int(b.methods.Index(id))))
		}
		f.Methods = append(f.Methods, mi)
	}

	for _, md := range b.metadata.Values() {
		amd := abc.Metadata{Name: b.strings.Index(md.Name), Items: make([]abc.MetadataItem, len(md.Items))}
		for j, it := range md.Items {
			amd.Items[j] = abc.MetadataItem{Key: b.strings.Index(it.Key), Value: b.strings.Index(it.Value)}
		}
		f.Metadata = append(f.Metadata, amd)
	}

	for _, id := range b.classes.Values() {
		c := b.p.Class(id)
		in := &c.Instance
		inst := abc.Instance{
			Name:       b.multinames.Index(multinameKey(in.Name)),
			SuperName:  b.multinames.Index(multinameKey(in.SuperName)),
			Flags:      in.Flags,
			Interfaces: b.multinameIndices(in.Interfaces),
			IInit:      b.methods.Index(in.IInit),
			Traits:     b.renderTraits(in.Traits),
		}
		if in.Flags&abc.InstanceProtectedNS != 0 {
			inst.ProtectedNS = b.namespaces.Index(in.ProtectedNS)
		}
		f.Instances = append(f.Instances, inst)
		f.Classes = append(f.Classes, abc.Class{CInit: b.methods.Index(c.CInit), Traits: b.renderTraits(c.Traits)})
	}

	for _, s := range b.p.Scripts {
		f.Scripts = append(f.Scripts, abc.Script{SInit: b.methods.Index(s.SInit), Traits: b.renderTraits(s.Traits)})
	}

	for _, id := range b.methods.Values() {
		m := b.p.Method(id)
		if m.Body == nil {
			continue
		}
		body, err := b.renderBody(b.methods.Index(id), m.Body)
		if err != nil {
			return nil, errors.WithOffset(err, errors.NoOffset, "bodies", strconv.Itoa(len(f.Bodies)))
		}
		f.Bodies = append(f.Bodies, body)
	}
	return f, nil
}

func (b *builder) multinameIndices(ms []Multiname) []uint32 {
	if ms == nil {
		return nil
	}
	out := make([]uint32, len(ms))
	for i, m := range ms {
		out[i] = b.multinames.Index(multinameKey(m))
	}
	return out
}

func (b *builder) renderMultiname(m Multiname) abc.Multiname {
	out := abc.Multiname{Kind: m.Kind()}
	switch m := m.(type) {
	case *QName:
		out.NS = b.namespaces.Index(m.NS)
		out.Name = b.strings.Index(m.Name)
	case *RTQName:
		out.Name = b.strings.Index(m.Name)
	case *NSSetName:
		out.Name = b.strings.Index(m.Name)
		out.NSSet = b.nssets.Index(m.NSSet.key())
	case *NSSetNameL:
		out.NSSet = b.nssets.Index(m.NSSet.key())
	case *TypeName:
		out.Base = b.multinames.Index(multinameKey(m.Base))
		out.Params = b.multinameIndices(m.Params)
		if out.Params == nil {
			out.Params = []uint32{}
		}
	}
	return out
}

func (b *builder) renderValue(v Value) abc.OptionDetail {
	switch v := v.(type) {
	case IntValue:
		return abc.OptionDetail{Value: b.ints.Index(int64(v)), Kind: abc.ConstantInt}
	case UIntValue:
		return abc.OptionDetail{Value: b.uints.Index(uint64(v)), Kind: abc.ConstantUInt}
	case DoubleValue:
		return abc.OptionDetail{Value: b.doubles.Index(math.Float64bits(float64(v))), Kind: abc.ConstantDouble}
	case StringValue:
		return abc.OptionDetail{Value: b.strings.Index(NullString(v)), Kind: abc.ConstantUtf8}
	case NamespaceValue:
		return abc.OptionDetail{Value: b.namespaces.Index(Namespace(v)), Kind: abc.ConstantKind(v.Kind)}
	case SpecialValue:
		return abc.OptionDetail{Value: uint32(v), Kind: abc.ConstantKind(v)}
	}
	return abc.OptionDetail{}
}

func (b *builder) renderMethod(m *Method) (abc.MethodInfo, error) {
	mi := abc.MethodInfo{
		ParamTypes: b.multinameIndices(m.ParamTypes),
		ReturnType: b.multinames.Index(multinameKey(m.ReturnType)),
		Name:       b.strings.Index(m.Name),
		Flags:      m.Flags &^ (abc.MethodHasOptional | abc.MethodHasParamNames),
	}
	if m.Options != nil {
		mi.Flags |= abc.MethodHasOptional
		mi.Options = make([]abc.OptionDetail, len(m.Options))
		for i, v := range m.Options {
			mi.Options[i] = b.renderValue(v)
		}
	}
	if m.ParamNames != nil {
		if len(m.ParamNames) != len(m.ParamTypes) {
			return mi, errors.EncodeConstraint(errors.PhaseBuild, []string{"param_names"},
				fmt.Sprintf("%d parameter names for %d parameters", len(m.ParamNames), len(m.ParamTypes)))
		}
		mi.Flags |= abc.MethodHasParamNames
		mi.ParamNames = make([]uint32, len(m.ParamNames))
		for i, n := range m.ParamNames {
			mi.ParamNames[i] = b.strings.Index(n)
		}
	}
	return mi, nil
}

func (b *builder) renderTraits(traits []Trait) []abc.Trait {
	if len(traits) == 0 {
		return nil
	}
	out := make([]abc.Trait, len(traits))
	for i, t := range traits {
		at := abc.Trait{
			Name:       b.multinames.Index(multinameKey(t.Name)),
			Kind:       t.Payload.TraitKind(),
			Attributes: t.Attributes &^ abc.TraitAttrMetadata,
		}
		if len(t.Metadata) > 0 {
			at.Attributes |= abc.TraitAttrMetadata
			at.Metadata = make([]uint32, len(t.Metadata))
			for j, md := range t.Metadata {
				at.Metadata[j] = b.metadata.Index(md.key())
			}
		}
		switch pl := t.Payload.(type) {
		case *SlotTrait:
			at.SlotID = pl.SlotID
			at.TypeName = b.multinames.Index(multinameKey(pl.Type))
			if pl.Value != nil && pl.Value != Undefined {
				at.Value = b.renderValue(pl.Value)
			}
		case *ClassTrait:
			at.SlotID = pl.SlotID
			at.Index = b.classes.Index(pl.Class)
		case *FunctionTrait:
			at.SlotID = pl.SlotID
			at.Index = b.methods.Index(pl.Method)
		case *MethodTrait:
			at.SlotID = pl.DispID
			at.Index = b.methods.Index(pl.Method)
		}
		out[i] = at
	}
	return out
}

func (b *builder) renderBody(method uint32, body *MethodBody) (abc.MethodBody, error) {
	out := abc.MethodBody{
		Method:         method,
		MaxStack:       body.MaxStack,
		LocalCount:     body.LocalCount,
		InitScopeDepth: body.InitScopeDepth,
		MaxScopeDepth:  body.MaxScopeDepth,
		Instructions:   make([]abc.Instruction, len(body.Instructions)),
		Traits:         b.renderTraits(body.Traits),
	}
	for i, in := range body.Instructions {
		ai := abc.Instruction{Opcode: in.Opcode}
		if len(in.Args) > 0 {
			ai.Args = make([]abc.Arg, len(in.Args))
		}
		for j, a := range in.Args {
			arg, err := b.renderArg(a)
			if err != nil {
				return out, errors.WithOffset(err, errors.NoOffset, "instructions", strconv.Itoa(i))
			}
			ai.Args[j] = arg
		}
		out.Instructions[i] = ai
	}
	for _, e := range body.Exceptions {
		out.Exceptions = append(out.Exceptions, abc.Exception{
			From:    e.From,
			To:      e.To,
			Target:  e.Target,
			ExcType: b.multinames.Index(multinameKey(e.ExcType)),
			VarName: b.multinames.Index(multinameKey(e.VarName)),
		})
	}
	return out, nil
}

func (b *builder) renderArg(a Arg) (abc.Arg, error) {
	switch a := a.(type) {
	case ByteLit:
		return abc.ByteArg(a), nil
	case UByteLit:
		return abc.UByteArg(a), nil
	case IntLit:
		return abc.IntArg(a), nil
	case UIntLit:
		return abc.UIntArg(a), nil
	case IntRef:
		return abc.IndexArg(b.ints.Index(int64(a))), nil
	case UIntRef:
		return abc.IndexArg(b.uints.Index(uint64(a))), nil
	case DoubleRef:
		return abc.IndexArg(b.doubles.Index(math.Float64bits(float64(a)))), nil
	case StringRef:
		return abc.IndexArg(b.strings.Index(NullString(a))), nil
	case NamespaceRef:
		return abc.IndexArg(b.namespaces.Index(Namespace(a))), nil
	case MultinameRef:
		return abc.IndexArg(b.multinames.Index(multinameKey(a.Multiname))), nil
	case ClassRef:
		return abc.IndexArg(b.classes.Index(ClassID(a))), nil
	case MethodRef:
		return abc.IndexArg(b.methods.Index(MethodID(a))), nil
	case Target:
		return abc.Label(a), nil
	case Targets:
		return abc.Labels(a), nil
	}
	return nil, errors.InvalidData(errors.PhaseBuild, nil, fmt.Sprintf("unknown operand %T", a))
}
