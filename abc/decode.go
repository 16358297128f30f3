package abc

import (
	"fmt"
	"strconv"

	"github.com/gemforce-team/abcedit/abc/internal/binary"
	"github.com/gemforce-team/abcedit/errors"
)

// Parse decodes an ABC document. Method body code is decoded into
// instructions; problems inside code are recorded on the body rather than
// failing the parse. Any table-level failure aborts with an error carrying the
// byte offset of the failing record.
func Parse(data []byte) (*File, error) {
	r := binary.NewReader(data)
	f := &File{}

	var err error
	if f.MinorVersion, err = r.ReadU16(); err != nil {
		return nil, r.WrapError("header", 0, err)
	}
	if f.MajorVersion, err = r.ReadU16(); err != nil {
		return nil, r.WrapError("header", 2, err)
	}

	sections := []struct {
		name  string
		parse func(*binary.Reader, *File) error
	}{
		{"ints", parseInts},
		{"uints", parseUInts},
		{"doubles", parseDoubles},
		{"strings", parseStrings},
		{"namespaces", parseNamespaces},
		{"namespace sets", parseNamespaceSets},
		{"multinames", parseMultinames},
		{"methods", parseMethods},
		{"metadata", parseMetadata},
		{"instances", parseInstances},
		{"scripts", parseScripts},
		{"method bodies", parseBodies},
	}
	for _, s := range sections {
		if err := s.parse(r, f); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
	}

	if r.Len() != 0 {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			At(r.Position()).
			Detail("%d trailing bytes", r.Len()).
			Build()
	}
	return f, nil
}

// readPoolCount reads a pool count; a stored zero means a pool holding only the null entry.
func readPoolCount(r *binary.Reader) (int, error) {
	n, err := r.ReadU30()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		n = 1
	}
	if int(n)-1 > r.Len() {
		return 0, errors.OutOfData(errors.PhaseDecode, r.Position(), int(n)-1, r.Len())
	}
	return int(n), nil
}

// readCount reads a table count and checks it against the remaining input,
// every element taking at least one byte.
func readCount(r *binary.Reader) (int, error) {
	n, err := r.ReadU30()
	if err != nil {
		return 0, err
	}
	if int(n) > r.Len() {
		return 0, errors.OutOfData(errors.PhaseDecode, r.Position(), int(n), r.Len())
	}
	return int(n), nil
}

func readU30s(r *binary.Reader, n int) ([]uint32, error) {
	if n > r.Len() {
		return nil, errors.OutOfData(errors.PhaseDecode, r.Position(), n, r.Len())
	}
	out := make([]uint32, n)
	for i := range out {
		v, err := r.ReadU30()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func readU30List(r *binary.Reader) ([]uint32, error) {
	n, err := readCount(r)
	if err != nil {
		return nil, err
	}
	return readU30s(r, n)
}

func parseInts(r *binary.Reader, f *File) error {
	n, err := readPoolCount(r)
	if err != nil {
		return err
	}
	f.Ints = make([]int64, n)
	f.Ints[0] = NullInt
	for i := 1; i < n; i++ {
		start := r.Position()
		v, err := r.ReadS32()
		if err != nil {
			return r.WrapError("int "+strconv.Itoa(i), start, err)
		}
		f.Ints[i] = int64(v)
	}
	return nil
}

func parseUInts(r *binary.Reader, f *File) error {
	n, err := readPoolCount(r)
	if err != nil {
		return err
	}
	f.UInts = make([]uint64, n)
	f.UInts[0] = NullUInt
	for i := 1; i < n; i++ {
		start := r.Position()
		v, err := r.ReadU32()
		if err != nil {
			return r.WrapError("uint "+strconv.Itoa(i), start, err)
		}
		f.UInts[i] = uint64(v)
	}
	return nil
}

func parseDoubles(r *binary.Reader, f *File) error {
	n, err := readPoolCount(r)
	if err != nil {
		return err
	}
	f.Doubles = make([]float64, n)
	f.Doubles[0] = NullDouble
	for i := 1; i < n; i++ {
		start := r.Position()
		v, err := r.ReadD64()
		if err != nil {
			return r.WrapError("double "+strconv.Itoa(i), start, err)
		}
		f.Doubles[i] = v
	}
	return nil
}

func parseStrings(r *binary.Reader, f *File) error {
	n, err := readPoolCount(r)
	if err != nil {
		return err
	}
	f.Strings = make([]string, n)
	for i := 1; i < n; i++ {
		start := r.Position()
		s, err := r.ReadString()
		if err != nil {
			return r.WrapError("string "+strconv.Itoa(i), start, err)
		}
		f.Strings[i] = s
	}
	return nil
}

func parseNamespaces(r *binary.Reader, f *File) error {
	n, err := readPoolCount(r)
	if err != nil {
		return err
	}
	f.Namespaces = make([]Namespace, n)
	for i := 1; i < n; i++ {
		start := r.Position()
		ns, err := readNamespace(r, i)
		if err != nil {
			return r.WrapError("namespace "+strconv.Itoa(i), start, err)
		}
		f.Namespaces[i] = ns
	}
	return nil
}

func readNamespace(r *binary.Reader, i int) (Namespace, error) {
	kind, err := r.ReadU8()
	if err != nil {
		return Namespace{}, err
	}
	if !NamespaceKind(kind).Valid() {
		return Namespace{}, errors.InvalidKind(errors.PhaseDecode, []string{"namespaces", strconv.Itoa(i)}, "namespace", kind)
	}
	name, err := r.ReadU30()
	if err != nil {
		return Namespace{}, err
	}
	return Namespace{Kind: NamespaceKind(kind), Name: name}, nil
}

func parseNamespaceSets(r *binary.Reader, f *File) error {
	n, err := readPoolCount(r)
	if err != nil {
		return err
	}
	f.NamespaceSets = make([][]uint32, n)
	for i := 1; i < n; i++ {
		start := r.Position()
		set, err := readU30List(r)
		if err != nil {
			return r.WrapError("namespace set "+strconv.Itoa(i), start, err)
		}
		f.NamespaceSets[i] = set
	}
	return nil
}

func parseMultinames(r *binary.Reader, f *File) error {
	n, err := readPoolCount(r)
	if err != nil {
		return err
	}
	f.Multinames = make([]Multiname, n)
	for i := 1; i < n; i++ {
		start := r.Position()
		mn, err := readMultiname(r, i)
		if err != nil {
			return r.WrapError("multiname "+strconv.Itoa(i), start, err)
		}
		f.Multinames[i] = mn
	}
	return nil
}

func readMultiname(r *binary.Reader, i int) (Multiname, error) {
	b, err := r.ReadU8()
	if err != nil {
		return Multiname{}, err
	}
	mn := Multiname{Kind: MultinameKind(b)}
	switch mn.Kind {
	case MultinameKindQName, MultinameKindQNameA:
		if mn.NS, err = r.ReadU30(); err != nil {
			return mn, err
		}
		mn.Name, err = r.ReadU30()
	case MultinameKindRTQName, MultinameKindRTQNameA:
		mn.Name, err = r.ReadU30()
	case MultinameKindRTQNameL, MultinameKindRTQNameLA:
	case MultinameKindMultiname, MultinameKindMultinameA:
		if mn.Name, err = r.ReadU30(); err != nil {
			return mn, err
		}
		mn.NSSet, err = r.ReadU30()
	case MultinameKindMultinameL, MultinameKindMultinameLA:
		mn.NSSet, err = r.ReadU30()
	case MultinameKindTypeName:
		if mn.Base, err = r.ReadU30(); err != nil {
			return mn, err
		}
		mn.Params, err = readU30List(r)
	default:
		return mn, errors.InvalidKind(errors.PhaseDecode, []string{"multinames", strconv.Itoa(i)}, "multiname", b)
	}
	return mn, err
}

func parseMethods(r *binary.Reader, f *File) error {
	n, err := readCount(r)
	if err != nil {
		return err
	}
	f.Methods = make([]MethodInfo, n)
	for i := range f.Methods {
		start := r.Position()
		m, err := readMethod(r, i)
		if err != nil {
			return r.WrapError("method "+strconv.Itoa(i), start, err)
		}
		f.Methods[i] = m
	}
	return nil
}

func readMethod(r *binary.Reader, i int) (MethodInfo, error) {
	var m MethodInfo
	paramCount, err := r.ReadU30()
	if err != nil {
		return m, err
	}
	if m.ReturnType, err = r.ReadU30(); err != nil {
		return m, err
	}
	if m.ParamTypes, err = readU30s(r, int(paramCount)); err != nil {
		return m, err
	}
	if m.Name, err = r.ReadU30(); err != nil {
		return m, err
	}
	flags, err := r.ReadU8()
	if err != nil {
		return m, err
	}
	m.Flags = MethodFlags(flags)

	if m.Flags&MethodHasOptional != 0 {
		n, err := readCount(r)
		if err != nil {
			return m, err
		}
		m.Options = make([]OptionDetail, n)
		for j := range m.Options {
			if m.Options[j], err = readOption(r, []string{"methods", strconv.Itoa(i), "options", strconv.Itoa(j)}); err != nil {
				return m, err
			}
		}
	}
	if m.Flags&MethodHasParamNames != 0 {
		if m.ParamNames, err = readU30s(r, int(paramCount)); err != nil {
			return m, err
		}
	}
	return m, nil
}

func readOption(r *binary.Reader, path []string) (OptionDetail, error) {
	v, err := r.ReadU30()
	if err != nil {
		return OptionDetail{}, err
	}
	k, err := r.ReadU8()
	if err != nil {
		return OptionDetail{}, err
	}
	if !ConstantKind(k).Valid() {
		return OptionDetail{}, errors.InvalidKind(errors.PhaseDecode, path, "constant", k)
	}
	return OptionDetail{Value: v, Kind: ConstantKind(k)}, nil
}

func parseMetadata(r *binary.Reader, f *File) error {
	n, err := readCount(r)
	if err != nil {
		return err
	}
	f.Metadata = make([]Metadata, n)
	for i := range f.Metadata {
		start := r.Position()
		md, err := readMetadata(r)
		if err != nil {
			return r.WrapError("metadata "+strconv.Itoa(i), start, err)
		}
		f.Metadata[i] = md
	}
	return nil
}

func readMetadata(r *binary.Reader) (Metadata, error) {
	var md Metadata
	var err error
	if md.Name, err = r.ReadU30(); err != nil {
		return md, err
	}
	n, err := readCount(r)
	if err != nil {
		return md, err
	}
	keys, err := readU30s(r, n)
	if err != nil {
		return md, err
	}
	values, err := readU30s(r, n)
	if err != nil {
		return md, err
	}
	md.Items = make([]MetadataItem, n)
	for j := range md.Items {
		md.Items[j] = MetadataItem{Key: keys[j], Value: values[j]}
	}
	return md, nil
}

func parseInstances(r *binary.Reader, f *File) error {
	n, err := readCount(r)
	if err != nil {
		return err
	}
	f.Instances = make([]Instance, n)
	for i := range f.Instances {
		start := r.Position()
		inst, err := readInstance(r, i)
		if err != nil {
			return r.WrapError("instance "+strconv.Itoa(i), start, err)
		}
		f.Instances[i] = inst
	}

	f.Classes = make([]Class, n)
	for i := range f.Classes {
		start := r.Position()
		var c Class
		if c.CInit, err = r.ReadU30(); err != nil {
			return r.WrapError("class "+strconv.Itoa(i), start, err)
		}
		if c.Traits, err = readTraits(r, []string{"classes", strconv.Itoa(i)}); err != nil {
			return r.WrapError("class "+strconv.Itoa(i), start, err)
		}
		f.Classes[i] = c
	}
	return nil
}

func readInstance(r *binary.Reader, i int) (Instance, error) {
	var inst Instance
	var err error
	if inst.Name, err = r.ReadU30(); err != nil {
		return inst, err
	}
	if inst.SuperName, err = r.ReadU30(); err != nil {
		return inst, err
	}
	flags, err := r.ReadU8()
	if err != nil {
		return inst, err
	}
	inst.Flags = InstanceFlags(flags)
	if inst.Flags&InstanceProtectedNS != 0 {
		if inst.ProtectedNS, err = r.ReadU30(); err != nil {
			return inst, err
		}
	}
	if inst.Interfaces, err = readU30List(r); err != nil {
		return inst, err
	}
	if inst.IInit, err = r.ReadU30(); err != nil {
		return inst, err
	}
	inst.Traits, err = readTraits(r, []string{"instances", strconv.Itoa(i)})
	return inst, err
}

func parseScripts(r *binary.Reader, f *File) error {
	n, err := readCount(r)
	if err != nil {
		return err
	}
	f.Scripts = make([]Script, n)
	for i := range f.Scripts {
		start := r.Position()
		var s Script
		if s.SInit, err = r.ReadU30(); err != nil {
			return r.WrapError("script "+strconv.Itoa(i), start, err)
		}
		if s.Traits, err = readTraits(r, []string{"scripts", strconv.Itoa(i)}); err != nil {
			return r.WrapError("script "+strconv.Itoa(i), start, err)
		}
		f.Scripts[i] = s
	}
	return nil
}

func readTraits(r *binary.Reader, path []string) ([]Trait, error) {
	n, err := readCount(r)
	if err != nil {
		return nil, err
	}
	traits := make([]Trait, n)
	for i := range traits {
		if traits[i], err = readTrait(r, append(path, "traits", strconv.Itoa(i))); err != nil {
			return nil, err
		}
	}
	return traits, nil
}

func readTrait(r *binary.Reader, path []string) (Trait, error) {
	var t Trait
	var err error
	if t.Name, err = r.ReadU30(); err != nil {
		return t, err
	}
	b, err := r.ReadU8()
	if err != nil {
		return t, err
	}
	t.Kind = TraitKind(b & 0x0F)
	t.Attributes = TraitAttributes(b >> 4)
	if !t.Kind.Valid() {
		return t, errors.InvalidKind(errors.PhaseDecode, path, "trait", b&0x0F)
	}

	if t.SlotID, err = r.ReadU30(); err != nil {
		return t, err
	}
	switch t.Kind {
	case TraitSlot, TraitConst:
		if t.TypeName, err = r.ReadU30(); err != nil {
			return t, err
		}
		if t.Value.Value, err = r.ReadU30(); err != nil {
			return t, err
		}
		if t.Value.Value != 0 {
			k, err := r.ReadU8()
			if err != nil {
				return t, err
			}
			if !ConstantKind(k).Valid() {
				return t, errors.InvalidKind(errors.PhaseDecode, path, "constant", k)
			}
			t.Value.Kind = ConstantKind(k)
		}
	default:
		if t.Index, err = r.ReadU30(); err != nil {
			return t, err
		}
	}

	if t.Attributes&TraitAttrMetadata != 0 {
		if t.Metadata, err = readU30List(r); err != nil {
			return t, err
		}
	}
	return t, nil
}

func parseBodies(r *binary.Reader, f *File) error {
	n, err := readCount(r)
	if err != nil {
		return err
	}
	f.Bodies = make([]MethodBody, n)
	for i := range f.Bodies {
		start := r.Position()
		b, err := readBody(r, f, i)
		if err != nil {
			return r.WrapError("method body "+strconv.Itoa(i), start, err)
		}
		f.Bodies[i] = b
	}
	return nil
}

type rawException struct {
	from, to, target uint32
	excType, varName uint32
}

func readBody(r *binary.Reader, f *File, i int) (MethodBody, error) {
	var b MethodBody
	var err error
	for _, p := range []*uint32{&b.Method, &b.MaxStack, &b.LocalCount, &b.InitScopeDepth, &b.MaxScopeDepth} {
		if *p, err = r.ReadU30(); err != nil {
			return b, err
		}
	}
	code, err := r.ReadBlob()
	if err != nil {
		return b, err
	}

	n, err := readCount(r)
	if err != nil {
		return b, err
	}
	raw := make([]rawException, n)
	targets := make([]int, n)
	for j := range raw {
		e := &raw[j]
		for _, p := range []*uint32{&e.from, &e.to, &e.target, &e.excType, &e.varName} {
			if *p, err = r.ReadU30(); err != nil {
				return b, err
			}
		}
		targets[j] = int(e.target)
	}

	if b.Traits, err = readTraits(r, []string{"bodies", strconv.Itoa(i)}); err != nil {
		return b, err
	}

	dc := DecodeCode(code, targets, f)
	b.Instructions = dc.Instructions
	b.Errors = dc.Errors
	b.Exceptions = make([]Exception, n)
	for j, e := range raw {
		b.Exceptions[j] = Exception{
			From:    dc.Label(int(e.from)),
			To:      dc.Label(int(e.to)),
			Target:  dc.Label(int(e.target)),
			ExcType: e.excType,
			VarName: e.varName,
		}
	}
	return b, nil
}
