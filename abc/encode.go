package abc

import (
	"strconv"

	"github.com/gemforce-team/abcedit/abc/internal/binary"
	"github.com/gemforce-team/abcedit/errors"
)

// EncodeOptions controls encoding.
type EncodeOptions struct {
	// SugarLocals rewrites getlocal/setlocal 0-3 to their short forms.
	SugarLocals bool
}

// Encode encodes the document to the ABC binary format.
func (f *File) Encode() ([]byte, error) {
	return f.EncodeWith(EncodeOptions{})
}

// EncodeWith encodes the document using opts. The document is not modified.
func (f *File) EncodeWith(opts EncodeOptions) ([]byte, error) {
	if len(f.Classes) != len(f.Instances) {
		return nil, errors.EncodeConstraint(errors.PhaseEncode, []string{"classes"},
			"class table length "+strconv.Itoa(len(f.Classes))+" does not match instances "+strconv.Itoa(len(f.Instances)))
	}

	w := binary.NewWriter()
	w.WriteU16(f.MinorVersion)
	w.WriteU16(f.MajorVersion)

	writePoolCount(w, len(f.Ints))
	for _, v := range tail(len(f.Ints)) {
		w.WriteS32(int32(f.Ints[v]))
	}
	writePoolCount(w, len(f.UInts))
	for _, v := range tail(len(f.UInts)) {
		w.WriteU32(uint32(f.UInts[v]))
	}
	writePoolCount(w, len(f.Doubles))
	for _, v := range tail(len(f.Doubles)) {
		w.WriteD64(f.Doubles[v])
	}
	writePoolCount(w, len(f.Strings))
	for _, v := range tail(len(f.Strings)) {
		w.WriteString(f.Strings[v])
	}
	writePoolCount(w, len(f.Namespaces))
	for _, v := range tail(len(f.Namespaces)) {
		w.WriteU8(byte(f.Namespaces[v].Kind))
		w.WriteU30(f.Namespaces[v].Name)
	}
	writePoolCount(w, len(f.NamespaceSets))
	for _, v := range tail(len(f.NamespaceSets)) {
		writeU30List(w, f.NamespaceSets[v])
	}
	writePoolCount(w, len(f.Multinames))
	for _, v := range tail(len(f.Multinames)) {
		if err := writeMultiname(w, f.Multinames[v]); err != nil {
			return nil, errors.WithOffset(err, w.Len(), "multinames", strconv.Itoa(v))
		}
	}
	if err := w.Err(); err != nil {
		return nil, err
	}

	w.WriteU30(uint32(len(f.Methods)))
	for i, m := range f.Methods {
		if err := writeMethod(w, m); err != nil {
			return nil, errors.WithOffset(err, w.Len(), "methods", strconv.Itoa(i))
		}
	}

	w.WriteU30(uint32(len(f.Metadata)))
	for _, md := range f.Metadata {
		w.WriteU30(md.Name)
		w.WriteU30(uint32(len(md.Items)))
		for _, it := range md.Items {
			w.WriteU30(it.Key)
		}
		for _, it := range md.Items {
			w.WriteU30(it.Value)
		}
	}

	w.WriteU30(uint32(len(f.Instances)))
	for _, inst := range f.Instances {
		w.WriteU30(inst.Name)
		w.WriteU30(inst.SuperName)
		w.WriteU8(byte(inst.Flags))
		if inst.Flags&InstanceProtectedNS != 0 {
			w.WriteU30(inst.ProtectedNS)
		}
		writeU30List(w, inst.Interfaces)
		w.WriteU30(inst.IInit)
		writeTraits(w, inst.Traits)
	}
	for _, c := range f.Classes {
		w.WriteU30(c.CInit)
		writeTraits(w, c.Traits)
	}

	w.WriteU30(uint32(len(f.Scripts)))
	for _, s := range f.Scripts {
		w.WriteU30(s.SInit)
		writeTraits(w, s.Traits)
	}
	if err := w.Err(); err != nil {
		return nil, err
	}

	w.WriteU30(uint32(len(f.Bodies)))
	for i := range f.Bodies {
		if err := writeBody(w, &f.Bodies[i], opts); err != nil {
			return nil, errors.WithOffset(err, w.Len(), "bodies", strconv.Itoa(i))
		}
	}
	if err := w.Err(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// writePoolCount writes the stored count of a pool; a pool holding only its
// null entry is stored as zero.
func writePoolCount(w *binary.Writer, n int) {
	if n <= 1 {
		w.WriteU30(0)
		return
	}
	w.WriteU30(uint32(n))
}

// tail returns the indices 1..n-1.
func tail(n int) []int {
	if n <= 1 {
		return nil
	}
	idx := make([]int, n-1)
	for i := range idx {
		idx[i] = i + 1
	}
	return idx
}

func writeU30List(w *binary.Writer, vs []uint32) {
	w.WriteU30(uint32(len(vs)))
	for _, v := range vs {
		w.WriteU30(v)
	}
}

func writeMultiname(w *binary.Writer, mn Multiname) error {
	w.WriteU8(byte(mn.Kind))
	switch mn.Kind {
	case MultinameKindQName, MultinameKindQNameA:
		w.WriteU30(mn.NS)
		w.WriteU30(mn.Name)
	case MultinameKindRTQName, MultinameKindRTQNameA:
		w.WriteU30(mn.Name)
	case MultinameKindRTQNameL, MultinameKindRTQNameLA:
	case MultinameKindMultiname, MultinameKindMultinameA:
		w.WriteU30(mn.Name)
		w.WriteU30(mn.NSSet)
	case MultinameKindMultinameL, MultinameKindMultinameLA:
		w.WriteU30(mn.NSSet)
	case MultinameKindTypeName:
		w.WriteU30(mn.Base)
		writeU30List(w, mn.Params)
	default:
		return errors.InvalidKind(errors.PhaseEncode, nil, "multiname", byte(mn.Kind))
	}
	return nil
}

func writeMethod(w *binary.Writer, m MethodInfo) error {
	if m.Flags&MethodHasParamNames != 0 && len(m.ParamNames) != len(m.ParamTypes) {
		return errors.EncodeConstraint(errors.PhaseEncode, []string{"param names"},
			strconv.Itoa(len(m.ParamNames))+" parameter names for "+strconv.Itoa(len(m.ParamTypes))+" parameters")
	}
	w.WriteU30(uint32(len(m.ParamTypes)))
	w.WriteU30(m.ReturnType)
	for _, p := range m.ParamTypes {
		w.WriteU30(p)
	}
	w.WriteU30(m.Name)
	w.WriteU8(byte(m.Flags))
	if m.Flags&MethodHasOptional != 0 {
		w.WriteU30(uint32(len(m.Options)))
		for _, o := range m.Options {
			w.WriteU30(o.Value)
			w.WriteU8(byte(o.Kind))
		}
	}
	if m.Flags&MethodHasParamNames != 0 {
		for _, p := range m.ParamNames {
			w.WriteU30(p)
		}
	}
	return nil
}

func writeTraits(w *binary.Writer, traits []Trait) {
	w.WriteU30(uint32(len(traits)))
	for _, t := range traits {
		w.WriteU30(t.Name)
		w.WriteU8(byte(t.Kind)&0x0F | byte(t.Attributes)<<4)
		w.WriteU30(t.SlotID)
		switch t.Kind {
		case TraitSlot, TraitConst:
			w.WriteU30(t.TypeName)
			w.WriteU30(t.Value.Value)
			if t.Value.Value != 0 {
				w.WriteU8(byte(t.Value.Kind))
			}
		default:
			w.WriteU30(t.Index)
		}
		if t.Attributes&TraitAttrMetadata != 0 {
			writeU30List(w, t.Metadata)
		}
	}
}

func writeBody(w *binary.Writer, b *MethodBody, opts EncodeOptions) error {
	instrs := b.Instructions
	if opts.SugarLocals {
		instrs = append([]Instruction(nil), instrs...)
		SugarLocals(instrs)
	}
	code, err := EncodeCode(instrs)
	if err != nil {
		return err
	}

	w.WriteU30(b.Method)
	w.WriteU30(b.MaxStack)
	w.WriteU30(b.LocalCount)
	w.WriteU30(b.InitScopeDepth)
	w.WriteU30(b.MaxScopeDepth)
	w.WriteBlob(code.Bytes)

	w.WriteU30(uint32(len(b.Exceptions)))
	for j, e := range b.Exceptions {
		for _, l := range []Label{e.From, e.To, e.Target} {
			off, err := code.Offset(l)
			if err == nil && off < 0 {
				err = errors.EncodeConstraint(errors.PhaseEncode, nil, "exception offset "+strconv.Itoa(off)+" is negative")
			}
			if err != nil {
				return errors.WithOffset(err, errors.NoOffset, "exceptions", strconv.Itoa(j))
			}
			w.WriteU30(uint32(off))
		}
		w.WriteU30(e.ExcType)
		w.WriteU30(e.VarName)
	}
	writeTraits(w, b.Traits)
	return w.Err()
}
