package listing

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/gemforce-team/abcedit/abc"
	"github.com/gemforce-team/abcedit/program"
)

// Options controls listing output.
type Options struct {
	// IncludeDebug keeps debug, debugline, debugfile and similar
	// instructions in method bodies.
	IncludeDebug bool
}

// File is one listing file.
type File struct {
	Name    string
	Content string
}

// Lister renders a program as text.
type Lister struct {
	p     *program.Program
	opts  Options
	namer *Namer

	// nodes currently being printed
	activeClasses map[program.ClassID]bool
	activeMethods map[program.MethodID]bool
}

// New returns a Lister for p.
func New(p *program.Program, opts Options) *Lister {
	return &Lister{
		p:             p,
		opts:          opts,
		namer:         NewNamer(),
		activeClasses: make(map[program.ClassID]bool),
		activeMethods: make(map[program.MethodID]bool),
	}
}

// Files renders the program as one file per script, plus one per orphan
// class and orphan method. Classes are listed inside the script or orphan
// file that declares them.
func (l *Lister) Files() []File {
	var files []File
	for i, s := range l.p.Scripts {
		var b strings.Builder
		l.script(&b, i, s)
		files = append(files, File{Name: l.scriptFileName(i, s) + ".script.asasm", Content: b.String()})
	}
	for _, id := range l.p.OrphanClasses {
		var b strings.Builder
		l.class(&b, 0, id)
		files = append(files, File{Name: l.namer.Name(l.className(id)) + ".class.asasm", Content: b.String()})
	}
	for _, id := range l.p.OrphanMethods {
		var b strings.Builder
		l.method(&b, 0, "method", id)
		files = append(files, File{Name: l.namer.Name("method"+strconv.Itoa(int(id))) + ".method.asasm", Content: b.String()})
	}
	return files
}

// Method renders a single method.
func (l *Lister) Method(id program.MethodID) string {
	var b strings.Builder
	l.method(&b, 0, "method", id)
	return b.String()
}

// Class renders a single class.
func (l *Lister) Class(id program.ClassID) string {
	var b strings.Builder
	l.class(&b, 0, id)
	return b.String()
}

// Script renders script i.
func (l *Lister) Script(i int) string {
	var b strings.Builder
	l.script(&b, i, l.p.Scripts[i])
	return b.String()
}

func (l *Lister) scriptFileName(i int, s *program.Script) string {
	for _, t := range s.Traits {
		if _, ok := t.Payload.(*program.ClassTrait); ok {
			return l.namer.Name(nameOf(t.Name))
		}
	}
	return l.namer.Name("script" + strconv.Itoa(i))
}

func (l *Lister) className(id program.ClassID) string {
	c := l.p.Class(id)
	if c == nil {
		return "class" + strconv.Itoa(int(id))
	}
	return nameOf(c.Instance.Name)
}

// nameOf returns the plain name of a multiname, with its package if any.
func nameOf(m program.Multiname) string {
	if q, ok := m.(*program.QName); ok && q.Name.Valid {
		if q.NS.Name.Valid && q.NS.Name.Value != "" {
			return q.NS.Name.Value + "." + q.Name.Value
		}
		return q.Name.Value
	}
	return program.MultinameString(m)
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func line(b *strings.Builder, depth int, format string, args ...any) {
	indent(b, depth)
	fmt.Fprintf(b, format, args...)
	b.WriteByte('\n')
}

func (l *Lister) script(b *strings.Builder, i int, s *program.Script) {
	line(b, 0, "script ; %d", i)
	l.method(b, 1, "sinit", s.SInit)
	l.traits(b, 1, s.Traits)
	line(b, 0, "end ; script")
}

func (l *Lister) class(b *strings.Builder, depth int, id program.ClassID) {
	c := l.p.Class(id)
	if c == nil {
		line(b, depth, "; missing class %d", id)
		return
	}
	if l.activeClasses[id] {
		line(b, depth, "; class %q listed above", l.className(id))
		return
	}
	l.activeClasses[id] = true
	defer delete(l.activeClasses, id)
	in := &c.Instance
	line(b, depth, "class")
	line(b, depth+1, "refid %q", l.className(id))
	line(b, depth+1, "instance %s", program.MultinameString(in.Name))
	if in.SuperName != nil {
		line(b, depth+2, "extends %s", program.MultinameString(in.SuperName))
	}
	for _, i := range in.Interfaces {
		line(b, depth+2, "implements %s", program.MultinameString(i))
	}
	for _, f := range instanceFlagNames(in.Flags) {
		line(b, depth+2, "flag %s", f)
	}
	if in.Flags&abc.InstanceProtectedNS != 0 {
		line(b, depth+2, "protectedns %s", in.ProtectedNS)
	}
	l.method(b, depth+2, "iinit", in.IInit)
	l.traits(b, depth+2, in.Traits)
	line(b, depth+1, "end ; instance")
	l.method(b, depth+1, "cinit", c.CInit)
	l.traits(b, depth+1, c.Traits)
	line(b, depth, "end ; class")
}

func instanceFlagNames(f abc.InstanceFlags) []string {
	var out []string
	for _, fl := range []struct {
		bit  abc.InstanceFlags
		name string
	}{
		{abc.InstanceSealed, "SEALED"},
		{abc.InstanceFinal, "FINAL"},
		{abc.InstanceInterface, "INTERFACE"},
		{abc.InstanceProtectedNS, "PROTECTEDNS"},
	} {
		if f&fl.bit != 0 {
			out = append(out, fl.name)
		}
	}
	return out
}

func methodFlagNames(f abc.MethodFlags) []string {
	var out []string
	for _, fl := range []struct {
		bit  abc.MethodFlags
		name string
	}{
		{abc.MethodNeedArguments, "NEED_ARGUMENTS"},
		{abc.MethodNeedActivation, "NEED_ACTIVATION"},
		{abc.MethodNeedRest, "NEED_REST"},
		{abc.MethodSetDXNS, "SET_DXNS"},
	} {
		if f&fl.bit != 0 {
			out = append(out, fl.name)
		}
	}
	return out
}

func (l *Lister) traits(b *strings.Builder, depth int, traits []program.Trait) {
	for _, t := range traits {
		l.trait(b, depth, &t)
	}
}

func (l *Lister) trait(b *strings.Builder, depth int, t *program.Trait) {
	if t.Payload == nil {
		line(b, depth, "; trait %s has no payload", program.MultinameString(t.Name))
		return
	}
	kind := t.Payload.TraitKind()
	line(b, depth, "trait %s %s", kind, program.MultinameString(t.Name))
	if t.Attributes&abc.TraitAttrFinal != 0 {
		line(b, depth+1, "flag FINAL")
	}
	if t.Attributes&abc.TraitAttrOverride != 0 {
		line(b, depth+1, "flag OVERRIDE")
	}
	for _, md := range t.Metadata {
		line(b, depth+1, "metadata %s", md.Name)
		for _, it := range md.Items {
			line(b, depth+2, "item %s %s", it.Key, it.Value)
		}
		line(b, depth+1, "end ; metadata")
	}
	switch pl := t.Payload.(type) {
	case *program.SlotTrait:
		line(b, depth+1, "slotid %d", pl.SlotID)
		if pl.Type != nil {
			line(b, depth+1, "type %s", program.MultinameString(pl.Type))
		}
		if pl.Value != nil {
			line(b, depth+1, "value %s", formatValue(pl.Value))
		}
	case *program.ClassTrait:
		line(b, depth+1, "slotid %d", pl.SlotID)
		l.class(b, depth+1, pl.Class)
	case *program.FunctionTrait:
		line(b, depth+1, "slotid %d", pl.SlotID)
		l.method(b, depth+1, "method", pl.Method)
	case *program.MethodTrait:
		line(b, depth+1, "dispid %d", pl.DispID)
		l.method(b, depth+1, "method", pl.Method)
	}
	line(b, depth, "end ; trait")
}

func formatValue(v program.Value) string {
	switch v := v.(type) {
	case program.IntValue:
		return "Integer(" + strconv.FormatInt(int64(v), 10) + ")"
	case program.UIntValue:
		return "UInteger(" + strconv.FormatUint(uint64(v), 10) + ")"
	case program.DoubleValue:
		return "Double(" + formatDouble(float64(v)) + ")"
	case program.StringValue:
		return "Utf8(" + program.NullString(v).String() + ")"
	case program.NamespaceValue:
		return program.Namespace(v).String()
	case program.SpecialValue:
		switch v {
		case program.True:
			return "True()"
		case program.False:
			return "False()"
		case program.Null:
			return "Null()"
		}
		return "Undefined()"
	}
	return fmt.Sprintf("%v", v)
}

func formatDouble(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (l *Lister) method(b *strings.Builder, depth int, keyword string, id program.MethodID) {
	m := l.p.Method(id)
	if m == nil {
		line(b, depth, "; missing method %d", id)
		return
	}
	if l.activeMethods[id] {
		line(b, depth, "; method%d listed above", id)
		return
	}
	l.activeMethods[id] = true
	defer delete(l.activeMethods, id)
	line(b, depth, "%s", keyword)
	line(b, depth+1, "refid %q", "method"+strconv.Itoa(int(id)))
	if m.Name.Valid {
		line(b, depth+1, "name %s", m.Name)
	}
	for _, p := range m.ParamTypes {
		line(b, depth+1, "param %s", program.MultinameString(p))
	}
	line(b, depth+1, "returns %s", program.MultinameString(m.ReturnType))
	for _, f := range methodFlagNames(m.Flags) {
		line(b, depth+1, "flag %s", f)
	}
	for _, o := range m.Options {
		line(b, depth+1, "optional %s", formatValue(o))
	}
	for _, n := range m.ParamNames {
		line(b, depth+1, "paramname %s", n)
	}
	if m.Body != nil {
		l.body(b, depth+1, m.Body)
	}
	line(b, depth, "end ; %s", keyword)
}

func (l *Lister) body(b *strings.Builder, depth int, body *program.MethodBody) {
	line(b, depth, "body")
	line(b, depth+1, "maxstack %d", body.MaxStack)
	line(b, depth+1, "localcount %d", body.LocalCount)
	line(b, depth+1, "initscopedepth %d", body.InitScopeDepth)
	line(b, depth+1, "maxscopedepth %d", body.MaxScopeDepth)
	line(b, depth+1, "code")

	targets := labelTargets(body)
	errs := errorsByIndex(body.Errors)
	for i, in := range body.Instructions {
		if targets[i] {
			line(b, depth+1, "L%d:", i)
		}
		for _, e := range errs[i] {
			line(b, depth+2, "; error: %s (offset %d): %s", FormatLabel(e.Label), e.Offset, e.Message)
		}
		if in.Opcode.IsDebug() && !l.opts.IncludeDebug {
			continue
		}
		line(b, depth+2, "%s", l.instruction(in))
	}
	n := len(body.Instructions)
	if targets[n] {
		line(b, depth+1, "L%d:", n)
	}
	for _, e := range errs[n] {
		line(b, depth+2, "; error: %s (offset %d): %s", FormatLabel(e.Label), e.Offset, e.Message)
	}
	line(b, depth+1, "end ; code")

	for _, e := range body.Exceptions {
		line(b, depth+1, "try from %s to %s target %s type %s name %s",
			FormatLabel(e.From), FormatLabel(e.To), FormatLabel(e.Target),
			program.MultinameString(e.ExcType), program.MultinameString(e.VarName))
	}
	l.traits(b, depth+1, body.Traits)
	line(b, depth, "end ; body")
}

// labelTargets returns the instruction indices addressed by any label,
// including the end of the body.
func labelTargets(body *program.MethodBody) map[int]bool {
	t := make(map[int]bool)
	for _, in := range body.Instructions {
		for _, a := range in.Args {
			switch a := a.(type) {
			case program.Target:
				t[a.Index] = true
			case program.Targets:
				for _, l := range a {
					t[l.Index] = true
				}
			}
		}
	}
	for _, e := range body.Exceptions {
		t[e.From.Index] = true
		t[e.To.Index] = true
		t[e.Target.Index] = true
	}
	return t
}

func errorsByIndex(errs []abc.DecodeError) map[int][]abc.DecodeError {
	sorted := append([]abc.DecodeError(nil), errs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })
	out := make(map[int][]abc.DecodeError)
	for _, e := range sorted {
		out[e.Label.Index] = append(out[e.Label.Index], e)
	}
	return out
}

// FormatLabel formats a label as L<index>, with a signed bias if non-zero.
func FormatLabel(l abc.Label) string {
	s := "L" + strconv.Itoa(l.Index)
	switch {
	case l.Offset > 0:
		s += "+" + strconv.Itoa(l.Offset)
	case l.Offset < 0:
		s += strconv.Itoa(l.Offset)
	}
	return s
}

func (l *Lister) instruction(in program.Instruction) string {
	var b strings.Builder
	b.WriteString(in.Opcode.String())
	for i, a := range in.Args {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		b.WriteString(l.operand(in.Opcode, a))
	}
	return b.String()
}

func (l *Lister) operand(op abc.Opcode, a program.Arg) string {
	switch a := a.(type) {
	case program.ByteLit:
		return strconv.Itoa(int(a))
	case program.UByteLit:
		if op == abc.OpRaw {
			return fmt.Sprintf("0x%02x", uint8(a))
		}
		return strconv.Itoa(int(a))
	case program.IntLit:
		return strconv.FormatInt(int64(a), 10)
	case program.UIntLit:
		return strconv.FormatUint(uint64(a), 10)
	case program.IntRef:
		if int64(a) == abc.NullInt {
			return "null"
		}
		return strconv.FormatInt(int64(a), 10)
	case program.UIntRef:
		if uint64(a) == abc.NullUInt {
			return "null"
		}
		return strconv.FormatUint(uint64(a), 10)
	case program.DoubleRef:
		if abc.IsNullDouble(float64(a)) {
			return "null"
		}
		return formatDouble(float64(a))
	case program.StringRef:
		return program.NullString(a).String()
	case program.NamespaceRef:
		return program.Namespace(a).String()
	case program.MultinameRef:
		return program.MultinameString(a.Multiname)
	case program.ClassRef:
		return strconv.Quote(l.className(program.ClassID(a)))
	case program.MethodRef:
		return strconv.Quote("method" + strconv.Itoa(int(a)))
	case program.Target:
		return FormatLabel(abc.Label(a))
	case program.Targets:
		parts := make([]string, len(a))
		for i, t := range a {
			parts[i] = FormatLabel(t)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("%v", a)
}
