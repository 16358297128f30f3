package program

import (
	"maps"
	"math"
	"slices"

	"github.com/gemforce-team/abcedit/abc"
)

// Equal reports whether a and b describe the same program. Arena IDs and
// namespace identity numbers only need to correspond one-to-one, orphan
// lists are compared as sets, and decode errors are ignored.
func Equal(a, b *Program) bool {
	if a.MinorVersion != b.MinorVersion || a.MajorVersion != b.MajorVersion {
		return false
	}
	if len(a.Scripts) != len(b.Scripts) ||
		len(a.OrphanClasses) != len(b.OrphanClasses) ||
		len(a.OrphanMethods) != len(b.OrphanMethods) {
		return false
	}
	e := &equality{a: a, b: b, m: newMapping()}
	for i := range a.Scripts {
		if !e.method(a.Scripts[i].SInit, b.Scripts[i].SInit) ||
			!e.traits(a.Scripts[i].Traits, b.Scripts[i].Traits) {
			return false
		}
	}
	if !e.flush() {
		return false
	}
	return matchSets(e, a.OrphanClasses, b.OrphanClasses, e.class) &&
		matchSets(e, a.OrphanMethods, b.OrphanMethods, e.method)
}

type nsIdentity struct {
	kind abc.NamespaceKind
	name NullString
	id   uint32
}

// mapping holds the correspondences established so far.
type mapping struct {
	classes    map[ClassID]ClassID
	classesRev map[ClassID]ClassID
	methods    map[MethodID]MethodID
	methodsRev map[MethodID]MethodID
	ns         map[nsIdentity]uint32
	nsRev      map[nsIdentity]uint32
}

func newMapping() mapping {
	return mapping{
		classes:    make(map[ClassID]ClassID),
		classesRev: make(map[ClassID]ClassID),
		methods:    make(map[MethodID]MethodID),
		methodsRev: make(map[MethodID]MethodID),
		ns:         make(map[nsIdentity]uint32),
		nsRev:      make(map[nsIdentity]uint32),
	}
}

func (m mapping) clone() mapping {
	return mapping{
		classes:    maps.Clone(m.classes),
		classesRev: maps.Clone(m.classesRev),
		methods:    maps.Clone(m.methods),
		methodsRev: maps.Clone(m.methodsRev),
		ns:         maps.Clone(m.ns),
		nsRev:      maps.Clone(m.nsRev),
	}
}

type equality struct {
	a, b *Program
	m    mapping

	// pending node pairs whose contents still need comparing
	classQueue  [][2]ClassID
	methodQueue [][2]MethodID
}

// matchSets pairs every element of xs with a distinct element of ys.
// Elements already paired by the traversal must agree; the rest are matched
// greedily, keeping a pairing only if the whole subgraph compares equal.
func matchSets[T comparable](e *equality, xs, ys []T, eq func(T, T) bool) bool {
	used := make([]bool, len(ys))
	for _, x := range xs {
		found := false
		for j, y := range ys {
			if used[j] {
				continue
			}
			saved := e.m.clone()
			if eq(x, y) && e.flush() {
				used[j] = true
				found = true
				break
			}
			e.m = saved
			e.classQueue, e.methodQueue = nil, nil
		}
		if !found {
			return false
		}
	}
	return true
}

// flush compares queued node pairs until none remain.
func (e *equality) flush() bool {
	for len(e.classQueue) > 0 || len(e.methodQueue) > 0 {
		if n := len(e.classQueue); n > 0 {
			p := e.classQueue[n-1]
			e.classQueue = e.classQueue[:n-1]
			if !e.classBody(e.a.Class(p[0]), e.b.Class(p[1])) {
				return false
			}
			continue
		}
		n := len(e.methodQueue)
		p := e.methodQueue[n-1]
		e.methodQueue = e.methodQueue[:n-1]
		if !e.methodBody(e.a.Method(p[0]), e.b.Method(p[1])) {
			return false
		}
	}
	return true
}

// class pairs x with y. The contents are compared later, by flush.
func (e *equality) class(x, y ClassID) bool {
	if mx, ok := e.m.classes[x]; ok {
		return mx == y
	}
	if _, ok := e.m.classesRev[y]; ok {
		return false
	}
	if (e.a.Class(x) == nil) != (e.b.Class(y) == nil) {
		return false
	}
	e.m.classes[x] = y
	e.m.classesRev[y] = x
	if e.a.Class(x) != nil {
		e.classQueue = append(e.classQueue, [2]ClassID{x, y})
	}
	return true
}

func (e *equality) method(x, y MethodID) bool {
	if mx, ok := e.m.methods[x]; ok {
		return mx == y
	}
	if _, ok := e.m.methodsRev[y]; ok {
		return false
	}
	if (e.a.Method(x) == nil) != (e.b.Method(y) == nil) {
		return false
	}
	e.m.methods[x] = y
	e.m.methodsRev[y] = x
	if e.a.Method(x) != nil {
		e.methodQueue = append(e.methodQueue, [2]MethodID{x, y})
	}
	return true
}

func (e *equality) classBody(x, y *Class) bool {
	xi, yi := &x.Instance, &y.Instance
	return e.method(x.CInit, y.CInit) &&
		e.traits(x.Traits, y.Traits) &&
		e.multiname(xi.Name, yi.Name) &&
		e.multiname(xi.SuperName, yi.SuperName) &&
		xi.Flags == yi.Flags &&
		(xi.Flags&abc.InstanceProtectedNS == 0 || e.namespace(xi.ProtectedNS, yi.ProtectedNS)) &&
		e.multinames(xi.Interfaces, yi.Interfaces) &&
		e.method(xi.IInit, yi.IInit) &&
		e.traits(xi.Traits, yi.Traits)
}

func (e *equality) methodBody(x, y *Method) bool {
	const derived = abc.MethodHasOptional | abc.MethodHasParamNames
	if x.Flags&^derived != y.Flags&^derived || x.Name != y.Name {
		return false
	}
	if !e.multinames(x.ParamTypes, y.ParamTypes) || !e.multiname(x.ReturnType, y.ReturnType) {
		return false
	}
	if (x.Options == nil) != (y.Options == nil) || len(x.Options) != len(y.Options) {
		return false
	}
	for i := range x.Options {
		if !e.value(x.Options[i], y.Options[i]) {
			return false
		}
	}
	if (x.ParamNames == nil) != (y.ParamNames == nil) || !slices.Equal(x.ParamNames, y.ParamNames) {
		return false
	}
	if (x.Body == nil) != (y.Body == nil) {
		return false
	}
	if x.Body == nil {
		return true
	}
	return e.body(x.Body, y.Body)
}

func (e *equality) body(x, y *MethodBody) bool {
	if x.MaxStack != y.MaxStack || x.LocalCount != y.LocalCount ||
		x.InitScopeDepth != y.InitScopeDepth || x.MaxScopeDepth != y.MaxScopeDepth {
		return false
	}
	if len(x.Instructions) != len(y.Instructions) || len(x.Exceptions) != len(y.Exceptions) {
		return false
	}
	for i := range x.Instructions {
		if !e.instruction(x.Instructions[i], y.Instructions[i]) {
			return false
		}
	}
	for i, xe := range x.Exceptions {
		ye := y.Exceptions[i]
		if xe.From != ye.From || xe.To != ye.To || xe.Target != ye.Target ||
			!e.multiname(xe.ExcType, ye.ExcType) || !e.multiname(xe.VarName, ye.VarName) {
			return false
		}
	}
	return e.traits(x.Traits, y.Traits)
}

func (e *equality) instruction(x, y Instruction) bool {
	if x.Opcode != y.Opcode || len(x.Args) != len(y.Args) {
		return false
	}
	for i := range x.Args {
		if !e.arg(x.Args[i], y.Args[i]) {
			return false
		}
	}
	return true
}

func (e *equality) arg(x, y Arg) bool {
	switch x := x.(type) {
	case DoubleRef:
		yv, ok := y.(DoubleRef)
		return ok && math.Float64bits(float64(x)) == math.Float64bits(float64(yv))
	case NamespaceRef:
		yv, ok := y.(NamespaceRef)
		return ok && e.namespace(Namespace(x), Namespace(yv))
	case MultinameRef:
		yv, ok := y.(MultinameRef)
		return ok && e.multiname(x.Multiname, yv.Multiname)
	case ClassRef:
		yv, ok := y.(ClassRef)
		return ok && e.class(ClassID(x), ClassID(yv))
	case MethodRef:
		yv, ok := y.(MethodRef)
		return ok && e.method(MethodID(x), MethodID(yv))
	case Targets:
		yv, ok := y.(Targets)
		return ok && slices.Equal(x, yv)
	}
	return x == y
}

func (e *equality) traits(xs, ys []Trait) bool {
	if len(xs) != len(ys) {
		return false
	}
	for i := range xs {
		if !e.trait(&xs[i], &ys[i]) {
			return false
		}
	}
	return true
}

func (e *equality) trait(x, y *Trait) bool {
	const derived = abc.TraitAttrMetadata
	if x.Attributes&^derived != y.Attributes&^derived || !e.multiname(x.Name, y.Name) {
		return false
	}
	if len(x.Metadata) != len(y.Metadata) {
		return false
	}
	for i := range x.Metadata {
		if x.Metadata[i].key() != y.Metadata[i].key() {
			return false
		}
	}
	switch xp := x.Payload.(type) {
	case *SlotTrait:
		yp, ok := y.Payload.(*SlotTrait)
		return ok && xp.Const == yp.Const && xp.SlotID == yp.SlotID &&
			e.multiname(xp.Type, yp.Type) && e.slotValue(xp.Value, yp.Value)
	case *ClassTrait:
		yp, ok := y.Payload.(*ClassTrait)
		return ok && xp.SlotID == yp.SlotID && e.class(xp.Class, yp.Class)
	case *FunctionTrait:
		yp, ok := y.Payload.(*FunctionTrait)
		return ok && xp.SlotID == yp.SlotID && e.method(xp.Method, yp.Method)
	case *MethodTrait:
		yp, ok := y.Payload.(*MethodTrait)
		return ok && xp.Kind == yp.Kind && xp.DispID == yp.DispID && e.method(xp.Method, yp.Method)
	}
	return false
}

// slotValue treats an undefined default as no default.
func (e *equality) slotValue(x, y Value) bool {
	if x == Undefined {
		x = nil
	}
	if y == Undefined {
		y = nil
	}
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	return e.value(x, y)
}

func (e *equality) value(x, y Value) bool {
	switch xv := x.(type) {
	case DoubleValue:
		yv, ok := y.(DoubleValue)
		return ok && math.Float64bits(float64(xv)) == math.Float64bits(float64(yv))
	case NamespaceValue:
		yv, ok := y.(NamespaceValue)
		return ok && e.namespace(Namespace(xv), Namespace(yv))
	}
	return x == y
}

func (e *equality) namespace(x, y Namespace) bool {
	if x.Kind != y.Kind || x.Name != y.Name {
		return false
	}
	if x.IsNull() {
		return true
	}
	xk := nsIdentity{x.Kind, x.Name, x.ID}
	yk := nsIdentity{y.Kind, y.Name, y.ID}
	if id, ok := e.m.ns[xk]; ok {
		return id == y.ID
	}
	if _, ok := e.m.nsRev[yk]; ok {
		return false
	}
	e.m.ns[xk] = y.ID
	e.m.nsRev[yk] = x.ID
	return true
}

func (e *equality) nsset(x, y NamespaceSet) bool {
	if (x == nil) != (y == nil) || len(x) != len(y) {
		return false
	}
	for i := range x {
		if !e.namespace(x[i], y[i]) {
			return false
		}
	}
	return true
}

func (e *equality) multinames(xs, ys []Multiname) bool {
	if len(xs) != len(ys) {
		return false
	}
	for i := range xs {
		if !e.multiname(xs[i], ys[i]) {
			return false
		}
	}
	return true
}

func (e *equality) multiname(x, y Multiname) bool {
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	switch xn := x.(type) {
	case *QName:
		yn, ok := y.(*QName)
		return ok && xn.Attribute == yn.Attribute && xn.Name == yn.Name && e.namespace(xn.NS, yn.NS)
	case *RTQName:
		yn, ok := y.(*RTQName)
		return ok && *xn == *yn
	case *RTQNameL:
		yn, ok := y.(*RTQNameL)
		return ok && *xn == *yn
	case *NSSetName:
		yn, ok := y.(*NSSetName)
		return ok && xn.Attribute == yn.Attribute && xn.Name == yn.Name && e.nsset(xn.NSSet, yn.NSSet)
	case *NSSetNameL:
		yn, ok := y.(*NSSetNameL)
		return ok && xn.Attribute == yn.Attribute && e.nsset(xn.NSSet, yn.NSSet)
	case *TypeName:
		yn, ok := y.(*TypeName)
		return ok && e.multiname(xn.Base, yn.Base) && e.multinames(xn.Params, yn.Params)
	}
	return false
}
