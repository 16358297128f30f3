package program

import (
	"strconv"
	"strings"

	"github.com/gemforce-team/abcedit/abc"
)

// ClassID identifies a class in a Program's arena. The zero ID means none.
type ClassID uint32

// MethodID identifies a method in a Program's arena. The zero ID means none.
type MethodID uint32

// NullString is a string that may be absent. The absent string is distinct
// from the empty string.
type NullString struct {
	Value string
	Valid bool
}

// Str returns a present string.
func Str(s string) NullString {
	return NullString{Value: s, Valid: true}
}

func (s NullString) String() string {
	if !s.Valid {
		return "null"
	}
	return strconv.Quote(s.Value)
}

// Namespace is a namespace value. Several namespaces may share kind and
// name; ID keeps them apart. The zero Namespace is the null namespace.
type Namespace struct {
	Kind abc.NamespaceKind
	Name NullString
	ID   uint32
}

// IsNull reports whether ns is the null namespace.
func (ns Namespace) IsNull() bool {
	return ns.Kind == 0
}

func (ns Namespace) String() string {
	if ns.IsNull() {
		return "null"
	}
	s := ns.Kind.String() + "(" + ns.Name.String()
	if ns.ID != 0 {
		s += ", " + strconv.FormatUint(uint64(ns.ID), 10)
	}
	return s + ")"
}

func (ns Namespace) key() string {
	if ns.IsNull() {
		return "-"
	}
	return strconv.Itoa(int(ns.Kind)) + ":" + ns.Name.String() + ":" + strconv.FormatUint(uint64(ns.ID), 10)
}

// NamespaceSet is an ordered namespace list. A nil set is the null set; an
// empty non-nil set is a real, empty set.
type NamespaceSet []Namespace

func (s NamespaceSet) key() string {
	if s == nil {
		return ""
	}
	parts := make([]string, len(s))
	for i, ns := range s {
		parts[i] = ns.key()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (s NamespaceSet) String() string {
	parts := make([]string, len(s))
	for i, ns := range s {
		parts[i] = ns.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Multiname is a qualified name: one of *QName, *RTQName, *RTQNameL,
// *NSSetName, *NSSetNameL or *TypeName. A nil Multiname is the null name.
type Multiname interface {
	Kind() abc.MultinameKind
	String() string
	key() string
}

// QName is a name bound to one namespace.
type QName struct {
	Attribute bool
	NS        Namespace
	Name      NullString
}

// RTQName is a name whose namespace is taken from the stack.
type RTQName struct {
	Attribute bool
	Name      NullString
}

// RTQNameL is a name whose namespace and name are taken from the stack.
type RTQNameL struct {
	Attribute bool
}

// NSSetName is a name looked up in a set of namespaces.
type NSSetName struct {
	Attribute bool
	Name      NullString
	NSSet     NamespaceSet
}

// NSSetNameL is a name taken from the stack, looked up in a set of namespaces.
type NSSetNameL struct {
	Attribute bool
	NSSet     NamespaceSet
}

// TypeName is a parameterized name such as Vector.<int>.
type TypeName struct {
	Base   Multiname
	Params []Multiname
}

func pick(attr bool, plain, attribute abc.MultinameKind) abc.MultinameKind {
	if attr {
		return attribute
	}
	return plain
}

func (*TypeName) Kind() abc.MultinameKind { return abc.MultinameKindTypeName }

func (n *QName) Kind() abc.MultinameKind {
	return pick(n.Attribute, abc.MultinameKindQName, abc.MultinameKindQNameA)
}

func (n *RTQName) Kind() abc.MultinameKind {
	return pick(n.Attribute, abc.MultinameKindRTQName, abc.MultinameKindRTQNameA)
}

func (n *RTQNameL) Kind() abc.MultinameKind {
	return pick(n.Attribute, abc.MultinameKindRTQNameL, abc.MultinameKindRTQNameLA)
}

func (n *NSSetName) Kind() abc.MultinameKind {
	return pick(n.Attribute, abc.MultinameKindMultiname, abc.MultinameKindMultinameA)
}

func (n *NSSetNameL) Kind() abc.MultinameKind {
	return pick(n.Attribute, abc.MultinameKindMultinameL, abc.MultinameKindMultinameLA)
}

func (n *QName) String() string {
	return n.Kind().String() + "(" + n.NS.String() + ", " + n.Name.String() + ")"
}

func (n *RTQName) String() string {
	return n.Kind().String() + "(" + n.Name.String() + ")"
}

func (n *RTQNameL) String() string {
	return n.Kind().String() + "()"
}

func (n *NSSetName) String() string {
	return n.Kind().String() + "(" + n.Name.String() + ", " + n.NSSet.String() + ")"
}

func (n *NSSetNameL) String() string {
	return n.Kind().String() + "(" + n.NSSet.String() + ")"
}

func (n *TypeName) String() string {
	parts := make([]string, len(n.Params))
	for i, p := range n.Params {
		parts[i] = MultinameString(p)
	}
	return "TypeName(" + MultinameString(n.Base) + "<" + strings.Join(parts, ", ") + ">)"
}

// MultinameString formats m, including the null name.
func MultinameString(m Multiname) string {
	if m == nil {
		return "null"
	}
	return m.String()
}

func (n *QName) key() string {
	return "Q" + strconv.Itoa(int(n.Kind())) + "{" + n.NS.key() + "|" + n.Name.String() + "}"
}

func (n *RTQName) key() string {
	return "R" + strconv.Itoa(int(n.Kind())) + "{" + n.Name.String() + "}"
}

func (n *RTQNameL) key() string {
	return "L" + strconv.Itoa(int(n.Kind()))
}

func (n *NSSetName) key() string {
	return "M" + strconv.Itoa(int(n.Kind())) + "{" + n.Name.String() + "|" + n.NSSet.key() + "}"
}

func (n *NSSetNameL) key() string {
	return "N" + strconv.Itoa(int(n.Kind())) + "{" + n.NSSet.key() + "}"
}

func (n *TypeName) key() string {
	var b strings.Builder
	b.WriteString("T{")
	b.WriteString(multinameKey(n.Base))
	for _, p := range n.Params {
		b.WriteByte('|')
		b.WriteString(multinameKey(p))
	}
	b.WriteByte('}')
	return b.String()
}

// multinameKey returns the pool key of m. The null name has the empty key.
func multinameKey(m Multiname) string {
	if m == nil {
		return ""
	}
	return m.key()
}

// Value is a constant: a slot default or an optional parameter value. It is
// one of IntValue, UIntValue, DoubleValue, StringValue, NamespaceValue or
// SpecialValue.
type Value interface {
	ConstantKind() abc.ConstantKind
}

// IntValue is a signed integer constant.
type IntValue int64

// UIntValue is an unsigned integer constant.
type UIntValue uint64

// DoubleValue is a floating-point constant.
type DoubleValue float64

// StringValue is a string constant.
type StringValue NullString

// NamespaceValue is a namespace constant.
type NamespaceValue Namespace

// SpecialValue is one of the payload-free constants: true, false, null or undefined.
type SpecialValue abc.ConstantKind

// Payload-free constants.
const (
	Undefined = SpecialValue(abc.ConstantUndefined)
	True      = SpecialValue(abc.ConstantTrue)
	False     = SpecialValue(abc.ConstantFalse)
	Null      = SpecialValue(abc.ConstantNull)
)

func (IntValue) ConstantKind() abc.ConstantKind    { return abc.ConstantInt }
func (UIntValue) ConstantKind() abc.ConstantKind   { return abc.ConstantUInt }
func (DoubleValue) ConstantKind() abc.ConstantKind { return abc.ConstantDouble }
func (StringValue) ConstantKind() abc.ConstantKind { return abc.ConstantUtf8 }

func (v NamespaceValue) ConstantKind() abc.ConstantKind { return abc.ConstantKind(v.Kind) }
func (v SpecialValue) ConstantKind() abc.ConstantKind   { return abc.ConstantKind(v) }

// Metadata is a metadata record.
type Metadata struct {
	Name  NullString
	Items []MetadataItem
}

// MetadataItem is a key/value pair of a metadata record.
type MetadataItem struct {
	Key   NullString
	Value NullString
}

func (m *Metadata) key() string {
	var b strings.Builder
	b.WriteString(m.Name.String())
	for _, it := range m.Items {
		b.WriteByte('|')
		b.WriteString(it.Key.String())
		b.WriteByte('=')
		b.WriteString(it.Value.String())
	}
	return b.String()
}

// Trait is a member declaration of a script, class, instance or method body.
type Trait struct {
	Name       Multiname
	Attributes abc.TraitAttributes
	Metadata   []*Metadata
	Payload    TraitPayload
}

// TraitPayload is the kind-specific part of a trait: one of *SlotTrait,
// *ClassTrait, *FunctionTrait or *MethodTrait.
type TraitPayload interface {
	TraitKind() abc.TraitKind
}

// SlotTrait is a variable or constant slot.
type SlotTrait struct {
	Const  bool
	SlotID uint32
	Type   Multiname
	Value  Value // nil when the slot has no default
}

// ClassTrait binds a class to a slot.
type ClassTrait struct {
	SlotID uint32
	Class  ClassID
}

// FunctionTrait binds a function to a slot.
type FunctionTrait struct {
	SlotID uint32
	Method MethodID
}

// MethodTrait is a method, getter or setter.
type MethodTrait struct {
	Kind   abc.TraitKind // TraitMethod, TraitGetter or TraitSetter
	DispID uint32
	Method MethodID
}

func (t *SlotTrait) TraitKind() abc.TraitKind {
	if t.Const {
		return abc.TraitConst
	}
	return abc.TraitSlot
}

func (*ClassTrait) TraitKind() abc.TraitKind    { return abc.TraitClass }
func (*FunctionTrait) TraitKind() abc.TraitKind { return abc.TraitFunction }
func (t *MethodTrait) TraitKind() abc.TraitKind { return t.Kind }

// Method is a method signature with an optional body.
type Method struct {
	ParamTypes []Multiname
	ReturnType Multiname
	Name       NullString
	// Flags holds the raw flag bits. HasOptional and HasParamNames are
	// derived from Options and ParamNames when encoding.
	Flags      abc.MethodFlags
	Options    []Value      // non-nil when the method declares optional parameters
	ParamNames []NullString // non-nil when parameter names are present
	Body       *MethodBody
}

// MethodBody is the code of a method.
type MethodBody struct {
	// Method is the owning method.
	Method         MethodID
	MaxStack       uint32
	LocalCount     uint32
	InitScopeDepth uint32
	MaxScopeDepth  uint32
	Instructions   []Instruction
	Exceptions     []Exception
	Traits         []Trait
	// Errors lists problems found while decoding the code. They are not
	// encoded.
	Errors []abc.DecodeError
}

// Exception is an exception handler over a label range.
type Exception struct {
	From    abc.Label
	To      abc.Label
	Target  abc.Label
	ExcType Multiname
	VarName Multiname
}

// Instruction is an opcode and its operands. Args follow the operand layout
// of abc.Info(Opcode).Operands one-to-one.
type Instruction struct {
	Opcode abc.Opcode
	Args   []Arg
}

// Arg is an instruction operand:
//
//	ByteLiteral          ByteLit
//	UByteLiteral         UByteLit
//	IntLiteral           IntLit
//	UIntLiteral          UIntLit
//	Int                  IntRef
//	UInt                 UIntRef
//	Double               DoubleRef
//	String               StringRef
//	Namespace            NamespaceRef
//	Multiname            MultinameRef
//	Class                ClassRef
//	Method               MethodRef
//	JumpTarget           Target
//	SwitchDefaultTarget  Target
//	SwitchTargets        Targets
type Arg interface {
	isArg()
}

type (
	ByteLit      int8
	UByteLit     uint8
	IntLit       int32
	UIntLit      uint32
	IntRef       int64
	UIntRef      uint64
	DoubleRef    float64
	StringRef    NullString
	NamespaceRef Namespace
	MultinameRef struct{ Multiname }
	ClassRef     ClassID
	MethodRef    MethodID
	Target       abc.Label
	Targets      []abc.Label
)

func (ByteLit) isArg()      {}
func (UByteLit) isArg()     {}
func (IntLit) isArg()       {}
func (UIntLit) isArg()      {}
func (IntRef) isArg()       {}
func (UIntRef) isArg()      {}
func (DoubleRef) isArg()    {}
func (StringRef) isArg()    {}
func (NamespaceRef) isArg() {}
func (MultinameRef) isArg() {}
func (ClassRef) isArg()     {}
func (MethodRef) isArg()    {}
func (Target) isArg()       {}
func (Targets) isArg()      {}

// Instance is the instance side of a class.
type Instance struct {
	Name        Multiname
	SuperName   Multiname
	Flags       abc.InstanceFlags
	ProtectedNS Namespace // used when Flags has InstanceProtectedNS
	Interfaces  []Multiname
	IInit       MethodID
	Traits      []Trait
}

// Class is a class: its static side and its Instance.
type Class struct {
	CInit    MethodID
	Traits   []Trait
	Instance Instance
}

// Script is a top-level script.
type Script struct {
	SInit  MethodID
	Traits []Trait
}
