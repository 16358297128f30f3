package abc

// File is the flat, index-addressed form of an ABC document. Every pool keeps
// its null sentinel at index 0; the positional tables (methods, metadata,
// instances, classes, scripts, bodies) are addressed from 0.
type File struct {
	MinorVersion uint16
	MajorVersion uint16

	Ints          []int64   // Ints[0] == NullInt
	UInts         []uint64  // UInts[0] == NullUInt
	Doubles       []float64 // Doubles[0] is NullDouble
	Strings       []string  // Strings[0] is unused
	Namespaces    []Namespace
	NamespaceSets [][]uint32 // namespace indices
	Multinames    []Multiname

	Methods   []MethodInfo
	Metadata  []Metadata
	Instances []Instance
	Classes   []Class // always len(Instances)
	Scripts   []Script
	Bodies    []MethodBody
}

// Namespace is a namespace record. Name indexes Strings.
type Namespace struct {
	Kind NamespaceKind
	Name uint32
}

// Multiname is a qualified-name record. Which fields are meaningful depends on Kind:
//
//	QName, QNameA:           NS, Name
//	RTQName, RTQNameA:       Name
//	RTQNameL, RTQNameLA:     none
//	Multiname, MultinameA:   Name, NSSet
//	MultinameL, MultinameLA: NSSet
//	TypeName:                Base, Params
//
// The record at index 0 has Kind 0.
type Multiname struct {
	Kind   MultinameKind
	NS     uint32
	Name   uint32
	NSSet  uint32
	Base   uint32   // multiname index
	Params []uint32 // multiname indices
}

// MethodInfo is a method signature.
type MethodInfo struct {
	ParamTypes []uint32 // multiname indices
	ReturnType uint32
	Name       uint32
	Flags      MethodFlags
	Options    []OptionDetail // present when Flags has MethodHasOptional
	ParamNames []uint32       // present when Flags has MethodHasParamNames
}

// OptionDetail is a constant value reference: a default parameter value or a slot value.
type OptionDetail struct {
	Value uint32
	Kind  ConstantKind
}

// Metadata is a metadata record. Keys and values index Strings.
type Metadata struct {
	Name  uint32
	Items []MetadataItem
}

// MetadataItem is a single key/value pair.
type MetadataItem struct {
	Key   uint32
	Value uint32
}

// Instance describes the instance side of a class.
type Instance struct {
	Name        uint32
	SuperName   uint32
	Flags       InstanceFlags
	ProtectedNS uint32 // present when Flags has InstanceProtectedNS
	Interfaces  []uint32
	IInit       uint32 // method index
	Traits      []Trait
}

// Class describes the static side of a class.
type Class struct {
	CInit  uint32 // method index
	Traits []Trait
}

// Script is a top-level script entry.
type Script struct {
	SInit  uint32 // method index
	Traits []Trait
}

// Trait is a member declaration. Fields used per kind:
//
//	Slot, Const:             SlotID, TypeName, Value
//	Class:                   SlotID, Index (class index)
//	Function:                SlotID, Index (method index)
//	Method, Getter, Setter:  SlotID (disp_id), Index (method index)
type Trait struct {
	Name       uint32
	Kind       TraitKind
	Attributes TraitAttributes
	SlotID     uint32
	TypeName   uint32
	Value      OptionDetail // Value.Value == 0 means no value, Kind is not stored
	Index      uint32
	Metadata   []uint32 // present when Attributes has TraitAttrMetadata
}

// MethodBody is the code of one method, with its code already decoded.
type MethodBody struct {
	Method         uint32
	MaxStack       uint32
	LocalCount     uint32
	InitScopeDepth uint32
	MaxScopeDepth  uint32
	Instructions   []Instruction
	Exceptions     []Exception
	Traits         []Trait
	// Errors lists non-fatal problems found while decoding the code.
	Errors []DecodeError
}

// Exception is an exception handler. The range and target are labels into
// the owning body's instruction list.
type Exception struct {
	From    Label
	To      Label
	Target  Label
	ExcType uint32 // multiname index
	VarName uint32 // multiname index
}

// Label addresses a position in an instruction list: the start of
// instruction Index, plus Offset bytes. Index may equal the instruction
// count (end of body); Offset may be negative.
type Label struct {
	Index  int
	Offset int
}

// DecodeError is a recoverable problem found while decoding a method body.
type DecodeError struct {
	Offset  int   // byte offset in the original code
	Label   Label // Offset resolved against the decoded instructions
	Message string
}

// Instruction is one decoded instruction. Args follow the operand layout of
// Info(Opcode).Operands one-to-one.
type Instruction struct {
	Opcode Opcode
	Args   []Arg
}

// Arg is an instruction operand. The concrete type is determined by the
// operand type:
//
//	ByteLiteral          ByteArg
//	UByteLiteral         UByteArg
//	IntLiteral           IntArg
//	UIntLiteral          UIntArg
//	Int..Method          IndexArg
//	JumpTarget           Label
//	SwitchDefaultTarget  Label
//	SwitchTargets        Labels
type Arg interface {
	isArg()
}

// ByteArg is a signed byte literal.
type ByteArg int8

// UByteArg is an unsigned byte literal.
type UByteArg uint8

// IntArg is a signed 32-bit literal.
type IntArg int32

// UIntArg is an unsigned 32-bit literal.
type UIntArg uint32

// IndexArg is an index into a pool or positional table.
type IndexArg uint32

// Labels is the target list of a lookupswitch.
type Labels []Label

func (ByteArg) isArg()  {}
func (UByteArg) isArg() {}
func (IntArg) isArg()   {}
func (UIntArg) isArg()  {}
func (IndexArg) isArg() {}
func (Label) isArg()    {}
func (Labels) isArg()   {}

// PoolBounds reports table sizes used to bounds-check index operands.
type PoolBounds interface {
	PoolLen(t OperandType) int
}

// PoolLen implements PoolBounds. It returns -1 for non-index operand types.
func (f *File) PoolLen(t OperandType) int {
	switch t {
	case OperandInt:
		return len(f.Ints)
	case OperandUInt:
		return len(f.UInts)
	case OperandDouble:
		return len(f.Doubles)
	case OperandString:
		return len(f.Strings)
	case OperandNamespace:
		return len(f.Namespaces)
	case OperandMultiname:
		return len(f.Multinames)
	case OperandClass:
		return len(f.Instances)
	case OperandMethod:
		return len(f.Methods)
	}
	return -1
}

// NewFile returns an empty document with every pool holding only its null entry.
func NewFile(minor, major uint16) *File {
	return &File{
		MinorVersion:  minor,
		MajorVersion:  major,
		Ints:          []int64{NullInt},
		UInts:         []uint64{NullUInt},
		Doubles:       []float64{NullDouble},
		Strings:       []string{""},
		Namespaces:    []Namespace{{}},
		NamespaceSets: [][]uint32{nil},
		Multinames:    []Multiname{{}},
	}
}

// Common version pair emitted by Flash Player 9+ compilers.
const (
	DefaultMinorVersion = 16
	DefaultMajorVersion = 46
)
