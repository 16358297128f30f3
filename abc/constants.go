package abc

import "math"

// Null sentinels stored at index 0 of the scalar pools.
const (
	NullInt  int64  = math.MaxInt64
	NullUInt uint64 = math.MaxUint64

	nullDoubleBits uint64 = 0x7FF8000000000001
)

// NullDouble is the NaN stored at index 0 of the double pool.
var NullDouble = math.Float64frombits(nullDoubleBits)

// IsNullDouble reports whether v has the exact bit pattern of NullDouble.
func IsNullDouble(v float64) bool {
	return math.Float64bits(v) == nullDoubleBits
}

// NamespaceKind identifies the kind of a namespace record.
type NamespaceKind byte

// Namespace kinds as stored in the binary format.
const (
	NamespaceKindNamespace       NamespaceKind = 0x08
	NamespaceKindPackage         NamespaceKind = 0x16
	NamespaceKindPackageInternal NamespaceKind = 0x17
	NamespaceKindProtected       NamespaceKind = 0x18
	NamespaceKindExplicit        NamespaceKind = 0x19
	NamespaceKindStaticProtected NamespaceKind = 0x1A
	NamespaceKindPrivate         NamespaceKind = 0x05
)

// Valid reports whether k is a known namespace kind.
func (k NamespaceKind) Valid() bool {
	switch k {
	case NamespaceKindNamespace, NamespaceKindPackage, NamespaceKindPackageInternal,
		NamespaceKindProtected, NamespaceKindExplicit, NamespaceKindStaticProtected,
		NamespaceKindPrivate:
		return true
	}
	return false
}

func (k NamespaceKind) String() string {
	switch k {
	case NamespaceKindNamespace:
		return "Namespace"
	case NamespaceKindPackage:
		return "PackageNamespace"
	case NamespaceKindPackageInternal:
		return "PackageInternalNs"
	case NamespaceKindProtected:
		return "ProtectedNamespace"
	case NamespaceKindExplicit:
		return "ExplicitNamespace"
	case NamespaceKindStaticProtected:
		return "StaticProtectedNs"
	case NamespaceKindPrivate:
		return "PrivateNamespace"
	}
	return "UnknownNamespace"
}

// MultinameKind identifies the layout of a multiname record.
type MultinameKind byte

// Multiname kinds. The "A" forms are attribute names with identical layout.
const (
	MultinameKindQName       MultinameKind = 0x07
	MultinameKindQNameA      MultinameKind = 0x0D
	MultinameKindRTQName     MultinameKind = 0x0F
	MultinameKindRTQNameA    MultinameKind = 0x10
	MultinameKindRTQNameL    MultinameKind = 0x11
	MultinameKindRTQNameLA   MultinameKind = 0x12
	MultinameKindMultiname   MultinameKind = 0x09
	MultinameKindMultinameA  MultinameKind = 0x0E
	MultinameKindMultinameL  MultinameKind = 0x1B
	MultinameKindMultinameLA MultinameKind = 0x1C
	MultinameKindTypeName    MultinameKind = 0x1D
)

// Valid reports whether k is a known multiname kind.
func (k MultinameKind) Valid() bool {
	switch k {
	case MultinameKindQName, MultinameKindQNameA,
		MultinameKindRTQName, MultinameKindRTQNameA,
		MultinameKindRTQNameL, MultinameKindRTQNameLA,
		MultinameKindMultiname, MultinameKindMultinameA,
		MultinameKindMultinameL, MultinameKindMultinameLA,
		MultinameKindTypeName:
		return true
	}
	return false
}

// IsAttribute reports whether k is one of the attribute forms.
func (k MultinameKind) IsAttribute() bool {
	switch k {
	case MultinameKindQNameA, MultinameKindRTQNameA, MultinameKindRTQNameLA,
		MultinameKindMultinameA, MultinameKindMultinameLA:
		return true
	}
	return false
}

func (k MultinameKind) String() string {
	switch k {
	case MultinameKindQName:
		return "QName"
	case MultinameKindQNameA:
		return "QNameA"
	case MultinameKindRTQName:
		return "RTQName"
	case MultinameKindRTQNameA:
		return "RTQNameA"
	case MultinameKindRTQNameL:
		return "RTQNameL"
	case MultinameKindRTQNameLA:
		return "RTQNameLA"
	case MultinameKindMultiname:
		return "Multiname"
	case MultinameKindMultinameA:
		return "MultinameA"
	case MultinameKindMultinameL:
		return "MultinameL"
	case MultinameKindMultinameLA:
		return "MultinameLA"
	case MultinameKindTypeName:
		return "TypeName"
	}
	return "UnknownMultiname"
}

// ConstantKind tags a constant value (slot defaults and optional parameters).
type ConstantKind byte

// Constant kinds. Namespace kinds double as constant kinds.
const (
	ConstantUndefined ConstantKind = 0x00
	ConstantUtf8      ConstantKind = 0x01
	ConstantInt       ConstantKind = 0x03
	ConstantUInt      ConstantKind = 0x04
	ConstantDouble    ConstantKind = 0x06
	ConstantFalse     ConstantKind = 0x0A
	ConstantTrue      ConstantKind = 0x0B
	ConstantNull      ConstantKind = 0x0C
)

// Valid reports whether k is a known constant kind.
func (k ConstantKind) Valid() bool {
	switch k {
	case ConstantUndefined, ConstantUtf8, ConstantInt, ConstantUInt, ConstantDouble,
		ConstantFalse, ConstantTrue, ConstantNull:
		return true
	}
	return NamespaceKind(k).Valid()
}

// TraitKind is the low nibble of a trait's kind byte.
type TraitKind byte

// Trait kinds.
const (
	TraitSlot     TraitKind = 0
	TraitMethod   TraitKind = 1
	TraitGetter   TraitKind = 2
	TraitSetter   TraitKind = 3
	TraitClass    TraitKind = 4
	TraitFunction TraitKind = 5
	TraitConst    TraitKind = 6
)

// Valid reports whether k is a known trait kind.
func (k TraitKind) Valid() bool {
	return k <= TraitConst
}

func (k TraitKind) String() string {
	switch k {
	case TraitSlot:
		return "slot"
	case TraitMethod:
		return "method"
	case TraitGetter:
		return "getter"
	case TraitSetter:
		return "setter"
	case TraitClass:
		return "class"
	case TraitFunction:
		return "function"
	case TraitConst:
		return "const"
	}
	return "unknown"
}

// TraitAttributes is the high nibble of a trait's kind byte.
type TraitAttributes byte

// Trait attribute bits.
const (
	TraitAttrFinal    TraitAttributes = 0x1
	TraitAttrOverride TraitAttributes = 0x2
	TraitAttrMetadata TraitAttributes = 0x4
)

// MethodFlags is the flag byte of a method signature.
type MethodFlags byte

// Method flags.
const (
	MethodNeedArguments  MethodFlags = 0x01
	MethodNeedActivation MethodFlags = 0x02
	MethodNeedRest       MethodFlags = 0x04
	MethodHasOptional    MethodFlags = 0x08
	MethodSetDXNS        MethodFlags = 0x40
	MethodHasParamNames  MethodFlags = 0x80
)

// InstanceFlags is the flag byte of an instance descriptor.
type InstanceFlags byte

// Instance flags.
const (
	InstanceSealed      InstanceFlags = 0x01
	InstanceFinal       InstanceFlags = 0x02
	InstanceInterface   InstanceFlags = 0x04
	InstanceProtectedNS InstanceFlags = 0x08
)
