package abc

import "fmt"

// Opcode identifies an instruction. Values 0x00-0xFF are the byte encodings;
// OpRaw is a pseudo-instruction carrying one undecodable byte verbatim.
type Opcode uint16

// Opcodes of the instruction set.
const (
	OpBkpt                 Opcode = 0x01
	OpNop                  Opcode = 0x02
	OpThrow                Opcode = 0x03
	OpGetSuper             Opcode = 0x04
	OpSetSuper             Opcode = 0x05
	OpDXNS                 Opcode = 0x06
	OpDXNSLate             Opcode = 0x07
	OpKill                 Opcode = 0x08
	OpLabel                Opcode = 0x09
	OpIfNLT                Opcode = 0x0C
	OpIfNLE                Opcode = 0x0D
	OpIfNGT                Opcode = 0x0E
	OpIfNGE                Opcode = 0x0F
	OpJump                 Opcode = 0x10
	OpIfTrue               Opcode = 0x11
	OpIfFalse              Opcode = 0x12
	OpIfEq                 Opcode = 0x13
	OpIfNe                 Opcode = 0x14
	OpIfLT                 Opcode = 0x15
	OpIfLE                 Opcode = 0x16
	OpIfGT                 Opcode = 0x17
	OpIfGE                 Opcode = 0x18
	OpIfStrictEq           Opcode = 0x19
	OpIfStrictNe           Opcode = 0x1A
	OpLookupSwitch         Opcode = 0x1B
	OpPushWith             Opcode = 0x1C
	OpPopScope             Opcode = 0x1D
	OpNextName             Opcode = 0x1E
	OpHasNext              Opcode = 0x1F
	OpPushNull             Opcode = 0x20
	OpPushUndefined        Opcode = 0x21
	OpNextValue            Opcode = 0x23
	OpPushByte             Opcode = 0x24
	OpPushShort            Opcode = 0x25
	OpPushTrue             Opcode = 0x26
	OpPushFalse            Opcode = 0x27
	OpPushNaN              Opcode = 0x28
	OpPop                  Opcode = 0x29
	OpDup                  Opcode = 0x2A
	OpSwap                 Opcode = 0x2B
	OpPushString           Opcode = 0x2C
	OpPushInt              Opcode = 0x2D
	OpPushUInt             Opcode = 0x2E
	OpPushDouble           Opcode = 0x2F
	OpPushScope            Opcode = 0x30
	OpPushNamespace        Opcode = 0x31
	OpHasNext2             Opcode = 0x32
	OpLi8                  Opcode = 0x35
	OpLi16                 Opcode = 0x36
	OpLi32                 Opcode = 0x37
	OpLf32                 Opcode = 0x38
	OpLf64                 Opcode = 0x39
	OpSi8                  Opcode = 0x3A
	OpSi16                 Opcode = 0x3B
	OpSi32                 Opcode = 0x3C
	OpSf32                 Opcode = 0x3D
	OpSf64                 Opcode = 0x3E
	OpNewFunction          Opcode = 0x40
	OpCall                 Opcode = 0x41
	OpConstruct            Opcode = 0x42
	OpCallMethod           Opcode = 0x43
	OpCallStatic           Opcode = 0x44
	OpCallSuper            Opcode = 0x45
	OpCallProperty         Opcode = 0x46
	OpReturnVoid           Opcode = 0x47
	OpReturnValue          Opcode = 0x48
	OpConstructSuper       Opcode = 0x49
	OpConstructProp        Opcode = 0x4A
	OpCallSuperID          Opcode = 0x4B
	OpCallPropLex          Opcode = 0x4C
	OpCallInterface        Opcode = 0x4D
	OpCallSuperVoid        Opcode = 0x4E
	OpCallPropVoid         Opcode = 0x4F
	OpSxi1                 Opcode = 0x50
	OpSxi8                 Opcode = 0x51
	OpSxi16                Opcode = 0x52
	OpApplyType            Opcode = 0x53
	OpNewObject            Opcode = 0x55
	OpNewArray             Opcode = 0x56
	OpNewActivation        Opcode = 0x57
	OpNewClass             Opcode = 0x58
	OpGetDescendants       Opcode = 0x59
	OpNewCatch             Opcode = 0x5A
	OpFindPropGlobalStrict Opcode = 0x5B
	OpFindPropGlobal       Opcode = 0x5C
	OpFindPropStrict       Opcode = 0x5D
	OpFindProperty         Opcode = 0x5E
	OpFindDef              Opcode = 0x5F
	OpGetLex               Opcode = 0x60
	OpSetProperty          Opcode = 0x61
	OpGetLocal             Opcode = 0x62
	OpSetLocal             Opcode = 0x63
	OpGetGlobalScope       Opcode = 0x64
	OpGetScopeObject       Opcode = 0x65
	OpGetProperty          Opcode = 0x66
	OpGetOuterScope        Opcode = 0x67
	OpInitProperty         Opcode = 0x68
	OpSetPropertyLate      Opcode = 0x69
	OpDeleteProperty       Opcode = 0x6A
	OpDeletePropertyLate   Opcode = 0x6B
	OpGetSlot              Opcode = 0x6C
	OpSetSlot              Opcode = 0x6D
	OpGetGlobalSlot        Opcode = 0x6E
	OpSetGlobalSlot        Opcode = 0x6F
	OpConvertS             Opcode = 0x70
	OpEscXElem             Opcode = 0x71
	OpEscXAttr             Opcode = 0x72
	OpConvertI             Opcode = 0x73
	OpConvertU             Opcode = 0x74
	OpConvertD             Opcode = 0x75
	OpConvertB             Opcode = 0x76
	OpConvertO             Opcode = 0x77
	OpCheckFilter          Opcode = 0x78
	OpCoerce               Opcode = 0x80
	OpCoerceB              Opcode = 0x81
	OpCoerceA              Opcode = 0x82
	OpCoerceI              Opcode = 0x83
	OpCoerceD              Opcode = 0x84
	OpCoerceS              Opcode = 0x85
	OpAsType               Opcode = 0x86
	OpAsTypeLate           Opcode = 0x87
	OpCoerceU              Opcode = 0x88
	OpCoerceO              Opcode = 0x89
	OpNegate               Opcode = 0x90
	OpIncrement            Opcode = 0x91
	OpIncLocal             Opcode = 0x92
	OpDecrement            Opcode = 0x93
	OpDecLocal             Opcode = 0x94
	OpTypeOf               Opcode = 0x95
	OpNot                  Opcode = 0x96
	OpBitNot               Opcode = 0x97
	OpConcat               Opcode = 0x9A
	OpAddD                 Opcode = 0x9B
	OpAdd                  Opcode = 0xA0
	OpSubtract             Opcode = 0xA1
	OpMultiply             Opcode = 0xA2
	OpDivide               Opcode = 0xA3
	OpModulo               Opcode = 0xA4
	OpLShift               Opcode = 0xA5
	OpRShift               Opcode = 0xA6
	OpURShift              Opcode = 0xA7
	OpBitAnd               Opcode = 0xA8
	OpBitOr                Opcode = 0xA9
	OpBitXor               Opcode = 0xAA
	OpEquals               Opcode = 0xAB
	OpStrictEquals         Opcode = 0xAC
	OpLessThan             Opcode = 0xAD
	OpLessEquals           Opcode = 0xAE
	OpGreaterThan          Opcode = 0xAF
	OpGreaterEquals        Opcode = 0xB0
	OpInstanceOf           Opcode = 0xB1
	OpIsType               Opcode = 0xB2
	OpIsTypeLate           Opcode = 0xB3
	OpIn                   Opcode = 0xB4
	OpIncrementI           Opcode = 0xC0
	OpDecrementI           Opcode = 0xC1
	OpIncLocalI            Opcode = 0xC2
	OpDecLocalI            Opcode = 0xC3
	OpNegateI              Opcode = 0xC4
	OpAddI                 Opcode = 0xC5
	OpSubtractI            Opcode = 0xC6
	OpMultiplyI            Opcode = 0xC7
	OpGetLocal0            Opcode = 0xD0
	OpGetLocal1            Opcode = 0xD1
	OpGetLocal2            Opcode = 0xD2
	OpGetLocal3            Opcode = 0xD3
	OpSetLocal0            Opcode = 0xD4
	OpSetLocal1            Opcode = 0xD5
	OpSetLocal2            Opcode = 0xD6
	OpSetLocal3            Opcode = 0xD7
	OpDebug                Opcode = 0xEF
	OpDebugLine            Opcode = 0xF0
	OpDebugFile            Opcode = 0xF1
	OpBkptLine             Opcode = 0xF2
	OpTimestamp            Opcode = 0xF3

	// Reserved by the VM for verifier and JIT bookkeeping.
	OpVerifyPass   Opcode = 0xF5
	OpAlloc        Opcode = 0xF6
	OpMark         Opcode = 0xF7
	OpWB           Opcode = 0xF8
	OpPrologue     Opcode = 0xF9
	OpSendEnter    Opcode = 0xFA
	OpDoubleToAtom Opcode = 0xFB
	OpSweep        Opcode = 0xFC
	OpCodeGenOp    Opcode = 0xFD
	OpVerifyOp     Opcode = 0xFE

	// OpRaw carries a single raw byte operand (UByteLiteral).
	OpRaw Opcode = 0x100
)

// OperandType is the encoding and meaning of one instruction operand.
type OperandType byte

// Operand types.
const (
	OperandByteLiteral         OperandType = iota // signed byte
	OperandUByteLiteral                           // unsigned byte
	OperandIntLiteral                             // s32 literal
	OperandUIntLiteral                            // u32 literal
	OperandInt                                    // u30 index into ints
	OperandUInt                                   // u30 index into uints
	OperandDouble                                 // u30 index into doubles
	OperandString                                 // u30 index into strings
	OperandNamespace                              // u30 index into namespaces
	OperandMultiname                              // u30 index into multinames
	OperandClass                                  // u30 index into classes
	OperandMethod                                 // u30 index into methods
	OperandJumpTarget                             // s24 relative to the next instruction
	OperandSwitchDefaultTarget                    // s24 relative to the switch itself
	OperandSwitchTargets                          // u30 count-1, then count s24 relative to the switch
)

func (t OperandType) String() string {
	switch t {
	case OperandByteLiteral:
		return "ByteLiteral"
	case OperandUByteLiteral:
		return "UByteLiteral"
	case OperandIntLiteral:
		return "IntLiteral"
	case OperandUIntLiteral:
		return "UIntLiteral"
	case OperandInt:
		return "Int"
	case OperandUInt:
		return "UInt"
	case OperandDouble:
		return "Double"
	case OperandString:
		return "String"
	case OperandNamespace:
		return "Namespace"
	case OperandMultiname:
		return "Multiname"
	case OperandClass:
		return "Class"
	case OperandMethod:
		return "Method"
	case OperandJumpTarget:
		return "JumpTarget"
	case OperandSwitchDefaultTarget:
		return "SwitchDefaultTarget"
	case OperandSwitchTargets:
		return "SwitchTargets"
	}
	return "Unknown"
}

// IsIndex reports whether operands of type t are pool or table indices.
func (t OperandType) IsIndex() bool {
	return t >= OperandInt && t <= OperandMethod
}

// IsLabel reports whether operands of type t are branch targets.
func (t OperandType) IsLabel() bool {
	return t >= OperandJumpTarget
}

// OpInfo describes the fixed operand layout of an opcode.
type OpInfo struct {
	Name     string
	Operands []OperandType
	// Terminal instructions never fall through to the next byte.
	Terminal bool
	Valid    bool
}

var opTable [257]OpInfo

func op(code Opcode, name string, operands ...OperandType) {
	opTable[code] = OpInfo{Name: name, Operands: operands, Valid: true}
}

func init() {
	op(OpBkpt, "bkpt")
	op(OpNop, "nop")
	op(OpThrow, "throw")
	op(OpGetSuper, "getsuper", OperandMultiname)
	op(OpSetSuper, "setsuper", OperandMultiname)
	op(OpDXNS, "dxns", OperandString)
	op(OpDXNSLate, "dxnslate")
	op(OpKill, "kill", OperandUIntLiteral)
	op(OpLabel, "label")
	op(OpIfNLT, "ifnlt", OperandJumpTarget)
	op(OpIfNLE, "ifnle", OperandJumpTarget)
	op(OpIfNGT, "ifngt", OperandJumpTarget)
	op(OpIfNGE, "ifnge", OperandJumpTarget)
	op(OpJump, "jump", OperandJumpTarget)
	op(OpIfTrue, "iftrue", OperandJumpTarget)
	op(OpIfFalse, "iffalse", OperandJumpTarget)
	op(OpIfEq, "ifeq", OperandJumpTarget)
	op(OpIfNe, "ifne", OperandJumpTarget)
	op(OpIfLT, "iflt", OperandJumpTarget)
	op(OpIfLE, "ifle", OperandJumpTarget)
	op(OpIfGT, "ifgt", OperandJumpTarget)
	op(OpIfGE, "ifge", OperandJumpTarget)
	op(OpIfStrictEq, "ifstricteq", OperandJumpTarget)
	op(OpIfStrictNe, "ifstrictne", OperandJumpTarget)
	op(OpLookupSwitch, "lookupswitch", OperandSwitchDefaultTarget, OperandSwitchTargets)
	op(OpPushWith, "pushwith")
	op(OpPopScope, "popscope")
	op(OpNextName, "nextname")
	op(OpHasNext, "hasnext")
	op(OpPushNull, "pushnull")
	op(OpPushUndefined, "pushundefined")
	op(OpNextValue, "nextvalue")
	op(OpPushByte, "pushbyte", OperandByteLiteral)
	op(OpPushShort, "pushshort", OperandIntLiteral)
	op(OpPushTrue, "pushtrue")
	op(OpPushFalse, "pushfalse")
	op(OpPushNaN, "pushnan")
	op(OpPop, "pop")
	op(OpDup, "dup")
	op(OpSwap, "swap")
	op(OpPushString, "pushstring", OperandString)
	op(OpPushInt, "pushint", OperandInt)
	op(OpPushUInt, "pushuint", OperandUInt)
	op(OpPushDouble, "pushdouble", OperandDouble)
	op(OpPushScope, "pushscope")
	op(OpPushNamespace, "pushnamespace", OperandNamespace)
	op(OpHasNext2, "hasnext2", OperandUIntLiteral, OperandUIntLiteral)
	op(OpLi8, "li8")
	op(OpLi16, "li16")
	op(OpLi32, "li32")
	op(OpLf32, "lf32")
	op(OpLf64, "lf64")
	op(OpSi8, "si8")
	op(OpSi16, "si16")
	op(OpSi32, "si32")
	op(OpSf32, "sf32")
	op(OpSf64, "sf64")
	op(OpNewFunction, "newfunction", OperandMethod)
	op(OpCall, "call", OperandUIntLiteral)
	op(OpConstruct, "construct", OperandUIntLiteral)
	op(OpCallMethod, "callmethod", OperandUIntLiteral, OperandUIntLiteral)
	op(OpCallStatic, "callstatic", OperandMethod, OperandUIntLiteral)
	op(OpCallSuper, "callsuper", OperandMultiname, OperandUIntLiteral)
	op(OpCallProperty, "callproperty", OperandMultiname, OperandUIntLiteral)
	op(OpReturnVoid, "returnvoid")
	op(OpReturnValue, "returnvalue")
	op(OpConstructSuper, "constructsuper", OperandUIntLiteral)
	op(OpConstructProp, "constructprop", OperandMultiname, OperandUIntLiteral)
	op(OpCallSuperID, "callsuperid")
	op(OpCallPropLex, "callproplex", OperandMultiname, OperandUIntLiteral)
	op(OpCallInterface, "callinterface")
	op(OpCallSuperVoid, "callsupervoid", OperandMultiname, OperandUIntLiteral)
	op(OpCallPropVoid, "callpropvoid", OperandMultiname, OperandUIntLiteral)
	op(OpSxi1, "sxi1")
	op(OpSxi8, "sxi8")
	op(OpSxi16, "sxi16")
	op(OpApplyType, "applytype", OperandUIntLiteral)
	op(OpNewObject, "newobject", OperandUIntLiteral)
	op(OpNewArray, "newarray", OperandUIntLiteral)
	op(OpNewActivation, "newactivation")
	op(OpNewClass, "newclass", OperandClass)
	op(OpGetDescendants, "getdescendants", OperandMultiname)
	op(OpNewCatch, "newcatch", OperandUIntLiteral)
	op(OpFindPropGlobalStrict, "findpropglobalstrict", OperandMultiname)
	op(OpFindPropGlobal, "findpropglobal", OperandMultiname)
	op(OpFindPropStrict, "findpropstrict", OperandMultiname)
	op(OpFindProperty, "findproperty", OperandMultiname)
	op(OpFindDef, "finddef", OperandMultiname)
	op(OpGetLex, "getlex", OperandMultiname)
	op(OpSetProperty, "setproperty", OperandMultiname)
	op(OpGetLocal, "getlocal", OperandUIntLiteral)
	op(OpSetLocal, "setlocal", OperandUIntLiteral)
	op(OpGetGlobalScope, "getglobalscope")
	op(OpGetScopeObject, "getscopeobject", OperandUByteLiteral)
	op(OpGetProperty, "getproperty", OperandMultiname)
	op(OpGetOuterScope, "getouterscope", OperandUIntLiteral)
	op(OpInitProperty, "initproperty", OperandMultiname)
	op(OpSetPropertyLate, "setpropertylate")
	op(OpDeleteProperty, "deleteproperty", OperandMultiname)
	op(OpDeletePropertyLate, "deletepropertylate")
	op(OpGetSlot, "getslot", OperandUIntLiteral)
	op(OpSetSlot, "setslot", OperandUIntLiteral)
	op(OpGetGlobalSlot, "getglobalslot", OperandUIntLiteral)
	op(OpSetGlobalSlot, "setglobalslot", OperandUIntLiteral)
	op(OpConvertS, "convert_s")
	op(OpEscXElem, "esc_xelem")
	op(OpEscXAttr, "esc_xattr")
	op(OpConvertI, "convert_i")
	op(OpConvertU, "convert_u")
	op(OpConvertD, "convert_d")
	op(OpConvertB, "convert_b")
	op(OpConvertO, "convert_o")
	op(OpCheckFilter, "checkfilter")
	op(OpCoerce, "coerce", OperandMultiname)
	op(OpCoerceB, "coerce_b")
	op(OpCoerceA, "coerce_a")
	op(OpCoerceI, "coerce_i")
	op(OpCoerceD, "coerce_d")
	op(OpCoerceS, "coerce_s")
	op(OpAsType, "astype", OperandMultiname)
	op(OpAsTypeLate, "astypelate")
	op(OpCoerceU, "coerce_u")
	op(OpCoerceO, "coerce_o")
	op(OpNegate, "negate")
	op(OpIncrement, "increment")
	op(OpIncLocal, "inclocal", OperandUIntLiteral)
	op(OpDecrement, "decrement")
	op(OpDecLocal, "declocal", OperandUIntLiteral)
	op(OpTypeOf, "typeof")
	op(OpNot, "not")
	op(OpBitNot, "bitnot")
	op(OpConcat, "concat")
	op(OpAddD, "add_d")
	op(OpAdd, "add")
	op(OpSubtract, "subtract")
	op(OpMultiply, "multiply")
	op(OpDivide, "divide")
	op(OpModulo, "modulo")
	op(OpLShift, "lshift")
	op(OpRShift, "rshift")
	op(OpURShift, "urshift")
	op(OpBitAnd, "bitand")
	op(OpBitOr, "bitor")
	op(OpBitXor, "bitxor")
	op(OpEquals, "equals")
	op(OpStrictEquals, "strictequals")
	op(OpLessThan, "lessthan")
	op(OpLessEquals, "lessequals")
	op(OpGreaterThan, "greaterthan")
	op(OpGreaterEquals, "greaterequals")
	op(OpInstanceOf, "instanceof")
	op(OpIsType, "istype", OperandMultiname)
	op(OpIsTypeLate, "istypelate")
	op(OpIn, "in")
	op(OpIncrementI, "increment_i")
	op(OpDecrementI, "decrement_i")
	op(OpIncLocalI, "inclocal_i", OperandUIntLiteral)
	op(OpDecLocalI, "declocal_i", OperandUIntLiteral)
	op(OpNegateI, "negate_i")
	op(OpAddI, "add_i")
	op(OpSubtractI, "subtract_i")
	op(OpMultiplyI, "multiply_i")
	op(OpGetLocal0, "getlocal0")
	op(OpGetLocal1, "getlocal1")
	op(OpGetLocal2, "getlocal2")
	op(OpGetLocal3, "getlocal3")
	op(OpSetLocal0, "setlocal0")
	op(OpSetLocal1, "setlocal1")
	op(OpSetLocal2, "setlocal2")
	op(OpSetLocal3, "setlocal3")
	op(OpDebug, "debug", OperandUByteLiteral, OperandString, OperandUByteLiteral, OperandUIntLiteral)
	op(OpDebugLine, "debugline", OperandUIntLiteral)
	op(OpDebugFile, "debugfile", OperandString)
	op(OpBkptLine, "bkptline", OperandUIntLiteral)
	op(OpTimestamp, "timestamp")
	op(OpVerifyPass, "verifypass")
	op(OpAlloc, "alloc")
	op(OpMark, "mark")
	op(OpWB, "wb")
	op(OpPrologue, "prologue")
	op(OpSendEnter, "sendenter")
	op(OpDoubleToAtom, "doubletoatom")
	op(OpSweep, "sweep")
	op(OpCodeGenOp, "codegenop")
	op(OpVerifyOp, "verifyop")
	op(OpRaw, "raw", OperandUByteLiteral)

	for _, code := range []Opcode{OpJump, OpLookupSwitch, OpThrow, OpReturnVoid, OpReturnValue} {
		opTable[code].Terminal = true
	}
}

// Info returns the operand layout of op. Unassigned byte values report Valid false.
func Info(op Opcode) OpInfo {
	if int(op) >= len(opTable) {
		return OpInfo{}
	}
	return opTable[op]
}

// LookupOpcode finds an opcode by mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	for i := range opTable {
		if opTable[i].Valid && opTable[i].Name == name {
			return Opcode(i), true
		}
	}
	return 0, false
}

func (op Opcode) String() string {
	if info := Info(op); info.Valid {
		return info.Name
	}
	return fmt.Sprintf("op_0x%02x", uint16(op))
}

// IsDebug reports whether op only carries debugger information.
func (op Opcode) IsDebug() bool {
	switch op {
	case OpDebug, OpDebugLine, OpDebugFile, OpBkptLine, OpBkpt, OpTimestamp:
		return true
	}
	return false
}
