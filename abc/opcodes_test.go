package abc_test

import (
	"testing"

	"github.com/gemforce-team/abcedit/abc"
)

func TestOpcodeInfo(t *testing.T) {
	tests := []struct {
		op       abc.Opcode
		name     string
		operands []abc.OperandType
		terminal bool
	}{
		{abc.OpNop, "nop", nil, false},
		{abc.OpJump, "jump", []abc.OperandType{abc.OperandJumpTarget}, true},
		{abc.OpIfFalse, "iffalse", []abc.OperandType{abc.OperandJumpTarget}, false},
		{abc.OpLookupSwitch, "lookupswitch", []abc.OperandType{abc.OperandSwitchDefaultTarget, abc.OperandSwitchTargets}, true},
		{abc.OpCallProperty, "callproperty", []abc.OperandType{abc.OperandMultiname, abc.OperandUIntLiteral}, false},
		{abc.OpDebug, "debug", []abc.OperandType{abc.OperandUByteLiteral, abc.OperandString, abc.OperandUByteLiteral, abc.OperandUIntLiteral}, false},
		{abc.OpNewClass, "newclass", []abc.OperandType{abc.OperandClass}, false},
		{abc.OpReturnValue, "returnvalue", nil, true},
		{abc.OpThrow, "throw", nil, true},
		{abc.OpRaw, "raw", []abc.OperandType{abc.OperandUByteLiteral}, false},
		{abc.OpCallSuperID, "callsuperid", nil, false},
		{abc.OpCallInterface, "callinterface", nil, false},
		{abc.OpFindPropGlobalStrict, "findpropglobalstrict", []abc.OperandType{abc.OperandMultiname}, false},
		{abc.OpFindPropGlobal, "findpropglobal", []abc.OperandType{abc.OperandMultiname}, false},
		{abc.OpSetPropertyLate, "setpropertylate", nil, false},
		{abc.OpDeletePropertyLate, "deletepropertylate", nil, false},
		{abc.OpConcat, "concat", nil, false},
		{abc.OpAddD, "add_d", nil, false},
		{abc.OpVerifyPass, "verifypass", nil, false},
		{abc.OpVerifyOp, "verifyop", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := abc.Info(tt.op)
			if !info.Valid {
				t.Fatal("not valid")
			}
			if info.Name != tt.name || tt.op.String() != tt.name {
				t.Errorf("name = %q, String = %q", info.Name, tt.op.String())
			}
			if info.Terminal != tt.terminal {
				t.Errorf("terminal = %v", info.Terminal)
			}
			if len(info.Operands) != len(tt.operands) {
				t.Fatalf("operands = %v, want %v", info.Operands, tt.operands)
			}
			for i := range tt.operands {
				if info.Operands[i] != tt.operands[i] {
					t.Errorf("operand %d = %v, want %v", i, info.Operands[i], tt.operands[i])
				}
			}
		})
	}
}

func TestOpcodeUnassigned(t *testing.T) {
	for _, b := range []abc.Opcode{0x00, 0x0A, 0x22, 0x33, 0x9C, 0xFF} {
		if abc.Info(b).Valid {
			t.Errorf("0x%02x should be unassigned", uint16(b))
		}
	}
	if abc.Info(0x1000).Valid {
		t.Error("out-of-range opcode reported valid")
	}
	if got := abc.Opcode(0x0A).String(); got != "op_0x0a" {
		t.Errorf("String = %q", got)
	}
	for b := abc.Opcode(0xF5); b <= 0xFE; b++ {
		if !abc.Info(b).Valid {
			t.Errorf("0x%02x should be assigned", uint16(b))
		}
	}
}

func TestLookupOpcode(t *testing.T) {
	for b := 0; b < 0x100; b++ {
		op := abc.Opcode(b)
		info := abc.Info(op)
		if !info.Valid {
			continue
		}
		got, ok := abc.LookupOpcode(info.Name)
		if !ok || got != op {
			t.Errorf("LookupOpcode(%q) = 0x%02x, %v; want 0x%02x", info.Name, uint16(got), ok, b)
		}
	}
	if _, ok := abc.LookupOpcode("frobnicate"); ok {
		t.Error("found unknown mnemonic")
	}
}

func TestOperandTypeClasses(t *testing.T) {
	if !abc.OperandMultiname.IsIndex() || abc.OperandUIntLiteral.IsIndex() {
		t.Error("IsIndex misclassifies")
	}
	if !abc.OperandSwitchTargets.IsLabel() || abc.OperandMethod.IsLabel() {
		t.Error("IsLabel misclassifies")
	}
	if !abc.OpDebugLine.IsDebug() || abc.OpGetLocal.IsDebug() {
		t.Error("IsDebug misclassifies")
	}
}
