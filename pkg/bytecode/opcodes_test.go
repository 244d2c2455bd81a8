package bytecode

import "testing"

func TestOpcodeMetadataComplete(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" {
			t.Errorf("opcode 0x%02X has no name", byte(op))
		}
		if info.OperandLen < 0 {
			t.Errorf("%s has negative operand length", info.Name)
		}
	}
}

func TestOpcodeOperandLengths(t *testing.T) {
	tests := []struct {
		op   Opcode
		want int
	}{
		{OpPushConst, 2},
		{OpPop, 0},
		{OpLoadVar, 2},
		{OpStoreVar, 2},
		{OpLoadReq, 2},
		{OpStoreReq, 2},
		{OpGetAttr, 2},
		{OpGetItem, 0},
		{OpCallFunc, 3},
		{OpCapture, 2},
		{OpAdd, 0},
		{OpEq, 0},
		{OpNot, 0},
		{OpHalt, 0},
	}
	for _, tc := range tests {
		if got := tc.op.OperandLen(); got != tc.want {
			t.Errorf("%s operand length = %d, want %d", tc.op, got, tc.want)
		}
	}
}

func TestOpcodeValid(t *testing.T) {
	if !OpPushConst.Valid() {
		t.Error("PUSH_CONST reported invalid")
	}
	if Opcode(0x7F).Valid() {
		t.Error("0x7F reported valid")
	}
}

func TestUnknownOpcodeName(t *testing.T) {
	got := Opcode(0x7F).String()
	if got != "UNKNOWN(0x7F)" {
		t.Errorf("String() = %q, want UNKNOWN(0x7F)", got)
	}
}
