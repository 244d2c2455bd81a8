package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
// Immediate operands are little-endian.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpPushConst Opcode = 0x01 // Push constant from pool: OpPushConst <index:u16>
	OpPop       Opcode = 0x02 // Pop top of stack

	// ========================================================================
	// Variables (0x10-0x1F)
	// ========================================================================

	OpLoadVar  Opcode = 0x10 // Push frame variable: OpLoadVar <name:u16>
	OpStoreVar Opcode = 0x11 // Reserved. Never emitted; the VM rejects it.
	OpLoadReq  Opcode = 0x12 // Push request-store slot (missing -> None): OpLoadReq <name:u16>
	OpStoreReq Opcode = 0x13 // Pop and store to request slot: OpStoreReq <name:u16>

	// ========================================================================
	// Arithmetic (0x20-0x2F)
	// ========================================================================

	OpAdd Opcode = 0x20 // a + b
	OpSub Opcode = 0x21 // a - b
	OpMul Opcode = 0x22 // a * b
	OpDiv Opcode = 0x23 // a / b
	OpMod Opcode = 0x24 // a % b

	// ========================================================================
	// Comparison (0x30-0x3F)
	// ========================================================================

	OpEq Opcode = 0x30 // a == b
	OpNe Opcode = 0x31 // a != b
	OpLt Opcode = 0x32 // a < b
	OpGt Opcode = 0x33 // a > b
	OpLe Opcode = 0x34 // a <= b
	OpGe Opcode = 0x35 // a >= b

	// ========================================================================
	// Logical operations (0x40-0x4F)
	// ========================================================================

	OpAnd Opcode = 0x40 // a && b (strict: both operands already evaluated)
	OpOr  Opcode = 0x41 // a || b (strict)
	OpNot Opcode = 0x42 // !a

	// ========================================================================
	// Object access (0x50-0x5F)
	// ========================================================================

	OpGetAttr Opcode = 0x50 // obj.field via dispatcher: OpGetAttr <field:u16>
	OpGetItem Opcode = 0x51 // obj[key] via dispatcher

	// ========================================================================
	// Calls and capture (0x60-0x6F)
	// ========================================================================

	OpCallFunc Opcode = 0x60 // Call built-in: OpCallFunc <name:u16> <argc:u8>
	OpCapture  Opcode = 0x61 // Emit capture event: OpCapture <argc:u8> <namedc:u8>

	// ========================================================================
	// Termination (0xF0-0xFF)
	// ========================================================================

	OpHalt Opcode = 0xFF // End of stream
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack (-1 = variable)
	StackPush  int    // How many values pushed to stack
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpPushConst: {"PUSH_CONST", 0, 1, 2},
	OpPop:       {"POP", 1, 0, 0},

	OpLoadVar:  {"LOAD_VAR", 0, 1, 2},
	OpStoreVar: {"STORE_VAR", 1, 0, 2},
	OpLoadReq:  {"LOAD_REQ", 0, 1, 2},
	OpStoreReq: {"STORE_REQ", 1, 0, 2},

	OpAdd: {"ADD", 2, 1, 0},
	OpSub: {"SUB", 2, 1, 0},
	OpMul: {"MUL", 2, 1, 0},
	OpDiv: {"DIV", 2, 1, 0},
	OpMod: {"MOD", 2, 1, 0},

	OpEq: {"EQ", 2, 1, 0},
	OpNe: {"NE", 2, 1, 0},
	OpLt: {"LT", 2, 1, 0},
	OpGt: {"GT", 2, 1, 0},
	OpLe: {"LE", 2, 1, 0},
	OpGe: {"GE", 2, 1, 0},

	OpAnd: {"AND", 2, 1, 0},
	OpOr:  {"OR", 2, 1, 0},
	OpNot: {"NOT", 1, 1, 0},

	OpGetAttr: {"GET_ATTR", 1, 1, 2},
	OpGetItem: {"GET_ITEM", 2, 1, 0},

	OpCallFunc: {"CALL_FUNC", -1, 1, 3}, // Pops argc args
	OpCapture:  {"CAPTURE", -1, 0, 2},   // Pops argc + 2*namedc values

	OpHalt: {"HALT", 0, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// Valid reports whether the byte is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}
