package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembler: human-readable bytecode listings
// ---------------------------------------------------------------------------

// Disassemble renders a full bytecode stream, one instruction per line,
// with pool operands resolved.
func Disassemble(code []byte, pool *ConstantPool) string {
	var sb strings.Builder
	ip := 0
	for ip < len(code) {
		sb.WriteString(fmt.Sprintf("%04d  %s\n", ip, DisassembleInstruction(code, ip, pool)))
		op := Opcode(code[ip])
		if !op.Valid() {
			break
		}
		ip += op.InstructionLen()
	}
	return sb.String()
}

// DisassembleInstruction renders the single instruction at ip.
func DisassembleInstruction(code []byte, ip int, pool *ConstantPool) string {
	op := Opcode(code[ip])
	info := GetOpcodeInfo(op)
	if !op.Valid() {
		return info.Name
	}
	if ip+op.InstructionLen() > len(code) {
		return fmt.Sprintf("%s <truncated>", info.Name)
	}

	switch op {
	case OpPushConst, OpLoadVar, OpStoreVar, OpLoadReq, OpStoreReq, OpGetAttr:
		idx := binary.LittleEndian.Uint16(code[ip+1:])
		return fmt.Sprintf("%-12s %d (%s)", info.Name, idx, poolRef(pool, idx))

	case OpCallFunc:
		idx := binary.LittleEndian.Uint16(code[ip+1:])
		argc := code[ip+3]
		return fmt.Sprintf("%-12s %d (%s) argc=%d", info.Name, idx, poolRef(pool, idx), argc)

	case OpCapture:
		return fmt.Sprintf("%-12s argc=%d namedc=%d", info.Name, code[ip+1], code[ip+2])

	default:
		return info.Name
	}
}

// DisassembleProgram renders every probe in a program.
func DisassembleProgram(p *Program) string {
	var sb strings.Builder
	for _, probe := range p.Probes {
		sb.WriteString(fmt.Sprintf("== probe %s (%s)\n", probe.ID, probe.Spec))
		if len(probe.Predicate) == 0 {
			sb.WriteString("-- predicate: <always true>\n")
		} else {
			sb.WriteString("-- predicate:\n")
			sb.WriteString(Disassemble(probe.Predicate, p.Pool))
		}
		if len(probe.Body) == 0 {
			sb.WriteString("-- body: <empty>\n")
		} else {
			sb.WriteString("-- body:\n")
			sb.WriteString(Disassemble(probe.Body, p.Pool))
		}
	}
	return sb.String()
}

func poolRef(pool *ConstantPool, idx uint16) string {
	if pool == nil {
		return "?"
	}
	c, ok := pool.Get(idx)
	if !ok {
		return "out of range"
	}
	return c.String()
}
