package bytecode

import (
	"math"
	"strconv"
)

// ---------------------------------------------------------------------------
// Constant pool: interned literals and symbolic names
// ---------------------------------------------------------------------------

// ConstantKind tags a pool entry. Identifier/Field/Function are distinct
// kinds even when their text matches, keeping the VM's read pattern
// type-safe.
type ConstantKind byte

const (
	ConstInt ConstantKind = iota
	ConstFloat
	ConstString
	ConstBool
	ConstNone
	ConstIdentifier
	ConstField
	ConstFunction
)

func (k ConstantKind) String() string {
	switch k {
	case ConstInt:
		return "Int"
	case ConstFloat:
		return "Float"
	case ConstString:
		return "String"
	case ConstBool:
		return "Bool"
	case ConstNone:
		return "None"
	case ConstIdentifier:
		return "Identifier"
	case ConstField:
		return "Field"
	case ConstFunction:
		return "Function"
	}
	return "Unknown"
}

// Constant is one pool entry.
type Constant struct {
	Kind ConstantKind
	I    int64   // ConstInt
	F    float64 // ConstFloat
	S    string  // ConstString and the three name kinds
	B    bool    // ConstBool
}

// Name returns the symbolic text of an Identifier/Field/Function constant.
func (c Constant) Name() string { return c.S }

// AsValue lifts the constant to a runtime Value. Name kinds lift to their
// text so they can be pushed and compared like strings.
func (c Constant) AsValue() Value {
	switch c.Kind {
	case ConstInt:
		return Int(c.I)
	case ConstFloat:
		return Float(c.F)
	case ConstString, ConstIdentifier, ConstField, ConstFunction:
		return String(c.S)
	case ConstBool:
		return Bool(c.B)
	}
	return None()
}

// String renders the constant for disassembly.
func (c Constant) String() string {
	switch c.Kind {
	case ConstInt:
		return strconv.FormatInt(c.I, 10)
	case ConstFloat:
		return strconv.FormatFloat(c.F, 'g', -1, 64)
	case ConstString:
		return strconv.Quote(c.S)
	case ConstBool:
		if c.B {
			return "True"
		}
		return "False"
	case ConstNone:
		return "None"
	case ConstIdentifier:
		return "ident:" + c.S
	case ConstField:
		return "field:" + c.S
	case ConstFunction:
		return "func:" + c.S
	}
	return "<invalid>"
}

// constKey is the interning key: kind plus a normalized payload. Floats key
// by their IEEE-754 bit pattern so that distinct NaNs stay distinct and
// 1.0 != 1 (the int).
type constKey struct {
	kind ConstantKind
	num  uint64
	str  string
}

func keyFor(c Constant) constKey {
	switch c.Kind {
	case ConstInt:
		return constKey{kind: ConstInt, num: uint64(c.I)}
	case ConstFloat:
		return constKey{kind: ConstFloat, num: math.Float64bits(c.F)}
	case ConstBool:
		var n uint64
		if c.B {
			n = 1
		}
		return constKey{kind: ConstBool, num: n}
	default:
		return constKey{kind: c.Kind, str: c.S}
	}
}

// MaxPoolSize is the number of entries addressable by a u16 index.
const MaxPoolSize = 1 << 16

// ConstantPool is an append-only, deduplicated table of constants shared by
// all bytecode streams within a Program. It is frozen once the Program is
// emitted.
type ConstantPool struct {
	entries []Constant
	index   map[constKey]uint16
}

// NewConstantPool creates an empty pool.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{index: make(map[constKey]uint16)}
}

// Add interns a constant and returns its u16 index. Equal constants of the
// same kind share one entry. Returns ok=false when the pool is full.
func (p *ConstantPool) Add(c Constant) (uint16, bool) {
	key := keyFor(c)
	if idx, found := p.index[key]; found {
		return idx, true
	}
	if len(p.entries) >= MaxPoolSize {
		return 0, false
	}
	idx := uint16(len(p.entries))
	p.entries = append(p.entries, c)
	p.index[key] = idx
	return idx, true
}

// Get returns the constant at idx.
func (p *ConstantPool) Get(idx uint16) (Constant, bool) {
	if int(idx) >= len(p.entries) {
		return Constant{}, false
	}
	return p.entries[idx], true
}

// Len returns the number of pool entries.
func (p *ConstantPool) Len() int { return len(p.entries) }

// Entries returns the underlying entry slice (read-only by convention).
func (p *ConstantPool) Entries() []Constant { return p.entries }

// rebuildIndex reconstructs the interning index after deserialization.
func (p *ConstantPool) rebuildIndex() {
	p.index = make(map[constKey]uint16, len(p.entries))
	for i, c := range p.entries {
		key := keyFor(c)
		if _, exists := p.index[key]; !exists {
			p.index[key] = uint16(i)
		}
	}
}

// Convenience constructors used by the compiler.

func IntConstant(i int64) Constant      { return Constant{Kind: ConstInt, I: i} }
func FloatConstant(f float64) Constant  { return Constant{Kind: ConstFloat, F: f} }
func StringConstant(s string) Constant  { return Constant{Kind: ConstString, S: s} }
func BoolConstant(b bool) Constant      { return Constant{Kind: ConstBool, B: b} }
func NoneConstant() Constant            { return Constant{Kind: ConstNone} }
func IdentifierConstant(s string) Constant { return Constant{Kind: ConstIdentifier, S: s} }
func FieldConstant(s string) Constant   { return Constant{Kind: ConstField, S: s} }
func FunctionConstant(s string) Constant { return Constant{Kind: ConstFunction, S: s} }
