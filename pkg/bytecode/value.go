package bytecode

import (
	"fmt"
	"math"
	"strconv"
)

// ---------------------------------------------------------------------------
// Value: the VM's closed tagged union
// ---------------------------------------------------------------------------

// ValueKind identifies the runtime kind of a Value.
type ValueKind int

const (
	KindNone ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Value is a VM runtime value. Object values are opaque host handles: the
// VM never introspects them, only the dispatcher does.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
	obj  interface{}
}

// None returns the None value.
func None() Value { return Value{kind: KindNone} }

// Bool wraps a bool.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an int64.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a float64.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Object wraps an opaque host handle.
func Object(obj interface{}) Value { return Value{kind: KindObject, obj: obj} }

// Kind returns the value's kind tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsNone reports whether the value is None.
func (v Value) IsNone() bool { return v.kind == KindNone }

// Bool returns the wrapped bool (false if not a bool).
func (v Value) Bool() bool { return v.b }

// Int returns the wrapped int64 (0 if not an int).
func (v Value) Int() int64 { return v.i }

// Float returns the wrapped float64 (0 if not a float).
func (v Value) Float() float64 { return v.f }

// Str returns the wrapped string ("" if not a string).
func (v Value) Str() string { return v.s }

// Obj returns the wrapped host handle (nil if not an object).
func (v Value) Obj() interface{} { return v.obj }

// String renders the value for disassembly and error messages.
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "None"
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindObject:
		return fmt.Sprintf("<object %T>", v.obj)
	}
	return "<invalid>"
}

// Equal reports deep equality for non-object values. Objects compare by
// handle identity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindObject:
		return v.obj == o.obj
	}
	return false
}

// ---------------------------------------------------------------------------
// Default arithmetic and comparison semantics
// ---------------------------------------------------------------------------

// asFloat converts an Int or Float value to float64.
func asFloat(v Value) float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

func isNumeric(v Value) bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// arithmeticOp applies ADD/SUB/MUL/DIV/MOD to two values.
//
// Int op Int stays Int; mixing Int and Float promotes to Float. String+String
// concatenates. Everything else is a type mismatch.
func arithmeticOp(op Opcode, left, right Value) (Value, *VmError) {
	switch {
	case left.kind == KindInt && right.kind == KindInt:
		l, r := left.i, right.i
		switch op {
		case OpAdd:
			return Int(l + r), nil
		case OpSub:
			return Int(l - r), nil
		case OpMul:
			return Int(l * r), nil
		case OpDiv:
			if r == 0 {
				return None(), newVmError(VmTypeMismatch, "Division by zero")
			}
			return Int(l / r), nil
		case OpMod:
			if r == 0 {
				return None(), newVmError(VmTypeMismatch, "Modulo by zero")
			}
			return Int(l % r), nil
		}

	case isNumeric(left) && isNumeric(right):
		l, r := asFloat(left), asFloat(right)
		switch op {
		case OpAdd:
			return Float(l + r), nil
		case OpSub:
			return Float(l - r), nil
		case OpMul:
			return Float(l * r), nil
		case OpDiv:
			if r == 0 {
				return None(), newVmError(VmTypeMismatch, "Division by zero")
			}
			return Float(l / r), nil
		case OpMod:
			return Float(math.Mod(l, r)), nil
		}

	case left.kind == KindString && right.kind == KindString && op == OpAdd:
		return String(left.s + right.s), nil
	}

	return None(), newVmError(VmTypeMismatch,
		"Cannot perform %s on %s and %s", op, left.kind, right.kind)
}

// comparisonOp applies EQ/NE/LT/GT/LE/GE to two values.
//
// Numbers compare with Int→Float promotion, strings lexicographically.
// Bools and None support only EQ/NE; None equals nothing but None.
func comparisonOp(op Opcode, left, right Value) (Value, *VmError) {
	var result bool

	switch {
	case left.kind == KindBool && right.kind == KindBool:
		switch op {
		case OpEq:
			result = left.b == right.b
		case OpNe:
			result = left.b != right.b
		default:
			return None(), newVmError(VmTypeMismatch, "Cannot order-compare bools with %s", op)
		}

	case left.kind == KindInt && right.kind == KindInt:
		l, r := left.i, right.i
		switch op {
		case OpEq:
			result = l == r
		case OpNe:
			result = l != r
		case OpLt:
			result = l < r
		case OpGt:
			result = l > r
		case OpLe:
			result = l <= r
		case OpGe:
			result = l >= r
		}

	case isNumeric(left) && isNumeric(right):
		l, r := asFloat(left), asFloat(right)
		switch op {
		case OpEq:
			result = l == r
		case OpNe:
			result = l != r
		case OpLt:
			result = l < r
		case OpGt:
			result = l > r
		case OpLe:
			result = l <= r
		case OpGe:
			result = l >= r
		}

	case left.kind == KindString && right.kind == KindString:
		l, r := left.s, right.s
		switch op {
		case OpEq:
			result = l == r
		case OpNe:
			result = l != r
		case OpLt:
			result = l < r
		case OpGt:
			result = l > r
		case OpLe:
			result = l <= r
		case OpGe:
			result = l >= r
		}

	case left.kind == KindNone && right.kind == KindNone:
		switch op {
		case OpEq:
			result = true
		case OpNe:
			result = false
		default:
			return None(), newVmError(VmTypeMismatch, "Cannot order-compare None values")
		}

	case left.kind == KindNone || right.kind == KindNone:
		switch op {
		case OpEq:
			result = false
		case OpNe:
			result = true
		default:
			return None(), newVmError(VmTypeMismatch, "Cannot order-compare with None")
		}

	default:
		return None(), newVmError(VmTypeMismatch,
			"Cannot compare %s and %s with %s", left.kind, right.kind, op)
	}

	return Bool(result), nil
}
