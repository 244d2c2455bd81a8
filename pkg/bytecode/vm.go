package bytecode

import (
	"encoding/binary"
	"math"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// VM: linear stack machine for probe bytecode
// ---------------------------------------------------------------------------

// Dispatcher is the host-supplied capability set. It is the only boundary
// that may hold host-language references; the VM treats Object values as
// opaque and routes every host interaction through here.
type Dispatcher interface {
	// LoadVariable resolves a frame-local name. Unknown names are an
	// error, not None.
	LoadVariable(name string) (Value, error)

	// GetAttribute resolves obj.field.
	GetAttribute(obj Value, field string) (Value, error)

	// GetItem resolves obj[key].
	GetItem(obj Value, key Value) (Value, error)

	// CallFunction invokes a built-in by name.
	CallFunction(name string, args []Value) (Value, error)

	// Truthy decides truthiness for opaque Object values.
	Truthy(obj Value) (bool, error)
}

// RequestStore is the per-request keyed slot store shared by all probes
// firing within one request. Reads of unset slots yield None.
type RequestStore interface {
	Get(name string) Value
	Set(name string, v Value)
}

// Capture is one emitted capture record. Positional arguments are named
// arg0..argN in emission order.
type Capture struct {
	Values map[string]Value
}

var vmLog = commonlog.GetLogger("hogtrace.vm")

// VM executes one bytecode stream to completion on the calling goroutine.
// It never suspends, blocks, or performs I/O. A VM instance is not safe for
// concurrent use; run one per probe execution.
type VM struct {
	pool       *ConstantPool
	dispatcher Dispatcher
	store      RequestStore
	limits     Limits

	stack        []Value
	instructions int
	captureBytes int
	captures     []Capture

	// Trace logs each instruction before executing it.
	Trace bool
}

// NewVM creates a VM over a program's constant pool with default limits.
func NewVM(pool *ConstantPool, dispatcher Dispatcher, store RequestStore) *VM {
	return &VM{
		pool:       pool,
		dispatcher: dispatcher,
		store:      store,
		limits:     DefaultLimits(),
	}
}

// SetLimits replaces the execution limits.
func (vm *VM) SetLimits(l Limits) { vm.limits = l }

// EvalPredicate runs a predicate stream and coerces the result to bool.
// An empty stream is vacuously true. Any VmError coerces to false; the
// error is returned for observability but must not abort the host.
func (vm *VM) EvalPredicate(code []byte) (bool, *VmError) {
	if len(code) == 0 {
		return true, nil
	}
	vm.reset()
	if err := vm.run(code); err != nil {
		return false, err
	}
	if len(vm.stack) == 0 {
		return false, nil
	}
	ok, err := vm.truthy(vm.stack[len(vm.stack)-1])
	if err != nil {
		return false, err
	}
	return ok, nil
}

// RunBody runs a body stream and returns the captures emitted in source
// order. On error, the captures emitted before the failing instruction are
// returned alongside it.
func (vm *VM) RunBody(code []byte) ([]Capture, *VmError) {
	vm.reset()
	err := vm.run(code)
	return vm.captures, err
}

func (vm *VM) reset() {
	vm.stack = vm.stack[:0]
	vm.instructions = 0
	vm.captureBytes = 0
	vm.captures = nil
}

// ---------------------------------------------------------------------------
// Stack helpers
// ---------------------------------------------------------------------------

func (vm *VM) push(v Value) *VmError {
	if len(vm.stack) >= vm.limits.MaxStackDepth {
		return newLimitError(LimitStackDepth, "stack depth exceeded %d", vm.limits.MaxStackDepth)
	}
	vm.stack = append(vm.stack, v)
	return nil
}

func (vm *VM) pop() (Value, *VmError) {
	if len(vm.stack) == 0 {
		return None(), newVmError(VmStackUnderflow, "pop from empty stack")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) pop2() (Value, Value, *VmError) {
	b, err := vm.pop()
	if err != nil {
		return None(), None(), err
	}
	a, err := vm.pop()
	if err != nil {
		return None(), None(), err
	}
	return a, b, nil
}

// truthy coerces a value to bool: None is false, numbers are != 0 (NaN is
// false), strings are non-empty, objects ask the dispatcher.
func (vm *VM) truthy(v Value) (bool, *VmError) {
	switch v.Kind() {
	case KindNone:
		return false, nil
	case KindBool:
		return v.Bool(), nil
	case KindInt:
		return v.Int() != 0, nil
	case KindFloat:
		f := v.Float()
		return f != 0 && !math.IsNaN(f), nil
	case KindString:
		return v.Str() != "", nil
	case KindObject:
		ok, err := vm.dispatcher.Truthy(v)
		if err != nil {
			return false, &VmError{Kind: VmDispatcherError, Msg: err.Error(), Inner: err}
		}
		return ok, nil
	}
	return false, nil
}

// constAt reads a pool constant, enforcing its kind.
func (vm *VM) constAt(idx uint16, want ConstantKind, op Opcode) (Constant, *VmError) {
	c, ok := vm.pool.Get(idx)
	if !ok {
		return Constant{}, newVmError(VmBadOpcode, "%s references pool index %d of %d", op, idx, vm.pool.Len())
	}
	if c.Kind != want {
		return Constant{}, newVmError(VmTypeMismatch, "%s expects a %s constant, pool[%d] is %s", op, want, idx, c.Kind)
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Execution loop
// ---------------------------------------------------------------------------

func (vm *VM) run(code []byte) *VmError {
	ip := 0
	for ip < len(code) {
		vm.instructions++
		if vm.instructions > vm.limits.MaxInstructions {
			return newLimitError(LimitInstructions, "instruction count exceeded %d", vm.limits.MaxInstructions)
		}

		op := Opcode(code[ip])
		if !op.Valid() {
			return newVmError(VmBadOpcode, "undefined opcode 0x%02X at offset %d", byte(op), ip)
		}
		if ip+op.InstructionLen() > len(code) {
			return newVmError(VmBadOpcode, "%s at offset %d is missing operands", op, ip)
		}
		if vm.Trace {
			vmLog.Debugf("%04d %s stack=%d", ip, DisassembleInstruction(code, ip, vm.pool), len(vm.stack))
		}

		switch op {
		case OpPushConst:
			idx := binary.LittleEndian.Uint16(code[ip+1:])
			c, ok := vm.pool.Get(idx)
			if !ok {
				return newVmError(VmBadOpcode, "PUSH_CONST references pool index %d of %d", idx, vm.pool.Len())
			}
			if err := vm.push(c.AsValue()); err != nil {
				return err
			}

		case OpPop:
			if _, err := vm.pop(); err != nil {
				return err
			}

		case OpLoadVar:
			idx := binary.LittleEndian.Uint16(code[ip+1:])
			c, verr := vm.constAt(idx, ConstIdentifier, op)
			if verr != nil {
				return verr
			}
			v, err := vm.dispatcher.LoadVariable(c.Name())
			if err != nil {
				return &VmError{Kind: VmDispatcherError, Msg: err.Error(), Inner: err}
			}
			if verr := vm.push(v); verr != nil {
				return verr
			}

		case OpStoreVar:
			// Reserved in version 1: the compiler never emits it.
			return newVmError(VmBadOpcode, "STORE_VAR is reserved and not executable")

		case OpLoadReq:
			idx := binary.LittleEndian.Uint16(code[ip+1:])
			c, verr := vm.constAt(idx, ConstIdentifier, op)
			if verr != nil {
				return verr
			}
			if verr := vm.push(vm.store.Get(c.Name())); verr != nil {
				return verr
			}

		case OpStoreReq:
			idx := binary.LittleEndian.Uint16(code[ip+1:])
			c, verr := vm.constAt(idx, ConstIdentifier, op)
			if verr != nil {
				return verr
			}
			v, verr2 := vm.pop()
			if verr2 != nil {
				return verr2
			}
			vm.store.Set(c.Name(), v)

		case OpGetAttr:
			idx := binary.LittleEndian.Uint16(code[ip+1:])
			c, verr := vm.constAt(idx, ConstField, op)
			if verr != nil {
				return verr
			}
			obj, verr2 := vm.pop()
			if verr2 != nil {
				return verr2
			}
			v, err := vm.dispatcher.GetAttribute(obj, c.Name())
			if err != nil {
				return &VmError{Kind: VmDispatcherError, Msg: err.Error(), Inner: err}
			}
			if verr := vm.push(v); verr != nil {
				return verr
			}

		case OpGetItem:
			obj, key, verr := vm.pop2()
			if verr != nil {
				return verr
			}
			v, err := vm.dispatcher.GetItem(obj, key)
			if err != nil {
				return &VmError{Kind: VmDispatcherError, Msg: err.Error(), Inner: err}
			}
			if verr := vm.push(v); verr != nil {
				return verr
			}

		case OpCallFunc:
			idx := binary.LittleEndian.Uint16(code[ip+1:])
			argc := int(code[ip+3])
			c, verr := vm.constAt(idx, ConstFunction, op)
			if verr != nil {
				return verr
			}
			if len(vm.stack) < argc {
				return newVmError(VmStackUnderflow, "CALL_FUNC %s needs %d args, stack has %d", c.Name(), argc, len(vm.stack))
			}
			args := make([]Value, argc)
			copy(args, vm.stack[len(vm.stack)-argc:])
			vm.stack = vm.stack[:len(vm.stack)-argc]
			v, err := vm.dispatcher.CallFunction(c.Name(), args)
			if err != nil {
				return &VmError{Kind: VmDispatcherError, Msg: err.Error(), Inner: err}
			}
			if verr := vm.push(v); verr != nil {
				return verr
			}

		case OpCapture:
			argc := int(code[ip+1])
			namedc := int(code[ip+2])
			if err := vm.emitCapture(argc, namedc); err != nil {
				return err
			}

		case OpAdd, OpSub, OpMul, OpDiv, OpMod:
			a, b, verr := vm.pop2()
			if verr != nil {
				return verr
			}
			v, verr2 := arithmeticOp(op, a, b)
			if verr2 != nil {
				return verr2
			}
			if verr := vm.push(v); verr != nil {
				return verr
			}

		case OpEq, OpNe, OpLt, OpGt, OpLe, OpGe:
			a, b, verr := vm.pop2()
			if verr != nil {
				return verr
			}
			v, verr2 := comparisonOp(op, a, b)
			if verr2 != nil {
				return verr2
			}
			if verr := vm.push(v); verr != nil {
				return verr
			}

		case OpAnd, OpOr:
			a, b, verr := vm.pop2()
			if verr != nil {
				return verr
			}
			at, verr2 := vm.truthy(a)
			if verr2 != nil {
				return verr2
			}
			bt, verr3 := vm.truthy(b)
			if verr3 != nil {
				return verr3
			}
			var result bool
			if op == OpAnd {
				result = at && bt
			} else {
				result = at || bt
			}
			if verr := vm.push(Bool(result)); verr != nil {
				return verr
			}

		case OpNot:
			a, verr := vm.pop()
			if verr != nil {
				return verr
			}
			t, verr2 := vm.truthy(a)
			if verr2 != nil {
				return verr2
			}
			if verr := vm.push(Bool(!t)); verr != nil {
				return verr
			}

		case OpHalt:
			return nil
		}

		ip += op.InstructionLen()
	}
	return nil
}

// emitCapture pops capture operands off the stack and appends the record.
// Named pairs sit as (value, name) with the name on top; positional values
// are named arg0..argN in push order.
func (vm *VM) emitCapture(argc, namedc int) *VmError {
	values := make(map[string]Value, argc+namedc)

	if namedc > 0 {
		for i := 0; i < namedc; i++ {
			name, verr := vm.pop()
			if verr != nil {
				return verr
			}
			value, verr := vm.pop()
			if verr != nil {
				return verr
			}
			if name.Kind() != KindString {
				return newVmError(VmTypeMismatch, "capture name is %s, expected string", name.Kind())
			}
			values[name.Str()] = value
		}
	} else {
		if len(vm.stack) < argc {
			return newVmError(VmStackUnderflow, "CAPTURE needs %d values, stack has %d", argc, len(vm.stack))
		}
		base := len(vm.stack) - argc
		for i := 0; i < argc; i++ {
			values[positionalName(i)] = vm.stack[base+i]
		}
		vm.stack = vm.stack[:base]
	}

	for name, v := range values {
		vm.captureBytes += len(name) + valueSize(v)
	}
	if vm.captureBytes > vm.limits.MaxCaptureBytes {
		return newLimitError(LimitCaptureBytes, "capture payload exceeded %d bytes", vm.limits.MaxCaptureBytes)
	}

	vm.captures = append(vm.captures, Capture{Values: values})
	return nil
}

// positionalName returns arg0..argN without fmt in the hot path.
func positionalName(i int) string {
	if i < 10 {
		return "arg" + string(rune('0'+i))
	}
	return "arg" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[pos:])
}

// valueSize estimates a value's capture payload contribution.
func valueSize(v Value) int {
	switch v.Kind() {
	case KindString:
		return len(v.Str())
	case KindInt, KindFloat:
		return 8
	case KindBool, KindNone:
		return 1
	case KindObject:
		return 16
	}
	return 0
}
