package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/posthog/hogtrace/pkg/bytecode"
)

// SampleFuncName is the internal builtin that per-probe sample directives
// compile into. It never appears in source.
const SampleFuncName = bytecode.SampleFunc

// CallFunction dispatches the builtin whitelist: timestamp, rand, len,
// str, int, float, plus the internal sampling gate. Anything else is an
// error.
func (d *FrameDispatcher) CallFunction(name string, args []bytecode.Value) (bytecode.Value, error) {
	switch name {
	case "timestamp":
		if err := arity(name, args, 0); err != nil {
			return bytecode.None(), err
		}
		return bytecode.Float(float64(d.now().UnixNano()) / 1e9), nil

	case "rand":
		if err := arity(name, args, 0); err != nil {
			return bytecode.None(), err
		}
		return bytecode.Float(d.rng()), nil

	case "len":
		if err := arity(name, args, 1); err != nil {
			return bytecode.None(), err
		}
		return d.builtinLen(args[0])

	case "str":
		if err := arity(name, args, 1); err != nil {
			return bytecode.None(), err
		}
		return builtinStr(args[0])

	case "int":
		if err := arity(name, args, 1); err != nil {
			return bytecode.None(), err
		}
		return builtinInt(args[0])

	case "float":
		if err := arity(name, args, 1); err != nil {
			return bytecode.None(), err
		}
		return builtinFloat(args[0])

	case SampleFuncName:
		if err := arity(name, args, 1); err != nil {
			return bytecode.None(), err
		}
		return d.builtinSample(args[0])
	}
	return bytecode.None(), fmt.Errorf("unknown function %q", name)
}

func arity(name string, args []bytecode.Value, want int) error {
	if len(args) != want {
		return fmt.Errorf("%s() takes %d arguments, got %d", name, want, len(args))
	}
	return nil
}

func (d *FrameDispatcher) builtinLen(v bytecode.Value) (bytecode.Value, error) {
	switch v.Kind() {
	case bytecode.KindString:
		return bytecode.Int(int64(len(v.Str()))), nil
	case bytecode.KindObject:
		switch container := v.Obj().(type) {
		case []bytecode.Value:
			return bytecode.Int(int64(len(container))), nil
		case []any:
			return bytecode.Int(int64(len(container))), nil
		case map[string]bytecode.Value:
			return bytecode.Int(int64(len(container))), nil
		case map[string]any:
			return bytecode.Int(int64(len(container))), nil
		}
	}
	return bytecode.None(), fmt.Errorf("len() of %s value", v.Kind())
}

func builtinStr(v bytecode.Value) (bytecode.Value, error) {
	switch v.Kind() {
	case bytecode.KindString:
		return v, nil
	case bytecode.KindInt:
		return bytecode.String(strconv.FormatInt(v.Int(), 10)), nil
	case bytecode.KindFloat:
		return bytecode.String(strconv.FormatFloat(v.Float(), 'g', -1, 64)), nil
	case bytecode.KindBool:
		if v.Bool() {
			return bytecode.String("True"), nil
		}
		return bytecode.String("False"), nil
	case bytecode.KindNone:
		return bytecode.String("None"), nil
	}
	return bytecode.None(), fmt.Errorf("str() of %s value", v.Kind())
}

func builtinInt(v bytecode.Value) (bytecode.Value, error) {
	switch v.Kind() {
	case bytecode.KindInt:
		return v, nil
	case bytecode.KindFloat:
		return bytecode.Int(int64(v.Float())), nil
	case bytecode.KindBool:
		if v.Bool() {
			return bytecode.Int(1), nil
		}
		return bytecode.Int(0), nil
	case bytecode.KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str()), 10, 64)
		if err != nil {
			return bytecode.None(), fmt.Errorf("int() could not parse %q", v.Str())
		}
		return bytecode.Int(n), nil
	}
	return bytecode.None(), fmt.Errorf("int() of %s value", v.Kind())
}

func builtinFloat(v bytecode.Value) (bytecode.Value, error) {
	switch v.Kind() {
	case bytecode.KindFloat:
		return v, nil
	case bytecode.KindInt:
		return bytecode.Float(float64(v.Int())), nil
	case bytecode.KindBool:
		if v.Bool() {
			return bytecode.Float(1), nil
		}
		return bytecode.Float(0), nil
	case bytecode.KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str()), 64)
		if err != nil {
			return bytecode.None(), fmt.Errorf("float() could not parse %q", v.Str())
		}
		return bytecode.Float(f), nil
	}
	return bytecode.None(), fmt.Errorf("float() of %s value", v.Kind())
}

// builtinSample evaluates a per-probe sampling gate. With a request
// context the verdict is drawn once per rate per request; without one it
// is drawn fresh.
func (d *FrameDispatcher) builtinSample(rateVal bytecode.Value) (bytecode.Value, error) {
	var rate float64
	switch rateVal.Kind() {
	case bytecode.KindFloat:
		rate = rateVal.Float()
	case bytecode.KindInt:
		rate = float64(rateVal.Int())
	default:
		return bytecode.None(), fmt.Errorf("sample rate is %s, not a number", rateVal.Kind())
	}
	if rate < 0 || rate > 1 {
		return bytecode.None(), fmt.Errorf("sample rate %v outside [0, 1]", rate)
	}

	if d.ctx != nil {
		return bytecode.Bool(d.ctx.SampleRate(rate)), nil
	}
	return bytecode.Bool(rate >= 1.0 || d.rng() < rate), nil
}
