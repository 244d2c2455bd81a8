package dispatch

import "github.com/posthog/hogtrace/pkg/bytecode"

// FromGo lifts a plain Go value into the VM's value space. Scalars map to
// their VM kinds; maps and slices stay opaque Objects and are walked
// lazily by GetAttribute and GetItem. Anything unrecognized is an opaque
// Object.
func FromGo(v any) bytecode.Value {
	switch x := v.(type) {
	case nil:
		return bytecode.None()
	case bytecode.Value:
		return x
	case bool:
		return bytecode.Bool(x)
	case int:
		return bytecode.Int(int64(x))
	case int8:
		return bytecode.Int(int64(x))
	case int16:
		return bytecode.Int(int64(x))
	case int32:
		return bytecode.Int(int64(x))
	case int64:
		return bytecode.Int(x)
	case uint:
		return bytecode.Int(int64(x))
	case uint8:
		return bytecode.Int(int64(x))
	case uint16:
		return bytecode.Int(int64(x))
	case uint32:
		return bytecode.Int(int64(x))
	case float32:
		return bytecode.Float(float64(x))
	case float64:
		return bytecode.Float(x)
	case string:
		return bytecode.String(x)
	}
	return bytecode.Object(v)
}

// FrameFromGo builds an entry frame from plain Go arguments.
func FrameFromGo(args []any, kwargs map[string]any) *Frame {
	f := &Frame{}
	for _, a := range args {
		f.Args = append(f.Args, FromGo(a))
	}
	if kwargs != nil {
		f.Kwargs = make(map[string]bytecode.Value, len(kwargs))
		for k, v := range kwargs {
			f.Kwargs[k] = FromGo(v)
		}
	}
	return f
}

// ExitFrameFromGo builds an exit frame. exception is nil when the call
// returned normally.
func ExitFrameFromGo(args []any, retval any, exception any) *Frame {
	f := FrameFromGo(args, nil)
	f.Exit = true
	f.Retval = FromGo(retval)
	f.Exception = FromGo(exception)
	return f
}
