package dispatch

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/posthog/hogtrace/pkg/bytecode"
	"github.com/posthog/hogtrace/pkg/request"
)

// Frame is the host-side view of one probe firing: the intercepted call's
// arguments and, on exit probes, its outcome. Hosts populate a Frame per
// firing and hand it to a FrameDispatcher.
type Frame struct {
	Args   []bytecode.Value
	Kwargs map[string]bytecode.Value
	Self   bytecode.Value

	// Exit marks exit-probe frames. Retval and Exception are only
	// resolvable when it is set.
	Exit      bool
	Retval    bytecode.Value
	Exception bytecode.Value
}

// SampleOKName is the reserved identifier exposing the request's global
// sampling verdict to predicates.
const SampleOKName = "__sample_ok__"

// FrameDispatcher binds the VM's host capabilities to a Frame and an
// optional request context. It satisfies bytecode.Dispatcher.
type FrameDispatcher struct {
	frame *Frame
	ctx   *request.Context

	now func() time.Time
	rng func() float64
}

// NewFrameDispatcher wires a dispatcher over one frame. ctx may be nil for
// hosts with no request scope; sampling then draws fresh per call.
func NewFrameDispatcher(frame *Frame, ctx *request.Context) *FrameDispatcher {
	return &FrameDispatcher{
		frame: frame,
		ctx:   ctx,
		now:   time.Now,
		rng:   rand.Float64,
	}
}

// SetClock replaces the time and random sources. Tests use this for
// determinism.
func (d *FrameDispatcher) SetClock(now func() time.Time, rng func() float64) {
	if now != nil {
		d.now = now
	}
	if rng != nil {
		d.rng = rng
	}
}

// LoadVariable resolves a frame-local name. Unknown names are an error,
// never a silent None.
func (d *FrameDispatcher) LoadVariable(name string) (bytecode.Value, error) {
	switch name {
	case "args":
		return bytecode.Object(d.frame.Args), nil
	case "kwargs":
		return bytecode.Object(d.frame.Kwargs), nil
	case "self":
		return d.frame.Self, nil
	case "retval":
		if !d.frame.Exit {
			return bytecode.None(), fmt.Errorf("retval is only defined on exit probes")
		}
		return d.frame.Retval, nil
	case "exception":
		if !d.frame.Exit {
			return bytecode.None(), fmt.Errorf("exception is only defined on exit probes")
		}
		return d.frame.Exception, nil
	case SampleOKName:
		if d.ctx == nil {
			return bytecode.Bool(true), nil
		}
		return bytecode.Bool(d.ctx.SampleOK()), nil
	}

	if n, ok := argOrdinal(name); ok {
		if n >= len(d.frame.Args) {
			return bytecode.None(), fmt.Errorf("arg%d is not bound, call has %d arguments", n, len(d.frame.Args))
		}
		return d.frame.Args[n], nil
	}

	return bytecode.None(), fmt.Errorf("name %q is not defined", name)
}

// GetAttribute resolves obj.field over Object values carrying map
// containers. Scalars have no attributes.
func (d *FrameDispatcher) GetAttribute(obj bytecode.Value, field string) (bytecode.Value, error) {
	if obj.Kind() != bytecode.KindObject {
		return bytecode.None(), fmt.Errorf("%s value has no attribute %q", obj.Kind(), field)
	}
	switch container := obj.Obj().(type) {
	case map[string]bytecode.Value:
		if v, ok := container[field]; ok {
			return v, nil
		}
	case map[string]any:
		if v, ok := container[field]; ok {
			return FromGo(v), nil
		}
	default:
		return bytecode.None(), fmt.Errorf("object of type %T has no attributes", container)
	}
	return bytecode.None(), fmt.Errorf("object has no attribute %q", field)
}

// GetItem resolves obj[key] over Object values carrying list or map
// containers, and string indexing by int.
func (d *FrameDispatcher) GetItem(obj bytecode.Value, key bytecode.Value) (bytecode.Value, error) {
	if obj.Kind() == bytecode.KindString {
		if key.Kind() != bytecode.KindInt {
			return bytecode.None(), fmt.Errorf("string index is %s, not int", key.Kind())
		}
		s, i := obj.Str(), key.Int()
		if i < 0 || int(i) >= len(s) {
			return bytecode.None(), fmt.Errorf("string index %d out of range for length %d", i, len(s))
		}
		return bytecode.String(s[i : i+1]), nil
	}
	if obj.Kind() != bytecode.KindObject {
		return bytecode.None(), fmt.Errorf("%s value is not subscriptable", obj.Kind())
	}

	switch container := obj.Obj().(type) {
	case []bytecode.Value:
		i, err := listIndex(key, len(container))
		if err != nil {
			return bytecode.None(), err
		}
		return container[i], nil
	case []any:
		i, err := listIndex(key, len(container))
		if err != nil {
			return bytecode.None(), err
		}
		return FromGo(container[i]), nil
	case map[string]bytecode.Value:
		if key.Kind() != bytecode.KindString {
			return bytecode.None(), fmt.Errorf("map key is %s, not string", key.Kind())
		}
		if v, ok := container[key.Str()]; ok {
			return v, nil
		}
		return bytecode.None(), fmt.Errorf("map has no key %q", key.Str())
	case map[string]any:
		if key.Kind() != bytecode.KindString {
			return bytecode.None(), fmt.Errorf("map key is %s, not string", key.Kind())
		}
		if v, ok := container[key.Str()]; ok {
			return FromGo(v), nil
		}
		return bytecode.None(), fmt.Errorf("map has no key %q", key.Str())
	}
	return bytecode.None(), fmt.Errorf("object of type %T is not subscriptable", obj.Obj())
}

// Truthy decides truthiness for opaque objects: containers by length,
// anything else by non-nilness.
func (d *FrameDispatcher) Truthy(obj bytecode.Value) (bool, error) {
	switch container := obj.Obj().(type) {
	case nil:
		return false, nil
	case []bytecode.Value:
		return len(container) > 0, nil
	case []any:
		return len(container) > 0, nil
	case map[string]bytecode.Value:
		return len(container) > 0, nil
	case map[string]any:
		return len(container) > 0, nil
	}
	return true, nil
}

func listIndex(key bytecode.Value, length int) (int, error) {
	if key.Kind() != bytecode.KindInt {
		return 0, fmt.Errorf("list index is %s, not int", key.Kind())
	}
	i := key.Int()
	if i < 0 || int(i) >= length {
		return 0, fmt.Errorf("list index %d out of range for length %d", i, length)
	}
	return int(i), nil
}

// argOrdinal parses argN names.
func argOrdinal(name string) (int, bool) {
	if len(name) < 4 || name[:3] != "arg" {
		return 0, false
	}
	n := 0
	for i := 3; i < len(name); i++ {
		c := name[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
		if n > 1<<20 {
			return 0, false
		}
	}
	return n, true
}
