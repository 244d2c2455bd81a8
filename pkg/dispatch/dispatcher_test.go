package dispatch

import (
	"strings"
	"testing"

	"github.com/posthog/hogtrace/pkg/bytecode"
	"github.com/posthog/hogtrace/pkg/request"
)

func entryFrame(args ...bytecode.Value) *Frame {
	return &Frame{Args: args}
}

func TestLoadVariableArgs(t *testing.T) {
	d := NewFrameDispatcher(entryFrame(bytecode.Int(1), bytecode.String("x")), nil)

	v, err := d.LoadVariable("arg0")
	if err != nil || v.Int() != 1 {
		t.Errorf("arg0 = %v, %v", v, err)
	}
	v, err = d.LoadVariable("arg1")
	if err != nil || v.Str() != "x" {
		t.Errorf("arg1 = %v, %v", v, err)
	}

	if _, err := d.LoadVariable("arg2"); err == nil {
		t.Error("out-of-range arg resolved")
	}

	v, err = d.LoadVariable("args")
	if err != nil {
		t.Fatal(err)
	}
	if tuple, ok := v.Obj().([]bytecode.Value); !ok || len(tuple) != 2 {
		t.Errorf("args = %v", v)
	}
}

func TestLoadVariableUnknownIsError(t *testing.T) {
	d := NewFrameDispatcher(entryFrame(), nil)
	_, err := d.LoadVariable("nonsense")
	if err == nil || !strings.Contains(err.Error(), "not defined") {
		t.Errorf("err = %v", err)
	}

	// argx is not an argN name.
	if _, err := d.LoadVariable("argx"); err == nil {
		t.Error("argx resolved")
	}
}

func TestLoadVariableExitNames(t *testing.T) {
	entry := NewFrameDispatcher(entryFrame(), nil)
	if _, err := entry.LoadVariable("retval"); err == nil {
		t.Error("retval resolved on an entry frame")
	}
	if _, err := entry.LoadVariable("exception"); err == nil {
		t.Error("exception resolved on an entry frame")
	}

	exit := NewFrameDispatcher(&Frame{Exit: true, Retval: bytecode.Int(7)}, nil)
	v, err := exit.LoadVariable("retval")
	if err != nil || v.Int() != 7 {
		t.Errorf("retval = %v, %v", v, err)
	}
	v, err = exit.LoadVariable("exception")
	if err != nil || !v.IsNone() {
		t.Errorf("exception = %v, %v", v, err)
	}
}

func TestLoadVariableSampleOK(t *testing.T) {
	in := request.Begin(1.0)
	d := NewFrameDispatcher(entryFrame(), in)
	v, err := d.LoadVariable(SampleOKName)
	if err != nil || !v.Bool() {
		t.Errorf("__sample_ok__ = %v, %v", v, err)
	}

	out := request.Begin(0, request.WithRand(func() float64 { return 0.5 }))
	d = NewFrameDispatcher(entryFrame(), out)
	v, _ = d.LoadVariable(SampleOKName)
	if v.Bool() {
		t.Error("__sample_ok__ true for a sampled-out request")
	}

	// No request scope: always true.
	d = NewFrameDispatcher(entryFrame(), nil)
	v, _ = d.LoadVariable(SampleOKName)
	if !v.Bool() {
		t.Error("__sample_ok__ false without a request context")
	}
}

func TestGetAttribute(t *testing.T) {
	d := NewFrameDispatcher(entryFrame(), nil)
	obj := bytecode.Object(map[string]bytecode.Value{"amount": bytecode.Int(150)})

	v, err := d.GetAttribute(obj, "amount")
	if err != nil || v.Int() != 150 {
		t.Errorf("amount = %v, %v", v, err)
	}
	if _, err := d.GetAttribute(obj, "missing"); err == nil {
		t.Error("missing attribute resolved")
	}
	if _, err := d.GetAttribute(bytecode.Int(1), "x"); err == nil {
		t.Error("attribute access on an int succeeded")
	}
}

func TestGetAttributeOverGoMap(t *testing.T) {
	d := NewFrameDispatcher(entryFrame(), nil)
	obj := bytecode.Object(map[string]any{"name": "alice"})

	v, err := d.GetAttribute(obj, "name")
	if err != nil || v.Str() != "alice" {
		t.Errorf("name = %v, %v", v, err)
	}
}

func TestGetItem(t *testing.T) {
	d := NewFrameDispatcher(entryFrame(), nil)

	list := bytecode.Object([]bytecode.Value{bytecode.Int(10), bytecode.Int(20)})
	v, err := d.GetItem(list, bytecode.Int(1))
	if err != nil || v.Int() != 20 {
		t.Errorf("list[1] = %v, %v", v, err)
	}
	if _, err := d.GetItem(list, bytecode.Int(5)); err == nil {
		t.Error("out-of-range index resolved")
	}
	if _, err := d.GetItem(list, bytecode.String("k")); err == nil {
		t.Error("string index into a list resolved")
	}

	m := bytecode.Object(map[string]bytecode.Value{"k": bytecode.Bool(true)})
	v, err = d.GetItem(m, bytecode.String("k"))
	if err != nil || !v.Bool() {
		t.Errorf(`m["k"] = %v, %v`, v, err)
	}

	s := bytecode.String("abc")
	v, err = d.GetItem(s, bytecode.Int(2))
	if err != nil || v.Str() != "c" {
		t.Errorf("s[2] = %v, %v", v, err)
	}
}

func TestGetItemOverGoContainers(t *testing.T) {
	d := NewFrameDispatcher(entryFrame(), nil)

	list := bytecode.Object([]any{"a", 2})
	v, err := d.GetItem(list, bytecode.Int(1))
	if err != nil || v.Int() != 2 {
		t.Errorf("list[1] = %v, %v", v, err)
	}

	m := bytecode.Object(map[string]any{"nested": []any{true}})
	v, err = d.GetItem(m, bytecode.String("nested"))
	if err != nil {
		t.Fatal(err)
	}
	inner, err := d.GetItem(v, bytecode.Int(0))
	if err != nil || !inner.Bool() {
		t.Errorf("nested[0] = %v, %v", inner, err)
	}
}

func TestTruthyContainers(t *testing.T) {
	d := NewFrameDispatcher(entryFrame(), nil)

	cases := []struct {
		obj  any
		want bool
	}{
		{[]bytecode.Value{}, false},
		{[]bytecode.Value{bytecode.Int(1)}, true},
		{map[string]any{}, false},
		{map[string]any{"k": 1}, true},
		{nil, false},
		{struct{}{}, true},
	}
	for _, tc := range cases {
		got, err := d.Truthy(bytecode.Object(tc.obj))
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("truthy(%v) = %v, want %v", tc.obj, got, tc.want)
		}
	}
}

func TestFromGo(t *testing.T) {
	if FromGo(nil).Kind() != bytecode.KindNone {
		t.Error("nil did not map to None")
	}
	if FromGo(42).Int() != 42 {
		t.Error("int did not map")
	}
	if FromGo(1.5).Float() != 1.5 {
		t.Error("float did not map")
	}
	if FromGo("s").Str() != "s" {
		t.Error("string did not map")
	}
	if FromGo(true).Kind() != bytecode.KindBool {
		t.Error("bool did not map")
	}
	if FromGo(map[string]any{}).Kind() != bytecode.KindObject {
		t.Error("map did not stay opaque")
	}
	v := bytecode.Int(9)
	if !FromGo(v).Equal(v) {
		t.Error("Value passthrough failed")
	}
}

func TestFrameFromGo(t *testing.T) {
	f := FrameFromGo([]any{1, "x"}, map[string]any{"flag": true})
	if len(f.Args) != 2 || f.Args[0].Int() != 1 {
		t.Errorf("args = %v", f.Args)
	}
	if !f.Kwargs["flag"].Bool() {
		t.Errorf("kwargs = %v", f.Kwargs)
	}
	if f.Exit {
		t.Error("entry frame marked exit")
	}

	ef := ExitFrameFromGo(nil, "done", nil)
	if !ef.Exit || ef.Retval.Str() != "done" || !ef.Exception.IsNone() {
		t.Errorf("exit frame = %+v", ef)
	}
}
