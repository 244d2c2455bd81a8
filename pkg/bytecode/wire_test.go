package bytecode

import (
	"encoding/binary"
	"errors"
	"testing"
)

func wantDecodeKind(t *testing.T, err error, kind DecodeErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatal("decode succeeded, want error")
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("error type %T, want *DecodeError: %v", err, err)
	}
	if de.Kind != kind {
		t.Errorf("decode error kind = %v, want %v: %v", de.Kind, kind, de)
	}
}

func TestWireRoundtrip(t *testing.T) {
	src := `
fn:billing.charge:entry / arg0.amount > 100 / {
    $req.big_charge = True;
    capture(amount = arg0.amount, user = arg1);
}
py:app.views.*:exit+3 { sample 25%; capture(retval); }
`
	orig := compileSrc(t, src)
	orig.Sampling = 0.5

	data, err := orig.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	got, err := Deserialize(data)
	if err != nil {
		t.Fatal(err)
	}

	if got.Version != orig.Version {
		t.Errorf("version = %d, want %d", got.Version, orig.Version)
	}
	if got.Sampling != orig.Sampling {
		t.Errorf("sampling = %v, want %v", got.Sampling, orig.Sampling)
	}
	if got.Pool.Len() != orig.Pool.Len() {
		t.Errorf("pool size = %d, want %d", got.Pool.Len(), orig.Pool.Len())
	}
	for i := 0; i < orig.Pool.Len(); i++ {
		a, _ := orig.Pool.Get(uint16(i))
		b, _ := got.Pool.Get(uint16(i))
		if a != b {
			t.Errorf("pool[%d] = %v, want %v", i, b, a)
		}
	}
	if len(got.Probes) != len(orig.Probes) {
		t.Fatalf("probes = %d, want %d", len(got.Probes), len(orig.Probes))
	}
	for i := range orig.Probes {
		a, b := orig.Probes[i], got.Probes[i]
		if b.ID != a.ID || b.Spec != a.Spec {
			t.Errorf("probe %d header = %v %v, want %v %v", i, b.ID, b.Spec, a.ID, a.Spec)
		}
		if string(b.Predicate) != string(a.Predicate) || string(b.Body) != string(a.Body) {
			t.Errorf("probe %d streams differ after roundtrip", i)
		}
	}
}

func TestWireRoundtripIdempotent(t *testing.T) {
	orig := compileSrc(t, `fn:m.f:entry { capture(arg0); }`)

	first, err := orig.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Deserialize(first)
	if err != nil {
		t.Fatal(err)
	}
	second, err := decoded.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("re-serialized bytes differ from the original encoding")
	}
}

func TestWireBadMagic(t *testing.T) {
	prog := compileSrc(t, `fn:m.f:entry { capture(arg0); }`)
	data, _ := prog.Serialize()
	data[0] = 'X'

	_, err := Deserialize(data)
	wantDecodeKind(t, err, DecodeBadMagic)
}

func TestWireIncompatibleVersion(t *testing.T) {
	prog := compileSrc(t, `fn:m.f:entry { capture(arg0); }`)
	data, _ := prog.Serialize()
	binary.LittleEndian.PutUint32(data[4:], Version+1)

	_, err := Deserialize(data)
	wantDecodeKind(t, err, DecodeIncompatibleVersion)
}

func TestWireTruncated(t *testing.T) {
	prog := compileSrc(t, `fn:m.f:entry { capture(arg0, arg1); }`)
	data, _ := prog.Serialize()

	for _, cut := range []int{0, 3, 7, len(data) / 2, len(data) - 1} {
		_, err := Deserialize(data[:cut])
		wantDecodeKind(t, err, DecodeTruncated)
	}
}

func TestWireBadConstantTag(t *testing.T) {
	w := &wireWriter{}
	w.bytes(wireMagic[:])
	w.u32(Version)
	w.f32(1.0)
	w.u32(1)  // one pool entry
	w.b(0xEE) // undefined tag

	_, err := Deserialize(w.buf)
	wantDecodeKind(t, err, DecodeBadTag)
}

func TestWireUndefinedOpcodeRejected(t *testing.T) {
	prog := NewProgram()
	prog.Probes = append(prog.Probes, &Probe{
		ID:   "deadbeef",
		Spec: ProbeSpec{Provider: ProviderFn, Specifier: "m.f", Target: TargetEntry},
		Body: []byte{0x7F},
	})
	data, _ := prog.Serialize()

	_, err := Deserialize(data)
	wantDecodeKind(t, err, DecodeBadTag)
}

func TestWirePoolIndexOutOfRange(t *testing.T) {
	prog := NewProgram()
	prog.Pool.Add(IntConstant(1))
	body := []byte{byte(OpPushConst), 9, 0, byte(OpHalt)}
	prog.Probes = append(prog.Probes, &Probe{
		ID:   "deadbeef",
		Spec: ProbeSpec{Provider: ProviderFn, Specifier: "m.f", Target: TargetEntry},
		Body: body,
	})
	data, _ := prog.Serialize()

	_, err := Deserialize(data)
	wantDecodeKind(t, err, DecodeIndexOutOfRange)
}

func TestWireTruncatedInstructionRejected(t *testing.T) {
	prog := NewProgram()
	prog.Pool.Add(IntConstant(1))
	// PUSH_CONST missing its second operand byte.
	prog.Probes = append(prog.Probes, &Probe{
		ID:   "deadbeef",
		Spec: ProbeSpec{Provider: ProviderFn, Specifier: "m.f", Target: TargetEntry},
		Body: []byte{byte(OpPushConst), 0},
	})
	data, _ := prog.Serialize()

	_, err := Deserialize(data)
	wantDecodeKind(t, err, DecodeTruncated)
}

func TestWireEmptyProgram(t *testing.T) {
	prog := NewProgram()
	data, err := prog.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	got, err := Deserialize(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Pool.Len() != 0 || len(got.Probes) != 0 {
		t.Errorf("decoded %d constants and %d probes from an empty program",
			got.Pool.Len(), len(got.Probes))
	}
	if got.Sampling != 1.0 {
		t.Errorf("sampling = %v, want 1.0", got.Sampling)
	}
}
