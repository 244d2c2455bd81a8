package bytecode

import (
	"encoding/binary"
	"math"
)

// ---------------------------------------------------------------------------
// Wire format: length-delimited little-endian binary encoding
// ---------------------------------------------------------------------------
//
// Program  { magic "HOGT", version:u32, sampling:f32, pool, probes }
// Pool     { count:u32, entries... }        entry = tag:u8 + payload
// Probe    { id:string, spec, predicate:bytes, body:bytes }
// ProbeSpec{ provider:u8, specifier:string, target:u8, offset:u32 }
//
// Strings and byte blobs are u32-length-prefixed; lists are u32-count-
// prefixed. All integers are little-endian.

var wireMagic = [4]byte{'H', 'O', 'G', 'T'}

// Serialize encodes the program to its binary wire form.
func (p *Program) Serialize() ([]byte, error) {
	w := &wireWriter{}

	w.bytes(wireMagic[:])
	w.u32(p.Version)
	w.f32(p.Sampling)

	w.u32(uint32(p.Pool.Len()))
	for _, c := range p.Pool.Entries() {
		w.b(byte(c.Kind))
		switch c.Kind {
		case ConstInt:
			w.u64(uint64(c.I))
		case ConstFloat:
			w.u64(math.Float64bits(c.F))
		case ConstString, ConstIdentifier, ConstField, ConstFunction:
			w.str(c.S)
		case ConstBool:
			if c.B {
				w.b(1)
			} else {
				w.b(0)
			}
		case ConstNone:
			// no payload
		}
	}

	w.u32(uint32(len(p.Probes)))
	for _, probe := range p.Probes {
		w.str(probe.ID)
		w.b(byte(probe.Spec.Provider))
		w.str(probe.Spec.Specifier)
		w.b(byte(probe.Spec.Target))
		w.u32(probe.Spec.Offset)
		w.blob(probe.Predicate)
		w.blob(probe.Body)
	}

	return w.buf, nil
}

// Deserialize decodes a program from its binary wire form. The decoded
// program's bytecode streams are validated against the pool so a corrupt
// payload fails here rather than at execution time.
func Deserialize(data []byte) (*Program, error) {
	r := &wireReader{data: data}

	magic, err := r.take(4, "magic")
	if err != nil {
		return nil, err
	}
	if [4]byte(magic) != wireMagic {
		return nil, newDecodeError(DecodeBadMagic, "bad magic %q", magic)
	}

	version, err := r.u32("version")
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, newDecodeError(DecodeIncompatibleVersion,
			"program version %d, reader supports %d", version, Version)
	}

	sampling, err := r.f32("sampling")
	if err != nil {
		return nil, err
	}

	prog := NewProgram()
	prog.Sampling = sampling

	poolCount, err := r.u32("pool count")
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < poolCount; i++ {
		c, err := r.constant()
		if err != nil {
			return nil, err
		}
		prog.Pool.entries = append(prog.Pool.entries, c)
	}
	prog.Pool.rebuildIndex()

	probeCount, err := r.u32("probe count")
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < probeCount; i++ {
		probe := &Probe{}
		if probe.ID, err = r.str("probe id"); err != nil {
			return nil, err
		}
		provider, err := r.b("probe provider")
		if err != nil {
			return nil, err
		}
		probe.Spec.Provider = Provider(provider)
		if probe.Spec.Specifier, err = r.str("probe specifier"); err != nil {
			return nil, err
		}
		target, err := r.b("probe target")
		if err != nil {
			return nil, err
		}
		probe.Spec.Target = Target(target)
		if probe.Spec.Offset, err = r.u32("probe offset"); err != nil {
			return nil, err
		}
		if probe.Predicate, err = r.blob("probe predicate"); err != nil {
			return nil, err
		}
		if probe.Body, err = r.blob("probe body"); err != nil {
			return nil, err
		}

		if err := validateStream(probe.Predicate, prog.Pool); err != nil {
			return nil, err
		}
		if err := validateStream(probe.Body, prog.Pool); err != nil {
			return nil, err
		}
		prog.Probes = append(prog.Probes, probe)
	}

	return prog, nil
}

// validateStream checks that every instruction in a decoded stream is a
// defined opcode, is fully present, and references in-range pool indices.
func validateStream(code []byte, pool *ConstantPool) error {
	ip := 0
	for ip < len(code) {
		op := Opcode(code[ip])
		if !op.Valid() {
			return newDecodeError(DecodeBadTag, "undefined opcode 0x%02X at offset %d", byte(op), ip)
		}
		if ip+op.InstructionLen() > len(code) {
			return newDecodeError(DecodeTruncated, "%s at offset %d is missing operands", op, ip)
		}
		switch op {
		case OpPushConst, OpLoadVar, OpStoreVar, OpLoadReq, OpStoreReq, OpGetAttr, OpCallFunc:
			idx := binary.LittleEndian.Uint16(code[ip+1:])
			if int(idx) >= pool.Len() {
				return newDecodeError(DecodeIndexOutOfRange,
					"%s at offset %d references pool index %d of %d", op, ip, idx, pool.Len())
			}
		}
		ip += op.InstructionLen()
	}
	return nil
}

// ---------------------------------------------------------------------------
// Encoding primitives
// ---------------------------------------------------------------------------

type wireWriter struct {
	buf []byte
}

func (w *wireWriter) b(v byte)        { w.buf = append(w.buf, v) }
func (w *wireWriter) bytes(v []byte)  { w.buf = append(w.buf, v...) }
func (w *wireWriter) u32(v uint32)    { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *wireWriter) u64(v uint64)    { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *wireWriter) f32(v float32)   { w.u32(math.Float32bits(v)) }
func (w *wireWriter) str(s string)    { w.u32(uint32(len(s))); w.buf = append(w.buf, s...) }
func (w *wireWriter) blob(b []byte)   { w.u32(uint32(len(b))); w.buf = append(w.buf, b...) }

type wireReader struct {
	data []byte
	off  int
}

func (r *wireReader) take(n int, what string) ([]byte, error) {
	if r.off+n > len(r.data) {
		return nil, newDecodeError(DecodeTruncated,
			"%s: need %d bytes at offset %d, have %d", what, n, r.off, len(r.data)-r.off)
	}
	out := r.data[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *wireReader) b(what string) (byte, error) {
	out, err := r.take(1, what)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

func (r *wireReader) u32(what string) (uint32, error) {
	out, err := r.take(4, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(out), nil
}

func (r *wireReader) u64(what string) (uint64, error) {
	out, err := r.take(8, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(out), nil
}

func (r *wireReader) f32(what string) (float32, error) {
	bits, err := r.u32(what)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func (r *wireReader) str(what string) (string, error) {
	b, err := r.blob(what)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *wireReader) blob(what string) ([]byte, error) {
	n, err := r.u32(what + " length")
	if err != nil {
		return nil, err
	}
	return r.take(int(n), what)
}

func (r *wireReader) constant() (Constant, error) {
	tag, err := r.b("constant tag")
	if err != nil {
		return Constant{}, err
	}
	kind := ConstantKind(tag)

	switch kind {
	case ConstInt:
		v, err := r.u64("int constant")
		if err != nil {
			return Constant{}, err
		}
		return Constant{Kind: ConstInt, I: int64(v)}, nil
	case ConstFloat:
		v, err := r.u64("float constant")
		if err != nil {
			return Constant{}, err
		}
		return Constant{Kind: ConstFloat, F: math.Float64frombits(v)}, nil
	case ConstString, ConstIdentifier, ConstField, ConstFunction:
		s, err := r.str("string constant")
		if err != nil {
			return Constant{}, err
		}
		return Constant{Kind: kind, S: s}, nil
	case ConstBool:
		v, err := r.b("bool constant")
		if err != nil {
			return Constant{}, err
		}
		return Constant{Kind: ConstBool, B: v != 0}, nil
	case ConstNone:
		return Constant{Kind: ConstNone}, nil
	default:
		return Constant{}, newDecodeError(DecodeBadTag, "unknown constant tag %d", tag)
	}
}
