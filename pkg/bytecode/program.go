package bytecode

import "fmt"

// ---------------------------------------------------------------------------
// Program container
// ---------------------------------------------------------------------------

// Version is the only defined wire-format version.
const Version uint32 = 1

// Provider identifies the probe provider on the wire.
type Provider byte

const (
	ProviderFn Provider = 0 // fn: generic function probes
	ProviderPy Provider = 1 // py: Python host probes
)

func (p Provider) String() string {
	switch p {
	case ProviderFn:
		return "fn"
	case ProviderPy:
		return "py"
	}
	return fmt.Sprintf("provider(%d)", byte(p))
}

// Target identifies the probe point on the wire.
type Target byte

const (
	TargetEntry Target = 0
	TargetExit  Target = 1
)

func (t Target) String() string {
	switch t {
	case TargetEntry:
		return "entry"
	case TargetExit:
		return "exit"
	}
	return fmt.Sprintf("target(%d)", byte(t))
}

// ProbeSpec names the instrumentation point a probe attaches to.
type ProbeSpec struct {
	Provider  Provider
	Specifier string // dotted module path, optionally ending in *
	Target    Target
	Offset    uint32
}

// String renders the canonical provider:specifier:point form.
func (s ProbeSpec) String() string {
	point := s.Target.String()
	if s.Offset > 0 {
		point = fmt.Sprintf("%s+%d", point, s.Offset)
	}
	return fmt.Sprintf("%s:%s:%s", s.Provider, s.Specifier, point)
}

// Probe is one compiled probe: an id, its spec, and two independent
// bytecode streams. An empty predicate stream means always-true.
type Probe struct {
	ID        string
	Spec      ProbeSpec
	Predicate []byte
	Body      []byte
}

// Program is an immutable compiled probe program: shared constant pool,
// ordered probes, and the global sampling rate in [0,1].
type Program struct {
	Version  uint32
	Sampling float32
	Pool     *ConstantPool
	Probes   []*Probe
}

// NewProgram creates an empty program at the current version with sampling
// rate 1.0 (all requests).
func NewProgram() *Program {
	return &Program{
		Version:  Version,
		Sampling: 1.0,
		Pool:     NewConstantPool(),
	}
}

// FindProbe returns the probe with the given id, or nil.
func (p *Program) FindProbe(id string) *Probe {
	for _, probe := range p.Probes {
		if probe.ID == id {
			return probe
		}
	}
	return nil
}

// ProbesFor returns the probes attached to the given spec target, in
// program order. Hosts use this to fire entry/exit probes for a function.
func (p *Program) ProbesFor(provider Provider, target Target) []*Probe {
	var out []*Probe
	for _, probe := range p.Probes {
		if probe.Spec.Provider == provider && probe.Spec.Target == target {
			out = append(out, probe)
		}
	}
	return out
}
