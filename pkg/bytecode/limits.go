package bytecode

import "fmt"

// ---------------------------------------------------------------------------
// Execution limits
// ---------------------------------------------------------------------------

// Limits bounds a single probe execution. The VM checks the instruction
// count on every instruction; there is no external interrupt.
type Limits struct {
	MaxInstructions int // per-execution instruction cap
	MaxStackDepth   int // value stack slots
	MaxCaptureBytes int // total bytes of capture payload per execution
}

// DefaultLimits is the production preset.
func DefaultLimits() Limits {
	return Limits{
		MaxInstructions: 10_000,
		MaxStackDepth:   256,
		MaxCaptureBytes: 64 * 1024,
	}
}

// StrictLimits is for untrusted probe sources.
func StrictLimits() Limits {
	return Limits{
		MaxInstructions: 1_000,
		MaxStackDepth:   64,
		MaxCaptureBytes: 8 * 1024,
	}
}

// RelaxedLimits is for trusted, operator-authored probes.
func RelaxedLimits() Limits {
	return Limits{
		MaxInstructions: 100_000,
		MaxStackDepth:   1024,
		MaxCaptureBytes: 1024 * 1024,
	}
}

// Validate rejects nonsensical limit combinations from hand-edited configs.
func (l Limits) Validate() error {
	if l.MaxInstructions <= 0 {
		return fmt.Errorf("limits: MaxInstructions must be positive, got %d", l.MaxInstructions)
	}
	if l.MaxStackDepth <= 0 {
		return fmt.Errorf("limits: MaxStackDepth must be positive, got %d", l.MaxStackDepth)
	}
	if l.MaxCaptureBytes <= 0 {
		return fmt.Errorf("limits: MaxCaptureBytes must be positive, got %d", l.MaxCaptureBytes)
	}
	return nil
}
