// Package hogtrace compiles and executes probe programs: small scripts
// attached to function entry and exit points that filter on call state,
// stash values for the life of a request, and capture structured events,
// all under hard execution limits so an instrumented host cannot be
// crashed or stalled by its probes.
package hogtrace

import (
	"fmt"

	"github.com/posthog/hogtrace/compiler"
	"github.com/posthog/hogtrace/pkg/bytecode"
	"github.com/posthog/hogtrace/pkg/dispatch"
	"github.com/posthog/hogtrace/pkg/request"
	"github.com/posthog/hogtrace/pkg/sink"
)

// Re-exported core types so hosts only import this package.
type (
	Program = bytecode.Program
	Probe   = bytecode.Probe
	Frame   = dispatch.Frame
	Limits  = bytecode.Limits
)

// Compile parses, analyzes, and lowers probe source to a Program.
func Compile(source string) (*Program, error) {
	ast, err := compiler.Parse(source)
	if err != nil {
		return nil, err
	}
	if err := compiler.Analyze(ast); err != nil {
		return nil, err
	}
	return bytecode.CompileProgram(ast)
}

// Deserialize decodes a Program from its binary wire form.
func Deserialize(data []byte) (*Program, error) {
	return bytecode.Deserialize(data)
}

// BeginRequest opens a request scope for a program, drawing its sampling
// verdict from the program's rate.
func BeginRequest(prog *Program, opts ...request.Option) *request.Context {
	return request.Begin(prog.Sampling, opts...)
}

// Options tunes probe execution.
type Options struct {
	Limits Limits
	Trace  bool
}

func DefaultOptions() Options {
	return Options{Limits: bytecode.DefaultLimits()}
}

// CaptureBatch is the outcome of one probe firing whose predicate passed.
type CaptureBatch struct {
	ProbeID   string
	RequestID string
	Captures  []bytecode.Capture

	// Errors holds body-execution failures. A failing body keeps the
	// captures it emitted before the error.
	Errors []error
}

// Events converts the batch to sink events ready for delivery.
func (b *CaptureBatch) Events() []*sink.Event {
	events := make([]*sink.Event, 0, len(b.Captures))
	for _, c := range b.Captures {
		events = append(events, sink.NewEvent(b.ProbeID, b.RequestID, c))
	}
	return events
}

// ExecuteProbe fires one probe against a frame within a request scope.
//
// A nil batch means the probe did not fire: the request was sampled out
// or the predicate evaluated false. A predicate that errors evaluates
// false and the error is returned for observability; it must not be
// treated as fatal by the host. Body errors abort the body but keep the
// captures emitted before the failure, reported in the batch's Errors.
//
// req may be nil for hosts with no request scope; $req slots then live
// only for this call and sampling always passes.
func ExecuteProbe(prog *Program, probe *Probe, frame *Frame, req *request.Context, opts *Options) (*CaptureBatch, error) {
	if opts == nil {
		o := DefaultOptions()
		opts = &o
	}

	var store bytecode.RequestStore
	requestID := ""
	if req != nil {
		if !req.SampleOK() {
			return nil, nil
		}
		store = req.Store()
		requestID = req.ID()
	} else {
		store = request.NewStore()
	}

	dispatcher := dispatch.NewFrameDispatcher(frame, req)
	vm := bytecode.NewVM(prog.Pool, dispatcher, store)
	vm.SetLimits(opts.Limits)
	vm.Trace = opts.Trace

	ok, perr := vm.EvalPredicate(probe.Predicate)
	if !ok {
		if perr != nil {
			return nil, fmt.Errorf("probe %s predicate: %w", probe.ID, perr)
		}
		return nil, nil
	}

	captures, berr := vm.RunBody(probe.Body)
	batch := &CaptureBatch{
		ProbeID:   probe.ID,
		RequestID: requestID,
		Captures:  captures,
	}
	if berr != nil {
		batch.Errors = append(batch.Errors, fmt.Errorf("probe %s body: %w", probe.ID, berr))
	}
	return batch, nil
}
