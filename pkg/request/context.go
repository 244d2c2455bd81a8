package request

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// Context tracks one request's lifetime: its id, its slot store, and the
// sampling verdicts drawn for it. A context is created when the host begins
// handling a request and ended when the response is done.
type Context struct {
	id    string
	store *Store
	rng   func() float64

	mu           sync.Mutex
	sampleOK     bool
	rateVerdicts map[uint64]bool
}

// Option configures a Context at creation.
type Option func(*Context)

// WithRand replaces the random source. Tests use this for determinism.
func WithRand(rng func() float64) Option {
	return func(c *Context) { c.rng = rng }
}

// WithID sets the request id instead of generating one, for hosts that
// already carry a correlation id.
func WithID(id string) Option {
	return func(c *Context) { c.id = id }
}

// Begin starts a request. The global sampling verdict is drawn exactly
// once, here: rand < sampling. A sampling of 1.0 always passes, 0 never
// does. Per-probe sample directives draw their own verdicts lazily via
// SampleRate and can only tighten this one.
func Begin(sampling float32, opts ...Option) *Context {
	c := &Context{
		store:        NewStore(),
		rng:          rand.Float64,
		rateVerdicts: map[uint64]bool{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	c.sampleOK = sampling >= 1.0 || c.rng() < float64(sampling)
	return c
}

func (c *Context) ID() string { return c.id }

func (c *Context) Store() *Store { return c.store }

// SampleOK reports the cached global sampling verdict. Stable for the
// life of the request.
func (c *Context) SampleOK() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sampleOK
}

// SampleRate reports the verdict for a per-probe sample rate. Drawn once
// per distinct rate per request, so every probe sharing a rate agrees
// within the request.
func (c *Context) SampleRate(rate float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := math.Float64bits(rate)
	if verdict, ok := c.rateVerdicts[key]; ok {
		return verdict
	}
	verdict := rate >= 1.0 || c.rng() < rate
	c.rateVerdicts[key] = verdict
	return verdict
}

// End clears the slot store. The context must not be reused afterwards.
func (c *Context) End() {
	c.store.Clear()
}
