package request

import "testing"

func TestBeginDrawsVerdictOnce(t *testing.T) {
	draws := 0
	rng := func() float64 { draws++; return 0.3 }

	c := Begin(0.5, WithRand(rng))
	if !c.SampleOK() {
		t.Error("0.3 < 0.5 sampled out")
	}
	c.SampleOK()
	c.SampleOK()
	if draws != 1 {
		t.Errorf("rand drawn %d times, want 1", draws)
	}
}

func TestBeginFullSamplingNeverDraws(t *testing.T) {
	rng := func() float64 { t.Fatal("rand drawn for sampling 1.0"); return 0 }
	c := Begin(1.0, WithRand(rng))
	if !c.SampleOK() {
		t.Error("sampling 1.0 sampled out")
	}
}

func TestBeginZeroSamplingAlwaysOut(t *testing.T) {
	c := Begin(0, WithRand(func() float64 { return 0.0000001 }))
	// rand() is in [0,1); any draw fails rand < 0... except it can't be
	// negative, so the only way in is rand strictly below zero.
	if c.SampleOK() {
		t.Error("sampling 0 sampled in")
	}
}

func TestSampleRateCachedPerRate(t *testing.T) {
	draws := 0
	rng := func() float64 { draws++; return 0.4 }
	c := Begin(1.0, WithRand(rng))

	if !c.SampleRate(0.5) {
		t.Error("0.4 < 0.5 sampled out")
	}
	if c.SampleRate(0.25) {
		t.Error("0.4 < 0.25 sampled in")
	}
	// Cached: same rates draw nothing new.
	c.SampleRate(0.5)
	c.SampleRate(0.25)
	if draws != 2 {
		t.Errorf("rand drawn %d times for 2 distinct rates", draws)
	}
}

func TestContextIDs(t *testing.T) {
	a := Begin(1.0)
	b := Begin(1.0)
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("ids not unique: %q %q", a.ID(), b.ID())
	}

	c := Begin(1.0, WithID("req-123"))
	if c.ID() != "req-123" {
		t.Errorf("ID = %q, want req-123", c.ID())
	}
}

func TestEndClearsStore(t *testing.T) {
	c := Begin(1.0)
	c.Store().Set("x", c.Store().Get("x"))
	c.End()
	if c.Store().Len() != 0 {
		t.Error("store not cleared by End")
	}
}
