package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeTransport records delivered batches and can be told to fail.
type fakeTransport struct {
	mu      sync.Mutex
	batches []*Batch
	fail    bool
}

func (f *fakeTransport) Send(ctx context.Context, b *Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("backend unavailable")
	}
	f.batches = append(f.batches, b)
	return nil
}

func (f *fakeTransport) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeTransport) delivered() []*Batch {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Batch, len(f.batches))
	copy(out, f.batches)
	return out
}

func fastConfig() Config {
	return Config{
		MaxBatchSize:  3,
		FlushInterval: 10 * time.Millisecond,
		QueueSize:     100,
		MaxRetries:    0,
		RetryBackoff:  time.Millisecond,
		SendTimeout:   time.Second,
	}
}

func TestClientFlushesOnClose(t *testing.T) {
	tr := &fakeTransport{}
	c := NewClient(tr, nil, fastConfig())

	for i := 0; i < 2; i++ {
		if !c.Enqueue(&Event{ID: "e", Values: map[string]any{}}) {
			t.Fatal("enqueue refused")
		}
	}
	c.Close()

	var total int
	for _, b := range tr.delivered() {
		if b.SessionID != c.SessionID() {
			t.Errorf("batch session = %q, want %q", b.SessionID, c.SessionID())
		}
		total += len(b.Events)
	}
	if total != 2 {
		t.Errorf("delivered %d events, want 2", total)
	}

	stats := c.Stats()
	if stats.Enqueued != 2 || stats.Sent != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestClientFlushesOnBatchSize(t *testing.T) {
	tr := &fakeTransport{}
	cfg := fastConfig()
	cfg.FlushInterval = time.Hour // only size can trigger the flush
	c := NewClient(tr, nil, cfg)
	defer c.Close()

	for i := 0; i < 3; i++ {
		c.Enqueue(&Event{ID: "e"})
	}

	deadline := time.After(2 * time.Second)
	for {
		if bs := tr.delivered(); len(bs) == 1 && len(bs[0].Events) == 3 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("batch never flushed: %v", tr.delivered())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestClientEnqueueAfterCloseDrops(t *testing.T) {
	c := NewClient(&fakeTransport{}, nil, fastConfig())
	c.Close()

	if c.Enqueue(&Event{ID: "e"}) {
		t.Error("enqueue accepted after Close")
	}
	if c.Stats().Dropped != 1 {
		t.Errorf("stats = %+v", c.Stats())
	}
}

func TestClientSpoolsOnFailure(t *testing.T) {
	tr := &fakeTransport{}
	tr.setFail(true)
	spool := testSpool(t)
	c := NewClient(tr, spool, fastConfig())

	c.Enqueue(&Event{ID: "e"})
	c.Close()

	n, err := spool.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("spooled batches = %d, want 1", n)
	}
	stats := c.Stats()
	if stats.Failed != 1 || stats.Spooled != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestClientReplaysSpool(t *testing.T) {
	tr := &fakeTransport{}
	spool := testSpool(t)
	if err := spool.Put(testBatch("stranded", 2)); err != nil {
		t.Fatal(err)
	}

	c := NewClient(tr, spool, fastConfig())
	defer c.Close()

	deadline := time.After(2 * time.Second)
	for {
		for _, b := range tr.delivered() {
			if b.SessionID == "stranded" {
				if n, _ := spool.Len(); n != 0 {
					t.Errorf("spool not drained after replay")
				}
				return
			}
		}
		select {
		case <-deadline:
			t.Fatal("spooled batch never replayed")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// stuckTransport blocks Send until released, pinning the flusher.
type stuckTransport struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stuckTransport) Send(ctx context.Context, b *Batch) error {
	s.once.Do(func() { close(s.started) })
	<-s.release
	return nil
}

func TestClientDropsWhenQueueFull(t *testing.T) {
	tr := &stuckTransport{started: make(chan struct{}), release: make(chan struct{})}
	cfg := fastConfig()
	cfg.QueueSize = 1
	cfg.MaxBatchSize = 1
	c := NewClient(tr, nil, cfg)

	// First event reaches the transport and pins the flusher there.
	c.Enqueue(&Event{ID: "e"})
	<-tr.started

	// One more fits in the queue; the next has nowhere to go.
	if !c.Enqueue(&Event{ID: "e"}) {
		t.Fatal("queue rejected an event it had room for")
	}
	if c.Enqueue(&Event{ID: "e"}) {
		t.Error("full queue accepted an event")
	}
	if c.Stats().Dropped != 1 {
		t.Errorf("stats = %+v", c.Stats())
	}

	close(tr.release)
	c.Close()
}
