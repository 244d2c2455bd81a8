package sink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var sinkLog = commonlog.GetLogger("hogtrace.sink")

// Transport delivers one batch to the ingest backend.
type Transport interface {
	Send(ctx context.Context, b *Batch) error
}

// Config holds the batching knobs.
type Config struct {
	MaxBatchSize  int
	FlushInterval time.Duration
	QueueSize     int
	MaxRetries    int
	RetryBackoff  time.Duration
	SendTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxBatchSize:  100,
		FlushInterval: 2 * time.Second,
		QueueSize:     1000,
		MaxRetries:    3,
		RetryBackoff:  250 * time.Millisecond,
		SendTimeout:   5 * time.Second,
	}
}

// Stats counts event outcomes over the client's lifetime.
type Stats struct {
	Enqueued uint64
	Sent     uint64
	Dropped  uint64
	Failed   uint64
	Spooled  uint64
}

// Client batches events and ships them in the background. Probe execution
// only ever pays for a channel send; delivery, retry, and spooling happen
// on the flusher goroutine.
type Client struct {
	transport Transport
	spool     *Spool
	cfg       Config
	sessionID string

	queue  chan *Event
	done   chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool

	mu    sync.Mutex
	stats Stats
}

// NewClient starts a batching client. spool may be nil to drop on
// delivery failure instead of persisting.
func NewClient(transport Transport, spool *Spool, cfg Config) *Client {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultConfig().MaxBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultConfig().SendTimeout
	}

	c := &Client{
		transport: transport,
		spool:     spool,
		cfg:       cfg,
		sessionID: uuid.NewString(),
		queue:     make(chan *Event, cfg.QueueSize),
		done:      make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	sinkLog.Infof("sink client started, session %s", c.sessionID)
	return c
}

// SessionID identifies this client's lifetime; every batch carries it.
func (c *Client) SessionID() string { return c.sessionID }

// Enqueue queues one event without blocking. Returns false when the
// queue is full or the client is closed; the event is counted dropped.
func (c *Client) Enqueue(e *Event) bool {
	if c.closed.Load() {
		c.count(func(s *Stats) { s.Dropped++ })
		return false
	}
	select {
	case c.queue <- e:
		c.count(func(s *Stats) { s.Enqueued++ })
		return true
	default:
		c.count(func(s *Stats) { s.Dropped++ })
		return false
	}
}

// Stats returns a snapshot of the counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close stops the flusher, draining everything still queued. Safe to
// call once.
func (c *Client) Close() {
	if c.closed.Swap(true) {
		return
	}
	close(c.done)
	c.wg.Wait()
	sinkLog.Infof("sink client closed, session %s", c.sessionID)
}

func (c *Client) count(f func(*Stats)) {
	c.mu.Lock()
	f(&c.stats)
	c.mu.Unlock()
}

func (c *Client) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	var pending []*Event
	for {
		select {
		case e := <-c.queue:
			pending = append(pending, e)
			if len(pending) >= c.cfg.MaxBatchSize {
				c.flush(pending)
				pending = nil
			}

		case <-ticker.C:
			if len(pending) > 0 {
				c.flush(pending)
				pending = nil
			}
			c.replaySpool()

		case <-c.done:
			// Drain the queue, then flush the remainder.
			for {
				select {
				case e := <-c.queue:
					pending = append(pending, e)
				default:
					if len(pending) > 0 {
						c.flush(pending)
					}
					return
				}
			}
		}
	}
}

// flush delivers one batch with retry, falling back to the spool.
func (c *Client) flush(events []*Event) {
	batch := &Batch{SessionID: c.sessionID, Events: events}

	if err := c.deliver(batch); err != nil {
		c.count(func(s *Stats) { s.Failed += uint64(len(events)) })
		if c.spool != nil {
			if serr := c.spool.Put(batch); serr == nil {
				c.count(func(s *Stats) { s.Spooled += uint64(len(events)) })
				sinkLog.Warningf("delivery failed, spooled %d events: %v", len(events), err)
				return
			}
		}
		c.count(func(s *Stats) { s.Dropped += uint64(len(events)) })
		sinkLog.Errorf("delivery failed, dropped %d events: %v", len(events), err)
		return
	}
	c.count(func(s *Stats) { s.Sent += uint64(len(events)) })
}

func (c *Client) deliver(batch *Batch) error {
	var err error
	backoff := c.cfg.RetryBackoff
	for attempt := 0; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SendTimeout)
		err = c.transport.Send(ctx, batch)
		cancel()
		if err == nil {
			return nil
		}
		if attempt >= c.cfg.MaxRetries {
			return err
		}
		time.Sleep(backoff)
		backoff *= 2
	}
}

// replaySpool pushes previously spooled batches once delivery works
// again. One batch per tick keeps replay from starving fresh events.
func (c *Client) replaySpool() {
	if c.spool == nil {
		return
	}
	batch, id, err := c.spool.Next()
	if err != nil {
		return
	}
	if err := c.deliver(batch); err != nil {
		return
	}
	if err := c.spool.Ack(id); err != nil {
		sinkLog.Errorf("failed to ack spooled batch %d: %v", id, err)
		return
	}
	c.count(func(s *Stats) { s.Sent += uint64(len(batch.Events)) })
	sinkLog.Infof("replayed spooled batch %d (%d events)", id, len(batch.Events))
}
