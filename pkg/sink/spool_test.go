package sink

import (
	"errors"
	"path/filepath"
	"testing"
)

func testSpool(t *testing.T) *Spool {
	t.Helper()
	s, err := OpenSpool(filepath.Join(t.TempDir(), "spool.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testBatch(session string, n int) *Batch {
	b := &Batch{SessionID: session}
	for i := 0; i < n; i++ {
		b.Events = append(b.Events, &Event{
			ID: "e", ProbeID: "p", RequestID: "r",
			Values: map[string]any{"i": int64(i)},
		})
	}
	return b
}

func TestSpoolEmpty(t *testing.T) {
	s := testSpool(t)
	if _, _, err := s.Next(); !errors.Is(err, ErrSpoolEmpty) {
		t.Errorf("Next on empty spool: %v", err)
	}
	n, err := s.Len()
	if err != nil || n != 0 {
		t.Errorf("Len = %d, %v", n, err)
	}
}

func TestSpoolPutNextAck(t *testing.T) {
	s := testSpool(t)

	if err := s.Put(testBatch("first", 2)); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(testBatch("second", 1)); err != nil {
		t.Fatal(err)
	}

	// Oldest first.
	b, id, err := s.Next()
	if err != nil {
		t.Fatal(err)
	}
	if b.SessionID != "first" || len(b.Events) != 2 {
		t.Errorf("batch = %+v", b)
	}

	// Un-acked batches stay put.
	again, id2, err := s.Next()
	if err != nil || id2 != id || again.SessionID != "first" {
		t.Errorf("Next before Ack = %+v, %d, %v", again, id2, err)
	}

	if err := s.Ack(id); err != nil {
		t.Fatal(err)
	}
	b, _, err = s.Next()
	if err != nil || b.SessionID != "second" {
		t.Errorf("after Ack: %+v, %v", b, err)
	}
}

func TestSpoolSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spool.db")

	s, err := OpenSpool(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(testBatch("persisted", 1)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSpool(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	b, _, err := s.Next()
	if err != nil || b.SessionID != "persisted" {
		t.Errorf("after reopen: %+v, %v", b, err)
	}
}
