package request

import (
	"sync"
	"testing"

	"github.com/posthog/hogtrace/pkg/bytecode"
)

func TestStoreUnsetIsNone(t *testing.T) {
	s := NewStore()
	if !s.Get("missing").IsNone() {
		t.Error("unset slot is not None")
	}
	if s.Has("missing") {
		t.Error("Has reported an unset slot")
	}
}

func TestStoreSetGet(t *testing.T) {
	s := NewStore()
	s.Set("user_id", bytecode.Int(42))

	if got := s.Get("user_id"); got.Int() != 42 {
		t.Errorf("Get = %v, want 42", got)
	}
	if !s.Has("user_id") {
		t.Error("Has = false after Set")
	}

	// Overwrite wins.
	s.Set("user_id", bytecode.String("u-42"))
	if got := s.Get("user_id"); got.Str() != "u-42" {
		t.Errorf("Get after overwrite = %v", got)
	}
}

func TestStoreNoneIsStorable(t *testing.T) {
	s := NewStore()
	s.Set("x", bytecode.None())
	if !s.Has("x") {
		t.Error("explicitly stored None is indistinguishable from unset")
	}
}

func TestStoreDeleteAndClear(t *testing.T) {
	s := NewStore()
	s.Set("a", bytecode.Int(1))
	s.Set("b", bytecode.Int(2))

	s.Delete("a")
	if s.Has("a") {
		t.Error("slot survived Delete")
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("len after Clear = %d", s.Len())
	}
}

func TestStoreAllIsSnapshot(t *testing.T) {
	s := NewStore()
	s.Set("a", bytecode.Int(1))

	snap := s.All()
	s.Set("b", bytecode.Int(2))
	if len(snap) != 1 {
		t.Errorf("snapshot grew after later Set: %v", snap)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set("slot", bytecode.Int(n))
				s.Get("slot")
			}
		}(int64(i))
	}
	wg.Wait()
	if !s.Has("slot") {
		t.Error("slot missing after concurrent writes")
	}
}
