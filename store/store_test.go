package store

import (
	"sync"
	"testing"
)

func TestTouch(t *testing.T) {
	s := New()
	if !s.Touch(100) {
		t.Errorf("first Touch should report new")
	}
	if s.Touch(100) {
		t.Errorf("second Touch of same id should not report new")
	}
	if got := s.UserCount(); got != 1 {
		t.Errorf("UserCount = %d, want 1", got)
	}
}

func TestUserCountMonotonic(t *testing.T) {
	s := New()
	prev := 0
	for _, id := range []int64{1, 2, 2, 3, 1, 4} {
		s.Touch(id)
		if got := s.UserCount(); got < prev {
			t.Fatalf("UserCount decreased: %d -> %d", prev, got)
		} else {
			prev = got
		}
	}
	if prev != 4 {
		t.Errorf("final UserCount = %d, want 4", prev)
	}
}

func TestUserIDsCopy(t *testing.T) {
	s := New()
	s.Touch(7)
	ids := s.UserIDs()
	ids[0] = 999 // mutating the copy must not affect the store
	if !s.Touch(999) {
		t.Errorf("id 999 should be unknown to the store")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			s.Touch(n % 10)
			s.IncSearches()
			s.IncTrending()
			s.IncCallbacks()
		}(int64(i))
	}
	wg.Wait()
	st := s.Snapshot()
	if st.KnownUsers != 10 {
		t.Errorf("KnownUsers = %d, want 10", st.KnownUsers)
	}
	if st.Searches != 50 || st.Trending != 50 || st.Callbacks != 50 {
		t.Errorf("counters lost updates: %+v", st)
	}
}

func TestSnapshot(t *testing.T) {
	s := New()
	s.Touch(1)
	s.IncSearches()
	s.IncBroadcasts()
	st := s.Snapshot()
	if st.KnownUsers != 1 || st.Searches != 1 || st.Broadcasts != 1 {
		t.Errorf("unexpected snapshot: %+v", st)
	}
	if st.Uptime < 0 {
		t.Errorf("negative uptime: %v", st.Uptime)
	}
}
