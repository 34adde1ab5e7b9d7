// Package store holds the process-wide application state: the registry of chats
// that have interacted with the bot and the usage counters reported by /stats.
// A single Store is created in main and injected into every handler; nothing in
// here is persisted, the state lives for the process lifetime only.
package store

import (
	"sync"
	"time"
)

// Store is safe for concurrent use by handler goroutines.
type Store struct {
	mu      sync.Mutex
	users   map[int64]time.Time
	started time.Time

	searches   uint64
	trending   uint64
	callbacks  uint64
	broadcasts uint64
}

// Stats is a point-in-time snapshot of the counters.
type Stats struct {
	KnownUsers int
	Searches   uint64
	Trending   uint64
	Callbacks  uint64
	Broadcasts uint64
	Uptime     time.Duration
}

func New() *Store {
	return &Store{
		users:   make(map[int64]time.Time),
		started: time.Now(),
	}
}

// Touch registers a chat id on first contact and reports whether it was new.
// Existing entries keep their original first-seen time; nothing is ever removed,
// so the known-user count is monotonically non-decreasing.
func (s *Store) Touch(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[chatID]; ok {
		return false
	}
	s.users[chatID] = time.Now()
	return true
}

// UserIDs returns a copy of all known chat ids, in no particular order.
func (s *Store) UserIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.users))
	for id := range s.users {
		out = append(out, id)
	}
	return out
}

// UserCount returns the number of known chat ids.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *Store) IncSearches() {
	s.mu.Lock()
	s.searches++
	s.mu.Unlock()
}

func (s *Store) IncTrending() {
	s.mu.Lock()
	s.trending++
	s.mu.Unlock()
}

func (s *Store) IncCallbacks() {
	s.mu.Lock()
	s.callbacks++
	s.mu.Unlock()
}

func (s *Store) IncBroadcasts() {
	s.mu.Lock()
	s.broadcasts++
	s.mu.Unlock()
}

// Snapshot returns a consistent view of all counters.
func (s *Store) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		KnownUsers: len(s.users),
		Searches:   s.searches,
		Trending:   s.trending,
		Callbacks:  s.callbacks,
		Broadcasts: s.broadcasts,
		Uptime:     time.Since(s.started),
	}
}
