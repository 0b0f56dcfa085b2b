// Package history keeps a per-user, deduplicated record of past
// searches.
package history

import (
	"sync"
	"time"

	"github.com/ledgerbox/ledgerbox/internal/search"
)

// MaxEntries caps the retained history per user.
const MaxEntries = 20

// ReadLimit caps how many entries Recent returns.
const ReadLimit = 10

// Entry is one recorded search.
type Entry struct {
	Query     string           `json:"query"`
	Filters   search.FilterSet `json:"filters"`
	Timestamp time.Time        `json:"timestamp"`

	signature string
}

// Store holds search history partitioned by user ID. Construct with
// NewStore; the zero value is not usable.
type Store struct {
	mu     sync.Mutex
	byUser map[string][]Entry // newest first

	now func() time.Time
}

// NewStore creates an empty history store.
func NewStore() *Store {
	return &Store{
		byUser: make(map[string][]Entry),
		now:    time.Now,
	}
}

// WithNow sets the time source. Used by tests.
func (s *Store) WithNow(now func() time.Time) *Store {
	s.now = now
	return s
}

// Add records a search for userID. An existing entry with the same
// (query, filters) signature is removed first, so history never holds
// duplicates; the new entry is prepended and the list trimmed to
// MaxEntries. Queries without criteria are ignored.
func (s *Store) Add(userID string, q *search.Query) {
	if !q.HasCriteria() {
		return
	}
	sig := q.Signature()

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.byUser[userID]
	for i, e := range entries {
		if e.signature == sig {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}

	entry := Entry{
		Query:     q.Text(),
		Filters:   q.Filters,
		Timestamp: s.now(),
		signature: sig,
	}
	entries = append([]Entry{entry}, entries...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	s.byUser[userID] = entries
}

// Recent returns up to ReadLimit entries for userID, newest first.
// The returned slice is a copy; callers may not mutate store state.
func (s *Store) Recent(userID string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.byUser[userID]
	n := len(entries)
	if n > ReadLimit {
		n = ReadLimit
	}
	out := make([]Entry, n)
	copy(out, entries[:n])
	return out
}

// Len returns the retained entry count for userID, including entries
// beyond the read limit.
func (s *Store) Len(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser[userID])
}

// Clear drops all history for userID.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
}
