package session

import (
	"context"
	"log"
	"sync"
	"time"

	"learnerdash/domain/core"
	"learnerdash/domain/markbook"
)

// DefaultTTL is how long an idle session is kept
const DefaultTTL = 2 * time.Hour

// Comparison is a second upload compared against the session's markbook
type Comparison struct {
	Filename string               `json:"filename"`
	Result   *markbook.Comparison `json:"result"`
}

// State is everything one session has derived from its last successful
// upload. A State is never modified after it is stored; updates build a new
// value and replace the old one.
type State struct {
	ID          core.SessionID            `json:"id"`
	Filename    string                    `json:"filename"`
	Fingerprint core.Hash                 `json:"fingerprint"`
	UploadedAt  time.Time                 `json:"uploaded_at"`
	Table       *markbook.NormalizedTable `json:"table"`
	Analysis    *markbook.Analysis        `json:"analysis"`
	Comparison  *Comparison               `json:"comparison,omitempty"`
}

// WithComparison returns a copy of the state carrying a comparison result
func (s *State) WithComparison(c *Comparison) *State {
	next := *s
	next.Comparison = c
	return &next
}

type entry struct {
	state   *State
	touched time.Time
}

// Store keeps session states in memory. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	states map[core.SessionID]*entry
	ttl    time.Duration
	now    func() time.Time
}

// NewStore creates a store; ttl <= 0 uses DefaultTTL
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		states: make(map[core.SessionID]*entry),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns the session's state and marks the session as used
func (s *Store) Get(id core.SessionID) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.states[id]
	if !ok {
		return nil, false
	}
	e.touched = s.now()
	return e.state, true
}

// Put replaces the session's state wholesale
func (s *Store) Put(id core.SessionID, state *State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = &entry{state: state, touched: s.now()}
}

// Delete forgets a session
func (s *Store) Delete(id core.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, id)
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// CleanupExpired removes sessions idle for longer than the TTL and returns
// how many were removed.
func (s *Store) CleanupExpired(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, e := range s.states {
		if ctx.Err() != nil {
			break
		}
		if e.touched.Before(cutoff) {
			delete(s.states, id)
			removed++
		}
	}
	return removed
}

// RunJanitor calls CleanupExpired every interval until ctx is done
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.CleanupExpired(ctx); n > 0 {
				log.Printf("[SessionStore] expired %d sessions, %d remain", n, s.Len())
			}
		}
	}
}
