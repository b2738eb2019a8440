package signup

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one form session: a draft plus its submission workflow.
type Session struct {
	ID string

	mu       sync.Mutex
	draft    Draft
	workflow Workflow
	lastSeen time.Time
}

// Snapshot is a point-in-time copy of a session for rendering.
type Snapshot struct {
	Draft Draft
	State State
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Draft: s.draft, State: s.workflow.State()}
}

// Update applies fn to the draft under the session lock.
func (s *Session) Update(fn func(d *Draft)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.draft)
}

// Edit applies fn to the draft unless a submission is in flight, in which
// case the draft is left as it is and ErrSubmissionInProgress returned.
func (s *Session) Edit(fn func(d *Draft)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workflow.State() == StateSubmitting {
		return ErrSubmissionInProgress
	}
	fn(&s.draft)
	return nil
}

// Reset clears the draft and, unless a submission is outstanding, the workflow.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Reset()
	s.workflow.Reset()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workflow.State()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workflow.State() != StateSubmitting && s.lastSeen.Before(cutoff)
}

// Store keeps form sessions in memory. Nothing outlives the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	clock    Clock
}

func NewStore(ttl time.Duration, clock Clock) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		clock:    clock,
	}
}

// Create starts a session with an empty draft.
func (s *Store) Create() *Session {
	sess := &Session{ID: uuid.NewString(), lastSeen: s.clock()}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess
}

// Get returns the session for id and marks it as recently used.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if ok {
		sess.touch(s.clock())
	}
	return sess, ok
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed. Sessions with a submission in flight are kept.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.clock().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.idleSince(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
