package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tbxark/interviewagent/types"
)

type Store interface {
	Create(ctx context.Context, language string, questions []types.QuestionSnapshot, partial bool) (string, error)
	// Get returns a copy of the last committed session or
	// types.ErrSessionNotFound. It does not wait for a turn in progress.
	Get(ctx context.Context, id string) (*Session, error)
	// Mutate runs fn on a working copy while holding the session exclusively.
	// The copy replaces the stored session only when fn returns nil. A session
	// left in the submitted state is removed.
	Mutate(ctx context.Context, id string, fn func(s *Session) error) error
	Delete(ctx context.Context, id string) error
}

// entry guards one session. mu is held for a whole turn. snap guards the
// committed session and removed flag for readers.
// Writers hold both.
type entry struct {
	mu         sync.Mutex
	snap       sync.RWMutex
	session    *Session
	lastAccess time.Time
	removed    bool
}

func (e *entry) commit(sess *Session, removed bool) {
	e.snap.Lock()
	defer e.snap.Unlock()
	e.session = sess
	e.removed = e.removed || removed
}

// MemoryStore keeps sessions in memory with one lock per session and evicts
// sessions idle for longer than the configured TTL.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

type StoreOption func(*MemoryStore)

// WithTTL sets the idle time after which Sweep evicts a session. Zero disables eviction.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Create(ctx context.Context, language string, questions []types.QuestionSnapshot, partial bool) (string, error) {
	id := uuid.NewString()
	now := s.now()
	sess := New(id, language, questions, partial, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[id]; exists {
		return "", fmt.Errorf("%w: duplicate session id", types.ErrSessionCreationFailed)
	}
	s.entries[id] = &entry{session: sess, lastAccess: now}
	return id, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.snap.RLock()
	defer e.snap.RUnlock()
	if e.removed {
		return nil, fmt.Errorf("%w: %s", types.ErrSessionNotFound, id)
	}
	return e.session.Clone(), nil
}

func (s *MemoryStore) Mutate(ctx context.Context, id string, fn func(s *Session) error) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return fmt.Errorf("%w: %s", types.ErrSessionNotFound, id)
	}

	working := e.session.Clone()
	if err := fn(working); err != nil {
		return err
	}
	now := s.now()
	working.UpdatedAt = now
	e.lastAccess = now
	submitted := working.State == types.StateSubmitted
	e.commit(working, submitted)
	if submitted {
		s.remove(id, e)
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commit(e.session, true)
	s.remove(id, e)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep evicts sessions idle longer than the TTL and returns how many were
// removed. Sessions with a turn in progress are skipped.
func (s *MemoryStore) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.RLock()
	candidates := make(map[string]*entry, len(s.entries))
	for id, e := range s.entries {
		candidates[id] = e
	}
	s.mu.RUnlock()

	evicted := 0
	for id, e := range candidates {
		if !e.mu.TryLock() {
			continue
		}
		if !e.removed && now.Sub(e.lastAccess) > s.ttl {
			e.commit(e.session, true)
			s.remove(id, e)
			evicted++
		}
		e.mu.Unlock()
	}
	return evicted
}

// Run sweeps every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				slog.Info("Evicted idle sessions", "count", n, "ttl", s.ttl)
			}
		}
	}
}

func (s *MemoryStore) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrSessionNotFound, id)
	}
	return e, nil
}

// remove deletes the map entry if it still points at e. Callers hold e.mu.
func (s *MemoryStore) remove(id string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[id] == e {
		delete(s.entries, id)
	}
}

var _ Store = (*MemoryStore)(nil)
