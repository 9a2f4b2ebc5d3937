// Package session keeps one resume record per client session in memory.
package session

import (
	"slices"
	"sync"
	"time"

	"cvforge/internal/config"
	"cvforge/internal/errors"
	"cvforge/internal/resume"

	"github.com/google/uuid"
)

// State is the mutable content of a session.
type State struct {
	Record resume.Record `json:"record"`
	// Suggestions is the pool of AI suggested skills not yet accepted.
	Suggestions []string `json:"suggestions"`
}

func (s State) clone() State {
	return State{Record: s.Record.Clone(), Suggestions: slices.Clone(s.Suggestions)}
}

// Snapshot is a copy of a session taken under its lock.
type Snapshot struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	State
}

type entry struct {
	mu         sync.Mutex
	id         string
	created    time.Time
	state      State
	lastAccess time.Time
}

// Store owns the sessions. Edits of one session are serialised by that
// session's mutex; the store lock only guards the map.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*entry
	ttl         time.Duration
	maxSessions int
	now         func() time.Time
	done        chan struct{}
	closeOnce   sync.Once
	logger      *errors.Logger
}

// NewStore creates a store and starts its eviction goroutine when the
// configuration asks for one.
func NewStore(cfg config.SessionConfig, logger *errors.Logger) *Store {
	s := &Store{
		sessions:    make(map[string]*entry),
		ttl:         cfg.TTL,
		maxSessions: cfg.MaxSessions,
		now:         time.Now,
		done:        make(chan struct{}),
		logger:      logger,
	}
	if cfg.TTL > 0 && cfg.CleanupInterval > 0 {
		go s.cleanupRoutine(cfg.CleanupInterval)
	}
	return s
}

// Create starts a session with an empty record. When the store is full the
// least recently used session is evicted.
func (s *Store) Create() Snapshot {
	now := s.now()
	e := &entry{
		id:         uuid.NewString(),
		created:    now,
		state:      State{Record: resume.New(), Suggestions: []string{}},
		lastAccess: now,
	}

	s.mu.Lock()
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		s.evictOldestLocked()
	}
	s.sessions[e.id] = e
	s.mu.Unlock()

	return Snapshot{ID: e.id, Created: e.created, State: e.state.clone()}
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError(errors.ErrCodeSessionNotFound,
			"Session not found", nil).WithContext("session_id", id)
	}
	return e, nil
}

// Get returns a snapshot of a session.
func (s *Store) Get(id string) (Snapshot, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastAccess = s.now()
	return Snapshot{ID: e.id, Created: e.created, State: e.state.clone()}, nil
}

// Modify applies fn to a session's state under its lock. fn gets a copy;
// when it fails the session is left unchanged.
func (s *Store) Modify(id string, fn func(State) (State, error)) (State, error) {
	e, err := s.lookup(id)
	if err != nil {
		return State{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := fn(e.state.clone())
	if err != nil {
		return State{}, err
	}
	e.state = next
	e.lastAccess = s.now()
	return next.clone(), nil
}

// Update applies a record mutation to a session.
func (s *Store) Update(id string, fn func(resume.Record) (resume.Record, error)) (resume.Record, error) {
	state, err := s.Modify(id, func(st State) (State, error) {
		rec, err := fn(st.Record)
		if err != nil {
			return st, err
		}
		st.Record = rec
		return st, nil
	})
	return state.Record, err
}

// SetSuggestions replaces the suggested skill pool, leaving out skills the
// record already has.
func (s *Store) SetSuggestions(id string, skills []string) ([]string, error) {
	state, err := s.Modify(id, func(st State) (State, error) {
		pool := make([]string, 0, len(skills))
		for _, skill := range skills {
			if !st.Record.HasSkill(skill) && !slices.Contains(pool, skill) {
				pool = append(pool, skill)
			}
		}
		st.Suggestions = pool
		return st, nil
	})
	return state.Suggestions, err
}

// AcceptSuggestion moves suggestion i into the record's skills.
func (s *Store) AcceptSuggestion(id string, i int) (State, error) {
	return s.Modify(id, func(st State) (State, error) {
		if i < 0 || i >= len(st.Suggestions) {
			return st, errors.NewValidationError(errors.ErrCodeIndexOutOfRange,
				"Suggestion index out of range", nil).
				WithContext("index", i).
				WithContext("length", len(st.Suggestions))
		}
		st.Record = st.Record.AddSkill(st.Suggestions[i])
		st.Suggestions = slices.Delete(st.Suggestions, i, i+1)
		return st, nil
	})
}

// Delete drops a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return errors.NewNotFoundError(errors.ErrCodeSessionNotFound,
			"Session not found", nil).WithContext("session_id", id)
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// GetStats returns session statistics
func (s *Store) GetStats() map[string]any {
	return map[string]any{
		"active_sessions": s.Len(),
		"ttl_seconds":     s.ttl.Seconds(),
		"max_sessions":    s.maxSessions,
	}
}

func (s *Store) evictOldestLocked() {
	var oldest *entry
	var oldestAccess time.Time
	for _, e := range s.sessions {
		e.mu.Lock()
		access := e.lastAccess
		e.mu.Unlock()
		if oldest == nil || access.Before(oldestAccess) {
			oldest, oldestAccess = e, access
		}
	}
	if oldest != nil {
		delete(s.sessions, oldest.id)
		s.logger.Info("Session store full, evicted least recently used session",
			"session_id", oldest.id,
			"max_sessions", s.maxSessions)
	}
}

// cleanupRoutine periodically removes idle sessions
func (s *Store) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.done:
			return
		}
	}
}

// cleanup removes sessions idle for longer than the TTL.
func (s *Store) cleanup() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		idle := now.Sub(e.lastAccess)
		e.mu.Unlock()
		if idle > s.ttl {
			delete(s.sessions, id)
			evicted++
		}
	}

	s.logger.Debug("Session cleanup completed",
		"evicted_sessions", evicted,
		"remaining_sessions", len(s.sessions))
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
