package orchestration

import (
	"fmt"
	"sort"
	"sync"
)

// SessionRegistry maps session identifiers to sessions. It is the only
// structure shared between concurrent event handlers.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: map[string]*Session{}}
}

// Create registers a new session for id. It fails with ErrDuplicateSession
// when id is already registered.
func (r *SessionRegistry) Create(id string, transport Transport, opts ...SessionOption) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateSession, id)
	}

	session := newSession(id, transport, opts...)
	r.sessions[id] = session
	return session, nil
}

func (r *SessionRegistry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return session, nil
}

// Destroy removes the session and tears it down. It is safe to call any
// number of times; only the call that removed the session returns it.
func (r *SessionRegistry) Destroy(id string) (*Session, bool) {
	r.mu.Lock()
	session, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return nil, false
	}
	return session, session.close()
}

// List returns the registered sessions ordered by id.
func (r *SessionRegistry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].id < sessions[j].id })
	return sessions
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
