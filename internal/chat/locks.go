package chat

import "sync"

// sessionLocks serializes turns within a single session while letting
// distinct sessions proceed in parallel. Entries are reference-counted
// and removed when the last holder releases, so the map stays bounded by
// the number of in-flight requests rather than the number of sessions.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*refLock)}
}

// acquire locks the given session and returns the release function.
func (s *sessionLocks) acquire(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &refLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()

	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}
