package contextcache

import (
	"context"
	"sync"
	"time"

	"github.com/soyeahso/parley/internal/domain"
	"github.com/soyeahso/parley/internal/logging"
)

// sweepInterval controls how often the background janitor removes
// expired sequences. Expiry itself is enforced lazily on every access,
// so the sweep only bounds memory held by abandoned sessions.
const sweepInterval = time.Minute

// sequence is the cached turn log for one session.
type sequence struct {
	entries   []Entry
	expiresAt time.Time
}

// Memory is the in-process Cache implementation. Entries expire after a
// sliding TTL that resets on every append, and each sequence is capped
// at maxTurns turns (2×maxTurns entries) by truncating from the oldest end.
type Memory struct {
	mu        sync.RWMutex
	sequences map[string]*sequence

	maxTurns int
	ttl      time.Duration
	now      func() time.Time

	log  *logging.Logger
	done chan struct{}
	once sync.Once
}

// NewMemory creates an in-process context cache and starts its janitor.
// Call Close to stop the janitor when the cache is no longer needed.
func NewMemory(maxTurns int, ttl time.Duration, log *logging.Logger) *Memory {
	m := &Memory{
		sequences: make(map[string]*sequence),
		maxTurns:  maxTurns,
		ttl:       ttl,
		now:       time.Now,
		log:       log.Sub("contextcache"),
		done:      make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Close stops the background janitor. Safe to call more than once.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.done) })
}

// Initialize resets the session's sequence to empty with a fresh TTL.
func (m *Memory) Initialize(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[sessionID] = &sequence{expiresAt: m.now().Add(m.ttl)}
	return nil
}

// AppendTurn appends the user and agent entries, truncates to the newest
// 2×maxTurns entries, and refreshes the sequence TTL.
func (m *Memory) AppendTurn(_ context.Context, sessionID, userText, agentText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seq := m.live(sessionID)
	if seq == nil {
		seq = &sequence{}
		m.sequences[sessionID] = seq
	}

	seq.entries = append(seq.entries,
		Entry{Role: domain.RoleUser, Content: userText},
		Entry{Role: domain.RoleAgent, Content: agentText},
	)

	if max := 2 * m.maxTurns; len(seq.entries) > max {
		// Keep the newest entries: recency is what matters for prompting.
		kept := make([]Entry, max)
		copy(kept, seq.entries[len(seq.entries)-max:])
		seq.entries = kept
	}

	seq.expiresAt = m.now().Add(m.ttl)
	return nil
}

// ReadContext returns a snapshot of the session's sequence without
// touching its TTL.
func (m *Memory) ReadContext(_ context.Context, sessionID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seq, ok := m.sequences[sessionID]
	if !ok || !seq.expiresAt.After(m.now()) {
		return nil, nil
	}

	out := make([]Entry, len(seq.entries))
	copy(out, seq.entries)
	return out, nil
}

// Clear removes the session's sequence. Idempotent.
func (m *Memory) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sequences, sessionID)
	return nil
}

// live returns the non-expired sequence for a session, dropping it if the
// TTL has lapsed. Caller must hold the write lock.
func (m *Memory) live(sessionID string) *sequence {
	seq, ok := m.sequences[sessionID]
	if !ok {
		return nil
	}
	if !seq.expiresAt.After(m.now()) {
		delete(m.sequences, sessionID)
		return nil
	}
	return seq
}

// janitor periodically sweeps expired sequences.
func (m *Memory) janitor() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, seq := range m.sequences {
		if !seq.expiresAt.After(now) {
			delete(m.sequences, id)
			removed++
		}
	}
	if removed > 0 {
		m.log.Debug().Int("removed", removed).Msg("swept expired context sequences")
	}
}
