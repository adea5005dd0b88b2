package peer

import (
	"sync"

	"github.com/taller-go/btcspv/wire"
)

// Pool is a thread-safe registry of live peer sessions used for
// broadcast and read-only enumeration once a session has graduated
// past netsync's own IBD-time peer bookkeeping (which tracks failure
// counts and eviction, a concern Pool deliberately doesn't carry).
type Pool struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
}

// NewPool returns a Pool seeded with sessions.
func NewPool(sessions []*Session) *Pool {
	p := &Pool{sessions: make(map[*Session]struct{}, len(sessions))}
	for _, s := range sessions {
		p.sessions[s] = struct{}{}
	}
	return p
}

// Add registers a session with the pool.
func (p *Pool) Add(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[s] = struct{}{}
}

// Remove drops a session from the pool, typically called from an
// OnDisconnect handler.
func (p *Pool) Remove(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, s)
}

// Sessions returns a snapshot of the currently registered sessions.
func (p *Pool) Sessions() []*Session {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*Session, 0, len(p.sessions))
	for s := range p.sessions {
		out = append(out, s)
	}
	return out
}

// Broadcast sends msg to every session currently in the pool.
func (p *Pool) Broadcast(msg wire.Message) {
	for _, s := range p.Sessions() {
		s.Send(msg)
	}
}

// Len reports how many sessions are currently registered.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}
