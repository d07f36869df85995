package controllers

import "sync"

// InflightRegistry tracks which sessions have an analysis running so a
// second submit gets bounced instead of queued behind the first.
type InflightRegistry struct {
	mu     sync.Mutex
	active map[int64]struct{}
}

func NewInflightRegistry() *InflightRegistry {
	return &InflightRegistry{
		active: make(map[int64]struct{}),
	}
}

// Begin claims the analysis slot for a session. It returns false when
// the session already has one running.
func (g *InflightRegistry) Begin(sessionID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, running := g.active[sessionID]; running {
		return false
	}
	g.active[sessionID] = struct{}{}
	return true
}

// End releases the slot. Safe to call for a session that holds none.
func (g *InflightRegistry) End(sessionID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.active, sessionID)
}
