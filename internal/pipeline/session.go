package pipeline

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jurimetrics/sentenza/internal/model"
)

// SessionGuard enforces single-flight analysis per judgment. A second
// concurrent request for the same case is rejected, not queued.
type SessionGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewSessionGuard creates an empty guard
func NewSessionGuard() *SessionGuard {
	return &SessionGuard{active: make(map[string]struct{})}
}

// Acquire claims the session for key and returns its release func.
// Returns ErrSessionBusy when the key is already claimed. An empty key
// is never guarded.
func (g *SessionGuard) Acquire(key string) (func(), error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return func() {}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[key]; busy {
		return nil, fmt.Errorf("%w: %s", model.ErrSessionBusy, key)
	}
	g.active[key] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.active, key)
		})
	}
	return release, nil
}

// Active reports whether the key currently holds a session
func (g *SessionGuard) Active(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.active[key]
	return busy
}
