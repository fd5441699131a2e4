package listctl

import (
	"sync"
	"time"

	"github.com/dalemusser/carehub/internal/app/system/catalog"
)

type registryKey struct {
	session  string
	resource string
}

type registryEntry struct {
	ctl      *Controller
	lastSeen time.Time
}

// Registry holds one Controller per session and resource. Entries are
// created on first use and dropped by Sweep after an idle period.
type Registry struct {
	mu      sync.Mutex
	entries map[registryKey]*registryEntry
	now     func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[registryKey]*registryEntry),
		now:     time.Now,
	}
}

// Get returns the controller for session and def, creating it on mount.
// The second result is true when the controller was just created.
func (r *Registry) Get(session string, def *catalog.Definition) (*Controller, bool) {
	k := registryKey{session: session, resource: def.Name}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[k]; ok {
		e.lastSeen = r.now()
		return e.ctl, false
	}
	c := NewController(def)
	r.entries[k] = &registryEntry{ctl: c, lastSeen: r.now()}
	return c, true
}

// Forget drops every controller of a session, used on logout.
func (r *Registry) Forget(session string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.entries {
		if k.session == session {
			delete(r.entries, k)
			n++
		}
	}
	return n
}

// Touch marks every controller of a session as used now, keeping an
// open page's lists alive. It returns how many were touched.
func (r *Registry) Touch(session string) int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, e := range r.entries {
		if k.session == session {
			e.lastSeen = now
			n++
		}
	}
	return n
}

// Sweep drops controllers idle longer than ttl and returns how many.
func (r *Registry) Sweep(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of live controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
