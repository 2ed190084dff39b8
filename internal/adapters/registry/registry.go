// Package registry keeps track of live scoring sessions.
//
// Each performer-vs-reference pairing owns a disjoint session controller;
// the registry is the in-memory index that hands them out by id. A default
// session always exists and serves the UDP pipeline; HTTP clients create
// additional isolated sessions as needed.
package registry

import (
	"context"
	"sync"

	"github.com/okian/kata/internal/domain/session"
	"github.com/okian/kata/pkg/metrics"
)

// Factory builds a fresh session controller. The registry calls it for the
// default session and for every Create.
type Factory func() *session.Controller

// Registry is a uuid-keyed in-memory store of session controllers.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Controller
	factory  Factory

	defaultID string
}

// New creates a registry and its default session.
func New(factory Factory) *Registry {
	r := &Registry{
		sessions: make(map[string]*session.Controller),
		factory:  factory,
	}
	def := factory()
	r.sessions[def.ID()] = def
	r.defaultID = def.ID()
	metrics.UpdateActiveSessions(1)
	return r
}

// Default returns the always-present default session.
func (r *Registry) Default() *session.Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[r.defaultID]
}

// Create builds, registers, and returns a new isolated session.
func (r *Registry) Create(_ context.Context) *session.Controller {
	ctrl := r.factory()

	r.mu.Lock()
	r.sessions[ctrl.ID()] = ctrl
	size := len(r.sessions)
	r.mu.Unlock()

	metrics.UpdateActiveSessions(size)
	return ctrl
}

// Get returns the session with the given id. An empty id resolves to the
// default session.
func (r *Registry) Get(_ context.Context, id string) (*session.Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id == "" {
		id = r.defaultID
	}
	ctrl, ok := r.sessions[id]
	return ctrl, ok
}

// Remove drops a session. The default session cannot be removed.
func (r *Registry) Remove(_ context.Context, id string) bool {
	if id == r.defaultID {
		return false
	}

	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	size := len(r.sessions)
	r.mu.Unlock()

	metrics.UpdateActiveSessions(size)
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
