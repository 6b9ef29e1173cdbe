package ws

import (
	"sync"
)

// Handle is an opaque reference to a live bidirectional connection. It
// can accept one serialized outbound message per Send call and report
// whether it is still open.
type Handle interface {
	Send(payload []byte) error
	IsOpen() bool
	Close() error
}

// Registry maps an online user to exactly one live connection handle.
// It is the single shared mutable structure in the delivery pipeline and
// provides its own synchronization; per-key atomicity is all callers
// rely on.
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]Handle
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[int64]Handle),
	}
}

// Put registers a handle for the user, replacing any existing one
// without error (last writer wins). The superseded handle is returned so
// the caller can close it.
func (r *Registry) Put(userID int64, h Handle) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.conns[userID]
	r.conns[userID] = h
	return prev
}

func (r *Registry) Get(userID int64) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.conns[userID]
	return h, ok
}

func (r *Registry) Remove(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, userID)
}

// Drop removes the entry for userID only if it still resolves to h.
// Close callbacks and failed-send cleanup use this so a superseded
// handle can never evict its replacement. Reports whether an entry was
// removed.
func (r *Registry) Drop(userID int64, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.conns[userID]; ok && current == h {
		delete(r.conns, userID)
		return true
	}
	return false
}

func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.conns[userID]
	return ok && h.IsOpen()
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
