package realtime

import "sync"

// Registry tracks which websocket connection is bound to which user. A user
// with several open sessions is resolved to the most recently bound one; the
// older binding stays valid for inbound frames but no longer receives routed
// messages. All operations are thread-safe via sync.RWMutex.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]int64 // connection ID -> user ID
	users map[int64]string // user ID -> most recently bound connection ID
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]int64),
		users: make(map[int64]string),
	}
}

// Bind associates a connection with a user. Rebinding an existing connection
// or binding a second connection for the same user overwrites the previous
// association; the last write wins.
func (r *Registry) Bind(connID string, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.conns[connID]; ok && r.users[prev] == connID {
		delete(r.users, prev)
	}

	r.conns[connID] = userID
	r.users[userID] = connID
}

// Unbind removes a connection's association. Unbinding an unknown connection
// is a no-op, so disconnect paths may call it unconditionally.
func (r *Registry) Unbind(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)
	if r.users[userID] == connID {
		delete(r.users, userID)
	}
}

// LookupConnection resolves the most recently bound connection for a user.
func (r *Registry) LookupConnection(userID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.users[userID]
	return connID, ok
}

// UserFor returns the user bound to a connection, if any.
func (r *Registry) UserFor(connID string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.conns[connID]
	return userID, ok
}

// Online reports whether the user has a bound connection.
func (r *Registry) Online(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

// Len returns the number of bound connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
