// Package presence tracks which users currently hold at least one live
// connection and owns every mutation of the user -> connection-set mapping.
package presence

import (
	"sync"

	"go.uber.org/zap"
)

// TransitionFunc is invoked after a user goes online (0 -> nonzero
// connections) or fully offline (nonzero -> 0), with the full list of online
// user ids at that point. It runs outside the registry lock.
type TransitionFunc func(online []int64)

// Registry maps authenticated user ids to their open connections. It is the
// only shared mutable structure of the delivery core; all access goes through
// its mutex.
type Registry struct {
	logger *zap.SugaredLogger

	mu     sync.RWMutex
	conns  map[string]*Conn
	byUser map[int64]map[string]*Conn
	order  []int64 // online users in first-connection order

	onTransition TransitionFunc
}

func NewRegistry(logger *zap.SugaredLogger) *Registry {
	return &Registry{
		logger: logger,
		conns:  make(map[string]*Conn),
		byUser: make(map[int64]map[string]*Conn),
	}
}

// OnTransition sets the hook fired on online/offline transitions. Set it
// during wiring, before any connection is admitted.
func (r *Registry) OnTransition(f TransitionFunc) {
	r.onTransition = f
}

// Register adds a connection to its user's set. Registering the same
// connection id twice is a no-op. The presence-changed hook fires only when
// the user had no connections before.
func (r *Registry) Register(c *Conn) {
	r.mu.Lock()
	if _, ok := r.conns[c.ID]; ok {
		r.mu.Unlock()
		return
	}
	r.conns[c.ID] = c

	set, ok := r.byUser[c.UserID]
	if !ok {
		set = make(map[string]*Conn)
		r.byUser[c.UserID] = set
		r.order = append(r.order, c.UserID)
	}
	set[c.ID] = c

	transition := len(set) == 1
	online := r.snapshotLocked()
	r.mu.Unlock()

	r.logger.Debugw("connection registered", "conn_id", c.ID, "user_id", c.UserID)

	if transition && r.onTransition != nil {
		r.onTransition(online)
	}
}

// Unregister removes a connection from whichever user's set contains it and
// closes it. Unknown ids are ignored, so every disconnect path may call it
// unconditionally.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, connID)

	transition := false
	if set, ok := r.byUser[c.UserID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.byUser, c.UserID)
			r.dropFromOrderLocked(c.UserID)
			transition = true
		}
	}
	online := r.snapshotLocked()
	r.mu.Unlock()

	c.Close()

	r.logger.Debugw("connection unregistered", "conn_id", connID, "user_id", c.UserID)

	if transition && r.onTransition != nil {
		r.onTransition(online)
	}
}

// IsOnline reports whether the user has at least one open connection.
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// Snapshot returns the online user ids in first-connection order.
func (r *Registry) Snapshot() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// Connections returns the user's current connections. The returned slice is a
// copy; connections may be unregistered concurrently, in which case pushes to
// them simply report failure.
func (r *Registry) Connections(userID int64) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// Broadcast pushes data to every registered connection.
func (r *Registry) Broadcast(data []byte) {
	r.mu.RLock()
	conns := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		if !c.Push(data) {
			r.logger.Debugw("broadcast push dropped", "conn_id", c.ID, "user_id", c.UserID)
		}
	}
}

// Shutdown closes every live connection. Their read pumps unwind and run the
// usual unregister paths.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	conns := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
}

func (r *Registry) snapshotLocked() []int64 {
	online := make([]int64, len(r.order))
	copy(online, r.order)
	return online
}

func (r *Registry) dropFromOrderLocked(userID int64) {
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
