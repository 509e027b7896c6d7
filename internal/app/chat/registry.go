/*
Package chat contains the core logic of the realtime messaging layer: connection
lifecycle, the online-user registry, message routing, and the socket server loop.

This file defines the Registry struct, the single source of truth for which
users are online right now and on which connection. Connections are handled by
per-connection goroutines, so the registry serializes access with a mutex.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"estatechat/internal/pkg/logx"
)

// Registry tracks live connections and maps authenticated user ids to them.
// At most one live connection exists per user id; binding a user to a new
// connection displaces the previous one (last-connected-wins).
type Registry struct {
	// mu protects both maps. Adds and removes race across connection goroutines.
	mu sync.RWMutex

	// conns stores every live connection, keyed by connection id.
	conns map[string]*Conn

	// byUser maps a bound user id to that user's single live connection.
	byUser map[int64]*Conn

	// structured logger with Registry context.
	logger zerolog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*Conn),
		byUser: make(map[int64]*Conn),
		logger: logx.Component("Registry"),
	}
}

// Add records a newly accepted connection.
func (r *Registry) Add(conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[conn.ID()] = conn
	r.logger.Debug().Str("conn_id", conn.ID()).Int("total", len(r.conns)).Msg("Connection registered.")
}

// Remove deletes the connection from both maps. It is idempotent: a failed
// read and an explicit close may race to remove the same entry, and the second
// call is a no-op. The user mapping is only cleared if it still points at this
// connection, so a replacement bound in the meantime survives.
func (r *Registry) Remove(conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.ID()]; !ok {
		return
	}
	delete(r.conns, conn.ID())

	if userID := conn.UserID(); userID != 0 {
		if current, ok := r.byUser[userID]; ok && current == conn {
			delete(r.byUser, userID)
		}
	}

	r.logger.Debug().Str("conn_id", conn.ID()).Int("total", len(r.conns)).Msg("Connection removed.")
}

// BindUser maps userID to conn and marks the connection authenticated. If the
// user already had a live connection, that connection is returned so the
// caller can close it; last-connected-wins.
func (r *Registry) BindUser(conn *Conn, userID int64) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	var displaced *Conn
	if existing, ok := r.byUser[userID]; ok && existing != conn {
		displaced = existing
		r.logger.Warn().
			Int64("user_id", userID).
			Str("old_conn_id", existing.ID()).
			Str("new_conn_id", conn.ID()).
			Msg("User already connected. Previous connection will be replaced.")
	}

	conn.bindUser(userID)
	r.byUser[userID] = conn

	r.logger.Info().Int64("user_id", userID).Str("conn_id", conn.ID()).Msg("User bound to connection.")
	return displaced
}

// FindByUser returns the live connection bound to userID, or nil when the user
// is offline.
func (r *Registry) FindByUser(userID int64) *Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byUser[userID]
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// Snapshot returns all live connections, used during shutdown to close them.
func (r *Registry) Snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}
