/*
Package chat contains the core logic of the realtime messaging layer: connection
lifecycle, the online-user registry, message routing, and the socket server loop.

This file defines the Conn struct, representing one accepted socket and its
state machine: Connected (pre-handshake) -> Handshaked -> Authenticated, with
Closed reachable from every state.
*/
package chat

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"estatechat/internal/app/ws"
)

// ConnState is the lifecycle state of a connection.
type ConnState int

const (
	// StateConnected means the socket is accepted but the WebSocket handshake
	// has not completed yet.
	StateConnected ConnState = iota

	// StateHandshaked means the upgrade succeeded but no user identity is bound.
	StateHandshaked

	// StateAuthenticated means a user id is bound to the connection.
	StateAuthenticated

	// StateClosed is terminal.
	StateClosed
)

// String returns the state name for logging.
func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateHandshaked:
		return "handshaked"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// writeWait is the timeout for writing a frame to the socket.
const writeWait = 10 * time.Second

// Conn represents one accepted WebSocket connection. The server loop owns the
// read side exclusively; writes may come from any connection's routing goroutine
// and are serialized by the write mutex.
type Conn struct {
	// id is the opaque connection handle, assigned at accept time.
	id string

	// netConn is the underlying socket.
	netConn net.Conn

	// mu guards state, userID, lastActivity, and serializes writes.
	mu sync.Mutex

	state        ConnState
	userID       int64
	lastActivity time.Time

	// closeOnce makes Close idempotent.
	closeOnce sync.Once

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewConn wraps an accepted socket in the Connected state.
func NewConn(id string, netConn net.Conn, logger zerolog.Logger) *Conn {
	return &Conn{
		id:           id,
		netConn:      netConn,
		state:        StateConnected,
		lastActivity: time.Now(),
		logger:       logger.With().Str("conn_id", id).Logger(),
	}
}

// ID returns the opaque connection handle.
func (c *Conn) ID() string {
	return c.id
}

// State returns the current lifecycle state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UserID returns the bound user id, or 0 when the connection is unbound.
func (c *Conn) UserID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// markHandshaked transitions the connection out of the pre-handshake state.
func (c *Conn) markHandshaked() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateConnected {
		c.state = StateHandshaked
	}
}

// bindUser records the authenticated user id on the connection.
func (c *Conn) bindUser(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return
	}
	c.userID = userID
	c.state = StateAuthenticated
}

// Touch records read activity on the connection.
func (c *Conn) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivity = time.Now()
}

// LastActivity returns the time of the most recent read.
func (c *Conn) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// WriteRaw writes pre-encoded bytes to the socket under the write mutex.
func (c *Conn) WriteRaw(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return fmt.Errorf("write on closed connection %s", c.id)
	}

	if err := c.netConn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if _, err := c.netConn.Write(data); err != nil {
		return fmt.Errorf("failed to write to connection %s: %w", c.id, err)
	}

	return nil
}

// SendJSON marshals v and writes it as a single text frame.
func (c *Conn) SendJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to marshal outbound payload")
		return err
	}

	if err := c.WriteRaw(ws.EncodeText(payload)); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to write outbound frame")
		return err
	}

	return nil
}

// Close transitions the connection to the terminal state and closes the
// socket. It is safe to call from any state, any number of times.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()

		if err := c.netConn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error")
		}
	})
}
