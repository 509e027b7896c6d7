/*
Package client implements the transport manager used by messaging frontends:
a WebSocket dialer, reconnect-with-backoff over a primary/fallback URL pair,
an outbound queue for messages sent while disconnected, and an HTTP polling
fallback for when no socket transport is available.

This file contains the client side of the WebSocket protocol: dialing,
the opening handshake, and masked text frames.
*/
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"estatechat/internal/app/ws"
	"estatechat/internal/pkg/randx"
)

// Socket is the minimal connection surface the Transport drives. Production
// code uses *WSConn; tests substitute fakes.
type Socket interface {
	// SendText writes payload as a single masked text frame.
	SendText(payload []byte) error

	// ReadMessage blocks until the next text payload arrives.
	ReadMessage() ([]byte, error)

	// Close closes the underlying connection.
	Close() error
}

// Dial errors.
var (
	ErrBadScheme      = errors.New("url scheme must be ws")
	ErrUpgradeRefused = errors.New("server refused websocket upgrade")
)

// WSConn is a client-side WebSocket connection.
type WSConn struct {
	netConn net.Conn
	reader  *bufio.Reader

	// mu serializes frame writes.
	mu sync.Mutex
}

// Dial connects to rawURL (ws://host:port/path), performs the opening
// handshake, and returns the established connection.
func Dial(ctx context.Context, rawURL string) (*WSConn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket url %q: %w", rawURL, err)
	}
	if u.Scheme != "ws" {
		return nil, fmt.Errorf("%w, got %q", ErrBadScheme, u.Scheme)
	}

	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "80")
	}

	var d net.Dialer
	netConn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", host, err)
	}

	conn := &WSConn{
		netConn: netConn,
		reader:  bufio.NewReader(netConn),
	}

	if err := conn.handshake(u); err != nil {
		netConn.Close()
		return nil, err
	}

	return conn, nil
}

// handshake sends the upgrade request and validates the 101 response,
// including the accept-key check.
func (c *WSConn) handshake(u *url.URL) error {
	secKey, err := randx.SecWebSocketKey()
	if err != nil {
		return err
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	if err := c.netConn.SetDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return fmt.Errorf("failed to set handshake deadline: %w", err)
	}

	if _, err := c.netConn.Write(ws.BuildUpgradeRequest(path, u.Host, secKey)); err != nil {
		return fmt.Errorf("failed to write upgrade request: %w", err)
	}

	statusLine, err := c.reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read handshake response: %w", err)
	}
	if !strings.Contains(statusLine, "101") {
		return fmt.Errorf("%w: %s", ErrUpgradeRefused, strings.TrimSpace(statusLine))
	}

	var accept string
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read handshake headers: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}

		if name, value, ok := strings.Cut(line, ":"); ok {
			if strings.EqualFold(strings.TrimSpace(name), "Sec-WebSocket-Accept") {
				accept = strings.TrimSpace(value)
			}
		}
	}

	if !ws.VerifyAcceptKey(secKey, accept) {
		return fmt.Errorf("%w: accept key mismatch", ErrUpgradeRefused)
	}

	return c.netConn.SetDeadline(time.Time{})
}

// SendText writes payload as a single masked text frame, as the protocol
// requires for every client-to-server frame.
func (c *WSConn) SendText(payload []byte) error {
	key, err := randx.MaskKey()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.netConn.Write(ws.EncodeMaskedText(payload, key)); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}

// ReadMessage blocks until the next text payload arrives. Server close frames
// surface as an error; control frames from the server are skipped.
func (c *WSConn) ReadMessage() ([]byte, error) {
	for {
		frame, err := ws.ReadFrame(c.reader)
		if err != nil {
			return nil, err
		}

		switch frame.Opcode {
		case ws.OpcodeClose:
			return nil, errors.New("server closed the connection")
		case ws.OpcodePing, ws.OpcodePong:
			continue
		default:
			return frame.Payload, nil
		}
	}
}

// Close closes the underlying connection.
func (c *WSConn) Close() error {
	return c.netConn.Close()
}
