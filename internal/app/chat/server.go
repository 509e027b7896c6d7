/*
Package chat contains the core logic of the realtime messaging layer: connection
lifecycle, the online-user registry, message routing, and the socket server loop.

This file defines the Server struct, which accepts raw TCP connections,
performs the WebSocket handshake on their first bytes, and drives each
connection's frame loop in its own goroutine. Per-connection errors close that
connection only; nothing a single client does can take down the accept loop.
*/
package chat

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"estatechat/internal/app/ws"
	"estatechat/internal/pkg/logx"
	"estatechat/internal/pkg/randx"
)

const (
	// handshakeReadLimit bounds the first read holding the HTTP upgrade request.
	handshakeReadLimit = 8192

	// handshakeWait is how long a fresh connection may take to send its upgrade request.
	handshakeWait = 10 * time.Second

	// closeStatusProtocolError is the WebSocket close code for protocol violations.
	closeStatusProtocolError = 1002
)

// Server is the socket server loop: one accept loop, one goroutine per
// accepted connection. The goroutine-per-connection model replaces the
// single-threaded multiplexed wait; the Registry carries the lock that makes
// concurrent adds and removes safe.
type Server struct {
	addr     string
	maxConns int

	registry *Registry
	router   *Router

	mu       sync.Mutex
	listener net.Listener
	closed   bool

	// wg tracks connection goroutines for shutdown.
	wg sync.WaitGroup

	// structured logger with Server context.
	logger zerolog.Logger
}

// NewServer constructs a Server listening on addr with a hard cap on
// simultaneous connections.
func NewServer(addr string, maxConns int, registry *Registry, router *Router) *Server {
	return &Server{
		addr:     addr,
		maxConns: maxConns,
		registry: registry,
		router:   router,
		logger:   logx.Component("Server"),
	}
}

// Listen binds the listening socket. It is split from Run so callers can
// learn the bound address before the accept loop starts (tests bind port 0).
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info().Str("addr", listener.Addr().String()).Int("max_connections", s.maxConns).Msg("WebSocket server listening.")
	return nil
}

// Addr returns the bound listen address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run blocks accepting connections until Shutdown closes the listener. Under
// normal operation it never returns.
func (s *Server) Run() error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	if listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		s.mu.Lock()
		listener = s.listener
		s.mu.Unlock()
	}

	for {
		netConn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()

			if closed || errors.Is(err, net.ErrClosed) {
				return nil
			}

			// Transient accept failure affects no existing connection.
			s.logger.Warn().Err(err).Msg("Accept failed.")
			continue
		}

		if s.registry.Len() >= s.maxConns {
			s.logger.Warn().
				Int("max_connections", s.maxConns).
				Str("remote_addr", netConn.RemoteAddr().String()).
				Msg("Connection cap reached. Refusing new connection.")
			netConn.Close()
			continue
		}

		conn := NewConn(randx.ConnID(), netConn, s.logger)
		s.registry.Add(conn)

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// serveConn drives one connection: handshake, then the frame loop. Any exit
// path removes the connection from the registry and closes the socket.
func (s *Server) serveConn(conn *Conn) {
	defer s.wg.Done()
	defer func() {
		s.registry.Remove(conn)
		conn.Close()
	}()

	if !s.performHandshake(conn) {
		return
	}

	conn.SendJSON(NewSystemPayload("connected to estatechat messaging"))

	s.frameLoop(conn)
}

// performHandshake reads the first chunk off the socket, treats it as the
// complete HTTP upgrade request, and writes the negotiated response. Returns
// false when the connection must be closed.
func (s *Server) performHandshake(conn *Conn) bool {
	if err := conn.netConn.SetReadDeadline(time.Now().Add(handshakeWait)); err != nil {
		s.logger.Warn().Str("conn_id", conn.ID()).Err(err).Msg("Failed to set handshake deadline.")
		return false
	}

	buf := make([]byte, handshakeReadLimit)
	n, err := conn.netConn.Read(buf)
	if err != nil || n == 0 {
		s.logger.Debug().Str("conn_id", conn.ID()).Err(err).Msg("Connection closed before handshake.")
		return false
	}

	response, err := ws.Negotiate(buf[:n])
	if err != nil {
		s.logger.Warn().Str("conn_id", conn.ID()).Err(err).Msg("Handshake rejected.")
		conn.WriteRaw(response)
		return false
	}

	if err := conn.WriteRaw(response); err != nil {
		s.logger.Warn().Str("conn_id", conn.ID()).Err(err).Msg("Failed to write handshake response.")
		return false
	}

	conn.markHandshaked()
	s.logger.Info().Str("conn_id", conn.ID()).Msg("Handshake complete.")
	return true
}

// frameLoop reads frames until the connection fails, the client closes, or a
// protocol violation occurs. All three outcomes are fatal for this connection
// only.
func (s *Server) frameLoop(conn *Conn) {
	// Clear the handshake deadline; idle connections stay open.
	if err := conn.netConn.SetReadDeadline(time.Time{}); err != nil {
		s.logger.Warn().Str("conn_id", conn.ID()).Err(err).Msg("Failed to clear read deadline.")
		return
	}

	reader := bufio.NewReader(conn.netConn)
	ctx := context.Background()

	for {
		frame, err := ws.ReadFrame(reader)
		if err != nil {
			s.handleReadError(conn, err)
			return
		}

		conn.Touch()

		switch {
		case frame.Opcode == ws.OpcodeClose:
			s.logger.Info().Str("conn_id", conn.ID()).Msg("Client sent close frame.")
			conn.WriteRaw(ws.EncodeClose(1000))
			return

		case frame.Opcode == ws.OpcodePing:
			conn.WriteRaw(ws.EncodePong(frame.Payload))

		case frame.Opcode == ws.OpcodePong:
			// Unsolicited pong, ignore.

		case !frame.Fin || frame.Opcode == ws.OpcodeContinuation:
			// Single-frame messages only; fragmentation is a protocol error.
			s.logger.Warn().Str("conn_id", conn.ID()).Msg("Fragmented message rejected.")
			conn.WriteRaw(ws.EncodeClose(closeStatusProtocolError))
			return

		case frame.Opcode == ws.OpcodeText || frame.Opcode == ws.OpcodeBinary:
			s.router.HandleIncoming(ctx, conn, frame.Payload)

		default:
			s.logger.Warn().Str("conn_id", conn.ID()).Uint8("opcode", uint8(frame.Opcode)).Msg("Unknown opcode rejected.")
			conn.WriteRaw(ws.EncodeClose(closeStatusProtocolError))
			return
		}
	}
}

// handleReadError classifies a failed read: clean disconnects log at debug,
// protocol violations answer with a close frame first.
func (s *Server) handleReadError(conn *Conn, err error) {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		s.logger.Debug().Str("conn_id", conn.ID()).Msg("Connection closed by peer.")

	case errors.Is(err, ws.ErrMalformedFrame), errors.Is(err, ws.ErrFrameTooLarge), errors.Is(err, ws.ErrUnsupportedFrame):
		s.logger.Warn().Str("conn_id", conn.ID()).Err(err).Msg("Protocol error. Closing connection.")
		conn.WriteRaw(ws.EncodeClose(closeStatusProtocolError))

	default:
		s.logger.Info().Str("conn_id", conn.ID()).Err(err).Msg("Read failed. Closing connection.")
	}
}

// Shutdown stops accepting, closes every live connection, and waits for the
// connection goroutines to finish or the context to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener.Close()
	}

	for _, conn := range s.registry.Snapshot() {
		conn.Close()
		s.registry.Remove(conn)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All connections drained.")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
