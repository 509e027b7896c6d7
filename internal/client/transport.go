/*
Package client implements the transport manager used by messaging frontends.

This file defines the Transport struct and its state machine:
Disconnected -> Connecting -> Connected, with Exhausted as the terminal
give-up state after the reconnect budget is spent. Messages sent while
disconnected queue in FIFO order and flush on the next successful connection.
*/
package client

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"estatechat/internal/pkg/logx"
)

// State is the lifecycle state of the transport.
type State int

const (
	// StateDisconnected means no socket and no connect attempt in flight.
	StateDisconnected State = iota

	// StateConnecting means a connect attempt is in flight.
	StateConnecting

	// StateConnected means a live socket is established.
	StateConnected

	// StateExhausted means the reconnect budget is spent; only a manual
	// restart (page reload) or the polling fallback remains.
	StateExhausted
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Config holds the transport's endpoints and retry policy.
type Config struct {
	// PrimaryURL is attempted first on every connect.
	PrimaryURL string

	// FallbackURL is attempted when the primary fails. Optional.
	FallbackURL string

	// MaxReconnectAttempts bounds consecutive failed reconnects before the
	// transport gives up. Defaults to 5.
	MaxReconnectAttempts int

	// BaseRetryDelay scales linearly with the attempt number
	// (delay = BaseRetryDelay * attempt). Defaults to 2 seconds.
	BaseRetryDelay time.Duration
}

// DialFunc establishes a socket to the given URL. Injected so tests can
// substitute fakes for the real dialer.
type DialFunc func(ctx context.Context, url string) (Socket, error)

// Transport manages one logical connection to the messaging server, hiding
// reconnects and the outbound queue from the caller.
type Transport struct {
	cfg  Config
	dial DialFunc

	// onMessage receives every payload read from the socket.
	onMessage func(payload []byte)

	// mu guards all mutable state below.
	mu       sync.Mutex
	state    State
	sock     Socket
	queue    [][]byte
	attempts int
	closed   bool

	// sleep is swapped out in tests to avoid real delays.
	sleep func(d time.Duration)

	// structured logger with Transport context.
	logger zerolog.Logger
}

// NewTransport constructs a Transport with the default WebSocket dialer.
func NewTransport(cfg Config, onMessage func(payload []byte)) *Transport {
	return newTransport(cfg, onMessage, func(ctx context.Context, url string) (Socket, error) {
		return Dial(ctx, url)
	})
}

func newTransport(cfg Config, onMessage func(payload []byte), dial DialFunc) *Transport {
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 5
	}
	if cfg.BaseRetryDelay <= 0 {
		cfg.BaseRetryDelay = 2 * time.Second
	}

	return &Transport{
		cfg:       cfg,
		dial:      dial,
		onMessage: onMessage,
		state:     StateDisconnected,
		sleep:     time.Sleep,
		logger:    logx.Component("Transport"),
	}
}

// State returns the current transport state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connect starts a connect attempt if none is in flight. It returns
// immediately; connection progress is reflected in State.
func (t *Transport) Connect(ctx context.Context) {
	t.mu.Lock()
	if t.closed || t.state == StateConnecting || t.state == StateConnected || t.state == StateExhausted {
		t.mu.Unlock()
		return
	}
	t.state = StateConnecting
	t.mu.Unlock()

	go t.connectLoop(ctx)
}

// connectLoop retries until a socket is established or the attempt budget is
// spent. Delays grow linearly with the attempt number. Only one connectLoop
// runs at a time, guarded by the Connecting state.
func (t *Transport) connectLoop(ctx context.Context) {
	for {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return
		}
		t.attempts++
		attempt := t.attempts
		max := t.cfg.MaxReconnectAttempts
		t.mu.Unlock()

		if attempt > max {
			t.mu.Lock()
			t.state = StateExhausted
			t.mu.Unlock()

			t.logger.Warn().Int("attempts", max).Msg("Reconnect budget exhausted. Falling back to polling; manual reload required for realtime.")
			return
		}

		sock, err := t.dialWithFallback(ctx)
		if err == nil {
			t.handleOpen(ctx, sock)
			return
		}

		delay := t.cfg.BaseRetryDelay * time.Duration(attempt)
		t.logger.Info().
			Int("attempt", attempt).
			Int("max_attempts", max).
			Dur("retry_in", delay).
			Err(err).
			Msg("Connect failed. Retrying.")

		t.sleep(delay)
	}
}

// dialWithFallback tries the primary URL, then the fallback URL.
func (t *Transport) dialWithFallback(ctx context.Context) (Socket, error) {
	sock, err := t.dial(ctx, t.cfg.PrimaryURL)
	if err == nil {
		return sock, nil
	}

	if t.cfg.FallbackURL == "" {
		return nil, err
	}

	t.logger.Debug().Err(err).Str("fallback_url", t.cfg.FallbackURL).Msg("Primary endpoint failed. Trying fallback.")
	return t.dial(ctx, t.cfg.FallbackURL)
}

// handleOpen installs the new socket, resets the attempt counter, flushes the
// outbound queue in FIFO order, and starts the read loop. It is only ever
// called from the single in-flight connectLoop, so queue drains cannot race.
func (t *Transport) handleOpen(ctx context.Context, sock Socket) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		sock.Close()
		return
	}
	t.sock = sock
	t.state = StateConnected
	t.attempts = 0
	pending := t.queue
	t.queue = nil
	t.mu.Unlock()

	t.logger.Info().Int("queued", len(pending)).Msg("Connected. Flushing outbound queue.")

	for i, payload := range pending {
		if err := sock.SendText(payload); err != nil {
			t.logger.Warn().Err(err).Msg("Flush failed mid-queue. Re-queueing remainder.")
			t.requeueAndReconnect(ctx, pending[i:])
			return
		}
	}

	go t.readLoop(ctx, sock)
}

// requeueAndReconnect puts the unsent tail of a failed flush back at the head
// of the queue, preserving FIFO order, and starts a reconnect.
func (t *Transport) requeueAndReconnect(ctx context.Context, unsent [][]byte) {
	t.mu.Lock()
	t.queue = append(append([][]byte{}, unsent...), t.queue...)
	t.sock = nil
	t.state = StateDisconnected
	t.mu.Unlock()

	t.Connect(ctx)
}

// readLoop pumps inbound payloads to the onMessage callback until the socket
// fails, then triggers a reconnect.
func (t *Transport) readLoop(ctx context.Context, sock Socket) {
	for {
		payload, err := sock.ReadMessage()
		if err != nil {
			t.handleClose(ctx, sock, err)
			return
		}

		if t.onMessage != nil {
			t.onMessage(payload)
		}
	}
}

// handleClose reacts to an unexpected close: drop the socket, return to
// Disconnected, and start the reconnect ladder.
func (t *Transport) handleClose(ctx context.Context, sock Socket, cause error) {
	sock.Close()

	t.mu.Lock()
	if t.closed || t.sock != sock {
		t.mu.Unlock()
		return
	}
	t.sock = nil
	t.state = StateDisconnected
	t.mu.Unlock()

	t.logger.Info().Err(cause).Msg("Connection lost. Reconnecting.")
	t.Connect(ctx)
}

// Send transmits payload immediately when connected; otherwise it enqueues the
// payload in FIFO order and triggers a connect attempt if none is in flight.
func (t *Transport) Send(ctx context.Context, payload []byte) {
	t.mu.Lock()
	if t.state == StateConnected && t.sock != nil {
		sock := t.sock
		t.mu.Unlock()

		if err := sock.SendText(payload); err != nil {
			t.logger.Warn().Err(err).Msg("Send failed. Queueing payload.")
			t.mu.Lock()
			t.queue = append(t.queue, payload)
			t.mu.Unlock()
			t.handleClose(ctx, sock, err)
		}
		return
	}

	t.queue = append(t.queue, payload)
	queued := len(t.queue)
	t.mu.Unlock()

	t.logger.Debug().Int("queued", queued).Msg("Not connected. Payload queued.")
	t.Connect(ctx)
}

// QueuedCount returns the number of payloads waiting for a connection.
func (t *Transport) QueuedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Close shuts the transport down permanently.
func (t *Transport) Close() {
	t.mu.Lock()
	t.closed = true
	sock := t.sock
	t.sock = nil
	t.state = StateDisconnected
	t.mu.Unlock()

	if sock != nil {
		sock.Close()
	}
}
