package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"estatechat/internal/client"
)

// startTestServer runs a Server on an ephemeral port and returns its ws URL.
func startTestServer(t *testing.T, fs *fakeStore, maxConns int) (*Server, string) {
	t.Helper()

	registry := NewRegistry()
	router := NewRouter(fs, registry, testJWTSecret)
	srv := NewServer("127.0.0.1:0", maxConns, registry, router)

	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	go srv.Run()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	return srv, fmt.Sprintf("ws://%s/ws", srv.Addr().String())
}

// readJSON reads the next text payload off the socket and decodes it.
func readJSON(t *testing.T, sock *client.WSConn) map[string]any {
	t.Helper()

	type result struct {
		payload []byte
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		payload, err := sock.ReadMessage()
		ch <- result{payload, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			t.Fatalf("ReadMessage() error = %v", res.err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(res.payload, &decoded); err != nil {
			t.Fatalf("payload is not JSON: %v (%q)", err, res.payload)
		}
		return decoded
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for server payload")
	}
	return nil
}

// dialAndAuth connects, consumes the welcome, authenticates as userID, and
// consumes the auth acknowledgement.
func dialAndAuth(t *testing.T, url string, userID int64) *client.WSConn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	sock, err := client.Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { sock.Close() })

	welcome := readJSON(t, sock)
	if welcome["type"] != TypeSystem {
		t.Fatalf("first payload = %v, want a system welcome", welcome)
	}

	if err := sock.SendText(authFrame(t, userID)); err != nil {
		t.Fatalf("SendText(auth) error = %v", err)
	}

	ack := readJSON(t, sock)
	if ack["message"] != "authenticated" {
		t.Fatalf("auth ack = %v", ack)
	}

	return sock
}

func TestServerTwoUserExchange(t *testing.T) {
	fs := &fakeStore{}
	_, url := startTestServer(t, fs, 8)

	alice := dialAndAuth(t, url, 1)
	bob := dialAndAuth(t, url, 2)

	body := "Is the apartment on Main St still available?"
	if err := alice.SendText([]byte(fmt.Sprintf(`{"receiver_id":2,"message":%q}`, body))); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}

	confirmation := readJSON(t, alice)
	if confirmation["type"] != TypeSentConfirmation {
		t.Fatalf("sender got %v, want sent_confirmation", confirmation)
	}
	if confirmation["message"] != body {
		t.Errorf("confirmation message = %v", confirmation["message"])
	}
	messageID, ok := confirmation["message_id"].(float64)
	if !ok || messageID <= 0 {
		t.Fatalf("confirmation message_id = %v, want a positive id", confirmation["message_id"])
	}

	delivery := readJSON(t, bob)
	if delivery["type"] != TypeMessage {
		t.Fatalf("receiver got %v, want message", delivery)
	}
	if delivery["sender_id"] != float64(1) {
		t.Errorf("delivery sender_id = %v, want 1", delivery["sender_id"])
	}
	if delivery["message_id"] != messageID {
		t.Errorf("delivery message_id = %v, want %v", delivery["message_id"], messageID)
	}
	if delivery["message"] != body {
		t.Errorf("delivery message = %v", delivery["message"])
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.messages) != 1 {
		t.Fatalf("store has %d messages, want 1", len(fs.messages))
	}
	if fs.messages[0].IsRead {
		t.Error("freshly delivered message marked read; read status flips on poll, not on push")
	}
}

func TestServerRefusesOverCapacity(t *testing.T) {
	fs := &fakeStore{}
	_, url := startTestServer(t, fs, 1)

	// The welcome payload guarantees the first connection is registered
	// before the second dial.
	dialAndAuth(t, url, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := client.Dial(ctx, url); err == nil {
		t.Fatal("Dial() succeeded past the connection cap")
	}
}

func TestServerRejectsBadHandshake(t *testing.T) {
	fs := &fakeStore{}
	srv, _ := startTestServer(t, fs, 8)

	netConn, err := net.DialTimeout("tcp", srv.Addr().String(), 3*time.Second)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer netConn.Close()

	// An upgrade request with no Sec-WebSocket-Key.
	if _, err := netConn.Write([]byte("GET /ws HTTP/1.1\r\nHost: localhost\r\n\r\n")); err != nil {
		t.Fatalf("write error = %v", err)
	}

	netConn.SetReadDeadline(time.Now().Add(3 * time.Second))
	statusLine, err := bufio.NewReader(netConn).ReadString('\n')
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	if !strings.HasPrefix(statusLine, "HTTP/1.1 400") {
		t.Errorf("status line = %q, want a 400", statusLine)
	}
}

func TestServerShutdownClosesConnections(t *testing.T) {
	fs := &fakeStore{}
	registry := NewRegistry()
	router := NewRouter(fs, registry, testJWTSecret)
	srv := NewServer("127.0.0.1:0", 8, registry, router)

	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	go srv.Run()

	url := fmt.Sprintf("ws://%s/ws", srv.Addr().String())
	sock := dialAndAuth(t, url, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if registry.Len() != 0 {
		t.Errorf("Len = %d, want 0 after shutdown", registry.Len())
	}

	if _, err := sock.ReadMessage(); err == nil {
		t.Error("ReadMessage() succeeded on a shut-down server")
	}
}
