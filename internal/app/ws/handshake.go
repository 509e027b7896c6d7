package ws

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// webSocketGUID is the fixed GUID defined by RFC 6455 Section 1.3 for
// computing the Sec-WebSocket-Accept token.
const webSocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// Handshake errors.
var (
	// ErrNotUpgradeRequest is returned when the buffered bytes do not form a
	// parseable HTTP upgrade request.
	ErrNotUpgradeRequest = errors.New("not a websocket upgrade request")

	// ErrMissingSecKey is returned when the Sec-WebSocket-Key header is missing or invalid.
	ErrMissingSecKey = errors.New("missing or invalid Sec-WebSocket-Key header")
)

// badHandshakeResponse is written to the client before closing when the
// upgrade request is rejected.
var badHandshakeResponse = []byte("HTTP/1.1 400 Bad Request\r\nConnection: close\r\n\r\n")

// AcceptKey computes the Sec-WebSocket-Accept token for a client key:
// base64(SHA-1(key + GUID)).
func AcceptKey(secKey string) string {
	hash := sha1.Sum([]byte(secKey + webSocketGUID))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// Negotiate validates a buffered HTTP upgrade request and produces the
// response bytes to write back. On success it returns the 101 Switching
// Protocols response and a nil error. On failure it returns a 400 response
// along with the error; the caller writes the response and closes the
// connection without upgrading.
//
// The raw buffer is expected to contain the complete request head. The server
// reads client sockets in whole chunks, so in practice the first readable
// chunk carries the full request; pipelined or oversized header blocks are not
// supported.
func Negotiate(raw []byte) ([]byte, error) {
	req, err := ParseUpgradeRequest(raw)
	if err != nil {
		return badHandshakeResponse, err
	}

	secKey := strings.TrimSpace(req.Header.Get("Sec-WebSocket-Key"))
	if secKey == "" {
		return badHandshakeResponse, ErrMissingSecKey
	}

	// A valid key is 16 random bytes base64-encoded, which is always 24
	// characters on the wire.
	if decoded, err := base64.StdEncoding.DecodeString(secKey); err != nil || len(decoded) != 16 {
		return badHandshakeResponse, ErrMissingSecKey
	}

	var sb strings.Builder
	sb.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	sb.WriteString("Upgrade: websocket\r\n")
	sb.WriteString("Connection: Upgrade\r\n")
	sb.WriteString(fmt.Sprintf("Sec-WebSocket-Accept: %s\r\n", AcceptKey(secKey)))
	sb.WriteString("\r\n")

	return []byte(sb.String()), nil
}

// ParseUpgradeRequest parses a buffered HTTP request head into an http.Request
// carrying the method, URL, and headers. Only the fields the handshake needs
// are populated.
func ParseUpgradeRequest(data []byte) (*http.Request, error) {
	idx := bytes.Index(data, []byte("\r\n\r\n"))
	if idx < 0 {
		return nil, fmt.Errorf("%w: missing end of headers", ErrNotUpgradeRequest)
	}

	lines := bytes.Split(data[:idx], []byte("\r\n"))
	if len(lines) < 1 {
		return nil, ErrNotUpgradeRequest
	}

	requestLine := strings.SplitN(string(lines[0]), " ", 3)
	if len(requestLine) < 2 {
		return nil, fmt.Errorf("%w: bad request line", ErrNotUpgradeRequest)
	}

	headers := make(http.Header)
	for _, line := range lines[1:] {
		s := string(line)
		sep := strings.Index(s, ":")
		if sep > 0 {
			headers.Set(strings.TrimSpace(s[:sep]), strings.TrimSpace(s[sep+1:]))
		}
	}

	u, err := url.Parse(requestLine[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad request target: %v", ErrNotUpgradeRequest, err)
	}

	return &http.Request{
		Method: requestLine[0],
		URL:    u,
		Header: headers,
	}, nil
}

// BuildUpgradeRequest produces the client side of the opening handshake for
// the given request path, host, and Sec-WebSocket-Key.
func BuildUpgradeRequest(path, host, secKey string) []byte {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("GET %s HTTP/1.1\r\n", path))
	sb.WriteString(fmt.Sprintf("Host: %s\r\n", host))
	sb.WriteString("Upgrade: websocket\r\n")
	sb.WriteString("Connection: Upgrade\r\n")
	sb.WriteString(fmt.Sprintf("Sec-WebSocket-Key: %s\r\n", secKey))
	sb.WriteString("Sec-WebSocket-Version: 13\r\n")
	sb.WriteString("\r\n")

	return []byte(sb.String())
}

// VerifyAcceptKey reports whether the server's accept token matches the key
// the client sent, completing the client side of the handshake.
func VerifyAcceptKey(secKey, accept string) bool {
	return AcceptKey(secKey) == accept
}
