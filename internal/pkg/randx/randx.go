/*
Package randx provides functions for generating cryptographically secure random values and unique identifiers.

It is primarily used to generate WebSocket connection identifiers, client handshake
keys, and the per-frame masking keys required for client-to-server frames.
*/
package randx

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// ConnID generates a standard UUID v4 string to serve as a unique identifier
// for an accepted WebSocket connection. Connection ids are opaque handles and
// carry no user identity.
func ConnID() string {
	return uuid.New().String()
}

// SecWebSocketKey generates a Sec-WebSocket-Key header value: 16 random bytes,
// base64-encoded, as required for the client side of the opening handshake.
func SecWebSocketKey() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate websocket key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

// MaskKey generates the 4-byte masking key applied to client-to-server frame
// payloads.
func MaskKey() ([4]byte, error) {
	var key [4]byte
	if _, err := rand.Read(key[:]); err != nil {
		return key, fmt.Errorf("failed to generate mask key: %w", err)
	}

	return key, nil
}
