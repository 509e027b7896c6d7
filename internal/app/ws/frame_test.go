package ws

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// clientMask mimics what a real browser does to an outbound frame: sets the
// mask bit and XORs the payload with a key. Used to feed server-style frames
// through the decoder the way clients produce them.
func clientMask(t *testing.T, serverFrame []byte, key [4]byte) []byte {
	t.Helper()

	payloadLen := int(serverFrame[1] & 0x7F)
	headerSize := 2
	switch payloadLen {
	case 126:
		headerSize += 2
	case 127:
		headerSize += 8
	}

	masked := make([]byte, 0, len(serverFrame)+4)
	masked = append(masked, serverFrame[:headerSize]...)
	masked[1] |= 0x80
	masked = append(masked, key[:]...)

	payload := append([]byte(nil), serverFrame[headerSize:]...)
	maskBytes(payload, key)
	return append(masked, payload...)
}

// TestFrameRoundTrip verifies that decode(maskedClientFrameOf(encode(s)))
// returns s exactly across the interesting size range.
func TestFrameRoundTrip(t *testing.T) {
	key := [4]byte{0x37, 0xFA, 0x21, 0x3D}

	tests := []struct {
		name    string
		payload string
	}{
		{"Empty", ""},
		{"Short text", "Hello, World!"},
		{"UTF-8", "привет мир 你好 🏠"},
		{"One byte", "x"},
		{"Boundary 125", strings.Repeat("a", 125)},
		{"Boundary 126", strings.Repeat("b", 126)},
		{"Boundary 65535", strings.Repeat("c", 65535)},
		{"Boundary 65536", strings.Repeat("d", 65536)},
		{"Large 200000", strings.Repeat("e", 200000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeText([]byte(tt.payload))
			masked := clientMask(t, encoded, key)

			frame, err := ReadFrame(bytes.NewReader(masked))
			if err != nil {
				t.Fatalf("ReadFrame() error = %v", err)
			}

			if frame.Opcode != OpcodeText {
				t.Errorf("Opcode = %v, want text", frame.Opcode)
			}
			if !frame.Fin {
				t.Error("Fin = false, want true")
			}
			if !frame.Masked {
				t.Error("Masked = false, want true")
			}
			if string(frame.Payload) != tt.payload {
				t.Errorf("payload mismatch: got %d bytes, want %d bytes", len(frame.Payload), len(tt.payload))
			}
		})
	}
}

// TestEncodeLengthBranches verifies the header bytes for each payload-length
// encoding branch.
func TestEncodeLengthBranches(t *testing.T) {
	tests := []struct {
		name       string
		payloadLen int
		wantMarker byte
		wantHeader int
	}{
		{"Zero", 0, 0, 2},
		{"One", 1, 1, 2},
		{"Max direct", 125, 125, 2},
		{"Min extended16", 126, 126, 4},
		{"Just above extended16 floor", 127, 126, 4},
		{"Max extended16", 65535, 126, 4},
		{"Min extended64", 65536, 127, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := EncodeText(make([]byte, tt.payloadLen))

			if got := frame[0]; got != 0x81 {
				t.Errorf("first header byte = %#x, want 0x81 (FIN+text)", got)
			}

			if got := frame[1] & 0x7F; got != tt.wantMarker {
				t.Errorf("length marker = %d, want %d", got, tt.wantMarker)
			}
			if got := frame[1] & 0x80; got != 0 {
				t.Error("mask bit set on server frame")
			}

			if len(frame) != tt.wantHeader+tt.payloadLen {
				t.Errorf("frame size = %d, want %d", len(frame), tt.wantHeader+tt.payloadLen)
			}

			switch tt.wantMarker {
			case 126:
				got := int(frame[2])<<8 | int(frame[3])
				if got != tt.payloadLen {
					t.Errorf("extended16 length = %d, want %d", got, tt.payloadLen)
				}
			case 127:
				var got int
				for _, b := range frame[2:10] {
					got = got<<8 | int(b)
				}
				if got != tt.payloadLen {
					t.Errorf("extended64 length = %d, want %d", got, tt.payloadLen)
				}
			}
		})
	}
}

// TestReadFrameMalformed verifies that truncated frames are protocol errors,
// not panics.
func TestReadFrameMalformed(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		wantErr error
	}{
		{"Truncated header", []byte{0x81}, ErrMalformedFrame},
		{"Missing extended length", []byte{0x81, 126, 0x01}, ErrMalformedFrame},
		{"Missing mask key", []byte{0x81, 0x85, 0x01, 0x02}, ErrMalformedFrame},
		{"Truncated payload", []byte{0x81, 0x85, 0x01, 0x02, 0x03, 0x04, 'h', 'i'}, ErrMalformedFrame},
		{"Oversized declaration", append([]byte{0x81, 127}, []byte{0x7F, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}...), ErrFrameTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(tt.raw))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadFrame() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestReadFrameEOF verifies that a cleanly closed stream yields io.EOF before
// any header byte arrives.
func TestReadFrameEOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Errorf("ReadFrame() on empty stream error = %v, want io.EOF", err)
	}
}

// TestMaskedEncodeRoundTrip verifies the client-side encoder against the decoder.
func TestMaskedEncodeRoundTrip(t *testing.T) {
	key := [4]byte{0xDE, 0xAD, 0xBE, 0xEF}
	payload := []byte(`{"receiver_id":2,"message":"Hi"}`)

	frame, err := ReadFrame(bytes.NewReader(EncodeMaskedText(payload, key)))
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}

	if !frame.Masked {
		t.Error("Masked = false, want true")
	}
	if frame.Mask != key {
		t.Errorf("Mask = %v, want %v", frame.Mask, key)
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Errorf("payload = %q, want %q", frame.Payload, payload)
	}
}

// TestControlFrames verifies close and pong encoding.
func TestControlFrames(t *testing.T) {
	closeFrame, err := ReadFrame(bytes.NewReader(EncodeClose(1000)))
	if err != nil {
		t.Fatalf("ReadFrame(close) error = %v", err)
	}
	if closeFrame.Opcode != OpcodeClose {
		t.Errorf("Opcode = %v, want close", closeFrame.Opcode)
	}
	if len(closeFrame.Payload) != 2 || closeFrame.Payload[0] != 0x03 || closeFrame.Payload[1] != 0xE8 {
		t.Errorf("close payload = %v, want [3 232]", closeFrame.Payload)
	}

	pongFrame, err := ReadFrame(bytes.NewReader(EncodePong([]byte("ping"))))
	if err != nil {
		t.Fatalf("ReadFrame(pong) error = %v", err)
	}
	if pongFrame.Opcode != OpcodePong {
		t.Errorf("Opcode = %v, want pong", pongFrame.Opcode)
	}
	if string(pongFrame.Payload) != "ping" {
		t.Errorf("pong payload = %q, want %q", pongFrame.Payload, "ping")
	}
}
