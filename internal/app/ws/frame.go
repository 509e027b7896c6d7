/*
Package ws implements the subset of the RFC 6455 WebSocket wire protocol used by
the messaging server: the opening handshake and single-frame text messages.

Application messages are always sent as a single final text frame. Fragmented
messages, extensions, and compression are not supported; continuation frames are
rejected as protocol errors. Malformed input is fatal for the connection that
produced it, never for the process.
*/
package ws

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Opcode represents WebSocket frame opcodes per RFC 6455 Section 5.2.
type Opcode uint8

const (
	// OpcodeContinuation indicates a continuation frame.
	OpcodeContinuation Opcode = 0x0
	// OpcodeText indicates a text frame.
	OpcodeText Opcode = 0x1
	// OpcodeBinary indicates a binary frame.
	OpcodeBinary Opcode = 0x2
	// OpcodeClose indicates a close frame.
	OpcodeClose Opcode = 0x8
	// OpcodePing indicates a ping frame.
	OpcodePing Opcode = 0x9
	// OpcodePong indicates a pong frame.
	OpcodePong Opcode = 0xA
)

// IsControl checks if the opcode is a control frame opcode.
func (o Opcode) IsControl() bool {
	switch o {
	case OpcodeClose, OpcodePing, OpcodePong:
		return true
	default:
		return false
	}
}

// Protocol errors. All of them are fatal per connection.
var (
	// ErrMalformedFrame is returned when a frame header or payload is truncated
	// or otherwise unparseable.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrFrameTooLarge is returned when a frame declares a payload above MaxFramePayloadSize.
	ErrFrameTooLarge = errors.New("frame payload too large")

	// ErrUnsupportedFrame is returned for fragmented messages and unknown opcodes.
	ErrUnsupportedFrame = errors.New("unsupported frame")
)

// MaxFramePayloadSize is the maximum accepted payload size for a single frame.
// Chat message bodies are small; anything near this limit is abuse, not chat.
const MaxFramePayloadSize = 16 * 1024 * 1024

// Frame represents a decoded WebSocket frame.
type Frame struct {
	// Fin indicates whether this is the final fragment of a message.
	Fin bool

	// Opcode identifies the type of frame.
	Opcode Opcode

	// Masked indicates whether the payload arrived masked. Client-to-server
	// frames are always masked per the protocol; server frames are not.
	Masked bool

	// Mask is the 4-byte masking key (valid only when Masked is true).
	Mask [4]byte

	// Payload contains the unmasked payload data.
	Payload []byte
}

// ReadFrame reads and parses one WebSocket frame from r. Masked payloads are
// unmasked before returning. Truncated input yields ErrMalformedFrame (or the
// underlying io error for a clean EOF before the first header byte).
func ReadFrame(r io.Reader) (*Frame, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("%w: short header: %v", ErrMalformedFrame, err)
	}

	frame := &Frame{
		Fin:    header[0]&0x80 != 0,
		Opcode: Opcode(header[0] & 0x0F),
		Masked: header[1]&0x80 != 0,
	}

	// Second header byte's lower 7 bits select the length encoding branch:
	// <=125 literal, 126 means 2 extended bytes, 127 means 8 extended bytes.
	payloadLen := uint64(header[1] & 0x7F)
	switch payloadLen {
	case 126:
		var ext [2]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return nil, fmt.Errorf("%w: short extended length: %v", ErrMalformedFrame, err)
		}
		payloadLen = uint64(binary.BigEndian.Uint16(ext[:]))
	case 127:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return nil, fmt.Errorf("%w: short extended length: %v", ErrMalformedFrame, err)
		}
		payloadLen = binary.BigEndian.Uint64(ext[:])
	}

	if payloadLen > MaxFramePayloadSize {
		return nil, fmt.Errorf("%w: declared %d bytes", ErrFrameTooLarge, payloadLen)
	}

	if frame.Masked {
		if _, err := io.ReadFull(r, frame.Mask[:]); err != nil {
			return nil, fmt.Errorf("%w: short mask key: %v", ErrMalformedFrame, err)
		}
	}

	if payloadLen > 0 {
		frame.Payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, frame.Payload); err != nil {
			return nil, fmt.Errorf("%w: short payload: %v", ErrMalformedFrame, err)
		}

		if frame.Masked {
			maskBytes(frame.Payload, frame.Mask)
		}
	}

	return frame, nil
}

// EncodeText encodes payload as a single final, unmasked text frame, the form
// every server-to-client message takes.
func EncodeText(payload []byte) []byte {
	return encodeFrame(OpcodeText, payload, false, [4]byte{})
}

// EncodeMaskedText encodes payload as a single final text frame masked with
// key, the form every client-to-server message takes.
func EncodeMaskedText(payload []byte, key [4]byte) []byte {
	return encodeFrame(OpcodeText, payload, true, key)
}

// EncodeClose encodes an unmasked close frame with the given status code.
func EncodeClose(code uint16) []byte {
	var payload [2]byte
	binary.BigEndian.PutUint16(payload[:], code)
	return encodeFrame(OpcodeClose, payload[:], false, [4]byte{})
}

// EncodePong encodes an unmasked pong frame echoing the ping payload.
func EncodePong(payload []byte) []byte {
	return encodeFrame(OpcodePong, payload, false, [4]byte{})
}

func encodeFrame(opcode Opcode, payload []byte, masked bool, key [4]byte) []byte {
	payloadLen := len(payload)

	headerSize := 2
	switch {
	case payloadLen > 65535:
		headerSize += 8
	case payloadLen > 125:
		headerSize += 2
	}
	if masked {
		headerSize += 4
	}

	buf := make([]byte, headerSize+payloadLen)
	buf[0] = 0x80 | byte(opcode) // FIN=1, single-frame messages only
	pos := 1

	var maskBit byte
	if masked {
		maskBit = 0x80
	}

	switch {
	case payloadLen <= 125:
		buf[pos] = maskBit | byte(payloadLen)
		pos++
	case payloadLen <= 65535:
		buf[pos] = maskBit | 126
		pos++
		binary.BigEndian.PutUint16(buf[pos:pos+2], uint16(payloadLen))
		pos += 2
	default:
		buf[pos] = maskBit | 127
		pos++
		binary.BigEndian.PutUint64(buf[pos:pos+8], uint64(payloadLen))
		pos += 8
	}

	if masked {
		copy(buf[pos:pos+4], key[:])
		pos += 4
	}

	copy(buf[pos:], payload)
	if masked {
		maskBytes(buf[pos:], key)
	}

	return buf
}

// maskBytes XORs data in place with key, per RFC 6455 Section 5.3. The same
// operation masks and unmasks.
func maskBytes(data []byte, key [4]byte) {
	for i := range data {
		data[i] ^= key[i%4]
	}
}
