// Package wire defines the message shape and codec contract the agent
// kernel depends on. The concrete binary framing (checksum, header layout)
// is an external collaborator per the core's design; FrameCodec in this
// package is the reference implementation used by tests and cmd/agentd.
package wire

import (
	"fmt"

	"github.com/google/uuid"
)

// Type is the wire message type tag. Values are stable and must round-trip.
type Type byte

const (
	TypeRegister    Type = 0x01
	TypeDiscover    Type = 0x02
	TypeHeartbeat   Type = 0x03
	TypeCall        Type = 0x10
	TypeResponse    Type = 0x11
	TypeEvent       Type = 0x12
	TypeStreamOpen  Type = 0x20
	TypeStreamChunk Type = 0x21
	TypeStreamClose Type = 0x22
	TypeAck         Type = 0xF0
	TypeError       Type = 0xF1
)

// String returns a human-readable name for the type tag, used in logs.
func (t Type) String() string {
	switch t {
	case TypeRegister:
		return "Register"
	case TypeDiscover:
		return "Discover"
	case TypeHeartbeat:
		return "Heartbeat"
	case TypeCall:
		return "Call"
	case TypeResponse:
		return "Response"
	case TypeEvent:
		return "Event"
	case TypeStreamOpen:
		return "StreamOpen"
	case TypeStreamChunk:
		return "StreamChunk"
	case TypeStreamClose:
		return "StreamClose"
	case TypeAck:
		return "Ack"
	case TypeError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", byte(t))
	}
}

// Known reports whether t is one of the fixed set of type tags.
func (t Type) Known() bool {
	switch t {
	case TypeRegister, TypeDiscover, TypeHeartbeat, TypeCall, TypeResponse,
		TypeEvent, TypeStreamOpen, TypeStreamChunk, TypeStreamClose, TypeAck, TypeError:
		return true
	default:
		return false
	}
}

// MaxPayloadBytes is the hard cap on a single message payload (§3, §6).
const MaxPayloadBytes = 16 * 1024 * 1024

// TraceID is the 16-byte correlation/trace identifier carried on every frame.
type TraceID [16]byte

// NewTraceID mints a fresh random 128-bit trace id.
func NewTraceID() TraceID {
	return TraceID(uuid.New())
}

// ParseTraceID parses a 16-byte slice into a TraceID. Returns an error if
// the slice is not exactly 16 bytes.
func ParseTraceID(b []byte) (TraceID, error) {
	var id TraceID
	if len(b) != len(id) {
		return id, fmt.Errorf("wire: trace id must be %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

// String renders the trace id as a UUID-formatted string.
func (t TraceID) String() string {
	return uuid.UUID(t).String()
}

// IsZero reports whether t is the zero trace id.
func (t TraceID) IsZero() bool {
	return t == TraceID{}
}

// Message is the decoded, in-memory representation of one wire frame.
// It is intentionally opaque beyond Type/TraceID/Payload: everything the
// core's handlers need is extracted from Payload by the caller.
type Message struct {
	Type    Type
	TraceID TraceID
	Payload []byte
}

// New builds a Message with a fresh trace id.
func New(t Type, payload []byte) Message {
	return Message{Type: t, TraceID: NewTraceID(), Payload: payload}
}

// WithTraceID builds a Message carrying an existing (echoed) trace id.
func WithTraceID(t Type, id TraceID, payload []byte) Message {
	return Message{Type: t, TraceID: id, Payload: payload}
}
