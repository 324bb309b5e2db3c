package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameCodecRoundTrip(t *testing.T) {
	codec := NewFrameCodec()
	msg := New(TypeCall, []byte(`{"type":"code_review","code":"fn f(){}"}`))

	encoded, err := codec.Encode(msg)
	require.NoError(t, err)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, msg.Type, decoded.Type)
	assert.Equal(t, msg.TraceID, decoded.TraceID)
	assert.True(t, bytes.Equal(msg.Payload, decoded.Payload))
}

func TestFrameCodecPayloadBoundary(t *testing.T) {
	codec := NewFrameCodec()

	atLimit := New(TypeCall, make([]byte, MaxPayloadBytes))
	_, err := codec.Encode(atLimit)
	require.NoError(t, err)

	overLimit := New(TypeCall, make([]byte, MaxPayloadBytes+1))
	_, err = codec.Encode(overLimit)
	require.Error(t, err)
	var cerr *CodecError
	require.True(t, errors.As(err, &cerr))
	assert.ErrorIs(t, cerr, ErrPayloadTooLarge)
}

func TestFrameCodecChecksumMismatch(t *testing.T) {
	codec := NewFrameCodec()
	msg := New(TypeHeartbeat, []byte("payload"))
	encoded, err := codec.Encode(msg)
	require.NoError(t, err)

	// Flip a byte in the payload without updating the checksum.
	corrupt := make([]byte, len(encoded))
	copy(corrupt, encoded)
	corrupt[len(corrupt)-1] ^= 0xFF

	_, err = codec.Decode(corrupt)
	require.Error(t, err)
	var cerr *CodecError
	require.True(t, errors.As(err, &cerr))
	assert.ErrorIs(t, cerr, ErrChecksumMismatch)
}

func TestFrameCodecUnknownType(t *testing.T) {
	codec := NewFrameCodec()
	msg := Message{Type: Type(0x55), TraceID: NewTraceID(), Payload: []byte("x")}
	encoded, err := codec.Encode(msg)
	require.NoError(t, err)

	_, err = codec.Decode(encoded)
	require.Error(t, err)
	var cerr *CodecError
	require.True(t, errors.As(err, &cerr))
	assert.ErrorIs(t, cerr, ErrUnknownType)
}

func TestFrameCodecMalformedFrame(t *testing.T) {
	codec := NewFrameCodec()
	_, err := codec.Decode([]byte{0x01, 0x02})
	require.Error(t, err)
	var cerr *CodecError
	require.True(t, errors.As(err, &cerr))
	assert.ErrorIs(t, cerr, ErrMalformedFrame)
}

func TestTraceIDRoundTrip(t *testing.T) {
	id := NewTraceID()
	parsed, err := ParseTraceID(id[:])
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseTraceID([]byte{1, 2, 3})
	require.Error(t, err)
}
