package wire

// MessageCodec encodes and decodes wire frames. It is the external
// collaborator the core depends on for framing, checksum, and header
// layout (§6); the core never assumes anything about byte-level structure
// beyond what Decode/Encode promise here.
type MessageCodec interface {
	// Encode serializes msg to a self-delimiting, checksummed frame.
	// Returns ErrPayloadTooLarge (wrapped) if msg.Payload exceeds MaxPayloadBytes.
	Encode(msg Message) ([]byte, error)

	// Decode parses exactly one frame from b. Implementations that read
	// from a stream rather than a single datagram may instead expose a
	// Reader-based variant; the core only relies on this signature for the
	// datagram transport in package transport.
	Decode(b []byte) (Message, error)
}
