// Package transport provides the datagram transport adapter (§4.1): bind a
// local endpoint, send/recv byte frames with a configurable receive
// timeout, and expose a distinct non-error WouldBlock status so callers can
// re-enter their loop without logging spurious errors.
package transport

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/jeeves-cluster-organization/agentkernel/wire"
)

// ErrPayloadTooLarge is returned by Send when the frame exceeds
// wire.MaxPayloadBytes plus a 64-byte header allowance.
var ErrPayloadTooLarge = errors.New("transport: payload exceeds maximum size")

// Status distinguishes a timed-out recv (non-error, expected) from all other
// outcomes.
type Status int

const (
	// StatusOK indicates a frame was received.
	StatusOK Status = iota
	// StatusWouldBlock indicates the read timeout elapsed with no frame
	// available. This is not an error: it is the primary cooperative
	// shutdown checkpoint (§7).
	StatusWouldBlock
)

// Config configures an Endpoint.
type Config struct {
	// ReadTimeout bounds how long Recv blocks before returning
	// StatusWouldBlock. Zero or negative is replaced by DefaultReadTimeout
	// at Bind time; Recv never blocks without a deadline.
	ReadTimeout time.Duration
}

// DefaultReadTimeout is used when Config.ReadTimeout is zero or negative
// at Bind time.
const DefaultReadTimeout = 30 * time.Second

// Endpoint is a bound datagram socket. A single Endpoint may be shared by
// multiple sender goroutines; Recv is intended to be called by one
// dispatcher goroutine only (§4.1).
type Endpoint struct {
	conn   net.PacketConn
	cfg    Config
	closed atomic.Bool
}

// Bind opens a local UDP endpoint at localAddr (host:port, or ":0" for an
// ephemeral port).
func Bind(localAddr string, cfg Config) (*Endpoint, error) {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	conn, err := net.ListenPacket("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: bind %s: %w", localAddr, err)
	}

	return &Endpoint{conn: conn, cfg: cfg}, nil
}

// LocalAddr returns the bound local address.
func (e *Endpoint) LocalAddr() net.Addr {
	return e.conn.LocalAddr()
}

// Send writes b as a single datagram to peer. Safe to call concurrently
// from multiple goroutines.
func (e *Endpoint) Send(b []byte, peer net.Addr) (int, error) {
	if len(b) > wire.MaxPayloadBytes+64 { // header overhead allowance
		return 0, ErrPayloadTooLarge
	}
	n, err := e.conn.WriteTo(b, peer)
	if err != nil {
		return n, fmt.Errorf("transport: send to %s: %w", peer, err)
	}
	return n, nil
}

// Recv blocks for up to cfg.ReadTimeout waiting for one datagram. It
// returns StatusWouldBlock (not an error) if the timeout elapses first.
// Intended to be called by a single dispatcher goroutine in a loop that
// polls Closed() between iterations for cooperative shutdown.
func (e *Endpoint) Recv(buf []byte) (int, net.Addr, Status, error) {
	if err := e.conn.SetReadDeadline(time.Now().Add(e.cfg.ReadTimeout)); err != nil {
		return 0, nil, StatusOK, fmt.Errorf("transport: set read deadline: %w", err)
	}

	n, peer, err := e.conn.ReadFrom(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, nil, StatusWouldBlock, nil
		}
		if e.closed.Load() {
			return 0, nil, StatusWouldBlock, nil
		}
		return 0, nil, StatusOK, fmt.Errorf("transport: recv: %w", err)
	}

	return n, peer, StatusOK, nil
}

// Close marks the endpoint as shutting down and releases the underlying
// socket. Safe to call once. A Recv already blocked when Close runs returns
// StatusWouldBlock instead of a spurious error; a Recv started after Close
// returns an error, which the caller can tell apart via Closed().
func (e *Endpoint) Close() error {
	e.closed.Store(true)
	return e.conn.Close()
}

// Closed reports whether Close has been called. Dispatcher loops poll this
// between Recv calls as the cooperative-shutdown checkpoint (§5).
func (e *Endpoint) Closed() bool {
	return e.closed.Load()
}
