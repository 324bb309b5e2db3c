// Package registryclient registers the agent kernel with a directory peer
// and keeps it alive with periodic heartbeats, backing off on failure
// (§4.11 registration/heartbeat).
package registryclient

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jeeves-cluster-organization/agentkernel/identity"
)

// Transport is the narrow send contract the client needs from whatever
// carries Register/Heartbeat/Deregister frames to the directory peer.
type Transport interface {
	SendRegister(ctx context.Context, id identity.AgentIdentity) error
	SendHeartbeat(ctx context.Context, id identity.ID) error
	SendDeregister(ctx context.Context, id identity.ID) error
}

// Logger is the registry client's structured-logging contract.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Client tracks this kernel's presence with a directory peer. Registration
// and heartbeats retry with bounded exponential backoff and jitter; after
// persistent failure the client marks itself degraded rather than blocking
// forever, mirroring the teacher pack's Tracker join/leave bookkeeping
// generalized from a single set membership to a retrying remote client.
type Client struct {
	transport Transport
	identity  identity.AgentIdentity
	logger    Logger

	degraded atomic.Bool
}

// New builds a Client for id, sending frames via transport.
func New(transport Transport, id identity.AgentIdentity, logger Logger) *Client {
	return &Client{transport: transport, identity: id, logger: logger}
}

// Degraded reports whether the client currently considers itself degraded
// (persistent registration/heartbeat failure).
func (c *Client) Degraded() bool { return c.degraded.Load() }

func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0 // caller bounds overall attempts via ctx
	return b
}

// Register retries SendRegister with bounded exponential backoff until it
// succeeds or ctx is cancelled.
func (c *Client) Register(ctx context.Context) error {
	op := func() error { return c.transport.SendRegister(ctx, c.identity) }
	err := backoff.Retry(op, backoff.WithContext(newBackoff(), ctx))
	if err != nil {
		c.degraded.Store(true)
		if c.logger != nil {
			c.logger.Error("registry_register_failed", "agent_id", c.identity.ID().String(), "error", err.Error())
		}
		return fmt.Errorf("registryclient: register: %w", err)
	}
	c.degraded.Store(false)
	return nil
}

// Heartbeat sends one heartbeat, retrying with backoff; a failure marks the
// client degraded but does not stop the caller's heartbeat loop.
func (c *Client) Heartbeat(ctx context.Context) error {
	op := func() error { return c.transport.SendHeartbeat(ctx, c.identity.ID()) }
	err := backoff.Retry(op, backoff.WithContext(newBackoff(), ctx))
	if err != nil {
		c.degraded.Store(true)
		if c.logger != nil {
			c.logger.Warn("registry_heartbeat_failed", "agent_id", c.identity.ID().String(), "error", err.Error())
		}
		return err
	}
	c.degraded.Store(false)
	return nil
}

// Deregister sends a best-effort deregistration; the caller is shutting
// down regardless of outcome, so this does not retry indefinitely.
func (c *Client) Deregister(ctx context.Context) error {
	return c.transport.SendDeregister(ctx, c.identity.ID())
}

// HeartbeatLoop sends a heartbeat every interval until ctx is cancelled.
func (c *Client) HeartbeatLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Heartbeat(ctx)
		}
	}
}
