package observer

import (
	"context"
	"encoding/json"

	"github.com/jeeves-cluster-organization/agentkernel/wire"
)

// FrameSender abstracts the one operation a RemoteAuditSink needs from the
// transport layer: send an already-encoded frame to a fixed peer. Kept
// narrow so the sink depends on neither *transport.Endpoint nor any
// specific codec concretely (protocol-first, the way the teacher declares
// a minimal Logger per package rather than importing one).
type FrameSender func(frame []byte) error

// auditPayload is the JSON body carried in an Event-type frame to the
// governance peer.
type auditPayload struct {
	Kind    string `json:"kind"`
	AgentID string `json:"agent_id"`
	TraceID string `json:"trace_id"`
	Verdict string `json:"verdict,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// RemoteAuditSink encodes each Event as a wire.TypeEvent frame and ships it
// to a governance peer via codec+sender. Intended to be wrapped in a
// BoundedQueue since both encoding and the network send can block.
type RemoteAuditSink struct {
	codec  wire.MessageCodec
	send   FrameSender
	logger Logger
}

// NewRemoteAuditSink builds a sink that encodes via codec and ships frames via send.
func NewRemoteAuditSink(codec wire.MessageCodec, send FrameSender, logger Logger) *RemoteAuditSink {
	return &RemoteAuditSink{codec: codec, send: send, logger: logger}
}

func (s *RemoteAuditSink) Notify(ctx context.Context, ev Event) {
	payload := auditPayload{Kind: ev.Kind, AgentID: ev.AgentID, TraceID: ev.TraceID, Detail: ev.Detail}
	if ev.Decision != nil {
		payload.Verdict = ev.Decision.Verdict.String()
		payload.Rule = ev.Decision.MatchedRule
	}

	body, err := json.Marshal(payload)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("remote_audit_marshal_failed", "error", err.Error())
		}
		return
	}

	msg := wire.New(wire.TypeEvent, body)
	frame, err := s.codec.Encode(msg)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("remote_audit_encode_failed", "error", err.Error())
		}
		return
	}

	if err := s.send(frame); err != nil {
		if s.logger != nil {
			s.logger.Error("remote_audit_send_failed", "error", err.Error())
		}
	}
}

var _ Observer = (*RemoteAuditSink)(nil)
