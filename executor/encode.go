package executor

import "encoding/json"

// responseEnvelope is the JSON shape of a Response frame's payload (§6):
// a status tag, an optional echoed correlation id, and call-specific
// fields merged in (tool output, an escalation's required approvers, or
// an error's reason).
type responseEnvelope struct {
	Status        string   `json:"status"`
	CorrelationID string   `json:"correlation_id,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	Approvers     []string `json:"approvers,omitempty"`
}

func encodeToolOutput(out map[string]any) ([]byte, error) {
	return json.Marshal(out)
}

// encodeResponse marshals a responseEnvelope merged with any call-specific
// fields (e.g. a completed tool's output) into one flat JSON object.
func encodeResponse(env responseEnvelope, fields map[string]any) ([]byte, error) {
	merged := map[string]any{"status": env.Status}
	if env.CorrelationID != "" {
		merged["correlation_id"] = env.CorrelationID
	}
	if env.Reason != "" {
		merged["reason"] = env.Reason
	}
	if len(env.Approvers) > 0 {
		merged["approvers"] = env.Approvers
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}
