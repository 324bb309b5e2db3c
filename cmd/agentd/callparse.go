package main

import (
	"encoding/json"
	"fmt"

	"github.com/jeeves-cluster-organization/agentkernel/executor"
)

// callPayload is the wire shape of a Call frame's payload (§6): a `type`
// field naming the call kind (used as the tool name when `tool` is empty),
// an optional `model` field whose presence alone makes the call model-kind,
// and an optional correlation id echoed back in the Response.
type callPayload struct {
	Type          string         `json:"type"`
	Tool          string         `json:"tool"`
	ToolParams    map[string]any `json:"tool_params"`
	Model         string         `json:"model"`
	Prompt        string         `json:"prompt"`
	ModelParams   map[string]any `json:"model_params"`
	CorrelationID string         `json:"correlation_id"`
	Action        string         `json:"action"`
	Scopes        []string       `json:"scopes"`
}

// parseCall extracts {request kind, inner payload, correlation id} from a
// Call frame's JSON payload (§4.6 step 1), producing an executor.Request
// ready for policy evaluation. A non-empty `model` field signals a
// model-kind call; otherwise the call names a tool, taking the tool name
// from `tool` and falling back to the generic `type` field (scenario (a)
// uses `type` directly as the tool/capability name).
func parseCall(payload []byte) (executor.Request, error) {
	var body callPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &body); err != nil {
			return executor.Request{}, fmt.Errorf("agentd: malformed call payload: %w", err)
		}
	}

	req := executor.Request{
		CorrelationID: body.CorrelationID,
		PolicyAction:  body.Action,
		PolicyScopes:  body.Scopes,
	}

	if body.Model != "" {
		req.Kind = executor.KindModel
		req.Model = body.Model
		req.Prompt = body.Prompt
		req.ModelParams = body.ModelParams
		if req.PolicyAction == "" {
			req.PolicyAction = "model:" + body.Model
		}
		return req, nil
	}

	req.Kind = executor.KindTool
	req.ToolName = body.Tool
	if req.ToolName == "" {
		req.ToolName = body.Type
	}
	req.ToolParams = body.ToolParams
	if req.PolicyAction == "" {
		req.PolicyAction = "tool:" + req.ToolName
	}
	return req, nil
}
