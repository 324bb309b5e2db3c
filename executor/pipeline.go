package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/jeeves-cluster-organization/agentkernel/memory"
	"github.com/jeeves-cluster-organization/agentkernel/observability"
	"github.com/jeeves-cluster-organization/agentkernel/observer"
	"github.com/jeeves-cluster-organization/agentkernel/policy"
	"github.com/jeeves-cluster-organization/agentkernel/wire"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("agentkernel/executor")

// Kind distinguishes the two shapes of work a Call can request.
type Kind int

const (
	KindTool Kind = iota
	KindModel
)

// Request is a parsed inbound Call, ready for policy evaluation and execution.
type Request struct {
	AgentID string
	TraceID wire.TraceID
	Kind    Kind

	ToolName   string
	ToolParams map[string]any

	Model       string
	Prompt      string
	ModelParams map[string]any

	PolicyAction string
	PolicyScopes []string

	// CorrelationID is echoed back in a Response payload's correlation_id
	// field when the Call was forwarded via a coordinator (§6, scenario a).
	CorrelationID string
}

// Result normalizes both the single-Response tool path and the
// StreamOpen/StreamChunk*/StreamClose model path into one ordered list of
// wire frames for the reply.
type Result struct {
	Messages []wire.Message
}

// Pipeline wires the policy gate, tool/model execution, memory recording,
// and observer notification around one Call, generalizing the teacher's
// Agent.Process defer-based metrics/tracing/logging pattern from an
// envelope-processing pipeline to a single governed call.
type Pipeline struct {
	policy   *policy.Engine
	tools    ToolExecutor
	model    ModelAdapter
	memory   *memory.Bus
	observers observer.Observer
	logger   Logger
}

// NewPipeline builds a Pipeline. tools and model may be nil if the
// corresponding Kind is never dispatched to this pipeline.
func NewPipeline(policyEngine *policy.Engine, tools ToolExecutor, model ModelAdapter, memoryBus *memory.Bus, observers observer.Observer, logger Logger) *Pipeline {
	return &Pipeline{policy: policyEngine, tools: tools, model: model, memory: memoryBus, observers: observers, logger: logger}
}

// Execute runs req through the full gated pipeline: policy evaluation,
// observer notification of the decision, conditional execution, and memory
// recording.
func (p *Pipeline) Execute(ctx context.Context, req Request) (Result, error) {
	ctx, span := tracer.Start(ctx, "executor.execute",
		attribute.String("agentkernel.agent_id", req.AgentID),
		attribute.String("agentkernel.trace_id", req.TraceID.String()),
	)
	defer span.End()

	start := time.Now()
	var status string

	defer func() {
		durationMS := int(time.Since(start).Milliseconds())
		observability.RecordCall(status, durationMS)
		span.SetAttributes(attribute.String("agentkernel.status", status), attribute.Int("duration_ms", durationMS))
		if p.logger != nil {
			p.logger.Info("call_executed", "agent_id", req.AgentID, "trace_id", req.TraceID.String(), "status", status, "duration_ms", durationMS)
		}
	}()

	decision := p.policy.Evaluate(policy.Request{
		AgentID:    req.AgentID,
		Capability: req.ToolName,
		Action:     req.PolicyAction,
		Scopes:     req.PolicyScopes,
	})
	observability.RecordPolicyDecision(decision.Verdict.String(), decision.MatchedRule)
	p.notify(ctx, observer.Event{Kind: "policy_decision", AgentID: req.AgentID, TraceID: req.TraceID.String(), Decision: &decision})

	switch decision.Verdict {
	case policy.VerdictDeny:
		status = "denied"
		span.SetStatus(codes.Error, "denied by policy")
		msg, err := p.responseFrame(req, responseEnvelope{Status: "error", CorrelationID: req.CorrelationID, Reason: decision.Reason}, nil)
		if err != nil {
			return Result{}, err
		}
		return Result{Messages: []wire.Message{msg}}, nil
	case policy.VerdictEscalate:
		status = "escalated"
		var approvers []string
		if decision.Approval != nil {
			approvers = decision.Approval.RequiredApprovers
		}
		msg, err := p.responseFrame(req, responseEnvelope{Status: "escalated", CorrelationID: req.CorrelationID, Approvers: approvers}, nil)
		if err != nil {
			return Result{}, err
		}
		return Result{Messages: []wire.Message{msg}}, nil
	}

	var result Result
	var err error
	switch req.Kind {
	case KindTool:
		result, err = p.executeTool(ctx, req)
	case KindModel:
		result, err = p.executeModel(ctx, req)
	default:
		err = fmt.Errorf("executor: unknown call kind %d", req.Kind)
	}

	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		// §6/§4.6: before a Response has been sent, a failure is an Error
		// frame, or a Response{status:"error"} if a correlation id exists
		// for the peer to match against its pending table.
		if req.CorrelationID != "" {
			msg, encErr := p.responseFrame(req, responseEnvelope{Status: "error", CorrelationID: req.CorrelationID, Reason: err.Error()}, nil)
			if encErr != nil {
				result = Result{Messages: []wire.Message{p.errorFrame(req.TraceID, err.Error())}}
			} else {
				result = Result{Messages: []wire.Message{msg}}
			}
		} else {
			result = Result{Messages: []wire.Message{p.errorFrame(req.TraceID, err.Error())}}
		}
	} else {
		status = "success"
		span.SetStatus(codes.Ok, "success")
	}

	p.record(ctx, req, result, err)
	return result, err
}

func (p *Pipeline) executeTool(ctx context.Context, req Request) (Result, error) {
	if p.tools == nil || !p.tools.Has(req.ToolName) {
		return Result{}, fmt.Errorf("executor: no tool registered for %q", req.ToolName)
	}
	out, err := p.tools.Execute(ctx, req.ToolName, req.ToolParams)
	if err != nil {
		return Result{}, err
	}
	msg, err := p.responseFrame(req, responseEnvelope{Status: "complete", CorrelationID: req.CorrelationID}, out)
	if err != nil {
		return Result{}, err
	}
	return Result{Messages: []wire.Message{msg}}, nil
}

// responseFrame builds a Response frame whose payload merges env with
// fields (e.g. a completed tool's output map), per §6's Response payload
// contract: `{status, correlation_id?}` plus call-specific fields.
func (p *Pipeline) responseFrame(req Request, env responseEnvelope, fields map[string]any) (wire.Message, error) {
	payload, err := encodeResponse(env, fields)
	if err != nil {
		return wire.Message{}, err
	}
	return wire.WithTraceID(wire.TypeResponse, req.TraceID, payload), nil
}

func (p *Pipeline) executeModel(ctx context.Context, req Request) (Result, error) {
	if p.model == nil {
		return Result{}, fmt.Errorf("executor: no model adapter configured")
	}
	chunks, errs := p.model.Stream(ctx, req.Model, req.Prompt, req.ModelParams)

	messages := []wire.Message{wire.WithTraceID(wire.TypeStreamOpen, req.TraceID, nil)}
	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case err, ok := <-errs:
			if ok && err != nil {
				return Result{}, err
			}
		case chunk, ok := <-chunks:
			if !ok {
				messages = append(messages, wire.WithTraceID(wire.TypeStreamClose, req.TraceID, nil))
				return Result{Messages: messages}, nil
			}
			messages = append(messages, wire.WithTraceID(wire.TypeStreamChunk, req.TraceID, chunk.Data))
			if chunk.Final {
				messages = append(messages, wire.WithTraceID(wire.TypeStreamClose, req.TraceID, nil))
				return Result{Messages: messages}, nil
			}
		}
	}
}

func (p *Pipeline) record(ctx context.Context, req Request, result Result, execErr error) {
	if p.memory == nil {
		return
	}
	channel := memory.ChannelToolResult
	if req.Kind == KindModel {
		channel = memory.ChannelObservation
	}
	content := []byte(fmt.Sprintf("status_err=%v messages=%d", execErr != nil, len(result.Messages)))
	if err := p.memory.Write(ctx, memory.Record{
		AgentID: req.AgentID,
		Channel: channel,
		TraceID: req.TraceID.String(),
		Content: content,
	}); err != nil {
		observability.RecordMemoryWrite(string(channel), "failed")
	} else {
		observability.RecordMemoryWrite(string(channel), "recorded")
	}
}

func (p *Pipeline) notify(ctx context.Context, ev observer.Event) {
	if p.observers != nil {
		p.observers.Notify(ctx, ev)
	}
}

func (p *Pipeline) errorFrame(id wire.TraceID, msg string) wire.Message {
	return wire.WithTraceID(wire.TypeError, id, []byte(msg))
}
