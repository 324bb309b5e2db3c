package executor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jeeves-cluster-organization/agentkernel/memory"
	"github.com/jeeves-cluster-organization/agentkernel/observer"
	"github.com/jeeves-cluster-organization/agentkernel/policy"
	"github.com/jeeves-cluster-organization/agentkernel/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTools struct {
	result map[string]any
	err    error
}

func (f *fakeTools) Execute(ctx context.Context, toolName string, params map[string]any) (map[string]any, error) {
	return f.result, f.err
}
func (f *fakeTools) Has(toolName string) bool { return true }

type recordingObserver struct {
	events []observer.Event
}

func (r *recordingObserver) Notify(ctx context.Context, ev observer.Event) {
	r.events = append(r.events, ev)
}

func newTestPipeline(t *testing.T, verdict policy.Verdict, tools ToolExecutor, model ModelAdapter) (*Pipeline, *recordingObserver) {
	t.Helper()
	engine := policy.NewEngine(policy.Config{DefaultVerdict: verdict}, nil)
	bus := memory.NewBus(nil, memory.NewRing(10), nil, nil)
	obs := &recordingObserver{}
	return NewPipeline(engine, tools, model, bus, obs, nil), obs
}

func TestPipelineAllowedToolCallReturnsResponse(t *testing.T) {
	pipeline, obs := newTestPipeline(t, policy.VerdictAllow, &fakeTools{result: map[string]any{"ok": true}}, nil)

	result, err := pipeline.Execute(context.Background(), Request{
		AgentID: "agent-1", TraceID: wire.NewTraceID(), Kind: KindTool, ToolName: "lookup",
	})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, wire.TypeResponse, result.Messages[0].Type)
	assert.NotEmpty(t, obs.events)
}

func TestPipelineDeniedCallReturnsErrorResponse(t *testing.T) {
	pipeline, _ := newTestPipeline(t, policy.VerdictDeny, &fakeTools{}, nil)

	result, err := pipeline.Execute(context.Background(), Request{
		AgentID: "agent-1", TraceID: wire.NewTraceID(), Kind: KindTool, ToolName: "dangerous", CorrelationID: "x1",
	})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, wire.TypeResponse, result.Messages[0].Type)

	var body map[string]any
	require.NoError(t, json.Unmarshal(result.Messages[0].Payload, &body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "x1", body["correlation_id"])
}

func TestPipelineEscalatedCallReturnsApproversResponse(t *testing.T) {
	engine := policy.NewEngine(policy.Config{
		Rules: []policy.Rule{
			{Name: "escalate-transfer", Match: func(r policy.Request) bool { return true }, Verdict: policy.VerdictEscalate, Approvers: []string{"ops@x", "cfo@x"}},
		},
	}, nil)
	bus := memory.NewBus(nil, memory.NewRing(10), nil, nil)
	pipeline := NewPipeline(engine, &fakeTools{}, nil, bus, &recordingObserver{}, nil)

	result, err := pipeline.Execute(context.Background(), Request{
		AgentID: "agent-1", TraceID: wire.NewTraceID(), Kind: KindTool, ToolName: "transfer_funds",
	})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, wire.TypeResponse, result.Messages[0].Type)

	var body map[string]any
	require.NoError(t, json.Unmarshal(result.Messages[0].Payload, &body))
	assert.Equal(t, "escalated", body["status"])
	assert.ElementsMatch(t, []any{"ops@x", "cfo@x"}, body["approvers"])
}

func TestPipelineMissingToolReturnsError(t *testing.T) {
	pipeline, _ := newTestPipeline(t, policy.VerdictAllow, nil, nil)

	result, err := pipeline.Execute(context.Background(), Request{
		AgentID: "agent-1", TraceID: wire.NewTraceID(), Kind: KindTool, ToolName: "missing",
	})
	require.Error(t, err)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, wire.TypeError, result.Messages[0].Type)
}

type fakeModel struct {
	chunks []ModelChunk
}

func (f *fakeModel) Stream(ctx context.Context, model, prompt string, params map[string]any) (<-chan ModelChunk, <-chan error) {
	chunks := make(chan ModelChunk, len(f.chunks))
	errs := make(chan error, 1)
	for _, c := range f.chunks {
		chunks <- c
	}
	close(chunks)
	close(errs)
	return chunks, errs
}

func TestPipelineModelStreamProducesOpenChunksClose(t *testing.T) {
	model := &fakeModel{chunks: []ModelChunk{{Data: []byte("hello")}, {Data: []byte("world"), Final: true}}}
	pipeline, _ := newTestPipeline(t, policy.VerdictAllow, nil, model)

	result, err := pipeline.Execute(context.Background(), Request{
		AgentID: "agent-1", TraceID: wire.NewTraceID(), Kind: KindModel, Model: "gpt", Prompt: "hi",
	})
	require.NoError(t, err)
	require.Len(t, result.Messages, 4)
	assert.Equal(t, wire.TypeStreamOpen, result.Messages[0].Type)
	assert.Equal(t, wire.TypeStreamChunk, result.Messages[1].Type)
	assert.Equal(t, wire.TypeStreamChunk, result.Messages[2].Type)
	assert.Equal(t, wire.TypeStreamClose, result.Messages[3].Type)
}
