//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/spice-go/agent"
	"trpc.group/trpc-go/spice-go/bus"
	"trpc.group/trpc-go/spice-go/execution"
	"trpc.group/trpc-go/spice-go/message"
	"trpc.group/trpc-go/spice-go/tool"
)

type stubAgent struct {
	name    string
	ready   bool
	process func(ctx context.Context, msg *message.Message) (*message.Message, error)
}

func newStubAgent(name string, process func(ctx context.Context, msg *message.Message) (*message.Message, error)) *stubAgent {
	return &stubAgent{name: name, ready: true, process: process}
}

func (a *stubAgent) Info() agent.Info                  { return agent.Info{ID: a.name, Name: a.name} }
func (a *stubAgent) Capabilities() []string            { return nil }
func (a *stubAgent) CanHandle(*message.Message) bool   { return true }
func (a *stubAgent) Tools() []tool.Tool                { return nil }
func (a *stubAgent) Ready() bool                       { return a.ready }
func (a *stubAgent) Process(ctx context.Context, msg *message.Message) (*message.Message, error) {
	return a.process(ctx, msg)
}

type stubTool struct {
	name    string
	execute func(ctx context.Context, args map[string]any, call *tool.CallContext) (*message.ToolResult, error)
}

func (s *stubTool) Name() string         { return s.name }
func (s *stubTool) Description() string  { return "stub" }
func (s *stubTool) Schema() *tool.Schema { return nil }
func (s *stubTool) Execute(ctx context.Context, args map[string]any, call *tool.CallContext) (*message.ToolResult, error) {
	return s.execute(ctx, args, call)
}

type stubEngine struct {
	decide func(ctx context.Context, msg *message.Message, state message.Data) (*DecisionResult, error)
}

func (s *stubEngine) Decide(ctx context.Context, msg *message.Message, state message.Data) (*DecisionResult, error) {
	return s.decide(ctx, msg, state)
}

func mustExecutor(t *testing.T, g *Graph, opts ...ExecutorOption) *Executor {
	t.Helper()
	exec, err := NewExecutor(g, opts...)
	require.NoError(t, err)
	return exec
}

func TestRunLinear(t *testing.T) {
	greeter := newStubAgent("greeter", func(_ context.Context, msg *message.Message) (*message.Message, error) {
		return message.New("Hello, "+msg.Content+"!", message.RoleAssistant), nil
	})
	g, err := NewBuilder("hello").
		AddAgentNode("greeter", greeter).
		AddOutputNode("result", func(state message.Data) any {
			v, _ := state.Get("greeter")
			return v
		}).
		AddEdge("greeter", "result").
		SetEntryPoint("greeter").
		Build()
	require.NoError(t, err)

	report, err := mustExecutor(t, g).Run(context.Background(), map[string]any{"input": "World"}, execution.New())
	require.NoError(t, err)

	assert.Equal(t, RunSuccess, report.Status)
	assert.Equal(t, "Hello, World!", report.Result)
	assert.Equal(t, "hello", report.GraphID)
	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.NodeReports, 2)
	assert.Equal(t, "greeter", report.NodeReports[0].NodeID)
	assert.Equal(t, KindAgent, report.NodeReports[0].Kind)
	assert.Equal(t, NodeCompleted, report.NodeReports[0].Status)
	assert.Equal(t, "result", report.NodeReports[1].NodeID)
	assert.Equal(t, NodeCompleted, report.NodeReports[1].Status)
}

func TestRunDecisionRouting(t *testing.T) {
	branches := []Branch{
		{Name: "billing", Target: "billing", When: func(msg *message.Message, _ message.Data) bool {
			return strings.Contains(msg.Content, "invoice")
		}},
		{Name: "technical", Target: "technical", When: func(msg *message.Message, _ message.Data) bool {
			return strings.Contains(msg.Content, "crash")
		}},
	}
	g, err := NewBuilder("support").
		AddDecisionNode("classify", branches, WithOtherwise("general")).
		AddNode(passNode("billing")).
		AddNode(passNode("technical")).
		AddNode(passNode("general")).
		AddEdge("classify", "billing", WithCondition(WhenBranch("billing"))).
		AddEdge("classify", "technical", WithCondition(WhenBranch("technical"))).
		AddEdge("classify", "general", WithCondition(WhenBranch("general"))).
		SetEntryPoint("classify").
		Build()
	require.NoError(t, err)
	exec := mustExecutor(t, g)

	report, err := exec.Run(context.Background(), map[string]any{"content": "my invoice is wrong"}, execution.New())
	require.NoError(t, err)
	require.Len(t, report.NodeReports, 2)
	assert.Equal(t, "billing", report.NodeReports[1].NodeID)
	assert.Equal(t, "billing", report.NodeReports[0].MetadataDelta[KeySelectedBranch])
	assert.Equal(t, "classify", report.NodeReports[0].MetadataDelta[KeyDecisionNodeID])

	report, err = exec.Run(context.Background(), map[string]any{"content": "hello there"}, execution.New())
	require.NoError(t, err)
	require.Len(t, report.NodeReports, 2)
	assert.Equal(t, "general", report.NodeReports[1].NodeID)
	assert.Equal(t, "otherwise", report.NodeReports[0].MetadataDelta[KeyBranchName])
}

func TestDecisionNoMatchFails(t *testing.T) {
	branches := []Branch{{Name: "never", Target: "b", When: func(*message.Message, message.Data) bool {
		return false
	}}}
	g, err := NewBuilder("g").
		AddDecisionNode("route", branches).
		AddNode(passNode("b")).
		AddEdge("route", "b", WithCondition(WhenBranch("b"))).
		SetEntryPoint("route").
		Build()
	require.NoError(t, err)

	report, err := mustExecutor(t, g).Run(context.Background(), nil, execution.New())
	require.ErrorContains(t, err, "matched no branch")
	assert.Equal(t, RunFailed, report.Status)
	require.Len(t, report.NodeReports, 1)
	assert.Equal(t, NodeFailed, report.NodeReports[0].Status)
}

func TestEngineDecisionRouting(t *testing.T) {
	engine := &stubEngine{decide: func(_ context.Context, msg *message.Message, _ message.Data) (*DecisionResult, error) {
		if strings.Contains(msg.Content, "refund") {
			return &DecisionResult{
				ResultID:   "refund",
				Reason:     "explicit refund request",
				Attributes: map[string]any{"confidence": 0.9},
			}, nil
		}
		return &DecisionResult{ResultID: "faq"}, nil
	}}
	g, err := NewBuilder("policy").
		AddEngineDecisionNode("decide", engine).
		AddNode(passNode("refund")).
		AddNode(passNode("faq")).
		AddEdge("decide", "refund", WithCondition(WhenDecision("refund"))).
		AddEdge("decide", "faq", WithCondition(WhenDecision("faq"))).
		SetEntryPoint("decide").
		Build()
	require.NoError(t, err)

	report, err := mustExecutor(t, g).Run(context.Background(),
		map[string]any{"content": "I want a refund"}, execution.New())
	require.NoError(t, err)
	require.Len(t, report.NodeReports, 2)
	assert.Equal(t, "refund", report.NodeReports[1].NodeID)
	assert.Equal(t, "refund", report.NodeReports[0].MetadataDelta[KeyDecisionResult])
	assert.Equal(t, 0.9, report.NodeReports[0].MetadataDelta["confidence"])
}

func TestMetadataPropagation(t *testing.T) {
	opener := newStubAgent("opener", func(context.Context, *message.Message) (*message.Message, error) {
		reply := message.New("session opened", message.RoleAssistant)
		return reply.WithData("sessionId", "s-42"), nil
	})
	reader := &fnNode{id: "reader", run: func(_ context.Context, nc *NodeContext) (*NodeResult, error) {
		v, ok := nc.State.Get("sessionId")
		if !ok {
			return nil, errors.New("sessionId missing from state")
		}
		return NewResult(nc, v), nil
	}}
	g, err := NewBuilder("g").
		AddAgentNode("open", opener).
		AddNode(reader).
		AddEdge("open", "reader").
		SetEntryPoint("open").
		Build()
	require.NoError(t, err)

	ec := execution.New(execution.WithCorrelationID("corr-1"), execution.WithTenantID("acme"))
	report, err := mustExecutor(t, g).Run(context.Background(), map[string]any{"content": "go"}, ec)
	require.NoError(t, err)

	assert.Equal(t, "s-42", report.Result)
	assert.Equal(t, "s-42", report.NodeReports[0].MetadataDelta["sessionId"])
	for _, nr := range report.NodeReports {
		assert.Equal(t, "corr-1", nr.MetadataDelta[KeyCorrelationID], nr.NodeID)
		assert.Equal(t, "acme", nr.MetadataDelta[KeyTenantID], nr.NodeID)
	}
}

func TestReplyBecomesCurrentMessage(t *testing.T) {
	first := newStubAgent("first", func(context.Context, *message.Message) (*message.Message, error) {
		return message.New("step one done", message.RoleAssistant), nil
	})
	var got string
	second := newStubAgent("second", func(_ context.Context, msg *message.Message) (*message.Message, error) {
		got = msg.Content
		return message.New("ok", message.RoleAssistant), nil
	})
	g, err := NewBuilder("g").
		AddAgentNode("a", first).
		AddAgentNode("b", second).
		AddEdge("a", "b").
		SetEntryPoint("a").
		Build()
	require.NoError(t, err)

	_, err = mustExecutor(t, g).Run(context.Background(), map[string]any{"content": "start"}, execution.New())
	require.NoError(t, err)
	assert.Equal(t, "step one done", got)
}

func TestAgentToolCallsPropagate(t *testing.T) {
	caller := newStubAgent("caller", func(context.Context, *message.Message) (*message.Message, error) {
		reply := message.New("calling tools", message.RoleAssistant)
		return reply.WithToolCalls(
			message.ToolCall{ID: "c1", Name: "search", Arguments: map[string]any{"q": "go"}},
			message.ToolCall{ID: "c2", Name: "fetch"},
		), nil
	})
	successor := &fnNode{id: "b", run: func(_ context.Context, nc *NodeContext) (*NodeResult, error) {
		v, _ := nc.State.Get(message.KeyToolCalls)
		return NewResult(nc, v), nil
	}}
	g, err := NewBuilder("g").
		AddAgentNode("a", caller).
		AddNode(successor).
		AddEdge("a", "b").
		SetEntryPoint("a").
		Build()
	require.NoError(t, err)

	report, err := mustExecutor(t, g).Run(context.Background(), nil, execution.New())
	require.NoError(t, err)

	delta := report.NodeReports[0].MetadataDelta
	assert.Equal(t, true, delta[KeyHasToolCalls])
	assert.Equal(t, 2, delta[KeyToolCallCount])
	calls, ok := delta[message.KeyToolCalls].([]message.ToolCall)
	require.True(t, ok)
	assert.Equal(t, "search", calls[0].Name)

	seen, ok := report.NodeReports[1].Output.([]message.ToolCall)
	require.True(t, ok, "successor should read the calls from its state")
	require.Len(t, seen, 2)
	assert.Equal(t, "c1", seen[0].ID)
	assert.Equal(t, "fetch", seen[1].Name)
}

func TestAgentNotReady(t *testing.T) {
	ag := newStubAgent("idle", func(context.Context, *message.Message) (*message.Message, error) {
		return nil, nil
	})
	ag.ready = false
	g, err := NewBuilder("g").AddAgentNode("a", ag).SetEntryPoint("a").Build()
	require.NoError(t, err)

	report, err := mustExecutor(t, g).Run(context.Background(), nil, execution.New())
	require.ErrorContains(t, err, "not ready")
	assert.Equal(t, RunFailed, report.Status)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "a", execErr.NodeID)
}

func TestToolNodeRun(t *testing.T) {
	var gotArgs map[string]any
	var gotCall *tool.CallContext
	lookup := &stubTool{name: "lookup", execute: func(_ context.Context, args map[string]any, call *tool.CallContext) (*message.ToolResult, error) {
		gotArgs = args
		gotCall = call
		return &message.ToolResult{
			Success:  true,
			Output:   "sunny",
			Metadata: map[string]any{"elapsedMs": 3},
		}, nil
	}}
	g, err := NewBuilder("g").
		AddToolNode("lookup", lookup, func(state message.Data) map[string]any {
			q, _ := state.GetString("query")
			return map[string]any{"q": q}
		}).
		SetEntryPoint("lookup").
		Build()
	require.NoError(t, err)

	report, err := mustExecutor(t, g).Run(context.Background(),
		map[string]any{"query": "weather"}, execution.New())
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"q": "weather"}, gotArgs)
	require.NotNil(t, gotCall)
	assert.Equal(t, "lookup", gotCall.NodeID)
	assert.Equal(t, report.RunID, gotCall.RunID)
	assert.Equal(t, "sunny", report.Result)
	assert.Equal(t, true, report.NodeReports[0].MetadataDelta[KeyToolSuccess])
	assert.Equal(t, 3, report.NodeReports[0].MetadataDelta["elapsedMs"])
}

func TestToolNodeFailure(t *testing.T) {
	broken := &stubTool{name: "broken", execute: func(context.Context, map[string]any, *tool.CallContext) (*message.ToolResult, error) {
		return &message.ToolResult{Success: false, Error: "backend unavailable"}, nil
	}}
	g, err := NewBuilder("g").
		AddToolNode("t", broken, nil).
		SetEntryPoint("t").
		Build()
	require.NoError(t, err)

	report, err := mustExecutor(t, g).Run(context.Background(), nil, execution.New())
	require.ErrorContains(t, err, "backend unavailable")
	assert.Equal(t, RunFailed, report.Status)
	assert.Equal(t, NodeFailed, report.NodeReports[0].Status)
}

func TestOutputSelector(t *testing.T) {
	g, err := NewBuilder("g").
		AddNode(passNode("a")).
		AddOutputNode("out", func(state message.Data) any {
			v, _ := state.Get("a")
			return map[string]any{"wrapped": v}
		}).
		AddEdge("a", "out").
		SetEntryPoint("a").
		Build()
	require.NoError(t, err)

	report, err := mustExecutor(t, g).Run(context.Background(), nil, execution.New())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"wrapped": any("a")}, report.Result)
}

func TestInitialMessageContent(t *testing.T) {
	var got string
	capture := newStubAgent("capture", func(_ context.Context, msg *message.Message) (*message.Message, error) {
		got = msg.Content
		return message.New("ok", message.RoleAssistant), nil
	})
	g, err := NewBuilder("g").AddAgentNode("a", capture).SetEntryPoint("a").Build()
	require.NoError(t, err)
	exec := mustExecutor(t, g)

	_, err = exec.Run(context.Background(),
		map[string]any{"content": "from content", "input": "from input"}, execution.New())
	require.NoError(t, err)
	assert.Equal(t, "from content", got)

	_, err = exec.Run(context.Background(), map[string]any{"input": "from input"}, execution.New())
	require.NoError(t, err)
	assert.Equal(t, "from input", got)
}

func TestNoMatchingEdgeFailsRun(t *testing.T) {
	g, err := NewBuilder("g").
		AddNode(passNode("a")).
		AddNode(passNode("b")).
		AddEdge("a", "b", WithCondition(WhenEquals("missing", true))).
		SetEntryPoint("a").
		Build()
	require.NoError(t, err)

	report, err := mustExecutor(t, g).Run(context.Background(), nil, execution.New())
	assert.ErrorIs(t, err, ErrNoMatchingEdge)
	assert.Equal(t, RunFailed, report.Status)
	assert.Len(t, report.NodeReports, 1)
}

func TestFallbackEdge(t *testing.T) {
	g, err := NewBuilder("g").
		AddNode(passNode("a")).
		AddNode(passNode("never")).
		AddNode(passNode("rescue")).
		AddEdge("a", "never", WithCondition(func(*NodeResult, message.Data) bool { return false })).
		AddEdge("a", "rescue", AsFallback()).
		SetEntryPoint("a").
		Build()
	require.NoError(t, err)

	report, err := mustExecutor(t, g).Run(context.Background(), nil, execution.New())
	require.NoError(t, err)
	require.Len(t, report.NodeReports, 2)
	assert.Equal(t, "rescue", report.NodeReports[1].NodeID)
}

func TestFallbackLosesToRegularEdge(t *testing.T) {
	// The fallback is declared first and has the better priority, but a
	// matching regular edge always wins.
	g, err := NewBuilder("g").
		AddNode(passNode("a")).
		AddNode(passNode("fb")).
		AddNode(passNode("reg")).
		AddEdge("a", "fb", AsFallback(), WithPriority(-10)).
		AddEdge("a", "reg").
		SetEntryPoint("a").
		Build()
	require.NoError(t, err)

	report, err := mustExecutor(t, g).Run(context.Background(), nil, execution.New())
	require.NoError(t, err)
	assert.Equal(t, "reg", report.NodeReports[1].NodeID)
}

func TestPriorityPicksFirstMatch(t *testing.T) {
	g, err := NewBuilder("g").
		AddNode(passNode("a")).
		AddNode(passNode("low")).
		AddNode(passNode("high")).
		AddEdge("a", "low", WithPriority(10)).
		AddEdge("a", "high", WithPriority(1)).
		SetEntryPoint("a").
		Build()
	require.NoError(t, err)

	report, err := mustExecutor(t, g).Run(context.Background(), nil, execution.New())
	require.NoError(t, err)
	assert.Equal(t, "high", report.NodeReports[1].NodeID)
}

func TestCycleStepBudget(t *testing.T) {
	g, err := NewBuilder("loop").
		AddNode(passNode("a")).
		AddNode(passNode("b")).
		AddEdge("a", "b").
		AddEdge("b", "a").
		AllowCycles().
		SetEntryPoint("a").
		Build()
	require.NoError(t, err)

	report, err := mustExecutor(t, g, WithStepBudget(5)).Run(context.Background(), nil, execution.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStepBudgetExceeded)
	assert.Equal(t, RunFailed, report.Status)
	assert.Len(t, report.NodeReports, 5)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 5, execErr.Step)
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, err := NewBuilder("g").
		AddNode(&fnNode{id: "a", run: func(_ context.Context, nc *NodeContext) (*NodeResult, error) {
			cancel()
			return NewResult(nc, "done"), nil
		}}).
		AddNode(passNode("b")).
		AddEdge("a", "b").
		SetEntryPoint("a").
		Build()
	require.NoError(t, err)

	report, err := mustExecutor(t, g).Run(ctx, nil, execution.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var cerr *CancellationError
	assert.ErrorAs(t, err, &cerr)
	assert.Equal(t, RunCancelled, report.Status)
	// The in-flight node finished; its successor never started.
	assert.Len(t, report.NodeReports, 1)
}

func TestRunDeadline(t *testing.T) {
	g, err := NewBuilder("g").
		Use(NewRunTimeout(10 * time.Millisecond)).
		AddNode(&fnNode{id: "slow", run: func(ctx context.Context, nc *NodeContext) (*NodeResult, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
				return NewResult(nc, "late"), nil
			}
		}}).
		SetEntryPoint("slow").
		Build()
	require.NoError(t, err)

	report, err := mustExecutor(t, g).Run(context.Background(), nil, execution.New())
	require.Error(t, err)

	var terr *TimeoutError
	assert.ErrorAs(t, err, &terr)
	assert.Equal(t, RunFailed, report.Status)
}

type recorderMW struct {
	BaseMiddleware
	name  string
	calls *[]string
}

func (m *recorderMW) OnStart(ctx context.Context, _ *RunInfo, next func(ctx context.Context) error) error {
	*m.calls = append(*m.calls, "start:"+m.name)
	err := next(ctx)
	*m.calls = append(*m.calls, "end:"+m.name)
	return err
}

func (m *recorderMW) OnNode(ctx context.Context, _ Node, nc *NodeContext, next NodeHandler) (*NodeResult, error) {
	*m.calls = append(*m.calls, "node:"+m.name)
	return next(ctx, nc)
}

func (m *recorderMW) OnFinish(context.Context, *RunReport) {
	*m.calls = append(*m.calls, "finish:"+m.name)
}

func TestMiddlewareOnion(t *testing.T) {
	var calls []string
	g, err := NewBuilder("g").
		Use(&recorderMW{name: "outer", calls: &calls}, &recorderMW{name: "inner", calls: &calls}).
		AddNode(passNode("a")).
		SetEntryPoint("a").
		Build()
	require.NoError(t, err)

	_, err = mustExecutor(t, g).Run(context.Background(), nil, execution.New())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"start:outer", "start:inner",
		"node:outer", "node:inner",
		"end:inner", "end:outer",
		"finish:outer", "finish:inner",
	}, calls)
}

func TestPauseWithoutStore(t *testing.T) {
	var calls []string
	g, err := NewBuilder("g").
		Use(&recorderMW{name: "mw", calls: &calls}).
		AddHumanNode("approve", HumanNodeConfig{Prompt: "proceed?"}).
		AddNode(passNode("after")).
		AddEdge("approve", "after").
		SetEntryPoint("approve").
		Build()
	require.NoError(t, err)

	report, err := mustExecutor(t, g).Run(context.Background(), nil, execution.New())
	require.NoError(t, err)

	assert.Equal(t, RunPaused, report.Status)
	assert.Empty(t, report.CheckpointID)
	require.Len(t, report.NodeReports, 1)
	assert.Equal(t, NodeWaiting, report.NodeReports[0].Status)
	// Paused runs do not finish.
	assert.NotContains(t, calls, "finish:mw")
}

func TestLifecycleEvents(t *testing.T) {
	eb, err := bus.New()
	require.NoError(t, err)
	defer eb.Close()

	g, err := NewBuilder("wired").
		AddNode(passNode("a")).
		SetEntryPoint("a").
		WithEventBus(eb).
		Build()
	require.NoError(t, err)

	ch, err := bus.OpenChannel[LifecycleEvent](eb, LifecycleChannelName("wired"))
	require.NoError(t, err)
	sub, err := ch.Subscribe(nil)
	require.NoError(t, err)
	defer sub.Close()

	report, err := mustExecutor(t, g).Run(context.Background(), nil, execution.New())
	require.NoError(t, err)

	var types []string
	deadline := time.After(2 * time.Second)
	for len(types) < 4 {
		select {
		case ev := <-sub.Events():
			types = append(types, ev.Event.Type)
			assert.Equal(t, report.RunID, ev.Event.RunID)
		case <-deadline:
			t.Fatalf("timed out waiting for events, got %v", types)
		}
	}
	// Dispatch is pooled, so only membership is deterministic.
	assert.ElementsMatch(t, []string{
		EventRunStart, EventNodeStart, EventNodeComplete, EventRunFinish,
	}, types)
}

func TestNewExecutorValidates(t *testing.T) {
	_, err := NewExecutor(nil)
	require.Error(t, err)

	g := &Graph{id: "g", nodes: map[string]Node{}, edgesFrom: map[string][]*Edge{}}
	_, err = NewExecutor(g)
	require.ErrorContains(t, err, "graph has no nodes")
}
