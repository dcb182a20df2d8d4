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
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/spice-go/execution"
	"trpc.group/trpc-go/spice-go/log"
	"trpc.group/trpc-go/spice-go/message"
	"trpc.group/trpc-go/spice-go/telemetry"
)

// DefaultStepBudget bounds cyclic runs that never reach a terminal node.
const DefaultStepBudget = 10000

// Checkpoint triggers recorded in telemetry.
const (
	triggerPause    = "pause"
	triggerError    = "error"
	triggerPeriodic = "periodic"
)

// Executor drives messages through one graph. An executor is stateless
// across runs and safe for concurrent use; all per-run state lives on the
// stack of Run and Resume.
type Executor struct {
	graph      *Graph
	store      CheckpointStore
	ckptCfg    CheckpointConfig
	stepBudget int
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithCheckpointStore enables checkpoint persistence. Without a store,
// pauses still produce PAUSED reports but nothing can be resumed.
func WithCheckpointStore(store CheckpointStore) ExecutorOption {
	return func(e *Executor) { e.store = store }
}

// WithCheckpointConfig replaces the default checkpoint policy.
func WithCheckpointConfig(cfg CheckpointConfig) ExecutorOption {
	return func(e *Executor) { e.ckptCfg = cfg }
}

// WithStepBudget caps how many nodes one run may execute. Values below one
// keep the default.
func WithStepBudget(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.stepBudget = n
		}
	}
}

// NewExecutor validates the graph and builds an executor for it.
func NewExecutor(g *Graph, opts ...ExecutorOption) (*Executor, error) {
	if g == nil {
		return nil, errors.New("graph is nil")
	}
	if res := g.Validate(); !res.Valid() {
		return nil, res.Err()
	}
	e := &Executor{
		graph:      g,
		ckptCfg:    DefaultCheckpointConfig(),
		stepBudget: DefaultStepBudget,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Graph returns the graph this executor runs.
func (e *Executor) Graph() *Graph { return e.graph }

// Run executes the graph from its entry point until a terminal node, a
// pause, a failure or cancellation. The initial message content is taken
// from input["content"], falling back to input["input"]; the whole input
// map seeds both the message data and the run state.
//
// SUCCESS and PAUSED reports come back with a nil error. FAILED and
// CANCELLED return the error alongside the partial report so callers can
// inspect the trace.
func (e *Executor) Run(ctx context.Context, input map[string]any, ec execution.Context) (*RunReport, error) {
	msg, err := e.initialMessage(input)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, runSeed{
		runID:    uuid.NewString(),
		nodeID:   e.graph.EntryPoint(),
		msg:      msg,
		state:    message.DataFrom(input),
		exec:     ec,
		spanName: telemetry.NewRunSpanName(e.graph.ID()),
	})
}

func (e *Executor) initialMessage(input map[string]any) (*message.Message, error) {
	var content string
	if v, ok := input[KeyInputContent].(string); ok {
		content = v
	} else if v, ok := input[KeyInput].(string); ok {
		content = v
	}
	msg := message.New(content, message.RoleUser, message.WithInitialData(input))
	return msg.TransitionTo(message.StateRunning, e.graph.EntryPoint())
}

// runSeed is everything the step loop starts from. Run and Resume both
// build one.
type runSeed struct {
	runID    string
	nodeID   string
	msg      *message.Message
	state    message.Data
	exec     execution.Context
	resumed  bool
	spanName string
	// firstResult stands in for the already-executed checkpoint node: when
	// set, the loop starts by routing from nodeID instead of running it.
	firstResult *NodeResult
	// consumedCheckpoint is deleted after a successful resumed run when
	// AutoCleanup is on.
	consumedCheckpoint string
}

// execute wraps the step loop in the run span, the OnStart middleware chain
// and the terminal bookkeeping shared by Run and Resume.
func (e *Executor) execute(ctx context.Context, seed runSeed) (*RunReport, error) {
	report := &RunReport{
		GraphID:   e.graph.ID(),
		RunID:     seed.runID,
		StartedAt: time.Now(),
	}

	ctx, span := telemetry.Tracer.Start(ctx, seed.spanName, trace.WithAttributes(
		attribute.String(telemetry.KeyGraphID, e.graph.ID()),
		attribute.String(telemetry.KeyRunID, seed.runID),
	))
	defer span.End()

	ectx := execution.NewContext(ctx, seed.exec)
	startType := EventRunStart
	if seed.resumed {
		startType = EventRunResume
	}
	e.graph.publisher.publish(ectx, LifecycleEvent{
		Type:    startType,
		GraphID: e.graph.ID(),
		RunID:   seed.runID,
		NodeID:  seed.nodeID,
	})

	info := &RunInfo{
		GraphID:    e.graph.ID(),
		RunID:      seed.runID,
		EntryPoint: seed.nodeID,
		Resumed:    seed.resumed,
		Exec:       seed.exec,
	}
	var runErr error
	chain := composeStart(e.graph.Middlewares(), info, func(ctx context.Context) error {
		runErr = e.loop(ctx, seed, report)
		return runErr
	})
	chainErr := chain(ctx)
	if runErr == nil && chainErr != nil {
		if report.Status == "" {
			// A middleware failed before the loop ran.
			report.Status = RunFailed
			report.Error = chainErr.Error()
			runErr = chainErr
		} else {
			log.Warnf("run %s: middleware error after completion: %v", seed.runID, chainErr)
		}
	}
	report.Duration = time.Since(report.StartedAt)

	span.SetAttributes(attribute.String(telemetry.KeyRunStatus, string(report.Status)))
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, report.Error)
	}

	if report.Status != RunPaused {
		e.graph.publisher.publish(ectx, LifecycleEvent{
			Type:    EventRunFinish,
			GraphID: e.graph.ID(),
			RunID:   seed.runID,
			Status:  string(report.Status),
			Error:   report.Error,
		})
		for _, mw := range e.graph.Middlewares() {
			mw.OnFinish(ctx, report)
		}
	}

	if report.Status == RunSuccess && seed.consumedCheckpoint != "" &&
		e.store != nil && e.ckptCfg.AutoCleanup {
		if err := e.store.Delete(ctx, seed.consumedCheckpoint); err != nil {
			log.Warnf("deleting consumed checkpoint %s: %v", seed.consumedCheckpoint, err)
		}
	}
	return report, runErr
}

// loop advances the run one node at a time until a terminal node, a pause,
// a failure, cancellation or the step budget. It owns all report fields.
func (e *Executor) loop(ctx context.Context, seed runSeed, report *RunReport) error {
	msg := seed.msg
	state := seed.state
	current := seed.nodeID

	// A resumed pause routes from the checkpointed node instead of
	// re-running it.
	if seed.firstResult != nil {
		next, err := e.route(current, seed.firstResult, state)
		if err != nil {
			return e.fail(ctx, report, msg, state, current,
				&ExecutionError{NodeID: current, Step: 0, Err: err})
		}
		if next == "" {
			return e.succeed(report, seed.firstResult.Data())
		}
		current = next
	}

	for step := 0; ; step++ {
		if err := ctx.Err(); err != nil {
			return e.interrupted(ctx, report, msg, state, current, err)
		}
		if step >= e.stepBudget {
			return e.fail(ctx, report, msg, state, current,
				&ExecutionError{NodeID: current, Step: step, Err: ErrStepBudgetExceeded})
		}
		node, ok := e.graph.Node(current)
		if !ok {
			return e.fail(ctx, report, msg, state, current,
				&ExecutionError{NodeID: current, Step: step, Err: fmt.Errorf("%w: %q", ErrNodeNotFound, current)})
		}

		nc := &NodeContext{
			GraphID: e.graph.ID(),
			RunID:   seed.runID,
			Step:    step,
			State:   state,
			Exec:    seed.exec,
			Message: msg,
		}
		res, nodeReport, err := e.runNode(ctx, node, nc)
		report.NodeReports = append(report.NodeReports, nodeReport)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return e.interrupted(ctx, report, msg, state, node.ID(), err)
			}
			return e.fail(ctx, report, msg, state, node.ID(),
				&ExecutionError{NodeID: node.ID(), Step: step, Err: err})
		}

		state = advance(state, node, res)
		if reply := res.Reply(); reply != nil {
			msg = reply
		}

		if res.Waiting() || node.Kind() == KindHuman {
			return e.pause(ctx, report, msg, state, node.ID(), res)
		}

		if e.store != nil && e.ckptCfg.SaveEveryNNodes > 0 && (step+1)%e.ckptCfg.SaveEveryNNodes == 0 {
			e.savePeriodic(ctx, report, node.ID(), msg, state)
		}

		next, err := e.route(node.ID(), res, state)
		if err != nil {
			return e.fail(ctx, report, msg, state, node.ID(),
				&ExecutionError{NodeID: node.ID(), Step: step, Err: err})
		}
		if next == "" {
			return e.succeed(report, res.Data())
		}
		current = next
	}
}

// runNode executes one node inside the middleware chain and its span,
// emitting node lifecycle events and the per-node report entry.
func (e *Executor) runNode(ctx context.Context, node Node, nc *NodeContext) (*NodeResult, *NodeReport, error) {
	nodeReport := &NodeReport{
		NodeID:    node.ID(),
		Kind:      node.Kind(),
		StartedAt: time.Now(),
	}

	ctx = execution.NewContext(ctx, nc.Exec)
	ctx, span := telemetry.Tracer.Start(ctx, telemetry.NewNodeSpanName(node.ID()), trace.WithAttributes(
		attribute.String(telemetry.KeyGraphID, nc.GraphID),
		attribute.String(telemetry.KeyRunID, nc.RunID),
		attribute.String(telemetry.KeyNodeID, node.ID()),
		attribute.String(telemetry.KeyNodeKind, string(node.Kind())),
	))
	defer span.End()

	e.graph.publisher.publish(ctx, LifecycleEvent{
		Type:    EventNodeStart,
		GraphID: nc.GraphID,
		RunID:   nc.RunID,
		NodeID:  node.ID(),
	})

	handler := composeNode(e.graph.Middlewares(), node, func(ctx context.Context, nc *NodeContext) (*NodeResult, error) {
		return node.Run(ctx, nc)
	})
	res, err := handler(ctx, nc)
	nodeReport.Duration = time.Since(nodeReport.StartedAt)

	if err == nil && res == nil {
		err = fmt.Errorf("node %q returned no result", node.ID())
	}
	if err != nil {
		nodeReport.Status = NodeFailed
		nodeReport.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.graph.publisher.publish(ctx, LifecycleEvent{
			Type:    EventNodeError,
			GraphID: nc.GraphID,
			RunID:   nc.RunID,
			NodeID:  node.ID(),
			Error:   err.Error(),
		})
		return nil, nodeReport, err
	}

	nodeReport.Status = NodeCompleted
	if res.Waiting() {
		nodeReport.Status = NodeWaiting
	}
	nodeReport.Output = res.Data()
	nodeReport.MetadataDelta = copyMap(res.Metadata())
	e.graph.publisher.publish(ctx, LifecycleEvent{
		Type:    EventNodeComplete,
		GraphID: nc.GraphID,
		RunID:   nc.RunID,
		NodeID:  node.ID(),
		Status:  string(nodeReport.Status),
	})
	return res, nodeReport, nil
}

// advance folds one node result into the run state: the node's data lands
// under its id and under KeyPrevious, every metadata key propagates as-is,
// and an agent reply lands under KeyPreviousMessage.
func advance(state message.Data, node Node, res *NodeResult) message.Data {
	state = state.Set(node.ID(), res.Data()).Set(KeyPrevious, res.Data())
	state = state.Merge(res.Metadata())
	if reply := res.Reply(); reply != nil {
		state = state.Set(KeyPreviousMessage, reply)
	}
	return state
}

// route picks the successor of a node. Regular edges are tried in priority
// order first, fallback edges only when none matched. An empty result means
// the node is terminal.
func (e *Executor) route(from string, res *NodeResult, state message.Data) (string, error) {
	out := e.graph.edgesFrom[from]
	if len(out) == 0 {
		return "", nil
	}
	for _, edge := range out {
		if edge.Fallback {
			continue
		}
		if edge.Condition == nil || edge.Condition(res, state) {
			return edge.To, nil
		}
	}
	for _, edge := range out {
		if !edge.Fallback {
			continue
		}
		if edge.Condition == nil || edge.Condition(res, state) {
			return edge.To, nil
		}
	}
	return "", ErrNoMatchingEdge
}

func (e *Executor) succeed(report *RunReport, result any) error {
	report.Status = RunSuccess
	report.Result = result
	return nil
}

// fail finishes the run as FAILED, persisting an error checkpoint when
// configured.
func (e *Executor) fail(ctx context.Context, report *RunReport, msg *message.Message, state message.Data, nodeID string, err error) error {
	report.Status = RunFailed
	report.Error = err.Error()
	if e.store != nil && e.ckptCfg.SaveOnError {
		report.CheckpointID = e.saveFailure(ctx, report, nodeID, msg, state)
	}
	return err
}

// interrupted maps a context error: cancellation finishes the run as
// CANCELLED, a lapsed deadline as FAILED with a TimeoutError.
func (e *Executor) interrupted(ctx context.Context, report *RunReport, msg *message.Message, state message.Data, nodeID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return e.fail(ctx, report, msg, state, nodeID,
			&TimeoutError{NodeID: nodeID, Message: "run deadline exceeded"})
	}
	cerr := &CancellationError{RunID: report.RunID, Err: err}
	report.Status = RunCancelled
	report.Error = cerr.Error()
	return cerr
}

// pause folds the state into the message, moves it to WAITING, persists a
// checkpoint when a store is configured and finishes the run as PAUSED.
// OnFinish does not fire; the resumed continuation gets its own pair.
func (e *Executor) pause(ctx context.Context, report *RunReport, msg *message.Message, state message.Data, nodeID string, res *NodeResult) error {
	waiting, err := msg.ReplaceData(state).TransitionTo(message.StateWaiting, nodeID)
	if err != nil {
		return e.fail(ctx, report, msg, state, nodeID, err)
	}
	report.Status = RunPaused
	if e.store != nil {
		ckpt := e.newCheckpoint(report.RunID, nodeID, waiting, res.Interaction())
		if err := e.store.Save(ctx, ckpt); err != nil {
			return e.fail(ctx, report, msg, state, nodeID,
				&CheckpointError{Op: "save", CheckpointID: ckpt.ID, Err: err})
		}
		report.CheckpointID = ckpt.ID
		telemetry.RecordCheckpoint(ctx, e.graph.ID(), triggerPause)
	}
	e.graph.publisher.publish(ctx, LifecycleEvent{
		Type:    EventRunPause,
		GraphID: e.graph.ID(),
		RunID:   report.RunID,
		NodeID:  nodeID,
		Status:  string(RunPaused),
	})
	return nil
}

// saveFailure persists a FAILED checkpoint so an operator can retry the
// failing node. Best effort: a save error is logged, not propagated, since
// the run already has its failure.
func (e *Executor) saveFailure(ctx context.Context, report *RunReport, nodeID string, msg *message.Message, state message.Data) string {
	folded := msg.ReplaceData(state)
	failed, err := folded.TransitionTo(message.StateFailed, nodeID)
	if err != nil {
		failed = folded
	}
	ckpt := e.newCheckpoint(report.RunID, nodeID, failed, nil)
	if err := e.store.Save(ctx, ckpt); err != nil {
		log.Errorf("saving failure checkpoint for run %s: %v", report.RunID, err)
		return ""
	}
	telemetry.RecordCheckpoint(ctx, e.graph.ID(), triggerError)
	return ckpt.ID
}

// savePeriodic persists a mid-run RUNNING checkpoint. Best effort.
func (e *Executor) savePeriodic(ctx context.Context, report *RunReport, nodeID string, msg *message.Message, state message.Data) {
	ckpt := e.newCheckpoint(report.RunID, nodeID, msg.ReplaceData(state), nil)
	if err := e.store.Save(ctx, ckpt); err != nil {
		log.Warnf("periodic checkpoint for run %s: %v", report.RunID, err)
		return
	}
	telemetry.RecordCheckpoint(ctx, e.graph.ID(), triggerPeriodic)
}

func (e *Executor) newCheckpoint(runID, nodeID string, msg *message.Message, interaction *HumanInteraction) *Checkpoint {
	ckpt := &Checkpoint{
		ID:                 uuid.NewString(),
		RunID:              runID,
		GraphID:            e.graph.ID(),
		NodeID:             nodeID,
		Message:            msg,
		PendingInteraction: interaction,
		CreatedAt:          time.Now(),
	}
	if e.ckptCfg.TTL > 0 {
		expires := ckpt.CreatedAt.Add(e.ckptCfg.TTL)
		ckpt.ExpiresAt = &expires
	}
	return ckpt
}

func copyMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
