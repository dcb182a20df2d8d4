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
	"time"

	"trpc.group/trpc-go/spice-go/log"
	"trpc.group/trpc-go/spice-go/telemetry"
)

// Backoff computes the delay before a retry. Attempts are numbered from 1.
type Backoff interface {
	Next(attempt int) time.Duration
}

// FixedBackoff waits the same delay between attempts.
type FixedBackoff struct {
	Delay time.Duration
}

// Next implements Backoff.
func (b FixedBackoff) Next(int) time.Duration { return b.Delay }

// LinearBackoff grows the delay by Step per attempt, capped at Max when Max
// is positive.
type LinearBackoff struct {
	Step time.Duration
	Max  time.Duration
}

// Next implements Backoff.
func (b LinearBackoff) Next(attempt int) time.Duration {
	d := time.Duration(attempt) * b.Step
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// ExponentialBackoff doubles the delay each attempt, starting at Base and
// capped at Max when Max is positive.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

// Next implements Backoff.
func (b ExponentialBackoff) Next(attempt int) time.Duration {
	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// Retry reruns failed nodes up to a maximum attempt count. Cancellation and
// deadline errors are never retried.
type Retry struct {
	BaseMiddleware
	maxAttempts int
	backoff     Backoff
	match       func(Node, error) bool
}

// RetryOption configures a Retry middleware.
type RetryOption func(*Retry)

// WithRetryMatch limits retries to errors the matcher accepts.
func WithRetryMatch(match func(Node, error) bool) RetryOption {
	return func(r *Retry) { r.match = match }
}

// NewRetry builds a retry middleware. maxAttempts counts the first try; a
// nil backoff retries immediately.
func NewRetry(maxAttempts int, backoff Backoff, opts ...RetryOption) *Retry {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	r := &Retry{maxAttempts: maxAttempts, backoff: backoff}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnNode implements Middleware.
func (r *Retry) OnNode(ctx context.Context, node Node, nc *NodeContext, next NodeHandler) (*NodeResult, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		res, err := next(ctx, nc)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		if r.match != nil && !r.match(node, err) {
			break
		}
		if attempt == r.maxAttempts {
			break
		}
		var delay time.Duration
		if r.backoff != nil {
			delay = r.backoff.Next(attempt)
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		log.Debugf("retrying node %s, attempt %d failed: %v", node.ID(), attempt, err)
	}
	return nil, lastErr
}

// errorPolicy implements the SKIP and CONTINUE failure policies.
type errorPolicy struct {
	BaseMiddleware
	match            func(Node, error) bool
	continueWithPrev bool
}

// NewSkipOnError builds a middleware that turns matching node failures into
// successes with no data. A nil matcher matches every failure. Cancellation
// and deadline errors always propagate.
func NewSkipOnError(match func(Node, error) bool) Middleware {
	return &errorPolicy{match: match}
}

// NewContinueOnError is NewSkipOnError except the substituted result carries
// the previous node's data forward.
func NewContinueOnError(match func(Node, error) bool) Middleware {
	return &errorPolicy{match: match, continueWithPrev: true}
}

// OnNode implements Middleware.
func (p *errorPolicy) OnNode(ctx context.Context, node Node, nc *NodeContext, next NodeHandler) (*NodeResult, error) {
	res, err := next(ctx, nc)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if p.match != nil && !p.match(node, err) {
		return nil, err
	}
	var data any
	if p.continueWithPrev {
		data, _ = nc.State.Get(KeyPrevious)
	}
	log.Warnf("suppressing failure of node %s: %v", node.ID(), err)
	return NewResult(nc, data), nil
}

// RunTimeout bounds the whole run with one deadline. The executor reports
// the resulting deadline expiry as a TimeoutError.
type RunTimeout struct {
	BaseMiddleware
	d time.Duration
}

// NewRunTimeout builds a run-wide timeout middleware.
func NewRunTimeout(d time.Duration) *RunTimeout {
	return &RunTimeout{d: d}
}

// OnStart implements Middleware.
func (t *RunTimeout) OnStart(ctx context.Context, _ *RunInfo, next func(ctx context.Context) error) error {
	if t.d <= 0 {
		return next(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return next(ctx)
}

// Logging reports run and node progress through the package logger.
type Logging struct {
	BaseMiddleware
}

// NewLogging builds a logging middleware.
func NewLogging() *Logging { return &Logging{} }

// OnStart implements Middleware.
func (l *Logging) OnStart(ctx context.Context, info *RunInfo, next func(ctx context.Context) error) error {
	verb := "starting"
	if info.Resumed {
		verb = "resuming"
	}
	log.Infof("%s run %s of graph %s at node %s", verb, info.RunID, info.GraphID, info.EntryPoint)
	return next(ctx)
}

// OnNode implements Middleware.
func (l *Logging) OnNode(ctx context.Context, node Node, nc *NodeContext, next NodeHandler) (*NodeResult, error) {
	start := time.Now()
	res, err := next(ctx, nc)
	if err != nil {
		log.Errorf("node %s (%s) failed after %s: %v", node.ID(), node.Kind(), time.Since(start), err)
		return nil, err
	}
	log.Debugf("node %s (%s) completed in %s", node.ID(), node.Kind(), time.Since(start))
	return res, nil
}

// OnFinish implements Middleware.
func (l *Logging) OnFinish(_ context.Context, report *RunReport) {
	log.Infof("run %s of graph %s finished %s in %s",
		report.RunID, report.GraphID, report.Status, report.Duration)
}

// Metrics records node and run measurements through the telemetry package.
type Metrics struct {
	BaseMiddleware
}

// NewMetrics builds a metrics middleware.
func NewMetrics() *Metrics { return &Metrics{} }

// OnNode implements Middleware.
func (m *Metrics) OnNode(ctx context.Context, node Node, nc *NodeContext, next NodeHandler) (*NodeResult, error) {
	start := time.Now()
	res, err := next(ctx, nc)
	telemetry.RecordNode(ctx, nc.GraphID, node.ID(), string(node.Kind()), err == nil, time.Since(start))
	return res, err
}

// OnFinish implements Middleware.
func (m *Metrics) OnFinish(ctx context.Context, report *RunReport) {
	telemetry.RecordRun(ctx, report.GraphID, string(report.Status), report.Duration)
}
