//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry provides tracing and metrics instrumentation for graph
// runs. Everything defaults to noop providers; applications opt in by
// installing real providers through SetTracerProvider and SetMeterProvider.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	// ServiceName identifies this runtime in telemetry backends.
	ServiceName = "spice"
	// InstrumentName scopes every tracer and meter created here.
	InstrumentName = "trpc.go.spice"

	OperationRunGraph    = "run_graph"
	OperationResumeRun   = "resume_run"
	OperationExecuteNode = "execute_node"
)

// Attribute keys attached to spans and metrics.
const (
	KeyGraphID           = "spice.graph.id"
	KeyRunID             = "spice.run.id"
	KeyNodeID            = "spice.node.id"
	KeyNodeKind          = "spice.node.kind"
	KeyNodeSuccess       = "spice.node.success"
	KeyRunStatus         = "spice.run.status"
	KeyCheckpointTrigger = "spice.checkpoint.trigger"
)

var (
	// TracerProvider and Tracer produce graph and node spans.
	TracerProvider trace.TracerProvider = tracenoop.NewTracerProvider()
	Tracer         trace.Tracer         = TracerProvider.Tracer(InstrumentName)

	// MeterProvider and Meter back the counters below.
	MeterProvider metric.MeterProvider = metricnoop.NewMeterProvider()
	Meter         metric.Meter         = MeterProvider.Meter(InstrumentName)

	RunCounter        metric.Int64Counter     = metricnoop.Int64Counter{}
	RunDuration       metric.Float64Histogram = metricnoop.Float64Histogram{}
	NodeCounter       metric.Int64Counter     = metricnoop.Int64Counter{}
	NodeDuration      metric.Float64Histogram = metricnoop.Float64Histogram{}
	CheckpointCounter metric.Int64Counter     = metricnoop.Int64Counter{}
)

// SetTracerProvider installs the tracer provider used for graph spans.
// A nil provider is ignored.
func SetTracerProvider(tp trace.TracerProvider) {
	if tp == nil {
		return
	}
	TracerProvider = tp
	Tracer = tp.Tracer(InstrumentName)
}

// SetMeterProvider installs the meter provider and recreates the
// instruments. A nil provider is ignored.
func SetMeterProvider(mp metric.MeterProvider) error {
	if mp == nil {
		return nil
	}
	MeterProvider = mp
	Meter = mp.Meter(InstrumentName)

	var err error
	if RunCounter, err = Meter.Int64Counter("spice.graph.run.count",
		metric.WithDescription("Finished graph runs by status.")); err != nil {
		return err
	}
	if RunDuration, err = Meter.Float64Histogram("spice.graph.run.duration",
		metric.WithDescription("Graph run duration in seconds."),
		metric.WithUnit("s")); err != nil {
		return err
	}
	if NodeCounter, err = Meter.Int64Counter("spice.graph.node.count",
		metric.WithDescription("Executed nodes by kind and outcome.")); err != nil {
		return err
	}
	if NodeDuration, err = Meter.Float64Histogram("spice.graph.node.duration",
		metric.WithDescription("Node execution duration in seconds."),
		metric.WithUnit("s")); err != nil {
		return err
	}
	if CheckpointCounter, err = Meter.Int64Counter("spice.graph.checkpoint.count",
		metric.WithDescription("Checkpoint saves by trigger.")); err != nil {
		return err
	}
	return nil
}

// NewRunSpanName names the span covering one graph run, e.g. "run_graph
// support-flow".
func NewRunSpanName(graphID string) string {
	return fmt.Sprintf("%s %s", OperationRunGraph, graphID)
}

// NewResumeSpanName names the span covering a resumed run.
func NewResumeSpanName(graphID string) string {
	return fmt.Sprintf("%s %s", OperationResumeRun, graphID)
}

// NewNodeSpanName names the span covering one node execution.
func NewNodeSpanName(nodeID string) string {
	return fmt.Sprintf("%s %s", OperationExecuteNode, nodeID)
}

// RecordRun records one finished graph run.
func RecordRun(ctx context.Context, graphID, status string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(KeyGraphID, graphID),
		attribute.String(KeyRunStatus, status),
	)
	RunCounter.Add(ctx, 1, attrs)
	RunDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordNode records one executed node.
func RecordNode(ctx context.Context, graphID, nodeID, kind string, success bool, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(KeyGraphID, graphID),
		attribute.String(KeyNodeID, nodeID),
		attribute.String(KeyNodeKind, kind),
		attribute.Bool(KeyNodeSuccess, success),
	)
	NodeCounter.Add(ctx, 1, attrs)
	NodeDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordCheckpoint counts one checkpoint save. The trigger distinguishes
// periodic saves from pause and error saves.
func RecordCheckpoint(ctx context.Context, graphID, trigger string) {
	CheckpointCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(KeyGraphID, graphID),
		attribute.String(KeyCheckpointTrigger, trigger),
	))
}
