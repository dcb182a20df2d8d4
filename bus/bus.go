//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

// Package bus implements an in-process typed event bus. Events are published
// on named channels, serialized through registered schemas, fanned out by a
// worker pool, kept in a bounded per-channel history for replay, and dead
// lettered when a payload cannot be decoded for a subscriber.
//
// Delivery is at-least-once: history replay can duplicate events that race
// with a new subscription, so consumers needing exactly-once semantics
// dedupe by envelope ID.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
)

// Defaults applied by New and NewChannel.
const (
	DefaultDispatchPoolSize = 64
	DefaultHistoryLimit     = 64
	DefaultBuffer           = 16
)

// BackpressureMode controls what happens when a subscriber's buffer fills.
type BackpressureMode int

const (
	// DropOldest evicts the subscriber's oldest buffered event to make
	// room. Publishers never block.
	DropOldest BackpressureMode = iota
	// Block makes Publish wait until every subscriber has buffer space or
	// the context is done.
	Block
)

// ChannelConfig configures one channel.
type ChannelConfig struct {
	// History is the replay window size. Zero means the bus default,
	// negative disables replay.
	History int
	// Buffer is each subscriber's buffer size. Zero means the bus default.
	Buffer int
	// Backpressure selects the full-buffer policy.
	Backpressure BackpressureMode
}

// Stats is a snapshot of the bus counters.
type Stats struct {
	Published    uint64
	Delivered    uint64
	Dropped      uint64
	DeadLettered uint64
	// Channels is the number of channels currently open on the bus.
	Channels int
}

// Bus is the in-process event bus.
type Bus struct {
	schemas      *SchemaRegistry
	dlq          DeadLetterQueue
	pool         *ants.PoolWithFunc
	historyLimit int
	buffer       int

	mu       sync.RWMutex
	closed   bool
	channels map[string]*channelState

	published    atomic.Uint64
	delivered    atomic.Uint64
	dropped      atomic.Uint64
	deadLettered atomic.Uint64
}

// Option configures a Bus.
type Option func(*busOptions)

type busOptions struct {
	poolSize     int
	historyLimit int
	buffer       int
	dlq          DeadLetterQueue
	schemas      *SchemaRegistry
}

// WithDispatchPoolSize sets the size of the fan-out worker pool.
func WithDispatchPoolSize(size int) Option {
	return func(o *busOptions) {
		o.poolSize = size
	}
}

// WithHistoryLimit sets the default replay window applied to channels that
// do not set their own.
func WithHistoryLimit(limit int) Option {
	return func(o *busOptions) {
		o.historyLimit = limit
	}
}

// WithBuffer sets the default subscriber buffer applied to channels that do
// not set their own.
func WithBuffer(size int) Option {
	return func(o *busOptions) {
		o.buffer = size
	}
}

// WithDLQ replaces the built-in dead letter queue.
func WithDLQ(dlq DeadLetterQueue) Option {
	return func(o *busOptions) {
		o.dlq = dlq
	}
}

// WithSchemaRegistry shares a registry across buses instead of creating a
// private one.
func WithSchemaRegistry(schemas *SchemaRegistry) Option {
	return func(o *busOptions) {
		o.schemas = schemas
	}
}

// New creates an event bus.
func New(opts ...Option) (*Bus, error) {
	options := &busOptions{
		poolSize:     DefaultDispatchPoolSize,
		historyLimit: DefaultHistoryLimit,
		buffer:       DefaultBuffer,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.schemas == nil {
		options.schemas = NewSchemaRegistry()
	}
	if options.dlq == nil {
		options.dlq = NewDLQ(DefaultDLQCapacity)
	}

	pool, err := createDispatchPool(options.poolSize)
	if err != nil {
		return nil, err
	}
	return &Bus{
		schemas:      options.schemas,
		dlq:          options.dlq,
		pool:         pool,
		historyLimit: options.historyLimit,
		buffer:       options.buffer,
		channels:     make(map[string]*channelState),
	}, nil
}

// SchemaRegistry returns the registry channels validate against.
func (b *Bus) SchemaRegistry() *SchemaRegistry { return b.schemas }

// DLQ returns the dead letter queue.
func (b *Bus) DLQ() DeadLetterQueue { return b.dlq }

// Stats returns a snapshot of the counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	channels := len(b.channels)
	b.mu.RUnlock()
	return Stats{
		Published:    b.published.Load(),
		Delivered:    b.delivered.Load(),
		Dropped:      b.dropped.Load(),
		DeadLettered: b.deadLettered.Load(),
		Channels:     channels,
	}
}

// Close shuts the bus down. Every subscription is closed and further
// publishes fail with ErrClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	channels := make([]*channelState, 0, len(b.channels))
	for _, st := range b.channels {
		channels = append(channels, st)
	}
	b.mu.Unlock()

	for _, st := range channels {
		st.closeAll()
	}
	b.pool.Release()
}

func (b *Bus) newChannelState(name, eventType string, version int, cfg ChannelConfig) (*channelState, error) {
	history := cfg.History
	if history == 0 {
		history = b.historyLimit
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = b.buffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	if _, exists := b.channels[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrChannelExists, name)
	}
	st := &channelState{
		bus:       b,
		name:      name,
		eventType: eventType,
		version:   version,
		history:   history,
		buffer:    buffer,
		mode:      cfg.Backpressure,
		subs:      make(map[uint64]*subscriber),
	}
	b.channels[name] = st
	return st, nil
}

// channelState is the untyped core of a channel, shared by every typed
// handle created for it.
type channelState struct {
	bus       *Bus
	name      string
	eventType string
	version   int
	history   int
	buffer    int
	mode      BackpressureMode

	mu      sync.Mutex
	ring    []*Envelope
	subs    map[uint64]*subscriber
	nextSub uint64
}

// publish appends the envelope to the history ring and fans it out. On
// DropOldest channels the fan-out goes through the worker pool and never
// blocks the caller.
func (st *channelState) publish(ctx context.Context, env *Envelope) error {
	st.mu.Lock()
	if st.history > 0 {
		if len(st.ring) >= st.history {
			st.ring = st.ring[1:]
		}
		st.ring = append(st.ring, env)
	}
	subs := make([]*subscriber, 0, len(st.subs))
	for _, s := range st.subs {
		subs = append(subs, s)
	}
	st.mu.Unlock()

	st.bus.published.Add(1)
	for _, sub := range subs {
		if st.mode == Block {
			if err := sub.send(ctx, env); err != nil {
				return err
			}
			continue
		}
		st.bus.dispatch(sub, env)
	}
	return nil
}

// subscribe registers a new subscriber and returns it together with the
// history snapshot to replay. Both happen under one lock so no published
// envelope falls between the snapshot and the registration.
func (st *channelState) subscribe() (*subscriber, []*Envelope) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sub := &subscriber{
		id:    st.nextSub,
		raw:   make(chan *Envelope, st.buffer),
		done:  make(chan struct{}),
		state: st,
	}
	st.nextSub++
	st.subs[sub.id] = sub
	replay := append([]*Envelope(nil), st.ring...)
	return sub, replay
}

func (st *channelState) unsubscribe(id uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.subs, id)
}

func (st *channelState) closeAll() {
	st.mu.Lock()
	subs := make([]*subscriber, 0, len(st.subs))
	for _, s := range st.subs {
		subs = append(subs, s)
	}
	st.subs = make(map[uint64]*subscriber)
	st.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
}

// subscriber is the untyped delivery endpoint. The typed Subscription pumps
// its raw channel.
type subscriber struct {
	id    uint64
	raw   chan *Envelope
	done  chan struct{}
	once  sync.Once
	state *channelState
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// send delivers with blocking backpressure.
func (s *subscriber) send(ctx context.Context, env *Envelope) error {
	select {
	case s.raw <- env:
		s.state.bus.delivered.Add(1)
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// push delivers with drop-oldest backpressure.
func (s *subscriber) push(env *Envelope) {
	bus := s.state.bus
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.raw <- env:
		bus.delivered.Add(1)
		return
	default:
	}
	// Buffer full: evict the oldest envelope and retry once.
	select {
	case <-s.raw:
		bus.dropped.Add(1)
	default:
	}
	select {
	case s.raw <- env:
		bus.delivered.Add(1)
	default:
		bus.dropped.Add(1)
	}
}

type dispatchParam struct {
	sub *subscriber
	env *Envelope
}

func (p *dispatchParam) reset() {
	p.sub = nil
	p.env = nil
}

var dispatchParamPool = &sync.Pool{
	New: func() any { return new(dispatchParam) },
}

func createDispatchPool(size int) (*ants.PoolWithFunc, error) {
	if size <= 0 {
		return nil, errors.New("dispatch pool size must be greater than 0")
	}
	pool, err := ants.NewPoolWithFunc(size, func(args any) {
		param, ok := args.(*dispatchParam)
		if !ok {
			panic("bus dispatch pool args type error")
		}
		defer func() {
			param.reset()
			dispatchParamPool.Put(param)
		}()
		param.sub.push(param.env)
	})
	if err != nil {
		return nil, fmt.Errorf("create bus dispatch pool: %w", err)
	}
	return pool, nil
}

func (b *Bus) dispatch(sub *subscriber, env *Envelope) {
	param := dispatchParamPool.Get().(*dispatchParam)
	param.sub = sub
	param.env = env
	if err := b.pool.Invoke(param); err != nil {
		// Pool unavailable, deliver on the caller's goroutine.
		param.reset()
		dispatchParamPool.Put(param)
		sub.push(env)
	}
}
