//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TypedEvent pairs a decoded event with its envelope.
type TypedEvent[T any] struct {
	Event    T
	Envelope *Envelope
}

// Channel is a typed handle on a named channel.
type Channel[T any] struct {
	state  *channelState
	encode func(T) (string, error)
	decode func(string) (T, error)
}

// NewChannel creates the named channel for event type T. The (eventType,
// version) pair must already be registered with the bus's schema registry.
func NewChannel[T any](b *Bus, name, eventType string, version int, cfg ChannelConfig) (*Channel[T], error) {
	entry, ok := b.schemas.codec(eventType, version)
	if !ok {
		return nil, &BusError{
			Op:      "channel",
			Channel: name,
			Err:     fmt.Errorf("%w: %s v%d", ErrSchemaNotRegistered, eventType, version),
		}
	}
	state, err := b.newChannelState(name, eventType, version, cfg)
	if err != nil {
		return nil, &BusError{Op: "channel", Channel: name, Err: err}
	}
	return newTypedChannel[T](state, entry), nil
}

func newTypedChannel[T any](state *channelState, entry codecEntry) *Channel[T] {
	return &Channel[T]{
		state: state,
		encode: func(event T) (string, error) {
			return entry.encode(event)
		},
		decode: func(payload string) (T, error) {
			var zero T
			v, err := entry.decode(payload)
			if err != nil {
				return zero, err
			}
			event, ok := v.(T)
			if !ok {
				return zero, fmt.Errorf("decoded %T, channel carries %T", v, zero)
			}
			return event, nil
		},
	}
}

// OpenChannel returns a typed handle on an existing channel. The channel's
// registered (eventType, version) pair must carry a codec for T. Use it to
// attach another publisher or subscriber to a channel someone else created.
func OpenChannel[T any](b *Bus, name string) (*Channel[T], error) {
	b.mu.RLock()
	state, ok := b.channels[name]
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, &BusError{Op: "channel", Channel: name, Err: ErrClosed}
	}
	if !ok {
		return nil, &BusError{Op: "channel", Channel: name, Err: ErrChannelNotFound}
	}
	entry, ok := b.schemas.codec(state.eventType, state.version)
	if !ok {
		return nil, &BusError{
			Op:      "channel",
			Channel: name,
			Err:     fmt.Errorf("%w: %s v%d", ErrSchemaNotRegistered, state.eventType, state.version),
		}
	}
	return newTypedChannel[T](state, entry), nil
}

// Name returns the channel name.
func (c *Channel[T]) Name() string { return c.state.name }

// EventType returns the registered event type.
func (c *Channel[T]) EventType() string { return c.state.eventType }

// SchemaVersion returns the registered schema version.
func (c *Channel[T]) SchemaVersion() int { return c.state.version }

// Publish serializes the event into an envelope and fans it out. It returns
// the envelope ID. On DropOldest channels the caller never blocks on slow
// subscribers.
func (c *Channel[T]) Publish(ctx context.Context, event T, meta Metadata) (string, error) {
	b := c.state.bus
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return "", &BusError{Op: "publish", Channel: c.state.name, Err: ErrClosed}
	}

	payload, err := c.encode(event)
	if err != nil {
		return "", &BusError{Op: "publish", Channel: c.state.name, Err: err}
	}
	env := &Envelope{
		ID:            uuid.NewString(),
		ChannelName:   c.state.name,
		EventType:     c.state.eventType,
		SchemaVersion: c.state.version,
		Payload:       payload,
		Metadata:      meta,
		Timestamp:     time.Now(),
	}
	if err := c.state.publish(ctx, env); err != nil {
		return "", &BusError{Op: "publish", Channel: c.state.name, Err: err}
	}
	return env.ID, nil
}

// Subscribe attaches a consumer to the channel. The configured history
// window is replayed first, then live events follow. A nil filter receives
// everything; envelopes that fail to decode go to the dead letter queue and
// are never observed by the consumer.
func (c *Channel[T]) Subscribe(filter func(T) bool) (*Subscription[T], error) {
	b := c.state.bus
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, &BusError{Op: "subscribe", Channel: c.state.name, Err: ErrClosed}
	}

	sub, replay := c.state.subscribe()
	s := &Subscription[T]{
		channel: c,
		sub:     sub,
		filter:  filter,
		events:  make(chan TypedEvent[T]),
	}
	go s.pump(replay)
	return s, nil
}

// Subscription delivers decoded events to one consumer.
type Subscription[T any] struct {
	channel *Channel[T]
	sub     *subscriber
	filter  func(T) bool
	events  chan TypedEvent[T]
	once    sync.Once
}

// Events returns the receive channel. It is closed when the subscription or
// the bus closes.
func (s *Subscription[T]) Events() <-chan TypedEvent[T] { return s.events }

// Close detaches the subscription. Buffered events that were not yet
// consumed are discarded.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.channel.state.unsubscribe(s.sub.id)
		s.sub.close()
	})
}

func (s *Subscription[T]) pump(replay []*Envelope) {
	defer close(s.events)
	for _, env := range replay {
		if !s.forward(env) {
			return
		}
	}
	for {
		select {
		case <-s.sub.done:
			return
		case env := <-s.sub.raw:
			if !s.forward(env) {
				return
			}
		}
	}
}

// forward decodes, filters and hands one envelope to the consumer. It
// returns false once the subscription is closed.
func (s *Subscription[T]) forward(env *Envelope) bool {
	event, err := s.channel.decode(env.Payload)
	if err != nil {
		b := s.channel.state.bus
		b.deadLettered.Add(1)
		b.dlq.Push(DeadLetter{
			Envelope: env,
			Reason:   fmt.Sprintf("decode %s v%d: %v", env.EventType, env.SchemaVersion, err),
			Time:     time.Now(),
		})
		return true
	}
	if s.filter != nil && !s.filter(event) {
		return true
	}
	select {
	case s.events <- TypedEvent[T]{Event: event, Envelope: env}:
		return true
	case <-s.sub.done:
		return false
	}
}
