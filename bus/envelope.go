//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package bus

import "time"

// Metadata carries tracing information alongside an event.
type Metadata struct {
	// CorrelationID groups every event belonging to one logical flow.
	CorrelationID string `json:"correlationId,omitempty"`
	// CausationID names the event that caused this one.
	CausationID string `json:"causationId,omitempty"`
	// Attrs holds free-form attributes.
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Envelope is the wire form of a published event. The payload is already
// serialized with the schema's codec, so envelopes can be stored and
// replayed without knowing the event type.
type Envelope struct {
	ID            string    `json:"id"`
	ChannelName   string    `json:"channelName"`
	EventType     string    `json:"eventType"`
	SchemaVersion int       `json:"schemaVersion"`
	Payload       string    `json:"payload"`
	Metadata      Metadata  `json:"metadata"`
	Timestamp     time.Time `json:"timestamp"`
}
