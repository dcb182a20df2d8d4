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
	"sync"
	"time"
)

// DefaultDLQCapacity bounds the built-in dead letter queue.
const DefaultDLQCapacity = 256

// DeadLetter records an envelope that could not be delivered.
type DeadLetter struct {
	Envelope *Envelope
	Reason   string
	Time     time.Time
}

// DeadLetterQueue receives envelopes whose payload could not be decoded for
// a subscriber. Implementations must be safe for concurrent use.
type DeadLetterQueue interface {
	Push(letter DeadLetter)
	Letters() []DeadLetter
	Len() int
}

// memoryDLQ is a bounded in-memory dead letter queue. When full, the oldest
// letter is evicted.
type memoryDLQ struct {
	mu       sync.Mutex
	capacity int
	letters  []DeadLetter
}

// NewDLQ creates an in-memory dead letter queue holding at most capacity
// letters. A non-positive capacity falls back to DefaultDLQCapacity.
func NewDLQ(capacity int) DeadLetterQueue {
	if capacity <= 0 {
		capacity = DefaultDLQCapacity
	}
	return &memoryDLQ{capacity: capacity}
}

func (q *memoryDLQ) Push(letter DeadLetter) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.letters) >= q.capacity {
		q.letters = q.letters[1:]
	}
	q.letters = append(q.letters, letter)
}

func (q *memoryDLQ) Letters() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]DeadLetter(nil), q.letters...)
}

func (q *memoryDLQ) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.letters)
}
