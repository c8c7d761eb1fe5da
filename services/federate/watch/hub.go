// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch observes federation config files for changes and fans the
// resulting events out to subscribers.
package watch

import (
	"sync"
	"time"
)

// EventType classifies a watch event.
type EventType string

const (
	// EventConfigChanged means a discovered federation config file changed
	// on disk.
	EventConfigChanged EventType = "config-changed"

	// EventSidecarChanged means the sidecar binding file changed.
	EventSidecarChanged EventType = "sidecar-changed"

	// EventRemoteExited means a dev-server process exited.
	EventRemoteExited EventType = "remote-exited"
)

// Event is one observation delivered to subscribers.
type Event struct {
	// Type classifies the event.
	Type EventType `json:"type"`

	// Path is the changed file for config and sidecar events.
	Path string `json:"path,omitempty"`

	// Remote names the remote for remote-exited events.
	Remote string `json:"remote,omitempty"`

	// Detail carries a human-readable note (an exit error, for example).
	Detail string `json:"detail,omitempty"`

	// Time is when the event was emitted.
	Time time.Time `json:"time"`
}

// Hub fans events out to subscriber channels.
//
// # Thread Safety
//
// Safe for concurrent use. Publish never blocks; a subscriber that falls
// behind its buffer drops events rather than stalling the publisher.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	closed bool
}

// subscriberBuffer is the per-subscriber channel depth.
const subscriberBuffer = 32

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber and returns its channel plus a
// cancel function. Cancel is idempotent and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscriber channel and rejects further publishes.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
