/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package ingest drains inbound edit packets on a dedicated worker, applies
// them against the octree, and periodically sweeps NACKs.
package ingest

import (
	"sync"

	"github.com/octree-io/octreed/wire"
)

// Queue is the inbound packet queue: a mutex-guarded deque plus a per-sender
// pending count, signalled by a buffered notification channel rather than a
// sync.Cond - an equally valid timed-wait primitive, and the one the rest of
// this codebase's worker loops reach for.
type Queue struct {
	mu      sync.Mutex
	items   []wire.PacketEnvelope
	pending map[wire.NodeID]uint32
	notify  chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{
		pending: make(map[wire.NodeID]uint32),
		notify:  make(chan struct{}, 1),
	}
}

// Push appends env and wakes any worker blocked in NotifyChannel's select.
func (q *Queue) Push(env wire.PacketEnvelope) {
	q.mu.Lock()
	q.items = append(q.items, env)
	q.pending[env.Sender]++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// PopFront removes and returns the oldest envelope, decrementing its
// sender's pending count. ok is false if the queue is empty.
func (q *Queue) PopFront() (env wire.PacketEnvelope, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return wire.PacketEnvelope{}, false
	}
	env = q.items[0]
	q.items = q.items[1:]

	q.pending[env.Sender]--
	if q.pending[env.Sender] == 0 {
		delete(q.pending, env.Sender)
	}
	return env, true
}

// Len reports the number of envelopes currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// HasPendingFrom reports whether id still has envelopes waiting in the
// queue, so NackEmitter can skip a sender whose missing sequences might be
// among the packets not yet processed.
func (q *Queue) HasPendingFrom(id wire.NodeID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending[id] > 0
}

// NotifyChannel returns the channel a worker should select on (alongside a
// timer) to wake either when a packet arrives or a timeout elapses.
func (q *Queue) NotifyChannel() <-chan struct{} {
	return q.notify
}
