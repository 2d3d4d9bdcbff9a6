/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package reliability

import (
	"sync/atomic"

	"github.com/cornelk/hashmap"
	"github.com/google/uuid"
	"github.com/octree-io/octreed/wire"
)

// SenderRegistry maps NodeID to SequenceTracker, plus aggregate counters
// across all senders. Only the PacketProcessor worker calls Track; a
// lock-free map is used (rather than a plain map guarded by a mutex) so
// diagnostic readers can walk a consistent snapshot without contending with
// the worker.
type SenderRegistry struct {
	trackers *hashmap.HashMap

	totalPackets  uint64
	totalElements uint64
}

// NewSenderRegistry returns an empty registry.
func NewSenderRegistry() *SenderRegistry {
	return &SenderRegistry{trackers: hashmap.New(hashmap.DefaultSize)}
}

// Track upserts the tracker for nodeID and forwards to its Observe, also
// advancing the registry-wide aggregate counters. Concurrent calls must be
// serialized by the caller; only the PacketProcessor worker calls this.
func (r *SenderRegistry) Track(nodeID wire.NodeID, seq wire.SequenceNumber, transitUs uint64, edits int, processUs, lockWaitUs uint64) {
	tracker := r.getOrCreate(nodeID)
	tracker.Observe(seq, transitUs, edits, processUs, lockWaitUs)

	atomic.AddUint64(&r.totalPackets, 1)
	atomic.AddUint64(&r.totalElements, uint64(edits))
}

func (r *SenderRegistry) getOrCreate(nodeID wire.NodeID) *SequenceTracker {
	key := nodeID.String()
	if v, ok := r.trackers.GetStringKey(key); ok {
		return v.(*SequenceTracker)
	}
	fresh := NewSequenceTracker()
	actual, _ := r.trackers.GetOrInsert(key, fresh)
	return actual.(*SequenceTracker)
}

// Entry pairs a sender's identity with its tracker, as yielded by IterAlive.
type Entry struct {
	NodeID  wire.NodeID
	Tracker *SequenceTracker
}

// IterAlive evicts any tracker whose sender is no longer alive (per
// isAlive), then returns the remaining entries. Dead senders are collected
// in a first pass and deleted in a second to avoid mutating the map while
// ranging over it.
func (r *SenderRegistry) IterAlive(isAlive func(wire.NodeID) bool) []Entry {
	var dead []string
	var alive []Entry

	for kv := range r.trackers.Iter() {
		key := kv.Key.(string)
		id, err := parseNodeID(key)
		if err != nil {
			dead = append(dead, key)
			continue
		}
		if !isAlive(id) {
			dead = append(dead, key)
			continue
		}
		alive = append(alive, Entry{NodeID: id, Tracker: kv.Value.(*SequenceTracker)})
	}

	for _, key := range dead {
		r.trackers.Del(key)
	}

	return alive
}

// Snapshot returns a point-in-time copy of every tracker's counters, keyed
// by sender, for an operator-facing stats surface.
func (r *SenderRegistry) Snapshot() map[wire.NodeID]Stats {
	out := make(map[wire.NodeID]Stats)
	for kv := range r.trackers.Iter() {
		id, err := parseNodeID(kv.Key.(string))
		if err != nil {
			continue
		}
		out[id] = kv.Value.(*SequenceTracker).Snapshot()
	}
	return out
}

// TotalPackets returns the aggregate number of packets tracked across all
// senders.
func (r *SenderRegistry) TotalPackets() uint64 {
	return atomic.LoadUint64(&r.totalPackets)
}

// TotalElements returns the aggregate number of edit records tracked across
// all senders.
func (r *SenderRegistry) TotalElements() uint64 {
	return atomic.LoadUint64(&r.totalElements)
}

// ResetStats clears every tracker and the aggregate counters, mirroring the
// original server's resetStats() management operation.
func (r *SenderRegistry) ResetStats() {
	r.trackers = hashmap.New(hashmap.DefaultSize)
	atomic.StoreUint64(&r.totalPackets, 0)
	atomic.StoreUint64(&r.totalElements, 0)
}

func parseNodeID(s string) (wire.NodeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return wire.NodeID{}, err
	}
	return wire.NodeID(u), nil
}
