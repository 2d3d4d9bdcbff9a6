/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package reliability_test

import (
	"testing"

	"github.com/octree-io/octreed/reliability"
	"github.com/octree-io/octreed/wire"
	"github.com/stretchr/testify/assert"
)

func newNodeID(t *testing.T, s string) wire.NodeID {
	t.Helper()
	var id wire.NodeID
	copy(id[:], s)
	return id
}

func TestTrackCreatesTrackerPerSender(t *testing.T) {
	r := reliability.NewSenderRegistry()
	a := newNodeID(t, "sender-a-0000000")
	b := newNodeID(t, "sender-b-0000000")

	r.Track(a, 0, 10, 1, 1, 1)
	r.Track(b, 0, 20, 2, 2, 2)
	r.Track(a, 1, 10, 1, 1, 1)

	assert.Equal(t, uint64(3), r.TotalPackets())
	assert.Equal(t, uint64(4), r.TotalElements())

	snap := r.Snapshot()
	assert.Equal(t, wire.SequenceNumber(1), snap[a].LastSequence)
	assert.Equal(t, uint64(2), snap[a].TotalPackets)
	assert.Equal(t, wire.SequenceNumber(0), snap[b].LastSequence)
	assert.Equal(t, uint64(1), snap[b].TotalPackets)
}

func TestIterAliveEvictsDeadSenders(t *testing.T) {
	r := reliability.NewSenderRegistry()
	a := newNodeID(t, "sender-a-0000000")
	b := newNodeID(t, "sender-b-0000000")

	r.Track(a, 0, 0, 1, 0, 0)
	r.Track(b, 0, 0, 1, 0, 0)

	alive := map[wire.NodeID]bool{a: true}
	entries := r.IterAlive(func(id wire.NodeID) bool { return alive[id] })
	assert.Len(t, entries, 1)
	assert.Equal(t, a, entries[0].NodeID)

	// b has been evicted: a second pass over only a still returns one entry,
	// and the registry's aggregate counters are untouched by eviction.
	entries = r.IterAlive(func(id wire.NodeID) bool { return true })
	assert.Len(t, entries, 1)
	assert.Equal(t, a, entries[0].NodeID)
	assert.Equal(t, uint64(2), r.TotalPackets())
}

func TestResetStatsClearsEverything(t *testing.T) {
	r := reliability.NewSenderRegistry()
	a := newNodeID(t, "sender-a-0000000")
	r.Track(a, 0, 0, 3, 0, 0)

	r.ResetStats()

	assert.Equal(t, uint64(0), r.TotalPackets())
	assert.Equal(t, uint64(0), r.TotalElements())
	assert.Empty(t, r.Snapshot())
	assert.Empty(t, r.IterAlive(func(wire.NodeID) bool { return true }))
}
