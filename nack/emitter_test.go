/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package nack_test

import (
	"testing"

	"github.com/octree-io/octreed/dispatch"
	"github.com/octree-io/octreed/nack"
	"github.com/octree-io/octreed/reliability"
	"github.com/octree-io/octreed/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHeaderCodec stamps a fixed-size, content-free header.
type fakeHeaderCodec struct{ size int }

func (f fakeHeaderCodec) NumBytesForHeader([]byte) int { return f.size }
func (f fakeHeaderCodec) PacketTypeFor([]byte) wire.PacketType { return 0 }
func (f fakeHeaderCodec) PopulateHeader(buf []byte, t wire.PacketType) int {
	for i := 0; i < f.size; i++ {
		buf[i] = byte(t)
	}
	return f.size
}

type sentDatagram struct {
	data   []byte
	handle dispatch.NodeHandle
}

type fakeDirectory struct {
	alive   map[wire.NodeID]bool
	handles map[wire.NodeID]interface{}
	sent    []sentDatagram
	failNth int // 0 = never fail
}

func (d *fakeDirectory) Lookup(id wire.NodeID) (dispatch.NodeHandle, bool) {
	h, ok := d.handles[id]
	return h, ok
}
func (d *fakeDirectory) IsAlive(id wire.NodeID) bool { return d.alive[id] }
func (d *fakeDirectory) SendUnverifiedDatagram(data []byte, handle dispatch.NodeHandle) int64 {
	cp := make([]byte, len(data))
	copy(cp, data)
	d.sent = append(d.sent, sentDatagram{data: cp, handle: handle})
	if d.failNth != 0 && len(d.sent) == d.failNth {
		return -1
	}
	return int64(len(data))
}
func (d *fakeDirectory) MarkHeardFrom(wire.NodeID) {}

type fakePending struct{ pending map[wire.NodeID]bool }

func (p fakePending) HasPendingFrom(id wire.NodeID) bool { return p.pending[id] }

func newNodeID(t *testing.T, s string) wire.NodeID {
	t.Helper()
	var id wire.NodeID
	copy(id[:], s)
	return id
}

func TestSendNacksPacksWithinMTU(t *testing.T) {
	registry := reliability.NewSenderRegistry()
	sender := newNodeID(t, "sender-0000000000")

	registry.Track(sender, 0, 0, 1, 0, 0)
	// 600 gap entries: seq jumps from 0 to 601.
	registry.Track(sender, 601, 0, 1, 0, 0)

	dir := &fakeDirectory{
		alive:   map[wire.NodeID]bool{sender: true},
		handles: map[wire.NodeID]interface{}{sender: "handle-0"},
	}
	pending := fakePending{pending: map[wire.NodeID]bool{}}

	headerBytes := 998
	emitter, err := nack.NewEmitter(fakeHeaderCodec{size: headerBytes}, 9, 1400)
	require.NoError(t, err)
	defer emitter.Close()

	sent := emitter.SendNacks(registry, pending, dir)

	// MaxSequencesPerNack(1400, 998) == 200, 600 missing seqs => 3 datagrams.
	assert.Equal(t, 3, sent)
	assert.Len(t, dir.sent, 3)
	for _, dg := range dir.sent {
		assert.LessOrEqual(t, len(dg.data), 1400)
	}

	total := 0
	for _, dg := range dir.sent {
		seqs, err := wire.ParseNackBody(dg.data[headerBytes:])
		require.NoError(t, err)
		total += len(seqs)
	}
	assert.Equal(t, 600, total)
}

func TestSendNacksSkipsSenderWithPendingPackets(t *testing.T) {
	registry := reliability.NewSenderRegistry()
	sender := newNodeID(t, "sender-0000000000")
	registry.Track(sender, 0, 0, 1, 0, 0)
	registry.Track(sender, 5, 0, 1, 0, 0)

	dir := &fakeDirectory{
		alive:   map[wire.NodeID]bool{sender: true},
		handles: map[wire.NodeID]interface{}{sender: "handle-0"},
	}
	pending := fakePending{pending: map[wire.NodeID]bool{sender: true}}

	emitter, err := nack.NewEmitter(fakeHeaderCodec{size: 10}, 9, 1400)
	require.NoError(t, err)
	defer emitter.Close()

	sent := emitter.SendNacks(registry, pending, dir)
	assert.Equal(t, 0, sent)
	assert.Empty(t, dir.sent)
}

func TestSendNacksSkipsUnresolvableSender(t *testing.T) {
	registry := reliability.NewSenderRegistry()
	sender := newNodeID(t, "sender-0000000000")
	registry.Track(sender, 0, 0, 1, 0, 0)
	registry.Track(sender, 5, 0, 1, 0, 0)

	dir := &fakeDirectory{
		alive:   map[wire.NodeID]bool{sender: true},
		handles: map[wire.NodeID]interface{}{},
	}
	pending := fakePending{pending: map[wire.NodeID]bool{}}

	emitter, err := nack.NewEmitter(fakeHeaderCodec{size: 10}, 9, 1400)
	require.NoError(t, err)
	defer emitter.Close()

	sent := emitter.SendNacks(registry, pending, dir)
	assert.Equal(t, 0, sent)
}

func TestSendNacksSkipsSenderWithNoMissing(t *testing.T) {
	registry := reliability.NewSenderRegistry()
	sender := newNodeID(t, "sender-0000000000")
	registry.Track(sender, 0, 0, 1, 0, 0)
	registry.Track(sender, 1, 0, 1, 0, 0)

	dir := &fakeDirectory{
		alive:   map[wire.NodeID]bool{sender: true},
		handles: map[wire.NodeID]interface{}{sender: "handle-0"},
	}
	pending := fakePending{pending: map[wire.NodeID]bool{}}

	emitter, err := nack.NewEmitter(fakeHeaderCodec{size: 10}, 9, 1400)
	require.NoError(t, err)
	defer emitter.Close()

	sent := emitter.SendNacks(registry, pending, dir)
	assert.Equal(t, 0, sent)
}
