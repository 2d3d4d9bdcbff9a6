/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package dispatch declares the interfaces owned by collaborators outside
// this core: the octree itself, the node directory, and the packet header
// codec. Keeping them here (rather than in ingest/directory directly) lets
// ingest, nack and directory all depend on these shapes without importing
// each other's concrete types.
package dispatch

import "github.com/octree-io/octreed/wire"

// Octree is the opaque spatial data structure edit packets are applied to.
// Out of scope for this core: callers provide a concrete implementation.
type Octree interface {
	// HandlesEditPacketType reports whether this octree understands the
	// packet type of an inbound edit datagram.
	HandlesEditPacketType(t wire.PacketType) bool

	// LockForWrite acquires the octree's writer lock. Held only for the
	// duration of a single ProcessEditPacketData call.
	LockForWrite()

	// Unlock releases the writer lock acquired by LockForWrite.
	Unlock()

	// ProcessEditPacketData applies one edit record starting at cursor
	// within whole, returning the number of bytes consumed. A return value
	// of 0 signals a malformed tail and must stop the caller's loop.
	ProcessEditPacketData(t wire.PacketType, whole []byte, cursor, max int) int
}

// NodeHandle is an opaque destination a NodeDirectory can send datagrams to.
type NodeHandle interface{}

// NodeDirectory resolves sender identities to live destinations and
// transmits best-effort datagrams to them. Out of scope for this core.
type NodeDirectory interface {
	// Lookup resolves a NodeID to a destination handle. ok is false if the
	// node is unknown.
	Lookup(id wire.NodeID) (handle NodeHandle, ok bool)

	// IsAlive reports whether the node is still considered connected.
	IsAlive(id wire.NodeID) bool

	// SendUnverifiedDatagram sends data to handle without delivery
	// confirmation, returning the number of bytes written or -1 on failure.
	SendUnverifiedDatagram(data []byte, handle NodeHandle) int64

	// MarkHeardFrom records that a node has just sent a packet, resetting
	// its liveness timer.
	MarkHeardFrom(id wire.NodeID)
}

// PacketHeaderCodec parses and writes the opaque header prefix that
// precedes the sequence/timestamp/edit-records body of every packet.
type PacketHeaderCodec interface {
	// NumBytesForHeader returns the length of the header prefixing data.
	NumBytesForHeader(data []byte) int

	// PacketTypeFor returns the packet type encoded in data's header.
	PacketTypeFor(data []byte) wire.PacketType

	// PopulateHeader writes a header of the given type into buf, returning
	// the number of bytes written.
	PopulateHeader(buf []byte, t wire.PacketType) int
}

// Gzip wraps the gzip framing primitives used by the snapshot codec, kept as
// an interface so callers of dispatch-level code can substitute it in tests.
type Gzip interface {
	Gzip(in []byte) ([]byte, bool)
	Gunzip(in []byte) ([]byte, bool)
}
