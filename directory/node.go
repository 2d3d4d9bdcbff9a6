/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package directory resolves sender identities to live transports and
// implements dispatch.NodeDirectory: liveness tracking, UDP and WebSocket
// datagram transports, and the socket-level tuning each needs.
package directory

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/octree-io/octreed/core"
	"github.com/octree-io/octreed/dispatch"
	"github.com/octree-io/octreed/wire"
)

// Transport is the minimum a directory entry needs in order to hand a NACK
// (or any other outbound datagram) to a remote sender.
type Transport interface {
	SendDatagram(data []byte) (int, error)
	Close() error
}

// Node is one entry in the Table: a sender identity paired with the
// transport last used to hear from it and the time it was last heard from.
type Node struct {
	ID        wire.NodeID
	Transport Transport

	lastHeardUnixNano int64
}

func newNode(id wire.NodeID, t Transport) *Node {
	n := &Node{ID: id, Transport: t}
	n.markHeard()
	return n
}

func (n *Node) markHeard() {
	atomic.StoreInt64(&n.lastHeardUnixNano, time.Now().UnixNano())
}

func (n *Node) lastHeard() time.Time {
	return time.Unix(0, atomic.LoadInt64(&n.lastHeardUnixNano))
}

// Table is the concurrent NodeID -> *Node map backing a Directory.
type Table struct {
	nodes           sync.Map
	livenessTimeout time.Duration
}

// NewTable returns a Table that considers a node dead once it has not been
// heard from for livenessTimeout.
func NewTable(livenessTimeout time.Duration) *Table {
	return &Table{livenessTimeout: livenessTimeout}
}

// Add registers or replaces the transport for id.
func (t *Table) Add(id wire.NodeID, transport Transport) *Node {
	n := newNode(id, transport)
	if old, loaded := t.nodes.Swap(id, n); loaded {
		_ = old.(*Node).Transport.Close()
	}
	core.LogDebug("directory", "registered node ", id)
	return n
}

// Get looks up a node by id.
func (t *Table) Get(id wire.NodeID) (*Node, bool) {
	v, ok := t.nodes.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Node), true
}

// Remove drops id from the table, closing its transport.
func (t *Table) Remove(id wire.NodeID) {
	v, ok := t.nodes.LoadAndDelete(id)
	if !ok {
		return
	}
	_ = v.(*Node).Transport.Close()
	core.LogDebug("directory", "unregistered node ", id)
}

// GetAll returns every currently registered node.
func (t *Table) GetAll() []*Node {
	nodes := make([]*Node, 0)
	t.nodes.Range(func(_, v interface{}) bool {
		nodes = append(nodes, v.(*Node))
		return true
	})
	return nodes
}

// Directory implements dispatch.NodeDirectory over a Table.
type Directory struct {
	table *Table
}

// NewDirectory wraps table as a dispatch.NodeDirectory.
func NewDirectory(table *Table) *Directory {
	return &Directory{table: table}
}

// Lookup resolves id to its *Node, satisfying dispatch.NodeDirectory.
func (d *Directory) Lookup(id wire.NodeID) (dispatch.NodeHandle, bool) {
	n, ok := d.table.Get(id)
	if !ok {
		return nil, false
	}
	return n, true
}

// IsAlive reports whether id has been heard from within the table's
// liveness timeout.
func (d *Directory) IsAlive(id wire.NodeID) bool {
	n, ok := d.table.Get(id)
	if !ok {
		return false
	}
	return time.Since(n.lastHeard()) < d.table.livenessTimeout
}

// SendUnverifiedDatagram writes data to handle's transport, returning the
// number of bytes written or -1 on failure.
func (d *Directory) SendUnverifiedDatagram(data []byte, handle dispatch.NodeHandle) int64 {
	n, ok := handle.(*Node)
	if !ok {
		return -1
	}
	written, err := n.Transport.SendDatagram(data)
	if err != nil {
		core.LogWarn("directory", "send to ", n.ID, " failed: ", err)
		return -1
	}
	return int64(written)
}

// MarkHeardFrom resets id's liveness timer, called by the packet processor
// on every successfully attributed inbound packet.
func (d *Directory) MarkHeardFrom(id wire.NodeID) {
	if n, ok := d.table.Get(id); ok {
		n.markHeard()
	}
}
