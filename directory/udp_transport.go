/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package directory

import (
	"context"
	"net"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/octree-io/octreed/core"
	"github.com/octree-io/octreed/directory/impl"
	"github.com/octree-io/octreed/ingest"
	"github.com/octree-io/octreed/wire"
)

// sendQueueDiagnosticInterval is how often the listener logs its socket's
// outbound send-queue depth, a cheap early signal that NACK traffic is
// outpacing the kernel's ability to drain it.
const sendQueueDiagnosticInterval = 10 * time.Second

// udpTransport sends datagrams back to one remote address over a shared,
// already-bound PacketConn.
type udpTransport struct {
	conn   net.PacketConn
	remote net.Addr
}

func (t *udpTransport) SendDatagram(data []byte) (int, error) {
	return t.conn.WriteTo(data, t.remote)
}

// Close is a no-op: the listener owns the underlying PacketConn's lifetime,
// since many nodes share one socket.
func (t *udpTransport) Close() error { return nil }

// deriveNodeID maps a remote network address to a stable NodeID. The wire
// protocol carries no identity of its own in its edit-packet prefix, so the
// directory keys nodes by a deterministic hash of their observed address,
// identically on every packet from the same endpoint.
func deriveNodeID(addr string) wire.NodeID {
	return wire.NodeID(uuid.NewSHA1(uuid.NameSpaceURL, []byte("udp://"+addr)))
}

// UDPListener accepts inbound edit/NACK-reply traffic on a single bound UDP
// socket and feeds parsed envelopes into an ingest.Queue, registering each
// observed sender in a Table.
type UDPListener struct {
	conn      net.PacketConn
	localAddr string
	table     *Table
	queue     *ingest.Queue
	maxPacket int
}

// NewUDPListener constructs a listener bound to localAddr (host:port).
func NewUDPListener(localAddr string, table *Table, queue *ingest.Queue, maxPacket int) *UDPListener {
	return &UDPListener{localAddr: localAddr, table: table, queue: queue, maxPacket: maxPacket}
}

// Run binds the socket and blocks, reading datagrams until ctx is cancelled
// or the socket errors.
func (l *UDPListener) Run(ctx context.Context) error {
	listenConfig := &net.ListenConfig{Control: impl.SyscallReuseAddr}
	conn, err := listenConfig.ListenPacket(ctx, "udp", l.localAddr)
	if err != nil {
		return err
	}
	l.conn = conn
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if sc, ok := conn.(syscall.Conn); ok {
		if raw, err := sc.SyscallConn(); err == nil {
			go l.logSendQueueDepth(ctx, raw)
		}
	}

	recvBuf := make([]byte, l.maxPacket)
	for {
		n, remoteAddr, err := conn.ReadFrom(recvBuf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			core.LogWarn("directory-udp", "read failed: ", err)
			return err
		}

		data := make([]byte, n)
		copy(data, recvBuf[:n])

		id := deriveNodeID(remoteAddr.String())
		if _, ok := l.table.Get(id); !ok {
			l.table.Add(id, &udpTransport{conn: conn, remote: remoteAddr})
		}

		l.queue.Push(wire.PacketEnvelope{Sender: id, Data: data})
	}
}

// logSendQueueDepth periodically logs the listening socket's outbound send
// queue depth at DEBUG level, until ctx is cancelled.
func (l *UDPListener) logSendQueueDepth(ctx context.Context, raw syscall.RawConn) {
	ticker := time.NewTicker(sendQueueDiagnosticInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			core.LogDebug("directory-udp", "send queue depth=", impl.SyscallGetSocketSendQueueSize(raw))
		}
	}
}
