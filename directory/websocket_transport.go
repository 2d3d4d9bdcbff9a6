/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package directory

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/octree-io/octreed/core"
	"github.com/octree-io/octreed/ingest"
	"github.com/octree-io/octreed/wire"
)

// webSocketTransport sends datagrams to one browser-embedded client over a
// persistent WebSocket connection, an alternate to the UDP transport for
// clients that cannot open raw sockets.
type webSocketTransport struct {
	conn *websocket.Conn
}

func (t *webSocketTransport) SendDatagram(data []byte) (int, error) {
	if err := t.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (t *webSocketTransport) Close() error {
	return t.conn.Close()
}

// WebSocketServer upgrades incoming HTTP connections to WebSocket edit-
// packet transports, registering each client in a Table and pushing
// received frames into an ingest.Queue.
type WebSocketServer struct {
	upgrader websocket.Upgrader
	table    *Table
	queue    *ingest.Queue
	maxFrame int
}

// NewWebSocketServer constructs a server that accepts any origin, for
// browser-embedded clients that connect and stay connected for the
// lifetime of their session.
func NewWebSocketServer(table *Table, queue *ingest.Queue, maxFrame int) *WebSocketServer {
	return &WebSocketServer{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		table:    table,
		queue:    queue,
		maxFrame: maxFrame,
	}
}

// ServeHTTP implements http.Handler, upgrading the connection and running
// its receive loop until the client disconnects.
func (s *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		core.LogWarn("directory-ws", "upgrade failed: ", err)
		return
	}

	id := deriveNodeID(conn.RemoteAddr().String())
	s.table.Add(id, &webSocketTransport{conn: conn})

	go s.runReceive(id, conn)
}

func (s *WebSocketServer) runReceive(id wire.NodeID, conn *websocket.Conn) {
	defer s.table.Remove(id)

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			core.LogInfo("directory-ws", "connection from ", id, " closed: ", err)
			return
		}
		if mt != websocket.BinaryMessage {
			core.LogDebug("directory-ws", "ignored non-binary message from ", id)
			continue
		}
		if len(message) > s.maxFrame {
			core.LogWarn("directory-ws", "received oversized frame from ", id, " - DROP")
			continue
		}

		data := make([]byte, len(message))
		copy(data, message)
		s.queue.Push(wire.PacketEnvelope{Sender: id, Data: data})
	}
}
