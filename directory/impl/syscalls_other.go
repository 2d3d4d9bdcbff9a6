//go:build !linux

/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package impl

import "syscall"

// SyscallGetSocketSendQueueSize is a no-op stand-in on platforms without
// SIOCOUTQ: the UDP listener's send-queue diagnostic degrades to always
// reporting zero rather than being unavailable.
func SyscallGetSocketSendQueueSize(c syscall.RawConn) uint64 {
	return 0
}
