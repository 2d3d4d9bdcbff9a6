//go:build linux

/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package impl

import (
	"strconv"
	"syscall"

	"github.com/octree-io/octreed/core"
	"golang.org/x/sys/unix"
)

// SyscallGetSocketSendQueueSize returns the current size of the send queue
// on the given socket, logged periodically by the UDP listener for
// diagnostics.
func SyscallGetSocketSendQueueSize(c syscall.RawConn) uint64 {
	var val int
	c.Control(func(fd uintptr) {
		var err error
		val, err = unix.IoctlGetInt(int(fd), unix.SIOCOUTQ)
		if err != nil {
			core.LogWarn("directory-syscall", "unable to get send queue size for fd="+strconv.Itoa(int(fd))+": "+err.Error())
			val = 0
		}
	})
	return uint64(val)
}
