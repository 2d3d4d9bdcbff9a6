/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package core

import "time"

// Version of octreed.
var Version string

// BuildTime contains the timestamp of when this build of octreed was built.
var BuildTime string

// StartTimestamp is the time the server was started.
var StartTimestamp time.Time

// ShouldQuit is polled by long-running loops between work units; set by the
// signal handler in cmd/octreed on shutdown.
var ShouldQuit bool

// MaxPacketSize is the network MTU the transport layer exposes to packet
// builders (NACK packing, wire parsing bounds checks).
var MaxPacketSize = 1400
