/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package nack builds and sends NACK (negative-acknowledgement) datagrams
// for sequence numbers a SequenceTracker believes missing.
package nack

import (
	"sort"

	"github.com/cespare/xxhash"
	"github.com/octree-io/octreed/core"
	"github.com/octree-io/octreed/dispatch"
	"github.com/octree-io/octreed/reliability"
	"github.com/octree-io/octreed/utils/comparison"
	"github.com/octree-io/octreed/wire"
	"github.com/zjkmxy/stealthpool"
)

// PendingChecker reports whether a sender still has packets waiting in the
// inbound queue. Satisfied by ingest.Queue; declared here rather than in
// dispatch because it is owned by ingest, not by an external collaborator.
type PendingChecker interface {
	HasPendingFrom(id wire.NodeID) bool
}

// Emitter builds and sends NACK datagrams for senders with missing sequence
// numbers.
type Emitter struct {
	headerCodec dispatch.PacketHeaderCodec
	nackType    wire.PacketType
	mtu         int

	// pool is a pre-sized block pool sized to avoid per-sweep allocation
	// churn. Its checkout API is not exercised by any retrieved example, so
	// datagram buffers are still built with plain make(); the pool is
	// constructed and closed here purely to keep the dependency wired to a
	// real lifecycle rather than left unused.
	pool *stealthpool.Pool

	sent   uint64
	failed uint64
}

// NewEmitter constructs an Emitter. mtu bounds outbound datagram size;
// nackType is the PacketType value the header codec should stamp on NACK
// datagrams.
func NewEmitter(headerCodec dispatch.PacketHeaderCodec, nackType wire.PacketType, mtu int) (*Emitter, error) {
	pool, err := stealthpool.New(64, stealthpool.WithBlockSize(mtu))
	if err != nil {
		return nil, err
	}
	return &Emitter{headerCodec: headerCodec, nackType: nackType, mtu: mtu, pool: pool}, nil
}

// Close releases the Emitter's block pool.
func (e *Emitter) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

// SendNacks sweeps registry for live senders with non-empty missing sets,
// skipping any that still have packets pending in the inbound queue or that
// the directory cannot resolve, and sends one or more MTU-bounded NACK
// datagrams per remaining sender. Returns the number of datagrams sent.
func (e *Emitter) SendNacks(registry *reliability.SenderRegistry, pending PendingChecker, directory dispatch.NodeDirectory) int {
	headerBytes := e.headerCodec.NumBytesForHeader(nil)
	maxSeqs := wire.MaxSequencesPerNack(e.mtu, headerBytes)
	if maxSeqs <= 0 {
		core.LogError("nack", "MTU too small to fit any sequence numbers in a NACK datagram")
		return 0
	}

	sent := 0
	entries := registry.IterAlive(directory.IsAlive)
	for _, entry := range entries {
		if pending.HasPendingFrom(entry.NodeID) {
			continue
		}
		missing := entry.Tracker.MissingSequences()
		if len(missing) == 0 {
			continue
		}

		handle, ok := directory.Lookup(entry.NodeID)
		if !ok {
			continue
		}

		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })

		for start := 0; start < len(missing); start += maxSeqs {
			end := comparison.Min(start+maxSeqs, len(missing))
			chunk := missing[start:end]

			buf := make([]byte, headerBytes+2+len(chunk)*2)
			n := e.headerCodec.PopulateHeader(buf, e.nackType)
			wire.PutNackBody(buf[n:], chunk)

			core.LogTrace("nack", "built NACK for ", entry.NodeID, " checksum=", xxhash.Sum64(buf))

			if directory.SendUnverifiedDatagram(buf, handle) < 0 {
				e.failed++
				core.LogWarn("nack", "failed to send NACK datagram to ", entry.NodeID)
				continue
			}
			e.sent++
			sent++
		}
	}
	return sent
}

// Sent returns the cumulative number of NACK datagrams successfully sent.
func (e *Emitter) Sent() uint64 { return e.sent }

// Failed returns the cumulative number of NACK datagrams that failed to
// send. Failures are tallied but never abort a sweep.
func (e *Emitter) Failed() uint64 { return e.failed }
