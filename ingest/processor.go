/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package ingest

import (
	"time"

	"github.com/octree-io/octreed/core"
	"github.com/octree-io/octreed/dispatch"
	"github.com/octree-io/octreed/nack"
	"github.com/octree-io/octreed/reliability"
	"github.com/octree-io/octreed/wire"
)

// Processor is the dedicated worker that drains Queue, applies edit packets
// against an Octree, maintains a SenderRegistry, and periodically invokes a
// NackEmitter. One Processor owns exactly one Queue/Registry pair.
type Processor struct {
	queue    *Queue
	registry *reliability.SenderRegistry
	emitter  *nack.Emitter

	octree      dispatch.Octree
	directory   dispatch.NodeDirectory
	headerCodec dispatch.PacketHeaderCodec

	nackInterval time.Duration
	lastNack     time.Time

	verbosePackets bool
	debugReceiving bool
}

// NewProcessor wires a Processor from its collaborators. nackInterval is
// typically reliability.NackInterval.
func NewProcessor(
	queue *Queue,
	registry *reliability.SenderRegistry,
	emitter *nack.Emitter,
	octree dispatch.Octree,
	directory dispatch.NodeDirectory,
	headerCodec dispatch.PacketHeaderCodec,
	nackInterval time.Duration,
) *Processor {
	return &Processor{
		queue:          queue,
		registry:       registry,
		emitter:        emitter,
		octree:         octree,
		directory:      directory,
		headerCodec:    headerCodec,
		nackInterval:   nackInterval,
		lastNack:       time.Now(),
		verbosePackets: core.GetConfigBoolDefault("ingest.verbose_packets", false),
		debugReceiving: core.GetConfigBoolDefault("ingest.debug_receiving", false),
	}
}

// Process runs one cycle: if the queue is empty, it either sweeps NACKs (if
// due) or blocks until a packet arrives or the sweep comes due, whichever is
// first. Otherwise it drains and processes every currently queued envelope,
// sweeping NACKs along the way whenever the interval has elapsed. Process
// always returns true ("still running"); callers loop on it until an
// external shutdown signal tells them to stop.
func (p *Processor) Process() bool {
	now := time.Now()

	if p.queue.Len() == 0 {
		nextNack := p.lastNack.Add(p.nackInterval)
		if !now.Before(nextNack) {
			p.lastNack = now
			p.sweepNacks()
		} else {
			wait := nextNack.Sub(now)
			if wait < time.Millisecond {
				wait = time.Millisecond
			}
			timer := time.NewTimer(wait)
			select {
			case <-p.queue.NotifyChannel():
			case <-timer.C:
			}
			timer.Stop()
		}
	}

	for {
		env, ok := p.queue.PopFront()
		if !ok {
			break
		}
		p.processEnvelope(env)

		// Redesigned per the "now reuse" open question: recapture the clock
		// here rather than reusing the cycle-start value, so a slow drain
		// cannot under-suppress the sweep.
		if time.Since(p.lastNack) >= p.nackInterval {
			p.lastNack = time.Now()
			p.sweepNacks()
		}
	}

	return true
}

func (p *Processor) sweepNacks() {
	p.emitter.SendNacks(p.registry, p.queue, p.directory)
}

// processEnvelope applies one inbound edit packet: it validates the packet
// type, parses the sequence/timestamp prefix, loops the octree over each
// edit record under the writer lock, then tracks the result in the
// registry.
func (p *Processor) processEnvelope(env wire.PacketEnvelope) {
	data := env.Data
	headerBytes := p.headerCodec.NumBytesForHeader(data)
	packetType := p.headerCodec.PacketTypeFor(data)

	if !p.octree.HandlesEditPacketType(packetType) {
		core.LogDebug("ingest", "unknown packet type ignored: ", int(packetType))
		return
	}

	if p.verbosePackets {
		core.LogTrace("ingest", "processing packet from ", env.Sender, " length=", len(data))
	}

	prefix, n, err := wire.ParseEditPrefix(data[headerBytes:])
	if err != nil {
		core.LogWarn("ingest", "malformed edit packet from ", env.Sender, ": ", err)
		return
	}

	arrivedAt := uint64(time.Now().UnixMicro())
	transitUs := arrivedAt - prefix.SendTimeStamp

	if p.debugReceiving {
		core.LogDebug("ingest", "got packet from ", env.Sender, " sequence=", int(prefix.Sequence), " transitUs=", transitUs)
	}

	cursor := headerBytes + n
	edits := 0
	var processUs, lockWaitUs uint64

	for cursor < len(data) {
		remaining := len(data) - cursor

		startLock := time.Now()
		p.octree.LockForWrite()
		startProcess := time.Now()
		consumed := p.octree.ProcessEditPacketData(packetType, data, cursor, remaining)
		p.octree.Unlock()
		endProcess := time.Now()

		edits++
		processUs += uint64(endProcess.Sub(startProcess).Microseconds())
		lockWaitUs += uint64(startProcess.Sub(startLock).Microseconds())

		if consumed <= 0 {
			core.LogWarn("ingest", "malformed edit record tail from ", env.Sender, ": zero bytes consumed")
			break
		}
		cursor += consumed
	}

	p.directory.MarkHeardFrom(env.Sender)
	p.registry.Track(env.Sender, prefix.Sequence, transitUs, edits, processUs, lockWaitUs)
}

// ResetStats clears every sender's tracked state and aggregate counters, for
// a management-triggered stats reset.
func (p *Processor) ResetStats() {
	p.registry.ResetStats()
	p.lastNack = time.Now()
}
