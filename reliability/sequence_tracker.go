/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package reliability

import "github.com/octree-io/octreed/wire"

// SequenceTracker holds per-sender reliability state: the last accepted
// sequence number, the set of sequence numbers inferred missing, and
// rolling counters. It is pure logic with no I/O, and is mutated only by
// the single worker that owns its SenderRegistry entry.
type SequenceTracker struct {
	lastSequence wire.SequenceNumber
	missing      map[wire.SequenceNumber]struct{}

	totalPackets    uint64
	totalElements   uint64
	totalTransitUs  uint64
	totalProcessUs  uint64
	totalLockWaitUs uint64
}

// NewSequenceTracker returns an empty tracker, ready to accept its first
// observation.
func NewSequenceTracker() *SequenceTracker {
	return &SequenceTracker{missing: make(map[wire.SequenceNumber]struct{})}
}

// Stats is a point-in-time, read-only copy of a tracker's counters, safe to
// hand to a diagnostics caller without risking a data race with the worker.
type Stats struct {
	LastSequence    wire.SequenceNumber
	MissingCount    int
	TotalPackets    uint64
	TotalElements   uint64
	TotalTransitUs  uint64
	TotalProcessUs  uint64
	TotalLockWaitUs uint64
}

// Observe records one packet's sequence number and timing, updating
// counters unconditionally and then classifying the sequence number itself
// as on-time, early, late, or an unreasonable gap.
//
// Signed 32-bit arithmetic stands in for the rollover-corrected ints of the
// system this was ported from; it is wide enough that UINT16Range never
// overflows it.
func (t *SequenceTracker) Observe(seq wire.SequenceNumber, transitUs uint64, edits int, processUs, lockWaitUs uint64) {
	isFirst := t.totalPackets == 0

	t.totalTransitUs += transitUs
	t.totalProcessUs += processUs
	t.totalLockWaitUs += lockWaitUs
	t.totalElements += uint64(edits)
	t.totalPackets++

	var expected wire.SequenceNumber
	if isFirst {
		expected = seq
	} else {
		expected = t.lastSequence + 1
	}

	if seq == expected {
		t.lastSequence = seq
		t.pruneMissing()
		return
	}

	incoming := int32(seq)
	exp := int32(expected)
	absGap := incoming - exp
	if absGap < 0 {
		absGap = -absGap
	}

	if absGap >= wire.UINT16Range-MaxReasonableSequenceGap {
		// Rollover likely occurred between incoming and expected: correct
		// the larger of the two into [-UINT16Range, -1] so they can be
		// compared directly.
		if incoming > exp {
			incoming -= wire.UINT16Range
		} else {
			exp -= wire.UINT16Range
		}
	} else if absGap > MaxReasonableSequenceGap {
		// Unreasonable gap: counters above are still updated, but sequence
		// state is left untouched.
		return
	}

	if incoming > exp {
		// Early: every sequence skipped between expected and incoming is a
		// gap.
		for m := exp; m < incoming; m++ {
			mod := m
			if mod < 0 {
				mod += wire.UINT16Range
			}
			t.missing[wire.SequenceNumber(mod)] = struct{}{}
		}
		t.lastSequence = seq
	} else {
		// Late: this sequence has arrived, so it's no longer missing.
		// lastSequence must not move backwards.
		delete(t.missing, seq)
	}

	t.pruneMissing()
}

// pruneMissing runs only when |missing| exceeds MaxMissingSequenceSize, and
// then discards entries at least MaxReasonableSequenceGap behind
// lastSequence in modular order. Entries inside that window are kept, so
// |missing| is not guaranteed to drop to MaxMissingSequenceSize.
func (t *SequenceTracker) pruneMissing() {
	if len(t.missing) <= MaxMissingSequenceSize {
		return
	}

	cutoff := int32(t.lastSequence) - MaxReasonableSequenceGap
	if cutoff >= 0 {
		for m := range t.missing {
			if int32(m) > int32(t.lastSequence) || int32(m) <= cutoff {
				delete(t.missing, m)
			}
		}
	} else {
		rolloverCutoff := cutoff + wire.UINT16Range
		for m := range t.missing {
			if int32(m) > int32(t.lastSequence) && int32(m) <= rolloverCutoff {
				delete(t.missing, m)
			}
		}
	}
}

// MissingSequences returns a snapshot of the sequence numbers currently
// believed missing.
func (t *SequenceTracker) MissingSequences() []wire.SequenceNumber {
	out := make([]wire.SequenceNumber, 0, len(t.missing))
	for m := range t.missing {
		out = append(out, m)
	}
	return out
}

// HasMissing reports whether the tracker currently believes any sequence
// numbers are missing.
func (t *SequenceTracker) HasMissing() bool {
	return len(t.missing) > 0
}

// Snapshot returns a read-only copy of the tracker's counters.
func (t *SequenceTracker) Snapshot() Stats {
	return Stats{
		LastSequence:    t.lastSequence,
		MissingCount:    len(t.missing),
		TotalPackets:    t.totalPackets,
		TotalElements:   t.totalElements,
		TotalTransitUs:  t.totalTransitUs,
		TotalProcessUs:  t.totalProcessUs,
		TotalLockWaitUs: t.totalLockWaitUs,
	}
}
