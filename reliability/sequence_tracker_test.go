/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package reliability_test

import (
	"testing"

	"github.com/octree-io/octreed/reliability"
	"github.com/octree-io/octreed/wire"
	"github.com/stretchr/testify/assert"
)

func missingSet(seqs []wire.SequenceNumber) map[wire.SequenceNumber]bool {
	m := make(map[wire.SequenceNumber]bool, len(seqs))
	for _, s := range seqs {
		m[s] = true
	}
	return m
}

func TestOnTimeStream(t *testing.T) {
	tr := reliability.NewSequenceTracker()
	for _, seq := range []wire.SequenceNumber{10, 11, 12, 13} {
		tr.Observe(seq, 0, 1, 0, 0)
	}
	snap := tr.Snapshot()
	assert.Equal(t, wire.SequenceNumber(13), snap.LastSequence)
	assert.Equal(t, 0, snap.MissingCount)
	assert.Equal(t, uint64(4), snap.TotalPackets)
}

func TestEarlyWithGap(t *testing.T) {
	tr := reliability.NewSequenceTracker()
	tr.Observe(10, 0, 1, 0, 0)
	tr.Observe(13, 0, 1, 0, 0)

	snap := tr.Snapshot()
	assert.Equal(t, wire.SequenceNumber(13), snap.LastSequence)
	assert.Equal(t, missingSet([]wire.SequenceNumber{11, 12}), missingSet(tr.MissingSequences()))
}

func TestLateFill(t *testing.T) {
	tr := reliability.NewSequenceTracker()
	tr.Observe(10, 0, 1, 0, 0)
	tr.Observe(13, 0, 1, 0, 0)
	tr.Observe(11, 0, 1, 0, 0)

	snap := tr.Snapshot()
	assert.Equal(t, wire.SequenceNumber(13), snap.LastSequence)
	assert.Equal(t, missingSet([]wire.SequenceNumber{12}), missingSet(tr.MissingSequences()))
}

func TestRolloverEarly(t *testing.T) {
	tr := reliability.NewSequenceTracker()
	tr.Observe(65534, 0, 1, 0, 0)
	tr.Observe(1, 0, 1, 0, 0)

	snap := tr.Snapshot()
	assert.Equal(t, wire.SequenceNumber(1), snap.LastSequence)
	assert.Equal(t, missingSet([]wire.SequenceNumber{65535, 0}), missingSet(tr.MissingSequences()))
}

func TestUnreasonableGapRejected(t *testing.T) {
	tr := reliability.NewSequenceTracker()
	tr.Observe(100, 0, 1, 0, 0)
	tr.Observe(5000, 0, 1, 0, 0)

	snap := tr.Snapshot()
	assert.Equal(t, wire.SequenceNumber(100), snap.LastSequence)
	assert.Equal(t, 0, snap.MissingCount)
	assert.Equal(t, uint64(2), snap.TotalPackets)
}

// TestPruningRemovesStaleEntries exercises the cutoff>=0 pruning branch: a
// burst of gaps pushes the missing set over MaxMissingSequenceSize, and
// those entries are only evicted once lastSequence has advanced far enough
// (on time, introducing no further gaps) that they fall behind the
// MaxReasonableSequenceGap cutoff. Pruning is amortized rather than a strict
// post-condition of every call.
func TestPruningRemovesStaleEntries(t *testing.T) {
	tr := reliability.NewSequenceTracker()
	tr.Observe(5000, 0, 1, 0, 0)
	// One jump of 150 skipped sequences - already over the 100 cap, but all
	// of them are within MaxReasonableSequenceGap of the new lastSequence,
	// so the immediate prune pass is a no-op.
	tr.Observe(5151, 0, 1, 0, 0)
	assert.Equal(t, 150, tr.Snapshot().MissingCount)

	for seq := wire.SequenceNumber(5152); seq <= 6150; seq++ {
		tr.Observe(seq, 0, 1, 0, 0)
	}

	snap := tr.Snapshot()
	assert.Equal(t, 0, snap.MissingCount)
	assert.Equal(t, wire.SequenceNumber(6150), snap.LastSequence)
}

func TestCountersAccumulateAcrossObservations(t *testing.T) {
	tr := reliability.NewSequenceTracker()
	tr.Observe(0, 100, 3, 10, 5)
	tr.Observe(1, 200, 2, 20, 7)

	snap := tr.Snapshot()
	assert.Equal(t, uint64(300), snap.TotalTransitUs)
	assert.Equal(t, uint64(5), snap.TotalElements)
	assert.Equal(t, uint64(30), snap.TotalProcessUs)
	assert.Equal(t, uint64(12), snap.TotalLockWaitUs)
}
