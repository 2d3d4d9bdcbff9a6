/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package reliability maintains per-sender sequence tracking state across
// 16-bit sequence rollover: SequenceTracker (pure logic, no I/O) and
// SenderRegistry (the NodeID -> SequenceTracker map plus aggregate
// counters).
package reliability

import "time"

// MaxReasonableSequenceGap bounds how far a sequence number may be from the
// expected one before it's considered unreasonable (and dropped) rather than
// early/late. Must stay below UINT16Range/2 for rollover correction to work.
const MaxReasonableSequenceGap = 1000

// MaxMissingSequenceSize is the missing-set size above which Observe prunes
// entries that are more than MaxReasonableSequenceGap behind lastSequence.
// Entries inside that window are never pruned, so the set can stay above
// this size after Observe returns.
const MaxMissingSequenceSize = 100

// NackInterval is how often the NACK sweep runs against senders with
// non-empty missing sets.
const NackInterval = 1 * time.Second
