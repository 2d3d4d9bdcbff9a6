/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package wire_test

import (
	"testing"

	"github.com/octree-io/octreed/wire"
	"github.com/stretchr/testify/assert"
)

func TestParseEditPrefixRoundTrip(t *testing.T) {
	buf := make([]byte, 10)
	wire.PutEditPrefix(buf, 42, 1234567890)

	prefix, n, err := wire.ParseEditPrefix(buf)
	assert.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, wire.SequenceNumber(42), prefix.Sequence)
	assert.Equal(t, uint64(1234567890), prefix.SendTimeStamp)
}

func TestParseEditPrefixTooShort(t *testing.T) {
	_, _, err := wire.ParseEditPrefix(make([]byte, 4))
	assert.ErrorIs(t, err, wire.ErrPacketTooShort)
}

func TestNackBodyRoundTrip(t *testing.T) {
	seqs := []wire.SequenceNumber{1, 2, 65535, 0, 1000}
	buf := make([]byte, 2+len(seqs)*2)
	n := wire.PutNackBody(buf, seqs)
	assert.Equal(t, len(buf), n)

	parsed, err := wire.ParseNackBody(buf)
	assert.NoError(t, err)
	assert.Equal(t, seqs, parsed)
}

func TestMaxSequencesPerNack(t *testing.T) {
	assert.Equal(t, 200, wire.MaxSequencesPerNack(1400, 998))
	assert.Equal(t, 0, wire.MaxSequencesPerNack(10, 998))
}
