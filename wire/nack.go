/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package wire

import "encoding/binary"

// nackCountSize is the size in bytes of the sequence-count field that
// follows the packet header on a NACK datagram.
const nackCountSize = 2

// seqSize is the size in bytes of a single sequence number on the wire.
const seqSize = 2

// MaxSequencesPerNack returns how many sequence numbers fit in a NACK
// datagram of mtu bytes, after accounting for headerBytes of opaque packet
// header and the count field itself.
func MaxSequencesPerNack(mtu, headerBytes int) int {
	room := mtu - headerBytes - nackCountSize
	if room <= 0 {
		return 0
	}
	return room / seqSize
}

// PutNackBody writes the count-prefixed sequence list into buf (which must
// start immediately after the packet header) and returns the number of
// bytes written.
func PutNackBody(buf []byte, seqs []SequenceNumber) int {
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(seqs)))
	offset := nackCountSize
	for _, s := range seqs {
		binary.LittleEndian.PutUint16(buf[offset:offset+seqSize], s)
		offset += seqSize
	}
	return offset
}

// ParseNackBody reads a count-prefixed sequence list starting at the
// beginning of data (immediately after the packet header).
func ParseNackBody(data []byte) ([]SequenceNumber, error) {
	if len(data) < nackCountSize {
		return nil, ErrPacketTooShort
	}
	count := binary.LittleEndian.Uint16(data[0:2])
	need := nackCountSize + int(count)*seqSize
	if len(data) < need {
		return nil, ErrPacketTooShort
	}
	seqs := make([]SequenceNumber, count)
	offset := nackCountSize
	for i := range seqs {
		seqs[i] = binary.LittleEndian.Uint16(data[offset : offset+seqSize])
		offset += seqSize
	}
	return seqs, nil
}
