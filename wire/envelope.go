/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package wire defines the on-the-wire types shared by the ingest, nack and
// directory packages: sequence numbers, sender identity, packet types, and
// the fixed-offset edit/NACK packet layouts.
//
// All multi-byte wire fields are little-endian, since that is what the
// overwhelming majority of deployed senders already assume.
package wire

import (
	"encoding/binary"
	"errors"

	"github.com/google/uuid"
)

// ErrPacketTooShort is returned by ParseEditPrefix/ParseNackBody when the
// supplied slice is shorter than the fields being decoded.
var ErrPacketTooShort = errors.New("packet too short for its declared fields")

// SequenceNumber is a 16-bit rolling counter stamped by the sender on every
// edit packet. It wraps modulo 1<<16.
type SequenceNumber = uint16

// UINT16Range is the size of the modular space SequenceNumber wraps over.
const UINT16Range = 1 << 16

// NodeID identifies a sender. Equality defines sender identity.
type NodeID uuid.UUID

// NilNodeID is the zero-value sender identity. Nothing in this repository
// assigns it; every ingress path derives a NodeID from the remote address.
var NilNodeID = NodeID(uuid.Nil)

func (n NodeID) String() string {
	return uuid.UUID(n).String()
}

// PacketType identifies the kind of datagram carried in a PacketEnvelope.
// Its meaning is owned by the header codec and the octree collaborator.
type PacketType uint8

// editPrefixSize is the size in bytes of the sequence + send-timestamp
// prefix that follows the packet header on every edit packet.
const editPrefixSize = 2 + 8 // uint16 sequence + uint64 send_timestamp_us

// EditPrefix is the parsed fixed prefix of an edit packet, following the
// opaque packet header.
type EditPrefix struct {
	Sequence      SequenceNumber
	SendTimeStamp uint64 // microseconds
}

// ParseEditPrefix reads the sequence number and send timestamp from data,
// which must start immediately after the packet header. Returns the prefix
// and the number of bytes consumed (always editPrefixSize on success).
func ParseEditPrefix(data []byte) (EditPrefix, int, error) {
	if len(data) < editPrefixSize {
		return EditPrefix{}, 0, ErrPacketTooShort
	}
	return EditPrefix{
		Sequence:      binary.LittleEndian.Uint16(data[0:2]),
		SendTimeStamp: binary.LittleEndian.Uint64(data[2:10]),
	}, editPrefixSize, nil
}

// PutEditPrefix writes seq and sendTimeStampUs into buf[0:editPrefixSize].
// buf must have at least editPrefixSize bytes available.
func PutEditPrefix(buf []byte, seq SequenceNumber, sendTimeStampUs uint64) int {
	binary.LittleEndian.PutUint16(buf[0:2], seq)
	binary.LittleEndian.PutUint64(buf[2:10], sendTimeStampUs)
	return editPrefixSize
}

// PacketEnvelope is an owned inbound datagram plus the identity of its
// sender, as handed to the PacketProcessor by the network ingress.
type PacketEnvelope struct {
	Sender NodeID
	Data   []byte
}

