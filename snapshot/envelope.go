/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package snapshot reads and writes the octree-snapshot envelope: identity
// and version metadata plus a gzip-transparent JSON payload.
//
// The payload is modeled as a tagged variant (Kind) with an exhaustive
// switch, so an unrecognized kind is an ordinary returned error rather than
// a reachable assertion failure.
package snapshot

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/octree-io/octreed/wire"
)

// InitialVersion is the data version assigned to a freshly reset envelope.
const InitialVersion uint64 = 0

// EntityDataPacketType is the wire packet type used to transmit an entity
// snapshot payload.
const EntityDataPacketType wire.PacketType = 1

// Kind discriminates an Envelope's payload. Entity is the only variant this
// core implements; additional kinds would extend this enum and PacketType's
// switch, not add a subclass.
type Kind uint8

const (
	// KindEntity marks an Envelope whose payload is an ordered entity list.
	KindEntity Kind = iota
)

// Envelope is the persisted/transmitted form of an octree snapshot: UUID
// identity, a data version bumped on every mutating change, a format
// version, and a kind-specific payload.
type Envelope struct {
	ID          uuid.UUID
	DataVersion uint64
	Version     uint64

	Kind Kind
	// Entities holds the payload when Kind == KindEntity. Each element is
	// opaque to this core - it is neither validated nor interpreted.
	Entities []map[string]interface{}
}

// NewEntityEnvelope constructs an Envelope carrying an entity payload.
func NewEntityEnvelope(id uuid.UUID, dataVersion, version uint64, entities []map[string]interface{}) *Envelope {
	return &Envelope{ID: id, DataVersion: dataVersion, Version: version, Kind: KindEntity, Entities: entities}
}

// PacketType returns the wire packet type for this envelope's kind, or an
// error if Kind is not recognized.
func (e *Envelope) PacketType() (wire.PacketType, error) {
	switch e.Kind {
	case KindEntity:
		return EntityDataPacketType, nil
	default:
		return 0, fmt.Errorf("snapshot: envelope has unknown kind %d", e.Kind)
	}
}

// ResetIDAndVersion assigns a fresh random ID and resets DataVersion to
// InitialVersion. Version and the payload are left unchanged.
func (e *Envelope) ResetIDAndVersion() {
	e.ID = uuid.New()
	e.DataVersion = InitialVersion
}
