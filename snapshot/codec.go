/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package snapshot

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/octree-io/octreed/core"
	"github.com/octree-io/octreed/dispatch"
)

// ErrSnapshotParse is returned when the JSON payload cannot be decoded at
// all (as opposed to missing optional header fields, which is tolerated).
var ErrSnapshotParse = core.ErrSnapshotParse

// wireEnvelope is the on-disk/on-wire JSON shape. Field order matches the
// original's object construction order for readability; JSON itself does
// not guarantee it is preserved by every reader.
type wireEnvelope struct {
	DataVersion *uint64                  `json:"DataVersion,omitempty"`
	ID          *string                  `json:"Id,omitempty"`
	Version     *uint64                  `json:"Version,omitempty"`
	Entities    []map[string]interface{} `json:"Entities,omitempty"`
}

// StdGzip implements dispatch.Gzip over compress/gzip. No third-party
// alternative appears anywhere in this codebase's reference corpus, so the
// standard library is used directly (see DESIGN.md).
type StdGzip struct{}

// Gzip compresses in at the default compression level.
func (StdGzip) Gzip(in []byte) ([]byte, bool) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(in); err != nil {
		return nil, false
	}
	if err := w.Close(); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

// Gunzip decompresses in, reporting false if it is not valid gzip data.
func (StdGzip) Gunzip(in []byte) ([]byte, bool) {
	r, err := gzip.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, false
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, false
	}
	return out, true
}

// Codec reads and writes snapshot envelopes, auto-detecting gzip framing on
// read.
type Codec struct {
	gz dispatch.Gzip
}

// NewCodec returns a Codec. A nil gz defaults to StdGzip{}.
func NewCodec(gz dispatch.Gzip) *Codec {
	if gz == nil {
		gz = StdGzip{}
	}
	return &Codec{gz: gz}
}

// ReadFile loads and parses the envelope stored at path.
func (c *Codec) ReadFile(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.Read(data)
}

// Read parses data as a snapshot envelope. Gzip framing is auto-detected: if
// data does not decompress, it is parsed as plain JSON.
func (c *Codec) Read(data []byte) (*Envelope, error) {
	if plain, ok := c.gz.Gunzip(data); ok {
		data = plain
	}

	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		core.LogError("snapshot", "failed to parse snapshot JSON: ", err)
		return nil, ErrSnapshotParse
	}

	env := &Envelope{Kind: KindEntity, Entities: w.Entities}
	if w.DataVersion != nil && w.ID != nil && w.Version != nil {
		id, err := uuid.Parse(*w.ID)
		if err != nil {
			core.LogWarn("snapshot", "ignoring unparsable Id: ", err)
		} else {
			env.ID = id
		}
		env.DataVersion = *w.DataVersion
		env.Version = *w.Version
	}
	return env, nil
}

// Write serializes env as UTF-8 JSON.
func (c *Codec) Write(env *Envelope) ([]byte, error) {
	dataVersion := env.DataVersion
	version := env.Version
	id := env.ID.String()
	w := wireEnvelope{
		DataVersion: &dataVersion,
		ID:          &id,
		Version:     &version,
		Entities:    env.Entities,
	}
	return json.Marshal(w)
}

// WriteGzipped serializes env and gzips the result at default compression.
func (c *Codec) WriteGzipped(env *Envelope) ([]byte, error) {
	data, err := c.Write(env)
	if err != nil {
		return nil, err
	}
	gz, ok := c.gz.Gzip(data)
	if !ok {
		return nil, errors.New("snapshot: gzip compression failed")
	}
	return gz, nil
}

// FromMap parses an envelope from an already-decoded map, mirroring the
// original's readOctreeDataInfoFromMap path used when entity data arrives
// embedded in another document rather than as a standalone file.
func (c *Codec) FromMap(m map[string]interface{}) (*Envelope, error) {
	env := &Envelope{Kind: KindEntity}

	if idRaw, idOk := m["Id"]; idOk {
		if dvRaw, dvOk := m["DataVersion"]; dvOk {
			if vRaw, vOk := m["Version"]; vOk {
				idStr, _ := idRaw.(string)
				id, err := uuid.Parse(idStr)
				if err != nil {
					core.LogWarn("snapshot", "ignoring unparsable Id in map: ", err)
				} else {
					env.ID = id
				}
				env.DataVersion = toUint64(dvRaw)
				env.Version = toUint64(vRaw)
			}
		}
	}

	if entitiesRaw, ok := m["Entities"]; ok {
		list, ok := entitiesRaw.([]interface{})
		if !ok {
			return nil, ErrSnapshotParse
		}
		entities := make([]map[string]interface{}, 0, len(list))
		for _, item := range list {
			entity, ok := item.(map[string]interface{})
			if !ok {
				return nil, ErrSnapshotParse
			}
			entities = append(entities, entity)
		}
		env.Entities = entities
	}

	return env, nil
}

func toUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case int64:
		return uint64(n)
	case int:
		return uint64(n)
	case float64:
		return uint64(n)
	default:
		return 0
	}
}
