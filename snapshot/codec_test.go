/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package snapshot_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/octree-io/octreed/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteGzipReadRoundTrip(t *testing.T) {
	codec := snapshot.NewCodec(nil)
	id := uuid.New()
	env := snapshot.NewEntityEnvelope(id, 7, 3, []map[string]interface{}{
		{"A": float64(1)},
		{"B": float64(2)},
	})

	gz, err := codec.WriteGzipped(env)
	require.NoError(t, err)

	got, err := codec.Read(gz)
	require.NoError(t, err)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, uint64(7), got.DataVersion)
	assert.Equal(t, uint64(3), got.Version)
	assert.Equal(t, env.Entities, got.Entities)
}

func TestReadAutoDetectsPlainAndGzipped(t *testing.T) {
	codec := snapshot.NewCodec(nil)
	id := uuid.New()
	env := snapshot.NewEntityEnvelope(id, 1, 1, []map[string]interface{}{{"X": float64(9)}})

	plain, err := codec.Write(env)
	require.NoError(t, err)
	gz, err := codec.WriteGzipped(env)
	require.NoError(t, err)

	fromPlain, err := codec.Read(plain)
	require.NoError(t, err)
	fromGzip, err := codec.Read(gz)
	require.NoError(t, err)

	assert.Equal(t, fromPlain, fromGzip)
}

func TestReadToleratesMissingHeaderFields(t *testing.T) {
	codec := snapshot.NewCodec(nil)
	got, err := codec.Read([]byte(`{"Entities":[{"A":1}]}`))
	require.NoError(t, err)

	assert.Equal(t, uuid.Nil, got.ID)
	assert.Equal(t, uint64(0), got.DataVersion)
	assert.Equal(t, uint64(0), got.Version)
	assert.Equal(t, []map[string]interface{}{{"A": float64(1)}}, got.Entities)
}

func TestReadInvalidJSONFails(t *testing.T) {
	codec := snapshot.NewCodec(nil)
	_, err := codec.Read([]byte(`not json`))
	assert.Error(t, err)
}

func TestFromMapParsesHeaderAndEntities(t *testing.T) {
	codec := snapshot.NewCodec(nil)
	id := uuid.New()
	m := map[string]interface{}{
		"Id":          id.String(),
		"DataVersion": float64(5),
		"Version":     float64(2),
		"Entities": []interface{}{
			map[string]interface{}{"A": float64(1)},
		},
	}

	env, err := codec.FromMap(m)
	require.NoError(t, err)
	assert.Equal(t, id, env.ID)
	assert.Equal(t, uint64(5), env.DataVersion)
	assert.Equal(t, uint64(2), env.Version)
	assert.Equal(t, []map[string]interface{}{{"A": float64(1)}}, env.Entities)
}

func TestResetIDAndVersion(t *testing.T) {
	env := snapshot.NewEntityEnvelope(uuid.Nil, 42, 1, nil)
	env.ResetIDAndVersion()

	assert.NotEqual(t, uuid.Nil, env.ID)
	assert.Equal(t, snapshot.InitialVersion, env.DataVersion)
}
