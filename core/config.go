/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package core

import (
	"math"
	"time"

	"github.com/pelletier/go-toml"
)

var config *toml.Tree

// LoadConfig loads the octreed configuration from the given TOML file. When
// file is empty, an empty configuration tree is used and all lookups fall
// back to their defaults.
func LoadConfig(file string) {
	if file == "" {
		config, _ = toml.Load("")
		return
	}

	var err error
	config, err = toml.LoadFile(file)
	if err != nil {
		LogFatal("Config", "unable to load configuration file: "+err.Error())
	}
}

func configGet(key string) interface{} {
	if config == nil {
		return nil
	}
	return config.Get(key)
}

// GetConfigIntDefault returns the integer configuration value at key, or def.
func GetConfigIntDefault(key string, def int) int {
	valRaw := configGet(key)
	if valRaw == nil {
		return def
	}
	val, ok := valRaw.(int64)
	if ok && val >= math.MinInt32 && val <= math.MaxInt32 {
		return int(val)
	}
	return def
}

// GetConfigStringDefault returns the string configuration value at key, or def.
func GetConfigStringDefault(key string, def string) string {
	valRaw := configGet(key)
	if valRaw == nil {
		return def
	}
	if val, ok := valRaw.(string); ok {
		return val
	}
	return def
}

// GetConfigUint16Default returns the uint16 configuration value at key, or def.
func GetConfigUint16Default(key string, def uint16) uint16 {
	valRaw := configGet(key)
	if valRaw == nil {
		return def
	}
	if val, ok := valRaw.(int64); ok && val > 0 && val <= math.MaxUint16 {
		return uint16(val)
	}
	return def
}

// GetConfigBoolDefault returns the boolean configuration value at key, or def.
func GetConfigBoolDefault(key string, def bool) bool {
	valRaw := configGet(key)
	if valRaw == nil {
		return def
	}
	if val, ok := valRaw.(bool); ok {
		return val
	}
	return def
}

// GetConfigDurationDefault returns key parsed as a Go duration string
// (e.g. "1s"), or def if absent or unparsable.
func GetConfigDurationDefault(key string, def time.Duration) time.Duration {
	valRaw := configGet(key)
	if valRaw == nil {
		return def
	}
	val, ok := valRaw.(string)
	if !ok {
		return def
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return parsed
}
