//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataZeroValue(t *testing.T) {
	var d Data
	assert.Equal(t, 0, d.Len())
	assert.Nil(t, d.Keys())
	assert.False(t, d.Has("k"))

	d2 := d.Set("k", 1)
	v, ok := d2.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 0, d.Len())
}

func TestDataStructuralSharing(t *testing.T) {
	base := DataFrom(map[string]any{"a": 1, "b": 2})

	updated := base.Set("b", 20).Set("c", 30)
	deleted := base.Delete("a")

	// The base version observes none of the derived changes.
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, base.ToMap())
	assert.Equal(t, map[string]any{"a": 1, "b": 20, "c": 30}, updated.ToMap())
	assert.Equal(t, map[string]any{"b": 2}, deleted.ToMap())
}

func TestDataMerge(t *testing.T) {
	base := DataFrom(map[string]any{"a": 1, "b": 2})
	merged := base.Merge(map[string]any{"b": 3, "c": 4})

	assert.Equal(t, map[string]any{"a": 1, "b": 3, "c": 4}, merged.ToMap())
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, base.ToMap())

	// Empty merge returns the receiver untouched.
	same := base.Merge(nil)
	assert.Equal(t, base.ToMap(), same.ToMap())
}

func TestDataKeysSorted(t *testing.T) {
	d := DataFrom(map[string]any{"z": 1, "a": 2, "m": 3})
	assert.Equal(t, []string{"a", "m", "z"}, d.Keys())
}

func TestDataJSONRoundTrip(t *testing.T) {
	d := DataFrom(map[string]any{"s": "v", "n": float64(7), "b": true})

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var back Data
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, d.ToMap(), back.ToMap())
}
