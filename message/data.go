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
	"sort"

	"github.com/benbjohnson/immutable"
)

// Data is a persistent string-keyed map with structural sharing. Every
// mutating operation returns a new Data; prior values stay valid and
// unchanged. The zero value is an empty, usable map.
//
// Data backs both message payload data and the runner's state map, which is
// why mutation never happens in place: a node holding an old Data can keep
// reading it while the runner advances its own copy.
type Data struct {
	m *immutable.Map[string, any]
}

// NewData returns an empty Data.
func NewData() Data {
	return Data{m: immutable.NewMap[string, any](nil)}
}

// DataFrom builds a Data from a plain map. The input map is not retained.
func DataFrom(src map[string]any) Data {
	b := immutable.NewMapBuilder[string, any](nil)
	for k, v := range src {
		b.Set(k, v)
	}
	return Data{m: b.Map()}
}

// Get returns the value stored under key.
func (d Data) Get(key string) (any, bool) {
	if d.m == nil {
		return nil, false
	}
	return d.m.Get(key)
}

// GetString returns the string stored under key. It reports false when the
// key is absent or holds a non-string value.
func (d Data) GetString(key string) (string, bool) {
	v, ok := d.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Set returns a new Data with key set to value.
func (d Data) Set(key string, value any) Data {
	if d.m == nil {
		return Data{m: immutable.NewMap[string, any](nil).Set(key, value)}
	}
	return Data{m: d.m.Set(key, value)}
}

// Delete returns a new Data without key.
func (d Data) Delete(key string) Data {
	if d.m == nil {
		return d
	}
	return Data{m: d.m.Delete(key)}
}

// Merge returns a new Data with every entry of src applied on top of the
// receiver.
func (d Data) Merge(src map[string]any) Data {
	if len(src) == 0 {
		return d
	}
	m := d.m
	if m == nil {
		m = immutable.NewMap[string, any](nil)
	}
	for k, v := range src {
		m = m.Set(k, v)
	}
	return Data{m: m}
}

// Has reports whether key is present.
func (d Data) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Len returns the number of entries.
func (d Data) Len() int {
	if d.m == nil {
		return 0
	}
	return d.m.Len()
}

// Keys returns all keys in sorted order.
func (d Data) Keys() []string {
	if d.m == nil {
		return nil
	}
	keys := make([]string, 0, d.m.Len())
	itr := d.m.Iterator()
	for !itr.Done() {
		k, _, _ := itr.Next()
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToMap copies the entries into a plain map.
func (d Data) ToMap() map[string]any {
	out := make(map[string]any, d.Len())
	if d.m == nil {
		return out
	}
	itr := d.m.Iterator()
	for !itr.Done() {
		k, v, _ := itr.Next()
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the Data as a plain JSON object.
func (d Data) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ToMap())
}

// UnmarshalJSON decodes a JSON object into the Data.
func (d *Data) UnmarshalJSON(b []byte) error {
	var src map[string]any
	if err := json.Unmarshal(b, &src); err != nil {
		return err
	}
	*d = DataFrom(src)
	return nil
}
