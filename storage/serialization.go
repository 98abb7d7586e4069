// Copyright 2025 Finvoc Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"time"

	"github.com/finvoc/termbase/core"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the domain types. Field order is the wire
// format; append new fields at the end only.

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := varint.Uint64.Unmarshal(data)
	return core.ID(id), err
}

// MarshalEntry serializes an Entry to bytes.
func MarshalEntry(entry *core.Entry) []byte {
	buf := make([]byte, sizeEntry(entry))
	marshalEntry(entry, buf)
	return buf
}

// UnmarshalEntry deserializes an Entry from bytes.
func UnmarshalEntry(data []byte) (*core.Entry, error) {
	entry, _, err := unmarshalEntry(data)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// MarshalEdge serializes an Edge to bytes.
func MarshalEdge(edge *core.Edge) []byte {
	buf := make([]byte, sizeEdge(edge))
	marshalEdge(edge, buf)
	return buf
}

// UnmarshalEdge deserializes an Edge from bytes.
func UnmarshalEdge(data []byte) (*core.Edge, error) {
	edge, _, err := unmarshalEdge(data)
	if err != nil {
		return nil, err
	}
	return edge, nil
}

func sizeEntry(v *core.Entry) int {
	return varint.Uint64.Size(uint64(v.Id)) +
		ord.String.Size(v.Term) +
		sizeStrings(v.Aliases) +
		ord.String.Size(v.Summary) +
		ord.String.Size(v.Definition) +
		varint.Int.Size(int(v.Category)) +
		raw.Float32.Size(v.QualityScore) +
		sizeStrings(v.AssetClasses) +
		ord.Bool.Size(v.IsActive) +
		sizeVector(v.Vector) +
		ord.String.Size(v.EmbeddingModel) +
		varint.Uint64.Size(v.Version) +
		varint.Uint64.Size(v.UseCount) +
		sizeTime(v.LastUsedAt) +
		sizeTime(v.InsertedAt) +
		sizeTime(v.UpdatedAt)
}

func marshalEntry(v *core.Entry, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.Id), bs)
	n += ord.String.Marshal(v.Term, bs[n:])
	n += marshalStrings(v.Aliases, bs[n:])
	n += ord.String.Marshal(v.Summary, bs[n:])
	n += ord.String.Marshal(v.Definition, bs[n:])
	n += varint.Int.Marshal(int(v.Category), bs[n:])
	n += raw.Float32.Marshal(v.QualityScore, bs[n:])
	n += marshalStrings(v.AssetClasses, bs[n:])
	n += ord.Bool.Marshal(v.IsActive, bs[n:])
	n += marshalVector(v.Vector, bs[n:])
	n += ord.String.Marshal(v.EmbeddingModel, bs[n:])
	n += varint.Uint64.Marshal(v.Version, bs[n:])
	n += varint.Uint64.Marshal(v.UseCount, bs[n:])
	n += marshalTime(v.LastUsedAt, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func unmarshalEntry(bs []byte) (*core.Entry, int, error) {
	v := &core.Entry{}
	id, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	v.Id = core.ID(id)

	var m int
	if v.Term, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if v.Aliases, m, err = unmarshalStrings(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if v.Summary, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if v.Definition, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	category, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, n + m, err
	}
	v.Category = core.Category(category)
	n += m
	if v.QualityScore, m, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if v.AssetClasses, m, err = unmarshalStrings(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if v.IsActive, m, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if v.Vector, m, err = unmarshalVector(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if v.EmbeddingModel, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if v.Version, m, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if v.UseCount, m, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if v.LastUsedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if v.InsertedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if v.UpdatedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	return v, n, nil
}

func sizeEdge(v *core.Edge) int {
	return varint.Uint64.Size(uint64(v.Source)) +
		varint.Uint64.Size(uint64(v.Target)) +
		varint.Int.Size(int(v.Type)) +
		raw.Float32.Size(v.Strength) +
		ord.Bool.Size(v.Verified) +
		sizeTime(v.InsertedAt)
}

func marshalEdge(v *core.Edge, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.Source), bs)
	n += varint.Uint64.Marshal(uint64(v.Target), bs[n:])
	n += varint.Int.Marshal(int(v.Type), bs[n:])
	n += raw.Float32.Marshal(v.Strength, bs[n:])
	n += ord.Bool.Marshal(v.Verified, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	return n
}

func unmarshalEdge(bs []byte) (*core.Edge, int, error) {
	v := &core.Edge{}
	source, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	v.Source = core.ID(source)

	var m int
	target, m, err := varint.Uint64.Unmarshal(bs[n:])
	if err != nil {
		return nil, n + m, err
	}
	v.Target = core.ID(target)
	n += m
	edgeType, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, n + m, err
	}
	v.Type = core.EdgeType(edgeType)
	n += m
	if v.Strength, m, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if v.Verified, m, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if v.InsertedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	return v, n, nil
}

func sizeStrings(v []string) int {
	size := varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

func marshalStrings(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStrings(bs []byte) (v []string, n int, err error) {
	count, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if count < 0 {
		return nil, n, ErrTruncatedData
	}
	if count == 0 {
		return nil, n, nil
	}
	v = make([]string, count)
	for i := 0; i < count; i++ {
		var m int
		if v[i], m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + m, err
		}
		n += m
	}
	return v, n, nil
}

func sizeVector(v []float32) int {
	return varint.Int.Size(len(v)) + len(v)*raw.Float32.Size(0)
}

func marshalVector(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) (v []float32, n int, err error) {
	count, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if count < 0 {
		return nil, n, ErrTruncatedData
	}
	if count == 0 {
		return nil, n, nil
	}
	v = make([]float32, count)
	for i := 0; i < count; i++ {
		var m int
		if v[i], m, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
			return nil, n + m, err
		}
		n += m
	}
	return v, n, nil
}

// Timestamps travel as Unix microseconds, matching badger index-key precision.
func sizeTime(v time.Time) int {
	return varint.Int64.Size(v.UnixMicro())
}

func marshalTime(v time.Time, bs []byte) int {
	return varint.Int64.Marshal(v.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}
