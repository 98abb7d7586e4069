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


package index

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/finvoc/termbase/core"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// The index persists as a file pair: the vector structure and the dense
// position -> entry id map. Both carry the same build id and model id in
// their headers; Load cross-checks them so a vector file can never be paired
// with a foreign id-map, which would silently misattribute every result.
const (
	VectorsFileName = "vectors.mus"
	IDMapFileName   = "idmap.mus"

	vectorsMagic = "termbase-vectors/1"
	idMapMagic   = "termbase-idmap/1"
)

// Save persists the index into dir as a vectors file plus an id-map file.
// Each file is written to a temporary name and renamed into place, so a crash
// mid-save never leaves a truncated file under the published name.
func (f *Flat) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := writeFileAtomic(filepath.Join(dir, VectorsFileName), f.marshalVectors()); err != nil {
		return fmt.Errorf("saving vectors: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, IDMapFileName), f.marshalIDMap()); err != nil {
		return fmt.Errorf("saving id map: %w", err)
	}
	return nil
}

// Load restores an index from the file pair in dir.
//
// It fails with ErrIndexLoad if either file is missing or corrupt, or if the
// two files do not come from the same build. It fails with ErrModelMismatch
// if the persisted index was built under a model id other than expectedModelID.
func Load(dir, expectedModelID string) (*Flat, error) {
	vecData, err := readChecked(filepath.Join(dir, VectorsFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: vectors file: %w", ErrIndexLoad, err)
	}
	idData, err := readChecked(filepath.Join(dir, IDMapFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: id-map file: %w", ErrIndexLoad, err)
	}

	f, err := unmarshalVectors(vecData)
	if err != nil {
		return nil, fmt.Errorf("%w: vectors file: %w", ErrIndexLoad, err)
	}

	ids, idBuild, idModel, err := unmarshalIDMap(idData)
	if err != nil {
		return nil, fmt.Errorf("%w: id-map file: %w", ErrIndexLoad, err)
	}

	if idBuild != f.buildID || idModel != f.modelID {
		return nil, fmt.Errorf("%w: id-map from build %q/model %q does not match vectors from build %q/model %q",
			ErrIndexLoad, idBuild, idModel, f.buildID, f.modelID)
	}
	if len(ids) != len(f.vectors) {
		return nil, fmt.Errorf("%w: %d ids for %d vectors", ErrIndexLoad, len(ids), len(f.vectors))
	}
	if expectedModelID != "" && f.modelID != expectedModelID {
		return nil, fmt.Errorf("%w: index model %q, expected %q", ErrModelMismatch, f.modelID, expectedModelID)
	}

	f.ids = ids
	f.byEntry = make(map[core.ID]int, len(ids))
	for i, id := range ids {
		if _, dup := f.byEntry[id]; dup {
			return nil, fmt.Errorf("%w: duplicate entry id %d in id map", ErrIndexLoad, id)
		}
		f.byEntry[id] = i
	}

	return f, nil
}

// marshalVectors encodes the header and vector payload. Caller holds the lock.
func (f *Flat) marshalVectors() []byte {
	size := ord.String.Size(vectorsMagic) +
		ord.String.Size(f.buildID) +
		ord.String.Size(f.modelID) +
		varint.Int64.Size(f.builtAt.UnixMicro()) +
		varint.Int.Size(f.dim) +
		varint.Int.Size(len(f.vectors)) +
		len(f.vectors)*f.dim*raw.Float32.Size(0)

	bs := make([]byte, size)
	n := ord.String.Marshal(vectorsMagic, bs)
	n += ord.String.Marshal(f.buildID, bs[n:])
	n += ord.String.Marshal(f.modelID, bs[n:])
	n += varint.Int64.Marshal(f.builtAt.UnixMicro(), bs[n:])
	n += varint.Int.Marshal(f.dim, bs[n:])
	n += varint.Int.Marshal(len(f.vectors), bs[n:])
	for _, vec := range f.vectors {
		for _, v := range vec {
			n += raw.Float32.Marshal(v, bs[n:])
		}
	}
	return bs[:n]
}

func unmarshalVectors(bs []byte) (*Flat, error) {
	magic, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return nil, err
	}
	if magic != vectorsMagic {
		return nil, fmt.Errorf("unexpected header %q", magic)
	}

	f := &Flat{}
	var m int
	if f.buildID, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, err
	}
	n += m
	if f.modelID, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, err
	}
	n += m
	builtAt, m, err := varint.Int64.Unmarshal(bs[n:])
	if err != nil {
		return nil, err
	}
	n += m
	f.builtAt = time.UnixMicro(builtAt).UTC()

	if f.dim, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return nil, err
	}
	n += m
	count, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, err
	}
	n += m
	if f.dim <= 0 || count < 0 {
		return nil, fmt.Errorf("invalid dimensions %d or count %d", f.dim, count)
	}

	f.vectors = make([][]float32, count)
	for i := 0; i < count; i++ {
		vec := make([]float32, f.dim)
		for j := 0; j < f.dim; j++ {
			v, m, err := raw.Float32.Unmarshal(bs[n:])
			if err != nil {
				return nil, err
			}
			n += m
			vec[j] = v
		}
		f.vectors[i] = vec
	}
	if n != len(bs) {
		return nil, fmt.Errorf("%d trailing bytes", len(bs)-n)
	}
	return f, nil
}

// marshalIDMap encodes the dense position -> entry id map. Caller holds the lock.
func (f *Flat) marshalIDMap() []byte {
	size := ord.String.Size(idMapMagic) +
		ord.String.Size(f.buildID) +
		ord.String.Size(f.modelID) +
		varint.Int.Size(len(f.ids))
	for _, id := range f.ids {
		size += varint.Uint64.Size(uint64(id))
	}

	bs := make([]byte, size)
	n := ord.String.Marshal(idMapMagic, bs)
	n += ord.String.Marshal(f.buildID, bs[n:])
	n += ord.String.Marshal(f.modelID, bs[n:])
	n += varint.Int.Marshal(len(f.ids), bs[n:])
	for _, id := range f.ids {
		n += varint.Uint64.Marshal(uint64(id), bs[n:])
	}
	return bs[:n]
}

func unmarshalIDMap(bs []byte) (ids []core.ID, buildID, modelID string, err error) {
	magic, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return nil, "", "", err
	}
	if magic != idMapMagic {
		return nil, "", "", fmt.Errorf("unexpected header %q", magic)
	}

	var m int
	if buildID, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, "", "", err
	}
	n += m
	if modelID, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, "", "", err
	}
	n += m
	count, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, "", "", err
	}
	n += m
	if count < 0 {
		return nil, "", "", fmt.Errorf("invalid count %d", count)
	}

	ids = make([]core.ID, count)
	for i := 0; i < count; i++ {
		id, m, err := varint.Uint64.Unmarshal(bs[n:])
		if err != nil {
			return nil, "", "", err
		}
		n += m
		ids[i] = core.ID(id)
	}
	if n != len(bs) {
		return nil, "", "", fmt.Errorf("%d trailing bytes", len(bs)-n)
	}
	return ids, buildID, modelID, nil
}

// writeFileAtomic appends a checksum trailer and renames a temp file into
// place. The temp file is synced before the rename and the directory after
// it, so the published name only ever refers to complete, durable content.
func writeFileAtomic(path string, payload []byte) error {
	sum := xxhash.Sum64(payload)
	bs := make([]byte, len(payload)+raw.Uint64.Size(sum))
	copy(bs, payload)
	raw.Uint64.Marshal(sum, bs[len(payload):])

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(bs); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}

	dir, err := os.Open(filepath.Dir(path))
	if err != nil {
		return err
	}
	defer dir.Close()
	return dir.Sync()
}

// readChecked reads a file and verifies its checksum trailer.
func readChecked(path string) ([]byte, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trailer := raw.Uint64.Size(0)
	if len(bs) < trailer {
		return nil, fmt.Errorf("file too short (%d bytes)", len(bs))
	}
	payload := bs[:len(bs)-trailer]
	want, _, err := raw.Uint64.Unmarshal(bs[len(payload):])
	if err != nil {
		return nil, err
	}
	if got := xxhash.Sum64(payload); got != want {
		return nil, fmt.Errorf("checksum mismatch")
	}
	return payload, nil
}
