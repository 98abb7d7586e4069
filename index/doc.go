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


// Package index implements the in-memory vector index used for
// nearest-neighbor retrieval over entry embeddings.
//
// The index is a flat, exact structure: vectors are normalized to unit length
// on insert, and search ranks by cosine distance (1 - dot product) over every
// stored vector. Exact search keeps the spec's round-trip and determinism
// properties trivially true and is well within budget for the corpus sizes
// this engine serves; an approximate structure can replace it behind the same
// surface if the corpus outgrows it.
//
// The index owns the mapping from dense vector positions to entry IDs.
// Entries know nothing about the index; it is a derived, rebuildable
// projection of the record store, never authoritative.
//
// Handle publishes index snapshots via atomic pointer replacement so a full
// rebuild can swap in a freshly built index without readers ever observing a
// partially built one.
package index
