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

import "errors"

var (
	// ErrDimensionMismatch indicates a vector whose length differs from the
	// index dimensionality. This is a programmer or configuration error.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrZeroVector indicates an attempt to insert a zero-magnitude vector,
	// which cannot participate in cosine ranking.
	ErrZeroVector = errors.New("zero-magnitude vector")

	// ErrInvalidK indicates a non-positive k in a nearest-neighbor search.
	ErrInvalidK = errors.New("k must be positive")

	// ErrIndexLoad indicates a persisted index could not be restored: missing
	// file, corrupt data, or a vector file paired with a foreign id-map.
	// The service must refuse to serve queries rather than misattribute results.
	ErrIndexLoad = errors.New("index load failure")

	// ErrModelMismatch indicates a persisted index was built under a different
	// embedding model than the one in use.
	ErrModelMismatch = errors.New("index built under different embedding model")
)
