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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidEntry indicates an Entry failed validation.
	ErrInvalidEntry = errors.New("invalid entry")

	// ErrInvalidEdge indicates an Edge failed validation.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrEmptyTerm indicates the Term field is empty.
	ErrEmptyTerm = errors.New("term cannot be empty")

	// ErrEmptyDefinition indicates the Definition field is empty.
	ErrEmptyDefinition = errors.New("definition cannot be empty")

	// ErrInvalidCategory indicates an unknown Category value.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidQualityScore indicates a quality score outside [0,1].
	ErrInvalidQualityScore = errors.New("quality score must be in [0,1]")

	// ErrInvalidEdgeType indicates an unknown EdgeType value.
	ErrInvalidEdgeType = errors.New("invalid edge type")

	// ErrInvalidStrength indicates an edge strength outside [0,1].
	ErrInvalidStrength = errors.New("edge strength must be in [0,1]")

	// ErrSelfLoop indicates an edge whose source and target are the same entry.
	ErrSelfLoop = errors.New("edge cannot reference itself")
)
