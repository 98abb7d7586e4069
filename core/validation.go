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

import "fmt"

// ValidateEntry validates an Entry according to domain rules.
//
// Validation rules:
//   - Term must not be empty
//   - Definition must not be empty
//   - Category must be one of the closed enumeration
//   - QualityScore must be in [0,1]
//
// NOT validated (populated by the index builder):
//   - Vector (can be empty until embedded)
//   - EmbeddingModel (empty while Vector is empty)
func ValidateEntry(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEntry)
	}

	if entry.Term == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyTerm)
	}

	if entry.Definition == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyDefinition)
	}

	if err := ValidateCategory(entry.Category); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}

	if entry.QualityScore < 0 || entry.QualityScore > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrInvalidQualityScore)
	}

	return nil
}

// ValidateEdge validates an Edge according to domain rules.
//
// Validation rules:
//   - Source and Target must be non-zero and distinct (no self-loops)
//   - Type must be one of the closed enumeration
//   - Strength must be in [0,1]
func ValidateEdge(edge *Edge) error {
	if edge == nil {
		return fmt.Errorf("%w: edge is nil", ErrInvalidEdge)
	}

	if edge.Source == 0 || edge.Target == 0 {
		return fmt.Errorf("%w: source and target are required", ErrInvalidEdge)
	}

	if edge.Source == edge.Target {
		return fmt.Errorf("%w: %w", ErrInvalidEdge, ErrSelfLoop)
	}

	if err := ValidateEdgeType(edge.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEdge, err)
	}

	if edge.Strength < 0 || edge.Strength > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidEdge, ErrInvalidStrength)
	}

	return nil
}

// ValidateCategory validates that a Category has a valid value.
func ValidateCategory(category Category) error {
	if _, ok := categoryNames[category]; !ok {
		return fmt.Errorf("%w: value %d", ErrInvalidCategory, category)
	}
	return nil
}

// ValidateEdgeType validates that an EdgeType has a valid value.
func ValidateEdgeType(edgeType EdgeType) error {
	if _, ok := edgeTypeNames[edgeType]; !ok {
		return fmt.Errorf("%w: value %d", ErrInvalidEdgeType, edgeType)
	}
	return nil
}
