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


package search

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/finvoc/termbase/core"
)

// Filters narrows search results after the index scan. The zero value
// matches every active entry.
type Filters struct {
	// Categories keeps only entries in one of the given categories.
	// Empty means all categories.
	Categories []core.Category

	// AssetClasses keeps only entries tagged with at least one of the given
	// asset classes, compared case-insensitively. Empty means all.
	AssetClasses []string

	// MinQuality keeps only entries whose quality score is at least this
	// value. Zero keeps everything.
	MinQuality float32
}

// Validate checks the filter for out-of-range values.
func (f Filters) Validate() error {
	if f.MinQuality < 0 || f.MinQuality > 1 {
		return fmt.Errorf("%w: %f", ErrInvalidMinQuality, f.MinQuality)
	}
	for _, category := range f.Categories {
		if err := core.ValidateCategory(category); err != nil {
			return err
		}
	}
	return nil
}

// Match reports whether an entry passes the filter.
func (f Filters) Match(entry *core.Entry) bool {
	if entry.QualityScore < f.MinQuality {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, entry.Category) {
		return false
	}
	if len(f.AssetClasses) > 0 {
		found := false
		for _, want := range f.AssetClasses {
			for _, have := range entry.AssetClasses {
				if strings.EqualFold(want, have) {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// cacheKeyPart encodes the filter canonically, so that logically equal
// filters produce the same cache key regardless of element order or case.
func (f Filters) cacheKeyPart() string {
	categories := make([]string, 0, len(f.Categories))
	for _, category := range f.Categories {
		categories = append(categories, category.String())
	}
	slices.Sort(categories)

	assetClasses := make([]string, 0, len(f.AssetClasses))
	for _, assetClass := range f.AssetClasses {
		assetClasses = append(assetClasses, strings.ToLower(assetClass))
	}
	slices.Sort(assetClasses)
	assetClasses = slices.Compact(assetClasses)

	var sb strings.Builder
	sb.WriteString("cat=")
	sb.WriteString(strings.Join(categories, ","))
	sb.WriteString(";ac=")
	sb.WriteString(strings.Join(assetClasses, ","))
	sb.WriteString(";q=")
	sb.WriteString(strconv.FormatFloat(float64(f.MinQuality), 'f', 4, 32))
	return sb.String()
}
