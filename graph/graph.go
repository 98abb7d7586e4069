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


package graph

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/finvoc/termbase/core"
	"github.com/finvoc/termbase/storage"
)

// Relation is one entry reached while traversing the relationship graph.
type Relation struct {
	EntryID  core.ID
	Type     core.EdgeType
	Strength float32
	Depth    int
}

// RelatedOptions controls a traversal.
type RelatedOptions struct {
	// Types restricts traversal to the given edge types. Empty means all.
	Types []core.EdgeType

	// MaxDepth is the number of hops to walk. Zero or negative yields no
	// relations.
	MaxDepth int

	// IncludeReverse also follows edges pointing at the frontier entry.
	IncludeReverse bool

	// OnlyVerified skips edges that have not been verified.
	OnlyVerified bool
}

// Graph traverses relationship edges stored in an EdgeRepository.
type Graph struct {
	edges  storage.EdgeRepository
	logger *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for traversal diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// NewGraph creates a Graph over the given edge repository.
func NewGraph(edges storage.EdgeRepository, opts ...Option) *Graph {
	g := &Graph{
		edges:  edges,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RelatedTo walks the graph breadth-first from the given entry.
//
// Each entry appears at most once, at the shallowest depth it was reached.
// Within a depth level relations are ordered by strength descending, entry
// ID ascending on ties. The starting entry itself is never returned.
func (g *Graph) RelatedTo(ctx context.Context, id core.ID, opts RelatedOptions) ([]Relation, error) {
	if opts.MaxDepth <= 0 {
		return nil, nil
	}

	allowed := make(map[core.EdgeType]bool, len(opts.Types))
	for _, edgeType := range opts.Types {
		allowed[edgeType] = true
	}

	visited := map[core.ID]bool{id: true}
	frontier := []core.ID{id}
	var results []Relation

	for depth := 1; depth <= opts.MaxDepth && len(frontier) > 0; depth++ {
		var level []Relation

		for _, current := range frontier {
			neighbors, err := g.neighbors(ctx, current, opts)
			if err != nil {
				return nil, fmt.Errorf("traversal at depth %d: %w", depth, err)
			}

			for _, neighbor := range neighbors {
				if len(allowed) > 0 && !allowed[neighbor.edgeType] {
					continue
				}
				if opts.OnlyVerified && !neighbor.verified {
					continue
				}
				if visited[neighbor.id] {
					continue
				}
				visited[neighbor.id] = true
				level = append(level, Relation{
					EntryID:  neighbor.id,
					Type:     neighbor.edgeType,
					Strength: neighbor.strength,
					Depth:    depth,
				})
			}
		}

		slices.SortFunc(level, func(a, b Relation) int {
			if a.Strength != b.Strength {
				if a.Strength > b.Strength {
					return -1
				}
				return 1
			}
			if a.EntryID < b.EntryID {
				return -1
			}
			if a.EntryID > b.EntryID {
				return 1
			}
			return 0
		})

		frontier = frontier[:0]
		for _, relation := range level {
			frontier = append(frontier, relation.EntryID)
		}
		results = append(results, level...)
	}

	g.logger.Debug("graph traversal complete",
		"root", id,
		"maxDepth", opts.MaxDepth,
		"relations", len(results))

	return results, nil
}

type neighbor struct {
	id       core.ID
	edgeType core.EdgeType
	strength float32
	verified bool
}

func (g *Graph) neighbors(ctx context.Context, id core.ID, opts RelatedOptions) ([]neighbor, error) {
	outgoing, err := g.edges.GetEdgesFrom(ctx, id)
	if err != nil {
		return nil, err
	}

	neighbors := make([]neighbor, 0, len(outgoing))
	for _, edge := range outgoing {
		neighbors = append(neighbors, neighbor{
			id:       edge.Target,
			edgeType: edge.Type,
			strength: edge.Strength,
			verified: edge.Verified,
		})
	}

	if opts.IncludeReverse {
		incoming, err := g.edges.GetEdgesTo(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, edge := range incoming {
			neighbors = append(neighbors, neighbor{
				id:       edge.Source,
				edgeType: edge.Type,
				strength: edge.Strength,
				verified: edge.Verified,
			})
		}
	}

	return neighbors, nil
}
