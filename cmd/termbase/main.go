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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/finvoc/termbase"
	"github.com/finvoc/termbase/ai"
	"github.com/finvoc/termbase/core"
	"github.com/finvoc/termbase/graph"
	"github.com/finvoc/termbase/indexer"
	"github.com/finvoc/termbase/search"
)

func main() {
	dbFlag := &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: true,
	}
	embeddingFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:     "embedding-model",
			Usage:    "Embedding model name",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "embedding-dimensions",
			Usage: "Embedding vector dimensionality",
			Value: 768,
		},
	}

	app := &cli.App{
		Name:  "termbase",
		Usage: "Semantic retrieval engine for trading terminology",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "rebuild",
				Usage:  "Re-embed stale entries and publish a fresh index",
				Action: rebuildCommand,
				Flags: append([]cli.Flag{
					dbFlag,
					&cli.StringFlag{
						Name:  "index-dir",
						Usage: "Directory to persist the rebuilt index to",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of entries to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N entries",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embedding calls",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				}, embeddingFlags...),
			},
			{
				Name:      "search",
				Usage:     "Query the index for entries relevant to the given text",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append([]cli.Flag{
					dbFlag,
					&cli.StringFlag{
						Name:  "index-dir",
						Usage: "Directory holding a saved index to load",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
					&cli.StringSliceFlag{
						Name:  "category",
						Usage: "Restrict results to the given categories",
					},
					&cli.StringSliceFlag{
						Name:  "asset-class",
						Usage: "Restrict results to entries tagged with any of the given asset classes",
					},
					&cli.Float64Flag{
						Name:  "min-quality",
						Usage: "Minimum quality score in [0, 1]",
					},
				}, embeddingFlags...),
			},
			{
				Name:      "related",
				Usage:     "Walk the relationship graph from an entry",
				ArgsUsage: "<term>",
				Action:    relatedCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.IntFlag{
						Name:  "depth",
						Usage: "Number of hops to walk",
						Value: 1,
					},
					&cli.StringSliceFlag{
						Name:  "type",
						Usage: "Restrict traversal to the given edge types",
					},
					&cli.BoolFlag{
						Name:  "reverse",
						Usage: "Also follow edges pointing at the entry",
					},
					&cli.BoolFlag{
						Name:  "verified-only",
						Usage: "Skip unverified edges",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openDatabase(c *cli.Context) (*termbase.Database, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithEmbeddingDimensions(c.Int("embedding-dimensions")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	db, err := termbase.NewDatabase(c.String("db"), termbase.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func rebuildCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	config := &indexer.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	builder, err := db.NewIndexBuilder(
		indexer.WithConfig(config),
		indexer.WithProgressWriter(os.Stderr),
	)
	if err != nil {
		return fmt.Errorf("failed to create index builder: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	stats, err := builder.RebuildFull(ctx)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Rebuild complete. Indexed %d of %d entries (%d re-embedded) in %v\n",
		stats.Indexed, stats.Total, stats.Embedded, stats.Elapsed.Round(time.Second))

	if dir := c.String("index-dir"); dir != "" {
		if err := db.SaveIndex(dir); err != nil {
			return fmt.Errorf("failed to save index: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Index %s saved to %s\n", stats.BuildID, dir)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query text is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if dir := c.String("index-dir"); dir != "" {
		if err := db.LoadIndex(dir); err != nil {
			return fmt.Errorf("failed to load index: %w", err)
		}
	}

	filters := search.Filters{
		MinQuality: float32(c.Float64("min-quality")),
	}
	for _, name := range c.StringSlice("category") {
		category, ok := core.CategoryFromString(name)
		if !ok {
			return fmt.Errorf("unknown category %q", name)
		}
		filters.Categories = append(filters.Categories, category)
	}
	filters.AssetClasses = c.StringSlice("asset-class")

	searcher, err := db.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}
	defer searcher.Release()

	results, err := searcher.Search(ctx, query, c.Int("limit"), filters)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, result := range results {
		fmt.Printf("%2d. [%.3f] %s (%s)\n", i+1, result.Score, result.Term, result.Category)
		if result.Summary != "" {
			fmt.Printf("    %s\n", result.Summary)
		}
	}
	return nil
}

func relatedCommand(c *cli.Context) error {
	ctx := context.Background()

	term := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if term == "" {
		return fmt.Errorf("term is required")
	}

	// Traversal never embeds, so no provider configuration is needed here.
	db, err := termbase.NewDatabase(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	entry, err := db.EntryRepository().FindEntryByTerm(ctx, term)
	if err != nil {
		return fmt.Errorf("failed to find %q: %w", term, err)
	}

	opts := graph.RelatedOptions{
		MaxDepth:       c.Int("depth"),
		IncludeReverse: c.Bool("reverse"),
		OnlyVerified:   c.Bool("verified-only"),
	}
	for _, name := range c.StringSlice("type") {
		edgeType, ok := core.EdgeTypeFromString(name)
		if !ok {
			return fmt.Errorf("unknown edge type %q", name)
		}
		opts.Types = append(opts.Types, edgeType)
	}

	relations, err := db.Graph().RelatedTo(ctx, entry.Id, opts)
	if err != nil {
		return fmt.Errorf("traversal failed: %w", err)
	}

	if len(relations) == 0 {
		fmt.Println("No related entries.")
		return nil
	}
	for _, relation := range relations {
		related, err := db.EntryRepository().GetEntry(ctx, relation.EntryID)
		if err != nil {
			continue
		}
		fmt.Printf("depth %d  %-12s  %.2f  %s\n",
			relation.Depth, relation.Type, relation.Strength, related.Term)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
