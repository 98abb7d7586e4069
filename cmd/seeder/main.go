package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/finvoc/termbase"
	"github.com/finvoc/termbase/ai"
	"github.com/finvoc/termbase/core"
	"github.com/finvoc/termbase/indexer"
)

// seedEntry is the JSON shape of one entry in a seed file.
type seedEntry struct {
	Term         string   `json:"term"`
	Aliases      []string `json:"aliases,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	Definition   string   `json:"definition"`
	Category     string   `json:"category"`
	QualityScore float32  `json:"qualityScore"`
	AssetClasses []string `json:"assetClasses,omitempty"`
}

// seedEdge is the JSON shape of one relationship in a seed file.
// Source and target name entries by canonical term.
type seedEdge struct {
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Type     string  `json:"type"`
	Strength float32 `json:"strength"`
	Verified bool    `json:"verified,omitempty"`
}

type seedFile struct {
	Entries []seedEntry `json:"entries"`
	Edges   []seedEdge  `json:"edges,omitempty"`
}

var builtinSeed = seedFile{
	Entries: []seedEntry{
		{Term: "limit order", Aliases: []string{"resting order"}, Summary: "An order with a price ceiling or floor.", Definition: "An instruction to buy or sell at a specified price or better; it rests on the book until filled or cancelled.", Category: "execution", QualityScore: 0.95, AssetClasses: []string{"equities", "futures", "fx"}},
		{Term: "market order", Summary: "An order executed immediately at the best available price.", Definition: "An instruction to buy or sell immediately against the best prices currently on the book, accepting whatever slippage results.", Category: "execution", QualityScore: 0.95, AssetClasses: []string{"equities", "futures", "fx"}},
		{Term: "iceberg order", Aliases: []string{"reserve order"}, Summary: "A large order showing only a small visible slice.", Definition: "A limit order that displays only a fraction of its full size, replenishing the visible slice as it fills to hide total interest.", Category: "execution", QualityScore: 0.85, AssetClasses: []string{"equities", "futures"}},
		{Term: "volume-weighted average price", Aliases: []string{"vwap"}, Summary: "Average price weighted by traded volume.", Definition: "The ratio of traded value to total volume over a horizon, used as an execution benchmark and intraday fair-value reference.", Category: "indicator", QualityScore: 0.9, AssetClasses: []string{"equities", "futures"}},
		{Term: "time-weighted average price", Aliases: []string{"twap"}, Summary: "Average price over evenly spaced time intervals.", Definition: "The mean of prices sampled at regular intervals over a horizon; the benchmark for schedule-driven execution algorithms.", Category: "indicator", QualityScore: 0.85, AssetClasses: []string{"equities", "futures"}},
		{Term: "bid-ask spread", Aliases: []string{"spread"}, Summary: "Gap between best buy and sell quotes.", Definition: "The difference between the highest resting buy price and the lowest resting sell price; the primary visible cost of immediacy.", Category: "market_structure", QualityScore: 0.95, AssetClasses: []string{"equities", "futures", "fx", "crypto"}},
		{Term: "order book", Aliases: []string{"limit order book", "depth of market"}, Summary: "The resting buy and sell interest at each price.", Definition: "The aggregated set of outstanding limit orders on both sides of a market, organized by price level and arrival time.", Category: "market_structure", QualityScore: 0.9, AssetClasses: []string{"equities", "futures", "crypto"}},
		{Term: "dark pool", Summary: "A venue without pre-trade transparency.", Definition: "A trading venue that matches orders without displaying quotes, typically at prices referenced from lit markets.", Category: "market_structure", QualityScore: 0.8, AssetClasses: []string{"equities"}},
		{Term: "slippage", Summary: "Execution price drift versus the decision price.", Definition: "The difference between the price at which a trade was decided and the price actually achieved, driven by spread, impact and latency.", Category: "execution", QualityScore: 0.85, AssetClasses: []string{"equities", "futures", "fx", "crypto"}},
		{Term: "stop loss", Aliases: []string{"stop order"}, Summary: "An order triggered when price crosses a level.", Definition: "A conditional order that becomes a market or limit order once the market trades through a trigger price, used to cap losses.", Category: "risk", QualityScore: 0.9, AssetClasses: []string{"equities", "futures", "fx", "crypto"}},
		{Term: "value at risk", Aliases: []string{"var"}, Summary: "Loss threshold at a given confidence level.", Definition: "An estimate of the loss a portfolio should not exceed over a horizon at a stated confidence level, under a distributional model.", Category: "risk", QualityScore: 0.85, AssetClasses: []string{"equities", "rates", "fx"}},
		{Term: "margin", Summary: "Collateral posted against open positions.", Definition: "Funds or securities deposited with a broker or clearinghouse to cover the credit risk of leveraged positions.", Category: "risk", QualityScore: 0.9, AssetClasses: []string{"futures", "fx", "crypto"}},
		{Term: "leverage", Summary: "Position size relative to capital.", Definition: "The use of borrowed funds or derivative notional to control exposure larger than posted capital, amplifying both gains and losses.", Category: "risk", QualityScore: 0.9, AssetClasses: []string{"futures", "fx", "crypto"}},
		{Term: "carry trade", Summary: "Earning the rate differential between two assets.", Definition: "Funding a position in a low-yielding instrument to hold a higher-yielding one, collecting the differential while bearing revaluation risk.", Category: "strategy", QualityScore: 0.85, AssetClasses: []string{"fx", "rates"}},
		{Term: "statistical arbitrage", Aliases: []string{"stat arb"}, Summary: "Trading mean-reverting spreads between related instruments.", Definition: "A family of strategies that model the joint behavior of related instruments and trade deviations from the fitted relationship.", Category: "strategy", QualityScore: 0.8, AssetClasses: []string{"equities", "futures"}},
		{Term: "momentum", Aliases: []string{"trend following"}, Summary: "Buying strength and selling weakness.", Definition: "A strategy that takes positions in the direction of recent returns, betting that trends persist beyond the formation window.", Category: "strategy", QualityScore: 0.85, AssetClasses: []string{"equities", "futures", "fx", "crypto"}},
		{Term: "relative strength index", Aliases: []string{"rsi"}, Summary: "Oscillator of recent gains versus losses.", Definition: "A bounded momentum oscillator comparing the magnitude of recent gains to recent losses, conventionally flagging overbought above 70 and oversold below 30.", Category: "indicator", QualityScore: 0.8, AssetClasses: []string{"equities", "fx", "crypto"}},
		{Term: "futures contract", Summary: "A standardized agreement for deferred delivery.", Definition: "An exchange-traded contract obligating delivery of an asset at a fixed price on a future date, marked to market daily through a clearinghouse.", Category: "instrument", QualityScore: 0.95, AssetClasses: []string{"futures"}},
		{Term: "option", Aliases: []string{"options contract"}, Summary: "The right, not the obligation, to trade at a strike.", Definition: "A contract granting its holder the right to buy or sell an underlying at a strike price before or at expiry, in exchange for a premium.", Category: "instrument", QualityScore: 0.95, AssetClasses: []string{"equities", "futures", "fx"}},
		{Term: "basis", Summary: "Spot price minus futures price.", Definition: "The difference between an asset's spot price and the price of its futures contract, converging toward zero as expiry approaches.", Category: "instrument", QualityScore: 0.85, AssetClasses: []string{"futures"}},
		{Term: "best execution", Summary: "The duty to seek the most favorable terms.", Definition: "The regulatory obligation on brokers to execute client orders on the terms most favorable to the client under prevailing conditions.", Category: "regulation", QualityScore: 0.85, AssetClasses: []string{"equities", "fx"}},
		{Term: "circuit breaker", Aliases: []string{"trading halt"}, Summary: "Automatic pause after extreme price moves.", Definition: "An exchange mechanism that halts or constrains trading when prices move beyond preset thresholds within a session.", Category: "regulation", QualityScore: 0.9, AssetClasses: []string{"equities", "futures"}},
		{Term: "liquidity", Summary: "How cheaply size can be traded quickly.", Definition: "The degree to which an instrument can be bought or sold in size, quickly, without materially moving its price.", Category: "general", QualityScore: 0.9, AssetClasses: []string{"equities", "futures", "fx", "rates", "crypto"}},
		{Term: "volatility", Summary: "Dispersion of returns.", Definition: "A measure of the variability of an instrument's returns, realized from history or implied from option prices.", Category: "general", QualityScore: 0.9, AssetClasses: []string{"equities", "futures", "fx", "rates", "crypto"}},
	},
	Edges: []seedEdge{
		{Source: "volume-weighted average price", Target: "time-weighted average price", Type: "related", Strength: 0.9, Verified: true},
		{Source: "limit order", Target: "market order", Type: "opposite", Strength: 0.8, Verified: true},
		{Source: "iceberg order", Target: "limit order", Type: "component", Strength: 0.7, Verified: true},
		{Source: "iceberg order", Target: "dark pool", Type: "related", Strength: 0.6},
		{Source: "bid-ask spread", Target: "order book", Type: "component", Strength: 0.8, Verified: true},
		{Source: "bid-ask spread", Target: "liquidity", Type: "related", Strength: 0.85, Verified: true},
		{Source: "slippage", Target: "liquidity", Type: "related", Strength: 0.75},
		{Source: "slippage", Target: "best execution", Type: "related", Strength: 0.7},
		{Source: "stop loss", Target: "value at risk", Type: "related", Strength: 0.5},
		{Source: "leverage", Target: "margin", Type: "prerequisite", Strength: 0.9, Verified: true},
		{Source: "carry trade", Target: "leverage", Type: "prerequisite", Strength: 0.6},
		{Source: "momentum", Target: "relative strength index", Type: "related", Strength: 0.7},
		{Source: "basis", Target: "futures contract", Type: "prerequisite", Strength: 0.85, Verified: true},
		{Source: "volatility", Target: "option", Type: "related", Strength: 0.8, Verified: true},
		{Source: "circuit breaker", Target: "volatility", Type: "related", Strength: 0.6},
	},
}

var (
	dbPath         = flag.String("db", "./termbase_db", "path to database directory")
	srcFileName    = flag.String("src", "", "JSON seed file (defaults to the built-in set)")
	embeddingHost  = flag.String("embedding-host", "http://localhost:11434/v1", "embedding service host URL")
	embeddingModel = flag.String("embedding-model", "embeddinggemma", "embedding model name")
	indexDir       = flag.String("index-dir", "", "directory to persist the built index to")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

func loadSeed() (*seedFile, error) {
	if *srcFileName == "" {
		return &builtinSeed, nil
	}
	data, err := os.ReadFile(*srcFileName)
	if err != nil {
		return nil, err
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", *srcFileName, err)
	}
	return &seed, nil
}

func toEntries(seed *seedFile) ([]*core.Entry, error) {
	entries := make([]*core.Entry, 0, len(seed.Entries))
	for _, se := range seed.Entries {
		category, ok := core.CategoryFromString(se.Category)
		if !ok {
			return nil, fmt.Errorf("entry %q: unknown category %q", se.Term, se.Category)
		}
		entries = append(entries, &core.Entry{
			Term:         se.Term,
			Aliases:      se.Aliases,
			Summary:      se.Summary,
			Definition:   se.Definition,
			Category:     category,
			QualityScore: se.QualityScore,
			AssetClasses: se.AssetClasses,
			IsActive:     true,
		})
	}
	return entries, nil
}

func toEdges(seed *seedFile) ([]*core.Edge, error) {
	edges := make([]*core.Edge, 0, len(seed.Edges))
	for _, se := range seed.Edges {
		edgeType, ok := core.EdgeTypeFromString(se.Type)
		if !ok {
			return nil, fmt.Errorf("edge %q -> %q: unknown type %q", se.Source, se.Target, se.Type)
		}
		edges = append(edges, &core.Edge{
			Source:   core.IDFromContent(se.Source),
			Target:   core.IDFromContent(se.Target),
			Type:     edgeType,
			Strength: se.Strength,
			Verified: se.Verified,
		})
	}
	return edges, nil
}

func main() {
	ctx := context.Background()

	seed, err := loadSeed()
	if err != nil {
		slog.Error("failed to load seed data", "err", err)
		os.Exit(1)
	}

	aiConfig := ai.NewConfig(
		ai.WithHost(*embeddingHost),
		ai.WithEmbeddingModel(*embeddingModel),
	)
	db, err := termbase.NewDatabase(*dbPath, termbase.WithAIConfig(aiConfig))
	if err != nil {
		slog.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	entries, err := toEntries(seed)
	if err != nil {
		slog.Error("invalid seed entries", "err", err)
		os.Exit(1)
	}
	if _, err := db.EntryRepository().PutEntries(ctx, entries...); err != nil {
		slog.Error("failed to store entries", "err", err)
		os.Exit(1)
	}
	slog.Info("stored entries", "count", len(entries))

	edges, err := toEdges(seed)
	if err != nil {
		slog.Error("invalid seed edges", "err", err)
		os.Exit(1)
	}
	if len(edges) > 0 {
		if err := db.EdgeRepository().PutEdges(ctx, edges...); err != nil {
			slog.Error("failed to store edges", "err", err)
			os.Exit(1)
		}
		slog.Info("stored edges", "count", len(edges))
	}

	builder, err := db.NewIndexBuilder(indexer.WithProgressWriter(os.Stderr))
	if err != nil {
		slog.Error("failed to create index builder", "err", err)
		os.Exit(1)
	}
	stats, err := builder.RebuildFull(ctx)
	if err != nil {
		slog.Error("rebuild failed", "err", err)
		os.Exit(1)
	}
	slog.Info("index built", "buildID", stats.BuildID, "indexed", stats.Indexed, "embedded", stats.Embedded)

	if *indexDir != "" {
		if err := db.SaveIndex(*indexDir); err != nil {
			slog.Error("failed to save index", "err", err)
			os.Exit(1)
		}
		slog.Info("index saved", "dir", *indexDir)
	}
}
