package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/niagascore/niagascore/internal/config"
	"github.com/niagascore/niagascore/internal/extract"
	"github.com/niagascore/niagascore/internal/insights"
	"github.com/niagascore/niagascore/internal/ledger"
	"github.com/niagascore/niagascore/internal/linking"
	"github.com/niagascore/niagascore/internal/llm"
	"github.com/niagascore/niagascore/internal/logging"
	"github.com/niagascore/niagascore/internal/narrative"
	"github.com/niagascore/niagascore/internal/normalize"
	"github.com/niagascore/niagascore/internal/score"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Init(cfg.Log.Level)

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "extract":
		runExtract(ctx, cfg, os.Args[2:])
	case "manual":
		runManual(ctx, os.Args[2:])
	case "score":
		runScore(os.Args[2:], false)
	case "links":
		runScore(os.Args[2:], true)
	case "insights":
		runInsights(os.Args[2:])
	case "report":
		runReport(ctx, cfg, os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: niagascore <command> [flags] <file>

commands:
  extract  -type <source> <file>   parse evidence into ledger entries (-raw for candidates)
  manual   -business <id> -date <YYYY-MM-DD> -total <amount>   record a daily total
  score    <entries.json>          compute the credibility score
  links    <entries.json>          list cross-source links
  insights <entries.json>          derive insight cards
  report   <entries.json>          score + insights + best-effort narrative`)
	os.Exit(2)
}

func runExtract(ctx context.Context, cfg config.Config, args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	sourceType := fs.String("type", "", "source type (whatsapp, csv_grab, screenshot, ...)")
	businessID := fs.String("business", "default", "business id to attribute entries to")
	raw := fs.Bool("raw", false, "print raw event candidates instead of ledger entries")
	_ = fs.Parse(args)
	if *sourceType == "" || fs.NArg() != 1 {
		usage()
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		log.Fatalf("read: %v", err)
	}
	events, err := extract.Extract(ctx, data, ledger.SourceType(*sourceType), extractOptions(cfg))
	if err != nil {
		log.Fatalf("extract: %v", err)
	}
	if *raw {
		printJSON(events)
		return
	}

	sink := &normalize.CollectSink{}
	n := &normalize.Normalizer{Sink: sink}
	if _, err := n.Normalize(ctx, uuid.NewString(), *businessID, events); err != nil {
		log.Fatalf("normalize: %v", err)
	}
	printJSON(sink.Entries)
}

func runManual(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("manual", flag.ExitOnError)
	businessID := fs.String("business", "default", "business id to attribute the entry to")
	date := fs.String("date", "", "day the sales happened (YYYY-MM-DD)")
	total := fs.String("total", "", "total sales for the day")
	orders := fs.Int("orders", 0, "number of orders")
	notes := fs.String("notes", "", "free-form note")
	_ = fs.Parse(args)
	if *date == "" || *total == "" {
		usage()
	}

	day, err := time.Parse(time.DateOnly, *date)
	if err != nil {
		log.Fatalf("parse date: %v", err)
	}
	amount, err := decimal.NewFromString(*total)
	if err != nil {
		log.Fatalf("parse total: %v", err)
	}

	sink := &normalize.CollectSink{}
	n := &normalize.Normalizer{Sink: sink}
	entry, err := n.ManualEntry(ctx, *businessID, day, amount, *orders, *notes)
	if err != nil {
		log.Fatalf("manual entry: %v", err)
	}
	printJSON(entry)
}

func runScore(args []string, withLinks bool) {
	entries := loadEntries(args)
	if withLinks {
		printJSON(linking.FindLinks(entries))
		return
	}
	printJSON(score.Compute(entries))
}

func runInsights(args []string) {
	printJSON(insights.Generate(loadEntries(args)))
}

func runReport(ctx context.Context, cfg config.Config, args []string) {
	entries := loadEntries(args)
	result := score.Compute(entries)
	report := struct {
		Score     ledger.CredibilityScore `json:"score"`
		Links     []ledger.Link           `json:"links"`
		Insights  []ledger.InsightCard    `json:"insights"`
		Narrative string                  `json:"narrative,omitempty"`
	}{
		Score:     result,
		Links:     linking.FindLinks(entries),
		Insights:  insights.Generate(entries),
		Narrative: narrative.Generate(ctx, textProvider(cfg), result, entries),
	}
	printJSON(report)
}

func loadEntries(args []string) []ledger.Entry {
	if len(args) != 1 {
		usage()
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatalf("read: %v", err)
	}
	var entries []ledger.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Fatalf("parse entries: %v", err)
	}
	return entries
}

func extractOptions(cfg config.Config) extract.Options {
	if cfg.LLM.Provider != "gemini" {
		return extract.Options{}
	}
	key := cfg.ResolveAPIKey()
	if key == "" {
		return extract.Options{}
	}
	return extract.Options{
		OCR:    llm.NewGemini(key, cfg.LLM.OCRModel),
		Vision: llm.NewGemini(key, cfg.LLM.Model),
	}
}

func textProvider(cfg config.Config) llm.TextGenerator {
	if cfg.LLM.Provider != "gemini" {
		return llm.Unavailable{}
	}
	key := cfg.ResolveAPIKey()
	if key == "" {
		return llm.Unavailable{}
	}
	return llm.NewGemini(key, cfg.LLM.Model)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("encode: %v", err)
	}
}
