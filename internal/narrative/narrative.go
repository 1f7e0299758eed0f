package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/niagascore/niagascore/internal/ledger"
	"github.com/niagascore/niagascore/internal/llm"
	"github.com/niagascore/niagascore/internal/metrics"
)

var breakdownLabels = []struct {
	label string
	value func(ledger.Breakdown) float64
}{
	{"transaction activity", func(b ledger.Breakdown) float64 { return b.Activity }},
	{"revenue consistency", func(b ledger.Breakdown) float64 { return b.Consistency }},
	{"business longevity", func(b ledger.Breakdown) float64 { return b.Longevity }},
	{"evidence quality", func(b ledger.Breakdown) float64 { return b.EvidenceStrength }},
	{"cross-source verification", func(b ledger.Breakdown) float64 { return b.CrossSource }},
}

var flagDescriptions = map[string]string{
	"spike_detected":           "an unusual revenue spike was detected",
	"round_numbers_suspicious": "a high proportion of round-number amounts was detected",
	"uniform_intervals":        "suspiciously uniform transaction intervals were detected",
	"missing_period":           "a gap in activity was detected",
	"duplicate_upload":         "possible duplicate data was detected",
}

// Generate writes a two-paragraph verifier-facing narrative via the text
// capability. Every failure degrades to an empty string; this path never
// blocks or fails score computation.
func Generate(ctx context.Context, gen llm.TextGenerator, score ledger.CredibilityScore, entries []ledger.Entry) string {
	if gen == nil {
		slog.Warn("narrative: no text capability configured")
		metrics.NarrativeFailures.Inc()
		return ""
	}
	text, err := gen.GenerateText(ctx, BuildPrompt(score, entries))
	if err != nil {
		slog.Warn("narrative: generation failed", "err", err)
		metrics.NarrativeFailures.Inc()
		return ""
	}
	return strings.TrimSpace(text)
}

// BuildPrompt embeds the score, summary stats, breakdown, and flags into a
// bounded instruction.
func BuildPrompt(score ledger.CredibilityScore, entries []ledger.Entry) string {
	startDate, endDate := "unknown", "unknown"
	if earliest, latest, ok := ledger.Span(entries); ok {
		startDate = earliest.Format("January 2006")
		endDate = latest.Format("January 2006")
	}
	totalRevenue := ledger.TotalAmount(entries)

	channelNames := make([]string, 0)
	for _, c := range ledger.Channels(entries) {
		channelNames = append(channelNames, string(c))
	}
	channelList := "none"
	if len(channelNames) > 0 {
		channelList = strings.Join(channelNames, ", ")
	}

	var breakdownLines []string
	for _, item := range breakdownLabels {
		breakdownLines = append(breakdownLines,
			fmt.Sprintf("  - %s: %.1f pts", item.label, item.value(score.Breakdown)))
	}

	flagLines := []string{"  - none"}
	if len(score.Flags) > 0 {
		flagLines = flagLines[:0]
		for _, f := range score.Flags {
			desc, ok := flagDescriptions[f]
			if !ok {
				desc = strings.ReplaceAll(f, "_", " ")
			}
			flagLines = append(flagLines, "  - "+desc)
		}
	}

	var sb strings.Builder
	sb.WriteString("You are writing a financial credibility report for a Malaysian micro-business applying for a loan or government aid.\n\n")
	sb.WriteString("The report is addressed to a bank officer or NGO verifier. Write exactly 2 short paragraphs:\n")
	sb.WriteString("- Paragraph 1: Summarise the business's financial activity (when active, how many transactions, total revenue, which platforms/channels).\n")
	sb.WriteString("- Paragraph 2: Explain what the credibility score means, what is strong, and note any flags. End with a clear overall assessment.\n\n")
	sb.WriteString("Use plain professional English. Be factual. Do not use bullet points. Maximum 120 words total.\n\n")
	sb.WriteString("--- DATA ---\n")
	fmt.Fprintf(&sb, "Credibility Score: %d / 100\n", score.Score)
	fmt.Fprintf(&sb, "Confidence Level: %s\n", score.ConfidenceLevel)
	fmt.Fprintf(&sb, "Active Period: %s to %s\n", startDate, endDate)
	fmt.Fprintf(&sb, "Total Transactions: %d\n", len(entries))
	fmt.Fprintf(&sb, "Total Revenue: RM %s\n", totalRevenue.StringFixed(2))
	fmt.Fprintf(&sb, "Evidence Channels: %s\n\n", channelList)
	sb.WriteString("Score Breakdown:\n")
	sb.WriteString(strings.Join(breakdownLines, "\n"))
	sb.WriteString("\n\nData Quality Flags:\n")
	sb.WriteString(strings.Join(flagLines, "\n"))
	sb.WriteString("\n--- END DATA ---\n\n")
	sb.WriteString("Write the 2-paragraph narrative now:")
	return sb.String()
}
