package narrative

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/niagascore/niagascore/internal/ledger"
	"github.com/niagascore/niagascore/internal/llm"
)

type fakeText struct {
	out string
	err error

	gotPrompt string
}

func (f *fakeText) GenerateText(_ context.Context, prompt string) (string, error) {
	f.gotPrompt = prompt
	return f.out, f.err
}

func sampleScore() ledger.CredibilityScore {
	return ledger.CredibilityScore{
		Score:           72,
		ConfidenceLevel: ledger.ConfidenceMedium,
		Breakdown: ledger.Breakdown{
			Activity:         22,
			Consistency:      16,
			Longevity:        10,
			EvidenceStrength: 19.5,
			CrossSource:      8,
			Penalties:        -3,
		},
		Flags: []string{"missing_period"},
	}
}

func sampleEntries() []ledger.Entry {
	return []ledger.Entry{
		{
			ID:        "a",
			EventTime: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			Amount:    decimal.RequireFromString("120.50"),
			Channel:   ledger.ChannelWhatsApp,
		},
		{
			ID:        "b",
			EventTime: time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC),
			Amount:    decimal.RequireFromString("79.50"),
			Channel:   ledger.ChannelTNG,
		},
	}
}

func TestGenerateTrimsOutput(t *testing.T) {
	t.Parallel()

	gen := &fakeText{out: "\n  The business shows steady activity.  \n"}
	got := Generate(context.Background(), gen, sampleScore(), sampleEntries())
	require.Equal(t, "The business shows steady activity.", got)
	require.NotEmpty(t, gen.gotPrompt)
}

func TestGenerateDegradesToEmpty(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", Generate(context.Background(), nil, sampleScore(), sampleEntries()))
	require.Equal(t, "", Generate(context.Background(), llm.Unavailable{}, sampleScore(), sampleEntries()))
}

func TestBuildPromptEmbedsData(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt(sampleScore(), sampleEntries())

	require.Contains(t, prompt, "Credibility Score: 72 / 100")
	require.Contains(t, prompt, "Confidence Level: MEDIUM")
	require.Contains(t, prompt, "Active Period: January 2024 to March 2024")
	require.Contains(t, prompt, "Total Transactions: 2")
	require.Contains(t, prompt, "Total Revenue: RM 200.00")
	require.Contains(t, prompt, "Evidence Channels: tng, whatsapp")
	require.Contains(t, prompt, "evidence quality: 19.5 pts")
	require.Contains(t, prompt, "a gap in activity was detected")
}

func TestBuildPromptEmptyEntrySet(t *testing.T) {
	t.Parallel()

	score := ledger.CredibilityScore{ConfidenceLevel: ledger.ConfidenceLow, Flags: []string{"no_data"}}
	prompt := BuildPrompt(score, nil)

	require.Contains(t, prompt, "Active Period: unknown to unknown")
	require.Contains(t, prompt, "Evidence Channels: none")
	require.Contains(t, prompt, "- no data")
}

func TestBuildPromptNoFlags(t *testing.T) {
	t.Parallel()

	score := sampleScore()
	score.Flags = nil
	prompt := BuildPrompt(score, sampleEntries())
	require.Contains(t, prompt, "Data Quality Flags:\n  - none")
}
