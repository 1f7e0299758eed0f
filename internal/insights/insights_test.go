package insights

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/niagascore/niagascore/internal/ledger"
)

func entryAt(id string, ch ledger.Channel, at time.Time, amount string, conf float64) ledger.Entry {
	return ledger.Entry{
		ID:         id,
		EventTime:  at,
		Amount:     decimal.RequireFromString(amount),
		Channel:    ch,
		EventType:  ledger.EventPayment,
		Confidence: conf,
	}
}

func TestGenerateEmptyOnboarding(t *testing.T) {
	t.Parallel()

	cards := Generate(nil)
	require.Len(t, cards, 1)
	require.Equal(t, TypeRecommendation, cards[0].Type)
	require.Equal(t, "Upload your first evidence", cards[0].Title)
}

func TestGenerateAtMostFourCardsInOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var entries []ledger.Entry
	for d := 0; d < 35; d++ {
		entries = append(entries, entryAt(
			string(rune('a'+d%26))+string(rune('a'+d/26)),
			ledger.ChannelTNG,
			now.AddDate(0, 0, -d).Add(time.Duration(d%9)*time.Hour),
			"25.50", 0.9,
		))
	}

	cards := generateAt(now, entries)
	require.Len(t, cards, 4)
	require.Equal(t, TypePeakDay, cards[0].Type)
	require.Equal(t, TypeTrend, cards[1].Type)
	require.Equal(t, TypeCoverage, cards[2].Type)
	require.Equal(t, TypeRecommendation, cards[3].Type)
}

func TestPeakDayCard(t *testing.T) {
	t.Parallel()

	// 2024-01-06 is a Saturday, 2024-01-07 a Sunday.
	sat := time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC)
	entries := []ledger.Entry{
		entryAt("a", ledger.ChannelCash, sat, "200.00", 0.9),
		entryAt("b", ledger.ChannelCash, sat.AddDate(0, 0, 1), "150.00", 0.9),
		entryAt("c", ledger.ChannelCash, sat.AddDate(0, 0, 2), "30.00", 0.9),
	}

	card, ok := peakDayCard(entries)
	require.True(t, ok)
	require.Equal(t, []string{"Saturday", "Sunday"}, card.Data["days"])
	require.Contains(t, card.Description, "Saturday and Sunday")
	require.Equal(t, 200.0, card.Data["saturday"])
}

func TestPeakDayTieBreaksByWeekdayIndex(t *testing.T) {
	t.Parallel()

	// Equal totals on Sunday (0), Monday (1), Tuesday (2): the two lowest
	// weekday indexes win.
	sun := time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC)
	entries := []ledger.Entry{
		entryAt("a", ledger.ChannelCash, sun, "50.00", 0.9),
		entryAt("b", ledger.ChannelCash, sun.AddDate(0, 0, 1), "50.00", 0.9),
		entryAt("c", ledger.ChannelCash, sun.AddDate(0, 0, 2), "50.00", 0.9),
	}

	card, ok := peakDayCard(entries)
	require.True(t, ok)
	require.Equal(t, []string{"Sunday", "Monday"}, card.Data["days"])
}

func TestTrendCardUp(t *testing.T) {
	t.Parallel()

	latest := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	entries := []ledger.Entry{
		// Prior window: 200 total.
		entryAt("p1", ledger.ChannelCash, latest.AddDate(0, 0, -27), "120.00", 0.9),
		entryAt("p2", ledger.ChannelCash, latest.AddDate(0, 0, -20), "80.00", 0.9),
		// Last window: 300 total.
		entryAt("l1", ledger.ChannelCash, latest.AddDate(0, 0, -10), "180.00", 0.9),
		entryAt("l2", ledger.ChannelCash, latest, "120.00", 0.9),
		// Anchor the 28-day span.
		entryAt("old", ledger.ChannelCash, latest.AddDate(0, 0, -28), "0.01", 0.9),
	}

	card, ok := trendCard(entries)
	require.True(t, ok)
	require.Equal(t, "up", card.Data["direction"])
	require.InDelta(t, 50.0, card.Data["change_pct"].(float64), 0.5)
	require.Contains(t, card.Description, "up 50%")
}

func TestTrendCardSkippedWhenPriorEmpty(t *testing.T) {
	t.Parallel()

	latest := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	entries := []ledger.Entry{
		// Establishes the span but falls outside both comparison windows.
		entryAt("old", ledger.ChannelCash, latest.AddDate(0, 0, -40), "90.00", 0.9),
		entryAt("l1", ledger.ChannelCash, latest.AddDate(0, 0, -5), "100.00", 0.9),
		entryAt("l2", ledger.ChannelCash, latest.AddDate(0, 0, -2), "100.00", 0.9),
		entryAt("l3", ledger.ChannelCash, latest, "100.00", 0.9),
	}

	_, ok := trendCard(entries)
	require.False(t, ok)
}

func TestTrendCardSkippedOnShortHistory(t *testing.T) {
	t.Parallel()

	latest := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	entries := []ledger.Entry{
		entryAt("a", ledger.ChannelCash, latest.AddDate(0, 0, -10), "100.00", 0.9),
		entryAt("b", ledger.ChannelCash, latest.AddDate(0, 0, -5), "100.00", 0.9),
		entryAt("c", ledger.ChannelCash, latest.AddDate(0, 0, -3), "100.00", 0.9),
		entryAt("d", ledger.ChannelCash, latest, "100.00", 0.9),
	}
	_, ok := trendCard(entries)
	require.False(t, ok)
}

func TestCoverageCardListsChannels(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	entries := []ledger.Entry{
		entryAt("a", ledger.ChannelWhatsApp, at, "10.00", 0.9),
		entryAt("b", ledger.ChannelTNG, at.Add(time.Hour), "10.00", 0.9),
		entryAt("c", ledger.ChannelWhatsApp, at.Add(2*time.Hour), "10.00", 0.9),
	}

	card := coverageCard(entries)
	require.Equal(t, "Evidence from 2 channel(s)", card.Title)
	require.ElementsMatch(t, []string{"whatsapp", "tng"}, card.Data["channels"])
}

func TestRecommendationPriorities(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	recent := now.AddDate(0, 0, -2)

	cases := []struct {
		name      string
		entries   []ledger.Entry
		wantTitle string
	}{
		{
			"no high-confidence channel",
			[]ledger.Entry{
				entryAt("a", ledger.ChannelWhatsApp, recent, "10.00", 0.5),
				entryAt("b", ledger.ChannelOther, recent.Add(time.Hour), "10.00", 0.5),
			},
			"Add a high-confidence source",
		},
		{
			"single channel",
			[]ledger.Entry{
				entryAt("a", ledger.ChannelTNG, recent, "10.00", 0.95),
				entryAt("b", ledger.ChannelTNG, recent.Add(time.Hour), "10.00", 0.95),
			},
			"Add a second channel",
		},
		{
			"stale data",
			[]ledger.Entry{
				entryAt("a", ledger.ChannelTNG, now.AddDate(0, 0, -45), "10.00", 0.95),
				entryAt("b", ledger.ChannelCash, now.AddDate(0, 0, -40), "10.00", 0.9),
			},
			"Upload fresh data",
		},
		{
			"solid bank, weak rest",
			[]ledger.Entry{
				entryAt("a", ledger.ChannelBank, recent, "10.00", 0.95),
				entryAt("b", ledger.ChannelWhatsApp, recent.Add(time.Hour), "10.00", 0.4),
			},
			"Add a platform CSV export",
		},
		{
			"strong coverage",
			[]ledger.Entry{
				entryAt("a", ledger.ChannelTNG, recent, "10.00", 0.95),
				entryAt("b", ledger.ChannelGrabFood, recent.Add(time.Hour), "10.00", 0.9),
			},
			"Strong coverage",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			card := recommendationCard(now, tc.entries)
			require.Equal(t, tc.wantTitle, card.Title)
		})
	}
}
