package insights

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/niagascore/niagascore/internal/ledger"
)

// Card types, emitted in this order (at most four cards per run).
const (
	TypePeakDay        = "peak_day"
	TypeTrend          = "trend"
	TypeCoverage       = "coverage"
	TypeRecommendation = "recommendation"
)

// Per-channel mean confidence thresholds used by the recommendation chain.
const (
	highConfidenceChannel = 0.8
	lowConfidenceChannel  = 0.6
)

// Generate derives descriptive and prescriptive cards from the entry set.
// Independent of scoring; pure apart from the staleness check against the
// wall clock.
func Generate(entries []ledger.Entry) []ledger.InsightCard {
	return generateAt(time.Now().UTC(), entries)
}

func generateAt(now time.Time, entries []ledger.Entry) []ledger.InsightCard {
	if len(entries) == 0 {
		return []ledger.InsightCard{{
			Type:        TypeRecommendation,
			Title:       "Upload your first evidence",
			Description: "Start by uploading a WhatsApp chat export or platform CSV to build your financial story.",
		}}
	}

	var cards []ledger.InsightCard
	if card, ok := peakDayCard(entries); ok {
		cards = append(cards, card)
	}
	if card, ok := trendCard(entries); ok {
		cards = append(cards, card)
	}
	cards = append(cards, coverageCard(entries))
	cards = append(cards, recommendationCard(now, entries))
	return cards
}

// peakDayCard names the two highest-revenue weekdays, ties broken by weekday
// index ascending so output is stable.
func peakDayCard(entries []ledger.Entry) (ledger.InsightCard, bool) {
	var totals [7]decimal.Decimal
	var present [7]bool
	for _, e := range entries {
		wd := int(e.EventTime.Weekday())
		totals[wd] = totals[wd].Add(e.Amount)
		present[wd] = true
	}

	days := make([]int, 0, 7)
	for wd := 0; wd < 7; wd++ {
		if present[wd] {
			days = append(days, wd)
		}
	}
	if len(days) == 0 {
		return ledger.InsightCard{}, false
	}
	sort.SliceStable(days, func(i, j int) bool {
		return totals[days[i]].GreaterThan(totals[days[j]])
	})
	if len(days) > 2 {
		days = days[:2]
	}

	names := make([]string, len(days))
	data := map[string]any{}
	for i, wd := range days {
		names[i] = time.Weekday(wd).String()
		data[strings.ToLower(names[i])] = totals[wd].InexactFloat64()
	}
	data["days"] = names

	return ledger.InsightCard{
		Type:        TypePeakDay,
		Title:       "Peak revenue days",
		Description: fmt.Sprintf("Your strongest revenue days are %s. Consider preparing extra stock for them.", strings.Join(names, " and ")),
		Data:        data,
	}, true
}

// trendCard compares the last 14 days against the prior 14, anchored at the
// latest entry. Skipped entirely when history is short or the prior period
// sums to zero.
func trendCard(entries []ledger.Entry) (ledger.InsightCard, bool) {
	earliest, latest, _ := ledger.Span(entries)
	if latest.Sub(earliest) < 28*24*time.Hour || len(entries) < 4 {
		return ledger.InsightCard{}, false
	}

	midpoint := latest.Add(-14 * 24 * time.Hour)
	start := latest.Add(-28 * 24 * time.Hour)
	last := decimal.Zero
	prior := decimal.Zero
	for _, e := range entries {
		switch {
		case e.EventTime.After(midpoint):
			last = last.Add(e.Amount)
		case e.EventTime.After(start):
			prior = prior.Add(e.Amount)
		}
	}
	if prior.IsZero() {
		return ledger.InsightCard{}, false
	}

	changePct := last.Sub(prior).Div(prior).InexactFloat64() * 100
	direction := "flat"
	description := "Revenue over the last two weeks is holding steady."
	switch {
	case changePct > 20:
		direction = "up"
		description = fmt.Sprintf("Revenue is up %.0f%% over the last two weeks compared to the two weeks before.", changePct)
	case changePct < -20:
		direction = "down"
		description = fmt.Sprintf("Revenue is down %.0f%% over the last two weeks compared to the two weeks before.", -changePct)
	}

	return ledger.InsightCard{
		Type:        TypeTrend,
		Title:       "Revenue trend: " + direction,
		Description: description,
		Data: map[string]any{
			"direction":      direction,
			"change_pct":     changePct,
			"last_14_total":  last.InexactFloat64(),
			"prior_14_total": prior.InexactFloat64(),
		},
	}, true
}

func coverageCard(entries []ledger.Entry) ledger.InsightCard {
	channels := ledger.Channels(entries)
	names := make([]string, len(channels))
	for i, c := range channels {
		names[i] = string(c)
	}
	return ledger.InsightCard{
		Type:        TypeCoverage,
		Title:       fmt.Sprintf("Evidence from %d channel(s)", len(channels)),
		Description: fmt.Sprintf("You have evidence from: %s. Adding more channels increases your credibility score.", strings.Join(names, ", ")),
		Data:        map[string]any{"channels": names},
	}
}

// recommendationCard picks exactly one suggestion by strict priority.
func recommendationCard(now time.Time, entries []ledger.Entry) ledger.InsightCard {
	channels := ledger.Channels(entries)
	channelConf := channelConfidence(entries)
	_, latest, _ := ledger.Span(entries)

	hasHighConf := false
	for _, conf := range channelConf {
		if conf >= highConfidenceChannel {
			hasHighConf = true
			break
		}
	}
	hasBankOrTNG := false
	for _, c := range channels {
		if c == ledger.ChannelBank || c == ledger.ChannelTNG {
			hasBankOrTNG = true
			break
		}
	}

	switch {
	case !hasHighConf:
		return rec("Add a high-confidence source",
			"Upload a bank or e-wallet statement to add a high-confidence source. This can increase your score significantly.")
	case len(channels) == 1:
		return rec("Add a second channel",
			"All your evidence comes from one channel. A second source lets transactions confirm each other and lifts your cross-source score.")
	case now.Sub(latest) > 30*24*time.Hour:
		return rec("Upload fresh data",
			"Your most recent entry is over a month old. Upload recent evidence to keep your score current.")
	case ledger.AverageConfidence(entries) < lowConfidenceChannel && !hasBankOrTNG:
		return rec("Prefer CSV exports over screenshots",
			"Platform CSV exports are more reliable than screenshots and will raise your evidence strength.")
	case hasBankOrTNG && onlyLowConfidenceBesides(channelConf):
		return rec("Add a platform CSV export",
			"Your bank and e-wallet records are solid, but the rest of your evidence is low confidence. A platform CSV export would round it out.")
	default:
		return rec("Strong coverage",
			"Your evidence spans multiple reliable channels. Keep uploading regularly to maintain your score.")
	}
}

func rec(title, description string) ledger.InsightCard {
	return ledger.InsightCard{Type: TypeRecommendation, Title: title, Description: description}
}

func channelConfidence(entries []ledger.Entry) map[ledger.Channel]float64 {
	sums := make(map[ledger.Channel]float64)
	counts := make(map[ledger.Channel]int)
	for _, e := range entries {
		sums[e.Channel] += e.Confidence
		counts[e.Channel]++
	}
	out := make(map[ledger.Channel]float64, len(sums))
	for c, sum := range sums {
		out[c] = sum / float64(counts[c])
	}
	return out
}

// onlyLowConfidenceBesides reports whether every channel other than bank and
// tng averages below the low-confidence threshold.
func onlyLowConfidenceBesides(channelConf map[ledger.Channel]float64) bool {
	for c, conf := range channelConf {
		if c == ledger.ChannelBank || c == ledger.ChannelTNG {
			continue
		}
		if conf >= lowConfidenceChannel {
			return false
		}
	}
	return true
}
