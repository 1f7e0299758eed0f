package linking

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/niagascore/niagascore/internal/ledger"
	"github.com/niagascore/niagascore/internal/metrics"
)

// Cross-source linking pairs entries from different channels that likely
// describe the same real-world transaction, e.g. a WhatsApp "paid RM24"
// against a TNG statement line of RM24 minutes later.

const (
	// widestWindow bounds the forward scan; no pair window exceeds it.
	widestWindow = 2 * time.Hour
	// orderWindow allows for platform settlement delay.
	orderWindow = 2 * time.Hour
	// paymentWindow covers direct payment confirmations.
	paymentWindow = 10 * time.Minute

	linkThreshold      = 0.50
	confirmedThreshold = 0.80
)

var (
	nearAmountTolerance = decimal.NewFromFloat(0.50)
	relativeTolerance   = decimal.NewFromFloat(0.02)
)

// FindLinks scans the entry set once in time order and emits all
// cross-channel pairs whose similarity reaches the link threshold. The
// result is ordered by similarity descending, then entry ids, so repeated
// runs over the same input are identical.
func FindLinks(entries []ledger.Entry) []ledger.Link {
	sorted := ledger.SortedByTime(entries)

	var links []ledger.Link
	for i := range sorted {
		a := sorted[i]
		for j := i + 1; j < len(sorted); j++ {
			b := sorted[j]
			delta := b.EventTime.Sub(a.EventTime)
			if delta > widestWindow {
				// Entries are sorted; no later b can qualify either.
				break
			}
			if a.Channel == b.Channel {
				continue
			}
			window := pairWindow(a, b)
			if delta > window {
				continue
			}
			amountScore := amountSimilarity(a.Amount, b.Amount)
			if amountScore == 0 {
				continue
			}
			timeScore := 1 - delta.Seconds()/window.Seconds()
			if timeScore < 0 {
				timeScore = 0
			}
			similarity := 0.6*amountScore + 0.4*timeScore
			if similarity < linkThreshold {
				continue
			}
			linkType := ledger.LinkProbable
			if similarity >= confirmedThreshold {
				linkType = ledger.LinkConfirmed
			}
			links = append(links, ledger.Link{
				EntryAID: a.ID,
				EntryBID: b.ID,
				LinkType: linkType,
				Score:    similarity,
			})
		}
	}

	sort.Slice(links, func(i, j int) bool {
		if links[i].Score != links[j].Score {
			return links[i].Score > links[j].Score
		}
		if links[i].EntryAID != links[j].EntryAID {
			return links[i].EntryAID < links[j].EntryAID
		}
		return links[i].EntryBID < links[j].EntryBID
	})
	for _, l := range links {
		metrics.LinksFound.WithLabelValues(l.LinkType).Inc()
	}
	return links
}

// pairWindow widens the match window when either side is an order, since
// platform settlement can lag the customer-facing event.
func pairWindow(a, b ledger.Entry) time.Duration {
	if a.EventType == ledger.EventOrder || b.EventType == ledger.EventOrder {
		return orderWindow
	}
	return paymentWindow
}

// amountSimilarity is tiered: exact 1.0, within RM0.50 0.85, within 2% of
// the larger amount 0.60, otherwise 0 — and a 0 always rejects the pair
// regardless of time proximity.
func amountSimilarity(a, b decimal.Decimal) float64 {
	if a.Equal(b) {
		return 1.0
	}
	diff := a.Sub(b).Abs()
	if diff.LessThanOrEqual(nearAmountTolerance) {
		return 0.85
	}
	larger := decimal.Max(a, b)
	if larger.IsPositive() && diff.LessThanOrEqual(larger.Mul(relativeTolerance)) {
		return 0.60
	}
	return 0
}

// CrossSourceScore maps link counts to the bounded cross-source component.
// A single-channel entry set cannot be cross-verified and gets the fixed
// floor.
func CrossSourceScore(entries []ledger.Entry) float64 {
	if len(ledger.Channels(entries)) <= 1 {
		return 2.0
	}
	confirmed, probable := 0, 0
	for _, l := range FindLinks(entries) {
		switch l.LinkType {
		case ledger.LinkConfirmed:
			confirmed++
		case ledger.LinkProbable:
			probable++
		}
	}
	score := 2.0 + float64(confirmed)*3.0 + float64(probable)*1.0
	if score > 15.0 {
		score = 15.0
	}
	return score
}
