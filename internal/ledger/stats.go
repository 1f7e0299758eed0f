package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SortedByTime returns a copy of entries sorted by event time ascending,
// ties broken by id so downstream passes are deterministic.
func SortedByTime(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventTime.Equal(out[j].EventTime) {
			return out[i].EventTime.Before(out[j].EventTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// WeekKey buckets a time by ISO calendar week, e.g. "2024-W03".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// WeeklyTotals sums entry amounts per ISO week.
func WeeklyTotals(entries []Entry) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, e := range entries {
		k := WeekKey(e.EventTime)
		totals[k] = totals[k].Add(e.Amount)
	}
	return totals
}

// Channels returns the distinct channels present, sorted.
func Channels(entries []Entry) []Channel {
	seen := make(map[Channel]bool)
	for _, e := range entries {
		seen[e.Channel] = true
	}
	out := make([]Channel, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Span reports the earliest and latest event times. ok is false when the
// entry set is empty.
func Span(entries []Entry) (earliest, latest time.Time, ok bool) {
	if len(entries) == 0 {
		return time.Time{}, time.Time{}, false
	}
	earliest, latest = entries[0].EventTime, entries[0].EventTime
	for _, e := range entries[1:] {
		if e.EventTime.Before(earliest) {
			earliest = e.EventTime
		}
		if e.EventTime.After(latest) {
			latest = e.EventTime
		}
	}
	return earliest, latest, true
}

// AverageConfidence returns the mean per-entry confidence, 0 for no entries.
func AverageConfidence(entries []Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range entries {
		sum += e.Confidence
	}
	return sum / float64(len(entries))
}

// TotalAmount sums all entry amounts.
func TotalAmount(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}
