package anomaly

import (
	"math"
	"sort"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"

	"github.com/niagascore/niagascore/internal/ledger"
)

// Flags estimate data quality, not honesty. Every check runs independently;
// no flag aborts detection and none is fatal to scoring.
const (
	FlagSpike           = "spike_detected"
	FlagRoundNumbers    = "round_numbers_suspicious"
	FlagUniformInterval = "uniform_intervals"
	FlagMissingPeriod   = "missing_period"
	FlagDuplicateUpload = "duplicate_upload"
)

var ten = decimal.NewFromInt(10)

// Detect runs every quality check over the entry set and returns the flags
// that fired, in fixed order.
func Detect(entries []ledger.Entry) []string {
	var flags []string
	if hasSpike(entries) {
		flags = append(flags, FlagSpike)
	}
	if hasSuspiciousRoundNumbers(entries) {
		flags = append(flags, FlagRoundNumbers)
	}
	if hasUniformIntervals(entries) {
		flags = append(flags, FlagUniformInterval)
	}
	if hasMissingPeriod(entries) {
		flags = append(flags, FlagMissingPeriod)
	}
	if hasDuplicateUpload(entries) {
		flags = append(flags, FlagDuplicateUpload)
	}
	return flags
}

// hasSpike applies the Tukey outlier fence to weekly totals.
func hasSpike(entries []ledger.Entry) bool {
	if len(entries) < 4 {
		return false
	}
	weekly := ledger.WeeklyTotals(entries)
	if len(weekly) < 4 {
		return false
	}
	totals := make([]float64, 0, len(weekly))
	for _, v := range weekly {
		totals = append(totals, v.InexactFloat64())
	}
	sort.Float64s(totals)
	q1 := percentile(totals, 0.25)
	q3 := percentile(totals, 0.75)
	iqr := q3 - q1
	if iqr == 0 {
		return false
	}
	fence := q3 + 1.5*iqr
	for _, v := range totals {
		if v > fence {
			return true
		}
	}
	return false
}

// hasSuspiciousRoundNumbers flags a set where more than 80% of amounts are
// exact multiples of 10.
func hasSuspiciousRoundNumbers(entries []ledger.Entry) bool {
	if len(entries) == 0 {
		return false
	}
	round := 0
	for _, e := range entries {
		if e.Amount.Mod(ten).IsZero() {
			round++
		}
	}
	return float64(round)/float64(len(entries)) > 0.8
}

// hasUniformIntervals flags machine-regular spacing: the coefficient of
// variation of the positive gaps between sorted entries is below 0.05.
func hasUniformIntervals(entries []ledger.Entry) bool {
	if len(entries) < 5 {
		return false
	}
	sorted := ledger.SortedByTime(entries)
	var gaps []float64
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].EventTime.Sub(sorted[i-1].EventTime).Seconds()
		if gap > 0 {
			gaps = append(gaps, gap)
		}
	}
	if len(gaps) < 4 {
		return false
	}
	mean := 0.0
	for _, g := range gaps {
		mean += g
	}
	mean /= float64(len(gaps))
	if mean == 0 {
		return false
	}
	variance := 0.0
	for _, g := range gaps {
		variance += (g - mean) * (g - mean)
	}
	variance /= float64(len(gaps))
	return math.Sqrt(variance)/mean < 0.05
}

// hasMissingPeriod flags a gap of more than 14 days inside a span of at
// least 28 days.
func hasMissingPeriod(entries []ledger.Entry) bool {
	if len(entries) < 2 {
		return false
	}
	sorted := ledger.SortedByTime(entries)
	span := sorted[len(sorted)-1].EventTime.Sub(sorted[0].EventTime)
	if span < 28*24*time.Hour {
		return false
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].EventTime.Sub(sorted[i-1].EventTime) > 14*24*time.Hour {
			return true
		}
	}
	return false
}

// hasDuplicateUpload looks for the same transaction arriving twice from
// separate evidence uploads: same channel, equal amount, under a minute
// apart, with near-identical descriptions.
func hasDuplicateUpload(entries []ledger.Entry) bool {
	sorted := ledger.SortedByTime(entries)
	for i := range sorted {
		a := sorted[i]
		for j := i + 1; j < len(sorted); j++ {
			b := sorted[j]
			if b.EventTime.Sub(a.EventTime) > time.Minute {
				break
			}
			if a.SourceEvidenceID == b.SourceEvidenceID {
				continue
			}
			if a.Channel != b.Channel || !a.Amount.Equal(b.Amount) {
				continue
			}
			if similarDescriptions(a.Attributes["description"], b.Attributes["description"]) {
				return true
			}
		}
	}
	return false
}

func similarDescriptions(a, b string) bool {
	if a == "" && b == "" {
		return true
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return true
	}
	dist := levenshtein.ComputeDistance(a, b)
	return float64(dist)/float64(longest) < 0.2
}

// percentile interpolates linearly over sorted values; p in [0,1].
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
