package score

import (
	"math"

	"github.com/niagascore/niagascore/internal/anomaly"
	"github.com/niagascore/niagascore/internal/ledger"
	"github.com/niagascore/niagascore/internal/linking"
	"github.com/niagascore/niagascore/internal/metrics"
)

// Score composition:
//
//	activity           0-30  (active weeks 0-15 + frequency 0-15)
//	consistency        0-20
//	longevity          0-20
//	evidence strength  0-25
//	cross-source       0-15
//	penalties          -20..0
//	total              clamp(round(sum), 0, 100)

var penaltyTable = map[string]float64{
	anomaly.FlagSpike:           -5,
	anomaly.FlagRoundNumbers:    -3,
	anomaly.FlagUniformInterval: -4,
	anomaly.FlagDuplicateUpload: -5,
	anomaly.FlagMissingPeriod:   -3,
}

const unknownFlagPenalty = -1

// Compute derives the credibility score from the full entry set. It is a
// pure function: same entries in, same score out.
func Compute(entries []ledger.Entry) ledger.CredibilityScore {
	metrics.ScoresComputed.Inc()
	if len(entries) == 0 {
		return ledger.CredibilityScore{
			Score:           0,
			ConfidenceLevel: ledger.ConfidenceLow,
			Flags:           []string{"no_data"},
		}
	}

	activity := activityScore(entries)
	consistency := consistencyScore(entries)
	longevity := longevityScore(entries)
	evidence := ledger.AverageConfidence(entries) * 25
	crossSource := linking.CrossSourceScore(entries)

	flags := anomaly.Detect(entries)
	penalties := applyPenalties(flags)

	raw := activity + consistency + longevity + evidence + crossSource + penalties
	total := int(math.Round(raw))
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	return ledger.CredibilityScore{
		Score:           total,
		ConfidenceLevel: confidenceLevel(total, len(entries)),
		Breakdown: ledger.Breakdown{
			Activity:         round1(activity),
			Consistency:      round1(consistency),
			Longevity:        round1(longevity),
			EvidenceStrength: round1(evidence),
			CrossSource:      round1(crossSource),
			Penalties:        round1(penalties),
		},
		Flags: flags,
	}
}

// activityScore decouples "how long consistently active" from "how busy":
// a single-week burst scores lower than sustained moderate activity.
func activityScore(entries []ledger.Entry) float64 {
	weeks := make(map[string]bool)
	for _, e := range entries {
		weeks[ledger.WeekKey(e.EventTime)] = true
	}
	activeWeeks := len(weeks)

	var weeksScore float64
	switch {
	case activeWeeks >= 26:
		weeksScore = 15
	case activeWeeks >= 13:
		weeksScore = 13
	case activeWeeks >= 8:
		weeksScore = 11
	case activeWeeks >= 4:
		weeksScore = 8
	case activeWeeks >= 2:
		weeksScore = 5
	default:
		weeksScore = 2
	}

	perWeek := float64(len(entries)) / float64(activeWeeks)
	var freqScore float64
	switch {
	case perWeek >= 20:
		freqScore = 15
	case perWeek >= 10:
		freqScore = 13
	case perWeek >= 5:
		freqScore = 10
	case perWeek >= 3:
		freqScore = 7
	case perWeek >= 1:
		freqScore = 4
	default:
		freqScore = 2
	}

	return weeksScore + freqScore
}

// consistencyScore maps the coefficient of variation of weekly totals
// through tiers. Short histories get fixed partial credit because the CV is
// unreliable there.
func consistencyScore(entries []ledger.Entry) float64 {
	weekly := ledger.WeeklyTotals(entries)
	switch {
	case len(weekly) <= 1:
		return 5.0
	case len(weekly) < 4:
		return 10.0
	}

	mean := 0.0
	totals := make([]float64, 0, len(weekly))
	for _, v := range weekly {
		f := v.InexactFloat64()
		totals = append(totals, f)
		mean += f
	}
	mean /= float64(len(totals))
	if mean == 0 {
		return 2.0
	}
	variance := 0.0
	for _, f := range totals {
		variance += (f - mean) * (f - mean)
	}
	variance /= float64(len(totals))
	cv := math.Sqrt(variance) / mean

	switch {
	case cv <= 0.20:
		return 20
	case cv <= 0.40:
		return 16
	case cv <= 0.60:
		return 12
	case cv <= 0.80:
		return 8
	case cv <= 1.00:
		return 5
	default:
		return 2
	}
}

func longevityScore(entries []ledger.Entry) float64 {
	earliest, latest, ok := ledger.Span(entries)
	if !ok {
		return 0
	}
	days := latest.Sub(earliest).Hours() / 24
	switch {
	case days < 7:
		return 2
	case days < 30:
		return 5
	case days < 90:
		return 10
	case days < 180:
		return 14
	case days < 365:
		return 17
	default:
		return 20
	}
}

func applyPenalties(flags []string) float64 {
	total := 0.0
	for _, f := range flags {
		if p, ok := penaltyTable[f]; ok {
			total += p
		} else {
			total += unknownFlagPenalty
		}
	}
	if total < -20 {
		total = -20
	}
	return total
}

// confidenceLevel gates jointly on data volume and score; either condition
// alone forces the lower tier.
func confidenceLevel(score, entryCount int) ledger.ConfidenceLevel {
	if entryCount < 5 || score < 30 {
		return ledger.ConfidenceLow
	}
	if entryCount < 20 || score < 60 {
		return ledger.ConfidenceMedium
	}
	return ledger.ConfidenceHigh
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
