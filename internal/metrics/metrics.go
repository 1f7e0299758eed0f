package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "niagascore_events_extracted_total",
		Help: "Raw event candidates produced, labelled by source type.",
	}, []string{"source_type"})

	ExtractionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "niagascore_extraction_failures_total",
		Help: "Extraction attempts that produced no result due to an external capability failure.",
	}, []string{"stage"})

	CandidatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "niagascore_candidates_dropped_total",
		Help: "Raw candidates discarded during normalization (missing or zero amount).",
	})

	EntriesNormalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "niagascore_entries_normalized_total",
		Help: "Ledger entries created from raw events.",
	})

	LinksFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "niagascore_links_found_total",
		Help: "Cross-source links emitted, labelled by link type.",
	}, []string{"link_type"})

	ScoresComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "niagascore_scores_computed_total",
		Help: "Credibility scores computed.",
	})

	NarrativeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "niagascore_narrative_failures_total",
		Help: "Narrative generations that degraded to an empty string.",
	})
)
