package normalize

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/niagascore/niagascore/internal/extract"
	"github.com/niagascore/niagascore/internal/ledger"
	"github.com/niagascore/niagascore/internal/metrics"
)

// EntrySink receives normalized entries as a single batch. The caller owns
// persistence; this package never talks to storage directly.
type EntrySink interface {
	InsertBatch(ctx context.Context, entries []ledger.Entry) error
}

// Normalizer converts raw event candidates into canonical ledger entries.
type Normalizer struct {
	Sink EntrySink

	// Clock supplies "now" for the lossy timestamp fallback. Tests inject a
	// fixed clock; nil means time.Now in UTC.
	Clock func() time.Time
}

// ISO timestamp layouts accepted from parsers that passed a raw string
// through. Failure falls back to the clock; that is deliberate lossy
// behavior, not an error.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize converts raws into entries owned by businessID, referencing
// evidenceID, and inserts them through the sink in one batch. It returns the
// number of entries created. Candidates without a usable amount are dropped,
// never coerced to zero.
func (n *Normalizer) Normalize(ctx context.Context, evidenceID, businessID string, raws []extract.RawEvent) (int, error) {
	entries := make([]ledger.Entry, 0, len(raws))
	for _, raw := range raws {
		entry, ok := n.toEntry(evidenceID, businessID, raw)
		if !ok {
			metrics.CandidatesDropped.Inc()
			continue
		}
		entries = append(entries, entry)
	}
	if len(entries) > 0 {
		if err := n.Sink.InsertBatch(ctx, entries); err != nil {
			return 0, fmt.Errorf("insert batch: %w", err)
		}
	}
	metrics.EntriesNormalized.Add(float64(len(entries)))
	return len(entries), nil
}

func (n *Normalizer) toEntry(evidenceID, businessID string, raw extract.RawEvent) (ledger.Entry, bool) {
	if !raw.Amount.Valid {
		return ledger.Entry{}, false
	}
	amt := raw.Amount.Decimal.Round(2)
	if amt.IsZero() {
		return ledger.Entry{}, false
	}

	eventTime := n.resolveTime(raw)

	channel := raw.Channel
	if !channel.Valid() {
		channel = ledger.ChannelOther
	}
	eventType := raw.EventType
	if !eventType.Valid() {
		eventType = ledger.EventPayment
	}
	confidence := raw.Confidence
	if confidence == 0 {
		confidence = 0.5
	}
	currency := raw.Currency
	if currency == "" {
		currency = ledger.DefaultCurrency
	}

	attrs := map[string]string{"description": raw.Description}
	if raw.RawText != "" {
		attrs["raw_text"] = raw.RawText
	}
	for k, v := range raw.Metadata {
		attrs[k] = v
	}

	return ledger.Entry{
		ID:               uuid.NewString(),
		BusinessID:       businessID,
		EventTime:        eventTime,
		Amount:           amt,
		Currency:         currency,
		Channel:          channel,
		EventType:        eventType,
		SourceEvidenceID: evidenceID,
		Confidence:       confidence,
		Attributes:       attrs,
	}, true
}

func (n *Normalizer) resolveTime(raw extract.RawEvent) time.Time {
	if raw.Timestamp != nil {
		return raw.Timestamp.UTC()
	}
	if s := strings.TrimSpace(raw.RawTimestamp); s != "" {
		// "Z" is valid RFC 3339; offset-less forms are taken as UTC.
		for _, layout := range isoLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t.UTC()
			}
		}
	}
	return n.now()
}

func (n *Normalizer) now() time.Time {
	if n.Clock != nil {
		return n.Clock()
	}
	return time.Now().UTC()
}

// ManualEntry records a user-keyed daily total as a single cash entry at UTC
// midnight with full confidence. The evidence reference is deterministic for
// a given business and day.
func (n *Normalizer) ManualEntry(ctx context.Context, businessID string, day time.Time, totalSales decimal.Decimal, orderCount int, notes string) (ledger.Entry, error) {
	amt := totalSales.Round(2)
	if amt.IsZero() {
		return ledger.Entry{}, fmt.Errorf("manual entry: amount must be non-zero")
	}
	day = day.UTC()
	dayKey := day.Format(time.DateOnly)

	attrs := map[string]string{
		"description":  "manual daily total",
		"order_count":  strconv.Itoa(orderCount),
		"manual_entry": "true",
	}
	if notes != "" {
		attrs["notes"] = notes
	}

	entry := ledger.Entry{
		ID:               uuid.NewString(),
		BusinessID:       businessID,
		EventTime:        time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
		Amount:           amt,
		Currency:         ledger.DefaultCurrency,
		Channel:          ledger.ChannelCash,
		EventType:        ledger.EventPayment,
		SourceEvidenceID: manualEvidenceID(businessID, dayKey),
		Confidence:       1.0,
		Attributes:       attrs,
	}
	if err := n.Sink.InsertBatch(ctx, []ledger.Entry{entry}); err != nil {
		return ledger.Entry{}, fmt.Errorf("insert manual entry: %w", err)
	}
	metrics.EntriesNormalized.Inc()
	return entry, nil
}

func manualEvidenceID(businessID, dayKey string) string {
	key := strings.ToLower("manual|" + businessID + "|" + dayKey)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// CollectSink is an in-memory EntrySink for callers that hold entries
// themselves (the CLI, tests).
type CollectSink struct {
	Entries []ledger.Entry
}

func (s *CollectSink) InsertBatch(_ context.Context, entries []ledger.Entry) error {
	s.Entries = append(s.Entries, entries...)
	return nil
}
