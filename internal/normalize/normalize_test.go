package normalize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/niagascore/niagascore/internal/extract"
	"github.com/niagascore/niagascore/internal/ledger"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func nullAmount(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func TestNormalizeDropsUnusableAmounts(t *testing.T) {
	t.Parallel()

	sink := &CollectSink{}
	n := &Normalizer{Sink: sink, Clock: fixedClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))}

	raws := []extract.RawEvent{
		{Description: "no amount at all"},
		{Amount: nullAmount("0.00"), Description: "zero"},
		{Amount: nullAmount("0.004"), Description: "rounds to zero"},
		{Amount: nullAmount("12.345"), Description: "kept"},
	}
	count, err := n.Normalize(context.Background(), "ev-1", "biz-1", raws)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, sink.Entries, 1)
	require.Equal(t, "12.35", sink.Entries[0].Amount.StringFixed(2))
}

func TestNormalizeDefaulting(t *testing.T) {
	t.Parallel()

	sink := &CollectSink{}
	n := &Normalizer{Sink: sink, Clock: fixedClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))}

	_, err := n.Normalize(context.Background(), "ev-2", "biz-1", []extract.RawEvent{
		{Amount: nullAmount("9.90"), Description: "bare candidate"},
	})
	require.NoError(t, err)
	require.Len(t, sink.Entries, 1)

	e := sink.Entries[0]
	require.NotEmpty(t, e.ID)
	require.Equal(t, "biz-1", e.BusinessID)
	require.Equal(t, "ev-2", e.SourceEvidenceID)
	require.Equal(t, ledger.ChannelOther, e.Channel)
	require.Equal(t, ledger.EventPayment, e.EventType)
	require.Equal(t, ledger.DefaultCurrency, e.Currency)
	require.Equal(t, 0.5, e.Confidence)
	require.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), e.EventTime)
	require.Equal(t, "bare candidate", e.Attributes["description"])
}

func TestNormalizeTimestampResolution(t *testing.T) {
	t.Parallel()

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	kl := time.FixedZone("MYT", 8*3600)
	parsed := time.Date(2024, 1, 15, 18, 30, 0, 0, kl)

	cases := []struct {
		name string
		raw  extract.RawEvent
		want time.Time
	}{
		{
			"parsed timestamp converted to UTC",
			extract.RawEvent{Amount: nullAmount("5"), Timestamp: &parsed},
			time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			"raw RFC3339 string",
			extract.RawEvent{Amount: nullAmount("5"), RawTimestamp: "2024-02-01T09:15:00Z"},
			time.Date(2024, 2, 1, 9, 15, 0, 0, time.UTC),
		},
		{
			"raw date only",
			extract.RawEvent{Amount: nullAmount("5"), RawTimestamp: "2024-02-01"},
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"unparseable raw falls back to clock",
			extract.RawEvent{Amount: nullAmount("5"), RawTimestamp: "petang semalam"},
			clock,
		},
		{
			"nothing at all falls back to clock",
			extract.RawEvent{Amount: nullAmount("5")},
			clock,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			sink := &CollectSink{}
			n := &Normalizer{Sink: sink, Clock: fixedClock(clock)}
			_, err := n.Normalize(context.Background(), "ev", "biz", []extract.RawEvent{tc.raw})
			require.NoError(t, err)
			require.Len(t, sink.Entries, 1)
			require.Equal(t, tc.want, sink.Entries[0].EventTime)
		})
	}
}

func TestNormalizeMergesAttributes(t *testing.T) {
	t.Parallel()

	sink := &CollectSink{}
	n := &Normalizer{Sink: sink, Clock: fixedClock(time.Now().UTC())}

	_, err := n.Normalize(context.Background(), "ev", "biz", []extract.RawEvent{{
		Amount:      nullAmount("30"),
		Description: "grab payout",
		RawText:     "row 7",
		Metadata:    map[string]string{"order_id": "A-1", "status": "Completed"},
	}})
	require.NoError(t, err)
	require.Len(t, sink.Entries, 1)

	attrs := sink.Entries[0].Attributes
	require.Equal(t, "grab payout", attrs["description"])
	require.Equal(t, "row 7", attrs["raw_text"])
	require.Equal(t, "A-1", attrs["order_id"])
	require.Equal(t, "Completed", attrs["status"])
}

type failingSink struct{}

func (failingSink) InsertBatch(context.Context, []ledger.Entry) error {
	return errors.New("disk full")
}

func TestNormalizeSinkErrorPropagates(t *testing.T) {
	t.Parallel()

	n := &Normalizer{Sink: failingSink{}}
	_, err := n.Normalize(context.Background(), "ev", "biz", []extract.RawEvent{
		{Amount: nullAmount("10")},
	})
	require.ErrorContains(t, err, "insert batch")
}

func TestManualEntry(t *testing.T) {
	t.Parallel()

	sink := &CollectSink{}
	n := &Normalizer{Sink: sink}

	kl := time.FixedZone("MYT", 8*3600)
	day := time.Date(2024, 3, 10, 21, 45, 0, 0, kl)

	entry, err := n.ManualEntry(context.Background(), "biz-1", day, decimal.RequireFromString("250.00"), 18, "pasar malam")
	require.NoError(t, err)
	require.Len(t, sink.Entries, 1)

	require.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), entry.EventTime)
	require.Equal(t, ledger.ChannelCash, entry.Channel)
	require.Equal(t, ledger.EventPayment, entry.EventType)
	require.Equal(t, 1.0, entry.Confidence)
	require.Equal(t, "18", entry.Attributes["order_count"])
	require.Equal(t, "pasar malam", entry.Attributes["notes"])
	require.Equal(t, "true", entry.Attributes["manual_entry"])

	// Re-keying the same day points at the same evidence, with a fresh entry ID.
	again, err := n.ManualEntry(context.Background(), "biz-1", day, decimal.RequireFromString("300.00"), 20, "")
	require.NoError(t, err)
	require.Equal(t, entry.SourceEvidenceID, again.SourceEvidenceID)
	require.NotEqual(t, entry.ID, again.ID)

	other, err := n.ManualEntry(context.Background(), "biz-2", day, decimal.RequireFromString("50"), 3, "")
	require.NoError(t, err)
	require.NotEqual(t, entry.SourceEvidenceID, other.SourceEvidenceID)
}

func TestManualEntryRejectsZeroAmount(t *testing.T) {
	t.Parallel()

	n := &Normalizer{Sink: &CollectSink{}}
	_, err := n.ManualEntry(context.Background(), "biz", time.Now(), decimal.Zero, 0, "")
	require.Error(t, err)
}
