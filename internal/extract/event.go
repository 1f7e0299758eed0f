package extract

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/niagascore/niagascore/internal/ledger"
	"github.com/niagascore/niagascore/internal/llm"
)

// RawEvent is the output contract for all parsers: one candidate financial
// event, not yet normalized. Candidates with no valid amount are dropped by
// the normalizer, never stored as zero.
type RawEvent struct {
	// Timestamp is set when the parser could resolve the source timestamp.
	// When it could not, RawTimestamp carries the original string so the
	// normalizer can apply its lossy fallback.
	Timestamp    *time.Time          `json:"timestamp,omitempty"`
	RawTimestamp string              `json:"raw_timestamp,omitempty"`
	Amount       decimal.NullDecimal `json:"amount"`
	Currency     string              `json:"currency"`
	Description  string              `json:"description"`
	Channel      ledger.Channel      `json:"channel"`
	EventType    ledger.EventType    `json:"event_type,omitempty"`
	Confidence   float64             `json:"confidence"`
	RawText      string              `json:"raw_text,omitempty"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
}

// Options carries the injected external capabilities the image path needs.
// Both are optional at the struct level; a missing Vision capability empties
// the screenshot result (required-capability failure policy).
type Options struct {
	OCR    llm.OCRReader
	Vision llm.VisionExtractor
}

func amount(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
