package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Channel is the commerce or payment surface an event was reported through.
type Channel string

const (
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelGrabFood  Channel = "grabfood"
	ChannelShopee    Channel = "shopee"
	ChannelFoodpanda Channel = "foodpanda"
	ChannelLazada    Channel = "lazada"
	ChannelTNG       Channel = "tng"
	ChannelBank      Channel = "bank"
	ChannelCash      Channel = "cash"
	ChannelOther     Channel = "other"
)

var knownChannels = map[Channel]bool{
	ChannelWhatsApp:  true,
	ChannelGrabFood:  true,
	ChannelShopee:    true,
	ChannelFoodpanda: true,
	ChannelLazada:    true,
	ChannelTNG:       true,
	ChannelBank:      true,
	ChannelCash:      true,
	ChannelOther:     true,
}

func (c Channel) Valid() bool { return knownChannels[c] }

// EventType classifies what a ledger entry represents.
type EventType string

const (
	EventOrder   EventType = "order"
	EventPayment EventType = "payment"
	EventPayout  EventType = "payout"
	EventRefund  EventType = "refund"
)

func (e EventType) Valid() bool {
	switch e {
	case EventOrder, EventPayment, EventPayout, EventRefund:
		return true
	}
	return false
}

// SourceType identifies the kind of raw evidence a file upload carries.
type SourceType string

const (
	SourceWhatsApp     SourceType = "whatsapp"
	SourceTelegram     SourceType = "telegram"
	SourceInstagram    SourceType = "instagram"
	SourceCSVGrab      SourceType = "csv_grab"
	SourceCSVShopee    SourceType = "csv_shopee"
	SourceCSVFoodpanda SourceType = "csv_foodpanda"
	SourcePDFBank      SourceType = "pdf_bank"
	SourcePDFEwallet   SourceType = "pdf_ewallet"
	SourceScreenshot   SourceType = "screenshot"
	SourceManual       SourceType = "manual"
	SourceVoice        SourceType = "voice"
)

// ConfidenceLevel grades how trustworthy a computed score is.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "LOW"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceHigh   ConfidenceLevel = "HIGH"
)

// DefaultCurrency is applied when a source does not state one.
const DefaultCurrency = "MYR"

// Entry is a normalized financial event. It is created once by normalization
// (or manual entry) and never updated; the caller owns persistence.
type Entry struct {
	ID               string            `json:"id"`
	BusinessID       string            `json:"business_id"`
	EventTime        time.Time         `json:"event_time"`
	Amount           decimal.Decimal   `json:"amount"`
	Currency         string            `json:"currency"`
	Channel          Channel           `json:"channel"`
	EventType        EventType         `json:"event_type"`
	SourceEvidenceID string            `json:"source_evidence_id"`
	Confidence       float64           `json:"confidence"`
	Attributes       map[string]string `json:"attributes,omitempty"`
}

// Link pairs two entries from different channels believed to describe the
// same real-world transaction. Recomputed on every scoring run.
type Link struct {
	EntryAID string  `json:"entry_a_id"`
	EntryBID string  `json:"entry_b_id"`
	LinkType string  `json:"link_type"` // "confirmed" or "probable"
	Score    float64 `json:"score"`
}

const (
	LinkConfirmed = "confirmed"
	LinkProbable  = "probable"
)

// Breakdown itemizes the score components. Each is independently bounded.
type Breakdown struct {
	Activity         float64 `json:"activity"`          // 0-30
	Consistency      float64 `json:"consistency"`       // 0-20
	Longevity        float64 `json:"longevity"`         // 0-20
	EvidenceStrength float64 `json:"evidence_strength"` // 0-25
	CrossSource      float64 `json:"cross_source"`      // 0-15
	Penalties        float64 `json:"penalties"`         // -20 to 0
}

// CredibilityScore is the composite result of a scoring run. It is a pure
// function of the entry set it was computed from.
type CredibilityScore struct {
	Score           int             `json:"score"` // 0-100
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	Breakdown       Breakdown       `json:"breakdown"`
	Flags           []string        `json:"flags"`
}

// InsightCard is a derived, presentational finding.
type InsightCard struct {
	Type        string         `json:"type"` // peak_day | trend | recommendation | coverage
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
}
