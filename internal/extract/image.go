package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/niagascore/niagascore/internal/ledger"
	"github.com/niagascore/niagascore/internal/metrics"
)

// imageItem mirrors the transaction-object schema the vision capability is
// instructed to emit.
type imageItem struct {
	Timestamp   string          `json:"timestamp"`
	Amount      *float64        `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Platform    string          `json:"platform"`
	EventType   string          `json:"event_type"`
	OrderID     string          `json:"order_id"`
	Items       json.RawMessage `json:"items"`
}

var imageTimestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseImage runs the two-stage screenshot pipeline: optional layout OCR,
// then required multimodal extraction. Any capability failure yields an
// empty list, never an error.
func ParseImage(ctx context.Context, data []byte, opts Options) []RawEvent {
	ocrText := ""
	if opts.OCR != nil {
		text, err := opts.OCR.ReadLayout(ctx, data)
		if err != nil {
			slog.Warn("image: ocr stage failed, continuing without layout text", "err", err)
		} else {
			ocrText = text
		}
	}

	if opts.Vision == nil {
		slog.Warn("image: no vision capability configured")
		metrics.ExtractionFailures.WithLabelValues("vision").Inc()
		return nil
	}
	raw, err := opts.Vision.ExtractTransactions(ctx, data, ocrText)
	if err != nil {
		slog.Warn("image: vision extraction failed", "err", err)
		metrics.ExtractionFailures.WithLabelValues("vision").Inc()
		return nil
	}

	items := decodeImageItems(raw)
	events := make([]RawEvent, 0, len(items))
	for _, item := range items {
		events = append(events, imageItemToEvent(item, ocrText))
	}
	return events
}

func imageItemToEvent(item imageItem, ocrText string) RawEvent {
	ev := RawEvent{
		Currency:    ledger.DefaultCurrency,
		Description: item.Description,
		Channel:     detectChannel(item.Platform, ocrText),
		Confidence:  imageConfidence(item, ocrText),
		RawText:     ocrText,
		Metadata:    map[string]string{},
	}
	if item.Currency != "" {
		ev.Currency = item.Currency
	}
	if item.Amount != nil {
		ev.Amount = amount(decimal.NewFromFloat(*item.Amount))
	}
	if item.Timestamp != "" {
		if ts, ok := parseImageTimestamp(item.Timestamp); ok {
			ev.Timestamp = &ts
		} else {
			ev.RawTimestamp = item.Timestamp
		}
	}
	if et := ledger.EventType(item.EventType); et.Valid() {
		ev.EventType = et
	}
	if item.Platform != "" {
		ev.Metadata["platform"] = item.Platform
	}
	if item.OrderID != "" {
		ev.Metadata["order_id"] = item.OrderID
	}
	if len(item.Items) > 0 && string(item.Items) != "[]" && string(item.Items) != "null" {
		ev.Metadata["items"] = string(item.Items)
	}
	return ev
}

func parseImageTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range imageTimestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// imageConfidence: base depends on OCR availability, boosts for each field
// the extraction managed to fill, capped at 1.0.
func imageConfidence(item imageItem, ocrText string) float64 {
	score := 0.45
	if ocrText != "" {
		score = 0.55
	}
	if item.Amount != nil {
		score += 0.15
	}
	if item.Timestamp != "" {
		score += 0.10
	}
	if item.Platform != "" {
		score += 0.10
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// detectChannel matches the platform name, then the OCR text, against the
// ordered channel keyword families. First family hit wins.
func detectChannel(platform, ocrText string) ledger.Channel {
	haystack := strings.ToLower(platform) + " " + strings.ToLower(ocrText)
	for _, family := range rules().ChannelKeywords {
		for _, kw := range family.Keywords {
			if strings.Contains(haystack, kw) {
				return family.Channel
			}
		}
	}
	return ledger.ChannelOther
}

// decodeImageItems strips code fences, isolates the first balanced JSON
// array, and parses it. Anything malformed yields an empty slice.
func decodeImageItems(raw string) []imageItem {
	s := stripCodeFences(raw)
	arr, ok := firstBalancedArray(s)
	if !ok {
		return nil
	}
	var items []imageItem
	if err := json.Unmarshal([]byte(arr), &items); err != nil {
		slog.Warn("image: malformed extraction payload", "err", err)
		return nil
	}
	return items
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// firstBalancedArray returns the first `[...]` substring with balanced
// brackets, tracking JSON string literals so brackets inside text don't
// count.
func firstBalancedArray(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
