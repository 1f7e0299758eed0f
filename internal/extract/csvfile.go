package extract

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/niagascore/niagascore/internal/ledger"
)

var csvSourceChannels = map[ledger.SourceType]ledger.Channel{
	ledger.SourceCSVGrab:      ledger.ChannelGrabFood,
	ledger.SourceCSVShopee:    ledger.ChannelShopee,
	ledger.SourceCSVFoodpanda: ledger.ChannelFoodpanda,
}

// Date layouts tried for CSV date cells, day-first before month-first.
// A cell matching none of these passes through raw for the normalizer's
// lossy fallback.
var csvDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2/1/2006 15:04",
	"2/1/2006",
	"1/2/2006",
}

// ParseCSV parses a platform export (Grab, Shopee, Foodpanda) into raw
// events. Columns are auto-detected from known header aliases; a file with
// no recognizable amount column yields an empty list.
func ParseCSV(data []byte, sourceType ledger.SourceType) []RawEvent {
	r := csv.NewReader(bufio.NewReader(bytes.NewReader(data)))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil
	}

	schema, ok := rules().CSVSchemas[string(sourceType)]
	if !ok {
		schema = rules().CSVSchemas[string(ledger.SourceCSVGrab)]
	}
	dateIdx := detectColumn(header, schema.Date)
	amountIdx := detectColumn(header, schema.Amount)
	if amountIdx < 0 {
		return nil
	}

	channel, ok := csvSourceChannels[sourceType]
	if !ok {
		channel = ledger.ChannelOther
	}

	var events []RawEvent
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if amountIdx >= len(row) {
			continue
		}
		amt, ok := parseCSVAmount(row[amountIdx])
		if !ok {
			continue
		}

		ev := RawEvent{
			Amount:      amount(amt),
			Currency:    ledger.DefaultCurrency,
			Description: fmt.Sprintf("%s order", sourceType),
			Channel:     channel,
			EventType:   ledger.EventOrder,
			Confidence:  0.9, // structured data
			RawText:     strings.Join(row, ","),
			Metadata:    rowMetadata(header, row),
		}
		if dateIdx >= 0 && dateIdx < len(row) {
			cell := strings.TrimSpace(row[dateIdx])
			if ts, ok := parseCSVDate(cell); ok {
				ev.Timestamp = &ts
			} else {
				ev.RawTimestamp = cell
			}
		}
		events = append(events, ev)
	}
	return events
}

// detectColumn returns the index of the first alias present in the header
// row, or -1.
func detectColumn(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, name := range header {
			if strings.TrimSpace(name) == alias {
				return i
			}
		}
	}
	return -1
}

// parseCSVAmount strips thousands separators and currency literals.
// Non-numeric or non-positive values reject the row.
func parseCSVAmount(value string) (decimal.Decimal, bool) {
	cleaned := strings.NewReplacer(",", "", "RM", "", "MYR", "").Replace(value)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	amt, err := decimal.NewFromString(cleaned)
	if err != nil || !amt.IsPositive() {
		return decimal.Decimal{}, false
	}
	return amt.Round(2), true
}

func parseCSVDate(cell string) (time.Time, bool) {
	if cell == "" {
		return time.Time{}, false
	}
	for _, layout := range csvDateLayouts {
		if t, err := time.ParseInLocation(layout, cell, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func rowMetadata(header, row []string) map[string]string {
	md := make(map[string]string)
	for i, cell := range row {
		if i >= len(header) {
			break
		}
		if v := strings.TrimSpace(cell); v != "" {
			md[strings.TrimSpace(header[i])] = v
		}
	}
	return md
}
