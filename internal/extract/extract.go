package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/niagascore/niagascore/internal/ledger"
	"github.com/niagascore/niagascore/internal/metrics"
)

// ErrUnknownSourceType is returned when no parser is registered for the
// declared source type. This is the only hard error extraction produces;
// malformed content inside a known source yields partial or empty results.
var ErrUnknownSourceType = errors.New("unknown source type")

// Extract routes raw evidence bytes to the parser matching sourceType.
func Extract(ctx context.Context, data []byte, sourceType ledger.SourceType, opts Options) ([]RawEvent, error) {
	var events []RawEvent
	switch sourceType {
	case ledger.SourceWhatsApp:
		events = ParseWhatsApp(data)
	case ledger.SourceTelegram, ledger.SourceInstagram:
		// Recognized but not yet supported; contract only.
		events = nil
	case ledger.SourceCSVGrab, ledger.SourceCSVShopee, ledger.SourceCSVFoodpanda:
		events = ParseCSV(data, sourceType)
	case ledger.SourcePDFBank, ledger.SourcePDFEwallet:
		events = ParsePDF(data)
	case ledger.SourceScreenshot:
		events = ParseImage(ctx, data, opts)
	case ledger.SourceVoice:
		events = ParseVoice(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSourceType, sourceType)
	}
	metrics.EventsExtracted.WithLabelValues(string(sourceType)).Add(float64(len(events)))
	return events, nil
}
