package llm

import (
	"context"
	"errors"
)

// The pipeline treats all vendor calls as injected capabilities. OCR and
// narrative generation are optional (failures degrade silently upstream);
// vision extraction is required for the screenshot path, where a failure
// empties the result for that evidence item.

// TextGenerator produces free text from a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// OCRReader turns an image into layout-preserving markdown text.
type OCRReader interface {
	ReadLayout(ctx context.Context, image []byte) (string, error)
}

// VisionExtractor extracts transaction data from an image, optionally
// assisted by previously obtained OCR text. The response is expected to be a
// bare JSON array of transaction objects; callers own the parsing.
type VisionExtractor interface {
	ExtractTransactions(ctx context.Context, image []byte, ocrText string) (string, error)
}

// ErrUnavailable reports that a capability is not configured. Callers can
// detect it explicitly instead of treating import-or-config failure as
// control flow.
var ErrUnavailable = errors.New("llm: capability unavailable")

// Unavailable implements every capability by refusing. It is the explicit
// "no provider configured" variant.
type Unavailable struct{}

func (Unavailable) GenerateText(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) ReadLayout(context.Context, []byte) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) ExtractTransactions(context.Context, []byte, string) (string, error) {
	return "", ErrUnavailable
}
