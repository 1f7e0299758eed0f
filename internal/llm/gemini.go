package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini talks to the Google Generative Language REST API and backs all
// three capability interfaces.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

var ErrGeminiNoAPIKey = fmt.Errorf("gemini: api key not configured")

func NewGemini(apiKey, model string) *Gemini {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Gemini{
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (g *Gemini) SetBaseURL(u string) { g.baseURL = strings.TrimRight(u, "/") }

type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobPart `json:"inline_data,omitempty"`
}

type geminiBlobPart struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateText sends a text-only prompt and returns the concatenated
// candidate text.
func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature:     0.4,
			MaxOutputTokens: 400,
		},
	})
}

const ocrPrompt = "Transcribe all text in this image into markdown, preserving the visual layout " +
	"(tables as tables, lists as lists). Output only the markdown, no commentary."

// ReadLayout runs layout-aware OCR over an image.
func (g *Gemini) ReadLayout(ctx context.Context, image []byte) (string, error) {
	return g.generate(ctx, geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{
			{Text: ocrPrompt},
			{InlineData: inlineImage(image)},
		}}},
	})
}

// ExtractionPrompt is the fixed instruction used for the screenshot path.
// The response must be a bare JSON array (possibly empty) of transaction
// objects; the extract package owns stripping fences and parsing.
const ExtractionPrompt = `You are reading a screenshot of a sales or payment record from a Malaysian micro-business (GrabFood, Shopee, Foodpanda, Touch 'n Go, bank apps, or similar).

Return ONLY a bare JSON array of transaction objects, no prose, no code fences. Each object has keys:
  timestamp   (ISO 8601 string or null)
  amount      (number in MYR, or null if not stated)
  currency    (string, default "MYR")
  description (short string)
  platform    (platform or app name if visible, else "")
  event_type  (one of "order", "payment", "payout", "refund")
  order_id    (string or "")
  items       (array of item name strings, or [])

If the image contains no transactions, return [].`

// ExtractTransactions sends the image plus the fixed extraction prompt and
// any OCR text obtained earlier.
func (g *Gemini) ExtractTransactions(ctx context.Context, image []byte, ocrText string) (string, error) {
	parts := []geminiPart{
		{Text: ExtractionPrompt},
		{InlineData: inlineImage(image)},
	}
	if ocrText != "" {
		parts = append(parts, geminiPart{Text: "OCR transcription of the same image:\n" + ocrText})
	}
	return g.generate(ctx, geminiRequest{Contents: []geminiContent{{Parts: parts}}})
}

func (g *Gemini) generate(ctx context.Context, payload geminiRequest) (string, error) {
	if g.apiKey == "" {
		return "", ErrGeminiNoAPIKey
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("gemini: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out geminiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("gemini: parse response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

func inlineImage(image []byte) *geminiBlobPart {
	return &geminiBlobPart{
		MIMEType: http.DetectContentType(image),
		Data:     base64.StdEncoding.EncodeToString(image),
	}
}
