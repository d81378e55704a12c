package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/joseph-ayodele/receiptbox/constants"
)

const transcribePrompt = `Transcribe every piece of text printed on this receipt image.
Keep the original line breaks and reading order, one printed line per output line.
Do not summarize, translate, correct, or add anything. Do not use markdown.
If the image contains no readable text, reply with an empty message.`

// GeminiProvider transcribes receipts with a Gemini model. It reports no confidence.
type GeminiProvider struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiProvider builds a Gemini API client. baseURL is only set in tests.
func NewGeminiProvider(ctx context.Context, apiKey, model, baseURL string, logger *slog.Logger) (*GeminiProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: model, logger: logger}, nil
}

func (p *GeminiProvider) Name() string {
	return constants.ProviderGemini
}

func (p *GeminiProvider) DetectText(ctx context.Context, image []byte) (Detection, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: transcribePrompt},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: image}},
			},
		},
	}
	temperature := float32(0)
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return Detection{}, fmt.Errorf("gemini generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Detection{}, ErrNoAnnotations
	}
	return Detection{FullText: text}, nil
}
