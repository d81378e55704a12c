package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/joseph-ayodele/receiptbox/constants"
)

// OpenAIProvider transcribes receipts with a vision-capable chat model. It reports no confidence.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

func NewOpenAIProvider(apiKey, model, baseURL string, logger *slog.Logger) (*OpenAIProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: model, logger: logger}, nil
}

func (p *OpenAIProvider) Name() string {
	return constants.ProviderOpenAI
}

func (p *OpenAIProvider) DetectText(ctx context.Context, image []byte) (Detection, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: transcribePrompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailHigh,
					}},
				},
			},
		},
	}
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Detection{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Detection{}, ErrNoAnnotations
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Detection{}, ErrNoAnnotations
	}
	p.logger.Debug("openai transcription", "model", resp.Model, "tokens", resp.Usage.TotalTokens)
	return Detection{FullText: text}, nil
}
