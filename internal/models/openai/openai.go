// Package openai implements completion.Completer on the OpenAI Chat Completions API.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/lewisedginton/whatsapp_router/internal/completion"
)

// ProviderName labels errors and logs from this backend.
const ProviderName = "openai"

// Model sends single turn chat completions.
type Model struct {
	client    openai.Client
	modelName string
}

// New creates a new OpenAI model instance. Extra request options are
// appended after the API key, so tests can point BaseURL at a fake.
func New(apiKey, modelName string, opts ...option.RequestOption) (*Model, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)

	return &Model{
		client:    client,
		modelName: modelName,
	}, nil
}

// Name returns the model name.
func (o *Model) Name() string {
	return o.modelName
}

// Complete implements completion.Completer.
func (o *Model) Complete(ctx context.Context, systemPrompt, userText string, maxTokens int) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userText))

	params := openai.ChatCompletionNewParams{
		Model:    o.modelName,
		Messages: messages,
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", completion.Wrap(ProviderName, fmt.Errorf("openai API error: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", completion.Wrap(ProviderName, fmt.Errorf("no choices returned: %w", completion.ErrEmptyCompletion))
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", completion.Wrap(ProviderName, completion.ErrEmptyCompletion)
	}
	return text, nil
}
