package summarize

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient generates summaries and topic outlines through an
// OpenAI-compatible chat completions endpoint (OpenRouter by default).
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

// NewOpenAIClient creates a summarization client. baseURL may point at any
// OpenAI-compatible endpoint; empty uses the official API.
func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration, log zerolog.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		log:     log,
	}
}

// Generate runs one chat completion for the given task over the transcript
// text and returns the model's markdown output.
func (c *OpenAIClient) Generate(ctx context.Context, task Task, text string) (string, error) {
	prompt, err := buildPrompt(task, text)
	if err != nil {
		return "", err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s generation: %w", task, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s generation: empty choices in response", task)
	}

	c.log.Debug().Str("task", string(task)).Str("model", c.model).Msg("generation complete")
	return resp.Choices[0].Message.Content, nil
}
