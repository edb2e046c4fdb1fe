/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/agentjudge/metrics"
	"chainguard.dev/agentjudge/retry"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
)

// openaiEngine implements Interface using the OpenAI chat completions API.
type openaiEngine struct {
	client   openai.Client
	settings settings
	metrics  *metrics.GenAI
}

// NewOpenAI creates an OpenAI-backed engine. Credentials come from the
// standard SDK environment (OPENAI_API_KEY).
func NewOpenAI(_ context.Context, opts ...Option) (Interface, error) {
	s := defaultSettings(openai.ChatModelGPT4o)
	if err := s.apply(opts); err != nil {
		return nil, fmt.Errorf("failed to apply option: %w", err)
	}
	return &openaiEngine{
		client:   openai.NewClient(),
		settings: s,
		metrics:  metrics.NewGenAI("chainguard.ai.judge"),
	}, nil
}

// Ask implements Interface.
func (e *openaiEngine) Ask(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: e.settings.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(e.settings.temperature),
		MaxCompletionTokens: openai.Int(e.settings.maxTokens),
	}

	completion, err := retry.WithBackoff(ctx, e.settings.retryConfig, "chat_completion", isRetryableOpenAIError, func() (*openai.ChatCompletion, error) {
		return e.client.Chat.Completions.New(ctx, params)
	})
	e.metrics.RecordCall(ctx, e.settings.model, err)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	if completion.Usage.PromptTokens > 0 || completion.Usage.CompletionTokens > 0 {
		e.metrics.RecordTokens(ctx, e.settings.model, completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
	}

	text := completion.Choices[0].Message.Content
	clog.FromContext(ctx).With("model", e.settings.model).
		With("output_chars", len(text)).
		Debug("OpenAI response received")
	return text, nil
}

// isRetryableOpenAIError reports whether an error is a retryable OpenAI API
// error: rate limit or transient server errors.
func isRetryableOpenAIError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return false
}
