/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/agentjudge/metrics"
	"chainguard.dev/agentjudge/retry"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

// anthropicEngine implements Interface using Claude.
type anthropicEngine struct {
	client   anthropic.Client
	settings settings
	metrics  *metrics.GenAI
}

// NewAnthropic creates a Claude-backed engine. Credentials come from the
// standard SDK environment (ANTHROPIC_API_KEY).
func NewAnthropic(_ context.Context, opts ...Option) (Interface, error) {
	s := defaultSettings("claude-sonnet-4-5") // default to Sonnet 4.5
	if err := s.apply(opts); err != nil {
		return nil, fmt.Errorf("failed to apply option: %w", err)
	}
	return &anthropicEngine{
		client:   anthropic.NewClient(),
		settings: s,
		metrics:  metrics.NewGenAI("chainguard.ai.judge"),
	}, nil
}

// Ask implements Interface.
func (e *anthropicEngine) Ask(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(e.settings.model),
		MaxTokens:   e.settings.maxTokens,
		Temperature: anthropic.Float(e.settings.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	message, err := retry.WithBackoff(ctx, e.settings.retryConfig, "anthropic_message", isRetryableAnthropicError, func() (anthropic.Message, error) {
		stream := e.client.Messages.NewStreaming(ctx, params)
		var msg anthropic.Message
		for stream.Next() {
			event := stream.Current()
			if err := msg.Accumulate(event); err != nil {
				return msg, fmt.Errorf("failed to accumulate event: %w", err)
			}
		}
		if err := stream.Err(); err != nil {
			return msg, err
		}
		return msg, nil
	})
	e.metrics.RecordCall(ctx, e.settings.model, err)
	if err != nil {
		return "", fmt.Errorf("failed to stream Claude response: %w", err)
	}

	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		e.metrics.RecordTokens(ctx, e.settings.model, message.Usage.InputTokens, message.Usage.OutputTokens)
	}

	var text strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}
	clog.FromContext(ctx).With("model", e.settings.model).
		With("output_chars", text.Len()).
		Debug("Claude response received")
	return text.String(), nil
}

// isRetryableAnthropicError reports whether an error is a retryable Claude
// API error: rate limit, overloaded, or transient server errors.
func isRetryableAnthropicError(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 503, 504, 529:
			return true
		}
	}
	return false
}
