/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"context"
	"fmt"
	"strings"

	"chainguard.dev/agentjudge/metrics"
	"chainguard.dev/agentjudge/retry"
	"github.com/chainguard-dev/clog"
	"google.golang.org/genai"
)

// googleEngine implements Interface using Gemini on Vertex AI.
type googleEngine struct {
	client   *genai.Client
	settings settings
	metrics  *metrics.GenAI
}

// NewGoogle creates a Gemini-backed engine on Vertex AI.
func NewGoogle(ctx context.Context, projectID, location string, opts ...Option) (Interface, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google AI client: %w", err)
	}

	s := defaultSettings("gemini-2.5-flash")
	if err := s.apply(opts); err != nil {
		return nil, fmt.Errorf("failed to apply option: %w", err)
	}
	return &googleEngine{
		client:   client,
		settings: s,
		metrics:  metrics.NewGenAI("chainguard.ai.judge"),
	}, nil
}

// Ask implements Interface.
func (e *googleEngine) Ask(ctx context.Context, prompt string) (string, error) {
	temp := float32(e.settings.temperature)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(e.settings.maxTokens),
	}

	resp, err := retry.WithBackoff(ctx, e.settings.retryConfig, "generate_content", isRetryableVertexError, func() (*genai.GenerateContentResponse, error) {
		return e.client.Models.GenerateContent(ctx, e.settings.model, genai.Text(prompt), config)
	})
	e.metrics.RecordCall(ctx, e.settings.model, err)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if usage := resp.UsageMetadata; usage != nil {
		e.metrics.RecordTokens(ctx, e.settings.model, int64(usage.PromptTokenCount), int64(usage.CandidatesTokenCount))
	}

	text := resp.Text()
	clog.FromContext(ctx).With("model", e.settings.model).
		With("output_chars", len(text)).
		Debug("Gemini response received")
	return text, nil
}

// isRetryableVertexError reports whether an error is a retryable Vertex AI
// error: rate limit, quota exhaustion, or transient server errors.
func isRetryableVertexError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Resource exhausted") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "Overloaded") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "quota exceeded") ||
		strings.Contains(errStr, "Internal error") ||
		strings.Contains(errStr, "server error")
}
