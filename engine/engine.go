/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"context"
	"fmt"
	"strings"
)

// Interface is the reasoning-engine surface consumed by the pipeline.
type Interface interface {
	// Ask submits a single-turn prompt and returns the model's text.
	Ask(ctx context.Context, prompt string) (string, error)
}

// Func adapts an ordinary function to Interface.
type Func func(ctx context.Context, prompt string) (string, error)

// Ask implements Interface.
func (f Func) Ask(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Provider selects which hosted model backs the engine.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
	ProviderOpenAI    Provider = "openai"
)

// Config carries the provider selection plus the provider-specific knobs
// needed to construct an engine.
type Config struct {
	Provider Provider `env:"ENGINE_PROVIDER, default=anthropic"`
	Model    string   `env:"ENGINE_MODEL"`

	// Project and Location are used by the Google Vertex AI backend.
	Project  string `env:"GOOGLE_PROJECT_ID"`
	Location string `env:"GOOGLE_LOCATION, default=us-central1"`
}

// New constructs the engine named by the configuration.
func New(ctx context.Context, cfg Config) (Interface, error) {
	var opts []Option
	if cfg.Model != "" {
		opts = append(opts, WithModel(cfg.Model))
	}
	switch Provider(strings.ToLower(string(cfg.Provider))) {
	case ProviderAnthropic:
		return NewAnthropic(ctx, opts...)
	case ProviderGoogle:
		return NewGoogle(ctx, cfg.Project, cfg.Location, opts...)
	case ProviderOpenAI:
		return NewOpenAI(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown engine provider %q", cfg.Provider)
	}
}
