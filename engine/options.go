/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"errors"

	"chainguard.dev/agentjudge/retry"
)

// settings are the per-engine knobs shared by all providers.
type settings struct {
	model       string
	temperature float64
	maxTokens   int64
	retryConfig retry.Config
}

func defaultSettings(model string) settings {
	return settings{
		model:       model,
		temperature: 0.1, // low temperature for consistent judgments
		maxTokens:   8192,
		retryConfig: retry.DefaultConfig(),
	}
}

// Option configures an engine.
type Option func(*settings) error

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(s *settings) error {
		if model == "" {
			return errors.New("model cannot be empty")
		}
		s.model = model
		return nil
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(s *settings) error {
		if t < 0 || t > 2 {
			return errors.New("temperature must be in [0, 2]")
		}
		s.temperature = t
		return nil
	}
}

// WithMaxTokens sets the completion token cap.
func WithMaxTokens(n int64) Option {
	return func(s *settings) error {
		if n <= 0 {
			return errors.New("max tokens must be positive")
		}
		s.maxTokens = n
		return nil
	}
}

// WithRetryConfig overrides the default retry behavior.
func WithRetryConfig(cfg retry.Config) Option {
	return func(s *settings) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		s.retryConfig = cfg
		return nil
	}
}

func (s *settings) apply(opts []Option) error {
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return err
		}
	}
	return nil
}
