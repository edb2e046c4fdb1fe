/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"chainguard.dev/agentjudge/retry"
)

func fastConfig() retry.Config {
	return retry.Config{
		MaxRetries:  3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		MaxJitter:   0,
	}
}

func TestWithBackoff(t *testing.T) {
	ctx := context.Background()
	always := func(error) bool { return true }
	never := func(error) bool { return false }

	t.Run("success first try", func(t *testing.T) {
		calls := 0
		got, err := retry.WithBackoff(ctx, fastConfig(), "op", always, func() (string, error) {
			calls++
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("WithBackoff() error = %v", err)
		}
		if got != "ok" || calls != 1 {
			t.Errorf("WithBackoff(): got = %q after %d calls, wanted = %q after 1", got, calls, "ok")
		}
	})

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		got, err := retry.WithBackoff(ctx, fastConfig(), "op", always, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("rate limited")
			}
			return 42, nil
		})
		if err != nil {
			t.Fatalf("WithBackoff() error = %v", err)
		}
		if got != 42 || calls != 3 {
			t.Errorf("WithBackoff(): got = %d after %d calls, wanted = 42 after 3", got, calls)
		}
	})

	t.Run("non-retryable error returns immediately", func(t *testing.T) {
		calls := 0
		wantErr := errors.New("bad request")
		_, err := retry.WithBackoff(ctx, fastConfig(), "op", never, func() (int, error) {
			calls++
			return 0, wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Errorf("WithBackoff() error = %v, wanted = %v", err, wantErr)
		}
		if calls != 1 {
			t.Errorf("call count: got = %d, wanted = 1", calls)
		}
	})

	t.Run("exhausts retries", func(t *testing.T) {
		calls := 0
		wantErr := errors.New("still limited")
		_, err := retry.WithBackoff(ctx, fastConfig(), "op", always, func() (int, error) {
			calls++
			return 0, wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Errorf("WithBackoff() error = %v, wanted wrapped %v", err, wantErr)
		}
		if calls != 4 { // initial attempt plus MaxRetries
			t.Errorf("call count: got = %d, wanted = 4", calls)
		}
	})

	t.Run("context cancellation stops waiting", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		cfg := fastConfig()
		cfg.BaseBackoff = time.Minute
		_, err := retry.WithBackoff(cctx, cfg, "op", always, func() (int, error) {
			return 0, errors.New("rate limited")
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("WithBackoff() error = %v, wanted context.Canceled", err)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	if err := retry.DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
	bad := retry.Config{MaxRetries: -1}
	if err := bad.Validate(); err == nil {
		t.Error("Validate() error = nil, wanted error")
	}
}
