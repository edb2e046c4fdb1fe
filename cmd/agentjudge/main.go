/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main evaluates recorded browser-agent runs against a set of
// criteria and writes a markdown report.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainguard.dev/agentjudge/agenttrace"
	"chainguard.dev/agentjudge/engine"
	"chainguard.dev/agentjudge/history"
	"chainguard.dev/agentjudge/pipeline"
	"chainguard.dev/agentjudge/report"
	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

type config struct {
	// CriteriaFile is a YAML file with a top-level criteria list.
	CriteriaFile string `env:"CRITERIA_FILE,required"`
	// HistoryDir holds the recorded run JSON files, one per condition.
	HistoryDir string `env:"HISTORY_DIR,required"`
	// OutputFile receives the markdown report; empty means stdout.
	OutputFile string `env:"OUTPUT_FILE"`

	// MetricsPort exposes Prometheus metrics when non-zero.
	MetricsPort int `env:"METRICS_PORT,default=0"`

	DisableComparisons bool `env:"DISABLE_COMPARISONS,default=false"`
	Concurrency        int  `env:"CONCURRENCY,default=8"`
}

type criteriaFile struct {
	Criteria []agenttrace.Criterion `yaml:"criteria"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = clog.WithLogger(ctx, clog.New(slog.Default().Handler()))

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	var engineCfg engine.Config
	if err := envconfig.Process(ctx, &engineCfg); err != nil {
		clog.FatalContextf(ctx, "processing engine config: %v", err)
	}
	eng, err := engine.New(ctx, engineCfg)
	if err != nil {
		clog.FatalContextf(ctx, "creating reasoning engine: %v", err)
	}

	criteria, err := loadCriteria(cfg.CriteriaFile)
	if err != nil {
		clog.FatalContextf(ctx, "loading criteria: %v", err)
	}
	conditions, err := history.LoadDir(cfg.HistoryDir)
	if err != nil {
		clog.FatalContextf(ctx, "loading history logs: %v", err)
	}
	if len(conditions) == 0 {
		clog.FatalContextf(ctx, "no run files found in %q", cfg.HistoryDir)
	}
	clog.InfoContextf(ctx, "Loaded %d criteria and %d conditions", len(criteria), len(conditions))

	if cfg.MetricsPort > 0 {
		go serveMetrics(ctx, cfg.MetricsPort)
	}

	opts := []pipeline.Option{pipeline.WithConcurrency(cfg.Concurrency)}
	if cfg.DisableComparisons {
		opts = append(opts, pipeline.WithoutComparisons())
	}
	orchestrator, err := pipeline.New(eng, opts...)
	if err != nil {
		clog.FatalContextf(ctx, "creating orchestrator: %v", err)
	}

	result, err := orchestrator.Evaluate(ctx, criteria, conditions)
	if err != nil {
		clog.FatalContextf(ctx, "evaluating: %v", err)
	}

	rendered := report.Markdown(result)
	if cfg.OutputFile == "" {
		fmt.Print(rendered)
		return
	}
	if err := os.WriteFile(cfg.OutputFile, []byte(rendered), 0o644); err != nil {
		clog.FatalContextf(ctx, "writing report: %v", err)
	}
	clog.InfoContextf(ctx, "Wrote report to %s", cfg.OutputFile)
}

func loadCriteria(path string) ([]agenttrace.Criterion, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file criteriaFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	if len(file.Criteria) == 0 {
		return nil, fmt.Errorf("no criteria defined in %q", path)
	}
	for i, c := range file.Criteria {
		if c.Title == "" || c.Assertion == "" {
			return nil, fmt.Errorf("criterion %d needs both a title and an assertion", i)
		}
	}
	return file.Criteria, nil
}

func serveMetrics(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	clog.InfoContextf(ctx, "Serving metrics on :%d", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		clog.ErrorContextf(ctx, "metrics server: %v", err)
	}
}
