/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pipeline orchestrates judge evaluations across conditions and
// criteria: a flat fan-out over every (condition, criterion) pair, a
// second-pass overall assessment per condition, and an optional
// multi-condition comparison per criterion.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/agentjudge/agenttrace"
	"chainguard.dev/agentjudge/decompose"
	"chainguard.dev/agentjudge/engine"
	"chainguard.dev/agentjudge/judge"
	"chainguard.dev/agentjudge/rank"
	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("chainguard.dev/agentjudge/pipeline",
	oteltrace.WithInstrumentationVersion("1.0.0"))

// Report is the complete output of one batch evaluation.
type Report struct {
	Timestamp   time.Time                        `json:"timestamp"`
	Conditions  []agenttrace.ConditionResult     `json:"conditions"`
	Comparisons []agenttrace.CriterionComparison `json:"comparisons,omitempty"`
}

// Orchestrator fans evaluations out over conditions and criteria.
type Orchestrator struct {
	judge       *judge.Judge
	ranker      *rank.Ranker
	cache       *decompose.Cache
	compare     bool
	concurrency int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithoutComparisons disables the multi-condition ranking pass.
func WithoutComparisons() Option {
	return func(o *Orchestrator) error {
		o.compare = false
		return nil
	}
}

// WithConcurrency caps the number of in-flight criterion evaluations.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) error {
		if n < 1 {
			return fmt.Errorf("concurrency must be positive, got %d", n)
		}
		o.concurrency = n
		return nil
	}
}

// New creates an orchestrator sharing one decomposition cache across all
// evaluations of a batch.
func New(eng engine.Interface, opts ...Option) (*Orchestrator, error) {
	cache := decompose.NewCache()
	o := &Orchestrator{
		judge:       judge.New(eng, cache),
		ranker:      rank.New(eng),
		cache:       cache,
		compare:     true,
		concurrency: 8,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Evaluate judges every condition against every criterion. Engine and
// parsing failures surface as UNABLE_TO_EVALUATE results inside the
// report; the only errors returned are input validation failures.
func (o *Orchestrator) Evaluate(ctx context.Context, criteria []agenttrace.Criterion, conditions []*agenttrace.Condition) (*Report, error) {
	if len(criteria) == 0 {
		return nil, errors.New("no criteria to evaluate")
	}
	if len(conditions) == 0 {
		return nil, errors.New("no conditions to evaluate")
	}
	for _, cond := range conditions {
		if cond.Trace == nil {
			return nil, fmt.Errorf("condition %q has no trace", cond.ID)
		}
	}

	ctx, span := tracer.Start(ctx, "pipeline.Evaluate", oteltrace.WithAttributes(
		attribute.Int("criteria", len(criteria)),
		attribute.Int("conditions", len(conditions)),
	))
	defer span.End()

	log := clog.FromContext(ctx)
	log.Info("Starting batch evaluation",
		"criteria", len(criteria), "conditions", len(conditions))

	// Flat fan-out over every (condition, criterion) pair. Each worker
	// writes into its own matrix cell, so no locking is needed.
	results := make([][]agenttrace.EvaluationResult, len(conditions))
	for i := range results {
		results[i] = make([]agenttrace.EvaluationResult, len(criteria))
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(o.concurrency)
	for ci, cond := range conditions {
		for ki, criterion := range criteria {
			eg.Go(func() error {
				pairCtx, pairSpan := tracer.Start(egctx, "pipeline.EvaluatePair", oteltrace.WithAttributes(
					attribute.String("condition", cond.ID),
					attribute.String("criterion", criterion.Title),
				))
				defer pairSpan.End()

				res := o.judge.EvaluateCriterion(pairCtx, cond, criterion)
				results[ci][ki] = res

				evaluationCounter.WithLabelValues(string(res.Verdict), string(res.Granularity)).Inc()
				confidenceHistogram.Observe(res.Confidence)
				return nil
			})
		}
	}
	// Workers contain their own failures; Wait is a join barrier.
	_ = eg.Wait()

	report := &Report{
		Timestamp:  time.Now().UTC(),
		Conditions: make([]agenttrace.ConditionResult, 0, len(conditions)),
	}
	for ci, cond := range conditions {
		condResult := agenttrace.ConditionResult{
			ConditionID: cond.ID,
			Persona:     cond.Persona,
			Model:       cond.Model,
			RunIndex:    cond.RunIndex,
			Results:     results[ci],
		}
		overall := o.judge.OverallAssessment(ctx, cond, results[ci])
		condResult.Overall = &overall
		report.Conditions = append(report.Conditions, condResult)
	}

	if o.compare && len(conditions) >= 2 {
		for _, criterion := range criteria {
			if cmp := o.ranker.Compare(ctx, criterion, report.Conditions); cmp != nil {
				report.Comparisons = append(report.Comparisons, *cmp)
				comparisonCounter.Inc()
			}
		}
	}

	log.Info("Batch evaluation complete",
		"conditions", len(report.Conditions), "comparisons", len(report.Comparisons))
	return report, nil
}
