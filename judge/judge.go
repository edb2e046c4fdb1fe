/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package judge evaluates one condition's execution trace against
// criteria using a reasoning engine, fanning out over scope units and
// merging the unit verdicts into a single result per criterion.
//
// Every public entry point is containment-first: engine failures, parse
// failures, and empty inputs degrade to UNABLE_TO_EVALUATE results rather
// than errors, so a single bad judging call can never sink a batch.
package judge

import (
	"context"
	"fmt"
	"strings"

	"chainguard.dev/agentjudge/agenttrace"
	"chainguard.dev/agentjudge/aggregate"
	"chainguard.dev/agentjudge/decompose"
	"chainguard.dev/agentjudge/engine"
	"chainguard.dev/agentjudge/granularity"
	"chainguard.dev/agentjudge/promptbuilder"
	"chainguard.dev/agentjudge/result"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// Judge evaluates criteria against a single condition's trace.
type Judge struct {
	engine     engine.Interface
	decomposer *decompose.Decomposer
	analyzer   *granularity.Analyzer
	aggregator *aggregate.Aggregator
}

// New creates a judge sharing the given decomposition cache. The cache may
// be shared across judges evaluating different criteria of the same trace.
func New(eng engine.Interface, cache *decompose.Cache) *Judge {
	return &Judge{
		engine:     eng,
		decomposer: decompose.New(eng, cache),
		analyzer:   granularity.NewAnalyzer(eng),
		aggregator: aggregate.NewAggregator(eng),
	}
}

// evalResponse is the JSON shape the evaluation prompts ask for.
type evalResponse struct {
	Verdict             string         `json:"verdict"`
	Reasoning           string         `json:"reasoning"`
	ConfidenceScore     *float64       `json:"confidence_score"`
	SupportingEvidence  string         `json:"supporting_evidence"`
	HighlightedEvidence []evidenceItem `json:"highlighted_evidence"`
	RelevantSteps       []int          `json:"relevant_steps"`
}

type evidenceItem struct {
	StepIndex       int    `json:"step_index"`
	SourceField     string `json:"source_field"`
	HighlightedText string `json:"highlighted_text"`
	Reasoning       string `json:"reasoning"`
	Verdict         string `json:"verdict"`
}

// EvaluateCriterion runs the full evaluation pipeline for one criterion
// against one condition: granularity selection, decomposition when needed,
// per-unit evaluation, and the final merge. It never returns an error.
func (j *Judge) EvaluateCriterion(ctx context.Context, cond *agenttrace.Condition, criterion agenttrace.Criterion) agenttrace.EvaluationResult {
	ctx = clog.WithLogger(ctx, clog.FromContext(ctx).With(
		"criterion", criterion.Title,
		"condition", cond.ID,
	))
	log := clog.FromContext(ctx)
	trace := cond.Trace

	decomposition := j.decomposer.Decompose(ctx, trace, &criterion)
	req := j.analyzer.Analyze(ctx, criterion, trace.Task.Name, decomposition, agenttrace.AllGranularities())
	log.Info("Selected evaluation granularity",
		"granularity", req.Granularity, "rationale", req.Rationale)

	switch req.Granularity {
	case agenttrace.StepLevel:
		return j.evaluateStepLevel(ctx, cond, criterion, req.TargetStepIndices)
	case agenttrace.PhaseLevel:
		phases := j.decomposer.DecomposeForCriterion(ctx, trace, criterion)
		return j.evaluatePhaseLevel(ctx, cond, criterion, phases, req.TargetClusterIndices)
	default:
		return j.evaluateGlobal(ctx, cond, criterion, decomposition)
	}
}

// evaluateStepLevel judges each target step in isolation, concurrently,
// then merges the unit verdicts. Target indices outside the trace are
// dropped; an empty target set means every step.
func (j *Judge) evaluateStepLevel(ctx context.Context, cond *agenttrace.Condition, criterion agenttrace.Criterion, targets []int) agenttrace.EvaluationResult {
	log := clog.FromContext(ctx)
	steps := cond.Trace.Steps

	indices := make([]int, 0, len(targets))
	for _, idx := range targets {
		if idx >= 0 && idx < len(steps) {
			indices = append(indices, idx)
		}
	}
	if len(indices) < len(targets) {
		log.Warn("Dropped out-of-range target step indices",
			"requested", len(targets), "valid", len(indices))
	}
	if len(indices) == 0 {
		indices = allIndices(len(steps))
	}

	units := make([]agenttrace.EvaluationResult, len(indices))
	eg, egctx := errgroup.WithContext(ctx)
	for i, idx := range indices {
		eg.Go(func() error {
			units[i] = j.evaluateStep(egctx, cond, criterion, idx)
			return nil
		})
	}
	// Unit evaluations contain their own failures, so Wait is a pure
	// join barrier here.
	_ = eg.Wait()

	return j.merge(ctx, criterion, agenttrace.StepLevel, units)
}

// evaluateStep judges a single step. The prompt carries only this step's
// fields; no other step data leaks into the context.
func (j *Judge) evaluateStep(ctx context.Context, cond *agenttrace.Condition, criterion agenttrace.Criterion, idx int) agenttrace.EvaluationResult {
	step := cond.Trace.Steps[idx]

	p, err := bindCommon(stepEvalPrompt, criterion, cond)
	if err == nil {
		p, err = bindAll(p, map[string]string{
			"step_index":               fmt.Sprintf("%d", idx),
			"thinking":                 orNA(step.Thinking),
			"memory":                   orNA(step.Memory),
			"evaluation_previous_goal": orNA(step.EvaluationPreviousGoal),
			"action":                   orNA(step.Action),
			"next_goal":                orNA(step.NextGoal),
		})
	}
	var prompt string
	if err == nil {
		prompt, err = p.Build()
	}
	var answer string
	if err == nil {
		answer, err = j.engine.Ask(ctx, prompt)
	}
	if err != nil {
		clog.FromContext(ctx).With("step", idx, "error", err).Warn("Step evaluation failed")
		return agenttrace.EvaluationResult{
			Criterion:   criterion.Title,
			Verdict:     agenttrace.VerdictUnableToEvaluate,
			Reasoning:   fmt.Sprintf("Step evaluation failed: %v", err),
			Confidence:  0,
			Granularity: agenttrace.StepLevel,
		}
	}

	res := parseEvaluation(ctx, answer, criterion.Title, agenttrace.StepLevel)
	if len(res.RelevantSteps) == 0 {
		res.RelevantSteps = []int{idx}
	}
	return res
}

// evaluatePhaseLevel judges each target phase concurrently. Each unit's
// context is limited to that one phase: its summary and its steps. No
// other phase's material enters the unit prompt.
func (j *Judge) evaluatePhaseLevel(ctx context.Context, cond *agenttrace.Condition, criterion agenttrace.Criterion, phases *decompose.PhaseDecomposition, targetClusters []int) agenttrace.EvaluationResult {
	log := clog.FromContext(ctx)

	targets := make([]int, 0, len(targetClusters))
	for _, idx := range targetClusters {
		if idx >= 0 && idx < len(phases.Phases) {
			targets = append(targets, idx)
		}
	}
	if len(targets) == 0 {
		targets = allIndices(len(phases.Phases))
	}
	log.Info("Evaluating phases", "phases", len(targets), "total_phases", len(phases.Phases))

	units := make([]agenttrace.EvaluationResult, len(targets))
	eg, egctx := errgroup.WithContext(ctx)
	for i, phaseIdx := range targets {
		eg.Go(func() error {
			units[i] = j.evaluatePhase(egctx, cond, criterion, phases.Phases[phaseIdx])
			return nil
		})
	}
	_ = eg.Wait()

	return j.merge(ctx, criterion, agenttrace.PhaseLevel, units)
}

func (j *Judge) evaluatePhase(ctx context.Context, cond *agenttrace.Condition, criterion agenttrace.Criterion, phase decompose.Phase) agenttrace.EvaluationResult {
	rawContext := stepDetails(cond.Trace.Steps, phase.StepIndices)

	p, err := bindCommon(phaseEvalPrompt, criterion, cond)
	if err == nil {
		p, err = bindAll(p, map[string]string{
			"aggregated_steps": fmt.Sprintf("[%s] %s", phase.ID, phase.Summary),
			"raw_context":      rawContext,
		})
	}
	var prompt string
	if err == nil {
		prompt, err = p.Build()
	}
	var answer string
	if err == nil {
		answer, err = j.engine.Ask(ctx, prompt)
	}
	if err != nil {
		clog.FromContext(ctx).With("phase", phase.ID, "error", err).Warn("Phase evaluation failed")
		return agenttrace.EvaluationResult{
			Criterion:   criterion.Title,
			Verdict:     agenttrace.VerdictUnableToEvaluate,
			Reasoning:   fmt.Sprintf("Phase evaluation failed: %v", err),
			Confidence:  0,
			Granularity: agenttrace.PhaseLevel,
		}
	}

	res := parseEvaluation(ctx, answer, criterion.Title, agenttrace.PhaseLevel)
	if len(res.RelevantSteps) == 0 {
		res.RelevantSteps = phase.StepIndices
	}
	return res
}

// evaluateGlobal judges the complete execution as a single unit, pairing
// the aggregator's narrative summary with the full raw trace.
func (j *Judge) evaluateGlobal(ctx context.Context, cond *agenttrace.Condition, criterion agenttrace.Criterion, decomposition *decompose.Decomposition) agenttrace.EvaluationResult {
	trace := cond.Trace
	agg := j.aggregator.AggregateGlobalSummary(ctx, trace.Steps, decomposition, trace.Task.Name, trace.FinalResult)

	var rawContext strings.Builder
	rawContext.WriteString("=== COMPLETE EXECUTION TRACE ===\n")
	rawContext.WriteString(stepDetails(trace.Steps, allIndices(len(trace.Steps))))

	p, err := bindCommon(globalEvalPrompt, criterion, cond)
	if err == nil {
		p, err = bindAll(p, map[string]string{
			"aggregated_steps": agg.Content,
			"raw_context":      rawContext.String(),
		})
	}
	var prompt string
	if err == nil {
		prompt, err = p.Build()
	}
	var answer string
	if err == nil {
		answer, err = j.engine.Ask(ctx, prompt)
	}
	if err != nil {
		clog.FromContext(ctx).With("error", err).Warn("Global evaluation failed")
		return agenttrace.EvaluationResult{
			Criterion:   criterion.Title,
			Verdict:     agenttrace.VerdictUnableToEvaluate,
			Reasoning:   fmt.Sprintf("Global evaluation failed: %v", err),
			Confidence:  0,
			Granularity: agenttrace.GlobalSummary,
		}
	}

	return parseEvaluation(ctx, answer, criterion.Title, agenttrace.GlobalSummary)
}

// parseEvaluation turns a raw engine answer into an EvaluationResult,
// normalizing evidence fields. Parse failure degrades to
// UNABLE_TO_EVALUATE with zero confidence.
func parseEvaluation(ctx context.Context, answer, criterion string, g agenttrace.Granularity) agenttrace.EvaluationResult {
	resp, err := result.Extract[evalResponse](answer)
	if err != nil {
		clog.FromContext(ctx).With("error", err).Warn("Failed to parse evaluation response")
		return agenttrace.EvaluationResult{
			Criterion:   criterion,
			Verdict:     agenttrace.VerdictUnableToEvaluate,
			Reasoning:   "Evaluation parsing failed",
			Confidence:  0,
			Granularity: g,
		}
	}

	evidence := make([]agenttrace.EvidenceCitation, 0, len(resp.HighlightedEvidence))
	for _, item := range resp.HighlightedEvidence {
		cite := agenttrace.EvidenceCitation{
			StepIndex:       item.StepIndex,
			SourceField:     agenttrace.NormalizeSourceField(item.SourceField),
			HighlightedText: item.HighlightedText,
			Reasoning:       item.Reasoning,
		}
		if item.Verdict != "" {
			cite.UnitVerdict = agenttrace.ParseVerdict(item.Verdict)
		}
		evidence = append(evidence, cite)
	}

	reasoning := resp.Reasoning
	if resp.SupportingEvidence != "" {
		reasoning = strings.TrimSpace(reasoning + "\nSupporting evidence: " + resp.SupportingEvidence)
	}

	return agenttrace.EvaluationResult{
		Criterion:     criterion,
		Verdict:       agenttrace.ParseVerdict(resp.Verdict),
		Reasoning:     reasoning,
		Confidence:    confidenceOrDefault(resp.ConfidenceScore),
		RelevantSteps: resp.RelevantSteps,
		Evidence:      evidence,
		Granularity:   g,
	}
}

// bindCommon binds the fields every evaluation prompt shares.
func bindCommon(p *promptbuilder.Prompt, criterion agenttrace.Criterion, cond *agenttrace.Condition) (*promptbuilder.Prompt, error) {
	return bindAll(p, map[string]string{
		"criterion_name":      criterion.Title,
		"criterion_assertion": criterion.Assertion,
		"task_name":           cond.Trace.Task.Name,
		"personas":            orNone(cond.Persona),
		"models":              orNone(cond.Model),
	})
}

func bindAll(p *promptbuilder.Prompt, values map[string]string) (*promptbuilder.Prompt, error) {
	var err error
	for name, value := range values {
		if p, err = p.BindXML(name, xmlText{Content: value}); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// stepDetails renders the full field set of the given steps, one block per
// step, in index order.
func stepDetails(steps []agenttrace.Step, indices []int) string {
	var b strings.Builder
	for _, idx := range indices {
		if idx < 0 || idx >= len(steps) {
			continue
		}
		step := steps[idx]
		fmt.Fprintf(&b, "STEP DATA:\nStep Index: %d\nThinking Process: %s\nMemory: %s\nEvaluation of Previous Goal: %s\nAction: %s\nNext Goal: %s\n\n",
			idx, orNA(step.Thinking), orNA(step.Memory), orNA(step.EvaluationPreviousGoal), orNA(step.Action), orNA(step.NextGoal))
	}
	return b.String()
}

func confidenceOrDefault(c *float64) float64 {
	if c == nil {
		return 0.5
	}
	return *c
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
