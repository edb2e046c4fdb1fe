/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"chainguard.dev/agentjudge/agenttrace"
	"chainguard.dev/agentjudge/decompose"
	"chainguard.dev/agentjudge/engine"
	"chainguard.dev/agentjudge/judge"
)

func condition(n int) *agenttrace.Condition {
	steps := make([]agenttrace.Step, n)
	for i := range steps {
		steps[i] = agenttrace.Step{
			Index:    i,
			Thinking: fmt.Sprintf("sentinel-thinking-%d", i),
			Memory:   fmt.Sprintf("sentinel-memory-%d", i),
			NextGoal: fmt.Sprintf("sentinel-goal-%d", i),
			Action:   fmt.Sprintf("sentinel-action-%d", i),
		}
	}
	return &agenttrace.Condition{
		ID:      "cond-a",
		Persona: "budget shopper",
		Model:   "gpt-4o",
		Trace: &agenttrace.Trace{
			Task:        agenttrace.BrowserTask{Name: "Buy milk", URL: "https://example.com"},
			Steps:       steps,
			FinalResult: "milk in cart",
			Success:     true,
		},
	}
}

var criterion = agenttrace.Criterion{
	Title:     "No unnecessary navigation",
	Assertion: "The agent never visits pages unrelated to the task.",
}

// router dispatches fake engine answers by prompt markers.
type router struct {
	t           *testing.T
	granularity string
	phaseDecomp string
	onStepEval  func(prompt string) (string, error)
	onMerge     func(prompt string) (string, error)
	onGlobal    func(prompt string) (string, error)
	onPhase     func(prompt string) (string, error)
}

func (r *router) Ask(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "required_granularity"):
		return r.granularity, nil
	case strings.Contains(prompt, "relevant_phase_ids"):
		if r.phaseDecomp == "" {
			return "", errors.New("no phase decomposition")
		}
		return r.phaseDecomp, nil
	case strings.Contains(prompt, "expert task analyst"):
		return "", errors.New("no decomposition")
	case strings.Contains(prompt, "EVALUATION GRANULARITY: STEP_LEVEL"):
		if r.onStepEval == nil {
			r.t.Error("unexpected step evaluation call")
			return "", errors.New("unexpected")
		}
		return r.onStepEval(prompt)
	case strings.Contains(prompt, "EVALUATION GRANULARITY: PHASE_LEVEL"):
		if r.onPhase == nil {
			r.t.Error("unexpected phase evaluation call")
			return "", errors.New("unexpected")
		}
		return r.onPhase(prompt)
	case strings.Contains(prompt, "EVALUATION GRANULARITY: GLOBAL_SUMMARY"):
		if r.onGlobal == nil {
			r.t.Error("unexpected global evaluation call")
			return "", errors.New("unexpected")
		}
		return r.onGlobal(prompt)
	case strings.Contains(prompt, "expert aggregator"):
		if r.onMerge == nil {
			r.t.Error("unexpected merge call")
			return "", errors.New("unexpected")
		}
		return r.onMerge(prompt)
	case strings.Contains(prompt, "overall execution strategy"):
		return "A short narrative.", nil
	default:
		r.t.Errorf("unrecognized prompt: %.120s", prompt)
		return "", errors.New("unrecognized prompt")
	}
}

func TestStepLevelIsolation(t *testing.T) {
	r := &router{
		t:           t,
		granularity: `{"required_granularity": "STEP_LEVEL", "rationale": "per-step check", "target_step_indices": [5]}`,
		onStepEval: func(prompt string) (string, error) {
			if !strings.Contains(prompt, "sentinel-thinking-5") {
				t.Errorf("prompt missing target step data: %q", prompt)
			}
			for i := range 5 {
				if strings.Contains(prompt, fmt.Sprintf("sentinel-thinking-%d", i)) {
					t.Errorf("prompt leaked step %d data", i)
				}
			}
			return `{"verdict": "PASS", "reasoning": "clean step", "confidence_score": 0.9,
				"highlighted_evidence": [{"step_index": 5, "source_field": "thinking_process",
				"highlighted_text": "sentinel-thinking-5", "reasoning": "on task", "verdict": "pass"}]}`, nil
		},
	}

	j := judge.New(r, decompose.NewCache())
	got := j.EvaluateCriterion(context.Background(), condition(6), criterion)

	if got.Verdict != agenttrace.VerdictPass {
		t.Errorf("Verdict: got = %v, wanted = %v", got.Verdict, agenttrace.VerdictPass)
	}
	if got.Confidence != 0.9 {
		t.Errorf("Confidence: got = %v, wanted = %v", got.Confidence, 0.9)
	}
	if got.Granularity != agenttrace.StepLevel {
		t.Errorf("Granularity: got = %v, wanted = %v", got.Granularity, agenttrace.StepLevel)
	}
	if len(got.Evidence) != 1 {
		t.Fatalf("Evidence: got = %d items, wanted = %d", len(got.Evidence), 1)
	}
	if got.Evidence[0].SourceField != agenttrace.FieldThinking {
		t.Errorf("SourceField: got = %v, wanted = %v", got.Evidence[0].SourceField, agenttrace.FieldThinking)
	}
}

func TestStepLevelOutOfRangeTargetsEvaluateAllSteps(t *testing.T) {
	var evaluated atomic.Int32
	r := &router{
		t:           t,
		granularity: `{"required_granularity": "STEP_LEVEL", "rationale": "per-step check", "target_step_indices": [100]}`,
		onStepEval: func(string) (string, error) {
			evaluated.Add(1)
			return `{"verdict": "PASS", "reasoning": "ok", "confidence_score": 0.8}`, nil
		},
		onMerge: func(string) (string, error) {
			return `{"verdict": "PASS", "reasoning": "all steps passed", "confidence_score": 0.8, "pass_rate": 1.0}`, nil
		},
	}

	j := judge.New(r, decompose.NewCache())
	got := j.EvaluateCriterion(context.Background(), condition(3), criterion)

	if got := evaluated.Load(); got != 3 {
		t.Errorf("evaluated steps: got = %d, wanted = %d", got, 3)
	}
	if got.Verdict != agenttrace.VerdictPass {
		t.Errorf("Verdict: got = %v, wanted = %v", got.Verdict, agenttrace.VerdictPass)
	}
	if got.PassRate != 1.0 {
		t.Errorf("PassRate: got = %v, wanted = %v", got.PassRate, 1.0)
	}
}

func TestStepLevelDeterministicMergeFallback(t *testing.T) {
	r := &router{
		t:           t,
		granularity: `{"required_granularity": "STEP_LEVEL", "rationale": "per-step check"}`,
		onStepEval: func(prompt string) (string, error) {
			if strings.Contains(prompt, "Step Index: <xmlText>0</xmlText>") {
				return `{"verdict": "FAIL", "reasoning": "bad", "confidence_score": 0.6}`, nil
			}
			return `{"verdict": "PASS", "reasoning": "ok", "confidence_score": 1.0}`, nil
		},
		onMerge: func(string) (string, error) {
			return "this is not json at all", nil
		},
	}

	j := judge.New(r, decompose.NewCache())
	got := j.EvaluateCriterion(context.Background(), condition(2), criterion)

	if got.Verdict != agenttrace.VerdictFail {
		t.Errorf("Verdict: got = %v, wanted = %v", got.Verdict, agenttrace.VerdictFail)
	}
	if got.Confidence != 0.8 {
		t.Errorf("Confidence: got = %v, wanted = %v", got.Confidence, 0.8)
	}
	if got.PassRate != 0.5 {
		t.Errorf("PassRate: got = %v, wanted = %v", got.PassRate, 0.5)
	}
	if !strings.Contains(got.Reasoning, "fallback") {
		t.Errorf("Reasoning: got = %q, wanted mention of fallback", got.Reasoning)
	}
}

func TestStepLevelEmptyTraceMergesToUnable(t *testing.T) {
	// Zero steps means zero units, which must merge to
	// UNABLE_TO_EVALUATE with confidence 0 without any engine calls
	// beyond decomposition and granularity.
	r := &router{
		t:           t,
		granularity: `{"required_granularity": "STEP_LEVEL", "rationale": "per-step check"}`,
	}

	j := judge.New(r, decompose.NewCache())
	got := j.EvaluateCriterion(context.Background(), condition(0), criterion)

	if got.Verdict != agenttrace.VerdictUnableToEvaluate {
		t.Errorf("Verdict: got = %v, wanted = %v", got.Verdict, agenttrace.VerdictUnableToEvaluate)
	}
	if got.Confidence != 0 {
		t.Errorf("Confidence: got = %v, wanted = %v", got.Confidence, 0.0)
	}
	if got.Reasoning != "No units were evaluated" {
		t.Errorf("Reasoning: got = %q, wanted = %q", got.Reasoning, "No units were evaluated")
	}
}

func TestDeterministicMergeFailDominanceAnyOrder(t *testing.T) {
	// A FAIL among the units must dominate the fallback merge no matter
	// where it lands in the evaluation order.
	orderings := [][]string{
		{"FAIL", "PASS", "PARTIAL"},
		{"PARTIAL", "FAIL", "PASS"},
		{"PASS", "PARTIAL", "FAIL"},
	}
	for _, verdicts := range orderings {
		t.Run(strings.Join(verdicts, "_"), func(t *testing.T) {
			r := &router{
				t:           t,
				granularity: `{"required_granularity": "STEP_LEVEL", "rationale": "per-step check"}`,
				onStepEval: func(prompt string) (string, error) {
					for i, v := range verdicts {
						if strings.Contains(prompt, fmt.Sprintf("Step Index: <xmlText>%d</xmlText>\n", i)) {
							return fmt.Sprintf(`{"verdict": %q, "reasoning": "unit", "confidence_score": 0.5}`, v), nil
						}
					}
					t.Errorf("prompt matched no step index: %q", prompt)
					return "", errors.New("unknown step")
				},
				onMerge: func(string) (string, error) {
					return "this is not json at all", nil
				},
			}

			j := judge.New(r, decompose.NewCache())
			got := j.EvaluateCriterion(context.Background(), condition(3), criterion)

			if got.Verdict != agenttrace.VerdictFail {
				t.Errorf("Verdict: got = %v, wanted = %v", got.Verdict, agenttrace.VerdictFail)
			}
			if !strings.Contains(got.Reasoning, "1 passed, 1 failed, 1 partial") {
				t.Errorf("Reasoning: got = %q, wanted the unit tally", got.Reasoning)
			}
		})
	}
}

func TestPhaseLevelFallbackDecomposition(t *testing.T) {
	// Both decomposition calls fail, so the phase path runs against the
	// single fallback phase and the merge is skipped.
	r := &router{
		t:           t,
		granularity: `{"required_granularity": "PHASE_LEVEL", "rationale": "phase check"}`,
		onPhase: func(prompt string) (string, error) {
			if !strings.Contains(prompt, "sentinel-thinking-0") || !strings.Contains(prompt, "sentinel-thinking-2") {
				t.Errorf("fallback phase should include all steps, prompt: %q", prompt)
			}
			return `{"verdict": "PARTIAL", "reasoning": "mixed", "confidence_score": 0.7, "relevant_steps": [0, 2]}`, nil
		},
	}

	j := judge.New(r, decompose.NewCache())
	got := j.EvaluateCriterion(context.Background(), condition(3), criterion)

	if got.Verdict != agenttrace.VerdictPartial {
		t.Errorf("Verdict: got = %v, wanted = %v", got.Verdict, agenttrace.VerdictPartial)
	}
	if got.Granularity != agenttrace.PhaseLevel {
		t.Errorf("Granularity: got = %v, wanted = %v", got.Granularity, agenttrace.PhaseLevel)
	}
}

func TestPhaseLevelIsolation(t *testing.T) {
	// Two phases with sentinel summaries. Each unit prompt must carry only
	// its own phase's summary and steps.
	r := &router{
		t:           t,
		granularity: `{"required_granularity": "PHASE_LEVEL", "rationale": "phase check"}`,
		phaseDecomp: `{
			"phases": [
				{"phase_id": "phase_0", "semantic_label": "Search", "step_indices": [0, 1], "phase_summary": "sentinel-summary-0", "relevant_to_criterion": true},
				{"phase_id": "phase_1", "semantic_label": "Checkout", "step_indices": [2, 3], "phase_summary": "sentinel-summary-1", "relevant_to_criterion": true}
			],
			"relevant_phase_ids": ["phase_0", "phase_1"]
		}`,
		onPhase: func(prompt string) (string, error) {
			switch {
			case strings.Contains(prompt, "sentinel-summary-1"):
				if strings.Contains(prompt, "sentinel-summary-0") {
					t.Errorf("phase_1 unit prompt leaked phase_0 summary")
				}
				for i := range 2 {
					if strings.Contains(prompt, fmt.Sprintf("sentinel-thinking-%d", i)) {
						t.Errorf("phase_1 unit prompt leaked step %d data", i)
					}
				}
				if !strings.Contains(prompt, "sentinel-thinking-2") || !strings.Contains(prompt, "sentinel-thinking-3") {
					t.Errorf("phase_1 unit prompt missing its own steps: %q", prompt)
				}
			case strings.Contains(prompt, "sentinel-summary-0"):
				if strings.Contains(prompt, "sentinel-thinking-2") || strings.Contains(prompt, "sentinel-thinking-3") {
					t.Errorf("phase_0 unit prompt leaked phase_1 step data")
				}
			default:
				t.Errorf("phase prompt carries no phase summary: %q", prompt)
			}
			return `{"verdict": "PASS", "reasoning": "clean phase", "confidence_score": 0.9}`, nil
		},
		onMerge: func(string) (string, error) {
			return `{"verdict": "PASS", "reasoning": "both phases passed", "confidence_score": 0.9, "pass_rate": 1.0}`, nil
		},
	}

	j := judge.New(r, decompose.NewCache())
	got := j.EvaluateCriterion(context.Background(), condition(4), criterion)

	if got.Verdict != agenttrace.VerdictPass {
		t.Errorf("Verdict: got = %v, wanted = %v", got.Verdict, agenttrace.VerdictPass)
	}
	if got.Granularity != agenttrace.PhaseLevel {
		t.Errorf("Granularity: got = %v, wanted = %v", got.Granularity, agenttrace.PhaseLevel)
	}
}

func TestGlobalSummaryEvaluation(t *testing.T) {
	r := &router{
		t:           t,
		granularity: `{"required_granularity": "GLOBAL_SUMMARY", "rationale": "whole-run check"}`,
		onGlobal: func(prompt string) (string, error) {
			if !strings.Contains(prompt, "COMPLETE EXECUTION TRACE") {
				t.Errorf("prompt missing full trace marker: %q", prompt)
			}
			return `{"verdict": "PASS", "reasoning": "completed the task", "confidence_score": 0.95, "relevant_steps": [0, 1]}`, nil
		},
	}

	j := judge.New(r, decompose.NewCache())
	got := j.EvaluateCriterion(context.Background(), condition(2), criterion)

	if got.Verdict != agenttrace.VerdictPass {
		t.Errorf("Verdict: got = %v, wanted = %v", got.Verdict, agenttrace.VerdictPass)
	}
	if got.Granularity != agenttrace.GlobalSummary {
		t.Errorf("Granularity: got = %v, wanted = %v", got.Granularity, agenttrace.GlobalSummary)
	}
}

func TestEvaluateCriterionNeverErrorsOnEngineFailure(t *testing.T) {
	j := judge.New(engine.Func(func(context.Context, string) (string, error) {
		return "", errors.New("engine down")
	}), decompose.NewCache())

	got := j.EvaluateCriterion(context.Background(), condition(2), criterion)

	if got.Verdict != agenttrace.VerdictUnableToEvaluate {
		t.Errorf("Verdict: got = %v, wanted = %v", got.Verdict, agenttrace.VerdictUnableToEvaluate)
	}
	if got.Confidence != 0 {
		t.Errorf("Confidence: got = %v, wanted = %v", got.Confidence, 0.0)
	}
}

func TestOverallAssessment(t *testing.T) {
	j := judge.New(engine.Func(func(_ context.Context, prompt string) (string, error) {
		if !strings.Contains(prompt, "No unnecessary navigation") {
			t.Errorf("prompt missing criterion results: %q", prompt)
		}
		return `{"overall_assessment": "pass", "overall_reasoning": "solid run", "confidence_score": 0.85}`, nil
	}), decompose.NewCache())

	got := j.OverallAssessment(context.Background(), condition(2), []agenttrace.EvaluationResult{
		{Criterion: "No unnecessary navigation", Verdict: agenttrace.VerdictPass, Confidence: 0.9},
	})

	if got.Verdict != agenttrace.VerdictPass {
		t.Errorf("Verdict: got = %v, wanted = %v", got.Verdict, agenttrace.VerdictPass)
	}
	if got.Confidence != 0.85 {
		t.Errorf("Confidence: got = %v, wanted = %v", got.Confidence, 0.85)
	}
}

func TestOverallAssessmentUnparseable(t *testing.T) {
	j := judge.New(engine.Func(func(context.Context, string) (string, error) {
		return "no json here", nil
	}), decompose.NewCache())

	got := j.OverallAssessment(context.Background(), condition(1), nil)

	if got.Verdict != agenttrace.VerdictUnknown {
		t.Errorf("Verdict: got = %v, wanted = %v", got.Verdict, agenttrace.VerdictUnknown)
	}
	if got.Confidence != 0 {
		t.Errorf("Confidence: got = %v, wanted = %v", got.Confidence, 0.0)
	}
}
