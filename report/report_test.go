/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report_test

import (
	"strings"
	"testing"
	"time"

	"chainguard.dev/agentjudge/agenttrace"
	"chainguard.dev/agentjudge/pipeline"
	"chainguard.dev/agentjudge/report"
)

func TestMarkdown(t *testing.T) {
	r := &pipeline.Report{
		Timestamp: time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC),
		Conditions: []agenttrace.ConditionResult{
			{
				ConditionID: "cond-a",
				Persona:     "careful shopper",
				Model:       "gpt-4o",
				RunIndex:    1,
				Results: []agenttrace.EvaluationResult{
					{
						Criterion:   "Task completed",
						Verdict:     agenttrace.VerdictPass,
						Confidence:  0.9,
						Granularity: agenttrace.GlobalSummary,
						Reasoning:   "The cart contained milk at the end.",
					},
				},
				Overall: &agenttrace.OverallAssessment{
					Verdict:    agenttrace.VerdictPass,
					Narrative:  "Solid run overall.",
					Confidence: 0.85,
				},
			},
		},
		Comparisons: []agenttrace.CriterionComparison{
			{
				Criterion:     "Task completed",
				BestCondition: "cond-a",
				Ranking: []agenttrace.RankingItem{
					{ConditionID: "cond-a", Rank: 1, Verdict: agenttrace.VerdictPass, Confidence: 0.9, Summary: "clean pass"},
					{ConditionID: "cond-b", Rank: 2, Verdict: agenttrace.VerdictPartial, Confidence: 0.6, Summary: "partial"},
				},
				Reasoning:         "The first run completed checkout.",
				ComparisonSummary: "cond-a: PASS (confidence: 0.90) > cond-b: PARTIAL (confidence: 0.60)",
			},
		},
	}

	got := report.Markdown(r)

	for _, want := range []string{
		"# Evaluation Report",
		"## Condition cond-a",
		"persona: careful shopper | model: gpt-4o | run: 1",
		"| Task completed ",
		"| PASS ",
		"| 0.90 ",
		"Overall: **PASS** (confidence: 0.85) - Solid run overall.",
		"## Condition Comparison",
		"### Task completed",
		"Best condition: **cond-a**",
		"| cond-b ",
		"`cond-a: PASS (confidence: 0.90) > cond-b: PARTIAL (confidence: 0.60)`",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Markdown: wanted to contain %q, got:\n%s", want, got)
		}
	}
}

func TestMarkdownRendersRunZero(t *testing.T) {
	r := &pipeline.Report{
		Timestamp: time.Now().UTC(),
		Conditions: []agenttrace.ConditionResult{
			{ConditionID: "first", RunIndex: 0, Results: []agenttrace.EvaluationResult{
				{Criterion: "c", Verdict: agenttrace.VerdictPass, Granularity: agenttrace.StepLevel},
			}},
		},
	}

	got := report.Markdown(r)
	if !strings.Contains(got, "run: 0") {
		t.Errorf("Markdown: wanted run index 0 rendered, got:\n%s", got)
	}
}

func TestMarkdownNoComparisons(t *testing.T) {
	r := &pipeline.Report{
		Timestamp: time.Now().UTC(),
		Conditions: []agenttrace.ConditionResult{
			{ConditionID: "only", Results: []agenttrace.EvaluationResult{
				{Criterion: "c", Verdict: agenttrace.VerdictFail, Granularity: agenttrace.StepLevel},
			}},
		},
	}

	got := report.Markdown(r)
	if strings.Contains(got, "Condition Comparison") {
		t.Errorf("Markdown: comparison section rendered with no comparisons:\n%s", got)
	}
}
