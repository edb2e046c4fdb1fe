/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"chainguard.dev/agentjudge/agenttrace"
	"chainguard.dev/agentjudge/result"
	"github.com/chainguard-dev/clog"
)

// mergeResponse is the JSON shape the merge prompt asks for.
type mergeResponse struct {
	Verdict            string   `json:"verdict"`
	Reasoning          string   `json:"reasoning"`
	ConfidenceScore    *float64 `json:"confidence_score"`
	AggregationSummary string   `json:"aggregation_summary"`
	PassRate           *float64 `json:"pass_rate"`
}

// merge folds unit results into a single result for the criterion. One
// unit passes through untouched; two or more go through an engine-assisted
// merge with a deterministic fallback.
func (j *Judge) merge(ctx context.Context, criterion agenttrace.Criterion, g agenttrace.Granularity, units []agenttrace.EvaluationResult) agenttrace.EvaluationResult {
	log := clog.FromContext(ctx)

	switch len(units) {
	case 0:
		log.Warn("No units evaluated, nothing to merge")
		return agenttrace.EvaluationResult{
			Criterion:   criterion.Title,
			Verdict:     agenttrace.VerdictUnableToEvaluate,
			Reasoning:   "No units were evaluated",
			Confidence:  0,
			Granularity: g,
		}
	case 1:
		return units[0]
	}

	var verdicts strings.Builder
	for i, u := range units {
		fmt.Fprintf(&verdicts, "\nEvaluation %d:\n  Verdict: %s\n  Confidence: %g\n  Reasoning: %s\n",
			i+1, u.Verdict, u.Confidence, u.Reasoning)
	}

	p, err := bindAll(mergePrompt, map[string]string{
		"criterion_name":      criterion.Title,
		"criterion_assertion": criterion.Assertion,
		"granularity_type":    string(g),
		"individual_verdicts": verdicts.String(),
	})
	var prompt string
	if err == nil {
		prompt, err = p.Build()
	}
	var answer string
	if err == nil {
		answer, err = j.engine.Ask(ctx, prompt)
	}
	var resp mergeResponse
	if err == nil {
		resp, err = result.Extract[mergeResponse](answer)
	}
	if err != nil {
		log.With("error", err).Warn("Engine merge failed, using deterministic merge")
		return simpleMerge(criterion.Title, g, units)
	}

	merged := agenttrace.EvaluationResult{
		Criterion:     criterion.Title,
		Verdict:       agenttrace.ParseVerdict(resp.Verdict),
		Reasoning:     resp.Reasoning,
		Confidence:    confidenceOrDefault(resp.ConfidenceScore),
		RelevantSteps: unionRelevantSteps(units),
		Evidence:      collectEvidence(units),
		Granularity:   g,
	}
	if resp.PassRate != nil {
		merged.PassRate = *resp.PassRate
	} else {
		merged.PassRate = passRate(units)
	}
	if resp.AggregationSummary != "" {
		merged.Reasoning = strings.TrimSpace(merged.Reasoning + "\n" + resp.AggregationSummary)
	}
	return merged
}

// simpleMerge is the deterministic fallback: any FAIL fails the criterion,
// otherwise any PARTIAL makes it partial, otherwise all PASS passes it.
// Confidence is the mean of the unit confidences.
func simpleMerge(criterion string, g agenttrace.Granularity, units []agenttrace.EvaluationResult) agenttrace.EvaluationResult {
	var passed, failed, partial int
	var confidence float64
	for _, u := range units {
		switch u.Verdict {
		case agenttrace.VerdictPass:
			passed++
		case agenttrace.VerdictFail:
			failed++
		case agenttrace.VerdictPartial:
			partial++
		}
		confidence += u.Confidence
	}
	confidence /= float64(len(units))

	verdict := agenttrace.VerdictUnableToEvaluate
	switch {
	case failed > 0:
		verdict = agenttrace.VerdictFail
	case partial > 0:
		verdict = agenttrace.VerdictPartial
	case passed == len(units):
		verdict = agenttrace.VerdictPass
	}

	return agenttrace.EvaluationResult{
		Criterion: criterion,
		Verdict:   verdict,
		Reasoning: fmt.Sprintf(
			"Deterministic fallback merge of %d evaluations: %d passed, %d failed, %d partial.",
			len(units), passed, failed, partial),
		Confidence:    confidence,
		RelevantSteps: unionRelevantSteps(units),
		Evidence:      collectEvidence(units),
		Granularity:   g,
		PassRate:      passRate(units),
	}
}

type overallResponse struct {
	OverallAssessment string   `json:"overall_assessment"`
	OverallReasoning  string   `json:"overall_reasoning"`
	ConfidenceScore   *float64 `json:"confidence_score"`
}

// OverallAssessment runs the independent second pass over a condition's
// per-criterion results. Any failure yields VerdictUnknown with zero
// confidence rather than an error.
func (j *Judge) OverallAssessment(ctx context.Context, cond *agenttrace.Condition, results []agenttrace.EvaluationResult) agenttrace.OverallAssessment {
	log := clog.FromContext(ctx).With("condition", cond.ID)

	var details, summary strings.Builder
	for i, r := range results {
		fmt.Fprintf(&details, "\nEvaluation %d:\n  Criterion: %s\n  Verdict: %s\n  Confidence: %g\n  Reasoning: %s\n",
			i+1, r.Criterion, r.Verdict, r.Confidence, r.Reasoning)
		fmt.Fprintf(&summary, "- %s: %s (confidence: %.2f)\n", r.Criterion, r.Verdict, r.Confidence)
	}

	p, err := bindAll(overallAssessmentPrompt, map[string]string{
		"task_name":          cond.Trace.Task.Name,
		"personas":           orNone(cond.Persona),
		"models":             orNone(cond.Model),
		"evaluation_details": details.String(),
		"criteria_summary":   summary.String(),
	})
	var prompt string
	if err == nil {
		prompt, err = p.Build()
	}
	var answer string
	if err == nil {
		answer, err = j.engine.Ask(ctx, prompt)
	}
	var resp overallResponse
	if err == nil {
		resp, err = result.Extract[overallResponse](answer)
	}
	if err != nil {
		log.With("error", err).Warn("Overall assessment failed")
		return agenttrace.OverallAssessment{
			Verdict:    agenttrace.VerdictUnknown,
			Narrative:  fmt.Sprintf("Overall assessment failed: %v", err),
			Confidence: 0,
		}
	}

	verdict := agenttrace.VerdictUnknown
	switch strings.ToLower(strings.TrimSpace(resp.OverallAssessment)) {
	case "pass":
		verdict = agenttrace.VerdictPass
	case "fail":
		verdict = agenttrace.VerdictFail
	case "partial":
		verdict = agenttrace.VerdictPartial
	}

	confidence := 0.0
	if verdict != agenttrace.VerdictUnknown {
		confidence = confidenceOrDefault(resp.ConfidenceScore)
	}
	return agenttrace.OverallAssessment{
		Verdict:    verdict,
		Narrative:  resp.OverallReasoning,
		Confidence: confidence,
	}
}

func collectEvidence(units []agenttrace.EvaluationResult) []agenttrace.EvidenceCitation {
	var evidence []agenttrace.EvidenceCitation
	for _, u := range units {
		for _, cite := range u.Evidence {
			if cite.UnitVerdict == "" {
				cite.UnitVerdict = u.Verdict
			}
			evidence = append(evidence, cite)
		}
	}
	return evidence
}

func unionRelevantSteps(units []agenttrace.EvaluationResult) []int {
	seen := map[int]bool{}
	var out []int
	for _, u := range units {
		for _, idx := range u.RelevantSteps {
			if !seen[idx] {
				seen[idx] = true
				out = append(out, idx)
			}
		}
	}
	sort.Ints(out)
	return out
}

func passRate(units []agenttrace.EvaluationResult) float64 {
	if len(units) == 0 {
		return 0
	}
	passed := 0
	for _, u := range units {
		if u.Verdict == agenttrace.VerdictPass {
			passed++
		}
	}
	return float64(passed) / float64(len(units))
}
