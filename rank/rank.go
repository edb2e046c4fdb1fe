/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package rank compares two or more evaluated conditions against each
// criterion, producing an engine-assisted ranking with a deterministic
// verdict-then-confidence fallback.
package rank

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"chainguard.dev/agentjudge/agenttrace"
	"chainguard.dev/agentjudge/engine"
	"chainguard.dev/agentjudge/promptbuilder"
	"chainguard.dev/agentjudge/result"
	"chainguard.dev/agentjudge/schema"
	"github.com/chainguard-dev/clog"
)

// Ranker compares evaluated conditions per criterion.
type Ranker struct {
	engine engine.Interface
}

// New creates a ranker.
func New(eng engine.Interface) *Ranker {
	return &Ranker{engine: eng}
}

type xmlText struct {
	Content string `xml:",chardata"`
}

var rankingPrompt = promptbuilder.MustNewPrompt(`You are a professional evaluation expert. Please analyze and rank multiple conditions based on the following information.

Evaluation Criterion:
- Title: {{criterion_title}}
- Assertion: {{criterion_assertion}}
- Description: {{criterion_description}}

Condition Evaluation Details:
{{condition_details}}

Tasks:
1. Carefully analyze the performance of each condition
2. Rank conditions based on verdict (PASS > PARTIAL > FAIL) and confidence scores
3. Consider the details and reasoning of the evaluations
4. Generate ranking results and detailed justification
5. Do not include any condition_id in your reasoning; refer to persona/model/run_index instead for clarity.

Please return results in JSON format:
{
    "ranking": [
        {
            "rank": 1,
            "condition_id": "...",
            "summary": "Brief performance summary for this condition"
        }
    ],
    "reasoning": "Detailed explanation of the ranking order, including strengths and weaknesses of each condition"
}

Your response must validate against this JSON schema:
{{response_schema}}`)

// conditionDigest is the compact per-condition view handed to the engine.
type conditionDigest struct {
	ConditionID string  `json:"condition_id"`
	Persona     string  `json:"persona,omitempty"`
	Model       string  `json:"model,omitempty"`
	RunIndex    int     `json:"run_index"`
	Verdict     string  `json:"verdict"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning,omitempty"`
	StepCount   int     `json:"relevant_steps_count"`
}

type rankingResponse struct {
	Ranking []struct {
		Rank        int    `json:"rank"`
		ConditionID string `json:"condition_id"`
		Summary     string `json:"summary"`
	} `json:"ranking"`
	Reasoning string `json:"reasoning"`
}

// Compare ranks the given conditions against one criterion. It requires at
// least two condition results and returns nil otherwise. Engine failures
// degrade to the deterministic ranking, never an error.
func (r *Ranker) Compare(ctx context.Context, criterion agenttrace.Criterion, conditions []agenttrace.ConditionResult) *agenttrace.CriterionComparison {
	if len(conditions) < 2 {
		return nil
	}
	log := clog.FromContext(ctx).With("criterion", criterion.Title)

	// Only conditions carrying a result for this criterion participate.
	evals := make(map[string]*agenttrace.EvaluationResult, len(conditions))
	participants := make([]agenttrace.ConditionResult, 0, len(conditions))
	for _, cond := range conditions {
		if res := cond.ResultFor(criterion.Title); res != nil {
			evals[cond.ConditionID] = res
			participants = append(participants, cond)
		}
	}
	if len(participants) < 2 {
		log.Warn("Fewer than two conditions evaluated this criterion, skipping comparison")
		return nil
	}

	ranking, reasoning, err := r.rankWithEngine(ctx, criterion, participants, evals)
	if err != nil {
		log.With("error", err).Warn("Engine ranking failed, using deterministic ranking")
		ranking = fallbackRanking(participants, evals)
		reasoning = fmt.Sprintf("Default ranking (engine unavailable: %v)", err)
	}

	summaryParts := make([]string, 0, len(ranking))
	for _, item := range ranking {
		summaryParts = append(summaryParts, fmt.Sprintf("%s: %s (confidence: %.2f)",
			item.ConditionID, item.Verdict, item.Confidence))
	}

	return &agenttrace.CriterionComparison{
		Criterion:         criterion.Title,
		BestCondition:     ranking[0].ConditionID,
		Ranking:           ranking,
		Reasoning:         reasoning,
		ComparisonSummary: strings.Join(summaryParts, " > "),
	}
}

func (r *Ranker) rankWithEngine(ctx context.Context, criterion agenttrace.Criterion, conditions []agenttrace.ConditionResult, evals map[string]*agenttrace.EvaluationResult) ([]agenttrace.RankingItem, string, error) {
	digests := make([]conditionDigest, 0, len(conditions))
	for _, cond := range conditions {
		res := evals[cond.ConditionID]
		digests = append(digests, conditionDigest{
			ConditionID: cond.ConditionID,
			Persona:     cond.Persona,
			Model:       cond.Model,
			RunIndex:    cond.RunIndex,
			Verdict:     string(res.Verdict),
			Confidence:  res.Confidence,
			Reasoning:   res.Reasoning,
			StepCount:   len(res.RelevantSteps),
		})
	}
	p, err := rankingPrompt.BindXML("criterion_title", xmlText{Content: criterion.Title})
	if err == nil {
		p, err = p.BindXML("criterion_assertion", xmlText{Content: criterion.Assertion})
	}
	if err == nil {
		p, err = p.BindXML("criterion_description", xmlText{Content: criterion.Description})
	}
	if err == nil {
		p, err = p.BindJSON("condition_details", digests)
	}
	if err == nil {
		p, err = p.BindJSON("response_schema", schema.Reflect(&rankingResponse{}))
	}
	var prompt string
	if err == nil {
		prompt, err = p.Build()
	}
	var answer string
	if err == nil {
		answer, err = r.engine.Ask(ctx, prompt)
	}
	var resp rankingResponse
	if err == nil {
		resp, err = result.Extract[rankingResponse](answer)
	}
	if err != nil {
		return nil, "", err
	}

	items := make([]agenttrace.RankingItem, 0, len(resp.Ranking))
	for _, entry := range resp.Ranking {
		res, ok := evals[entry.ConditionID]
		if !ok {
			continue
		}
		items = append(items, agenttrace.RankingItem{
			ConditionID: entry.ConditionID,
			Rank:        entry.Rank,
			Verdict:     res.Verdict,
			Confidence:  res.Confidence,
			Summary:     entry.Summary,
		})
	}
	if len(items) != len(conditions) {
		return nil, "", fmt.Errorf("ranking covered %d of %d conditions", len(items), len(conditions))
	}
	sort.SliceStable(items, func(i, k int) bool { return items[i].Rank < items[k].Rank })
	return items, resp.Reasoning, nil
}

// fallbackRanking sorts by verdict priority then confidence descending.
// The sort is stable, so ties keep the caller's condition order.
func fallbackRanking(conditions []agenttrace.ConditionResult, evals map[string]*agenttrace.EvaluationResult) []agenttrace.RankingItem {
	ranked := make([]agenttrace.ConditionResult, len(conditions))
	copy(ranked, conditions)
	sort.SliceStable(ranked, func(i, k int) bool {
		a, b := evals[ranked[i].ConditionID], evals[ranked[k].ConditionID]
		if pa, pb := verdictPriority(a.Verdict), verdictPriority(b.Verdict); pa != pb {
			return pa < pb
		}
		return a.Confidence > b.Confidence
	})

	items := make([]agenttrace.RankingItem, 0, len(ranked))
	for i, cond := range ranked {
		res := evals[cond.ConditionID]
		items = append(items, agenttrace.RankingItem{
			ConditionID: cond.ConditionID,
			Rank:        i + 1,
			Verdict:     res.Verdict,
			Confidence:  res.Confidence,
			Summary:     fmt.Sprintf("%s (confidence: %.2f)", res.Verdict, res.Confidence),
		})
	}
	return items
}

func verdictPriority(v agenttrace.Verdict) int {
	switch v {
	case agenttrace.VerdictPass:
		return 0
	case agenttrace.VerdictPartial:
		return 1
	case agenttrace.VerdictFail:
		return 2
	default:
		return 3
	}
}
