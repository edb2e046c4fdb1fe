/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

// EvaluationResult is one judged criterion: produced once per scope unit and
// again, merged, per criterion.
type EvaluationResult struct {
	Criterion     string             `json:"criterion"`
	Verdict       Verdict            `json:"verdict"`
	Reasoning     string             `json:"reasoning"`
	Confidence    float64            `json:"confidence"`
	RelevantSteps []int              `json:"relevant_steps,omitempty"`
	Evidence      []EvidenceCitation `json:"evidence,omitempty"`
	Granularity   Granularity        `json:"granularity"`

	// PassRate is the fraction of merged units that passed, when the
	// result came out of a merge.
	PassRate float64 `json:"pass_rate,omitempty"`
}

// OverallAssessment is the independent second-pass synthesis of a whole
// condition's run against its criteria.
type OverallAssessment struct {
	Verdict    Verdict `json:"verdict"`
	Narrative  string  `json:"narrative"`
	Confidence float64 `json:"confidence"`
}

// ConditionResult is one condition's full set of per-criterion results.
// Assembled by the orchestrator and never mutated afterwards.
type ConditionResult struct {
	ConditionID string             `json:"condition_id"`
	Persona     string             `json:"persona,omitempty"`
	Model       string             `json:"model,omitempty"`
	RunIndex    int                `json:"run_index,omitempty"`
	Results     []EvaluationResult `json:"results"`
	Overall     *OverallAssessment `json:"overall,omitempty"`
}

// ResultFor returns the evaluation result for the named criterion, or nil.
func (c *ConditionResult) ResultFor(criterion string) *EvaluationResult {
	for i := range c.Results {
		if c.Results[i].Criterion == criterion {
			return &c.Results[i]
		}
	}
	return nil
}

// RankingItem is one condition's place in a per-criterion ranking.
type RankingItem struct {
	ConditionID string  `json:"condition_id"`
	Rank        int     `json:"rank"`
	Verdict     Verdict `json:"verdict"`
	Confidence  float64 `json:"confidence"`
	Summary     string  `json:"summary,omitempty"`
}

// CriterionComparison ranks all conditions against one criterion,
// best first. Produced only when two or more conditions are compared.
type CriterionComparison struct {
	Criterion         string        `json:"criterion"`
	BestCondition     string        `json:"best_condition"`
	Ranking           []RankingItem `json:"ranking"`
	Reasoning         string        `json:"reasoning,omitempty"`
	ComparisonSummary string        `json:"comparison_summary,omitempty"`
}
