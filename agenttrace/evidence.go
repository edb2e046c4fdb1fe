/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import "strings"

// SourceField names which Step field a piece of evidence was drawn from.
type SourceField string

const (
	FieldEvaluation SourceField = "Evaluation"
	FieldMemory     SourceField = "Memory"
	FieldThinking   SourceField = "Thinking Process"
	FieldNextGoal   SourceField = "Next Goal"
	FieldAction     SourceField = "Action"
)

// NormalizeSourceField maps the several spellings the reasoning engine uses
// for step fields onto the canonical enum. Canonical values map to
// themselves, so normalization is idempotent. Anything unrecognized maps to
// FieldEvaluation.
func NormalizeSourceField(s string) SourceField {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "evaluation":
		return FieldEvaluation
	case "memory":
		return FieldMemory
	case "thinking", "thinking process", "thinking_process":
		return FieldThinking
	case "next goal", "next_goal", "next_action":
		return FieldNextGoal
	case "action", "execution":
		return FieldAction
	default:
		return FieldEvaluation
	}
}

// EvidenceCitation anchors a judge's claim to an exact quote from one step.
type EvidenceCitation struct {
	StepIndex       int         `json:"step_index"`
	SourceField     SourceField `json:"source_field"`
	HighlightedText string      `json:"highlighted_text"`
	Reasoning       string      `json:"reasoning,omitempty"`

	// UnitVerdict carries the verdict of the scope unit the citation came
	// from, when evidence is folded up through a merge.
	UnitVerdict Verdict `json:"unit_verdict,omitempty"`
}
