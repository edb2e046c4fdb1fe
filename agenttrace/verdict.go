/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import "strings"

// Verdict is the outcome of judging one criterion against one scope unit or
// one merged evaluation.
type Verdict string

const (
	VerdictPass             Verdict = "PASS"
	VerdictFail             Verdict = "FAIL"
	VerdictPartial          Verdict = "PARTIAL"
	VerdictUnableToEvaluate Verdict = "UNABLE_TO_EVALUATE"

	// VerdictUnknown is used only by the overall-assessment pass when the
	// judge's answer cannot be parsed.
	VerdictUnknown Verdict = "UNKNOWN"
)

// ParseVerdict maps a free-text verdict from the reasoning engine onto the
// enum. Unrecognized values become VerdictUnableToEvaluate rather than an
// error; a judging response must never crash an evaluation.
func ParseVerdict(s string) Verdict {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PASS", "PASSED":
		return VerdictPass
	case "FAIL", "FAILED":
		return VerdictFail
	case "PARTIAL":
		return VerdictPartial
	case "UNKNOWN":
		return VerdictUnknown
	default:
		return VerdictUnableToEvaluate
	}
}

// Granularity is the scope at which a criterion is evaluated, ordered from
// finest to coarsest.
type Granularity string

const (
	StepLevel     Granularity = "STEP_LEVEL"
	PhaseLevel    Granularity = "PHASE_LEVEL"
	GlobalSummary Granularity = "GLOBAL_SUMMARY"
)

// AllGranularities lists the granularities from finest to coarsest.
func AllGranularities() []Granularity {
	return []Granularity{StepLevel, PhaseLevel, GlobalSummary}
}

// ParseGranularity maps a free-text granularity choice onto the enum.
// Only exact (case-insensitive) STEP_LEVEL and GLOBAL_SUMMARY are honored;
// everything else defaults to PhaseLevel as the balanced middle ground.
func ParseGranularity(s string) Granularity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(StepLevel):
		return StepLevel
	case string(GlobalSummary):
		return GlobalSummary
	default:
		return PhaseLevel
	}
}
