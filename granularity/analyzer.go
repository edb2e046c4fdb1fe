/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package granularity decides at which scope a criterion should be judged:
// individual steps, semantic phases, or the whole trace.
package granularity

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"chainguard.dev/agentjudge/agenttrace"
	"chainguard.dev/agentjudge/decompose"
	"chainguard.dev/agentjudge/engine"
	"chainguard.dev/agentjudge/result"
	"github.com/chainguard-dev/clog"
)

// Requirement is the chosen granularity for one criterion, plus the units
// in scope. An empty target list means "all".
type Requirement struct {
	Criterion   string
	Granularity agenttrace.Granularity
	Rationale   string

	// TargetStepIndices applies at STEP_LEVEL.
	TargetStepIndices []int
	// TargetClusterIndices applies at PHASE_LEVEL.
	TargetClusterIndices []int
}

// Analyzer selects evaluation granularity using the reasoning engine.
type Analyzer struct {
	engine engine.Interface
}

// NewAnalyzer creates a granularity analyzer.
func NewAnalyzer(eng engine.Interface) *Analyzer {
	return &Analyzer{engine: eng}
}

// granularityResponse is the JSON shape requested from the engine.
type granularityResponse struct {
	RequiredGranularity string `json:"required_granularity"`
	Rationale           string `json:"rationale"`
	TargetStepIndices   []int  `json:"target_step_indices"`
}

// Analyze chooses exactly one granularity for the criterion, restricted to
// the allowed subset when one is supplied (nil or empty means all three).
// Any failure yields the safe PHASE_LEVEL default, never an error.
func (a *Analyzer) Analyze(ctx context.Context, criterion agenttrace.Criterion, taskName string, decomposition *decompose.Decomposition, allowed []agenttrace.Granularity) Requirement {
	log := clog.FromContext(ctx).With("criterion", criterion.Title)

	if len(allowed) == 0 {
		allowed = agenttrace.AllGranularities()
	}

	prompt, err := buildAnalysisPrompt(criterion, taskName, decomposition, allowed)
	if err != nil {
		log.With("error", err).Warn("Failed to build granularity prompt, using default")
		return defaultRequirement(criterion.Title, allowed)
	}

	answer, err := a.engine.Ask(ctx, prompt)
	if err != nil {
		log.With("error", err).Warn("Granularity engine call failed, using default")
		return defaultRequirement(criterion.Title, allowed)
	}

	parsed, err := result.Extract[granularityResponse](answer)
	if err != nil {
		log.With("error", err).Warn("Failed to parse granularity response, using default")
		return defaultRequirement(criterion.Title, allowed)
	}

	chosen := agenttrace.ParseGranularity(parsed.RequiredGranularity)
	if !slices.Contains(allowed, chosen) {
		log.With("chosen", chosen).Warn("Engine chose a disallowed granularity, using default")
		return defaultRequirement(criterion.Title, allowed)
	}

	req := Requirement{
		Criterion:   criterion.Title,
		Granularity: chosen,
		Rationale:   parsed.Rationale,
	}
	if chosen == agenttrace.StepLevel {
		req.TargetStepIndices = parsed.TargetStepIndices
	}
	log.With("granularity", chosen).
		With("target_steps", len(req.TargetStepIndices)).
		Info("Granularity requirement determined")
	return req
}

// defaultRequirement is the safe terminal fallback: PHASE_LEVEL when
// allowed, otherwise the first allowed granularity.
func defaultRequirement(criterion string, allowed []agenttrace.Granularity) Requirement {
	g := agenttrace.PhaseLevel
	if !slices.Contains(allowed, g) {
		g = allowed[0]
	}
	return Requirement{
		Criterion:   criterion,
		Granularity: g,
		Rationale:   "Default granularity chosen. Use PHASE_LEVEL for balanced evaluation.",
	}
}

func buildAnalysisPrompt(criterion agenttrace.Criterion, taskName string, decomposition *decompose.Decomposition, allowed []agenttrace.Granularity) (string, error) {
	p, err := analysisPrompt.BindXML("available_granularities", xmlText{Content: describeGranularities(allowed)})
	if err != nil {
		return "", err
	}
	if p, err = p.BindXML("criterion_name", xmlText{Content: criterion.Title}); err != nil {
		return "", err
	}
	if p, err = p.BindXML("criterion_assertion", xmlText{Content: criterion.Assertion}); err != nil {
		return "", err
	}
	if p, err = p.BindXML("task_name", xmlText{Content: taskName}); err != nil {
		return "", err
	}
	if p, err = p.BindXML("trace_summary", xmlText{Content: summarizeTrace(decomposition)}); err != nil {
		return "", err
	}
	return p.Build()
}

// describeGranularities renders the allowed granularities as a numbered
// list with their definitions.
func describeGranularities(allowed []agenttrace.Granularity) string {
	var b strings.Builder
	for i, g := range allowed {
		var desc string
		switch g {
		case agenttrace.StepLevel:
			desc = "Evaluate individual agent steps (finest granularity, detailed)"
		case agenttrace.PhaseLevel:
			desc = "Evaluate semantically grouped clusters of steps (medium granularity, balanced)"
		case agenttrace.GlobalSummary:
			desc = "Evaluate overall task execution strategy and outcomes (coarsest granularity, high-level)"
		}
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, g, desc)
	}
	return b.String()
}

// summarizeTrace renders one line per known cluster for the prompt.
func summarizeTrace(decomposition *decompose.Decomposition) string {
	if decomposition == nil || len(decomposition.Clusters) == 0 {
		return "No trace info available."
	}
	lines := make([]string, 0, len(decomposition.Clusters))
	for _, cluster := range decomposition.Clusters {
		indices := slices.Clone(cluster.StepIndices)
		if len(indices) == 0 {
			continue
		}
		sort.Ints(indices)
		lines = append(lines, fmt.Sprintf("- Steps %d-%d [%s]: %s",
			indices[0], indices[len(indices)-1], cluster.Label, cluster.Summary))
	}
	return strings.Join(lines, "\n")
}
