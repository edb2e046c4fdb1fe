/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package aggregate builds the evaluation-ready context for a criterion at
// a chosen granularity: the prompt text plus the mapping that re-anchors
// evidence to original step indices.
//
// STEP_LEVEL is pure formatting with no reasoning-engine call. PHASE_LEVEL
// folds in phase summaries and the relevant step indices derived during
// decomposition, degrading to STEP_LEVEL when no decomposition exists.
// GLOBAL_SUMMARY asks the engine for a short narrative of the whole run and
// synthesizes a templated sentence when that fails. None of these
// operations returns an error.
package aggregate

import (
	"context"
	"fmt"
	"strings"

	"chainguard.dev/agentjudge/agenttrace"
	"chainguard.dev/agentjudge/decompose"
	"chainguard.dev/agentjudge/engine"
	"github.com/chainguard-dev/clog"
)

// Context is the aggregated evaluation context at one granularity.
type Context struct {
	Granularity agenttrace.Granularity
	// Content is the textual rendering used to build prompts.
	Content string
	// StepMapping maps logical unit keys to original step indices.
	StepMapping map[string][]int
	// Metadata carries descriptive counts alongside the content.
	Metadata map[string]any
}

// Aggregator builds evaluation contexts, consulting the reasoning engine
// only for global summaries.
type Aggregator struct {
	engine engine.Interface
}

// NewAggregator creates an aggregator.
func NewAggregator(eng engine.Interface) *Aggregator {
	return &Aggregator{engine: eng}
}

// Aggregate dispatches to the granularity-specific aggregation. The phase
// decomposition feeds PHASE_LEVEL; the general decomposition feeds
// GLOBAL_SUMMARY.
func (a *Aggregator) Aggregate(
	ctx context.Context,
	steps []agenttrace.Step,
	g agenttrace.Granularity,
	phases *decompose.PhaseDecomposition,
	decomposition *decompose.Decomposition,
	taskName, outcome string,
) *Context {
	switch g {
	case agenttrace.StepLevel:
		return AggregateStepLevel(steps)
	case agenttrace.PhaseLevel:
		return a.AggregatePhaseLevel(ctx, steps, phases)
	default:
		return a.AggregateGlobalSummary(ctx, steps, decomposition, taskName, outcome)
	}
}

// AggregateStepLevel encodes one compact line per step and a 1:1 mapping.
// Pure formatting, no engine call.
func AggregateStepLevel(steps []agenttrace.Step) *Context {
	encoded := make([]string, 0, len(steps))
	mapping := make(map[string][]int, len(steps))
	for i, step := range steps {
		encoded = append(encoded, fmt.Sprintf("Step %d: Thinking: %s... | Action: %s | Goal: %s...",
			i, truncate(step.Thinking, 50), truncate(step.Action, 100), truncate(step.NextGoal, 50)))
		mapping[fmt.Sprintf("%d", i)] = []int{i}
	}
	return &Context{
		Granularity: agenttrace.StepLevel,
		Content:     strings.Join(encoded, "\n"),
		StepMapping: mapping,
		Metadata: map[string]any{
			"total_steps":   len(steps),
			"encoding_type": "individual_step_encoding",
		},
	}
}

// AggregatePhaseLevel renders phase summaries plus the explicit relevant
// step indices. Without a decomposition it degrades to STEP_LEVEL rather
// than failing.
func (a *Aggregator) AggregatePhaseLevel(ctx context.Context, steps []agenttrace.Step, phases *decompose.PhaseDecomposition) *Context {
	if phases == nil {
		clog.FromContext(ctx).Warn("Phase aggregation requires a decomposition, degrading to step level")
		return AggregateStepLevel(steps)
	}

	lines := make([]string, 0, len(phases.Phases)+1)
	mapping := map[string][]int{
		"all_steps":      allIndices(len(steps)),
		"relevant_steps": phases.RelevantSteps,
	}
	for _, phase := range phases.Phases {
		lines = append(lines, fmt.Sprintf("[%s] %s", phase.ID, phase.Summary))
		mapping[phase.ID] = phase.StepIndices
	}
	lines = append(lines, fmt.Sprintf("\nRelevant steps for evaluation: %v", phases.RelevantSteps))

	return &Context{
		Granularity: agenttrace.PhaseLevel,
		Content:     strings.Join(lines, "\n"),
		StepMapping: mapping,
		Metadata: map[string]any{
			"total_steps":          len(steps),
			"relevant_steps_count": len(phases.RelevantSteps),
			"phase_count":          len(phases.Phases),
		},
	}
}

// AggregateGlobalSummary asks the engine for a 3-4 sentence narrative of
// the whole run. Engine failure synthesizes a templated sentence from the
// counts instead of propagating the error.
func (a *Aggregator) AggregateGlobalSummary(ctx context.Context, steps []agenttrace.Step, decomposition *decompose.Decomposition, taskName, outcome string) *Context {
	log := clog.FromContext(ctx).With("task", taskName)

	var clustersText string
	if decomposition != nil && len(decomposition.Clusters) > 0 {
		lines := make([]string, 0, len(decomposition.Clusters))
		for _, c := range decomposition.Clusters {
			lines = append(lines, fmt.Sprintf("- %s: %s", c.Label, c.Summary))
		}
		clustersText = strings.Join(lines, "\n")
	} else {
		// Synthetic three-way split when no decomposition exists.
		mid := len(steps) / 3
		clustersText = fmt.Sprintf(
			"- Initial Phase: Steps 0-%d\n- Middle Phase: Steps %d-%d\n- Final Phase: Steps %d-%d",
			mid, mid+1, 2*mid, 2*mid+1, len(steps)-1)
	}

	summary, err := a.summarize(ctx, taskName, clustersText, outcome)
	if err != nil {
		log.With("error", err).Warn("Global summary failed, synthesizing from counts")
		summary = fmt.Sprintf("Agent executed task '%s' with %d steps, resulting in: %s", taskName, len(steps), outcome)
	}

	return &Context{
		Granularity: agenttrace.GlobalSummary,
		Content:     "Overall Strategy and Execution:\n" + summary,
		StepMapping: map[string][]int{"all_steps": allIndices(len(steps))},
		Metadata: map[string]any{
			"total_steps":       len(steps),
			"summary_type":      "global_strategy",
			"execution_outcome": outcome,
		},
	}
}

func (a *Aggregator) summarize(ctx context.Context, taskName, clustersText, outcome string) (string, error) {
	p, err := globalSummaryPrompt.BindXML("task_name", xmlText{Content: taskName})
	if err != nil {
		return "", err
	}
	if p, err = p.BindXML("all_clusters", xmlText{Content: clustersText}); err != nil {
		return "", err
	}
	if p, err = p.BindXML("execution_outcome", xmlText{Content: outcome}); err != nil {
		return "", err
	}
	prompt, err := p.Build()
	if err != nil {
		return "", err
	}
	answer, err := a.engine.Ask(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
