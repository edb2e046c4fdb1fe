/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package decompose

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"chainguard.dev/agentjudge/agenttrace"
	"chainguard.dev/agentjudge/engine"
	"chainguard.dev/agentjudge/result"
	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("chainguard.dev/agentjudge/decompose",
	oteltrace.WithInstrumentationVersion("1.0.0"))

// Decomposer partitions traces into semantic clusters using the reasoning
// engine, memoizing general decompositions in a caller-owned cache.
type Decomposer struct {
	engine engine.Interface
	cache  *Cache
}

// New creates a decomposer. The cache may be shared across decomposers; it
// must not be nil.
func New(eng engine.Interface, cache *Cache) *Decomposer {
	return &Decomposer{engine: eng, cache: cache}
}

// decompositionResponse is the JSON shape requested from the engine.
type decompositionResponse struct {
	Clusters []StepCluster `json:"clusters"`
}

// phaseResponse is the JSON shape requested for phase decomposition.
type phaseResponse struct {
	Phases           []Phase  `json:"phases"`
	RelevantPhaseIDs []string `json:"relevant_phase_ids"`
	EvaluationFocus  string   `json:"evaluation_focus"`
}

// Decompose partitions the trace into ordered, non-overlapping clusters.
// The optional criterion steers the clustering toward what that criterion
// needs. The returned decomposition is always a valid partition: any engine
// failure, parse failure, or partition violation degrades to a single
// cluster spanning the whole trace.
func (d *Decomposer) Decompose(ctx context.Context, trace *agenttrace.Trace, criterion *agenttrace.Criterion) *Decomposition {
	log := clog.FromContext(ctx).With("task", trace.Task.Name)

	key := CacheKey(trace.Task, criterion)
	if cached, ok := d.cache.Get(key); ok {
		log.Debug("Using cached decomposition")
		return cached
	}

	decomposition := d.decompose(ctx, trace, criterion)
	d.cache.Put(key, decomposition)
	return decomposition
}

func (d *Decomposer) decompose(ctx context.Context, trace *agenttrace.Trace, criterion *agenttrace.Criterion) *Decomposition {
	ctx, span := tracer.Start(ctx, "decompose.Decompose", oteltrace.WithAttributes(
		attribute.String("task", trace.Task.Name),
		attribute.Int("steps", trace.TotalSteps()),
	))
	defer span.End()

	log := clog.FromContext(ctx).With("task", trace.Task.Name)
	total := trace.TotalSteps()

	prompt, err := d.buildDecompositionPrompt(trace, criterion)
	if err != nil {
		log.With("error", err).Warn("Failed to build decomposition prompt, using single-cluster fallback")
		return fallbackDecomposition(trace.Task.Name, total)
	}

	answer, err := d.engine.Ask(ctx, prompt)
	if err != nil {
		log.With("error", err).Warn("Decomposition engine call failed, using single-cluster fallback")
		return fallbackDecomposition(trace.Task.Name, total)
	}

	parsed, err := result.Extract[decompositionResponse](answer)
	if err != nil {
		log.With("error", err).Warn("Failed to parse decomposition response, using single-cluster fallback")
		return fallbackDecomposition(trace.Task.Name, total)
	}

	clusters := sanitizeClusters(parsed.Clusters)
	if !isPartition(clusterIndexLists(clusters), total) {
		log.With("clusters", len(clusters)).Warn("Decomposition is not a full partition, using single-cluster fallback")
		return fallbackDecomposition(trace.Task.Name, total)
	}
	sortByFirstIndex(clusters)

	log.With("clusters", len(clusters)).Info("Task decomposition created")
	return &Decomposition{
		TaskName:   trace.Task.Name,
		Clusters:   clusters,
		TotalSteps: total,
	}
}

// DecomposeForCriterion partitions the trace into phases relative to one
// criterion and derives the relevant step indices as the union of relevant
// phases. Failures degrade to a single all-relevant phase; steps are never
// dropped.
func (d *Decomposer) DecomposeForCriterion(ctx context.Context, trace *agenttrace.Trace, criterion agenttrace.Criterion) *PhaseDecomposition {
	ctx, span := tracer.Start(ctx, "decompose.DecomposeForCriterion", oteltrace.WithAttributes(
		attribute.String("task", trace.Task.Name),
		attribute.String("criterion", criterion.Title),
	))
	defer span.End()

	log := clog.FromContext(ctx).
		With("task", trace.Task.Name).
		With("criterion", criterion.Title)
	total := trace.TotalSteps()

	prompt, err := d.buildPhasePrompt(trace, criterion)
	if err != nil {
		log.With("error", err).Warn("Failed to build phase decomposition prompt, using fallback")
		return fallbackPhaseDecomposition(total)
	}

	answer, err := d.engine.Ask(ctx, prompt)
	if err != nil {
		log.With("error", err).Warn("Phase decomposition engine call failed, using fallback")
		return fallbackPhaseDecomposition(total)
	}

	parsed, err := result.Extract[phaseResponse](answer)
	if err != nil {
		log.With("error", err).Warn("Failed to parse phase decomposition response, using fallback")
		return fallbackPhaseDecomposition(total)
	}

	phases := sanitizePhases(parsed.Phases)
	if !isPartition(phaseIndexLists(phases), total) {
		log.With("phases", len(phases)).Warn("Phase decomposition is not a full partition, using fallback")
		return fallbackPhaseDecomposition(total)
	}

	relevantIDs := make(map[string]bool, len(parsed.RelevantPhaseIDs))
	for _, id := range parsed.RelevantPhaseIDs {
		relevantIDs[id] = true
	}
	relevant := make(map[int]bool)
	for i := range phases {
		if relevantIDs[phases[i].ID] {
			phases[i].Relevant = true
		}
		if phases[i].Relevant {
			for _, idx := range phases[i].StepIndices {
				relevant[idx] = true
			}
		}
	}
	relevantSteps := make([]int, 0, len(relevant))
	for idx := range relevant {
		relevantSteps = append(relevantSteps, idx)
	}
	sort.Ints(relevantSteps)

	log.With("phases", len(phases)).
		With("relevant_steps", len(relevantSteps)).
		Info("Phase decomposition created")
	return &PhaseDecomposition{
		Phases:        phases,
		RelevantSteps: relevantSteps,
		TotalSteps:    total,
	}
}

func (d *Decomposer) buildDecompositionPrompt(trace *agenttrace.Trace, criterion *agenttrace.Criterion) (string, error) {
	p, err := bindText(decompositionPrompt, "task_name", trace.Task.Name)
	if err != nil {
		return "", err
	}
	if p, err = bindText(p, "task_url", trace.Task.URL); err != nil {
		return "", err
	}
	if criterion != nil {
		p, err = p.BindXML("criterion_context", criterionContext{
			Title:     criterion.Title,
			Desc:      criterion.Description,
			Assertion: criterion.Assertion,
		})
	} else {
		p, err = p.BindStringLiteral("criterion_context", "")
	}
	if err != nil {
		return "", err
	}
	if p, err = bindText(p, "steps", FormatSteps(trace.Steps)); err != nil {
		return "", err
	}
	return p.Build()
}

func (d *Decomposer) buildPhasePrompt(trace *agenttrace.Trace, criterion agenttrace.Criterion) (string, error) {
	p, err := bindText(phaseDecompositionPrompt, "task_name", trace.Task.Name)
	if err != nil {
		return "", err
	}
	if p, err = bindText(p, "task_url", trace.Task.URL); err != nil {
		return "", err
	}
	if p, err = p.BindXML("criterion", criterionDetail{
		Title:     criterion.Title,
		Assertion: criterion.Assertion,
	}); err != nil {
		return "", err
	}
	if p, err = bindText(p, "steps", FormatSteps(trace.Steps)); err != nil {
		return "", err
	}
	return p.Build()
}

// FormatSteps renders a compact one-line-per-step digest of the trace for
// analysis prompts, truncating each field.
func FormatSteps(steps []agenttrace.Step) string {
	lines := make([]string, 0, len(steps))
	for i, step := range steps {
		lines = append(lines, fmt.Sprintf("Step %d: thinking='%s' | goal='%s' | action='%s'",
			i, truncate(step.Thinking, 100), truncate(step.NextGoal, 100), truncate(step.Action, 100)))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// sanitizeClusters fills defaults for missing identity fields.
func sanitizeClusters(clusters []StepCluster) []StepCluster {
	out := make([]StepCluster, 0, len(clusters))
	for _, c := range clusters {
		if c.ID == "" {
			c.ID = fmt.Sprintf("cluster_%d", len(out))
		}
		if c.Label == "" {
			c.Label = "Unknown"
		}
		out = append(out, c)
	}
	return out
}

func sanitizePhases(phases []Phase) []Phase {
	out := make([]Phase, 0, len(phases))
	for _, p := range phases {
		if p.ID == "" {
			p.ID = fmt.Sprintf("phase_%d", len(out))
		}
		if p.Label == "" {
			p.Label = "Unknown Phase"
		}
		out = append(out, p)
	}
	return out
}

// fallbackDecomposition is the initial/terminal safety state: one cluster
// spanning the whole trace.
func fallbackDecomposition(taskName string, totalSteps int) *Decomposition {
	return &Decomposition{
		TaskName: taskName,
		Clusters: []StepCluster{{
			ID:          "cluster_0",
			Label:       "Task Execution",
			StepIndices: allIndices(totalSteps),
			Summary:     fmt.Sprintf("Complete task execution with %d steps", totalSteps),
		}},
		TotalSteps: totalSteps,
	}
}

// fallbackPhaseDecomposition covers all steps with one phase, all relevant.
func fallbackPhaseDecomposition(totalSteps int) *PhaseDecomposition {
	return &PhaseDecomposition{
		Phases: []Phase{{
			ID:          "phase_0",
			Label:       "Complete Task Execution",
			StepIndices: allIndices(totalSteps),
			Summary:     fmt.Sprintf("Complete execution with %d steps", totalSteps),
			Relevant:    true,
		}},
		RelevantSteps: allIndices(totalSteps),
		TotalSteps:    totalSteps,
	}
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
