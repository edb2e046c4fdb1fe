/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package report renders a batch evaluation as a markdown document: one
// criteria table per condition, the per-condition overall assessment, and
// a ranking table per compared criterion.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"chainguard.dev/agentjudge/agenttrace"
	"chainguard.dev/agentjudge/pipeline"
)

// Markdown renders the full report.
func Markdown(r *pipeline.Report) string {
	var b strings.Builder
	b.WriteString("# Evaluation Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.Timestamp.Format("2006-01-02 15:04:05 UTC"))

	for i := range r.Conditions {
		b.WriteString(conditionSection(&r.Conditions[i]))
	}

	if len(r.Comparisons) > 0 {
		b.WriteString("## Condition Comparison\n\n")
		for i := range r.Comparisons {
			b.WriteString(comparisonSection(&r.Comparisons[i]))
		}
	}

	return b.String()
}

func conditionSection(cond *agenttrace.ConditionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Condition %s\n\n", cond.ConditionID)

	var meta []string
	if cond.Persona != "" {
		meta = append(meta, fmt.Sprintf("persona: %s", cond.Persona))
	}
	if cond.Model != "" {
		meta = append(meta, fmt.Sprintf("model: %s", cond.Model))
	}
	// Run index zero is a real run, so it always renders.
	meta = append(meta, fmt.Sprintf("run: %d", cond.RunIndex))
	fmt.Fprintf(&b, "%s\n\n", strings.Join(meta, " | "))

	var buf bytes.Buffer
	table := createStandardTable([]string{"Criterion", "Verdict", "Confidence", "Granularity", "Reasoning"}, &buf)
	for _, res := range cond.Results {
		_ = table.Append([]string{
			res.Criterion,
			string(res.Verdict),
			fmt.Sprintf("%.2f", res.Confidence),
			string(res.Granularity),
			truncate(res.Reasoning, 120),
		})
	}
	_ = table.Render()
	b.Write(buf.Bytes())
	b.WriteString("\n")

	if cond.Overall != nil {
		fmt.Fprintf(&b, "Overall: **%s** (confidence: %.2f)", cond.Overall.Verdict, cond.Overall.Confidence)
		if cond.Overall.Narrative != "" {
			fmt.Fprintf(&b, " - %s", cond.Overall.Narrative)
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func comparisonSection(cmp *agenttrace.CriterionComparison) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", cmp.Criterion)
	fmt.Fprintf(&b, "Best condition: **%s**\n\n", cmp.BestCondition)

	var buf bytes.Buffer
	table := createStandardTable([]string{"Rank", "Condition", "Verdict", "Confidence", "Summary"}, &buf)
	for _, item := range cmp.Ranking {
		_ = table.Append([]string{
			fmt.Sprintf("%d", item.Rank),
			item.ConditionID,
			string(item.Verdict),
			fmt.Sprintf("%.2f", item.Confidence),
			truncate(item.Summary, 120),
		})
	}
	_ = table.Render()
	b.Write(buf.Bytes())
	b.WriteString("\n")

	if cmp.Reasoning != "" {
		fmt.Fprintf(&b, "%s\n\n", cmp.Reasoning)
	}
	if cmp.ComparisonSummary != "" {
		fmt.Fprintf(&b, "`%s`\n\n", cmp.ComparisonSummary)
	}
	return b.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
