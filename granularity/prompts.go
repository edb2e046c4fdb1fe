/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package granularity

import "chainguard.dev/agentjudge/promptbuilder"

// analysisPrompt asks the engine to pick exactly one granularity for a
// criterion and, for STEP_LEVEL only, the step indices in scope.
var analysisPrompt = promptbuilder.MustNewPrompt(`<task>
You are an expert in task analysis and evaluation methodology. Select the
appropriate evaluation granularity for a given criterion and explain why
that granularity is required.
</task>

Available granularity levels:
{{available_granularities}}

Granularity definitions (use these exact meanings when choosing):
- STEP_LEVEL: Evaluate specific steps individually. Use the provided trace summary to identify which steps are relevant to this criterion.
- PHASE_LEVEL: Evaluate a sequence or phase of steps where contextual relationships between steps matter.
- GLOBAL_SUMMARY: Evaluate the entire trajectory using full context.

Now analyze the following criterion:

Criterion Name: {{criterion_name}}
Task Name: {{task_name}}
Criterion Assertion: {{criterion_assertion}}

Trace Summary:
{{trace_summary}}

Decide:
1. Which ONE granularity is most appropriate.
2. Provide a rationale.
3. If STEP_LEVEL is selected, you MUST identify which specific steps (by index) need to be evaluated based on the Trace Summary. List them in 'target_step_indices'. If the criterion applies to the whole execution logic but still step-by-step, select the relevant steps.

Important: Output ONLY a single JSON object. Format exactly as:
{"required_granularity": "GRANULARITY_NAME", "rationale": "...", "target_step_indices": [0, 1, 5]}`)

// xmlText wraps a runtime string for injection-safe binding.
type xmlText struct {
	XMLName struct{} `xml:"content"`
	Content string   `xml:",chardata"`
}
