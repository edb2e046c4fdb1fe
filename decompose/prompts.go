/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package decompose

import (
	"chainguard.dev/agentjudge/promptbuilder"
)

// decompositionPrompt asks for a general partition of the execution into
// semantic clusters, with few-shot examples of the expected shape.
var decompositionPrompt = promptbuilder.MustNewPrompt(`<task>
You are an expert task analyst. Decompose agent execution steps into
semantic clusters: groups of related steps that accomplish a specific
sub-goal.
</task>

<examples>
Example 1: E-commerce shopping task
Task: Buy milk from supermarket
Steps summary:
- Step 0: User thinks about the task, visits supermarket website
- Step 1: User searches for milk products
- Step 2: User filters by price and reviews milk options
- Step 3: User selects a milk product and reads description
- Step 4: User adds milk to cart
- Step 5: User proceeds to checkout
- Step 6: User enters payment details
- Step 7: User confirms order

Clusters:
1. cluster_0 (Initial Exploration): Steps [0] - "Initial page exploration and search preparation"
2. cluster_1 (Product Discovery): Steps [1-3] - "Searching and evaluating milk options"
3. cluster_2 (Purchase Execution): Steps [4-7] - "Adding to cart, checkout, and payment"

Example 2: Information research task
Task: Compare smartphone prices
Steps summary:
- Step 0: User visits first phone comparison site
- Step 1: User searches for iPhone 15
- Step 2: User notes the price and specs
- Step 3: User navigates to Amazon
- Step 4: User searches for iPhone 15 on Amazon
- Step 5: User notes the price
- Step 6: User decides based on price difference
- Step 7: User makes purchase decision

Clusters:
1. cluster_0 (Information Gathering): Steps [0-2] - "Gathering information from first source"
2. cluster_1 (Comparison): Steps [3-5] - "Comparing prices across multiple sources"
3. cluster_2 (Decision Making): Steps [6-7] - "Making final purchase decision"
</examples>

Now analyze the following task:

Task Name: {{task_name}}
Task URL: {{task_url}}

{{criterion_context}}

Agent execution steps:
{{steps}}

For each cluster:
1. Assign a cluster_id (e.g., cluster_0, cluster_1)
2. Provide a semantic_label (e.g., "Information Search", "Decision Making")
3. List the step indices included (e.g., [0, 1, 2])
4. Write a concise 1-2 sentence cluster_summary
5. Identify any key_decisions in this cluster
6. Identify dependencies on earlier clusters (as a list of cluster_ids)

<output_format>
Return a JSON object with this structure:
{"clusters": [{"cluster_id": "...", "semantic_label": "...", "step_indices": [...], "cluster_summary": "...", "key_decisions": [...], "dependencies": [...]}]}
</output_format>

Ensure:
- Clusters are logically ordered and non-overlapping
- Each step is assigned to exactly one cluster
- Dependencies reflect the actual causal flow
- Summaries are concise and descriptive

Respond with only the JSON object, no additional text.`)

// phaseDecompositionPrompt asks which phases of the execution matter to one
// specific criterion. All steps must still be assigned; relevance is a flag,
// not a filter.
var phaseDecompositionPrompt = promptbuilder.MustNewPrompt(`<task>
You are an expert task analyst. Identify which steps in an agent's execution
are most relevant to evaluating a specific criterion.

For the given criterion:
1. Identify semantic phases in the agent's execution
2. For each phase, determine if it is RELEVANT to the criterion (relates to the assertion being tested)
3. Output the indices of steps that belong to relevant phases
4. Provide a summary for each phase

IMPORTANT: Return ALL steps in your response, but identify which ones are
relevant. The evaluator will then examine the relevant steps in detail.
</task>

Task Name: {{task_name}}
Task URL: {{task_url}}

Criterion to Evaluate:
{{criterion}}

Agent execution steps:
{{steps}}

For each phase you identify:
1. Assign a phase_id (e.g., phase_0, phase_1)
2. Provide a semantic_label (e.g., "Information Search", "Decision Making")
3. List ALL step indices in this phase (e.g., [0, 1, 2])
4. Write a concise 1-2 sentence phase_summary
5. Mark as relevant_to_criterion: true/false

<output_format>
Return a JSON object with this structure:
{
  "phases": [
    {"phase_id": "phase_0", "semantic_label": "...", "step_indices": [...], "phase_summary": "...", "relevant_to_criterion": true}
  ],
  "relevant_phase_ids": ["phase_0", "phase_2"],
  "evaluation_focus": "Brief explanation of which phases matter most for this criterion"
}
</output_format>

Ensure:
- All steps are assigned to exactly one phase
- Phases are ordered logically
- Relevant phases are identified based on the criterion assertion
- Summaries are concise

Respond with only the JSON object, no additional text.`)

// xmlText wraps a runtime string for injection-safe binding.
type xmlText struct {
	XMLName struct{} `xml:"content"`
	Content string   `xml:",chardata"`
}

func bindText(p *promptbuilder.Prompt, name, value string) (*promptbuilder.Prompt, error) {
	return p.BindXML(name, xmlText{Content: value})
}

// criterionContext is the optional criterion focus for the general
// decomposition prompt.
type criterionContext struct {
	XMLName   struct{} `xml:"criterion_focus"`
	Title     string   `xml:"title"`
	Desc      string   `xml:"description,omitempty"`
	Assertion string   `xml:"assertion,omitempty"`
}

// criterionDetail identifies the criterion under evaluation in the phase
// decomposition prompt.
type criterionDetail struct {
	XMLName   struct{} `xml:"criterion"`
	Title     string   `xml:"title"`
	Assertion string   `xml:"assertion"`
}
