/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package aggregate

import (
	"chainguard.dev/agentjudge/promptbuilder"
)

type xmlText struct {
	Content string `xml:",chardata"`
}

var globalSummaryPrompt = promptbuilder.MustNewPrompt(`Summarize the overall execution strategy of a browser agent completing a task.

Task: {{task_name}}

Execution phases:
{{all_clusters}}

Final outcome: {{execution_outcome}}

Write a concise 3-4 sentence narrative describing the agent's overall strategy, how the execution progressed across the phases, and whether the final outcome matched the task intent. Focus on the big picture rather than individual actions. Respond with the narrative text only.`)
