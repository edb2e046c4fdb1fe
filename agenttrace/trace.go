/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

// Step is one recorded step of an agent execution. Index is unique,
// zero-based, and matches execution order. The free-text fields come
// straight from the agent's model output for that step.
type Step struct {
	Index int `json:"index"`

	// EvaluationPreviousGoal is the agent's own assessment of how the
	// previous step's goal went.
	EvaluationPreviousGoal string `json:"evaluation_previous_goal,omitempty"`
	// Memory is the agent's running scratchpad at this step.
	Memory string `json:"memory,omitempty"`
	// Thinking is the agent's reasoning before acting.
	Thinking string `json:"thinking,omitempty"`
	// NextGoal is what the agent intends to accomplish next.
	NextGoal string `json:"next_goal,omitempty"`
	// Action is a textual rendering of the action the agent took.
	Action string `json:"action,omitempty"`
}

// BrowserTask identifies the task the agent was asked to perform.
type BrowserTask struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Trace is the full recorded execution of one task by one condition.
type Trace struct {
	Task  BrowserTask `json:"task"`
	Steps []Step      `json:"steps"`

	// FinalResult is the outcome string the agent reported at the end of
	// the run, and Success its own claim of completion.
	FinalResult string `json:"final_result,omitempty"`
	Success     bool   `json:"success,omitempty"`
}

// TotalSteps returns the number of recorded steps.
func (t *Trace) TotalSteps() int {
	return len(t.Steps)
}

// Criterion is a named check supplied by the caller. Assertion states how a
// judge should verify it.
type Criterion struct {
	Title       string `json:"title" yaml:"title"`
	Assertion   string `json:"assertion" yaml:"assertion"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Condition is one (persona, model, run) execution variant being compared.
type Condition struct {
	ID       string `json:"id"`
	Persona  string `json:"persona,omitempty"`
	Model    string `json:"model,omitempty"`
	RunIndex int    `json:"run_index,omitempty"`

	Trace *Trace `json:"trace"`
}
