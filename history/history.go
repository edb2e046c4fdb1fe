/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package history loads recorded browser-agent runs from disk and turns
// them into evaluatable conditions. A run file is the JSON payload the
// agent runner writes: metadata about the task and condition, a summary of
// the outcome, and the per-step model outputs.
package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"chainguard.dev/agentjudge/agenttrace"
)

// payload mirrors the recorded run JSON. Task and persona appear either as
// nested objects or as flat metadata fields depending on the writer's
// vintage, so both spellings are accepted.
type payload struct {
	Metadata struct {
		ID              string          `json:"id"`
		Task            json.RawMessage `json:"task"`
		TaskName        string          `json:"task_name"`
		TaskDescription string          `json:"task_description"`
		TaskURL         string          `json:"task_url"`
		Persona         json.RawMessage `json:"persona"`
		Model           string          `json:"model"`
		RunIndex        int             `json:"run_index"`
	} `json:"metadata"`
	Summary struct {
		IsSuccessful  bool   `json:"is_successful"`
		NumberOfSteps int    `json:"number_of_steps"`
		FinalResult   string `json:"final_result"`
	} `json:"summary"`
	Details struct {
		ModelOutputs []stepOutput `json:"model_outputs"`
	} `json:"details"`
}

type stepOutput struct {
	Thinking               string          `json:"thinking"`
	ThinkingProcess        string          `json:"thinking_process"`
	Memory                 string          `json:"memory"`
	EvaluationPreviousGoal string          `json:"evaluation_previous_goal"`
	NextGoal               string          `json:"next_goal"`
	Action                 json.RawMessage `json:"action"`
}

type taskObject struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// LoadRun reads one recorded run file and builds the condition it
// describes.
func LoadRun(path string) (*agenttrace.Condition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run file: %w", err)
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parsing run file %q: %w", filepath.Base(path), err)
	}

	steps := make([]agenttrace.Step, 0, len(p.Details.ModelOutputs))
	for i, out := range p.Details.ModelOutputs {
		thinking := out.Thinking
		if thinking == "" {
			thinking = out.ThinkingProcess
		}
		steps = append(steps, agenttrace.Step{
			Index:                  i,
			Thinking:               thinking,
			Memory:                 out.Memory,
			EvaluationPreviousGoal: out.EvaluationPreviousGoal,
			NextGoal:               out.NextGoal,
			Action:                 renderAction(out.Action),
		})
	}

	id := p.Metadata.ID
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &agenttrace.Condition{
		ID:       id,
		Persona:  renderPersona(p.Metadata.Persona),
		Model:    p.Metadata.Model,
		RunIndex: p.Metadata.RunIndex,
		Trace: &agenttrace.Trace{
			Task:        taskOf(&p),
			Steps:       steps,
			FinalResult: p.Summary.FinalResult,
			Success:     p.Summary.IsSuccessful,
		},
	}, nil
}

// LoadDir loads every .json run file in dir, sorted by filename. A missing
// directory yields an empty slice; an unreadable run file is an error.
func LoadDir(dir string) ([]*agenttrace.Condition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading run directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	conditions := make([]*agenttrace.Condition, 0, len(names))
	for _, name := range names {
		cond, err := LoadRun(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", name, err)
		}
		conditions = append(conditions, cond)
	}
	return conditions, nil
}

func taskOf(p *payload) agenttrace.BrowserTask {
	if len(p.Metadata.Task) > 0 {
		var obj taskObject
		if err := json.Unmarshal(p.Metadata.Task, &obj); err == nil && obj.Name != "" {
			return agenttrace.BrowserTask{Name: obj.Name, Description: obj.Description, URL: obj.URL}
		}
	}
	name := p.Metadata.TaskName
	if name == "" {
		name = "Unknown Task"
	}
	return agenttrace.BrowserTask{
		Name:        name,
		Description: p.Metadata.TaskDescription,
		URL:         p.Metadata.TaskURL,
	}
}

// renderPersona accepts either a plain string or the runner's persona
// object, preferring its human-readable fields.
func renderPersona(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Name        string `json:"name"`
		Content     string `json:"content"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, candidate := range []string{obj.Content, obj.Description, obj.Name} {
			if candidate != "" {
				return candidate
			}
		}
	}
	return compact(raw)
}

// renderAction turns the recorded action into a single line of text. The
// runner stores either a plain string or a structured action object.
func renderAction(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return compact(raw)
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
