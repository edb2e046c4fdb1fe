/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package agenttrace defines the canonical representation of a recorded
// browser-agent execution and the value types the evaluation pipeline
// produces from it.
//
// A Trace is an ordered sequence of Steps for one execution of one task by
// one (persona, model, run) combination. Traces and Criteria are read-only
// inputs: nothing in the pipeline mutates them after construction.
// EvaluationResult, ConditionResult, and the comparison types are the
// pipeline's outputs and are treated as immutable value data once assembled.
package agenttrace
