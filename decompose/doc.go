/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package decompose partitions a recorded agent execution into ordered
// semantic clusters of steps.
//
// Two modes are provided. Decompose produces a general-purpose partition of
// the trace, cached per (task, criterion) for the life of the process.
// DecomposeForCriterion asks which phases matter to one specific criterion
// and derives the union of their step indices. Both modes fall back to a
// single cluster spanning the whole trace when the reasoning engine fails
// or returns something that is not an exact partition; no step is ever
// dropped and no error escapes to the caller.
package decompose
