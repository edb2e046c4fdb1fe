/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package decompose

import "sort"

// StepCluster is one semantically labeled group of steps.
type StepCluster struct {
	ID           string   `json:"cluster_id"`
	Label        string   `json:"semantic_label"`
	StepIndices  []int    `json:"step_indices"`
	Summary      string   `json:"cluster_summary"`
	KeyDecisions []string `json:"key_decisions,omitempty"`
	DependsOn    []string `json:"dependencies,omitempty"`
}

// Decomposition is an ordered, non-overlapping partition of all step
// indices of one trace.
type Decomposition struct {
	TaskName   string
	Clusters   []StepCluster
	TotalSteps int
}

// Phase is one cluster of the criterion-directed decomposition, carrying a
// relevance flag for the criterion it was built against.
type Phase struct {
	ID          string `json:"phase_id"`
	Label       string `json:"semantic_label"`
	StepIndices []int  `json:"step_indices"`
	Summary     string `json:"phase_summary"`
	Relevant    bool   `json:"relevant_to_criterion"`
}

// PhaseDecomposition partitions all steps into phases relative to one
// criterion. RelevantSteps is the sorted union of the indices of relevant
// phases.
type PhaseDecomposition struct {
	Phases        []Phase
	RelevantSteps []int
	TotalSteps    int
}

// isPartition reports whether the given index lists cover [0, total)
// exactly once each, with no gaps, duplicates, or out-of-range entries.
func isPartition(indexLists [][]int, total int) bool {
	seen := make([]bool, total)
	count := 0
	for _, indices := range indexLists {
		for _, i := range indices {
			if i < 0 || i >= total || seen[i] {
				return false
			}
			seen[i] = true
			count++
		}
	}
	return count == total
}

// clusterIndexLists extracts each cluster's indices for partition checks.
func clusterIndexLists(clusters []StepCluster) [][]int {
	out := make([][]int, len(clusters))
	for i, c := range clusters {
		out[i] = c.StepIndices
	}
	return out
}

// phaseIndexLists extracts each phase's indices for partition checks.
func phaseIndexLists(phases []Phase) [][]int {
	out := make([][]int, len(phases))
	for i, p := range phases {
		out[i] = p.StepIndices
	}
	return out
}

// sortByFirstIndex orders clusters by their earliest step so the
// decomposition reads in execution order.
func sortByFirstIndex(clusters []StepCluster) {
	sort.SliceStable(clusters, func(a, b int) bool {
		return firstIndex(clusters[a].StepIndices) < firstIndex(clusters[b].StepIndices)
	})
}

func firstIndex(indices []int) int {
	if len(indices) == 0 {
		return int(^uint(0) >> 1)
	}
	first := indices[0]
	for _, i := range indices[1:] {
		if i < first {
			first = i
		}
	}
	return first
}
