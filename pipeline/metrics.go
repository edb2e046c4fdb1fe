/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judge_evaluations_total",
			Help: "Total number of criterion evaluations performed",
		},
		[]string{"verdict", "granularity"},
	)

	comparisonCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "judge_comparisons_total",
			Help: "Total number of multi-condition criterion comparisons",
		},
	)

	confidenceHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "judge_evaluation_confidence",
			Help:    "Confidence scores of merged criterion evaluations",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)
