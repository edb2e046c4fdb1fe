/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package result extracts structured results from free-text reasoning-engine
// responses. Models asked for JSON wrap it in markdown fences, preamble, or
// trailing commentary; the helpers here peel those layers off before strict
// parsing, and callers treat any parse failure as data (a degraded verdict),
// never as an assumption that the model complied.
package result
