/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package history_test

import (
	"os"
	"path/filepath"
	"testing"

	"chainguard.dev/agentjudge/history"
	"github.com/stretchr/testify/require"
)

func TestLoadRunNestedMetadata(t *testing.T) {
	cond, err := history.LoadRun(filepath.Join("testdata", "run-a.json"))
	require.NoError(t, err, "failed to load run file")

	require.Equal(t, "run-a", cond.ID)
	require.Equal(t, "Compares prices before adding anything to the cart.", cond.Persona)
	require.Equal(t, "gpt-4o", cond.Model)
	require.Equal(t, "Buy milk", cond.Trace.Task.Name)
	require.True(t, cond.Trace.Success, "expected a successful run")
	require.Equal(t, "Milk added to cart", cond.Trace.FinalResult)
	require.Len(t, cond.Trace.Steps, 2)

	// Structured actions flatten to compact JSON, string actions pass
	// through untouched.
	require.Equal(t, `{"go_to_url":{"url":"https://shop.example.com"}}`, cond.Trace.Steps[0].Action)
	require.Equal(t, "click_element(index=7)", cond.Trace.Steps[1].Action)
	// thinking_process is the fallback spelling for thinking.
	require.Equal(t, "Milk is visible in the list.", cond.Trace.Steps[1].Thinking)
	require.Equal(t, 1, cond.Trace.Steps[1].Index)
}

func TestLoadRunFlatMetadata(t *testing.T) {
	cond, err := history.LoadRun(filepath.Join("testdata", "run-b.json"))
	require.NoError(t, err, "failed to load run file")

	// No metadata id, so the filename stem becomes the condition id.
	require.Equal(t, "run-b", cond.ID)
	require.Equal(t, "Rushed shopper", cond.Persona)
	require.Equal(t, "Buy milk", cond.Trace.Task.Name)
	require.False(t, cond.Trace.Success, "expected a failed run")
	require.Empty(t, cond.Trace.FinalResult)
}

func TestLoadDir(t *testing.T) {
	conditions, err := history.LoadDir("testdata")
	require.NoError(t, err, "failed to load run directory")
	require.Len(t, conditions, 2)
	require.Equal(t, "run-a", conditions[0].ID)
	require.Equal(t, "run-b", conditions[1].ID)
}

func TestLoadDirMissing(t *testing.T) {
	conditions, err := history.LoadDir(filepath.Join("testdata", "does-not-exist"))
	require.NoError(t, err, "missing directories are not an error")
	require.Empty(t, conditions)
}

func TestLoadRunInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := history.LoadRun(path)
	require.Error(t, err, "malformed run files must be rejected")
}