/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result_test

import (
	"testing"

	"chainguard.dev/agentjudge/result"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{{
		name:  "fenced json block",
		input: "Here is my answer:\n```json\n{\"verdict\": \"PASS\"}\n```\nDone.",
		want:  `{"verdict": "PASS"}`,
	}, {
		name:  "bare json",
		input: `  {"verdict": "FAIL"}  `,
		want:  `{"verdict": "FAIL"}`,
	}, {
		name:  "inline fences",
		input: "```json\n{\"a\": 1}\n```",
		want:  `{"a": 1}`,
	}, {
		name:  "anonymous fences",
		input: "```\n{\"a\": 1}\n```",
		want:  `{"a": 1}`,
	}, {
		name:  "multiline object in block",
		input: "```json\n{\n  \"a\": 1,\n  \"b\": 2\n}\n```",
		want:  "{\n  \"a\": 1,\n  \"b\": 2\n}",
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := result.ExtractJSON(tt.input); got != tt.want {
				t.Errorf("ExtractJSON(): got = %q, wanted = %q", got, tt.want)
			}
		})
	}
}

func TestExtractObject(t *testing.T) {
	t.Run("prose around object", func(t *testing.T) {
		got, ok := result.ExtractObject(`Sure! The ranking is {"best": "A"} as requested.`)
		if !ok {
			t.Fatal("ExtractObject(): got = no span, wanted = span")
		}
		if want := `{"best": "A"}`; got != want {
			t.Errorf("ExtractObject(): got = %q, wanted = %q", got, want)
		}
	})

	t.Run("no braces", func(t *testing.T) {
		if _, ok := result.ExtractObject("no json here at all"); ok {
			t.Error("ExtractObject(): got = span, wanted = none")
		}
	})

	t.Run("reversed braces", func(t *testing.T) {
		if _, ok := result.ExtractObject("} backwards {"); ok {
			t.Error("ExtractObject(): got = span, wanted = none")
		}
	})
}

func TestExtract(t *testing.T) {
	type verdict struct {
		Verdict    string  `json:"verdict"`
		Confidence float64 `json:"confidence_score"`
	}

	t.Run("fenced", func(t *testing.T) {
		got, err := result.Extract[verdict]("```json\n{\"verdict\": \"PASS\", \"confidence_score\": 0.9}\n```")
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if got.Verdict != "PASS" || got.Confidence != 0.9 {
			t.Errorf("Extract(): got = %+v, wanted = {PASS 0.9}", got)
		}
	})

	t.Run("embedded in prose", func(t *testing.T) {
		got, err := result.Extract[verdict](`My judgment follows. {"verdict": "PARTIAL", "confidence_score": 0.5} Let me know if you need more.`)
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if got.Verdict != "PARTIAL" {
			t.Errorf("Extract() verdict: got = %q, wanted = PARTIAL", got.Verdict)
		}
	})

	t.Run("gibberish", func(t *testing.T) {
		if _, err := result.Extract[verdict]("I cannot answer that."); err == nil {
			t.Error("Extract() error = nil, wanted error")
		}
	})
}
