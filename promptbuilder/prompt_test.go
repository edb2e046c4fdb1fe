/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder_test

import (
	"strings"
	"testing"

	"chainguard.dev/agentjudge/promptbuilder"
)

func TestNewPrompt(t *testing.T) {
	t.Run("no bindings", func(t *testing.T) {
		p, err := promptbuilder.NewPrompt("plain text, nothing to bind")
		if err != nil {
			t.Fatalf("NewPrompt() error = %v", err)
		}
		if got := len(p.GetBindings()); got != 0 {
			t.Errorf("binding count: got = %d, wanted = 0", got)
		}
	})

	t.Run("collects bindings", func(t *testing.T) {
		p, err := promptbuilder.NewPrompt("Steps: {{steps}}\n\nCriterion: {{criterion}}")
		if err != nil {
			t.Fatalf("NewPrompt() error = %v", err)
		}
		bindings := p.GetBindings()
		for _, name := range []string{"steps", "criterion"} {
			if _, ok := bindings[name]; !ok {
				t.Errorf("binding %q: got = absent, wanted = present", name)
			}
		}
	})

	t.Run("repeated placeholder counted once", func(t *testing.T) {
		p, err := promptbuilder.NewPrompt("{{x}} and {{x}} again")
		if err != nil {
			t.Fatalf("NewPrompt() error = %v", err)
		}
		if got := len(p.GetBindings()); got != 1 {
			t.Errorf("binding count: got = %d, wanted = 1", got)
		}
	})

	t.Run("unclosed binding", func(t *testing.T) {
		if _, err := promptbuilder.NewPrompt("broken {{name"); err == nil {
			t.Error("NewPrompt() error = nil, wanted error")
		}
	})

	t.Run("invalid identifier", func(t *testing.T) {
		if _, err := promptbuilder.NewPrompt("bad {{1name}}"); err == nil {
			t.Error("NewPrompt() error = nil, wanted error")
		}
	})
}

func TestBuild(t *testing.T) {
	t.Run("unbound placeholder fails", func(t *testing.T) {
		p := promptbuilder.MustNewPrompt("needs {{value}}")
		if _, err := p.Build(); err == nil {
			t.Error("Build() error = nil, wanted error")
		}
	})

	t.Run("literal binding", func(t *testing.T) {
		p := promptbuilder.MustNewPrompt("judge at {{level}} granularity").
			MustBindStringLiteral("level", "STEP_LEVEL")
		got, err := p.Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if want := "judge at STEP_LEVEL granularity"; got != want {
			t.Errorf("Build(): got = %q, wanted = %q", got, want)
		}
	})

	t.Run("json binding", func(t *testing.T) {
		p := promptbuilder.MustNewPrompt("indices: {{indices}}").
			MustBindJSON("indices", []int{0, 1, 2})
		got, err := p.Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		for _, want := range []string{"0", "1", "2"} {
			if !strings.Contains(got, want) {
				t.Errorf("Build() missing %q in %q", want, got)
			}
		}
	})

	t.Run("xml binding escapes content", func(t *testing.T) {
		payload := struct {
			XMLName struct{} `xml:"step"`
			Content string   `xml:",chardata"`
		}{Content: "clicked <submit> & waited"}
		p := promptbuilder.MustNewPrompt("evidence:\n{{step}}").
			MustBindXML("step", payload)
		got, err := p.Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if !strings.Contains(got, "&lt;submit&gt;") {
			t.Errorf("Build() did not escape markup: %q", got)
		}
	})

	t.Run("bound values are not re-expanded", func(t *testing.T) {
		payload := struct {
			XMLName struct{} `xml:"data"`
			Content string   `xml:",chardata"`
		}{Content: "sneaky {{other}} placeholder"}
		p := promptbuilder.MustNewPrompt("{{data}}").MustBindXML("data", payload)
		got, err := p.Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if !strings.Contains(got, "{{other}}") {
			t.Errorf("substituted text was re-scanned: %q", got)
		}
	})
}

func TestImmutability(t *testing.T) {
	base := promptbuilder.MustNewPrompt("value: {{v}}")

	a := base.MustBindStringLiteral("v", "first")
	b := base.MustBindStringLiteral("v", "second")

	gotA, err := a.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	gotB, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if gotA != "value: first" || gotB != "value: second" {
		t.Errorf("independent binds interfered: got = %q / %q", gotA, gotB)
	}

	// The base template must still be unbound.
	if _, err := base.Build(); err == nil {
		t.Error("base.Build() error = nil, wanted unbound error")
	}
}

func TestDoubleBind(t *testing.T) {
	p := promptbuilder.MustNewPrompt("{{v}}").MustBindStringLiteral("v", "once")
	if _, err := p.BindStringLiteral("v", "twice"); err == nil {
		t.Error("second bind error = nil, wanted error")
	}
}
