/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package promptbuilder provides injection-resistant prompt construction for
the judging pipeline. Templates are compile-time string literals with
{{name}} placeholders; runtime data enters only through encoders (XML, JSON,
YAML), so quoted agent output cannot rewrite the instructions around it.

Prompts are immutable: every Bind call returns a new Prompt, leaving the
original usable as a shared template. Build fails if any placeholder is
still unbound, and substitution is single-pass, so bound values are never
re-scanned for placeholders.

	var tmpl = promptbuilder.MustNewPrompt(`Judge the following:
	{{evidence}}

	Respond with JSON matching: {{schema}}`)

	p, err := tmpl.BindXML("evidence", ev)
	...
	p, err = p.BindJSON("schema", schema)
	...
	text, err := p.Build()
*/
package promptbuilder
