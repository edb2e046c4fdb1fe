/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package engine adapts hosted model providers to the single surface the
judging pipeline consumes: ask a question, get free text back.

The pipeline never talks to a provider SDK directly. It constructs prompts
that request JSON and defensively parses whatever text comes out; transport
concerns (auth, streaming, rate-limit retries) live entirely behind
Interface. Anthropic, Google Vertex AI, and OpenAI implementations are
provided, sharing the same functional options.
*/
package engine
