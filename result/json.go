/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ExtractJSON pulls JSON content out of a response that may wrap it in
// markdown code fences. It returns the content between ```json and ```
// markers when present, otherwise the trimmed input with any bare fences
// stripped.
func ExtractJSON(responseText string) string {
	// First preference: a ```json block on its own lines.
	var buf bytes.Buffer
	inBlock := false
	found := false
	for line := range strings.Lines(responseText) {
		line = strings.TrimSuffix(line, "\n")
		if !inBlock && line == "```json" {
			inBlock = true
			found = true
			continue
		}
		if inBlock && line == "```" {
			break
		}
		if inBlock {
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(line)
		}
	}
	if found {
		return strings.TrimSpace(buf.String())
	}

	responseText = strings.TrimSpace(responseText)
	if strings.HasPrefix(responseText, "```json") && strings.HasSuffix(responseText, "```") {
		responseText = strings.TrimPrefix(responseText, "```json")
	} else {
		// No-ops when the fences aren't there.
		responseText = strings.TrimPrefix(responseText, "```")
	}
	responseText = strings.TrimSuffix(responseText, "```")
	return strings.TrimSpace(responseText)
}

// ExtractObject returns the substring from the first '{' to the last '}' of
// the response, which tolerates prose before and after a JSON object. The
// second return is false when no such span exists.
func ExtractObject(responseText string) (string, bool) {
	start := strings.IndexByte(responseText, '{')
	end := strings.LastIndexByte(responseText, '}')
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return responseText[start : end+1], true
}

// Extract unmarshals a JSON response into T. It tries fence extraction
// first, then falls back to the first-'{'-to-last-'}' span before giving up.
func Extract[T any](responseText string) (T, error) {
	var out T

	content := ExtractJSON(responseText)
	err := json.Unmarshal([]byte(content), &out)
	if err == nil {
		return out, nil
	}

	if span, ok := ExtractObject(responseText); ok {
		var retry T
		if err2 := json.Unmarshal([]byte(span), &retry); err2 == nil {
			return retry, nil
		}
	}
	return out, err
}
