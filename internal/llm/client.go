// Package llm provides LLM clients and the duration estimator built on
// top of them.
package llm

import (
	"context"
	"strings"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client defines the interface for LLM providers.
type Client interface {
	// Chat sends messages to the LLM and returns the response.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ChatJSON sends messages and parses the response as JSON into the provided type.
	ChatJSON(ctx context.Context, messages []Message, result any) error
}

// extractJSON pulls a JSON payload out of a model response that may wrap
// it in markdown fences or prose.
func extractJSON(s string) string {
	// ```json ... ``` block
	if idx := strings.Index(s, "```json"); idx != -1 {
		start := idx + len("```json")
		for start < len(s) && (s[start] == '\n' || s[start] == '\r') {
			start++
		}
		if end := strings.Index(s[start:], "```"); end != -1 {
			return strings.TrimRight(s[start:start+end], "\n\r")
		}
	}

	// plain ``` ... ``` block
	if idx := strings.Index(s, "```"); idx != -1 {
		start := idx + len("```")
		for start < len(s) && (s[start] == '\n' || s[start] == '\r') {
			start++
		}
		if end := strings.Index(s[start:], "```"); end != -1 {
			return strings.TrimRight(s[start:start+end], "\n\r")
		}
	}

	// raw JSON: first balanced { } or [ ] run
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			depth := 0
			for j := i; j < len(s); j++ {
				switch s[j] {
				case '{', '[':
					depth++
				case '}', ']':
					depth--
					if depth == 0 {
						return s[i : j+1]
					}
				}
			}
		}
	}

	return s
}
