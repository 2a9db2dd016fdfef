package llm

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text",
			input:    "A modular drone frame",
			expected: "A modular drone frame",
		},
		{
			name:     "surrounding whitespace",
			input:    "\n  A modular drone frame \n",
			expected: "A modular drone frame",
		},
		{
			name:     "single-line fence",
			input:    "``` A modular drone frame ```",
			expected: "A modular drone frame",
		},
		{
			name:     "double quotes",
			input:    `"A modular drone frame"`,
			expected: "A modular drone frame",
		},
		{
			name:     "typographic quotes",
			input:    "“A modular drone frame”",
			expected: "A modular drone frame",
		},
		{
			name:     "guillemets",
			input:    "« Un cadre de drone modulaire »",
			expected: "Un cadre de drone modulaire",
		},
		{
			name:     "nested quotes",
			input:    "\"'A modular drone frame'\"",
			expected: "A modular drone frame",
		},
		{
			name:     "code fence with language",
			input:    "```text\nA modular drone frame\n```",
			expected: "A modular drone frame",
		},
		{
			name:     "code fence without language",
			input:    "```\nA modular drone frame\n\n```",
			expected: "A modular drone frame",
		},
		{
			name:     "leading label",
			input:    "Refined prompt: A modular drone frame",
			expected: "A modular drone frame",
		},
		{
			name:     "collapses internal newlines",
			input:    "A modular\ndrone   frame",
			expected: "A modular drone frame",
		},
		{
			name:     "inner quotes kept",
			input:    `A "modular" drone frame`,
			expected: `A "modular" drone frame`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sanitize(tt.input, 400)
			if result != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestSanitizeTruncates(t *testing.T) {
	long := strings.Repeat("é", 1000)

	result := Sanitize(long, 400)

	if n := utf8.RuneCountInString(result); n != 400 {
		t.Errorf("Expected 400 runes, got %d", n)
	}

	if !strings.HasSuffix(result, "...") {
		t.Errorf("Expected trailing ellipsis, got %q", result[len(result)-6:])
	}

	if got := Sanitize("short", 0); got != "short" {
		t.Errorf("Expected default limit to keep short text, got %q", got)
	}
}
