package llm

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxPromptLength is the rune limit for a refined prompt.
const DefaultMaxPromptLength = 400

const ellipsis = "..."

//nolint:gochecknoglobals // Compiled once
var leadingLabel = regexp.MustCompile(`(?i)^(refined|improved|rewritten|new)?\s*prompt\s*:\s*`)

//nolint:gochecknoglobals // Read-only quote pairs
var quotePairs = [][2]string{
	{`"`, `"`},
	{`'`, `'`},
	{"`", "`"},
	{"“", "”"},
	{"‘", "’"},
	{"«", "»"},
}

// Sanitize cleans model output into a bare prompt: code fences, a leading
// "Prompt:" label and surrounding quotes are removed, and the result is
// truncated to maxLen runes with a trailing ellipsis.
func Sanitize(text string, maxLen int) (cleaned string) {
	if maxLen <= 0 {
		maxLen = DefaultMaxPromptLength
	}

	cleaned = stripMarkdownCodeFences(strings.TrimSpace(text))
	cleaned = strings.TrimSpace(leadingLabel.ReplaceAllString(cleaned, ""))
	cleaned = stripQuotes(cleaned)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if utf8.RuneCountInString(cleaned) > maxLen {
		runes := []rune(cleaned)
		keep := maxLen - utf8.RuneCountInString(ellipsis)
		if keep < 0 {
			keep = 0
		}
		cleaned = strings.TrimRight(string(runes[:keep]), " ,;:") + ellipsis
	}

	return cleaned
}

// stripMarkdownCodeFences removes a wrapping ``` fence with any language tag.
func stripMarkdownCodeFences(text string) (cleaned string) {
	cleaned = text

	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}

	// Drop the opening fence line
	nl := strings.IndexByte(cleaned, '\n')
	if nl < 0 {
		cleaned = strings.TrimSpace(strings.Trim(cleaned, "`"))
		return cleaned
	}
	cleaned = cleaned[nl+1:]

	cleaned = strings.TrimRight(cleaned, " \r\n")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	return cleaned
}

func stripQuotes(text string) (cleaned string) {
	cleaned = text
	for {
		stripped := false
		for _, pair := range quotePairs {
			if len(cleaned) >= len(pair[0])+len(pair[1]) &&
				strings.HasPrefix(cleaned, pair[0]) && strings.HasSuffix(cleaned, pair[1]) {
				cleaned = strings.TrimSpace(cleaned[len(pair[0]) : len(cleaned)-len(pair[1])])
				stripped = true
				break
			}
		}
		if !stripped {
			return cleaned
		}
	}
}
