// Package prose sizes and trims entity descriptions destined for an LLM
// caller's context window.
package prose

import (
	"strings"
)

// EstimateTokens approximates how many tokens a piece of prose costs.
// English prose runs roughly 1.3 tokens per word and 4 characters per
// token; averaging the two keeps the estimate stable for both terse
// identifiers and full sentences.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	chars := len(text)

	wordEstimate := int(float64(words) * 1.3)
	charEstimate := chars / 4

	return (wordEstimate + charEstimate) / 2
}

// Truncate trims text that overruns the token budget, backing up to a word
// boundary when one falls in the second half of the cut, and marks the cut
// with an ellipsis.
func Truncate(text string, budget int) string {
	if budget <= 0 {
		return ""
	}

	if EstimateTokens(text) <= budget {
		return text
	}

	maxChars := budget * 4
	if maxChars >= len(text) {
		return text
	}

	truncated := text[:maxChars]
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > maxChars/2 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "..."
}

// JoinWithBudget concatenates lines with a "---" divider until adding the
// next line would overrun the token budget. It returns the joined text and
// how many lines made it in; whole lines only, never a partial one.
func JoinWithBudget(lines []string, budget int) (string, int) {
	if budget <= 0 || len(lines) == 0 {
		return "", 0
	}

	var builder strings.Builder
	count := 0
	usedTokens := 0

	for _, line := range lines {
		lineTokens := EstimateTokens(line) + 2 // divider overhead
		if usedTokens+lineTokens > budget {
			break
		}
		if count > 0 {
			builder.WriteString("\n---\n")
		}
		builder.WriteString(line)
		usedTokens += lineTokens
		count++
	}

	return builder.String(), count
}
