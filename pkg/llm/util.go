package llm

import (
	"strings"
)

// WordWrap wraps text at the specified width. Used by the history log.
func WordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i > 0 {
			result.WriteString("\n")
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		currentLineLength := 0
		for j, word := range words {
			if j > 0 {
				if currentLineLength+len(word)+1 > width {
					result.WriteString("\n")
					currentLineLength = 0
				} else {
					result.WriteString(" ")
					currentLineLength++
				}
			}
			result.WriteString(word)
			currentLineLength += len(word)
		}
	}

	return result.String()
}

// CleanJSONBlock removes markdown code fences from a JSON string if present.
// Models in JSON mode occasionally still wrap the payload in ```json fences.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "```json")
	if start != -1 {
		text = text[start+len("```json"):]
		end := strings.LastIndex(text, "```")
		if end != -1 {
			text = text[:end]
		}
		return strings.TrimSpace(text)
	}

	start = strings.Index(text, "```")
	if start != -1 {
		text = text[start+len("```"):]
		end := strings.LastIndex(text, "```")
		if end != -1 {
			text = text[:end]
		}
		return strings.TrimSpace(text)
	}

	return strings.TrimSpace(text)
}
