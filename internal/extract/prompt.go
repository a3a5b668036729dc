package extract

import (
	"encoding/json"
	"strings"
)

// SystemPrompt is the shared system prompt every LLM strategy starts from;
// the strategy instruction is appended to it.
const SystemPrompt = "You are an expert extractor. Return JSON matching the provided schema."

// BuildSystemPrompt joins the shared system prompt with a strategy's
// instruction.
func BuildSystemPrompt(instruction string) string {
	if instruction == "" {
		return SystemPrompt
	}
	return SystemPrompt + "\n\n" + instruction
}

// BuildUserPrompt creates the user message for an extraction call: the
// source URL, an advisory block of previous pipeline results when present,
// and the head-truncated page content.
func BuildUserPrompt(url, content string, maxLen int, previous Record) string {
	var prompt strings.Builder

	if url != "" {
		prompt.WriteString("Source URL: ")
		prompt.WriteString(url)
		prompt.WriteString("\n\n")
	}

	if len(previous) > 0 {
		if block := previousResultsBlock(previous); block != "" {
			prompt.WriteString("Results from earlier extraction steps (for context):\n")
			prompt.WriteString(block)
			prompt.WriteString("\n\n")
		}
	}

	prompt.WriteString("Content:\n")
	prompt.WriteString(TruncateContent(content, maxLen))

	return prompt.String()
}

// previousResultsBlock renders accumulated pipeline results as compact
// JSON, dropping provenance.
func previousResultsBlock(previous Record) string {
	trimmed := make(map[string]any, len(previous))
	for k, v := range previous {
		if k == MetadataKey {
			continue
		}
		trimmed[k] = v
	}
	if len(trimmed) == 0 {
		return ""
	}
	b, err := json.Marshal(trimmed)
	if err != nil {
		return ""
	}
	return string(b)
}

// TruncateContent bounds content to maxLen bytes, keeping the head.
// maxLen <= 0 means no limit.
func TruncateContent(content string, maxLen int) string {
	if maxLen <= 0 || len(content) <= maxLen {
		return content
	}
	return content[:maxLen]
}

// StripCodeFence removes a markdown code fence wrapper from a model
// response. Some models wrap JSON in ```json ... ``` despite instructions.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)

	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimPrefix(s, "```json")
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
	default:
		return s
	}

	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
