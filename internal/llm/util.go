package llm

import "strings"

// CleanJSONBlock strips a markdown code fence around JSON. Models wrap JSON in
// ```json ... ``` blocks even when told not to. Any other text is returned
// trimmed but otherwise untouched.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Drop a language tag on the opening fence line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			tag := strings.TrimSpace(text[:idx])
			if len(tag) < 20 && !strings.ContainsAny(tag, " {[") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	return text
}
