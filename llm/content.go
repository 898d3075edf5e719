package llm

// WrapThinking joins reasoning text and user-visible text into the final
// content string. Thinking segments are concatenated separately by the
// translator and, when present, wrapped so callers can strip them.
func WrapThinking(thinking, visible string) string {
	if thinking == "" {
		return visible
	}
	return "<thinking>\n" + thinking + "\n</thinking>\n\n" + visible
}
