package llm

// EstimateTokens approximates the token count of a message sequence: the
// character count of all text-bearing parts divided by 4, rounded up. This is
// a budgeting heuristic, not a tokenizer.
func EstimateTokens(messages []Message) int {
	chars := 0
	for _, m := range messages {
		chars += len(m.TextContent())
		for _, tc := range m.ToolCalls {
			chars += len(tc.Name) + len(tc.Arguments)
		}
	}
	if chars == 0 {
		return 0
	}
	return (chars + 3) / 4
}
