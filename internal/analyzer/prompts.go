package analyzer

import (
	"fmt"
	"strings"
)

// guiltSystemPrompt returns the system prompt for a guilt analysis on the
// given score scale.
func guiltSystemPrompt(lo, hi int) string {
	return fmt.Sprintf(`You are an AI in a fictional murder-mystery `+
		`game. Do NOT claim real-world guilt. You must score how `+
		`suspicious the suspect sounds in the story.

Return STRICT JSON only with keys: guilt_score (int %d-%d, %d = `+
		`innocent, %d = certainly guilty), summary (string).`,
		lo, hi, lo, hi)
}

// buildGuiltPrompt assembles the user prompt from the optional case
// context and the transcript.
func buildGuiltPrompt(transcript, caseContext string) string {
	var parts []string
	if strings.TrimSpace(caseContext) != "" {
		parts = append(parts, "CASE CONTEXT:\n"+caseContext)
	}
	parts = append(parts, "INTERVIEW TRANSCRIPT:\n"+transcript)
	parts = append(parts, "Respond with JSON only.")

	return strings.Join(parts, "\n\n")
}
