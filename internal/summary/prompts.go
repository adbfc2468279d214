package summary

import (
	"fmt"
	"strings"
)

// rankingSystemPrompt is the system prompt for the ranking call.
const rankingSystemPrompt = `You're a teenage detective AI. Given the ` +
	`following interview transcripts, rank the suspects from most to ` +
	`least likely to be the murderer. For each, give a short, casual, ` +
	`teenage-style reason.

Return JSON only, in exactly this shape:
{"ranking": [{"name": "<suspect>", "rank": <1 = most likely>, ` +
	`"reason": "<why>"}], "summary": "<one paragraph overview>"}

Rules:
- Rank every suspect exactly once
- Use the suspect names as given
- Do NOT wrap the JSON in markdown or code blocks`

// buildRankingPrompt enumerates the subjects and their transcripts for the
// ranking call. Transcripts longer than maxChars are truncated.
func buildRankingPrompt(subjects []subject, maxChars int) string {
	var b strings.Builder
	b.WriteString("Rank these suspects based on their interviews:\n")

	for i, s := range subjects {
		transcript := s.transcript
		if maxChars > 0 && len(transcript) > maxChars {
			transcript = strings.ToValidUTF8(
				transcript[:maxChars], "",
			) + " [truncated]"
		}

		fmt.Fprintf(&b, "\n--- SUSPECT %d: %s ---\n%s\n", i+1, s.name,
			transcript)
	}
	b.WriteString("--- END ---")

	return b.String()
}
