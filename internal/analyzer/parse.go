package analyzer

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/roasbeef/midnight/internal/interview"
)

// FallbackSummary is stored when the model's reply was not the JSON object
// asked for and the score had to be dug out of free text.
const FallbackSummary = "Model did not return valid JSON; used fallback " +
	"parsing."

var (
	// thinkBlock matches the reasoning preamble some models emit.
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

	// codeFence matches a markdown fenced block.
	codeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

	// objectBlock matches the outermost {...} span in free text.
	objectBlock = regexp.MustCompile(`(?s)\{.*\}`)

	// integer matches standalone integers in free text.
	integer = regexp.MustCompile(`\b\d{1,3}\b`)
)

// verdict is a parsed guilt analysis reply.
type verdict struct {
	score   int
	summary string

	// raw is set when the reply needed fallback parsing.
	raw string
}

// cleanReply strips reasoning blocks and markdown fences from a reply.
func cleanReply(content string) string {
	content = thinkBlock.ReplaceAllString(content, "")
	content = strings.TrimSpace(content)
	if m := codeFence.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	return strings.TrimSpace(content)
}

// decodeObject parses content as a JSON object, or failing that the first
// {...} span inside it.
func decodeObject(content string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil {
		return obj, true
	}

	block := objectBlock.FindString(content)
	if block == "" {
		return nil, false
	}
	if err := json.Unmarshal([]byte(block), &obj); err != nil {
		return nil, false
	}

	return obj, true
}

// toInt converts a JSON number or numeric string to an int. Fractional
// values are rejected.
func toInt(v any) (int, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n

	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed

	default:
		return 0, false
	}

	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return int(f), true
}

// parseVerdict extracts a guilt score in [lo, hi] from the model's reply.
// A well formed {guilt_score, summary} object is used as is. Otherwise the
// first in-range integer in the text is taken and the raw reply is kept.
// A reply with no usable score is an upstream failure; no default score is
// ever substituted.
func parseVerdict(content string, lo, hi int) (verdict, error) {
	cleaned := cleanReply(content)

	if obj, ok := decodeObject(cleaned); ok {
		score, okScore := toInt(obj["guilt_score"])
		summary, _ := obj["summary"].(string)
		summary = strings.TrimSpace(summary)

		if okScore && score >= lo && score <= hi && summary != "" {
			return verdict{score: score, summary: summary}, nil
		}
	}

	for _, m := range integer.FindAllString(cleaned, -1) {
		score, err := strconv.Atoi(m)
		if err != nil || score < lo || score > hi {
			continue
		}

		return verdict{
			score:   score,
			summary: FallbackSummary,
			raw:     content,
		}, nil
	}

	return verdict{}, fmt.Errorf("%w: no guilt score in range [%d, %d] "+
		"in model reply", interview.ErrUpstream, lo, hi)
}

// decodeRanking turns a ranking reply into its generic JSON form. Replies
// that are not JSON are returned as text.
func decodeRanking(content string) any {
	cleaned := cleanReply(content)
	if cleaned == "" {
		return nil
	}

	var raw any
	if err := json.Unmarshal([]byte(cleaned), &raw); err == nil {
		return raw
	}

	return cleaned
}
