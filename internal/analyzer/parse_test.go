package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/midnight/internal/interview"
)

// TestParseVerdict covers the strict and fallback paths.
func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		lo, hi    int
		wantScore int
		fallback  bool
		wantErr   bool
	}{
		{
			name:      "strict",
			content:   `{"guilt_score": 3, "summary": "Calm."}`,
			lo:        1,
			hi:        10,
			wantScore: 3,
		},
		{
			name:      "string score",
			content:   `{"guilt_score": "9", "summary": "Shaky."}`,
			lo:        1,
			hi:        10,
			wantScore: 9,
		},
		{
			name:      "embedded object",
			content:   `Sure! {"guilt_score": 2, "summary": "Fine."} bye`,
			lo:        1,
			hi:        10,
			wantScore: 2,
		},
		{
			name:      "out of range json falls back to text",
			content:   `{"guilt_score": 50, "summary": "Hmm, 6."}`,
			lo:        1,
			hi:        10,
			wantScore: 6,
			fallback:  true,
		},
		{
			name:      "missing summary",
			content:   `{"guilt_score": 4}`,
			lo:        1,
			hi:        10,
			wantScore: 4,
			fallback:  true,
		},
		{
			name:      "bare number on audio scale",
			content:   "73",
			lo:        0,
			hi:        100,
			wantScore: 73,
			fallback:  true,
		},
		{
			name:    "nothing usable",
			content: "no idea",
			lo:      1,
			hi:      10,
			wantErr: true,
		},
		{
			name:    "only out of range numbers",
			content: "0 or 11",
			lo:      1,
			hi:      10,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := parseVerdict(tc.content, tc.lo, tc.hi)
			if tc.wantErr {
				require.ErrorIs(t, err, interview.ErrUpstream)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantScore, v.score)

			if tc.fallback {
				require.Equal(t, FallbackSummary, v.summary)
				require.Equal(t, tc.content, v.raw)
			} else {
				require.Empty(t, v.raw)
			}
		})
	}
}

// TestDecodeRanking strips fences and reasoning blocks.
func TestDecodeRanking(t *testing.T) {
	require.Nil(t, decodeRanking("  "))
	require.Equal(t, "plain", decodeRanking("plain"))

	raw := decodeRanking("<think>x</think>\n```json\n[1, 2]\n```")
	require.Equal(t, []any{float64(1), float64(2)}, raw)
}
