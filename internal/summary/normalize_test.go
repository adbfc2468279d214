package summary

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// decode parses a JSON literal into the generic variant form.
func decode(t require.TestingT, s string) any {
	var raw any
	require.NoError(t, json.Unmarshal([]byte(s), &raw))

	return raw
}

// roundTrip re-encodes a result and decodes it generically, the way a
// stored entry is read back.
func roundTrip(t require.TestingT, r Result) any {
	data, err := json.Marshal(r)
	require.NoError(t, err)

	return decode(t, string(data))
}

// intPtr returns a pointer to v.
func intPtr(v int) *int {
	return &v
}

// TestNormalize covers each input variant.
func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Result
	}{
		{
			name:  "null",
			input: `null`,
			want:  Result{Ranking: []RankEntry{}},
		},
		{
			name:  "empty string",
			input: `""`,
			want:  Result{Ranking: []RankEntry{}},
		},
		{
			name:  "bare string",
			input: `"it was the butler"`,
			want: Result{
				Ranking: []RankEntry{},
				Summary: "it was the butler",
			},
		},
		{
			name:  "empty object",
			input: `{}`,
			want:  Result{Ranking: []RankEntry{}},
		},
		{
			name:  "empty list",
			input: `[]`,
			want:  Result{Ranking: []RankEntry{}},
		},
		{
			name:  "number",
			input: `42`,
			want:  Result{Ranking: []RankEntry{}},
		},
		{
			name:  "single entry object",
			input: `{"name": "Alice", "rank": 1}`,
			want: Result{Ranking: []RankEntry{{
				Name: "Alice", Rank: intPtr(1), Reason: NoReason,
			}}},
		},
		{
			name: "canonical object",
			input: `{"ranking": [
				{"name": "B", "rank": 2, "reason": "b"},
				{"name": "A", "rank": 1, "reason": "a"}
			], "summary": "s"}`,
			want: Result{
				Ranking: []RankEntry{
					{Name: "A", Rank: intPtr(1), Reason: "a"},
					{Name: "B", Rank: intPtr(2), Reason: "b"},
				},
				Summary: "s",
			},
		},
		{
			name: "malformed object",
			input: `{"ranking": [
				{"rank": "first"}, 7, {"name": "", "rank": null}
			], "summary": 3}`,
			want: Result{Ranking: []RankEntry{
				{Name: UnknownSuspect, Reason: NoReason},
				{Name: UnknownSuspect, Reason: NoReason},
			}},
		},
		{
			name: "list with summary object",
			input: `[
				{"name": "Bob", "reason": "shifty"},
				{"name": "Alice", "rank": "1", "reason": "lied"},
				{"summary": "Alice, probably."}
			]`,
			want: Result{
				Ranking: []RankEntry{
					{Name: "Alice", Rank: intPtr(1), Reason: "lied"},
					{Name: "Bob", Reason: "shifty"},
				},
				Summary: "Alice, probably.",
			},
		},
		{
			name:  "list ending in string",
			input: `[{"name": "Bob", "rank": 2.4}, null, "Bob it is."]`,
			want: Result{
				Ranking: []RankEntry{
					{Name: "Bob", Rank: intPtr(2), Reason: NoReason},
				},
				Summary: "Bob it is.",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(decode(t, tc.input))
			require.Equal(t, tc.want, got)

			// Normalizing again, directly or after a round trip
			// through JSON, must not change anything.
			require.Equal(t, got, Normalize(got))
			require.Equal(t, got, Normalize(roundTrip(t, got)))
		})
	}
}

// TestNormalizeJSONRejectsGarbage reports undecodable bytes.
func TestNormalizeJSONRejectsGarbage(t *testing.T) {
	_, ok := NormalizeJSON([]byte("{nope"))
	require.False(t, ok)

	res, ok := NormalizeJSON([]byte(`"fine"`))
	require.True(t, ok)
	require.Equal(t, "fine", res.Summary)
}

// genJSON draws an arbitrary JSON value of bounded depth.
func genJSON(depth int) *rapid.Generator[any] {
	scalars := []*rapid.Generator[any]{
		rapid.Just[any](nil),
		rapid.Map(rapid.Bool(), func(b bool) any { return b }),
		rapid.Map(rapid.IntRange(-5, 20), func(i int) any {
			return float64(i)
		}),
		rapid.Map(rapid.SampledFrom([]string{
			"", "Alice", "Bob", "3", "summary", "x",
		}), func(s string) any { return s }),
	}
	if depth <= 0 {
		return rapid.OneOf(scalars...)
	}

	keys := rapid.SampledFrom([]string{
		"name", "rank", "reason", "summary", "ranking", "other",
	})
	object := rapid.Map(
		rapid.MapOfN(keys, genJSON(depth-1), 0, 4),
		func(m map[string]any) any { return m },
	)
	list := rapid.Map(
		rapid.SliceOfN(genJSON(depth-1), 0, 5),
		func(l []any) any { return l },
	)

	return rapid.OneOf(append(scalars, object, list)...)
}

// TestNormalizeFixedPointInvariant checks normalization is a fixed point
// for arbitrary JSON input.
func TestNormalizeFixedPointInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := genJSON(3).Draw(t, "raw")

		once := Normalize(raw)

		// PROPERTY: Normalize is deterministic.
		require.Equal(t, once, Normalize(raw))

		// PROPERTY: Normalizing a normalized result is a no-op.
		require.Equal(t, once, Normalize(roundTrip(t, once)))

		// PROPERTY: Unranked entries sort last.
		seenNil := false
		for _, e := range once.Ranking {
			if e.Rank == nil {
				seenNil = true
				continue
			}
			require.False(t, seenNil, "ranked entry after unranked")
		}
	})
}
