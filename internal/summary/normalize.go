package summary

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Normalize maps whatever the ranker produced onto the canonical Result. It
// accepts the decoded JSON variants (nil, string, object, array and other
// scalars) plus an existing Result, never fails, and is a fixed point:
// normalizing a normalized result returns it unchanged.
//
// An object contributes its "ranking" array, or itself as a single entry if
// it carries name, rank or reason keys. An array contributes each object
// element as an entry; elements holding a "summary" key, and bare strings,
// supply the summary text instead. The ranking is sorted by rank with
// unranked entries last.
func Normalize(raw any) Result {
	var res Result
	switch v := raw.(type) {
	case nil:

	case Result:
		res.Summary = v.Summary
		for _, e := range v.Ranking {
			res.Ranking = append(res.Ranking, e.canonical())
		}

	case *Result:
		if v != nil {
			return Normalize(*v)
		}

	case string:
		res.Summary = v

	case map[string]any:
		res = normalizeObject(v)

	case []any:
		res = normalizeList(v)

	default:
		// Numbers and booleans carry nothing usable.
	}

	if res.Ranking == nil {
		res.Ranking = []RankEntry{}
	}
	sortRanking(res.Ranking)

	return res
}

// NormalizeJSON decodes data and normalizes it. Bytes that are not JSON are
// reported as not ok.
func NormalizeJSON(data []byte) (Result, bool) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, false
	}

	return Normalize(raw), true
}

// normalizeObject handles a single JSON object.
func normalizeObject(obj map[string]any) Result {
	var res Result
	if s, ok := obj["summary"].(string); ok {
		res.Summary = s
	}

	if ranking, ok := obj["ranking"].([]any); ok {
		for _, item := range ranking {
			if entry, ok := item.(map[string]any); ok {
				res.Ranking = append(
					res.Ranking, entryFromObject(entry),
				)
			}
		}

		return res
	}

	if isEntry(obj) {
		res.Ranking = append(res.Ranking, entryFromObject(obj))
	}

	return res
}

// normalizeList handles a JSON array of entries with an optional trailing
// summary.
func normalizeList(items []any) Result {
	var res Result
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				res.Summary = v
			}

		case map[string]any:
			if s, ok := v["summary"]; ok {
				if text, ok := s.(string); ok {
					res.Summary = text
				}
				continue
			}
			res.Ranking = append(res.Ranking, entryFromObject(v))
		}
	}

	return res
}

// isEntry reports whether obj looks like a lone ranking entry.
func isEntry(obj map[string]any) bool {
	for _, key := range []string{"name", "rank", "reason"} {
		if _, ok := obj[key]; ok {
			return true
		}
	}

	return false
}

// entryFromObject builds an entry, filling in defaults.
func entryFromObject(obj map[string]any) RankEntry {
	name, _ := obj["name"].(string)
	reason, _ := obj["reason"].(string)

	return RankEntry{
		Name:   name,
		Rank:   parseRank(obj["rank"]),
		Reason: reason,
	}.canonical()
}

// canonical applies the entry defaults.
func (e RankEntry) canonical() RankEntry {
	if strings.TrimSpace(e.Name) == "" {
		e.Name = UnknownSuspect
	}
	if strings.TrimSpace(e.Reason) == "" {
		e.Reason = NoReason
	}
	if e.Rank != nil {
		r := *e.Rank
		e.Rank = &r
	}

	return e
}

// parseRank accepts JSON numbers and numeric strings, rounding fractional
// values. Anything else yields nil.
func parseRank(v any) *int {
	var f float64
	switch r := v.(type) {
	case float64:
		f = r

	case json.Number:
		parsed, err := r.Float64()
		if err != nil {
			return nil
		}
		f = parsed

	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
		if err != nil {
			return nil
		}
		f = parsed

	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) ||
		f > math.MaxInt32 || f < math.MinInt32 {

		return nil
	}

	rank := int(math.Round(f))
	return &rank
}

// sortRanking orders entries by rank ascending, unranked last, keeping the
// input order among equals.
func sortRanking(entries []RankEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Rank, entries[j].Rank
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
}
