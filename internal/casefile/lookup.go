package casefile

import (
	"context"
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/roasbeef/midnight/internal/interview"
)

// maxNameDistance is the largest edit distance FindByName still treats as
// a match when nothing matches exactly.
const maxNameDistance = 2

// FindByName returns the interviews whose subject matches name. Names are
// not unique, so several records may come back. Exact matches ignore case
// and surrounding space; when there are none, names within a small edit
// distance are returned, closest first.
func (s *Service) FindByName(ctx context.Context,
	name string) ([]interview.Interview, error) {

	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return []interview.Interview{}, nil
	}

	ivs, err := s.deps.Store.List(ctx)
	if err != nil {
		return nil, err
	}

	exact := []interview.Interview{}
	for _, iv := range ivs {
		if strings.ToLower(strings.TrimSpace(iv.SubjectName)) == want {
			exact = append(exact, iv)
		}
	}
	if len(exact) > 0 {
		return exact, nil
	}

	type candidate struct {
		iv   interview.Interview
		dist int
	}
	var near []candidate
	for _, iv := range ivs {
		got := strings.ToLower(strings.TrimSpace(iv.SubjectName))
		dist := levenshtein.DistanceForStrings(
			[]rune(want), []rune(got),
			levenshtein.DefaultOptionsWithSub,
		)
		if dist <= maxNameDistance {
			near = append(near, candidate{iv: iv, dist: dist})
		}
	}

	// List order is most recent first, so a stable sort keeps that
	// order among equally close names.
	sort.SliceStable(near, func(i, j int) bool {
		return near[i].dist < near[j].dist
	})

	out := make([]interview.Interview, 0, len(near))
	for _, c := range near {
		out = append(out, c.iv)
	}

	return out, nil
}
