package summary

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/roasbeef/midnight/internal/interview"
)

// collectSubjects returns the (name, transcript) pairs of every record with
// a non-blank effective transcript, ordered by creation time and then id.
// Ordering by creation rather than by list position keeps the hash stable
// when an unrelated write bumps a record's UpdatedAt.
func collectSubjects(records []interview.Interview) []subject {
	ordered := make([]interview.Interview, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.EffectiveTranscript()) != "" {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	subjects := make([]subject, 0, len(ordered))
	for _, r := range ordered {
		subjects = append(subjects, subject{
			name:       r.SubjectName,
			transcript: r.EffectiveTranscript(),
		})
	}

	return subjects
}

// contentHash digests the subjects. Every field is length prefixed so no two
// distinct inputs share an encoding.
func contentHash(subjects []subject) string {
	h := sha256.New()
	for _, s := range subjects {
		fmt.Fprintf(h, "%d:%s%d:%s", len(s.name), s.name,
			len(s.transcript), s.transcript)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash returns the digest of the transcripts the ranking would be
// built from, or "" if no record has a transcript.
func ContentHash(records []interview.Interview) string {
	subjects := collectSubjects(records)
	if len(subjects) == 0 {
		return ""
	}

	return contentHash(subjects)
}
