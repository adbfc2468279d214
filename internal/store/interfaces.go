package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/roasbeef/midnight/internal/interview"
)

// SummaryEntry is the single, process wide cached suspect ranking. The
// result is kept as raw JSON so entries written by older releases can still
// be read and normalized by the summary service.
type SummaryEntry struct {
	// ContentHash is the digest of the transcripts the ranking was built
	// from.
	ContentHash string `json:"content_hash"`

	// Result is the persisted ranking payload.
	Result json.RawMessage `json:"result"`

	UpdatedAt time.Time `json:"updated_at"`
}

// InterviewStore handles interview record persistence.
type InterviewStore interface {
	// List returns every readable interview, most recently updated
	// first. A missing or corrupt backing document yields an empty list.
	List(ctx context.Context) ([]interview.Interview, error)

	// Get returns the interview with the given id, or None if there is
	// no such record.
	Get(ctx context.Context, id string) (
		fn.Option[interview.Interview], error)

	// Upsert inserts the interview or replaces the record with the same
	// id. UpdatedAt is refreshed as part of the write, and CreatedAt is
	// stamped when zero. The record as stored is returned.
	Upsert(ctx context.Context, iv interview.Interview) (
		interview.Interview, error)

	// Delete removes the interview, reporting whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// Reset removes every interview and the summary cache entry in a
	// single write.
	Reset(ctx context.Context) error
}

// SummaryCacheStore persists the reserved summary cache slot.
type SummaryCacheStore interface {
	// SummaryCache returns the stored cache entry, if any.
	SummaryCache(ctx context.Context) (fn.Option[SummaryEntry], error)

	// PutSummaryCache replaces the stored cache entry.
	PutSummaryCache(ctx context.Context, entry SummaryEntry) error
}

// Store combines all storage operations.
type Store interface {
	InterviewStore
	SummaryCacheStore

	// Close releases any resources held by the store.
	Close() error
}

// Clock returns the current time. Stores take one so tests can pin the
// timestamps they stamp on writes.
type Clock func() time.Time

// options holds the settings shared by the store implementations.
type options struct {
	clock Clock
}

// defaultOptions returns the default store options.
func defaultOptions() *options {
	return &options{
		clock: time.Now,
	}
}

// Option customizes a store.
type Option func(*options)

// WithClock overrides the clock used to stamp writes.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// stamp applies the write timestamps to a record. UpdatedAt never precedes
// CreatedAt, even if the clock stepped backwards.
func stamp(iv *interview.Interview, now time.Time) {
	now = now.UTC()
	if iv.CreatedAt.IsZero() {
		iv.CreatedAt = now
	}
	if now.Before(iv.CreatedAt) {
		now = iv.CreatedAt
	}
	iv.UpdatedAt = now
	if iv.Utterances == nil {
		iv.Utterances = []interview.Utterance{}
	}
}

// sortByRecency orders interviews by UpdatedAt descending, breaking ties by
// id so the order is stable across reads.
func sortByRecency(ivs []interview.Interview) {
	sort.SliceStable(ivs, func(i, j int) bool {
		a, b := ivs[i], ivs[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})
}
