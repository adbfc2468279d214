package store

import (
	"context"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/roasbeef/midnight/internal/interview"
)

// TestUpsertIdempotentInvariant verifies that upserting the same record any
// number of times leaves exactly one copy with its original CreatedAt.
func TestUpsertIdempotentInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store := NewMockStore()
		ctx := context.Background()

		iv := newInterview(t, rapid.StringMatching(`[A-Z][a-z]+`).Draw(
			t, "name",
		))
		first, err := store.Upsert(ctx, iv)
		if err != nil {
			t.Fatal(err)
		}

		n := rapid.IntRange(1, 10).Draw(t, "repeats")
		for i := 0; i < n; i++ {
			if _, err := store.Upsert(ctx, first); err != nil {
				t.Fatal(err)
			}
		}

		all, err := store.List(ctx)
		if err != nil {
			t.Fatal(err)
		}

		// PROPERTY: One record, creation time unchanged.
		if len(all) != 1 {
			t.Fatalf("expected 1 record, got %d", len(all))
		}
		if !all[0].CreatedAt.Equal(first.CreatedAt) {
			t.Fatalf("created_at moved: %v -> %v",
				first.CreatedAt, all[0].CreatedAt)
		}
		if all[0].UpdatedAt.Before(all[0].CreatedAt) {
			t.Fatalf("updated_at precedes created_at")
		}
	})
}

// TestAppendOrderInvariant verifies utterances come back in the order they
// were appended, across store round trips.
func TestAppendOrderInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store := NewMockStore()
		ctx := context.Background()

		iv, err := store.Upsert(ctx, newInterview(t, "Alice"))
		if err != nil {
			t.Fatal(err)
		}

		texts := rapid.SliceOfN(
			rapid.StringMatching(`[a-z]{1,12}`), 1, 20,
		).Draw(t, "texts")

		for _, text := range texts {
			speaker := rapid.SampledFrom([]interview.Speaker{
				interview.SpeakerInterviewer,
				interview.SpeakerSuspect,
			}).Draw(t, "speaker")

			err := iv.Append(speaker, text, time.Now())
			if err != nil {
				t.Fatal(err)
			}
			iv, err = store.Upsert(ctx, iv)
			if err != nil {
				t.Fatal(err)
			}
		}

		got, err := store.Get(ctx, iv.ID)
		if err != nil {
			t.Fatal(err)
		}
		stored := got.UnwrapOr(interview.Interview{})

		// PROPERTY: Append order is preserved.
		if len(stored.Utterances) != len(texts) {
			t.Fatalf("expected %d utterances, got %d", len(texts),
				len(stored.Utterances))
		}
		for i, text := range texts {
			if stored.Utterances[i].Text != text {
				t.Fatalf("utterance %d: want %q got %q", i, text,
					stored.Utterances[i].Text)
			}
		}
	})
}
