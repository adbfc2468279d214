package casefile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"

	"github.com/roasbeef/midnight/internal/analyzer"
	"github.com/roasbeef/midnight/internal/blob"
	"github.com/roasbeef/midnight/internal/interview"
	"github.com/roasbeef/midnight/internal/store"
	"github.com/roasbeef/midnight/internal/summary"
	"github.com/roasbeef/midnight/internal/transcribe"
)

// fakeAnalyzer returns a canned analysis and records requests.
type fakeAnalyzer struct {
	mu       sync.Mutex
	requests []analyzer.Request
	result   interview.Analysis
	err      error
}

// AnalyzeGuilt records the request and returns the canned result.
func (f *fakeAnalyzer) AnalyzeGuilt(_ context.Context,
	req analyzer.Request) (interview.Analysis, error) {

	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	return f.result, f.err
}

// fakeTranscriber returns a canned transcript.
type fakeTranscriber struct {
	text string
	err  error
}

// Transcribe returns the canned transcript.
func (f *fakeTranscriber) Transcribe(_ context.Context,
	_ transcribe.Audio) (string, error) {

	return f.text, f.err
}

// fakeRanker always ranks Alice first.
type fakeRanker struct {
	calls int
}

// Rank returns a fixed ranking.
func (f *fakeRanker) Rank(_ context.Context, _, _ string) (any, error) {
	f.calls++
	return map[string]any{
		"ranking": []any{map[string]any{
			"name": "Alice", "rank": float64(1), "reason": "Alone.",
		}},
		"summary": "Alice.",
	}, nil
}

// failingBlobs wraps a blob store and fails deletes.
type failingBlobs struct {
	blob.Store
}

// Delete always fails.
func (f *failingBlobs) Delete(context.Context, string) error {
	return errors.New("disk on fire")
}

// harness bundles a service with its fakes.
type harness struct {
	svc         *Service
	store       *store.MockStore
	analyzer    *fakeAnalyzer
	transcriber *fakeTranscriber
	blobs       *blob.FSStore
	ranker      *fakeRanker
}

// newHarness wires a service to in-memory and temp dir collaborators.
func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store: store.NewMockStore(),
		analyzer: &fakeAnalyzer{result: interview.Analysis{
			GuiltScore: 7,
			Summary:    "Evasive.",
			Model:      "test-model",
		}},
		transcriber: &fakeTranscriber{text: "I was at the docks."},
		ranker:      &fakeRanker{},
	}

	blobs, err := blob.NewFSStore(filepath.Join(t.TempDir(), "audio"), nil)
	require.NoError(t, err)
	h.blobs = blobs

	h.svc = NewService(Deps{
		Store:       h.store,
		Analyzer:    h.analyzer,
		Transcriber: h.transcriber,
		Blobs:       blobs,
		Summary: summary.NewService(
			summary.DefaultConfig(), h.store, h.ranker, nil,
		),
	}, nil)

	return h
}

// blobCount returns the number of files in the blob dir.
func (h *harness) blobCount(t *testing.T) int {
	t.Helper()

	entries, err := os.ReadDir(h.blobs.Dir())
	require.NoError(t, err)

	return len(entries)
}

// TestAnalyzeAliceExample walks the canonical create, append and analyze
// flow.
func TestAnalyzeAliceExample(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	iv, err := h.svc.Create(ctx, "Alice", "")
	require.NoError(t, err)
	require.True(t, iv.CreatedAt.Equal(iv.UpdatedAt))

	_, err = h.svc.AppendUtterance(ctx, iv.ID, "interviewer",
		"Where were you?")
	require.NoError(t, err)
	_, err = h.svc.AppendUtterance(ctx, iv.ID, "suspect", "Home, alone.")
	require.NoError(t, err)

	analyzed, err := h.svc.RequestAnalysis(ctx, iv.ID, fn.None[string]())
	require.NoError(t, err)
	require.NotNil(t, analyzed.LastAnalysis)
	require.Equal(t, 7, analyzed.LastAnalysis.GuiltScore)

	got, err := h.svc.Get(ctx, iv.ID)
	require.NoError(t, err)
	require.Equal(t, 7, got.LastAnalysis.GuiltScore)
	require.Len(t, got.Utterances, 2)

	require.Len(t, h.analyzer.requests, 1)
	require.Equal(t,
		"interviewer: Where were you?\nsuspect: Home, alone.",
		h.analyzer.requests[0].Transcript,
	)
	require.Equal(t, interview.SourceLive, h.analyzer.requests[0].Source)
}

// TestAppendUtteranceErrors covers unknown ids and bad input.
func TestAppendUtteranceErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.AppendUtterance(ctx, "missing", "suspect", "hi")
	require.ErrorIs(t, err, interview.ErrNotFound)

	iv, err := h.svc.Create(ctx, "Bob", "")
	require.NoError(t, err)

	_, err = h.svc.AppendUtterance(ctx, iv.ID, "butler", "hi")
	require.ErrorIs(t, err, interview.ErrInvalidInput)

	_, err = h.svc.AppendUtterance(ctx, iv.ID, "suspect", "  ")
	require.ErrorIs(t, err, interview.ErrInvalidInput)
}

// TestRequestAnalysisPreconditions covers empty transcripts and missing
// records.
func TestRequestAnalysisPreconditions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.RequestAnalysis(ctx, "missing", fn.None[string]())
	require.ErrorIs(t, err, interview.ErrNotFound)

	iv, err := h.svc.Create(ctx, "Carol", "")
	require.NoError(t, err)

	_, err = h.svc.RequestAnalysis(ctx, iv.ID, fn.None[string]())
	require.ErrorIs(t, err, interview.ErrEmptyTranscript)
	require.Empty(t, h.analyzer.requests)
}

// TestRequestAnalysisOverride prefers a non-blank override context.
func TestRequestAnalysisOverride(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	iv, err := h.svc.Create(ctx, "Dan", "stored context")
	require.NoError(t, err)
	_, err = h.svc.AppendUtterance(ctx, iv.ID, "suspect", "Not me.")
	require.NoError(t, err)

	_, err = h.svc.RequestAnalysis(ctx, iv.ID, fn.Some("override"))
	require.NoError(t, err)
	_, err = h.svc.RequestAnalysis(ctx, iv.ID, fn.Some("   "))
	require.NoError(t, err)

	require.Equal(t, "override", h.analyzer.requests[0].CaseContext)
	require.Equal(t, "stored context", h.analyzer.requests[1].CaseContext)
}

// TestRequestAnalysisFailureLeavesRecord keeps the previous analysis when
// the analyzer fails.
func TestRequestAnalysisFailureLeavesRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	iv, err := h.svc.Create(ctx, "Eve", "")
	require.NoError(t, err)
	_, err = h.svc.AppendUtterance(ctx, iv.ID, "suspect", "Who, me?")
	require.NoError(t, err)
	_, err = h.svc.RequestAnalysis(ctx, iv.ID, fn.None[string]())
	require.NoError(t, err)

	h.analyzer.err = interview.ErrUpstream
	_, err = h.svc.RequestAnalysis(ctx, iv.ID, fn.None[string]())
	require.ErrorIs(t, err, interview.ErrUpstream)

	got, err := h.svc.Get(ctx, iv.ID)
	require.NoError(t, err)
	require.Equal(t, 7, got.LastAnalysis.GuiltScore)
}

// TestIngestAudio stores the recording and transcript.
func TestIngestAudio(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	iv, err := h.svc.IngestAudio(ctx, AudioUpload{
		SubjectName: "Frank",
		Filename:    "frank.mp3",
		Data:        []byte("ID3 audio"),
	})
	require.NoError(t, err)
	require.Equal(t, interview.SourceAudio, iv.Source)
	require.Equal(t, "I was at the docks.", iv.Transcript)
	require.NotEmpty(t, iv.AudioKey)

	data, err := h.svc.AudioBlob(ctx, iv.ID)
	require.NoError(t, err)
	require.Equal(t, []byte("ID3 audio"), data)

	// A second upload for the same name is a separate record.
	_, err = h.svc.IngestAudio(ctx, AudioUpload{
		SubjectName: "Frank",
		Filename:    "frank.mp3",
		Data:        []byte("more audio"),
	})
	require.NoError(t, err)

	found, err := h.svc.FindByName(ctx, "frank")
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, 2, h.blobCount(t))
}

// TestIngestAudioTranscriptionFailure removes the stored recording.
func TestIngestAudioTranscriptionFailure(t *testing.T) {
	h := newHarness(t)
	h.transcriber.err = interview.ErrUpstream

	_, err := h.svc.IngestAudio(context.Background(), AudioUpload{
		SubjectName: "Gina",
		Filename:    "gina.wav",
		Data:        []byte("RIFF"),
	})
	require.ErrorIs(t, err, interview.ErrUpstream)
	require.Zero(t, h.blobCount(t))

	all, err := h.svc.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, all)
}

// TestIngestAudioValidation rejects incomplete uploads.
func TestIngestAudioValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.IngestAudio(ctx, AudioUpload{Data: []byte("x")})
	require.ErrorIs(t, err, interview.ErrInvalidInput)

	_, err = h.svc.IngestAudio(ctx, AudioUpload{SubjectName: "Hal"})
	require.ErrorIs(t, err, interview.ErrInvalidInput)
}

// TestDeleteRemovesBlob deletes the record and its recording.
func TestDeleteRemovesBlob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	iv, err := h.svc.IngestAudio(ctx, AudioUpload{
		SubjectName: "Ivy",
		Filename:    "ivy.mp3",
		Data:        []byte("audio"),
	})
	require.NoError(t, err)

	require.NoError(t, h.svc.Delete(ctx, iv.ID))
	require.Zero(t, h.blobCount(t))

	err = h.svc.Delete(ctx, iv.ID)
	require.ErrorIs(t, err, interview.ErrNotFound)
}

// TestDeleteToleratesBlobFailure still deletes the record when the
// recording cannot be removed.
func TestDeleteToleratesBlobFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	iv, err := h.svc.IngestAudio(ctx, AudioUpload{
		SubjectName: "Jack",
		Filename:    "jack.mp3",
		Data:        []byte("audio"),
	})
	require.NoError(t, err)

	h.svc.deps.Blobs = &failingBlobs{Store: h.blobs}
	require.NoError(t, h.svc.Delete(ctx, iv.ID))

	_, err = h.svc.Get(ctx, iv.ID)
	require.ErrorIs(t, err, interview.ErrNotFound)
}

// TestResetAllExample resets two audio interviews and a cached summary.
func TestResetAllExample(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, name := range []string{"Alice", "Bob"} {
		_, err := h.svc.IngestAudio(ctx, AudioUpload{
			SubjectName: name,
			Filename:    name + ".mp3",
			Data:        []byte("audio of " + name),
		})
		require.NoError(t, err)
	}
	_, err := h.svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, h.blobCount(t))

	report, err := h.svc.ResetAll(ctx)
	require.NoError(t, err)
	require.Equal(t, ResetReport{Interviews: 2, BlobsRemoved: 2}, report)

	all, err := h.svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
	require.Zero(t, h.blobCount(t))

	cache, err := h.store.SummaryCache(ctx)
	require.NoError(t, err)
	require.False(t, cache.IsSome())

	_, err = h.svc.Summary(ctx)
	require.ErrorIs(t, err, interview.ErrNoTranscripts)
}

// TestResetAllStoreFailure keeps everything when the store write fails.
func TestResetAllStoreFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.IngestAudio(ctx, AudioUpload{
		SubjectName: "Kim",
		Filename:    "kim.mp3",
		Data:        []byte("audio"),
	})
	require.NoError(t, err)

	h.store.FailWrites(interview.ErrStorage)
	_, err = h.svc.ResetAll(ctx)
	require.ErrorIs(t, err, interview.ErrStorage)
	require.Equal(t, 1, h.blobCount(t))
}

// TestSummaryCaching ranks once until a transcript changes.
func TestSummaryCaching(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	iv, err := h.svc.Create(ctx, "Alice", "")
	require.NoError(t, err)
	_, err = h.svc.AppendUtterance(ctx, iv.ID, "suspect", "Home, alone.")
	require.NoError(t, err)

	first, err := h.svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, "Alice.", first.Result.Summary)

	// Analysis changes UpdatedAt but not the transcripts.
	_, err = h.svc.RequestAnalysis(ctx, iv.ID, fn.None[string]())
	require.NoError(t, err)

	second, err := h.svc.Summary(ctx)
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, 1, h.ranker.calls)

	_, err = h.svc.AppendUtterance(ctx, iv.ID, "suspect", "Honest!")
	require.NoError(t, err)
	_, err = h.svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, h.ranker.calls)
}

// TestFindByName covers exact and fuzzy matches.
func TestFindByName(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, name := range []string{"Alice", "Alicia", "Bob"} {
		_, err := h.svc.Create(ctx, name, "")
		require.NoError(t, err)
	}

	found, err := h.svc.FindByName(ctx, " ALICE ")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Alice", found[0].SubjectName)

	found, err = h.svc.FindByName(ctx, "Alic")
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, "Alice", found[0].SubjectName)

	found, err = h.svc.FindByName(ctx, "Zed")
	require.NoError(t, err)
	require.Empty(t, found)
}

// TestNotConfigured reports missing collaborators.
func TestNotConfigured(t *testing.T) {
	s := NewService(Deps{Store: store.NewMockStore()}, nil)
	ctx := context.Background()

	iv, err := s.Create(ctx, "Lou", "")
	require.NoError(t, err)
	_, err = s.AppendUtterance(ctx, iv.ID, "suspect", "Hi.")
	require.NoError(t, err)

	_, err = s.RequestAnalysis(ctx, iv.ID, fn.None[string]())
	require.ErrorIs(t, err, interview.ErrNotConfigured)

	_, err = s.IngestAudio(ctx, AudioUpload{
		SubjectName: "Lou", Data: []byte("x"),
	})
	require.ErrorIs(t, err, interview.ErrNotConfigured)

	_, err = s.Summary(ctx)
	require.ErrorIs(t, err, interview.ErrNotConfigured)
}
