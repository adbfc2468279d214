package commands

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"

	"github.com/roasbeef/midnight/internal/analyzer"
	"github.com/roasbeef/midnight/internal/blob"
	"github.com/roasbeef/midnight/internal/casefile"
	"github.com/roasbeef/midnight/internal/interview"
	"github.com/roasbeef/midnight/internal/store"
	"github.com/roasbeef/midnight/internal/summary"
	"github.com/roasbeef/midnight/internal/transcribe"
	"github.com/roasbeef/midnight/internal/web"
)

// stubAnalyzer returns the top of the scale for every interview.
type stubAnalyzer struct{}

func (stubAnalyzer) AnalyzeGuilt(_ context.Context,
	req analyzer.Request) (interview.Analysis, error) {

	_, hi := req.Source.ScoreRange()
	return interview.Analysis{GuiltScore: hi, Summary: "Lying."}, nil
}

// stubTranscriber returns a fixed transcript.
type stubTranscriber struct{}

func (stubTranscriber) Transcribe(context.Context,
	transcribe.Audio) (string, error) {

	return "I heard nothing.", nil
}

// stubRanker ranks nobody.
type stubRanker struct{}

func (stubRanker) Rank(context.Context, string, string) (any, error) {
	return "Nobody stands out.", nil
}

// newTestClient starts a daemon API on httptest and connects to it.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMockStore()
	blobs, err := blob.NewFSStore(t.TempDir(), nil)
	require.NoError(t, err)

	svc := casefile.NewService(casefile.Deps{
		Store:       st,
		Analyzer:    stubAnalyzer{},
		Transcriber: stubTranscriber{},
		Blobs:       blobs,
		Summary: summary.NewService(
			summary.DefaultConfig(), st, stubRanker{}, nil,
		),
	}, nil)

	srv := httptest.NewServer(
		web.NewServer(web.DefaultConfig(), svc, nil).Handler(),
	)
	t.Cleanup(srv.Close)

	client, err := tryHTTPClient(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, ModeHTTP, client.Mode())

	return client
}

// TestHTTPClientLifecycle drives every operation over HTTP.
func TestHTTPClientLifecycle(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	iv, err := client.Create(ctx, "Alice", "Library.")
	require.NoError(t, err)

	iv, err = client.Say(ctx, iv.ID, "suspect", "I was reading.")
	require.NoError(t, err)
	require.Len(t, iv.Utterances, 1)

	analysis, err := client.Analyze(ctx, iv.ID, fn.Some("Override."))
	require.NoError(t, err)
	require.Equal(t, 10, analysis.GuiltScore)

	rows, err := client.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	resp, err := client.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, "Nobody stands out.", resp.Result.Summary)
	require.Empty(t, resp.Result.Ranking)

	audioPath := filepath.Join(t.TempDir(), "bob.mp3")
	require.NoError(t, os.WriteFile(audioPath, []byte("ID3 audio"), 0o600))
	audio, err := client.Upload(ctx, audioPath, "Bob", "")
	require.NoError(t, err)
	require.Equal(t, interview.SourceAudio, audio.Source)
	require.Equal(t, "I heard nothing.", audio.Transcript)

	require.NoError(t, client.Delete(ctx, iv.ID))
	_, err = client.Get(ctx, iv.ID)
	require.ErrorIs(t, err, interview.ErrNotFound)

	report, err := client.Reset(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Interviews)
	require.Equal(t, 1, report.BlobsRemoved)
}

// TestHTTPClientErrors maps API error codes back onto sentinels.
func TestHTTPClientErrors(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	_, err := client.Create(ctx, " ", "")
	require.ErrorIs(t, err, interview.ErrInvalidInput)

	iv, err := client.Create(ctx, "Carol", "")
	require.NoError(t, err)

	_, err = client.Analyze(ctx, iv.ID, fn.None[string]())
	require.ErrorIs(t, err, interview.ErrEmptyTranscript)

	_, err = client.Summary(ctx)
	require.ErrorIs(t, err, interview.ErrNoTranscripts)
}

// TestWriteInterviewTable renders scores against their scale.
func TestWriteInterviewTable(t *testing.T) {
	score := 7
	var buf bytes.Buffer
	require.NoError(t, writeInterviewTable(&buf, []interview.Summary{{
		ID:             "abc",
		SubjectName:    "Alice",
		Source:         interview.SourceLive,
		UtteranceCount: 2,
		LastGuiltScore: &score,
	}}))
	require.Contains(t, buf.String(), "7/10")
	require.Contains(t, buf.String(), "Alice")

	buf.Reset()
	require.NoError(t, writeInterviewTable(&buf, nil))
	require.Equal(t, "No interviews.\n", buf.String())
}
