// Package casefile implements the interview lifecycle: intake, utterance
// collection, guilt analysis, deletion and the suspect ranking across all
// interviews.
package casefile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/roasbeef/midnight/internal/analyzer"
	"github.com/roasbeef/midnight/internal/blob"
	"github.com/roasbeef/midnight/internal/interview"
	"github.com/roasbeef/midnight/internal/store"
	"github.com/roasbeef/midnight/internal/summary"
	"github.com/roasbeef/midnight/internal/transcribe"
)

// GuiltAnalyzer scores a single interview transcript.
type GuiltAnalyzer interface {
	AnalyzeGuilt(ctx context.Context, req analyzer.Request) (
		interview.Analysis, error)
}

// Deps are the collaborators of a Service. Analyzer, Transcriber and Blobs
// may be nil; the operations needing them then fail with ErrNotConfigured.
type Deps struct {
	Store       store.Store
	Analyzer    GuiltAnalyzer
	Transcriber transcribe.Transcriber
	Blobs       blob.Store
	Summary     *summary.Service
}

// Service coordinates the record store with the external collaborators.
type Service struct {
	deps Deps
	log  *slog.Logger
	now  func() time.Time

	// mu serializes read-modify-write cycles on records. It is never
	// held across an external call.
	mu sync.Mutex
}

// NewService creates a new lifecycle service.
func NewService(deps Deps, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		deps: deps,
		log:  log.With("component", "casefile"),
		now:  time.Now,
	}
}

// get loads a record or returns ErrNotFound.
func (s *Service) get(ctx context.Context,
	id string) (interview.Interview, error) {

	rec, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		return interview.Interview{}, err
	}

	return rec.UnwrapOrErr(
		fmt.Errorf("%w: %s", interview.ErrNotFound, id),
	)
}

// Create starts a new live interview.
func (s *Service) Create(ctx context.Context, subjectName,
	caseContext string) (interview.Interview, error) {

	iv, err := interview.New(subjectName, caseContext)
	if err != nil {
		return interview.Interview{}, err
	}

	stored, err := s.deps.Store.Upsert(ctx, iv)
	if err != nil {
		return interview.Interview{}, err
	}

	s.log.InfoContext(ctx, "Interview created",
		"interview_id", stored.ID, "subject", stored.SubjectName)

	return stored, nil
}

// List returns every interview, most recently updated first.
func (s *Service) List(ctx context.Context) ([]interview.Interview, error) {
	return s.deps.Store.List(ctx)
}

// Get returns the interview with the given id.
func (s *Service) Get(ctx context.Context,
	id string) (interview.Interview, error) {

	return s.get(ctx, id)
}

// AppendUtterance adds a line to a live interview.
func (s *Service) AppendUtterance(ctx context.Context, id, speaker,
	text string) (interview.Interview, error) {

	sp, err := interview.ParseSpeaker(speaker)
	if err != nil {
		return interview.Interview{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	iv, err := s.get(ctx, id)
	if err != nil {
		return interview.Interview{}, err
	}

	if err := iv.Append(sp, text, s.now()); err != nil {
		return interview.Interview{}, err
	}

	return s.deps.Store.Upsert(ctx, iv)
}

// RequestAnalysis scores the interview's transcript and stores the result
// as its LastAnalysis. A present, non-blank override replaces the stored
// case context for this analysis only. On any failure the record is left
// untouched.
func (s *Service) RequestAnalysis(ctx context.Context, id string,
	override fn.Option[string]) (interview.Interview, error) {

	iv, err := s.get(ctx, id)
	if err != nil {
		return interview.Interview{}, err
	}

	transcript := iv.EffectiveTranscript()
	if strings.TrimSpace(transcript) == "" {
		return interview.Interview{}, fmt.Errorf("%w: %s",
			interview.ErrEmptyTranscript, id)
	}

	if s.deps.Analyzer == nil {
		return interview.Interview{}, fmt.Errorf("%w: no analyzer",
			interview.ErrNotConfigured)
	}

	caseContext := iv.CaseContext
	override.WhenSome(func(c string) {
		if strings.TrimSpace(c) != "" {
			caseContext = c
		}
	})

	analysis, err := s.deps.Analyzer.AnalyzeGuilt(ctx, analyzer.Request{
		Transcript:  transcript,
		CaseContext: caseContext,
		Source:      iv.Source,
	})
	if err != nil {
		s.log.WarnContext(ctx, "Guilt analysis failed",
			"interview_id", id, "error", err)
		return interview.Interview{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Apply the result to the latest copy so lines appended while the
	// analyzer was running are kept.
	latest, err := s.get(ctx, id)
	if err != nil {
		return interview.Interview{}, err
	}
	latest.LastAnalysis = &analysis

	stored, err := s.deps.Store.Upsert(ctx, latest)
	if err != nil {
		return interview.Interview{}, err
	}

	s.log.InfoContext(ctx, "Interview analyzed", "interview_id", id,
		"guilt_score", analysis.GuiltScore,
		"fallback", analysis.RawModelOutput != "")

	return stored, nil
}

// removeBlob deletes a recording, logging instead of failing.
func (s *Service) removeBlob(ctx context.Context, key string) bool {
	if key == "" || s.deps.Blobs == nil {
		return false
	}

	if err := s.deps.Blobs.Delete(ctx, key); err != nil {
		s.log.WarnContext(ctx, "Unable to remove audio blob",
			"key", key, "error", err)
		return false
	}

	return true
}

// Delete removes the interview and then its recording, if any. A failure
// to remove the recording is logged and does not fail the call.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	iv, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	removed, err := s.deps.Store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: %s", interview.ErrNotFound, id)
	}

	s.removeBlob(ctx, iv.AudioKey)
	s.log.InfoContext(ctx, "Interview deleted", "interview_id", id)

	return nil
}

// ResetReport describes what ResetAll removed.
type ResetReport struct {
	Interviews   int `json:"interviews"`
	BlobsRemoved int `json:"blobs_removed"`
	BlobsFailed  int `json:"blobs_failed"`
}

// ResetAll clears every interview and the summary cache in one store write,
// then removes the recordings. Recording removal is best effort.
func (s *Service) ResetAll(ctx context.Context) (ResetReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ivs, err := s.deps.Store.List(ctx)
	if err != nil {
		return ResetReport{}, err
	}

	if err := s.deps.Store.Reset(ctx); err != nil {
		return ResetReport{}, err
	}

	report := ResetReport{Interviews: len(ivs)}
	for _, iv := range ivs {
		if iv.AudioKey == "" {
			continue
		}
		if s.removeBlob(ctx, iv.AudioKey) {
			report.BlobsRemoved++
		} else {
			report.BlobsFailed++
		}
	}

	s.log.InfoContext(ctx, "All interviews reset",
		"interviews", report.Interviews,
		"blobs_removed", report.BlobsRemoved,
		"blobs_failed", report.BlobsFailed)

	return report, nil
}

// Summary returns the suspect ranking across all interviews.
func (s *Service) Summary(ctx context.Context) (summary.Response, error) {
	if s.deps.Summary == nil {
		return summary.Response{}, fmt.Errorf("%w: no summary service",
			interview.ErrNotConfigured)
	}

	ivs, err := s.deps.Store.List(ctx)
	if err != nil {
		return summary.Response{}, err
	}

	return s.deps.Summary.GetSummary(ctx, ivs)
}

// AudioBlob returns the original recording of an audio interview.
func (s *Service) AudioBlob(ctx context.Context, id string) ([]byte, error) {
	iv, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if iv.AudioKey == "" || s.deps.Blobs == nil {
		return nil, fmt.Errorf("%w: interview %s has no recording",
			interview.ErrNotFound, id)
	}

	return s.deps.Blobs.Get(ctx, iv.AudioKey)
}
