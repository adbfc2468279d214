package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roasbeef/midnight/internal/interview"
	"github.com/roasbeef/midnight/internal/store"
)

// Ranker produces a suspect ranking from a prompt. The returned value is the
// decoded JSON reply (or the raw text when the reply was not JSON); its
// shape is not trusted and always goes through Normalize.
type Ranker interface {
	Rank(ctx context.Context, systemPrompt, userPrompt string) (any, error)
}

// Service maintains the cached suspect ranking. The cache is valid for as
// long as the content hash of the transcripts it was built from matches the
// current records; validity is re-derived on every request.
//
// There is no locking across requests: two concurrent requests against a
// stale cache may both call the ranker, and both then write an entry for
// the same hash.
type Service struct {
	cfg    Config
	store  store.SummaryCacheStore
	ranker Ranker
	log    *slog.Logger
	now    func() time.Time
}

// NewService creates a new summary service.
func NewService(cfg Config, cache store.SummaryCacheStore, ranker Ranker,
	log *slog.Logger) *Service {

	if log == nil {
		log = slog.Default()
	}

	return &Service{
		cfg:    cfg,
		store:  cache,
		ranker: ranker,
		log:    log.With("component", "summary"),
		now:    time.Now,
	}
}

// GetSummary returns the ranking for the given records, calling the ranker
// only when the transcripts changed since the stored entry was built.
func (s *Service) GetSummary(ctx context.Context,
	records []interview.Interview) (Response, error) {

	subjects := collectSubjects(records)
	if len(subjects) == 0 {
		return Response{}, interview.ErrNoTranscripts
	}
	hash := contentHash(subjects)

	stored, err := s.store.SummaryCache(ctx)
	if err != nil {
		return Response{}, err
	}

	if entry, ok := s.cacheHit(ctx, stored.UnwrapOr(store.SummaryEntry{}),
		hash); ok {

		return Response{
			Result:      entry,
			ContentHash: hash,
			Cached:      true,
		}, nil
	}

	s.log.InfoContext(ctx, "Summary cache stale, ranking suspects",
		"content_hash", hash, "subjects", len(subjects))

	result, err := s.rank(ctx, subjects)
	if err != nil {
		return Response{}, err
	}

	if err := s.persist(ctx, hash, result); err != nil {
		return Response{}, err
	}

	return Response{Result: result, ContentHash: hash}, nil
}

// cacheHit returns the normalized stored result when entry matches hash.
// Entries written in an older shape are rewritten in canonical form.
func (s *Service) cacheHit(ctx context.Context, entry store.SummaryEntry,
	hash string) (Result, bool) {

	if entry.ContentHash == "" || entry.ContentHash != hash {
		return Result{}, false
	}

	result, ok := NormalizeJSON(entry.Result)
	if !ok {
		s.log.WarnContext(ctx, "Stored summary is not JSON, "+
			"discarding", "content_hash", hash)
		return Result{}, false
	}

	canonical, err := json.Marshal(result)
	if err != nil {
		return Result{}, false
	}

	var compacted bytes.Buffer
	if err := json.Compact(&compacted, entry.Result); err != nil ||
		!bytes.Equal(compacted.Bytes(), canonical) {

		s.log.InfoContext(ctx, "Rewriting summary cache in "+
			"canonical form", "content_hash", hash)

		err := s.store.PutSummaryCache(ctx, store.SummaryEntry{
			ContentHash: hash,
			Result:      canonical,
			UpdatedAt:   s.now().UTC(),
		})
		if err != nil {
			s.log.WarnContext(ctx, "Unable to rewrite summary cache",
				"error", err)
		}
	}

	return result, true
}

// rank calls the ranker under the configured timeout and normalizes its
// reply.
func (s *Service) rank(ctx context.Context, subjects []subject) (Result,
	error) {

	if s.ranker == nil {
		return Result{}, fmt.Errorf("%w: no ranker configured",
			interview.ErrNotConfigured)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	prompt := buildRankingPrompt(subjects, s.cfg.MaxTranscriptChars)
	raw, err := s.ranker.Rank(ctx, rankingSystemPrompt, prompt)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Result{}, fmt.Errorf("%w: ranking timed out",
			interview.ErrUpstream)

	case err != nil:
		return Result{}, err
	}

	return Normalize(raw), nil
}

// persist stores result as the entry for hash.
func (s *Service) persist(ctx context.Context, hash string,
	result Result) error {

	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("%w: encode summary: %v",
			interview.ErrStorage, err)
	}

	return s.store.PutSummaryCache(ctx, store.SummaryEntry{
		ContentHash: hash,
		Result:      encoded,
		UpdatedAt:   s.now().UTC(),
	})
}
