package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/roasbeef/midnight/internal/interview"
)

const (
	// documentVersion is the schema version written to the document.
	documentVersion = 1

	// DefaultDocumentPath is where the JSON store lives when no path is
	// configured.
	DefaultDocumentPath = "data/interviews.json"
)

// document is the on-disk layout of the JSON store. Records are decoded
// lazily so a single malformed record does not hide the rest.
type document struct {
	Version      int                        `json:"version"`
	Interviews   map[string]json.RawMessage `json:"interviews"`
	SummaryCache *SummaryEntry              `json:"summary_cache,omitempty"`
}

// emptyDocument returns a document with no records.
func emptyDocument() *document {
	return &document{
		Version:    documentVersion,
		Interviews: make(map[string]json.RawMessage),
	}
}

// JSONStore keeps the whole interview collection in a single JSON document.
// Every write replaces the document atomically: the new content goes to a
// temporary file in the same directory which is then renamed over the
// durable path, so readers only ever see a complete document.
type JSONStore struct {
	path string
	opts *options
	log  *slog.Logger

	// mu serializes read-modify-write cycles within this process.
	mu sync.Mutex

	// rename replaces the durable document. Tests swap it to simulate a
	// crash between writing the temp file and committing it.
	rename func(oldpath, newpath string) error
}

// A compile-time check that JSONStore satisfies Store.
var _ Store = (*JSONStore)(nil)

// NewJSONStore creates a store backed by the document at path. The parent
// directory is created if needed; the document itself is created on the
// first write.
func NewJSONStore(path string, log *slog.Logger,
	opts ...Option) (*JSONStore, error) {

	if path == "" {
		path = DefaultDocumentPath
	}
	if log == nil {
		log = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create store dir: %v",
			interview.ErrStorage, err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &JSONStore{
		path:   path,
		opts:   o,
		log:    log.With("component", "json_store", "path", path),
		rename: os.Rename,
	}, nil
}

// Path returns the location of the durable document.
func (s *JSONStore) Path() string {
	return s.path
}

// readDocument loads the durable document. A missing or undecodable file is
// treated as an empty store.
func (s *JSONStore) readDocument() *document {
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return emptyDocument()

	case err != nil:
		s.log.Warn("Unable to read store document, treating as empty",
			"error", err)
		return emptyDocument()
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return emptyDocument()
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn("Store document is corrupt, treating as empty",
			"error", err)
		return emptyDocument()
	}
	if doc.Interviews == nil {
		doc.Interviews = make(map[string]json.RawMessage)
	}
	doc.Version = documentVersion

	return &doc
}

// decodeRecord parses a single stored record, logging and skipping it if
// it is malformed.
func (s *JSONStore) decodeRecord(id string,
	raw json.RawMessage) (interview.Interview, bool) {

	var iv interview.Interview
	if err := json.Unmarshal(raw, &iv); err != nil {
		s.log.Warn("Skipping malformed interview record",
			"interview_id", id, "error", err)
		return interview.Interview{}, false
	}
	if iv.ID == "" {
		iv.ID = id
	}
	if iv.Source == "" {
		iv.Source = interview.SourceLive
	}
	if iv.Utterances == nil {
		iv.Utterances = []interview.Utterance{}
	}

	return iv, true
}

// writeDocument atomically replaces the durable document. On any failure the
// temporary file is removed and the previous document is left untouched.
func (s *JSONStore) writeDocument(doc *document) (err error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode document: %v",
			interview.ErrStorage, err)
	}

	dir := filepath.Dir(s.path)
	base := filepath.Base(s.path)
	tmp, err := os.CreateTemp(dir, base+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v",
			interview.ErrStorage, err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err == nil {
			return
		}
		if rmErr := os.Remove(tmpName); rmErr != nil &&
			!errors.Is(rmErr, os.ErrNotExist) {

			s.log.Warn("Unable to remove temp document",
				"temp", tmpName, "error", rmErr)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write temp file: %v",
			interview.ErrStorage, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync temp file: %v",
			interview.ErrStorage, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v",
			interview.ErrStorage, err)
	}

	if err = s.rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: replace document: %v",
			interview.ErrStorage, err)
	}

	return nil
}

// List returns every readable interview, most recently updated first.
func (s *JSONStore) List(_ context.Context) ([]interview.Interview, error) {
	doc := s.readDocument()

	ivs := make([]interview.Interview, 0, len(doc.Interviews))
	for id, raw := range doc.Interviews {
		if iv, ok := s.decodeRecord(id, raw); ok {
			ivs = append(ivs, iv)
		}
	}
	sortByRecency(ivs)

	return ivs, nil
}

// Get returns the interview with the given id.
func (s *JSONStore) Get(_ context.Context,
	id string) (fn.Option[interview.Interview], error) {

	doc := s.readDocument()

	raw, ok := doc.Interviews[id]
	if !ok {
		return fn.None[interview.Interview](), nil
	}

	iv, ok := s.decodeRecord(id, raw)
	if !ok {
		return fn.None[interview.Interview](), nil
	}

	return fn.Some(iv), nil
}

// Upsert inserts or replaces the interview and persists the document.
func (s *JSONStore) Upsert(_ context.Context,
	iv interview.Interview) (interview.Interview, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := iv.Clone()
	stamp(&stored, s.opts.clock())
	if err := stored.Validate(); err != nil {
		return interview.Interview{}, err
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return interview.Interview{}, fmt.Errorf("%w: encode "+
			"interview: %v", interview.ErrStorage, err)
	}

	doc := s.readDocument()
	doc.Interviews[stored.ID] = raw

	if err := s.writeDocument(doc); err != nil {
		return interview.Interview{}, err
	}

	return stored, nil
}

// Delete removes the interview with the given id.
func (s *JSONStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.readDocument()
	if _, ok := doc.Interviews[id]; !ok {
		return false, nil
	}
	delete(doc.Interviews, id)

	if err := s.writeDocument(doc); err != nil {
		return false, err
	}

	return true, nil
}

// Reset clears all interviews and the summary cache in one write.
func (s *JSONStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeDocument(emptyDocument())
}

// SummaryCache returns the stored summary cache entry.
func (s *JSONStore) SummaryCache(
	_ context.Context) (fn.Option[SummaryEntry], error) {

	doc := s.readDocument()
	if doc.SummaryCache == nil || doc.SummaryCache.ContentHash == "" {
		return fn.None[SummaryEntry](), nil
	}

	return fn.Some(*doc.SummaryCache), nil
}

// PutSummaryCache replaces the stored summary cache entry.
func (s *JSONStore) PutSummaryCache(_ context.Context,
	entry SummaryEntry) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = s.opts.clock().UTC()
	}

	doc := s.readDocument()
	doc.SummaryCache = &entry

	return s.writeDocument(doc)
}

// Close is a no-op; the document is closed after every access.
func (s *JSONStore) Close() error {
	return nil
}
