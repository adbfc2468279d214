package interview

import "errors"

var (
	// ErrNotFound is returned when no interview has the requested id.
	ErrNotFound = errors.New("interview not found")

	// ErrInvalidInput is returned when a request violates a record
	// invariant, such as an empty subject name or an unknown speaker.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyTranscript is returned when an analysis is requested for an
	// interview with nothing to analyze.
	ErrEmptyTranscript = errors.New("interview has no transcript")

	// ErrNoTranscripts is returned when a summary is requested before any
	// interview has a transcript.
	ErrNoTranscripts = errors.New("no interview transcripts available")

	// ErrUpstream is returned when the analyzer or transcriber failed,
	// timed out, or returned content that could not be used.
	ErrUpstream = errors.New("upstream service error")

	// ErrNotConfigured is returned when an external collaborator is
	// missing its credentials.
	ErrNotConfigured = errors.New("service not configured")

	// ErrStorage is returned when a durable write failed.
	ErrStorage = errors.New("storage error")
)
