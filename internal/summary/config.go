package summary

import "time"

const (
	// DefaultTimeout bounds a single ranking call.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxTranscriptChars caps how much of each transcript is
	// quoted in the ranking prompt.
	DefaultMaxTranscriptChars = 8000
)

// Config holds configuration for the summary service.
type Config struct {
	// Timeout bounds each call to the ranker.
	Timeout time.Duration

	// MaxTranscriptChars caps each transcript in the prompt. Zero means
	// no cap. The content hash always covers the full transcripts.
	MaxTranscriptChars int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:            DefaultTimeout,
		MaxTranscriptChars: DefaultMaxTranscriptChars,
	}
}
