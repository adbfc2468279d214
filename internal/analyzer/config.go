package analyzer

import "time"

const (
	// DefaultBaseURL is the OpenAI compatible endpoint used when none is
	// configured.
	DefaultBaseURL = "https://ai.hackclub.com/proxy/v1"

	// DefaultModel is the chat model used for analysis and ranking.
	DefaultModel = "qwen/qwen3-32b"

	// DefaultTimeout bounds a single guilt analysis call.
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the analyzer client.
type Config struct {
	// APIKey authenticates against the endpoint. An empty key leaves the
	// client unconfigured; every call then fails with ErrNotConfigured.
	APIKey string

	// BaseURL is the OpenAI compatible API root.
	BaseURL string

	// Model is the chat model to use.
	Model string

	// Timeout bounds each guilt analysis call. Ranking calls are bounded
	// by their caller.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults and no API key.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Model:   DefaultModel,
		Timeout: DefaultTimeout,
	}
}
