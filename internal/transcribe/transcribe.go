// Package transcribe turns uploaded interview recordings into text.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roasbeef/midnight/internal/interview"
)

const (
	// ProviderOpenAI transcribes through an OpenAI compatible audio
	// endpoint.
	ProviderOpenAI = "openai"

	// ProviderGoogle transcribes through Google Cloud Speech-to-Text.
	ProviderGoogle = "google"

	// DefaultModel is the Whisper model used by the OpenAI provider.
	DefaultModel = "whisper-1"

	// DefaultLanguage is the recognition language for Google.
	DefaultLanguage = "en-US"

	// DefaultTimeout bounds a single transcription.
	DefaultTimeout = 120 * time.Second
)

// Audio is an uploaded recording.
type Audio struct {
	// Filename is the client supplied name; its extension selects the
	// encoding where the provider needs one.
	Filename string

	Data []byte
}

// Transcriber converts audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
}

// Config selects and configures a transcription provider.
type Config struct {
	// Provider is ProviderOpenAI or ProviderGoogle.
	Provider string

	// APIKey and BaseURL configure the OpenAI provider.
	APIKey  string
	BaseURL string
	Model   string

	// CredentialsFile and Language configure the Google provider. An
	// empty credentials file uses application default credentials.
	CredentialsFile string
	Language        string

	// Timeout bounds each transcription.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderOpenAI,
		Model:    DefaultModel,
		Language: DefaultLanguage,
		Timeout:  DefaultTimeout,
	}
}

// New builds the transcriber named by cfg.Provider.
func New(ctx context.Context, cfg Config, log *slog.Logger) (Transcriber,
	error) {

	if log == nil {
		log = slog.Default()
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		return NewOpenAI(cfg, log), nil

	case ProviderGoogle:
		return NewGoogle(ctx, cfg, log)

	default:
		return nil, fmt.Errorf("%w: unknown transcriber %q",
			interview.ErrInvalidInput, cfg.Provider)
	}
}

// withTimeout applies the configured bound to ctx.
func withTimeout(ctx context.Context,
	timeout time.Duration) (context.Context, context.CancelFunc) {

	if timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}

// errNoText is returned when a provider produced no text.
var errNoText = fmt.Errorf("%w: transcription returned no text",
	interview.ErrUpstream)
