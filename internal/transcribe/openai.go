package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/roasbeef/midnight/internal/interview"
)

// OpenAI transcribes with a Whisper model behind an OpenAI compatible
// endpoint.
type OpenAI struct {
	cfg    Config
	client *openai.Client
	log    *slog.Logger
}

// A compile-time check that OpenAI satisfies Transcriber.
var _ Transcriber = (*OpenAI)(nil)

// NewOpenAI creates a Whisper transcriber. Without an API key every call
// fails with ErrNotConfigured.
func NewOpenAI(cfg Config, log *slog.Logger) *OpenAI {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	t := &OpenAI{
		cfg: cfg,
		log: log.With("component", "transcribe", "provider",
			ProviderOpenAI),
	}
	if cfg.APIKey != "" {
		oaiCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oaiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
		t.client = openai.NewClientWithConfig(oaiCfg)
	}

	return t
}

// Transcribe uploads the recording and returns the recognized text.
func (t *OpenAI) Transcribe(ctx context.Context, audio Audio) (string,
	error) {

	if t.client == nil {
		return "", fmt.Errorf("%w: transcription API key is not set",
			interview.ErrNotConfigured)
	}

	ctx, cancel := withTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	name := audio.Filename
	if name == "" {
		name = "interview.mp3"
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.cfg.Model,
		FilePath: name,
		Reader:   bytes.NewReader(audio.Data),
	})
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "", fmt.Errorf("%w: transcription timed out",
			interview.ErrUpstream)

	case err != nil:
		return "", fmt.Errorf("%w: transcription failed: %v",
			interview.ErrUpstream, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", errNoText
	}

	t.log.DebugContext(ctx, "Transcribed recording", "file", name,
		"bytes", len(audio.Data), "chars", len(text))

	return text, nil
}
