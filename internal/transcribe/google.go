package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/roasbeef/midnight/internal/interview"
)

// recognizer is the slice of the speech client we use.
type recognizer interface {
	Recognize(ctx context.Context,
		req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse,
		error)
	Close() error
}

// speechClient adapts *speech.Client to recognizer.
type speechClient struct {
	client *speech.Client
}

// Recognize runs a synchronous recognition.
func (s *speechClient) Recognize(ctx context.Context,
	req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {

	return s.client.Recognize(ctx, req)
}

// Close releases the client connection.
func (s *speechClient) Close() error {
	return s.client.Close()
}

// Google transcribes with Google Cloud Speech-to-Text.
type Google struct {
	cfg    Config
	client recognizer
	log    *slog.Logger
}

// A compile-time check that Google satisfies Transcriber.
var _ Transcriber = (*Google)(nil)

// NewGoogle dials the speech service.
func NewGoogle(ctx context.Context, cfg Config,
	log *slog.Logger) (*Google, error) {

	if log == nil {
		log = slog.Default()
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create speech client: %v",
			interview.ErrNotConfigured, err)
	}

	return newGoogle(cfg, &speechClient{client: client}, log), nil
}

// newGoogle wires a Google transcriber around an existing recognizer.
func newGoogle(cfg Config, client recognizer, log *slog.Logger) *Google {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}

	return &Google{
		cfg:    cfg,
		client: client,
		log: log.With("component", "transcribe", "provider",
			ProviderGoogle),
	}
}

// encodingFor picks the recognition encoding from a file extension.
// Unknown extensions leave detection to the service.
func encodingFor(filename string) speechpb.RecognitionConfig_AudioEncoding {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return speechpb.RecognitionConfig_MP3
	case ".flac":
		return speechpb.RecognitionConfig_FLAC
	case ".wav":
		return speechpb.RecognitionConfig_LINEAR16
	case ".ogg", ".opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	case ".webm":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

// Transcribe runs a synchronous recognition over the recording.
func (g *Google) Transcribe(ctx context.Context, audio Audio) (string,
	error) {

	ctx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   encodingFor(audio.Filename),
			LanguageCode:               g.cfg.Language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: audio.Data,
			},
		},
	}

	resp, err := g.client.Recognize(ctx, req)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "", fmt.Errorf("%w: transcription timed out",
			interview.ErrUpstream)

	case err != nil:
		return "", fmt.Errorf("%w: speech recognition failed: %v",
			interview.ErrUpstream, err)
	}

	var parts []string
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if text := strings.TrimSpace(alts[0].GetTranscript()); text != "" {
			parts = append(parts, text)
		}
	}

	text := strings.Join(parts, " ")
	if text == "" {
		return "", errNoText
	}

	g.log.DebugContext(ctx, "Transcribed recording",
		"file", audio.Filename, "results", len(parts))

	return text, nil
}

// Close releases the speech client.
func (g *Google) Close() error {
	return g.client.Close()
}
