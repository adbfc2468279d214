// Package analyzer talks to an OpenAI compatible chat completion endpoint to
// score how guilty a suspect sounds and to rank suspects against each
// other.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/roasbeef/midnight/internal/interview"
)

// Request is a single guilt analysis.
type Request struct {
	Transcript  string
	CaseContext string

	// Source picks the score scale.
	Source interview.Source
}

// Client scores interviews and ranks suspects.
type Client struct {
	cfg    Config
	client *openai.Client
	log    *slog.Logger
	now    func() time.Time
}

// New creates an analyzer client. A config without an API key yields a
// client whose calls fail with ErrNotConfigured.
func New(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	c := &Client{
		cfg: cfg,
		log: log.With("component", "analyzer", "model", cfg.Model),
		now: time.Now,
	}

	if cfg.APIKey != "" {
		oaiCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oaiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
		c.client = openai.NewClientWithConfig(oaiCfg)
	}

	return c
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c.client != nil
}

// Model returns the model the client calls.
func (c *Client) Model() string {
	return c.cfg.Model
}

// complete runs a single system + user chat completion and returns the reply
// text.
func (c *Client) complete(ctx context.Context, system,
	user string) (string, error) {

	if c.client == nil {
		return "", fmt.Errorf("%w: analyzer API key is not set",
			interview.ErrNotConfigured)
	}

	start := c.now()
	resp, err := c.client.CreateChatCompletion(
		ctx, openai.ChatCompletionRequest{
			Model: c.cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: system,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: user,
				},
			},
		},
	)
	if err != nil {
		return "", upstreamErr(err)
	}

	c.log.DebugContext(ctx, "Chat completion finished",
		"duration", c.now().Sub(start),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: model returned no choices",
			interview.ErrUpstream)
	}

	return resp.Choices[0].Message.Content, nil
}

// upstreamErr classifies a failed completion call.
func upstreamErr(err error) error {
	var apiErr *openai.APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: model call timed out", interview.ErrUpstream)

	case errors.As(err, &apiErr):
		return fmt.Errorf("%w: model endpoint returned %d: %s",
			interview.ErrUpstream, apiErr.HTTPStatusCode,
			apiErr.Message)

	default:
		return fmt.Errorf("%w: %v", interview.ErrUpstream, err)
	}
}

// AnalyzeGuilt scores a transcript on the scale of the request's source.
func (c *Client) AnalyzeGuilt(ctx context.Context,
	req Request) (interview.Analysis, error) {

	if strings.TrimSpace(req.Transcript) == "" {
		return interview.Analysis{}, interview.ErrEmptyTranscript
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	lo, hi := req.Source.ScoreRange()
	content, err := c.complete(
		ctx, guiltSystemPrompt(lo, hi),
		buildGuiltPrompt(req.Transcript, req.CaseContext),
	)
	if err != nil {
		return interview.Analysis{}, err
	}

	v, err := parseVerdict(content, lo, hi)
	if err != nil {
		c.log.WarnContext(ctx, "Unusable guilt analysis reply",
			"reply", content)
		return interview.Analysis{}, err
	}
	if v.raw != "" {
		c.log.InfoContext(ctx, "Guilt reply needed fallback parsing",
			"score", v.score)
	}

	return interview.Analysis{
		GuiltScore:     v.score,
		Summary:        v.summary,
		RawModelOutput: v.raw,
		Model:          c.cfg.Model,
		AnalyzedAt:     c.now().UTC(),
	}, nil
}

// Rank asks the model for a suspect ranking and returns its reply decoded
// as generic JSON, or as text if it was not JSON.
func (c *Client) Rank(ctx context.Context, systemPrompt,
	userPrompt string) (any, error) {

	content, err := c.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	return decodeRanking(content), nil
}
