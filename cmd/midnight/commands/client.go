package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/roasbeef/midnight/internal/app"
	"github.com/roasbeef/midnight/internal/build"
	"github.com/roasbeef/midnight/internal/casefile"
	"github.com/roasbeef/midnight/internal/config"
	"github.com/roasbeef/midnight/internal/interview"
	"github.com/roasbeef/midnight/internal/summary"
	"github.com/roasbeef/midnight/internal/web"
)

const (
	// defaultServerURL is where midnightd listens by default.
	defaultServerURL = "http://localhost:8000"

	// healthTimeout bounds the daemon reachability probe.
	healthTimeout = 2 * time.Second

	// requestTimeout bounds a single API call. Analysis and ranking go
	// through a language model, so this is generous.
	requestTimeout = 3 * time.Minute
)

// ClientMode indicates how the client reaches the interview service.
type ClientMode int

const (
	// ModeHTTP talks to a running midnightd.
	ModeHTTP ClientMode = iota

	// ModeDirect runs the service in process against the local store.
	ModeDirect
)

// String returns a human-readable string for the client mode.
func (m ClientMode) String() string {
	switch m {
	case ModeHTTP:
		return "http"
	case ModeDirect:
		return "direct"
	default:
		return "unknown"
	}
}

// Client performs interview operations over HTTP or in process.
type Client struct {
	mode ClientMode

	// When using HTTP mode.
	baseURL    string
	httpClient *http.Client

	// When using direct mode.
	app       *app.App
	logCloser io.Closer
}

// getClient returns an HTTP client when the daemon answers its health
// check, and a direct client otherwise.
func getClient(ctx context.Context) (*Client, error) {
	if direct {
		return getDirectClient(ctx)
	}

	base := resolveServerURL()
	client, err := tryHTTPClient(ctx, base)
	if err == nil {
		return client, nil
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Note: daemon not reachable at %s "+
			"(%v), using direct store access\n", base, err)
	}

	return getDirectClient(ctx)
}

// resolveServerURL picks the daemon URL from the flag, the environment or
// the default.
func resolveServerURL() string {
	base := serverURL
	if base == "" {
		base = os.Getenv("MIDNIGHT_SERVER")
	}
	if base == "" {
		base = defaultServerURL
	}

	return strings.TrimRight(base, "/")
}

// tryHTTPClient probes the daemon's health endpoint.
func tryHTTPClient(ctx context.Context, base string) (*Client, error) {
	c := &Client{
		mode:       ModeHTTP,
		baseURL:    base,
		httpClient: &http.Client{Timeout: requestTimeout},
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := c.do(ctx, http.MethodGet, "/health", nil, nil); err != nil {
		return nil, err
	}

	return c, nil
}

// getDirectClient opens the configured store and service in process.
func getDirectClient(ctx context.Context) (*Client, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logCfg := cfg.Log
	logCfg.Dir = ""
	if !verbose {
		logCfg.Level = "error"
	}
	logger, logCloser, err := build.NewLogger(logCfg)
	if err != nil {
		return nil, err
	}

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	return &Client{
		mode:      ModeDirect,
		app:       a,
		logCloser: logCloser,
	}, nil
}

// Close releases the client's resources.
func (c *Client) Close() error {
	if c.app == nil {
		return nil
	}

	err := c.app.Close()
	c.logCloser.Close()

	return err
}

// Mode returns how the client is connected.
func (c *Client) Mode() ClientMode {
	return c.mode
}

// codeErrors maps API error codes back onto the service sentinels.
var codeErrors = map[string]error{
	"not_found":        interview.ErrNotFound,
	"invalid_input":    interview.ErrInvalidInput,
	"empty_transcript": interview.ErrEmptyTranscript,
	"no_transcripts":   interview.ErrNoTranscripts,
	"upstream_error":   interview.ErrUpstream,
	"not_configured":   interview.ErrNotConfigured,
	"storage_error":    interview.ErrStorage,
}

// apiError converts an error response into a Go error.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var apiErr web.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil ||
		apiErr.Error.Code == "" {

		return fmt.Errorf("server returned %s", resp.Status)
	}

	if sentinel, ok := codeErrors[apiErr.Error.Code]; ok {
		return fmt.Errorf("%w (%s)", sentinel, apiErr.Error.Message)
	}

	return errors.New(apiErr.Error.Message)
}

// do sends a JSON request and decodes the JSON reply into out.
func (c *Client) do(ctx context.Context, method, path string, in,
	out any) error {

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(
		ctx, method, c.baseURL+path, body,
	)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

// send executes req and decodes the reply.
func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// List returns the interview listing, optionally filtered by name.
func (c *Client) List(ctx context.Context,
	name string) ([]interview.Summary, error) {

	if c.mode == ModeDirect {
		var (
			ivs []interview.Interview
			err error
		)
		if name != "" {
			ivs, err = c.app.Service.FindByName(ctx, name)
		} else {
			ivs, err = c.app.Service.List(ctx)
		}
		if err != nil {
			return nil, err
		}

		rows := make([]interview.Summary, 0, len(ivs))
		for i := range ivs {
			rows = append(rows, ivs[i].Summarize())
		}
		return rows, nil
	}

	path := "/interviews"
	if name != "" {
		path += "?name=" + url.QueryEscape(name)
	}

	var rows []interview.Summary
	if err := c.do(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return nil, err
	}

	return rows, nil
}

// Get returns a single interview.
func (c *Client) Get(ctx context.Context,
	id string) (interview.Interview, error) {

	if c.mode == ModeDirect {
		return c.app.Service.Get(ctx, id)
	}

	var iv interview.Interview
	err := c.do(ctx, http.MethodGet, "/interviews/"+url.PathEscape(id),
		nil, &iv)

	return iv, err
}

// Create starts a live interview.
func (c *Client) Create(ctx context.Context, subjectName,
	caseContext string) (interview.Interview, error) {

	if c.mode == ModeDirect {
		return c.app.Service.Create(ctx, subjectName, caseContext)
	}

	var iv interview.Interview
	err := c.do(ctx, http.MethodPost, "/interviews", map[string]string{
		"subject_name": subjectName,
		"case_context": caseContext,
	}, &iv)

	return iv, err
}

// Say appends an utterance.
func (c *Client) Say(ctx context.Context, id, speaker,
	text string) (interview.Interview, error) {

	if c.mode == ModeDirect {
		return c.app.Service.AppendUtterance(ctx, id, speaker, text)
	}

	var iv interview.Interview
	err := c.do(ctx, http.MethodPost,
		"/interviews/"+url.PathEscape(id)+"/utterances",
		map[string]string{"speaker": speaker, "text": text}, &iv)

	return iv, err
}

// Analyze scores an interview.
func (c *Client) Analyze(ctx context.Context, id string,
	override fn.Option[string]) (interview.Analysis, error) {

	if c.mode == ModeDirect {
		iv, err := c.app.Service.RequestAnalysis(ctx, id, override)
		if err != nil {
			return interview.Analysis{}, err
		}
		return *iv.LastAnalysis, nil
	}

	body := map[string]string{}
	override.WhenSome(func(s string) {
		body["case_context"] = s
	})

	var analysis interview.Analysis
	err := c.do(ctx, http.MethodPost,
		"/interviews/"+url.PathEscape(id)+"/analyze", body, &analysis)

	return analysis, err
}

// Upload ingests a recorded interview from a local file.
func (c *Client) Upload(ctx context.Context, path, subjectName,
	caseContext string) (interview.Interview, error) {

	data, err := os.ReadFile(path)
	if err != nil {
		return interview.Interview{}, err
	}
	filename := filepath.Base(path)

	if c.mode == ModeDirect {
		return c.app.Service.IngestAudio(ctx, casefile.AudioUpload{
			SubjectName: subjectName,
			CaseContext: caseContext,
			Filename:    filename,
			Data:        data,
		})
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("subject_name", subjectName); err != nil {
		return interview.Interview{}, err
	}
	if err := mw.WriteField("case_context", caseContext); err != nil {
		return interview.Interview{}, err
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return interview.Interview{}, err
	}
	if _, err := fw.Write(data); err != nil {
		return interview.Interview{}, err
	}
	if err := mw.Close(); err != nil {
		return interview.Interview{}, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/interviews/audio", &buf,
	)
	if err != nil {
		return interview.Interview{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var iv interview.Interview
	err = c.send(req, &iv)

	return iv, err
}

// Delete removes an interview.
func (c *Client) Delete(ctx context.Context, id string) error {
	if c.mode == ModeDirect {
		return c.app.Service.Delete(ctx, id)
	}

	return c.do(ctx, http.MethodDelete, "/interviews/"+url.PathEscape(id),
		nil, nil)
}

// Reset removes every interview.
func (c *Client) Reset(ctx context.Context) (casefile.ResetReport, error) {
	if c.mode == ModeDirect {
		return c.app.Service.ResetAll(ctx)
	}

	var report casefile.ResetReport
	err := c.do(ctx, http.MethodDelete, "/interviews/reset", nil, &report)

	return report, err
}

// Summary returns the suspect ranking.
func (c *Client) Summary(ctx context.Context) (summary.Response, error) {
	if c.mode == ModeDirect {
		return c.app.Service.Summary(ctx)
	}

	var resp summary.Response
	err := c.do(ctx, http.MethodGet, "/summary", nil, &resp)

	return resp, err
}
