// Package config loads the daemon configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/roasbeef/midnight/internal/analyzer"
	"github.com/roasbeef/midnight/internal/blob"
	"github.com/roasbeef/midnight/internal/build"
	"github.com/roasbeef/midnight/internal/store"
	"github.com/roasbeef/midnight/internal/summary"
	"github.com/roasbeef/midnight/internal/transcribe"
	"github.com/roasbeef/midnight/internal/web"
)

// Config is the full daemon configuration.
type Config struct {
	Web *web.Config

	// StoreBackend and StorePath select the record store.
	StoreBackend store.Backend
	StorePath    string

	Analyzer   analyzer.Config
	Summary    summary.Config
	Transcribe transcribe.Config
	Blob       blob.Config
	Log        build.LogConfig
}

// DefaultConfig returns the configuration used when no variables are set.
func DefaultConfig() *Config {
	return &Config{
		Web:          web.DefaultConfig(),
		StoreBackend: store.BackendJSON,
		StorePath:    store.DefaultDocumentPath,
		Analyzer:     analyzer.DefaultConfig(),
		Summary:      summary.DefaultConfig(),
		Transcribe:   transcribe.DefaultConfig(),
		Blob:         blob.DefaultConfig(),
		Log:          build.DefaultLogConfig(),
	}
}

// LoadDotEnv loads variables from the given .env files, or from ./.env when
// none are given. Missing files are ignored and variables already set in
// the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	return nil
}

// LoadFromEnv builds a Config from the process environment on top of the
// defaults.
func LoadFromEnv() (*Config, error) {
	return load(os.LookupEnv)
}

// lookupFunc reads one variable.
type lookupFunc func(key string) (string, bool)

// load applies every variable lookup finds onto the defaults.
func load(lookup lookupFunc) (*Config, error) {
	cfg := DefaultConfig()
	e := &envReader{lookup: lookup}

	e.str("LISTEN_ADDR", &cfg.Web.Addr)
	e.int64("MAX_UPLOAD_BYTES", &cfg.Web.MaxUploadBytes)
	if origins, ok := e.get("CORS_ORIGINS"); ok {
		cfg.Web.AllowedOrigins = splitList(origins)
	}

	var backend string
	if e.str("STORE_BACKEND", &backend) {
		cfg.StoreBackend = store.Backend(strings.ToLower(backend))
	}

	// An unset path lets each backend use its own default location.
	if !e.str("INTERVIEWS_DB_PATH", &cfg.StorePath) &&
		cfg.StoreBackend != store.BackendJSON {

		cfg.StorePath = ""
	}

	if !e.str("OPENROUTER_API_KEY", &cfg.Analyzer.APIKey) {
		e.str("HACKCLUB_API_KEY", &cfg.Analyzer.APIKey)
	}
	e.str("OPENROUTER_SERVER_URL", &cfg.Analyzer.BaseURL)
	e.str("OPENROUTER_MODEL", &cfg.Analyzer.Model)
	e.duration("ANALYZER_TIMEOUT", &cfg.Analyzer.Timeout)

	e.duration("SUMMARY_TIMEOUT", &cfg.Summary.Timeout)
	e.int("SUMMARY_MAX_TRANSCRIPT_CHARS", &cfg.Summary.MaxTranscriptChars)

	e.str("TRANSCRIBER", &cfg.Transcribe.Provider)
	if !e.str("OPENAI_API_KEY", &cfg.Transcribe.APIKey) {
		cfg.Transcribe.APIKey = cfg.Analyzer.APIKey
	}
	if !e.str("TRANSCRIBE_BASE_URL", &cfg.Transcribe.BaseURL) {
		cfg.Transcribe.BaseURL = cfg.Analyzer.BaseURL
	}
	e.str("TRANSCRIBE_MODEL", &cfg.Transcribe.Model)
	e.duration("TRANSCRIBE_TIMEOUT", &cfg.Transcribe.Timeout)
	e.str("GOOGLE_CREDENTIALS_FILE", &cfg.Transcribe.CredentialsFile)
	e.str("SPEECH_LANGUAGE", &cfg.Transcribe.Language)

	e.str("BLOB_BACKEND", &cfg.Blob.Backend)
	e.str("AUDIO_DIR", &cfg.Blob.Dir)
	e.str("MINIO_ENDPOINT", &cfg.Blob.Minio.Endpoint)
	e.str("MINIO_ACCESS_KEY_ID", &cfg.Blob.Minio.AccessKeyID)
	e.str("MINIO_SECRET_ACCESS_KEY", &cfg.Blob.Minio.SecretAccessKey)
	e.str("MINIO_BUCKET_NAME", &cfg.Blob.Minio.BucketName)
	e.bool("MINIO_USE_SSL", &cfg.Blob.Minio.UseSSL)

	e.str("LOG_DIR", &cfg.Log.Dir)
	e.str("LOG_LEVEL", &cfg.Log.Level)
	e.int("LOG_MAX_FILES", &cfg.Log.MaxFiles)
	e.int("LOG_MAX_FILE_SIZE_MB", &cfg.Log.MaxFileSize)

	if len(e.errs) > 0 {
		return nil, errors.Join(e.errs...)
	}

	return cfg, nil
}

// envReader applies variables onto typed fields, collecting parse errors.
type envReader struct {
	lookup lookupFunc
	errs   []error
}

// get returns the trimmed value of key, treating blank as unset.
func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)

	return v, v != ""
}

func (e *envReader) str(key string, dst *string) bool {
	v, ok := e.get(key)
	if ok {
		*dst = v
	}

	return ok
}

func (e *envReader) int(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (e *envReader) int64(key string, dst *int64) {
	v, ok := e.get(key)
	if !ok {
		return
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (e *envReader) bool(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}

// duration accepts Go durations ("45s") or a bare number of seconds.
func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}

	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = time.Duration(secs * float64(time.Second))
		return
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
