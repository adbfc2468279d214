package casefile

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/roasbeef/midnight/internal/blob"
	"github.com/roasbeef/midnight/internal/interview"
	"github.com/roasbeef/midnight/internal/transcribe"
)

// AudioUpload is a recorded interview to ingest.
type AudioUpload struct {
	SubjectName string
	CaseContext string
	Filename    string
	ContentType string
	Data        []byte
}

// IngestAudio stores the recording, transcribes it and creates an audio
// interview holding the transcript. Every upload creates a new record; if
// transcription or the record write fails, the stored recording is removed
// again.
func (s *Service) IngestAudio(ctx context.Context,
	up AudioUpload) (interview.Interview, error) {

	name := strings.TrimSpace(up.SubjectName)
	switch {
	case name == "":
		return interview.Interview{}, fmt.Errorf("%w: subject name is "+
			"required", interview.ErrInvalidInput)

	case len(up.Data) == 0:
		return interview.Interview{}, fmt.Errorf("%w: uploaded file "+
			"is empty", interview.ErrInvalidInput)

	case s.deps.Transcriber == nil || s.deps.Blobs == nil:
		return interview.Interview{}, fmt.Errorf("%w: audio intake "+
			"needs a transcriber and blob store",
			interview.ErrNotConfigured)
	}

	contentType := up.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(up.Data)
	}

	iv, err := interview.New(name, up.CaseContext)
	if err != nil {
		return interview.Interview{}, err
	}
	iv.Source = interview.SourceAudio
	iv.AudioKey = blob.Key(iv.ID, name, up.Filename)

	log := s.log.With("interview_id", iv.ID, "key", iv.AudioKey)

	err = s.deps.Blobs.Put(ctx, iv.AudioKey, up.Data, contentType)
	if err != nil {
		return interview.Interview{}, err
	}

	text, err := s.deps.Transcriber.Transcribe(ctx, transcribe.Audio{
		Filename: up.Filename,
		Data:     up.Data,
	})
	if err != nil {
		log.WarnContext(ctx, "Transcription failed, discarding "+
			"recording", "error", err)
		s.removeBlob(ctx, iv.AudioKey)

		return interview.Interview{}, err
	}
	iv.Transcript = text

	stored, err := s.deps.Store.Upsert(ctx, iv)
	if err != nil {
		s.removeBlob(ctx, iv.AudioKey)
		return interview.Interview{}, err
	}

	log.InfoContext(ctx, "Audio interview ingested",
		"subject", name, "bytes", len(up.Data),
		"transcript_chars", len(text))

	return stored, nil
}
