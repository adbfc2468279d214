// Package interview holds the data model shared by the record store, the
// lifecycle service and the transport layers: interview records, the
// utterances collected during a live interview and the guilt analysis
// attached to a record.
package interview

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Speaker identifies who said an utterance.
type Speaker string

const (
	// SpeakerInterviewer is the player asking questions.
	SpeakerInterviewer Speaker = "interviewer"

	// SpeakerSuspect is the suspect being interviewed.
	SpeakerSuspect Speaker = "suspect"
)

// ParseSpeaker validates a speaker string.
func ParseSpeaker(s string) (Speaker, error) {
	switch sp := Speaker(strings.ToLower(strings.TrimSpace(s))); sp {
	case SpeakerInterviewer, SpeakerSuspect:
		return sp, nil
	default:
		return "", fmt.Errorf("%w: unknown speaker %q", ErrInvalidInput,
			s)
	}
}

// Source records how an interview's content was collected. It also decides
// the guilt score scale used when the interview is analyzed.
type Source string

const (
	// SourceLive is an interview typed in utterance by utterance.
	SourceLive Source = "live"

	// SourceAudio is an interview ingested from an uploaded recording and
	// transcribed once at intake.
	SourceAudio Source = "audio"
)

// ScoreRange returns the inclusive guilt score bounds for the source.
func (s Source) ScoreRange() (int, int) {
	if s == SourceAudio {
		return 0, 100
	}

	return 1, 10
}

// Utterance is a single line spoken during a live interview.
type Utterance struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Analysis is the language model's verdict on a single interview.
type Analysis struct {
	// GuiltScore lies within the ScoreRange of the interview's source.
	GuiltScore int `json:"guilt_score"`

	Summary string `json:"summary"`

	// RawModelOutput is kept when the model's reply had to be parsed
	// leniently.
	RawModelOutput string `json:"raw_model_output,omitempty"`

	Model      string    `json:"model"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Interview is the durable record for one suspect's statements.
type Interview struct {
	ID          string `json:"id"`
	SubjectName string `json:"subject_name"`
	CaseContext string `json:"case_context,omitempty"`
	Source      Source `json:"source"`

	Utterances []Utterance `json:"utterances"`

	// Transcript is set for audio ingested interviews.
	Transcript string `json:"transcript,omitempty"`

	// AudioKey names the blob holding the original recording.
	AudioKey string `json:"audio_key,omitempty"`

	// LastAnalysis is nil until the interview has been analyzed.
	LastAnalysis *Analysis `json:"last_analysis,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewID allocates a fresh interview identifier.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// New returns a live interview with a fresh id and no utterances. The
// timestamps are left zero so the store stamps both with the same instant.
func New(subjectName, caseContext string) (Interview, error) {
	name := strings.TrimSpace(subjectName)
	if name == "" {
		return Interview{}, fmt.Errorf("%w: subject name is required",
			ErrInvalidInput)
	}

	return Interview{
		ID:          NewID(),
		SubjectName: name,
		CaseContext: strings.TrimSpace(caseContext),
		Source:      SourceLive,
		Utterances:  []Utterance{},
	}, nil
}

// Append adds an utterance to the end of the interview.
func (i *Interview) Append(speaker Speaker, text string, at time.Time) error {
	if _, err := ParseSpeaker(string(speaker)); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: utterance text is required",
			ErrInvalidInput)
	}

	i.Utterances = append(i.Utterances, Utterance{
		Speaker:   speaker,
		Text:      text,
		Timestamp: at.UTC(),
	})

	return nil
}

// EffectiveTranscript returns the text an analysis runs on: the stored
// transcript for audio interviews, otherwise the utterances joined as
// "speaker: text" lines in the order they were recorded.
func (i *Interview) EffectiveTranscript() string {
	if strings.TrimSpace(i.Transcript) != "" {
		return i.Transcript
	}

	lines := make([]string, 0, len(i.Utterances))
	for _, u := range i.Utterances {
		lines = append(lines, fmt.Sprintf("%s: %s", u.Speaker, u.Text))
	}

	return strings.Join(lines, "\n")
}

// Validate checks the record level invariants.
func (i *Interview) Validate() error {
	switch {
	case i.ID == "":
		return fmt.Errorf("%w: interview id is required",
			ErrInvalidInput)

	case strings.TrimSpace(i.SubjectName) == "":
		return fmt.Errorf("%w: subject name is required",
			ErrInvalidInput)

	case !i.CreatedAt.IsZero() && i.UpdatedAt.Before(i.CreatedAt):
		return fmt.Errorf("%w: updated_at precedes created_at",
			ErrInvalidInput)
	}

	for idx, u := range i.Utterances {
		if strings.TrimSpace(u.Text) == "" {
			return fmt.Errorf("%w: utterance %d has no text",
				ErrInvalidInput, idx)
		}
	}

	if i.LastAnalysis != nil {
		lo, hi := i.Source.ScoreRange()
		score := i.LastAnalysis.GuiltScore
		if score < lo || score > hi {
			return fmt.Errorf("%w: guilt score %d outside [%d, %d]",
				ErrInvalidInput, score, lo, hi)
		}
	}

	return nil
}

// Clone returns a deep copy so callers can mutate a record without touching
// the copy held by a store.
func (i Interview) Clone() Interview {
	out := i
	out.Utterances = append([]Utterance{}, i.Utterances...)
	if i.LastAnalysis != nil {
		a := *i.LastAnalysis
		out.LastAnalysis = &a
	}

	return out
}

// Summary is the compact listing row for an interview.
type Summary struct {
	ID             string    `json:"id"`
	SubjectName    string    `json:"subject_name"`
	Source         Source    `json:"source"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	UtteranceCount int       `json:"utterance_count"`
	LastGuiltScore *int      `json:"last_guilt_score,omitempty"`
}

// Summarize builds the listing row for the interview.
func (i *Interview) Summarize() Summary {
	s := Summary{
		ID:             i.ID,
		SubjectName:    i.SubjectName,
		Source:         i.Source,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
		UtteranceCount: len(i.Utterances),
	}
	if i.LastAnalysis != nil {
		score := i.LastAnalysis.GuiltScore
		s.LastGuiltScore = &score
	}

	return s
}
