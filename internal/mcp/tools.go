package mcp

import (
	"context"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/roasbeef/midnight/internal/interview"
	"github.com/roasbeef/midnight/internal/summary"
)

// InterviewRow is an interview in a listing.
type InterviewRow struct {
	ID             string `json:"id"`
	SubjectName    string `json:"subject_name"`
	Source         string `json:"source"`
	UtteranceCount int    `json:"utterance_count"`
	LastGuiltScore *int   `json:"last_guilt_score,omitempty"`
	UpdatedAt      string `json:"updated_at"`
}

// UtteranceResult is one line of a live interview.
type UtteranceResult struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// AnalysisResult is a guilt verdict.
type AnalysisResult struct {
	GuiltScore int    `json:"guilt_score"`
	Summary    string `json:"summary"`
	Model      string `json:"model"`
	AnalyzedAt string `json:"analyzed_at"`
}

// InterviewResult is a full interview record.
type InterviewResult struct {
	ID           string            `json:"id"`
	SubjectName  string            `json:"subject_name"`
	CaseContext  string            `json:"case_context,omitempty"`
	Source       string            `json:"source"`
	Utterances   []UtteranceResult `json:"utterances"`
	Transcript   string            `json:"transcript,omitempty"`
	LastAnalysis *AnalysisResult   `json:"last_analysis,omitempty"`
	CreatedAt    string            `json:"created_at"`
	UpdatedAt    string            `json:"updated_at"`
}

// formatTime renders timestamps the same way across results.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// toAnalysisResult converts a verdict for output.
func toAnalysisResult(a *interview.Analysis) *AnalysisResult {
	if a == nil {
		return nil
	}

	return &AnalysisResult{
		GuiltScore: a.GuiltScore,
		Summary:    a.Summary,
		Model:      a.Model,
		AnalyzedAt: formatTime(a.AnalyzedAt),
	}
}

// toInterviewResult converts a record for output.
func toInterviewResult(iv interview.Interview) InterviewResult {
	lines := make([]UtteranceResult, 0, len(iv.Utterances))
	for _, u := range iv.Utterances {
		lines = append(lines, UtteranceResult{
			Speaker:   string(u.Speaker),
			Text:      u.Text,
			Timestamp: formatTime(u.Timestamp),
		})
	}

	return InterviewResult{
		ID:           iv.ID,
		SubjectName:  iv.SubjectName,
		CaseContext:  iv.CaseContext,
		Source:       string(iv.Source),
		Utterances:   lines,
		Transcript:   iv.Transcript,
		LastAnalysis: toAnalysisResult(iv.LastAnalysis),
		CreatedAt:    formatTime(iv.CreatedAt),
		UpdatedAt:    formatTime(iv.UpdatedAt),
	}
}

// ListInterviewsArgs are the arguments for the list_interviews tool.
type ListInterviewsArgs struct {
	Name string `json:"name,omitempty" jsonschema:"Optional subject name to match, tolerating small typos"`
}

// ListInterviewsResult is the result of the list_interviews tool.
type ListInterviewsResult struct {
	Interviews []InterviewRow `json:"interviews"`
}

func (s *Server) handleListInterviews(ctx context.Context,
	req *mcp.CallToolRequest,
	args ListInterviewsArgs) (*mcp.CallToolResult, ListInterviewsResult, error) {

	var (
		ivs []interview.Interview
		err error
	)
	if args.Name != "" {
		ivs, err = s.svc.FindByName(ctx, args.Name)
	} else {
		ivs, err = s.svc.List(ctx)
	}
	if err != nil {
		return nil, ListInterviewsResult{}, err
	}

	rows := make([]InterviewRow, 0, len(ivs))
	for i := range ivs {
		sum := ivs[i].Summarize()
		rows = append(rows, InterviewRow{
			ID:             sum.ID,
			SubjectName:    sum.SubjectName,
			Source:         string(sum.Source),
			UtteranceCount: sum.UtteranceCount,
			LastGuiltScore: sum.LastGuiltScore,
			UpdatedAt:      formatTime(sum.UpdatedAt),
		})
	}

	return nil, ListInterviewsResult{Interviews: rows}, nil
}

// GetInterviewArgs are the arguments for the get_interview tool.
type GetInterviewArgs struct {
	ID string `json:"id" jsonschema:"Interview ID"`
}

func (s *Server) handleGetInterview(ctx context.Context,
	req *mcp.CallToolRequest,
	args GetInterviewArgs) (*mcp.CallToolResult, InterviewResult, error) {

	iv, err := s.svc.Get(ctx, args.ID)
	if err != nil {
		return nil, InterviewResult{}, err
	}

	return nil, toInterviewResult(iv), nil
}

// CreateInterviewArgs are the arguments for the create_interview tool.
type CreateInterviewArgs struct {
	SubjectName string `json:"subject_name" jsonschema:"Name of the suspect being interviewed"`
	CaseContext string `json:"case_context,omitempty" jsonschema:"Background on the case"`
}

func (s *Server) handleCreateInterview(ctx context.Context,
	req *mcp.CallToolRequest,
	args CreateInterviewArgs) (*mcp.CallToolResult, InterviewResult, error) {

	iv, err := s.svc.Create(ctx, args.SubjectName, args.CaseContext)
	if err != nil {
		return nil, InterviewResult{}, err
	}

	return nil, toInterviewResult(iv), nil
}

// AddUtteranceArgs are the arguments for the add_utterance tool.
type AddUtteranceArgs struct {
	ID      string `json:"id" jsonschema:"Interview ID"`
	Speaker string `json:"speaker" jsonschema:"Either interviewer or suspect"`
	Text    string `json:"text" jsonschema:"What was said"`
}

func (s *Server) handleAddUtterance(ctx context.Context,
	req *mcp.CallToolRequest,
	args AddUtteranceArgs) (*mcp.CallToolResult, InterviewResult, error) {

	iv, err := s.svc.AppendUtterance(ctx, args.ID, args.Speaker, args.Text)
	if err != nil {
		return nil, InterviewResult{}, err
	}

	return nil, toInterviewResult(iv), nil
}

// AnalyzeInterviewArgs are the arguments for the analyze_interview tool.
type AnalyzeInterviewArgs struct {
	ID          string  `json:"id" jsonschema:"Interview ID"`
	CaseContext *string `json:"case_context,omitempty" jsonschema:"Case context to use instead of the stored one"`
}

func (s *Server) handleAnalyzeInterview(ctx context.Context,
	req *mcp.CallToolRequest,
	args AnalyzeInterviewArgs) (*mcp.CallToolResult, AnalysisResult, error) {

	override := fn.None[string]()
	if args.CaseContext != nil {
		override = fn.Some(*args.CaseContext)
	}

	iv, err := s.svc.RequestAnalysis(ctx, args.ID, override)
	if err != nil {
		return nil, AnalysisResult{}, err
	}

	return nil, *toAnalysisResult(iv.LastAnalysis), nil
}

// DeleteInterviewArgs are the arguments for the delete_interview tool.
type DeleteInterviewArgs struct {
	ID string `json:"id" jsonschema:"Interview ID"`
}

// DeleteInterviewResult is the result of the delete_interview tool.
type DeleteInterviewResult struct {
	Deleted string `json:"deleted"`
}

func (s *Server) handleDeleteInterview(ctx context.Context,
	req *mcp.CallToolRequest,
	args DeleteInterviewArgs) (*mcp.CallToolResult, DeleteInterviewResult, error) {

	if err := s.svc.Delete(ctx, args.ID); err != nil {
		return nil, DeleteInterviewResult{}, err
	}

	return nil, DeleteInterviewResult{Deleted: args.ID}, nil
}

// GetSummaryArgs are the arguments for the get_summary tool.
type GetSummaryArgs struct{}

// GetSummaryResult is the result of the get_summary tool.
type GetSummaryResult struct {
	Ranking     []summary.RankEntry `json:"ranking"`
	Summary     string              `json:"summary"`
	ContentHash string              `json:"content_hash"`
	Cached      bool                `json:"cached"`
}

func (s *Server) handleGetSummary(ctx context.Context,
	req *mcp.CallToolRequest,
	args GetSummaryArgs) (*mcp.CallToolResult, GetSummaryResult, error) {

	resp, err := s.svc.Summary(ctx)
	if err != nil {
		return nil, GetSummaryResult{}, err
	}

	return nil, GetSummaryResult{
		Ranking:     resp.Result.Ranking,
		Summary:     resp.Result.Summary,
		ContentHash: resp.ContentHash,
		Cached:      resp.Cached,
	}, nil
}
