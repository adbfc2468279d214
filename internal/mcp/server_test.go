package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/roasbeef/midnight/internal/analyzer"
	"github.com/roasbeef/midnight/internal/casefile"
	"github.com/roasbeef/midnight/internal/interview"
	"github.com/roasbeef/midnight/internal/store"
	"github.com/roasbeef/midnight/internal/summary"
)

// stubAnalyzer returns a fixed verdict.
type stubAnalyzer struct{}

// AnalyzeGuilt returns a fixed verdict.
func (stubAnalyzer) AnalyzeGuilt(context.Context,
	analyzer.Request) (interview.Analysis, error) {

	return interview.Analysis{
		GuiltScore: 4,
		Summary:    "Consistent story.",
		Model:      "stub",
	}, nil
}

// stubRanker ranks a single suspect.
type stubRanker struct{}

// Rank returns a fixed ranking.
func (stubRanker) Rank(context.Context, string, string) (any, error) {
	return map[string]any{
		"ranking": []any{map[string]any{
			"name": "Alice", "rank": float64(1), "reason": "Motive.",
		}},
		"summary": "Alice did it.",
	}, nil
}

// newSession connects an in-memory client to a fresh server.
func newSession(t *testing.T) *mcp.ClientSession {
	t.Helper()

	ctx := context.Background()
	st := store.NewMockStore()
	svc := casefile.NewService(casefile.Deps{
		Store:    st,
		Analyzer: stubAnalyzer{},
		Summary: summary.NewService(
			summary.DefaultConfig(), st, stubRanker{}, nil,
		),
	}, nil)

	srv := NewServer(DefaultConfig(), svc, nil)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := srv.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "0.0.1",
	}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return session
}

// callTool invokes a tool and decodes its structured output into out. It
// returns whether the tool reported an error.
func callTool(t *testing.T, session *mcp.ClientSession, name string,
	args map[string]any, out any) bool {

	t.Helper()

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return true
	}
	if res.IsError {
		return true
	}

	if out != nil {
		data, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}

	return false
}

// TestListTools checks every tool is registered with a valid schema.
func TestListTools(t *testing.T) {
	session := newSession(t)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{
		"list_interviews", "get_interview", "create_interview",
		"add_utterance", "analyze_interview", "delete_interview",
		"get_summary",
	}, names)
}

// TestInterviewTools runs an interview end to end through the tools.
func TestInterviewTools(t *testing.T) {
	session := newSession(t)

	var created InterviewResult
	require.False(t, callTool(t, session, "create_interview",
		map[string]any{"subject_name": "Alice"}, &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, "live", created.Source)

	var updated InterviewResult
	require.False(t, callTool(t, session, "add_utterance", map[string]any{
		"id": created.ID, "speaker": "suspect", "text": "I was asleep.",
	}, &updated))
	require.Len(t, updated.Utterances, 1)

	var verdict AnalysisResult
	require.False(t, callTool(t, session, "analyze_interview",
		map[string]any{"id": created.ID}, &verdict))
	require.Equal(t, 4, verdict.GuiltScore)

	var listed ListInterviewsResult
	require.False(t, callTool(t, session, "list_interviews",
		map[string]any{"name": "alice"}, &listed))
	require.Len(t, listed.Interviews, 1)
	require.Equal(t, 4, *listed.Interviews[0].LastGuiltScore)

	var sum GetSummaryResult
	require.False(t, callTool(t, session, "get_summary",
		map[string]any{}, &sum))
	require.Equal(t, "Alice did it.", sum.Summary)
	require.Len(t, sum.Ranking, 1)

	var deleted DeleteInterviewResult
	require.False(t, callTool(t, session, "delete_interview",
		map[string]any{"id": created.ID}, &deleted))
	require.Equal(t, created.ID, deleted.Deleted)

	require.True(t, callTool(t, session, "get_interview",
		map[string]any{"id": created.ID}, nil))
}

// TestToolErrors surfaces service failures as tool errors.
func TestToolErrors(t *testing.T) {
	session := newSession(t)

	require.True(t, callTool(t, session, "create_interview",
		map[string]any{"subject_name": " "}, nil))
	require.True(t, callTool(t, session, "get_summary",
		map[string]any{}, nil))
	require.True(t, callTool(t, session, "add_utterance", map[string]any{
		"id": "missing", "speaker": "suspect", "text": "Hello.",
	}, nil))
}
