package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roasbeef/midnight/internal/casefile"
	"github.com/roasbeef/midnight/internal/interview"
	"github.com/roasbeef/midnight/internal/summary"
)

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))

	return err
}

// ago renders a timestamp relative to now.
func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// formatScore renders a guilt score against its scale.
func formatScore(source interview.Source, score int) string {
	_, hi := source.ScoreRange()
	return fmt.Sprintf("%d/%d", score, hi)
}

// writeInterviewTable prints the interview listing.
func writeInterviewTable(w io.Writer, rows []interview.Summary) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No interviews.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSUBJECT\tSOURCE\tLINES\tGUILT\tUPDATED")
	for _, r := range rows {
		guilt := "-"
		if r.LastGuiltScore != nil {
			guilt = formatScore(r.Source, *r.LastGuiltScore)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", r.ID,
			r.SubjectName, r.Source, r.UtteranceCount, guilt,
			ago(r.UpdatedAt))
	}

	return tw.Flush()
}

// writeAnalysis prints a guilt verdict.
func writeAnalysis(w io.Writer, source interview.Source,
	a interview.Analysis) {

	fmt.Fprintf(w, "Guilt:    %s\n", formatScore(source, a.GuiltScore))
	fmt.Fprintf(w, "Model:    %s (%s)\n", a.Model, ago(a.AnalyzedAt))
	fmt.Fprintf(w, "Summary:  %s\n", a.Summary)
}

// writeInterview prints a full interview.
func writeInterview(w io.Writer, iv interview.Interview) {
	fmt.Fprintf(w, "Interview %s\n", iv.ID)
	fmt.Fprintf(w, "Subject:  %s\n", iv.SubjectName)
	fmt.Fprintf(w, "Source:   %s\n", iv.Source)
	if iv.CaseContext != "" {
		fmt.Fprintf(w, "Context:  %s\n", iv.CaseContext)
	}
	fmt.Fprintf(w, "Created:  %s, updated %s\n", ago(iv.CreatedAt),
		ago(iv.UpdatedAt))

	if iv.LastAnalysis != nil {
		fmt.Fprintln(w)
		writeAnalysis(w, iv.Source, *iv.LastAnalysis)
	}

	transcript := iv.EffectiveTranscript()
	if transcript == "" {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintln(w, transcript)
}

// writeSummary prints the suspect ranking.
func writeSummary(w io.Writer, resp summary.Response) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSUSPECT\tREASON")
	for _, e := range resp.Result.Ranking {
		rank := "-"
		if e.Rank != nil {
			rank = fmt.Sprintf("%d", *e.Rank)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rank, e.Name, e.Reason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if resp.Result.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", resp.Result.Summary)
	}
	if resp.Cached {
		fmt.Fprintln(w, "\n(cached)")
	}

	return nil
}

// writeResetReport prints what a reset removed.
func writeResetReport(w io.Writer, r casefile.ResetReport) {
	fmt.Fprintf(w, "Removed %s, %d recording(s)",
		pluralize(r.Interviews, "interview"), r.BlobsRemoved)
	if r.BlobsFailed > 0 {
		fmt.Fprintf(w, ", %d recording(s) could not be removed",
			r.BlobsFailed)
	}
	fmt.Fprintln(w, ".")
}

// pluralize renders a count with its noun.
func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%s %ss", humanize.Comma(int64(n)), noun)
}
