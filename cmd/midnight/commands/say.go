package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sayAs string

var sayCmd = &cobra.Command{
	Use:   "say <interview_id> <text...>",
	Short: "Add a line to a live interview",
	Long: `Append what the interviewer or the suspect said. The speaker
defaults to the interviewer; use --as suspect for the suspect's answers.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSay,
}

func init() {
	sayCmd.Flags().StringVar(&sayAs, "as", "interviewer",
		"Speaker: interviewer or suspect")
}

func runSay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	text := strings.Join(args[1:], " ")
	iv, err := client.Say(ctx, args[0], sayAs, text)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(cmd.OutOrStdout(), iv)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s now has %d line(s)\n",
		iv.SubjectName, len(iv.Utterances))

	return nil
}
