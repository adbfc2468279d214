package commands

import (
	"context"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Rank every interviewed suspect by likely guilt",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.Summary(ctx)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(cmd.OutOrStdout(), resp)
	}

	return writeSummary(cmd.OutOrStdout(), resp)
}
