package commands

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/spf13/cobra"
)

var analyzeContext string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <interview_id>",
	Short: "Score how guilty the suspect sounds",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeContext, "context", "",
		"Case context to use instead of the stored one")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	override := fn.None[string]()
	if cmd.Flags().Changed("context") {
		override = fn.Some(analyzeContext)
	}

	analysis, err := client.Analyze(ctx, args[0], override)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(cmd.OutOrStdout(), analysis)
	}

	iv, err := client.Get(ctx, args[0])
	if err != nil {
		return err
	}
	writeAnalysis(cmd.OutOrStdout(), iv.Source, analysis)

	return nil
}
