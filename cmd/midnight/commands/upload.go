package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	uploadName    string
	uploadContext string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <audio_file>",
	Short: "Transcribe a recorded interview",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadName, "name", "",
		"Subject name (required)")
	uploadCmd.Flags().StringVar(&uploadContext, "context", "",
		"Case background for the analyzer")
	_ = uploadCmd.MarkFlagRequired("name")
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	iv, err := client.Upload(ctx, args[0], uploadName, uploadContext)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(cmd.OutOrStdout(), iv)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created audio interview %s for %s "+
		"(%d characters transcribed)\n", iv.ID, iv.SubjectName,
		len(iv.Transcript))

	return nil
}
