package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var listName string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List interviews",
	Long: `List interviews, most recently updated first. --name narrows the
list to subjects matching the name, tolerating small typos.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var showCmd = &cobra.Command{
	Use:   "show <interview_id>",
	Short: "Show an interview with its transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var createContext string

var createCmd = &cobra.Command{
	Use:   "create <subject_name>",
	Short: "Start a live interview",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <interview_id>",
	Short: "Delete an interview and its recording",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every interview",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	listCmd.Flags().StringVar(&listName, "name", "",
		"Filter by subject name")
	createCmd.Flags().StringVar(&createContext, "context", "",
		"Case background for the analyzer")
	resetCmd.Flags().BoolVar(&resetYes, "yes", false,
		"Confirm deleting every interview")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	rows, err := client.List(ctx, listName)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(cmd.OutOrStdout(), rows)
	}

	return writeInterviewTable(cmd.OutOrStdout(), rows)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	iv, err := client.Get(ctx, args[0])
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(cmd.OutOrStdout(), iv)
	}
	writeInterview(cmd.OutOrStdout(), iv)

	return nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	iv, err := client.Create(ctx, args[0], createContext)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(cmd.OutOrStdout(), iv)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Started interview %s with %s\n",
		iv.ID, iv.SubjectName)

	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted interview %s\n", args[0])

	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		return fmt.Errorf("reset deletes every interview; pass --yes " +
			"to confirm")
	}

	ctx := context.Background()

	client, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	report, err := client.Reset(ctx)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(cmd.OutOrStdout(), report)
	}
	writeResetReport(cmd.OutOrStdout(), report)

	return nil
}
