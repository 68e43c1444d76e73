package main

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Fetch the current status of a moderation job",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	c, err := newClient(logger, 0)
	if err != nil {
		return err
	}

	status, err := c.Status(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(status)
}
