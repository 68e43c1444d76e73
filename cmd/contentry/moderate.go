package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gitclixlogix/contentry/pkg/client"
	"github.com/spf13/cobra"
)

var (
	language        string
	profileID       string
	platformContext string
	pollInterval    time.Duration
	asyncSubmit     bool
)

var moderateCmd = &cobra.Command{
	Use:   "moderate [content]",
	Short: "Submit content for moderation and print the verdict",
	Long: "Submits a piece of content to the moderation API, waits for the\n" +
		"job to finish, and prints the verdict as JSON. When no argument is\n" +
		"given the content is read from stdin, so it can be piped in.",
	Args: cobra.MaximumNArgs(1),
	RunE: runModerate,
}

func init() {
	moderateCmd.Flags().StringVar(&language, "language", "", "ISO language hint (e.g. en, de)")
	moderateCmd.Flags().StringVar(&profileID, "profile", "", "moderation profile ID")
	moderateCmd.Flags().StringVar(&platformContext, "platform", "", "platform context (e.g. comment, review)")
	moderateCmd.Flags().DurationVar(&pollInterval, "interval", 0, "poll interval (default 2s)")
	moderateCmd.Flags().BoolVar(&asyncSubmit, "async", false, "submit only and print the job ID without waiting")
	rootCmd.AddCommand(moderateCmd)
}

func runModerate(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	content, err := readContent(args)
	if err != nil {
		return err
	}

	c, err := newClient(logger, pollInterval)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req := client.SubmitRequest{
		Content:         content,
		Language:        language,
		ProfileID:       profileID,
		PlatformContext: platformContext,
	}

	if asyncSubmit {
		jobID, err := c.Submit(ctx, req)
		if err != nil {
			return err
		}
		fmt.Println(jobID)
		return nil
	}

	jobID, err := c.Submit(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "job %s submitted\n", jobID)

	w := c.Watch(jobID, client.OnProgress(func(status, progress string) {
		if progress != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", status, progress)
		} else {
			fmt.Fprintln(os.Stderr, status)
		}
	}))
	defer w.Cancel()

	result, err := w.Wait(ctx)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func readContent(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if raw, ok := v.(json.RawMessage); ok {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return fmt.Errorf("decoding result: %w", err)
		}
		return enc.Encode(decoded)
	}
	return enc.Encode(v)
}
