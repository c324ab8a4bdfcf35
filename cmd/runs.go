package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tesh254/llmstxt/internal/crawlrun"
	"github.com/tesh254/llmstxt/internal/report"
	"github.com/tesh254/llmstxt/internal/storage"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Lists recorded crawl runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		internalAPI, closeFn, err := newHistoryAPI(newLogger())
		defer closeFn()
		if err != nil {
			return err
		}

		runs, err := internalAPI.Runs(limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No crawl runs recorded.")
			return nil
		}
		report.New(cmd.OutOrStdout()).Runs(runs)
		return nil
	},
}

var runsLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Shows the most recent crawl run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		internalAPI, closeFn, err := newHistoryAPI(newLogger())
		defer closeFn()
		if err != nil {
			return err
		}

		run, err := internalAPI.LatestRun()
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "No crawl runs recorded.")
				return nil
			}
			return err
		}

		rep := report.New(cmd.OutOrStdout())
		rep.Runs([]*storage.Run{run})
		if meta, err := crawlrun.ReadMetadata(run.Dir); err == nil {
			rep.Field("Expires at:", meta.ExpiresAt)
		}
		return rep.FileCounts(run.Dir)
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Forgets a crawl run; its directory is kept",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		internalAPI, closeFn, err := newHistoryAPI(newLogger())
		defer closeFn()
		if err != nil {
			return err
		}

		if err := internalAPI.DeleteRun(args[0]); err != nil {
			return fmt.Errorf("failed to delete run %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Run '%s' deleted successfully.\n", args[0])
		return nil
	},
}

var runsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Forgets every recorded crawl run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			fmt.Fprintln(cmd.OutOrStdout(), color.RedString("WARNING: This will delete the whole crawl run history and is not recoverable."))
			fmt.Fprint(cmd.OutOrStdout(), "Are you sure you want to continue? (yes/no): ")

			response, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && response == "" {
				return fmt.Errorf("failed to read response: %w", err)
			}
			if strings.TrimSpace(strings.ToLower(response)) != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "Clean operation cancelled.")
				return nil
			}
		}

		internalAPI, closeFn, err := newHistoryAPI(newLogger())
		defer closeFn()
		if err != nil {
			return err
		}

		n, err := internalAPI.CleanRuns()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Run history cleaned (%d runs removed).\n", n)
		return nil
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 lists all)")
	runsCleanCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	runsCmd.AddCommand(runsLatestCmd, runsDeleteCmd, runsCleanCmd)
	rootCmd.AddCommand(runsCmd)
}
