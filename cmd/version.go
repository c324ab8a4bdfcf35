package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tesh254/llmstxt/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Show version information for llmstxt.

Version details come from the Go build system and ldflags, including the Git
commit and build date. --json includes the module path, checksum and
platform. Use --check to look for a newer release on GitHub.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		jsonFlag, _ := cmd.Flags().GetBool("json")
		shortFlag, _ := cmd.Flags().GetBool("short")
		commitFlag, _ := cmd.Flags().GetBool("commit")
		checkFlag, _ := cmd.Flags().GetBool("check")

		switch {
		case jsonFlag:
			fmt.Fprintln(out, version.GetJSONVersion())
		case shortFlag:
			fmt.Fprintln(out, version.GetShortVersion())
		case commitFlag:
			fmt.Fprintln(out, version.GetVersionWithCommit())
		default:
			fmt.Fprintln(out, version.GetDetailedVersion())
			if version.IsDevelopment() {
				fmt.Fprintf(out, "\n%s This is a development build.\n", color.YellowString("Note:"))
			}
		}

		if checkFlag {
			return checkForUpdate(cmd.Context(), cmd)
		}
		return nil
	},
}

func checkForUpdate(ctx context.Context, cmd *cobra.Command) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	up, err := version.CheckLatest(ctx, nil)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !up.Available {
		fmt.Fprintf(out, "\nllmstxt is up to date (%s)\n", up.Current)
		return nil
	}

	fmt.Fprintf(out, "\nA new version of llmstxt is available: %s\n", up.Latest)

	updateInstruction := "To update, run: go install github.com/tesh254/llmstxt@latest"
	if exe, err := os.Executable(); err == nil && strings.Contains(exe, "brew") {
		updateInstruction = "To update, run: brew upgrade llmstxt"
	}
	border := strings.Repeat("─", len(updateInstruction)+4)
	fmt.Fprintln(out, "┌"+border+"┐")
	fmt.Fprintln(out, "│  "+updateInstruction+"  │")
	fmt.Fprintln(out, "└"+border+"┘")
	return nil
}

func init() {
	versionCmd.Flags().Bool("json", false, "Output version information in JSON format")
	versionCmd.Flags().BoolP("short", "s", false, "Output short version only")
	versionCmd.Flags().BoolP("commit", "c", false, "Output version with commit hash")
	versionCmd.Flags().Bool("check", false, "Check GitHub for a newer release")
	rootCmd.AddCommand(versionCmd)
}
