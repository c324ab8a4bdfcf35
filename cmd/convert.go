package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tesh254/llmstxt/internal/api"
	"github.com/tesh254/llmstxt/internal/config"
	"github.com/tesh254/llmstxt/internal/markdown"
	"github.com/tesh254/llmstxt/internal/report"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Converts a built documentation site from HTML to Markdown",
	Long: `Converts every HTML file under --docs-dir to a Markdown file beside it and
concatenates them into a single aggregate file (llms.txt by default).

Every flag can also be set through the INPUT_* environment variables, so the
command runs unchanged as a GitHub Action step.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd.Flags(), map[string]string{
			"docs-dir":          config.KeyDocsDir,
			"generate-md-files": config.KeyGenerateMDFiles,
			"generate-llms-txt": config.KeyGenerateLLMsTxt,
			"llms-txt-name":     config.KeyLLMsTxtName,
			"pattern":           config.KeyPattern,
			"exclude":           config.KeyExclude,
		}); err != nil {
			return err
		}

		cfg := config.LoadConvert(viper.GetViper())
		log := newLogger()
		rep := report.New(cmd.OutOrStdout())

		internalAPI := api.NewAPI(api.Deps{Converter: markdown.NewHTMLConverter(), Logger: log})
		out, err := internalAPI.ConvertDocs(cmd.Context(), cfg)
		if out != nil {
			rep.ConvertSummary(out.Report)
		}
		if err != nil {
			return err
		}

		if out.Aggregate != "" {
			rep.Success("Aggregate file generated")
			stats, err := report.FileStats(out.Aggregate)
			if err != nil {
				return err
			}
			rep.Field(out.Aggregate+":", stats)
		}
		if out.Removed {
			rep.Field("Markdown files:", "deleted")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().String("docs-dir", "site", "Directory containing the built HTML site")
	convertCmd.Flags().Bool("generate-md-files", true, "Keep the per-file Markdown outputs")
	convertCmd.Flags().Bool("generate-llms-txt", true, "Concatenate the Markdown outputs into an aggregate file")
	convertCmd.Flags().String("llms-txt-name", "llms.txt", "Name of the aggregate file inside --docs-dir")
	convertCmd.Flags().String("pattern", markdown.DefaultPattern, "Glob selecting the HTML files to convert")
	convertCmd.Flags().String("exclude", "", "Comma separated globs of HTML files to skip")
}
