package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tesh254/llmstxt/internal/api"
	"github.com/tesh254/llmstxt/internal/config"
	"github.com/tesh254/llmstxt/internal/report"
	"github.com/tesh254/llmstxt/internal/sitemap"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Generates an llms.txt index from a sitemap",
	Long: `Reads a sitemap.xml and writes a Markdown index with one titled link per
page. Summaries come from the LLM worker when --worker-url is set, then from
the built site in --docs-dir, and fall back to a placeholder.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd.Flags(), map[string]string{
			"sitemap":    config.KeySitemap,
			"output":     config.KeyIndexOut,
			"title":      config.KeyTitle,
			"root":       config.KeyRoot,
			"docs-dir":   config.KeyDocsDir,
			"worker-url": config.KeyWorkerURL,
		}); err != nil {
			return err
		}

		cfg := config.LoadIndex(viper.GetViper())
		log := newLogger()
		rep := report.New(cmd.OutOrStdout())

		internalAPI := api.NewAPI(api.Deps{Logger: log})
		if _, err := internalAPI.GenerateIndex(cmd.Context(), cfg, nil); err != nil {
			return err
		}

		rep.Success("Index generated")
		stats, err := report.FileStats(cfg.Output)
		if err != nil {
			return err
		}
		rep.Field(cfg.Output+":", stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().String("sitemap", "sitemap.xml", "Path to the sitemap.xml file")
	indexCmd.Flags().String("output", "", "Index file to write (default llms.txt beside the sitemap)")
	indexCmd.Flags().String("title", sitemap.DefaultTitle, "Heading of the index")
	indexCmd.Flags().String("root", "", "Root URL excluded from the index (default: detected)")
	indexCmd.Flags().String("docs-dir", "", "Built site used to summarize pages")
	indexCmd.Flags().String("worker-url", "", "LLM worker URL used to summarize pages")
}
