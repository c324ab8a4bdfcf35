package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tesh254/llmstxt/internal/api"
	"github.com/tesh254/llmstxt/internal/config"
	"github.com/tesh254/llmstxt/internal/core"
	"github.com/tesh254/llmstxt/internal/crawlrun"
	"github.com/tesh254/llmstxt/internal/firecrawl"
	"github.com/tesh254/llmstxt/internal/logger"
	"github.com/tesh254/llmstxt/internal/markdown"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the MCP server",
	Long: `Starts an MCP server exposing the convert_docs, generate_index, crawl_site
and list_runs tools. It speaks stdio unless --http-address is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		httpAddress, _ := cmd.Flags().GetString("http-address")
		log := newLogger()
		v := viper.GetViper()

		st, closeFn, err := openStorage()
		defer closeFn()
		if err != nil {
			return err
		}

		deps := api.Deps{
			Converter: markdown.NewHTMLConverter(),
			Storage:   st,
			Logger:    log,
		}
		crawlCfg, err := config.LoadCrawl(v)
		if err != nil {
			log.Warn("crawl_site disabled", logger.KeyError, err)
		} else {
			deps.Crawler = firecrawl.NewClient(crawlCfg.APIKey, firecrawl.WithBaseURL(crawlCfg.APIURL), firecrawl.WithLogger(log))
			deps.Writer = crawlrun.NewWriter(crawlCfg.Output, crawlrun.WithLogger(log))
		}

		server := core.NewServer(api.NewAPI(deps), core.Defaults{
			Convert: config.LoadConvert(v),
			Crawl: crawlrun.Options{
				Limit:        crawlCfg.Limit,
				Formats:      crawlCfg.Formats,
				PollInterval: crawlCfg.PollInterval,
			},
			Index: config.LoadIndex(v),
		}, log)

		if httpAddress != "" {
			return server.ServeHTTP(cmd.Context(), httpAddress)
		}
		return server.ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("http-address", "", "Serve MCP over streamable HTTP on this address instead of stdio")
}
