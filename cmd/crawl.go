package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tesh254/llmstxt/internal/api"
	"github.com/tesh254/llmstxt/internal/config"
	"github.com/tesh254/llmstxt/internal/crawlrun"
	"github.com/tesh254/llmstxt/internal/firecrawl"
	"github.com/tesh254/llmstxt/internal/logger"
	"github.com/tesh254/llmstxt/internal/report"
	"github.com/tesh254/llmstxt/internal/storage"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawls a website with Firecrawl and saves every page",
	Long: `Crawls a website with Firecrawl and saves the result into a timestamped
directory under --output: one HTML, Markdown and metadata file per page, the
run's crawl_metadata.json, and an llms-full.txt aggregate of all pages.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd.Flags(), map[string]string{
			"output":        config.KeyOutput,
			"limit":         config.KeyLimit,
			"formats":       config.KeyFormats,
			"poll-interval": config.KeyPollInterval,
			"api-url":       config.KeyAPIURL,
		}); err != nil {
			return err
		}
		url, _ := cmd.Flags().GetString("url")

		cfg, err := config.LoadCrawl(viper.GetViper())
		if err != nil {
			return err
		}
		log := newLogger()
		rep := report.New(cmd.OutOrStdout())

		rep.Banner("Firecrawl Crawl",
			"URL:    "+url,
			"Output: "+cfg.Output,
			fmt.Sprintf("Limit:  %d pages", cfg.Limit),
		)

		var history *storage.Storage
		st, closeFn, err := openStorage()
		if err != nil {
			log.Warn("crawl history disabled", logger.KeyError, err)
		} else {
			history = st
		}
		defer closeFn()

		spinner := rep.StartSpinner("Crawling " + url)
		client := firecrawl.NewClient(cfg.APIKey,
			firecrawl.WithBaseURL(cfg.APIURL),
			firecrawl.WithLogger(log),
			firecrawl.WithProgress(func(p firecrawl.Progress) {
				spinner.Update(fmt.Sprintf("Crawling %s (%d/%d pages)", url, p.Completed, p.Total))
			}),
		)

		internalAPI := api.NewAPI(api.Deps{
			Crawler: client,
			Writer:  crawlrun.NewWriter(cfg.Output, crawlrun.WithLogger(log)),
			Storage: history,
			Logger:  log,
		})

		out, err := internalAPI.Crawl(cmd.Context(), url, crawlrun.Options{
			Limit:        cfg.Limit,
			Formats:      cfg.Formats,
			PollInterval: cfg.PollInterval,
		})
		spinner.Stop(err == nil)
		if out != nil && out.Result != nil {
			rep.CrawlResults(out.Result)
		}
		if err != nil {
			return err
		}

		rep.Success("Crawl completed successfully!")
		rep.Field("Output directory:", out.Run.Dir)
		if out.Run.Failed > 0 {
			rep.Field("Pages not saved:", fmt.Sprint(out.Run.Failed))
		}
		return rep.FileCounts(out.Run.Dir)
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	crawlCmd.Flags().String("url", "", "URL to crawl")
	crawlCmd.Flags().String("output", "docs/crawled", "Directory the run directories are created in")
	crawlCmd.Flags().Int("limit", 100, "Maximum number of pages to crawl")
	crawlCmd.Flags().String("formats", "markdown,html", "Comma separated content formats to request")
	crawlCmd.Flags().Duration("poll-interval", 30*time.Second, "How often to poll the crawl job status")
	crawlCmd.Flags().String("api-url", firecrawl.DefaultBaseURL, "Firecrawl API base URL")
	crawlCmd.MarkFlagRequired("url")
}
