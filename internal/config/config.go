// Package config turns viper settings (flags, environment, config file)
// into typed settings for each pipeline.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tesh254/llmstxt/internal/firecrawl"
	"github.com/tesh254/llmstxt/internal/markdown"
)

// Setting keys.
const (
	KeyDocsDir         = "docs-dir"
	KeyGenerateMDFiles = "generate-md-files"
	KeyGenerateLLMsTxt = "generate-llms-txt"
	KeyLLMsTxtName     = "llms-txt-name"
	KeyPattern         = "pattern"
	KeyExclude         = "exclude"

	KeyAPIKey       = "firecrawl-api-key"
	KeyAPIURL       = "firecrawl-api-url"
	KeyOutput       = "output"
	KeyLimit        = "limit"
	KeyFormats      = "formats"
	KeyPollInterval = "poll-interval"

	KeySitemap   = "sitemap"
	KeyIndexOut  = "index-output"
	KeyTitle     = "title"
	KeyRoot      = "root"
	KeyWorkerURL = "worker-url"

	KeyLedger   = "ledger"
	KeyLogLevel = "log-level"
)

// envNames maps setting keys to the environment variables that set them.
var envNames = map[string]string{
	KeyDocsDir:         "INPUT_DOCS_DIR",
	KeyGenerateMDFiles: "INPUT_GENERATE_MD_FILES",
	KeyGenerateLLMsTxt: "INPUT_GENERATE_LLMS_TXT",
	KeyLLMsTxtName:     "INPUT_LLMS_TXT_NAME",
	KeyPattern:         "INPUT_PATTERN",
	KeyExclude:         "INPUT_EXCLUDE",
	KeyAPIKey:          "FIRECRAWL_API_KEY",
	KeyAPIURL:          "FIRECRAWL_API_URL",
	KeyWorkerURL:       "LLMSTXT_WORKER_URL",
	KeyLedger:          "LLMSTXT_LEDGER",
	KeyLogLevel:        "LLMSTXT_LOG_LEVEL",
}

// ErrMissingAPIKey is returned when the crawl service key is not set.
var ErrMissingAPIKey = errors.New("FIRECRAWL_API_KEY environment variable not set")

// Convert holds settings for the convert pipeline.
type Convert struct {
	DocsDir string
	// KeepMarkdown retains the per-file .md outputs after aggregation.
	KeepMarkdown  bool
	Aggregate     bool
	AggregateName string
	Pattern       string
	Exclude       []string
}

// AggregatePath is where the aggregate file is written.
func (c Convert) AggregatePath() string {
	return filepath.Join(c.DocsDir, c.AggregateName)
}

// Crawl holds settings for the crawl pipeline.
type Crawl struct {
	APIKey       string
	APIURL       string
	Output       string
	Limit        int
	Formats      []string
	PollInterval time.Duration
}

// Index holds settings for the sitemap index generator.
type Index struct {
	Sitemap   string
	Output    string
	Title     string
	Root      string
	DocsDir   string
	WorkerURL string
}

// SetDefaults registers the defaults for every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDocsDir, "site")
	v.SetDefault(KeyGenerateMDFiles, true)
	v.SetDefault(KeyGenerateLLMsTxt, true)
	v.SetDefault(KeyLLMsTxtName, "llms.txt")
	v.SetDefault(KeyPattern, markdown.DefaultPattern)

	v.SetDefault(KeyAPIURL, firecrawl.DefaultBaseURL)
	v.SetDefault(KeyOutput, filepath.Join("docs", "crawled"))
	v.SetDefault(KeyLimit, 100)
	v.SetDefault(KeyFormats, "markdown,html")
	v.SetDefault(KeyPollInterval, 30*time.Second)

	v.SetDefault(KeyTitle, "Docling Documentation")
	v.SetDefault(KeyLogLevel, "info")
}

// BindEnv binds every setting that has an environment variable.
func BindEnv(v *viper.Viper) error {
	for key, env := range envNames {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// LoadDotEnv loads .env from the working directory without overriding
// variables already set. A missing file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// DefaultLedgerPath is where the run history lives when not configured.
func DefaultLedgerPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".llmstxt", "runs.db")
	}
	return filepath.Join(home, ".llmstxt", "runs.db")
}

// LoadConvert reads the convert settings from v.
func LoadConvert(v *viper.Viper) Convert {
	return Convert{
		// Action inputs are workspace-relative; an absolute-looking path is
		// taken relative to the working directory.
		DocsDir:       strings.TrimLeft(v.GetString(KeyDocsDir), "/"),
		KeepMarkdown:  v.GetBool(KeyGenerateMDFiles),
		Aggregate:     v.GetBool(KeyGenerateLLMsTxt),
		AggregateName: v.GetString(KeyLLMsTxtName),
		Pattern:       v.GetString(KeyPattern),
		Exclude:       SplitList(v.GetString(KeyExclude)),
	}
}

// LoadCrawl reads the crawl settings from v.
func LoadCrawl(v *viper.Viper) (Crawl, error) {
	c := Crawl{
		APIKey:       strings.TrimSpace(v.GetString(KeyAPIKey)),
		APIURL:       v.GetString(KeyAPIURL),
		Output:       v.GetString(KeyOutput),
		Limit:        v.GetInt(KeyLimit),
		Formats:      SplitList(v.GetString(KeyFormats)),
		PollInterval: v.GetDuration(KeyPollInterval),
	}
	if c.APIKey == "" {
		return c, ErrMissingAPIKey
	}
	return c, nil
}

// LoadIndex reads the index settings from v. The output defaults to
// llms.txt beside the sitemap.
func LoadIndex(v *viper.Viper) Index {
	idx := Index{
		Sitemap:   v.GetString(KeySitemap),
		Output:    v.GetString(KeyIndexOut),
		Title:     v.GetString(KeyTitle),
		Root:      v.GetString(KeyRoot),
		DocsDir:   v.GetString(KeyDocsDir),
		WorkerURL: v.GetString(KeyWorkerURL),
	}
	if idx.Output == "" && idx.Sitemap != "" {
		idx.Output = filepath.Join(filepath.Dir(idx.Sitemap), "llms.txt")
	}
	return idx
}

// SplitList splits a comma separated value, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
