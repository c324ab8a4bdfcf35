package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tesh254/llmstxt/internal/api"
	"github.com/tesh254/llmstxt/internal/config"
	"github.com/tesh254/llmstxt/internal/logger"
	"github.com/tesh254/llmstxt/internal/report"
	"github.com/tesh254/llmstxt/internal/storage"
	"github.com/tesh254/llmstxt/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "llmstxt",
	Short: "llmstxt turns documentation sites into LLM-ready text.",
	Long: `llmstxt crawls websites with Firecrawl, converts built documentation
sites from HTML to Markdown, and generates llms.txt files for language models.`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		report.New(os.Stderr).Error(err)
		os.Exit(1)
	}
}

func init() {
	config.SetDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.llmstxt/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("ledger", config.DefaultLedgerPath(), "Path to the crawl run history database")

	viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag(config.KeyLedger, rootCmd.PersistentFlags().Lookup("ledger"))
}

func initConfig(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	if err := config.BindEnv(viper.GetViper()); err != nil {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	viper.AddConfigPath(filepath.Join(home, ".llmstxt"))
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// bindFlags binds the running command's flags to setting keys. Commands
// share keys, so binding happens per run rather than in init.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}
	return nil
}

func newLogger() logger.Logger {
	return logger.New(logger.LevelFromString(viper.GetString(config.KeyLogLevel)), os.Stderr)
}

// openStorage opens the run history. The returned close func is never nil.
func openStorage() (*storage.Storage, func(), error) {
	st, err := storage.NewStorage(viper.GetString(config.KeyLedger))
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return st, func() { st.Close() }, nil
}

// newHistoryAPI builds an API over the run history only.
func newHistoryAPI(log logger.Logger) (*api.API, func(), error) {
	st, closeFn, err := openStorage()
	if err != nil {
		return nil, closeFn, err
	}
	return api.NewAPI(api.Deps{Storage: st, Logger: log}), closeFn, nil
}
