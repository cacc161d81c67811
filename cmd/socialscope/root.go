package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"socialscope/pkg/config"
	"socialscope/pkg/logger"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	rapidAPIKey string
	historyFile string
)

var rootCmd = &cobra.Command{
	Use:   "socialscope",
	Short: "Fetch public profile metadata from Instagram and TikTok",
	Long: `SocialScope looks up public profile metadata (followers, bio, verification
and more) on Instagram and TikTok.

Each lookup tries several acquisition paths in order: an authenticated
Instagram web session when one is stored, anonymous page scraping, and
hosted RapidAPI providers when a key is configured. Results are cached
in memory and appended to a durable lookup history that can be exported
to CSV or Excel.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.socialscope.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&rapidAPIKey, "rapidapi-key", "", "RapidAPI key for the proxy providers")
	rootCmd.PersistentFlags().StringVar(&historyFile, "history-file", "", "path of the lookup history file")

	rootCmd.SetVersionTemplate(`SocialScope {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig assembles configuration from the file, environment and
// global flags, then initializes the global logger.
func loadConfig() (*config.Config, error) {
	flags := make(map[string]interface{})
	if rapidAPIKey != "" {
		flags["rapidapi-key"] = rapidAPIKey
	}
	if historyFile != "" {
		flags["history-file"] = historyFile
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
