package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"socialscope/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage SocialScope configuration.

Configuration is resolved in this order:
  - Command line flags (highest priority)
  - Environment variables (SOCIALSCOPE_*)
  - .env file
  - Configuration file
  - Default values (lowest priority)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if path == "" {
			path = ".socialscope.yaml"
		}

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s", path)
		}

		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}

		fmt.Println("Configuration file created:", path)
		fmt.Println("\nNext steps:")
		fmt.Println("1. Add your RapidAPI key or Instagram session credentials")
		fmt.Println("2. Run 'socialscope config validate' to check the result")
		fmt.Println("3. Look up a profile with 'socialscope lookup instagram <username>'")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging all sources.

Credentials are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		display := *cfg
		display.Instagram.SessionID = maskSecret(display.Instagram.SessionID)
		display.Instagram.CSRFToken = maskSecret(display.Instagram.CSRFToken)
		display.ProxyAPI.Key = maskSecret(display.ProxyAPI.Key)
		display.Telegram.Token = maskSecret(display.Telegram.Token)

		data, err := yaml.Marshal(&display)
		if err != nil {
			return fmt.Errorf("failed to format configuration: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile, nil)
		if err != nil {
			return err
		}

		if cfg.ProxyAPI.Key == "" && cfg.Instagram.SessionID == "" {
			fmt.Println("Warning: no RapidAPI key or Instagram session configured;")
			fmt.Println("only anonymous scraping will be available.")
			fmt.Println()
		}

		fmt.Println("Configuration is valid.")
		fmt.Println("\nSummary:")
		fmt.Printf("  Batch workers:  %d\n", cfg.Batch.Workers)
		fmt.Printf("  Retry attempts: %d\n", cfg.Retry.MaxAttempts)
		fmt.Printf("  History file:   %s\n", cfg.History.File)
		fmt.Printf("  Log level:      %s\n", cfg.Logging.Level)
		return nil
	},
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) > 8 {
		return value[:4] + "..." + value[len(value)-4:]
	}
	return "***"
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}
