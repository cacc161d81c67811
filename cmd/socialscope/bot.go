package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"socialscope/internal/bot"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	Long: `Run the Telegram bot front end. The bot answers profile lookups in chat
and shares the same cache, history and acquisition strategies as the CLI.

The bot token comes from the config file, the SOCIALSCOPE_TELEGRAM_TOKEN
or TELEGRAM_TOKEN environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Telegram.Token == "" {
			return fmt.Errorf("no Telegram token configured")
		}

		application, err := newApp(cfg)
		if err != nil {
			return err
		}

		b, err := bot.New(cfg.Telegram.Token, application.orchestrator,
			application.batch, application.history, application.cache, application.logger)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		b.Start(ctx)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}
