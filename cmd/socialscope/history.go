package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"socialscope/pkg/history"
	"socialscope/pkg/logger"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past lookups",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}

		records := store.List()
		if len(records) == 0 {
			fmt.Println("No lookups recorded yet.")
			return nil
		}

		if historyJSON {
			return printJSON(records)
		}

		for _, record := range records {
			verified := ""
			if record.IsVerified {
				verified = " (verified)"
			}
			fmt.Printf("%-20s %-10s @%-30s %10d followers%s\n",
				record.FetchedAt.Format("2006-01-02 15:04:05"),
				record.Platform, record.Username, record.Followers, verified)
		}
		fmt.Printf("\n%d profiles in history\n", len(records))
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the lookup history",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Println("History cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print the history as JSON")
}

// openHistory loads just the history store, without wiring strategies.
func openHistory() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return history.NewStore(cfg.History.File, logger.GetLogger()), nil
}
