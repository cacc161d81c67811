package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"socialscope/pkg/export"
	"socialscope/pkg/fetcher"
	"socialscope/pkg/social"
)

var (
	batchFile    string
	batchWorkers int
	batchOutput  string
)

var batchCmd = &cobra.Command{
	Use:   "batch <instagram|tiktok> [username...]",
	Short: "Fetch metadata for several profiles concurrently",
	Long: `Fetch metadata for a list of profiles. Usernames come from the command
line, or one per line from a file with --file. Lookups run on a bounded
worker pool; individual failures are reported per username and do not
stop the batch.`,
	Example: `  # Look up three Instagram profiles
  socialscope batch instagram natgeo nasa bbcearth

  # Look up TikTok profiles listed in a file, five at a time
  socialscope batch tiktok --file handles.txt --workers 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if batchWorkers > 0 {
			cfg.Batch.Workers = batchWorkers
		}
		application, err := newApp(cfg)
		if err != nil {
			return err
		}

		platform, err := parsePlatformArg(args[0])
		if err != nil {
			return err
		}

		usernames := args[1:]
		if batchFile != "" {
			fromFile, err := readUsernameFile(batchFile)
			if err != nil {
				return err
			}
			usernames = append(usernames, fromFile...)
		}
		if len(usernames) == 0 {
			return fmt.Errorf("no usernames given, pass them as arguments or via --file")
		}

		jobs := make([]fetcher.BatchJob, len(usernames))
		for i, username := range usernames {
			jobs[i] = fetcher.BatchJob{Platform: platform, Username: username}
		}

		ctx, stop := signalContext()
		defer stop()

		results := application.batch.Run(ctx, jobs)

		var failed int
		var succeeded []social.UserRecord
		for _, result := range results {
			if result.Err != nil {
				failed++
				fmt.Printf("@%s: %v\n", result.Job.Username,
					describeLookupError(platform, result.Job.Username, result.Err))
				continue
			}
			succeeded = append(succeeded, result.Record)
			fmt.Printf("@%s: %d followers, %d following, %d posts (%.1fs)\n",
				result.Record.Username, result.Record.Followers,
				result.Record.Following, result.Record.PostsCount,
				result.Duration.Seconds())
		}

		fmt.Printf("\n%d succeeded, %d failed\n", len(results)-failed, failed)

		if batchOutput != "" && len(succeeded) > 0 {
			if err := writeBatchCSV(batchOutput, succeeded); err != nil {
				return err
			}
			fmt.Printf("Wrote %d profiles to %s\n", len(succeeded), batchOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "file with one username per line")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "number of concurrent lookups")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "write successful results to a CSV file")
}

func writeBatchCSV(path string, records []social.UserRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	return export.WriteCSV(f, records)
}

func readUsernameFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open username file: %w", err)
	}
	defer f.Close()

	var usernames []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		usernames = append(usernames, line)
	}
	return usernames, scanner.Err()
}
