package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	errs "socialscope/pkg/errors"
	"socialscope/pkg/social"
)

var lookupJSON bool

var lookupCmd = &cobra.Command{
	Use:   "lookup <instagram|tiktok> <username>",
	Short: "Fetch metadata for one profile",
	Example: `  # Look up an Instagram profile
  socialscope lookup instagram natgeo

  # Look up a TikTok profile and print raw JSON
  socialscope lookup tiktok charlidamelio --json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		application, err := newApp(cfg)
		if err != nil {
			return err
		}

		platform, err := parsePlatformArg(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		record, err := application.orchestrator.Lookup(ctx, platform, args[1])
		if err != nil {
			return describeLookupError(platform, args[1], err)
		}

		if lookupJSON {
			return printJSON(record)
		}
		printRecord(record)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "print the record as JSON")
}

func parsePlatformArg(raw string) (social.Platform, error) {
	switch strings.ToLower(raw) {
	case "instagram", "ig":
		return social.Instagram, nil
	case "tiktok", "tt":
		return social.TikTok, nil
	default:
		return "", fmt.Errorf("unknown platform %q, expected instagram or tiktok", raw)
	}
}

// signalContext cancels on Ctrl-C so in-flight backoff waits abort.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func describeLookupError(platform social.Platform, username string, err error) error {
	switch errs.TypeOf(err) {
	case errs.ErrorTypeNotFound:
		return fmt.Errorf("no %s profile named %q", platform, username)
	case errs.ErrorTypeRateLimit:
		return fmt.Errorf("%s is throttling requests, try again in a few minutes", platform)
	case errs.ErrorTypeConfig:
		return fmt.Errorf("%s lookups are not configured (%v), check your config or run 'socialscope config validate'", platform, err)
	case errs.ErrorTypeAuth:
		return fmt.Errorf("%s rejected the stored credentials, run 'socialscope auth login' again", platform)
	default:
		return err
	}
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printRecord(record social.UserRecord) {
	fmt.Printf("%s @%s", record.Platform, record.Username)
	if record.IsVerified {
		fmt.Print(" (verified)")
	}
	fmt.Println()

	if record.FullName != "" {
		fmt.Printf("  Name:       %s\n", record.FullName)
	}
	fmt.Printf("  Followers:  %d\n", record.Followers)
	fmt.Printf("  Following:  %d\n", record.Following)
	fmt.Printf("  Posts:      %d\n", record.PostsCount)
	if record.Likes > 0 {
		fmt.Printf("  Likes:      %d\n", record.Likes)
	}
	fmt.Printf("  Public:     %t\n", record.IsPublic)
	if record.IsBusiness {
		fmt.Printf("  Business:   true\n")
	}
	if record.Bio != "" {
		fmt.Printf("  Bio:        %s\n", record.Bio)
	}
	if record.ExternalURL != "" {
		fmt.Printf("  Link:       %s\n", record.ExternalURL)
	}
	if record.FullLocation != "" && record.FullLocation != social.LocationUnknown {
		fmt.Printf("  Location:   %s\n", record.FullLocation)
	}
	fmt.Printf("  Fetched:    %s\n", record.FetchedAt.Format("2006-01-02 15:04:05 MST"))
}
