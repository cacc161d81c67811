package bot

import (
	"fmt"
	"strings"

	errs "socialscope/pkg/errors"
	"socialscope/pkg/social"
)

// ParsePlatform maps user input to a platform.
func ParsePlatform(raw string) (social.Platform, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "instagram", "ig":
		return social.Instagram, nil
	case "tiktok", "tt":
		return social.TikTok, nil
	default:
		return "", fmt.Errorf("unknown platform %q, expected instagram or tiktok", raw)
	}
}

func parseLookupArgs(args string) (social.Platform, string, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "", "", fmt.Errorf("Usage: /lookup <instagram|tiktok> <username>")
	}
	platform, err := ParsePlatform(fields[0])
	if err != nil {
		return "", "", err
	}
	return platform, fields[1], nil
}

func callbackData(platform social.Platform, username string) string {
	return fmt.Sprintf("lookup:%s:%s", platform, username)
}

func parseCallbackData(data string) (social.Platform, string, error) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 || parts[0] != "lookup" {
		return "", "", fmt.Errorf("unrecognized callback data %q", data)
	}
	platform, err := ParsePlatform(parts[1])
	if err != nil {
		return "", "", err
	}
	return platform, parts[2], nil
}

func formatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return strings.TrimSuffix(fmt.Sprintf("%.1f", float64(n)/1_000_000), ".0") + "M"
	case n >= 10_000:
		return strings.TrimSuffix(fmt.Sprintf("%.1f", float64(n)/1_000), ".0") + "K"
	default:
		return fmt.Sprintf("%d", n)
	}
}

// RenderRecord formats a full profile card in Telegram Markdown.
func RenderRecord(record social.UserRecord) string {
	var sb strings.Builder

	badge := ""
	if record.IsVerified {
		badge = " ✔"
	}
	sb.WriteString(fmt.Sprintf("*%s* @%s%s\n", record.Platform, record.Username, badge))

	if record.FullName != "" {
		sb.WriteString(fmt.Sprintf("Name: %s\n", record.FullName))
	}
	sb.WriteString(fmt.Sprintf("Followers: %s | Following: %s | Posts: %s\n",
		formatCount(record.Followers), formatCount(record.Following), formatCount(record.PostsCount)))
	if record.Likes > 0 {
		sb.WriteString(fmt.Sprintf("Likes: %s\n", formatCount(record.Likes)))
	}
	if !record.IsPublic {
		sb.WriteString("Private account\n")
	}
	if record.IsBusiness {
		sb.WriteString("Business account\n")
	}
	if record.Bio != "" {
		sb.WriteString(fmt.Sprintf("Bio: %s\n", record.Bio))
	}
	if record.ExternalURL != "" {
		sb.WriteString(fmt.Sprintf("Link: %s\n", record.ExternalURL))
	}
	if record.FullLocation != "" && record.FullLocation != social.LocationUnknown {
		sb.WriteString(fmt.Sprintf("Location: %s\n", record.FullLocation))
	}
	sb.WriteString(fmt.Sprintf("Fetched: %s", record.FetchedAt.Format("2006-01-02 15:04 MST")))

	return sb.String()
}

// RenderRecordShort formats a one-line summary for lists.
func RenderRecordShort(record social.UserRecord) string {
	badge := ""
	if record.IsVerified {
		badge = " ✔"
	}
	return fmt.Sprintf("[%s] @%s%s - %s followers",
		record.Platform, record.Username, badge, formatCount(record.Followers))
}

// describeFailure maps classified errors onto the user-visible outcomes:
// profile missing, throttled, misconfigured, or temporarily unavailable.
// Config and auth failures must not suggest retrying; no amount of waiting
// fixes a missing API key or a dead session.
func describeFailure(platform social.Platform, username string, err error) string {
	switch errs.TypeOf(err) {
	case errs.ErrorTypeNotFound:
		return fmt.Sprintf("No %s profile named @%s.", platform, username)
	case errs.ErrorTypeRateLimit:
		return "The service is throttling us right now, please try again in a few minutes."
	case errs.ErrorTypeConfig:
		return fmt.Sprintf("The %s service is not configured, ask the operator to check the setup.", platform)
	case errs.ErrorTypeAuth:
		return fmt.Sprintf("The stored %s credentials were rejected, ask the operator to log in again.", platform)
	default:
		return fmt.Sprintf("Could not fetch @%s right now, please try again later.", username)
	}
}
