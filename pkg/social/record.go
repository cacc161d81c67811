package social

import (
	"strings"
	"time"
)

// Platform identifies a supported social network.
type Platform string

const (
	Instagram Platform = "Instagram"
	TikTok    Platform = "TikTok"
)

// LocationUnknown is the sentinel used for absent location fields so that
// exporters and the bot never have to branch on the source of a record.
const LocationUnknown = "unknown"

// UserRecord is the canonical profile shape every retrieval strategy is
// normalized into. It is immutable once created.
type UserRecord struct {
	Platform     Platform  `json:"platform"`
	Username     string    `json:"username"`
	AccountID    string    `json:"account_id,omitempty"`
	FullName     string    `json:"full_name"`
	Bio          string    `json:"bio"`
	Followers    int64     `json:"followers"`
	Following    int64     `json:"following"`
	PostsCount   int64     `json:"posts_count"`
	Likes        int64     `json:"likes"`
	IsVerified   bool      `json:"is_verified"`
	IsPublic     bool      `json:"is_public"`
	IsBusiness   bool      `json:"is_business_account"`
	ExternalURL  string    `json:"external_url,omitempty"`
	Country      string    `json:"country"`
	City         string    `json:"city"`
	FullLocation string    `json:"full_location"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Key returns the cache/coalescing key for a (platform, username) pair.
func Key(platform Platform, username string) string {
	return string(platform) + ":" + strings.ToLower(username)
}

// NormalizeUsername strips the leading "@" and any trailing slashes or
// whitespace users tend to paste along with a profile URL.
func NormalizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	return strings.TrimRight(username, "/ ")
}

// ValidUsername reports whether a username is plausible for the platform.
// Both platforms restrict handles to letters, digits, periods and underscores.
func ValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}
	return true
}
