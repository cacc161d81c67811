package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	errs "socialscope/pkg/errors"
	"socialscope/pkg/logger"
	"socialscope/pkg/normalize"
	"socialscope/pkg/ratelimit"
)

// profileResponse is the envelope the web_profile_info endpoint returns.
// The user object is kept as a raw mapping so the normalizer owns all
// knowledge of its field names.
type profileResponse struct {
	RequiresToLogin bool `json:"requires_to_login"`
	Data            struct {
		User map[string]interface{} `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

// AnonymousStrategy fetches public Instagram profiles without credentials.
// It asks the structured profile endpoint first and falls back to regex
// extraction over the profile page's inline script content when the
// structured payload is unavailable or malformed.
type AnonymousStrategy struct {
	client  *Client
	limiter ratelimit.Limiter
	logger  logger.Logger
}

// NewAnonymousStrategy creates the anonymous scrape strategy
func NewAnonymousStrategy(client *Client, limiter ratelimit.Limiter, log logger.Logger) *AnonymousStrategy {
	if log == nil {
		log = logger.GetLogger()
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	return &AnonymousStrategy{client: client, limiter: limiter, logger: log}
}

// Name identifies the strategy in logs and terminal errors
func (s *AnonymousStrategy) Name() string { return "instagram_anonymous" }

// Fetch retrieves the raw profile payload for username
func (s *AnonymousStrategy) Fetch(ctx context.Context, username string) (normalize.RawPayload, error) {
	s.limiter.Wait()

	payload, err := s.fetchStructured(ctx, username)
	if err == nil {
		return payload, nil
	}

	// Not-found and throttling are authoritative answers, not parse trouble;
	// only shape problems are worth the HTML detour.
	switch errs.TypeOf(err) {
	case errs.ErrorTypeNotFound, errs.ErrorTypeRateLimit, errs.ErrorTypeTimeout:
		return normalize.RawPayload{}, err
	}

	s.logger.WarnWithFields("structured profile payload unavailable, scraping HTML", map[string]interface{}{
		"username": username,
		"error":    err.Error(),
	})

	return s.fetchFromHTML(ctx, username)
}

func (s *AnonymousStrategy) fetchStructured(ctx context.Context, username string) (normalize.RawPayload, error) {
	var response profileResponse
	if err := s.client.GetJSON(ctx, ProfileURL(username), &response); err != nil {
		return normalize.RawPayload{}, err
	}

	if response.RequiresToLogin {
		return normalize.RawPayload{}, errs.WithCode(errs.ErrorTypeAuth, http.StatusUnauthorized,
			"Instagram requires authentication to view this profile")
	}

	if len(response.Data.User) == 0 {
		// An empty user object with a 200 status is how the endpoint
		// reports a profile that does not exist.
		return normalize.RawPayload{}, errs.Newf(errs.ErrorTypeNotFound,
			"no profile data for %q", username)
	}

	return normalize.RawPayload{
		Provider: normalize.ProviderInstagramWeb,
		Data:     response.Data.User,
	}, nil
}

// Inline-script and meta-tag patterns for the HTML fallback. The profile
// page embeds the same counters as the structured payload inside script
// blocks, and the og:description meta tag carries a human-readable summary.
var (
	reUsername    = regexp.MustCompile(`"username":"([^"]+)"`)
	reFullName    = regexp.MustCompile(`"full_name":"([^"]*)"`)
	reBiography   = regexp.MustCompile(`"biography":"([^"]*)"`)
	reFollowers   = regexp.MustCompile(`"edge_followed_by":\{"count":(\d+)`)
	reFollowing   = regexp.MustCompile(`"edge_follow":\{"count":(\d+)`)
	rePosts       = regexp.MustCompile(`"edge_owner_to_timeline_media":\{"count":(\d+)`)
	reVerified    = regexp.MustCompile(`"is_verified":(true|false)`)
	rePrivate     = regexp.MustCompile(`"is_private":(true|false)`)
	reExternalURL = regexp.MustCompile(`"external_url":"([^"]*)"`)
	reAccountID   = regexp.MustCompile(`"profilePage_(\d+)"`)

	// "1,234 Followers, 56 Following, 78 Posts - ..." from og:description
	reOGDescription = regexp.MustCompile(`<meta[^>]+property="og:description"[^>]+content="([^"]*)"`)
	reOGCounts      = regexp.MustCompile(`([\d,.KkMm]+)\s+Followers?,\s*([\d,.KkMm]+)\s+Following,\s*([\d,.KkMm]+)\s+Posts`)
)

func (s *AnonymousStrategy) fetchFromHTML(ctx context.Context, username string) (normalize.RawPayload, error) {
	resp, err := s.client.Get(ctx, ProfilePageURL(username))
	if err != nil {
		return normalize.RawPayload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return normalize.RawPayload{}, errs.WithCode(errs.ErrorTypeNotFound, resp.StatusCode,
			fmt.Sprintf("profile %q not found", username))
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return normalize.RawPayload{}, errs.WithCode(errs.ErrorTypeRateLimit, resp.StatusCode,
			"rate limit exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		// Soft failure: let the orchestrator try the next strategy.
		return normalize.RawPayload{}, errs.WithCode(errs.ErrorTypeUnknown, resp.StatusCode,
			fmt.Sprintf("unexpected status %d fetching profile page", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return normalize.RawPayload{}, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read profile page")
	}

	data := ParseProfileHTML(string(body))
	if len(data) == 0 {
		return normalize.RawPayload{}, errs.Newf(errs.ErrorTypeNormalization,
			"no recognizable profile data in HTML for %q", username)
	}

	return normalize.RawPayload{
		Provider: normalize.ProviderInstagramWeb,
		Data:     data,
	}, nil
}

// ParseProfileHTML extracts whatever profile fields the page's inline
// scripts and meta tags expose. It returns an empty map when nothing
// recognizable is present.
func ParseProfileHTML(html string) map[string]interface{} {
	data := make(map[string]interface{})

	setString := func(key string, re *regexp.Regexp) {
		if m := re.FindStringSubmatch(html); m != nil {
			data[key] = decodeJSONString(m[1])
		}
	}
	setCount := func(key string, re *regexp.Regexp) {
		if m := re.FindStringSubmatch(html); m != nil {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				data[key] = float64(n)
			}
		}
	}
	setBool := func(key string, re *regexp.Regexp) {
		if m := re.FindStringSubmatch(html); m != nil {
			data[key] = m[1] == "true"
		}
	}

	setString("username", reUsername)
	setString("full_name", reFullName)
	setString("biography", reBiography)
	setString("external_url", reExternalURL)
	setCount("follower_count", reFollowers)
	setCount("following_count", reFollowing)
	setCount("media_count", rePosts)
	setBool("is_verified", reVerified)
	setBool("is_private", rePrivate)

	if m := reAccountID.FindStringSubmatch(html); m != nil {
		data["id"] = m[1]
	}

	// Fill counters from og:description when the script blocks are absent.
	if _, ok := data["follower_count"]; !ok {
		if m := reOGDescription.FindStringSubmatch(html); m != nil {
			if counts := reOGCounts.FindStringSubmatch(m[1]); counts != nil {
				data["follower_count"] = parseAbbreviated(counts[1])
				data["following_count"] = parseAbbreviated(counts[2])
				data["media_count"] = parseAbbreviated(counts[3])
			}
		}
	}

	return data
}

// parseAbbreviated reads counter strings like "1,234", "10.5K" or "2M".
func parseAbbreviated(raw string) float64 {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	multiplier := 1.0
	switch {
	case strings.HasSuffix(raw, "K"), strings.HasSuffix(raw, "k"):
		multiplier = 1_000
		raw = raw[:len(raw)-1]
	case strings.HasSuffix(raw, "M"), strings.HasSuffix(raw, "m"):
		multiplier = 1_000_000
		raw = raw[:len(raw)-1]
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return n * multiplier
}

// decodeJSONString unescapes a value captured from inside a JSON string
// literal (\uXXXX sequences and friends).
func decodeJSONString(raw string) string {
	var decoded string
	if err := json.Unmarshal([]byte(`"`+raw+`"`), &decoded); err != nil {
		return raw
	}
	return decoded
}

// ProfileURL constructs the structured profile endpoint URL for a username
func ProfileURL(username string) string {
	params := url.Values{}
	params.Set("username", username)
	return fmt.Sprintf("%s%s?%s", BaseURL, ProfileEndpoint, params.Encode())
}

// ProfilePageURL constructs the public HTML profile URL for a username
func ProfilePageURL(username string) string {
	return fmt.Sprintf("%s/%s/", BaseURL, url.PathEscape(username))
}
