package tiktok

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	errs "socialscope/pkg/errors"
	"socialscope/pkg/logger"
	"socialscope/pkg/normalize"
	"socialscope/pkg/ratelimit"
)

// BaseURL is the base URL for TikTok
const BaseURL = "https://www.tiktok.com"

// ScrapeStrategy fetches public TikTok profiles by parsing the hydration
// state TikTok embeds in the profile page. No credentials are needed; the
// page serves the full user and stats objects to anonymous visitors.
type ScrapeStrategy struct {
	httpClient *http.Client
	headers    map[string]string
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// NewScrapeStrategy creates the anonymous TikTok scrape strategy
func NewScrapeStrategy(timeout time.Duration, limiter ratelimit.Limiter, log logger.Logger) *ScrapeStrategy {
	if log == nil {
		log = logger.GetLogger()
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	return &ScrapeStrategy{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Referer":         "https://www.tiktok.com/",
		},
		limiter: limiter,
		logger:  log,
	}
}

func (s *ScrapeStrategy) Name() string { return "tiktok_scrape" }

// Fetch retrieves the raw profile payload for username
func (s *ScrapeStrategy) Fetch(ctx context.Context, username string) (normalize.RawPayload, error) {
	s.limiter.Wait()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ProfilePageURL(username), nil)
	if err != nil {
		return normalize.RawPayload{}, errs.Newf(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}
	for key, value := range s.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return normalize.RawPayload{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	s.logger.DebugWithFields("fetched TikTok profile page", map[string]interface{}{
		"username": username,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return normalize.RawPayload{}, errs.WithCode(errs.ErrorTypeNotFound, resp.StatusCode,
			fmt.Sprintf("profile %q not found", username))
	case http.StatusTooManyRequests:
		return normalize.RawPayload{}, errs.WithCode(errs.ErrorTypeRateLimit, resp.StatusCode,
			"rate limit exceeded")
	default:
		if resp.StatusCode >= 500 {
			return normalize.RawPayload{}, errs.WithCode(errs.ErrorTypeServerError, resp.StatusCode,
				"server error")
		}
		return normalize.RawPayload{}, errs.WithCode(errs.ErrorTypeUnknown, resp.StatusCode,
			fmt.Sprintf("unexpected status %d fetching profile page", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return normalize.RawPayload{}, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read profile page")
	}

	data, err := ParseProfilePage(string(body), username)
	if err != nil {
		return normalize.RawPayload{}, err
	}

	return normalize.RawPayload{
		Provider: normalize.ProviderTikTokWeb,
		Data:     data,
	}, nil
}

var (
	reSigiState     = regexp.MustCompile(`<script id="SIGI_STATE"[^>]*>(.*?)</script>`)
	reUniversalData = regexp.MustCompile(`<script id="__UNIVERSAL_DATA_FOR_REHYDRATION__"[^>]*>(.*?)</script>`)

	reUniqueID  = regexp.MustCompile(`"uniqueId":"([^"]+)"`)
	reNickname  = regexp.MustCompile(`"nickname":"([^"]*)"`)
	reSignature = regexp.MustCompile(`"signature":"([^"]*)"`)
	reFollowers = regexp.MustCompile(`"followerCount":(\d+)`)
	reFollowing = regexp.MustCompile(`"followingCount":(\d+)`)
	reHearts    = regexp.MustCompile(`"heartCount":(\d+)`)
	reVideos    = regexp.MustCompile(`"videoCount":(\d+)`)
	reVerified  = regexp.MustCompile(`"verified":(true|false)`)
	rePrivate   = regexp.MustCompile(`"privateAccount":(true|false)`)
	reUserID    = regexp.MustCompile(`"id":"(\d+)"`)
)

// ParseProfilePage locates the embedded hydration JSON and extracts the
// user and stats objects. When neither script block parses it falls back
// to field-level regex extraction over the raw HTML.
func ParseProfilePage(html, username string) (map[string]interface{}, error) {
	if data := parseSigiState(html); data != nil {
		return data, nil
	}
	if data := parseUniversalData(html); data != nil {
		return data, nil
	}

	data := parseWithRegex(html)
	if len(data) == 0 {
		return nil, errs.Newf(errs.ErrorTypeNormalization,
			"no recognizable profile data in page for %q", username)
	}
	return data, nil
}

// parseSigiState reads the legacy SIGI_STATE blob: UserModule.users holds
// the profile keyed by username, UserModule.stats the counters.
func parseSigiState(html string) map[string]interface{} {
	m := reSigiState.FindStringSubmatch(html)
	if m == nil {
		return nil
	}

	var state struct {
		UserModule struct {
			Users map[string]map[string]interface{} `json:"users"`
			Stats map[string]map[string]interface{} `json:"stats"`
		} `json:"UserModule"`
	}
	if err := json.Unmarshal([]byte(m[1]), &state); err != nil {
		return nil
	}

	for key, user := range state.UserModule.Users {
		data := make(map[string]interface{}, len(user)+1)
		for k, v := range user {
			data[k] = v
		}
		if stats, ok := state.UserModule.Stats[key]; ok {
			data["stats"] = stats
		}
		return data
	}
	return nil
}

// parseUniversalData reads the newer rehydration blob where the user
// detail lives under __DEFAULT_SCOPE__ → webapp.user-detail → userInfo.
func parseUniversalData(html string) map[string]interface{} {
	m := reUniversalData.FindStringSubmatch(html)
	if m == nil {
		return nil
	}

	var state struct {
		DefaultScope map[string]json.RawMessage `json:"__DEFAULT_SCOPE__"`
	}
	if err := json.Unmarshal([]byte(m[1]), &state); err != nil {
		return nil
	}

	detail, ok := state.DefaultScope["webapp.user-detail"]
	if !ok {
		return nil
	}

	var userInfo struct {
		UserInfo struct {
			User  map[string]interface{} `json:"user"`
			Stats map[string]interface{} `json:"stats"`
		} `json:"userInfo"`
	}
	if err := json.Unmarshal(detail, &userInfo); err != nil {
		return nil
	}
	if len(userInfo.UserInfo.User) == 0 {
		return nil
	}

	data := make(map[string]interface{}, len(userInfo.UserInfo.User)+1)
	for k, v := range userInfo.UserInfo.User {
		data[k] = v
	}
	if len(userInfo.UserInfo.Stats) > 0 {
		data["stats"] = userInfo.UserInfo.Stats
	}
	return data
}

func parseWithRegex(html string) map[string]interface{} {
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

	setString("uniqueId", reUniqueID)
	setString("nickname", reNickname)
	setString("signature", reSignature)
	setCount("followerCount", reFollowers)
	setCount("followingCount", reFollowing)
	setCount("heartCount", reHearts)
	setCount("videoCount", reVideos)
	setBool("verified", reVerified)
	setBool("privateAccount", rePrivate)

	if m := reUserID.FindStringSubmatch(html); m != nil {
		data["id"] = m[1]
	}

	return data
}

func decodeJSONString(raw string) string {
	var decoded string
	if err := json.Unmarshal([]byte(`"`+raw+`"`), &decoded); err != nil {
		return raw
	}
	return decoded
}

// ProfilePageURL constructs the public profile URL for a username
func ProfilePageURL(username string) string {
	return fmt.Sprintf("%s/@%s", BaseURL, url.PathEscape(username))
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.ErrorTypeTimeout, err, "request timed out")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.Wrap(errs.ErrorTypeTimeout, err, "request timed out")
	}
	return errs.Wrap(errs.ErrorTypeNetwork, err, fmt.Sprintf("network error: %v", err))
}
