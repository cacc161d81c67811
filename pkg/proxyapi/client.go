// Package proxyapi fetches profile metadata through hosted RapidAPI
// scraping providers. The providers absorb the anti-bot measures, so
// this path works when direct scraping is blocked, at the cost of an
// API key and provider rate limits.
package proxyapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	errs "socialscope/pkg/errors"
	"socialscope/pkg/logger"
	"socialscope/pkg/normalize"
)

const (
	// DefaultInstagramHost is the RapidAPI host serving Instagram profiles
	DefaultInstagramHost = "instagram-scraper-api2.p.rapidapi.com"

	// DefaultTikTokHost is the RapidAPI host serving TikTok profiles
	DefaultTikTokHost = "tiktok-api23.p.rapidapi.com"
)

// Client holds the shared RapidAPI credentials and transport.
type Client struct {
	httpClient *http.Client
	apiKey     string
	logger     logger.Logger
}

// NewClient creates a RapidAPI client. The key is required; callers
// decide at wiring time whether the proxy path is available at all.
func NewClient(apiKey string, timeout time.Duration, log logger.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errs.New(errs.ErrorTypeConfig, "RapidAPI key is not configured")
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		logger:     log,
	}, nil
}

// get performs a RapidAPI request against host and decodes the body into
// a generic mapping.
func (c *Client) get(ctx context.Context, host, path string, params url.Values) (map[string]interface{}, error) {
	endpoint := fmt.Sprintf("https://%s%s?%s", host, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}
	req.Header.Set("x-rapidapi-host", host)
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errs.Wrap(errs.ErrorTypeTimeout, err, "proxy API request timed out")
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, errs.Wrap(errs.ErrorTypeTimeout, err, "proxy API request timed out")
		}
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, fmt.Sprintf("proxy API request failed: %v", err))
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("proxy API request completed", map[string]interface{}{
		"host":     host,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errs.WithCode(errs.ErrorTypeNotFound, resp.StatusCode, "profile not found")
	case http.StatusTooManyRequests:
		return nil, errs.WithCode(errs.ErrorTypeRateLimit, resp.StatusCode, "proxy API rate limit exceeded")
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, errs.WithCode(errs.ErrorTypeAuth, resp.StatusCode, "proxy API rejected the key")
	default:
		if errs.IsRetryableStatusCode(resp.StatusCode) {
			return nil, errs.WithCode(errs.ErrorTypeServerError, resp.StatusCode, "proxy API server error")
		}
		return nil, errs.WithCode(errs.ErrorTypeUnknown, resp.StatusCode,
			fmt.Sprintf("unexpected proxy API status: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read proxy API response")
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNormalization, err, "failed to parse proxy API response")
	}
	return decoded, nil
}

// InstagramStrategy fetches Instagram profiles through RapidAPI.
type InstagramStrategy struct {
	client *Client
	host   string
}

// NewInstagramStrategy creates the Instagram proxy strategy
func NewInstagramStrategy(client *Client, host string) *InstagramStrategy {
	if host == "" {
		host = DefaultInstagramHost
	}
	return &InstagramStrategy{client: client, host: host}
}

func (s *InstagramStrategy) Name() string { return "instagram_proxy" }

// Fetch retrieves the raw profile payload for username. The provider
// wraps the profile object in a "data" envelope.
func (s *InstagramStrategy) Fetch(ctx context.Context, username string) (normalize.RawPayload, error) {
	params := url.Values{}
	params.Set("username_or_id_or_url", username)

	decoded, err := s.client.get(ctx, s.host, "/v1/info", params)
	if err != nil {
		return normalize.RawPayload{}, err
	}

	data, ok := decoded["data"].(map[string]interface{})
	if !ok || len(data) == 0 {
		return normalize.RawPayload{}, errs.Newf(errs.ErrorTypeNotFound,
			"proxy API returned no profile data for %q", username)
	}

	return normalize.RawPayload{
		Provider: normalize.ProviderInstagramProxy,
		Data:     data,
	}, nil
}

// TikTokStrategy fetches TikTok profiles through RapidAPI.
type TikTokStrategy struct {
	client *Client
	host   string
}

// NewTikTokStrategy creates the TikTok proxy strategy
func NewTikTokStrategy(client *Client, host string) *TikTokStrategy {
	if host == "" {
		host = DefaultTikTokHost
	}
	return &TikTokStrategy{client: client, host: host}
}

func (s *TikTokStrategy) Name() string { return "tiktok_proxy" }

// Fetch retrieves the raw profile payload for username. The provider
// answers either with a flat user object or with separate "user" and
// "stats" objects, possibly under a "data" envelope; the stats counters
// are merged into the user map so the normalizer sees one object.
func (s *TikTokStrategy) Fetch(ctx context.Context, username string) (normalize.RawPayload, error) {
	params := url.Values{}
	params.Set("uniqueId", username)

	decoded, err := s.client.get(ctx, s.host, "/api/user/info", params)
	if err != nil {
		return normalize.RawPayload{}, err
	}

	data := unwrapTikTok(decoded)
	if len(data) == 0 {
		return normalize.RawPayload{}, errs.Newf(errs.ErrorTypeNotFound,
			"proxy API returned no profile data for %q", username)
	}

	return normalize.RawPayload{
		Provider: normalize.ProviderTikTokProxy,
		Data:     data,
	}, nil
}

func unwrapTikTok(decoded map[string]interface{}) map[string]interface{} {
	envelope := decoded
	if inner, ok := decoded["data"].(map[string]interface{}); ok {
		envelope = inner
	}
	if info, ok := envelope["userInfo"].(map[string]interface{}); ok {
		envelope = info
	}

	user, ok := envelope["user"].(map[string]interface{})
	if !ok {
		// Some plans answer with the user object at the top level.
		if _, hasID := envelope["uniqueId"]; hasID {
			return envelope
		}
		return nil
	}

	data := make(map[string]interface{}, len(user)+1)
	for k, v := range user {
		data[k] = v
	}
	if stats, ok := envelope["stats"].(map[string]interface{}); ok {
		data["stats"] = stats
	}
	return data
}
