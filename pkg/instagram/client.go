package instagram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	errs "socialscope/pkg/errors"
	"socialscope/pkg/logger"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// ProfileEndpoint serves the structured profile payload
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// webAppID is the X-IG-App-ID Instagram's own web client sends;
	// the profile endpoint rejects requests without it.
	webAppID = "936619743392459"
)

// Client wraps HTTP access to Instagram with browser-like headers and
// classified errors.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger
}

// NewClient creates a new Instagram client
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"X-IG-App-ID":     webAppID,
			"Referer":         "https://www.instagram.com/",
		},
		baseURL: BaseURL,
		logger:  log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers[key] = value
	}
}

// Get performs a GET request with the configured headers
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, classifyTransportError(err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// GetJSON performs a GET request and decodes the JSON response
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.WithCode(errs.ErrorTypeNetwork, resp.StatusCode,
			fmt.Sprintf("failed to read response body: %v", err))
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errs.WithCode(errs.ErrorTypeNormalization, resp.StatusCode,
			fmt.Sprintf("failed to parse JSON: %v", err))
	}

	return nil
}

// checkResponseStatus maps HTTP response status onto classified errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.WithCode(errs.ErrorTypeAuth, resp.StatusCode, "authentication required")
	case http.StatusNotFound:
		c.logger.WarnWithFields("resource not found", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.WithCode(errs.ErrorTypeNotFound, resp.StatusCode, "resource not found")
	case http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.WithCode(errs.ErrorTypeRateLimit, resp.StatusCode, "rate limit exceeded")
	default:
		if resp.StatusCode < 400 {
			return nil
		}
		if errs.IsRetryableStatusCode(resp.StatusCode) {
			return errs.WithCode(errs.ErrorTypeServerError, resp.StatusCode, "server error")
		}
		return errs.WithCode(errs.ErrorTypeUnknown, resp.StatusCode,
			fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}
}

// classifyTransportError distinguishes deadline expiry from plain network
// failure so the orchestrator surfaces timeouts as such.
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
