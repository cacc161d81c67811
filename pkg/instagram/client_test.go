package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "socialscope/pkg/errors"
	"socialscope/pkg/logger"
)

// mockRoundTripper returns canned responses keyed by URL substring.
type mockRoundTripper struct {
	responses map[string]*http.Response
	err       error
	requests  []*http.Request
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	for key, resp := range m.responses {
		if strings.Contains(req.URL.String(), key) {
			resp.Request = req
			return resp, nil
		}
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("")),
		Request:    req,
	}, nil
}

func newMockResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func newTestClient(rt http.RoundTripper) *Client {
	client := NewClient(10*time.Second, logger.NewTestLogger())
	client.httpClient.Transport = rt
	return client
}

func TestClientGetSendsHeaders(t *testing.T) {
	rt := &mockRoundTripper{responses: map[string]*http.Response{
		"instagram.com": newMockResponse(http.StatusOK, "ok"),
	}}
	client := newTestClient(rt)

	resp, err := client.Get(context.Background(), "https://www.instagram.com/testuser/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Len(t, rt.requests, 1)
	req := rt.requests[0]
	assert.Equal(t, webAppID, req.Header.Get("X-IG-App-ID"))
	assert.Contains(t, req.Header.Get("User-Agent"), "Mozilla")
}

func TestClientGetJSONDecodesBody(t *testing.T) {
	body := `{"status":"ok","data":{"user":{"username":"testuser"}}}`
	rt := &mockRoundTripper{responses: map[string]*http.Response{
		"web_profile_info": newMockResponse(http.StatusOK, body),
	}}
	client := newTestClient(rt)

	var decoded profileResponse
	err := client.GetJSON(context.Background(), ProfileURL("testuser"), &decoded)
	require.NoError(t, err)
	assert.Equal(t, "ok", decoded.Status)
	assert.Equal(t, "testuser", decoded.Data.User["username"])
}

func TestClientGetJSONMalformedBody(t *testing.T) {
	rt := &mockRoundTripper{responses: map[string]*http.Response{
		"web_profile_info": newMockResponse(http.StatusOK, "<!DOCTYPE html><html>"),
	}}
	client := newTestClient(rt)

	var decoded profileResponse
	err := client.GetJSON(context.Background(), ProfileURL("testuser"), &decoded)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNormalization))
}

func TestClientStatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		wantType errs.ErrorType
	}{
		{http.StatusUnauthorized, errs.ErrorTypeAuth},
		{http.StatusForbidden, errs.ErrorTypeAuth},
		{http.StatusNotFound, errs.ErrorTypeNotFound},
		{http.StatusTooManyRequests, errs.ErrorTypeRateLimit},
		{http.StatusInternalServerError, errs.ErrorTypeServerError},
		{http.StatusGatewayTimeout, errs.ErrorTypeServerError},
		{http.StatusTeapot, errs.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			rt := &mockRoundTripper{responses: map[string]*http.Response{
				"web_profile_info": newMockResponse(tt.status, "{}"),
			}}
			client := newTestClient(rt)

			var decoded profileResponse
			err := client.GetJSON(context.Background(), ProfileURL("x"), &decoded)
			require.Error(t, err)
			assert.True(t, errs.IsType(err, tt.wantType), "got %v", err)
		})
	}
}

func TestClientContextCancellation(t *testing.T) {
	rt := &mockRoundTripper{responses: map[string]*http.Response{
		"instagram.com": newMockResponse(http.StatusOK, "ok"),
	}}
	client := newTestClient(rt)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Get(ctx, "https://www.instagram.com/testuser/")
	require.Error(t, err)
}
