package proxyapi

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "socialscope/pkg/errors"
	"socialscope/pkg/logger"
	"socialscope/pkg/normalize"
)

type mockRoundTripper struct {
	status   int
	body     string
	requests []*http.Request
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)
	return &http.Response{
		StatusCode: m.status,
		Body:       io.NopCloser(strings.NewReader(m.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func newTestClient(t *testing.T, rt http.RoundTripper) *Client {
	t.Helper()
	client, err := NewClient("test-key", 5*time.Second, logger.NewTestLogger())
	require.NoError(t, err)
	client.httpClient.Transport = rt
	return client
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("", 5*time.Second, logger.NewTestLogger())
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfig))
}

func TestInstagramStrategyFetch(t *testing.T) {
	rt := &mockRoundTripper{
		status: http.StatusOK,
		body:   `{"data":{"username":"testuser","full_name":"Test User","follower_count":1234}}`,
	}
	strategy := NewInstagramStrategy(newTestClient(t, rt), "")

	payload, err := strategy.Fetch(context.Background(), "testuser")
	require.NoError(t, err)
	assert.Equal(t, normalize.ProviderInstagramProxy, payload.Provider)
	assert.Equal(t, "testuser", payload.Data["username"])

	require.Len(t, rt.requests, 1)
	req := rt.requests[0]
	assert.Equal(t, DefaultInstagramHost, req.URL.Host)
	assert.Equal(t, "test-key", req.Header.Get("x-rapidapi-key"))
	assert.Equal(t, DefaultInstagramHost, req.Header.Get("x-rapidapi-host"))
	assert.Equal(t, "testuser", req.URL.Query().Get("username_or_id_or_url"))
}

func TestInstagramStrategyEmptyData(t *testing.T) {
	rt := &mockRoundTripper{status: http.StatusOK, body: `{"data":{}}`}
	strategy := NewInstagramStrategy(newTestClient(t, rt), "")

	_, err := strategy.Fetch(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNotFound))
}

func TestProxyStatusClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType errs.ErrorType
	}{
		{"not_found", http.StatusNotFound, errs.ErrorTypeNotFound},
		{"rate_limited", http.StatusTooManyRequests, errs.ErrorTypeRateLimit},
		{"bad_key", http.StatusForbidden, errs.ErrorTypeAuth},
		{"upstream_down", http.StatusBadGateway, errs.ErrorTypeServerError},
		{"gateway_timeout", http.StatusGatewayTimeout, errs.ErrorTypeServerError},
		{"teapot", http.StatusTeapot, errs.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &mockRoundTripper{status: tt.status, body: `{}`}
			strategy := NewInstagramStrategy(newTestClient(t, rt), "")

			_, err := strategy.Fetch(context.Background(), "testuser")
			require.Error(t, err)
			assert.True(t, errs.IsType(err, tt.wantType), "got %v", err)
		})
	}
}

func TestTikTokStrategyFetch(t *testing.T) {
	rt := &mockRoundTripper{
		status: http.StatusOK,
		body:   `{"userInfo":{"user":{"uniqueId":"dancer","nickname":"Dancer","verified":true},"stats":{"followerCount":500,"heartCount":9000}}}`,
	}
	strategy := NewTikTokStrategy(newTestClient(t, rt), "")

	payload, err := strategy.Fetch(context.Background(), "dancer")
	require.NoError(t, err)
	assert.Equal(t, normalize.ProviderTikTokProxy, payload.Provider)
	assert.Equal(t, "dancer", payload.Data["uniqueId"])

	stats, ok := payload.Data["stats"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(500), stats["followerCount"])

	require.Len(t, rt.requests, 1)
	req := rt.requests[0]
	assert.Equal(t, "/api/user/info", req.URL.Path)
	assert.Equal(t, "dancer", req.URL.Query().Get("uniqueId"))
}

func TestUnwrapTikTokShapes(t *testing.T) {
	tests := []struct {
		name    string
		decoded map[string]interface{}
		wantID  interface{}
	}{
		{
			name: "data_envelope",
			decoded: map[string]interface{}{
				"data": map[string]interface{}{
					"user": map[string]interface{}{"uniqueId": "a"},
				},
			},
			wantID: "a",
		},
		{
			name: "top_level_user",
			decoded: map[string]interface{}{
				"user": map[string]interface{}{"uniqueId": "b"},
			},
			wantID: "b",
		},
		{
			name:    "flat_user_object",
			decoded: map[string]interface{}{"uniqueId": "c", "nickname": "C"},
			wantID:  "c",
		},
		{
			name:    "unrecognized",
			decoded: map[string]interface{}{"message": "no such user"},
			wantID:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := unwrapTikTok(tt.decoded)
			if tt.wantID == nil {
				assert.Nil(t, data)
				return
			}
			require.NotNil(t, data)
			assert.Equal(t, tt.wantID, data["uniqueId"])
		})
	}
}
