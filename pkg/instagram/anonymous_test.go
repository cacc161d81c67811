package instagram

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "socialscope/pkg/errors"
	"socialscope/pkg/logger"
	"socialscope/pkg/normalize"
	"socialscope/pkg/ratelimit"
)

const sampleProfileJSON = `{
	"status": "ok",
	"data": {
		"user": {
			"username": "testuser",
			"full_name": "Test User",
			"biography": "hello world",
			"is_verified": true,
			"is_private": false,
			"edge_followed_by": {"count": 1234},
			"edge_follow": {"count": 56},
			"edge_owner_to_timeline_media": {"count": 78}
		}
	}
}`

const sampleProfileHTML = `<!DOCTYPE html><html><head>
<meta property="og:description" content="10.5K Followers, 321 Following, 42 Posts - see photos and videos" />
</head><body><script type="text/javascript">
window.__additionalData = {"user":{"username":"htmluser","full_name":"HTML User","biography":"from the page","is_verified":false,"is_private":true,"edge_followed_by":{"count":10500},"edge_follow":{"count":321},"edge_owner_to_timeline_media":{"count":42}}};
</script></body></html>`

func newAnonymous(rt http.RoundTripper) *AnonymousStrategy {
	return NewAnonymousStrategy(newTestClient(rt), ratelimit.Unlimited{}, logger.NewTestLogger())
}

func TestAnonymousFetchStructured(t *testing.T) {
	rt := &mockRoundTripper{responses: map[string]*http.Response{
		"web_profile_info": newMockResponse(http.StatusOK, sampleProfileJSON),
	}}
	strategy := newAnonymous(rt)

	payload, err := strategy.Fetch(context.Background(), "testuser")
	require.NoError(t, err)
	assert.Equal(t, normalize.ProviderInstagramWeb, payload.Provider)
	assert.Equal(t, "testuser", payload.Data["username"])
	assert.Equal(t, "Test User", payload.Data["full_name"])
}

func TestAnonymousFetchNotFound(t *testing.T) {
	rt := &mockRoundTripper{responses: map[string]*http.Response{
		"web_profile_info": newMockResponse(http.StatusNotFound, "{}"),
	}}
	strategy := newAnonymous(rt)

	_, err := strategy.Fetch(context.Background(), "no_such_user")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNotFound))
}

func TestAnonymousFetchEmptyUserIsNotFound(t *testing.T) {
	rt := &mockRoundTripper{responses: map[string]*http.Response{
		"web_profile_info": newMockResponse(http.StatusOK, `{"status":"ok","data":{"user":{}}}`),
	}}
	strategy := newAnonymous(rt)

	_, err := strategy.Fetch(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNotFound))
}

func TestAnonymousFetchRateLimitNotMaskedByFallback(t *testing.T) {
	rt := &mockRoundTripper{responses: map[string]*http.Response{
		"web_profile_info": newMockResponse(http.StatusTooManyRequests, "{}"),
	}}
	strategy := newAnonymous(rt)

	_, err := strategy.Fetch(context.Background(), "testuser")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeRateLimit))
	// the rate-limited call must not trigger a second request
	require.Len(t, rt.requests, 1)
}

func TestAnonymousFetchFallsBackToHTML(t *testing.T) {
	rt := &mockRoundTripper{responses: map[string]*http.Response{
		"web_profile_info":       newMockResponse(http.StatusOK, "<!DOCTYPE html>"),
		"instagram.com/htmluser": newMockResponse(http.StatusOK, sampleProfileHTML),
	}}
	strategy := newAnonymous(rt)

	payload, err := strategy.Fetch(context.Background(), "htmluser")
	require.NoError(t, err)
	assert.Equal(t, "htmluser", payload.Data["username"])
	assert.Equal(t, float64(10500), payload.Data["follower_count"])
	assert.Equal(t, true, payload.Data["is_private"])
}

func TestParseProfileHTML(t *testing.T) {
	data := ParseProfileHTML(sampleProfileHTML)
	assert.Equal(t, "htmluser", data["username"])
	assert.Equal(t, "HTML User", data["full_name"])
	assert.Equal(t, "from the page", data["biography"])
	assert.Equal(t, float64(10500), data["follower_count"])
	assert.Equal(t, float64(321), data["following_count"])
	assert.Equal(t, float64(42), data["media_count"])
	assert.Equal(t, false, data["is_verified"])
	assert.Equal(t, true, data["is_private"])
}

func TestParseProfileHTMLMetaTagOnly(t *testing.T) {
	html := `<html><head><meta property="og:description" content="2M Followers, 150 Following, 1,024 Posts - profile" /></head></html>`
	data := ParseProfileHTML(html)
	assert.Equal(t, float64(2_000_000), data["follower_count"])
	assert.Equal(t, float64(150), data["following_count"])
	assert.Equal(t, float64(1024), data["media_count"])
}

func TestParseProfileHTMLEmpty(t *testing.T) {
	assert.Empty(t, ParseProfileHTML("<html><body>nothing here</body></html>"))
}

func TestParseAbbreviated(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"1,234", 1234},
		{"10.5K", 10500},
		{"2M", 2_000_000},
		{"7", 7},
		{"garbage", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseAbbreviated(tt.raw), tt.raw)
	}
}

func TestSessionStrategySetsCookies(t *testing.T) {
	rt := &mockRoundTripper{responses: map[string]*http.Response{
		"web_profile_info": newMockResponse(http.StatusOK, sampleProfileJSON),
	}}
	strategy := NewSessionStrategy(newTestClient(rt), "session-value", "csrf-value", ratelimit.Unlimited{}, logger.NewTestLogger())

	payload, err := strategy.Fetch(context.Background(), "testuser")
	require.NoError(t, err)
	assert.Equal(t, normalize.ProviderInstagramSession, payload.Provider)

	require.Len(t, rt.requests, 1)
	req := rt.requests[0]
	assert.Contains(t, req.Header.Get("Cookie"), "sessionid=session-value")
	assert.Contains(t, req.Header.Get("Cookie"), "csrftoken=csrf-value")
	assert.Equal(t, "csrf-value", req.Header.Get("X-CSRFToken"))
}

func TestSessionStrategyExpired(t *testing.T) {
	rt := &mockRoundTripper{responses: map[string]*http.Response{
		"web_profile_info": newMockResponse(http.StatusOK, `{"requires_to_login":true,"status":"fail"}`),
	}}
	strategy := NewSessionStrategy(newTestClient(rt), "stale", "stale", ratelimit.Unlimited{}, logger.NewTestLogger())

	_, err := strategy.Fetch(context.Background(), "testuser")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeAuth))
}
