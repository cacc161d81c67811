package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "socialscope/pkg/errors"
	"socialscope/pkg/social"
)

func TestDescribeLookupError(t *testing.T) {
	notFound := describeLookupError(social.Instagram, "ghost", errs.New(errs.ErrorTypeNotFound, "nope"))
	assert.Contains(t, notFound.Error(), "no Instagram profile")

	throttled := describeLookupError(social.TikTok, "x", errs.New(errs.ErrorTypeRateLimit, "slow down"))
	assert.Contains(t, throttled.Error(), "throttling")

	misconfigured := describeLookupError(social.TikTok, "x", errs.New(errs.ErrorTypeConfig, "no API key"))
	assert.Contains(t, misconfigured.Error(), "not configured")
	assert.NotContains(t, misconfigured.Error(), "try again in a few minutes")

	badAuth := describeLookupError(social.Instagram, "x", errs.New(errs.ErrorTypeAuth, "session expired"))
	assert.Contains(t, badAuth.Error(), "auth login")

	plain := errs.New(errs.ErrorTypeNetwork, "down")
	assert.Equal(t, plain, describeLookupError(social.Instagram, "x", plain))
}

func TestParsePlatformArg(t *testing.T) {
	platform, err := parsePlatformArg("instagram")
	require.NoError(t, err)
	assert.Equal(t, social.Instagram, platform)

	platform, err = parsePlatformArg("TikTok")
	require.NoError(t, err)
	assert.Equal(t, social.TikTok, platform)

	_, err = parsePlatformArg("myspace")
	assert.Error(t, err)
}
