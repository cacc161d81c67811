// Package normalize converts provider-specific profile payloads into the
// canonical social.UserRecord shape. Knowledge about which keys each provider
// uses lives in one declarative table of ordered candidate key-paths; the
// first path present with a non-null value wins.
package normalize

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	errs "socialscope/pkg/errors"
	"socialscope/pkg/social"
)

// Provider tags the origin of a raw payload. Strategies set it so logs and
// tests can tell which source produced a record; the candidate table itself
// is shared across providers.
type Provider string

const (
	ProviderInstagramWeb     Provider = "instagram_web"
	ProviderInstagramSession Provider = "instagram_session"
	ProviderInstagramProxy   Provider = "instagram_proxy"
	ProviderTikTokWeb        Provider = "tiktok_web"
	ProviderTikTokProxy      Provider = "tiktok_proxy"
)

// RawPayload is a provider-tagged nested mapping as decoded from JSON or
// assembled from scraped HTML. Data is rooted at the provider's user object.
type RawPayload struct {
	Provider Provider
	Data     map[string]interface{}
}

// Candidate key-paths per canonical field, in priority order. Paths are
// dot-separated; a path segment may traverse a JSON object embedded as a
// string (Instagram's business_address_json).
var (
	usernamePaths  = []string{"username", "uniqueId"}
	accountIDPaths = []string{"pk", "id", "uid", "userId"}
	fullNamePaths  = []string{"full_name", "name", "nickname", "displayName"}
	bioPaths       = []string{"biography", "bio", "signature", "description"}
	followerPaths  = []string{"follower_count", "followers", "followerCount", "stats.followerCount", "edge_followed_by.count"}
	followingPaths = []string{"following_count", "following", "followingCount", "stats.followingCount", "edge_follow.count"}
	postsPaths     = []string{"media_count", "posts_count", "posts", "videoCount", "stats.videoCount", "edge_owner_to_timeline_media.count"}
	likesPaths     = []string{"heartCount", "stats.heartCount", "likes"}
	verifiedPaths  = []string{"is_verified", "verified"}
	privatePaths   = []string{"is_private", "privateAccount"}
	businessPaths  = []string{"is_business_account", "businessAccountStatus", "is_business"}
	urlPaths       = []string{"external_url", "website", "bioLink.link"}
	countryPaths   = []string{"country", "business_address_json.country", "business_address_json.country_code"}
	cityPaths      = []string{"city", "business_address_json.city", "business_address_json.city_name"}
	locationPaths  = []string{"full_location", "location", "region"}
)

// Normalize maps a raw provider payload onto the canonical record. It fails
// only when the username cannot be resolved from any candidate path, which
// signals that the payload is not a user object at all (an error envelope,
// a consent wall, an empty search result).
func Normalize(platform social.Platform, payload RawPayload, requested string) (social.UserRecord, error) {
	data := payload.Data

	username, ok := lookupString(data, usernamePaths)
	if !ok || username == "" {
		return social.UserRecord{}, errs.Newf(errs.ErrorTypeNormalization,
			"payload from %s has no resolvable username (requested %q)", payload.Provider, requested)
	}

	rec := social.UserRecord{
		Platform:   platform,
		Username:   username,
		Followers:  lookupInt(data, followerPaths),
		Following:  lookupInt(data, followingPaths),
		PostsCount: lookupInt(data, postsPaths),
		Likes:      lookupInt(data, likesPaths),
		IsVerified: lookupBool(data, verifiedPaths),
		IsPublic:   !lookupBool(data, privatePaths),
		IsBusiness: lookupBool(data, businessPaths),
	}

	if id, ok := lookupString(data, accountIDPaths); ok {
		rec.AccountID = id
	}
	if name, ok := lookupString(data, fullNamePaths); ok {
		rec.FullName = name
	}
	if bio, ok := lookupString(data, bioPaths); ok {
		rec.Bio = bio
	}
	if url, ok := lookupString(data, urlPaths); ok {
		rec.ExternalURL = url
	}

	rec.Country = stringOr(data, countryPaths, social.LocationUnknown)
	rec.City = stringOr(data, cityPaths, social.LocationUnknown)
	rec.FullLocation = joinLocation(data, rec.City, rec.Country)

	return rec, nil
}

// joinLocation prefers an explicit location field and otherwise assembles
// one from city and country, skipping unknown parts.
func joinLocation(data map[string]interface{}, city, country string) string {
	if loc, ok := lookupString(data, locationPaths); ok && loc != "" {
		return loc
	}

	var parts []string
	if city != social.LocationUnknown {
		parts = append(parts, city)
	}
	if country != social.LocationUnknown {
		parts = append(parts, country)
	}
	if len(parts) == 0 {
		return social.LocationUnknown
	}
	return strings.Join(parts, ", ")
}

// lookup resolves a single dot-separated path against nested maps. A string
// value met mid-path is decoded as embedded JSON before descending.
func lookup(data map[string]interface{}, path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	var current interface{} = data

	for _, segment := range segments {
		node, ok := current.(map[string]interface{})
		if !ok {
			if raw, isStr := current.(string); isStr && raw != "" {
				var embedded map[string]interface{}
				if err := json.Unmarshal([]byte(raw), &embedded); err != nil {
					return nil, false
				}
				node = embedded
			} else {
				return nil, false
			}
		}

		value, exists := node[segment]
		if !exists || value == nil {
			return nil, false
		}
		current = value
	}

	return current, true
}

func lookupString(data map[string]interface{}, paths []string) (string, bool) {
	for _, path := range paths {
		value, ok := lookup(data, path)
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if v != "" {
				return v, true
			}
		case float64:
			return strconv.FormatInt(int64(v), 10), true
		case json.Number:
			return v.String(), true
		}
	}
	return "", false
}

func stringOr(data map[string]interface{}, paths []string, fallback string) string {
	if s, ok := lookupString(data, paths); ok {
		return s
	}
	return fallback
}

// lookupInt tolerates the number shapes the providers actually send: JSON
// numbers, numeric strings, and grouped strings like "1,234". Negative
// values are clamped to zero to hold the record invariant.
func lookupInt(data map[string]interface{}, paths []string) int64 {
	for _, path := range paths {
		value, ok := lookup(data, path)
		if !ok {
			continue
		}
		switch v := value.(type) {
		case float64:
			return clampNonNegative(int64(v))
		case int64:
			return clampNonNegative(v)
		case int:
			return clampNonNegative(int64(v))
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return clampNonNegative(n)
			}
		case string:
			cleaned := strings.ReplaceAll(v, ",", "")
			if n, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
				return clampNonNegative(n)
			}
		}
	}
	return 0
}

func lookupBool(data map[string]interface{}, paths []string) bool {
	for _, path := range paths {
		value, ok := lookup(data, path)
		if !ok {
			continue
		}
		switch v := value.(type) {
		case bool:
			return v
		case string:
			return strings.EqualFold(v, "true")
		}
	}
	return false
}

func clampNonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
