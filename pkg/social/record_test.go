package social

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "Instagram:natgeo", Key(Instagram, "natgeo"))
	assert.Equal(t, "Instagram:natgeo", Key(Instagram, "NatGeo"), "keys are case-insensitive on the username")
	assert.Equal(t, "TikTok:natgeo", Key(TikTok, "natgeo"), "same handle on another platform is a distinct key")
}

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"natgeo", "natgeo"},
		{"@natgeo", "natgeo"},
		{"  natgeo  ", "natgeo"},
		{"natgeo/", "natgeo"},
		{"@natgeo/ ", "natgeo"},
		{"", ""},
		{"@", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeUsername(tt.input), "input %q", tt.input)
	}
}

func TestValidUsername(t *testing.T) {
	valid := []string{"natgeo", "nat.geo", "nat_geo_2", "A1", "a"}
	for _, username := range valid {
		assert.True(t, ValidUsername(username), "expected %q to be valid", username)
	}

	invalid := []string{
		"",
		"nat geo",
		"nat-geo",
		"nat@geo",
		"ユーザー",
		strings.Repeat("a", 31),
	}
	for _, username := range invalid {
		assert.False(t, ValidUsername(username), "expected %q to be invalid", username)
	}
}
