package podcasts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already canonical", "https://example.com/feed.xml", "https://example.com/feed.xml"},
		{"uppercase scheme and host", "HTTPS://Example.COM/Feed.xml", "https://example.com/Feed.xml"},
		{"default http port stripped", "http://example.com:80/feed", "http://example.com/feed"},
		{"default https port stripped", "https://example.com:443/feed", "https://example.com/feed"},
		{"non-default port kept", "http://example.com:8080/feed", "http://example.com:8080/feed"},
		{"fragment dropped", "https://example.com/feed#latest", "https://example.com/feed"},
		{"query kept", "https://example.com/feed?format=rss", "https://example.com/feed?format=rss"},
		{"surrounding whitespace", "  https://example.com/feed \n", "https://example.com/feed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeURL(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeURLRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"no scheme", "example.com/feed"},
		{"ftp scheme", "ftp://example.com/feed"},
		{"file scheme", "file:///etc/passwd"},
		{"missing host", "http:///feed"},
		{"garbage", "ht tp://bad url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NormalizeURL(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidURL)
		})
	}
}
