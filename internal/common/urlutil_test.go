package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Example.COM/Jobs", "https://example.com/Jobs"},
		{"strips default https port", "https://example.com:443/jobs", "https://example.com/jobs"},
		{"strips default http port", "http://example.com:80/jobs", "http://example.com/jobs"},
		{"drops fragment", "https://example.com/jobs#apply", "https://example.com/jobs"},
		{"trims trailing slash", "https://example.com/jobs/", "https://example.com/jobs"},
		{"strips utm params", "https://example.com/jobs?utm_source=x&utm_medium=y", "https://example.com/jobs"},
		{"strips gh_src", "https://boards.greenhouse.io/acme/jobs/1?gh_src=abc123", "https://boards.greenhouse.io/acme/jobs/1"},
		{"keeps and sorts real params", "https://example.com/jobs?b=2&a=1&utm_term=z", "https://example.com/jobs?a=1&b=2"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeURL(tt.in))
		})
	}
}

func TestNormalizeURLIsStable(t *testing.T) {
	raw := "https://Example.com/jobs/123/?utm_source=feed&ref=rss"
	once := NormalizeURL(raw)
	assert.Equal(t, once, NormalizeURL(once))
}

func TestSameHost(t *testing.T) {
	assert.True(t, SameHost("https://example.com/a", "https://example.com/b"))
	assert.True(t, SameHost("https://EXAMPLE.com/a", "http://example.com:8080/b"))
	assert.False(t, SameHost("https://example.com", "https://other.com"))
	assert.False(t, SameHost("", "https://example.com"))
}

func TestRegistrableDomain(t *testing.T) {
	assert.Equal(t, "example.com", RegistrableDomain("www.example.com"))
	assert.Equal(t, "greenhouse.io", RegistrableDomain("boards.greenhouse.io"))
	assert.Equal(t, "localhost", RegistrableDomain("localhost"))
}
