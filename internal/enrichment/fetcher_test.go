package enrichment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

func testFetcher(bodyCap int) *Fetcher {
	return NewFetcher(&common.FetcherConfig{
		UserAgent:           "venari-test/1.0",
		RequestTimeout:      5 * time.Second,
		MaxRedirects:        3,
		MaxHTMLSampleLength: bodyCap,
		RateLimitPerSecond:  100,
	}, arbor.NewLogger())
}

func TestFetchReturnsPage(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body>careers page</body></html>"))
	}))
	defer srv.Close()

	page, err := testFetcher(10000).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, page.Body, "careers page")
	assert.False(t, page.Truncated)
	assert.Equal(t, "venari-test/1.0", gotAgent)
}

func TestFetchCapsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 500)))
	}))
	defer srv.Close()

	page, err := testFetcher(100).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, page.Truncated)
	assert.Len(t, page.Body, 100)
}

func TestFetchStatusErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		kind   models.ErrorKind
	}{
		{http.StatusNotFound, models.ErrPermanentSource},
		{http.StatusTooManyRequests, models.ErrRateLimited},
		{http.StatusBadGateway, models.ErrTransientNetwork},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		_, err := testFetcher(10000).Fetch(context.Background(), srv.URL)
		srv.Close()
		require.Error(t, err)
		assert.Equal(t, tt.kind, models.KindOf(err))
	}
}

func TestFetchFollowsSameHostRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("landed"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page, err := testFetcher(10000).Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Contains(t, page.Body, "landed")
	assert.Equal(t, srv.URL+"/new", page.FinalURL)
}

func TestFetchRefusesCrossDomainRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://elsewhere.example/login", http.StatusFound)
	}))
	defer srv.Close()

	_, err := testFetcher(10000).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, models.ErrTransientNetwork, models.KindOf(err))
	assert.Contains(t, err.Error(), "redirect crossed domains")
}

func TestFetchStopsAfterMaxRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"r", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := testFetcher(10000).Fetch(context.Background(), srv.URL+"/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirects")
}

func TestSampleTextStripsChrome(t *testing.T) {
	page := &interfaces.Page{Body: `<html>
		<head><style>body { color: red }</style></head>
		<body>
			<nav>Home About Jobs</nav>
			<script>trackEverything();</script>
			<main>We build     boring reliable systems.</main>
			<footer>Copyright</footer>
		</body></html>`}

	text := SampleText(page, 0)
	assert.Equal(t, "We build boring reliable systems.", text)
}

func TestSampleTextCapsRunes(t *testing.T) {
	page := &interfaces.Page{Body: "<html><body>" + strings.Repeat("word ", 100) + "</body></html>"}
	text := SampleText(page, 20)
	assert.Len(t, []rune(text), 20)
}
