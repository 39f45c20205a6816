package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sitewatch/sitewatch/internal/models"
	"github.com/sitewatch/sitewatch/pkg/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCrawler() *Crawler {
	return New(Config{
		Client: fetch.NewClient(fetch.Config{Backoff: time.Millisecond}),
	})
}

func htmlPage(title string, links ...string) string {
	page := fmt.Sprintf("<html><head><title>%s</title></head><body><p>%s body</p>", title, title)
	for _, link := range links {
		page += fmt.Sprintf(`<a href="%s">%s</a>`, link, link)
	}
	return page + "</body></html>"
}

func serveHTML(mux *http.ServeMux, path, body string) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body))
	})
}

func TestCrawlFollowsSameDomainLinks(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	serveHTML(mux, "/", htmlPage("home", "/a", "/b", "https://elsewhere.example.org/x"))
	serveHTML(mux, "/a", htmlPage("page a"))
	serveHTML(mux, "/b", htmlPage("page b"))

	docs, err := testCrawler().Crawl(context.Background(), server.URL+"/", []models.ContentType{models.ContentHTML}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	// Breadth-first discovery order.
	assert.Equal(t, "home", docs[0].Title)
	assert.Equal(t, "page a", docs[1].Title)
	assert.Equal(t, "page b", docs[2].Title)
}

func TestCrawlRespectsMaxHits(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	serveHTML(mux, "/", htmlPage("home", "/a", "/b", "/c"))
	serveHTML(mux, "/a", htmlPage("a"))
	serveHTML(mux, "/b", htmlPage("b"))
	serveHTML(mux, "/c", htmlPage("c"))

	docs, err := testCrawler().Crawl(context.Background(), server.URL+"/", []models.ContentType{models.ContentHTML}, 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestCrawlTerminatesOnCycle(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	var fetches int32
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(htmlPage("a", "/b")))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(htmlPage("b", "/a")))
	})

	docs, err := testCrawler().Crawl(context.Background(), server.URL+"/a", []models.ContentType{models.ContentHTML}, 10)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
}

func TestCrawlIgnoresForeignDomains(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	serveHTML(mux, "/", htmlPage("home", "https://unreachable.invalid/page"))

	docs, err := testCrawler().Crawl(context.Background(), server.URL+"/", []models.ContentType{models.ContentHTML}, 10)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, "home", docs[0].Title)
}

func TestCrawlSkipsUnacceptedContentTypes(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	serveHTML(mux, "/", htmlPage("home", "/notes.txt"))
	mux.HandleFunc("/notes.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("just text"))
	})

	docs, err := testCrawler().Crawl(context.Background(), server.URL+"/", []models.ContentType{models.ContentHTML}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "home", docs[0].Title)
}

func TestCrawlCollectsTextDocuments(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	serveHTML(mux, "/", htmlPage("home", "/notes.txt"))
	mux.HandleFunc("/notes.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("just text"))
	})

	docs, err := testCrawler().Crawl(context.Background(), server.URL+"/",
		[]models.ContentType{models.ContentHTML, models.ContentText}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, models.ContentText, docs[1].ContentType)
	assert.Equal(t, "just text", docs[1].Content)
}

func TestCrawlSkipsFailingURL(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	serveHTML(mux, "/", htmlPage("home", "/broken", "/ok"))
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	serveHTML(mux, "/ok", htmlPage("ok"))

	docs, err := testCrawler().Crawl(context.Background(), server.URL+"/", []models.ContentType{models.ContentHTML}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "home", docs[0].Title)
	assert.Equal(t, "ok", docs[1].Title)
}

func TestCrawlRecoversAfterTransientError(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	var calls int32
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(htmlPage("recovered")))
	})

	docs, err := testCrawler().Crawl(context.Background(), server.URL+"/", []models.ContentType{models.ContentHTML}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "recovered", docs[0].Title)
}

func TestCrawlInvalidInput(t *testing.T) {
	_, err := testCrawler().Crawl(context.Background(), "not-a-url", []models.ContentType{models.ContentHTML}, 10)
	assert.Error(t, err)

	_, err = testCrawler().Crawl(context.Background(), "https://example.com", []models.ContentType{models.ContentHTML}, 0)
	assert.Error(t, err)
}

func TestCrawlReportsProgress(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	serveHTML(mux, "/", htmlPage("home", "/a"))
	serveHTML(mux, "/a", htmlPage("a"))

	var seen []string
	c := New(Config{
		Client: fetch.NewClient(fetch.Config{Backoff: time.Millisecond}),
		OnPage: func(url string) { seen = append(seen, url) },
	})

	_, err := c.Crawl(context.Background(), server.URL+"/", []models.ContentType{models.ContentHTML}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{server.URL + "/", server.URL + "/a"}, seen)
}
