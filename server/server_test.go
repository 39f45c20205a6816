package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sitewatch/sitewatch/internal/memstore"
	"github.com/sitewatch/sitewatch/internal/models"
	"github.com/sitewatch/sitewatch/pkg/fetch"
	"github.com/sitewatch/sitewatch/pkg/scheduler"
	"github.com/sitewatch/sitewatch/pkg/service"
	"github.com/sitewatch/sitewatch/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	api    *httptest.Server
	target *httptest.Server
	svc    *service.CrawlService
	sched  *scheduler.Scheduler
}

func newEnv(t *testing.T) *env {
	t.Helper()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>News</title></head><body><p>Fresh updates</p></body></html>`))
	}))
	t.Cleanup(target.Close)

	broadcast := server.NewBroadcaster()
	svc := service.New(service.Config{
		Sources:   memstore.NewSources(),
		Documents: memstore.NewDocuments(),
		Graphs:    memstore.NewGraphs(),
		Fetch:     fetch.Config{Backoff: time.Millisecond},
		OnPage:    broadcast.Publish,
	})

	sched := scheduler.New(scheduler.Config{Crawl: svc.CrawlSource})
	srv := server.New(server.Config{Service: svc, Broadcast: broadcast, Scheduler: sched})
	api := httptest.NewServer(srv.Handler())
	t.Cleanup(api.Close)

	return &env{api: api, target: target, svc: svc, sched: sched}
}

func (e *env) post(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(e.api.URL+path, "application/json", &buf)
	require.NoError(t, err)
	return resp
}

func (e *env) addSource(t *testing.T) string {
	t.Helper()
	resp := e.post(t, "/api/sources", map[string]interface{}{
		"url":           e.target.URL,
		"enabled":       true,
		"content_types": []string{"html"},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	return created["id"]
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Get(e.api.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSourceLifecycle(t *testing.T) {
	e := newEnv(t)
	id := e.addSource(t)

	resp, err := http.Get(e.api.URL + "/api/sources/" + id)
	require.NoError(t, err)
	var src models.Source
	decode(t, resp, &src)
	assert.Equal(t, e.target.URL, src.URL)
	assert.Equal(t, models.StatusPending, src.Status)

	resp, err = http.Get(e.api.URL + "/api/sources")
	require.NoError(t, err)
	var list []models.Source
	decode(t, resp, &list)
	assert.Len(t, list, 1)

	req, err := http.NewRequest(http.MethodDelete, e.api.URL+"/api/sources/"+id, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(e.api.URL + "/api/sources/" + id)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSourceSchedulingFollowsAPI(t *testing.T) {
	e := newEnv(t)

	id := e.addSource(t)
	_, registered := e.sched.NextRun(id)
	assert.True(t, registered)

	resp := e.post(t, "/api/sources", map[string]interface{}{
		"url":     e.target.URL,
		"enabled": false,
	})
	var created map[string]string
	decode(t, resp, &created)
	_, registered = e.sched.NextRun(created["id"])
	assert.False(t, registered, "disabled sources get no recurring trigger")

	req, err := http.NewRequest(http.MethodDelete, e.api.URL+"/api/sources/"+id, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, registered = e.sched.NextRun(id)
	assert.False(t, registered, "deleted sources keep no recurring trigger")
}

func TestAddSourceRejectsBadURL(t *testing.T) {
	e := newEnv(t)

	resp := e.post(t, "/api/sources", map[string]interface{}{"url": "not a url"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCrawlEndpoint(t *testing.T) {
	e := newEnv(t)
	id := e.addSource(t)

	resp := e.post(t, "/api/sources/"+id+"/crawl", nil)
	var result map[string]int
	decode(t, resp, &result)
	assert.Equal(t, 1, result["documents"])

	src, err := e.svc.GetSource(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, src.Status)
}

func TestCrawlUnknownSource(t *testing.T) {
	e := newEnv(t)

	resp := e.post(t, "/api/sources/nope/crawl", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSearchEndpoint(t *testing.T) {
	e := newEnv(t)
	id := e.addSource(t)

	resp := e.post(t, "/api/sources/"+id+"/crawl", nil)
	resp.Body.Close()

	resp, err := http.Get(e.api.URL + "/api/search?q=fresh")
	require.NoError(t, err)
	var docs []models.Document
	decode(t, resp, &docs)
	require.Len(t, docs, 1)
	assert.Equal(t, "News", docs[0].Title)

	resp, err = http.Get(e.api.URL + "/api/search?q=nothing-matches")
	require.NoError(t, err)
	decode(t, resp, &docs)
	assert.Empty(t, docs)

	resp, err = http.Get(e.api.URL + "/api/search")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	e := newEnv(t)
	id := e.addSource(t)

	resp := e.post(t, "/api/sources/"+id+"/crawl", nil)
	resp.Body.Close()

	resp, err := http.Get(e.api.URL + "/api/stats")
	require.NoError(t, err)
	var stats service.Statistics
	decode(t, resp, &stats)
	assert.Equal(t, int64(1), stats.TotalSources)
	assert.Equal(t, int64(1), stats.TotalDocuments)
}

func TestWebSocketCrawlProgress(t *testing.T) {
	e := newEnv(t)
	id := e.addSource(t)

	wsURL := "ws" + strings.TrimPrefix(e.api.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(server.Message{Type: "crawl", Content: id}))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	seen := map[string]bool{}
	for !seen["done"] {
		var msg server.Message
		require.NoError(t, conn.ReadJSON(&msg))
		require.NotEqual(t, "error", msg.Type)
		seen[msg.Type] = true
	}
	assert.True(t, seen["status"])
	assert.True(t, seen["progress"])
}
