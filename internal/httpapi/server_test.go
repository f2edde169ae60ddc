package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-news-snapshot/internal/domain"
	"github.com/samvad-hq/samvad-news-snapshot/internal/snapshot"
)

type fakeThemes struct {
	ids map[int]bool
	err error
}

func (f fakeThemes) Exists(_ context.Context, id int) (bool, error) {
	return f.ids[id], f.err
}

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func publishedStore() *snapshot.Store {
	store := snapshot.NewStore()
	store.Publish(&domain.Snapshot{
		Latest: []domain.Article{{Title: "h1", PublishedAt: 1000}, {Title: "h2", PublishedAt: domain.NaN()}},
		Related: []domain.ThemeArticles{
			{ThemeID: 1, Articles: []domain.Article{{Title: "t1", PublishedAt: 2000}}},
		},
		CycleID: "c1",
	})
	return store
}

func TestArticlesBeforeFirstPublish(t *testing.T) {
	s := New(snapshot.NewStore(), fakeThemes{ids: map[int]bool{1: true}}, nil, nil)

	rec := serve(t, s, "/articles")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"snapshot not yet available"}`, rec.Body.String())

	rec = serve(t, s, "/articles/1")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestArticlesReturnsSnapshot(t *testing.T) {
	s := New(publishedStore(), fakeThemes{}, nil, nil)

	rec := serve(t, s, "/articles")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body, 2, "only latest and related are exposed")
	assert.Contains(t, string(body["latest"]), `"publishedAt":null`)
	assert.Contains(t, string(body["related"]), `"themeID":1`)
}

func TestThemeArticles(t *testing.T) {
	s := New(publishedStore(), fakeThemes{ids: map[int]bool{1: true, 2: true}}, nil, nil)

	rec := serve(t, s, "/articles/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"themeID":1,"articles":[{"source":"","author":"","title":"t1","description":"","uri":"","uriToImage":"","publishedAt":2000}]}`, rec.Body.String())

	rec = serve(t, s, "/articles/2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"themeID":2,"articles":[]}`, rec.Body.String())
}

func TestThemeArticlesNotFound(t *testing.T) {
	s := New(publishedStore(), fakeThemes{ids: map[int]bool{1: true}}, nil, nil)

	for _, path := range []string{"/articles/99", "/articles/abc", "/articles/1.5"} {
		rec := serve(t, s, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestThemeArticlesLookupError(t *testing.T) {
	s := New(publishedStore(), fakeThemes{err: errors.New("db down")}, nil, nil)
	rec := serve(t, s, "/articles/1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	store := snapshot.NewStore()
	s := New(store, fakeThemes{}, reg, nil)

	rec := serve(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","snapshot_ready":false}`, rec.Body.String())

	store.Publish(&domain.Snapshot{})
	rec = serve(t, s, "/healthz")
	assert.JSONEq(t, `{"status":"ok","snapshot_ready":true}`, rec.Body.String())

	rec = serve(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_total 1"))
}

func TestMethodNotAllowed(t *testing.T) {
	s := New(publishedStore(), fakeThemes{}, nil, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/articles", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
