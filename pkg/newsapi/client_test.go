package newsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-news-snapshot/pkg/httpclient"
)

// fakeResponse lets us stub the httpclient.Client interface.
type fakeResponse struct {
	body       []byte
	statusCode int
}

func (f fakeResponse) Body() []byte    { return f.body }
func (f fakeResponse) StatusCode() int { return f.statusCode }

type fakeHTTPClient struct {
	resp    fakeResponse
	err     error
	url     string
	query   map[string]string
	headers map[string]string
}

func (f *fakeHTTPClient) Get(_ context.Context, url string, query, headers map[string]string) (httpclient.Response, error) {
	f.url, f.query, f.headers = url, query, headers
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestFetchHeadlinesBuildsQuery(t *testing.T) {
	fake := &fakeHTTPClient{resp: fakeResponse{statusCode: 200, body: []byte(`{"status":"ok","totalResults":1,"articles":[{"title":"a"}]}`)}}
	client := NewClient(fake, Options{APIKey: "key", BaseURL: "https://api.example/"})

	articles, err := client.FetchHeadlines(context.Background(), 15)
	if err != nil {
		t.Fatalf("FetchHeadlines: %v", err)
	}
	if len(articles) != 1 || *articles[0].Title != "a" {
		t.Fatalf("unexpected articles %#v", articles)
	}
	if fake.url != "https://api.example/v2/top-headlines" {
		t.Fatalf("url = %s", fake.url)
	}
	want := map[string]string{"country": "jp", "category": "general", "pageSize": "15"}
	for k, v := range want {
		if fake.query[k] != v {
			t.Errorf("query[%s] = %q want %q", k, fake.query[k], v)
		}
	}
	if fake.headers[apiKeyHeader] != "key" {
		t.Errorf("api key header missing: %#v", fake.headers)
	}
}

func TestFetchByKeywordBuildsQuery(t *testing.T) {
	fake := &fakeHTTPClient{resp: fakeResponse{statusCode: 200, body: []byte(`{"status":"ok","articles":[]}`)}}
	client := NewClient(fake, Options{Language: "en"})

	if _, err := client.FetchByKeyword(context.Background(), "sakura", 3); err != nil {
		t.Fatalf("FetchByKeyword: %v", err)
	}
	if fake.url != DefaultBaseURL+everythingPath {
		t.Fatalf("url = %s", fake.url)
	}
	want := map[string]string{"q": "sakura", "language": "en", "sortBy": "relevancy", "pageSize": "3"}
	for k, v := range want {
		if fake.query[k] != v {
			t.Errorf("query[%s] = %q want %q", k, fake.query[k], v)
		}
	}
	if _, ok := fake.headers[apiKeyHeader]; ok {
		t.Errorf("api key header should be omitted when key is empty")
	}
}

func TestFetchReturnsEmptySliceWhenNoArticles(t *testing.T) {
	fake := &fakeHTTPClient{resp: fakeResponse{statusCode: 200, body: []byte(`{"status":"ok","totalResults":0}`)}}
	articles, err := NewClient(fake, Options{}).FetchByKeyword(context.Background(), "x", 1)
	if err != nil {
		t.Fatalf("FetchByKeyword: %v", err)
	}
	if articles == nil || len(articles) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", articles)
	}
}

func TestFetchSurfacesProviderErrors(t *testing.T) {
	fake := &fakeHTTPClient{resp: fakeResponse{
		statusCode: 401,
		body:       []byte(`{"status":"error","code":"apiKeyMissing","message":"Your API key is missing."}`),
	}}
	_, err := NewClient(fake, Options{}).FetchHeadlines(context.Background(), 15)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != 401 || apiErr.Code != "apiKeyMissing" {
		t.Fatalf("unexpected api error %#v", apiErr)
	}
}

func TestFetchSurfacesErrorStatusWithOKCode(t *testing.T) {
	fake := &fakeHTTPClient{resp: fakeResponse{statusCode: 200, body: []byte(`{"status":"error","code":"rateLimited","message":"slow down"}`)}}
	_, err := NewClient(fake, Options{}).FetchHeadlines(context.Background(), 15)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "rateLimited" {
		t.Fatalf("expected rateLimited APIError, got %v", err)
	}
}

func TestFetchSurfacesTransportAndDecodeErrors(t *testing.T) {
	transport := &fakeHTTPClient{err: errors.New("dial tcp: refused")}
	if _, err := NewClient(transport, Options{}).FetchHeadlines(context.Background(), 1); err == nil {
		t.Fatalf("expected transport error")
	}

	garbage := &fakeHTTPClient{resp: fakeResponse{statusCode: 200, body: []byte(`<html>`)}}
	if _, err := NewClient(garbage, Options{}).FetchHeadlines(context.Background(), 1); err == nil {
		t.Fatalf("expected decode error")
	}

	badGateway := &fakeHTTPClient{resp: fakeResponse{statusCode: 502, body: []byte(`<html>bad gateway</html>`)}}
	_, err := NewClient(badGateway, Options{}).FetchHeadlines(context.Background(), 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "<html>bad gateway</html>" {
		t.Fatalf("expected snippet in APIError, got %v", err)
	}
}

func TestClientAgainstHTTPServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != everythingPath {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get(apiKeyHeader) != "k" {
			t.Errorf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","articles":[{"source":{"name":"NHK"},"publishedAt":"2024-01-01T00:00:00Z"}]}`))
	}))
	defer srv.Close()

	client := NewClient(httpclient.NewRestyClient(httpclient.Options{Timeout: time.Second}), Options{BaseURL: srv.URL, APIKey: "k"})
	articles, err := client.FetchByKeyword(context.Background(), "spring", 3)
	if err != nil {
		t.Fatalf("FetchByKeyword: %v", err)
	}
	got := Normalize(articles[0])
	if got.Source != "NHK" || got.PublishedAt != 1704067200000 {
		t.Fatalf("unexpected normalized article %#v", got)
	}
}
