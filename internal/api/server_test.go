package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quarryhq/quarry/internal/catalog"
	"github.com/quarryhq/quarry/internal/config"
	"github.com/quarryhq/quarry/internal/progress/sinks"
	"github.com/quarryhq/quarry/internal/scrape"
)

// stubFetcher serves canned pages by exact URL; unknown URLs answer 404.
type stubFetcher struct {
	pages map[string]string
}

func (f stubFetcher) Fetch(_ context.Context, req scrape.PageRequest) scrape.FetchResult {
	if body, ok := f.pages[req.URL]; ok {
		return scrape.FetchResult{Body: body, FinalURL: req.URL, StatusCode: http.StatusOK}
	}
	return scrape.FetchResult{FinalURL: req.URL, StatusCode: http.StatusNotFound}
}

func testAdapters() []scrape.Adapter {
	return []scrape.Adapter{
		{
			Name:       "alpha",
			Kind:       scrape.KindSearch,
			BaseURL:    "https://alpha.example",
			SearchRule: scrape.ExtractRule{Selector: "a.hit", Title: scrape.TitleSource{Attr: "title"}},
			Pagination: scrape.PaginationConfig{
				Mode:          scrape.PaginateNone,
				FirstTemplate: "https://alpha.example/search/{query}",
				PageTemplate:  "https://alpha.example/search/{query}",
			},
		},
		{
			Name:    "vault",
			Kind:    scrape.KindGallery,
			BaseURL: "https://vault.example",
			Hosts:   []string{"vault.example"},
			Pagination: scrape.PaginationConfig{
				Mode:          scrape.PaginateNone,
				FirstTemplate: "https://vault.example/?q={query}",
				PageTemplate:  "https://vault.example/?q={query}",
			},
			Resolve: &scrape.ResolveConfig{Media: scrape.MediaRule{ImageSelector: "img.m"}},
		},
	}
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: 8080, RequestTimeoutSeconds: 10},
		Engine: config.EngineConfig{Concurrency: 2},
		HTTP:   config.HTTPConfig{TimeoutSeconds: 5},
	}
}

func newTestServer(t *testing.T, cfg config.Config, repo catalog.Repository) *Server {
	t.Helper()
	fetcher := stubFetcher{pages: map[string]string{
		"https://alpha.example/search/jane": `
			<a class="hit" href="/v/1" title="jane one">x</a>
			<a class="hit" href="/v/2" title="jane two">x</a>
		`,
		"https://vault.example/a/9": `<img class="m" src="https://cdn.example/9.jpg">`,
	}}
	engine, err := scrape.NewEngine(scrape.EngineConfig{Fetcher: fetcher, Concurrency: 2})
	require.NoError(t, err)
	return NewServer(cfg, zap.NewNop(), engine, testAdapters(), repo, sinks.NewStatsSink())
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testConfig(), nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(t, s, http.MethodGet, path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	}
}

func TestListSites(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testConfig(), nil)
	rec := doRequest(t, s, http.MethodGet, "/v1/sites")
	require.Equal(t, http.StatusOK, rec.Code)

	sites := decodeBody[[]siteInfo](t, rec)
	require.Len(t, sites, 2)
	require.Equal(t, "alpha", sites[0].Name)
	require.Equal(t, "search", sites[0].Kind)
	require.Equal(t, "vault", sites[1].Name)
}

func TestSiteSearch(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testConfig(), nil)

	t.Run("happy path", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/v1/sites/alpha/search?q=jane")
		require.Equal(t, http.StatusOK, rec.Code)
		rs := decodeBody[scrape.ResultSet](t, rec)
		require.Equal(t, "alpha", rs.Site)
		require.Equal(t, []string{"https://alpha.example/v/1", "https://alpha.example/v/2"}, rs.Links)
		require.Equal(t, []string{"jane one", "jane two"}, rs.Titles)
	})
	t.Run("unknown site", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/v1/sites/nosuch/search?q=jane")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
	t.Run("missing term", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/v1/sites/alpha/search")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("gallery site rejects search", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/v1/sites/vault/search?q=jane")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSiteGallery(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testConfig(), nil)

	t.Run("by album url", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/v1/sites/vault/gallery?url=https://vault.example/a/9")
		require.Equal(t, http.StatusOK, rec.Code)
		rs := decodeBody[scrape.ResultSet](t, rec)
		require.Equal(t, []string{"https://cdn.example/9.jpg"}, rs.Images)
	})
	t.Run("missing reference", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/v1/sites/vault/gallery")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("wrong host", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/v1/sites/vault/gallery?url=https://elsewhere.example/a/9")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("search site rejects gallery", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/v1/sites/alpha/gallery?url=https://alpha.example/a/9")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSearchAll(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testConfig(), nil)

	rec := doRequest(t, s, http.MethodGet, "/v1/search?q=jane")
	require.Equal(t, http.StatusOK, rec.Code)
	sets := decodeBody[[]scrape.ResultSet](t, rec)
	// Only the search adapter participates.
	require.Len(t, sets, 1)
	require.Equal(t, "alpha", sets[0].Site)
	require.Len(t, sets[0].Links, 2)

	rec = doRequest(t, s, http.MethodGet, "/v1/search")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsCountsVisits(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testConfig(), nil)
	doRequest(t, s, http.MethodGet, "/v1/sites")
	doRequest(t, s, http.MethodGet, "/v1/sites")

	rec := doRequest(t, s, http.MethodGet, "/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[map[string]any](t, rec)
	// The stats request itself is the third /v1 hit.
	require.Equal(t, float64(3), stats["visits"])
}

func TestCatalogEndpoints(t *testing.T) {
	t.Parallel()

	repo := catalog.NewMemory()
	repo.Put(catalog.Server{ID: "s1", Name: "alpine", BaseURL: "https://alpine.example", Kind: "search", Enabled: true})
	repo.PutModel(catalog.Model{ID: "m1", Name: "Jane Doe", Aliases: map[string]string{"vault": "janedoe"}})
	s := newTestServer(t, testConfig(), repo)

	t.Run("list servers", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/v1/catalog/servers")
		require.Equal(t, http.StatusOK, rec.Code)
		servers := decodeBody[[]catalog.Server](t, rec)
		require.Len(t, servers, 1)
		require.Equal(t, "alpine", servers[0].Name)
	})
	t.Run("get server", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/v1/catalog/servers/s1")
		require.Equal(t, http.StatusOK, rec.Code)
	})
	t.Run("get missing server", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/v1/catalog/servers/nope")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
	t.Run("get model", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/v1/catalog/models/m1")
		require.Equal(t, http.StatusOK, rec.Code)
		model := decodeBody[catalog.Model](t, rec)
		require.Equal(t, "janedoe", model.Aliases["vault"])
	})
}

func TestCatalogNotConfigured(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testConfig(), nil)
	for _, path := range []string{
		"/v1/catalog/servers",
		"/v1/catalog/servers/s1",
		"/v1/catalog/models",
		"/v1/catalog/models/m1",
	} {
		rec := doRequest(t, s, http.MethodGet, path)
		require.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKey = "sesame"
	s := newTestServer(t, cfg, nil)

	rec := doRequest(t, s, http.MethodGet, "/v1/sites")
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/sites", nil)
	req.Header.Set("X-API-Key", "sesame")
	got := httptest.NewRecorder()
	s.Handler().ServeHTTP(got, req)
	require.Equal(t, http.StatusOK, got.Code)

	rec = doRequest(t, s, http.MethodGet, "/v1/sites?api_key=sesame")
	require.Equal(t, http.StatusOK, rec.Code)
}
