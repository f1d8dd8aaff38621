package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backcourt/backcourt/internal/domain"
	"github.com/backcourt/backcourt/pkg/adapters"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubScraper struct {
	articles []domain.Article
	sites    []adapters.SiteAdapter
}

func (s *stubScraper) ScrapeAll(_ context.Context, sites []adapters.SiteAdapter) []domain.Article {
	s.sites = sites
	return s.articles
}

func art(source, title, url string) domain.Article {
	a := domain.Article{Title: title, Source: source}
	if url != "" {
		a.URL = &url
	}
	return a
}

func fixtureArticles() []domain.Article {
	return []domain.Article{
		art("espn", "LeBron James drops 40", "https://espn.com/lebron"),
		art("slam", "Celtics clinch the East", "https://slamonline.com/celtics"),
		art("nba", "Official: Lakers sign guard", "https://www.nba.com/news/lakers-sign"),
		art("bleacher_report", "Trade rumors roundup", ""),
		art("NBA", "Curry sets record", "https://www.nba.com/news/curry"),
	}
}

func titles(list []domain.Article) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Title)
	}
	return out
}

func setupTestServer(t *testing.T, articles []domain.Article) (*gin.Engine, *stubScraper) {
	t.Helper()
	stub := &stubScraper{articles: articles}
	srv := NewServer(stub, adapters.DefaultRegistry(), nil, []string{"http://localhost:3000"})
	return srv.SetupRouter(), stub
}

func doGet(t *testing.T, router *gin.Engine, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestFilterArticles_NoSourcePutsNBAFirst(t *testing.T) {
	got := filterArticles(fixtureArticles(), ArticleQuery{})
	assert.Equal(t, []string{
		"Official: Lakers sign guard",
		"Curry sets record",
		"LeBron James drops 40",
		"Celtics clinch the East",
		"Trade rumors roundup",
	}, titles(got))
}

func TestFilterArticles_DoesNotMutateInput(t *testing.T) {
	in := fixtureArticles()
	_ = filterArticles(in, ArticleQuery{Source: "slam"})
	assert.Equal(t, fixtureArticles(), in)
}

func TestFilterArticles(t *testing.T) {
	tests := []struct {
		name  string
		query ArticleQuery
		want  []string
	}{
		{
			name:  "source is case-insensitive",
			query: ArticleQuery{Source: "Nba"},
			want:  []string{"Official: Lakers sign guard", "Curry sets record"},
		},
		{
			name:  "unknown source",
			query: ArticleQuery{Source: "nope"},
			want:  []string{},
		},
		{
			name:  "limit after nba ordering",
			query: ArticleQuery{Limit: 3},
			want:  []string{"Official: Lakers sign guard", "Curry sets record", "LeBron James drops 40"},
		},
		{
			name:  "player name matches any part in title or url",
			query: ArticleQuery{PlayerName: "Stephen CURRY"},
			want:  []string{"Curry sets record"},
		},
		{
			name:  "player name wins over pagination",
			query: ArticleQuery{PlayerName: "lebron", Page: 3, PageSize: 1},
			want:  []string{"LeBron James drops 40"},
		},
		{
			name:  "player name respects limit",
			query: ArticleQuery{PlayerName: "curry", Limit: 1},
			want:  []string{},
		},
		{
			name:  "blank player name matches nothing",
			query: ArticleQuery{PlayerName: "   ", TeamName: "lakers"},
			want:  []string{},
		},
		{
			name:  "team name returns first hit only",
			query: ArticleQuery{TeamName: "LAKERS"},
			want:  []string{"Official: Lakers sign guard"},
		},
		{
			name:  "team name matches url",
			query: ArticleQuery{TeamName: "celtics", Source: "slam"},
			want:  []string{"Celtics clinch the East"},
		},
		{
			name:  "team without hit falls through to pagination",
			query: ArticleQuery{TeamName: "raptors", Page: 2, PageSize: 2},
			want:  []string{"LeBron James drops 40", "Celtics clinch the East"},
		},
		{
			name:  "page past the end",
			query: ArticleQuery{Page: 9, PageSize: 2},
			want:  []string{},
		},
		{
			name:  "page uses default size",
			query: ArticleQuery{Page: 1},
			want: []string{
				"Official: Lakers sign guard",
				"Curry sets record",
				"LeBron James drops 40",
				"Celtics clinch the East",
				"Trade rumors roundup",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterArticles(fixtureArticles(), tt.query)
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

func TestHandleListArticles_ReturnsFilteredList(t *testing.T) {
	router, stub := setupTestServer(t, fixtureArticles())

	w := doGet(t, router, "/api/v1/articles?source=espn")
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "LeBron James drops 40", got[0]["title"])
	assert.Equal(t, "https://espn.com/lebron", got[0]["url"])
	assert.Equal(t, "espn", got[0]["source"])
	assert.Contains(t, got[0], "image")
	assert.Nil(t, got[0]["image"])

	assert.Equal(t, adapters.DefaultRegistry().Enabled(), stub.sites)
}

func TestHandleListArticles_EmptyIsArray(t *testing.T) {
	router, _ := setupTestServer(t, nil)

	w := doGet(t, router, "/api/v1/articles")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestHandleListArticles_InvalidIntegers(t *testing.T) {
	router, _ := setupTestServer(t, fixtureArticles())

	for _, target := range []string{
		"/api/v1/articles?limit=abc",
		"/api/v1/articles?page=-1",
		"/api/v1/articles?pageSize=0",
	} {
		w := doGet(t, router, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "invalid_parameter", resp.Error.Code)
		assert.NotEmpty(t, resp.Error.Message)
	}
}

func TestCORS(t *testing.T) {
	router, _ := setupTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/articles", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "X-Custom-Header", w.Header().Get("Access-Control-Allow-Headers"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/articles", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandleHealth(t *testing.T) {
	router, _ := setupTestServer(t, nil)

	w := doGet(t, router, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","adapters":5}`, w.Body.String())
}

func TestHandleListArticles_BlankPlayerName(t *testing.T) {
	router, _ := setupTestServer(t, fixtureArticles())

	w := doGet(t, router, "/api/v1/articles?player_name=%20%20")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}
