// Package api exposes scraped articles over HTTP.
package api

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/backcourt/backcourt/internal/domain"
	"github.com/backcourt/backcourt/internal/logger"
	"github.com/backcourt/backcourt/pkg/adapters"
)

// Scraper is the part of the extraction engine the API depends on.
type Scraper interface {
	ScrapeAll(ctx context.Context, sites []adapters.SiteAdapter) []domain.Article
}

// Server scrapes the registry on every request and filters the result.
type Server struct {
	scraper  Scraper
	registry *adapters.Registry
	log      logger.Logger
	origins  []string
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewServer creates an API server. origins lists the browser origins allowed
// by CORS.
func NewServer(scraper Scraper, registry *adapters.Registry, log logger.Logger, origins []string) *Server {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Server{
		scraper:  scraper,
		registry: registry,
		log:      log,
		origins:  origins,
	}
}

// SetupRouter configures the gin router with the article and health routes.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), s.cors())

	router.GET("/healthz", s.HandleHealth)

	api := router.Group("/api/v1")
	api.GET("/articles", s.HandleListArticles)

	return router
}

// HandleHealth handles GET /healthz.
func (s *Server) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"adapters": s.registry.Len(),
	})
}

// HandleListArticles handles GET /api/v1/articles.
func (s *Server) HandleListArticles(c *gin.Context) {
	q, detail := parseArticleQuery(c)
	if detail != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: *detail})
		return
	}

	articles := s.scraper.ScrapeAll(c.Request.Context(), s.registry.Enabled())
	out := filterArticles(articles, q)
	if out == nil {
		out = []domain.Article{}
	}

	c.JSON(http.StatusOK, out)
}

func parseArticleQuery(c *gin.Context) (ArticleQuery, *ErrorDetail) {
	q := ArticleQuery{
		Source:     strings.TrimSpace(c.Query("source")),
		PlayerName: c.Query("player_name"),
		TeamName:   c.Query("team_name"),
		PageSize:   defaultPageSize,
	}

	ints := []struct {
		name  string
		dst   *int
		floor int
	}{
		{"limit", &q.Limit, 0},
		{"page", &q.Page, 0},
		{"pageSize", &q.PageSize, 1},
	}
	for _, p := range ints {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < p.floor {
			return q, &ErrorDetail{
				Code:    "invalid_parameter",
				Message: "Invalid " + p.name + " parameter: must be an integer >= " + strconv.Itoa(p.floor),
			}
		}
		*p.dst = n
	}

	return q, nil
}

// cors answers preflight requests and echoes allowed origins. Credentials
// are allowed, so the origin is never a wildcard.
func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && slices.Contains(s.origins, origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST")
			c.Header("Access-Control-Allow-Headers", "X-Custom-Header")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.log.InfoObj("http request", "http_request", map[string]any{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"query":       c.Request.URL.RawQuery,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}
}
