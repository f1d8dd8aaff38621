package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/backcourt/backcourt/internal/domain"
	"github.com/backcourt/backcourt/internal/logger"
	"github.com/backcourt/backcourt/pkg/adapters"
	"github.com/backcourt/backcourt/pkg/httpclient"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultMaxBodyBytes = 5 << 20 // 5 MiB
	defaultWorkers      = 4
	defaultTimeout      = 10 * time.Second
)

// Scraper turns site adapters into normalized articles. A failing site only
// ever costs its own articles.
type Scraper struct {
	client       httpclient.Client
	log          logger.Logger
	workers      int
	timeout      time.Duration
	maxBodyBytes int
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithWorkers bounds how many adapters are scraped at once.
func WithWorkers(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithTimeout sets the deadline applied to each adapter's request.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxBodyBytes caps how much of a page is parsed.
func WithMaxBodyBytes(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// NewScraper creates a new Scraper with the given HTTP client and logger.
func NewScraper(client httpclient.Client, log logger.Logger, opts ...Option) *Scraper {
	if log == nil {
		log = logger.NopLogger{}
	}
	s := &Scraper{
		client:       client,
		log:          log,
		workers:      defaultWorkers,
		timeout:      defaultTimeout,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = httpclient.New(httpclient.Options{
			Timeout:      s.timeout,
			MaxBodyBytes: s.maxBodyBytes,
		})
	}
	return s
}

// ScrapeAll scrapes every adapter and concatenates the results in adapter
// order, each adapter's articles in document order. It never fails; broken
// sites contribute nothing.
func (s *Scraper) ScrapeAll(ctx context.Context, sites []adapters.SiteAdapter) []domain.Article {
	out := make([]domain.Article, 0)
	if len(sites) == 0 {
		return out
	}
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([][]domain.Article, len(sites))
	workerCount := min(len(sites), s.workers)

	jobCh := make(chan int)
	var wg sync.WaitGroup

	for workerID := range workerCount {
		wg.Add(1)
		go s.adapterWorker(ctx, sites, jobCh, results, &wg, workerID)
	}

dispatch:
	for idx := range sites {
		select {
		case <-ctx.Done():
			break dispatch
		case jobCh <- idx:
		}
	}
	close(jobCh)

	wg.Wait()

	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// adapterWorker scrapes adapters from the job channel into their result slot.
func (s *Scraper) adapterWorker(
	ctx context.Context,
	sites []adapters.SiteAdapter,
	jobCh <-chan int,
	results [][]domain.Article,
	wg *sync.WaitGroup,
	workerID int,
) {
	defer wg.Done()

	for idx := range jobCh {
		if ctx.Err() != nil {
			continue
		}
		s.log.DebugObj("scraping adapter", "scrape_start", map[string]any{
			"worker_id": workerID,
			"adapter":   sites[idx].Name,
			"url":       sites[idx].Address,
		})
		results[idx] = s.Scrape(ctx, sites[idx])
	}
}

// Scrape fetches one adapter's page and extracts its articles. Transport
// errors, bad statuses, parse errors and panics are logged and yield an
// empty result.
func (s *Scraper) Scrape(ctx context.Context, site adapters.SiteAdapter) (articles []domain.Article) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.log.ErrorObj("adapter scrape panicked", "scrape_panic", map[string]any{
				"adapter": site.Name,
				"url":     site.Address,
				"panic":   fmt.Sprint(r),
			})
			articles = nil
		}
	}()

	found, err := s.fetchAndExtract(ctx, site)
	if err != nil {
		s.log.WarnObj("adapter scrape failed", "scrape_error", map[string]any{
			"adapter":     site.Name,
			"url":         site.Address,
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	s.log.InfoObj("adapter scraped", "scrape_done", map[string]any{
		"adapter":     site.Name,
		"mode":        site.Mode(),
		"articles":    len(found),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return found
}

// fetchAndExtract fetches the adapter page and runs its selectors.
func (s *Scraper) fetchAndExtract(ctx context.Context, site adapters.SiteAdapter) ([]domain.Article, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Get(reqCtx, site.Address, adapters.Headers(site))
	if err != nil {
		return nil, fmt.Errorf("http fetch: %w", err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("status %d body: %s", resp.StatusCode(), responseSnippet(body))
	}

	if len(body) > s.maxBodyBytes {
		s.log.InfoObj("html body truncated", "truncation", map[string]any{
			"adapter":  site.Name,
			"url":      site.Address,
			"read_bytes": len(body),
			"kept":       s.maxBodyBytes,
		})
		body = body[:s.maxBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	return extractArticles(doc.Selection, site), nil
}

// responseSnippet returns a truncated snippet of the response body for logging.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
